package drmaa

import (
	"fmt"
	"time"
)

// =============================================================================
// TIME CODEC - Store-side timestamps
// =============================================================================

// TimestampLayout is the text layout of SQLite's datetime('now'), which is
// the only writer of job timestamps. Values are UTC.
const TimestampLayout = "2006-01-02 15:04:05"

// StoreClockExpr is the SQL expression that stamps a timestamp with the
// store's own clock.
const StoreClockExpr = "datetime('now')"

// ParseTimestamp parses stored timestamp text. A mismatch means the store
// was written by something other than this layer and is treated as
// corruption.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.ParseInLocation(TimestampLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrTimestampFormat, s)
	}
	return t, nil
}
