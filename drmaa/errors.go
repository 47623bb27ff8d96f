/*
errors.go - Error types for the persistence layer

ERROR CATEGORIES:
  1. Connection errors - store cannot be opened or created
  2. Driver errors     - malformed statement, constraint, lock contention
  3. Lookup errors     - referenced rows missing
  4. Format errors     - stored timestamp or integer text does not parse (corruption)

Driver errors reach callers as *StoreError, which unwraps to the sentinel
for its category (ErrDuplicateName, ErrStoreBusy) and to the driver error.

USAGE:
  if errors.Is(err, drmaa.ErrDuplicateName) { ... }
  if drmaa.IsTransient(err) { ... }
*/
package drmaa

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrConnection is returned when the store file cannot be opened or created.
	ErrConnection = errors.New("cannot open store")

	// ErrNotFound is returned when an update targets a row that does not exist.
	// Lookups report absence with a nil record instead.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateName is returned when a session name is already taken.
	ErrDuplicateName = errors.New("duplicate session name")

	// ErrStoreBusy is returned when the lock-wait timeout elapsed.
	ErrStoreBusy = errors.New("store is locked by another writer")

	// ErrTimestampFormat is returned when a stored timestamp does not match
	// the layout the store writes. It indicates a corrupt store.
	ErrTimestampFormat = errors.New("stored timestamp has unexpected format")

	// ErrCorruptValue is returned when an integer column holds text that is
	// not a number. It indicates a corrupt store.
	ErrCorruptValue = errors.New("stored value is not an integer")

	// ErrRetriesExhausted is returned when a retried write never landed.
	ErrRetriesExhausted = errors.New("write retries exhausted")

	// ErrUnknownSession is returned when an insert references a missing session.
	ErrUnknownSession = errors.New("unknown session")

	// ErrUnknownTemplate is returned when an insert references a missing template.
	ErrUnknownTemplate = errors.New("unknown template")

	// ErrAlreadyDispatched is returned when dispatch is recorded twice.
	ErrAlreadyDispatched = errors.New("job already dispatched")

	// ErrAlreadyCompleted is returned when dispatch is recorded for a job
	// that has already finished.
	ErrAlreadyCompleted = errors.New("job already completed")

	// ErrInvalidID is returned when an identifier string does not parse.
	ErrInvalidID = errors.New("invalid identifier")

	// ErrInvalidFilter is returned for a predicate on an unsupported field.
	ErrInvalidFilter = errors.New("invalid filter")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// StoreError is a driver error together with the operation that hit it.
type StoreError struct {
	Op        string
	Statement string
	Kind      error // ErrDuplicateName, ErrStoreBusy or nil
	Err       error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() []error {
	if e.Kind == nil {
		return []error{e.Err}
	}
	return []error{e.Kind, e.Err}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsTransient reports whether err is lock contention that may clear on retry.
func IsTransient(err error) bool {
	return errors.Is(err, ErrStoreBusy)
}

// IsCorruption reports whether err means the store contents are unusable.
func IsCorruption(err error) bool {
	return errors.Is(err, ErrTimestampFormat) || errors.Is(err, ErrCorruptValue)
}
