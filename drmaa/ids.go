package drmaa

import (
	"fmt"
	"strconv"
)

// Identifiers are assigned by the store and are opaque to callers. The zero
// value of each type is "no identifier"; the store never assigns it.

// JobID identifies a persisted job.
type JobID struct{ v int64 }

// ReservationID identifies a persisted reservation.
type ReservationID struct{ v int64 }

// JobTemplateID identifies a persisted job template.
type JobTemplateID struct{ v int64 }

// ReservationTemplateID identifies a persisted reservation template.
type ReservationTemplateID struct{ v int64 }

// NewJobID wraps a store-assigned row identifier. Only repositories call it.
func NewJobID(rowID int64) JobID { return JobID{rowID} }

// NewReservationID wraps a store-assigned row identifier.
func NewReservationID(rowID int64) ReservationID { return ReservationID{rowID} }

// NewJobTemplateID wraps a store-assigned row identifier.
func NewJobTemplateID(rowID int64) JobTemplateID { return JobTemplateID{rowID} }

// NewReservationTemplateID wraps a store-assigned row identifier.
func NewReservationTemplateID(rowID int64) ReservationTemplateID {
	return ReservationTemplateID{rowID}
}

func (id JobID) IsZero() bool                 { return id.v == 0 }
func (id ReservationID) IsZero() bool         { return id.v == 0 }
func (id JobTemplateID) IsZero() bool         { return id.v == 0 }
func (id ReservationTemplateID) IsZero() bool { return id.v == 0 }

// RowID exposes the underlying key to the storage layer.
func (id JobID) RowID() int64                 { return id.v }
func (id ReservationID) RowID() int64         { return id.v }
func (id JobTemplateID) RowID() int64         { return id.v }
func (id ReservationTemplateID) RowID() int64 { return id.v }

func (id JobID) String() string                 { return strconv.FormatInt(id.v, 10) }
func (id ReservationID) String() string         { return strconv.FormatInt(id.v, 10) }
func (id JobTemplateID) String() string         { return strconv.FormatInt(id.v, 10) }
func (id ReservationTemplateID) String() string { return strconv.FormatInt(id.v, 10) }

// ParseJobID parses the String form of a JobID, e.g. one handed between
// process invocations on a command line.
func ParseJobID(s string) (JobID, error) {
	v, err := parseRowID("job", s)
	return JobID{v}, err
}

// ParseReservationID parses the String form of a ReservationID.
func ParseReservationID(s string) (ReservationID, error) {
	v, err := parseRowID("reservation", s)
	return ReservationID{v}, err
}

// ParseJobTemplateID parses the String form of a JobTemplateID.
func ParseJobTemplateID(s string) (JobTemplateID, error) {
	v, err := parseRowID("job template", s)
	return JobTemplateID{v}, err
}

// ParseReservationTemplateID parses the String form of a ReservationTemplateID.
func ParseReservationTemplateID(s string) (ReservationTemplateID, error) {
	v, err := parseRowID("reservation template", s)
	return ReservationTemplateID{v}, err
}

func parseRowID(kind, s string) (int64, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid %s id %q: %w", kind, s, ErrInvalidID)
	}
	return v, nil
}
