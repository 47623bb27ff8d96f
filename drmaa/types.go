/*
Package drmaa defines the persisted domain model of the mock DRMAA2 job API.

PURPOSE:
  Sessions, jobs, reservations and their templates as the persistence layer
  hands them to the dispatch and client-facing layers. Types here carry no
  storage details; store/sqlite hydrates them from rows.

KEY TYPES:
  JobSession / ReservationSession: named containers, optional contact
  Job / JobInfo:                   submitted job and its runtime state
  Reservation:                     advance reservation
  JobTemplate / ReservationTemplate: reusable submission definitions
  Command:                         executable + args recovered for dispatch

NULLS:
  Optional text columns are *string. A nil pointer means the column was
  NULL; it is never coerced to "".

SEE ALSO:
  - ids.go: Opaque identifiers
  - filter.go: Composable job filter
  - time.go: Store timestamp layout
  - store/sqlite: Repository implementation
*/
package drmaa

import (
	"time"

	"github.com/shopspring/decimal"
)

// StatusUnknown is returned for a job whose exit status is not (yet) recorded.
// It doubles as the "unset" exit status in a JobFilter.
//
// A job that really exits with -1 is stored as -1 and then reads back as
// StatusUnknown, and a filter cannot select it. Use JobInfo.Finished to tell
// a finished job from one still running.
const StatusUnknown = -1

// =============================================================================
// SESSIONS
// =============================================================================

// JobSession groups related submitted jobs.
type JobSession struct {
	Name    string
	Contact *string
}

// ReservationSession groups advance reservations.
type ReservationSession struct {
	Name    string
	Contact *string
}

// =============================================================================
// JOBS
// =============================================================================

// Job is the listing view of a submitted job.
type Job struct {
	ID          JobID
	SessionName string
}

// JobInfo is the runtime state of a job.
// ExitStatus is StatusUnknown until the job completes.
type JobInfo struct {
	ID                JobID
	SessionName       string
	TemplateID        JobTemplateID
	PID               *int
	ExitStatus        int
	TerminatingSignal *string
	SubmissionTime    time.Time
	DispatchTime      *time.Time
	FinishTime        *time.Time
}

// Finished reports whether the completion fields have been written.
func (ji *JobInfo) Finished() bool {
	return ji.FinishTime != nil
}

// Command is what the dispatch layer needs to spawn a job.
type Command struct {
	RemoteCommand string
	Args          []string
}

// =============================================================================
// RESERVATIONS
// =============================================================================

// Reservation is an advance resource reservation.
// ReservedStart/ReservedEnd are epoch seconds stored in NUMERIC columns.
type Reservation struct {
	ID               ReservationID
	SessionName      string
	TemplateID       ReservationTemplateID
	ReservedStart    decimal.NullDecimal
	ReservedEnd      decimal.NullDecimal
	UsersACL         *string
	ReservedSlots    *int64
	ReservedMachines *string
}

// StartTime converts ReservedStart to a time, if set.
func (r *Reservation) StartTime() (time.Time, bool) {
	return decimalTime(r.ReservedStart)
}

// EndTime converts ReservedEnd to a time, if set.
func (r *Reservation) EndTime() (time.Time, bool) {
	return decimalTime(r.ReservedEnd)
}

// EpochDecimal encodes t as whole epoch seconds for a reservation bound.
func EpochDecimal(t time.Time) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: decimal.NewFromInt(t.Unix()), Valid: true}
}

func decimalTime(d decimal.NullDecimal) (time.Time, bool) {
	if !d.Valid {
		return time.Time{}, false
	}
	secs := d.Decimal.Floor()
	nanos := d.Decimal.Sub(secs).Shift(9).IntPart()
	return time.Unix(secs.IntPart(), nanos).UTC(), true
}

// =============================================================================
// TEMPLATES
// =============================================================================

// JobTemplate defines the command a job runs.
type JobTemplate struct {
	ID            JobTemplateID
	RemoteCommand string
	Args          []string
}

// ReservationTemplate defines the machines a reservation may use.
type ReservationTemplate struct {
	ID                ReservationTemplateID
	CandidateMachines *string
}
