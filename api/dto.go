/*
dto.go - Data Transfer Objects for API responses

PURPOSE:
  Defines the JSON structures of the operator console. These types keep the
  store's domain records (opaque identifiers, NullDecimal bounds) out of the
  wire contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Small status wrappers

IDENTIFIERS:
  Identifiers are rendered with their String form and parsed back with
  drmaa.Parse*ID, so clients never see row internals.

SEE ALSO:
  - handlers.go: Uses these types
  - drmaa/types.go: Domain records
*/
package api

import (
	"time"

	"github.com/warp/drmaa-store/drmaa"
)

// =============================================================================
// SESSIONS
// =============================================================================

// SessionDTO represents a job or reservation session.
type SessionDTO struct {
	Name    string  `json:"name"`
	Contact *string `json:"contact"`
}

// =============================================================================
// JOBS
// =============================================================================

// JobDTO is the listing view of a job.
type JobDTO struct {
	ID          string `json:"id"`
	SessionName string `json:"session_name"`
}

// JobInfoDTO is the runtime state of a job.
type JobInfoDTO struct {
	ID                string     `json:"id"`
	SessionName       string     `json:"session_name"`
	TemplateID        string     `json:"template_id"`
	PID               *int       `json:"pid"`
	ExitStatus        int        `json:"exit_status"`
	TerminatingSignal *string    `json:"terminating_signal"`
	SubmissionTime    time.Time  `json:"submission_time"`
	DispatchTime      *time.Time `json:"dispatch_time"`
	FinishTime        *time.Time `json:"finish_time"`
	Finished          bool       `json:"finished"`
}

// JobStatusDTO is a job's exit status; -1 until it completes.
type JobStatusDTO struct {
	ID         string `json:"id"`
	ExitStatus int    `json:"exit_status"`
}

// CommandDTO is what a job runs.
type CommandDTO struct {
	RemoteCommand string   `json:"remote_command"`
	Args          []string `json:"args"`
}

// =============================================================================
// RESERVATIONS
// =============================================================================

// ReservationDTO represents an advance reservation.
type ReservationDTO struct {
	ID               string     `json:"id"`
	SessionName      string     `json:"session_name"`
	TemplateID       string     `json:"template_id"`
	ReservedStart    *time.Time `json:"reserved_start"`
	ReservedEnd      *time.Time `json:"reserved_end"`
	UsersACL         *string    `json:"users_acl"`
	ReservedSlots    *int64     `json:"reserved_slots"`
	ReservedMachines *string    `json:"reserved_machines"`
}

// =============================================================================
// TEMPLATES
// =============================================================================

// JobTemplateDTO represents a job template.
type JobTemplateDTO struct {
	ID            string   `json:"id"`
	RemoteCommand string   `json:"remote_command"`
	Args          []string `json:"args"`
}

// ReservationTemplateDTO represents a reservation template.
type ReservationTemplateDTO struct {
	ID                string  `json:"id"`
	CandidateMachines *string `json:"candidate_machines"`
}

// =============================================================================
// ADMIN AND SCENARIOS
// =============================================================================

// StatusResponse acknowledges an admin action.
type StatusResponse struct {
	Status string `json:"status"`
}

// ScenarioDTO describes a demo data set.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects the scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toSessionDTO(name string, contact *string) SessionDTO {
	return SessionDTO{Name: name, Contact: contact}
}

func toJobInfoDTO(ji *drmaa.JobInfo) JobInfoDTO {
	return JobInfoDTO{
		ID:                ji.ID.String(),
		SessionName:       ji.SessionName,
		TemplateID:        ji.TemplateID.String(),
		PID:               ji.PID,
		ExitStatus:        ji.ExitStatus,
		TerminatingSignal: ji.TerminatingSignal,
		SubmissionTime:    ji.SubmissionTime,
		DispatchTime:      ji.DispatchTime,
		FinishTime:        ji.FinishTime,
		Finished:          ji.Finished(),
	}
}

func toReservationDTO(r *drmaa.Reservation) ReservationDTO {
	dto := ReservationDTO{
		ID:               r.ID.String(),
		SessionName:      r.SessionName,
		TemplateID:       r.TemplateID.String(),
		UsersACL:         r.UsersACL,
		ReservedSlots:    r.ReservedSlots,
		ReservedMachines: r.ReservedMachines,
	}
	if t, ok := r.StartTime(); ok {
		dto.ReservedStart = &t
	}
	if t, ok := r.EndTime(); ok {
		dto.ReservedEnd = &t
	}
	return dto
}

func toJobTemplateDTO(jt *drmaa.JobTemplate) JobTemplateDTO {
	return JobTemplateDTO{
		ID:            jt.ID.String(),
		RemoteCommand: jt.RemoteCommand,
		Args:          jt.Args,
	}
}

func toReservationTemplateDTO(rt *drmaa.ReservationTemplate) ReservationTemplateDTO {
	return ReservationTemplateDTO{
		ID:                rt.ID.String(),
		CandidateMachines: rt.CandidateMachines,
	}
}
