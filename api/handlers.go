/*
handlers.go - HTTP handlers of the operator console

PURPOSE:
  Exposes the job store for inspection and administration. This is not the
  DRMAA session API; clients submit and reap jobs through the store
  directly. The console reads what they wrote.

ENDPOINTS:
  Sessions:
    GET    /api/job-sessions                 List job sessions
    GET    /api/job-sessions/{name}          Get one job session
    GET    /api/reservation-sessions         List reservation sessions
    GET    /api/reservation-sessions/{name}  Get one reservation session

  Jobs:
    GET    /api/jobs                 List jobs (?exit_status=&session=&template=)
    GET    /api/jobs/{id}            Job runtime state
    GET    /api/jobs/{id}/status     Exit status (-1 until completion)
    GET    /api/jobs/{id}/command    Command the job runs
    GET    /api/jobs/{id}/wait       Block until completion (?timeout=30s)

  Reservations and templates:
    GET    /api/reservations[/{id}]
    GET    /api/templates/jobs[/{id}]
    GET    /api/templates/reservations[/{id}]

  Admin:
    POST   /api/admin/setup          Create missing tables
    POST   /api/admin/reset          Empty every table

ERROR HANDLING:
  Errors are returned as JSON with an HTTP status from statusFor:
  - 400: Malformed identifier or filter
  - 404: No such record
  - 409: Duplicate name, repeated dispatch
  - 503: Store locked by another writer
  - 500: Anything else

SECURITY NOTE:
  No authentication. Admin routes destroy data; bind to localhost.

SEE ALSO:
  - dto.go: Response types
  - scenarios.go: Demo data loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hashicorp/go-hclog"

	"github.com/warp/drmaa-store/drmaa"
	"github.com/warp/drmaa-store/store/sqlite"
)

// DefaultWaitTimeout bounds GET /api/jobs/{id}/wait when no timeout is given.
const DefaultWaitTimeout = 30 * time.Second

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store *sqlite.Store
	Log   hclog.Logger

	// PollInterval is how often the wait endpoint re-reads a job.
	PollInterval time.Duration

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a new handler with the given store.
func NewHandler(store *sqlite.Store, logger hclog.Logger) *Handler {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Handler{
		Store:        store,
		Log:          logger.Named("api"),
		PollInterval: sqlite.DefaultPollInterval,
	}
}

// =============================================================================
// SESSION HANDLERS
// =============================================================================

// ListJobSessions returns all job sessions ordered by name.
func (h *Handler) ListJobSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.Store.ListJobSessions(r.Context())
	if err != nil {
		h.fail(w, "Failed to list job sessions", err)
		return
	}

	dtos := make([]SessionDTO, len(sessions))
	for i, s := range sessions {
		dtos[i] = toSessionDTO(s.Name, s.Contact)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetJobSession returns one job session.
func (h *Handler) GetJobSession(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	js, err := h.Store.GetJobSession(r.Context(), name)
	if err != nil {
		h.fail(w, "Failed to get job session", err)
		return
	}
	if js == nil {
		writeError(w, http.StatusNotFound, "Job session not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toSessionDTO(js.Name, js.Contact))
}

// ListReservationSessions returns all reservation sessions ordered by name.
func (h *Handler) ListReservationSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.Store.ListReservationSessions(r.Context())
	if err != nil {
		h.fail(w, "Failed to list reservation sessions", err)
		return
	}

	dtos := make([]SessionDTO, len(sessions))
	for i, s := range sessions {
		dtos[i] = toSessionDTO(s.Name, s.Contact)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetReservationSession returns one reservation session.
func (h *Handler) GetReservationSession(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	rs, err := h.Store.GetReservationSession(r.Context(), name)
	if err != nil {
		h.fail(w, "Failed to get reservation session", err)
		return
	}
	if rs == nil {
		writeError(w, http.StatusNotFound, "Reservation session not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toSessionDTO(rs.Name, rs.Contact))
}

// =============================================================================
// JOB HANDLERS
// =============================================================================

// ListJobs returns the jobs matching the query filter in submission order.
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	filter, err := parseJobFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid filter", err)
		return
	}

	jobs, err := h.Store.ListJobs(r.Context(), filter)
	if err != nil {
		h.fail(w, "Failed to list jobs", err)
		return
	}

	dtos := make([]JobDTO, len(jobs))
	for i, j := range jobs {
		dtos[i] = JobDTO{ID: j.ID.String(), SessionName: j.SessionName}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetJob returns the runtime state of one job.
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, ok := jobIDParam(w, r)
	if !ok {
		return
	}

	ji, err := h.Store.GetJobInfo(r.Context(), id)
	if err != nil {
		h.fail(w, "Failed to get job", err)
		return
	}
	if ji == nil {
		writeError(w, http.StatusNotFound, "Job not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toJobInfoDTO(ji))
}

// GetJobStatus returns a job's exit status.
func (h *Handler) GetJobStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := jobIDParam(w, r)
	if !ok {
		return
	}

	status, err := h.Store.GetJobStatus(r.Context(), id)
	if err != nil {
		h.fail(w, "Failed to get job status", err)
		return
	}
	writeJSON(w, http.StatusOK, JobStatusDTO{ID: id.String(), ExitStatus: status})
}

// GetJobCommand returns the command a job runs.
func (h *Handler) GetJobCommand(w http.ResponseWriter, r *http.Request) {
	id, ok := jobIDParam(w, r)
	if !ok {
		return
	}

	cmd, err := h.Store.GetCommand(r.Context(), id)
	if err != nil {
		h.fail(w, "Failed to get job command", err)
		return
	}
	if cmd == nil {
		writeError(w, http.StatusNotFound, "Job or template not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, CommandDTO{RemoteCommand: cmd.RemoteCommand, Args: cmd.Args})
}

// WaitJob blocks until the job's completion is recorded or the timeout
// elapses, in which case it answers 408.
func (h *Handler) WaitJob(w http.ResponseWriter, r *http.Request) {
	id, ok := jobIDParam(w, r)
	if !ok {
		return
	}

	timeout := DefaultWaitTimeout
	if v := r.URL.Query().Get("timeout"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid timeout", err)
			return
		}
		timeout = d
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	ji, err := h.Store.WaitFinished(ctx, id, h.PollInterval)
	if errors.Is(err, context.DeadlineExceeded) {
		writeError(w, http.StatusRequestTimeout, "Job still running", err)
		return
	}
	if err != nil {
		h.fail(w, "Failed to wait for job", err)
		return
	}
	writeJSON(w, http.StatusOK, toJobInfoDTO(ji))
}

// =============================================================================
// RESERVATION HANDLERS
// =============================================================================

// ListReservations returns all reservations.
func (h *Handler) ListReservations(w http.ResponseWriter, r *http.Request) {
	reservations, err := h.Store.ListReservations(r.Context())
	if err != nil {
		h.fail(w, "Failed to list reservations", err)
		return
	}

	dtos := make([]ReservationDTO, len(reservations))
	for i := range reservations {
		dtos[i] = toReservationDTO(&reservations[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetReservation returns one reservation.
func (h *Handler) GetReservation(w http.ResponseWriter, r *http.Request) {
	id, err := drmaa.ParseReservationID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid reservation id", err)
		return
	}

	res, err := h.Store.GetReservation(r.Context(), id)
	if err != nil {
		h.fail(w, "Failed to get reservation", err)
		return
	}
	if res == nil {
		writeError(w, http.StatusNotFound, "Reservation not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toReservationDTO(res))
}

// =============================================================================
// TEMPLATE HANDLERS
// =============================================================================

// ListJobTemplates returns all job templates.
func (h *Handler) ListJobTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.Store.ListJobTemplates(r.Context())
	if err != nil {
		h.fail(w, "Failed to list job templates", err)
		return
	}

	dtos := make([]JobTemplateDTO, len(templates))
	for i := range templates {
		dtos[i] = toJobTemplateDTO(&templates[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetJobTemplate returns one job template.
func (h *Handler) GetJobTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := drmaa.ParseJobTemplateID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid job template id", err)
		return
	}

	jt, err := h.Store.GetJobTemplate(r.Context(), id)
	if err != nil {
		h.fail(w, "Failed to get job template", err)
		return
	}
	if jt == nil {
		writeError(w, http.StatusNotFound, "Job template not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toJobTemplateDTO(jt))
}

// ListReservationTemplates returns all reservation templates.
func (h *Handler) ListReservationTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.Store.ListReservationTemplates(r.Context())
	if err != nil {
		h.fail(w, "Failed to list reservation templates", err)
		return
	}

	dtos := make([]ReservationTemplateDTO, len(templates))
	for i := range templates {
		dtos[i] = toReservationTemplateDTO(&templates[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetReservationTemplate returns one reservation template.
func (h *Handler) GetReservationTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := drmaa.ParseReservationTemplateID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid reservation template id", err)
		return
	}

	rt, err := h.Store.GetReservationTemplate(r.Context(), id)
	if err != nil {
		h.fail(w, "Failed to get reservation template", err)
		return
	}
	if rt == nil {
		writeError(w, http.StatusNotFound, "Reservation template not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toReservationTemplateDTO(rt))
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// Setup creates any missing tables.
func (h *Handler) Setup(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Setup(r.Context()); err != nil {
		h.fail(w, "Failed to set up store", err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// Reset empties every table.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		h.fail(w, "Failed to reset store", err)
		return
	}
	h.currentScenario = ""
	h.Log.Info("store reset via admin API")
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

// parseJobFilter builds a job filter from the exit_status, session and
// template query parameters.
func parseJobFilter(r *http.Request) (drmaa.JobFilter, error) {
	var filter drmaa.JobFilter
	q := r.URL.Query()

	if v := q.Get("exit_status"); v != "" {
		status, err := strconv.Atoi(v)
		if err != nil {
			return filter, err
		}
		filter = filter.And(drmaa.ExitStatusIs(status))
	}
	if v := q.Get("session"); v != "" {
		filter = filter.And(drmaa.SessionIs(v))
	}
	if v := q.Get("template"); v != "" {
		id, err := drmaa.ParseJobTemplateID(v)
		if err != nil {
			return filter, err
		}
		filter = filter.And(drmaa.TemplateIs(id))
	}
	return filter, nil
}

func jobIDParam(w http.ResponseWriter, r *http.Request) (drmaa.JobID, bool) {
	id, err := drmaa.ParseJobID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid job id", err)
		return drmaa.JobID{}, false
	}
	return id, true
}

// statusFor maps a store error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, drmaa.ErrInvalidID), errors.Is(err, drmaa.ErrInvalidFilter):
		return http.StatusBadRequest
	case errors.Is(err, drmaa.ErrNotFound),
		errors.Is(err, drmaa.ErrUnknownSession),
		errors.Is(err, drmaa.ErrUnknownTemplate):
		return http.StatusNotFound
	case errors.Is(err, drmaa.ErrDuplicateName), errors.Is(err, drmaa.ErrAlreadyDispatched),
		errors.Is(err, drmaa.ErrAlreadyCompleted):
		return http.StatusConflict
	case drmaa.IsTransient(err), errors.Is(err, drmaa.ErrRetriesExhausted):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(w http.ResponseWriter, message string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.Log.Error(message, "error", err)
	}
	writeError(w, status, message, err)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
