/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built data sets that populate the store the way a running
	DRMAA client would: sessions, templates, submitted jobs at various
	lifecycle stages, and reservations.

AVAILABLE SCENARIOS:

	empty:        Schema only, no rows
	single-job:   One session, one template, one queued job
	batch-mixed:  Jobs that succeeded, failed, were killed, or still run
	reservations: Reservation session with a day of bookings

HOW SCENARIOS WORK:
 1. Reset the store (empty every table)
 2. Create sessions and templates
 3. Submit jobs
 4. Record dispatch and completion where the scenario calls for it

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "batch-mixed"}

NOTE:

	Scenarios reset the store. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Reset handler
  - store/sqlite: Write operations used here
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/warp/drmaa-store/drmaa"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "empty",
		Name:        "Empty Store",
		Description: "Tables exist but hold no rows",
	},
	{
		ID:          "single-job",
		Name:        "Single Job",
		Description: "One session with one queued job",
	},
	{
		ID:          "batch-mixed",
		Name:        "Mixed Batch",
		Description: "Succeeded, failed, signalled and running jobs across two sessions",
	},
	{
		ID:          "reservations",
		Name:        "Reservations",
		Description: "Advance reservations on a two-node cluster",
	},
}

var scenarioLoaders = map[string]func(context.Context, *Handler) error{
	"empty":        func(context.Context, *Handler) error { return nil },
	"single-job":   loadSingleJobScenario,
	"batch-mixed":  loadBatchMixedScenario,
	"reservations": loadReservationsScenario,
}

// ListScenarios returns the available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the last loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	if h.currentScenario == "" {
		writeJSON(w, http.StatusOK, map[string]any{"scenario": nil})
		return
	}
	for _, s := range scenarios {
		if s.ID == h.currentScenario {
			writeJSON(w, http.StatusOK, map[string]any{"scenario": s})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"scenario": nil})
}

// LoadScenario resets the store and loads a scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	loader, ok := scenarioLoaders[req.ScenarioID]
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", fmt.Errorf("scenario %q", req.ScenarioID))
		return
	}

	ctx := r.Context()
	if err := h.Store.Reset(ctx); err != nil {
		h.fail(w, "Failed to reset store", err)
		return
	}
	if err := loader(ctx, h); err != nil {
		h.fail(w, "Failed to load scenario", err)
		return
	}

	h.currentScenario = req.ScenarioID
	h.Log.Info("scenario loaded", "scenario", req.ScenarioID)
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "loaded",
		"scenario": req.ScenarioID,
	})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func loadSingleJobScenario(ctx context.Context, h *Handler) error {
	if err := h.Store.SaveJobSession(ctx, drmaa.JobSession{Name: "demo", Contact: strPtr("demo@localhost")}); err != nil {
		return err
	}
	tmpl, err := h.Store.SaveJobTemplate(ctx, drmaa.JobTemplate{
		RemoteCommand: "/bin/sleep",
		Args:          []string{"60"},
	})
	if err != nil {
		return err
	}
	_, err = h.Store.SaveJob(ctx, "demo", tmpl)
	return err
}

func loadBatchMixedScenario(ctx context.Context, h *Handler) error {
	for _, name := range []string{"nightly", "adhoc"} {
		if err := h.Store.SaveJobSession(ctx, drmaa.JobSession{Name: name}); err != nil {
			return err
		}
	}

	build, err := h.Store.SaveJobTemplate(ctx, drmaa.JobTemplate{
		RemoteCommand: "/usr/bin/make",
		Args:          []string{"-C", "/srv/build", "all"},
	})
	if err != nil {
		return err
	}
	report, err := h.Store.SaveJobTemplate(ctx, drmaa.JobTemplate{RemoteCommand: "/usr/local/bin/report"})
	if err != nil {
		return err
	}

	// Job outcomes: exit status, terminating signal, or still running
	jobs := []struct {
		session  string
		template drmaa.JobTemplateID
		pid      int
		exit     *int
		signal   string
	}{
		{session: "nightly", template: build, pid: 4101, exit: intPtr(0)},
		{session: "nightly", template: build, pid: 4102, exit: intPtr(2)},
		{session: "nightly", template: report, pid: 4103, exit: intPtr(137), signal: "SIGKILL"},
		{session: "adhoc", template: report, pid: 4104},
		{session: "adhoc", template: build},
	}

	for _, j := range jobs {
		id, err := h.Store.SaveJob(ctx, j.session, j.template)
		if err != nil {
			return err
		}
		if j.pid == 0 {
			continue
		}
		if err := h.Store.RecordDispatch(ctx, id, j.pid); err != nil {
			return err
		}
		if j.exit == nil {
			continue
		}
		if err := h.Store.RecordCompletion(ctx, id, *j.exit, j.signal); err != nil {
			return err
		}
	}
	return nil
}

func loadReservationsScenario(ctx context.Context, h *Handler) error {
	if err := h.Store.SaveReservationSession(ctx, drmaa.ReservationSession{Name: "cluster-a", Contact: strPtr("ops")}); err != nil {
		return err
	}
	tmpl, err := h.Store.SaveReservationTemplate(ctx, drmaa.ReservationTemplate{CandidateMachines: strPtr("node1,node2")})
	if err != nil {
		return err
	}

	day := time.Now().UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
	slots := int64(8)
	bookings := []struct {
		from, to time.Duration
		users    string
		machines string
	}{
		{from: 8 * time.Hour, to: 12 * time.Hour, users: "alice", machines: "node1"},
		{from: 12 * time.Hour, to: 18 * time.Hour, users: "bob,carol", machines: "node1,node2"},
	}

	for _, b := range bookings {
		if _, err := h.Store.SaveReservation(ctx, drmaa.Reservation{
			SessionName:      "cluster-a",
			TemplateID:       tmpl,
			ReservedStart:    drmaa.EpochDecimal(day.Add(b.from)),
			ReservedEnd:      drmaa.EpochDecimal(day.Add(b.to)),
			UsersACL:         strPtr(b.users),
			ReservedSlots:    &slots,
			ReservedMachines: strPtr(b.machines),
		}); err != nil {
			return err
		}
	}
	return nil
}

func strPtr(s string) *string {
	return &s
}

func intPtr(i int) *int {
	return &i
}
