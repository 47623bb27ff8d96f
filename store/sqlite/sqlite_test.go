/*
sqlite_test.go - Integration tests for the SQLite store

Tests run against real store files in a temp dir, opened the same way
separate process invocations would open them.
*/
package sqlite_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/drmaa-store/drmaa"
	"github.com/warp/drmaa-store/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func testOptions(opt ...sqlite.Option) []sqlite.Option {
	return append([]sqlite.Option{sqlite.WithLogger(hclog.NewNullLogger())}, opt...)
}

func newTestStore(t *testing.T, opt ...sqlite.Option) *sqlite.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "drmaa2.db")
	opts := testOptions(opt...)
	require.NoError(t, sqlite.Setup(context.Background(), path, opts...))
	return sqlite.New(path, opts...)
}

func strPtr(s string) *string {
	return &s
}

// seedJob creates a session and template if needed and submits one job.
func seedJob(t *testing.T, store *sqlite.Store, session string) drmaa.JobID {
	t.Helper()
	ctx := context.Background()

	existing, err := store.GetJobSession(ctx, session)
	require.NoError(t, err)
	if existing == nil {
		require.NoError(t, store.SaveJobSession(ctx, drmaa.JobSession{Name: session}))
	}
	tmpl, err := store.SaveJobTemplate(ctx, drmaa.JobTemplate{RemoteCommand: "/bin/sleep", Args: []string{"1"}})
	require.NoError(t, err)

	id, err := store.SaveJob(ctx, session, tmpl)
	require.NoError(t, err)
	return id
}

// =============================================================================
// SCHEMA
// =============================================================================

func TestSetup_Idempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveJobSession(ctx, drmaa.JobSession{Name: "s1"}))

	// Second setup must neither fail nor drop data
	require.NoError(t, store.Setup(ctx))

	js, err := store.GetJobSession(ctx, "s1")
	require.NoError(t, err)
	assert.NotNil(t, js)
}

func TestSetup_UnopenableStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "drmaa2.db")

	err := sqlite.Setup(context.Background(), path, testOptions()...)
	assert.ErrorIs(t, err, drmaa.ErrConnection)
}

func TestReset_EmptiesTablesButKeepsSchema(t *testing.T) {
	// GIVEN: a populated store
	store := newTestStore(t)
	ctx := context.Background()

	oldID := seedJob(t, store, "s1")
	require.NoError(t, store.SaveReservationSession(ctx, drmaa.ReservationSession{Name: "r1"}))
	rt, err := store.SaveReservationTemplate(ctx, drmaa.ReservationTemplate{CandidateMachines: strPtr("node1")})
	require.NoError(t, err)
	_, err = store.SaveReservation(ctx, drmaa.Reservation{SessionName: "r1", TemplateID: rt})
	require.NoError(t, err)

	// WHEN: resetting
	require.NoError(t, sqlite.Reset(ctx, store.Path(), testOptions()...))

	// THEN: every table is empty
	for _, table := range sqlite.Tables {
		count := -1
		err := store.Execute(ctx, "SELECT COUNT(*) FROM "+table, nil, func(_ []string, values []any) error {
			count = int(values[0].(int64))
			return nil
		})
		require.NoError(t, err)
		assert.Zero(t, count, table)
	}

	// AND: the schema still works without running setup again
	newID := seedJob(t, store, "s1")
	assert.Greater(t, newID.RowID(), oldID.RowID(), "identifiers are never reused")
}

// =============================================================================
// SESSIONS
// =============================================================================

func TestJobSession_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveJobSession(ctx, drmaa.JobSession{Name: "s1", Contact: strPtr("me")}))

	js, err := store.GetJobSession(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, js)
	assert.Equal(t, "s1", js.Name)
	require.NotNil(t, js.Contact)
	assert.Equal(t, "me", *js.Contact)

	missing, err := store.GetJobSession(ctx, "missing")
	require.NoError(t, err, "absence is not an error")
	assert.Nil(t, missing)
}

func TestJobSession_NullContactStaysNull(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveJobSession(ctx, drmaa.JobSession{Name: "no-contact"}))
	require.NoError(t, store.SaveJobSession(ctx, drmaa.JobSession{Name: "empty-contact", Contact: strPtr("")}))

	js, err := store.GetJobSession(ctx, "no-contact")
	require.NoError(t, err)
	assert.Nil(t, js.Contact)

	js, err = store.GetJobSession(ctx, "empty-contact")
	require.NoError(t, err)
	require.NotNil(t, js.Contact)
	assert.Equal(t, "", *js.Contact)
}

func TestJobSession_DuplicateName(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveJobSession(ctx, drmaa.JobSession{Name: "s1", Contact: strPtr("me")}))

	err := store.SaveJobSession(ctx, drmaa.JobSession{Name: "s1", Contact: strPtr("someone-else")})
	assert.ErrorIs(t, err, drmaa.ErrDuplicateName)

	js, err := store.GetJobSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "me", *js.Contact, "first session must be unchanged")
}

func TestJobSession_NameIsNotInterpretedAsSQL(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	name := "x'); DROP TABLE jobs; --"

	require.NoError(t, store.SaveJobSession(ctx, drmaa.JobSession{Name: name}))

	js, err := store.GetJobSession(ctx, name)
	require.NoError(t, err)
	require.NotNil(t, js)
	assert.Equal(t, name, js.Name)

	_, err = store.ListJobs(ctx, drmaa.JobFilter{})
	assert.NoError(t, err, "jobs table must still exist")
}

func TestJobSession_DeleteKeepsJobs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	id := seedJob(t, store, "s1")

	require.NoError(t, store.DeleteJobSession(ctx, "s1"))

	js, err := store.GetJobSession(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, js)

	info, err := store.GetJobInfo(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, info, "jobs of a deleted session are kept")
	assert.Equal(t, "s1", info.SessionName)

	// Deleting again is not an error
	assert.NoError(t, store.DeleteJobSession(ctx, "s1"))
}

func TestSessionListings(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"b", "a", "c"} {
		require.NoError(t, store.SaveJobSession(ctx, drmaa.JobSession{Name: name}))
	}
	require.NoError(t, store.SaveReservationSession(ctx, drmaa.ReservationSession{Name: "r1", Contact: strPtr("ops")}))

	names, err := store.ListJobSessionNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, names)

	sessions, err := store.ListJobSessions(ctx)
	require.NoError(t, err)
	assert.Len(t, sessions, 3)

	rnames, err := store.ListReservationSessionNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"r1"}, rnames)

	rsessions, err := store.ListReservationSessions(ctx)
	require.NoError(t, err)
	want := []drmaa.ReservationSession{{Name: "r1", Contact: strPtr("ops")}}
	if diff := cmp.Diff(want, rsessions); diff != "" {
		t.Errorf("reservation sessions mismatch (-want +got):\n%s", diff)
	}
}

func TestReservationSession_Lifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveReservationSession(ctx, drmaa.ReservationSession{Name: "r1"}))
	err := store.SaveReservationSession(ctx, drmaa.ReservationSession{Name: "r1"})
	assert.ErrorIs(t, err, drmaa.ErrDuplicateName)

	rs, err := store.GetReservationSession(ctx, "r1")
	require.NoError(t, err)
	require.NotNil(t, rs)
	assert.Nil(t, rs.Contact)

	require.NoError(t, store.DeleteReservationSession(ctx, "r1"))
	rs, err = store.GetReservationSession(ctx, "r1")
	require.NoError(t, err)
	assert.Nil(t, rs)
}

// =============================================================================
// JOBS
// =============================================================================

func TestSaveJob_DistinctIdentifiers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := seedJob(t, store, "s1")
	second := seedJob(t, store, "s1")
	assert.NotEqual(t, first, second)

	for _, id := range []drmaa.JobID{first, second} {
		info, err := store.GetJobInfo(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, info)
		assert.Equal(t, id, info.ID)
	}
}

func TestSaveJob_ReferentialValidation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	tmpl, err := store.SaveJobTemplate(ctx, drmaa.JobTemplate{RemoteCommand: "/bin/true"})
	require.NoError(t, err)

	_, err = store.SaveJob(ctx, "no-such-session", tmpl)
	assert.ErrorIs(t, err, drmaa.ErrUnknownSession)

	require.NoError(t, store.SaveJobSession(ctx, drmaa.JobSession{Name: "s1"}))
	_, err = store.SaveJob(ctx, "s1", drmaa.NewJobTemplateID(tmpl.RowID()+100))
	assert.ErrorIs(t, err, drmaa.ErrUnknownTemplate)

	jobs, err := store.ListJobs(ctx, drmaa.JobFilter{})
	require.NoError(t, err)
	assert.Empty(t, jobs, "rejected submissions leave no rows")
}

func TestJobLifecycle(t *testing.T) {
	// GIVEN: a freshly submitted job
	store := newTestStore(t)
	ctx := context.Background()
	before := time.Now().UTC().Add(-2 * time.Second)
	id := seedJob(t, store, "s1")

	status, err := store.GetJobStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, drmaa.StatusUnknown, status)

	info, err := store.GetJobInfo(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, info.PID)
	assert.Nil(t, info.DispatchTime)
	assert.Nil(t, info.FinishTime)
	assert.Nil(t, info.TerminatingSignal)
	assert.Equal(t, drmaa.StatusUnknown, info.ExitStatus)
	assert.False(t, info.Finished())
	assert.True(t, info.SubmissionTime.After(before), "submission time comes from the store clock")

	// WHEN: dispatched and completed
	require.NoError(t, store.RecordDispatch(ctx, id, 4242))
	require.NoError(t, store.RecordCompletion(ctx, id, 0, ""))

	// THEN
	status, err = store.GetJobStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 0, status)

	info, err = store.GetJobInfo(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, info.PID)
	assert.Equal(t, 4242, *info.PID)
	require.NotNil(t, info.DispatchTime)
	require.NotNil(t, info.FinishTime)
	assert.False(t, info.DispatchTime.After(*info.FinishTime))
	assert.False(t, info.SubmissionTime.After(*info.DispatchTime))
	assert.Nil(t, info.TerminatingSignal)
	assert.True(t, info.Finished())
}

func TestRecordCompletion_TerminatingSignal(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	id := seedJob(t, store, "s1")

	require.NoError(t, store.RecordDispatch(ctx, id, 7))
	require.NoError(t, store.RecordCompletion(ctx, id, 137, "SIGKILL"))

	info, err := store.GetJobInfo(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 137, info.ExitStatus)
	require.NotNil(t, info.TerminatingSignal)
	assert.Equal(t, "SIGKILL", *info.TerminatingSignal)
}

func TestRecordDispatch_OnlyOnce(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	id := seedJob(t, store, "s1")

	require.NoError(t, store.RecordDispatch(ctx, id, 100))
	err := store.RecordDispatch(ctx, id, 200)
	assert.ErrorIs(t, err, drmaa.ErrAlreadyDispatched)

	info, err := store.GetJobInfo(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 100, *info.PID)
}

func TestRecordDispatch_AfterCompletion(t *testing.T) {
	// GIVEN: a job that finished without ever being dispatched
	store := newTestStore(t)
	ctx := context.Background()
	id := seedJob(t, store, "s1")
	require.NoError(t, store.RecordCompletion(ctx, id, 1, "SIGTERM"))

	// WHEN
	err := store.RecordDispatch(ctx, id, 42)

	// THEN: the late dispatch is refused and leaves the row untouched
	assert.ErrorIs(t, err, drmaa.ErrAlreadyCompleted)
	assert.NotErrorIs(t, err, drmaa.ErrAlreadyDispatched)

	info, err := store.GetJobInfo(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, info.PID)
	assert.Nil(t, info.DispatchTime)
	assert.True(t, info.Finished())
	assert.Equal(t, 1, info.ExitStatus)
}

func TestRecordCompletion_MinusOneReadsAsUnknown(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	id := seedJob(t, store, "s1")

	require.NoError(t, store.RecordDispatch(ctx, id, 9))
	require.NoError(t, store.RecordCompletion(ctx, id, -1, ""))

	status, err := store.GetJobStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, drmaa.StatusUnknown, status)

	// Only the finish time tells it apart from a running job.
	info, err := store.GetJobInfo(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, drmaa.StatusUnknown, info.ExitStatus)
	assert.True(t, info.Finished())
}

func TestLifecycleWrites_UnknownJob(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	missing := drmaa.NewJobID(999)

	assert.ErrorIs(t, store.RecordDispatch(ctx, missing, 1), drmaa.ErrNotFound)

	err := store.RecordCompletion(ctx, missing, 0, "")
	assert.ErrorIs(t, err, drmaa.ErrNotFound)
	assert.NotErrorIs(t, err, drmaa.ErrRetriesExhausted, "a missing row is not retried")

	status, err := store.GetJobStatus(ctx, missing)
	require.NoError(t, err)
	assert.Equal(t, drmaa.StatusUnknown, status)

	info, err := store.GetJobInfo(ctx, missing)
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestGetJobInfo_CorruptTimestamp(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	id := seedJob(t, store, "s1")

	require.NoError(t, store.Execute(ctx,
		"UPDATE jobs SET finish_time = ? WHERE id = ?", []any{"19 Oct 2026", id.RowID()}, nil))

	info, err := store.GetJobInfo(ctx, id)
	assert.Nil(t, info)
	assert.ErrorIs(t, err, drmaa.ErrTimestampFormat)
	assert.True(t, drmaa.IsCorruption(err))
}

func TestJobReads_CorruptInteger(t *testing.T) {
	tests := []struct {
		name   string
		column string
	}{
		{name: "pid", column: "pid"},
		{name: "exit status", column: "exit_status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// GIVEN: an integer column overwritten with text
			store := newTestStore(t)
			ctx := context.Background()
			id := seedJob(t, store, "s1")
			require.NoError(t, store.Execute(ctx,
				"UPDATE jobs SET "+tt.column+" = ? WHERE id = ?", []any{"abc", id.RowID()}, nil))

			// WHEN
			info, err := store.GetJobInfo(ctx, id)

			// THEN: the value is reported as corrupt, not as unset
			assert.Nil(t, info)
			assert.ErrorIs(t, err, drmaa.ErrCorruptValue)
			assert.True(t, drmaa.IsCorruption(err))

			_, err = store.ListJobInfos(ctx, drmaa.JobFilter{})
			assert.ErrorIs(t, err, drmaa.ErrCorruptValue)
		})
	}
}

func TestGetJobStatus_CorruptExitStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	id := seedJob(t, store, "s1")
	require.NoError(t, store.Execute(ctx,
		"UPDATE jobs SET exit_status = ? WHERE id = ?", []any{"abc", id.RowID()}, nil))

	status, err := store.GetJobStatus(ctx, id)
	assert.ErrorIs(t, err, drmaa.ErrCorruptValue)
	assert.Equal(t, drmaa.StatusUnknown, status)
}

func TestListJobs_ExitStatusFilter(t *testing.T) {
	// GIVEN: jobs that exited 0, exited 1, and never finished
	store := newTestStore(t)
	ctx := context.Background()

	ok1 := seedJob(t, store, "s1")
	failed := seedJob(t, store, "s1")
	running := seedJob(t, store, "s2")
	ok2 := seedJob(t, store, "s2")

	for id, status := range map[drmaa.JobID]int{ok1: 0, failed: 1, ok2: 0} {
		require.NoError(t, store.RecordDispatch(ctx, id, 1))
		require.NoError(t, store.RecordCompletion(ctx, id, status, ""))
	}
	require.NoError(t, store.RecordDispatch(ctx, running, 1))

	// WHEN/THEN: filtering on exit status 0
	jobs, err := store.ListJobs(ctx, drmaa.NewJobFilter(drmaa.ExitStatusIs(0)))
	require.NoError(t, err)
	assert.Equal(t, []drmaa.Job{
		{ID: ok1, SessionName: "s1"},
		{ID: ok2, SessionName: "s2"},
	}, jobs)

	// The unset sentinel and the empty filter list everything
	for _, f := range []drmaa.JobFilter{{}, drmaa.NewJobFilter(drmaa.ExitStatusIs(drmaa.StatusUnknown))} {
		all, err := store.ListJobs(ctx, f)
		require.NoError(t, err)
		assert.Len(t, all, 4)
	}

	// Predicates compose
	jobs, err = store.ListJobs(ctx, drmaa.NewJobFilter(drmaa.SessionIs("s2")).And(drmaa.ExitStatusIs(0)))
	require.NoError(t, err)
	assert.Equal(t, []drmaa.Job{{ID: ok2, SessionName: "s2"}}, jobs)

	infos, err := store.ListJobInfos(ctx, drmaa.NewJobFilter(drmaa.ExitStatusIs(1)))
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, failed, infos[0].ID)
}

func TestListJobs_InvalidFilter(t *testing.T) {
	store := newTestStore(t)

	_, err := store.ListJobs(context.Background(), drmaa.NewJobFilter(drmaa.JobPredicate{Field: 99, Value: 1}))
	assert.ErrorIs(t, err, drmaa.ErrInvalidFilter)
}

func TestGetCommand(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveJobSession(ctx, drmaa.JobSession{Name: "s1"}))
	tmpl, err := store.SaveJobTemplate(ctx, drmaa.JobTemplate{
		RemoteCommand: "/usr/bin/env",
		Args:          []string{"FOO=bar", "printenv", "FOO"},
	})
	require.NoError(t, err)
	id, err := store.SaveJob(ctx, "s1", tmpl)
	require.NoError(t, err)

	cmd, err := store.GetCommand(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, cmd)
	assert.Equal(t, "/usr/bin/env", cmd.RemoteCommand)
	assert.Equal(t, []string{"FOO=bar", "printenv", "FOO"}, cmd.Args)

	missing, err := store.GetCommand(ctx, drmaa.NewJobID(id.RowID()+1))
	require.NoError(t, err)
	assert.Nil(t, missing)
}

// =============================================================================
// TEMPLATES AND RESERVATIONS
// =============================================================================

func TestTemplates_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	jt := drmaa.JobTemplate{RemoteCommand: "/bin/echo", Args: []string{"hello", "world"}}
	jtID, err := store.SaveJobTemplate(ctx, jt)
	require.NoError(t, err)
	noArgsID, err := store.SaveJobTemplate(ctx, drmaa.JobTemplate{RemoteCommand: "/bin/true"})
	require.NoError(t, err)

	got, err := store.GetJobTemplate(ctx, jtID)
	require.NoError(t, err)
	jt.ID = jtID
	if diff := cmp.Diff(&jt, got, cmp.AllowUnexported(drmaa.JobTemplateID{})); diff != "" {
		t.Errorf("job template mismatch (-want +got):\n%s", diff)
	}

	noArgs, err := store.GetJobTemplate(ctx, noArgsID)
	require.NoError(t, err)
	assert.Nil(t, noArgs.Args)

	all, err := store.ListJobTemplates(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, store.DeleteJobTemplate(ctx, noArgsID))
	gone, err := store.GetJobTemplate(ctx, noArgsID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	rtID, err := store.SaveReservationTemplate(ctx, drmaa.ReservationTemplate{})
	require.NoError(t, err)
	rt, err := store.GetReservationTemplate(ctx, rtID)
	require.NoError(t, err)
	require.NotNil(t, rt)
	assert.Nil(t, rt.CandidateMachines)

	rts, err := store.ListReservationTemplates(ctx)
	require.NoError(t, err)
	assert.Len(t, rts, 1)

	require.NoError(t, store.DeleteReservationTemplate(ctx, rtID))
	rt, err = store.GetReservationTemplate(ctx, rtID)
	require.NoError(t, err)
	assert.Nil(t, rt)
}

func TestReservation_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveReservationSession(ctx, drmaa.ReservationSession{Name: "r1"}))
	rt, err := store.SaveReservationTemplate(ctx, drmaa.ReservationTemplate{CandidateMachines: strPtr("node1,node2")})
	require.NoError(t, err)

	start := time.Date(2026, 10, 20, 8, 0, 0, 0, time.UTC)
	end := start.Add(4 * time.Hour)
	slots := int64(16)
	id, err := store.SaveReservation(ctx, drmaa.Reservation{
		SessionName:      "r1",
		TemplateID:       rt,
		ReservedStart:    drmaa.EpochDecimal(start),
		ReservedEnd:      drmaa.EpochDecimal(end),
		UsersACL:         strPtr("alice,bob"),
		ReservedSlots:    &slots,
		ReservedMachines: strPtr("node1"),
	})
	require.NoError(t, err)

	r, err := store.GetReservation(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, "r1", r.SessionName)
	assert.Equal(t, rt, r.TemplateID)

	gotStart, ok := r.StartTime()
	require.True(t, ok)
	assert.True(t, start.Equal(gotStart))
	gotEnd, ok := r.EndTime()
	require.True(t, ok)
	assert.True(t, end.Equal(gotEnd))

	assert.Equal(t, "alice,bob", *r.UsersACL)
	assert.Equal(t, int64(16), *r.ReservedSlots)
	assert.Equal(t, "node1", *r.ReservedMachines)

	// Unknown template is rejected
	_, err = store.SaveReservation(ctx, drmaa.Reservation{SessionName: "r1", TemplateID: drmaa.NewReservationTemplateID(rt.RowID() + 1)})
	assert.ErrorIs(t, err, drmaa.ErrUnknownTemplate)

	all, err := store.ListReservations(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	_, ok = all[0].StartTime()
	assert.True(t, ok)

	require.NoError(t, store.DeleteReservation(ctx, id))
	r, err = store.GetReservation(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, r)
}

// =============================================================================
// CONCURRENCY
// =============================================================================

func TestRecordCompletion_ConcurrentWritersBothLand(t *testing.T) {
	// GIVEN: one dispatched job and two independent store instances, the way
	// two separate processes would see the same file
	first := newTestStore(t, sqlite.WithRetryPolicy(sqlite.RetryPolicy{
		InitialInterval: 10 * time.Millisecond,
		MaxInterval:     100 * time.Millisecond,
		Multiplier:      2,
		MaxElapsedTime:  30 * time.Second,
	}))
	second := sqlite.New(first.Path(), testOptions()...)
	ctx := context.Background()

	id := seedJob(t, first, "s1")
	require.NoError(t, first.RecordDispatch(ctx, id, 1))

	// WHEN: both race to record completion
	statuses := []int{3, 4}
	stores := []*sqlite.Store{first, second}
	errs := make([]error, len(stores))
	var wg sync.WaitGroup
	for i := range stores {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = stores[i].RecordCompletion(ctx, id, statuses[i], "")
		}(i)
	}
	wg.Wait()

	// THEN: neither write was lost and the final state is one of them
	for i, err := range errs {
		assert.NoError(t, err, "writer %d", i)
	}
	status, err := second.GetJobStatus(ctx, id)
	require.NoError(t, err)
	assert.Contains(t, statuses, status)

	again, err := first.GetJobStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, status, again, "settled state is stable")
}

func TestSaveJob_ConcurrentSubmissionsGetDistinctIDs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveJobSession(ctx, drmaa.JobSession{Name: "s1"}))
	tmpl, err := store.SaveJobTemplate(ctx, drmaa.JobTemplate{RemoteCommand: "/bin/true"})
	require.NoError(t, err)

	const writers = 8
	ids := make([]drmaa.JobID, writers)
	errs := make([]error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i], errs[i] = sqlite.New(store.Path(), testOptions()...).SaveJob(ctx, "s1", tmpl)
		}(i)
	}
	wg.Wait()

	seen := make(map[drmaa.JobID]bool)
	for i := range ids {
		require.NoError(t, errs[i])
		assert.False(t, seen[ids[i]], "duplicate id %s", ids[i])
		seen[ids[i]] = true
	}
}

// =============================================================================
// WAITING
// =============================================================================

func TestWaitFinished(t *testing.T) {
	// GIVEN: a running job that another writer completes later
	store := newTestStore(t)
	ctx := context.Background()
	id := seedJob(t, store, "s1")
	require.NoError(t, store.RecordDispatch(ctx, id, 1))

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = sqlite.New(store.Path(), testOptions()...).RecordCompletion(ctx, id, 2, "")
	}()

	// WHEN
	waitCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	info, err := store.WaitFinished(waitCtx, id, 10*time.Millisecond)

	// THEN
	require.NoError(t, err)
	assert.Equal(t, 2, info.ExitStatus)
	assert.True(t, info.Finished())
}

func TestWaitFinished_UnknownJobAndTimeout(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.WaitFinished(ctx, drmaa.NewJobID(5), time.Millisecond)
	assert.ErrorIs(t, err, drmaa.ErrNotFound)

	id := seedJob(t, store, "s1")
	waitCtx, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancel()
	_, err = store.WaitFinished(waitCtx, id, 5*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
