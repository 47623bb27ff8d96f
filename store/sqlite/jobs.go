package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/warp/drmaa-store/drmaa"
)

// =============================================================================
// JOB LIFECYCLE WRITES
// =============================================================================

// Job rows are never deleted. They are inserted at submission and updated in
// place at dispatch and at completion. All timestamps come from the store's
// clock.

const jobInfoColumns = `id, session_name, template_id, pid, exit_status,
	terminating_signal, submission_time, dispatch_time, finish_time`

// SaveJob records a job submitted in sessionName from templateID and
// returns its identifier. The session and template must exist. Runtime
// fields start out NULL.
func (s *Store) SaveJob(ctx context.Context, sessionName string, templateID drmaa.JobTemplateID) (drmaa.JobID, error) {
	const op = "sqlite.(Store).SaveJob"
	var rowID int64
	err := s.exclusive(ctx, op, func(tx *sqlx.Tx) error {
		if err := s.requireRow(ctx, tx, op, "SELECT 1 FROM job_sessions WHERE name = ?", sessionName, drmaa.ErrUnknownSession); err != nil {
			return fmt.Errorf("job session %q: %w", sessionName, err)
		}
		if err := s.requireRow(ctx, tx, op, "SELECT 1 FROM job_templates WHERE id = ?", templateID.RowID(), drmaa.ErrUnknownTemplate); err != nil {
			return fmt.Errorf("job template %s: %w", templateID, err)
		}

		var err error
		rowID, err = s.insert(ctx, tx, op,
			"INSERT INTO jobs (session_name, template_id, submission_time) VALUES (?, ?, "+drmaa.StoreClockExpr+")",
			sessionName, templateID.RowID())
		return err
	})
	if err != nil {
		return drmaa.JobID{}, err
	}
	return drmaa.NewJobID(rowID), nil
}

// RecordDispatch sets the job's pid and dispatch time. It succeeds once per
// job and only before completion: a second call fails with
// drmaa.ErrAlreadyDispatched, a call after RecordCompletion with
// drmaa.ErrAlreadyCompleted.
func (s *Store) RecordDispatch(ctx context.Context, id drmaa.JobID, pid int) error {
	const op = "sqlite.(Store).RecordDispatch"
	return s.exclusive(ctx, op, func(tx *sqlx.Tx) error {
		n, err := s.update(ctx, tx, op,
			"UPDATE jobs SET pid = ?, dispatch_time = "+drmaa.StoreClockExpr+" WHERE id = ? AND dispatch_time IS NULL AND finish_time IS NULL",
			pid, id.RowID())
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}

		// Nothing matched. Report why.
		found, dispatched := false, false
		if _, err := s.run(ctx, tx, op, "SELECT dispatch_time FROM jobs WHERE id = ?",
			[]any{id.RowID()}, func(_ []string, values []any) error {
				found = true
				dispatched = values[0] != nil
				return nil
			}); err != nil {
			return err
		}
		switch {
		case !found:
			return fmt.Errorf("job %s: %w", id, drmaa.ErrNotFound)
		case dispatched:
			return fmt.Errorf("job %s: %w", id, drmaa.ErrAlreadyDispatched)
		default:
			return fmt.Errorf("job %s: %w", id, drmaa.ErrAlreadyCompleted)
		}
	})
}

// RecordCompletion sets the job's exit status, terminating signal (empty
// for none) and finish time.
//
// Waiters poll for this write, so lock contention does not fail it: the
// whole transaction is re-issued under the store's RetryPolicy. Concurrent
// completions of the same job all land; the last one wins.
func (s *Store) RecordCompletion(ctx context.Context, id drmaa.JobID, exitStatus int, terminatingSignal string) error {
	const op = "sqlite.(Store).RecordCompletion"
	return s.retryTransient(ctx, op, func() error {
		return s.exclusive(ctx, op, func(tx *sqlx.Tx) error {
			n, err := s.update(ctx, tx, op,
				"UPDATE jobs SET exit_status = ?, terminating_signal = ?, finish_time = "+drmaa.StoreClockExpr+" WHERE id = ?",
				exitStatus, nullString(terminatingSignal), id.RowID())
			if err != nil {
				return err
			}
			if n == 0 {
				return fmt.Errorf("job %s: %w", id, drmaa.ErrNotFound)
			}
			return nil
		})
	})
}

// =============================================================================
// JOB QUERIES
// =============================================================================

// GetJobStatus returns the job's exit status, or drmaa.StatusUnknown if the
// job does not exist or has not completed.
func (s *Store) GetJobStatus(ctx context.Context, id drmaa.JobID) (int, error) {
	status := drmaa.StatusUnknown
	err := s.Execute(ctx, "SELECT exit_status FROM jobs WHERE id = ?", []any{id.RowID()},
		func(columns []string, values []any) error {
			expectColumns("job status", columns, 1)
			v, err := nullInt(values[0])
			if err != nil {
				return fmt.Errorf("exit_status: %w", err)
			}
			if v != nil {
				status = int(*v)
			}
			return nil
		})
	if err != nil {
		return drmaa.StatusUnknown, err
	}
	return status, nil
}

// GetJobInfo returns the job's runtime state, or nil if there is no such
// job. A stored timestamp that does not parse fails with
// drmaa.ErrTimestampFormat.
func (s *Store) GetJobInfo(ctx context.Context, id drmaa.JobID) (*drmaa.JobInfo, error) {
	const op = "sqlite.(Store).GetJobInfo"
	var ji *drmaa.JobInfo
	err := s.Execute(ctx, "SELECT "+jobInfoColumns+" FROM jobs WHERE id = ?", []any{id.RowID()},
		func(columns []string, values []any) error {
			v, err := mapJobInfo(columns, values)
			if err != nil {
				return err
			}
			ji = &v
			return nil
		})
	if err != nil {
		return nil, err
	}
	if ji == nil {
		s.log.Info("no such job", "op", op, "id", id)
	}
	return ji, nil
}

// ListJobs returns the jobs matching filter in submission order.
func (s *Store) ListJobs(ctx context.Context, filter drmaa.JobFilter) ([]drmaa.Job, error) {
	where, args, err := buildJobFilter(filter)
	if err != nil {
		return nil, err
	}
	var jobs []drmaa.Job
	err = s.Execute(ctx, "SELECT id, session_name FROM jobs"+where+" ORDER BY id", args,
		func(columns []string, values []any) error {
			jobs = append(jobs, mapJob(columns, values))
			return nil
		})
	return jobs, err
}

// ListJobInfos is ListJobs returning full runtime state.
func (s *Store) ListJobInfos(ctx context.Context, filter drmaa.JobFilter) ([]drmaa.JobInfo, error) {
	where, args, err := buildJobFilter(filter)
	if err != nil {
		return nil, err
	}
	var infos []drmaa.JobInfo
	err = s.Execute(ctx, "SELECT "+jobInfoColumns+" FROM jobs"+where+" ORDER BY id", args,
		func(columns []string, values []any) error {
			ji, err := mapJobInfo(columns, values)
			if err != nil {
				return err
			}
			infos = append(infos, ji)
			return nil
		})
	return infos, err
}

// GetCommand joins the job with its template to recover what to run, or
// returns nil if either row is missing.
func (s *Store) GetCommand(ctx context.Context, id drmaa.JobID) (*drmaa.Command, error) {
	const op = "sqlite.(Store).GetCommand"
	var cmd *drmaa.Command
	err := s.Execute(ctx, `
		SELECT t.remote_command, t.args_json
		FROM jobs j JOIN job_templates t ON t.id = j.template_id
		WHERE j.id = ?`, []any{id.RowID()},
		func(columns []string, values []any) error {
			v, err := mapCommand(columns, values)
			if err != nil {
				return err
			}
			cmd = &v
			return nil
		})
	if err != nil {
		return nil, err
	}
	if cmd == nil {
		s.log.Info("no command for job", "op", op, "id", id)
	}
	return cmd, nil
}

// =============================================================================
// HELPERS
// =============================================================================

var jobFilterColumns = map[drmaa.JobField]string{
	drmaa.FieldExitStatus:  "exit_status",
	drmaa.FieldSessionName: "session_name",
	drmaa.FieldTemplateID:  "template_id",
}

// buildJobFilter renders filter as a WHERE clause. Columns come from a fixed
// map and values are bound, so a filter cannot change the statement shape.
func buildJobFilter(filter drmaa.JobFilter) (string, []any, error) {
	preds := filter.Active()
	if len(preds) == 0 {
		return "", nil, nil
	}
	clauses := make([]string, 0, len(preds))
	args := make([]any, 0, len(preds))
	for _, p := range preds {
		column, ok := jobFilterColumns[p.Field]
		if !ok {
			return "", nil, fmt.Errorf("%w: unsupported field %v", drmaa.ErrInvalidFilter, p.Field)
		}
		clauses = append(clauses, column+" = ?")
		args = append(args, p.Value)
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

// requireRow returns missing when query yields no rows.
func (s *Store) requireRow(ctx context.Context, ext sqlx.ExtContext, op, query string, arg any, missing error) error {
	found := false
	if _, err := s.run(ctx, ext, op, query, []any{arg}, func([]string, []any) error {
		found = true
		return nil
	}); err != nil {
		return err
	}
	if !found {
		return missing
	}
	return nil
}
