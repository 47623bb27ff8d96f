package sqlite

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// =============================================================================
// SCHEMA MANAGER
// =============================================================================

// Tables lists every table the store owns, in the order Reset clears them.
var Tables = []string{
	"job_sessions",
	"reservation_sessions",
	"jobs",
	"reservations",
	"job_templates",
	"reservation_templates",
}

// AUTOINCREMENT keeps identifiers from ever being reused, also across Reset.
const schema = `
	CREATE TABLE IF NOT EXISTS job_sessions (
		name TEXT UNIQUE NOT NULL,
		contact TEXT
	);

	CREATE TABLE IF NOT EXISTS reservation_sessions (
		name TEXT UNIQUE NOT NULL,
		contact TEXT
	);

	CREATE TABLE IF NOT EXISTS jobs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_name TEXT NOT NULL,
		template_id INTEGER NOT NULL,
		pid INTEGER,
		exit_status INTEGER,
		terminating_signal TEXT,
		submission_time TEXT NOT NULL,
		dispatch_time TEXT,
		finish_time TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_jobs_session
		ON jobs(session_name);
	CREATE INDEX IF NOT EXISTS idx_jobs_exit_status
		ON jobs(exit_status) WHERE exit_status IS NOT NULL;

	CREATE TABLE IF NOT EXISTS reservations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_name TEXT NOT NULL,
		template_id INTEGER NOT NULL,
		reserved_start_time NUMERIC,
		reserved_end_time NUMERIC,
		users_acl TEXT,
		reserved_slots INTEGER,
		reserved_machines TEXT
	);

	CREATE TABLE IF NOT EXISTS job_templates (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		remote_command TEXT NOT NULL,
		args_json TEXT
	);

	CREATE TABLE IF NOT EXISTS reservation_templates (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		candidate_machines TEXT
	);
`

// Setup creates the store file at path if needed and applies the schema.
// It is idempotent.
func Setup(ctx context.Context, path string, opt ...Option) error {
	return New(path, opt...).Setup(ctx)
}

// Reset deletes every row of every table at path, leaving the schema in
// place. It isolates test runs.
func Reset(ctx context.Context, path string, opt ...Option) error {
	return New(path, opt...).Reset(ctx)
}

// Setup applies the schema to the store.
func (s *Store) Setup(ctx context.Context) error {
	const op = "sqlite.(Store).Setup"
	if err := s.Execute(ctx, schema, nil, nil); err != nil {
		return err
	}
	s.log.Debug("schema applied", "op", op, "path", s.path)
	return nil
}

// Reset clears all data in one exclusive transaction.
func (s *Store) Reset(ctx context.Context) error {
	const op = "sqlite.(Store).Reset"
	return s.exclusive(ctx, op, func(tx *sqlx.Tx) error {
		for _, table := range Tables {
			if _, err := s.run(ctx, tx, op, "DELETE FROM "+table, nil, nil); err != nil {
				return err
			}
		}
		s.log.Info("store reset", "path", s.path)
		return nil
	})
}
