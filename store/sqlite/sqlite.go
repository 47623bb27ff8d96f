/*
Package sqlite provides the SQLite-backed persistence layer of the mock
DRMAA2 job API.

PURPOSE:
  Persists job sessions, reservation sessions, jobs, reservations and their
  templates in one local file so that state survives across separate process
  invocations: a job is submitted by one process, dispatched and waited on
  by others.

CONNECTION MODEL:
  A Store holds configuration only, never a connection. Every operation
  opens its own handle, acts, and closes it before returning. Correctness
  across operations therefore rests on SQLite's own locking:
  - busy timeout (default 30s): a writer blocked by another writer waits
    instead of failing immediately
  - _txlock=exclusive: every transaction begins with BEGIN EXCLUSIVE, so
    concurrent writers are serialized by the engine
  - WAL journal: readers are not blocked by the single writer

KEY TABLES:
  job_sessions, reservation_sessions: unique session names, optional contact
  jobs:                  submitted jobs, runtime fields filled in place
  reservations:          advance reservations
  job_templates:         remote command + JSON encoded args
  reservation_templates: candidate machines

  Jobs and reservations reference sessions and templates softly. The store
  does not enforce the references; SaveJob and SaveReservation validate them
  inside their write transaction instead.

COMPLETION WRITE:
  RecordCompletion is the synchronization point for waiters polling a job.
  Lock contention on it is retried under the store's RetryPolicy rather
  than surfaced.

USAGE:
  if err := sqlite.Setup(ctx, "./drmaa2.db"); err != nil {
      return err
  }
  store := sqlite.New("./drmaa2.db", sqlite.WithLogger(logger))
  id, err := store.SaveJob(ctx, "session", templateID)

SEE ALSO:
  - schema.go: DDL, Setup, Reset
  - exec.go: Statement executor and exclusive transactions
  - mapper.go: Row hydration
  - retry.go: Completion-write retry policy
*/
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/hashicorp/go-hclog"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"

	"github.com/warp/drmaa-store/drmaa"
)

// Store is the persistence layer for one store file.
// It is safe for concurrent use; it holds no connection state.
type Store struct {
	path string
	opts options
	log  hclog.Logger
}

// New returns a Store for the file at path. Nothing is opened until the
// first operation.
func New(path string, opt ...Option) *Store {
	opts := getOpts(opt...)
	return &Store{
		path: path,
		opts: opts,
		log:  opts.logger,
	}
}

// Path returns the store file location.
func (s *Store) Path() string {
	return s.path
}

// =============================================================================
// CONNECTION GATEWAY
// =============================================================================

// open returns a fresh single-connection handle. sql.Open is lazy, so the
// handle is pinged to surface open/create failures here.
func (s *Store) open(ctx context.Context) (*sqlx.DB, error) {
	db, err := sqlx.Open(s.opts.driver, s.dsn())
	if err != nil {
		s.log.Error("cannot open store", "path", s.path, "error", err)
		return nil, fmt.Errorf("%w %q: %v", drmaa.ErrConnection, s.path, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.log.Error("cannot open store", "path", s.path, "error", err)
		return nil, fmt.Errorf("%w %q: %v", drmaa.ErrConnection, s.path, err)
	}
	return db, nil
}

func (s *Store) close(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		s.log.Debug("closing store handle", "path", s.path, "error", err)
	}
}

// dsn appends the driver parameters for the sqlite3 driver. Other drivers
// get the path verbatim.
func (s *Store) dsn() string {
	if s.opts.driver != driverName {
		return s.path
	}
	params := url.Values{}
	params.Set("_busy_timeout", strconv.FormatInt(s.opts.lockTimeout.Milliseconds(), 10))
	params.Set("_txlock", "exclusive")
	if s.opts.journalMode != "" {
		params.Set("_journal_mode", s.opts.journalMode)
	}
	return s.path + "?" + params.Encode()
}

// =============================================================================
// DRIVER ERRORS
// =============================================================================

// driverError logs err and wraps it with its category.
func (s *Store) driverError(op, stmt string, err error) error {
	se := &drmaa.StoreError{Op: op, Statement: stmt, Err: err}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code {
		case sqlite3.ErrBusy, sqlite3.ErrLocked:
			se.Kind = drmaa.ErrStoreBusy
		case sqlite3.ErrConstraint:
			if sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
				se.Kind = drmaa.ErrDuplicateName
			}
		}
	}

	s.log.Error("statement failed", "op", op, "statement", stmt, "error", err)
	return se
}
