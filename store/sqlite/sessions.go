package sqlite

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/warp/drmaa-store/drmaa"
)

// =============================================================================
// JOB SESSIONS
// =============================================================================

// SaveJobSession inserts a job session. A taken name fails with an error
// matching drmaa.ErrDuplicateName and leaves the existing session untouched.
func (s *Store) SaveJobSession(ctx context.Context, js drmaa.JobSession) error {
	const op = "sqlite.(Store).SaveJobSession"
	return s.saveSession(ctx, op, "job_sessions", js.Name, js.Contact)
}

// DeleteJobSession deletes the named job session. Jobs submitted in it are
// kept.
func (s *Store) DeleteJobSession(ctx context.Context, name string) error {
	const op = "sqlite.(Store).DeleteJobSession"
	return s.deleteSession(ctx, op, "job_sessions", name)
}

// GetJobSession returns the named job session, or nil if there is none.
func (s *Store) GetJobSession(ctx context.Context, name string) (*drmaa.JobSession, error) {
	const op = "sqlite.(Store).GetJobSession"
	var js *drmaa.JobSession
	err := s.Execute(ctx, "SELECT name, contact FROM job_sessions WHERE name = ?", []any{name},
		func(columns []string, values []any) error {
			v := mapJobSession(columns, values)
			js = &v
			return nil
		})
	if err != nil {
		return nil, err
	}
	if js == nil {
		s.log.Info("no such job session", "op", op, "name", name)
	}
	return js, nil
}

// ListJobSessions returns every job session ordered by name.
func (s *Store) ListJobSessions(ctx context.Context) ([]drmaa.JobSession, error) {
	var sessions []drmaa.JobSession
	err := s.Execute(ctx, "SELECT name, contact FROM job_sessions ORDER BY name", nil,
		func(columns []string, values []any) error {
			sessions = append(sessions, mapJobSession(columns, values))
			return nil
		})
	return sessions, err
}

// ListJobSessionNames returns the names of all job sessions.
func (s *Store) ListJobSessionNames(ctx context.Context) ([]string, error) {
	return s.sessionNames(ctx, "job_sessions")
}

// =============================================================================
// RESERVATION SESSIONS
// =============================================================================

// SaveReservationSession inserts a reservation session.
func (s *Store) SaveReservationSession(ctx context.Context, rs drmaa.ReservationSession) error {
	const op = "sqlite.(Store).SaveReservationSession"
	return s.saveSession(ctx, op, "reservation_sessions", rs.Name, rs.Contact)
}

// DeleteReservationSession deletes the named reservation session.
func (s *Store) DeleteReservationSession(ctx context.Context, name string) error {
	const op = "sqlite.(Store).DeleteReservationSession"
	return s.deleteSession(ctx, op, "reservation_sessions", name)
}

// GetReservationSession returns the named reservation session, or nil.
func (s *Store) GetReservationSession(ctx context.Context, name string) (*drmaa.ReservationSession, error) {
	const op = "sqlite.(Store).GetReservationSession"
	var rs *drmaa.ReservationSession
	err := s.Execute(ctx, "SELECT name, contact FROM reservation_sessions WHERE name = ?", []any{name},
		func(columns []string, values []any) error {
			v := mapReservationSession(columns, values)
			rs = &v
			return nil
		})
	if err != nil {
		return nil, err
	}
	if rs == nil {
		s.log.Info("no such reservation session", "op", op, "name", name)
	}
	return rs, nil
}

// ListReservationSessions returns every reservation session ordered by name.
func (s *Store) ListReservationSessions(ctx context.Context) ([]drmaa.ReservationSession, error) {
	var sessions []drmaa.ReservationSession
	err := s.Execute(ctx, "SELECT name, contact FROM reservation_sessions ORDER BY name", nil,
		func(columns []string, values []any) error {
			sessions = append(sessions, mapReservationSession(columns, values))
			return nil
		})
	return sessions, err
}

// ListReservationSessionNames returns the names of all reservation sessions.
func (s *Store) ListReservationSessionNames(ctx context.Context) ([]string, error) {
	return s.sessionNames(ctx, "reservation_sessions")
}

// =============================================================================
// SHARED
// =============================================================================

// table is always one of the fixed session table names above.

func (s *Store) saveSession(ctx context.Context, op, table, name string, contact *string) error {
	stmt := "INSERT INTO " + table + " (name, contact) VALUES (?, ?)"
	return s.exclusive(ctx, op, func(tx *sqlx.Tx) error {
		_, err := s.run(ctx, tx, op, stmt, []any{name, contact}, nil)
		return err
	})
}

func (s *Store) deleteSession(ctx context.Context, op, table, name string) error {
	stmt := "DELETE FROM " + table + " WHERE name = ?"
	return s.exclusive(ctx, op, func(tx *sqlx.Tx) error {
		n, err := s.update(ctx, tx, op, stmt, name)
		if err != nil {
			return err
		}
		if n == 0 {
			s.log.Info("delete matched no session", "op", op, "name", name)
		}
		return nil
	})
}

func (s *Store) sessionNames(ctx context.Context, table string) ([]string, error) {
	var names []string
	err := s.Execute(ctx, "SELECT name FROM "+table+" ORDER BY name", nil,
		func(columns []string, values []any) error {
			expectColumns("session name", columns, 1)
			names = append(names, textValue(values[0]))
			return nil
		})
	return names, err
}
