package sqlite

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
)

// =============================================================================
// STATEMENT EXECUTOR
// =============================================================================

// RowFunc receives one result row. columns and values are parallel slices;
// a NULL column has a nil value.
type RowFunc func(columns []string, values []any) error

// Execute runs stmt on a fresh connection. Values are bound to the
// statement's placeholders and can never alter its structure. When fn is
// non-nil the statement is run as a query and fn is called once per row in
// the order the store returns them.
func (s *Store) Execute(ctx context.Context, stmt string, args []any, fn RowFunc) error {
	const op = "sqlite.(Store).Execute"
	db, err := s.open(ctx)
	if err != nil {
		return err
	}
	defer s.close(db)

	_, err = s.run(ctx, db, op, stmt, args, fn)
	return err
}

// ExecuteReturningRowID runs a single insert and returns the row identifier
// the store assigned to it. It returns 0 with the error on failure.
func (s *Store) ExecuteReturningRowID(ctx context.Context, stmt string, args ...any) (int64, error) {
	const op = "sqlite.(Store).ExecuteReturningRowID"
	db, err := s.open(ctx)
	if err != nil {
		return 0, err
	}
	defer s.close(db)

	return s.insert(ctx, db, op, stmt, args...)
}

func (s *Store) insert(ctx context.Context, ext sqlx.ExtContext, op, stmt string, args ...any) (int64, error) {
	res, err := s.run(ctx, ext, op, stmt, args, nil)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, s.driverError(op, stmt, err)
	}
	return id, nil
}

// update runs a write and returns the number of rows it changed.
func (s *Store) update(ctx context.Context, ext sqlx.ExtContext, op, stmt string, args ...any) (int64, error) {
	res, err := s.run(ctx, ext, op, stmt, args, nil)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, s.driverError(op, stmt, err)
	}
	return n, nil
}

// run executes stmt against a handle or a transaction.
func (s *Store) run(ctx context.Context, ext sqlx.ExtContext, op, stmt string, args []any, fn RowFunc) (sql.Result, error) {
	s.log.Debug("executing statement", "op", op, "statement", stmt, "args", args)

	if fn == nil {
		res, err := ext.ExecContext(ctx, stmt, args...)
		if err != nil {
			return nil, s.driverError(op, stmt, err)
		}
		return res, nil
	}

	rows, err := ext.QueryxContext(ctx, stmt, args...)
	if err != nil {
		return nil, s.driverError(op, stmt, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, s.driverError(op, stmt, err)
	}
	for rows.Next() {
		values, err := rows.SliceScan()
		if err != nil {
			return nil, s.driverError(op, stmt, err)
		}
		if s.log.IsTrace() {
			for i, c := range columns {
				s.log.Trace("row", "column", c, "value", values[i])
			}
		}
		if err := fn(columns, values); err != nil {
			s.log.Error("row rejected", "op", op, "statement", stmt, "error", err)
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, s.driverError(op, stmt, err)
	}
	return nil, nil
}

// =============================================================================
// WRITE-CONSISTENCY WRAPPER
// =============================================================================

// exclusive runs fn inside BEGIN EXCLUSIVE ... COMMIT on a fresh
// connection. A concurrent exclusive transaction blocks for up to the lock
// timeout. fn's error rolls the transaction back and is returned as is.
func (s *Store) exclusive(ctx context.Context, op string, fn func(tx *sqlx.Tx) error) error {
	db, err := s.open(ctx)
	if err != nil {
		return err
	}
	defer s.close(db)

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return s.driverError(op, "BEGIN EXCLUSIVE", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.log.Warn("rollback failed", "op", op, "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return s.driverError(op, "COMMIT", err)
	}
	return nil
}
