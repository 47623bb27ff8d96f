package sqlite

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/warp/drmaa-store/drmaa"
)

// =============================================================================
// RESERVATIONS
// =============================================================================

const reservationColumns = `id, session_name, template_id, reserved_start_time,
	reserved_end_time, users_acl, reserved_slots, reserved_machines`

// SaveReservation records r in its session and returns the new identifier.
// r.ID is ignored. The session and template must exist.
func (s *Store) SaveReservation(ctx context.Context, r drmaa.Reservation) (drmaa.ReservationID, error) {
	const op = "sqlite.(Store).SaveReservation"
	var rowID int64
	err := s.exclusive(ctx, op, func(tx *sqlx.Tx) error {
		if err := s.requireRow(ctx, tx, op, "SELECT 1 FROM reservation_sessions WHERE name = ?", r.SessionName, drmaa.ErrUnknownSession); err != nil {
			return fmt.Errorf("reservation session %q: %w", r.SessionName, err)
		}
		if err := s.requireRow(ctx, tx, op, "SELECT 1 FROM reservation_templates WHERE id = ?", r.TemplateID.RowID(), drmaa.ErrUnknownTemplate); err != nil {
			return fmt.Errorf("reservation template %s: %w", r.TemplateID, err)
		}

		var err error
		rowID, err = s.insert(ctx, tx, op, `
			INSERT INTO reservations
			(session_name, template_id, reserved_start_time, reserved_end_time,
			 users_acl, reserved_slots, reserved_machines)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			r.SessionName, r.TemplateID.RowID(), r.ReservedStart, r.ReservedEnd,
			r.UsersACL, r.ReservedSlots, r.ReservedMachines)
		return err
	})
	if err != nil {
		return drmaa.ReservationID{}, err
	}
	return drmaa.NewReservationID(rowID), nil
}

// DeleteReservation removes a reservation.
func (s *Store) DeleteReservation(ctx context.Context, id drmaa.ReservationID) error {
	const op = "sqlite.(Store).DeleteReservation"
	return s.exclusive(ctx, op, func(tx *sqlx.Tx) error {
		_, err := s.run(ctx, tx, op, "DELETE FROM reservations WHERE id = ?", []any{id.RowID()}, nil)
		return err
	})
}

// GetReservation returns the reservation, or nil if there is none.
func (s *Store) GetReservation(ctx context.Context, id drmaa.ReservationID) (*drmaa.Reservation, error) {
	const op = "sqlite.(Store).GetReservation"
	var r *drmaa.Reservation
	err := s.Execute(ctx, "SELECT "+reservationColumns+" FROM reservations WHERE id = ?", []any{id.RowID()},
		func(columns []string, values []any) error {
			v, err := mapReservation(columns, values)
			if err != nil {
				return err
			}
			r = &v
			return nil
		})
	if err != nil {
		return nil, err
	}
	if r == nil {
		s.log.Info("no such reservation", "op", op, "id", id)
	}
	return r, nil
}

// ListReservations returns every reservation in creation order.
func (s *Store) ListReservations(ctx context.Context) ([]drmaa.Reservation, error) {
	var reservations []drmaa.Reservation
	err := s.Execute(ctx, "SELECT "+reservationColumns+" FROM reservations ORDER BY id", nil,
		func(columns []string, values []any) error {
			r, err := mapReservation(columns, values)
			if err != nil {
				return err
			}
			reservations = append(reservations, r)
			return nil
		})
	return reservations, err
}
