package sqlite

import (
	"context"

	"github.com/warp/drmaa-store/drmaa"
)

// =============================================================================
// JOB TEMPLATES
// =============================================================================

// SaveJobTemplate stores jt and returns its identifier. jt.ID is ignored.
func (s *Store) SaveJobTemplate(ctx context.Context, jt drmaa.JobTemplate) (drmaa.JobTemplateID, error) {
	args, err := encodeArgs(jt.Args)
	if err != nil {
		return drmaa.JobTemplateID{}, err
	}
	rowID, err := s.ExecuteReturningRowID(ctx,
		"INSERT INTO job_templates (remote_command, args_json) VALUES (?, ?)",
		jt.RemoteCommand, args)
	if err != nil {
		return drmaa.JobTemplateID{}, err
	}
	return drmaa.NewJobTemplateID(rowID), nil
}

// DeleteJobTemplate removes a job template. Jobs referencing it are kept.
func (s *Store) DeleteJobTemplate(ctx context.Context, id drmaa.JobTemplateID) error {
	return s.Execute(ctx, "DELETE FROM job_templates WHERE id = ?", []any{id.RowID()}, nil)
}

// GetJobTemplate returns the job template, or nil if there is none.
func (s *Store) GetJobTemplate(ctx context.Context, id drmaa.JobTemplateID) (*drmaa.JobTemplate, error) {
	const op = "sqlite.(Store).GetJobTemplate"
	var jt *drmaa.JobTemplate
	err := s.Execute(ctx, "SELECT id, remote_command, args_json FROM job_templates WHERE id = ?", []any{id.RowID()},
		func(columns []string, values []any) error {
			v, err := mapJobTemplate(columns, values)
			if err != nil {
				return err
			}
			jt = &v
			return nil
		})
	if err != nil {
		return nil, err
	}
	if jt == nil {
		s.log.Info("no such job template", "op", op, "id", id)
	}
	return jt, nil
}

// ListJobTemplates returns every job template in creation order.
func (s *Store) ListJobTemplates(ctx context.Context) ([]drmaa.JobTemplate, error) {
	var templates []drmaa.JobTemplate
	err := s.Execute(ctx, "SELECT id, remote_command, args_json FROM job_templates ORDER BY id", nil,
		func(columns []string, values []any) error {
			jt, err := mapJobTemplate(columns, values)
			if err != nil {
				return err
			}
			templates = append(templates, jt)
			return nil
		})
	return templates, err
}

// =============================================================================
// RESERVATION TEMPLATES
// =============================================================================

// SaveReservationTemplate stores rt and returns its identifier.
func (s *Store) SaveReservationTemplate(ctx context.Context, rt drmaa.ReservationTemplate) (drmaa.ReservationTemplateID, error) {
	rowID, err := s.ExecuteReturningRowID(ctx,
		"INSERT INTO reservation_templates (candidate_machines) VALUES (?)",
		rt.CandidateMachines)
	if err != nil {
		return drmaa.ReservationTemplateID{}, err
	}
	return drmaa.NewReservationTemplateID(rowID), nil
}

// DeleteReservationTemplate removes a reservation template.
func (s *Store) DeleteReservationTemplate(ctx context.Context, id drmaa.ReservationTemplateID) error {
	return s.Execute(ctx, "DELETE FROM reservation_templates WHERE id = ?", []any{id.RowID()}, nil)
}

// GetReservationTemplate returns the reservation template, or nil.
func (s *Store) GetReservationTemplate(ctx context.Context, id drmaa.ReservationTemplateID) (*drmaa.ReservationTemplate, error) {
	const op = "sqlite.(Store).GetReservationTemplate"
	var rt *drmaa.ReservationTemplate
	err := s.Execute(ctx, "SELECT id, candidate_machines FROM reservation_templates WHERE id = ?", []any{id.RowID()},
		func(columns []string, values []any) error {
			v := mapReservationTemplate(columns, values)
			rt = &v
			return nil
		})
	if err != nil {
		return nil, err
	}
	if rt == nil {
		s.log.Info("no such reservation template", "op", op, "id", id)
	}
	return rt, nil
}

// ListReservationTemplates returns every reservation template in creation
// order.
func (s *Store) ListReservationTemplates(ctx context.Context) ([]drmaa.ReservationTemplate, error) {
	var templates []drmaa.ReservationTemplate
	err := s.Execute(ctx, "SELECT id, candidate_machines FROM reservation_templates ORDER BY id", nil,
		func(columns []string, values []any) error {
			templates = append(templates, mapReservationTemplate(columns, values))
			return nil
		})
	return templates, err
}
