package sqlite

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/drmaa-store/drmaa"
)

// =============================================================================
// ROW MAPPER - Row values to domain records
// =============================================================================

// Each mapper expects the exact column list of the SELECT it serves. A
// different count is a bug in this package, so it panics.

func expectColumns(entity string, columns []string, want int) {
	if len(columns) != want {
		panic(fmt.Sprintf("sqlite: %s row has %d columns, want %d: %v", entity, len(columns), want, columns))
	}
}

// SELECT name, contact
func mapJobSession(columns []string, values []any) drmaa.JobSession {
	expectColumns("job session", columns, 2)
	return drmaa.JobSession{
		Name:    textValue(values[0]),
		Contact: nullText(values[1]),
	}
}

// SELECT name, contact
func mapReservationSession(columns []string, values []any) drmaa.ReservationSession {
	expectColumns("reservation session", columns, 2)
	return drmaa.ReservationSession{
		Name:    textValue(values[0]),
		Contact: nullText(values[1]),
	}
}

// SELECT id, session_name
func mapJob(columns []string, values []any) drmaa.Job {
	expectColumns("job", columns, 2)
	return drmaa.Job{
		ID:          drmaa.NewJobID(primaryKey(values[0])),
		SessionName: textValue(values[1]),
	}
}

// SELECT id, session_name, template_id, pid, exit_status, terminating_signal,
// submission_time, dispatch_time, finish_time
func mapJobInfo(columns []string, values []any) (drmaa.JobInfo, error) {
	expectColumns("job info", columns, 9)
	ji := drmaa.JobInfo{
		ID:                drmaa.NewJobID(primaryKey(values[0])),
		SessionName:       textValue(values[1]),
		ExitStatus:        drmaa.StatusUnknown,
		TerminatingSignal: nullText(values[5]),
	}
	template, err := intValue(values[2])
	if err != nil {
		return ji, fmt.Errorf("template_id: %w", err)
	}
	ji.TemplateID = drmaa.NewJobTemplateID(template)

	pid, err := nullInt(values[3])
	if err != nil {
		return ji, fmt.Errorf("pid: %w", err)
	}
	if pid != nil {
		v := int(*pid)
		ji.PID = &v
	}
	status, err := nullInt(values[4])
	if err != nil {
		return ji, fmt.Errorf("exit_status: %w", err)
	}
	if status != nil {
		ji.ExitStatus = int(*status)
	}

	submitted, err := nullTimestamp(values[6])
	if err != nil {
		return ji, err
	}
	if submitted != nil {
		ji.SubmissionTime = *submitted
	}
	if ji.DispatchTime, err = nullTimestamp(values[7]); err != nil {
		return ji, err
	}
	if ji.FinishTime, err = nullTimestamp(values[8]); err != nil {
		return ji, err
	}
	return ji, nil
}

// SELECT id, session_name, template_id, reserved_start_time,
// reserved_end_time, users_acl, reserved_slots, reserved_machines
func mapReservation(columns []string, values []any) (drmaa.Reservation, error) {
	expectColumns("reservation", columns, 8)
	r := drmaa.Reservation{
		ID:               drmaa.NewReservationID(primaryKey(values[0])),
		SessionName:      textValue(values[1]),
		UsersACL:         nullText(values[5]),
		ReservedMachines: nullText(values[7]),
	}
	template, err := intValue(values[2])
	if err != nil {
		return r, fmt.Errorf("template_id: %w", err)
	}
	r.TemplateID = drmaa.NewReservationTemplateID(template)
	if r.ReservedSlots, err = nullInt(values[6]); err != nil {
		return r, fmt.Errorf("reserved_slots: %w", err)
	}
	if err := r.ReservedStart.Scan(values[3]); err != nil {
		return r, fmt.Errorf("reserved_start_time: %w", err)
	}
	if err := r.ReservedEnd.Scan(values[4]); err != nil {
		return r, fmt.Errorf("reserved_end_time: %w", err)
	}
	return r, nil
}

// SELECT id, remote_command, args_json
func mapJobTemplate(columns []string, values []any) (drmaa.JobTemplate, error) {
	expectColumns("job template", columns, 3)
	jt := drmaa.JobTemplate{
		ID:            drmaa.NewJobTemplateID(primaryKey(values[0])),
		RemoteCommand: textValue(values[1]),
	}
	args, err := decodeArgs(values[2])
	if err != nil {
		return jt, err
	}
	jt.Args = args
	return jt, nil
}

// SELECT id, candidate_machines
func mapReservationTemplate(columns []string, values []any) drmaa.ReservationTemplate {
	expectColumns("reservation template", columns, 2)
	return drmaa.ReservationTemplate{
		ID:                drmaa.NewReservationTemplateID(primaryKey(values[0])),
		CandidateMachines: nullText(values[1]),
	}
}

// SELECT remote_command, args_json
func mapCommand(columns []string, values []any) (drmaa.Command, error) {
	expectColumns("command", columns, 2)
	cmd := drmaa.Command{RemoteCommand: textValue(values[0])}
	args, err := decodeArgs(values[1])
	if err != nil {
		return cmd, err
	}
	cmd.Args = args
	return cmd, nil
}

// =============================================================================
// VALUE HELPERS
// =============================================================================

func textValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

// nullText keeps NULL distinct from "".
func nullText(v any) *string {
	if v == nil {
		return nil
	}
	s := textValue(v)
	return &s
}

// primaryKey reads an INTEGER PRIMARY KEY column. SQLite stores those as
// integers only, so any other type is a bug in the SELECT.
func primaryKey(v any) int64 {
	n, ok := v.(int64)
	if !ok {
		panic(fmt.Sprintf("sqlite: row id has type %T, want int64", v))
	}
	return n
}

func intValue(v any) (int64, error) {
	p, err := nullInt(v)
	if err != nil || p == nil {
		return 0, err
	}
	return *p, nil
}

// nullInt reads an INTEGER column. Affinity does not keep text out of it;
// non-numeric text fails with drmaa.ErrCorruptValue.
func nullInt(v any) (*int64, error) {
	var n int64
	switch t := v.(type) {
	case nil:
		return nil, nil
	case int64:
		n = t
	case int:
		n = int64(t)
	case float64:
		n = int64(t)
	default:
		d, err := decimal.NewFromString(textValue(t))
		if err != nil {
			return nil, fmt.Errorf("%w: %q", drmaa.ErrCorruptValue, textValue(t))
		}
		n = d.IntPart()
	}
	return &n, nil
}

func nullTimestamp(v any) (*time.Time, error) {
	if v == nil {
		return nil, nil
	}
	t, err := drmaa.ParseTimestamp(textValue(v))
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func encodeArgs(args []string) (any, error) {
	if args == nil {
		return nil, nil
	}
	b, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func decodeArgs(v any) ([]string, error) {
	if v == nil {
		return nil, nil
	}
	var args []string
	if err := json.Unmarshal([]byte(textValue(v)), &args); err != nil {
		return nil, fmt.Errorf("args_json: %w", err)
	}
	return args, nil
}
