package drmaa

// =============================================================================
// JOB FILTER - Conjunction of typed field predicates
// =============================================================================

// JobField names a filterable job attribute.
type JobField int

const (
	FieldExitStatus JobField = iota + 1
	FieldSessionName
	FieldTemplateID
)

func (f JobField) String() string {
	switch f {
	case FieldExitStatus:
		return "exit_status"
	case FieldSessionName:
		return "session_name"
	case FieldTemplateID:
		return "template_id"
	default:
		return "unknown"
	}
}

// JobPredicate is an exact match of one field against one value.
type JobPredicate struct {
	Field JobField
	Value any
}

// ExitStatusIs matches jobs that completed with status.
// StatusUnknown is the "unset" sentinel and matches every job.
func ExitStatusIs(status int) JobPredicate {
	return JobPredicate{Field: FieldExitStatus, Value: status}
}

// SessionIs matches jobs submitted in the named job session.
func SessionIs(name string) JobPredicate {
	return JobPredicate{Field: FieldSessionName, Value: name}
}

// TemplateIs matches jobs submitted from the template.
func TemplateIs(id JobTemplateID) JobPredicate {
	return JobPredicate{Field: FieldTemplateID, Value: id.RowID()}
}

// JobFilter selects jobs matching all of its predicates.
// The zero value matches every job.
type JobFilter struct {
	Predicates []JobPredicate
}

// NewJobFilter builds a filter from predicates.
func NewJobFilter(preds ...JobPredicate) JobFilter {
	return JobFilter{Predicates: append([]JobPredicate(nil), preds...)}
}

// And returns a copy of f with p added.
func (f JobFilter) And(p JobPredicate) JobFilter {
	return NewJobFilter(append(f.Predicates, p)...)
}

// Active returns the predicates that constrain the result, dropping
// exit-status predicates set to the StatusUnknown sentinel.
func (f JobFilter) Active() []JobPredicate {
	var out []JobPredicate
	for _, p := range f.Predicates {
		if p.Field == FieldExitStatus {
			if v, ok := p.Value.(int); ok && v == StatusUnknown {
				continue
			}
		}
		out = append(out, p)
	}
	return out
}

// IsEmpty reports whether the filter matches every job.
func (f JobFilter) IsEmpty() bool {
	return len(f.Active()) == 0
}
