// Package explorer implements the filter, sort and multi-select engine behind
// the product catalog and sync log views.
//
// A Schema describes which fields of a record type can be filtered and sorted.
// ComputeView derives the visible, ordered subset of a record collection from
// a FilterSpec and a SortSpec without touching the input. Selection tracks
// the operator's multi-select state, and Explorer bundles all of it into the
// per-view state a dashboard keeps.
package explorer

import (
	"errors"
	"strings"
	"time"
)

// AllValue is the enum filter value that matches every record.
const AllValue = "all"

var (
	// ErrUnknownField is returned when a filter or sort names a field the
	// schema does not declare.
	ErrUnknownField = errors.New("unknown field")

	// ErrCriterionMismatch is returned when a criterion cannot be applied to
	// the kind of field it targets (e.g. a date range on a text field).
	ErrCriterionMismatch = errors.New("criterion does not apply to field")
)

// Criterion is a predicate accepted by one field of a FilterSpec.
type Criterion interface {
	// Active reports whether the criterion restricts anything. Inactive
	// criteria match every record.
	Active() bool
}

// Contains is a case-insensitive substring match for text fields.
type Contains string

// Active implements Criterion.
func (c Contains) Active() bool { return strings.TrimSpace(string(c)) != "" }

// Equals is an exact match for enum and membership fields. The empty string
// and AllValue are inactive.
type Equals string

// Active implements Criterion.
func (e Equals) Active() bool { return e != "" && e != AllValue }

// TimeRange is an inclusive range for time fields. A nil bound is open.
type TimeRange struct {
	From *time.Time
	To   *time.Time
}

// Active implements Criterion.
func (r TimeRange) Active() bool { return r.From != nil || r.To != nil }

// FilterSpec maps field names to the criterion applied to that field.
// Criteria are combined with AND.
type FilterSpec map[string]Criterion

// Clone returns a shallow copy of the spec.
func (f FilterSpec) Clone() FilterSpec {
	out := make(FilterSpec, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

func (c Contains) match(values []string) bool {
	needle := strings.ToLower(strings.TrimSpace(string(c)))
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), needle) {
			return true
		}
	}
	return false
}

func (r TimeRange) match(t time.Time, ok bool) bool {
	if !ok {
		return false
	}
	if r.From != nil && t.Before(*r.From) {
		return false
	}
	if r.To != nil && t.After(*r.To) {
		return false
	}
	return true
}
