package explorer

import (
	"fmt"
	"slices"
	"sort"
	"time"
)

type fieldKind int

const (
	kindText fieldKind = iota + 1
	kindEnum
	kindMembers
	kindTime
)

func (k fieldKind) String() string {
	switch k {
	case kindText:
		return "text"
	case kindEnum:
		return "enum"
	case kindMembers:
		return "membership"
	case kindTime:
		return "time"
	}
	return "unknown"
}

type field[T any] struct {
	kind    fieldKind
	text    []func(T) string
	enum    func(T) string
	members func(T) []string
	time    func(T) (time.Time, bool)
}

// Schema declares the filterable and sortable fields of a record type.
// Build it once with the chained declaration methods and share it; a Schema
// is read-only after construction.
type Schema[T any] struct {
	id     func(T) string
	fields map[string]field[T]
	sorts  map[string]Comparator[T]
}

// NewSchema creates a schema whose records are identified by id.
func NewSchema[T any](id func(T) string) *Schema[T] {
	return &Schema[T]{
		id:     id,
		fields: make(map[string]field[T]),
		sorts:  make(map[string]Comparator[T]),
	}
}

// Text declares a text field. With several accessors the field matches when
// any of them contains the search term (e.g. a search box over SKU and name).
func (s *Schema[T]) Text(name string, accessors ...func(T) string) *Schema[T] {
	s.fields[name] = field[T]{kind: kindText, text: accessors}
	return s
}

// Enum declares a field matched by exact equality.
func (s *Schema[T]) Enum(name string, accessor func(T) string) *Schema[T] {
	s.fields[name] = field[T]{kind: kindEnum, enum: accessor}
	return s
}

// Members declares a collection-valued field. Equals matches records whose
// collection contains the value.
func (s *Schema[T]) Members(name string, accessor func(T) []string) *Schema[T] {
	s.fields[name] = field[T]{kind: kindMembers, members: accessor}
	return s
}

// Time declares an optional timestamp field matched by TimeRange. Records
// without a value never match an active range.
func (s *Schema[T]) Time(name string, accessor func(T) (time.Time, bool)) *Schema[T] {
	s.fields[name] = field[T]{kind: kindTime, time: accessor}
	return s
}

// Sort declares a sortable field ordered by cmp.
func (s *Schema[T]) Sort(name string, cmp Comparator[T]) *Schema[T] {
	s.sorts[name] = cmp
	return s
}

// ID returns the identifier of a record.
func (s *Schema[T]) ID(record T) string {
	return s.id(record)
}

// SortFields returns the sortable field names in lexical order.
func (s *Schema[T]) SortFields() []string {
	names := make([]string, 0, len(s.sorts))
	for name := range s.sorts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks that every filter criterion and the sort field exist in the
// schema and fit their field kinds.
func (s *Schema[T]) Validate(filter FilterSpec, spec SortSpec) error {
	for name, c := range filter {
		f, ok := s.fields[name]
		if !ok {
			return fmt.Errorf("filter %q: %w", name, ErrUnknownField)
		}
		if c == nil {
			continue
		}
		if !fits(f.kind, c) {
			return fmt.Errorf("filter %q (%s field, %T): %w", name, f.kind, c, ErrCriterionMismatch)
		}
	}
	if spec.Field != "" {
		if _, ok := s.sorts[spec.Field]; !ok {
			return fmt.Errorf("sort %q: %w", spec.Field, ErrUnknownField)
		}
	}
	return nil
}

func fits(kind fieldKind, c Criterion) bool {
	switch c.(type) {
	case Contains:
		return kind == kindText
	case Equals:
		return kind == kindEnum || kind == kindMembers
	case TimeRange:
		return kind == kindTime
	}
	return false
}

// Match reports whether record satisfies every active criterion of filter.
// The filter must have passed Validate.
func (s *Schema[T]) Match(record T, filter FilterSpec) bool {
	for name, c := range filter {
		if c == nil || !c.Active() {
			continue
		}
		f := s.fields[name]
		if !f.match(record, c) {
			return false
		}
	}
	return true
}

func (f field[T]) match(record T, c Criterion) bool {
	switch crit := c.(type) {
	case Contains:
		values := make([]string, len(f.text))
		for i, get := range f.text {
			values[i] = get(record)
		}
		return crit.match(values)
	case Equals:
		if f.kind == kindEnum {
			return f.enum(record) == string(crit)
		}
		return slices.Contains(f.members(record), string(crit))
	case TimeRange:
		t, ok := f.time(record)
		return crit.match(t, ok)
	}
	return false
}

// ComputeView returns the records matching filter, ordered by spec. The input
// slice is never modified. Empty input or a filter matching nothing yields an
// empty, non-nil slice.
func (s *Schema[T]) ComputeView(records []T, filter FilterSpec, spec SortSpec) ([]T, error) {
	if err := s.Validate(filter, spec); err != nil {
		return nil, err
	}

	view := make([]T, 0, len(records))
	for _, r := range records {
		if s.Match(r, filter) {
			view = append(view, r)
		}
	}

	if spec.Field == "" {
		return view, nil
	}

	cmp := s.sorts[spec.Field]
	if spec.Direction == Descending {
		cmp = cmp.Reverse()
	}
	slices.SortStableFunc(view, cmp)

	return view, nil
}

// IDs returns the identifiers of records in order.
func (s *Schema[T]) IDs(records []T) []string {
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = s.id(r)
	}
	return ids
}
