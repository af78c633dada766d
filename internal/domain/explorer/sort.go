package explorer

import (
	"cmp"
	"fmt"
	"strings"
	"time"
)

// Direction is a sort direction.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// ParseDirection parses "asc" or "desc". The empty string is ascending.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(s) {
	case "", string(Ascending):
		return Ascending, nil
	case string(Descending):
		return Descending, nil
	}
	return "", fmt.Errorf("invalid sort direction: %q", s)
}

// SortSpec selects the field a view is ordered by. An empty Field keeps the
// input order.
type SortSpec struct {
	Field     string
	Direction Direction
}

// Toggle returns the spec after the operator clicks field: the active field
// flips direction, any other field becomes the active one, ascending.
func (s SortSpec) Toggle(field string) SortSpec {
	if field == s.Field {
		if s.Direction == Descending {
			return SortSpec{Field: field, Direction: Ascending}
		}
		return SortSpec{Field: field, Direction: Descending}
	}
	return SortSpec{Field: field, Direction: Ascending}
}

// Comparator orders two records, returning a negative number when a sorts
// before b, zero when they tie and a positive number otherwise.
type Comparator[T any] func(a, b T) int

// Reverse returns the comparator for the opposite direction. Ties stay ties,
// so a stable sort keeps tied records in input order either way.
func (c Comparator[T]) Reverse() Comparator[T] {
	return func(a, b T) int { return c(b, a) }
}

// Ordered orders records by the natural order of a key.
func Ordered[T any, K cmp.Ordered](key func(T) K) Comparator[T] {
	return func(a, b T) int {
		return cmp.Compare(key(a), key(b))
	}
}

// Cardinality orders records by the size of a collection-valued field rather
// than by its contents.
func Cardinality[T any, E any](items func(T) []E) Comparator[T] {
	return func(a, b T) int {
		return cmp.Compare(len(items(a)), len(items(b)))
	}
}

// OptionalTime orders records by an optional timestamp. A missing value sorts
// as the earliest possible instant.
func OptionalTime[T any](key func(T) (time.Time, bool)) Comparator[T] {
	return func(a, b T) int {
		ta, okA := key(a)
		tb, okB := key(b)
		switch {
		case !okA && !okB:
			return 0
		case !okA:
			return -1
		case !okB:
			return 1
		}
		return ta.Compare(tb)
	}
}
