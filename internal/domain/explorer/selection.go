package explorer

import "slices"

// SelectionChange is delivered to subscribers after the selection or the
// derived all-selected flag changes.
type SelectionChange struct {
	Selected    []string
	AllSelected bool
}

// Selection tracks the identifiers an operator has selected.
//
// The selected set is independent of the current view, so filtering never
// drops a selection. Only ToggleAll is view-scoped: it either clears
// everything or replaces the selection with exactly the view. Identifiers of
// records that no longer exist are pruned by Reset.
//
// Selection is not safe for concurrent use.
type Selection struct {
	known       map[string]struct{}
	selected    map[string]struct{}
	order       []string
	view        []string
	allSelected bool

	subscribers map[int]func(SelectionChange)
	nextSub     int
}

// NewSelection returns an empty selection. Until Reset is called every
// identifier is accepted.
func NewSelection() *Selection {
	return &Selection{
		selected:    make(map[string]struct{}),
		subscribers: make(map[int]func(SelectionChange)),
	}
}

// Subscribe registers fn to be called synchronously after every change.
// The returned function removes the subscription.
func (s *Selection) Subscribe(fn func(SelectionChange)) func() {
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn
	return func() { delete(s.subscribers, id) }
}

// Reset declares the identifiers that exist and the visible ones together.
// Subscribers see at most one change, computed against the new view.
func (s *Selection) Reset(ids, view []string) {
	s.setKnown(ids)
	s.mutate(func() bool {
		s.view = slices.Clone(view)
		return s.prune()
	})
}

// SetView declares the identifiers currently visible, in display order.
func (s *Selection) SetView(ids []string) {
	s.view = slices.Clone(ids)
	s.mutate(func() bool { return false })
}

// Toggle flips the membership of a single identifier, whether or not it is in
// the current view. Unknown identifiers are ignored; the return value reports
// whether anything changed.
func (s *Selection) Toggle(id string) bool {
	if !s.exists(id) {
		return false
	}
	s.mutate(func() bool {
		if _, ok := s.selected[id]; ok {
			delete(s.selected, id)
			s.order = slices.DeleteFunc(s.order, func(v string) bool { return v == id })
		} else {
			s.selected[id] = struct{}{}
			s.order = append(s.order, id)
		}
		return true
	})
	return true
}

// ToggleAll clears the selection when the whole view is selected; otherwise
// the selection becomes exactly the view, deselecting anything outside it.
func (s *Selection) ToggleAll() {
	s.mutate(func() bool {
		if s.allSelected {
			return s.replace(nil)
		}
		return s.replace(s.view)
	})
}

// Clear deselects everything.
func (s *Selection) Clear() {
	s.mutate(func() bool { return s.replace(nil) })
}

// Selected returns the selected identifiers in the order they were selected.
func (s *Selection) Selected() []string {
	return slices.Clone(s.order)
}

// IsSelected reports whether id is selected.
func (s *Selection) IsSelected(id string) bool {
	_, ok := s.selected[id]
	return ok
}

// Len returns the number of selected identifiers.
func (s *Selection) Len() int {
	return len(s.order)
}

// AllSelected reports whether the view is non-empty and fully selected.
func (s *Selection) AllSelected() bool {
	return s.allSelected
}

func (s *Selection) setKnown(ids []string) {
	s.known = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		s.known[id] = struct{}{}
	}
}

// prune drops selected identifiers that are not known.
func (s *Selection) prune() bool {
	kept := s.order[:0:0]
	for _, id := range s.order {
		if _, ok := s.known[id]; ok {
			kept = append(kept, id)
		} else {
			delete(s.selected, id)
		}
	}
	pruned := len(kept) != len(s.order)
	s.order = kept
	return pruned
}

func (s *Selection) exists(id string) bool {
	if s.known == nil {
		return true
	}
	_, ok := s.known[id]
	return ok
}

func (s *Selection) replace(ids []string) bool {
	next := make(map[string]struct{}, len(ids))
	order := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, dup := next[id]; dup || !s.exists(id) {
			continue
		}
		next[id] = struct{}{}
		order = append(order, id)
	}

	changed := len(next) != len(s.selected)
	if !changed {
		for id := range next {
			if _, ok := s.selected[id]; !ok {
				changed = true
				break
			}
		}
	}

	s.selected = next
	s.order = order
	return changed
}

// mutate applies change, recomputes the all-selected flag and notifies
// subscribers when either the selection or the flag moved.
func (s *Selection) mutate(change func() bool) {
	wasAll := s.allSelected
	changed := change()
	s.allSelected = s.computeAllSelected()

	if !changed && wasAll == s.allSelected {
		return
	}

	event := SelectionChange{
		Selected:    s.Selected(),
		AllSelected: s.allSelected,
	}
	for _, fn := range s.subscribers {
		fn(event)
	}
}

func (s *Selection) computeAllSelected() bool {
	if len(s.view) == 0 {
		return false
	}
	for _, id := range s.view {
		if _, ok := s.selected[id]; !ok {
			return false
		}
	}
	return true
}
