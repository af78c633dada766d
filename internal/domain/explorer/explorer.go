package explorer

import "slices"

// Explorer is the view state of one table: the records, the active filter
// and sort, the derived view and the selection. Every change to records,
// filter or sort recomputes the view and hands it to the selection so the
// all-selected flag stays current.
//
// Explorer is not safe for concurrent use.
type Explorer[T any] struct {
	schema    *Schema[T]
	records   []T
	filter    FilterSpec
	sort      SortSpec
	view      []T
	selection *Selection
}

// New creates an explorer with no records, no filter and the given sort.
func New[T any](schema *Schema[T], initial SortSpec) (*Explorer[T], error) {
	if err := schema.Validate(nil, initial); err != nil {
		return nil, err
	}
	if initial.Direction == "" {
		initial.Direction = Ascending
	}
	return &Explorer[T]{
		schema:    schema,
		filter:    FilterSpec{},
		sort:      initial,
		view:      []T{},
		selection: NewSelection(),
	}, nil
}

// Schema returns the schema the explorer evaluates.
func (e *Explorer[T]) Schema() *Schema[T] {
	return e.schema
}

// SetRecords replaces the record collection. Selected records that are gone
// are deselected.
func (e *Explorer[T]) SetRecords(records []T) {
	e.records = slices.Clone(records)
	// filter and sort are validated before they are stored
	view, _ := e.schema.ComputeView(e.records, e.filter, e.sort)
	e.view = view
	e.selection.Reset(e.schema.IDs(e.records), e.schema.IDs(view))
}

// SetFilter replaces the filter. An invalid filter leaves the state unchanged.
func (e *Explorer[T]) SetFilter(filter FilterSpec) error {
	if err := e.schema.Validate(filter, e.sort); err != nil {
		return err
	}
	e.filter = filter.Clone()
	e.refresh()
	return nil
}

// ClearFilter removes every criterion.
func (e *Explorer[T]) ClearFilter() {
	e.filter = FilterSpec{}
	e.refresh()
}

// SetSort replaces the sort.
func (e *Explorer[T]) SetSort(spec SortSpec) error {
	if err := e.schema.Validate(nil, spec); err != nil {
		return err
	}
	if spec.Direction == "" {
		spec.Direction = Ascending
	}
	e.sort = spec
	e.refresh()
	return nil
}

// SortBy applies the header-click rule: the active field flips direction, a
// new field sorts ascending.
func (e *Explorer[T]) SortBy(field string) error {
	return e.SetSort(e.sort.Toggle(field))
}

// Filter returns a copy of the active filter.
func (e *Explorer[T]) Filter() FilterSpec {
	return e.filter.Clone()
}

// Sort returns the active sort.
func (e *Explorer[T]) Sort() SortSpec {
	return e.sort
}

// Records returns a copy of the record collection.
func (e *Explorer[T]) Records() []T {
	return slices.Clone(e.records)
}

// View returns a copy of the filtered, sorted records.
func (e *Explorer[T]) View() []T {
	return slices.Clone(e.view)
}

// Toggle flips the selection of one record.
func (e *Explorer[T]) Toggle(id string) bool {
	return e.selection.Toggle(id)
}

// ToggleAll applies the view-scoped select-all rule.
func (e *Explorer[T]) ToggleAll() {
	e.selection.ToggleAll()
}

// ClearSelection deselects every record.
func (e *Explorer[T]) ClearSelection() {
	e.selection.Clear()
}

// Selected returns the selected identifiers in selection order.
func (e *Explorer[T]) Selected() []string {
	return e.selection.Selected()
}

// SelectedRecords returns the selected records in record order.
func (e *Explorer[T]) SelectedRecords() []T {
	out := make([]T, 0, e.selection.Len())
	for _, r := range e.records {
		if e.selection.IsSelected(e.schema.ID(r)) {
			out = append(out, r)
		}
	}
	return out
}

// AllSelected reports whether the non-empty view is fully selected.
func (e *Explorer[T]) AllSelected() bool {
	return e.selection.AllSelected()
}

// Subscribe registers fn for selection changes.
func (e *Explorer[T]) Subscribe(fn func(SelectionChange)) func() {
	return e.selection.Subscribe(fn)
}

func (e *Explorer[T]) refresh() {
	// filter and sort are validated before they are stored
	view, err := e.schema.ComputeView(e.records, e.filter, e.sort)
	if err != nil {
		return
	}
	e.view = view
	e.selection.SetView(e.schema.IDs(view))
}
