package explorer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	id     string
	name   string
	kind   string
	score  int
	tags   []string
	seenAt *time.Time
}

var t0 = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

func at(d time.Duration) *time.Time {
	t := t0.Add(d)
	return &t
}

var rowSchema = NewSchema(func(r row) string { return r.id }).
	Text("search", func(r row) string { return r.id }, func(r row) string { return r.name }).
	Enum("kind", func(r row) string { return r.kind }).
	Members("tag", func(r row) []string { return r.tags }).
	Time("seen", func(r row) (time.Time, bool) {
		if r.seenAt == nil {
			return time.Time{}, false
		}
		return *r.seenAt, true
	}).
	Sort("name", Ordered(func(r row) string { return r.name })).
	Sort("kind", Ordered(func(r row) string { return r.kind })).
	Sort("score", Ordered(func(r row) int { return r.score })).
	Sort("tags", Cardinality(func(r row) []string { return r.tags })).
	Sort("seen", OptionalTime(func(r row) (time.Time, bool) {
		if r.seenAt == nil {
			return time.Time{}, false
		}
		return *r.seenAt, true
	}))

func rows() []row {
	return []row{
		{id: "a", name: "Wireless Mouse", kind: "tool", score: 2, tags: []string{"x", "y"}, seenAt: at(time.Hour)},
		{id: "b", name: "USB Cable", kind: "part", score: 1, tags: []string{"x"}},
		{id: "c", name: "Mouse Pad", kind: "tool", score: 2, tags: nil, seenAt: at(2 * time.Hour)},
		{id: "d", name: "Keyboard", kind: "part", score: 3, tags: []string{"y"}, seenAt: at(0)},
	}
}

func ids(records []row) []string {
	return rowSchema.IDs(records)
}

func TestComputeView_Filters(t *testing.T) {
	tests := []struct {
		name   string
		filter FilterSpec
		want   []string
	}{
		{"no filter", nil, []string{"a", "b", "c", "d"}},
		{"text is case-insensitive", FilterSpec{"search": Contains("MOUSE")}, []string{"a", "c"}},
		{"text matches any accessor", FilterSpec{"search": Contains("d")}, []string{"c", "d"}},
		{"blank text is inactive", FilterSpec{"search": Contains("  ")}, []string{"a", "b", "c", "d"}},
		{"enum equality", FilterSpec{"kind": Equals("part")}, []string{"b", "d"}},
		{"all is inactive", FilterSpec{"kind": Equals(AllValue)}, []string{"a", "b", "c", "d"}},
		{"membership", FilterSpec{"tag": Equals("y")}, []string{"a", "d"}},
		{"conjunction", FilterSpec{"kind": Equals("tool"), "tag": Equals("x")}, []string{"a"}},
		{"no match", FilterSpec{"kind": Equals("food")}, []string{}},
		{"time range inclusive", FilterSpec{"seen": TimeRange{From: at(0), To: at(time.Hour)}}, []string{"a", "d"}},
		{"open-ended range", FilterSpec{"seen": TimeRange{From: at(time.Hour)}}, []string{"a", "c"}},
		{"empty range is inactive", FilterSpec{"seen": TimeRange{}}, []string{"a", "b", "c", "d"}},
		{"nil criterion is ignored", FilterSpec{"kind": nil}, []string{"a", "b", "c", "d"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view, err := rowSchema.ComputeView(rows(), tt.filter, SortSpec{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(view))
		})
	}
}

func TestComputeView_EmptyInput(t *testing.T) {
	view, err := rowSchema.ComputeView(nil, FilterSpec{"kind": Equals("tool")}, SortSpec{Field: "name"})

	require.NoError(t, err)
	assert.NotNil(t, view)
	assert.Empty(t, view)
}

func TestComputeView_InvalidSpecs(t *testing.T) {
	_, err := rowSchema.ComputeView(rows(), FilterSpec{"color": Equals("red")}, SortSpec{})
	assert.ErrorIs(t, err, ErrUnknownField)

	_, err = rowSchema.ComputeView(rows(), FilterSpec{"kind": Contains("to")}, SortSpec{})
	assert.ErrorIs(t, err, ErrCriterionMismatch)

	_, err = rowSchema.ComputeView(rows(), FilterSpec{"search": TimeRange{From: at(0)}}, SortSpec{})
	assert.ErrorIs(t, err, ErrCriterionMismatch)

	_, err = rowSchema.ComputeView(rows(), nil, SortSpec{Field: "weight"})
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestComputeView_Sorts(t *testing.T) {
	tests := []struct {
		name string
		spec SortSpec
		want []string
	}{
		{"name asc", SortSpec{Field: "name", Direction: Ascending}, []string{"d", "c", "b", "a"}},
		{"name desc", SortSpec{Field: "name", Direction: Descending}, []string{"a", "b", "c", "d"}},
		{"ties keep input order asc", SortSpec{Field: "score", Direction: Ascending}, []string{"b", "a", "c", "d"}},
		{"ties keep input order desc", SortSpec{Field: "score", Direction: Descending}, []string{"d", "a", "c", "b"}},
		{"collection by cardinality", SortSpec{Field: "tags", Direction: Ascending}, []string{"c", "b", "d", "a"}},
		{"missing time sorts earliest", SortSpec{Field: "seen", Direction: Ascending}, []string{"b", "d", "a", "c"}},
		{"missing time sorts last descending", SortSpec{Field: "seen", Direction: Descending}, []string{"c", "a", "d", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view, err := rowSchema.ComputeView(rows(), nil, tt.spec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(view))
		})
	}
}

func TestComputeView_DoesNotModifyInput(t *testing.T) {
	input := rows()

	_, err := rowSchema.ComputeView(input, FilterSpec{"kind": Equals("tool")}, SortSpec{Field: "name", Direction: Descending})

	require.NoError(t, err)
	assert.Equal(t, rows(), input)
}

func TestComputeView_Idempotent(t *testing.T) {
	filter := FilterSpec{"search": Contains("m"), "kind": Equals("tool")}
	spec := SortSpec{Field: "score", Direction: Descending}

	once, err := rowSchema.ComputeView(rows(), filter, spec)
	require.NoError(t, err)
	twice, err := rowSchema.ComputeView(once, filter, spec)
	require.NoError(t, err)

	assert.Equal(t, once, twice)
}

func TestComputeView_StableUnderEvenToggles(t *testing.T) {
	spec := SortSpec{Field: "score", Direction: Ascending}
	first, err := rowSchema.ComputeView(rows(), nil, spec)
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		spec = spec.Toggle("score")
	}
	again, err := rowSchema.ComputeView(rows(), nil, spec)
	require.NoError(t, err)

	assert.Equal(t, Ascending, spec.Direction)
	assert.Equal(t, ids(first), ids(again))
}

func TestSortSpec_Toggle(t *testing.T) {
	spec := SortSpec{Field: "name", Direction: Ascending}

	spec = spec.Toggle("name")
	assert.Equal(t, SortSpec{Field: "name", Direction: Descending}, spec)

	spec = spec.Toggle("name")
	assert.Equal(t, SortSpec{Field: "name", Direction: Ascending}, spec)

	spec = spec.Toggle("name").Toggle("score")
	assert.Equal(t, SortSpec{Field: "score", Direction: Ascending}, spec)
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection("")
	require.NoError(t, err)
	assert.Equal(t, Ascending, d)

	d, err = ParseDirection("DESC")
	require.NoError(t, err)
	assert.Equal(t, Descending, d)

	_, err = ParseDirection("sideways")
	assert.Error(t, err)
}

func TestSchema_SortFields(t *testing.T) {
	assert.Equal(t, []string{"kind", "name", "score", "seen", "tags"}, rowSchema.SortFields())
}

func newRowExplorer(t *testing.T) *Explorer[row] {
	t.Helper()
	e, err := New(rowSchema, SortSpec{Field: "name"})
	require.NoError(t, err)
	e.SetRecords(rows())
	return e
}

func TestNew_InvalidSort(t *testing.T) {
	_, err := New(rowSchema, SortSpec{Field: "weight"})
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestExplorer_RecomputesView(t *testing.T) {
	e := newRowExplorer(t)
	assert.Equal(t, Ascending, e.Sort().Direction)
	assert.Equal(t, []string{"d", "c", "b", "a"}, ids(e.View()))

	require.NoError(t, e.SetFilter(FilterSpec{"kind": Equals("tool")}))
	assert.Equal(t, []string{"c", "a"}, ids(e.View()))

	require.NoError(t, e.SortBy("name"))
	assert.Equal(t, []string{"a", "c"}, ids(e.View()))

	e.SetRecords(append(rows(), row{id: "e", name: "Zebra Mat", kind: "tool"}))
	assert.Equal(t, []string{"e", "a", "c"}, ids(e.View()))

	e.ClearFilter()
	assert.Len(t, e.View(), 5)
}

func TestExplorer_InvalidFilterKeepsState(t *testing.T) {
	e := newRowExplorer(t)
	require.NoError(t, e.SetFilter(FilterSpec{"kind": Equals("part")}))

	err := e.SetFilter(FilterSpec{"color": Equals("red")})

	assert.ErrorIs(t, err, ErrUnknownField)
	assert.Equal(t, FilterSpec{"kind": Equals("part")}, e.Filter())
	assert.Equal(t, []string{"d", "b"}, ids(e.View()))
}

func TestExplorer_ToggleAllTwoRecords(t *testing.T) {
	e, err := New(rowSchema, SortSpec{})
	require.NoError(t, err)
	e.SetRecords(rows()[:2])

	require.True(t, e.Toggle("a"))
	assert.False(t, e.AllSelected())

	e.ToggleAll()
	assert.ElementsMatch(t, []string{"a", "b"}, e.Selected())
	assert.True(t, e.AllSelected())

	e.ToggleAll()
	assert.Empty(t, e.Selected())
	assert.False(t, e.AllSelected())
}

func TestExplorer_ToggleAllTwiceRestoresSelection(t *testing.T) {
	e := newRowExplorer(t)
	e.ToggleAll()
	before := e.Selected()

	e.ToggleAll()
	e.ToggleAll()

	assert.Equal(t, before, e.Selected())
}

func TestExplorer_ToggleAllIsViewScoped(t *testing.T) {
	e := newRowExplorer(t)
	e.Toggle("a")
	e.Toggle("b")

	require.NoError(t, e.SetFilter(FilterSpec{"kind": Equals("part")}))
	e.ToggleAll()

	// a was outside the view and is dropped
	assert.ElementsMatch(t, []string{"b", "d"}, e.Selected())
	assert.True(t, e.AllSelected())
}

func TestExplorer_SelectionSurvivesFiltering(t *testing.T) {
	e := newRowExplorer(t)
	e.Toggle("a")

	require.NoError(t, e.SetFilter(FilterSpec{"kind": Equals("part")}))
	assert.Equal(t, []string{"a"}, e.Selected())

	// toggling outside the view is allowed
	require.True(t, e.Toggle("c"))
	assert.Equal(t, []string{"a", "c"}, e.Selected())
	assert.Equal(t, []row{rows()[0], rows()[2]}, e.SelectedRecords())
}

func TestExplorer_NarrowingFilterSelectsAll(t *testing.T) {
	e := newRowExplorer(t)
	var changes []SelectionChange
	e.Subscribe(func(c SelectionChange) { changes = append(changes, c) })

	e.Toggle("b")
	e.Toggle("d")
	assert.False(t, e.AllSelected())
	require.Len(t, changes, 2)

	require.NoError(t, e.SetFilter(FilterSpec{"kind": Equals("part")}))

	assert.True(t, e.AllSelected())
	require.Len(t, changes, 3)
	assert.True(t, changes[2].AllSelected)
	assert.Equal(t, []string{"b", "d"}, changes[2].Selected)

	e.ClearFilter()
	assert.False(t, e.AllSelected())
	assert.Len(t, changes, 4)
}

func TestExplorer_EmptyViewIsNeverAllSelected(t *testing.T) {
	e := newRowExplorer(t)
	e.ToggleAll()
	require.True(t, e.AllSelected())

	require.NoError(t, e.SetFilter(FilterSpec{"kind": Equals("food")}))

	assert.False(t, e.AllSelected())
	assert.Len(t, e.Selected(), 4)
}

func TestExplorer_SetRecordsPrunesSelection(t *testing.T) {
	e := newRowExplorer(t)
	e.Toggle("a")
	e.Toggle("b")

	e.SetRecords(rows()[1:])

	assert.Equal(t, []string{"b"}, e.Selected())
}

func TestExplorer_SetRecordsNotifiesOnceWithNewView(t *testing.T) {
	e := newRowExplorer(t)
	e.ToggleAll()
	require.True(t, e.AllSelected())

	var changes []SelectionChange
	e.Subscribe(func(c SelectionChange) { changes = append(changes, c) })

	e.SetRecords(rows()[1:])

	require.Len(t, changes, 1)
	assert.True(t, changes[0].AllSelected, "the pruned selection still covers the new view")
	assert.ElementsMatch(t, []string{"b", "c", "d"}, changes[0].Selected)
	assert.True(t, e.AllSelected())
}

func TestExplorer_SetRecordsWithoutChangeIsSilent(t *testing.T) {
	e := newRowExplorer(t)
	e.Toggle("a")

	calls := 0
	e.Subscribe(func(SelectionChange) { calls++ })

	e.SetRecords(rows())

	assert.Equal(t, 0, calls)
	assert.Equal(t, []string{"a"}, e.Selected())
}

func TestSelection_UnknownIDIsNoop(t *testing.T) {
	e := newRowExplorer(t)
	calls := 0
	e.Subscribe(func(SelectionChange) { calls++ })

	assert.False(t, e.Toggle("zzz"))
	assert.Empty(t, e.Selected())
	assert.Equal(t, 0, calls)
}

func TestSelection_Unsubscribe(t *testing.T) {
	s := NewSelection()
	calls := 0
	unsubscribe := s.Subscribe(func(SelectionChange) { calls++ })

	s.Toggle("a")
	unsubscribe()
	s.Toggle("b")

	assert.Equal(t, 1, calls)
	assert.Equal(t, []string{"a", "b"}, s.Selected())
}

func TestSelection_Clear(t *testing.T) {
	s := NewSelection()
	s.SetView([]string{"a"})
	s.Toggle("a")
	require.True(t, s.AllSelected())

	s.Clear()

	assert.Equal(t, 0, s.Len())
	assert.False(t, s.IsSelected("a"))
	assert.False(t, s.AllSelected())
}
