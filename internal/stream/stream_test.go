package stream

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collect subscribes to s and records everything it emits.
type collector[T any] struct {
	values    []T
	errs      []error
	completed bool
	sub       *Subscription
}

func collect[T any](s *Stream[T]) *collector[T] {
	c := &collector[T]{}
	c.sub = s.Subscribe(Listener[T]{
		Next:     func(v T) { c.values = append(c.values, v) },
		Error:    func(err error) { c.errs = append(c.errs, err) },
		Complete: func() { c.completed = true },
	})
	return c
}

func TestSubject_DropsWithoutListeners(t *testing.T) {
	s := NewSubject[int]()
	s.Next(1)

	c := collect(s.Stream)
	s.Next(2)

	assert.Equal(t, []int{2}, c.values)
}

func TestMemorySubject_ReplaysLatestOnly(t *testing.T) {
	s := NewMemorySubject[int]()
	first := collect(s.Stream)

	s.Next(1)
	s.Next(2)

	late := collect(s.Stream)
	s.Next(3)

	assert.Equal(t, []int{1, 2, 3}, first.values)
	assert.Equal(t, []int{2, 3}, late.values, "late listener gets the latest value, not history")
}

func TestMerge_InterleavedOrder(t *testing.T) {
	a := NewSubject[int]()
	b := NewSubject[int]()
	c := collect(Merge(a.Stream, b.Stream))

	a.Next(1)
	b.Next(10)
	a.Next(2)
	b.Next(20)

	assert.Equal(t, []int{1, 10, 2, 20}, c.values)
}

func TestMerge_SimultaneousOrderedByInputPosition(t *testing.T) {
	src := NewSubject[int]()

	// Both inputs derive from the same source, so every emission reaches
	// them in the same propagation. The later input was created first to
	// show that creation time does not matter.
	second := Map(src.Stream, func(v int) int { return v * 100 })
	first := Map(src.Stream, func(v int) int { return v })

	c := collect(Merge(first, second))
	src.Next(1)
	src.Next(2)

	assert.Equal(t, []int{1, 100, 2, 200}, c.values)
}

func TestMerge_CompletesWhenAllInputsComplete(t *testing.T) {
	a := NewSubject[int]()
	b := NewSubject[int]()
	c := collect(Merge(a.Stream, b.Stream))

	a.Complete()
	assert.False(t, c.completed)

	b.Next(5)
	b.Complete()
	assert.True(t, c.completed)
	assert.Equal(t, []int{5}, c.values)
}

func TestMerge_NilInputNeverCompletes(t *testing.T) {
	c := collect(Merge(Of(1, 2), nil))

	assert.Equal(t, []int{1, 2}, c.values)
	assert.False(t, c.completed)
}

func TestMerge_Empty(t *testing.T) {
	c := collect(Merge[int]())
	assert.True(t, c.completed)
}

func TestUnsubscribe_CascadesUpstream(t *testing.T) {
	a := NewSubject[int]()
	b := NewSubject[int]()
	merged := Merge(Map(a.Stream, func(v int) int { return v + 1 }), Filter(b.Stream, func(int) bool { return true }))

	c := collect(merged)
	require.True(t, a.Active())
	require.True(t, b.Active())

	c.sub.Unsubscribe()

	assert.False(t, a.Active(), "map upstream must be released")
	assert.False(t, b.Active(), "filter upstream must be released")
	assert.False(t, merged.Running())
}

func TestUnsubscribe_Idempotent(t *testing.T) {
	s := NewSubject[int]()
	c1 := collect(s.Stream)
	c2 := collect(s.Stream)

	c1.sub.Unsubscribe()
	c1.sub.Unsubscribe()

	assert.Equal(t, 1, s.Listeners())
	s.Next(1)
	assert.Empty(t, c1.values)
	assert.Equal(t, []int{1}, c2.values)
}

func TestGroup_Unsubscribe(t *testing.T) {
	s := NewSubject[int]()
	var g Group
	g.Add(collect(s.Stream).sub, collect(s.Stream).sub)
	require.Equal(t, 2, g.Len())

	g.Unsubscribe()

	assert.False(t, s.Active())
	assert.Equal(t, 0, g.Len())
}

func TestChanges_SuppressesUnchanged(t *testing.T) {
	s := NewSubject[int]()
	c := collect(Changes(s.Stream, 0))

	for _, v := range []int{0, 0, 1, 1, 2} {
		s.Next(v)
	}

	assert.Equal(t, []int{1, 2}, c.values)
}

func TestDropRepeats(t *testing.T) {
	c := collect(DropRepeats(Of(1, 1, 2, 2, 2, 3, 1)))
	assert.Equal(t, []int{1, 2, 3, 1}, c.values)
	assert.True(t, c.completed)
}

func TestDropRepeatsDeep(t *testing.T) {
	type slice struct{ Items []string }
	c := collect(DropRepeatsDeep(Of(
		slice{Items: []string{"a"}},
		slice{Items: []string{"a"}},
		slice{Items: []string{"a", "b"}},
	)))
	assert.Len(t, c.values, 2)
}

func TestStartWith(t *testing.T) {
	c := collect(StartWith(Of(2, 3), 1))
	assert.Equal(t, []int{1, 2, 3}, c.values)
}

func TestTake(t *testing.T) {
	s := NewSubject[string]()
	c := collect(Take(s.Stream, 2))

	s.Next("a")
	s.Next("b")
	s.Next("c")

	assert.Equal(t, []string{"a", "b"}, c.values)
	assert.True(t, c.completed)
	assert.False(t, s.Active(), "take releases its input once satisfied")
}

func TestTake_Zero(t *testing.T) {
	c := collect(Take(Never[int](), 0))
	assert.True(t, c.completed)
}

func TestOf_Restartable(t *testing.T) {
	s := Of(1, 2)
	first := collect(s)
	second := collect(s)

	assert.Equal(t, []int{1, 2}, first.values)
	assert.Equal(t, []int{1, 2}, second.values)
}

func TestFlatten_SwitchesToLatestInner(t *testing.T) {
	outer := NewSubject[*Stream[int]]()
	x := NewSubject[int]()
	y := NewSubject[int]()
	c := collect(Flatten(outer.Stream))

	outer.Next(x.Stream)
	x.Next(1)
	outer.Next(y.Stream)
	x.Next(2)
	y.Next(3)

	assert.Equal(t, []int{1, 3}, c.values)
	assert.False(t, x.Active(), "previous inner must be released")

	c.sub.Unsubscribe()
	assert.False(t, y.Active())
	assert.False(t, outer.Active())
}

func TestFlatten_CompletesAfterOuterAndInner(t *testing.T) {
	outer := NewSubject[*Stream[int]]()
	inner := NewSubject[int]()
	c := collect(Flatten(outer.Stream))

	outer.Next(inner.Stream)
	outer.Complete()
	assert.False(t, c.completed)

	inner.Complete()
	assert.True(t, c.completed)
}

func TestSampleCombine(t *testing.T) {
	src := NewSubject[string]()
	other := NewMemorySubject[int]()
	c := collect(SampleCombine(src.Stream, other.Stream))

	src.Next("dropped")
	other.Next(1)
	src.Next("a")
	other.Next(2)
	other.Next(3)
	src.Next("b")

	assert.Equal(t, []Pair[string, int]{{"a", 1}, {"b", 3}}, c.values)
}

func TestError_TerminatesAndNotifies(t *testing.T) {
	s := NewSubject[int]()
	c := collect(Map(s.Stream, func(v int) int { return v }))

	boom := errors.New("boom")
	s.Error(boom)
	s.Next(1)

	require.Len(t, c.errs, 1)
	assert.ErrorIs(t, c.errs[0], boom)
	assert.Empty(t, c.values)
	assert.False(t, s.Active())
}

func TestRemember_ReplaysToLateListener(t *testing.T) {
	s := NewSubject[int]()
	r := Remember(s.Stream)
	first := collect(r)

	s.Next(7)
	late := collect(r)

	assert.Equal(t, []int{7}, first.values)
	assert.Equal(t, []int{7}, late.values)
	v, ok := r.Latest()
	assert.True(t, ok)
	assert.Equal(t, 7, v)
}

func TestListenerMayUnsubscribeDuringEmission(t *testing.T) {
	s := NewSubject[int]()
	var sub *Subscription
	var got []int
	sub = s.Subscribe(Listener[int]{Next: func(v int) {
		got = append(got, v)
		sub.Unsubscribe()
	}})
	other := collect(s.Stream)

	s.Next(1)
	s.Next(2)

	assert.Equal(t, []int{1}, got)
	assert.Equal(t, []int{1, 2}, other.values)
}

func TestCell_KeepsValueWithoutListeners(t *testing.T) {
	c := NewCell[string]()
	c.Set("a")
	c.Set("b")

	first := collect(c.Stream())
	c.Set("c")
	second := collect(c.Stream())

	assert.Equal(t, []string{"b", "c"}, first.values)
	assert.Equal(t, []string{"c"}, second.values)

	first.sub.Unsubscribe()
	second.sub.Unsubscribe()
	again := collect(c.Stream())
	assert.Equal(t, []string{"c"}, again.values)
}

func TestCell_EmptyEmitsNothingUntilSet(t *testing.T) {
	c := NewCell[int]()
	got := collect(c.Stream())
	assert.Empty(t, got.values)

	c.Set(1)
	v, ok := c.Get()
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, []int{1}, got.values)

	assert.Equal(t, []int{4}, collect(NewCellOf(4).Stream()).values)
}

func TestTake_ReleasesUpstreamThatEmitsOnStart(t *testing.T) {
	c := NewCellOf("self")
	got := collect(Take(c.Stream(), 1))

	assert.Equal(t, []string{"self"}, got.values)
	assert.True(t, got.completed)
	assert.False(t, c.Stream().Running(), "upstream must not be leaked")
}

func TestMerge_ErrorWhileSubscribingReleasesLaterInputs(t *testing.T) {
	failing := New[int](&errOnStart{err: errors.New("boom")})
	later := NewSubject[int]()
	got := collect(Merge(failing, later.Stream))

	require.Len(t, got.errs, 1)
	assert.False(t, later.Active())
}

type errOnStart struct {
	err error
}

func (e *errOnStart) Start(out Sink[int]) { out.Error(e.err) }
func (e *errOnStart) Stop()               {}

func TestCombine_WaitsForAllThenTracksLatest(t *testing.T) {
	a := NewSubject[string]()
	b := NewSubject[string]()
	c := collect(Combine(a.Stream, b.Stream))

	a.Next("a1")
	assert.Empty(t, c.values)

	b.Next("b1")
	a.Next("a2")

	assert.Equal(t, [][]string{{"a1", "b1"}, {"a2", "b1"}}, c.values)
}

func TestFilterMap(t *testing.T) {
	c := collect(FilterMap(Of("1", "x", "3"), func(s string) (int, bool) {
		switch s {
		case "1":
			return 1, true
		case "3":
			return 3, true
		}
		return 0, false
	}))
	assert.Equal(t, []int{1, 3}, c.values)
	assert.True(t, c.completed)
}
