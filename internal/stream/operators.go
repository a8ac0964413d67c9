package stream

import "reflect"

// subscriber holds one upstream subscription for an operator.
//
// An upstream may emit and terminate while it is being subscribed to, which
// stops the operator before Subscribe returns. keep releases such a
// subscription instead of holding on to it.
type subscriber struct {
	sub     *Subscription
	stopped bool
}

func (u *subscriber) keep(sub *Subscription) {
	if u.stopped {
		sub.Unsubscribe()
		return
	}
	u.sub = sub
}

func (u *subscriber) drop() {
	u.stopped = true
	if u.sub != nil {
		u.sub.Unsubscribe()
		u.sub = nil
	}
}

type mapOp[A, B any] struct {
	subscriber
	in *Stream[A]
	f  func(A) B
}

func (m *mapOp[A, B]) Start(out Sink[B]) {
	m.stopped = false
	m.keep(m.in.Subscribe(Listener[A]{
		Next:     func(a A) { out.Next(m.f(a)) },
		Error:    out.Error,
		Complete: out.Complete,
	}))
}

func (m *mapOp[A, B]) Stop() { m.drop() }

// Map transforms every value of in with f.
func Map[A, B any](in *Stream[A], f func(A) B) *Stream[B] {
	return New[B](&mapOp[A, B]{in: in, f: f})
}

// MapTo replaces every value of in with v.
func MapTo[A, B any](in *Stream[A], v B) *Stream[B] {
	return Map(in, func(A) B { return v })
}

type filterOp[T any] struct {
	subscriber
	in   *Stream[T]
	pass func(T) bool
}

func (f *filterOp[T]) Start(out Sink[T]) {
	f.stopped = false
	f.keep(f.in.Subscribe(Listener[T]{
		Next: func(v T) {
			if f.pass(v) {
				out.Next(v)
			}
		},
		Error:    out.Error,
		Complete: out.Complete,
	}))
}

func (f *filterOp[T]) Stop() { f.drop() }

// Filter passes only values for which keep returns true.
func Filter[T any](in *Stream[T], keep func(T) bool) *Stream[T] {
	return New[T](&filterOp[T]{in: in, pass: keep})
}

// Remember returns a stream that replays the latest value of in to late
// listeners.
func Remember[T any](in *Stream[T]) *Stream[T] {
	return NewMemory[T](&mapOp[T, T]{in: in, f: func(v T) T { return v }})
}

type dropRepeatsOp[T any] struct {
	subscriber
	in     *Stream[T]
	eq     func(a, b T) bool
	seeded bool
	seed   T
	has    bool
	last   T
}

func (d *dropRepeatsOp[T]) Start(out Sink[T]) {
	d.stopped = false
	d.has = d.seeded
	d.last = d.seed
	d.keep(d.in.Subscribe(Listener[T]{
		Next: func(v T) {
			if d.has && d.eq(d.last, v) {
				return
			}
			d.has = true
			d.last = v
			out.Next(v)
		},
		Error:    out.Error,
		Complete: out.Complete,
	}))
}

func (d *dropRepeatsOp[T]) Stop() {
	d.drop()
	d.has = false
	var zero T
	d.last = zero
}

// DropRepeatsFunc suppresses values equal (per eq) to the previous emission.
func DropRepeatsFunc[T any](in *Stream[T], eq func(a, b T) bool) *Stream[T] {
	return New[T](&dropRepeatsOp[T]{in: in, eq: eq})
}

// DropRepeats suppresses consecutive duplicates of comparable values.
func DropRepeats[T comparable](in *Stream[T]) *Stream[T] {
	return DropRepeatsFunc(in, func(a, b T) bool { return a == b })
}

// Changes emits only values that differ from the previous one, treating
// seed as the value seen before the first emission. Fed 0,0,1,1,2 with seed
// 0 it emits 1 and 2.
func Changes[T comparable](in *Stream[T], seed T) *Stream[T] {
	return New[T](&dropRepeatsOp[T]{
		in:     in,
		eq:     func(a, b T) bool { return a == b },
		seeded: true,
		seed:   seed,
	})
}

// DropRepeatsDeep suppresses consecutive values that are reflect.DeepEqual.
// Used for state slices (structs holding maps or slices).
func DropRepeatsDeep[T any](in *Stream[T]) *Stream[T] {
	return DropRepeatsFunc(in, func(a, b T) bool { return reflect.DeepEqual(a, b) })
}

type startWithOp[T any] struct {
	subscriber
	in    *Stream[T]
	first T
}

func (s *startWithOp[T]) Start(out Sink[T]) {
	s.stopped = false
	out.Next(s.first)
	if s.stopped {
		return
	}
	s.keep(s.in.Subscribe(forward(out)))
}

func (s *startWithOp[T]) Stop() { s.drop() }

// StartWith emits v on start, then everything from in.
func StartWith[T any](in *Stream[T], v T) *Stream[T] {
	return New[T](&startWithOp[T]{in: in, first: v})
}

type takeOp[T any] struct {
	subscriber
	in    *Stream[T]
	n     int
	taken int
}

func (t *takeOp[T]) Start(out Sink[T]) {
	t.stopped = false
	t.taken = 0
	if t.n <= 0 {
		out.Complete()
		return
	}
	t.keep(t.in.Subscribe(Listener[T]{
		Next: func(v T) {
			if t.taken >= t.n {
				return
			}
			t.taken++
			out.Next(v)
			if t.taken >= t.n {
				out.Complete()
			}
		},
		Error:    out.Error,
		Complete: out.Complete,
	}))
}

func (t *takeOp[T]) Stop() { t.drop() }

// Take emits the first n values of in, then completes.
func Take[T any](in *Stream[T], n int) *Stream[T] {
	return New[T](&takeOp[T]{in: in, n: n})
}

type ofOp[T any] struct {
	values []T
}

func (o *ofOp[T]) Start(out Sink[T]) {
	for _, v := range o.values {
		out.Next(v)
	}
	out.Complete()
}

func (o *ofOp[T]) Stop() {}

// Of emits the given values on start, then completes.
func Of[T any](values ...T) *Stream[T] {
	return New[T](&ofOp[T]{values: values})
}

// Empty completes immediately.
func Empty[T any]() *Stream[T] {
	return Of[T]()
}

type neverOp[T any] struct{}

func (neverOp[T]) Start(Sink[T]) {}
func (neverOp[T]) Stop()         {}

// Never emits nothing and never completes.
func Never[T any]() *Stream[T] {
	return New[T](neverOp[T]{})
}

// OrNever returns s, or a never-emitting stream when s is nil.
func OrNever[T any](s *Stream[T]) *Stream[T] {
	if s == nil {
		return Never[T]()
	}
	return s
}

type flattenOp[T any] struct {
	subscriber
	outer     *Stream[*Stream[T]]
	inner     *Subscription
	outerDone bool
	innerLive bool
}

func (f *flattenOp[T]) Start(out Sink[T]) {
	f.stopped = false
	f.outerDone = false
	f.innerLive = false
	f.keep(f.outer.Subscribe(Listener[*Stream[T]]{
		Next: func(s *Stream[T]) {
			f.inner.Unsubscribe()
			f.inner = nil
			if s == nil {
				f.innerLive = false
				return
			}
			f.innerLive = true
			var mine *Subscription
			mine = s.Subscribe(Listener[T]{
				Next:  out.Next,
				Error: out.Error,
				Complete: func() {
					if f.inner == mine || f.inner == nil {
						f.innerLive = false
						f.inner = nil
					}
					if f.outerDone {
						out.Complete()
					}
				},
			})
			if f.stopped {
				mine.Unsubscribe()
				return
			}
			if f.innerLive {
				f.inner = mine
			}
		},
		Error: out.Error,
		Complete: func() {
			f.outerDone = true
			if !f.innerLive {
				out.Complete()
			}
		},
	}))
}

func (f *flattenOp[T]) Stop() {
	f.inner.Unsubscribe()
	f.inner = nil
	f.drop()
}

// Flatten follows the most recent inner stream, unsubscribing from the
// previous one whenever the outer stream emits (switch semantics).
func Flatten[T any](outer *Stream[*Stream[T]]) *Stream[T] {
	return New[T](&flattenOp[T]{outer: outer})
}

// Pair is an emission of SampleCombine.
type Pair[A, B any] struct {
	First  A
	Second B
}

type sampleCombineOp[A, B any] struct {
	src      *Stream[A]
	other    *Stream[B]
	srcSub   *Subscription
	otherSub *Subscription
	has      bool
	latest   B
	stopped  bool
}

func (s *sampleCombineOp[A, B]) Start(out Sink[Pair[A, B]]) {
	s.stopped = false
	s.has = false
	s.otherSub = s.other.Subscribe(Listener[B]{
		Next: func(b B) {
			s.latest = b
			s.has = true
		},
		Error: func(err error) { out.Error(err) },
	})
	if s.stopped {
		s.otherSub.Unsubscribe()
		s.otherSub = nil
		return
	}
	srcSub := s.src.Subscribe(Listener[A]{
		Next: func(a A) {
			if s.has {
				out.Next(Pair[A, B]{First: a, Second: s.latest})
			}
		},
		Error:    func(err error) { out.Error(err) },
		Complete: func() { out.Complete() },
	})
	if s.stopped {
		srcSub.Unsubscribe()
		return
	}
	s.srcSub = srcSub
}

func (s *sampleCombineOp[A, B]) Stop() {
	s.stopped = true
	s.srcSub.Unsubscribe()
	s.otherSub.Unsubscribe()
	s.srcSub, s.otherSub = nil, nil
	s.has = false
}

// SampleCombine emits, for each value of src, the value paired with the
// latest value of other. Values of src that arrive before other has emitted
// are dropped.
func SampleCombine[A, B any](src *Stream[A], other *Stream[B]) *Stream[Pair[A, B]] {
	return New[Pair[A, B]](&sampleCombineOp[A, B]{src: src, other: other})
}

type combineOp[T any] struct {
	ins     []*Stream[T]
	subs    []*Subscription
	latest  []T
	has     []bool
	missing int
	left    int
	stopped bool
}

func (c *combineOp[T]) Start(out Sink[[]T]) {
	c.stopped = false
	c.latest = make([]T, len(c.ins))
	c.has = make([]bool, len(c.ins))
	c.missing = len(c.ins)
	c.left = len(c.ins)
	if c.left == 0 {
		out.Complete()
		return
	}
	c.subs = make([]*Subscription, 0, len(c.ins))
	for i, in := range c.ins {
		i := i
		sub := in.Subscribe(Listener[T]{
			Next: func(v T) {
				if !c.has[i] {
					c.has[i] = true
					c.missing--
				}
				c.latest[i] = v
				if c.missing == 0 {
					snapshot := make([]T, len(c.latest))
					copy(snapshot, c.latest)
					out.Next(snapshot)
				}
			},
			Error: out.Error,
			Complete: func() {
				c.left--
				if c.left == 0 {
					out.Complete()
				}
			},
		})
		if c.stopped {
			sub.Unsubscribe()
			return
		}
		c.subs = append(c.subs, sub)
	}
}

func (c *combineOp[T]) Stop() {
	c.stopped = true
	for _, sub := range c.subs {
		sub.Unsubscribe()
	}
	c.subs = nil
}

// Combine emits the latest value of every input, in input order, each time
// any input emits once all of them have emitted at least once. Nil inputs
// never emit, which holds the result back.
func Combine[T any](ins ...*Stream[T]) *Stream[[]T] {
	cp := make([]*Stream[T], len(ins))
	for i, in := range ins {
		cp[i] = OrNever(in)
	}
	return New[[]T](&combineOp[T]{ins: cp})
}

type filterMapOp[A, B any] struct {
	subscriber
	in *Stream[A]
	f  func(A) (B, bool)
}

func (m *filterMapOp[A, B]) Start(out Sink[B]) {
	m.stopped = false
	m.keep(m.in.Subscribe(Listener[A]{
		Next: func(a A) {
			if b, ok := m.f(a); ok {
				out.Next(b)
			}
		},
		Error:    out.Error,
		Complete: out.Complete,
	}))
}

func (m *filterMapOp[A, B]) Stop() { m.drop() }

// FilterMap transforms values with f and drops those f rejects.
func FilterMap[A, B any](in *Stream[A], f func(A) (B, bool)) *Stream[B] {
	return New[B](&filterMapOp[A, B]{in: in, f: f})
}
