// Package state implements the reducer application loop: the single owner
// of canonical state.
//
// INVARIANTS:
//   - Reducers are applied one at a time, in arrival order. A reducer that
//     arrives while another is being applied (because a listener reacted to
//     the new snapshot) is queued behind it, never nested.
//   - Snapshots are never mutated in place; each reducer returns a new value.
//   - Late subscribers receive only the latest snapshot.
//   - A panicking reducer is logged and skipped; the previous snapshot stands.
package state

import (
	"fmt"
	"log/slog"

	"github.com/ilkecan/manyverse/internal/lens"
	"github.com/ilkecan/manyverse/internal/stream"
)

// Reducer computes the next state from the previous one. present is false
// on first application, when no state exists yet.
//
// Reducers must tolerate being applied on a newer base than the one they
// were derived from: merge the fields they own instead of replacing the
// whole value.
type Reducer[S any] func(prev S, present bool) S

// Observer is notified after every successful application.
type Observer[S any] func(seq int64, next S)

// Store holds canonical state.
//
// Thread-safety: Store is NOT safe for concurrent use; dispatch and
// subscribe on the loop goroutine.
type Store[S any] struct {
	current  S
	present  bool
	applying bool
	pending  []Reducer[S]
	seq      int64

	out       stream.Sink[S]
	snapshots *stream.Stream[S]
	observers []Observer[S]
}

// Option configures a Store.
type Option[S any] func(*Store[S])

// WithInitial seeds the store with a present initial state.
func WithInitial[S any](initial S) Option[S] {
	return func(s *Store[S]) {
		s.current = initial
		s.present = true
	}
}

// WithObserver registers an observer for applied reducers.
func WithObserver[S any](o Observer[S]) Option[S] {
	return func(s *Store[S]) {
		s.observers = append(s.observers, o)
	}
}

// New creates a Store with absent state unless WithInitial is given.
func New[S any](opts ...Option[S]) *Store[S] {
	s := &Store[S]{}
	s.snapshots = stream.NewMemory[S](storeProducer[S]{s: s})
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type storeProducer[S any] struct {
	s *Store[S]
}

func (p storeProducer[S]) Start(out stream.Sink[S]) {
	p.s.out = out
	if p.s.present {
		out.Next(p.s.current)
	}
}

func (p storeProducer[S]) Stop() {
	p.s.out = nil
}

// Stream returns the snapshot stream. It replays the latest snapshot to
// every new listener and emits each following snapshot once.
func (s *Store[S]) Stream() *stream.Stream[S] {
	return s.snapshots
}

// Snapshot returns the current state.
func (s *Store[S]) Snapshot() (S, bool) {
	return s.current, s.present
}

// Applied returns the number of reducers applied so far.
func (s *Store[S]) Applied() int64 {
	return s.seq
}

// Dispatch applies r after every reducer already queued.
func (s *Store[S]) Dispatch(r Reducer[S]) {
	if r == nil {
		return
	}
	s.pending = append(s.pending, r)
	if s.applying {
		return
	}

	s.applying = true
	defer func() { s.applying = false }()

	for len(s.pending) > 0 {
		next := s.pending[0]
		s.pending[0] = nil
		s.pending = s.pending[1:]
		s.apply(next)
	}
}

// Attach feeds every reducer emitted by reducers into the store.
func (s *Store[S]) Attach(reducers *stream.Stream[Reducer[S]]) *stream.Subscription {
	return stream.OrNever(reducers).Subscribe(stream.Listener[Reducer[S]]{
		Next: s.Dispatch,
		Error: func(err error) {
			slog.Error("reducer stream failed", "error", err)
		},
	})
}

func (s *Store[S]) apply(r Reducer[S]) {
	next, err := run(r, s.current, s.present)
	if err != nil {
		slog.Error("reducer failed; keeping previous state",
			"error", err,
			"applied", s.seq,
		)
		return
	}

	s.current = next
	s.present = true
	s.seq++

	for _, o := range s.observers {
		o(s.seq, next)
	}

	if s.out != nil {
		s.out.Next(next)
	}
}

func run[S any](r Reducer[S], prev S, present bool) (next S, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("reducer panicked: %v", rec)
		}
	}()
	return r(prev, present), nil
}

// Lift turns a reducer over slice S into a reducer over the whole W: the
// slice is read through l, reduced, and written back through l. Fields of W
// outside the slice are whatever l.Set leaves untouched.
func Lift[W, S any](l lens.Lens[W, S], r Reducer[S]) Reducer[W] {
	return func(prev W, present bool) W {
		var (
			slice   S
			sliceOK bool
		)
		if present {
			slice, sliceOK = l.Get(prev)
		}
		return l.Set(prev, r(slice, sliceOK))
	}
}
