package stream

import "log/slog"

// Listener receives notifications from a Stream. Nil callbacks are ignored.
type Listener[T any] struct {
	Next     func(T)
	Error    func(error)
	Complete func()
}

// Sink is the write side a Producer emits into.
type Sink[T any] interface {
	Next(T)
	Error(error)
	Complete()
}

// Producer generates values for a Stream.
//
// Start is called when the first listener attaches, Stop when the last one
// detaches or the stream terminates. A producer may be started again after
// it was stopped.
type Producer[T any] interface {
	Start(out Sink[T])
	Stop()
}

type entry[T any] struct {
	l       Listener[T]
	removed bool
}

// Stream is a lazily started, push-based stream of values.
//
// Streams are hot: values emitted while nobody listens are lost. A
// remembering stream (see Remember) replays its most recent value to late
// listeners, and only that value.
//
// Thread-safety: a Stream is NOT safe for concurrent use. All subscription
// and emission must happen on the loop goroutine (engine.Engine.Run). Use
// FromChan or Poster to bring values in from other goroutines.
type Stream[T any] struct {
	prod     Producer[T]
	entries  []*entry[T]
	running  bool
	remember bool
	has      bool
	last     T
}

// New creates a stream driven by p.
func New[T any](p Producer[T]) *Stream[T] {
	return &Stream[T]{prod: p}
}

// NewMemory creates a remembering stream driven by p.
func NewMemory[T any](p Producer[T]) *Stream[T] {
	return &Stream[T]{prod: p, remember: true}
}

// Subscribe attaches a listener, starting the producer if it is the first.
func (s *Stream[T]) Subscribe(l Listener[T]) *Subscription {
	e := &entry[T]{l: l}
	s.entries = append(s.entries, e)

	if s.running {
		if s.remember && s.has && l.Next != nil {
			l.Next(s.last)
		}
	} else {
		s.running = true
		if s.prod != nil {
			s.prod.Start(streamSink[T]{s: s})
		}
	}

	return &Subscription{cancel: func() { s.remove(e) }}
}

// Latest returns the remembered value, if any.
func (s *Stream[T]) Latest() (T, bool) {
	return s.last, s.has
}

// Listeners returns the number of attached listeners.
func (s *Stream[T]) Listeners() int {
	return len(s.entries)
}

// Running reports whether the producer is started.
func (s *Stream[T]) Running() bool {
	return s.running
}

func (s *Stream[T]) remove(e *entry[T]) {
	if e.removed {
		return
	}
	idx := -1
	for i, cur := range s.entries {
		if cur == e {
			idx = i
			break
		}
	}
	e.removed = true
	if idx < 0 {
		// Stream already torn down.
		return
	}
	s.entries = append(s.entries[:idx:idx], s.entries[idx+1:]...)
	if len(s.entries) == 0 && s.running {
		s.stopNow()
	}
}

func (s *Stream[T]) stopNow() {
	s.running = false
	s.has = false
	var zero T
	s.last = zero
	if s.prod != nil {
		s.prod.Stop()
	}
}

// teardown detaches every listener and returns the ones that were live.
func (s *Stream[T]) teardown() []*entry[T] {
	live := s.entries
	s.entries = nil
	for _, e := range live {
		e.removed = true
	}
	if s.running {
		s.stopNow()
	}
	return live
}

func (s *Stream[T]) next(v T) {
	if !s.running {
		return
	}
	if s.remember {
		s.last = v
		s.has = true
	}
	// Snapshot: listeners may unsubscribe (or subscribe) while we iterate.
	snapshot := make([]*entry[T], len(s.entries))
	copy(snapshot, s.entries)
	for _, e := range snapshot {
		if e.removed || e.l.Next == nil {
			continue
		}
		e.l.Next(v)
	}
}

func (s *Stream[T]) error(err error) {
	if !s.running {
		return
	}
	live := s.teardown()
	handled := false
	for _, e := range live {
		if e.l.Error != nil {
			e.l.Error(err)
			handled = true
		}
	}
	if !handled {
		slog.Error("stream error without handler", "error", err)
	}
}

func (s *Stream[T]) complete() {
	if !s.running {
		return
	}
	live := s.teardown()
	for _, e := range live {
		if e.l.Complete != nil {
			e.l.Complete()
		}
	}
}

type streamSink[T any] struct {
	s *Stream[T]
}

func (k streamSink[T]) Next(v T)        { k.s.next(v) }
func (k streamSink[T]) Error(err error) { k.s.error(err) }
func (k streamSink[T]) Complete()       { k.s.complete() }

// Subscription cancels a listener attachment. Unsubscribe is idempotent.
type Subscription struct {
	cancel func()
	done   bool
}

// Unsubscribe detaches the listener. Detaching the last listener stops the
// stream's producer, which in turn unsubscribes from every upstream stream.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.done {
		return
	}
	s.done = true
	if s.cancel != nil {
		s.cancel()
	}
}

// Group collects subscriptions so a composed module can be torn down at once.
type Group struct {
	subs []*Subscription
}

// Add registers subscriptions with the group.
func (g *Group) Add(subs ...*Subscription) {
	g.subs = append(g.subs, subs...)
}

// Len returns the number of registered subscriptions.
func (g *Group) Len() int {
	return len(g.subs)
}

// Unsubscribe cancels every subscription, most recent first.
func (g *Group) Unsubscribe() {
	for i := len(g.subs) - 1; i >= 0; i-- {
		g.subs[i].Unsubscribe()
	}
	g.subs = nil
}

// forward returns a listener that relays everything into out.
func forward[T any](out Sink[T]) Listener[T] {
	return Listener[T]{
		Next:     out.Next,
		Error:    out.Error,
		Complete: out.Complete,
	}
}
