// Package bus implements the process-wide event bus.
//
// The bus is decoupled from the module tree: any module may dispatch, any
// module may subscribe, and neither needs a shared ancestor.
//
// LIFECYCLE:
//   - Construct: Shared() creates the process bus on first use.
//   - Install: the first driver installation binds the bus to the loop.
//     Dispatching before that is a programming error; the event is logged
//     and dropped, never queued.
//   - Teardown: Close, at process exit only. Unmounting a module never
//     closes the bus.
//
// Events are delivered to the subscribers present at delivery time, in
// dispatch order. There is no replay.
package bus

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/ilkecan/manyverse/internal/stream"
)

// ErrNotPrepared is returned by Dispatch before the bus is installed.
var ErrNotPrepared = errors.New("event bus was not prepared but dispatch was called")

// ErrClosed is returned by Dispatch after Close.
var ErrClosed = errors.New("event bus is closed")

// Bus is a publish/subscribe channel.
//
// Thread-safety: Dispatch, Install, Close and Prepared are safe from any
// goroutine. Stream and Connect must be used on the loop goroutine.
type Bus struct {
	mu     sync.Mutex
	loop   stream.Poster
	closed bool

	events *stream.Subject[Event]
}

// New creates an uninstalled bus. Most code uses Shared instead; New exists
// for tests and for embedding several independent apps in one process.
func New() *Bus {
	return &Bus{events: stream.NewSubject[Event]()}
}

var (
	sharedOnce sync.Once
	shared     *Bus
)

// Shared returns the process-wide bus, creating it on first use.
func Shared() *Bus {
	sharedOnce.Do(func() {
		shared = New()
	})
	return shared
}

// Install binds the bus to loop. Installing again rebinds it, which is what
// a restarted app does after its loop is replaced.
func (b *Bus) Install(loop stream.Poster) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.loop = loop
	b.closed = false
	slog.Debug("event bus installed")
}

// Prepared reports whether Install was called.
func (b *Bus) Prepared() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loop != nil && !b.closed
}

// Dispatch publishes ev to every subscriber. Delivery happens on the loop.
func (b *Bus) Dispatch(ev Event) error {
	b.mu.Lock()
	loop, closed := b.loop, b.closed
	b.mu.Unlock()

	if closed {
		slog.Error("event bus dispatch after close", "event", ev.Type())
		return ErrClosed
	}
	if loop == nil {
		slog.Error("event bus dispatch dropped", "event", ev.Type(), "error", ErrNotPrepared)
		return ErrNotPrepared
	}

	if !loop.Post(func() { b.events.Next(ev) }) {
		slog.Error("event bus dispatch dropped: loop stopped", "event", ev.Type())
		return ErrClosed
	}
	return nil
}

// Stream returns the bus source stream.
func (b *Bus) Stream() *stream.Stream[Event] {
	return b.events.Stream
}

// Connect publishes every event of sink on the bus. It runs on the loop
// goroutine, so events from sinks are delivered synchronously in emission
// order. Unsubscribing detaches sink but leaves the bus running.
func (b *Bus) Connect(sink *stream.Stream[Event]) *stream.Subscription {
	return stream.OrNever(sink).Subscribe(stream.Listener[Event]{
		Next: func(ev Event) {
			if !b.Prepared() {
				slog.Error("event bus dispatch dropped", "event", ev.Type(), "error", ErrNotPrepared)
				return
			}
			b.events.Next(ev)
		},
		Error: func(err error) {
			slog.Error("event bus sink failed", "error", err)
		},
	})
}

// Close tears the bus down. Subscribers see the stream complete.
func (b *Bus) Close() {
	b.mu.Lock()
	loop := b.loop
	already := b.closed
	b.closed = true
	b.mu.Unlock()

	if already || loop == nil {
		return
	}
	loop.Post(b.events.Complete)
}
