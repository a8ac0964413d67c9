// Package ui models the UI-event source and the opaque render output that
// modules exchange with the rendering host.
package ui

import (
	"github.com/ilkecan/manyverse/internal/scope"
	"github.com/ilkecan/manyverse/internal/stream"
)

// Event is a raw UI event addressed by a selector path.
type Event struct {
	Selector string
	Type     string
	Payload  any
}

// Render is a render output. The engine forwards it to the host and never
// inspects it.
type Render any

// Node is a minimal render tree screens use to describe their view.
type Node struct {
	Kind     string
	Sel      string
	Props    map[string]any
	Children []Render
}

// Source selects UI events from the namespace it is scoped to.
type Source struct {
	ns     string
	events *stream.Stream[Event]
}

// NewSource wraps the stream of every raw UI event.
func NewSource(events *stream.Stream[Event]) Source {
	return Source{events: stream.OrNever(events)}
}

// Namespace returns the selector namespace of this source.
func (s Source) Namespace() string {
	return s.ns
}

// Isolate returns the source scoped to child namespace ns. The caller is
// responsible for ns being a child of s's namespace (see scope.Registry).
func (s Source) Isolate(ns string) Source {
	return Source{ns: ns, events: s.events}
}

// Select narrows the source to one selector relative to its namespace.
func (s Source) Select(sel string) Selection {
	return Selection{full: scope.Child(s.ns, sel), events: s.events}
}

// Selection is a selector inside a Source.
type Selection struct {
	full   string
	events *stream.Stream[Event]
}

// Selector returns the absolute selector path.
func (s Selection) Selector() string {
	return s.full
}

// Events returns the events of type typ targeting this selector.
func (s Selection) Events(typ string) *stream.Stream[Event] {
	full := s.full
	return stream.Filter(s.events, func(ev Event) bool {
		return ev.Selector == full && ev.Type == typ
	})
}

// Host is the rendering side of the UI boundary: it receives platform
// events from any goroutine and keeps the latest render output.
type Host struct {
	loop   stream.Poster
	events *stream.Subject[Event]
	latest Render
	frames int
	onShow func(Render)
}

// NewHost creates a host whose events are delivered on loop.
func NewHost(loop stream.Poster) *Host {
	return &Host{loop: loop, events: stream.NewSubject[Event]()}
}

// Source returns the root UI source.
func (h *Host) Source() Source {
	return NewSource(h.events.Stream)
}

// Dispatch delivers a platform event. Safe from any goroutine.
func (h *Host) Dispatch(ev Event) bool {
	return h.loop.Post(func() { h.events.Next(ev) })
}

// Show records a render output. Called on the loop goroutine.
func (h *Host) Show(r Render) {
	h.latest = r
	h.frames++
	if h.onShow != nil {
		h.onShow(r)
	}
}

// OnShow sets a hook run on the loop goroutine for every render output,
// e.g. to forward renders to remote clients.
func (h *Host) OnShow(fn func(Render)) {
	h.onShow = fn
}

// Latest returns the most recent render output and how many were shown.
func (h *Host) Latest() (Render, int) {
	return h.latest, h.frames
}
