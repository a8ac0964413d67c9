package trace

import (
	"context"
	"log/slog"

	"github.com/ilkecan/manyverse/internal/effect"
	"github.com/ilkecan/manyverse/internal/engine"
	"github.com/ilkecan/manyverse/internal/state"
)

// Appender persists entries.
type Appender interface {
	Append(ctx context.Context, e Entry) error
}

// Recorder turns effect emissions and state applications into entries.
//
// Thread-safety: NOT safe for concurrent use; record from the loop
// goroutine only.
type Recorder struct {
	session  string
	clock    *engine.Clock
	ctx      context.Context
	appender Appender
	entries  []Entry
	dropped  int
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithClock continues seq numbering from c, for appending to an existing
// session.
func WithClock(c *engine.Clock) RecorderOption {
	return func(r *Recorder) {
		r.clock = c
	}
}

// WithAppender persists every entry to a as it is recorded.
func WithAppender(ctx context.Context, a Appender) RecorderOption {
	return func(r *Recorder) {
		r.ctx = ctx
		r.appender = a
	}
}

// NewRecorder creates a recorder for session.
func NewRecorder(session string, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		session: session,
		clock:   engine.NewClock(),
		ctx:     context.Background(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Session returns the session id.
func (r *Recorder) Session() string {
	return r.session
}

// Effect records an emission. Its signature matches cycle.Drivers.Observe.
func (r *Recorder) Effect(em effect.Emission) {
	r.record(KindEffect, em.Scope, em.Bucket, em.Value)
}

// Observe returns a state observer recording every snapshot under ns.
func Observe[S any](r *Recorder, ns string) state.Observer[S] {
	return func(_ int64, next S) {
		r.record(KindState, ns, "", next)
	}
}

// Entries returns the recorded entries in order.
func (r *Recorder) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Dropped returns how many values could not be recorded.
func (r *Recorder) Dropped() int {
	return r.dropped
}

type typed interface {
	Type() string
}

func (r *Recorder) record(kind Kind, ns, bucket string, v any) {
	e, err := NewEntry(r.session, r.clock.Next(), kind, ns, bucket, v)
	if err != nil {
		r.dropped++
		slog.Warn("trace entry dropped", "kind", kind, "scope", ns, "bucket", bucket, "error", err)
		return
	}
	// Bus events carry their type in a method, not a field.
	if t, ok := v.(typed); ok {
		if obj, isObj := e.Payload.(Object); isObj {
			if _, has := obj["type"]; !has {
				obj["type"] = String(t.Type())
				if e.ID, err = EntryID(e); err != nil {
					r.dropped++
					slog.Warn("trace entry dropped", "kind", kind, "scope", ns, "bucket", bucket, "error", err)
					return
				}
			}
		}
	}
	r.entries = append(r.entries, e)

	if r.appender != nil {
		if err := r.appender.Append(r.ctx, e); err != nil {
			slog.Error("trace append failed", "seq", e.Seq, "error", err)
		}
	}
}
