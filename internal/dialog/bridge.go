// Package dialog bridges imperative "ask the user" call sites into the
// reactive render loop.
//
// STATE MACHINE:
//
//	Idle --alert/prompt/showPicker--> Showing(kind, request)
//	Showing --positive/negative/select/dismiss--> Idle
//
// Exactly one request may be pending. A request made while Showing is
// rejected with ErrPending; the pending caller keeps its answer.
package dialog

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/ilkecan/manyverse/internal/engine"
	"github.com/ilkecan/manyverse/internal/stream"
)

// ErrPending is returned when a dialog is requested while another one is
// still showing.
var ErrPending = errors.New("dialog: another dialog is pending")

type pending struct {
	req      Request
	deferred *Deferred
}

// Bridge owns the single pending-resolution slot.
//
// Thread-safety: all methods are safe from any goroutine. View updates are
// delivered on the loop goroutine, in transition order.
type Bridge struct {
	mu        sync.Mutex
	pending   *pending
	textInput string

	ids  engine.TokenGenerator
	loop stream.Poster

	// Loop-owned.
	shown View
	out   stream.Sink[View]
	views *stream.Stream[View]
}

type viewProducer struct {
	b *Bridge
}

func (p viewProducer) Start(out stream.Sink[View]) {
	p.b.out = out
	out.Next(p.b.shown)
}

func (p viewProducer) Stop() {
	p.b.out = nil
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithIDs sets the generator for request ids.
func WithIDs(g engine.TokenGenerator) Option {
	return func(b *Bridge) {
		b.ids = g
	}
}

// NewBridge creates an idle bridge publishing its view on loop.
func NewBridge(loop stream.Poster, opts ...Option) *Bridge {
	b := &Bridge{
		ids:  engine.UUIDv7Generator{},
		loop: loop,
	}
	b.views = stream.NewMemory[View](viewProducer{b: b})
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Alert shows a message with optional positive and negative buttons.
func (b *Bridge) Alert(title, content string, opts Options) (*Deferred, error) {
	return b.show(KindAlert, title, content, opts)
}

// Prompt asks for a line of text. Positive resolves with the typed text.
func (b *Bridge) Prompt(title, content string, opts Options) (*Deferred, error) {
	return b.show(KindPrompt, title, content, opts)
}

// ShowPicker asks the user to choose one of opts.Items.
func (b *Bridge) ShowPicker(title, content string, opts Options) (*Deferred, error) {
	return b.show(KindPicker, title, content, opts)
}

func (b *Bridge) show(kind Kind, title, content string, opts Options) (*Deferred, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pending != nil {
		slog.Warn("dialog request rejected",
			"kind", kind,
			"pending", b.pending.req.ID,
			"error", ErrPending,
		)
		return nil, ErrPending
	}

	p := &pending{
		req: Request{
			ID:      b.ids.Generate(),
			Kind:    kind,
			Title:   title,
			Content: content,
			Options: opts,
		},
		deferred: newDeferred(),
	}
	b.pending = p
	b.textInput = ""
	if kind == KindPrompt {
		b.textInput = opts.DefaultValue
	}
	b.publishLocked()

	slog.Debug("dialog showing", "id", p.req.ID, "kind", kind)
	return p.deferred, nil
}

// SetText records the prompt's text field. Ignored unless a prompt is showing.
func (b *Bridge) SetText(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pending == nil || b.pending.req.Kind != KindPrompt {
		return
	}
	b.textInput = text
	b.publishLocked()
}

// Positive presses the positive button. A prompt resolves with its text.
func (b *Bridge) Positive() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	o := Outcome{Action: ActionPositive}
	if b.pending != nil && b.pending.req.Kind == KindPrompt {
		o.Text = b.textInput
	}
	return b.resolveLocked(o)
}

// Negative presses the negative button.
func (b *Bridge) Negative() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.resolveLocked(Outcome{Action: ActionNegative})
}

// Select picks the picker item with id. Only a pending picker can be
// answered this way, and only with one of its items; anything else is
// ignored and the dialog stays pending.
func (b *Bridge) Select(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pending == nil || b.pending.req.Kind != KindPicker {
		slog.Debug("dialog select ignored: no pending picker", "item", id)
		return false
	}
	for _, it := range b.pending.req.Options.Items {
		if it.ID == id {
			item := it
			return b.resolveLocked(Outcome{Action: ActionSelect, Selected: &item})
		}
	}
	slog.Debug("dialog select ignored: unknown item", "id", b.pending.req.ID, "item", id)
	return false
}

// Dismiss closes the dialog without a choice. Callable by the user (tap
// outside) or by code.
func (b *Bridge) Dismiss() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.resolveLocked(Outcome{Action: ActionDismiss})
}

// Current returns the pending request, if any.
func (b *Bridge) Current() (Request, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pending == nil {
		return Request{}, false
	}
	return b.pending.req, true
}

// Views returns the render-state stream. Every listener first receives the
// current view.
func (b *Bridge) Views() *stream.Stream[View] {
	return b.views
}

// resolveLocked resolves and clears the pending slot. With nothing pending
// it is a no-op.
func (b *Bridge) resolveLocked(o Outcome) bool {
	p := b.pending
	if p == nil {
		slog.Debug("dialog resolution ignored: nothing pending", "action", o.Action)
		return false
	}
	b.pending = nil
	b.textInput = ""
	p.deferred.resolve(o)
	b.publishLocked()

	slog.Debug("dialog resolved", "id", p.req.ID, "action", o.Action)
	return true
}

func (b *Bridge) publishLocked() {
	v := View{}
	if b.pending != nil {
		req := b.pending.req
		v = View{Showing: true, Request: &req, TextInput: b.textInput}
	}
	b.loop.Post(func() {
		b.shown = v
		if b.out != nil {
			b.out.Next(v)
		}
	})
}
