package dialog

import (
	"context"
	"log/slog"

	"github.com/ilkecan/manyverse/internal/stream"
)

// Command is a dialog request emitted by a module on its dialog bucket.
// Answers come back on the Source under the same Category.
type Command struct {
	Category string  `json:"category"`
	Kind     Kind    `json:"kind"`
	Title    string  `json:"title,omitempty"`
	Content  string  `json:"content,omitempty"`
	Options  Options `json:"options"`
}

// Response is an answered Command.
type Response struct {
	Category string
	Outcome  Outcome
}

// Driver turns dialog commands into bridge requests and bridge outcomes
// into source emissions.
type Driver struct {
	ctx       context.Context
	bridge    *Bridge
	loop      stream.Poster
	responses *stream.Subject[Response]
}

// NewDriver creates a driver. Outstanding waits end when ctx is done.
func NewDriver(ctx context.Context, bridge *Bridge, loop stream.Poster) *Driver {
	return &Driver{
		ctx:       ctx,
		bridge:    bridge,
		loop:      loop,
		responses: stream.NewSubject[Response](),
	}
}

// Consume executes every command of cmds.
func (d *Driver) Consume(cmds *stream.Stream[Command]) *stream.Subscription {
	return stream.OrNever(cmds).Subscribe(stream.Listener[Command]{
		Next: d.execute,
		Error: func(err error) {
			slog.Error("dialog command stream failed", "error", err)
		},
	})
}

func (d *Driver) execute(cmd Command) {
	var (
		deferred *Deferred
		err      error
	)
	switch cmd.Kind {
	case KindAlert:
		deferred, err = d.bridge.Alert(cmd.Title, cmd.Content, cmd.Options)
	case KindPrompt:
		deferred, err = d.bridge.Prompt(cmd.Title, cmd.Content, cmd.Options)
	case KindPicker:
		deferred, err = d.bridge.ShowPicker(cmd.Title, cmd.Content, cmd.Options)
	default:
		slog.Error("unknown dialog kind", "kind", cmd.Kind, "category", cmd.Category)
		return
	}
	if err != nil {
		// Already logged by the bridge.
		return
	}

	go func() {
		outcome, err := deferred.Wait(d.ctx)
		if err != nil {
			return
		}
		d.loop.Post(func() {
			d.responses.Next(Response{Category: cmd.Category, Outcome: outcome})
		})
	}()
}

// Source returns the response source.
func (d *Driver) Source() Source {
	return Source{responses: d.responses.Stream}
}

// Source selects dialog answers by category. The zero Source never emits.
type Source struct {
	responses *stream.Stream[Response]
}

// Select returns the outcomes of commands sent with category.
func (s Source) Select(category string) *stream.Stream[Outcome] {
	matching := stream.Filter(stream.OrNever(s.responses), func(r Response) bool {
		return r.Category == category
	})
	return stream.Map(matching, func(r Response) Outcome { return r.Outcome })
}
