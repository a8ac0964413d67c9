package cycle

import (
	"log/slog"

	"github.com/ilkecan/manyverse/internal/bus"
	"github.com/ilkecan/manyverse/internal/dialog"
	"github.com/ilkecan/manyverse/internal/effect"
	"github.com/ilkecan/manyverse/internal/nav"
	"github.com/ilkecan/manyverse/internal/scope"
	"github.com/ilkecan/manyverse/internal/ssb"
	"github.com/ilkecan/manyverse/internal/state"
	"github.com/ilkecan/manyverse/internal/storage"
	"github.com/ilkecan/manyverse/internal/stream"
	"github.com/ilkecan/manyverse/internal/ui"
)

// Drivers execute a root module's sinks and feed its sources. Every field
// is optional: a missing driver leaves its source silent and its bucket
// drained without effect.
type Drivers struct {
	Bus      *bus.Bus
	UI       *ui.Host
	Nav      *nav.Driver
	Storage  *storage.Driver
	SSB      *ssb.Hub
	Dialog   *dialog.Driver
	Platform effect.Platform

	// Observe sees every effect emission before its driver does, tagged
	// with the innermost isolated scope that emitted it.
	Observe func(effect.Emission)
}

// Dispose tears a running app down.
type Dispose func()

// Run mounts main on store and drivers. Everything runs on the loop
// goroutine that the drivers post to; call Run from it.
//
// Sinks are subscribed in a fixed order: reducers first, then effect
// buckets in effect.Names order, then render. Disposing unsubscribes all of
// them, which cascades to every stream main created. The bus survives.
func Run[S any](main Module[S], store *state.Store[S], d Drivers) Dispose {
	src := Sources[S]{
		State:    store.Stream(),
		UI:       ui.NewSource(nil),
		Services: d.services(),
		Scopes:   scope.NewRegistry(""),
		Tracer:   effect.NewTracer(d.Observe),
	}
	if d.UI != nil {
		src.UI = d.UI.Source()
	}
	if d.Bus != nil {
		src.Bus = d.Bus.Stream()
	} else {
		src.Bus = stream.Never[bus.Event]()
	}

	sinks := main(src)
	effects := src.Tracer.Observe(sinks.Effects, sinks.Scope)

	var g stream.Group
	g.Add(store.Attach(sinks.State))

	platform := d.Platform
	if platform == nil {
		platform = effect.LogPlatform{}
	}

	if d.Nav != nil {
		g.Add(d.Nav.Consume(effects.Navigation))
	} else {
		g.Add(drain(effect.Navigation, effects.Navigation))
	}
	g.Add(perform(effect.Toast, effects.Toast, platform.Toast))
	if d.Storage != nil {
		g.Add(d.Storage.Consume(effects.Storage))
	} else {
		g.Add(drain(effect.Storage, effects.Storage))
	}
	if d.SSB != nil {
		g.Add(d.SSB.Consume(effects.SSB))
	} else {
		g.Add(drain(effect.SSB, effects.SSB))
	}
	g.Add(perform(effect.Clipboard, effects.Clipboard, platform.SetClipboard))
	g.Add(perform(effect.Linking, effects.Linking, platform.OpenURL))
	g.Add(perform(effect.Share, effects.Share, platform.Share))
	if d.Dialog != nil {
		g.Add(d.Dialog.Consume(effects.Dialog))
	} else {
		g.Add(drain(effect.Dialog, effects.Dialog))
	}
	if d.Bus != nil {
		g.Add(d.Bus.Connect(effects.Bus))
	} else {
		g.Add(drain(effect.Bus, effects.Bus))
	}
	g.Add(perform(effect.Exit, effects.Exit, func(effect.ExitMsg) { platform.Exit() }))

	if sinks.Render != nil {
		g.Add(sinks.Render.Subscribe(stream.Listener[ui.Render]{
			Next: func(r ui.Render) {
				if d.UI != nil {
					d.UI.Show(r)
				}
			},
			Error: func(err error) {
				slog.Error("render stream failed", "error", err)
			},
		}))
	}

	slog.Debug("app mounted",
		"modules", src.Scopes.Claimed(),
		"buckets", effects.Present(),
		"subscriptions", g.Len(),
	)
	return g.Unsubscribe
}

func (d Drivers) services() Services {
	var s Services
	if d.SSB != nil {
		s.SSB = d.SSB.Source()
	}
	if d.Storage != nil {
		s.Storage = d.Storage.Source()
	}
	if d.Dialog != nil {
		s.Dialog = d.Dialog.Source()
	}
	if d.Nav != nil {
		s.Nav = d.Nav.Source()
	}
	return s
}

func perform[T any](bucket string, s *stream.Stream[T], do func(T)) *stream.Subscription {
	return stream.OrNever(s).Subscribe(stream.Listener[T]{
		Next: do,
		Error: func(err error) {
			slog.Error("effect stream failed", "bucket", bucket, "error", err)
		},
	})
}

func drain[T any](bucket string, s *stream.Stream[T]) *stream.Subscription {
	return perform(bucket, s, func(T) {
		slog.Debug("effect without driver", "bucket", bucket)
	})
}
