// Package cycle defines the module boundary and the isolation wrapper that
// composes modules without letting siblings see each other.
//
// A Module is a function from Sources to Sinks. Modules never hold state of
// their own: state lives in the reducer loop and reaches a module as a
// stream, and a module changes it only by emitting reducers.
package cycle

import (
	"log/slog"

	"github.com/ilkecan/manyverse/internal/bus"
	"github.com/ilkecan/manyverse/internal/dialog"
	"github.com/ilkecan/manyverse/internal/effect"
	"github.com/ilkecan/manyverse/internal/lens"
	"github.com/ilkecan/manyverse/internal/nav"
	"github.com/ilkecan/manyverse/internal/scope"
	"github.com/ilkecan/manyverse/internal/ssb"
	"github.com/ilkecan/manyverse/internal/state"
	"github.com/ilkecan/manyverse/internal/storage"
	"github.com/ilkecan/manyverse/internal/stream"
	"github.com/ilkecan/manyverse/internal/ui"
)

// Services are the collaborator sources every module may read. They pass
// through isolation unchanged.
type Services struct {
	SSB     ssb.Source
	Storage storage.Source
	Dialog  dialog.Source
	Nav     nav.Source
}

// Sources is the input record of a module.
type Sources[S any] struct {
	// State emits the module's state; late listeners get the latest value.
	State *stream.Stream[S]
	// UI selects events addressed to the module.
	UI ui.Source
	// Bus is the process event bus.
	Bus *stream.Stream[bus.Event]

	Services Services

	// Scopes hands out namespaces to the module's children. Run and
	// Isolate set it; with a nil registry duplicate siblings go unnoticed.
	Scopes *scope.Registry

	// Tracer attributes effect emissions to scopes. Nil when nobody
	// observes.
	Tracer *effect.Tracer
}

// Sinks is the output record of a module. Nil streams mean "emits nothing".
type Sinks[S any] struct {
	Render  *stream.Stream[ui.Render]
	State   *stream.Stream[state.Reducer[S]]
	Effects effect.Buckets
	// Scope is the namespace of the module that produced these sinks.
	Scope string
}

// Module is a pure function from sources to sinks.
type Module[S any] func(Sources[S]) Sinks[S]

// Scope describes how a child module is isolated: Name picks its UI
// namespace and bucket keys, Lens picks its state slice.
type Scope[W, S any] struct {
	Name string
	Lens lens.Lens[W, S]
}

// Isolate wraps m so that it
//   - sees only its lens slice of state, and only while that slice is present,
//   - sees only UI events in its namespace,
//   - has each emitted reducer lifted through the lens,
//
// while the bus, services and effect buckets pass through, tagged with the
// child's namespace.
//
// The child's name is claimed from the parent's scope registry when the
// wrapped module is invoked. A name that is invalid or already taken by a
// sibling is a wiring error: it is logged and the child is not mounted.
func Isolate[W, S any](m Module[S], sc Scope[W, S]) Module[W] {
	return func(src Sources[W]) Sinks[W] {
		registry := src.Scopes
		if registry == nil {
			registry = scope.NewRegistry(src.UI.Namespace())
		}
		ns, err := registry.Claim(sc.Name)
		if err != nil {
			werr := newWiringError(sc.Name, src.UI.Namespace(), err)
			slog.Error("module not mounted", "scope", sc.Name, "error", werr)
			return Sinks[W]{Scope: src.UI.Namespace()}
		}

		inner := m(Sources[S]{
			State:    focus(src.State, sc.Lens),
			UI:       src.UI.Isolate(ns),
			Bus:      src.Bus,
			Services: src.Services,
			Scopes:   scope.NewRegistry(ns),
			Tracer:   src.Tracer,
		})

		var reducers *stream.Stream[state.Reducer[W]]
		if inner.State != nil {
			l := sc.Lens
			reducers = stream.Map(inner.State, func(r state.Reducer[S]) state.Reducer[W] {
				return state.Lift(l, r)
			})
		}

		return Sinks[W]{
			Render:  inner.Render,
			State:   reducers,
			Effects: src.Tracer.Mark(inner.Effects, ns),
			Scope:   ns,
		}
	}
}

// focus derives a child state stream from the parent's. Absent slices are
// skipped; late listeners get the latest slice.
func focus[W, S any](whole *stream.Stream[W], l lens.Lens[W, S]) *stream.Stream[S] {
	if whole == nil {
		return stream.Never[S]()
	}
	type slice struct {
		v  S
		ok bool
	}
	got := stream.Map(whole, func(w W) slice {
		v, ok := l.Get(w)
		return slice{v: v, ok: ok}
	})
	present := stream.Filter(got, func(s slice) bool { return s.ok })
	return stream.Remember(stream.Map(present, func(s slice) S { return s.v }))
}
