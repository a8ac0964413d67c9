// Package tabs holds the modules mounted by the central screen: one per
// tab plus the top bar.
package tabs

import (
	"github.com/ilkecan/manyverse/internal/ssb"
	"github.com/ilkecan/manyverse/internal/state"
	"github.com/ilkecan/manyverse/internal/stream"
	"github.com/ilkecan/manyverse/internal/ui"
)

// Inputs are the streams the central screen hands a tab besides its
// sources. Fab only emits while the tab is active.
type Inputs struct {
	Fab         *stream.Stream[string]
	ScrollToTop *stream.Stream[struct{}]
}

func (in Inputs) fab() *stream.Stream[string] {
	return stream.OrNever(in.Fab)
}

func (in Inputs) scrollToTop() *stream.Stream[struct{}] {
	return stream.OrNever(in.ScrollToTop)
}

// Fab item ids.
const (
	FabCompose        = "compose"
	FabComposePrivate = "compose-private"
	FabInviteShare    = "invite-share"
	FabHelp           = "connections-help"
)

// payload extracts a typed payload from UI events, dropping the rest.
func payload[T any](events *stream.Stream[ui.Event]) *stream.Stream[T] {
	return stream.FilterMap(events, func(ev ui.Event) (T, bool) {
		v, ok := ev.Payload.(T)
		return v, ok
	})
}

// othersMessages emits appended messages authored by anyone but the local
// feed. Nothing passes until the local feed is known.
func othersMessages(src ssb.Source, keep func(ssb.Msg) bool) *stream.Stream[ssb.Msg] {
	withSelf := stream.SampleCombine(src.Appended(), src.SelfFeedID())
	return stream.FilterMap(withSelf, func(p stream.Pair[ssb.Msg, ssb.FeedID]) (ssb.Msg, bool) {
		if p.First.Author == p.Second || !keep(p.First) {
			return ssb.Msg{}, false
		}
		return p.First, true
	})
}

func isPrivate(m ssb.Msg) bool {
	_, ok := m.Content["recps"]
	return ok
}

func contentType(m ssb.Msg) string {
	t, _ := m.Content["type"].(string)
	return t
}

// initial emits a reducer that fills an absent slice with def.
func initial[S any](def S) *stream.Stream[state.Reducer[S]] {
	return stream.Of(state.Reducer[S](func(prev S, present bool) S {
		if present {
			return prev
		}
		return def
	}))
}

func view[S any](ns string, kind string, st *stream.Stream[S], props func(S) map[string]any) *stream.Stream[ui.Render] {
	return stream.Map(st, func(s S) ui.Render {
		return ui.Node{Kind: kind, Sel: ns, Props: props(s)}
	})
}
