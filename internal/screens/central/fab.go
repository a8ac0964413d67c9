package central

import (
	"github.com/ilkecan/manyverse/internal/bus"
	"github.com/ilkecan/manyverse/internal/screens/central/tabs"
	"github.com/ilkecan/manyverse/internal/stream"
)

// Fab describes the action button for a tab.
type Fab struct {
	Visible bool     `json:"visible"`
	Items   []string `json:"items,omitempty"`
}

// FabFor returns the action button shown on tab.
func FabFor(tab bus.Tab) Fab {
	switch tab {
	case bus.TabPublic:
		return Fab{Visible: true, Items: []string{tabs.FabCompose}}
	case bus.TabPrivate:
		return Fab{Visible: true, Items: []string{tabs.FabComposePrivate}}
	case bus.TabConnections:
		return Fab{Visible: true, Items: []string{tabs.FabInviteShare, tabs.FabHelp}}
	}
	return Fab{}
}

// route passes presses through only while tab is the current tab. The
// decision is re-made on every tab change.
func route(presses *stream.Stream[string], current *stream.Stream[bus.Tab], tab bus.Tab) *stream.Stream[string] {
	return stream.Flatten(stream.Map(current, func(cur bus.Tab) *stream.Stream[string] {
		if cur == tab {
			return presses
		}
		return stream.Never[string]()
	}))
}

// only keeps the scroll requests addressed to tab.
func only(requests *stream.Stream[bus.Tab], tab bus.Tab) *stream.Stream[struct{}] {
	return stream.FilterMap(requests, func(t bus.Tab) (struct{}, bool) {
		return struct{}{}, t == tab
	})
}
