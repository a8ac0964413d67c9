package tabs

import (
	"github.com/ilkecan/manyverse/internal/bus"
	"github.com/ilkecan/manyverse/internal/cycle"
	"github.com/ilkecan/manyverse/internal/effect"
	"github.com/ilkecan/manyverse/internal/nav"
	"github.com/ilkecan/manyverse/internal/stream"
	"github.com/ilkecan/manyverse/internal/ui"
)

// TopBarState is the top bar slice. The central screen keeps Tab in sync
// with the active tab.
type TopBarState struct {
	Tab bus.Tab `json:"tab"`
}

var titles = map[bus.Tab]string{
	bus.TabPublic:      "Public board",
	bus.TabPrivate:     "Private messages",
	bus.TabActivity:    "Activity",
	bus.TabConnections: "Connections",
}

// Title returns the title shown for tab.
func Title(tab bus.Tab) string {
	return titles[tab]
}

// TopBar shows the title and opens the drawer or the search screen.
// Search is only offered on the public tab.
func TopBar(src cycle.Sources[TopBarState]) cycle.Sinks[TopBarState] {
	menu := src.UI.Select("menuButton").Events("press")
	search := stream.Filter(
		stream.SampleCombine(src.UI.Select("searchButton").Events("press"), src.State),
		func(p stream.Pair[ui.Event, TopBarState]) bool { return p.Second.Tab == bus.TabPublic },
	)

	return cycle.Sinks[TopBarState]{
		Render: view(src.UI.Namespace(), "topBar", src.State, func(s TopBarState) map[string]any {
			return map[string]any{"title": Title(s.Tab), "search": s.Tab == bus.TabPublic}
		}),
		Effects: effect.Buckets{
			Navigation: stream.Merge(
				stream.MapTo(menu, nav.Command{Type: nav.Push, Screen: nav.ScreenDrawer}),
				stream.MapTo(search, nav.Command{Type: nav.Push, Screen: nav.ScreenSearch}),
			),
			Bus: stream.MapTo(menu, bus.Event(bus.DrawerToggleOnCentralScreen{Open: true})),
		},
		Scope: src.UI.Namespace(),
	}
}
