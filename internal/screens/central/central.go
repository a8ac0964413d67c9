package central

import (
	"github.com/ilkecan/manyverse/internal/bus"
	"github.com/ilkecan/manyverse/internal/cycle"
	"github.com/ilkecan/manyverse/internal/effect"
	"github.com/ilkecan/manyverse/internal/nav"
	"github.com/ilkecan/manyverse/internal/screens/central/tabs"
	"github.com/ilkecan/manyverse/internal/state"
	"github.com/ilkecan/manyverse/internal/stream"
	"github.com/ilkecan/manyverse/internal/ui"
)

// Scope names of the mounted children.
const (
	ScopeTopBar      = "topBar"
	ScopePublic      = "publicTab"
	ScopePrivate     = "privateTab"
	ScopeActivity    = "activityTab"
	ScopeConnections = "connectionsTab"
)

// Module is the central screen.
func Module(src cycle.Sources[State]) cycle.Sinks[State] {
	st := src.State
	a := intent(src.UI, src.Bus, st)
	current := stream.DropRepeats(stream.Map(st, func(s State) bus.Tab { return s.CurrentTab }))

	topBar := cycle.Isolate(tabs.TopBar, cycle.Scope[State, tabs.TopBarState]{Name: ScopeTopBar, Lens: topBarLens})(src)
	public := cycle.Isolate(tabs.Public(tabs.Inputs{
		Fab:         route(a.fab, current, bus.TabPublic),
		ScrollToTop: only(a.scrollToTop, bus.TabPublic),
	}), cycle.Scope[State, tabs.PublicState]{Name: ScopePublic, Lens: publicTabLens})(src)
	private := cycle.Isolate(tabs.Private(tabs.Inputs{
		Fab:         route(a.fab, current, bus.TabPrivate),
		ScrollToTop: only(a.scrollToTop, bus.TabPrivate),
	}), cycle.Scope[State, tabs.PrivateState]{Name: ScopePrivate, Lens: privateTabLens})(src)
	activity := cycle.Isolate(tabs.Activity(tabs.Inputs{
		ScrollToTop: only(a.scrollToTop, bus.TabActivity),
	}), cycle.Scope[State, tabs.ActivityState]{Name: ScopeActivity, Lens: activityTabLens})(src)
	connections := cycle.Isolate(tabs.Connections(tabs.Inputs{
		Fab: route(a.fab, current, bus.TabConnections),
	}), cycle.Scope[State, tabs.ConnectionsState]{Name: ScopeConnections, Lens: connectionsTabLens})(src)

	children := []cycle.Sinks[State]{topBar, public, private, activity, connections}

	reducers := []*stream.Stream[state.Reducer[State]]{model(a)}
	renders := make([]*stream.Stream[ui.Render], 0, len(children))
	buckets := []effect.Buckets{{
		Navigation: stream.MapTo(a.closeDrawer, nav.Command{Type: nav.Pop}),
		Bus: stream.Merge(
			stream.MapTo(a.closeDrawer, bus.Event(bus.DrawerToggleOnCentralScreen{Open: false})),
			notifications(st),
		),
		Exit: stream.MapTo(a.exitApp, effect.ExitMsg{}),
	}}
	for _, c := range children {
		if c.State != nil {
			reducers = append(reducers, c.State)
		}
		if c.Render != nil {
			renders = append(renders, c.Render)
		}
		buckets = append(buckets, c.Effects)
	}

	return cycle.Sinks[State]{
		Render:  view(src.UI.Namespace(), st, renders),
		State:   stream.Merge(reducers...),
		Effects: effect.Merge(buckets...),
		Scope:   src.UI.Namespace(),
	}
}

func view(ns string, st *stream.Stream[State], children []*stream.Stream[ui.Render]) *stream.Stream[ui.Render] {
	frame := stream.Map(st, func(s State) ui.Render { return s })
	all := append([]*stream.Stream[ui.Render]{frame}, children...)
	return stream.Map(stream.Combine(all...), func(rs []ui.Render) ui.Render {
		s := rs[0].(State)
		return ui.Node{
			Kind: "central",
			Sel:  ns,
			Props: map[string]any{
				"currentTab":           s.CurrentTab,
				"isDrawerOpen":         s.IsDrawerOpen,
				"fab":                  FabFor(s.CurrentTab),
				"numOfPublicUpdates":   s.NumOfPublicUpdates(),
				"numOfPrivateUpdates":  s.NumOfPrivateUpdates(),
				"numOfActivityUpdates": s.NumOfActivityUpdates(),
			},
			Children: rs[1:],
		}
	})
}
