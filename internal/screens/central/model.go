// Package central is the main screen: four tabs and a top bar mounted side
// by side, each in its own scope, with the action button routed to
// whichever tab is active.
package central

import (
	"github.com/ilkecan/manyverse/internal/bus"
	"github.com/ilkecan/manyverse/internal/lens"
	"github.com/ilkecan/manyverse/internal/screens/central/tabs"
	"github.com/ilkecan/manyverse/internal/state"
	"github.com/ilkecan/manyverse/internal/stream"
)

// State is the central screen slice. Tab slices are nil until the tab
// initializes them.
type State struct {
	CurrentTab     bus.Tab                `json:"currentTab"`
	IsDrawerOpen   bool                   `json:"isDrawerOpen"`
	PublicTab      *tabs.PublicState      `json:"publicTab,omitempty"`
	PrivateTab     *tabs.PrivateState     `json:"privateTab,omitempty"`
	ActivityTab    *tabs.ActivityState    `json:"activityTab,omitempty"`
	ConnectionsTab *tabs.ConnectionsState `json:"connectionsTab,omitempty"`
	TopBar         tabs.TopBarState       `json:"topBar"`
}

// NumOfPublicUpdates returns the public tab's unread counter.
func (s State) NumOfPublicUpdates() int {
	if s.PublicTab == nil {
		return 0
	}
	return s.PublicTab.NumOfUpdates
}

// NumOfPrivateUpdates returns the private tab's unread counter.
func (s State) NumOfPrivateUpdates() int {
	if s.PrivateTab == nil {
		return 0
	}
	return s.PrivateTab.NumOfUpdates
}

// NumOfActivityUpdates returns the activity tab's unread counter.
func (s State) NumOfActivityUpdates() int {
	if s.ActivityTab == nil {
		return 0
	}
	return s.ActivityTab.NumOfUpdates
}

var (
	publicTabLens = lens.Pointer(
		func(s State) *tabs.PublicState { return s.PublicTab },
		func(s State, v *tabs.PublicState) State { s.PublicTab = v; return s },
	)
	privateTabLens = lens.Pointer(
		func(s State) *tabs.PrivateState { return s.PrivateTab },
		func(s State, v *tabs.PrivateState) State { s.PrivateTab = v; return s },
	)
	activityTabLens = lens.Pointer(
		func(s State) *tabs.ActivityState { return s.ActivityTab },
		func(s State, v *tabs.ActivityState) State { s.ActivityTab = v; return s },
	)
	connectionsTabLens = lens.Pointer(
		func(s State) *tabs.ConnectionsState { return s.ConnectionsTab },
		func(s State, v *tabs.ConnectionsState) State { s.ConnectionsTab = v; return s },
	)
	topBarLens = lens.New(
		func(s State) tabs.TopBarState { return s.TopBar },
		func(s State, v tabs.TopBarState) State { s.TopBar = v; return s },
	)
)

func initialState() State {
	return State{CurrentTab: bus.TabPublic, TopBar: tabs.TopBarState{Tab: bus.TabPublic}}
}

func model(a actions) *stream.Stream[state.Reducer[State]] {
	initial := stream.Of(state.Reducer[State](func(prev State, present bool) State {
		if present {
			return prev
		}
		return initialState()
	}))

	changeTab := stream.Map(a.changeTab, func(tab bus.Tab) state.Reducer[State] {
		return func(prev State, _ bool) State {
			prev.CurrentTab = tab
			prev.TopBar.Tab = tab
			return prev
		}
	})

	drawer := stream.Map(stream.Merge(a.drawerToggled, stream.MapTo(a.closeDrawer, false)), func(open bool) state.Reducer[State] {
		return func(prev State, _ bool) State {
			prev.IsDrawerOpen = open
			return prev
		}
	})

	return stream.Merge(initial, changeTab, drawer)
}
