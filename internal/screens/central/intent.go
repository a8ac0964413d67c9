package central

import (
	"github.com/ilkecan/manyverse/internal/bus"
	"github.com/ilkecan/manyverse/internal/stream"
	"github.com/ilkecan/manyverse/internal/ui"
)

type actions struct {
	changeTab     *stream.Stream[bus.Tab]
	scrollToTop   *stream.Stream[bus.Tab]
	drawerToggled *stream.Stream[bool]
	closeDrawer   *stream.Stream[struct{}]
	exitApp       *stream.Stream[struct{}]
	fab           *stream.Stream[string]
}

func centralUpdates(events *stream.Stream[bus.Event], subtype string) *stream.Stream[bus.Tab] {
	return stream.FilterMap(events, func(ev bus.Event) (bus.Tab, bool) {
		u, ok := ev.(bus.CentralScreenUpdate)
		if !ok || u.Subtype != subtype {
			return "", false
		}
		return u.Tab, true
	})
}

// intent reads tab presses, the action button and bus events. Pressing the
// active tab scrolls it to the top. Back closes the drawer when it is open,
// otherwise returns to the public tab, and exits from there.
func intent(src ui.Source, events *stream.Stream[bus.Event], st *stream.Stream[State]) actions {
	tabPress := stream.SampleCombine(
		stream.FilterMap(src.Select("tabs").Events("press"), func(ev ui.Event) (bus.Tab, bool) {
			tab, ok := ev.Payload.(bus.Tab)
			return tab, ok
		}),
		st,
	)
	pressOther := stream.FilterMap(tabPress, func(p stream.Pair[bus.Tab, State]) (bus.Tab, bool) {
		return p.First, p.First != p.Second.CurrentTab
	})
	pressActive := stream.FilterMap(tabPress, func(p stream.Pair[bus.Tab, State]) (bus.Tab, bool) {
		return p.First, p.First == p.Second.CurrentTab
	})

	back := stream.SampleCombine(
		stream.Filter(events, func(ev bus.Event) bool {
			_, ok := ev.(bus.HardwareBackOnCentralScreen)
			return ok
		}),
		st,
	)
	closeDrawer := stream.FilterMap(back, func(p stream.Pair[bus.Event, State]) (struct{}, bool) {
		return struct{}{}, p.Second.IsDrawerOpen
	})
	backToPublic := stream.FilterMap(back, func(p stream.Pair[bus.Event, State]) (bus.Tab, bool) {
		return bus.TabPublic, !p.Second.IsDrawerOpen && p.Second.CurrentTab != bus.TabPublic
	})
	exitApp := stream.FilterMap(back, func(p stream.Pair[bus.Event, State]) (struct{}, bool) {
		return struct{}{}, !p.Second.IsDrawerOpen && p.Second.CurrentTab == bus.TabPublic
	})

	return actions{
		changeTab:   stream.Merge(pressOther, centralUpdates(events, bus.SubtypeChangeTab), backToPublic),
		scrollToTop: stream.Merge(pressActive, centralUpdates(events, bus.SubtypeScrollToTop)),
		drawerToggled: stream.FilterMap(events, func(ev bus.Event) (bool, bool) {
			t, ok := ev.(bus.DrawerToggleOnCentralScreen)
			return t.Open, ok
		}),
		closeDrawer: closeDrawer,
		exitApp:     exitApp,
		fab: stream.FilterMap(src.Select("fab").Events("pressItem"), func(ev ui.Event) (string, bool) {
			id, ok := ev.Payload.(string)
			return id, ok
		}),
	}
}
