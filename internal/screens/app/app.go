// Package app is the root module: the global bootstrap module and the
// central screen side by side.
package app

import (
	"github.com/ilkecan/manyverse/internal/bus"
	"github.com/ilkecan/manyverse/internal/cycle"
	"github.com/ilkecan/manyverse/internal/effect"
	"github.com/ilkecan/manyverse/internal/lens"
	"github.com/ilkecan/manyverse/internal/nav"
	"github.com/ilkecan/manyverse/internal/screens/central"
	"github.com/ilkecan/manyverse/internal/screens/global"
	"github.com/ilkecan/manyverse/internal/stream"
)

// Scope names.
const (
	ScopeGlobal  = "global"
	ScopeCentral = "central"
)

// State is the canonical app state.
type State struct {
	Global  global.State   `json:"global"`
	Central *central.State `json:"central,omitempty"`
}

var (
	globalLens = lens.New(
		func(s State) global.State { return s.Global },
		func(s State, g global.State) State { s.Global = g; return s },
	)
	centralLens = lens.Pointer(
		func(s State) *central.State { return s.Central },
		func(s State, c *central.State) State { s.Central = c; return s },
	)
)

// Module is the root module.
func Module(src cycle.Sources[State]) cycle.Sinks[State] {
	g := cycle.Isolate(global.Module, cycle.Scope[State, global.State]{Name: ScopeGlobal, Lens: globalLens})(src)
	c := cycle.Isolate(central.Module, cycle.Scope[State, central.State]{Name: ScopeCentral, Lens: centralLens})(src)

	return cycle.Sinks[State]{
		Render:  c.Render,
		State:   stream.Merge(g.State, c.State),
		Effects: effect.Merge(g.Effects, c.Effects),
		Scope:   src.UI.Namespace(),
	}
}

// Back routes a hardware back press: to the central screen as a bus event
// while it is on top, to the navigation stack otherwise. Call on the loop
// goroutine.
func Back(b *bus.Bus, d *nav.Driver) error {
	if d.Stack().Top().Screen == nav.ScreenCentral {
		return b.Dispatch(bus.HardwareBackOnCentralScreen{})
	}
	d.PressBack()
	return nil
}
