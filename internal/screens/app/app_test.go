package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilkecan/manyverse/internal/bus"
	"github.com/ilkecan/manyverse/internal/cycle"
	"github.com/ilkecan/manyverse/internal/engine"
	"github.com/ilkecan/manyverse/internal/nav"
	"github.com/ilkecan/manyverse/internal/screens/global"
	"github.com/ilkecan/manyverse/internal/ssb"
	"github.com/ilkecan/manyverse/internal/state"
	"github.com/ilkecan/manyverse/internal/storage"
	"github.com/ilkecan/manyverse/internal/stream"
	"github.com/ilkecan/manyverse/internal/ui"
)

func TestModule_MountsGlobalAndCentral(t *testing.T) {
	e := engine.New()
	b := bus.New()
	b.Install(e)
	host := ui.NewHost(e)
	hub := ssb.NewHub()
	navigation := nav.NewDriver(nav.NewStack(nav.Frame{Screen: nav.ScreenCentral}))
	store := state.New[State]()

	dispose := cycle.Run(Module, store, cycle.Drivers{
		Bus:     b,
		UI:      host,
		Nav:     navigation,
		SSB:     hub,
		Storage: storage.NewDriver(context.Background(), storage.NewMemory(map[string]string{global.LastSessionKey: "1700000000"}), e, e),
	})
	defer dispose()
	drain := func() {
		_, err := e.Drain()
		require.NoError(t, err)
	}
	drain()

	s, ok := store.Snapshot()
	require.True(t, ok)
	require.NotNil(t, s.Central)
	assert.Equal(t, bus.TabPublic, s.Central.CurrentTab)
	assert.Equal(t, int64(1700000000), s.Global.LastSession())

	hub.SetSelf("@me")
	drain()
	s, _ = store.Snapshot()
	assert.Equal(t, "@me", s.Global.SelfFeedID)
	assert.Equal(t, "@me", s.Central.ConnectionsTab.SelfFeedID)

	host.Dispatch(ui.Event{Selector: "tabs", Type: "press", Payload: bus.TabActivity})
	drain()
	s, _ = store.Snapshot()
	assert.Equal(t, bus.TabPublic, s.Central.CurrentTab, "unscoped selector reaches nobody")

	host.Dispatch(ui.Event{Selector: "central/tabs", Type: "press", Payload: bus.TabActivity})
	drain()
	s, _ = store.Snapshot()
	assert.Equal(t, bus.TabActivity, s.Central.CurrentTab)

	require.NoError(t, b.Dispatch(bus.TriggerMsgCypherlink{MsgID: "%thread"}))
	drain()
	top := navigation.Stack().Top()
	assert.Equal(t, nav.ScreenThread, top.Screen)
	assert.Equal(t, int64(1700000000), top.Props["lastSessionTimestamp"])

	r, _ := host.Latest()
	node, ok := r.(ui.Node)
	require.True(t, ok)
	assert.Equal(t, "central", node.Sel)
}

func TestBack_RoutesByTopScreen(t *testing.T) {
	e := engine.New()
	b := bus.New()
	b.Install(e)
	navigation := nav.NewDriver(nav.NewStack(nav.Frame{Screen: nav.ScreenCentral}))

	var events []bus.Event
	b.Stream().Subscribe(stream.Listener[bus.Event]{Next: func(ev bus.Event) { events = append(events, ev) }})
	backs := 0
	navigation.Source().BackPress().Subscribe(stream.Listener[struct{}]{Next: func(struct{}) { backs++ }})

	require.NoError(t, Back(b, navigation))
	_, err := e.Drain()
	require.NoError(t, err)
	assert.Equal(t, []bus.Event{bus.HardwareBackOnCentralScreen{}}, events)
	assert.Zero(t, backs)

	require.NoError(t, navigation.Stack().Apply(nav.Command{Type: nav.Push, Screen: nav.ScreenThread}))
	require.NoError(t, Back(b, navigation))
	_, err = e.Drain()
	require.NoError(t, err)
	assert.Len(t, events, 1)
	assert.Equal(t, 1, backs)
}
