package central

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilkecan/manyverse/internal/bus"
	"github.com/ilkecan/manyverse/internal/cycle"
	"github.com/ilkecan/manyverse/internal/dialog"
	"github.com/ilkecan/manyverse/internal/effect"
	"github.com/ilkecan/manyverse/internal/engine"
	"github.com/ilkecan/manyverse/internal/nav"
	"github.com/ilkecan/manyverse/internal/screens/central/tabs"
	"github.com/ilkecan/manyverse/internal/ssb"
	"github.com/ilkecan/manyverse/internal/state"
	"github.com/ilkecan/manyverse/internal/storage"
	"github.com/ilkecan/manyverse/internal/stream"
	"github.com/ilkecan/manyverse/internal/ui"
)

type fixture struct {
	t        *testing.T
	loop     *engine.Engine
	store    *state.Store[State]
	hub      *ssb.Hub
	bus      *bus.Bus
	host     *ui.Host
	nav      *nav.Driver
	kv       *storage.Memory
	bridge   *dialog.Bridge
	platform *effect.Recorder
	updates  []bus.CentralScreenUpdate
}

func mount(t *testing.T) *fixture {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	e := engine.New()
	f := &fixture{
		t:        t,
		loop:     e,
		store:    state.New[State](),
		hub:      ssb.NewHub(ssb.WithMsgIDs(engine.NewFixedGenerator("m1", "m2", "m3", "m4", "m5", "m6", "m7", "m8"))),
		bus:      bus.New(),
		host:     ui.NewHost(e),
		nav:      nav.NewDriver(nav.NewStack(nav.Frame{Screen: nav.ScreenCentral})),
		kv:       storage.NewMemory(nil),
		bridge:   dialog.NewBridge(e, dialog.WithIDs(engine.NewFixedGenerator("d1", "d2"))),
		platform: &effect.Recorder{},
	}
	f.bus.Install(e)
	f.bus.Stream().Subscribe(stream.Listener[bus.Event]{Next: func(ev bus.Event) {
		if u, ok := ev.(bus.CentralScreenUpdate); ok {
			f.updates = append(f.updates, u)
		}
	}})

	dispose := cycle.Run(Module, f.store, cycle.Drivers{
		Bus:      f.bus,
		UI:       f.host,
		Nav:      f.nav,
		Storage:  storage.NewDriver(ctx, f.kv, e, e),
		SSB:      f.hub,
		Dialog:   dialog.NewDriver(ctx, f.bridge, e),
		Platform: f.platform,
	})
	t.Cleanup(dispose)
	f.drain()
	return f
}

func (f *fixture) drain() {
	f.t.Helper()
	_, err := f.loop.Drain()
	require.NoError(f.t, err)
}

func (f *fixture) press(sel, typ string, payload any) {
	f.t.Helper()
	require.True(f.t, f.host.Dispatch(ui.Event{Selector: sel, Type: typ, Payload: payload}))
	f.drain()
}

func (f *fixture) dispatch(ev bus.Event) {
	f.t.Helper()
	require.NoError(f.t, f.bus.Dispatch(ev))
	f.drain()
}

func (f *fixture) state() State {
	f.t.Helper()
	s, ok := f.store.Snapshot()
	require.True(f.t, ok)
	return s
}

// settle drains the loop until cond holds, for results that arrive from
// other goroutines.
func (f *fixture) settle(cond func() bool) {
	f.t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		f.drain()
		if cond() {
			return
		}
		require.True(f.t, time.Now().Before(deadline), "condition not reached")
		time.Sleep(time.Millisecond)
	}
}

func (f *fixture) counters(subtype string) []int {
	var out []int
	for _, u := range f.updates {
		if u.Subtype == subtype {
			out = append(out, u.Counter)
		}
	}
	return out
}

func post(author string) ssb.Msg {
	return ssb.Msg{Author: author, Content: ssb.Content{"type": "post", "text": "hello"}}
}

func TestModule_InitializesEveryTab(t *testing.T) {
	f := mount(t)

	s := f.state()
	assert.Equal(t, bus.TabPublic, s.CurrentTab)
	assert.Equal(t, bus.TabPublic, s.TopBar.Tab)
	assert.NotNil(t, s.PublicTab)
	assert.NotNil(t, s.PrivateTab)
	assert.NotNil(t, s.ActivityTab)
	assert.NotNil(t, s.ConnectionsTab)

	r, frames := f.host.Latest()
	require.Positive(t, frames)
	node, ok := r.(ui.Node)
	require.True(t, ok)
	assert.Equal(t, "central", node.Kind)
	assert.Equal(t, bus.TabPublic, node.Props["currentTab"])
	assert.Equal(t, FabFor(bus.TabPublic), node.Props["fab"])
	assert.Len(t, node.Children, 5)
}

func TestTabs_PressChangesThenScrolls(t *testing.T) {
	f := mount(t)
	f.hub.SetSelf("@me")
	f.hub.Append(ssb.Msg{Author: "@bob", Content: ssb.Content{"type": "post", "text": "psst", "recps": []any{"@me"}}})
	f.drain()
	require.Equal(t, 1, f.state().NumOfPrivateUpdates())

	f.press("tabs", "press", bus.TabPrivate)
	assert.Equal(t, bus.TabPrivate, f.state().CurrentTab)
	assert.Equal(t, bus.TabPrivate, f.state().TopBar.Tab)
	assert.Equal(t, 1, f.state().NumOfPrivateUpdates(), "switching does not scroll")

	f.press("tabs", "press", bus.TabPrivate)
	assert.Equal(t, 0, f.state().NumOfPrivateUpdates(), "pressing the active tab scrolls to top")

	f.dispatch(bus.ChangeTab(bus.TabConnections))
	assert.Equal(t, bus.TabConnections, f.state().CurrentTab)
}

func TestFab_RoutedToActiveTab(t *testing.T) {
	f := mount(t)

	f.press("fab", "pressItem", tabs.FabCompose)
	require.Equal(t, nav.ScreenCompose, f.nav.Stack().Top().Screen)
	assert.Nil(t, f.nav.Stack().Top().Props["private"])
	require.NoError(t, f.nav.Stack().Apply(nav.Command{Type: nav.Pop}))

	f.press("tabs", "press", bus.TabPrivate)
	f.press("fab", "pressItem", tabs.FabCompose)
	assert.Equal(t, 1, f.nav.Stack().Depth(), "public tab is inactive")

	f.press("fab", "pressItem", tabs.FabComposePrivate)
	assert.Equal(t, nav.ScreenCompose, f.nav.Stack().Top().Screen)
	assert.Equal(t, true, f.nav.Stack().Top().Props["private"])
	require.NoError(t, f.nav.Stack().Apply(nav.Command{Type: nav.Pop}))

	f.press("tabs", "press", bus.TabActivity)
	f.press("fab", "pressItem", tabs.FabComposePrivate)
	f.press("fab", "pressItem", tabs.FabHelp)
	assert.Equal(t, 1, f.nav.Stack().Depth())
	assert.Empty(t, f.platform.URLs, "activity has no action button")

	f.press("tabs", "press", bus.TabConnections)
	f.press("fab", "pressItem", tabs.FabHelp)
	assert.Equal(t, []string{tabs.ConnectionsHelpURL}, f.platform.URLs)
}

func TestNotifications_OnlyOnChange(t *testing.T) {
	f := mount(t)
	f.hub.SetSelf("@me")

	f.hub.Append(post("@bob"))
	f.drain()
	f.press("tabs", "press", bus.TabPrivate)
	f.hub.Append(post("@me"))
	f.drain()
	f.hub.Append(ssb.Msg{Author: "@carol", Content: ssb.Content{"type": "vote"}})
	f.drain()
	f.hub.Append(post("@carol"))
	f.drain()

	assert.Equal(t, []int{1, 2}, f.counters(bus.SubtypePublicUpdates))
	assert.Equal(t, []int{1}, f.counters(bus.SubtypeActivityUpdates))
	assert.Empty(t, f.counters(bus.SubtypePrivateUpdates), "never left zero")

	f.dispatch(bus.ScrollToTop(bus.TabPublic))
	assert.Equal(t, []int{1, 2, 0}, f.counters(bus.SubtypePublicUpdates))
}

func TestNotifications_ConnectionsSubstate(t *testing.T) {
	f := mount(t)
	count := func() int { return len(f.counters(bus.SubtypeConnections)) }
	before := count()

	peers := []ssb.Peer{{Address: "net:10.0.0.2:8008", Key: "@carol", Kind: "lan", State: "connected"}}
	f.hub.SetPeers(peers)
	f.drain()
	require.Equal(t, before+1, count())
	last := f.updates[len(f.updates)-1]
	require.Equal(t, bus.SubtypeConnections, last.Subtype)
	assert.Equal(t, peers, last.Substate.(tabs.ConnectionsState).Peers)

	f.hub.SetPeers([]ssb.Peer{{Address: "net:10.0.0.2:8008", Key: "@carol", Kind: "lan", State: "connected"}})
	f.drain()
	f.press("tabs", "press", bus.TabActivity)
	assert.Equal(t, before+1, count(), "equal substate is not announced again")
}

func TestBack_DrawerThenTabThenExit(t *testing.T) {
	f := mount(t)

	f.press("topBar/menuButton", "press", nil)
	assert.Equal(t, nav.ScreenDrawer, f.nav.Stack().Top().Screen)
	assert.True(t, f.state().IsDrawerOpen)

	f.dispatch(bus.HardwareBackOnCentralScreen{})
	assert.False(t, f.state().IsDrawerOpen)
	assert.Equal(t, 1, f.nav.Stack().Depth())
	assert.Zero(t, f.platform.Exits)

	f.press("tabs", "press", bus.TabActivity)
	f.dispatch(bus.HardwareBackOnCentralScreen{})
	assert.Equal(t, bus.TabPublic, f.state().CurrentTab)
	assert.Zero(t, f.platform.Exits)

	f.dispatch(bus.HardwareBackOnCentralScreen{})
	assert.Equal(t, 1, f.platform.Exits)
}

func TestTopBar_SearchOnlyOnPublic(t *testing.T) {
	f := mount(t)

	f.press("tabs", "press", bus.TabActivity)
	f.press("topBar/searchButton", "press", nil)
	assert.Equal(t, 1, f.nav.Stack().Depth())

	f.press("tabs", "press", bus.TabPublic)
	f.press("topBar/searchButton", "press", nil)
	assert.Equal(t, nav.ScreenSearch, f.nav.Stack().Top().Screen)
}

func TestBuckets_MergedAcrossTabs(t *testing.T) {
	f := mount(t)
	f.hub.SetSelf("@me")

	f.press("publicTab/feed/copyLink", "copyLink", nil)
	assert.Empty(t, f.platform.Clipboard, "selector must match exactly")

	f.press("publicTab/feed", "copyLink", "%abc.sha256")
	assert.Equal(t, []string{"%abc.sha256"}, f.platform.Clipboard)
	require.Len(t, f.platform.Toasts, 1)

	f.press("privateTab/feed", "copyLink", "%other.sha256")
	assert.Len(t, f.platform.Clipboard, 1, "events of one tab never reach another")

	f.press("publicTab/feed", "react", ssb.Reaction{MsgKey: "%abc.sha256", Expression: "❤"})
	log := f.hub.Log()
	require.NotEmpty(t, log)
	assert.Equal(t, "vote", log[len(log)-1].Content["type"])

	f.press("publicTab/feed", "toggleFollowingOnly", nil)
	assert.True(t, f.state().PublicTab.FollowingOnly)
	v, found, err := f.kv.GetItem(context.Background(), tabs.FollowingOnlyKey)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "true", v)

	f.press("connectionsTab/help", "press", nil)
	assert.Equal(t, []string{tabs.ConnectionsHelpURL}, f.platform.URLs)

	f.press("publicTab/feed", "pressMsg", "%abc.sha256")
	assert.Equal(t, nav.ScreenThread, f.nav.Stack().Top().Screen)
}

func TestConnections_PeerMenu(t *testing.T) {
	f := mount(t)
	carol := ssb.Peer{Address: "net:10.0.0.2:8008", Key: "@carol", Kind: "lan", State: "connected"}
	f.hub.SetPeers([]ssb.Peer{carol})
	f.drain()

	f.press("connectionsTab/peers", "pressPeer", carol)
	req, ok := f.bridge.Current()
	require.True(t, ok)
	assert.Equal(t, dialog.KindPicker, req.Kind)
	assert.Equal(t, "@carol", req.Title)

	require.True(t, f.bridge.Select(tabs.PeerForget))
	f.settle(func() bool { return len(f.state().ConnectionsTab.Forgotten) == 1 })

	s := f.state().ConnectionsTab
	assert.Empty(t, s.Visible())
	assert.Empty(t, s.Selected)
	require.Len(t, f.platform.Toasts, 1)
	assert.Equal(t, "Connection forgotten", f.platform.Toasts[0].Message)

	f.press("connectionsTab/peers", "pressPeer", carol)
	require.True(t, f.bridge.Select(tabs.PeerOpenProfile))
	f.settle(func() bool { return f.nav.Stack().Depth() == 2 })
	assert.Equal(t, "@carol", f.nav.Stack().Top().Props["feedId"])
}

func TestState_TabSlicesIndependent(t *testing.T) {
	f := mount(t)
	f.hub.SetSelf("@me")
	f.hub.Append(post("@bob"))
	f.drain()
	before := f.state()

	f.press("publicTab/feed", "toggleFollowingOnly", nil)

	after := f.state()
	assert.Equal(t, before.PrivateTab, after.PrivateTab)
	assert.Equal(t, before.ActivityTab, after.ActivityTab)
	assert.Equal(t, before.ConnectionsTab, after.ConnectionsTab)
	assert.Equal(t, before.PublicTab.NumOfUpdates, after.PublicTab.NumOfUpdates)
}
