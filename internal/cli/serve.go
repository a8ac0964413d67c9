package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ilkecan/manyverse/internal/bus"
	"github.com/ilkecan/manyverse/internal/config"
	"github.com/ilkecan/manyverse/internal/cycle"
	"github.com/ilkecan/manyverse/internal/dialog"
	"github.com/ilkecan/manyverse/internal/effect"
	"github.com/ilkecan/manyverse/internal/engine"
	"github.com/ilkecan/manyverse/internal/nav"
	"github.com/ilkecan/manyverse/internal/screens/app"
	"github.com/ilkecan/manyverse/internal/ssb"
	"github.com/ilkecan/manyverse/internal/ssb/resync"
	"github.com/ilkecan/manyverse/internal/state"
	"github.com/ilkecan/manyverse/internal/storage"
	"github.com/ilkecan/manyverse/internal/store"
	"github.com/ilkecan/manyverse/internal/stream"
	"github.com/ilkecan/manyverse/internal/trace"
	"github.com/ilkecan/manyverse/internal/transport"
	"github.com/ilkecan/manyverse/internal/ui"
)

// Selectors handled by the server rather than the screens.
const (
	// DialogSelector addresses dialog answers sent by a remote UI.
	DialogSelector = "dialog"
	// BackSelector is the hardware back button.
	BackSelector = "hardwareBack"
)

// sendTimeout bounds a render write to one client.
const sendTimeout = 2 * time.Second

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Session string

	// Sessions overrides the session id generator (for testing).
	Sessions engine.TokenGenerator

	// Ready, if set, is called with the listener addresses once every
	// configured transport is listening.
	Ready func(addrs []string)
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the app and serve its UI to remote clients",
		Long: `Mount the app on a live loop and accept UI clients on every configured
transport. Clients send event frames and receive render frames; the
"dialog" selector answers the pending dialog (select, positive, negative,
dismiss) and "hardwareBack" presses the back button. Every state
application and effect is recorded to the database.

The process stops on SIGINT/SIGTERM or when the app exits.

Example:
  manyverse serve --db ./manyverse.db
  manyverse serve --config ./manyverse.cue --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Session, "session", "", "trace session id (default: new UUIDv7)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	cfg := opts.Config

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	slog.Info("opening database", "path", cfg.DB)
	st, err := store.Open(cfg.DB)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	session := opts.Session
	if session == "" {
		gen := opts.Sessions
		if gen == nil {
			gen = engine.UUIDv7Generator{}
		}
		session = gen.Generate()
	}
	last, err := st.LastSeq(ctx, session)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read session", err)
	}

	// Entries recorded while shutting down must still reach the store.
	a := newLiveApp(ctx, cfg, st, trace.NewRecorder(session,
		trace.WithAppender(context.WithoutCancel(ctx), st),
		trace.WithClock(engine.NewClockAt(last)),
	), cancel)

	listeners, err := a.listen(ctx, cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to listen", err)
	}
	defer func() {
		for _, l := range listeners {
			l.Close()
		}
	}()

	addrs := make([]string, len(listeners))
	for i, l := range listeners {
		addrs[i] = l.Addr()
	}
	slog.Info("serving ui", "session", session, "platform", cfg.Platform, "addrs", addrs)
	fmt.Fprintf(cmd.OutOrStdout(), "Session %s. Listening on %s\n", session, strings.Join(addrs, ", "))
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")
	if opts.Ready != nil {
		opts.Ready(addrs)
	}

	if err := a.run(ctx); err != nil && err != context.Canceled {
		return WrapExitError(ExitFailure, "loop error", err)
	}
	slog.Info("app stopped gracefully")
	return nil
}

// liveApp is the app mounted on a running loop.
type liveApp struct {
	loop     *engine.Engine
	worker   *engine.Engine
	bus      *bus.Bus
	host     *ui.Host
	hub      *ssb.Hub
	bridge   *dialog.Bridge
	drivers  cycle.Drivers
	recorder *trace.Recorder
	firewall *transport.Firewall
	reject   bool
	clients  *clients
	self     ssb.FeedID
}

func newLiveApp(ctx context.Context, cfg config.Config, st *store.Store, rec *trace.Recorder, exit context.CancelFunc) *liveApp {
	loop := engine.New()
	worker := engine.New()
	bridge := dialog.NewBridge(loop)
	a := &liveApp{
		loop:     loop,
		worker:   worker,
		bus:      bus.Shared(),
		host:     ui.NewHost(loop),
		hub:      ssb.NewHub(),
		bridge:   bridge,
		recorder: rec,
		firewall: transport.NewFirewall(cfg.Firewall.RejectUnknown),
		reject:   cfg.Firewall.RejectUnknown,
		clients:  newClients(ctx),
		self:     cfg.PublicKey,
	}
	a.drivers = cycle.Drivers{
		Bus:      a.bus,
		UI:       a.host,
		Nav:      nav.NewDriver(nav.NewStack(nav.Frame{Screen: nav.ScreenCentral})),
		Storage:  storage.NewDriver(ctx, st, worker, loop),
		SSB:      a.hub,
		Dialog:   dialog.NewDriver(ctx, bridge, loop),
		Platform: exitPlatform{exit: exit},
		Observe:  rec.Effect,
	}
	// Local clients authenticate as the device itself.
	a.firewall.Allow(cfg.PublicKey)
	a.bus.Install(loop)
	a.host.OnShow(func(r ui.Render) { a.clients.broadcast(slotApp, r) })
	return a
}

// listen starts every configured transport available on the platform.
func (a *liveApp) listen(ctx context.Context, cfg config.Config) ([]transport.Listener, error) {
	set := transport.DefaultRegistry(cfg.PublicKey, nil).Build(transport.Capability(cfg.Platform))

	var listeners []transport.Listener
	for _, name := range cfg.Transports {
		t, ok := set.Get(name)
		if !ok {
			slog.Warn("transport not available on platform", "name", name, "platform", cfg.Platform)
			continue
		}
		l, err := t.Listen(ctx, cfg.Listen, func(c transport.Conn) {
			a.serveConn(ctx, set, c)
		})
		if err != nil {
			for _, prev := range listeners {
				prev.Close()
			}
			return nil, fmt.Errorf("listen %s on %s: %w", name, cfg.Listen, err)
		}
		listeners = append(listeners, l)
	}
	if len(listeners) == 0 {
		return nil, fmt.Errorf("no transport available for %v on %s", cfg.Transports, cfg.Platform)
	}
	return listeners, nil
}

func (a *liveApp) serveConn(ctx context.Context, set transport.Set, c transport.Conn) {
	wrapped, err := set.Wrap(c)
	if err != nil {
		slog.Warn("ui connection refused", "error", err)
		return
	}
	cl := a.clients.add(wrapped)
	defer a.clients.remove(wrapped)

	a.loop.Post(func() {
		if latest, frames := a.host.Latest(); frames > 0 {
			cl.offer(slotApp, latest)
		}
	})

	err = transport.ServeUI(ctx, wrapped, a.firewall, a.deliver)
	if err != nil && ctx.Err() == nil {
		slog.Warn("ui connection ended", "key", wrapped.RemoteKey(), "error", err)
	}
}

// deliver hands a remote event to the app. Called from connection
// goroutines.
func (a *liveApp) deliver(ev ui.Event) bool {
	switch ev.Selector {
	case DialogSelector:
		answerDialog(a.bridge, ev)
		return true
	case BackSelector:
		return a.loop.Post(func() {
			if err := app.Back(a.bus, a.drivers.Nav); err != nil {
				slog.Warn("back press dropped", "error", err)
			}
		})
	}
	ev.Payload = typedPayload(ev)
	return a.host.Dispatch(ev)
}

// run mounts the app and runs the loop until ctx is done.
func (a *liveApp) run(ctx context.Context) error {
	go func() {
		if err := a.worker.Run(ctx); err != nil && err != context.Canceled {
			slog.Error("storage worker stopped", "error", err)
		}
	}()

	var dispose cycle.Dispose
	var subs *stream.Group
	a.loop.Post(func() {
		a.hub.SetSelf(a.self)
		subs = resync.Watch(a.hub.Source(), a.firewall, a.reject)
		st := state.New(state.WithObserver(trace.Observe[app.State](a.recorder, "")))
		dispose = cycle.Run(app.Module, st, a.drivers)
		subs.Add(a.bridge.Views().Subscribe(stream.Listener[dialog.View]{Next: func(v dialog.View) {
			a.clients.broadcast(slotDialog, ui.Node{Kind: "dialog", Sel: DialogSelector, Props: map[string]any{"view": v}})
		}}))
	})

	err := a.loop.Run(ctx)
	// The loop goroutine is gone; tear down from here.
	if dispose != nil {
		dispose()
	}
	if subs != nil {
		subs.Unsubscribe()
	}
	a.worker.Stop()
	a.clients.closeAll()
	return err
}

// answerDialog resolves the pending dialog from a remote event.
func answerDialog(b *dialog.Bridge, ev ui.Event) {
	var ok bool
	switch ev.Type {
	case "select":
		id, _ := ev.Payload.(string)
		ok = b.Select(id)
	case "positive":
		if text, isText := ev.Payload.(string); isText {
			b.SetText(text)
		}
		ok = b.Positive()
	case "negative":
		ok = b.Negative()
	case "dismiss":
		ok = b.Dismiss()
	default:
		slog.Warn("unknown dialog answer", "type", ev.Type)
		return
	}
	if !ok {
		slog.Debug("dialog answer without pending dialog", "type", ev.Type)
	}
}

// typedPayload converts JSON payloads to the Go types screens match on.
func typedPayload(ev ui.Event) any {
	switch {
	case ev.Type == "press" && strings.HasSuffix(ev.Selector, "/tabs"):
		if s, ok := ev.Payload.(string); ok {
			return bus.Tab(s)
		}
	case ev.Type == "react":
		var r ssb.Reaction
		if decodeInto(ev.Payload, &r) {
			return r
		}
	case ev.Type == "pressPeer":
		var p ssb.Peer
		if decodeInto(ev.Payload, &p) {
			return p
		}
	}
	return ev.Payload
}

func decodeInto(v any, out any) bool {
	data, err := json.Marshal(v)
	if err != nil {
		return false
	}
	return json.Unmarshal(data, out) == nil
}

// exitPlatform logs platform effects and stops the server on exit.
type exitPlatform struct {
	effect.LogPlatform
	exit context.CancelFunc
}

func (p exitPlatform) Exit() {
	slog.Info("app exit requested")
	p.exit()
}

// Render slots. A client keeps only the newest render of each slot until
// its writer catches up.
const (
	slotApp    = "app"
	slotDialog = "dialog"
)

// client is one connected UI with its own writer goroutine.
type client struct {
	conn    transport.Conn
	mu      sync.Mutex
	pending map[string]ui.Render
	order   []string
	wake    chan struct{}
	done    chan struct{}
	once    sync.Once
}

// offer replaces the pending render of slot and wakes the writer. It never
// blocks on the network.
func (c *client) offer(slot string, r ui.Render) {
	c.mu.Lock()
	if _, ok := c.pending[slot]; !ok {
		c.order = append(c.order, slot)
	}
	c.pending[slot] = r
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *client) take() []ui.Render {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ui.Render, 0, len(c.order))
	for _, slot := range c.order {
		out = append(out, c.pending[slot])
	}
	c.pending = make(map[string]ui.Render)
	c.order = nil
	return out
}

func (c *client) stop() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// clients are the connected UI clients.
type clients struct {
	ctx   context.Context
	mu    sync.Mutex
	conns map[transport.Conn]*client
}

func newClients(ctx context.Context) *clients {
	return &clients{ctx: ctx, conns: make(map[transport.Conn]*client)}
}

// add registers conn and starts its writer.
func (cs *clients) add(conn transport.Conn) *client {
	c := &client{
		conn:    conn,
		pending: make(map[string]ui.Render),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	cs.mu.Lock()
	cs.conns[conn] = c
	cs.mu.Unlock()

	go cs.write(c)
	return c
}

// remove unregisters conn and stops its writer.
func (cs *clients) remove(conn transport.Conn) {
	cs.mu.Lock()
	c, ok := cs.conns[conn]
	delete(cs.conns, conn)
	cs.mu.Unlock()
	if ok {
		c.stop()
	}
}

// closeAll disconnects every client. Hijacked websocket connections
// outlive their http server otherwise.
func (cs *clients) closeAll() {
	cs.mu.Lock()
	conns := cs.conns
	cs.conns = make(map[transport.Conn]*client)
	cs.mu.Unlock()

	for _, c := range conns {
		c.stop()
	}
}

func (cs *clients) count() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return len(cs.conns)
}

// broadcast queues r in slot for every client. Called on the loop
// goroutine; the writes happen on each client's writer.
func (cs *clients) broadcast(slot string, r ui.Render) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	for _, c := range cs.conns {
		c.offer(slot, r)
	}
}

// write sends queued renders to c until it stops. A failed client is
// dropped.
func (cs *clients) write(c *client) {
	for {
		select {
		case <-c.wake:
		case <-c.done:
			return
		case <-cs.ctx.Done():
			return
		}
		for _, r := range c.take() {
			sendCtx, cancel := context.WithTimeout(cs.ctx, sendTimeout)
			err := transport.SendRender(sendCtx, c.conn, r)
			cancel()
			if err != nil {
				slog.Warn("render send failed, dropping client", "key", c.conn.RemoteKey(), "error", err)
				cs.remove(c.conn)
				return
			}
		}
	}
}
