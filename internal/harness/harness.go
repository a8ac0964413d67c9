package harness

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ilkecan/manyverse/internal/bus"
	"github.com/ilkecan/manyverse/internal/cycle"
	"github.com/ilkecan/manyverse/internal/dialog"
	"github.com/ilkecan/manyverse/internal/effect"
	"github.com/ilkecan/manyverse/internal/engine"
	"github.com/ilkecan/manyverse/internal/nav"
	"github.com/ilkecan/manyverse/internal/screens/app"
	"github.com/ilkecan/manyverse/internal/screens/thread"
	"github.com/ilkecan/manyverse/internal/ssb"
	"github.com/ilkecan/manyverse/internal/state"
	"github.com/ilkecan/manyverse/internal/storage"
	"github.com/ilkecan/manyverse/internal/store"
	"github.com/ilkecan/manyverse/internal/testutil"
	"github.com/ilkecan/manyverse/internal/trace"
	"github.com/ilkecan/manyverse/internal/ui"
)

// DefaultSession is the trace session id of a scenario without one.
const DefaultSession = "test-session"

// dialogTimeout bounds the wait for a dialog answer to come back from the
// driver's goroutine.
const dialogTimeout = 2 * time.Second

var (
	// ErrNoDialog is returned when a dialog step finds nothing to answer.
	ErrNoDialog = errors.New("no dialog pending")
	// ErrLoopClosed is returned when the loop no longer accepts input.
	ErrLoopClosed = errors.New("loop closed")
)

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true if every assertion held.
	Pass bool `json:"pass"`

	// Trace holds every recorded entry, read back from the store.
	Trace []trace.Entry `json:"trace"`

	// Errors contains assertion failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State is the final canonical state.
	State trace.Value `json:"state"`

	// Screens is the final navigation stack, bottom first.
	Screens []string `json:"screens"`
}

// AddError adds an assertion failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Effects returns the effect entries of the trace.
func (r *Result) Effects() []trace.Entry {
	var out []trace.Entry
	for _, e := range r.Trace {
		if e.Kind == trace.KindEffect {
			out = append(out, e)
		}
	}
	return out
}

// Option configures Execute.
type Option func(*options)

type options struct {
	session string
}

// WithSession overrides the scenario's session id.
func WithSession(id string) Option {
	return func(o *options) {
		o.session = id
	}
}

// Run executes a scenario against a fresh in-memory store.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	return Execute(context.Background(), scenario, st)
}

// Execute runs scenario, persisting items and the trace to st, and
// evaluates its assertions.
//
// Execution flow:
//  1. Seed storage, the feed log, peers and the self id from setup
//  2. Mount the root screen and drain the loop
//  3. Run every step, draining the loop after each
//  4. Read the trace back from st and evaluate the assertions
func Execute(ctx context.Context, scenario *Scenario, st *store.Store, opts ...Option) (*Result, error) {
	o := options{session: scenario.Session}
	for _, opt := range opts {
		opt(&o)
	}
	if o.session == "" {
		o.session = DefaultSession
	}

	for k, v := range scenario.Setup.Storage {
		if err := st.SetItem(ctx, k, v); err != nil {
			return nil, fmt.Errorf("seed storage: %w", err)
		}
	}
	last, err := st.LastSeq(ctx, o.session)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	w := newWorld(ctx, st, trace.NewRecorder(o.session,
		trace.WithAppender(ctx, st),
		trace.WithClock(engine.NewClockAt(last)),
	))
	w.seed(scenario.Setup)

	result := &Result{Pass: true}
	switch scenario.Screen {
	case ScreenThread:
		p, err := thread.PropsFrom(scenario.Props)
		if err != nil {
			return nil, err
		}
		result.State, err = execute(w, thread.Module(p), scenario.Steps)
		if err != nil {
			return nil, err
		}
	default:
		result.State, err = execute(w, app.Module, scenario.Steps)
		if err != nil {
			return nil, err
		}
	}
	result.Screens = w.nav.Stack().Screens()

	if result.Trace, err = st.ReadTrace(ctx, o.session); err != nil {
		return nil, err
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// world holds the drivers of one run. Everything but the dialog driver's
// waits runs on the caller's goroutine.
type world struct {
	loop     *engine.Engine
	answers  *testutil.CountingPoster
	bus      *bus.Bus
	host     *ui.Host
	hub      *ssb.Hub
	nav      *nav.Driver
	bridge   *dialog.Bridge
	dialogs  *dialog.Driver
	storage  *storage.Driver
	platform *effect.Recorder
	recorder *trace.Recorder
}

func newWorld(ctx context.Context, st *store.Store, rec *trace.Recorder) *world {
	loop := engine.New()
	answers := testutil.NewCountingPoster(loop)
	bridge := dialog.NewBridge(loop, dialog.WithIDs(testutil.NewSequenceGenerator("dialog")))
	w := &world{
		loop:     loop,
		answers:  answers,
		bus:      bus.New(),
		host:     ui.NewHost(loop),
		hub:      ssb.NewHub(ssb.WithMsgIDs(testutil.NewSequenceGenerator("msg"))),
		nav:      nav.NewDriver(nav.NewStack(nav.Frame{Screen: nav.ScreenCentral})),
		bridge:   bridge,
		dialogs:  dialog.NewDriver(ctx, bridge, answers),
		storage:  storage.NewDriver(ctx, st, loop, loop),
		platform: &effect.Recorder{},
		recorder: rec,
	}
	w.bus.Install(loop)
	return w
}

func (w *world) seed(s Setup) {
	for _, m := range s.Log {
		w.hub.Append(m.msg())
	}
	if s.Peers != nil {
		w.hub.SetPeers(peers(s.Peers))
	}
	if s.Self != "" {
		w.hub.SetSelf(s.Self)
	}
}

func (w *world) drivers() cycle.Drivers {
	return cycle.Drivers{
		Bus:      w.bus,
		UI:       w.host,
		Nav:      w.nav,
		Storage:  w.storage,
		SSB:      w.hub,
		Dialog:   w.dialogs,
		Platform: w.platform,
		Observe:  w.recorder.Effect,
	}
}

func execute[S any](w *world, main cycle.Module[S], steps []Step) (trace.Value, error) {
	st := state.New(state.WithObserver(trace.Observe[S](w.recorder, "")))
	dispose := cycle.Run(main, st, w.drivers())
	defer dispose()

	if err := w.drain(); err != nil {
		return nil, fmt.Errorf("mount: %w", err)
	}
	for i, step := range steps {
		if err := w.step(step); err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	snapshot, ok := st.Snapshot()
	if !ok {
		return trace.Null{}, nil
	}
	return trace.FromAny(snapshot)
}

func (w *world) drain() error {
	_, err := w.loop.Drain()
	return err
}

func (w *world) step(s Step) error {
	switch {
	case s.UI != nil:
		ev, err := uiEvent(s.UI)
		if err != nil {
			return err
		}
		if !w.host.Dispatch(ev) {
			return ErrLoopClosed
		}
	case s.Bus != nil:
		ev, err := busEvent(s.Bus)
		if err != nil {
			return err
		}
		if err := w.bus.Dispatch(ev); err != nil {
			return err
		}
	case s.Back:
		if err := app.Back(w.bus, w.nav); err != nil {
			return err
		}
	case s.Dialog != nil:
		return w.answer(s.Dialog)
	case s.Self != "":
		w.hub.SetSelf(s.Self)
	case s.Append != nil:
		w.hub.Append(s.Append.msg())
	case s.Peers != nil:
		w.hub.SetPeers(peers(s.Peers))
	}
	return w.drain()
}

// answer resolves the pending dialog and waits for the driver to post the
// outcome back to the loop.
func (w *world) answer(d *DialogStep) error {
	before := w.answers.Posts()

	var ok bool
	switch {
	case d.Select != "":
		ok = w.bridge.Select(d.Select)
	case d.Positive != nil:
		w.bridge.SetText(*d.Positive)
		ok = w.bridge.Positive()
	case d.Negative:
		ok = w.bridge.Negative()
	case d.Dismiss:
		ok = w.bridge.Dismiss()
	}
	if !ok {
		return ErrNoDialog
	}

	if err := w.answers.Wait(before+1, dialogTimeout); err != nil {
		return fmt.Errorf("dialog answer: %w", err)
	}
	return w.drain()
}
