package cycle

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilkecan/manyverse/internal/bus"
	"github.com/ilkecan/manyverse/internal/effect"
	"github.com/ilkecan/manyverse/internal/lens"
	"github.com/ilkecan/manyverse/internal/scope"
	"github.com/ilkecan/manyverse/internal/state"
	"github.com/ilkecan/manyverse/internal/stream"
	"github.com/ilkecan/manyverse/internal/ui"
)

type syncPoster struct{}

func (syncPoster) Post(fn func()) bool {
	fn()
	return true
}

type counter struct {
	N int
}

type pair struct {
	Left  counter
	Right counter
}

var (
	leftLens  = lens.New(func(p pair) counter { return p.Left }, func(p pair, c counter) pair { p.Left = c; return p })
	rightLens = lens.New(func(p pair) counter { return p.Right }, func(p pair, c counter) pair { p.Right = c; return p })
)

// counterModule increments on "inc" presses and toasts its namespace.
func counterModule(src Sources[counter]) Sinks[counter] {
	inc := src.UI.Select("inc").Events("press")
	ns := src.UI.Namespace()
	return Sinks[counter]{
		Render: stream.Map(src.State, func(c counter) ui.Render { return fmt.Sprintf("%s=%d", ns, c.N) }),
		State: stream.MapTo(inc, state.Reducer[counter](func(prev counter, _ bool) counter {
			prev.N++
			return prev
		})),
		Effects: effect.Buckets{
			Toast: stream.MapTo(inc, effect.ToastMsg{Message: ns, Duration: effect.Short}),
		},
	}
}

func pairModule(src Sources[pair]) Sinks[pair] {
	left := Isolate(counterModule, Scope[pair, counter]{Name: "left", Lens: leftLens})(src)
	right := Isolate(counterModule, Scope[pair, counter]{Name: "right", Lens: rightLens})(src)
	return Sinks[pair]{
		State:   stream.Merge(left.State, right.State),
		Effects: effect.Merge(left.Effects, right.Effects),
	}
}

type recordingPlatform struct {
	effect.LogPlatform
	toasts []string
	exits  int
}

func (p *recordingPlatform) Toast(m effect.ToastMsg) { p.toasts = append(p.toasts, m.Message) }
func (p *recordingPlatform) Exit()                   { p.exits++ }

func press(h *ui.Host, sel string) {
	h.Dispatch(ui.Event{Selector: sel, Type: "press"})
}

func TestIsolate_SiblingStateAndEvents(t *testing.T) {
	host := ui.NewHost(syncPoster{})
	store := state.New(state.WithInitial(pair{}))
	platform := &recordingPlatform{}

	dispose := Run(pairModule, store, Drivers{UI: host, Platform: platform})
	defer dispose()

	press(host, "left/inc")
	press(host, "left/inc")
	press(host, "right/inc")
	press(host, "elsewhere/inc")

	got, _ := store.Snapshot()
	assert.Equal(t, pair{Left: counter{N: 2}, Right: counter{N: 1}}, got)
	assert.Equal(t, []string{"left", "left", "right"}, platform.toasts)
}

func TestIsolate_ChildSeesOnlyItsSlice(t *testing.T) {
	store := state.New(state.WithInitial(pair{Left: counter{N: 4}, Right: counter{N: 9}}))
	var seen []counter

	spy := func(src Sources[counter]) Sinks[counter] {
		src.State.Subscribe(stream.Listener[counter]{Next: func(c counter) { seen = append(seen, c) }})
		return Sinks[counter]{}
	}
	root := func(src Sources[pair]) Sinks[pair] {
		return Isolate(spy, Scope[pair, counter]{Name: "right", Lens: rightLens})(src)
	}

	Run(root, store, Drivers{})
	assert.Equal(t, []counter{{N: 9}}, seen)
}

func TestIsolate_DuplicateScopeIsNotMounted(t *testing.T) {
	host := ui.NewHost(syncPoster{})
	store := state.New(state.WithInitial(pair{}))
	mounted := 0
	counting := func(src Sources[counter]) Sinks[counter] {
		mounted++
		return counterModule(src)
	}

	root := func(src Sources[pair]) Sinks[pair] {
		first := Isolate(counting, Scope[pair, counter]{Name: "tab", Lens: leftLens})(src)
		second := Isolate(counting, Scope[pair, counter]{Name: "tab", Lens: rightLens})(src)
		bad := Isolate(counting, Scope[pair, counter]{Name: "a/b", Lens: rightLens})(src)
		assert.Nil(t, second.State)
		assert.Nil(t, bad.State)
		return Sinks[pair]{State: stream.Merge(first.State, second.State, bad.State)}
	}

	Run(root, store, Drivers{UI: host})
	press(host, "tab/inc")

	assert.Equal(t, 1, mounted)
	got, _ := store.Snapshot()
	assert.Equal(t, pair{Left: counter{N: 1}}, got, "the right slice is never written")
}

func TestWiringError_Codes(t *testing.T) {
	dup := newWiringError("tab", "central", fmt.Errorf("claim: %w", scope.ErrDuplicateScope))
	assert.Equal(t, ErrCodeDuplicateScope, dup.Code)
	assert.ErrorIs(t, dup, scope.ErrDuplicateScope)
	assert.Contains(t, dup.Error(), "DUPLICATE_SCOPE")

	invalid := newWiringError("", "central", scope.ErrInvalidScope)
	assert.Equal(t, ErrCodeInvalidScope, invalid.Code)
}

type deep struct {
	Outer pair
	Other int
}

func TestIsolate_Nested(t *testing.T) {
	host := ui.NewHost(syncPoster{})
	outerLens := lens.New(func(d deep) pair { return d.Outer }, func(d deep, p pair) deep { d.Outer = p; return d })
	store := state.New(state.WithInitial(deep{Other: 5}))

	root := func(src Sources[deep]) Sinks[deep] {
		return Isolate(pairModule, Scope[deep, pair]{Name: "outer", Lens: outerLens})(src)
	}
	Run(root, store, Drivers{UI: host})

	press(host, "outer/right/inc")
	press(host, "right/inc")
	press(host, "outer/inc")

	got, _ := store.Snapshot()
	assert.Equal(t, deep{Outer: pair{Right: counter{N: 1}}, Other: 5}, got)
}

func TestRun_RenderObserveAndDispose(t *testing.T) {
	host := ui.NewHost(syncPoster{})
	b := bus.New()
	b.Install(syncPoster{})
	store := state.New[counter]()
	exits := stream.NewSubject[effect.ExitMsg]()
	platform := &recordingPlatform{}
	var emissions []effect.Emission

	root := func(src Sources[counter]) Sinks[counter] {
		inner := Isolate(counterModule, Scope[counter, counter]{Name: "only", Lens: lens.Identity[counter]()})(src)
		inner.Effects.Exit = exits.Stream
		inner.Effects.Bus = stream.MapTo(src.UI.Select("only/inc").Events("press"), bus.Event(bus.ScrollToTop(bus.TabPublic)))
		return inner
	}

	var events []bus.Event
	b.Stream().Subscribe(stream.Listener[bus.Event]{Next: func(ev bus.Event) { events = append(events, ev) }})

	dispose := Run(root, store, Drivers{
		UI:       host,
		Bus:      b,
		Platform: platform,
		Observe:  func(e effect.Emission) { emissions = append(emissions, e) },
	})

	press(host, "only/inc")
	exits.Next(effect.ExitMsg{})

	r, frames := host.Latest()
	assert.Equal(t, "only=1", r)
	assert.Equal(t, 1, frames, "no render before state exists")
	assert.Equal(t, 1, platform.exits)
	assert.Equal(t, []bus.Event{bus.ScrollToTop(bus.TabPublic)}, events)

	require.Len(t, emissions, 3)
	assert.Equal(t, effect.Emission{Scope: "only", Bucket: effect.Toast, Value: effect.ToastMsg{Message: "only", Duration: effect.Short}}, emissions[0])
	assert.Equal(t, effect.Bus, emissions[1].Bucket)
	assert.Equal(t, effect.Exit, emissions[2].Bucket)

	dispose()
	assert.False(t, exits.Active(), "dispose cascades to every sink")
	assert.True(t, b.Prepared(), "the bus survives dispose")

	press(host, "only/inc")
	got, _ := store.Snapshot()
	assert.Equal(t, counter{N: 1}, got)
}

func TestRun_ObserveAttributesNestedScopes(t *testing.T) {
	host := ui.NewHost(syncPoster{})
	var emissions []effect.Emission

	outer := lens.New(func(w struct{ P pair }) pair { return w.P }, func(w struct{ P pair }, p pair) struct{ P pair } { w.P = p; return w })
	root := Isolate(pairModule, Scope[struct{ P pair }, pair]{Name: "pair", Lens: outer})
	whole := state.New(state.WithInitial(struct{ P pair }{}))

	dispose := Run(root, whole, Drivers{
		UI:      host,
		Observe: func(e effect.Emission) { emissions = append(emissions, e) },
	})
	defer dispose()

	press(host, "pair/right/inc")
	press(host, "pair/left/inc")

	require.Len(t, emissions, 2)
	assert.Equal(t, "pair/right", emissions[0].Scope)
	assert.Equal(t, effect.ToastMsg{Message: "pair/right", Duration: effect.Short}, emissions[0].Value)
	assert.Equal(t, "pair/left", emissions[1].Scope)
}

func TestRun_LogsMountedModulesAndBuckets(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
	var buf bytes.Buffer
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	dispose := Run(pairModule, state.New(state.WithInitial(pair{})), Drivers{UI: ui.NewHost(syncPoster{})})
	dispose()

	var mounted struct {
		Msg     string   `json:"msg"`
		Modules []string `json:"modules"`
		Buckets []string `json:"buckets"`
	}
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		require.NoError(t, json.Unmarshal(line, &mounted))
		if mounted.Msg == "app mounted" {
			break
		}
	}
	require.Equal(t, "app mounted", mounted.Msg)
	assert.Equal(t, []string{"left", "right"}, mounted.Modules)
	assert.Equal(t, []string{effect.Toast}, mounted.Buckets)
}
