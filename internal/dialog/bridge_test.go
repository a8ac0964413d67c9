package dialog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilkecan/manyverse/internal/engine"
	"github.com/ilkecan/manyverse/internal/stream"
)

// syncPoster runs posted tasks immediately on the caller's goroutine.
type syncPoster struct{}

func (syncPoster) Post(fn func()) bool {
	fn()
	return true
}

func newBridge(ids ...string) *Bridge {
	return NewBridge(syncPoster{}, WithIDs(engine.NewFixedGenerator(ids...)))
}

func TestAlert_PositiveResolvesOnce(t *testing.T) {
	b := newBridge("d1")

	d, err := b.Alert("Delete?", "This cannot be undone", Options{PositiveText: "Delete", NegativeText: "Cancel"})
	require.NoError(t, err)

	_, resolved := d.Outcome()
	require.False(t, resolved)

	assert.True(t, b.Positive())
	assert.False(t, b.Positive(), "second resolution is a no-op")
	assert.False(t, b.Dismiss())

	got, ok := d.Outcome()
	require.True(t, ok)
	assert.Equal(t, Outcome{Action: ActionPositive}, got)
}

func TestSecondRequestIsRejected(t *testing.T) {
	b := newBridge("d1", "d2")

	first, err := b.Alert("first", "", Options{})
	require.NoError(t, err)

	second, err := b.Prompt("second", "", Options{})
	assert.ErrorIs(t, err, ErrPending)
	assert.Nil(t, second)

	req, ok := b.Current()
	require.True(t, ok)
	assert.Equal(t, "d1", req.ID)

	b.Negative()
	got, ok := first.Outcome()
	require.True(t, ok)
	assert.Equal(t, ActionNegative, got.Action)

	// Idle again: the next request is accepted.
	_, err = b.Alert("third", "", Options{})
	assert.NoError(t, err)
}

func TestPrompt_PositiveCarriesText(t *testing.T) {
	b := newBridge("d1")

	d, err := b.Prompt("Name", "", Options{DefaultValue: "anon"})
	require.NoError(t, err)

	b.SetText("alice")
	b.Positive()

	got, _ := d.Outcome()
	assert.Equal(t, Outcome{Action: ActionPositive, Text: "alice"}, got)
}

func TestPicker_Select(t *testing.T) {
	b := newBridge("d1")
	items := []Item{{ID: "a", Label: "Apple"}, {ID: "b", Label: "Banana"}}

	d, err := b.ShowPicker("Fruit", "", Options{Items: items})
	require.NoError(t, err)
	b.Select("b")

	got, _ := d.Outcome()
	assert.Equal(t, ActionSelect, got.Action)
	require.NotNil(t, got.Selected)
	assert.Equal(t, Item{ID: "b", Label: "Banana"}, *got.Selected)
}

func TestSelect_OnlyAnswersPickerItems(t *testing.T) {
	b := newBridge("d1", "d2")

	alert, err := b.Alert("Hi", "", Options{})
	require.NoError(t, err)
	assert.False(t, b.Select("ok"), "an alert is not a picker")
	_, ok := alert.Outcome()
	assert.False(t, ok)
	require.True(t, b.Dismiss())

	picker, err := b.ShowPicker("Fruit", "", Options{Items: []Item{{ID: "a", Label: "Apple"}}})
	require.NoError(t, err)
	assert.False(t, b.Select("z"), "unknown items are ignored")
	_, ok = picker.Outcome()
	assert.False(t, ok)

	assert.True(t, b.Select("a"))
	got, ok := picker.Outcome()
	require.True(t, ok)
	assert.Equal(t, Item{ID: "a", Label: "Apple"}, *got.Selected)
}

func TestDismissWithNothingPending(t *testing.T) {
	b := newBridge()
	assert.False(t, b.Dismiss())
	assert.False(t, b.Select("x"))
}

func TestViews_TrackTransitions(t *testing.T) {
	b := newBridge("d1")
	var views []View
	b.Views().Subscribe(stream.Listener[View]{Next: func(v View) { views = append(views, v) }})

	_, err := b.Prompt("Name", "", Options{})
	require.NoError(t, err)
	b.SetText("bo")
	b.Dismiss()

	require.Len(t, views, 4)
	assert.False(t, views[0].Showing)
	assert.True(t, views[1].Showing)
	assert.Equal(t, KindPrompt, views[1].Request.Kind)
	assert.Equal(t, "bo", views[2].TextInput)
	assert.Equal(t, View{}, views[3])
}

func TestViews_ReplayCurrentToLateListener(t *testing.T) {
	b := newBridge("d1")
	var seen []View
	b.Views().Subscribe(stream.Listener[View]{Next: func(v View) { seen = append(seen, v) }})

	_, err := b.Alert("hi", "", Options{})
	require.NoError(t, err)

	var late []View
	b.Views().Subscribe(stream.Listener[View]{Next: func(v View) { late = append(late, v) }})

	require.Len(t, seen, 2)
	assert.False(t, seen[0].Showing)
	assert.True(t, seen[1].Showing)
	require.Len(t, late, 1)
	assert.Equal(t, "d1", late[0].Request.ID)
}

func TestDeferred_WaitHonorsContext(t *testing.T) {
	b := newBridge("d1")
	d, err := b.Alert("hi", "", Options{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = d.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	go b.Positive()
	got, err := d.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ActionPositive, got.Action)
}

func TestDriver_RoutesOutcomesByCategory(t *testing.T) {
	loop := engine.New()
	b := NewBridge(loop, WithIDs(engine.NewFixedGenerator("d1")))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	drv := NewDriver(ctx, b, loop)

	var mine, other []Outcome
	drv.Source().Select("remove-peer").Subscribe(stream.Listener[Outcome]{Next: func(o Outcome) { mine = append(mine, o) }})
	drv.Source().Select("something-else").Subscribe(stream.Listener[Outcome]{Next: func(o Outcome) { other = append(other, o) }})

	cmds := stream.NewSubject[Command]()
	drv.Consume(cmds.Stream)
	cmds.Next(Command{Category: "remove-peer", Kind: KindAlert, Title: "Remove?"})

	_, ok := b.Current()
	require.True(t, ok)
	b.Negative()

	require.Eventually(t, func() bool {
		_, err := loop.Drain()
		return err == nil && len(mine) == 1
	}, time.Second, time.Millisecond)

	assert.Equal(t, ActionNegative, mine[0].Action)
	assert.Empty(t, other)
}
