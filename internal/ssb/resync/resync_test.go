package resync

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ilkecan/manyverse/internal/ssb"
)

type recordingFirewall struct {
	calls []bool
}

func (f *recordingFirewall) Reconfigure(rejectUnknown bool) {
	f.calls = append(f.calls, rejectUnknown)
}

func TestWatch_EmptyFeedRelaxesUntilFirstOwnMessage(t *testing.T) {
	hub := ssb.NewHub()
	hub.Append(ssb.Msg{Author: "@friend"})
	fw := &recordingFirewall{}

	g := Watch(hub.Source(), fw, true)
	defer g.Unsubscribe()

	assert.Empty(t, fw.calls, "nothing happens before the self id is known")

	hub.SetSelf("@me")
	assert.Equal(t, []bool{false}, fw.calls)

	hub.Append(ssb.Msg{Author: "@friend"})
	assert.Equal(t, []bool{false}, fw.calls)

	hub.Append(ssb.Msg{Author: "@me"})
	hub.Append(ssb.Msg{Author: "@me"})
	assert.Equal(t, []bool{false, true}, fw.calls)
}

func TestWatch_NotResyncing(t *testing.T) {
	hub := ssb.NewHub()
	hub.Append(ssb.Msg{Author: "@me"})
	hub.SetSelf("@me")
	fw := &recordingFirewall{}

	g := Watch(hub.Source(), fw, true)
	defer g.Unsubscribe()

	assert.Empty(t, fw.calls)
}

func TestWatch_ClockErrorIsIgnored(t *testing.T) {
	hub := ssb.NewHub()
	hub.FailVectorClock(errors.New("db closed"))
	hub.SetSelf("@me")
	fw := &recordingFirewall{}

	g := Watch(hub.Source(), fw, false)
	defer g.Unsubscribe()

	hub.Append(ssb.Msg{Author: "@me"})
	assert.Empty(t, fw.calls)
}

func TestWatch_UnsubscribeStops(t *testing.T) {
	hub := ssb.NewHub()
	hub.SetSelf("@me")
	fw := &recordingFirewall{}

	g := Watch(hub.Source(), fw, true)
	assert.Equal(t, []bool{false}, fw.calls)

	g.Unsubscribe()
	hub.Append(ssb.Msg{Author: "@me"})
	assert.Equal(t, []bool{false}, fw.calls)
}
