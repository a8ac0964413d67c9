package harness

import (
	"fmt"

	"github.com/ilkecan/manyverse/internal/bus"
	"github.com/ilkecan/manyverse/internal/ssb"
	"github.com/ilkecan/manyverse/internal/ui"
)

// UI payload types.
const (
	payloadString   = "string"
	payloadTab      = "tab"
	payloadReaction = "reaction"
	payloadPeer     = "peer"
	payloadNone     = "none"
)

// uiEvent converts s to the event the UI would dispatch. Modules match
// payloads by Go type, so the YAML payload is decoded into the type As
// names.
func uiEvent(s *UIStep) (ui.Event, error) {
	ev := ui.Event{Selector: s.Selector, Type: s.Type}
	if s.Payload.Kind == 0 || s.As == payloadNone {
		return ev, nil
	}

	var err error
	switch s.As {
	case "", payloadString:
		var v string
		err = s.Payload.Decode(&v)
		ev.Payload = v
	case payloadTab:
		var v string
		err = s.Payload.Decode(&v)
		ev.Payload = bus.Tab(v)
	case payloadReaction:
		var v ssb.Reaction
		err = s.Payload.Decode(&v)
		ev.Payload = v
	case payloadPeer:
		var v Peer
		err = s.Payload.Decode(&v)
		ev.Payload = v.peer()
	}
	if err != nil {
		return ui.Event{}, fmt.Errorf("ui %s %s payload: %w", s.Selector, s.Type, err)
	}
	return ev, nil
}

// busEvent converts s to a bus event.
func busEvent(s *BusStep) (bus.Event, error) {
	switch s.Type {
	case bus.LocalizationLoaded{}.Type():
		return bus.LocalizationLoaded{}, nil
	case bus.TriggerFeedCypherlink{}.Type():
		return bus.TriggerFeedCypherlink{FeedID: s.FeedID}, nil
	case bus.TriggerMsgCypherlink{}.Type():
		return bus.TriggerMsgCypherlink{MsgID: s.MsgID}, nil
	case bus.TriggerHashtagLink{}.Type():
		return bus.TriggerHashtagLink{Hashtag: s.Hashtag}, nil
	case bus.HardwareBackOnCentralScreen{}.Type():
		return bus.HardwareBackOnCentralScreen{}, nil
	case bus.DrawerToggleOnCentralScreen{}.Type():
		return bus.DrawerToggleOnCentralScreen{Open: s.Open}, nil
	case bus.AudioBlobComposed{}.Type():
		return bus.AudioBlobComposed{BlobID: s.BlobID}, nil
	case bus.CentralScreenUpdate{}.Type():
		return bus.CentralScreenUpdate{Subtype: s.Subtype, Tab: bus.Tab(s.Tab)}, nil
	}
	return nil, fmt.Errorf("unknown bus event %q", s.Type)
}

func (m Msg) msg() ssb.Msg {
	return ssb.Msg{
		Key:       m.Key,
		Author:    m.Author,
		Sequence:  m.Sequence,
		Timestamp: m.Timestamp,
		Content:   ssb.Content(m.Content),
	}
}

func (p Peer) peer() ssb.Peer {
	return ssb.Peer{Address: p.Address, Key: p.Key, Kind: p.Kind, State: p.State}
}

func peers(ps []Peer) []ssb.Peer {
	out := make([]ssb.Peer, len(ps))
	for i, p := range ps {
		out[i] = p.peer()
	}
	return out
}
