package tabs

import (
	"slices"

	"github.com/ilkecan/manyverse/internal/cycle"
	"github.com/ilkecan/manyverse/internal/dialog"
	"github.com/ilkecan/manyverse/internal/effect"
	"github.com/ilkecan/manyverse/internal/nav"
	"github.com/ilkecan/manyverse/internal/ssb"
	"github.com/ilkecan/manyverse/internal/state"
	"github.com/ilkecan/manyverse/internal/stream"
)

// PeerOptions is the dialog category of the peer menu.
const PeerOptions = "peer-options"

// Peer menu items.
const (
	PeerOpenProfile = "open-profile"
	PeerShareID     = "share-id"
	PeerForget      = "forget"
)

// ConnectionsHelpURL is opened by the help button.
const ConnectionsHelpURL = "https://www.manyver.se/faq/connections"

// ConnectionsState is the connections tab slice. Selected is the peer whose
// menu is open.
type ConnectionsState struct {
	SelfFeedID string       `json:"selfFeedId,omitempty"`
	Peers      []ssb.Peer   `json:"peers,omitempty"`
	Forgotten  []ssb.FeedID `json:"forgotten,omitempty"`
	Selected   ssb.FeedID   `json:"selected,omitempty"`
}

// Visible returns the peers not forgotten by the user.
func (s ConnectionsState) Visible() []ssb.Peer {
	var out []ssb.Peer
	for _, p := range s.Peers {
		if !slices.Contains(s.Forgotten, p.Key) {
			out = append(out, p)
		}
	}
	return out
}

func peerMenu(p ssb.Peer) dialog.Command {
	return dialog.Command{
		Category: PeerOptions,
		Kind:     dialog.KindPicker,
		Title:    p.Key,
		Options: dialog.Options{Items: []dialog.Item{
			{ID: PeerOpenProfile, Label: "Open profile"},
			{ID: PeerShareID, Label: "Share id"},
			{ID: PeerForget, Label: "Forget"},
		}},
	}
}

// Connections is the peers tab.
func Connections(in Inputs) cycle.Module[ConnectionsState] {
	return func(src cycle.Sources[ConnectionsState]) cycle.Sinks[ConnectionsState] {
		pressPeer := payload[ssb.Peer](src.UI.Select("peers").Events("pressPeer"))
		help := stream.Merge(
			stream.MapTo(src.UI.Select("help").Events("press"), struct{}{}),
			stream.MapTo(stream.Filter(in.fab(), func(id string) bool { return id == FabHelp }), struct{}{}),
		)
		inviteShare := stream.Filter(in.fab(), func(id string) bool { return id == FabInviteShare })

		picked := stream.FilterMap(stream.SampleCombine(src.Services.Dialog.Select(PeerOptions), src.State),
			func(p stream.Pair[dialog.Outcome, ConnectionsState]) (stream.Pair[string, ssb.FeedID], bool) {
				if p.First.Action != dialog.ActionSelect || p.First.Selected == nil || p.Second.Selected == "" {
					return stream.Pair[string, ssb.FeedID]{}, false
				}
				return stream.Pair[string, ssb.FeedID]{First: p.First.Selected.ID, Second: p.Second.Selected}, true
			})
		choice := func(id string) *stream.Stream[ssb.FeedID] {
			return stream.FilterMap(picked, func(p stream.Pair[string, ssb.FeedID]) (ssb.FeedID, bool) {
				return p.Second, p.First == id
			})
		}
		forget := choice(PeerForget)

		reducers := stream.Merge(
			initial(ConnectionsState{}),
			stream.Map(src.Services.SSB.SelfFeedID(), func(id ssb.FeedID) state.Reducer[ConnectionsState] {
				return func(prev ConnectionsState, _ bool) ConnectionsState {
					prev.SelfFeedID = id
					return prev
				}
			}),
			stream.Map(src.Services.SSB.Peers(), func(peers []ssb.Peer) state.Reducer[ConnectionsState] {
				return func(prev ConnectionsState, _ bool) ConnectionsState {
					prev.Peers = slices.Clone(peers)
					return prev
				}
			}),
			stream.Map(pressPeer, func(p ssb.Peer) state.Reducer[ConnectionsState] {
				return func(prev ConnectionsState, _ bool) ConnectionsState {
					prev.Selected = p.Key
					return prev
				}
			}),
			stream.Map(forget, func(id ssb.FeedID) state.Reducer[ConnectionsState] {
				return func(prev ConnectionsState, _ bool) ConnectionsState {
					if !slices.Contains(prev.Forgotten, id) {
						prev.Forgotten = append(slices.Clone(prev.Forgotten), id)
					}
					prev.Selected = ""
					return prev
				}
			}),
		)

		shareSelf := stream.FilterMap(stream.SampleCombine(inviteShare, src.State),
			func(p stream.Pair[string, ConnectionsState]) (effect.ShareMsg, bool) {
				if p.Second.SelfFeedID == "" {
					return effect.ShareMsg{}, false
				}
				return effect.ShareMsg{Title: "My Manyverse id", Message: p.Second.SelfFeedID}, true
			})
		sharePeer := stream.Map(choice(PeerShareID), func(id ssb.FeedID) effect.ShareMsg {
			return effect.ShareMsg{Title: "Manyverse id", Message: id}
		})

		return cycle.Sinks[ConnectionsState]{
			Render: view(src.UI.Namespace(), "connectionsTab", src.State, func(s ConnectionsState) map[string]any {
				return map[string]any{"peers": s.Visible()}
			}),
			State: reducers,
			Effects: effect.Buckets{
				Navigation: stream.Map(choice(PeerOpenProfile), func(id ssb.FeedID) nav.Command {
					return nav.Command{Type: nav.Push, Screen: nav.ScreenProfile, Props: map[string]any{"feedId": id}}
				}),
				Toast:   stream.MapTo(forget, effect.ToastMsg{Message: "Connection forgotten", Duration: effect.Short}),
				Linking: stream.MapTo(help, ConnectionsHelpURL),
				Share:   stream.Merge(shareSelf, sharePeer),
				Dialog:  stream.Map(pressPeer, peerMenu),
			},
			Scope: src.UI.Namespace(),
		}
	}
}
