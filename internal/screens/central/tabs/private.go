package tabs

import (
	"slices"

	"github.com/ilkecan/manyverse/internal/cycle"
	"github.com/ilkecan/manyverse/internal/effect"
	"github.com/ilkecan/manyverse/internal/nav"
	"github.com/ilkecan/manyverse/internal/ssb"
	"github.com/ilkecan/manyverse/internal/state"
	"github.com/ilkecan/manyverse/internal/stream"
)

// PrivateState is the private tab slice. Conversations holds root message
// ids, most recently active first.
type PrivateState struct {
	NumOfUpdates  int         `json:"numOfUpdates"`
	Conversations []ssb.MsgID `json:"conversations,omitempty"`
}

// conversationRoot is the root of the conversation m belongs to.
func conversationRoot(m ssb.Msg) ssb.MsgID {
	if root, ok := m.Content["root"].(string); ok && root != "" {
		return root
	}
	return m.Key
}

func bumpConversation(prev PrivateState, root ssb.MsgID) PrivateState {
	convs := make([]ssb.MsgID, 0, len(prev.Conversations)+1)
	convs = append(convs, root)
	for _, c := range prev.Conversations {
		if c != root {
			convs = append(convs, c)
		}
	}
	prev.Conversations = convs
	return prev
}

// Private is the private messages tab.
func Private(in Inputs) cycle.Module[PrivateState] {
	return func(src cycle.Sources[PrivateState]) cycle.Sinks[PrivateState] {
		openConversation := payload[ssb.MsgID](src.UI.Select("conversations").Events("pressConversation"))
		compose := stream.Filter(in.fab(), func(id string) bool { return id == FabComposePrivate })
		incoming := othersMessages(src.Services.SSB, isPrivate)

		reducers := stream.Merge(
			initial(PrivateState{}),
			stream.Map(incoming, func(m ssb.Msg) state.Reducer[PrivateState] {
				return func(prev PrivateState, _ bool) PrivateState {
					prev.NumOfUpdates++
					return bumpConversation(prev, conversationRoot(m))
				}
			}),
			stream.MapTo(in.scrollToTop(), state.Reducer[PrivateState](func(prev PrivateState, _ bool) PrivateState {
				prev.NumOfUpdates = 0
				return prev
			})),
		)

		navigation := stream.Merge(
			stream.Map(openConversation, func(root ssb.MsgID) nav.Command {
				return nav.Command{Type: nav.Push, Screen: nav.ScreenThread, Props: map[string]any{"rootMsgId": root, "private": true}}
			}),
			stream.MapTo(compose, nav.Command{Type: nav.Push, Screen: nav.ScreenCompose, Props: map[string]any{"private": true}}),
		)

		return cycle.Sinks[PrivateState]{
			Render: view(src.UI.Namespace(), "privateTab", src.State, func(s PrivateState) map[string]any {
				return map[string]any{"numOfUpdates": s.NumOfUpdates, "conversations": slices.Clone(s.Conversations)}
			}),
			State:   reducers,
			Effects: effect.Buckets{Navigation: navigation},
			Scope:   src.UI.Namespace(),
		}
	}
}
