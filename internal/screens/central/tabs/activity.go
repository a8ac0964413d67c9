package tabs

import (
	"github.com/ilkecan/manyverse/internal/cycle"
	"github.com/ilkecan/manyverse/internal/effect"
	"github.com/ilkecan/manyverse/internal/nav"
	"github.com/ilkecan/manyverse/internal/ssb"
	"github.com/ilkecan/manyverse/internal/state"
	"github.com/ilkecan/manyverse/internal/stream"
)

// ActivityState is the activity tab slice.
type ActivityState struct {
	NumOfUpdates int `json:"numOfUpdates"`
}

// isActivity reports messages shown in the activity tab: votes and
// follows. Private messages live in the private tab.
func isActivity(m ssb.Msg) bool {
	switch contentType(m) {
	case "vote", "contact":
		return !isPrivate(m)
	}
	return false
}

// Activity is the notifications tab. It has no action button.
func Activity(in Inputs) cycle.Module[ActivityState] {
	return func(src cycle.Sources[ActivityState]) cycle.Sinks[ActivityState] {
		list := src.UI.Select("activity")
		openMessage := payload[ssb.MsgID](list.Events("pressMsg"))
		openProfile := payload[ssb.FeedID](list.Events("pressAuthor"))

		reducers := stream.Merge(
			initial(ActivityState{}),
			stream.MapTo(othersMessages(src.Services.SSB, isActivity), state.Reducer[ActivityState](func(prev ActivityState, _ bool) ActivityState {
				prev.NumOfUpdates++
				return prev
			})),
			stream.MapTo(in.scrollToTop(), state.Reducer[ActivityState](func(prev ActivityState, _ bool) ActivityState {
				prev.NumOfUpdates = 0
				return prev
			})),
		)

		navigation := stream.Merge(
			stream.Map(openMessage, func(id ssb.MsgID) nav.Command {
				return nav.Command{Type: nav.Push, Screen: nav.ScreenThread, Props: map[string]any{"rootMsgId": id}}
			}),
			stream.Map(openProfile, func(id ssb.FeedID) nav.Command {
				return nav.Command{Type: nav.Push, Screen: nav.ScreenProfile, Props: map[string]any{"feedId": id}}
			}),
		)

		return cycle.Sinks[ActivityState]{
			Render: view(src.UI.Namespace(), "activityTab", src.State, func(s ActivityState) map[string]any {
				return map[string]any{"numOfUpdates": s.NumOfUpdates}
			}),
			State:   reducers,
			Effects: effect.Buckets{Navigation: navigation},
			Scope:   src.UI.Namespace(),
		}
	}
}
