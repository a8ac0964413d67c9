package global

import (
	"github.com/ilkecan/manyverse/internal/bus"
	"github.com/ilkecan/manyverse/internal/nav"
	"github.com/ilkecan/manyverse/internal/stream"
)

type actions struct {
	goToProfile *stream.Stream[string]
	goToThread  *stream.Stream[string]
	goToSearch  *stream.Stream[string]
}

func intent(events *stream.Stream[bus.Event]) actions {
	return actions{
		goToProfile: stream.FilterMap(events, func(ev bus.Event) (string, bool) {
			t, ok := ev.(bus.TriggerFeedCypherlink)
			return t.FeedID, ok
		}),
		goToThread: stream.FilterMap(events, func(ev bus.Event) (string, bool) {
			t, ok := ev.(bus.TriggerMsgCypherlink)
			return t.MsgID, ok
		}),
		goToSearch: stream.FilterMap(events, func(ev bus.Event) (string, bool) {
			t, ok := ev.(bus.TriggerHashtagLink)
			return t.Hashtag, ok
		}),
	}
}

// navigation pushes screens only once the self feed is known; earlier
// requests are dropped.
func navigation(a actions, st *stream.Stream[State]) *stream.Stream[nav.Command] {
	ready := func(p stream.Pair[string, State]) bool { return p.Second.SelfFeedID != "" }

	toProfile := stream.Map(stream.Filter(stream.SampleCombine(a.goToProfile, st), ready),
		func(p stream.Pair[string, State]) nav.Command {
			return nav.Command{Type: nav.Push, Screen: nav.ScreenProfile, Props: map[string]any{
				"selfFeedId":    p.Second.SelfFeedID,
				"selfAvatarUrl": p.Second.SelfAvatarURL,
				"feedId":        p.First,
			}}
		})

	toThread := stream.Map(stream.Filter(stream.SampleCombine(a.goToThread, st), ready),
		func(p stream.Pair[string, State]) nav.Command {
			return nav.Command{Type: nav.Push, Screen: nav.ScreenThread, Props: map[string]any{
				"selfFeedId":           p.Second.SelfFeedID,
				"selfAvatarUrl":        p.Second.SelfAvatarURL,
				"rootMsgId":            p.First,
				"lastSessionTimestamp": p.Second.LastSession(),
			}}
		})

	toSearch := stream.Map(stream.Filter(stream.SampleCombine(a.goToSearch, st), ready),
		func(p stream.Pair[string, State]) nav.Command {
			return nav.Command{Type: nav.Push, Screen: nav.ScreenSearch, Props: map[string]any{
				"selfFeedId":           p.Second.SelfFeedID,
				"selfAvatarUrl":        p.Second.SelfAvatarURL,
				"lastSessionTimestamp": p.Second.LastSession(),
				"query":                p.First,
			}}
		})

	return stream.Merge(toProfile, toThread, toSearch)
}
