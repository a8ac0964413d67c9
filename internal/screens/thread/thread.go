package thread

import (
	"github.com/ilkecan/manyverse/internal/cycle"
	"github.com/ilkecan/manyverse/internal/effect"
	"github.com/ilkecan/manyverse/internal/nav"
	"github.com/ilkecan/manyverse/internal/ssb"
	"github.com/ilkecan/manyverse/internal/stream"
	"github.com/ilkecan/manyverse/internal/ui"
)

// Module is the thread screen for p.
func Module(p Props) cycle.Module[State] {
	return func(src cycle.Sources[State]) cycle.Sinks[State] {
		a := intent(p, src.UI, src.Services.SSB.PublishResults(), src.State)

		requests := stream.Merge(
			stream.Map(a.react, ssb.ToVoteContent),
			stream.Map(a.publish, replyContent),
		)

		return cycle.Sinks[State]{
			Render: stream.Map(src.State, func(s State) ui.Render {
				return ui.Node{Kind: "thread", Sel: src.UI.Namespace(), Props: map[string]any{
					"rootMsgId":  s.RootMsgID,
					"loaded":     s.Loaded,
					"messages":   len(s.Messages),
					"unread":     s.Unread(),
					"replyText":  s.ReplyText,
					"canPublish": s.CanPublish(),
				}}
			}),
			State: model(p, src.Services.SSB, a),
			Effects: effect.Buckets{
				Navigation: stream.Merge(
					stream.Map(a.openProfile, func(id ssb.FeedID) nav.Command {
						return nav.Command{Type: nav.Push, Screen: nav.ScreenProfile, Props: map[string]any{
							"selfFeedId": p.SelfFeedID,
							"feedId":     id,
						}}
					}),
					stream.MapTo(a.goBack, nav.Command{Type: nav.Pop}),
				),
				Toast: stream.MapTo(a.replyFailed, effect.ToastMsg{Message: "Could not publish the reply", Duration: effect.Long}),
				SSB:   stream.Map(requests, ssb.ContentToPublishReq),
			},
			Scope: src.UI.Namespace(),
		}
	}
}
