package thread

import (
	"github.com/ilkecan/manyverse/internal/ssb"
	"github.com/ilkecan/manyverse/internal/stream"
	"github.com/ilkecan/manyverse/internal/ui"
)

type actions struct {
	changeText     *stream.Stream[string]
	publish        *stream.Stream[State]
	react          *stream.Stream[ssb.Reaction]
	openProfile    *stream.Stream[ssb.FeedID]
	goBack         *stream.Stream[struct{}]
	replyPublished *stream.Stream[ssb.PublishResult]
	replyFailed    *stream.Stream[ssb.PublishResult]
}

func payload[T any](events *stream.Stream[ui.Event]) *stream.Stream[T] {
	return stream.FilterMap(events, func(ev ui.Event) (T, bool) {
		v, ok := ev.Payload.(T)
		return v, ok
	})
}

// ownReply reports whether res answers a reply this thread sent.
func ownReply(res ssb.PublishResult, root ssb.MsgID) bool {
	c := res.Req.Content
	t, _ := c["type"].(string)
	r, _ := c["root"].(string)
	return t == "post" && r == root
}

func intent(p Props, src ui.Source, results *stream.Stream[ssb.PublishResult], st *stream.Stream[State]) actions {
	feed := src.Select("feed")
	press := src.Select("replyButton").Events("press")

	publish := stream.FilterMap(stream.SampleCombine(press, st), func(pr stream.Pair[ui.Event, State]) (State, bool) {
		return pr.Second, pr.Second.CanPublish()
	})

	mine := stream.Filter(results, func(res ssb.PublishResult) bool { return ownReply(res, p.RootMsgID) })

	return actions{
		changeText:  payload[string](src.Select("replyInput").Events("changeText")),
		publish:     publish,
		react:       payload[ssb.Reaction](feed.Events("react")),
		openProfile: payload[ssb.FeedID](feed.Events("pressAuthor")),
		goBack:      stream.MapTo(src.Select("backButton").Events("press"), struct{}{}),
		replyPublished: stream.Filter(mine, func(res ssb.PublishResult) bool {
			return res.Err == nil
		}),
		replyFailed: stream.Filter(mine, func(res ssb.PublishResult) bool {
			return res.Err != nil
		}),
	}
}

// replyContent builds the reply to publish from the composer state. The
// branch is the latest message of the thread.
func replyContent(s State) ssb.Content {
	return ssb.ToReplyPostContent(ssb.Reply{
		Text:   s.ReplyText,
		Root:   s.RootMsgID,
		Fork:   s.HigherRootMsgID,
		Branch: s.Messages[len(s.Messages)-1].Key,
	})
}
