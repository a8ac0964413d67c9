package tabs

import (
	"strconv"

	"github.com/ilkecan/manyverse/internal/cycle"
	"github.com/ilkecan/manyverse/internal/effect"
	"github.com/ilkecan/manyverse/internal/nav"
	"github.com/ilkecan/manyverse/internal/ssb"
	"github.com/ilkecan/manyverse/internal/state"
	"github.com/ilkecan/manyverse/internal/storage"
	"github.com/ilkecan/manyverse/internal/stream"
)

// FollowingOnlyKey is the storage key of the public feed filter.
const FollowingOnlyKey = "followingOnly"

// PublicState is the public tab slice.
type PublicState struct {
	NumOfUpdates  int  `json:"numOfUpdates"`
	FollowingOnly bool `json:"followingOnly"`
}

type publicActions struct {
	openMessage  *stream.Stream[ssb.MsgID]
	copyLink     *stream.Stream[ssb.MsgID]
	react        *stream.Stream[ssb.Reaction]
	toggleFilter *stream.Stream[struct{}]
	compose      *stream.Stream[string]
	scrollToTop  *stream.Stream[struct{}]
}

func publicIntent(src cycle.Sources[PublicState], in Inputs) publicActions {
	feed := src.UI.Select("feed")
	return publicActions{
		openMessage:  payload[ssb.MsgID](feed.Events("pressMsg")),
		copyLink:     payload[ssb.MsgID](feed.Events("copyLink")),
		react:        payload[ssb.Reaction](feed.Events("react")),
		toggleFilter: stream.MapTo(feed.Events("toggleFollowingOnly"), struct{}{}),
		compose:      stream.Filter(in.fab(), func(id string) bool { return id == FabCompose }),
		scrollToTop:  in.scrollToTop(),
	}
}

// Public is the public feed tab.
func Public(in Inputs) cycle.Module[PublicState] {
	return func(src cycle.Sources[PublicState]) cycle.Sinks[PublicState] {
		a := publicIntent(src, in)

		newPosts := othersMessages(src.Services.SSB, func(m ssb.Msg) bool {
			return contentType(m) == "post" && !isPrivate(m)
		})

		// The toggle is decided against the current slice so the persisted
		// value always matches the state.
		toggled := stream.Map(stream.SampleCombine(a.toggleFilter, src.State),
			func(p stream.Pair[struct{}, PublicState]) bool { return !p.Second.FollowingOnly })

		reducers := stream.Merge(
			initial(PublicState{}),
			stream.Map(src.Services.Storage.GetItem(FollowingOnlyKey), func(item storage.Item) state.Reducer[PublicState] {
				return func(prev PublicState, _ bool) PublicState {
					if v, err := strconv.ParseBool(item.Value); item.Found && err == nil {
						prev.FollowingOnly = v
					}
					return prev
				}
			}),
			stream.MapTo(newPosts, state.Reducer[PublicState](func(prev PublicState, _ bool) PublicState {
				prev.NumOfUpdates++
				return prev
			})),
			stream.MapTo(a.scrollToTop, state.Reducer[PublicState](func(prev PublicState, _ bool) PublicState {
				prev.NumOfUpdates = 0
				return prev
			})),
			stream.Map(toggled, func(v bool) state.Reducer[PublicState] {
				return func(prev PublicState, _ bool) PublicState {
					prev.FollowingOnly = v
					return prev
				}
			}),
		)

		navigation := stream.Merge(
			stream.Map(a.openMessage, func(id ssb.MsgID) nav.Command {
				return nav.Command{Type: nav.Push, Screen: nav.ScreenThread, Props: map[string]any{"rootMsgId": id}}
			}),
			stream.MapTo(a.compose, nav.Command{Type: nav.Push, Screen: nav.ScreenCompose}),
		)

		return cycle.Sinks[PublicState]{
			Render: view(src.UI.Namespace(), "publicTab", src.State, func(s PublicState) map[string]any {
				return map[string]any{"numOfUpdates": s.NumOfUpdates, "followingOnly": s.FollowingOnly}
			}),
			State: reducers,
			Effects: effect.Buckets{
				Navigation: navigation,
				Toast:      stream.MapTo(a.copyLink, effect.ToastMsg{Message: "Copied to clipboard", Duration: effect.Short}),
				Storage: stream.Map(toggled, func(v bool) storage.Command {
					return storage.Command{Type: storage.SetItem, Key: FollowingOnlyKey, Value: strconv.FormatBool(v)}
				}),
				SSB: stream.Map(a.react, func(r ssb.Reaction) ssb.Req {
					return ssb.ContentToPublishReq(ssb.ToVoteContent(r))
				}),
				Clipboard: a.copyLink,
			},
			Scope: src.UI.Namespace(),
		}
	}
}
