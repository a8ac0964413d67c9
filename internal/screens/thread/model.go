// Package thread is the screen showing one conversation: the root message,
// its replies, and a reply composer.
package thread

import (
	"errors"
	"math"
	"strings"

	"github.com/ilkecan/manyverse/internal/ssb"
	"github.com/ilkecan/manyverse/internal/state"
	"github.com/ilkecan/manyverse/internal/stream"
)

// ErrNoRoot is returned for props without a root message.
var ErrNoRoot = errors.New("thread: missing rootMsgId")

// Props are the navigation props the screen is pushed with.
type Props struct {
	RootMsgID            ssb.MsgID
	HigherRootMsgID      ssb.MsgID
	SelfFeedID           ssb.FeedID
	LastSessionTimestamp int64
}

// PropsFrom reads Props from navigation props. A missing
// lastSessionTimestamp means every message counts as read.
func PropsFrom(m map[string]any) (Props, error) {
	root, _ := m["rootMsgId"].(string)
	if root == "" {
		return Props{}, ErrNoRoot
	}
	p := Props{RootMsgID: root, LastSessionTimestamp: math.MaxInt64}
	p.HigherRootMsgID, _ = m["higherRootMsgId"].(string)
	p.SelfFeedID, _ = m["selfFeedId"].(string)
	switch ts := m["lastSessionTimestamp"].(type) {
	case int64:
		p.LastSessionTimestamp = ts
	case int:
		p.LastSessionTimestamp = int64(ts)
	case float64:
		p.LastSessionTimestamp = int64(ts)
	}
	return p, nil
}

// State is the thread screen state.
type State struct {
	RootMsgID            ssb.MsgID  `json:"rootMsgId"`
	HigherRootMsgID      ssb.MsgID  `json:"higherRootMsgId,omitempty"`
	SelfFeedID           ssb.FeedID `json:"selfFeedId,omitempty"`
	LastSessionTimestamp int64      `json:"lastSessionTimestamp"`
	Messages             []ssb.Msg  `json:"messages,omitempty"`
	Loaded               bool       `json:"loaded"`
	ReplyText            string     `json:"replyText"`
}

// Unread counts the messages of others newer than the previous session.
func (s State) Unread() int {
	n := 0
	for _, m := range s.Messages {
		if m.Author != s.SelfFeedID && m.Timestamp > s.LastSessionTimestamp {
			n++
		}
	}
	return n
}

// CanPublish reports whether the composer holds a reply that can be sent.
func (s State) CanPublish() bool {
	return s.Loaded && len(s.Messages) > 0 && strings.TrimSpace(s.ReplyText) != ""
}

// belongs reports whether m is a reply in the thread rooted at root.
func belongs(m ssb.Msg, root ssb.MsgID) bool {
	r, _ := m.Content["root"].(string)
	return r == root
}

func containsKey(msgs []ssb.Msg, key ssb.MsgID) bool {
	if key == "" {
		return false
	}
	for _, m := range msgs {
		if m.Key == key {
			return true
		}
	}
	return false
}

func appendMsg(msgs []ssb.Msg, m ssb.Msg) []ssb.Msg {
	out := make([]ssb.Msg, len(msgs), len(msgs)+1)
	copy(out, msgs)
	return append(out, m)
}

func model(p Props, src ssb.Source, a actions) *stream.Stream[state.Reducer[State]] {
	initial := stream.Of(state.Reducer[State](func(prev State, present bool) State {
		if present {
			return prev
		}
		return State{
			RootMsgID:            p.RootMsgID,
			HigherRootMsgID:      p.HigherRootMsgID,
			SelfFeedID:           p.SelfFeedID,
			LastSessionTimestamp: p.LastSessionTimestamp,
		}
	}))

	loaded := stream.Map(src.Thread(p.RootMsgID), func(msgs []ssb.Msg) state.Reducer[State] {
		return func(prev State, _ bool) State {
			// Replies that arrived while loading are kept after the
			// loaded ones.
			merged := append([]ssb.Msg(nil), msgs...)
			for _, m := range prev.Messages {
				if !containsKey(merged, m.Key) {
					merged = append(merged, m)
				}
			}
			prev.Messages = merged
			prev.Loaded = true
			return prev
		}
	})

	replies := stream.Map(
		stream.Filter(src.Appended(), func(m ssb.Msg) bool { return belongs(m, p.RootMsgID) }),
		func(m ssb.Msg) state.Reducer[State] {
			return func(prev State, _ bool) State {
				if containsKey(prev.Messages, m.Key) {
					return prev
				}
				prev.Messages = appendMsg(prev.Messages, m)
				return prev
			}
		})

	changeText := stream.Map(a.changeText, func(text string) state.Reducer[State] {
		return func(prev State, _ bool) State {
			prev.ReplyText = text
			return prev
		}
	})

	published := stream.MapTo(a.replyPublished, state.Reducer[State](func(prev State, _ bool) State {
		prev.ReplyText = ""
		return prev
	}))

	return stream.Merge(initial, loaded, replies, changeText, published)
}
