// Package global is the app-wide bootstrap module: who the user is, when
// the previous session ended, and the navigation every screen can trigger
// through the bus.
package global

import (
	"math"
	"strconv"
	"strings"

	"github.com/ilkecan/manyverse/internal/ssb"
	"github.com/ilkecan/manyverse/internal/state"
	"github.com/ilkecan/manyverse/internal/storage"
	"github.com/ilkecan/manyverse/internal/stream"
)

// LastSessionKey is the storage key of the previous session's timestamp.
const LastSessionKey = "lastSessionTimestamp"

// NoLastSession is used in navigation props when no previous session is
// known: every message counts as read.
const NoLastSession = math.MaxInt64

// State is the global state slice.
type State struct {
	LastSessionTimestamp *int64 `json:"lastSessionTimestamp,omitempty"`
	SelfFeedID           string `json:"selfFeedId,omitempty"`
	SelfAvatarURL        string `json:"selfAvatarUrl,omitempty"`
}

// LastSession returns the previous session timestamp or NoLastSession.
func (s State) LastSession() int64 {
	if s.LastSessionTimestamp == nil {
		return NoLastSession
	}
	return *s.LastSessionTimestamp
}

// ParseTimestamp parses a stored timestamp. Anything but a base-10 integer
// is reported as absent.
func ParseTimestamp(raw string) (int64, bool) {
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// LastSessionReducer applies a storage read of LastSessionKey. A missing or
// malformed value leaves the state unchanged.
func LastSessionReducer(item storage.Item) state.Reducer[State] {
	return func(prev State, _ bool) State {
		if !item.Found {
			return prev
		}
		ts, ok := ParseTimestamp(item.Value)
		if !ok {
			return prev
		}
		prev.LastSessionTimestamp = &ts
		return prev
	}
}

func model(src ssb.Source, store storage.Source) *stream.Stream[state.Reducer[State]] {
	// Only the first self id counts; the avatar follows that feed.
	about := stream.Flatten(stream.Map(stream.Take(src.SelfFeedID(), 1), func(self ssb.FeedID) *stream.Stream[state.Reducer[State]] {
		selfOnly := stream.MapTo(stream.Of(struct{}{}), state.Reducer[State](func(prev State, _ bool) State {
			prev.SelfFeedID = self
			return prev
		}))
		withAvatar := stream.Map(src.ProfileImage(self), func(url string) state.Reducer[State] {
			return func(prev State, _ bool) State {
				prev.SelfFeedID = self
				prev.SelfAvatarURL = url
				return prev
			}
		})
		return stream.Merge(selfOnly, withAvatar)
	}))

	lastSession := stream.Map(store.GetItem(LastSessionKey), LastSessionReducer)

	return stream.Merge(about, lastSession)
}
