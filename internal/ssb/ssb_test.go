package ssb

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilkecan/manyverse/internal/engine"
	"github.com/ilkecan/manyverse/internal/stream"
)

func TestToReplyPostContent(t *testing.T) {
	c := ToReplyPostContent(Reply{
		Text:   "  nice one #Go #GO #tooling ",
		Root:   "%root",
		Branch: "%last",
	})

	assert.Equal(t, "post", c["type"])
	assert.Equal(t, "nice one #Go #GO #tooling", c["text"])
	assert.Equal(t, "%root", c["root"])
	assert.Equal(t, "%last", c["branch"])
	assert.NotContains(t, c, "fork")
	assert.Equal(t, []any{
		map[string]any{"link": "#go"},
		map[string]any{"link": "#tooling"},
	}, c["mentions"])
}

func TestToReplyPostContent_Fork(t *testing.T) {
	c := ToReplyPostContent(Reply{Text: "x", Root: "%r", Fork: "%f", Branch: "%b"})
	assert.Equal(t, "%f", c["fork"])
	assert.NotContains(t, c, "mentions")
}

func TestToVoteContent(t *testing.T) {
	like := ToVoteContent(Reaction{MsgKey: "%m", Expression: "👍"})
	assert.Equal(t, Content{"type": "vote", "vote": map[string]any{
		"link": "%m", "value": 1, "expression": "👍",
	}}, like)

	unlike := ToVoteContent(Reaction{MsgKey: "%m"})
	assert.Equal(t, 0, unlike["vote"].(map[string]any)["value"])
}

func TestNormalizeHashtag(t *testing.T) {
	assert.Equal(t, "#cafe", NormalizeHashtag("#CAFE"))
	assert.Equal(t, NormalizeHashtag("#ﬁle"), NormalizeHashtag("#FILE"))
	assert.Equal(t, "#cafe", NormalizeHashtag("#ＣＡＦＥ"), "full-width letters fold to ASCII")
}

func TestHub_PublishAppendsToSelfFeed(t *testing.T) {
	h := NewHub(WithMsgIDs(engine.NewFixedGenerator("m1")))
	var appended []Msg
	var results []PublishResult
	h.Source().Appended().Subscribe(stream.Listener[Msg]{Next: func(m Msg) { appended = append(appended, m) }})
	h.Source().PublishResults().Subscribe(stream.Listener[PublishResult]{Next: func(r PublishResult) { results = append(results, r) }})

	reqs := stream.NewSubject[Req]()
	h.Consume(reqs.Stream)

	reqs.Next(ContentToPublishReq(Content{"type": "post", "text": "too early"}))
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, ErrNoSelf)

	h.SetSelf("@me")
	reqs.Next(ContentToPublishReq(Content{"type": "post", "text": "hi"}))

	require.Len(t, appended, 1)
	assert.Equal(t, "%m1.sha256", appended[0].Key)
	assert.Equal(t, "@me", appended[0].Author)
	assert.Equal(t, int64(1), appended[0].Sequence)
	require.Len(t, results, 2)
	assert.NoError(t, results[1].Err)
}

func TestHub_VectorClock(t *testing.T) {
	h := NewHub()
	h.Append(Msg{Author: "@a"})
	h.Append(Msg{Author: "@a"})
	h.Append(Msg{Author: "@b", Sequence: 7})

	var replies []ClockReply
	h.Source().VectorClock().Subscribe(stream.Listener[ClockReply]{Next: func(r ClockReply) { replies = append(replies, r) }})
	require.Len(t, replies, 1)
	assert.Equal(t, VectorClock{"@a": 2, "@b": 7}, replies[0].Clock)

	h.FailVectorClock(errors.New("db closed"))
	h.Source().VectorClock().Subscribe(stream.Listener[ClockReply]{Next: func(r ClockReply) { replies = append(replies, r) }})
	require.Len(t, replies, 2)
	assert.Error(t, replies[1].Err)
}

func TestSource_SelfAndProfileImage(t *testing.T) {
	h := NewHub()
	h.SetProfileImage("@me", "http://img/me.png")

	var self []FeedID
	var img []string
	h.Source().SelfFeedID().Subscribe(stream.Listener[FeedID]{Next: func(f FeedID) { self = append(self, f) }})
	h.Source().ProfileImage("@me").Subscribe(stream.Listener[string]{Next: func(u string) { img = append(img, u) }})

	h.SetSelf("@me")
	assert.Equal(t, []FeedID{"@me"}, self)
	assert.Equal(t, []string{"http://img/me.png"}, img)

	var zero Source
	assert.False(t, zero.SelfFeedID().Running())
}

func TestSource_ThreadAndPeers(t *testing.T) {
	h := NewHub()
	h.Append(Msg{Key: "%root", Author: "@a", Content: Content{"type": "post", "text": "hello"}})
	h.Append(Msg{Key: "%other", Author: "@b", Content: Content{"type": "post"}})
	h.Append(Msg{Key: "%reply", Author: "@b", Content: Content{"type": "post", "root": "%root"}})

	var thread [][]Msg
	h.Source().Thread("%root").Subscribe(stream.Listener[[]Msg]{Next: func(m []Msg) { thread = append(thread, m) }})
	require.Len(t, thread, 1)
	require.Len(t, thread[0], 2)
	assert.Equal(t, "%reply", thread[0][1].Key)

	var peers [][]Peer
	h.Source().Peers().Subscribe(stream.Listener[[]Peer]{Next: func(p []Peer) { peers = append(peers, p) }})
	h.SetPeers([]Peer{{Address: "net:1", Key: "@c", Kind: "lan", State: "connected"}})

	require.Len(t, peers, 2)
	assert.Empty(t, peers[0])
	assert.Equal(t, "@c", peers[1][0].Key)
}
