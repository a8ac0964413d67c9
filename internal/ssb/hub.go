// Package ssb is the app's view of the replication backend: typed streams
// in, publish requests out. Hub is an in-process backend; a networked one
// satisfies the same Source.
package ssb

import (
	"errors"
	"log/slog"
	"slices"

	"github.com/ilkecan/manyverse/internal/engine"
	"github.com/ilkecan/manyverse/internal/stream"
)

// VectorClock maps each known feed to its latest sequence.
type VectorClock map[FeedID]int64

// ClockReply answers a vector clock query.
type ClockReply struct {
	Clock VectorClock
	Err   error
}

// Peer is a connection candidate.
type Peer struct {
	Address string `json:"address"`
	Key     FeedID `json:"key"`
	Kind    string `json:"kind"`
	State   string `json:"state"`
}

// PublishResult reports the outcome of a publish request.
type PublishResult struct {
	Req Req
	Msg Msg
	Err error
}

// ErrNoSelf is returned when publishing before the self feed is known.
var ErrNoSelf = errors.New("ssb: self feed not loaded")

// Hub is an in-memory feed log.
//
// Thread-safety: NOT safe for concurrent use; owned by the loop goroutine.
type Hub struct {
	ids   engine.TokenGenerator
	self  *stream.Cell[FeedID]
	peers *stream.Cell[[]Peer]

	images    map[FeedID]*stream.Cell[string]
	clock     VectorClock
	clockErr  error
	log       []Msg
	now       int64
	appended  *stream.Subject[Msg]
	published *stream.Subject[PublishResult]
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithMsgIDs sets the generator used for message keys.
func WithMsgIDs(g engine.TokenGenerator) HubOption {
	return func(h *Hub) {
		h.ids = g
	}
}

// NewHub creates an empty hub.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		ids:       engine.UUIDv7Generator{},
		self:      stream.NewCell[FeedID](),
		peers:     stream.NewCellOf[[]Peer](nil),
		images:    make(map[FeedID]*stream.Cell[string]),
		clock:     make(VectorClock),
		appended:  stream.NewSubject[Msg](),
		published: stream.NewSubject[PublishResult](),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// SetSelf announces the local feed id.
func (h *Hub) SetSelf(id FeedID) {
	h.self.Set(id)
}

// SetProfileImage sets the avatar url of feed.
func (h *Hub) SetProfileImage(feed FeedID, url string) {
	h.image(feed).Set(url)
}

// SetPeers replaces the list of connected and staged peers.
func (h *Hub) SetPeers(peers []Peer) {
	h.peers.Set(slices.Clone(peers))
}

// FailVectorClock makes the following clock queries fail with err. A nil
// err restores normal replies.
func (h *Hub) FailVectorClock(err error) {
	h.clockErr = err
}

// Append adds msg to the log and notifies listeners. Sequence and
// Timestamp are assigned when zero.
func (h *Hub) Append(msg Msg) Msg {
	h.now++
	if msg.Sequence == 0 {
		msg.Sequence = h.clock[msg.Author] + 1
	}
	if msg.Timestamp == 0 {
		msg.Timestamp = h.now
	}
	if msg.Sequence > h.clock[msg.Author] {
		h.clock[msg.Author] = msg.Sequence
	}
	h.log = append(h.log, msg)
	h.appended.Next(msg)
	return msg
}

// Log returns every appended message in order.
func (h *Hub) Log() []Msg {
	out := make([]Msg, len(h.log))
	copy(out, h.log)
	return out
}

// Publish appends content as a new message of the self feed.
func (h *Hub) Publish(req Req) PublishResult {
	self, ok := h.self.Get()
	if !ok {
		return PublishResult{Req: req, Err: ErrNoSelf}
	}
	msg := h.Append(Msg{
		Key:     "%" + h.ids.Generate() + ".sha256",
		Author:  self,
		Content: req.Content,
	})
	return PublishResult{Req: req, Msg: msg}
}

// Consume publishes every request of reqs.
func (h *Hub) Consume(reqs *stream.Stream[Req]) *stream.Subscription {
	return stream.OrNever(reqs).Subscribe(stream.Listener[Req]{
		Next: func(req Req) {
			if req.Type != ReqPublish {
				slog.Warn("ssb request ignored", "type", req.Type)
				return
			}
			res := h.Publish(req)
			if res.Err != nil {
				slog.Error("ssb publish failed", "error", res.Err)
			}
			h.published.Next(res)
		},
		Error: func(err error) {
			slog.Error("ssb request stream failed", "error", err)
		},
	})
}

// Source returns the read side of the hub.
func (h *Hub) Source() Source {
	return Source{h: h}
}

func (h *Hub) image(feed FeedID) *stream.Cell[string] {
	c, ok := h.images[feed]
	if !ok {
		c = stream.NewCell[string]()
		h.images[feed] = c
	}
	return c
}

func (h *Hub) clockReply() ClockReply {
	if h.clockErr != nil {
		return ClockReply{Err: h.clockErr}
	}
	clock := make(VectorClock, len(h.clock))
	for k, v := range h.clock {
		clock[k] = v
	}
	return ClockReply{Clock: clock}
}

// Source exposes the replication backend as streams. The zero Source never
// emits.
type Source struct {
	h *Hub
}

// SelfFeedID emits the local feed id once known, then on every change.
func (s Source) SelfFeedID() *stream.Stream[FeedID] {
	if s.h == nil {
		return stream.Never[FeedID]()
	}
	return s.h.self.Stream()
}

// ProfileImage emits the avatar url of feed.
func (s Source) ProfileImage(feed FeedID) *stream.Stream[string] {
	if s.h == nil {
		return stream.Never[string]()
	}
	return s.h.image(feed).Stream()
}

// Appended emits every message appended from now on.
func (s Source) Appended() *stream.Stream[Msg] {
	if s.h == nil {
		return stream.Never[Msg]()
	}
	return s.h.appended.Stream
}

// PublishResults emits the outcome of every publish request.
func (s Source) PublishResults() *stream.Stream[PublishResult] {
	if s.h == nil {
		return stream.Never[PublishResult]()
	}
	return s.h.published.Stream
}

// Peers emits the current peer list, then every change.
func (s Source) Peers() *stream.Stream[[]Peer] {
	if s.h == nil {
		return stream.Never[[]Peer]()
	}
	return s.h.peers.Stream()
}

// Thread emits the root message with id root followed by its replies, in
// log order, then completes. A root missing from the log yields an empty
// thread.
func (s Source) Thread(root MsgID) *stream.Stream[[]Msg] {
	if s.h == nil {
		return stream.Never[[]Msg]()
	}
	return stream.New[[]Msg](threadQuery{h: s.h, root: root})
}

type threadQuery struct {
	h    *Hub
	root MsgID
}

func (q threadQuery) Start(out stream.Sink[[]Msg]) {
	var msgs []Msg
	for _, m := range q.h.log {
		if m.Key == q.root || m.Content["root"] == q.root {
			msgs = append(msgs, m)
		}
	}
	out.Next(msgs)
	out.Complete()
}

func (threadQuery) Stop() {}

// VectorClock queries the vector clock on start, emits the reply and
// completes.
func (s Source) VectorClock() *stream.Stream[ClockReply] {
	if s.h == nil {
		return stream.Never[ClockReply]()
	}
	return stream.New[ClockReply](clockQuery{h: s.h})
}

type clockQuery struct {
	h *Hub
}

func (q clockQuery) Start(out stream.Sink[ClockReply]) {
	out.Next(q.h.clockReply())
	out.Complete()
}

func (clockQuery) Stop() {}
