// Package resync relaxes the connection firewall while a device with an
// empty own feed is recovering its data from peers.
//
// On start the vector clock is queried once. If the own feed is absent from
// it, strangers are admitted until the first own message is observed, then
// the configured firewall setting is restored.
package resync

import (
	"errors"
	"log/slog"

	"github.com/ilkecan/manyverse/internal/ssb"
	"github.com/ilkecan/manyverse/internal/stream"
)

// Firewall is the part of the connection firewall resync controls.
type Firewall interface {
	Reconfigure(rejectUnknown bool)
}

var errMissingClock = errors.New("resync: missing vector clock")

type query struct {
	self  ssb.FeedID
	reply ssb.ClockReply
}

// Watch starts watching. rejectUnknown is the configured firewall setting
// restored when resync ends. Unsubscribing the group stops the watch.
func Watch(src ssb.Source, fw Firewall, rejectUnknown bool) *stream.Group {
	g := &stream.Group{}

	self := stream.Take(src.SelfFeedID(), 1)
	queries := stream.Flatten(stream.Map(self, func(id ssb.FeedID) *stream.Stream[query] {
		return stream.Map(src.VectorClock(), func(r ssb.ClockReply) query {
			return query{self: id, reply: r}
		})
	}))

	g.Add(queries.Subscribe(stream.Listener[query]{
		Next: func(q query) {
			if q.reply.Err != nil {
				slog.Error("resync exception", "error", q.reply.Err)
				return
			}
			if q.reply.Clock == nil {
				slog.Error("resync exception", "error", errMissingClock)
				return
			}
			if q.reply.Clock[q.self] > 0 {
				return
			}

			slog.Info("own feed empty, admitting strangers to resync", "self", q.self)
			fw.Reconfigure(false)

			own := stream.Take(stream.Filter(src.Appended(), func(m ssb.Msg) bool {
				return m.Author == q.self
			}), 1)
			g.Add(own.Subscribe(stream.Listener[ssb.Msg]{
				Next: func(ssb.Msg) {
					slog.Info("resync done, restoring firewall", "rejectUnknown", rejectUnknown)
					fw.Reconfigure(rejectUnknown)
				},
			}))
		},
	}))
	return g
}
