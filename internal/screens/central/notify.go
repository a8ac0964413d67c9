package central

import (
	"github.com/ilkecan/manyverse/internal/bus"
	"github.com/ilkecan/manyverse/internal/screens/central/tabs"
	"github.com/ilkecan/manyverse/internal/stream"
)

// notifications tells the rest of the app about unread counters and
// connections. A notification is sent only when the value changes; a
// counter starting at zero is not announced.
func notifications(st *stream.Stream[State]) *stream.Stream[bus.Event] {
	counter := func(subtype string, get func(State) int) *stream.Stream[bus.Event] {
		return stream.Map(stream.Changes(stream.Map(st, get), 0), func(n int) bus.Event {
			return bus.CentralScreenUpdate{Subtype: subtype, Counter: n}
		})
	}

	connections := stream.FilterMap(st, func(s State) (tabs.ConnectionsState, bool) {
		if s.ConnectionsTab == nil {
			return tabs.ConnectionsState{}, false
		}
		return *s.ConnectionsTab, true
	})

	return stream.Merge(
		counter(bus.SubtypePublicUpdates, State.NumOfPublicUpdates),
		counter(bus.SubtypePrivateUpdates, State.NumOfPrivateUpdates),
		counter(bus.SubtypeActivityUpdates, State.NumOfActivityUpdates),
		stream.Map(stream.DropRepeatsDeep(connections), func(c tabs.ConnectionsState) bus.Event {
			return bus.CentralScreenUpdate{Subtype: bus.SubtypeConnections, Substate: c}
		}),
	)
}
