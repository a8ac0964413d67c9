package global

import (
	"github.com/ilkecan/manyverse/internal/cycle"
	"github.com/ilkecan/manyverse/internal/effect"
)

// Module is the global bootstrap module. It renders nothing.
func Module(src cycle.Sources[State]) cycle.Sinks[State] {
	return cycle.Sinks[State]{
		State: model(src.Services.SSB, src.Services.Storage),
		Effects: effect.Buckets{
			Navigation: navigation(intent(src.Bus), src.State),
		},
		Scope: src.UI.Namespace(),
	}
}
