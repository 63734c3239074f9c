package system

import (
	"time"

	coresys "github.com/phobos/squadai/internal/core/system"
	"github.com/phobos/squadai/internal/geom"
	"github.com/phobos/squadai/internal/location"
	"github.com/phobos/squadai/internal/world"
)

// SenseSystem rebuilds the convergence field from observer positions: tracked
// non-agent observers plus agents flagged as observers. Phase 1 (Sense).
type SenseSystem struct {
	observers *world.ObserverIndex
	agents    *world.AgentData
	locations *location.System
	gate      coresys.Gate
	buf       []geom.Vec3
}

func NewSenseSystem(observers *world.ObserverIndex, agents *world.AgentData, locations *location.System, interval time.Duration) *SenseSystem {
	return &SenseSystem{
		observers: observers,
		agents:    agents,
		locations: locations,
		gate:      coresys.EveryInterval(interval),
	}
}

func (s *SenseSystem) Phase() coresys.Phase { return coresys.PhaseSense }

func (s *SenseSystem) Update(dt time.Duration) {
	if !s.gate.Ready(dt) {
		return
	}
	s.buf = s.observers.Positions(s.buf[:0])
	for _, a := range s.agents.Entities.Values() {
		if a.Observer {
			s.buf = append(s.buf, a.Position)
		}
	}
	s.locations.UpdateConvergence(s.buf)
}
