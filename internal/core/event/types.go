package event

import (
	"github.com/phobos/squadai/internal/core/ecs"
	"github.com/phobos/squadai/internal/geom"
)

// Host → core events.

type AgentSpawned struct {
	ProfileID string
	SquadKey  int
	// SquadSize is the host's target member count for a new squad.
	SquadSize int
	Position  geom.Vec3
	Observer  bool
}

type AgentDespawned struct {
	AgentID ecs.EntityID
}

type AgentMoved struct {
	AgentID  ecs.EntityID
	Position geom.Vec3
}

// AgentToggled switches an agent between host control and core control.
type AgentToggled struct {
	AgentID ecs.EntityID
	Active  bool
}

// ObserverMoved tracks a privileged observer that is not an agent (e.g. a player).
type ObserverMoved struct {
	ObserverID uint64
	Position   geom.Vec3
	Gone       bool
}
