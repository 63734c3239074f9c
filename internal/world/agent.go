package world

import (
	"fmt"

	"github.com/phobos/squadai/internal/core/ecs"
	"github.com/phobos/squadai/internal/core/list"
	"github.com/phobos/squadai/internal/geom"
	"github.com/phobos/squadai/internal/task"
)

// Agent is one simulated body. Position is written by the host (or the demo
// movement system); the core only reads it.
type Agent struct {
	id        ecs.EntityID
	ProfileID string
	SquadKey  int
	Squad     *Squad
	Position  geom.Vec3
	// Active is false while the host has taken control of the agent.
	Active   bool
	Observer bool
	IsLeader bool
	tasking  task.Tasking
}

func NewAgent(id ecs.EntityID, profileID string, squadKey int, pos geom.Vec3) *Agent {
	return &Agent{id: id, ProfileID: profileID, SquadKey: squadKey, Position: pos, Active: true}
}

func (a *Agent) ID() ecs.EntityID       { return a.id }
func (a *Agent) Tasking() *task.Tasking { return &a.tasking }
func (a *Agent) Eligible() bool         { return a.Active }

func (a *Agent) String() string {
	return fmt.Sprintf("Agent(%d, %s, active=%t)", a.id, a.ProfileID, a.Active)
}

// Squad groups agents that share one strategy.
type Squad struct {
	id         ecs.EntityID
	Key        int
	TargetSize int
	Members    *list.Unordered[*Agent]
	Leader     *Agent
	tasking    task.Tasking
}

func NewSquad(id ecs.EntityID, key, targetSize int) *Squad {
	return &Squad{id: id, Key: key, TargetSize: targetSize, Members: list.NewUnordered[*Agent](max(targetSize, 1))}
}

func (s *Squad) ID() ecs.EntityID       { return s.id }
func (s *Squad) Tasking() *task.Tasking { return &s.tasking }

// Eligible is false for a squad with no members left.
func (s *Squad) Eligible() bool { return s.Members.Len() > 0 }

func (s *Squad) Size() int { return s.Members.Len() }

func (s *Squad) String() string {
	return fmt.Sprintf("Squad(%d, key=%d, members=%d)", s.id, s.Key, s.Members.Len())
}
