package world

import (
	"time"

	"github.com/phobos/squadai/internal/geom"
	"github.com/phobos/squadai/internal/location"
	"github.com/phobos/squadai/internal/nav"
)

type ObjectiveStatus int

const (
	ObjectiveSuspended ObjectiveStatus = iota
	ObjectiveActive
	ObjectiveSuccess
	ObjectiveFailed
)

func (s ObjectiveStatus) String() string {
	switch s {
	case ObjectiveActive:
		return "active"
	case ObjectiveSuccess:
		return "success"
	case ObjectiveFailed:
		return "failed"
	default:
		return "suspended"
	}
}

// Objective is the location an agent is working toward, set by its squad.
type Objective struct {
	Location *location.Location
	Status   ObjectiveStatus
}

// ReachedDistSq is how close an agent must get to its movement target to arrive.
const ReachedDistSq = 5.0

// MovementTarget is where an agent is walking. Failed marks a target the path
// collaborator could not reach.
type MovementTarget struct {
	Position geom.Vec3
	Failed   bool
}

// Movement is the per-agent movement state driven by the movement system.
type Movement struct {
	Target *MovementTarget
	Job    nav.Job
	// Path is the resolved corner list and Corner the next corner to reach.
	Path   []geom.Vec3
	Corner int
	Speed  float64
	Retry  int
}

// Reset stops the agent and drops any pending job.
func (m *Movement) Reset() {
	m.Target = nil
	m.Job = nil
	m.Path = nil
	m.Corner = 0
}

func (m *Movement) Moving() bool { return m.Target != nil && !m.Target.Failed && len(m.Path) > 0 }

// Guard is the per-agent state of the guard action.
type Guard struct {
	Cover *location.CoverPoint
	Watch time.Duration
}

type SquadObjectiveState int

const (
	SquadObjectiveWait SquadObjectiveState = iota
	SquadObjectiveActive
)

// SquadObjective is the location a squad holds and the one before it, kept for momentum.
type SquadObjective struct {
	Location *location.Location
	Previous *location.Location
	State    SquadObjectiveState
}
