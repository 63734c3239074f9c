// Package behavior holds the concrete actions that drive agents and the
// strategies that drive squads.
package behavior

import (
	"time"

	"github.com/phobos/squadai/internal/geom"
	"github.com/phobos/squadai/internal/task"
	"github.com/phobos/squadai/internal/world"
)

// Mover issues movement orders. The movement system implements it.
type Mover interface {
	MoveTo(a *world.Agent, dest geom.Vec3)
	Stop(a *world.Agent)
}

const (
	GotoObjectiveName       = "goto_objective"
	gotoObjectiveHysteresis = 0.1

	// The approach score rises from boostFarSq in to boostNearSq and then falls
	// to zero at the objective itself so that arrival hands off to guarding.
	boostFarSq  = 50 * 50
	boostNearSq = 5 * 5
)

// GotoScore is the approach utility at squared distance distSq.
func GotoScore(distSq float64) float64 {
	boost := geom.InverseLerp(boostFarSq, boostNearSq, distSq)
	decay := geom.InverseLerp(0, boostNearSq, distSq)
	return decay * (0.5 + boost*0.15)
}

// GotoObjectiveAction walks an agent to the objective its squad handed it.
type GotoObjectiveAction struct {
	task.Base[*world.Agent]
	agents *world.AgentData
	mover  Mover
}

func NewGotoObjectiveAction(agents *world.AgentData, mover Mover) *GotoObjectiveAction {
	return &GotoObjectiveAction{
		Base:   task.NewBase[*world.Agent](GotoObjectiveName, gotoObjectiveHysteresis),
		agents: agents,
		mover:  mover,
	}
}

func (g *GotoObjectiveAction) UpdateScore(ordinal int, agents []*world.Agent) {
	for _, a := range agents {
		obj, ok := g.agents.Objectives.Get(a.ID())
		if !ok || obj.Location == nil || obj.Status == world.ObjectiveFailed {
			a.Tasking().Record(ordinal, 0)
			continue
		}
		a.Tasking().Record(ordinal, GotoScore(a.Position.DistSq(obj.Location.Position)))
	}
}

func (g *GotoObjectiveAction) Activate(a *world.Agent) {
	g.Base.Activate(a)
	g.mover.Stop(a)
	if obj, ok := g.agents.Objectives.Get(a.ID()); ok && obj.Location != nil {
		obj.Status = world.ObjectiveActive
	}
}

func (g *GotoObjectiveAction) Deactivate(a *world.Agent) {
	g.Base.Deactivate(a)
	if obj, ok := g.agents.Objectives.Get(a.ID()); ok && obj.Status == world.ObjectiveActive {
		obj.Status = world.ObjectiveSuspended
	}
}

func (g *GotoObjectiveAction) Update(time.Duration) {
	for _, a := range g.Active() {
		obj, ok := g.agents.Objectives.Get(a.ID())
		if !ok || obj.Location == nil {
			continue
		}
		mv, ok := g.agents.Movements.Get(a.ID())
		if !ok {
			continue
		}

		dest := obj.Location.Position
		if mv.Target != nil && mv.Target.Position == dest {
			if mv.Target.Failed {
				obj.Status = world.ObjectiveFailed
			}
			continue
		}
		if a.Position.DistSq(dest) <= world.ReachedDistSq {
			obj.Status = world.ObjectiveSuccess
			continue
		}
		obj.Status = world.ObjectiveActive
		g.mover.MoveTo(a, dest)
	}
}
