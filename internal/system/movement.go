package system

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/phobos/squadai/internal/core/ecs"
	coresys "github.com/phobos/squadai/internal/core/system"
	"github.com/phobos/squadai/internal/geom"
	"github.com/phobos/squadai/internal/nav"
	"github.com/phobos/squadai/internal/world"
)

// maxPathRetries is how many invalid path results a target survives.
const maxPathRetries = 10

// MovementSystem polls path jobs and walks agents along resolved corners.
// It is the in-process stand-in for host movement. Phase 4 (Movement).
type MovementSystem struct {
	agents *world.AgentData
	pather nav.PathFinder
	log    *zap.Logger
}

func NewMovementSystem(agents *world.AgentData, pather nav.PathFinder, log *zap.Logger) *MovementSystem {
	return &MovementSystem{agents: agents, pather: pather, log: log}
}

func (s *MovementSystem) Phase() coresys.Phase { return coresys.PhaseMovement }

// MoveTo replaces the agent's target and submits a path job for it.
func (s *MovementSystem) MoveTo(a *world.Agent, dest geom.Vec3) {
	mv, ok := s.agents.Movements.Get(a.ID())
	if !ok {
		return
	}
	mv.Reset()
	mv.Retry = 0
	mv.Target = &world.MovementTarget{Position: dest}
	mv.Job = s.pather.Submit(a.Position, dest)
}

func (s *MovementSystem) Stop(a *world.Agent) {
	if mv, ok := s.agents.Movements.Get(a.ID()); ok {
		mv.Reset()
	}
}

func (s *MovementSystem) Update(dt time.Duration) {
	ecs.EachWith(s.agents.Dataset, s.agents.Movements, func(a *world.Agent, mv *world.Movement) {
		// Agents under host control keep their orders but do not move.
		if !a.Active || mv.Target == nil || mv.Target.Failed {
			return
		}
		if mv.Job != nil {
			s.poll(a, mv)
			return
		}
		s.advance(a, mv, dt)
	})
}

func (s *MovementSystem) poll(a *world.Agent, mv *world.Movement) {
	if !mv.Job.IsReady() {
		return
	}
	job := mv.Job
	mv.Job = nil

	if job.Status() == nav.StatusValid {
		mv.Path = job.Corners()
		mv.Corner = 0
		return
	}
	mv.Retry++
	if mv.Retry >= maxPathRetries {
		mv.Target.Failed = true
		s.log.Debug("path failed",
			zap.Int("agent", int(a.ID())),
			zap.Int("retries", mv.Retry),
		)
		return
	}
	mv.Job = s.pather.Submit(a.Position, mv.Target.Position)
}

func (s *MovementSystem) advance(a *world.Agent, mv *world.Movement, dt time.Duration) {
	step := mv.Speed * dt.Seconds()
	for step > 0 && mv.Corner < len(mv.Path) {
		corner := mv.Path[mv.Corner]
		dist := math.Sqrt(a.Position.DistSq(corner))
		if dist <= step {
			a.Position = corner
			step -= dist
			mv.Corner++
			continue
		}
		a.Position = a.Position.Add(corner.Sub(a.Position).Scale(step / dist))
		step = 0
	}
	if mv.Corner >= len(mv.Path) || a.Position.DistSq(mv.Target.Position) <= world.ReachedDistSq {
		mv.Reset()
	}
}
