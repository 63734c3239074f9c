// Package orchestration drives a task scheduler across a live population as a
// phase system.
package orchestration

import (
	"time"

	"github.com/phobos/squadai/internal/core/ecs"
	"github.com/phobos/squadai/internal/core/system"
	"github.com/phobos/squadai/internal/task"
)

// Member is an entity stored in a Dataset and driven by a Scheduler.
type Member interface {
	task.Schedulable
	ID() ecs.EntityID
}

// Orchestrator runs its scheduler over every live entity of a dataset. With a
// gate the whole Score, Select and Update cycle is skipped on closed ticks.
type Orchestrator[E Member] struct {
	phase     system.Phase
	gate      system.Gate
	dataset   *ecs.Dataset[E]
	scheduler *task.Scheduler[E]
	// pending accumulates dt across gated ticks so Update sees real elapsed time.
	pending time.Duration
}

func New[E Member](phase system.Phase, dataset *ecs.Dataset[E], scheduler *task.Scheduler[E], gate system.Gate) *Orchestrator[E] {
	return &Orchestrator[E]{
		phase:     phase,
		gate:      gate,
		dataset:   dataset,
		scheduler: scheduler,
	}
}

// NewActions returns the per-agent orchestrator, run every tick.
func NewActions[E Member](dataset *ecs.Dataset[E], scheduler *task.Scheduler[E]) *Orchestrator[E] {
	return New(system.PhaseAction, dataset, scheduler, nil)
}

// NewStrategies returns the per-squad orchestrator, paced by interval.
func NewStrategies[E Member](dataset *ecs.Dataset[E], scheduler *task.Scheduler[E], interval time.Duration) *Orchestrator[E] {
	return New(system.PhaseStrategy, dataset, scheduler, system.EveryInterval(interval))
}

func (o *Orchestrator[E]) Phase() system.Phase { return o.phase }

func (o *Orchestrator[E]) Scheduler() *task.Scheduler[E] { return o.scheduler }

func (o *Orchestrator[E]) Update(dt time.Duration) {
	o.pending += dt
	if o.gate != nil && !o.gate.Ready(dt) {
		return
	}
	elapsed := o.pending
	o.pending = 0
	o.scheduler.Tick(o.dataset.Entities.Values(), elapsed)
}

// RemoveEntity forces e out of its current task. Call before removing e from the dataset.
func (o *Orchestrator[E]) RemoveEntity(e E) {
	o.scheduler.RemoveEntity(e)
}
