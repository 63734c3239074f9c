// Package task implements the utility-scoring behavior switcher shared by the
// per-agent action layer and the per-squad strategy layer.
package task

import (
	"time"

	"github.com/phobos/squadai/internal/core/list"
)

// Schedulable is an entity a Scheduler can drive. Eligible reports whether the
// entity may hold a task this tick; ineligible entities are returned to Idle.
type Schedulable interface {
	comparable
	Tasking() *Tasking
	Eligible() bool
}

// Task is one behavior competing for control of an entity. Activate and
// Deactivate are called by the Scheduler only; Deactivate must tolerate
// entities that are not active.
type Task[E Schedulable] interface {
	Name() string
	Hysteresis() float64
	// UpdateScore records a score for each entity the task applies to. Entities
	// left unrecorded are not candidates for this task this tick.
	UpdateScore(ordinal int, entities []E)
	Update(dt time.Duration)
	Activate(e E)
	Deactivate(e E)
}

// Base carries the name, hysteresis and active set every task needs. Concrete
// tasks embed it and call through when overriding Activate or Deactivate.
type Base[E comparable] struct {
	name       string
	hysteresis float64
	active     *list.Set[E]
}

func NewBase[E comparable](name string, hysteresis float64) Base[E] {
	return Base[E]{name: name, hysteresis: hysteresis, active: list.NewSet[E](32)}
}

func (b *Base[E]) Name() string        { return b.name }
func (b *Base[E]) Hysteresis() float64 { return b.hysteresis }

func (b *Base[E]) Activate(e E)   { b.active.Add(e) }
func (b *Base[E]) Deactivate(e E) { b.active.Remove(e) }

func (b *Base[E]) Update(time.Duration) {}

// Active returns the entities currently assigned to the task. The slice is
// invalidated by the next Activate or Deactivate.
func (b *Base[E]) Active() []E       { return b.active.Items() }
func (b *Base[E]) IsActive(e E) bool { return b.active.Has(e) }
