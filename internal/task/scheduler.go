package task

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/phobos/squadai/internal/metrics"
)

// ErrRegistrationClosed is returned when a task is registered after the first tick.
var ErrRegistrationClosed = errors.New("task registration closed")

// baseline is the score every candidate must strictly beat.
const baseline = -1.0

// SwitchFunc observes task switches. from or to is "" for Idle.
type SwitchFunc[E Schedulable] func(e E, from, to string)

// Scheduler selects one task per entity each tick by highest score, biased
// toward the current task by its hysteresis.
type Scheduler[E Schedulable] struct {
	name     string
	tasks    []Task[E]
	closed   bool
	log      *zap.Logger
	metrics  *metrics.Metrics
	onSwitch SwitchFunc[E]
}

func NewScheduler[E Schedulable](name string, log *zap.Logger, m *metrics.Metrics) *Scheduler[E] {
	return &Scheduler[E]{
		name:    name,
		tasks:   make([]Task[E], 0, 8),
		log:     log,
		metrics: m,
	}
}

func (s *Scheduler[E]) Name() string { return s.name }

// Register adds a task and returns its ordinal.
func (s *Scheduler[E]) Register(t Task[E]) (int, error) {
	if s.closed {
		return Idle, fmt.Errorf("%s: register %s: %w", s.name, t.Name(), ErrRegistrationClosed)
	}
	s.tasks = append(s.tasks, t)
	return len(s.tasks) - 1, nil
}

// OnSwitch installs an observer called after every activation or forced deactivation.
func (s *Scheduler[E]) OnSwitch(fn SwitchFunc[E]) { s.onSwitch = fn }

func (s *Scheduler[E]) Tasks() []Task[E] { return s.tasks }

// Tick runs Score, Select and Update in that order.
func (s *Scheduler[E]) Tick(entities []E, dt time.Duration) {
	s.closed = true
	s.Score(entities)
	s.Select(entities)
	s.Update(dt)
}

func (s *Scheduler[E]) Score(entities []E) {
	for ordinal, t := range s.tasks {
		t.UpdateScore(ordinal, entities)
	}
}

// Select picks the winning task for each entity, switches when it changed and
// clears the score slots. An entity with no recorded candidate keeps its task.
func (s *Scheduler[E]) Select(entities []E) {
	for _, e := range entities {
		tk := e.Tasking()
		if !e.Eligible() {
			s.idle(e)
			tk.clearScores()
			continue
		}

		// The current task is seeded first so ties keep it.
		current, hasCurrent := tk.Current()
		best, bestScore := Idle, baseline
		if hasCurrent {
			if score, ok := tk.Score(current); ok && score+s.tasks[current].Hysteresis() > bestScore {
				best, bestScore = current, score+s.tasks[current].Hysteresis()
			}
		}
		for ordinal := range s.tasks {
			if hasCurrent && ordinal == current {
				continue
			}
			if score, ok := tk.Score(ordinal); ok && score > bestScore {
				best, bestScore = ordinal, score
			}
		}
		tk.clearScores()

		if best == Idle || (hasCurrent && best == current) {
			continue
		}
		s.switchTo(e, best)
	}
}

func (s *Scheduler[E]) Update(dt time.Duration) {
	for _, t := range s.tasks {
		t.Update(dt)
	}
}

// Current returns the active task of e, or false when e is Idle.
func (s *Scheduler[E]) Current(e E) (Task[E], bool) {
	ordinal, ok := e.Tasking().Current()
	if !ok || ordinal >= len(s.tasks) {
		return nil, false
	}
	return s.tasks[ordinal], true
}

// RemoveEntity deactivates e in every task and resets it to Idle. Safe for
// entities that hold no task.
func (s *Scheduler[E]) RemoveEntity(e E) {
	for _, t := range s.tasks {
		t.Deactivate(e)
	}
	tk := e.Tasking()
	tk.setCurrent(Idle)
	tk.clearScores()
}

func (s *Scheduler[E]) switchTo(e E, ordinal int) {
	tk := e.Tasking()
	from := ""
	if current, ok := tk.Current(); ok {
		from = s.tasks[current].Name()
		s.tasks[current].Deactivate(e)
	}
	next := s.tasks[ordinal]
	next.Activate(e)
	tk.setCurrent(ordinal)

	s.metrics.TaskSwitched(s.name, next.Name())
	if s.log.Core().Enabled(zap.DebugLevel) {
		s.log.Debug("task switch",
			zap.String("scheduler", s.name),
			zap.String("from", from),
			zap.String("to", next.Name()),
		)
	}
	if s.onSwitch != nil {
		s.onSwitch(e, from, next.Name())
	}
}

func (s *Scheduler[E]) idle(e E) {
	tk := e.Tasking()
	current, ok := tk.Current()
	if !ok {
		return
	}
	from := s.tasks[current].Name()
	s.tasks[current].Deactivate(e)
	tk.setCurrent(Idle)
	if s.onSwitch != nil {
		s.onSwitch(e, from, "")
	}
}
