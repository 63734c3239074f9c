// Package sim is the root context: one Session owns every store, scheduler and
// system of a running simulation.
package sim

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/phobos/squadai/internal/behavior"
	"github.com/phobos/squadai/internal/config"
	"github.com/phobos/squadai/internal/core/ecs"
	"github.com/phobos/squadai/internal/core/event"
	coresys "github.com/phobos/squadai/internal/core/system"
	"github.com/phobos/squadai/internal/data"
	"github.com/phobos/squadai/internal/geom"
	"github.com/phobos/squadai/internal/location"
	"github.com/phobos/squadai/internal/metrics"
	"github.com/phobos/squadai/internal/nav"
	"github.com/phobos/squadai/internal/orchestration"
	"github.com/phobos/squadai/internal/persist"
	"github.com/phobos/squadai/internal/scripting"
	"github.com/phobos/squadai/internal/system"
	"github.com/phobos/squadai/internal/task"
	"github.com/phobos/squadai/internal/world"
)

// ScriptedActions are the Lua-scored actions registered when an engine is set.
// Each needs a score_<name> function to compete.
var ScriptedActions = []string{"rest"}

const (
	scriptedHysteresis = 0.05
	// observerCellSize buckets tracked observers; it only affects index lookups.
	observerCellSize = 50
)

type Options struct {
	Config *config.Config
	Map    *data.MapEntry
	World  location.World
	Pather nav.PathFinder
	// Engine enables scripted actions; Watcher additionally hot-reloads them.
	Engine  *scripting.Engine
	Watcher *scripting.Watcher
	// Sink enables telemetry.
	Sink    persist.Sink
	Metrics *metrics.Metrics
	Log     *zap.Logger
}

// AgentSpec describes an agent handed over by the host.
type AgentSpec struct {
	ProfileID string
	SquadKey  int
	SquadSize int // 0 = configured default
	Position  geom.Vec3
	Observer  bool
}

// Session is the root context. All methods run on the tick goroutine except
// event emission through Bus, which is safe from any goroutine.
type Session struct {
	ID   uuid.UUID
	Seed uint64

	cfg     *config.Config
	log     *zap.Logger
	metrics *metrics.Metrics

	Bus       *event.Bus
	Agents    *world.AgentData
	Squads    *world.SquadData
	Registry  *world.SquadRegistry
	Observers *world.ObserverIndex
	Locations *location.System
	Movement  *system.MovementSystem

	actions    *orchestration.Orchestrator[*world.Agent]
	strategies *orchestration.Orchestrator[*world.Squad]
	recorder   *persist.Recorder
	runner     *coresys.Runner
}

func New(opts Options) (*Session, error) {
	cfg := opts.Config
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	seed := cfg.Server.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	s := &Session{
		ID:        uuid.New(),
		Seed:      seed,
		cfg:       cfg,
		log:       log,
		metrics:   opts.Metrics,
		Bus:       event.NewBus(),
		Observers: world.NewObserverIndex(observerCellSize),
		runner:    coresys.NewRunner(),
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	var err error
	if s.Agents, err = world.NewAgentData(cfg.Sim.Agents); err != nil {
		return nil, err
	}
	if s.Squads, err = world.NewSquadData(max(cfg.Sim.Agents/cfg.Sim.SquadSize, 1)); err != nil {
		return nil, err
	}
	s.Registry = world.NewSquadRegistry(s.Squads, log)

	if opts.Sink != nil {
		s.recorder = persist.NewRecorder(s.ID, opts.Sink, cfg.Telemetry.BufferSize, log, opts.Metrics)
	}

	settings := locationSettings(cfg.Location, opts.Map)
	locs := location.Gather(opts.World, gatherCellSize(settings), log)
	s.Locations, err = location.NewSystem(locs, settings, location.Options{
		World:   opts.World,
		Rand:    rng,
		Log:     log,
		Metrics: opts.Metrics,
		OnGrant: s.recordGrant,
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("build location grid for map %s: %w", opts.Map.Name, err)
	}
	s.Locations.SetZones(s.Locations.SampleZones(zoneSpecs(opts.Map), opts.World.ZoneCenters()))
	s.Locations.SetConvergence(s.Locations.SampleConvergence(convergenceSpec(opts.Map), cfg.Location.ConvergenceRandomness))

	s.Movement = system.NewMovementSystem(s.Agents, opts.Pather, log)
	if err := s.buildSchedulers(opts, rng); err != nil {
		s.Close()
		return nil, err
	}
	s.subscribe()

	s.runner.Register(system.NewInputSystem(s.Bus))
	if opts.Engine != nil && opts.Watcher != nil {
		s.runner.Register(system.NewScriptReloadSystem(opts.Engine, opts.Watcher, log))
	}
	s.runner.Register(system.NewSenseSystem(s.Observers, s.Agents, s.Locations, cfg.Location.ConvergenceInterval))
	s.runner.Register(s.strategies)
	s.runner.Register(s.actions)
	s.runner.Register(s.Movement)
	if s.recorder != nil {
		s.runner.Register(system.NewPersistenceSystem(s.recorder, cfg.Telemetry.FlushTicks))
	}
	s.runner.Register(system.NewCleanupSystem(s.Agents, s.destroy))

	log.Info("session ready",
		zap.String("session", s.ID.String()),
		zap.Uint64("seed", seed),
		zap.String("map", opts.Map.Name),
		zap.Int("zones", len(s.Locations.Zones())),
		zap.Bool("telemetry", s.recorder != nil),
	)
	return s, nil
}

func (s *Session) buildSchedulers(opts Options, rng *rand.Rand) error {
	guardWatch := s.cfg.Sim.GuardWatch
	if opts.Engine != nil {
		secs := opts.Engine.Tunable("GUARD_WATCH_SECONDS", guardWatch.Seconds())
		guardWatch = time.Duration(secs * float64(time.Second))
	}

	actions := task.NewScheduler[*world.Agent]("actions", s.log, s.metrics)
	agentTasks := []task.Task[*world.Agent]{
		behavior.NewGotoObjectiveAction(s.Agents, s.Movement),
		behavior.NewGuardAction(s.Agents, s.Movement, rng, guardWatch),
	}
	if opts.Engine != nil {
		for _, name := range ScriptedActions {
			agentTasks = append(agentTasks, behavior.NewScriptedAction(name, scriptedHysteresis, opts.Engine, s.Agents, s.Observers, s.Movement))
		}
	}
	for _, t := range agentTasks {
		if _, err := actions.Register(t); err != nil {
			return err
		}
	}

	strategies := task.NewScheduler[*world.Squad]("strategies", s.log, s.metrics)
	if _, err := strategies.Register(behavior.NewGotoObjectiveStrategy(s.Squads, s.Agents, s.Locations, s.log)); err != nil {
		return err
	}

	if s.recorder != nil {
		actions.OnSwitch(func(a *world.Agent, from, to string) {
			s.recorder.RecordSwitch(s.runner.Ticks(), actions.Name(), int(a.ID()), taskName(from), taskName(to))
		})
		strategies.OnSwitch(func(sq *world.Squad, from, to string) {
			s.recorder.RecordSwitch(s.runner.Ticks(), strategies.Name(), int(sq.ID()), taskName(from), taskName(to))
		})
	}

	s.actions = orchestration.NewActions(s.Agents.Dataset, actions)
	s.strategies = orchestration.NewStrategies(s.Squads.Dataset, strategies, s.cfg.Scheduler.StrategyInterval)
	return nil
}

func taskName(name string) string {
	if name == "" {
		return "idle"
	}
	return name
}

func (s *Session) subscribe() {
	event.Subscribe(s.Bus, func(e event.AgentSpawned) {
		if _, err := s.AddAgent(AgentSpec(e)); err != nil {
			s.log.Error("spawn agent", zap.String("profile", e.ProfileID), zap.Error(err))
		}
	})
	event.Subscribe(s.Bus, func(e event.AgentDespawned) {
		s.Agents.MarkForDestruction(e.AgentID)
	})
	event.Subscribe(s.Bus, func(e event.AgentMoved) {
		if a, ok := s.agent(e.AgentID); ok {
			a.Position = e.Position
		}
	})
	event.Subscribe(s.Bus, func(e event.AgentToggled) {
		if a, ok := s.agent(e.AgentID); ok {
			a.Active = e.Active
		}
	})
	event.Subscribe(s.Bus, func(e event.ObserverMoved) {
		if e.Gone {
			s.Observers.Remove(e.ObserverID)
			return
		}
		s.Observers.Upsert(e.ObserverID, e.Position)
	})
}

func (s *Session) agent(id ecs.EntityID) (*world.Agent, bool) {
	a, err := s.Agents.Lookup(id)
	if err != nil {
		s.log.Warn("event for unknown agent", zap.Int("agent", int(id)), zap.Error(err))
		return nil, false
	}
	return a, true
}

// AddAgent registers an agent with its components and squad.
func (s *Session) AddAgent(spec AgentSpec) (*world.Agent, error) {
	a, err := s.Agents.AddEntity(func(id ecs.EntityID) *world.Agent {
		a := world.NewAgent(id, spec.ProfileID, spec.SquadKey, spec.Position)
		a.Observer = spec.Observer
		return a
	})
	if err != nil {
		return nil, fmt.Errorf("add agent %s: %w", spec.ProfileID, err)
	}
	if mv, ok := s.Agents.Movements.Get(a.ID()); ok {
		mv.Speed = s.cfg.Sim.MoveSpeed
	}

	size := spec.SquadSize
	if size < 1 {
		size = s.cfg.Sim.SquadSize
	}
	if _, err := s.Registry.Join(a, size); err != nil {
		if rmErr := s.Agents.RemoveEntity(a.ID()); rmErr != nil {
			err = errors.Join(err, rmErr)
		}
		return nil, err
	}
	s.updatePopulation()
	s.log.Debug("agent added", zap.Stringer("agent", a), zap.Stringer("squad", a.Squad))
	return a, nil
}

// RemoveAgent tears an agent down: its task, its movement, its squad seat and,
// when it was the last member, the squad and the squad's location.
func (s *Session) RemoveAgent(id ecs.EntityID) error {
	a, err := s.Agents.Lookup(id)
	if err != nil {
		return fmt.Errorf("remove agent %d: %w", id, err)
	}
	s.actions.RemoveEntity(a)
	s.Movement.Stop(a)
	if emptied := s.Registry.Leave(a); emptied != nil {
		s.removeSquad(emptied)
	}
	if err := s.Agents.RemoveEntity(id); err != nil {
		return fmt.Errorf("remove agent %d: %w", id, err)
	}
	s.updatePopulation()
	return nil
}

func (s *Session) removeSquad(sq *world.Squad) {
	s.strategies.RemoveEntity(sq)
	s.Locations.Return(sq.ID())
	if err := s.Squads.RemoveEntity(sq.ID()); err != nil {
		s.log.Error("remove squad", zap.Int("squad", int(sq.ID())), zap.Error(err))
	}
}

// destroy is the cleanup hook for agents queued by AgentDespawned.
func (s *Session) destroy(id ecs.EntityID) {
	if err := s.RemoveAgent(id); err != nil {
		s.log.Error("despawn agent", zap.Int("agent", int(id)), zap.Error(err))
	}
}

func (s *Session) updatePopulation() {
	s.metrics.SetPopulation(s.Agents.Entities.Len(), s.Squads.Entities.Len())
}

func (s *Session) recordGrant(entity ecs.EntityID, c location.Coord, loc *location.Location, via string) {
	if s.recorder == nil {
		return
	}
	s.recorder.RecordAllocation(s.runner.Ticks(), int(entity), c.X, c.Y, loc.ID, loc.Category.String(), via)
}

// Tick runs every phase once.
func (s *Session) Tick(dt time.Duration) {
	start := time.Now()
	s.runner.Tick(dt)
	s.metrics.ObserveTick(time.Since(start).Seconds())
}

func (s *Session) Ticks() uint64 { return s.runner.Ticks() }

// CurrentAction returns the name of the action driving a, or "idle".
func (s *Session) CurrentAction(a *world.Agent) string {
	if t, ok := s.actions.Scheduler().Current(a); ok {
		return t.Name()
	}
	return taskName("")
}

// CurrentStrategy returns the name of the strategy driving sq, or "idle".
func (s *Session) CurrentStrategy(sq *world.Squad) string {
	if t, ok := s.strategies.Scheduler().Current(sq); ok {
		return t.Name()
	}
	return taskName("")
}

// Close flushes telemetry. The session must not tick afterwards.
func (s *Session) Close() {
	if s.recorder != nil {
		s.recorder.Close()
	}
}
