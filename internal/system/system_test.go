package system

import (
	"context"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jakecoffman/cp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/phobos/squadai/internal/core/ecs"
	"github.com/phobos/squadai/internal/core/event"
	"github.com/phobos/squadai/internal/geom"
	"github.com/phobos/squadai/internal/location"
	"github.com/phobos/squadai/internal/nav"
	"github.com/phobos/squadai/internal/persist"
	"github.com/phobos/squadai/internal/scripting"
	"github.com/phobos/squadai/internal/world"
)

// flatGround is walkable everywhere west of x=100.
type flatGround struct{}

func (flatGround) NearestWalkable(pos geom.Vec3, _ float64) (geom.Vec3, bool) {
	if pos.X > 100 {
		return geom.Vec3{}, false
	}
	return pos, true
}

func newAgents(t *testing.T, positions ...geom.Vec3) (*world.AgentData, []*world.Agent) {
	t.Helper()
	agents, err := world.NewAgentData(8)
	require.NoError(t, err)
	var out []*world.Agent
	for _, pos := range positions {
		a, err := agents.AddEntity(func(id ecs.EntityID) *world.Agent {
			return world.NewAgent(id, "pmc", 1, pos)
		})
		require.NoError(t, err)
		out = append(out, a)
	}
	return agents, out
}

func TestMovementWalksPath(t *testing.T) {
	agents, as := newAgents(t, geom.Vec3{})
	a := as[0]
	s := NewMovementSystem(agents, nav.NewDeferredPather(flatGround{}, 1), zap.NewNop())
	mv, _ := agents.Movements.Get(a.ID())
	mv.Speed = 2

	s.MoveTo(a, geom.Vec3{X: 10})
	require.NotNil(t, mv.Job)

	s.Update(time.Second) // job still pending
	assert.Equal(t, geom.Vec3{}, a.Position)
	s.Update(time.Second) // job resolves
	assert.Nil(t, mv.Job)
	assert.Len(t, mv.Path, 2)
	assert.True(t, mv.Moving())

	s.Update(time.Second)
	assert.InDelta(t, 2, a.Position.X, 1e-9)

	s.Update(3 * time.Second)
	assert.InDelta(t, 8, a.Position.X, 1e-9)
	assert.Nil(t, mv.Target, "within reach of the target")
	assert.False(t, mv.Moving())
}

func TestMovementGivesUpAfterRetries(t *testing.T) {
	agents, as := newAgents(t, geom.Vec3{})
	a := as[0]
	s := NewMovementSystem(agents, nav.NewDeferredPather(flatGround{}, 0), zap.NewNop())
	mv, _ := agents.Movements.Get(a.ID())

	s.MoveTo(a, geom.Vec3{X: 200})
	for i := 0; i < maxPathRetries-1; i++ {
		s.Update(100 * time.Millisecond)
	}
	assert.False(t, mv.Target.Failed)
	assert.NotNil(t, mv.Job)

	s.Update(100 * time.Millisecond)
	assert.True(t, mv.Target.Failed)
	assert.Nil(t, mv.Job)
	assert.Equal(t, maxPathRetries, mv.Retry)

	// A new order starts over.
	s.MoveTo(a, geom.Vec3{X: 20})
	assert.Zero(t, mv.Retry)
	assert.False(t, mv.Target.Failed)
}

func TestMovementSkipsHostControlled(t *testing.T) {
	agents, as := newAgents(t, geom.Vec3{})
	a := as[0]
	s := NewMovementSystem(agents, nav.NewDeferredPather(flatGround{}, 0), zap.NewNop())

	s.MoveTo(a, geom.Vec3{X: 10})
	a.Active = false
	for i := 0; i < 5; i++ {
		s.Update(time.Second)
	}
	assert.Equal(t, geom.Vec3{}, a.Position)

	s.Stop(a)
	mv, _ := agents.Movements.Get(a.ID())
	assert.Nil(t, mv.Target)
}

func TestInputDeliversQueuedEvents(t *testing.T) {
	bus := event.NewBus()
	var got []event.AgentMoved
	event.Subscribe(bus, func(e event.AgentMoved) { got = append(got, e) })

	s := NewInputSystem(bus)
	event.Emit(bus, event.AgentMoved{AgentID: 3, Position: geom.Vec3{X: 1}})
	s.Update(0)
	require.Len(t, got, 1)
	assert.Equal(t, ecs.EntityID(3), got[0].AgentID)

	s.Update(0)
	assert.Len(t, got, 1)
}

func TestCleanupFlushesQueue(t *testing.T) {
	agents, as := newAgents(t, geom.Vec3{}, geom.Vec3{X: 1})
	var removed []ecs.EntityID
	s := NewCleanupSystem(agents, func(id ecs.EntityID) {
		removed = append(removed, id)
		require.NoError(t, agents.RemoveEntity(id))
	})

	agents.MarkForDestruction(as[1].ID())
	agents.MarkForDestruction(as[1].ID())
	s.Update(0)

	assert.Equal(t, []ecs.EntityID{as[1].ID()}, removed)
	assert.Zero(t, agents.PendingDestruction())
	assert.Equal(t, 1, agents.Entities.Len())
}

func TestSenseUpdatesConvergenceOnInterval(t *testing.T) {
	var locs []*location.Location
	for x := 0; x < 3; x++ {
		locs = append(locs, &location.Location{ID: x, Position: geom.Vec3{X: float64(x)*10 + 5, Z: 5}, RadiusSq: 25})
	}
	settings := location.DefaultSettings()
	settings.Geometry = &location.Geometry{Max: cp.Vector{X: 30, Y: 10}, CellSize: 10}
	settings.Convergence = location.Convergence{Enabled: true, Radius: 100, Force: 1}
	sys, err := location.NewSystem(locs, settings, location.Options{Rand: rand.New(rand.NewPCG(1, 1))})
	require.NoError(t, err)

	agents, as := newAgents(t, geom.Vec3{X: 5, Z: 5})
	index := world.NewObserverIndex(10)
	index.Upsert(1, geom.Vec3{X: 25, Z: 5})

	s := NewSenseSystem(index, agents, sys, time.Second)
	s.Update(100 * time.Millisecond)
	assert.Greater(t, sys.Convergence(location.Coord{X: 0}).X, 0.0)

	index.Remove(1)
	s.Update(100 * time.Millisecond)
	s.Update(time.Second)
	assert.Greater(t, sys.Convergence(location.Coord{X: 0}).X, 0.0, "gate still closed")

	// The only observer left is an agent standing in the west cell.
	as[0].Observer = true
	s.Update(100 * time.Millisecond)
	assert.Less(t, sys.Convergence(location.Coord{X: 2}).X, 0.0)
}

type memorySink struct {
	mu       sync.Mutex
	switches []persist.SwitchRecord
}

func (s *memorySink) WriteAllocations(context.Context, []persist.AllocationRecord) error { return nil }

func (s *memorySink) WriteSwitches(_ context.Context, rows []persist.SwitchRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.switches = append(s.switches, rows...)
	return nil
}

func TestPersistenceFlushesEveryInterval(t *testing.T) {
	sink := &memorySink{}
	rec := persist.NewRecorder(uuid.New(), sink, 16, zap.NewNop(), nil)
	s := NewPersistenceSystem(rec, 3)

	rec.RecordSwitch(1, "actions", 0, "idle", "guard")
	s.Update(0)
	s.Update(0)
	assert.Equal(t, 1, rec.Pending())
	s.Update(0)
	assert.Zero(t, rec.Pending())

	rec.Close()
	assert.Len(t, sink.switches, 1)
}

func TestScriptReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rest.lua")
	require.NoError(t, os.WriteFile(path, []byte(`function score_rest(ctx) return 0.1 end`), 0o644))

	engine, err := scripting.NewEngine(dir, zap.NewNop())
	require.NoError(t, err)
	defer engine.Close()
	watcher, err := scripting.NewWatcher(dir)
	require.NoError(t, err)
	defer watcher.Close()

	core, logs := observer.New(zap.ErrorLevel)
	s := NewScriptReloadSystem(engine, watcher, zap.New(core))

	require.NoError(t, os.WriteFile(path, []byte(`function score_rest(ctx) return 0.7 end`), 0o644))
	watcher.Drain()
	watcher.Events <- path
	s.Update(0)
	score, ok := engine.Score("score_rest", scripting.ScoreContext{})
	require.True(t, ok)
	assert.InDelta(t, 0.7, score, 1e-9)

	require.NoError(t, os.WriteFile(path, []byte(`function score_rest(ctx) return`), 0o644))
	watcher.Drain()
	watcher.Events <- path
	s.Update(0)
	score, ok = engine.Score("score_rest", scripting.ScoreContext{})
	require.True(t, ok)
	assert.InDelta(t, 0.7, score, 1e-9)
	assert.Equal(t, 1, logs.FilterMessage("lua reload failed, keeping previous scripts").Len())
}
