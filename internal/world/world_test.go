package world

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/phobos/squadai/internal/core/ecs"
	"github.com/phobos/squadai/internal/geom"
)

func newAgents(t *testing.T) *AgentData {
	t.Helper()
	d, err := NewAgentData(8)
	require.NoError(t, err)
	return d
}

func spawn(t *testing.T, d *AgentData, key int) *Agent {
	t.Helper()
	a, err := d.AddEntity(func(id ecs.EntityID) *Agent {
		return NewAgent(id, "bot", key, geom.Vec3{})
	})
	require.NoError(t, err)
	return a
}

func TestAgentComponentsLockstep(t *testing.T) {
	d := newAgents(t)
	a := spawn(t, d, 1)
	b := spawn(t, d, 1)

	for _, id := range []ecs.EntityID{a.ID(), b.ID()} {
		assert.True(t, d.Objectives.Has(id))
		assert.True(t, d.Guards.Has(id))
		mv, ok := d.Movements.Get(id)
		require.True(t, ok)
		assert.Equal(t, 1.0, mv.Speed)
	}

	require.NoError(t, d.RemoveEntity(a.ID()))
	assert.False(t, d.Objectives.Has(a.ID()))
	assert.False(t, d.Movements.Has(a.ID()))
	assert.False(t, d.Guards.Has(a.ID()))
	assert.Equal(t, 1, d.Movements.Len())
}

func TestSquadRegistryGroupsByKey(t *testing.T) {
	agents := newAgents(t)
	squads, err := NewSquadData(4)
	require.NoError(t, err)
	reg := NewSquadRegistry(squads, zap.NewNop())

	a, b, c := spawn(t, agents, 7), spawn(t, agents, 7), spawn(t, agents, 9)
	sa, err := reg.Join(a, 3)
	require.NoError(t, err)
	sb, err := reg.Join(b, 3)
	require.NoError(t, err)
	sc, err := reg.Join(c, 1)
	require.NoError(t, err)

	assert.Same(t, sa, sb)
	assert.NotSame(t, sa, sc)
	assert.Equal(t, 2, sa.Size())
	assert.Same(t, a, sa.Leader)
	assert.True(t, a.IsLeader)
	assert.False(t, b.IsLeader)
	assert.Equal(t, 3, sa.TargetSize)
	assert.Equal(t, 2, squads.Entities.Len())
	assert.True(t, squads.Objectives.Has(sa.ID()))
}

func TestSquadRegistryLeaderReassignment(t *testing.T) {
	agents := newAgents(t)
	squads, err := NewSquadData(4)
	require.NoError(t, err)
	reg := NewSquadRegistry(squads, zap.NewNop())

	a, b, c := spawn(t, agents, 1), spawn(t, agents, 1), spawn(t, agents, 1)
	for _, ag := range []*Agent{a, b, c} {
		_, err := reg.Join(ag, 3)
		require.NoError(t, err)
	}
	squad := a.Squad

	assert.Nil(t, reg.Leave(a))
	assert.NotSame(t, a, squad.Leader)
	assert.True(t, squad.Leader.IsLeader)
	assert.False(t, a.IsLeader)
	assert.Nil(t, a.Squad)

	// A non-leader leaving keeps the leader.
	leader := squad.Leader
	other := b
	if leader == b {
		other = c
	}
	assert.Nil(t, reg.Leave(other))
	assert.Same(t, leader, squad.Leader)

	emptied := reg.Leave(leader)
	assert.Same(t, squad, emptied)
	assert.False(t, squad.Eligible())
	_, ok := reg.Lookup(1)
	assert.False(t, ok)

	// The key is free again: a new member founds a new squad.
	d := spawn(t, agents, 1)
	fresh, err := reg.Join(d, 2)
	require.NoError(t, err)
	assert.NotSame(t, squad, fresh)
}

func TestSoloAgentsNeverShare(t *testing.T) {
	agents := newAgents(t)
	squads, err := NewSquadData(4)
	require.NoError(t, err)
	reg := NewSquadRegistry(squads, zap.NewNop())

	a, b := spawn(t, agents, SoloSquad), spawn(t, agents, SoloSquad)
	sa, err := reg.Join(a, 1)
	require.NoError(t, err)
	sb, err := reg.Join(b, 1)
	require.NoError(t, err)
	assert.NotSame(t, sa, sb)
	assert.Equal(t, 0, reg.Len())
	assert.Same(t, sa, reg.Leave(a))
}

func TestAgentEligibility(t *testing.T) {
	a := NewAgent(0, "bot", 1, geom.Vec3{})
	assert.True(t, a.Eligible())
	a.Active = false
	assert.False(t, a.Eligible())

	s := NewSquad(0, 1, 2)
	assert.False(t, s.Eligible())
	s.Members.Add(a)
	assert.True(t, s.Eligible())
}

func TestObserverIndex(t *testing.T) {
	idx := NewObserverIndex(10)
	idx.Upsert(1, geom.Vec3{X: 5, Z: 5})
	idx.Upsert(2, geom.Vec3{X: 25, Z: 5})
	idx.Upsert(3, geom.Vec3{X: -40, Z: -40})
	assert.Equal(t, 3, idx.Len())

	near := idx.Nearby(geom.Vec3{X: 10, Z: 5}, 16)
	sort.Slice(near, func(i, j int) bool { return near[i] < near[j] })
	assert.Equal(t, []uint64{1, 2}, near)

	// Moving across cells keeps a single entry.
	idx.Upsert(2, geom.Vec3{X: -35, Z: -40})
	assert.Equal(t, []uint64{1}, idx.Nearby(geom.Vec3{X: 10, Z: 5}, 16))
	assert.Len(t, idx.Nearby(geom.Vec3{X: -38, Z: -40}, 5), 2)

	idx.Remove(3)
	idx.Remove(3)
	assert.Equal(t, 2, idx.Len())
	assert.Len(t, idx.Positions(nil), 2)
}

func TestObserverPositionsOrderedByID(t *testing.T) {
	idx := NewObserverIndex(10)
	for _, id := range []uint64{42, 7, 19, 3, 88, 1} {
		idx.Upsert(id, geom.Vec3{X: float64(id)})
	}
	want := []geom.Vec3{{X: 1}, {X: 3}, {X: 7}, {X: 19}, {X: 42}, {X: 88}}
	for i := 0; i < 5; i++ {
		assert.Equal(t, want, idx.Positions(nil))
	}

	buf := []geom.Vec3{{Y: 9}}
	assert.Equal(t, append([]geom.Vec3{{Y: 9}}, want...), idx.Positions(buf))
}

func TestMovementReset(t *testing.T) {
	m := &Movement{
		Target: &MovementTarget{Position: geom.Vec3{X: 1}},
		Path:   []geom.Vec3{{}, {X: 1}},
		Corner: 1,
	}
	assert.True(t, m.Moving())
	m.Reset()
	assert.Nil(t, m.Target)
	assert.False(t, m.Moving())
}
