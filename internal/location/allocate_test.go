package location

import (
	"testing"

	"github.com/jakecoffman/cp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobos/squadai/internal/core/ecs"
	"github.com/phobos/squadai/internal/geom"
)

func TestRequestFromCenterNeverPicksCenter(t *testing.T) {
	for seed := uint64(1); seed <= 200; seed++ {
		s := newTestSystem(t, everyCell(3, 3), fixedGrid(3, 3), seed)
		center := s.Locations(Coord{1, 1})[0]

		for call := 0; call < 5; call++ {
			loc, ok := s.RequestNear(1, centerOf(1, 1), nil)
			require.True(t, ok)
			assert.NotSame(t, center, loc, "seed %d call %d", seed, call)
		}
	}
}

func TestCongestionCountsGrantsAndReturns(t *testing.T) {
	// A single populated cell absorbs every request.
	locs := []*Location{{ID: 0, Position: centerOf(0, 0)}}
	s := newTestSystem(t, locs, fixedGrid(3, 3), 1)
	only := Coord{0, 0}

	for e := ecs.EntityID(0); e < 5; e++ {
		loc, ok := s.RequestNear(e, centerOf(2, 2), nil)
		require.True(t, ok)
		assert.Same(t, locs[0], loc)
	}
	assert.Equal(t, 5, s.Congestion(only))

	for e := ecs.EntityID(0); e < 5; e++ {
		require.True(t, s.Return(e))
		assert.GreaterOrEqual(t, s.Congestion(only), 0)
		assert.Equal(t, 4-int(e), s.Congestion(only))
	}
	assert.False(t, s.Return(0))
	assert.Equal(t, 0, s.Congestion(only))
}

func TestCongestionNeverNegative(t *testing.T) {
	s := newTestSystem(t, everyCell(5, 4), fixedGrid(5, 4), 42)
	rng := seeded(99)

	for step := 0; step < 5000; step++ {
		e := ecs.EntityID(rng.IntN(24))
		if rng.IntN(3) == 0 {
			s.Return(e)
		} else {
			pos := geom.Vec3{X: rng.Float64()*70 - 10, Z: rng.Float64()*60 - 10}
			var prev *Location
			if rng.IntN(2) == 0 {
				prev = s.AllLocations()[rng.IntN(20)]
			}
			_, ok := s.RequestNear(e, pos, prev)
			require.True(t, ok)
		}

		total := 0
		for y := 0; y < 4; y++ {
			for x := 0; x < 5; x++ {
				c := s.Congestion(Coord{x, y})
				require.GreaterOrEqual(t, c, 0, "step %d", step)
				total += c
			}
		}
		require.Equal(t, s.Assignments(), total, "step %d", step)
	}
}

func TestFieldsZeroWithoutSources(t *testing.T) {
	s := newTestSystem(t, everyCell(4, 4), fixedGrid(4, 4), 3)
	s.SetConvergence(Convergence{Enabled: true, Radius: 100, Force: 1})
	s.UpdateConvergence(nil)

	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			assert.Equal(t, cp.Vector{}, s.Advection(Coord{x, y}))
			assert.Equal(t, cp.Vector{}, s.Convergence(Coord{x, y}))
		}
	}
}

func TestRequestIsDeterministicWithFixedFields(t *testing.T) {
	settings := fixedGrid(5, 5)
	settings.Jitter = 0
	s := newTestSystem(t, everyCell(5, 5), settings, 5)
	s.SetZones([]Zone{{Cell: Coord{4, 0}, Radius: 10, Force: 1, Decay: 1}})

	first, ok := s.RequestNear(1, centerOf(2, 2), nil)
	require.True(t, ok)
	want, _ := s.WorldToCell(first.Position)
	assert.Equal(t, Coord{3, 1}, want)

	for i := 0; i < 50; i++ {
		loc, ok := s.RequestNear(1, centerOf(2, 2), nil)
		require.True(t, ok)
		got, _ := s.WorldToCell(loc.Position)
		assert.Equal(t, want, got)
	}
}

func TestSameSeedSameSequence(t *testing.T) {
	run := func() []Coord {
		s := newTestSystem(t, everyCell(6, 6), fixedGrid(6, 6), 11)
		var out []Coord
		for i := 0; i < 40; i++ {
			e := ecs.EntityID(i % 7)
			loc, ok := s.RequestNear(e, centerOf(i%6, (i/6)%6), nil)
			require.True(t, ok)
			c, _ := s.WorldToCell(loc.Position)
			out = append(out, c)
		}
		return out
	}
	assert.Equal(t, run(), run())
}

func TestZoneFieldPointsTowardZone(t *testing.T) {
	s := newTestSystem(t, everyCell(5, 5), fixedGrid(5, 5), 1)
	zone := Coord{2, 2}
	s.SetZones([]Zone{{Cell: zone, Radius: 10, Force: 1, Decay: 1}})

	for _, off := range neighborOffsets {
		c := Coord{zone.X + off.X, zone.Y + off.Y}
		toward := zone.Sub(c).vec()
		assert.Greater(t, s.Advection(c).Dot(toward), 0.0, "cell %v", c)
	}
	assert.Equal(t, cp.Vector{}, s.Advection(zone))
}

func TestZoneFieldFallsOffWithDistance(t *testing.T) {
	s := newTestSystem(t, everyCell(5, 1), fixedGrid(5, 1), 1)
	s.SetZones([]Zone{{Cell: Coord{0, 0}, Radius: 3, Force: 1, Decay: 1}})

	near := s.Advection(Coord{1, 0}).Length()
	far := s.Advection(Coord{2, 0}).Length()
	assert.InDelta(t, 2.0/3.0, near, 1e-9)
	assert.InDelta(t, 1.0/3.0, far, 1e-9)
	assert.Equal(t, cp.Vector{}, s.Advection(Coord{3, 0}))
	assert.Equal(t, cp.Vector{}, s.Advection(Coord{4, 0}))
}

func TestOutOfGridFallsBackToLeastCongested(t *testing.T) {
	s := newTestSystem(t, everyCell(3, 3), fixedGrid(3, 3), 8)
	want, ok := s.LeastCongested()
	require.True(t, ok)

	loc, ok := s.RequestNear(1, geom.Vec3{X: -500, Z: -500}, nil)
	require.True(t, ok)
	got, _ := s.WorldToCell(loc.Position)
	assert.Equal(t, want, got)
	assert.Equal(t, 1, s.Congestion(want))

	next, _ := s.LeastCongested()
	assert.NotEqual(t, want, next)
}

func TestFallbackTieBreaksByCellID(t *testing.T) {
	s := newTestSystem(t, everyCell(3, 3), fixedGrid(3, 3), 21)

	var seen []int
	for e := ecs.EntityID(0); e < 9; e++ {
		loc, ok := s.RequestNear(e, geom.Vec3{X: 1000, Z: 1000}, nil)
		require.True(t, ok)
		c, _ := s.WorldToCell(loc.Position)
		seen = append(seen, s.CellID(c))
	}
	// Each out-of-grid request takes the lowest-id cell among those still at zero.
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8}, seen)

	// Releasing a cell puts it back at the front.
	held, _ := s.Assignment(4)
	require.True(t, s.Return(4))
	front, _ := s.LeastCongested()
	assert.Equal(t, held, front)
}

func TestIsolatedCellUsesOwnLocations(t *testing.T) {
	locs := []*Location{
		{ID: 0, Position: centerOf(0, 0)},
		{ID: 1, Position: centerOf(4, 4)},
	}
	s := newTestSystem(t, locs, fixedGrid(5, 5), 1)

	loc, ok := s.RequestNear(1, centerOf(4, 4), nil)
	require.True(t, ok)
	assert.Same(t, locs[1], loc)
}

func TestRequestReleasesPreviousAssignment(t *testing.T) {
	s := newTestSystem(t, everyCell(3, 3), fixedGrid(3, 3), 2)

	first, ok := s.RequestNear(1, centerOf(1, 1), nil)
	require.True(t, ok)
	firstCell, _ := s.WorldToCell(first.Position)

	second, ok := s.RequestNear(1, first.Position, first)
	require.True(t, ok)
	secondCell, _ := s.WorldToCell(second.Position)

	held, ok := s.Assignment(1)
	require.True(t, ok)
	assert.Equal(t, secondCell, held)
	assert.Equal(t, 1, s.Assignments())
	if firstCell != secondCell {
		assert.Equal(t, 0, s.Congestion(firstCell))
	}
}

func TestReturnReversesPropagation(t *testing.T) {
	settings := fixedGrid(5, 5)
	settings.PropagationRadius = 2
	settings.PropagationStrength = 0.5
	s := newTestSystem(t, everyCell(5, 5), settings, 4)

	_, ok := s.RequestNear(1, centerOf(2, 2), nil)
	require.True(t, ok)
	snapshot := make(map[Coord]cp.Vector)
	for y := 0; y < 5; y++ {
		for x := 0; x < 5; x++ {
			snapshot[Coord{x, y}] = s.Advection(Coord{x, y})
		}
	}
	held, _ := s.Assignment(1)
	away := Coord{held.X + 1, held.Y}
	if s.inGrid(away) {
		assert.Greater(t, s.Advection(away).X, 0.0)
	}

	_, ok = s.RequestNear(2, centerOf(0, 4), nil)
	require.True(t, ok)
	require.True(t, s.Return(2))
	for c, v := range snapshot {
		got := s.Advection(c)
		assert.InDelta(t, v.X, got.X, 1e-9)
		assert.InDelta(t, v.Y, got.Y, 1e-9)
	}

	require.True(t, s.Return(1))
	for c := range snapshot {
		assert.Equal(t, cp.Vector{}, s.Advection(c))
	}
}

func TestSetZonesKeepsGrantPropagation(t *testing.T) {
	s := newTestSystem(t, everyCell(5, 5), fixedGrid(5, 5), 4)
	_, ok := s.RequestNear(1, centerOf(2, 2), nil)
	require.True(t, ok)
	held, _ := s.Assignment(1)
	neighbor := Coord{held.X, held.Y + 1}
	if !s.inGrid(neighbor) {
		neighbor = Coord{held.X, held.Y - 1}
	}
	before := s.Advection(neighbor)
	require.NotEqual(t, cp.Vector{}, before)

	zone := Zone{Cell: Coord{0, 0}, Radius: 20, Force: 1, Decay: 1}
	s.SetZones([]Zone{zone})
	s.SetZones(nil)
	assert.Equal(t, before, s.Advection(neighbor))
}

func TestGrantObserverSeesEveryGrant(t *testing.T) {
	var grants []string
	s, err := NewSystem(everyCell(3, 3), fixedGrid(3, 3), Options{
		Rand: seeded(1),
		OnGrant: func(_ ecs.EntityID, _ Coord, _ *Location, via string) {
			grants = append(grants, via)
		},
	})
	require.NoError(t, err)

	_, _ = s.RequestNear(1, centerOf(1, 1), nil)
	_, _ = s.RequestNear(2, geom.Vec3{X: -50}, nil)
	assert.Equal(t, []string{viaDirection, viaOutOfGrid}, grants)
}
