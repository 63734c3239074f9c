package location

import (
	"math"
	"sort"

	"github.com/jakecoffman/cp"
	"go.uber.org/zap"

	"github.com/phobos/squadai/internal/core/ecs"
	"github.com/phobos/squadai/internal/geom"
)

const (
	viaDirection  = "direction"
	viaOwnCell    = "own_cell"
	viaOutOfGrid  = "out_of_grid"
	viaNoNeighbor = "no_neighbor"
	viaNoPull     = "no_preference"
)

var neighborOffsets = [8]Coord{
	{-1, -1}, {0, -1}, {1, -1},
	{-1, 0}, {1, 0},
	{-1, 1}, {0, 1}, {1, 1},
}

// RequestNear releases entity's current assignment and grants it a cell next to
// pos, steered by the combined fields. previous, when set, adds momentum away
// from the cell it was in. ok is false only when no cell holds a location.
func (s *System) RequestNear(entity ecs.EntityID, pos geom.Vec3, previous *Location) (*Location, bool) {
	s.release(entity)

	c, inGrid := s.WorldToCell(pos)
	if !inGrid {
		return s.fallback(entity, viaOutOfGrid)
	}

	var candidates [8]Coord
	n := 0
	for _, off := range neighborOffsets {
		nc := Coord{X: c.X + off.X, Y: c.Y + off.Y}
		if s.inGrid(nc) && len(s.cells[s.index(nc)].locations) > 0 {
			candidates[n] = nc
			n++
		}
	}
	if n == 0 {
		return s.ownCellOrFallback(entity, c, viaNoNeighbor)
	}

	preferred := s.preferred(c, previous)
	if geom.IsZero(preferred) {
		return s.ownCellOrFallback(entity, c, viaNoPull)
	}

	dir := geom.Unit(preferred)
	best, bestCos := candidates[0], math.Inf(-1)
	for _, nc := range candidates[:n] {
		cos := geom.Unit(nc.Sub(c).vec()).Dot(dir)
		if cos > bestCos {
			best, bestCos = nc, cos
		}
	}
	return s.grant(entity, s.index(best), viaDirection), true
}

// preferred sums convergence, momentum, advection and jitter at c.
func (s *System) preferred(c Coord, previous *Location) cp.Vector {
	idx := s.index(c)
	v := s.convergence[idx].Add(s.zoneField[idx]).Add(s.grantField[idx])
	if previous != nil {
		prev, _ := s.WorldToCell(previous.Position)
		v = v.Add(geom.Unit(c.Sub(prev).vec()).Mult(s.settings.Momentum))
	}
	if s.settings.Jitter > 0 {
		v = v.Add(cp.ForAngle(s.rng.Float64() * 2 * math.Pi).Mult(s.settings.Jitter))
	}
	return v
}

func (s *System) ownCellOrFallback(entity ecs.EntityID, c Coord, reason string) (*Location, bool) {
	idx := s.index(c)
	if len(s.cells[idx].locations) > 0 {
		s.metrics.LocationFallback(viaOwnCell)
		return s.grant(entity, idx, viaOwnCell), true
	}
	return s.fallback(entity, reason)
}

// fallback grants the least congested populated cell map-wide.
func (s *System) fallback(entity ecs.EntityID, reason string) (*Location, bool) {
	if len(s.order) == 0 {
		s.metrics.LocationExhausted()
		s.log.Warn("no populated cell to allocate", zap.Int("entity", int(entity)))
		return nil, false
	}
	s.metrics.LocationFallback(reason)
	return s.grant(entity, s.order[0], reason), true
}

func (s *System) grant(entity ecs.EntityID, idx int, via string) *Location {
	cl := &s.cells[idx]
	cl.congestion++
	s.bubbleUp(idx)
	s.propagate(idx, 1)
	s.assignments[entity] = idx

	loc := cl.locations[s.rng.IntN(len(cl.locations))]
	c := s.coord(idx)
	s.metrics.LocationGranted()
	if s.log.Core().Enabled(zap.DebugLevel) {
		s.log.Debug("location granted",
			zap.Int("entity", int(entity)),
			zap.Int("x", c.X),
			zap.Int("y", c.Y),
			zap.Int("congestion", cl.congestion),
			zap.String("via", via),
			zap.Stringer("location", loc),
		)
	}
	if s.onGrant != nil {
		s.onGrant(entity, c, loc, via)
	}
	return loc
}

// Return releases the assignment held by entity. It reports false when entity
// held none.
func (s *System) Return(entity ecs.EntityID) bool {
	if !s.release(entity) {
		return false
	}
	s.metrics.LocationReturned()
	return true
}

func (s *System) release(entity ecs.EntityID) bool {
	idx, ok := s.assignments[entity]
	if !ok {
		return false
	}
	delete(s.assignments, entity)

	cl := &s.cells[idx]
	cl.congestion--
	if cl.congestion < 0 {
		cl.congestion = 0
		s.metrics.CongestionClamped()
		s.log.Warn("negative congestion clamped",
			zap.Int("entity", int(entity)),
			zap.Int("cell", idx),
		)
	} else {
		s.bubbleDown(idx)
	}
	s.propagate(idx, -1)

	// With nothing outstanding the grant field is exactly zero; drop any drift.
	if len(s.assignments) == 0 {
		for i := range s.grantField {
			s.grantField[i] = cp.Vector{}
		}
	}
	return true
}

func (s *System) less(a, b int) bool {
	ca, cb := &s.cells[a], &s.cells[b]
	if ca.congestion != cb.congestion {
		return ca.congestion < cb.congestion
	}
	return ca.id < cb.id
}

func (s *System) sortOrder() {
	sort.Slice(s.order, func(i, j int) bool { return s.less(s.order[i], s.order[j]) })
	for pos, idx := range s.order {
		s.rank[idx] = pos
	}
}

func (s *System) swap(i, j int) {
	s.order[i], s.order[j] = s.order[j], s.order[i]
	s.rank[s.order[i]] = i
	s.rank[s.order[j]] = j
}

// bubbleUp moves idx toward the back after its congestion grew.
func (s *System) bubbleUp(idx int) {
	p := s.rank[idx]
	if p < 0 {
		return
	}
	for p+1 < len(s.order) && s.less(s.order[p+1], s.order[p]) {
		s.swap(p, p+1)
		p++
	}
}

// bubbleDown moves idx toward the front after its congestion shrank.
func (s *System) bubbleDown(idx int) {
	p := s.rank[idx]
	if p < 0 {
		return
	}
	for p > 0 && s.less(s.order[p], s.order[p-1]) {
		s.swap(p, p-1)
		p--
	}
}

// LeastCongested returns the cell the global fallback would pick next.
func (s *System) LeastCongested() (Coord, bool) {
	if len(s.order) == 0 {
		return Coord{}, false
	}
	return s.coord(s.order[0]), true
}
