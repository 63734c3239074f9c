package world

import (
	"maps"
	"math"
	"slices"

	"github.com/phobos/squadai/internal/geom"
)

// ObserverIndex is a cell-based area-of-interest index of privileged observers
// (players, or agents flagged as observers). It feeds the convergence field and
// answers proximity queries. Accessed only from the tick goroutine, no locks.
type ObserverIndex struct {
	cellSize  float64
	cells     map[cellKey]map[uint64]struct{}
	positions map[uint64]geom.Vec3
}

type cellKey struct {
	cx int32
	cz int32
}

func NewObserverIndex(cellSize float64) *ObserverIndex {
	if cellSize <= 0 {
		cellSize = 50
	}
	return &ObserverIndex{
		cellSize:  cellSize,
		cells:     make(map[cellKey]map[uint64]struct{}),
		positions: make(map[uint64]geom.Vec3),
	}
}

func (g *ObserverIndex) key(pos geom.Vec3) cellKey {
	return cellKey{
		cx: int32(math.Floor(pos.X / g.cellSize)),
		cz: int32(math.Floor(pos.Z / g.cellSize)),
	}
}

// Upsert places an observer, moving it between cells as needed.
func (g *ObserverIndex) Upsert(id uint64, pos geom.Vec3) {
	if old, ok := g.positions[id]; ok {
		oldK, newK := g.key(old), g.key(pos)
		g.positions[id] = pos
		if oldK == newK {
			return
		}
		g.removeFromCell(id, oldK)
	}
	g.positions[id] = pos
	k := g.key(pos)
	cell := g.cells[k]
	if cell == nil {
		cell = make(map[uint64]struct{})
		g.cells[k] = cell
	}
	cell[id] = struct{}{}
}

// Remove takes an observer out of the index.
func (g *ObserverIndex) Remove(id uint64) {
	pos, ok := g.positions[id]
	if !ok {
		return
	}
	delete(g.positions, id)
	g.removeFromCell(id, g.key(pos))
}

func (g *ObserverIndex) removeFromCell(id uint64, k cellKey) {
	cell := g.cells[k]
	if cell == nil {
		return
	}
	delete(cell, id)
	if len(cell) == 0 {
		delete(g.cells, k)
	}
}

// Nearby returns observers within radius of pos. Only the cells overlapping
// the radius are scanned.
func (g *ObserverIndex) Nearby(pos geom.Vec3, radius float64) []uint64 {
	reach := int32(math.Ceil(radius / g.cellSize))
	center := g.key(pos)
	r2 := radius * radius
	var result []uint64
	for dx := -reach; dx <= reach; dx++ {
		for dz := -reach; dz <= reach; dz++ {
			k := cellKey{cx: center.cx + dx, cz: center.cz + dz}
			for id := range g.cells[k] {
				if g.positions[id].Flat().DistanceSq(pos.Flat()) <= r2 {
					result = append(result, id)
				}
			}
		}
	}
	return result
}

// Positions appends every observer position to dst in observer id order and
// returns it. The order keeps field sums identical across runs.
func (g *ObserverIndex) Positions(dst []geom.Vec3) []geom.Vec3 {
	for _, id := range slices.Sorted(maps.Keys(g.positions)) {
		dst = append(dst, g.positions[id])
	}
	return dst
}

func (g *ObserverIndex) Len() int { return len(g.positions) }
