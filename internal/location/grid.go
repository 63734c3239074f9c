package location

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/jakecoffman/cp"
	"go.uber.org/zap"

	"github.com/phobos/squadai/internal/core/ecs"
	"github.com/phobos/squadai/internal/geom"
	"github.com/phobos/squadai/internal/metrics"
)

type cell struct {
	// id is a shuffled tie-break rank for the fallback order.
	id         int
	locations  []*Location
	congestion int
}

// GrantFunc observes every grant. via names the path that chose the cell.
type GrantFunc func(entity ecs.EntityID, c Coord, loc *Location, via string)

type Options struct {
	// World, when set, is sampled for synthetic locations in empty cells.
	World   World
	Rand    *rand.Rand
	Log     *zap.Logger
	Metrics *metrics.Metrics
	OnGrant GrantFunc
}

// System is the location allocator. It is owned by the tick goroutine.
type System struct {
	settings Settings
	rng      *rand.Rand
	log      *zap.Logger
	metrics  *metrics.Metrics
	onGrant  GrantFunc

	cellSize float64
	cols     int
	rows     int
	min      cp.Vector
	max      cp.Vector

	cells []cell
	// order holds populated cell indexes by (congestion, id); rank is its inverse.
	order []int
	rank  []int

	zones       []Zone
	zoneField   []cp.Vector
	grantField  []cp.Vector
	convergence []cp.Vector

	assignments map[ecs.EntityID]int
}

// NewSystem builds the grid over locations. It fails with ErrNoLocations when
// locations is empty.
func NewSystem(locations []*Location, settings Settings, opts Options) (*System, error) {
	if len(locations) == 0 {
		return nil, ErrNoLocations
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	s := &System{
		settings:    settings,
		rng:         opts.Rand,
		log:         opts.Log,
		metrics:     opts.Metrics,
		onGrant:     opts.OnGrant,
		assignments: make(map[ecs.EntityID]int),
	}
	s.layout(locations)

	n := s.cols * s.rows
	s.cells = make([]cell, n)
	s.zoneField = make([]cp.Vector, n)
	s.grantField = make([]cp.Vector, n)
	s.convergence = make([]cp.Vector, n)
	s.rank = make([]int, n)

	// Cell ids come from a shuffled coordinate list so fallback ties carry no
	// spatial bias.
	ids := s.rng.Perm(n)
	for i := range s.cells {
		s.cells[i].id = ids[i]
	}

	placed := 0
	nextID := 0
	for _, loc := range locations {
		nextID = max(nextID, loc.ID+1)
		c, ok := s.placement(loc.Position)
		if !ok {
			s.log.Debug("location outside grid", zap.Stringer("location", loc))
			continue
		}
		idx := s.index(c)
		s.cells[idx].locations = append(s.cells[idx].locations, loc)
		placed++
	}
	if placed == 0 {
		return nil, fmt.Errorf("all %d locations outside grid: %w", len(locations), ErrNoLocations)
	}

	if opts.World != nil {
		s.synthesize(NewGatherer(opts.World, s.cellSize, s.log, nextID))
	}

	s.order = s.order[:0]
	for i := range s.cells {
		s.rank[i] = -1
		if len(s.cells[i].locations) > 0 {
			s.order = append(s.order, i)
		}
	}
	s.sortOrder()

	s.log.Info("location grid built",
		zap.Int("cols", s.cols),
		zap.Int("rows", s.rows),
		zap.Float64("cell_size", s.cellSize),
		zap.Int("locations", placed),
		zap.Int("populated_cells", len(s.order)),
	)
	return s, nil
}

func (s *System) layout(locations []*Location) {
	if g := s.settings.Geometry; g != nil && g.CellSize > 0 {
		s.min, s.max, s.cellSize = g.Min, g.Max, g.CellSize
	} else {
		s.min = cp.Vector{X: math.Inf(1), Y: math.Inf(1)}
		s.max = cp.Vector{X: math.Inf(-1), Y: math.Inf(-1)}
		for _, loc := range locations {
			p := loc.Position.Flat()
			s.min.X, s.min.Y = math.Min(s.min.X, p.X), math.Min(s.min.Y, p.Y)
			s.max.X, s.max.Y = math.Max(s.max.X, p.X), math.Max(s.max.Y, p.Y)
		}
		pad := s.settings.Padding
		s.min = s.min.Sub(cp.Vector{X: pad, Y: pad})
		s.max = s.max.Add(cp.Vector{X: pad, Y: pad})

		minCells := float64(max(s.settings.MinCells, 1))
		w, h := s.max.X-s.min.X, s.max.Y-s.min.Y
		s.cellSize = math.Min(s.settings.MaxCellSize, math.Max(w/minCells, h/minCells))
	}
	if s.cellSize <= 0 {
		s.cellSize = 1
	}
	s.cols = max(1, int(math.Ceil((s.max.X-s.min.X)/s.cellSize)))
	s.rows = max(1, int(math.Ceil((s.max.Y-s.min.Y)/s.cellSize)))
}

// synthesize gives every empty cell a location at the walkable point nearest
// its center, provided that point lies in the same cell.
func (s *System) synthesize(g *Gatherer) {
	searchRadius := math.Max(s.max.X-s.min.X, s.max.Y-s.min.Y) / 2
	for y := 0; y < s.rows; y++ {
		for x := 0; x < s.cols; x++ {
			c := Coord{X: x, Y: y}
			cl := &s.cells[s.index(c)]
			if len(cl.locations) > 0 {
				continue
			}
			hit, ok := g.world.NearestWalkable(s.CellToWorld(c), searchRadius)
			if !ok {
				continue
			}
			if hc, in := s.WorldToCell(hit); !in || hc != c {
				continue
			}
			cl.locations = append(cl.locations, g.Synthetic(hit))
		}
	}
}

// placement is WorldToCell that also accepts points on the far grid edge.
func (s *System) placement(pos geom.Vec3) (Coord, bool) {
	c, ok := s.WorldToCell(pos)
	if ok {
		return c, true
	}
	p := pos.Flat()
	if p.X < s.min.X || p.Y < s.min.Y || p.X > s.max.X || p.Y > s.max.Y {
		return c, false
	}
	c.X, c.Y = min(c.X, s.cols-1), min(c.Y, s.rows-1)
	return c, true
}

func (s *System) index(c Coord) int { return c.Y*s.cols + c.X }

func (s *System) coord(idx int) Coord { return Coord{X: idx % s.cols, Y: idx / s.cols} }

func (s *System) inGrid(c Coord) bool {
	return c.X >= 0 && c.X < s.cols && c.Y >= 0 && c.Y < s.rows
}

// GridSize returns the column and row count.
func (s *System) GridSize() (cols, rows int) { return s.cols, s.rows }

func (s *System) CellSize() float64 { return s.cellSize }

// WorldToCell maps a world position to its cell. ok is false outside the grid;
// the returned coordinate is still meaningful as a direction reference.
func (s *System) WorldToCell(pos geom.Vec3) (Coord, bool) {
	p := pos.Flat().Sub(s.min)
	c := Coord{
		X: int(math.Floor(p.X / s.cellSize)),
		Y: int(math.Floor(p.Y / s.cellSize)),
	}
	return c, s.inGrid(c)
}

// CellToWorld returns the cell center at height zero.
func (s *System) CellToWorld(c Coord) geom.Vec3 {
	center := cp.Vector{
		X: s.min.X + (float64(c.X)+0.5)*s.cellSize,
		Y: s.min.Y + (float64(c.Y)+0.5)*s.cellSize,
	}
	return geom.FromFlat(center, 0)
}

func (s *System) Congestion(c Coord) int {
	if !s.inGrid(c) {
		return 0
	}
	return s.cells[s.index(c)].congestion
}

// Advection is the zone field plus the outstanding grant propagation.
func (s *System) Advection(c Coord) cp.Vector {
	if !s.inGrid(c) {
		return cp.Vector{}
	}
	i := s.index(c)
	return s.zoneField[i].Add(s.grantField[i])
}

func (s *System) Convergence(c Coord) cp.Vector {
	if !s.inGrid(c) {
		return cp.Vector{}
	}
	return s.convergence[s.index(c)]
}

func (s *System) Locations(c Coord) []*Location {
	if !s.inGrid(c) {
		return nil
	}
	return s.cells[s.index(c)].locations
}

// CellID returns the shuffled tie-break id of c.
func (s *System) CellID(c Coord) int {
	if !s.inGrid(c) {
		return -1
	}
	return s.cells[s.index(c)].id
}

// Assignment returns the cell held by entity.
func (s *System) Assignment(entity ecs.EntityID) (Coord, bool) {
	idx, ok := s.assignments[entity]
	if !ok {
		return Coord{}, false
	}
	return s.coord(idx), true
}

func (s *System) Assignments() int { return len(s.assignments) }

// AllLocations returns every location in the grid, synthetic ones included.
func (s *System) AllLocations() []*Location {
	var out []*Location
	for i := range s.cells {
		out = append(out, s.cells[i].locations...)
	}
	return out
}

// PopulatedCells returns the number of cells holding at least one location.
func (s *System) PopulatedCells() int { return len(s.order) }
