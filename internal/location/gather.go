package location

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/phobos/squadai/internal/geom"
)

// PointOfInterest is a raw candidate reported by the world before validation.
type PointOfInterest struct {
	Category Category
	Name     string
	Position geom.Vec3
}

// World answers the geometry queries needed to build the grid. Implementations
// may be slow; they are only consulted at construction time.
type World interface {
	PointsOfInterest() []PointOfInterest
	// ZoneCenters maps builtin zone names to world positions.
	ZoneCenters() map[string]geom.Vec3
	// NearestWalkable returns the walkable point closest to pos within radius.
	NearestWalkable(pos geom.Vec3, radius float64) (geom.Vec3, bool)
	// CoverNear returns builtin cover points and doors within radius of pos.
	CoverNear(pos geom.Vec3, radius float64) ([]CoverPoint, []Door)
}

const (
	walkableSnap     = 2.0
	exfilSnap        = 5.0
	coverTarget      = 16
	lootRadius       = 10.0
	minObjectiveSize = 10.0
	maxObjectiveSize = 15.0
	maxSyntheticSize = 25.0
)

// Gatherer turns world points of interest into validated locations.
type Gatherer struct {
	world    World
	cellSize float64
	log      *zap.Logger
	nextID   int
}

func NewGatherer(world World, cellSize float64, log *zap.Logger, firstID int) *Gatherer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gatherer{world: world, cellSize: cellSize, log: log, nextID: firstID}
}

// Gather collects every point of interest of world that lies near the walkable
// surface.
func Gather(world World, cellSize float64, log *zap.Logger) []*Location {
	return NewGatherer(world, cellSize, log, 0).Collect()
}

func (g *Gatherer) Collect() []*Location {
	points := g.world.PointsOfInterest()
	out := make([]*Location, 0, len(points))
	skipped := 0
	for _, p := range points {
		snap := walkableSnap
		if p.Category == CategoryExfil {
			snap = exfilSnap
		}
		pos, ok := g.world.NearestWalkable(p.Position, snap)
		if !ok {
			skipped++
			g.log.Debug("point of interest off the walkable surface",
				zap.String("name", p.Name),
				zap.Stringer("category", p.Category),
			)
			continue
		}
		out = append(out, g.build(p.Category, p.Name, pos))
	}
	g.log.Info("points of interest gathered",
		zap.Int("locations", len(out)),
		zap.Int("skipped", skipped),
	)
	return out
}

// Synthetic builds a location for a cell that has no point of interest.
func (g *Gatherer) Synthetic(pos geom.Vec3) *Location {
	return g.build(CategorySynthetic, fmt.Sprintf("Synthetic_%d", g.nextID), pos)
}

func (g *Gatherer) radius(c Category) float64 {
	half := g.cellSize / 2
	switch c {
	case CategoryContainerLoot, CategoryLooseLoot:
		return lootRadius
	case CategorySynthetic:
		return math.Max(minObjectiveSize, math.Min(maxSyntheticSize, half))
	default:
		return math.Max(minObjectiveSize, math.Min(maxObjectiveSize, half))
	}
}

func (g *Gatherer) build(c Category, name string, pos geom.Vec3) *Location {
	r := g.radius(c)
	cover, doors := g.world.CoverNear(pos, r)
	if len(cover) < coverTarget {
		cover = g.sunflower(cover, pos, r, coverTarget-len(cover))
	}
	loc := &Location{
		ID:       g.nextID,
		Category: c,
		Name:     name,
		Position: pos,
		RadiusSq: r * r,
		Doors:    doors,
		Cover:    cover,
	}
	g.nextID++
	return loc
}

// sunflower samples count walkable points spread evenly over the inner disc
// of the location along the golden angle.
func (g *Gatherer) sunflower(cover []CoverPoint, center geom.Vec3, radius float64, count int) []CoverPoint {
	inner := 0.75 * radius
	golden := math.Pi * (3 - math.Sqrt(5))
	// Half the mean spacing of count points on the disc.
	eps := 0.886 * inner / math.Sqrt(float64(count)) / 2

	for i := 0; i < count; i++ {
		theta := float64(i) * golden
		r := inner * math.Sqrt(float64(i)/float64(count))
		candidate := geom.Vec3{
			X: center.X + r*math.Cos(theta),
			Y: center.Y,
			Z: center.Z + r*math.Sin(theta),
		}
		hit, ok := g.world.NearestWalkable(candidate, eps)
		if !ok {
			continue
		}
		cover = append(cover, CoverPoint{Position: hit, Synthetic: true})
	}
	return cover
}
