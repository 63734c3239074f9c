// Package location partitions points of interest into a congestion-tracked grid
// and hands squads spatially coherent, load-balanced assignments.
package location

import (
	"errors"
	"fmt"

	"github.com/jakecoffman/cp"

	"github.com/phobos/squadai/internal/geom"
)

// ErrNoLocations is returned when a grid would be built with nothing to allocate.
var ErrNoLocations = errors.New("no locations to allocate")

type Category int

const (
	CategoryContainerLoot Category = iota
	CategoryLooseLoot
	CategoryQuest
	CategorySynthetic
	CategoryExfil
)

func (c Category) String() string {
	switch c {
	case CategoryContainerLoot:
		return "container_loot"
	case CategoryLooseLoot:
		return "loose_loot"
	case CategoryQuest:
		return "quest"
	case CategorySynthetic:
		return "synthetic"
	case CategoryExfil:
		return "exfil"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

// ParseCategory maps the data-file spelling back to a Category.
func ParseCategory(s string) (Category, error) {
	for c := CategoryContainerLoot; c <= CategoryExfil; c++ {
		if c.String() == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown location category %q", s)
}

// CoverPoint is a spot agents can hold while guarding a location.
type CoverPoint struct {
	Position geom.Vec3
	// Wall is the direction of the protecting wall; zero for sampled points.
	Wall      geom.Vec3
	Synthetic bool
}

type Door struct {
	Name     string
	Position geom.Vec3
}

// Location is a point of interest. Doors and cover points are carried for
// behaviors and never read by the allocator.
type Location struct {
	ID       int
	Category Category
	Name     string
	Position geom.Vec3
	RadiusSq float64
	Doors    []Door
	Cover    []CoverPoint
}

func (l *Location) String() string {
	return fmt.Sprintf("Location(%d, %s, %s)", l.ID, l.Category, l.Name)
}

// Contains reports whether pos is within the location radius on the ground plane.
func (l *Location) Contains(pos geom.Vec3) bool {
	return pos.Flat().DistanceSq(l.Position.Flat()) <= l.RadiusSq
}

// Coord addresses a grid cell. It may lie outside the grid.
type Coord struct {
	X, Y int
}

func (c Coord) Sub(o Coord) Coord { return Coord{X: c.X - o.X, Y: c.Y - o.Y} }

func (c Coord) vec() cp.Vector { return cp.Vector{X: float64(c.X), Y: float64(c.Y)} }

// Zone is a static influence source in grid units.
type Zone struct {
	Name   string
	Cell   Coord
	Radius float64
	Force  float64
	Decay  float64
}

// Convergence controls the observer field. Radius is in world units.
type Convergence struct {
	Enabled bool
	Radius  float64
	Force   float64
}

// Geometry pins the grid to fixed world bounds instead of the location bounding box.
type Geometry struct {
	Min      cp.Vector
	Max      cp.Vector
	CellSize float64
}

type Settings struct {
	MinCells    int
	MaxCellSize float64
	Padding     float64
	// Geometry, when set, replaces the padded bounding box and derived cell size.
	Geometry *Geometry

	Momentum float64
	Jitter   float64

	PropagationRadius   float64
	PropagationStrength float64

	Convergence Convergence
}

func DefaultSettings() Settings {
	return Settings{
		MinCells:            3,
		MaxCellSize:         50,
		Padding:             10,
		Momentum:            0.5,
		Jitter:              0.25,
		PropagationRadius:   2,
		PropagationStrength: 0.5,
	}
}
