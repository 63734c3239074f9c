package location

import (
	"math/rand/v2"
	"testing"

	"github.com/jakecoffman/cp"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/phobos/squadai/internal/geom"
)

func seeded(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// fixedGrid returns settings for a cols x rows grid of 10m cells anchored at the origin.
func fixedGrid(cols, rows int) Settings {
	s := DefaultSettings()
	s.Geometry = &Geometry{
		Min:      cp.Vector{},
		Max:      cp.Vector{X: float64(cols) * 10, Y: float64(rows) * 10},
		CellSize: 10,
	}
	return s
}

func centerOf(x, y int) geom.Vec3 {
	return geom.Vec3{X: float64(x)*10 + 5, Z: float64(y)*10 + 5}
}

// everyCell puts one location at the center of each cell.
func everyCell(cols, rows int) []*Location {
	var locs []*Location
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			locs = append(locs, &Location{
				ID:       len(locs),
				Category: CategoryQuest,
				Name:     "poi",
				Position: centerOf(x, y),
				RadiusSq: 100,
			})
		}
	}
	return locs
}

func newTestSystem(t *testing.T, locs []*Location, settings Settings, seed uint64) *System {
	t.Helper()
	s, err := NewSystem(locs, settings, Options{Rand: seeded(seed), Log: zap.NewNop()})
	require.NoError(t, err)
	return s
}

// fakeWorld is flat ground at y=0 with an optional hole.
type fakeWorld struct {
	points  []PointOfInterest
	zones   map[string]geom.Vec3
	cover   []CoverPoint
	doors   []Door
	blocked func(pos geom.Vec3) bool
}

func (w *fakeWorld) PointsOfInterest() []PointOfInterest { return w.points }
func (w *fakeWorld) ZoneCenters() map[string]geom.Vec3   { return w.zones }

func (w *fakeWorld) NearestWalkable(pos geom.Vec3, radius float64) (geom.Vec3, bool) {
	if pos.Y > radius || -pos.Y > radius {
		return geom.Vec3{}, false
	}
	if w.blocked != nil && w.blocked(pos) {
		return geom.Vec3{}, false
	}
	return geom.Vec3{X: pos.X, Z: pos.Z}, true
}

func (w *fakeWorld) CoverNear(geom.Vec3, float64) ([]CoverPoint, []Door) {
	return append([]CoverPoint(nil), w.cover...), w.doors
}
