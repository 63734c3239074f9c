package nav

import (
	"fmt"
	"math"

	"github.com/jakecoffman/cp"
	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/phobos/squadai/internal/data"
	"github.com/phobos/squadai/internal/geom"
	"github.com/phobos/squadai/internal/location"
)

var _ location.World = (*ProceduralWorld)(nil)

// ProceduralWorld is flat ground at height zero. Water, where the terrain noise
// falls below the water level, is not walkable. Listed points come from the map
// table; more are scattered where the feature noise peaks.
type ProceduralWorld struct {
	points  []location.PointOfInterest
	zones   map[string]geom.Vec3
	cover   []geom.Vec3
	doors   []location.Door
	terrain opensimplex.Noise
	scale   float64
	water   float64
}

func NewProceduralWorld(m *data.MapEntry, seed int64) (*ProceduralWorld, error) {
	w := &ProceduralWorld{
		zones:   make(map[string]geom.Vec3, len(m.ZoneCenters)),
		cover:   m.Cover,
		terrain: opensimplex.NewNormalized(seed),
		scale:   m.Procedural.Scale,
		water:   m.Procedural.WaterLevel,
	}
	if w.scale <= 0 {
		w.scale = 0.02
	}
	for name, pos := range m.ZoneCenters {
		w.zones[name] = pos
	}
	for _, d := range m.Doors {
		w.doors = append(w.doors, location.Door{Name: d.Name, Position: d.Position})
	}
	for _, p := range m.Points {
		c, err := location.ParseCategory(p.Category)
		if err != nil {
			return nil, fmt.Errorf("map %s point %s: %w", m.Name, p.Name, err)
		}
		w.points = append(w.points, location.PointOfInterest{Category: c, Name: p.Name, Position: p.Position})
	}
	w.scatter(m.Procedural, opensimplex.NewNormalized(seed+1))
	return w, nil
}

// scatter walks a lattice over the extent and keeps walkable lattice points
// whose feature noise clears the threshold, up to spec.Points.
func (w *ProceduralWorld) scatter(spec data.Procedural, feature opensimplex.Noise) {
	if spec.Points <= 0 || spec.Extent.X <= 0 || spec.Extent.Y <= 0 {
		return
	}
	// Four candidates per requested point.
	side := int(math.Ceil(math.Sqrt(float64(spec.Points * 4))))
	stepX := 2 * spec.Extent.X / float64(side)
	stepZ := 2 * spec.Extent.Y / float64(side)

	added := 0
	for i := 0; i < side && added < spec.Points; i++ {
		for j := 0; j < side && added < spec.Points; j++ {
			pos := geom.Vec3{
				X: -spec.Extent.X + (float64(i)+0.5)*stepX,
				Z: -spec.Extent.Y + (float64(j)+0.5)*stepZ,
			}
			if !w.walkable(pos) {
				continue
			}
			v := feature.Eval2(pos.X*w.scale, pos.Z*w.scale)
			if v < spec.Threshold {
				continue
			}
			c := location.CategoryQuest
			if added%2 == 1 {
				c = location.CategoryContainerLoot
			}
			w.points = append(w.points, location.PointOfInterest{
				Category: c,
				Name:     fmt.Sprintf("proc_%d", added),
				Position: pos,
			})
			added++
		}
	}
}

func (w *ProceduralWorld) walkable(pos geom.Vec3) bool {
	if w.water <= 0 {
		return true
	}
	return w.terrain.Eval2(pos.X*w.scale, pos.Z*w.scale) >= w.water
}

func (w *ProceduralWorld) PointsOfInterest() []location.PointOfInterest { return w.points }

func (w *ProceduralWorld) ZoneCenters() map[string]geom.Vec3 { return w.zones }

// NearestWalkable searches outward in rings of eight samples until radius.
func (w *ProceduralWorld) NearestWalkable(pos geom.Vec3, radius float64) (geom.Vec3, bool) {
	if math.Abs(pos.Y) > radius {
		return geom.Vec3{}, false
	}
	ground := geom.Vec3{X: pos.X, Z: pos.Z}
	if w.walkable(ground) {
		return ground, true
	}
	step := math.Max(radius/4, 0.5)
	for r := step; r <= radius; r += step {
		for k := 0; k < 8; k++ {
			off := cp.ForAngle(float64(k) * math.Pi / 4).Mult(r)
			probe := geom.Vec3{X: pos.X + off.X, Z: pos.Z + off.Y}
			if w.walkable(probe) {
				return probe, true
			}
		}
	}
	return geom.Vec3{}, false
}

func (w *ProceduralWorld) CoverNear(pos geom.Vec3, radius float64) ([]location.CoverPoint, []location.Door) {
	center := pos.Flat()
	r2 := radius * radius
	var cover []location.CoverPoint
	for _, c := range w.cover {
		if c.Flat().DistanceSq(center) <= r2 {
			cover = append(cover, location.CoverPoint{Position: c})
		}
	}
	var doors []location.Door
	for _, d := range w.doors {
		if d.Position.Flat().DistanceSq(center) <= r2 {
			doors = append(doors, d)
		}
	}
	return cover, doors
}
