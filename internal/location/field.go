package location

import (
	"math"

	"github.com/jakecoffman/cp"
	"go.uber.org/zap"

	"github.com/phobos/squadai/internal/geom"
)

// SetZones replaces the static zones and recomputes their field. Outstanding
// grant propagation is kept.
func (s *System) SetZones(zones []Zone) {
	s.zones = append(s.zones[:0], zones...)
	for i := range s.zoneField {
		s.zoneField[i] = zoneVector(s.coord(i), s.zones)
	}
	s.log.Debug("zones applied", zap.Int("zones", len(zones)))
}

func (s *System) Zones() []Zone { return s.zones }

func zoneVector(c Coord, zones []Zone) cp.Vector {
	var v cp.Vector
	for _, z := range zones {
		if z.Radius <= 0 {
			continue
		}
		to := z.Cell.vec().Sub(c.vec())
		d := to.Length()
		if d == 0 {
			continue
		}
		falloff := geom.Clamp01(1 - d/z.Radius)
		if falloff <= 0 {
			continue
		}
		v = v.Add(to.Mult(z.Force * math.Pow(falloff, z.Decay) / d))
	}
	return v
}

// SetConvergence replaces the observer field parameters. The field itself
// changes on the next UpdateConvergence.
func (s *System) SetConvergence(c Convergence) { s.settings.Convergence = c }

// UpdateConvergence recomputes the observer field from the given positions.
func (s *System) UpdateConvergence(observers []geom.Vec3) {
	conv := s.settings.Convergence
	if !conv.Enabled || len(observers) == 0 || conv.Radius <= 0 {
		for i := range s.convergence {
			s.convergence[i] = cp.Vector{}
		}
		return
	}
	inv := 1 / float64(len(observers))
	for i := range s.convergence {
		center := s.CellToWorld(s.coord(i)).Flat()
		var sum cp.Vector
		for _, obs := range observers {
			to := obs.Flat().Sub(center)
			weight := math.Sqrt(math.Max(0, 1-to.Length()/conv.Radius))
			sum = sum.Add(geom.Unit(to).Mult(weight))
		}
		s.convergence[i] = sum.Mult(inv * conv.Force)
	}
}

// propagate pushes the advection of nearby cells away from idx, or pulls it
// back when sign is negative.
func (s *System) propagate(idx int, sign float64) {
	radius := s.settings.PropagationRadius
	strength := s.settings.PropagationStrength
	if radius <= 0 || strength == 0 {
		return
	}
	origin := s.coord(idx)
	reach := int(math.Floor(radius))
	for dy := -reach; dy <= reach; dy++ {
		for dx := -reach; dx <= reach; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			o := Coord{X: origin.X + dx, Y: origin.Y + dy}
			if !s.inGrid(o) {
				continue
			}
			away := o.Sub(origin).vec()
			d2 := away.LengthSq()
			if d2 > radius*radius {
				continue
			}
			i := s.index(o)
			s.grantField[i] = s.grantField[i].Add(geom.Unit(away).Mult(sign * strength / d2))
		}
	}
}
