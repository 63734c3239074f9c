package location

import (
	"math/rand/v2"

	"github.com/jakecoffman/cp"
	"go.uber.org/zap"

	"github.com/phobos/squadai/internal/geom"
)

// Range is a closed interval sampled once per session.
type Range struct {
	Min float64
	Max float64
}

func (r Range) Sample(rng *rand.Rand) float64 {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + rng.Float64()*(r.Max-r.Min)
}

// ZoneSpec is a configured zone before sampling. Builtin zones name a world zone
// center; custom zones carry a position.
type ZoneSpec struct {
	Name     string
	Builtin  bool
	Position cp.Vector
	Radius   Range
	Force    Range
	Decay    float64
}

type ConvergenceSpec struct {
	Enabled bool
	Radius  Range
	Force   Range
}

// SampleZones resolves specs into grid-space zones. Builtin zones missing from
// centers are skipped.
func (s *System) SampleZones(specs []ZoneSpec, centers map[string]geom.Vec3) []Zone {
	zones := make([]Zone, 0, len(specs))
	for _, spec := range specs {
		pos := geom.FromFlat(spec.Position, 0)
		if spec.Builtin {
			center, ok := centers[spec.Name]
			if !ok {
				s.log.Debug("builtin zone not found", zap.String("zone", spec.Name))
				continue
			}
			pos = center
		}
		c, _ := s.WorldToCell(pos)
		decay := spec.Decay
		if decay <= 0 {
			decay = 1
		}
		z := Zone{
			Name:   spec.Name,
			Cell:   c,
			Radius: spec.Radius.Sample(s.rng) / s.cellSize,
			Force:  spec.Force.Sample(s.rng),
			Decay:  decay,
		}
		s.log.Debug("zone sampled",
			zap.String("zone", z.Name),
			zap.Int("x", c.X),
			zap.Int("y", c.Y),
			zap.Float64("radius_cells", z.Radius),
			zap.Float64("force", z.Force),
		)
		zones = append(zones, z)
	}
	return zones
}

// SampleConvergence draws the session's observer field parameters. The force
// is scaled by a random factor within ±randomness.
func (s *System) SampleConvergence(spec ConvergenceSpec, randomness float64) Convergence {
	if !spec.Enabled {
		return Convergence{}
	}
	factor := (s.rng.Float64()*2 - 1) * randomness
	c := Convergence{
		Enabled: true,
		Radius:  spec.Radius.Sample(s.rng),
		Force:   spec.Force.Sample(s.rng) * (1 + factor),
	}
	s.log.Info("convergence sampled",
		zap.Float64("radius", c.Radius),
		zap.Float64("force", c.Force),
		zap.Float64("factor", factor),
	)
	return c
}
