package sim

import (
	"github.com/jakecoffman/cp"

	"github.com/phobos/squadai/internal/config"
	"github.com/phobos/squadai/internal/data"
	"github.com/phobos/squadai/internal/location"
)

func locationSettings(cfg config.LocationConfig, m *data.MapEntry) location.Settings {
	s := location.Settings{
		MinCells:            cfg.MinCells,
		MaxCellSize:         cfg.MaxCellSize,
		Padding:             cfg.Padding,
		Momentum:            cfg.Momentum,
		Jitter:              cfg.Jitter,
		PropagationRadius:   cfg.PropagationRadius,
		PropagationStrength: cfg.PropagationStrength,
	}
	if g := m.Geometry; g != nil {
		s.Geometry = &location.Geometry{
			Min:      cp.Vector{X: g.Min.X, Y: g.Min.Y},
			Max:      cp.Vector{X: g.Max.X, Y: g.Max.Y},
			CellSize: g.CellSize,
		}
	}
	return s
}

// gatherCellSize is the cell size used to size location radii before the grid
// exists. Without fixed geometry the largest allowed cell is assumed.
func gatherCellSize(s location.Settings) float64 {
	if s.Geometry != nil && s.Geometry.CellSize > 0 {
		return s.Geometry.CellSize
	}
	return s.MaxCellSize
}

func rangeOf(r data.Range) location.Range { return location.Range{Min: r.Min, Max: r.Max} }

// forceOf defaults an unset zone force to one.
func forceOf(r *data.Range) location.Range {
	if r == nil {
		return location.Range{Min: 1, Max: 1}
	}
	return rangeOf(*r)
}

// zoneSpecs lists builtin zones in name order, then custom zones in file order.
func zoneSpecs(m *data.MapEntry) []location.ZoneSpec {
	specs := make([]location.ZoneSpec, 0, len(m.Zones.Builtin)+len(m.Zones.Custom))
	for _, name := range m.BuiltinZoneNames() {
		z := m.Zones.Builtin[name]
		specs = append(specs, location.ZoneSpec{
			Name:    name,
			Builtin: true,
			Radius:  rangeOf(z.Radius),
			Force:   forceOf(z.Force),
			Decay:   z.Decay,
		})
	}
	for _, z := range m.Zones.Custom {
		specs = append(specs, location.ZoneSpec{
			Name:     z.Name,
			Position: cp.Vector{X: z.Position.X, Y: z.Position.Y},
			Radius:   rangeOf(z.Radius),
			Force:    forceOf(z.Force),
			Decay:    z.Decay,
		})
	}
	return specs
}

func convergenceSpec(m *data.MapEntry) location.ConvergenceSpec {
	c := m.Zones.Convergence
	return location.ConvergenceSpec{
		Enabled: c.Enabled,
		Radius:  rangeOf(c.Radius),
		Force:   rangeOf(c.Force),
	}
}
