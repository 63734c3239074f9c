package data

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/phobos/squadai/internal/geom"
)

// Range is a closed interval sampled once per session.
type Range struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Point2 is a ground-plane coordinate (world X and Z).
type Point2 struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// MapGeometry pins the allocation grid. Omit it to derive the grid from the
// point bounding box.
type MapGeometry struct {
	Min      Point2  `yaml:"min"`
	Max      Point2  `yaml:"max"`
	CellSize float64 `yaml:"cell_size"`
}

type PointEntry struct {
	Name     string    `yaml:"name"`
	Category string    `yaml:"category"`
	Position geom.Vec3 `yaml:"position"`
}

type DoorEntry struct {
	Name     string    `yaml:"name"`
	Position geom.Vec3 `yaml:"position"`
}

type BuiltinZone struct {
	Radius Range   `yaml:"radius"`
	Force  *Range  `yaml:"force"`
	Decay  float64 `yaml:"decay"`
}

type CustomZone struct {
	Name     string  `yaml:"name"`
	Position Point2  `yaml:"position"`
	Radius   Range   `yaml:"radius"`
	Force    *Range  `yaml:"force"`
	Decay    float64 `yaml:"decay"`
}

type Convergence struct {
	Enabled bool  `yaml:"enabled"`
	Radius  Range `yaml:"radius"`
	Force   Range `yaml:"force"`
}

type MapZones struct {
	Builtin     map[string]BuiltinZone `yaml:"builtin"`
	Custom      []CustomZone           `yaml:"custom"`
	Convergence Convergence            `yaml:"convergence"`
}

// Procedural controls the noise-scattered points added on top of the listed ones.
type Procedural struct {
	Points     int     `yaml:"points"`
	Extent     Point2  `yaml:"extent"`
	Scale      float64 `yaml:"scale"`
	WaterLevel float64 `yaml:"water_level"`
	Threshold  float64 `yaml:"threshold"`
}

// MapEntry is one map: its points of interest, cover and zone configuration.
type MapEntry struct {
	Name        string               `yaml:"name"`
	Geometry    *MapGeometry         `yaml:"geometry"`
	Procedural  Procedural           `yaml:"procedural"`
	Points      []PointEntry         `yaml:"points"`
	ZoneCenters map[string]geom.Vec3 `yaml:"zone_centers"`
	Cover       []geom.Vec3          `yaml:"cover"`
	Doors       []DoorEntry          `yaml:"doors"`
	Zones       MapZones             `yaml:"zones"`
}

// MapTable provides map lookups by name.
type MapTable struct {
	maps map[string]*MapEntry
}

type mapFile struct {
	Maps []MapEntry `yaml:"maps"`
}

var unitForce = Range{Min: 1, Max: 1}

// LoadMapTable loads the map list YAML.
func LoadMapTable(path string) (*MapTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read map table %s: %w", path, err)
	}
	var file mapFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse map table: %w", err)
	}

	t := &MapTable{maps: make(map[string]*MapEntry, len(file.Maps))}
	for i := range file.Maps {
		m := &file.Maps[i]
		if m.Name == "" {
			return nil, fmt.Errorf("map table entry %d: missing name", i)
		}
		if _, dup := t.maps[m.Name]; dup {
			return nil, fmt.Errorf("map table: duplicate map %q", m.Name)
		}
		normalize(m)
		t.maps[m.Name] = m
	}
	return t, nil
}

// Zones without force or decay default to a unit force and linear falloff.
func normalize(m *MapEntry) {
	for name, z := range m.Zones.Builtin {
		if z.Force == nil {
			f := unitForce
			z.Force = &f
		}
		if z.Decay <= 0 {
			z.Decay = 1
		}
		m.Zones.Builtin[name] = z
	}
	for i := range m.Zones.Custom {
		z := &m.Zones.Custom[i]
		if z.Force == nil {
			f := unitForce
			z.Force = &f
		}
		if z.Decay <= 0 {
			z.Decay = 1
		}
	}
}

// Get returns the named map, or nil.
func (t *MapTable) Get(name string) *MapEntry {
	return t.maps[name]
}

// Names returns the loaded map names in sorted order.
func (t *MapTable) Names() []string {
	names := make([]string, 0, len(t.maps))
	for name := range t.maps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (t *MapTable) Count() int {
	return len(t.maps)
}

// BuiltinZoneNames returns the builtin zone names of m in sorted order, so
// sampling consumes the session rng in a stable sequence.
func (m *MapEntry) BuiltinZoneNames() []string {
	names := make([]string, 0, len(m.Zones.Builtin))
	for name := range m.Zones.Builtin {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
