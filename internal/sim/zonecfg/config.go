package zonecfg

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config describes the world's zone topology: a sparse grid of zones with
// per-zone bounds, level gates, graveyards, and spawn tables. Adjacency is
// derived from grid coordinates; zones that share a grid edge are connected.
type Config struct {
	DefaultZoneID string     `yaml:"default_zone_id"`
	Zones         []ZoneSpec `yaml:"zones"`
}

type ZoneSpec struct {
	ID       string  `yaml:"id"`
	GridX    int     `yaml:"grid_x"`
	GridY    int     `yaml:"grid_y"`
	Width    float64 `yaml:"width"`
	Height   float64 `yaml:"height"`
	MinLevel int     `yaml:"min_level"`

	Graveyard Point   `yaml:"graveyard"`
	Spawn     Point   `yaml:"spawn"` // player entry point

	MobSpawns []MobSpawnSpec `yaml:"mob_spawns,omitempty"`
	Nodes     []NodeSpec     `yaml:"nodes,omitempty"`
}

type Point struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

type MobSpawnSpec struct {
	Mob   string  `yaml:"mob"`
	Count int     `yaml:"count"`
	X     float64 `yaml:"x"`
	Y     float64 `yaml:"y"`
	// Spread places the spawns on a small deterministic lattice around (x, y).
	Spread float64 `yaml:"spread"`
}

type NodeSpec struct {
	Resource string  `yaml:"resource"`
	TokenID  uint64  `yaml:"token_id"`
	Charges  int     `yaml:"charges"`
	X        float64 `yaml:"x"`
	Y        float64 `yaml:"y"`
}

func Load(path string) (Config, error) {
	var cfg Config
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("zones.yaml: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("zones.yaml: %w", err)
	}
	return cfg, nil
}

func (c *Config) Normalize() {
	sort.Slice(c.Zones, func(i, j int) bool { return c.Zones[i].ID < c.Zones[j].ID })
	if strings.TrimSpace(c.DefaultZoneID) == "" && len(c.Zones) > 0 {
		c.DefaultZoneID = c.Zones[0].ID
	}
}

func (c Config) Validate() error {
	if len(c.Zones) == 0 {
		return fmt.Errorf("no zones configured")
	}
	ids := make(map[string]bool, len(c.Zones))
	cells := make(map[[2]int]string, len(c.Zones))
	for _, z := range c.Zones {
		if strings.TrimSpace(z.ID) == "" {
			return fmt.Errorf("zone with empty id")
		}
		if ids[z.ID] {
			return fmt.Errorf("duplicate zone id %s", z.ID)
		}
		ids[z.ID] = true
		cell := [2]int{z.GridX, z.GridY}
		if prev, taken := cells[cell]; taken {
			return fmt.Errorf("zones %s and %s share grid cell (%d,%d)", prev, z.ID, z.GridX, z.GridY)
		}
		cells[cell] = z.ID
		if z.Width <= 0 || z.Height <= 0 {
			return fmt.Errorf("zone %s: non-positive bounds", z.ID)
		}
		if !z.contains(z.Graveyard) {
			return fmt.Errorf("zone %s: graveyard outside bounds", z.ID)
		}
		if !z.contains(z.Spawn) {
			return fmt.Errorf("zone %s: spawn outside bounds", z.ID)
		}
		if z.MinLevel < 0 {
			return fmt.Errorf("zone %s: negative min_level", z.ID)
		}
	}
	if !ids[c.DefaultZoneID] {
		return fmt.Errorf("default_zone_id %s does not exist", c.DefaultZoneID)
	}
	return nil
}

func (z ZoneSpec) contains(p Point) bool {
	return p.X >= 0 && p.X <= z.Width && p.Y >= 0 && p.Y <= z.Height
}

// ZoneByID returns the zone definition for id, or false.
func (c Config) ZoneByID(id string) (ZoneSpec, bool) {
	for _, z := range c.Zones {
		if z.ID == id {
			return z, true
		}
	}
	return ZoneSpec{}, false
}

// Neighbor returns the zone occupying the grid cell offset by (dx, dy)
// from the given zone, or false when the world edge is unbounded there.
func (c Config) Neighbor(from ZoneSpec, dx, dy int) (ZoneSpec, bool) {
	for _, z := range c.Zones {
		if z.GridX == from.GridX+dx && z.GridY == from.GridY+dy {
			return z, true
		}
	}
	return ZoneSpec{}, false
}
