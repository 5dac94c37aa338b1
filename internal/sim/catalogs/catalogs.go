package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Catalogs holds the immutable game-data tables the simulation reads every
// tick: mob templates, technique definitions, loot tables, and class
// progression. Each table carries a sha256 digest of its source file so
// clients and the index can detect drift.
type Catalogs struct {
	Mobs        MobCatalog
	Techniques  TechniqueCatalog
	Loot        LootCatalog
	Progression ProgressionCatalog
}

type MobCatalog struct {
	ByID   map[string]MobDef
	Digest string
}

type MobDef struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Level        int         `json:"level"`
	MaxHealth    int         `json:"max_health"`
	MaxEssence   int         `json:"max_essence"`
	AttackPower  int         `json:"attack_power"`
	DefensePower int         `json:"defense_power"`
	XPReward     uint64      `json:"xp_reward"`
	LootTable    string      `json:"loot_table,omitempty"`
	Harvestables []ItemCount `json:"harvestables,omitempty"`
	AggroRadius  float64     `json:"aggro_radius"`
	Boss         bool        `json:"boss,omitempty"`
	Techniques   []string    `json:"techniques,omitempty"`
}

type ItemCount struct {
	Item    string `json:"item"`
	TokenID uint64 `json:"token_id"`
	Count   int    `json:"count"`
}

type TechniqueCatalog struct {
	ByID   map[string]TechniqueDef
	Digest string
}

// TechniqueKind selects which branch of technique execution applies.
const (
	TechniqueAttack = "attack"
	TechniqueHeal   = "heal"
	TechniqueBuff   = "buff"
	TechniqueDebuff = "debuff"
)

type TechniqueDef struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Kind          string  `json:"kind"`
	EssenceCost   int     `json:"essence_cost"`
	CooldownTicks uint64  `json:"cooldown_ticks"`
	Range         float64 `json:"range"`

	// attack
	DamageMult    float64 `json:"damage_mult,omitempty"`
	AoERadius     float64 `json:"aoe_radius,omitempty"`
	AoEMaxTargets int     `json:"aoe_max_targets,omitempty"`
	LifestealPct  float64 `json:"lifesteal_pct,omitempty"`

	// heal
	HealAmount  int `json:"heal_amount,omitempty"`
	HealPerTick int `json:"heal_per_tick,omitempty"`

	// buff / debuff
	DurationTicks uint64         `json:"duration_ticks,omitempty"`
	StatMods      map[string]int `json:"stat_mods,omitempty"`
	Shield        int            `json:"shield,omitempty"`
	DotPerTick    int            `json:"dot_per_tick,omitempty"`
}

type LootCatalog struct {
	ByID   map[string]LootTable
	Digest string
}

type LootTable struct {
	ID      string    `json:"id"`
	GoldMin int       `json:"gold_min"`
	GoldMax int       `json:"gold_max"`
	Drops   []DropDef `json:"drops,omitempty"`
}

type DropDef struct {
	Item    string  `json:"item"`
	TokenID uint64  `json:"token_id"`
	Chance  float64 `json:"chance"`
	QtyMin  int     `json:"qty_min"`
	QtyMax  int     `json:"qty_max"`
}

type ProgressionCatalog struct {
	// XPThresholds[i] is the total xp required to reach level i+2
	// (index 0 holds the level-2 threshold).
	XPThresholds []uint64
	MaxLevel     int
	Classes      map[string]ClassGrowth
	Digest       string
}

type ClassGrowth struct {
	ID              string `json:"id"`
	BaseAttack      int    `json:"base_attack"`
	BaseDefense     int    `json:"base_defense"`
	BaseHealth      int    `json:"base_health"`
	BaseEssence     int    `json:"base_essence"`
	AttackPerLevel  int    `json:"attack_per_level"`
	DefensePerLevel int    `json:"defense_per_level"`
	HealthPerLevel  int    `json:"health_per_level"`
	EssencePerLevel int    `json:"essence_per_level"`

	Techniques []string `json:"techniques,omitempty"`
}

type progressionFile struct {
	MaxLevel     int           `json:"max_level"`
	XPThresholds []uint64      `json:"xp_thresholds"`
	Classes      []ClassGrowth `json:"classes"`
}

// Load reads every catalog from <dir>/catalogs. Missing or malformed files
// are load-time errors; the simulation never starts on partial data.
func Load(dir string) (*Catalogs, error) {
	c := &Catalogs{}

	var mobs []MobDef
	digest, err := readJSON(filepath.Join(dir, "catalogs", "mobs.json"), &mobs)
	if err != nil {
		return nil, err
	}
	c.Mobs = MobCatalog{ByID: make(map[string]MobDef, len(mobs)), Digest: digest}
	for _, m := range mobs {
		if m.ID == "" {
			return nil, fmt.Errorf("mobs.json: mob with empty id")
		}
		if _, dup := c.Mobs.ByID[m.ID]; dup {
			return nil, fmt.Errorf("mobs.json: duplicate mob id %s", m.ID)
		}
		c.Mobs.ByID[m.ID] = m
	}

	var techniques []TechniqueDef
	digest, err = readJSON(filepath.Join(dir, "catalogs", "techniques.json"), &techniques)
	if err != nil {
		return nil, err
	}
	c.Techniques = TechniqueCatalog{ByID: make(map[string]TechniqueDef, len(techniques)), Digest: digest}
	for _, t := range techniques {
		switch t.Kind {
		case TechniqueAttack, TechniqueHeal, TechniqueBuff, TechniqueDebuff:
		default:
			return nil, fmt.Errorf("techniques.json: %s: unknown kind %q", t.ID, t.Kind)
		}
		if _, dup := c.Techniques.ByID[t.ID]; dup {
			return nil, fmt.Errorf("techniques.json: duplicate technique id %s", t.ID)
		}
		c.Techniques.ByID[t.ID] = t
	}

	var tables []LootTable
	digest, err = readJSON(filepath.Join(dir, "catalogs", "loot_tables.json"), &tables)
	if err != nil {
		return nil, err
	}
	c.Loot = LootCatalog{ByID: make(map[string]LootTable, len(tables)), Digest: digest}
	for _, lt := range tables {
		c.Loot.ByID[lt.ID] = lt
	}

	var prog progressionFile
	digest, err = readJSON(filepath.Join(dir, "catalogs", "progression.json"), &prog)
	if err != nil {
		return nil, err
	}
	if prog.MaxLevel < 1 {
		return nil, fmt.Errorf("progression.json: max_level must be >= 1")
	}
	if len(prog.XPThresholds) < prog.MaxLevel-1 {
		return nil, fmt.Errorf("progression.json: need %d xp thresholds, have %d", prog.MaxLevel-1, len(prog.XPThresholds))
	}
	for i := 1; i < len(prog.XPThresholds); i++ {
		if prog.XPThresholds[i] <= prog.XPThresholds[i-1] {
			return nil, fmt.Errorf("progression.json: xp_thresholds must be strictly increasing")
		}
	}
	c.Progression = ProgressionCatalog{
		XPThresholds: prog.XPThresholds,
		MaxLevel:     prog.MaxLevel,
		Classes:      make(map[string]ClassGrowth, len(prog.Classes)),
		Digest:       digest,
	}
	for _, cl := range prog.Classes {
		c.Progression.Classes[cl.ID] = cl
	}

	// Referential integrity: mob loot tables and technique lists must resolve.
	for _, m := range c.Mobs.ByID {
		if m.LootTable != "" {
			if _, ok := c.Loot.ByID[m.LootTable]; !ok {
				return nil, fmt.Errorf("mobs.json: %s references missing loot table %s", m.ID, m.LootTable)
			}
		}
		for _, tid := range m.Techniques {
			if _, ok := c.Techniques.ByID[tid]; !ok {
				return nil, fmt.Errorf("mobs.json: %s references missing technique %s", m.ID, tid)
			}
		}
	}
	for _, cl := range c.Progression.Classes {
		for _, tid := range cl.Techniques {
			if _, ok := c.Techniques.ByID[tid]; !ok {
				return nil, fmt.Errorf("progression.json: class %s references missing technique %s", cl.ID, tid)
			}
		}
	}

	return c, nil
}

// ThresholdFor returns the total xp required to reach the given level,
// or false when the level is out of range.
func (p ProgressionCatalog) ThresholdFor(level int) (uint64, bool) {
	if level < 2 || level > p.MaxLevel {
		return 0, false
	}
	return p.XPThresholds[level-2], true
}

func readJSON(path string, v any) (digest string, err error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return "", fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
