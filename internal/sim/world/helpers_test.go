package world

import (
	"testing"

	"emberveil.gg/internal/protocol"
	"emberveil.gg/internal/sim/catalogs"
	"emberveil.gg/internal/sim/tuning"
	"emberveil.gg/internal/sim/zonecfg"
)

func testCatalogs() *catalogs.Catalogs {
	mobs := map[string]catalogs.MobDef{
		"GRIM_WOLF": {
			ID: "GRIM_WOLF", Name: "Grim Wolf", Level: 2,
			MaxHealth: 35, AttackPower: 10, DefensePower: 0,
			XPReward: 60, LootTable: "WOLF", AggroRadius: 15,
			Harvestables: []catalogs.ItemCount{{Item: "PELT", TokenID: 31, Count: 1}},
		},
		"BOG_WISP": {
			ID: "BOG_WISP", Name: "Bog Wisp", Level: 3,
			MaxHealth: 40, MaxEssence: 60, AttackPower: 8, DefensePower: 2,
			XPReward: 50, AggroRadius: 12,
			Techniques: []string{"IRONHIDE", "CURSE", "FIREBOLT"},
		},
	}
	techniques := map[string]catalogs.TechniqueDef{
		"FIREBOLT": {ID: "FIREBOLT", Kind: catalogs.TechniqueAttack, EssenceCost: 10, CooldownTicks: 5, Range: 3, DamageMult: 1.5},
		"NOVA":     {ID: "NOVA", Kind: catalogs.TechniqueAttack, EssenceCost: 20, CooldownTicks: 8, Range: 6, DamageMult: 1.0, AoERadius: 5, AoEMaxTargets: 3},
		"DRAIN":    {ID: "DRAIN", Kind: catalogs.TechniqueAttack, EssenceCost: 15, CooldownTicks: 6, Range: 4, DamageMult: 1.0, LifestealPct: 0.5},
		"MEND":     {ID: "MEND", Kind: catalogs.TechniqueHeal, EssenceCost: 10, CooldownTicks: 4, Range: 5, HealAmount: 30},
		"RENEW":    {ID: "RENEW", Kind: catalogs.TechniqueHeal, EssenceCost: 12, CooldownTicks: 8, Range: 5, HealPerTick: 5, DurationTicks: 4},
		"IRONHIDE": {ID: "IRONHIDE", Kind: catalogs.TechniqueBuff, EssenceCost: 10, CooldownTicks: 10, DurationTicks: 5, StatMods: map[string]int{"defense": 10}},
		"AEGIS":    {ID: "AEGIS", Kind: catalogs.TechniqueBuff, EssenceCost: 12, CooldownTicks: 10, DurationTicks: 5, Shield: 15},
		"CURSE":    {ID: "CURSE", Kind: catalogs.TechniqueDebuff, EssenceCost: 10, CooldownTicks: 6, Range: 5, DurationTicks: 3, StatMods: map[string]int{"attack": -5}, DotPerTick: 4},
	}
	loot := map[string]catalogs.LootTable{
		"WOLF": {ID: "WOLF", GoldMin: 2, GoldMax: 6, Drops: []catalogs.DropDef{
			{Item: "FANG", TokenID: 21, Chance: 1.0, QtyMin: 1, QtyMax: 1},
		}},
	}
	return &catalogs.Catalogs{
		Mobs:       catalogs.MobCatalog{ByID: mobs, Digest: "test"},
		Techniques: catalogs.TechniqueCatalog{ByID: techniques, Digest: "test"},
		Loot:       catalogs.LootCatalog{ByID: loot, Digest: "test"},
		Progression: catalogs.ProgressionCatalog{
			XPThresholds: []uint64{100, 250, 450, 700},
			MaxLevel:     5,
			Classes: map[string]catalogs.ClassGrowth{
				"blade": {
					ID: "blade", BaseAttack: 20, BaseDefense: 10, BaseHealth: 100, BaseEssence: 50,
					AttackPerLevel: 5, DefensePerLevel: 2, HealthPerLevel: 20, EssencePerLevel: 10,
					Techniques: []string{"FIREBOLT", "NOVA", "DRAIN", "MEND", "RENEW", "IRONHIDE", "AEGIS", "CURSE"},
				},
			},
			Digest: "test",
		},
	}
}

func testTopo() zonecfg.Config {
	cfg := zonecfg.Config{
		DefaultZoneID: "meadow",
		Zones: []zonecfg.ZoneSpec{
			{
				ID: "meadow", GridX: 0, GridY: 0, Width: 100, Height: 100, MinLevel: 1,
				Spawn: zonecfg.Point{X: 50, Y: 50}, Graveyard: zonecfg.Point{X: 10, Y: 10},
			},
			{
				ID: "crag", GridX: 1, GridY: 0, Width: 100, Height: 100, MinLevel: 3,
				Spawn: zonecfg.Point{X: 5, Y: 50}, Graveyard: zonecfg.Point{X: 8, Y: 50},
			},
		},
	}
	cfg.Normalize()
	return cfg
}

func newTestWorld(t *testing.T) *World {
	t.Helper()
	w, err := New(tuning.Defaults(), testCatalogs(), testTopo(), 1, nil)
	if err != nil {
		t.Fatalf("new world: %v", err)
	}
	return w
}

// addPlayer joins a player directly through the join path, bypassing the
// scheduler. The returned entity lives in the named zone.
func addPlayer(t *testing.T, w *World, name, zoneID string, tick uint64) *Entity {
	t.Helper()
	resp := make(chan JoinResponse, 1)
	w.handleJoin(JoinRequest{Name: name, Wallet: "0x" + name, Class: "blade", ZoneID: zoneID, Resp: resp}, tick)
	r := <-resp
	if r.Err != "" {
		t.Fatalf("join %s: %s", name, r.Err)
	}
	z := w.zones[zoneID]
	e := z.get(r.EntityID)
	if e == nil {
		t.Fatalf("join %s: entity missing from zone %s", name, zoneID)
	}
	return e
}

type recordMinter struct {
	gold  map[string]int
	items map[uint64]int
}

func newRecordMinter() *recordMinter {
	return &recordMinter{gold: make(map[string]int), items: make(map[uint64]int)}
}

func (m *recordMinter) MintGold(wallet string, amount int) { m.gold[wallet] += amount }
func (m *recordMinter) MintItem(_ string, tokenID uint64, qty int) {
	m.items[tokenID] += qty
}

type stubLoot struct {
	result LootResult
	calls  int
}

func (s *stubLoot) RollLoot(string) LootResult {
	s.calls++
	return s.result
}

type recordSaver struct {
	saves []protocol.CharacterState
}

func (s *recordSaver) SaveCharacter(state protocol.CharacterState) {
	s.saves = append(s.saves, state)
}
