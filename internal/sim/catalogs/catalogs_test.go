package catalogs

import (
	"os"
	"path/filepath"
	"testing"
)

func findRepoRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatalf("could not find repo root from %s", dir)
		}
		dir = parent
	}
}

func TestLoad_ShippedCatalogs(t *testing.T) {
	root := findRepoRoot(t)
	c, err := Load(filepath.Join(root, "configs"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if len(c.Mobs.ByID) == 0 || c.Mobs.Digest == "" {
		t.Fatalf("mob catalog empty or undigested")
	}
	boss, ok := c.Mobs.ByID["ASHEN_COLOSSUS"]
	if !ok || !boss.Boss {
		t.Fatalf("boss template missing or unflagged: %+v", boss)
	}

	// Every class technique list and mob loot table resolved at load; spot
	// check that the progression table is usable.
	if c.Progression.MaxLevel < 2 {
		t.Fatalf("max level = %d", c.Progression.MaxLevel)
	}
	th2, ok := c.Progression.ThresholdFor(2)
	if !ok || th2 == 0 {
		t.Fatalf("threshold for level 2 = %d ok=%v", th2, ok)
	}
	last, ok := c.Progression.ThresholdFor(c.Progression.MaxLevel)
	if !ok || last <= th2 {
		t.Fatalf("thresholds not increasing: %d .. %d", th2, last)
	}
	if _, ok := c.Progression.ThresholdFor(1); ok {
		t.Fatalf("level 1 has no threshold")
	}
	if _, ok := c.Progression.ThresholdFor(c.Progression.MaxLevel + 1); ok {
		t.Fatalf("threshold beyond max level")
	}

	if _, ok := c.Progression.Classes["emberblade"]; !ok {
		t.Fatalf("emberblade class missing")
	}
	for id, cl := range c.Progression.Classes {
		if len(cl.Techniques) == 0 {
			t.Fatalf("class %s has no techniques", id)
		}
	}
}

func writeCatalogDir(t *testing.T, mobs, techniques, loot, progression string) string {
	t.Helper()
	dir := t.TempDir()
	sub := filepath.Join(dir, "catalogs")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	files := map[string]string{
		"mobs.json":        mobs,
		"techniques.json":  techniques,
		"loot_tables.json": loot,
		"progression.json": progression,
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(sub, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

const minimalProgression = `{"max_level":2,"xp_thresholds":[100],"classes":[{"id":"blade","base_attack":10,"base_defense":5,"base_health":100,"base_essence":50}]}`

func TestLoad_RejectsMissingLootTable(t *testing.T) {
	dir := writeCatalogDir(t,
		`[{"id":"WOLF","name":"Wolf","level":1,"max_health":10,"attack_power":1,"defense_power":0,"xp_reward":5,"loot_table":"NOWHERE","aggro_radius":5}]`,
		`[]`,
		`[]`,
		minimalProgression,
	)
	if _, err := Load(dir); err == nil {
		t.Fatalf("expected error for dangling loot table reference")
	}
}

func TestLoad_RejectsUnknownTechniqueKind(t *testing.T) {
	dir := writeCatalogDir(t,
		`[]`,
		`[{"id":"X","name":"X","kind":"summon","essence_cost":1,"cooldown_ticks":1,"range":1}]`,
		`[]`,
		minimalProgression,
	)
	if _, err := Load(dir); err == nil {
		t.Fatalf("expected error for unknown technique kind")
	}
}

func TestLoad_RejectsUnsortedThresholds(t *testing.T) {
	dir := writeCatalogDir(t,
		`[]`, `[]`, `[]`,
		`{"max_level":3,"xp_thresholds":[200,100],"classes":[{"id":"blade"}]}`,
	)
	if _, err := Load(dir); err == nil {
		t.Fatalf("expected error for unsorted thresholds")
	}
}

func TestLoad_RejectsDanglingClassTechnique(t *testing.T) {
	dir := writeCatalogDir(t,
		`[]`, `[]`, `[]`,
		`{"max_level":2,"xp_thresholds":[100],"classes":[{"id":"blade","techniques":["MISSING"]}]}`,
	)
	if _, err := Load(dir); err == nil {
		t.Fatalf("expected error for dangling class technique")
	}
}

func TestLoad_RejectsDuplicateMobID(t *testing.T) {
	dir := writeCatalogDir(t,
		`[{"id":"WOLF","name":"A","level":1,"max_health":1,"attack_power":1,"defense_power":0,"xp_reward":1,"aggro_radius":1},
		  {"id":"WOLF","name":"B","level":1,"max_health":1,"attack_power":1,"defense_power":0,"xp_reward":1,"aggro_radius":1}]`,
		`[]`, `[]`, minimalProgression,
	)
	if _, err := Load(dir); err == nil {
		t.Fatalf("expected error for duplicate mob id")
	}
}
