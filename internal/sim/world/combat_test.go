package world

import (
	"testing"

	"emberveil.gg/internal/sim/catalogs"
)

func TestDamageFormula(t *testing.T) {
	w := newTestWorld(t)

	attacker := &Entity{Effective: Stats{AttackPower: 20}}
	defender := &Entity{Effective: Stats{DefensePower: 10}}
	// 20 - 0.35*10 = 16.5, rounds away from zero
	if got := w.damageAmount(attacker, defender); got != 17 {
		t.Fatalf("damage = %d, want 17", got)
	}

	weak := &Entity{Effective: Stats{AttackPower: 1}}
	tank := &Entity{Effective: Stats{DefensePower: 100}}
	if got := w.damageAmount(weak, tank); got != w.tune.Combat.MinDamage {
		t.Fatalf("damage = %d, want floor %d", got, w.tune.Combat.MinDamage)
	}

	// Same inputs, same output.
	if a, b := w.damageAmount(attacker, defender), w.damageAmount(attacker, defender); a != b {
		t.Fatalf("damage not deterministic: %d vs %d", a, b)
	}
}

func TestAttack_ExchangeAndKill(t *testing.T) {
	w := newTestWorld(t)
	z := w.zones["meadow"]

	loot := &stubLoot{result: LootResult{Gold: 5, Items: []catalogs.ItemCount{{Item: "FANG", TokenID: 21, Count: 2}}}}
	minter := newRecordMinter()
	w.SetLoot(loot)
	w.SetMinter(minter)

	p := addPlayer(t, w, "p1", "meadow", 1)
	wolf := w.spawnMob(z, "GRIM_WOLF", p.X, p.Y+1, 1)

	p.Order = &Order{Kind: OrderAttack, TargetID: wolf.ID}

	w.executeOrders(z, 1)
	if wolf.HP != 15 {
		t.Fatalf("wolf hp = %d, want 15", wolf.HP)
	}
	if p.HP != 93 {
		t.Fatalf("player hp after retaliation = %d, want 93", p.HP)
	}
	if wolf.TaggedBy != p.ID {
		t.Fatalf("wolf tagged by %q, want %q", wolf.TaggedBy, p.ID)
	}
	if p.Order == nil {
		t.Fatalf("attack order should persist while target lives")
	}

	w.executeOrders(z, 2)
	if z.get(wolf.ID) != nil {
		t.Fatalf("wolf should be removed on death")
	}
	if p.Order != nil {
		t.Fatalf("order should clear when target dies")
	}
	if loot.calls != 1 {
		t.Fatalf("loot rolled %d times, want 1", loot.calls)
	}
	if minter.gold["0xp1"] != 5 {
		t.Fatalf("gold minted = %d, want 5", minter.gold["0xp1"])
	}
	if minter.items[21] != 2 {
		t.Fatalf("items minted = %d, want 2", minter.items[21])
	}
	if p.XP != 60 {
		t.Fatalf("xp = %d, want 60", p.XP)
	}
	if len(z.respawns) != 1 || z.respawns[0].AtTick != 2+w.tune.Spawns.MobRespawnTicks {
		t.Fatalf("respawn record = %+v", z.respawns)
	}

	// Harvestable mobs leave a corpse behind.
	corpses := 0
	for _, e := range z.Entities {
		if e.Kind == KindCorpse {
			corpses++
		}
	}
	if corpses != 1 {
		t.Fatalf("corpses = %d, want 1", corpses)
	}
}

func TestAttack_OutOfRangeClosesGap(t *testing.T) {
	w := newTestWorld(t)
	z := w.zones["meadow"]

	p := addPlayer(t, w, "p1", "meadow", 1)
	wolf := w.spawnMob(z, "GRIM_WOLF", p.X+20, p.Y, 1)
	p.Order = &Order{Kind: OrderAttack, TargetID: wolf.ID}

	startX := p.X
	w.executeOrders(z, 1)
	if wolf.HP != wolf.MaxHP {
		t.Fatalf("no damage expected out of melee range")
	}
	if p.X <= startX {
		t.Fatalf("attacker should move toward target, x %v -> %v", startX, p.X)
	}
	if p.Order == nil {
		t.Fatalf("order should persist while closing")
	}
}

func TestTechnique_EssenceAndCooldown(t *testing.T) {
	w := newTestWorld(t)
	z := w.zones["meadow"]

	p := addPlayer(t, w, "p1", "meadow", 1)
	wolf := w.spawnMob(z, "GRIM_WOLF", p.X, p.Y+1, 1)

	p.Order = &Order{Kind: OrderTechnique, TargetID: wolf.ID, Technique: "FIREBOLT"}
	w.executeOrders(z, 1)

	// 1.5 * 20 - 0 = 30
	if wolf.HP != 5 {
		t.Fatalf("wolf hp = %d, want 5", wolf.HP)
	}
	if p.Essence != 40 {
		t.Fatalf("essence = %d, want 40", p.Essence)
	}
	def := w.cats.Techniques.ByID["FIREBOLT"]
	if until := p.Cooldowns["FIREBOLT"]; until != 6 {
		t.Fatalf("cooldown until = %d, want 6", until)
	}
	if w.techniqueReady(p, def, 5) {
		t.Fatalf("technique should not be ready before cooldown elapses")
	}
	if !w.techniqueReady(p, def, 6) {
		t.Fatalf("technique should be ready once cooldown elapses")
	}
}

func TestTechnique_Lifesteal(t *testing.T) {
	w := newTestWorld(t)
	z := w.zones["meadow"]

	p := addPlayer(t, w, "p1", "meadow", 1)
	wolf := w.spawnMob(z, "GRIM_WOLF", p.X, p.Y+1, 1)
	p.HP = 50

	p.Order = &Order{Kind: OrderTechnique, TargetID: wolf.ID, Technique: "DRAIN"}
	w.executeOrders(z, 1)

	// 20 dealt, half stolen back, then one retaliation of 7.
	if wolf.HP != 15 {
		t.Fatalf("wolf hp = %d, want 15", wolf.HP)
	}
	if p.HP != 53 {
		t.Fatalf("player hp = %d, want 53", p.HP)
	}
}

func TestTechnique_AoEHitsNearbyHostiles(t *testing.T) {
	w := newTestWorld(t)
	z := w.zones["meadow"]

	p := addPlayer(t, w, "p1", "meadow", 1)
	primary := w.spawnMob(z, "GRIM_WOLF", p.X, p.Y+2, 1)
	near := w.spawnMob(z, "GRIM_WOLF", p.X+1, p.Y+2, 1)
	far := w.spawnMob(z, "GRIM_WOLF", p.X+40, p.Y+40, 1)

	p.Order = &Order{Kind: OrderTechnique, TargetID: primary.ID, Technique: "NOVA"}
	w.executeOrders(z, 1)

	if primary.HP != 15 || near.HP != 15 {
		t.Fatalf("aoe hp = %d/%d, want 15/15", primary.HP, near.HP)
	}
	if far.HP != far.MaxHP {
		t.Fatalf("out-of-radius mob took damage: %d", far.HP)
	}
	// Only the primary target retaliates.
	if p.HP != 93 {
		t.Fatalf("player hp = %d, want 93", p.HP)
	}
}

func TestTechnique_HealNeverLandsOnHostile(t *testing.T) {
	w := newTestWorld(t)
	z := w.zones["meadow"]

	p := addPlayer(t, w, "p1", "meadow", 1)
	wolf := w.spawnMob(z, "GRIM_WOLF", p.X, p.Y+1, 1)
	wolf.HP = 10

	p.Order = &Order{Kind: OrderTechnique, TargetID: wolf.ID, Technique: "MEND"}
	w.executeOrders(z, 1)

	if wolf.HP != 10 {
		t.Fatalf("hostile was healed: hp = %d", wolf.HP)
	}
	if p.Essence != p.MaxEssence {
		t.Fatalf("essence spent on a no-op: %d", p.Essence)
	}
}

func TestEquipmentWear_BrokenItemStopsContributing(t *testing.T) {
	w := newTestWorld(t)
	z := w.zones["meadow"]

	p := addPlayer(t, w, "p1", "meadow", 1)
	p.Equipment[SlotWeapon] = &ItemInstance{
		Item: "RUSTY_BLADE", TokenID: 41,
		Bonus: Stats{AttackPower: 5}, Durability: 2, MaxDurability: 2,
	}
	w.recomputeEffective(p)
	if p.Effective.AttackPower != 25 {
		t.Fatalf("attack with weapon = %d, want 25", p.Effective.AttackPower)
	}

	wolf := w.spawnMob(z, "GRIM_WOLF", p.X, p.Y+1, 1)
	p.Order = &Order{Kind: OrderAttack, TargetID: wolf.ID}

	w.executeOrders(z, 1)
	w.executeOrders(z, 2)

	if p.Equipment[SlotWeapon].Durability != 0 {
		t.Fatalf("durability = %d, want 0", p.Equipment[SlotWeapon].Durability)
	}
	if p.Effective.AttackPower != 20 {
		t.Fatalf("attack with broken weapon = %d, want base 20", p.Effective.AttackPower)
	}
}

func TestHPNeverLeavesRange(t *testing.T) {
	w := newTestWorld(t)
	z := w.zones["meadow"]

	wolf := w.spawnMob(z, "GRIM_WOLF", 50, 50, 1)
	w.applyDamage(z, nil, wolf, 10_000, 1)
	if z.get(wolf.ID) != nil {
		t.Fatalf("overkilled mob should be removed")
	}

	p := addPlayer(t, w, "p1", "meadow", 1)
	p.HP = p.MaxHP
	w.executeHealTechnique(p, p, w.cats.Techniques.ByID["MEND"])
	if p.HP != p.MaxHP {
		t.Fatalf("hp overhealed: %d > %d", p.HP, p.MaxHP)
	}
}
