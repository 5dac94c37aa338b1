package world

import "testing"

func TestDoT_KillsBeforeOrdersRun(t *testing.T) {
	w := newTestWorld(t)
	z := w.zones["meadow"]

	p := addPlayer(t, w, "p1", "meadow", 0)
	wolf := w.spawnMob(z, "GRIM_WOLF", p.X, p.Y+1, 0)
	wolf.HP = 25
	wolf.Effects = []*ActiveEffect{{
		Kind: EffectDoT, Name: "CURSE", CasterID: p.ID, RemainingTicks: 1, PerTick: 30,
	}}
	// The wolf has a pending attack; it must never execute.
	wolf.Order = &Order{Kind: OrderAttack, TargetID: p.ID}

	w.StepOnce(nil, nil)

	if z.get(wolf.ID) != nil {
		t.Fatalf("wolf should die during effect processing")
	}
	if p.HP != p.MaxHP {
		t.Fatalf("dead wolf still attacked: player hp %d", p.HP)
	}
	if p.XP != 60 {
		t.Fatalf("kill credit xp = %d, want 60", p.XP)
	}
}

func TestDoT_CasterGoneStillTicks(t *testing.T) {
	w := newTestWorld(t)
	z := w.zones["meadow"]

	wolf := w.spawnMob(z, "GRIM_WOLF", 50, 50, 0)
	wolf.Effects = []*ActiveEffect{{
		Kind: EffectDoT, Name: "CURSE", CasterID: "E999", RemainingTicks: 2, PerTick: 4,
	}}

	w.processEffects(z, 1)
	if wolf.HP != 31 {
		t.Fatalf("wolf hp = %d, want 31", wolf.HP)
	}
	if wolf.TaggedBy != "" {
		t.Fatalf("missing caster must not tag")
	}
	if len(wolf.Effects) != 1 || wolf.Effects[0].RemainingTicks != 1 {
		t.Fatalf("effect bookkeeping wrong: %+v", wolf.Effects)
	}
}

func TestHoT_HealsAndCaps(t *testing.T) {
	w := newTestWorld(t)
	z := w.zones["meadow"]

	p := addPlayer(t, w, "p1", "meadow", 0)
	p.HP = 50
	w.applyEffect(p, &ActiveEffect{Kind: EffectHoT, Name: "RENEW", CasterID: p.ID, RemainingTicks: 4, PerTick: 5})

	w.processEffects(z, 1)
	if p.HP != 55 {
		t.Fatalf("hp = %d, want 55", p.HP)
	}

	p.HP = p.MaxHP - 2
	w.processEffects(z, 2)
	if p.HP != p.MaxHP {
		t.Fatalf("hp = %d, want cap %d", p.HP, p.MaxHP)
	}
}

func TestBuff_ExpiryRecomputesStats(t *testing.T) {
	w := newTestWorld(t)
	z := w.zones["meadow"]

	p := addPlayer(t, w, "p1", "meadow", 0)
	w.applyEffect(p, &ActiveEffect{
		Kind: EffectBuff, Name: "IRONHIDE", CasterID: p.ID, RemainingTicks: 1,
		Mods: Stats{DefensePower: 10},
	})
	if p.Effective.DefensePower != 20 {
		t.Fatalf("buffed defense = %d, want 20", p.Effective.DefensePower)
	}

	w.processEffects(z, 1)
	if len(p.Effects) != 0 {
		t.Fatalf("expired buff still attached")
	}
	if p.Effective.DefensePower != 10 {
		t.Fatalf("defense after expiry = %d, want 10", p.Effective.DefensePower)
	}
}

func TestShield_AbsorbsThenExpires(t *testing.T) {
	w := newTestWorld(t)
	z := w.zones["meadow"]

	p := addPlayer(t, w, "p1", "meadow", 0)
	w.applyEffect(p, &ActiveEffect{
		Kind: EffectShield, Name: "AEGIS", CasterID: p.ID, RemainingTicks: 5, ShieldRemaining: 15,
	})

	w.applyDamage(z, nil, p, 20, 1)
	if p.HP != p.MaxHP-5 {
		t.Fatalf("hp = %d, want %d (15 absorbed)", p.HP, p.MaxHP-5)
	}
	if p.Effects[0].ShieldRemaining != 0 {
		t.Fatalf("shield remaining = %d, want 0", p.Effects[0].ShieldRemaining)
	}

	w.processEffects(z, 2)
	if len(p.Effects) != 0 {
		t.Fatalf("exhausted shield should be swept")
	}
}

func TestShield_PartialAbsorb(t *testing.T) {
	w := newTestWorld(t)
	z := w.zones["meadow"]

	p := addPlayer(t, w, "p1", "meadow", 0)
	w.applyEffect(p, &ActiveEffect{
		Kind: EffectShield, Name: "AEGIS", CasterID: p.ID, RemainingTicks: 5, ShieldRemaining: 15,
	})

	w.applyDamage(z, nil, p, 10, 1)
	if p.HP != p.MaxHP {
		t.Fatalf("hp = %d, shield should absorb everything", p.HP)
	}
	if p.Effects[0].ShieldRemaining != 5 {
		t.Fatalf("shield remaining = %d, want 5", p.Effects[0].ShieldRemaining)
	}
}
