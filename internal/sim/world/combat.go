package world

import (
	"math"
	"sort"

	"emberveil.gg/internal/persistence/eventlog"
	"emberveil.gg/internal/sim/catalogs"
)

// executeOrders runs every entity's current order exactly once. Entities
// are visited in sorted id order; an entity removed by an earlier exchange
// (a mob killed by retaliation, say) is skipped via the map lookup.
func (w *World) executeOrders(z *Zone, tick uint64) {
	for _, id := range sortedIDs(z) {
		e := z.Entities[id]
		if e == nil || e.Order == nil {
			continue
		}
		switch e.Order.Kind {
		case OrderMove:
			if w.stepToward(z, e, e.Order.X, e.Order.Y) {
				e.Order = nil
			}
		case OrderAttack:
			w.executeAttack(z, e, tick)
		case OrderTechnique:
			w.executeTechnique(z, e, tick)
		}
	}
}

// damageAmount is the single damage formula: linear mitigation with an
// integer round and a minimum floor so no hit ever lands for zero.
func (w *World) damageAmount(attacker, defender *Entity) int {
	raw := float64(attacker.Effective.AttackPower) - w.tune.Combat.DefenseCoeff*float64(defender.Effective.DefensePower)
	dmg := int(math.Round(raw))
	if dmg < w.tune.Combat.MinDamage {
		dmg = w.tune.Combat.MinDamage
	}
	return dmg
}

// applyDamage routes damage shield-then-hp, updates tag and combat
// bookkeeping, and triggers death handling when hp reaches zero. The
// attacker may be nil (effect whose caster is gone). Reports death.
func (w *World) applyDamage(z *Zone, attacker, target *Entity, amount int, tick uint64) bool {
	if amount < 0 {
		amount = 0
	}
	rest := absorbWithShields(target, amount)
	target.HP -= rest
	if target.HP < 0 {
		target.HP = 0
	}

	target.LastCombatTick = tick
	var attackerID EntityID
	if attacker != nil {
		attacker.LastCombatTick = tick
		attackerID = attacker.ID
		if attacker.Kind == KindPlayer && (target.Kind == KindMob || target.Kind == KindBoss) {
			w.tagMob(target, attacker.ID, tick)
		}
	}

	w.logEvent(eventlog.Event{
		Tick: tick, Zone: z.ID, Kind: eventlog.KindHit,
		ActorID: string(attackerID), Target: string(target.ID), Amount: amount,
	})

	if target.HP == 0 {
		w.handleDeath(z, target, attacker, tick)
		return true
	}
	return false
}

func (w *World) executeAttack(z *Zone, e *Entity, tick uint64) {
	target := z.get(e.Order.TargetID)
	if target == nil || !target.combatant() {
		e.Order = nil
		return
	}
	if dist(e.X, e.Y, target.X, target.Y) > w.tune.Combat.MeleeRange {
		// Out of range: the attack order doubles as move-toward-target.
		w.stepToward(z, e, target.X, target.Y)
		return
	}

	dmg := w.damageAmount(e, target)
	w.applyEquipmentWear(e, target)
	if w.applyDamage(z, e, target, dmg, tick) {
		e.Order = nil
		return
	}
	w.retaliate(z, target, e, tick)
}

// retaliate performs the defender's single counter-hit of the exchange.
// It never recurses: one hit each way per tick, no more.
func (w *World) retaliate(z *Zone, defender, attacker *Entity, tick uint64) {
	if defender == nil || attacker == nil {
		return
	}
	if !defender.combatant() || !attacker.combatant() {
		return
	}
	if defender.HP <= 0 {
		return
	}
	dmg := w.damageAmount(defender, attacker)
	w.applyEquipmentWear(defender, attacker)
	w.applyDamage(z, defender, attacker, dmg, tick)
}

// applyEquipmentWear wears the attacker's weapon and the defender's armor
// by the tuned amount. An item breaking changes effective stats.
func (w *World) applyEquipmentWear(attacker, defender *Entity) {
	loss := w.tune.Combat.DurabilityHit
	if loss <= 0 {
		return
	}
	wear := func(e *Entity, slot string) {
		item := e.Equipment[slot]
		if item == nil || item.Durability <= 0 {
			return
		}
		item.Durability -= loss
		if item.Durability <= 0 {
			item.Durability = 0
			w.recomputeEffective(e)
		}
	}
	wear(attacker, SlotWeapon)
	wear(defender, SlotArmor)
}

func (w *World) executeTechnique(z *Zone, e *Entity, tick uint64) {
	ord := e.Order
	e.Order = nil // techniques resolve (or degrade to a no-op) this tick

	def, ok := w.cats.Techniques.ByID[ord.Technique]
	if !ok {
		return
	}
	// Revalidated at execution: essence may have been spent and cooldowns
	// set since the order was issued.
	if !w.techniqueReady(e, def, tick) {
		return
	}

	target := e
	needsTarget := def.Kind == catalogs.TechniqueAttack || def.Kind == catalogs.TechniqueDebuff
	if ord.TargetID != "" && ord.TargetID != e.ID {
		target = z.get(ord.TargetID)
	}
	if target == nil || (needsTarget && (target == e || !target.combatant())) {
		return
	}
	if !needsTarget && hostileTo(e, target) {
		return // heals and buffs never land on hostiles
	}

	if needsTarget && dist(e.X, e.Y, target.X, target.Y) > def.Range {
		// Out of range: close the gap and retry next tick.
		w.stepToward(z, e, target.X, target.Y)
		e.Order = ord
		return
	}

	e.Essence -= def.EssenceCost
	e.Cooldowns[def.ID] = tick + def.CooldownTicks

	w.logEvent(eventlog.Event{
		Tick: tick, Zone: z.ID, Kind: eventlog.KindTechnique,
		ActorID: string(e.ID), Target: string(target.ID), Detail: def.ID,
	})

	switch def.Kind {
	case catalogs.TechniqueAttack:
		w.executeAttackTechnique(z, e, target, def, tick)
	case catalogs.TechniqueHeal:
		w.executeHealTechnique(e, target, def)
	case catalogs.TechniqueBuff:
		w.executeBuffTechnique(e, target, def)
	case catalogs.TechniqueDebuff:
		w.executeDebuffTechnique(z, e, target, def, tick)
	}
}

func (w *World) executeAttackTechnique(z *Zone, e, primary *Entity, def catalogs.TechniqueDef, tick uint64) {
	targets := []*Entity{primary}
	if def.AoERadius > 0 && def.AoEMaxTargets > 1 {
		targets = append(targets, w.nearestHostilesWithin(z, e, primary, def.AoERadius, def.AoEMaxTargets-1)...)
	}

	total := 0
	primaryAlive := false
	for _, t := range targets {
		raw := def.DamageMult*float64(e.Effective.AttackPower) - w.tune.Combat.DefenseCoeff*float64(t.Effective.DefensePower)
		dmg := int(math.Round(raw))
		if dmg < w.tune.Combat.MinDamage {
			dmg = w.tune.Combat.MinDamage
		}
		total += dmg
		died := w.applyDamage(z, e, t, dmg, tick)
		if t == primary && !died {
			primaryAlive = true
		}
		if e.HP <= 0 || z.get(e.ID) == nil {
			return // caster died to an on-death trigger mid-sweep
		}
	}

	if def.LifestealPct > 0 && total > 0 {
		heal := int(math.Round(float64(total) * def.LifestealPct))
		e.HP += heal
		if e.HP > e.MaxHP {
			e.HP = e.MaxHP
		}
	}

	if primaryAlive {
		w.retaliate(z, primary, e, tick)
	}
}

func (w *World) executeHealTechnique(e, target *Entity, def catalogs.TechniqueDef) {
	if def.HealAmount > 0 {
		target.HP += def.HealAmount
		if target.HP > target.MaxHP {
			target.HP = target.MaxHP
		}
	}
	if def.HealPerTick > 0 && def.DurationTicks > 0 {
		w.applyEffect(target, &ActiveEffect{
			Kind:           EffectHoT,
			Name:           def.ID,
			CasterID:       e.ID,
			RemainingTicks: def.DurationTicks,
			PerTick:        def.HealPerTick,
		})
	}
}

func (w *World) executeBuffTechnique(e, target *Entity, def catalogs.TechniqueDef) {
	if len(def.StatMods) > 0 && def.DurationTicks > 0 {
		w.applyEffect(target, &ActiveEffect{
			Kind:           EffectBuff,
			Name:           def.ID,
			CasterID:       e.ID,
			RemainingTicks: def.DurationTicks,
			Mods:           statsFromMods(def.StatMods),
		})
	}
	if def.Shield > 0 && def.DurationTicks > 0 {
		w.applyEffect(target, &ActiveEffect{
			Kind:            EffectShield,
			Name:            def.ID,
			CasterID:        e.ID,
			RemainingTicks:  def.DurationTicks,
			ShieldRemaining: def.Shield,
		})
	}
}

func (w *World) executeDebuffTechnique(z *Zone, e, target *Entity, def catalogs.TechniqueDef, tick uint64) {
	if len(def.StatMods) > 0 && def.DurationTicks > 0 {
		w.applyEffect(target, &ActiveEffect{
			Kind:           EffectDebuff,
			Name:           def.ID,
			CasterID:       e.ID,
			RemainingTicks: def.DurationTicks,
			Mods:           statsFromMods(def.StatMods),
		})
	}
	if def.DotPerTick > 0 && def.DurationTicks > 0 {
		w.applyEffect(target, &ActiveEffect{
			Kind:           EffectDoT,
			Name:           def.ID,
			CasterID:       e.ID,
			RemainingTicks: def.DurationTicks,
			PerTick:        def.DotPerTick,
		})
	}
	// Tag and combat bookkeeping even when the debuff itself deals no
	// direct damage this tick.
	target.LastCombatTick = tick
	e.LastCombatTick = tick
	if e.Kind == KindPlayer && (target.Kind == KindMob || target.Kind == KindBoss) {
		w.tagMob(target, e.ID, tick)
	}
	w.retaliate(z, target, e, tick)
}

// handleDeath resolves an entity reaching zero hp, synchronously within
// the same tick. Kill credit prefers the mob's standing tagger when that
// tagger is still a valid player; otherwise the immediate killer.
func (w *World) handleDeath(z *Zone, victim, killer *Entity, tick uint64) {
	credit := killer
	if victim.Kind == KindMob || victim.Kind == KindBoss {
		if victim.TaggedBy != "" {
			if tagger := z.get(victim.TaggedBy); tagger != nil && tagger.Kind == KindPlayer {
				credit = tagger
			}
		}
	}

	var creditID EntityID
	if credit != nil {
		creditID = credit.ID
	}
	w.logEvent(eventlog.Event{
		Tick: tick, Zone: z.ID, Kind: eventlog.KindKill,
		ActorID: string(creditID), Target: string(victim.ID), Detail: victim.Name,
	})

	switch victim.Kind {
	case KindPlayer:
		w.handlePlayerDeath(z, victim, tick)
	case KindMob, KindBoss:
		w.handleMobDeath(z, victim, credit, tick)
	default:
		z.delete(victim.ID)
	}
}

func (w *World) handlePlayerDeath(z *Zone, p *Entity, tick uint64) {
	penalty := uint64(math.Floor(float64(p.XP) * w.tune.Death.XPPenaltyPct))
	p.XP -= penalty

	p.X = z.Spec.Graveyard.X
	p.Y = z.Spec.Graveyard.Y
	p.Order = nil
	p.Effects = nil
	p.Cooldowns = make(map[string]uint64)
	w.recomputeEffective(p)
	p.HP = p.MaxHP

	w.clearTagsOwnedBy(z, p.ID)

	w.logEvent(eventlog.Event{Tick: tick, Zone: z.ID, Kind: eventlog.KindDeath, ActorID: string(p.ID), Amount: int(penalty)})
	w.logDiary(eventlog.Event{Tick: tick, Zone: z.ID, Kind: eventlog.KindDeath, ActorID: string(p.ID), Amount: int(penalty)})
	w.queueSave(z, p)
}

func (w *World) handleMobDeath(z *Zone, mob, credit *Entity, tick uint64) {
	md := mob.Mob

	if credit != nil && credit.Kind == KindPlayer && credit.Player != nil {
		res := w.loot.RollLoot(md.TemplateID)
		if res.Gold > 0 {
			w.minter.MintGold(credit.Player.Wallet, res.Gold)
		}
		for _, it := range res.Items {
			w.minter.MintItem(credit.Player.Wallet, it.TokenID, it.Count)
		}
		if res.Gold > 0 || len(res.Items) > 0 {
			w.logEvent(eventlog.Event{
				Tick: tick, Zone: z.ID, Kind: eventlog.KindLoot,
				ActorID: string(credit.ID), Target: string(mob.ID), Amount: res.Gold,
			})
			w.logDiary(eventlog.Event{Tick: tick, Zone: z.ID, Kind: eventlog.KindLoot, ActorID: string(credit.ID), Amount: res.Gold, Detail: md.TemplateID})
		}
		w.quests.OnKill(credit.Name, md.TemplateID)
	}

	if len(md.Harvestables) > 0 {
		corpse := &Entity{
			ID:    w.nextEntityID(),
			Kind:  KindCorpse,
			Name:  mob.Name,
			X:     mob.X,
			Y:     mob.Y,
			HP:    1,
			MaxHP: 1,
			Corpse: &CorpseData{
				DecayAtTick: tick + w.tune.Spawns.CorpseDecayTicks,
				Harvest:     append([]catalogs.ItemCount(nil), md.Harvestables...),
			},
		}
		z.set(corpse)
	}

	z.respawns = append(z.respawns, respawnRecord{
		TemplateID: md.TemplateID,
		X:          md.SpawnX,
		Y:          md.SpawnY,
		AtTick:     tick + w.tune.Spawns.MobRespawnTicks,
	})

	z.delete(mob.ID)
	w.logEvent(eventlog.Event{Tick: tick, Zone: z.ID, Kind: eventlog.KindDespawn, ActorID: string(mob.ID), Detail: md.TemplateID})

	if credit != nil && credit.Kind == KindPlayer {
		w.grantXP(z, credit, md.XPReward, tick)
	}
}

// stepToward advances e at the tuned speed and reports arrival. Players
// may overrun zone bounds (the transition coordinator judges that at end
// of tick); everything else is clamped inside its zone.
func (w *World) stepToward(z *Zone, e *Entity, tx, ty float64) bool {
	dx := tx - e.X
	dy := ty - e.Y
	d := math.Hypot(dx, dy)
	if d <= w.tune.Combat.ArriveRadius {
		e.X, e.Y = tx, ty
		return true
	}
	step := w.tune.Combat.MoveSpeed
	if step >= d {
		e.X, e.Y = tx, ty
	} else {
		e.X += dx / d * step
		e.Y += dy / d * step
	}
	if e.Kind != KindPlayer {
		clampIntoZone(e, z)
	}
	return dist(e.X, e.Y, tx, ty) <= w.tune.Combat.ArriveRadius
}

func clampIntoZone(e *Entity, z *Zone) {
	if e.X < 0 {
		e.X = 0
	}
	if e.X > z.Spec.Width {
		e.X = z.Spec.Width
	}
	if e.Y < 0 {
		e.Y = 0
	}
	if e.Y > z.Spec.Height {
		e.Y = z.Spec.Height
	}
}

func dist(x1, y1, x2, y2 float64) float64 {
	return math.Hypot(x2-x1, y2-y1)
}

// nearestHostilesWithin returns up to max hostiles of the caster within
// radius of the primary target, nearest first, excluding the primary.
func (w *World) nearestHostilesWithin(z *Zone, caster, primary *Entity, radius float64, max int) []*Entity {
	var found []*Entity
	for _, id := range sortedIDs(z) {
		t := z.Entities[id]
		if t == nil || t == primary || !hostileTo(caster, t) {
			continue
		}
		if dist(primary.X, primary.Y, t.X, t.Y) <= radius {
			found = append(found, t)
		}
	}
	sort.Slice(found, func(i, j int) bool {
		di := dist(primary.X, primary.Y, found[i].X, found[i].Y)
		dj := dist(primary.X, primary.Y, found[j].X, found[j].Y)
		if di != dj {
			return di < dj
		}
		return found[i].ID < found[j].ID
	})
	if len(found) > max {
		found = found[:max]
	}
	return found
}

func hostileTo(a, b *Entity) bool {
	if a == nil || b == nil || a == b {
		return false
	}
	switch a.Kind {
	case KindPlayer:
		return b.Kind == KindMob || b.Kind == KindBoss
	case KindMob, KindBoss:
		return b.Kind == KindPlayer
	default:
		return false
	}
}
