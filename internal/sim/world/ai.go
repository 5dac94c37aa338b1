package world

import "emberveil.gg/internal/sim/catalogs"

// assignAIOrders gives every idle autonomous combatant a fresh order.
// Deterministic greedy policy, strict priority: self-buff, emergency
// heal, debuff the target, best affordable attack technique, basic
// attack. No pathfinding — targets are ranked by direct distance.
func (w *World) assignAIOrders(z *Zone, tick uint64) {
	for _, id := range sortedIDs(z) {
		e := z.Entities[id]
		if e == nil || e.Order != nil || !w.autonomous(e) {
			continue
		}
		target := w.nearestHostile(z, e)
		if target == nil {
			continue
		}
		e.Order = w.chooseAction(e, target, tick)
	}
}

func (w *World) autonomous(e *Entity) bool {
	switch e.Kind {
	case KindMob, KindBoss:
		return true
	case KindPlayer:
		return e.Player != nil && e.Player.AutoCombat
	default:
		return false
	}
}

// nearestHostile picks the closest valid hostile. Mobs only aggro inside
// their template radius; auto-combat players sweep the whole zone.
func (w *World) nearestHostile(z *Zone, e *Entity) *Entity {
	var best *Entity
	bestDist := 0.0
	limit := 0.0
	if e.Mob != nil {
		limit = e.Mob.AggroRadius
	}
	for _, id := range sortedIDs(z) {
		t := z.Entities[id]
		if !hostileTo(e, t) {
			continue
		}
		d := dist(e.X, e.Y, t.X, t.Y)
		if limit > 0 && d > limit {
			continue
		}
		if best == nil || d < bestDist {
			best = t
			bestDist = d
		}
	}
	return best
}

func (w *World) chooseAction(e, target *Entity, tick uint64) *Order {
	var buff, heal, debuff *catalogs.TechniqueDef
	var bestAttack *catalogs.TechniqueDef

	for _, tid := range e.knownTechniques() {
		def, ok := w.cats.Techniques.ByID[tid]
		if !ok || !w.techniqueReady(e, def, tick) {
			continue
		}
		d := def
		switch def.Kind {
		case catalogs.TechniqueBuff:
			if buff == nil {
				buff = &d
			}
		case catalogs.TechniqueHeal:
			if heal == nil {
				heal = &d
			}
		case catalogs.TechniqueDebuff:
			if debuff == nil {
				debuff = &d
			}
		case catalogs.TechniqueAttack:
			if bestAttack == nil || d.DamageMult > bestAttack.DamageMult {
				bestAttack = &d
			}
		}
	}

	if buff != nil && !hasBuffFrom(e, e.ID) {
		return &Order{Kind: OrderTechnique, TargetID: e.ID, Technique: buff.ID}
	}
	if heal != nil && e.MaxHP > 0 && float64(e.HP)/float64(e.MaxHP) < 0.4 {
		return &Order{Kind: OrderTechnique, TargetID: e.ID, Technique: heal.ID}
	}
	if debuff != nil && !hasDebuffFrom(target, e.ID) {
		return &Order{Kind: OrderTechnique, TargetID: target.ID, Technique: debuff.ID}
	}
	if bestAttack != nil {
		return &Order{Kind: OrderTechnique, TargetID: target.ID, Technique: bestAttack.ID}
	}
	return &Order{Kind: OrderAttack, TargetID: target.ID}
}
