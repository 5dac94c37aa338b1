package world

type EffectKind uint8

const (
	EffectBuff EffectKind = iota + 1
	EffectDebuff
	EffectDoT
	EffectHoT
	EffectShield
)

func (k EffectKind) String() string {
	switch k {
	case EffectBuff:
		return "buff"
	case EffectDebuff:
		return "debuff"
	case EffectDoT:
		return "dot"
	case EffectHoT:
		return "hot"
	case EffectShield:
		return "shield"
	default:
		return "unknown"
	}
}

// ActiveEffect is owned by the entity it is applied to. CasterID is a weak
// back-reference resolved via store lookup at use time; a missing caster
// means "caster gone", never an error.
type ActiveEffect struct {
	Kind           EffectKind
	Name           string
	CasterID       EntityID
	RemainingTicks uint64

	Mods            Stats // buff / debuff
	PerTick         int   // dot damage or hot healing per tick
	ShieldRemaining int
}

// processEffects advances every entity's active effects once. Runs before
// order execution in the zone pass. An entity that dies from a DoT is
// routed through death handling immediately and its remaining effects are
// skipped that tick: a dead entity must not accumulate further effect ticks.
func (w *World) processEffects(z *Zone, tick uint64) {
	for _, id := range sortedIDs(z) {
		e := z.Entities[id]
		if e == nil || len(e.Effects) == 0 {
			continue
		}

		remaining := make([]*ActiveEffect, 0, len(e.Effects))
		recompute := false
		died := false

		for _, ef := range e.Effects {
			ef.RemainingTicks--

			switch ef.Kind {
			case EffectDoT:
				caster := z.Entities[ef.CasterID] // may be nil: caster gone
				if w.applyDamage(z, caster, e, ef.PerTick, tick) {
					died = true
				}
			case EffectHoT:
				e.HP += ef.PerTick
				if e.HP > e.MaxHP {
					e.HP = e.MaxHP
				}
			}
			if died {
				break
			}

			expired := ef.RemainingTicks == 0
			if ef.Kind == EffectShield && ef.ShieldRemaining <= 0 {
				expired = true
			}
			if expired {
				if ef.Kind == EffectBuff || ef.Kind == EffectDebuff {
					recompute = true
				}
				continue
			}
			remaining = append(remaining, ef)
		}

		if died {
			// Death handling already reset (player) or removed (mob) the
			// entity; never reinstate the partially-processed effect list.
			continue
		}
		e.Effects = remaining
		if recompute {
			w.recomputeEffective(e)
		}
	}
}

// applyEffect attaches an effect and recomputes stats when it modifies them.
func (w *World) applyEffect(target *Entity, ef *ActiveEffect) {
	target.Effects = append(target.Effects, ef)
	if ef.Kind == EffectBuff || ef.Kind == EffectDebuff {
		w.recomputeEffective(target)
	}
}

// hasBuffFrom reports whether target carries an active buff cast by caster.
func hasBuffFrom(target *Entity, caster EntityID) bool {
	for _, ef := range target.Effects {
		if ef.Kind == EffectBuff && ef.CasterID == caster {
			return true
		}
	}
	return false
}

// hasDebuffFrom reports whether target carries an active debuff or DoT
// cast by caster.
func hasDebuffFrom(target *Entity, caster EntityID) bool {
	for _, ef := range target.Effects {
		if (ef.Kind == EffectDebuff || ef.Kind == EffectDoT) && ef.CasterID == caster {
			return true
		}
	}
	return false
}

// absorbWithShields routes damage through the target's shields first and
// returns the remainder. Only capacities are decremented here — exhausted
// shields are swept by the effect processor, which may be mid-iteration
// over this very list when a DoT lands.
func absorbWithShields(target *Entity, amount int) int {
	if amount <= 0 {
		return 0
	}
	for _, ef := range target.Effects {
		if ef.Kind != EffectShield || ef.ShieldRemaining <= 0 {
			continue
		}
		absorbed := ef.ShieldRemaining
		if absorbed > amount {
			absorbed = amount
		}
		ef.ShieldRemaining -= absorbed
		amount -= absorbed
		if amount == 0 {
			break
		}
	}
	return amount
}
