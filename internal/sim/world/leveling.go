package world

import (
	"math"

	"emberveil.gg/internal/persistence/eventlog"
)

// grantXP adds experience and processes level-ups, including multi-level
// jumps within one tick. A level change recomputes base and effective
// stats but preserves the hp/maxHp ratio the entity had going in, so a
// mid-fight level-up is not a free heal beyond that ratio.
func (w *World) grantXP(z *Zone, p *Entity, amount uint64, tick uint64) {
	if amount == 0 || p.Kind != KindPlayer {
		return
	}
	p.XP += amount

	from := p.Level
	for p.Level < w.cats.Progression.MaxLevel {
		threshold, ok := w.cats.Progression.ThresholdFor(p.Level + 1)
		if !ok || p.XP < threshold {
			break
		}
		p.Level++
	}
	if p.Level == from {
		return
	}

	ratio := 1.0
	if p.MaxHP > 0 {
		ratio = float64(p.HP) / float64(p.MaxHP)
	}
	w.recomputeBase(p)
	w.recomputeEffective(p)
	p.HP = int(math.Round(ratio * float64(p.MaxHP)))
	if p.HP < 1 {
		p.HP = 1
	}
	if p.HP > p.MaxHP {
		p.HP = p.MaxHP
	}

	w.logEvent(eventlog.Event{Tick: tick, Zone: z.ID, Kind: eventlog.KindLevelUp, ActorID: string(p.ID), Amount: p.Level})
	w.logDiary(eventlog.Event{Tick: tick, Zone: z.ID, Kind: eventlog.KindLevelUp, ActorID: string(p.ID), Amount: p.Level})

	// Persistence and metadata sync are async and best-effort: a failed
	// save never blocks or reverts the level-up.
	w.queueSave(z, p)
}
