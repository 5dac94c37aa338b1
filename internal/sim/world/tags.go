package world

// tagMob assigns kill credit, first-tagger-wins: a fresh mob takes the
// attacker's tag, the standing tagger refreshes its own timestamp, and a
// different attacker changes nothing until the tag expires or the mob dies.
func (w *World) tagMob(mob *Entity, attacker EntityID, tick uint64) {
	switch mob.TaggedBy {
	case "":
		mob.TaggedBy = attacker
		mob.TaggedAtTick = tick
	case attacker:
		mob.TaggedAtTick = tick
	}
}

// sweepTags frees mobs whose tag has outlived the timeout, measured in
// ticks so a stalled scheduler never expires tags early.
func (w *World) sweepTags(z *Zone, tick uint64) {
	for _, e := range z.Entities {
		if e.TaggedBy == "" {
			continue
		}
		if tick-e.TaggedAtTick > w.tune.Tags.TimeoutTicks {
			e.TaggedBy = ""
			e.TaggedAtTick = 0
		}
	}
}

// clearTagsOwnedBy drops every tag a player holds in the zone; called on
// the player's death and on zone transition.
func (w *World) clearTagsOwnedBy(z *Zone, owner EntityID) {
	for _, e := range z.Entities {
		if e.TaggedBy == owner {
			e.TaggedBy = ""
			e.TaggedAtTick = 0
		}
	}
}
