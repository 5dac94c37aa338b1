package world

import (
	"emberveil.gg/internal/protocol"
)

// buildSnapshot flattens a zone into its wire form. Cooldown maps are
// copied (the entity's map keeps mutating) and display names are resolved
// through the external lookup at serialization time.
func (w *World) buildSnapshot(z *Zone, tick uint64) protocol.SnapshotMsg {
	msg := protocol.SnapshotMsg{
		Type:            protocol.TypeSnapshot,
		ProtocolVersion: protocol.Version,
		ZoneID:          z.ID,
		Tick:            tick,
		Entities:        make([]protocol.EntityRecord, 0, len(z.Entities)),
	}
	for _, id := range sortedIDs(z) {
		e := z.Entities[id]
		rec := protocol.EntityRecord{
			ID:         string(e.ID),
			Kind:       e.Kind.String(),
			Name:       e.Name,
			X:          e.X,
			Y:          e.Y,
			HP:         e.HP,
			MaxHP:      e.MaxHP,
			Essence:    e.Essence,
			MaxEssence: e.MaxEssence,
			Level:      e.Level,
			Attack:     e.Effective.AttackPower,
			Defense:    e.Effective.DefensePower,
			TaggedBy:   string(e.TaggedBy),
		}
		if e.Player != nil {
			rec.DisplayName = w.names.DisplayName(e.Player.Wallet, e.Name)
		}
		if len(e.Cooldowns) > 0 {
			rec.Cooldowns = make(map[string]uint64, len(e.Cooldowns))
			for tid, until := range e.Cooldowns {
				rec.Cooldowns[tid] = until
			}
		}
		if e.Order != nil {
			rec.OrderKind = e.Order.Kind.String()
		}
		msg.Entities = append(msg.Entities, rec)
	}
	return msg
}

// SnapshotZone builds a zone snapshot outside the tick loop. Only safe
// when Run is not driving the world; used by tests and tooling.
func (w *World) SnapshotZone(zoneID string) (protocol.SnapshotMsg, bool) {
	z, ok := w.zones[zoneID]
	if !ok {
		return protocol.SnapshotMsg{}, false
	}
	return w.buildSnapshot(z, w.tick.Load()), true
}
