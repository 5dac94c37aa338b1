package world

import (
	"fmt"
	"sort"

	"emberveil.gg/internal/sim/zonecfg"
)

// Zone owns all entities physically located in it. Zones are created
// lazily on first access and never destroyed during normal operation.
// Entity mutation is confined to the scheduler's tick pass; the store
// itself validates nothing beyond existence.
type Zone struct {
	ID   string
	Spec zonecfg.ZoneSpec
	Tick uint64

	Entities map[EntityID]*Entity

	respawns []respawnRecord
}

type respawnRecord struct {
	TemplateID string
	X, Y       float64
	AtTick     uint64
}

// getOrCreateZone returns the zone for id, creating and populating it from
// the topology config on first access.
func (w *World) getOrCreateZone(id string) (*Zone, error) {
	if z, ok := w.zones[id]; ok {
		return z, nil
	}
	spec, ok := w.topo.ZoneByID(id)
	if !ok {
		return nil, fmt.Errorf("unknown zone %s", id)
	}
	z := &Zone{
		ID:       id,
		Spec:     spec,
		Tick:     w.tick.Load(),
		Entities: make(map[EntityID]*Entity),
	}
	w.zones[id] = z
	w.zoneIDs = append(w.zoneIDs, id)
	sort.Strings(w.zoneIDs)
	w.populateZone(z)
	if w.logger != nil {
		w.logger.Printf("zone %s created (%d entities)", id, len(z.Entities))
	}
	return z, nil
}

func (z *Zone) get(id EntityID) *Entity {
	return z.Entities[id]
}

func (z *Zone) set(e *Entity) {
	z.Entities[e.ID] = e
}

func (z *Zone) delete(id EntityID) {
	delete(z.Entities, id)
}

// sortedIDs returns the zone's entity ids in deterministic order; every
// per-tick sweep iterates in this order so reruns of a tick are stable.
func sortedIDs(z *Zone) []EntityID {
	ids := make([]EntityID, 0, len(z.Entities))
	for id := range z.Entities {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// populateZone seeds a fresh zone with its configured mobs and nodes.
func (w *World) populateZone(z *Zone) {
	tick := w.tick.Load()
	for _, ms := range z.Spec.MobSpawns {
		for i := 0; i < ms.Count; i++ {
			// Deterministic lattice around the spawn anchor.
			ox := float64(i%4) * ms.Spread
			oy := float64(i/4) * ms.Spread
			w.spawnMob(z, ms.Mob, ms.X+ox, ms.Y+oy, tick)
		}
	}
	for _, ns := range z.Spec.Nodes {
		id := w.nextEntityID()
		z.set(&Entity{
			ID:   id,
			Kind: KindResourceNode,
			Name: ns.Resource,
			X:    ns.X,
			Y:    ns.Y,
			HP:   1,
			MaxHP: 1,
			Node: &NodeData{
				Resource:   ns.Resource,
				TokenID:    ns.TokenID,
				Charges:    ns.Charges,
				MaxCharges: ns.Charges,
			},
		})
	}
}
