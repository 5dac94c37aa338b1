package world

import (
	"fmt"

	"emberveil.gg/internal/persistence/eventlog"
	"emberveil.gg/internal/sim/catalogs"
)

// regenerate tops up essence every tick and, for combatants that have
// been out of combat long enough, health.
func (w *World) regenerate(z *Zone, tick uint64) {
	for _, e := range z.Entities {
		if !e.combatant() {
			continue
		}
		if e.MaxEssence > 0 && e.Essence < e.MaxEssence {
			e.Essence += w.tune.Regen.EssencePerTick
			if e.Essence > e.MaxEssence {
				e.Essence = e.MaxEssence
			}
		}
		if e.HP > 0 && e.HP < e.MaxHP && tick-e.LastCombatTick > w.tune.Regen.OutOfCombatTicks {
			e.HP += w.tune.Regen.HealthPerTick
			if e.HP > e.MaxHP {
				e.HP = e.MaxHP
			}
		}
	}
}

// spawnMob instantiates a mob template into the zone.
func (w *World) spawnMob(z *Zone, templateID string, x, y float64, tick uint64) *Entity {
	def, ok := w.cats.Mobs.ByID[templateID]
	if !ok {
		if w.logger != nil {
			w.logger.Printf("zone %s: unknown mob template %s", z.ID, templateID)
		}
		return nil
	}
	kind := KindMob
	if def.Boss {
		kind = KindBoss
	}
	e := &Entity{
		ID:    w.nextEntityID(),
		Kind:  kind,
		Name:  def.Name,
		X:     x,
		Y:     y,
		Level: def.Level,
		Base: Stats{
			AttackPower:  def.AttackPower,
			DefensePower: def.DefensePower,
			MaxHealth:    def.MaxHealth,
			MaxEssence:   def.MaxEssence,
		},
		Equipment: make(map[string]*ItemInstance),
		Cooldowns: make(map[string]uint64),
		Mob: &MobData{
			TemplateID:   def.ID,
			SpawnX:       x,
			SpawnY:       y,
			AggroRadius:  def.AggroRadius,
			XPReward:     def.XPReward,
			LootTable:    def.LootTable,
			Harvestables: def.Harvestables,
			Techniques:   def.Techniques,
		},
	}
	w.recomputeEffective(e)
	e.HP = e.MaxHP
	e.Essence = e.MaxEssence
	z.set(e)
	w.logEvent(eventlog.Event{Tick: tick, Zone: z.ID, Kind: eventlog.KindSpawn, ActorID: string(e.ID), Detail: def.ID})
	return e
}

// respawnMobs brings due spawn records back into the zone.
func (w *World) respawnMobs(z *Zone, tick uint64) {
	if len(z.respawns) == 0 {
		return
	}
	pending := z.respawns[:0]
	for _, r := range z.respawns {
		if r.AtTick > tick {
			pending = append(pending, r)
			continue
		}
		w.spawnMob(z, r.TemplateID, r.X, r.Y, tick)
	}
	z.respawns = pending
}

// decayCorpses removes corpses past their decay tick.
func (w *World) decayCorpses(z *Zone, tick uint64) {
	for _, id := range sortedIDs(z) {
		e := z.Entities[id]
		if e == nil || e.Corpse == nil {
			continue
		}
		if e.Corpse.DecayAtTick <= tick {
			z.delete(e.ID)
			w.logEvent(eventlog.Event{Tick: tick, Zone: z.ID, Kind: eventlog.KindDespawn, ActorID: string(e.ID), Detail: "corpse"})
		}
	}
}

// respawnNodes recharges dormant resource nodes whose timer has elapsed.
func (w *World) respawnNodes(z *Zone, tick uint64) {
	for _, e := range z.Entities {
		n := e.Node
		if n == nil || n.RespawnAtTick == 0 || n.RespawnAtTick > tick {
			continue
		}
		n.Charges = n.MaxCharges
		n.RespawnAtTick = 0
		w.logEvent(eventlog.Event{Tick: tick, Zone: z.ID, Kind: eventlog.KindSpawn, ActorID: string(e.ID), Detail: n.Resource})
	}
}

// HarvestNode consumes one charge from a resource node on behalf of a
// player, minting the node's resource. The last charge puts the node
// dormant until its respawn timer elapses. Must be invoked from the tick
// context (profession subsystems call in through the order pipeline).
func (w *World) HarvestNode(z *Zone, nodeID EntityID, harvester *Entity, tick uint64) error {
	node := z.get(nodeID)
	if node == nil || node.Node == nil {
		return fmt.Errorf("node %s not found", nodeID)
	}
	n := node.Node
	if n.Charges <= 0 {
		return fmt.Errorf("node %s is depleted", nodeID)
	}
	n.Charges--
	if n.Charges == 0 {
		n.RespawnAtTick = tick + w.tune.Spawns.NodeRespawnTicks
	}
	if harvester != nil && harvester.Player != nil {
		w.minter.MintItem(harvester.Player.Wallet, n.TokenID, 1)
	}
	return nil
}

// HarvestCorpse hands a corpse's harvestables to a player and removes the
// corpse. Must be invoked from the tick context.
func (w *World) HarvestCorpse(z *Zone, corpseID EntityID, harvester *Entity, tick uint64) ([]catalogs.ItemCount, error) {
	corpse := z.get(corpseID)
	if corpse == nil || corpse.Corpse == nil {
		return nil, fmt.Errorf("corpse %s not found", corpseID)
	}
	harvest := corpse.Corpse.Harvest
	if harvester != nil && harvester.Player != nil {
		for _, it := range harvest {
			w.minter.MintItem(harvester.Player.Wallet, it.TokenID, it.Count)
		}
	}
	z.delete(corpseID)
	w.logEvent(eventlog.Event{Tick: tick, Zone: z.ID, Kind: eventlog.KindDespawn, ActorID: string(corpseID), Detail: "harvested"})
	return harvest, nil
}
