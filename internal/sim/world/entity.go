package world

import (
	"emberveil.gg/internal/sim/catalogs"
)

type EntityID string

type Kind uint8

const (
	KindPlayer Kind = iota + 1
	KindMob
	KindBoss
	KindCorpse
	KindResourceNode
	KindNPC
)

func (k Kind) String() string {
	switch k {
	case KindPlayer:
		return "player"
	case KindMob:
		return "mob"
	case KindBoss:
		return "boss"
	case KindCorpse:
		return "corpse"
	case KindResourceNode:
		return "resource_node"
	case KindNPC:
		return "npc"
	default:
		return "unknown"
	}
}

// Stats is the block of numbers combat reads. Effective values are
// base + equipment + active buff/debuff modifiers; they are recomputed
// eagerly on every contributing change and never read stale.
type Stats struct {
	AttackPower  int
	DefensePower int
	MaxHealth    int
	MaxEssence   int
}

func (s Stats) add(o Stats) Stats {
	s.AttackPower += o.AttackPower
	s.DefensePower += o.DefensePower
	s.MaxHealth += o.MaxHealth
	s.MaxEssence += o.MaxEssence
	return s
}

// statsFromMods converts a catalog stat_mods map into a Stats delta.
// Debuffs carry negative values in the catalog.
func statsFromMods(mods map[string]int) Stats {
	return Stats{
		AttackPower:  mods["attack"],
		DefensePower: mods["defense"],
		MaxHealth:    mods["max_health"],
		MaxEssence:   mods["max_essence"],
	}
}

// Equipment slots.
const (
	SlotWeapon  = "weapon"
	SlotArmor   = "armor"
	SlotTrinket = "trinket"
)

// ItemInstance is a concrete owned item in an equipment slot. A broken
// item (durability 0) stays equipped but stops contributing its bonus.
type ItemInstance struct {
	Item          string
	TokenID       uint64
	Bonus         Stats
	Durability    int
	MaxDurability int
}

// Entity is the single mutable unit of simulation state: a common
// envelope plus exactly one kind-specific payload.
type Entity struct {
	ID   EntityID
	Kind Kind
	Name string

	X, Y float64

	HP, MaxHP           int
	Essence, MaxEssence int

	Level int
	XP    uint64

	Base      Stats
	Effective Stats
	Equipment map[string]*ItemInstance

	Order     *Order
	Effects   []*ActiveEffect
	Cooldowns map[string]uint64

	// Mob-only kill-credit bookkeeping.
	TaggedBy     EntityID
	TaggedAtTick uint64

	LastCombatTick uint64

	Player *PlayerData
	Mob    *MobData
	Corpse *CorpseData
	Node   *NodeData
}

type PlayerData struct {
	Wallet     string
	Class      string
	AutoCombat bool
	Techniques []string
}

type MobData struct {
	TemplateID   string
	SpawnX       float64
	SpawnY       float64
	AggroRadius  float64
	XPReward     uint64
	LootTable    string
	Harvestables []catalogs.ItemCount
	Techniques   []string
}

type CorpseData struct {
	DecayAtTick uint64
	Harvest     []catalogs.ItemCount
}

type NodeData struct {
	Resource      string
	TokenID       uint64
	Charges       int
	MaxCharges    int
	RespawnAtTick uint64 // 0 while charged
}

// combatant reports whether the entity participates in combat exchanges
// (takes retaliation, regenerates, can be targeted by the director).
func (e *Entity) combatant() bool {
	switch e.Kind {
	case KindPlayer, KindMob, KindBoss:
		return true
	default:
		return false
	}
}

func (e *Entity) knownTechniques() []string {
	switch {
	case e.Player != nil:
		return e.Player.Techniques
	case e.Mob != nil:
		return e.Mob.Techniques
	default:
		return nil
	}
}

// recomputeEffective rebuilds effective stats from base, intact equipment,
// and active buff/debuff modifiers, then clamps vitals into range.
func (w *World) recomputeEffective(e *Entity) {
	eff := e.Base
	for _, item := range e.Equipment {
		if item != nil && item.Durability > 0 {
			eff = eff.add(item.Bonus)
		}
	}
	for _, ef := range e.Effects {
		if ef.Kind == EffectBuff || ef.Kind == EffectDebuff {
			eff = eff.add(ef.Mods)
		}
	}
	if eff.AttackPower < 0 {
		eff.AttackPower = 0
	}
	if eff.DefensePower < 0 {
		eff.DefensePower = 0
	}
	if eff.MaxHealth < 1 {
		eff.MaxHealth = 1
	}
	if eff.MaxEssence < 0 {
		eff.MaxEssence = 0
	}
	e.Effective = eff
	e.MaxHP = eff.MaxHealth
	e.MaxEssence = eff.MaxEssence
	if e.HP > e.MaxHP {
		e.HP = e.MaxHP
	}
	if e.HP < 0 {
		e.HP = 0
	}
	if e.Essence > e.MaxEssence {
		e.Essence = e.MaxEssence
	}
}

// recomputeBase derives a player's base stats from class growth and level.
func (w *World) recomputeBase(e *Entity) {
	if e.Player == nil {
		return
	}
	growth, ok := w.cats.Progression.Classes[e.Player.Class]
	if !ok {
		return
	}
	lvl := e.Level - 1
	e.Base = Stats{
		AttackPower:  growth.BaseAttack + growth.AttackPerLevel*lvl,
		DefensePower: growth.BaseDefense + growth.DefensePerLevel*lvl,
		MaxHealth:    growth.BaseHealth + growth.HealthPerLevel*lvl,
		MaxEssence:   growth.BaseEssence + growth.EssencePerLevel*lvl,
	}
}
