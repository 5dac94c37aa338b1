package world

import (
	"math/rand"

	"emberveil.gg/internal/protocol"
	"emberveil.gg/internal/sim/catalogs"
)

// Collaborator interfaces. Everything behind these is external to the
// simulation core: calls must not block the tick path, and failures are
// the collaborator's to log — the tick loop never sees them.

// LootRoller resolves a mob name to its drops. Pure query.
type LootRoller interface {
	RollLoot(mobTemplateID string) LootResult
}

type LootResult struct {
	Gold  int
	Items []catalogs.ItemCount
}

// Minter submits asset grants to the chain gateway, fire-and-forget.
type Minter interface {
	MintGold(wallet string, amount int)
	MintItem(wallet string, tokenID uint64, qty int)
}

// CharacterSaver persists a character snapshot, best-effort and async.
type CharacterSaver interface {
	SaveCharacter(state protocol.CharacterState)
}

// NameResolver produces derived display names (party/guild decorations)
// at serialization time. Never stored on the entity.
type NameResolver interface {
	DisplayName(wallet, name string) string
}

// QuestSink receives kill events for quest progress tracking.
type QuestSink interface {
	OnKill(playerName, mobTemplateID string)
}

type nopMinter struct{}

func (nopMinter) MintGold(string, int)            {}
func (nopMinter) MintItem(string, uint64, int)    {}

type nopSaver struct{}

func (nopSaver) SaveCharacter(protocol.CharacterState) {}

type nopNames struct{}

func (nopNames) DisplayName(_, name string) string { return name }

type nopQuests struct{}

func (nopQuests) OnKill(string, string) {}

// CatalogLoot is the default loot roller: gold uniform in [min,max], each
// drop rolled independently against its chance. Only ever called from the
// scheduler goroutine, so sharing the world rng is safe.
type CatalogLoot struct {
	Tables catalogs.LootCatalog
	Mobs   catalogs.MobCatalog
	RNG    *rand.Rand
}

func (c *CatalogLoot) RollLoot(mobTemplateID string) LootResult {
	var res LootResult
	mob, ok := c.Mobs.ByID[mobTemplateID]
	if !ok || mob.LootTable == "" {
		return res
	}
	table, ok := c.Tables.ByID[mob.LootTable]
	if !ok {
		return res
	}
	if table.GoldMax > 0 {
		span := table.GoldMax - table.GoldMin
		res.Gold = table.GoldMin
		if span > 0 {
			res.Gold += c.RNG.Intn(span + 1)
		}
	}
	for _, d := range table.Drops {
		if c.RNG.Float64() >= d.Chance {
			continue
		}
		qty := d.QtyMin
		if d.QtyMax > d.QtyMin {
			qty += c.RNG.Intn(d.QtyMax - d.QtyMin + 1)
		}
		if qty <= 0 {
			continue
		}
		res.Items = append(res.Items, catalogs.ItemCount{Item: d.Item, TokenID: d.TokenID, Count: qty})
	}
	return res
}
