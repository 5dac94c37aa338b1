package protocol

// HELLO (client -> server). Observers omit wallet/class and only receive
// snapshots; players are joined into the default zone.
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Name            string `json:"name,omitempty"`
	Wallet          string `json:"wallet,omitempty"`
	Class           string `json:"class,omitempty"`
	Zone            string `json:"zone,omitempty"`
	ObserveOnly     bool   `json:"observe_only,omitempty"`
	MaxQueue        int    `json:"max_queue,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	EntityID        string         `json:"entity_id,omitempty"`
	ZoneID          string         `json:"zone_id"`
	WorldParams     WorldParams    `json:"world_params"`
	Catalogs        CatalogDigests `json:"catalogs"`
}

type WorldParams struct {
	TickRateHz int     `json:"tick_rate_hz"`
	ZoneWidth  float64 `json:"zone_width"`
	ZoneHeight float64 `json:"zone_height"`
	MinLevel   int     `json:"min_level"`
}

type CatalogDigests struct {
	Mobs        string `json:"mobs_digest"`
	Techniques  string `json:"techniques_digest"`
	Loot        string `json:"loot_digest"`
	Progression string `json:"progression_digest"`
}

// ORDER (client -> server): replaces the entity's current order.
type OrderMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocol_version"`
	Kind            string  `json:"kind"` // "move" | "attack" | "technique" | "cancel"
	X               float64 `json:"x,omitempty"`
	Y               float64 `json:"y,omitempty"`
	TargetID        string  `json:"target_id,omitempty"`
	Technique       string  `json:"technique,omitempty"`
}

// SNAPSHOT (server -> client): the per-tick read-only view of one zone.
type SnapshotMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	ZoneID          string         `json:"zone_id"`
	Tick            uint64         `json:"tick"`
	Entities        []EntityRecord `json:"entities"`
}

// EntityRecord is the flat serialized form of one entity. Derived display
// fields are resolved at serialization time, never stored on the entity.
type EntityRecord struct {
	ID          string            `json:"id"`
	Kind        string            `json:"kind"`
	Name        string            `json:"name"`
	DisplayName string            `json:"display_name,omitempty"`
	X           float64           `json:"x"`
	Y           float64           `json:"y"`
	HP          int               `json:"hp"`
	MaxHP       int               `json:"max_hp"`
	Essence     int               `json:"essence,omitempty"`
	MaxEssence  int               `json:"max_essence,omitempty"`
	Level       int               `json:"level,omitempty"`
	Attack      int               `json:"attack,omitempty"`
	Defense     int               `json:"defense,omitempty"`
	Cooldowns   map[string]uint64 `json:"cooldowns,omitempty"`
	TaggedBy    string            `json:"tagged_by,omitempty"`
	OrderKind   string            `json:"order_kind,omitempty"`
}

// CharacterState is the serializable snapshot handed to the persistence
// collaborator on level-up, death, the periodic sweep, and shutdown.
type CharacterState struct {
	Name      string            `json:"name"`
	Wallet    string            `json:"wallet"`
	Class     string            `json:"class"`
	ZoneID    string            `json:"zone_id"`
	X         float64           `json:"x"`
	Y         float64           `json:"y"`
	Level     int               `json:"level"`
	XP        uint64            `json:"xp"`
	HP        int               `json:"hp"`
	MaxHP     int               `json:"max_hp"`
	Essence   int               `json:"essence"`
	Cooldowns map[string]uint64 `json:"cooldowns,omitempty"`
}

// ERROR (server -> client)
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message,omitempty"`
}
