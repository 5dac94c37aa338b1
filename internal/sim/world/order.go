package world

type OrderKind uint8

const (
	OrderMove OrderKind = iota + 1
	OrderAttack
	OrderTechnique
)

func (k OrderKind) String() string {
	switch k {
	case OrderMove:
		return "move"
	case OrderAttack:
		return "attack"
	case OrderTechnique:
		return "technique"
	default:
		return "unknown"
	}
}

// Order is an entity's current intent. At most one is active; it persists
// until completion, failure (target gone), or supersession by a new order.
type Order struct {
	Kind      OrderKind
	X, Y      float64  // move destination
	TargetID  EntityID // attack / technique target
	Technique string
}
