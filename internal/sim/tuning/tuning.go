package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	TickRateHz int `yaml:"tick_rate_hz"`

	Combat Combat `yaml:"combat"`
	Regen  Regen  `yaml:"regen"`
	Tags   Tags   `yaml:"tags"`
	Death  Death  `yaml:"death"`
	Spawns Spawns `yaml:"spawns"`

	SaveSweepTicks uint64 `yaml:"save_sweep_ticks"`
	EventRingSize  int    `yaml:"event_ring_size"`
	DiaryRingSize  int    `yaml:"diary_ring_size"`
}

type Combat struct {
	MinDamage     int     `yaml:"min_damage"`
	DefenseCoeff  float64 `yaml:"defense_coeff"`
	MeleeRange    float64 `yaml:"melee_range"`
	MoveSpeed     float64 `yaml:"move_speed"` // world units per tick
	ArriveRadius  float64 `yaml:"arrive_radius"`
	DurabilityHit int     `yaml:"durability_hit"` // durability lost per exchange
}

type Regen struct {
	EssencePerTick    int    `yaml:"essence_per_tick"`
	HealthPerTick     int    `yaml:"health_per_tick"`
	OutOfCombatTicks  uint64 `yaml:"out_of_combat_ticks"`
}

type Tags struct {
	TimeoutTicks uint64 `yaml:"timeout_ticks"`
}

type Death struct {
	XPPenaltyPct float64 `yaml:"xp_penalty_pct"` // fraction of current xp lost on player death
}

type Spawns struct {
	MobRespawnTicks  uint64 `yaml:"mob_respawn_ticks"`
	CorpseDecayTicks uint64 `yaml:"corpse_decay_ticks"`
	NodeRespawnTicks uint64 `yaml:"node_respawn_ticks"`
}

func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func Defaults() Tuning {
	return Tuning{
		TickRateHz: 1,
		Combat: Combat{
			MinDamage:     1,
			DefenseCoeff:  0.35,
			MeleeRange:    2.0,
			MoveSpeed:     4.0,
			ArriveRadius:  0.5,
			DurabilityHit: 1,
		},
		Regen: Regen{
			EssencePerTick:   2,
			HealthPerTick:    3,
			OutOfCombatTicks: 10,
		},
		Tags:  Tags{TimeoutTicks: 30},
		Death: Death{XPPenaltyPct: 0.05},
		Spawns: Spawns{
			MobRespawnTicks:  60,
			CorpseDecayTicks: 120,
			NodeRespawnTicks: 90,
		},
		SaveSweepTicks: 300,
		EventRingSize:  4096,
		DiaryRingSize:  256,
	}
}

func (t Tuning) Validate() error {
	if t.TickRateHz <= 0 {
		return fmt.Errorf("tick_rate_hz must be > 0")
	}
	if t.Combat.MinDamage < 0 {
		return fmt.Errorf("combat.min_damage must be >= 0")
	}
	if t.Combat.DefenseCoeff < 0 || t.Combat.DefenseCoeff >= 1 {
		return fmt.Errorf("combat.defense_coeff must be in [0,1)")
	}
	if t.Combat.MoveSpeed <= 0 {
		return fmt.Errorf("combat.move_speed must be > 0")
	}
	if t.Death.XPPenaltyPct < 0 || t.Death.XPPenaltyPct > 1 {
		return fmt.Errorf("death.xp_penalty_pct must be in [0,1]")
	}
	if t.Tags.TimeoutTicks == 0 {
		return fmt.Errorf("tags.timeout_ticks must be > 0")
	}
	return nil
}
