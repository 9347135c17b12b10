package main

// EnemyKind tags the closed set of enemy variants
type EnemyKind uint8

const (
	EnemySwarm  EnemyKind = 0
	EnemyFlying EnemyKind = 1
	EnemyElite  EnemyKind = 2
	EnemyBoss   EnemyKind = 3
)

func (k EnemyKind) String() string {
	switch k {
	case EnemySwarm:
		return "swarm"
	case EnemyFlying:
		return "flying"
	case EnemyElite:
		return "elite"
	case EnemyBoss:
		return "boss"
	}
	return "unknown"
}

// EnemyDef holds the base stats for an enemy kind
type EnemyDef struct {
	MaxHealth   float64
	Speed       float64 // units/s
	Damage      float64 // per landed attack
	AttackRange float64
	Cooldown    float64 // seconds between attacks
	Radius      float64 // bounding sphere for hit tests
}

var EnemyDefs = [4]EnemyDef{
	// Swarm: weak, fast, numerous
	{MaxHealth: 50, Speed: 3.5, Damage: 5, AttackRange: 1.5, Cooldown: 1.0, Radius: 0.6},
	// Flying: hovers above the player and dives
	{MaxHealth: 40, Speed: 4.0, Damage: 8, AttackRange: 2.0, Cooldown: 2.0, Radius: 0.7},
	// Elite: slow heavy hitter
	{MaxHealth: 300, Speed: 2.5, Damage: 20, AttackRange: 2.5, Cooldown: 1.5, Radius: 1.2},
	// Boss: health comes from Tuning.BossHealth
	{MaxHealth: 1500, Speed: 1.5, Damage: 25, AttackRange: 4.0, Cooldown: 2.5, Radius: 3.0},
}

// GetEnemyDef returns the definition for an enemy kind
func GetEnemyDef(kind EnemyKind) EnemyDef {
	if int(kind) >= len(EnemyDefs) {
		return EnemyDefs[EnemySwarm]
	}
	return EnemyDefs[kind]
}

const (
	moveDeadZone     = 0.1  // no movement closer than this to the target
	swarmJitter      = 0.05 // max per-tick positional jitter
	flyHoverHeight   = 4.0
	flyDiveAfter     = 3.0
	flyDiveRadius    = 5.0
	flyDiveDuration  = 1.5
	flyDiveSpeedMul  = 2.5
	eliteSpeedFactor = 0.8
	eliteRoarPeriod  = 8.0
	eliteLunge       = 0.5
	hitFlashDuration = 0.15
)
