package main

import "log/slog"

// SpawnerKind tags the destructible structure variants
type SpawnerKind uint8

const (
	SpawnerHive   SpawnerKind = 0
	SpawnerAnchor SpawnerKind = 1
	SpawnerBoss   SpawnerKind = 2
)

func (k SpawnerKind) String() string {
	switch k {
	case SpawnerHive:
		return "hive"
	case SpawnerAnchor:
		return "anchor"
	case SpawnerBoss:
		return "boss_spawner"
	}
	return "unknown"
}

const (
	spawnerRadius    = 2.0
	hiveSpawnOffset  = 2.0
	bossSpawnerMaxHP = 1
)

// spawnFunc creates an enemy on behalf of a spawner and registers it with
// the level. It returns nil if the level refused.
type spawnFunc func(kind EnemyKind, pos Vec3, owner EntityID) *Enemy

// Spawner is a destructible structure. Hives produce enemies on a timer,
// anchors only exist to be destroyed, the boss spawner owns the boss.
type Spawner struct {
	ID     EntityID
	Kind   SpawnerKind
	Health *Health

	body       *Body
	active     bool
	destroyed  bool
	disposed   bool
	flashUntil float64

	// hive
	interval    float64
	timer       float64
	cap         int
	swarmChance float64
	spawned     []*Enemy
	spawn       spawnFunc

	// boss spawner
	ArenaCenter Vec3
	ArenaRadius float64
	boss        *Enemy

	ctx *simContext
}

func newSpawner(ctx *simContext, kind SpawnerKind, pos Vec3, maxHP float64) *Spawner {
	return &Spawner{
		ID:     ctx.newID(),
		Kind:   kind,
		Health: NewHealth(maxHP),
		body:   NewBody(pos, spawnerRadius),
		active: true,
		ctx:    ctx,
	}
}

// NewHive creates a hive that reports spawned enemies through fn
func newHive(ctx *simContext, pos Vec3, fn spawnFunc) *Spawner {
	t := ctx.tuning
	s := newSpawner(ctx, SpawnerHive, pos, t.HiveHealth)
	s.interval = t.HiveSpawnInterval
	s.cap = t.HiveCap
	s.swarmChance = t.HiveSwarmChance
	s.spawn = fn
	return s
}

func newAnchor(ctx *simContext, pos Vec3) *Spawner {
	return newSpawner(ctx, SpawnerAnchor, pos, ctx.tuning.AnchorHealth)
}

// newBossSpawner creates the arena owner. The boss is created by SpawnBoss.
func newBossSpawner(ctx *simContext, center Vec3, radius float64, fn spawnFunc) *Spawner {
	s := newSpawner(ctx, SpawnerBoss, center, bossSpawnerMaxHP)
	s.ArenaCenter = center
	s.ArenaRadius = radius
	s.spawn = fn
	return s
}

// TargetID returns the spawner id
func (s *Spawner) TargetID() EntityID {
	return s.ID
}

// Body returns the spawner hit sphere
func (s *Spawner) Body() *Body {
	return s.body
}

// Position returns the spawner position
func (s *Spawner) Position() Vec3 {
	return s.body.Position()
}

// Active reports whether the spawner is neither destroyed nor disposed
func (s *Spawner) Active() bool {
	return s.active
}

// Destroyed reports whether the spawner was destroyed
func (s *Spawner) Destroyed() bool {
	return s.destroyed
}

// Disposed reports whether the spawner body was released
func (s *Spawner) Disposed() bool {
	return s.disposed
}

// Hittable is false for the boss spawner; the boss itself is the target
func (s *Spawner) Hittable() bool {
	return s.active && s.Kind != SpawnerBoss && !s.body.Released()
}

// Boss returns the owned boss, nil until SpawnBoss
func (s *Spawner) Boss() *Enemy {
	return s.boss
}

// Update ticks the hive spawn timer
func (s *Spawner) Update(dt float64) {
	if !s.active || s.Kind != SpawnerHive || s.interval <= 0 {
		return
	}
	s.timer += dt
	for s.timer >= s.interval {
		s.timer -= s.interval
		s.Spawn()
	}
}

// LiveSpawned counts enemies created by this hive that are still alive
func (s *Spawner) LiveSpawned() int {
	live := s.spawned[:0]
	for _, e := range s.spawned {
		if e.Alive() {
			live = append(live, e)
		}
	}
	s.spawned = live
	return len(live)
}

// Spawn creates one Swarm or Flying enemy near the hive. No-op when the
// spawner is inactive, not a hive, or at its cap.
func (s *Spawner) Spawn() *Enemy {
	if !s.active || s.Kind != SpawnerHive || s.spawn == nil {
		return nil
	}
	if s.LiveSpawned() >= s.cap {
		return nil
	}
	rng := s.ctx.rng
	kind := EnemyFlying
	if rng.Float64() < s.swarmChance {
		kind = EnemySwarm
	}
	offset := V3((rng.Float64()*2-1)*hiveSpawnOffset, 0, (rng.Float64()*2-1)*hiveSpawnOffset)
	pos := s.Position().Flat().Add(offset)

	e := s.spawn(kind, pos, s.ID)
	if e == nil {
		return nil
	}
	s.spawned = append(s.spawned, e)
	return e
}

// SpawnBoss creates the boss at the arena center. Only the first call has effect.
func (s *Spawner) SpawnBoss() *Enemy {
	if s.Kind != SpawnerBoss || s.boss != nil || !s.active || s.spawn == nil {
		return s.boss
	}
	e := s.spawn(EnemyBoss, s.ArenaCenter, s.ID)
	if e == nil {
		return nil
	}
	attachBoss(e, s.ArenaCenter, s.ArenaRadius)
	s.boss = e
	return e
}

// TakeDamage applies damage while active. Returns true if this hit destroyed it.
func (s *Spawner) TakeDamage(amount float64) bool {
	if !s.active || amount <= 0 {
		return false
	}
	s.flashUntil = s.ctx.now() + hitFlashDuration
	s.Health.TakeDamage(amount)
	s.ctx.bus.Emit(Event{Kind: EvSpawnerDamaged, Source: s.ID, Amount: amount, Pos: s.Position(), Text: s.Kind.String()})
	if s.Health.Current <= 0 {
		s.Destroy()
		return true
	}
	return false
}

// Destroy transitions active to destroyed and schedules disposal.
// Repeated calls are ignored.
func (s *Spawner) Destroy() {
	if !s.active || s.destroyed {
		return
	}
	s.active = false
	s.destroyed = true
	s.ctx.bus.Emit(Event{Kind: EvSpawnerDestroyed, Source: s.ID, Pos: s.Position(), Text: s.Kind.String()})
	slog.Debug("spawner destroyed", "entity", s.ID, "kind", s.Kind.String())

	s.ctx.sched.After(s.ID, s.ctx.tuning.SpawnerDisposeDelay, func() {
		if s.disposed {
			return
		}
		s.release()
		s.ctx.bus.Emit(Event{Kind: EvSpawnerDisposed, Source: s.ID, Pos: s.Position(), Text: s.Kind.String()})
	})
}

// Dispose releases the spawner immediately, with its boss if any
func (s *Spawner) Dispose() {
	if s.disposed {
		return
	}
	s.ctx.sched.CancelOwner(s.ID)
	s.active = false
	s.release()
}

func (s *Spawner) release() {
	s.disposed = true
	s.body.Release()
	if s.boss != nil {
		s.boss.Dispose()
	}
}

// Flashing reports whether the damage highlight is showing
func (s *Spawner) Flashing() bool {
	return s.ctx.now() < s.flashUntil
}

// SpawnerState is the rendering snapshot of a spawner
type SpawnerState struct {
	ID        EntityID `json:"id" msgpack:"id"`
	Kind      string   `json:"kind" msgpack:"kind"`
	Pos       Vec3     `json:"pos" msgpack:"pos"`
	HP        float64  `json:"hp" msgpack:"hp"`
	MaxHP     float64  `json:"mhp" msgpack:"mhp"`
	Destroyed bool     `json:"x" msgpack:"x"`
	Flash     bool     `json:"f,omitempty" msgpack:"f,omitempty"`
}

// ToState converts to protocol state
func (s *Spawner) ToState() SpawnerState {
	return SpawnerState{
		ID:        s.ID,
		Kind:      s.Kind.String(),
		Pos:       s.Position().round(),
		HP:        round2(s.Health.Current),
		MaxHP:     s.Health.Max,
		Destroyed: s.destroyed,
		Flash:     s.Flashing(),
	}
}
