package main

import (
	"log/slog"
	"math/rand/v2"
)

// EntityID identifies an entity within one level
type EntityID uint32

// simContext is the per-level environment entities act through
type simContext struct {
	bus    *EventBus
	sched  *Scheduler
	rng    *rand.Rand
	tuning Tuning
	nextID EntityID
}

func newSimContext(tuning Tuning, seed uint64) *simContext {
	return &simContext{
		bus:    NewEventBus(),
		sched:  NewScheduler(),
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		tuning: tuning,
	}
}

func (c *simContext) newID() EntityID {
	c.nextID++
	return c.nextID
}

func (c *simContext) now() float64 {
	return c.sched.Now()
}

// enemyState names the variant state machine's current state
type enemyState uint8

const (
	stateChasing enemyState = iota
	stateHovering
	stateDiving
	stateLumbering
	stateBossFight
)

func (s enemyState) String() string {
	switch s {
	case stateChasing:
		return "chasing"
	case stateHovering:
		return "hovering"
	case stateDiving:
		return "diving"
	case stateLumbering:
		return "lumbering"
	case stateBossFight:
		return "fighting"
	}
	return "unknown"
}

// enemyBehavior is one row of the per-kind dispatch table
type enemyBehavior struct {
	initial enemyState
	move    func(e *Enemy, dt float64, target Vec3)
	attack  func(e *Enemy, dt float64, target Vec3)
}

var enemyBehaviors [4]enemyBehavior

func init() {
	enemyBehaviors = [4]enemyBehavior{
		EnemySwarm:  {initial: stateChasing, move: moveSwarm, attack: attackInRange},
		EnemyFlying: {initial: stateHovering, move: moveFlying, attack: attackFlying},
		EnemyElite:  {initial: stateLumbering, move: moveElite, attack: attackElite},
		EnemyBoss:   {initial: stateBossFight, move: moveBoss, attack: attackBoss},
	}
}

// Enemy is the shared record for every enemy variant
type Enemy struct {
	ID        EntityID
	Kind      EnemyKind
	SpawnerID EntityID // 0 when not created by a spawner

	Health      *Health
	Speed       float64
	Damage      float64
	AttackRange float64
	Cooldown    float64

	body        *Body
	attackTimer float64 // seconds since last attack
	alive       bool
	dying       bool
	disposed    bool
	flashUntil  float64

	state      enemyState
	stateTimer float64
	roarTimer  float64
	boss       *BossState // set only for EnemyBoss

	ctx *simContext
}

// newEnemy creates an enemy of the given kind at pos
func newEnemy(ctx *simContext, kind EnemyKind, pos Vec3) *Enemy {
	def := GetEnemyDef(kind)
	maxHP := def.MaxHealth
	if kind == EnemyBoss && ctx.tuning.BossHealth > 0 {
		maxHP = ctx.tuning.BossHealth
	}
	e := &Enemy{
		ID:          ctx.newID(),
		Kind:        kind,
		Health:      NewHealth(maxHP),
		Speed:       def.Speed,
		Damage:      def.Damage,
		AttackRange: def.AttackRange,
		Cooldown:    def.Cooldown,
		body:        NewBody(pos, def.Radius),
		attackTimer: def.Cooldown,
		alive:       true,
		state:       enemyBehaviors[kind].initial,
		ctx:         ctx,
	}
	if kind == EnemyFlying {
		e.body.SetPosition(pos.Add(V3(0, flyHoverHeight, 0)))
	}
	return e
}

// TargetID returns the enemy id
func (e *Enemy) TargetID() EntityID {
	return e.ID
}

// Body returns the enemy hit sphere
func (e *Enemy) Body() *Body {
	return e.body
}

// Position returns the enemy body position
func (e *Enemy) Position() Vec3 {
	return e.body.Position()
}

// Alive reports whether the enemy is alive and not dying
func (e *Enemy) Alive() bool {
	return e.alive && !e.dying
}

// Dying reports whether the death window is running
func (e *Enemy) Dying() bool {
	return e.dying
}

// Disposed reports whether the body has been released
func (e *Enemy) Disposed() bool {
	return e.disposed
}

// Hittable is the weapon's eligibility test
func (e *Enemy) Hittable() bool {
	return e.Alive() && !e.body.Released()
}

// State returns the variant state machine's state name
func (e *Enemy) State() string {
	return e.state.String()
}

// Boss returns the boss state, or nil for ordinary enemies
func (e *Enemy) Boss() *BossState {
	return e.boss
}

// Update advances one tick against the player's position
func (e *Enemy) Update(dt float64, playerPos Vec3) {
	if !e.alive || e.dying {
		return
	}
	e.attackTimer += dt
	b := enemyBehaviors[e.Kind]
	b.move(e, dt, playerPos)
	b.attack(e, dt, playerPos)
}

// TakeDamage subtracts health and returns true if this hit killed the enemy
func (e *Enemy) TakeDamage(amount float64) bool {
	if !e.alive || e.dying || amount <= 0 {
		return false
	}
	e.flashUntil = e.ctx.now() + hitFlashDuration
	e.Health.TakeDamage(amount)
	e.ctx.bus.Emit(Event{Kind: EvEnemyDamaged, Source: e.ID, Amount: amount, Pos: e.Position()})
	if e.boss != nil {
		e.boss.checkPhase(e)
	}
	if e.Health.Current <= 0 {
		e.Die()
		return true
	}
	return false
}

// Die starts the disposal sequence. Repeated calls are ignored.
func (e *Enemy) Die() {
	if !e.alive || e.dying || e.disposed {
		return
	}
	if e.Health.Alive {
		e.Health.TakeDamage(e.Health.Current)
	}
	e.alive = false
	e.dying = true
	e.ctx.bus.Emit(Event{Kind: EvEnemyDied, Source: e.ID, Pos: e.Position(), Text: e.Kind.String()})
	slog.Debug("enemy died", "entity", e.ID, "kind", e.Kind.String())

	e.ctx.sched.After(e.ID, e.ctx.tuning.EnemyDisposeDelay, func() {
		if e.disposed {
			return
		}
		e.dying = false
		e.disposed = true
		e.body.Release()
	})
}

// Dispose releases the body immediately and cancels pending timers
func (e *Enemy) Dispose() {
	if e.disposed {
		return
	}
	e.ctx.sched.CancelOwner(e.ID)
	e.alive = false
	e.dying = false
	e.disposed = true
	e.body.Release()
}

// Flashing reports whether the damage highlight is active
func (e *Enemy) Flashing() bool {
	return e.ctx.now() < e.flashUntil
}

func (e *Enemy) emitAttack(target Vec3) {
	e.attackTimer = 0
	e.ctx.bus.Emit(Event{Kind: EvEnemyAttack, Source: e.ID, Amount: e.Damage, Pos: e.Position()})
}

// moveGround applies the shared ground movement policy
func moveGround(e *Enemy, speed, dt float64, target Vec3) {
	pos := e.body.Position()
	to := target.Sub(pos).Flat()
	dist := to.Len()
	e.body.FaceTowards(target)
	if dist < moveDeadZone {
		return
	}
	step := speed * dt
	if step > dist {
		step = dist
	}
	e.body.SetPosition(pos.Add(to.Scale(step / dist)))
}

// moveFree moves in full 3D toward a point, used by flyers
func moveFree(e *Enemy, speed, dt float64, point Vec3) {
	pos := e.body.Position()
	to := point.Sub(pos)
	dist := to.Len()
	e.body.FaceTowards(point)
	if dist < moveDeadZone {
		return
	}
	step := speed * dt
	if step > dist {
		step = dist
	}
	e.body.SetPosition(pos.Add(to.Scale(step / dist)))
}

func moveSwarm(e *Enemy, dt float64, target Vec3) {
	moveGround(e, e.Speed, dt, target)
	rng := e.ctx.rng
	jitter := V3((rng.Float64()*2-1)*swarmJitter, 0, (rng.Float64()*2-1)*swarmJitter)
	e.body.SetPosition(e.body.Position().Add(jitter))
}

// attackInRange attacks on cooldown whenever the target is within range
func attackInRange(e *Enemy, _ float64, target Vec3) {
	if e.attackTimer < e.Cooldown {
		return
	}
	if e.Position().HorizontalDistanceTo(target) <= e.AttackRange {
		e.emitAttack(target)
	}
}

func moveFlying(e *Enemy, dt float64, target Vec3) {
	e.stateTimer += dt
	switch e.state {
	case stateDiving:
		moveFree(e, e.Speed*flyDiveSpeedMul, dt, target)
		if e.stateTimer >= flyDiveDuration {
			e.state = stateHovering
			e.stateTimer = 0
		}
	default:
		moveFree(e, e.Speed, dt, target.Add(V3(0, flyHoverHeight, 0)))
		if e.stateTimer > flyDiveAfter && e.Position().HorizontalDistanceTo(target) < flyDiveRadius {
			e.state = stateDiving
			e.stateTimer = 0
		}
	}
}

func attackFlying(e *Enemy, _ float64, target Vec3) {
	if e.state != stateDiving || e.attackTimer < e.Cooldown {
		return
	}
	if e.Position().DistanceTo(target) <= e.AttackRange {
		e.emitAttack(target)
	}
}

func moveElite(e *Enemy, dt float64, target Vec3) {
	moveGround(e, e.Speed*eliteSpeedFactor, dt, target)
	e.roarTimer += dt
	if e.roarTimer >= eliteRoarPeriod {
		e.roarTimer -= eliteRoarPeriod
		e.ctx.bus.Emit(Event{Kind: EvEnemyRoar, Source: e.ID, Pos: e.Position()})
	}
}

func attackElite(e *Enemy, _ float64, target Vec3) {
	if e.attackTimer < e.Cooldown {
		return
	}
	pos := e.Position()
	if pos.HorizontalDistanceTo(target) > e.AttackRange {
		return
	}
	e.emitAttack(target)
	to := target.Sub(pos).Flat()
	if d := to.Len(); d > moveDeadZone {
		lunge := eliteLunge
		if lunge > d-moveDeadZone {
			lunge = d - moveDeadZone
		}
		e.body.SetPosition(pos.Add(to.Scale(lunge / d)))
	}
}

// EnemyState is the rendering snapshot of an enemy
type EnemyState struct {
	ID    EntityID `json:"id" msgpack:"id"`
	Kind  string   `json:"kind" msgpack:"kind"`
	Pos   Vec3     `json:"pos" msgpack:"pos"`
	Yaw   float64  `json:"yaw" msgpack:"yaw"`
	HP    float64  `json:"hp" msgpack:"hp"`
	MaxHP float64  `json:"mhp" msgpack:"mhp"`
	Alive bool     `json:"a" msgpack:"a"`
	Dying bool     `json:"d,omitempty" msgpack:"d,omitempty"`
	Flash bool     `json:"f,omitempty" msgpack:"f,omitempty"`
	State string   `json:"st" msgpack:"st"`
}

// ToState converts to protocol state
func (e *Enemy) ToState() EnemyState {
	return EnemyState{
		ID:    e.ID,
		Kind:  e.Kind.String(),
		Pos:   e.Position().round(),
		Yaw:   round2(e.body.Yaw()),
		HP:    round2(e.Health.Current),
		MaxHP: e.Health.Max,
		Alive: e.alive,
		Dying: e.dying,
		Flash: e.Flashing(),
		State: e.state.String(),
	}
}
