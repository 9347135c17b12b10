package main

import (
	"log/slog"
	"math"
)

const (
	hazardZoneCount  = 3
	hazardZoneRadius = 4.0
	hazardOrbitSpeed = 0.3 // rad/s
)

// BossState is the boss-only part of an Enemy record
type BossState struct {
	ArenaCenter Vec3
	ArenaRadius float64

	phase        int
	stunnedUntil float64
	phase2At     float64
	phase3At     float64
	hazardAngle  float64
}

// attachBoss turns a Boss-kind enemy into a boss bound to an arena
func attachBoss(e *Enemy, center Vec3, radius float64) {
	e.boss = &BossState{
		ArenaCenter: center,
		ArenaRadius: radius,
		phase:       1,
		phase2At:    e.ctx.tuning.BossPhase2At,
		phase3At:    e.ctx.tuning.BossPhase3At,
	}
}

// checkPhase advances the phase from the health fraction. Phases never go back.
func (b *BossState) checkPhase(e *Enemy) {
	frac := e.Health.Fraction()
	target := 1
	switch {
	case frac <= b.phase3At:
		target = 3
	case frac <= b.phase2At:
		target = 2
	}
	for b.phase < target {
		b.phase++
		e.ctx.bus.Emit(Event{Kind: EvBossPhase, Source: e.ID, Index: b.phase, Pos: e.Position()})
		slog.Info("boss phase", "entity", e.ID, "phase", b.phase, "health", round2(e.Health.Current))
	}
}

// HazardCenters returns the current centers of the orbiting hazard zones
func (b *BossState) HazardCenters() []Vec3 {
	out := make([]Vec3, 0, hazardZoneCount)
	orbit := b.ArenaRadius / 2
	for i := 0; i < hazardZoneCount; i++ {
		a := b.hazardAngle + float64(i)*2*math.Pi/hazardZoneCount
		out = append(out, b.ArenaCenter.Add(V3(math.Cos(a)*orbit, 0, math.Sin(a)*orbit)))
	}
	return out
}

// Phase returns the boss phase (1..3), 0 for non-boss enemies
func (e *Enemy) Phase() int {
	if e.boss == nil {
		return 0
	}
	return e.boss.phase
}

// Stunned reports whether an attack lockout is in effect
func (e *Enemy) Stunned() bool {
	return e.boss != nil && e.ctx.now() < e.boss.stunnedUntil
}

// Stun locks out boss attacks and movement for duration seconds
func (e *Enemy) Stun(duration float64) {
	if e.boss == nil || !e.Alive() || duration <= 0 {
		return
	}
	until := e.ctx.now() + duration
	if until > e.boss.stunnedUntil {
		e.boss.stunnedUntil = until
	}
	e.ctx.bus.Emit(Event{Kind: EvBossStunned, Source: e.ID, Amount: duration, Pos: e.Position()})
}

// OnStun registers fn for stuns applied to this boss
func (e *Enemy) OnStun(fn func(duration float64)) {
	id := e.ID
	e.ctx.bus.Subscribe(EvBossStunned, func(ev Event) {
		if ev.Source == id {
			fn(ev.Amount)
		}
	})
}

// OnAttack registers fn for attacks this enemy lands
func (e *Enemy) OnAttack(fn func(damage float64)) {
	id := e.ID
	e.ctx.bus.Subscribe(EvEnemyAttack, func(ev Event) {
		if ev.Source == id {
			fn(ev.Amount)
		}
	})
}

// InHazard reports whether pos is inside a hazard zone. Zones exist only
// while a live boss is in phase 3.
func (e *Enemy) InHazard(pos Vec3) bool {
	if e.boss == nil || !e.Alive() || e.boss.phase < 3 {
		return false
	}
	for _, c := range e.boss.HazardCenters() {
		if CheckCollision(pos.X, pos.Z, 0, c.X, c.Z, hazardZoneRadius) {
			return true
		}
	}
	return false
}

func moveBoss(e *Enemy, dt float64, target Vec3) {
	b := e.boss
	if b == nil {
		moveGround(e, e.Speed, dt, target)
		return
	}
	b.hazardAngle = NormalizeAngle(b.hazardAngle + hazardOrbitSpeed*dt)
	if e.Stunned() {
		return
	}
	moveGround(e, e.Speed, dt, target)

	// stay inside the arena
	limit := b.ArenaRadius - e.body.Radius()
	if limit <= 0 {
		return
	}
	off := e.Position().Sub(b.ArenaCenter).Flat()
	if d := off.Len(); d > limit {
		p := b.ArenaCenter.Add(off.Scale(limit / d))
		p.Y = e.Position().Y
		e.body.SetPosition(p)
	}
}

func attackBoss(e *Enemy, dt float64, target Vec3) {
	if e.Stunned() {
		return
	}
	attackInRange(e, dt, target)
}

// BossView is the boss-specific part of a snapshot
type BossView struct {
	ID      EntityID `json:"id" msgpack:"id"`
	Phase   int      `json:"phase" msgpack:"phase"`
	Stunned bool     `json:"stunned" msgpack:"stunned"`
	HP      float64  `json:"hp" msgpack:"hp"`
	MaxHP   float64  `json:"mhp" msgpack:"mhp"`
	Hazards []Vec3   `json:"hz,omitempty" msgpack:"hz,omitempty"`
}

// BossView returns the boss snapshot, nil for non-boss enemies
func (e *Enemy) BossView() *BossView {
	if e.boss == nil {
		return nil
	}
	v := &BossView{
		ID:      e.ID,
		Phase:   e.boss.phase,
		Stunned: e.Stunned(),
		HP:      round2(e.Health.Current),
		MaxHP:   e.Health.Max,
	}
	if e.boss.phase >= 3 && e.Alive() {
		for _, c := range e.boss.HazardCenters() {
			v.Hazards = append(v.Hazards, c.round())
		}
	}
	return v
}
