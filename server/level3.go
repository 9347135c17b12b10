package main

import (
	"log/slog"
	"math"
)

// bossLevel is level 3: the boss fight in the arena under the tower
type bossLevel struct {
	spawner *Spawner
	boss    *Enemy
	runes   []*RunePillar

	stunT      float64
	window     bool
	windowRune int
	windowID   TimerID
	inHazard   bool
}

const (
	arenaRadius     = 25.0
	runePillarRange = 18.0
	runeRadius      = 1.5
)

var (
	arenaCenter   = Vec3{}
	level3Start   = Vec3{Y: 1.6, Z: -20}
	runePositions = []Vec3{
		{X: runePillarRange}, {X: -runePillarRange}, {Z: runePillarRange}, {Z: -runePillarRange},
	}
	level3Notes = []fragmentSeed{
		{"Last entry: the runes answer to gunfire, not prayer.", Vec3{X: 12, Z: -12}},
	}
)

// RunePillar is a fixed prop the player shoots during a stun window.
// Every pillar stops bullets; only the highlighted one matters.
type RunePillar struct {
	ID     EntityID
	Index  int
	body   *Body
	active bool
	onHit  func(index int)
}

// TargetID returns the pillar's entity id
func (r *RunePillar) TargetID() EntityID {
	return r.ID
}

// Body returns the pillar's hit sphere
func (r *RunePillar) Body() *Body {
	return r.body
}

// Hittable reports whether the pillar still stops shots
func (r *RunePillar) Hittable() bool {
	return !r.body.Released()
}

// Active reports whether this is the highlighted pillar
func (r *RunePillar) Active() bool {
	return r.active
}

// TakeDamage resolves the stun window when the highlighted pillar is shot
func (r *RunePillar) TakeDamage(amount float64) bool {
	if !r.active || amount <= 0 {
		return false
	}
	r.active = false
	if r.onHit != nil {
		r.onHit(r.Index)
	}
	return true
}

// RuneState is the rendering snapshot of a pillar
type RuneState struct {
	ID     EntityID `json:"id" msgpack:"id"`
	Pos    Vec3     `json:"pos" msgpack:"pos"`
	Active bool     `json:"on" msgpack:"on"`
}

func newBossLevel() levelRules {
	return &bossLevel{windowRune: -1}
}

func (b *bossLevel) name() string {
	return "boss"
}

func (b *bossLevel) start() Vec3 {
	return level3Start
}

func (b *bossLevel) setup(l *Level) {
	b.spawner = l.addSpawner(newBossSpawner(l.ctx, arenaCenter, arenaRadius, l.spawnEnemy))
	b.boss = b.spawner.SpawnBoss()

	for i, pos := range runePositions {
		b.runes = append(b.runes, &RunePillar{
			ID:    l.ctx.newID(),
			Index: i,
			body:  NewBody(pos, runeRadius),
			onHit: func(idx int) { b.resolveWindow(l, idx) },
		})
	}
	for _, f := range level3Notes {
		l.addFragment(f.text, f.pos)
	}
	if b.boss == nil {
		return
	}
	bossID := b.boss.ID
	l.ctx.bus.Subscribe(EvEnemyDied, func(ev Event) {
		if ev.Source == bossID {
			b.cancelWindow(l)
		}
	})
	// stun windows belong to phase 1
	l.ctx.bus.Subscribe(EvBossPhase, func(ev Event) {
		if ev.Source == bossID && ev.Index > 1 {
			b.cancelWindow(l)
		}
	})
}

func (b *bossLevel) targets() []Target {
	out := make([]Target, 0, len(b.runes))
	for _, r := range b.runes {
		out = append(out, r)
	}
	return out
}

func (b *bossLevel) update(l *Level, dt float64) {
	if b.boss == nil || !b.boss.Alive() {
		return
	}
	t := l.ctx.tuning
	switch b.boss.Phase() {
	case 1:
		b.stunT += dt
		if b.stunT >= t.StunPeriod && !b.window {
			b.stunT = 0
			b.openWindow(l)
		}
	case 2:
		if l.ctx.rng.Float64() < t.MinionChance && l.LiveEnemies(false) < t.MinionCap {
			l.spawnEnemy(EnemySwarm, b.randomArenaPoint(l), b.spawner.ID)
		}
	case 3:
		inside := b.boss.InHazard(l.player.Pos)
		if inside {
			// damage feedback is announced on entry, not on every DOT tick
			l.damagePlayer(t.HazardDamagePerSec*dt, b.boss.ID, b.inHazard)
			if !b.inHazard {
				l.ctx.bus.Emit(Event{Kind: EvHazardTick, Source: b.boss.ID, Amount: t.HazardDamagePerSec, Pos: l.player.Pos})
			}
		}
		b.inHazard = inside
	}
}

func (b *bossLevel) randomArenaPoint(l *Level) Vec3 {
	rng := l.ctx.rng
	ang := rng.Float64() * 2 * math.Pi
	r := arenaRadius * math.Sqrt(rng.Float64())
	return arenaCenter.Add(V3(math.Cos(ang)*r, 0, math.Sin(ang)*r))
}

// openWindow highlights one pillar and starts the failure countdown
func (b *bossLevel) openWindow(l *Level) {
	if b.window {
		return
	}
	idx := l.ctx.rng.IntN(len(b.runes))
	b.window = true
	b.windowRune = idx
	b.runes[idx].active = true
	b.windowID = l.ctx.sched.After(0, l.ctx.tuning.StunWindow, func() {
		b.failWindow(l)
	})
	l.ctx.bus.Emit(Event{Kind: EvStunWindowOpen, Source: b.runes[idx].ID, Index: idx, Pos: b.runes[idx].body.Position()})
	slog.Debug("stun window open", "level", l.Index, "rune", idx)
}

// resolveWindow is the success path: the boss is stunned instead
func (b *bossLevel) resolveWindow(l *Level, idx int) {
	if !b.window || idx != b.windowRune || l.Disposed() {
		return
	}
	b.closeWindow(l)
	b.boss.Stun(l.ctx.tuning.StunReward)
	l.ctx.bus.Emit(Event{Kind: EvStunWindowClosed, Index: idx, Success: true})
}

// failWindow freezes the player when the countdown runs out
func (b *bossLevel) failWindow(l *Level) {
	if !b.window || l.Disposed() {
		return
	}
	idx := b.windowRune
	b.closeWindow(l)
	t := l.ctx.tuning
	l.player.Health.SetSpeedMultiplier(0, t.StunFreeze, l.ctx.now())
	l.ctx.bus.Emit(Event{Kind: EvPlayerFrozen, Amount: t.StunFreeze, Pos: l.player.Pos})
	l.ctx.bus.Emit(Event{Kind: EvStunWindowClosed, Index: idx})
}

// cancelWindow drops an open window without reward or penalty
func (b *bossLevel) cancelWindow(l *Level) {
	if !b.window {
		return
	}
	idx := b.windowRune
	b.closeWindow(l)
	l.ctx.bus.Emit(Event{Kind: EvStunWindowClosed, Index: idx, Text: "cancelled"})
}

func (b *bossLevel) closeWindow(l *Level) {
	l.ctx.sched.Cancel(b.windowID)
	for _, r := range b.runes {
		r.active = false
	}
	b.window = false
	b.windowRune = -1
	b.windowID = 0
}

// WindowOpen reports the stun window state and the highlighted pillar
func (b *bossLevel) WindowOpen() (bool, int) {
	return b.window, b.windowRune
}

func (b *bossLevel) checkWin(l *Level) bool {
	return b.boss != nil && !b.boss.Alive()
}

func (b *bossLevel) progress(l *Level) (int, int) {
	if b.boss == nil {
		return 0, 1
	}
	if !b.boss.Alive() {
		return 1, 1
	}
	return 0, 1
}

func (b *bossLevel) decorate(v *LevelView) {
	for _, r := range b.runes {
		v.Runes = append(v.Runes, RuneState{ID: r.ID, Pos: r.body.Position().round(), Active: r.active})
	}
	if v.Boss == nil && b.boss != nil {
		v.Boss = b.boss.BossView()
	}
}
