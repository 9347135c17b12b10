package main

import "math"

// anchorLevel is level 2: cut every anchor while the city fights back with
// interference, decoys and drag.
type anchorLevel struct {
	anchors []*Spawner

	interferenceT float64
	phantomT      float64
	dragT         float64
	messageIdx    int
	shadows       []*Shadow
}

// Shadow is a cosmetic decoy. It is never a weapon target and never attacks.
type Shadow struct {
	ID  EntityID
	Pos Vec3
}

const (
	shadowMinDist = 8.0
	shadowMaxDist = 15.0
)

var (
	anchorPositions = []Vec3{
		{X: 30, Z: 0}, {X: -20, Z: 35}, {X: -15, Z: -35},
	}
	level2Start          = Vec3{Y: 1.6}
	interferenceMessages = []string{
		"SIGNAL LOST - SHEIKH ZAYED ROAD",
		"THEY ARE IN THE WALLS",
		"DO NOT LOOK AT THE TOWER",
		"EVACUATION ROUTE CLOSED",
		"YOU WERE NEVER HERE",
	}
	level2Notes = []fragmentSeed{
		{"Radio transcript: the anchors hum at the same pitch as the lights.", Vec3{X: 25, Z: 20}},
		{"Photo caption: shadows that move against the sun.", Vec3{X: -30, Z: 5}},
		{"Engineer's memo: cut the anchors and the drag should stop.", Vec3{X: 0, Z: -40}},
	}
)

func newAnchorLevel() levelRules {
	return &anchorLevel{}
}

func (a *anchorLevel) name() string {
	return "anchors"
}

func (a *anchorLevel) start() Vec3 {
	return level2Start
}

func (a *anchorLevel) setup(l *Level) {
	for _, pos := range anchorPositions {
		a.anchors = append(a.anchors, l.addSpawner(newAnchor(l.ctx, pos)))
	}
	for _, f := range level2Notes {
		l.addFragment(f.text, f.pos)
	}
}

func (a *anchorLevel) activeAnchors() int {
	n := 0
	for _, s := range a.anchors {
		if s.Active() {
			n++
		}
	}
	return n
}

func (a *anchorLevel) update(l *Level, dt float64) {
	if a.activeAnchors() == 0 {
		return
	}
	t := l.ctx.tuning

	a.interferenceT += dt
	if a.interferenceT >= t.InterferencePeriod {
		a.interferenceT = 0
		a.pulseInterference(l)
	}

	if l.ctx.rng.Float64() < t.ShadowChance && len(a.shadows) < t.ShadowCap {
		a.spawnShadow(l)
	}

	a.phantomT += dt
	if a.phantomT >= t.PhantomAudioPeriod {
		a.phantomT = 0
		l.ctx.bus.Emit(Event{Kind: EvPhantomAudio, Pos: a.phantomPos(l)})
	}

	a.dragT += dt
	if a.dragT >= t.DragPeriod {
		a.dragT = 0
		l.player.Health.SetSpeedMultiplier(t.DragMultiplier, t.DragDuration, l.ctx.now())
		l.ctx.bus.Emit(Event{Kind: EvDragPulse, Amount: t.DragMultiplier, Pos: l.player.Pos})
	}
}

// pulseInterference shows the next scripted message. Each message is shown
// at most once; after the last one the pulses go quiet.
func (a *anchorLevel) pulseInterference(l *Level) {
	if a.messageIdx >= len(interferenceMessages) {
		return
	}
	msg := interferenceMessages[a.messageIdx]
	l.ctx.bus.Emit(Event{Kind: EvInterference, Index: a.messageIdx, Text: msg})
	a.messageIdx++
}

func (a *anchorLevel) spawnShadow(l *Level) {
	rng := l.ctx.rng
	ang := rng.Float64() * 2 * math.Pi
	dist := shadowMinDist + rng.Float64()*(shadowMaxDist-shadowMinDist)
	p := l.player.Pos.Flat().Add(V3(math.Cos(ang)*dist, 0, math.Sin(ang)*dist))

	sh := &Shadow{ID: l.ctx.newID(), Pos: p}
	a.shadows = append(a.shadows, sh)
	l.ctx.bus.Emit(Event{Kind: EvShadowSpawned, Source: sh.ID, Pos: p})

	l.ctx.sched.After(sh.ID, l.ctx.tuning.ShadowLifetime, func() {
		a.dissolveShadow(l, sh.ID)
	})
}

func (a *anchorLevel) dissolveShadow(l *Level, id EntityID) {
	for i, sh := range a.shadows {
		if sh.ID == id {
			a.shadows = append(a.shadows[:i], a.shadows[i+1:]...)
			l.ctx.bus.Emit(Event{Kind: EvShadowDissolved, Source: id, Pos: sh.Pos})
			return
		}
	}
}

// phantomPos places the phantom cue behind the player
func (a *anchorLevel) phantomPos(l *Level) Vec3 {
	return l.player.Pos.Sub(l.player.Aim.Flat().Normalize().Scale(5))
}

func (a *anchorLevel) checkWin(l *Level) bool {
	return len(a.anchors) > 0 && a.activeAnchors() == 0
}

func (a *anchorLevel) progress(l *Level) (int, int) {
	return len(a.anchors) - a.activeAnchors(), len(a.anchors)
}

// Shadows returns the live decoys
func (a *anchorLevel) Shadows() []*Shadow {
	return a.shadows
}

func (a *anchorLevel) decorate(v *LevelView) {
	for _, sh := range a.shadows {
		v.Shadows = append(v.Shadows, sh.Pos.round())
	}
}
