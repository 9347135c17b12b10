package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDT = 0.5

// sturdyTuning keeps the player alive through long scripted runs
func sturdyTuning() Tuning {
	t := DefaultTuning()
	t.PlayerMaxHealth = 1e6
	return t
}

func newTestLevel(t *testing.T, rules levelRules, tuning Tuning) (*Level, *[]Event) {
	t.Helper()
	p := NewPlayer("p1", "Pilot", tuning)
	p.Reset(rules.start())
	l := newLevel(0, rules, p, tuning, 42)
	events := &[]Event{}
	l.Bus().SubscribeAll(func(ev Event) { *events = append(*events, ev) })
	return l, events
}

func eventsOf(events []Event, kind EventKind) []Event {
	var out []Event
	for _, ev := range events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

func TestLevelOneSecondHiveWakesEliteOnce(t *testing.T) {
	rules := newHiveLevel().(*hiveLevel)
	l, events := newTestLevel(t, rules, sturdyTuning())

	rules.hives[0].Destroy()
	l.Update(0.01)
	assert.Nil(t, rules.elite)

	rules.hives[1].Destroy()
	l.Update(0.01)
	require.NotNil(t, rules.elite)
	assert.Equal(t, EnemyElite, rules.elite.Kind)

	rules.hives[2].Destroy()
	l.Update(0.01)

	elites := 0
	for _, e := range l.Enemies() {
		if e.Kind == EnemyElite {
			elites++
		}
	}
	assert.Equal(t, 1, elites)
	assert.Len(t, eventsOf(*events, EvEliteSpawned), 1)
	assert.Equal(t, LevelRunning, l.State())
}

func TestLevelOneWinsWhenAllHivesFall(t *testing.T) {
	rules := newHiveLevel().(*hiveLevel)
	l, events := newTestLevel(t, rules, sturdyTuning())

	for _, h := range rules.hives[:4] {
		h.Destroy()
	}
	l.Update(0.01)
	assert.Equal(t, LevelRunning, l.State())
	done, total := l.Progress()
	assert.Equal(t, 4, done)
	assert.Equal(t, 5, total)

	rules.hives[4].Destroy()
	l.Update(0.01)
	assert.Equal(t, LevelWon, l.State())
	assert.True(t, l.Complete())
	assert.Len(t, eventsOf(*events, EvLevelComplete), 1)

	l.Update(0.01)
	assert.Len(t, eventsOf(*events, EvLevelComplete), 1, "a won level stops ticking")
}

func TestLevelShootsHiveDown(t *testing.T) {
	rules := newHiveLevel().(*hiveLevel)
	l, _ := newTestLevel(t, rules, sturdyTuning())
	p := l.Player()
	hive := rules.hives[0]

	aim := hive.Position().Sub(p.Pos)
	for i := 0; i < 8; i++ {
		p.SetInput(PlayerInput{Pos: p.Pos, Dir: aim, Fire: true})
		l.Update(0.2)
	}
	assert.True(t, hive.Destroyed())
	assert.True(t, l.LastShot().Hit)
	shots, hits := p.Weapon.Shots()
	assert.Equal(t, 8, shots)
	assert.Equal(t, 8, hits)
}

func TestLevelPrunesDisposedEnemies(t *testing.T) {
	rules := newHiveLevel().(*hiveLevel)
	l, _ := newTestLevel(t, rules, sturdyTuning())

	e := l.spawnEnemy(EnemySwarm, V3(40, 0, 40), 0)
	e.Die()
	l.Update(0.1)
	assert.Contains(t, l.Enemies(), e, "dying enemies stay until disposal")

	l.Update(0.6)
	assert.NotContains(t, l.Enemies(), e)
}

func TestLevelEnemyAttackDamagesPlayer(t *testing.T) {
	rules := newHiveLevel().(*hiveLevel)
	l, events := newTestLevel(t, rules, DefaultTuning())
	p := l.Player()

	l.spawnEnemy(EnemySwarm, p.Pos.Flat().Add(V3(1, 0, 0)), 0)
	l.Update(0.01)
	assert.Equal(t, 95.0, p.Health.Current)
	assert.Len(t, eventsOf(*events, EvPlayerDamaged), 1)
}

func TestLevelLostWhenPlayerDies(t *testing.T) {
	rules := newHiveLevel().(*hiveLevel)
	l, events := newTestLevel(t, rules, DefaultTuning())

	l.damagePlayer(1000, 0, false)
	l.Update(0.01)
	assert.Equal(t, LevelLost, l.State())
	assert.Len(t, eventsOf(*events, EvPlayerDied), 1)
	assert.Len(t, eventsOf(*events, EvLevelFailed), 1)
}

func TestLevelCollectsFragmentsOnce(t *testing.T) {
	rules := newHiveLevel().(*hiveLevel)
	l, events := newTestLevel(t, rules, sturdyTuning())
	p := l.Player()
	f := l.Fragments()[0]

	p.Pos = f.Pos.Add(V3(1.5, 1.6, 0))
	l.Update(0.01)
	l.Update(0.01)

	assert.True(t, f.Collected)
	assert.Equal(t, 1, p.Fragments)
	got := eventsOf(*events, EvFragment)
	require.Len(t, got, 1)
	assert.Equal(t, f.Text, got[0].Text)
	assert.False(t, l.Fragments()[1].Collected)
}

func TestLevelTwoWinsWhenAnchorsCut(t *testing.T) {
	rules := newAnchorLevel().(*anchorLevel)
	l, _ := newTestLevel(t, rules, sturdyTuning())

	rules.anchors[0].Destroy()
	rules.anchors[1].Destroy()
	l.Update(0.01)
	assert.Equal(t, LevelRunning, l.State())

	rules.anchors[2].Destroy()
	l.Update(0.01)
	assert.Equal(t, LevelWon, l.State())
}

func TestLevelTwoInterference(t *testing.T) {
	tuning := sturdyTuning()
	tuning.ShadowChance = 0.5
	rules := newAnchorLevel().(*anchorLevel)
	l, events := newTestLevel(t, rules, tuning)
	p := l.Player()

	for i := 0; i < 40; i++ {
		l.Update(testDT)
	}
	// t = 20: drag pulse just applied
	assert.Equal(t, 0.5, p.Health.SpeedMultiplier())
	assert.Len(t, eventsOf(*events, EvDragPulse), 1)

	for i := 0; i < 4; i++ {
		l.Update(testDT)
	}
	// t = 22: drag expired
	assert.Equal(t, 1.0, p.Health.SpeedMultiplier())

	for l.Now() < 120 {
		l.Update(testDT)
		assert.LessOrEqual(t, len(rules.Shadows()), l.ctx.tuning.ShadowCap)
	}

	pulses := eventsOf(*events, EvInterference)
	require.Len(t, pulses, len(interferenceMessages), "each message shows once")
	for i, ev := range pulses {
		assert.Equal(t, interferenceMessages[i], ev.Text)
	}
	assert.Len(t, eventsOf(*events, EvPhantomAudio), 12)
	assert.NotEmpty(t, eventsOf(*events, EvShadowSpawned))
}

func TestLevelTwoShadowsAreNotTargets(t *testing.T) {
	tuning := sturdyTuning()
	tuning.ShadowChance = 0
	rules := newAnchorLevel().(*anchorLevel)
	l, _ := newTestLevel(t, rules, tuning)
	rules.spawnShadow(l)
	require.Len(t, rules.Shadows(), 1)

	assert.Len(t, l.targets(), len(rules.anchors))

	l.Update(l.ctx.tuning.ShadowLifetime)
	assert.Empty(t, rules.Shadows(), "shadows dissolve on their own")
}

func TestLevelTwoQuietWithoutAnchors(t *testing.T) {
	rules := newAnchorLevel().(*anchorLevel)
	l, events := newTestLevel(t, rules, sturdyTuning())
	for _, a := range rules.anchors {
		a.Destroy()
	}
	rules.update(l, 100)
	l.Bus().Flush()

	assert.Empty(t, eventsOf(*events, EvInterference))
	assert.Empty(t, eventsOf(*events, EvDragPulse))
	assert.Equal(t, 1.0, l.Player().Health.SpeedMultiplier())
}

// runUntilWindow ticks a boss level until the first stun window opens
func runUntilWindow(t *testing.T, l *Level, rules *bossLevel) int {
	t.Helper()
	for i := 0; i < 100; i++ {
		l.Update(testDT)
		if open, idx := rules.WindowOpen(); open {
			return idx
		}
	}
	t.Fatal("stun window never opened")
	return -1
}

func TestLevelThreeStunWindowSuccess(t *testing.T) {
	rules := newBossLevel().(*bossLevel)
	l, events := newTestLevel(t, rules, sturdyTuning())

	idx := runUntilWindow(t, l, rules)
	assert.Equal(t, 12.0, l.Now())
	require.True(t, rules.runes[idx].Active())

	other := rules.runes[(idx+1)%len(rules.runes)]
	assert.False(t, other.TakeDamage(25), "an unlit rune does nothing")
	open, _ := rules.WindowOpen()
	assert.True(t, open)

	assert.True(t, rules.runes[idx].TakeDamage(25))
	open, _ = rules.WindowOpen()
	assert.False(t, open)
	assert.True(t, rules.boss.Stunned())

	for i := 0; i < 8; i++ {
		l.Update(testDT)
	}
	assert.True(t, l.Player().Health.CanMove(), "a resolved window never freezes")
	assert.Empty(t, eventsOf(*events, EvPlayerFrozen))
	closed := eventsOf(*events, EvStunWindowClosed)
	require.Len(t, closed, 1)
	assert.True(t, closed[0].Success)
}

func TestLevelThreeStunWindowFailureFreezes(t *testing.T) {
	rules := newBossLevel().(*bossLevel)
	l, events := newTestLevel(t, rules, sturdyTuning())

	runUntilWindow(t, l, rules)
	for l.Now() < 15 {
		l.Update(testDT)
	}
	assert.False(t, l.Player().Health.CanMove())
	assert.Equal(t, 0.0, l.Player().Health.SpeedMultiplier())
	assert.Len(t, eventsOf(*events, EvPlayerFrozen), 1)
	assert.False(t, rules.boss.Stunned())

	for l.Now() < 17 {
		l.Update(testDT)
	}
	assert.True(t, l.Player().Health.CanMove())
}

func TestLevelThreeBossDeathInPhaseOneWins(t *testing.T) {
	rules := newBossLevel().(*bossLevel)
	l, events := newTestLevel(t, rules, sturdyTuning())

	runUntilWindow(t, l, rules)
	rules.boss.Die()
	l.Update(testDT)

	assert.Equal(t, LevelWon, l.State())
	open, _ := rules.WindowOpen()
	assert.False(t, open, "boss death cancels the window")
	assert.Empty(t, eventsOf(*events, EvPlayerFrozen))
}

func TestLevelThreeMinionsCapped(t *testing.T) {
	tuning := sturdyTuning()
	tuning.MinionChance = 1
	rules := newBossLevel().(*bossLevel)
	l, _ := newTestLevel(t, rules, tuning)

	rules.boss.TakeDamage(600)
	require.Equal(t, 2, rules.boss.Phase())

	for i := 0; i < 20; i++ {
		l.Update(0.01)
	}
	assert.Equal(t, tuning.MinionCap, l.LiveEnemies(false))
	for _, e := range l.Enemies() {
		if e.Kind != EnemyBoss {
			assert.LessOrEqual(t, e.Position().Flat().Len(), arenaRadius+2)
		}
	}
}

func TestLevelThreeHazardDamage(t *testing.T) {
	rules := newBossLevel().(*bossLevel)
	l, events := newTestLevel(t, rules, DefaultTuning())
	p := l.Player()

	rules.boss.TakeDamage(1100)
	require.Equal(t, 3, rules.boss.Phase())

	p.Pos = rules.boss.Boss().HazardCenters()[0]
	l.Update(0.01)
	assert.InDelta(t, p.Health.Max-0.05, p.Health.Current, 1e-9)
	assert.Len(t, eventsOf(*events, EvHazardTick), 1)

	l.Update(0.01)
	assert.InDelta(t, p.Health.Max-0.1, p.Health.Current, 1e-9)
	assert.Len(t, eventsOf(*events, EvHazardTick), 1, "entry is announced once")
	damaged := eventsOf(*events, EvPlayerDamaged)
	require.Len(t, damaged, 1, "hazard damage is reported on entry")
	assert.Equal(t, rules.boss.ID, damaged[0].Source)
}

func TestLevelThreePhaseChangeCancelsStunWindow(t *testing.T) {
	rules := newBossLevel().(*bossLevel)
	l, events := newTestLevel(t, rules, sturdyTuning())

	runUntilWindow(t, l, rules)
	rules.boss.TakeDamage(600)
	require.Equal(t, 2, rules.boss.Phase())
	l.Update(testDT)

	open, _ := rules.WindowOpen()
	assert.False(t, open, "leaving phase 1 cancels the window")
	for l.Now() < 16 {
		l.Update(testDT)
	}
	assert.True(t, l.Player().Health.CanMove())
	assert.Empty(t, eventsOf(*events, EvPlayerFrozen))
	closed := eventsOf(*events, EvStunWindowClosed)
	require.Len(t, closed, 1)
	assert.Equal(t, "cancelled", closed[0].Text)
}

func TestLevelDisposeStopsTimers(t *testing.T) {
	rules := newHiveLevel().(*hiveLevel)
	l, events := newTestLevel(t, rules, sturdyTuning())
	rules.hives[0].Destroy()
	l.Dispose()

	l.Update(1)
	assert.Empty(t, eventsOf(*events, EvSpawnerDisposed))
	assert.True(t, l.Disposed())
	assert.True(t, rules.hives[0].Disposed())
}
