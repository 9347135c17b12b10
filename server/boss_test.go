package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBoss(t *testing.T) (*simContext, *Enemy) {
	t.Helper()
	ctx := testContext()
	r := &roster{ctx: ctx}
	s := newBossSpawner(ctx, V3(0, 0, 0), arenaRadius, r.spawn)
	boss := s.SpawnBoss()
	require.NotNil(t, boss)
	return ctx, boss
}

func TestBossPhasesAreMonotonic(t *testing.T) {
	ctx, boss := newTestBoss(t)
	var phases []int
	ctx.bus.Subscribe(EvBossPhase, func(ev Event) { phases = append(phases, ev.Index) })

	boss.TakeDamage(500)
	assert.Equal(t, 1, boss.Phase())

	boss.TakeDamage(20)
	assert.Equal(t, 2, boss.Phase())

	boss.TakeDamage(500)
	assert.Equal(t, 3, boss.Phase())

	boss.Health.Heal(1000)
	boss.TakeDamage(1)
	assert.Equal(t, 3, boss.Phase(), "healing never rolls the phase back")

	ctx.bus.Flush()
	assert.Equal(t, []int{2, 3}, phases)
}

func TestBossPhaseSkipEmitsEachCrossing(t *testing.T) {
	ctx, boss := newTestBoss(t)
	var phases []int
	ctx.bus.Subscribe(EvBossPhase, func(ev Event) { phases = append(phases, ev.Index) })

	boss.TakeDamage(1100)
	ctx.bus.Flush()
	assert.Equal(t, []int{2, 3}, phases)
}

func TestBossStunLocksOutAttacks(t *testing.T) {
	ctx, boss := newTestBoss(t)
	var attacks, stuns int
	var stunFor float64
	boss.OnAttack(func(float64) { attacks++ })
	boss.OnStun(func(d float64) { stuns++; stunFor = d })

	player := V3(2, 0, 0)
	boss.Stun(2)
	assert.True(t, boss.Stunned())

	boss.Update(0.1, player)
	ctx.bus.Flush()
	assert.Equal(t, 0, attacks)
	assert.Equal(t, 1, stuns)
	assert.Equal(t, 2.0, stunFor)
	assert.Equal(t, V3(0, 0, 0), boss.Position(), "stunned boss does not move")

	ctx.sched.Advance(2.1)
	assert.False(t, boss.Stunned())
	boss.Update(0.1, player)
	ctx.bus.Flush()
	assert.Equal(t, 1, attacks)
}

func TestBossHazardZonesOnlyInPhaseThree(t *testing.T) {
	_, boss := newTestBoss(t)
	zone := boss.Boss().HazardCenters()[0]
	assert.InDelta(t, arenaRadius/2, zone.HorizontalDistanceTo(V3(0, 0, 0)), 1e-9)

	assert.False(t, boss.InHazard(zone))

	boss.TakeDamage(1100)
	require.Equal(t, 3, boss.Phase())
	assert.True(t, boss.InHazard(zone))
	assert.False(t, boss.InHazard(V3(0, 0, 0)))

	boss.Die()
	assert.False(t, boss.InHazard(zone), "zones vanish with the boss")
}

func TestBossStaysInArena(t *testing.T) {
	_, boss := newTestBoss(t)
	for i := 0; i < 100; i++ {
		boss.Update(1.0, V3(100, 0, 0))
	}
	assert.LessOrEqual(t, boss.Position().Flat().Len(), arenaRadius-boss.Body().Radius()+1e-9)
}

func TestBossView(t *testing.T) {
	_, boss := newTestBoss(t)
	v := boss.BossView()
	require.NotNil(t, v)
	assert.Equal(t, 1, v.Phase)
	assert.Empty(t, v.Hazards)

	boss.TakeDamage(1100)
	v = boss.BossView()
	assert.Equal(t, 3, v.Phase)
	assert.Len(t, v.Hazards, hazardZoneCount)
}
