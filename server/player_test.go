package main

import (
	"math"
	"testing"
)

func TestNewPlayer(t *testing.T) {
	p := NewPlayer("test1", "TestPilot", DefaultTuning())
	if p.ID != "test1" {
		t.Errorf("expected ID test1, got %s", p.ID)
	}
	if p.Name != "TestPilot" {
		t.Errorf("expected name TestPilot, got %s", p.Name)
	}
	if p.Health.Current != 100 {
		t.Errorf("expected HP 100, got %f", p.Health.Current)
	}
	if !p.Health.Alive {
		t.Error("expected player to be alive")
	}
}

func TestPlayerUpdateFollowsInput(t *testing.T) {
	p := NewPlayer("test", "P", DefaultTuning())
	p.SetInput(PlayerInput{Pos: V3(0.05, 1.6, 0), Dir: V3(1, 0, 0), Fire: true})
	p.Update(1.0 / 60.0)

	if math.Abs(p.Pos.X-0.05) > 1e-9 {
		t.Errorf("expected X 0.05, got %f", p.Pos.X)
	}
	if p.Pos.Y != 1.6 {
		t.Errorf("expected eye height kept, got %f", p.Pos.Y)
	}
	if p.Aim.X != 1 {
		t.Errorf("expected aim along X, got %+v", p.Aim)
	}
	if !p.Firing {
		t.Error("expected firing")
	}
}

func TestPlayerUpdateClampsStep(t *testing.T) {
	p := NewPlayer("test", "P", DefaultTuning())
	p.SetInput(PlayerInput{Pos: V3(50, 0, 0)})
	dt := 1.0 / 60.0
	p.Update(dt)

	want := PlayerMoveSpeed * dt * PlayerMoveSlack
	if math.Abs(p.Pos.X-want) > 1e-9 {
		t.Errorf("expected clamped step %f, got %f", want, p.Pos.X)
	}
}

func TestPlayerFrozenIgnoresMovement(t *testing.T) {
	p := NewPlayer("test", "P", DefaultTuning())
	p.Health.SetSpeedMultiplier(0, 2, 0)
	p.SetInput(PlayerInput{Pos: V3(0.05, 0, 0), Dir: V3(0, 0, -1), Fire: true})
	p.Update(1.0 / 60.0)

	if p.Pos.X != 0 {
		t.Errorf("frozen player moved to %f", p.Pos.X)
	}
	if p.Aim.Z != -1 {
		t.Error("frozen player should still aim")
	}
}

func TestPlayerTakeDamage(t *testing.T) {
	p := NewPlayer("test", "P", DefaultTuning())

	died := p.TakeDamage(30)
	if died {
		t.Error("should not have died from 30 damage")
	}
	if p.Health.Current != 70 {
		t.Errorf("expected HP 70, got %f", p.Health.Current)
	}

	died = p.TakeDamage(80)
	if !died {
		t.Error("should have died from 80 more damage")
	}
	if p.Health.Alive {
		t.Error("expected player to be dead")
	}
	if p.DamageTaken != 100 {
		t.Errorf("expected 100 damage recorded, got %f", p.DamageTaken)
	}
	if p.TakeDamage(10) {
		t.Error("dead player cannot die twice")
	}
}

func TestPlayerReset(t *testing.T) {
	p := NewPlayer("test", "P", DefaultTuning())
	p.TakeDamage(200)
	p.Reset(V3(3, 0, 4))
	if !p.Health.Alive {
		t.Error("expected player to be alive after reset")
	}
	if p.Health.Current != p.Health.Max {
		t.Errorf("expected full HP, got %f", p.Health.Current)
	}
	if p.Pos != V3(3, 0, 4) {
		t.Errorf("expected reset position, got %+v", p.Pos)
	}
}

func TestPlayerToState(t *testing.T) {
	p := NewPlayer("test", "Pilot", DefaultTuning())
	p.Pos = V3(100, 0, 200)
	p.Kills = 5
	p.TakeDamage(20)
	s := p.ToState()
	if s.ID != "test" || s.Name != "Pilot" || s.Pos.X != 100 || s.Pos.Z != 200 {
		t.Error("state mismatch")
	}
	if s.HP != 80 || s.MaxHP != 100 || s.Kills != 5 || !s.Alive {
		t.Error("state field mismatch")
	}
}
