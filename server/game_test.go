package main

import (
	"errors"
	"sync"
	"testing"
)

// mockBroadcaster captures sent messages for testing
type mockBroadcaster struct {
	mu       sync.Mutex
	messages []any
	frames   int
}

func (m *mockBroadcaster) SendJSON(msg any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
}

func (m *mockBroadcaster) SendBinary(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames++
}

// ofType returns the payloads of every captured envelope of type t
func (m *mockBroadcaster) ofType(t string) []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []any
	for _, msg := range m.messages {
		if env, ok := msg.(Envelope); ok && env.T == t {
			out = append(out, env.Data)
		}
	}
	return out
}

func newTestGame(t *testing.T, start int) *Game {
	t.Helper()
	cfg := DefaultConfig()
	g, err := NewGame("test-session", start, cfg, nil, nil)
	if err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	return g
}

func TestNewGameUnknownLevel(t *testing.T) {
	_, err := NewGame("s", LevelCount(), DefaultConfig(), nil, nil)
	if !errors.Is(err, ErrUnknownLevel) {
		t.Errorf("expected ErrUnknownLevel, got %v", err)
	}
}

func TestGameWaitsForPilot(t *testing.T) {
	g := newTestGame(t, 0)
	if g.Phase() != PhaseWaiting {
		t.Fatalf("expected waiting, got %s", g.Phase())
	}
	for i := 0; i < 10; i++ {
		g.update()
	}
	if now := g.seq.Current().Now(); now != 0 {
		t.Errorf("level clock should not run without a pilot, got %v", now)
	}

	mock := &mockBroadcaster{}
	if _, err := g.SetPilot("Ace", 0, mock); err != nil {
		t.Fatalf("SetPilot: %v", err)
	}
	if g.Phase() != PhasePlaying {
		t.Errorf("expected playing after pilot joins, got %s", g.Phase())
	}
	if len(mock.ofType(MsgJoined)) != 1 {
		t.Error("pilot should get a joined ack")
	}
	if len(mock.ofType(MsgPhase)) == 0 {
		t.Error("pilot should get the phase")
	}
	for i := 0; i < 10; i++ {
		g.update()
	}
	if g.seq.Current().Now() == 0 {
		t.Error("level clock should run with a pilot")
	}
}

func TestGamePilotSeatIsExclusive(t *testing.T) {
	g := newTestGame(t, 0)
	if _, err := g.SetPilot("A", 0, &mockBroadcaster{}); err != nil {
		t.Fatalf("SetPilot: %v", err)
	}
	if _, err := g.SetPilot("B", 0, &mockBroadcaster{}); !errors.Is(err, ErrSeatTaken) {
		t.Errorf("expected ErrSeatTaken, got %v", err)
	}
	if _, err := g.AddSpectator(&mockBroadcaster{}); err != nil {
		t.Errorf("AddSpectator: %v", err)
	}
	if g.ClientCount() != 2 {
		t.Errorf("expected 2 clients, got %d", g.ClientCount())
	}
}

func TestGamePausesWhenPilotLeaves(t *testing.T) {
	g := newTestGame(t, 0)
	p, _ := g.SetPilot("A", 0, &mockBroadcaster{})
	g.update()
	before := g.seq.Current().Now()

	g.RemoveClient(p.ID)
	for i := 0; i < 10; i++ {
		g.update()
	}
	if g.seq.Current().Now() != before {
		t.Error("level should be paused without a pilot")
	}
	if _, err := g.SetPilot("B", 0, &mockBroadcaster{}); err != nil {
		t.Errorf("seat should be free again: %v", err)
	}
}

func TestGameInputOnlyFromPilot(t *testing.T) {
	g := newTestGame(t, 0)
	p, _ := g.SetPilot("A", 0, &mockBroadcaster{})
	spec, _ := g.AddSpectator(&mockBroadcaster{})

	g.HandleInput(spec, PlayerInput{Dir: V3(1, 0, 0), Fire: true})
	g.update()
	if g.player.Firing {
		t.Error("spectator input must be ignored")
	}

	g.HandleInput(p.ID, PlayerInput{Pos: g.player.Pos, Dir: V3(1, 0, 0), Fire: true})
	g.update()
	if !g.player.Firing {
		t.Error("pilot should be firing")
	}
}

func TestGameBroadcastsState(t *testing.T) {
	g := newTestGame(t, 0)
	pilot := &mockBroadcaster{}
	spec := &mockBroadcaster{}
	p, _ := g.SetPilot("A", 0, pilot)
	g.AddSpectator(spec)
	g.HandleInput(p.ID, PlayerInput{Pos: g.player.Pos, Dir: V3(0, 0, 1), Fire: true})

	every := g.cfg.TickRate / g.cfg.BroadcastRate
	for i := 0; i < every*5; i++ {
		g.update()
	}
	if pilot.frames != 5 || spec.frames != 5 {
		t.Errorf("expected 5 frames each, got pilot=%d spectator=%d", pilot.frames, spec.frames)
	}
	if len(pilot.ofType(MsgEvents)) == 0 {
		t.Error("expected weapon events to be forwarded")
	}
}

func TestGameLevelCompleteAdvances(t *testing.T) {
	g := newTestGame(t, 0)
	pilot := &mockBroadcaster{}
	g.SetPilot("A", 0, pilot)

	for _, s := range g.seq.Current().Spawners() {
		s.Destroy()
	}
	g.update()
	if g.Phase() != PhaseLevelComplete {
		t.Fatalf("expected level_complete, got %s", g.Phase())
	}
	results := pilot.ofType(MsgResult)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if r := results[0].(ResultMsg); !r.Won || r.Level != 0 {
		t.Errorf("unexpected result %+v", r)
	}

	ticks := int(levelAdvanceDelay.Seconds() * float64(g.cfg.TickRate))
	for i := 0; i < ticks; i++ {
		g.update()
	}
	if g.Phase() != PhasePlaying {
		t.Fatalf("expected playing after the delay, got %s", g.Phase())
	}
	if g.seq.Index() != 1 {
		t.Errorf("expected level 1, got %d", g.seq.Index())
	}
}

func TestGameFailAndRetry(t *testing.T) {
	g := newTestGame(t, 1)
	p, _ := g.SetPilot("A", 0, &mockBroadcaster{})

	g.player.Health.TakeDamage(g.player.Health.Max)
	g.update()
	if g.Phase() != PhaseFailed {
		t.Fatalf("expected failed, got %s", g.Phase())
	}

	for i := 0; i < 10; i++ {
		g.update()
	}
	if g.Phase() != PhaseFailed {
		t.Error("a failed run should wait for retry")
	}
	if err := g.Retry("someone-else"); !errors.Is(err, ErrNotPilot) {
		t.Errorf("expected ErrNotPilot, got %v", err)
	}
	if err := g.Retry(p.ID); err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if g.Phase() != PhasePlaying || g.seq.Index() != 1 {
		t.Errorf("expected to replay level 1, got %s at %d", g.Phase(), g.seq.Index())
	}
	if !g.player.Health.Alive || g.player.Health.Current != g.player.Health.Max {
		t.Error("retry should restore the pilot")
	}
	if err := g.Retry(p.ID); !errors.Is(err, ErrCannotRetry) {
		t.Errorf("expected ErrCannotRetry while playing, got %v", err)
	}
}

func TestGameVictoryAfterBoss(t *testing.T) {
	g := newTestGame(t, LevelCount()-1)
	pilot := &mockBroadcaster{}
	g.SetPilot("A", 0, pilot)

	var boss *Enemy
	for _, e := range g.seq.Current().Enemies() {
		if e.Kind == EnemyBoss {
			boss = e
		}
	}
	if boss == nil {
		t.Fatal("boss level should start with the boss")
	}
	boss.TakeDamage(boss.Health.Max)
	g.update()
	if g.Phase() != PhaseVictory {
		t.Fatalf("expected victory, got %s", g.Phase())
	}
	for i := 0; i < 10; i++ {
		g.update()
	}
	if g.Phase() != PhaseVictory {
		t.Error("victory is final")
	}
}

func TestGameStopIsIdempotent(t *testing.T) {
	g := newTestGame(t, 0)
	g.Stop()
	g.Stop()
	if g.seq.Current() != nil {
		t.Error("stop should dispose the level")
	}
}

// drainAnalytics empties the tracker queue and counts events of one type
func drainAnalytics(a *Analytics, evtType string) int {
	n := 0
	for {
		select {
		case ev := <-a.events:
			if ev.Type == evtType {
				n++
			}
		default:
			return n
		}
	}
}

func TestGameTracksEachEventOnce(t *testing.T) {
	a := NewAnalytics(nil)
	g, err := NewGame("test-session", 0, DefaultConfig(), nil, a)
	if err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	if _, err := g.SetPilot("Pilot", 0, &mockBroadcaster{}); err != nil {
		t.Fatalf("SetPilot: %v", err)
	}
	g.player.Pos = level1Notes[0].pos

	// the pickup lands on a tick without a broadcast, then a broadcast tick follows
	for i := 0; i < 3; i++ {
		g.update()
	}
	if n := drainAnalytics(a, EvtFragment); n != 1 {
		t.Errorf("expected one fragment pickup tracked once, got %d", n)
	}
}
