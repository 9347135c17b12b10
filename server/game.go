package main

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// levelAdvanceDelay is how long the level-complete screen holds
const levelAdvanceDelay = 3 * time.Second

const maxSpectatorsPerRun = 16

// Phase is the run-level state around the live level
type Phase string

const (
	PhaseWaiting       Phase = "waiting" // no pilot has joined yet
	PhasePlaying       Phase = "playing"
	PhaseLevelComplete Phase = "level_complete"
	PhaseFailed        Phase = "failed"
	PhaseVictory       Phase = "victory"
)

var (
	ErrSeatTaken   = errors.New("pilot seat taken")
	ErrRunFull     = errors.New("run is full")
	ErrNotPilot    = errors.New("only the pilot can do that")
	ErrCannotRetry = errors.New("nothing to retry")
)

// Broadcaster interface for sending messages to clients
type Broadcaster interface {
	SendJSON(msg any)
	SendBinary(data []byte)
}

// Game is one run through the campaign: a single pilot plus spectators
type Game struct {
	mu         sync.Mutex
	sessionID  string
	cfg        Config
	db         *DB
	analytics  *Analytics
	seq        *Sequencer
	player     *Player
	pilot      Broadcaster
	pilotAuth  int64
	spectators map[string]Broadcaster
	phase      Phase
	phaseTicks int
	tick       uint64
	pending    []Event
	running    bool
	stop       chan struct{}
}

// NewGame builds a run starting at level index start
func NewGame(sessionID string, start int, cfg Config, db *DB, analytics *Analytics) (*Game, error) {
	g := &Game{
		sessionID:  sessionID,
		cfg:        cfg,
		db:         db,
		analytics:  analytics,
		spectators: make(map[string]Broadcaster),
		phase:      PhaseWaiting,
		stop:       make(chan struct{}),
	}
	g.player = NewPlayer(GenerateID(4), "", cfg.Tuning)
	g.seq = NewSequencer(cfg.Tuning, g.player, g.collect, rand.Uint64())
	if err := g.seq.Load(start); err != nil {
		return nil, fmt.Errorf("new run: %w", err)
	}
	return g, nil
}

// collect is the sequencer sink; it runs inside update under g.mu
func (g *Game) collect(ev Event) {
	g.pending = append(g.pending, ev)
}

// Run starts the game loop
func (g *Game) Run() {
	g.mu.Lock()
	g.running = true
	g.mu.Unlock()

	ticker := time.NewTicker(time.Second / time.Duration(g.cfg.TickRate))
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			g.update()
		case <-g.stop:
			return
		}
	}
}

// Stop terminates the game loop and tears the level down
func (g *Game) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	select {
	case <-g.stop:
		return
	default:
	}
	close(g.stop)
	g.running = false
	g.seq.Dispose()
	if g.pilot != nil {
		g.analytics.Track(EvtSessionEnd, g.pilotAuth, g.sessionID, map[string]int{"level": g.seq.Index()})
	}
}

// SetPilot seats the pilot and acknowledges the join before any phase or
// state message. A run has one pilot; the seat frees up again when the
// pilot disconnects.
func (g *Game) SetPilot(name string, authID int64, b Broadcaster) (*Player, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.pilot != nil {
		return nil, ErrSeatTaken
	}
	g.pilot = b
	g.pilotAuth = authID
	g.player.Name = name
	b.SendJSON(Envelope{T: MsgJoined, Data: JoinedMsg{SessionID: g.sessionID, PlayerID: g.player.ID, Pilot: true}})
	g.analytics.Track(EvtSessionStart, authID, g.sessionID, nil)

	if g.phase == PhaseWaiting {
		g.setPhase(PhasePlaying)
		g.trackLevelStart()
	} else {
		b.SendJSON(Envelope{T: MsgPhase, Data: g.phaseMsg()})
	}
	return g.player, nil
}

// AddSpectator attaches a read-only viewer and returns its id
func (g *Game) AddSpectator(b Broadcaster) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.spectators) >= maxSpectatorsPerRun {
		return "", ErrRunFull
	}
	id := GenerateID(4)
	g.spectators[id] = b
	b.SendJSON(Envelope{T: MsgJoined, Data: JoinedMsg{SessionID: g.sessionID}})
	b.SendJSON(Envelope{T: MsgPhase, Data: g.phaseMsg()})
	return id, nil
}

// RemoveClient detaches the pilot or a spectator by id
func (g *Game) RemoveClient(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if id == g.player.ID {
		if g.pilot != nil {
			g.analytics.Track(EvtSessionEnd, g.pilotAuth, g.sessionID, map[string]int{"level": g.seq.Index()})
		}
		g.pilot = nil
		g.pilotAuth = 0
		g.player.SetInput(PlayerInput{Pos: g.player.Pos, Dir: g.player.Aim})
		return
	}
	delete(g.spectators, id)
}

// HandleInput stores the pilot's latest intent
func (g *Game) HandleInput(playerID string, in PlayerInput) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if playerID != g.player.ID || g.pilot == nil {
		return
	}
	g.player.SetInput(in)
}

// Retry reloads the failed level
func (g *Game) Retry(playerID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if playerID != g.player.ID {
		return ErrNotPilot
	}
	if g.phase != PhaseFailed {
		return ErrCannotRetry
	}
	if err := g.seq.Reload(); err != nil {
		return err
	}
	g.pending = nil
	g.setPhase(PhasePlaying)
	g.trackLevelStart()
	return nil
}

// ClientCount returns pilot plus spectators
func (g *Game) ClientCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := len(g.spectators)
	if g.pilot != nil {
		n++
	}
	return n
}

// Info summarises the run for session lists
func (g *Game) Info() (pilot string, level int, phase Phase, spectators int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pilot != nil {
		pilot = g.player.Name
	}
	return pilot, g.seq.Index(), g.phase, len(g.spectators)
}

// Phase returns the current run phase
func (g *Game) Phase() Phase {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.phase
}

// update runs one game tick
func (g *Game) update() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.tick++
	dt := 1.0 / float64(g.cfg.TickRate)

	switch g.phase {
	case PhasePlaying:
		// a run without its pilot is paused
		if g.pilot == nil {
			break
		}
		n := len(g.pending)
		g.seq.Update(dt)
		g.trackEvents(g.pending[n:])
		switch {
		case g.seq.Failed():
			g.finishLevel(false)
		case g.seq.Complete():
			g.finishLevel(true)
		}
	case PhaseLevelComplete:
		g.phaseTicks--
		if g.phaseTicks > 0 {
			break
		}
		more, err := g.seq.Next()
		if err != nil {
			slog.Error("advance level", "session", g.sessionID, "err", err)
			g.setPhase(PhaseFailed)
			break
		}
		if !more {
			g.setPhase(PhaseVictory)
			break
		}
		g.pending = nil
		g.setPhase(PhasePlaying)
		g.trackLevelStart()
	}

	if g.tick%uint64(g.cfg.TickRate/g.cfg.BroadcastRate) == 0 {
		g.broadcastState()
	}
}

// trackEvents forwards the analytics-worthy events of one tick. pending
// spans several ticks between broadcasts, so callers pass only the new tail.
func (g *Game) trackEvents(events []Event) {
	lvl := g.seq.Index()
	for _, ev := range events {
		switch ev.Kind {
		case EvBossPhase:
			g.analytics.Track(EvtBossPhase, g.pilotAuth, g.sessionID, map[string]int{"level": lvl, "phase": ev.Index})
		case EvFragment:
			g.analytics.Track(EvtFragment, g.pilotAuth, g.sessionID, map[string]int{"level": lvl, "fragment": ev.Index})
		}
	}
}

func (g *Game) trackLevelStart() {
	g.analytics.Track(EvtLevelStart, g.pilotAuth, g.sessionID, map[string]int{"level": g.seq.Index()})
}

// finishLevel moves the run out of PhasePlaying and reports the attempt
func (g *Game) finishLevel(won bool) {
	lvl := g.seq.Current()
	st := lvl.Stats()
	r := LevelResult{
		Level:       lvl.Index,
		Won:         won,
		Duration:    round2(st.Duration),
		Kills:       st.Kills,
		Fragments:   st.Fragments,
		DamageTaken: st.DamageTaken,
		Accuracy:    round2(g.player.Weapon.Accuracy()),
	}

	evt := EvtLevelFail
	switch {
	case !won:
		g.setPhase(PhaseFailed)
	case lvl.Index == LevelCount()-1:
		evt = EvtLevelComplete
		g.setPhase(PhaseVictory)
	default:
		evt = EvtLevelComplete
		g.phaseTicks = int(levelAdvanceDelay.Seconds() * float64(g.cfg.TickRate))
		g.setPhase(PhaseLevelComplete)
	}
	g.analytics.Track(evt, g.pilotAuth, g.sessionID, map[string]any{"level": r.Level, "duration": r.Duration})
	slog.Info("level finished", "session", g.sessionID, "level", r.Level, "won", won, "time", r.Duration, "kills", r.Kills)

	msg := ResultMsg{
		Level:     r.Level,
		Won:       r.Won,
		Duration:  r.Duration,
		Kills:     r.Kills,
		Fragments: r.Fragments,
		Accuracy:  r.Accuracy,
	}
	if g.db == nil || g.pilotAuth == 0 {
		g.broadcastMsg(Envelope{T: MsgResult, Data: msg})
		return
	}
	go g.persistResult(g.pilotAuth, r, msg)
}

// persistResult records the attempt off the game loop, then reports it
func (g *Game) persistResult(authID int64, r LevelResult, msg ResultMsg) {
	xp, rank, err := g.db.RecordLevelResult(authID, r)
	if err != nil {
		slog.Error("record level result", "session", g.sessionID, "player", authID, "err", err)
	} else {
		msg.XP, msg.Rank = xp, rank
		for _, a := range CheckAchievements(g.db, authID, r) {
			msg.Achievements = append(msg.Achievements, a.ID)
			g.analytics.Track(EvtAchievement, authID, g.sessionID, map[string]string{"id": a.ID})
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.broadcastMsg(Envelope{T: MsgResult, Data: msg})
}

func (g *Game) setPhase(p Phase) {
	g.phase = p
	g.broadcastMsg(Envelope{T: MsgPhase, Data: g.phaseMsg()})
}

func (g *Game) phaseMsg() PhaseMsg {
	m := PhaseMsg{Phase: string(g.phase), Level: g.seq.Index()}
	if lvl := g.seq.Current(); lvl != nil {
		m.Name = lvl.Name()
	}
	return m
}

// broadcastState sends the snapshot and the events queued since the last one
func (g *Game) broadcastState() {
	lvl := g.seq.Current()
	if lvl == nil {
		return
	}
	state := GameState{
		Phase:      string(g.phase),
		Level:      lvl.View(),
		Spectators: len(g.spectators),
		Tick:       g.tick,
	}
	data, err := msgpack.Marshal(&state)
	if err != nil {
		slog.Error("marshal state", "session", g.sessionID, "err", err)
		return
	}
	if len(g.pending) > 0 {
		g.broadcastMsg(Envelope{T: MsgEvents, Data: g.pending})
		g.pending = nil
	}
	if g.pilot != nil {
		g.pilot.SendBinary(data)
	}
	for _, s := range g.spectators {
		s.SendBinary(data)
	}
}

// broadcastMsg sends a message to everyone attached to the run
func (g *Game) broadcastMsg(msg Envelope) {
	if g.pilot != nil {
		g.pilot.SendJSON(msg)
	}
	for _, s := range g.spectators {
		s.SendJSON(msg)
	}
}
