package main

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

const maxSessions = 100

// SessionIdleTimeout is how long a run with nobody attached survives
var SessionIdleTimeout = 5 * time.Minute

var ErrTooManySessions = errors.New("too many active sessions")

// Session is a run that a pilot and spectators can attach to
type Session struct {
	ID         string
	Name       string
	Game       *Game
	lastActive time.Time
}

// SessionManager handles creation, lookup and reaping of runs
type SessionManager struct {
	mu        sync.RWMutex
	sessions  map[string]*Session
	cfg       Config
	db        *DB
	analytics *Analytics
}

// NewSessionManager creates a new SessionManager
func NewSessionManager(cfg Config, db *DB, analytics *Analytics) *SessionManager {
	return &SessionManager{
		sessions:  make(map[string]*Session),
		cfg:       cfg,
		db:        db,
		analytics: analytics,
	}
}

// CreateSession starts a run at level index start
func (sm *SessionManager) CreateSession(name string, start int) (*Session, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if len(sm.sessions) >= maxSessions {
		return nil, ErrTooManySessions
	}

	id := GenerateUUID()
	game, err := NewGame(id, start, sm.cfg, sm.db, sm.analytics)
	if err != nil {
		return nil, err
	}
	sess := &Session{
		ID:         id,
		Name:       name,
		Game:       game,
		lastActive: time.Now(),
	}
	sm.sessions[id] = sess
	go game.Run()
	slog.Info("run created", "session", id, "level", start)
	return sess, nil
}

// GetSession returns a session by ID
func (sm *SessionManager) GetSession(id string) *Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.sessions[id]
}

// MarkActive resets the idle clock of a session
func (sm *SessionManager) MarkActive(id string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sess, ok := sm.sessions[id]; ok {
		sess.lastActive = time.Now()
	}
}

// RemoveClient detaches a pilot or spectator; an empty run is reaped once
// it has been idle for SessionIdleTimeout
func (sm *SessionManager) RemoveClient(sessionID, clientID string) {
	sess := sm.GetSession(sessionID)
	if sess == nil {
		return
	}
	sess.Game.RemoveClient(clientID)
	sm.MarkActive(sessionID)
}

// Count returns the number of live sessions
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// ListSessions returns info about all active sessions
func (sm *SessionManager) ListSessions() []SessionInfo {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	list := make([]SessionInfo, 0, len(sm.sessions))
	for _, sess := range sm.sessions {
		pilot, level, phase, spectators := sess.Game.Info()
		list = append(list, SessionInfo{
			ID:         sess.ID,
			Pilot:      pilot,
			Level:      level,
			Phase:      string(phase),
			Spectators: spectators,
		})
	}
	return list
}

// reap stops and drops runs nobody has been attached to for the idle timeout
func (sm *SessionManager) reap(now time.Time) int {
	sm.mu.Lock()
	var stale []*Session
	for id, sess := range sm.sessions {
		if sess.Game.ClientCount() == 0 && now.Sub(sess.lastActive) >= SessionIdleTimeout {
			stale = append(stale, sess)
			delete(sm.sessions, id)
		}
	}
	sm.mu.Unlock()

	for _, sess := range stale {
		sess.Game.Stop()
		slog.Info("run reaped", "session", sess.ID)
	}
	return len(stale)
}

// Run reaps idle sessions until ctx is cancelled, then stops every run
func (sm *SessionManager) Run(ctx context.Context) error {
	every := SessionIdleTimeout / 8
	if every < 5*time.Millisecond {
		every = 5 * time.Millisecond
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			sm.reap(now)
		case <-ctx.Done():
			sm.StopAll()
			return nil
		}
	}
}

// StopAll stops and drops every run
func (sm *SessionManager) StopAll() {
	sm.mu.Lock()
	all := sm.sessions
	sm.sessions = make(map[string]*Session)
	sm.mu.Unlock()

	for _, sess := range all {
		sess.Game.Stop()
	}
}
