package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// Event types for analytics tracking
const (
	EvtSessionStart  = "session_start"
	EvtSessionEnd    = "session_end"
	EvtLevelStart    = "level_start"
	EvtLevelComplete = "level_complete"
	EvtLevelFail     = "level_fail"
	EvtBossPhase     = "boss_phase"
	EvtFragment      = "fragment"
	EvtAchievement   = "achievement"
)

const (
	analyticsBuffer     = 1024
	analyticsBatchSize  = 50
	analyticsFlushEvery = 5 * time.Second
)

// AnalyticsEvent represents a single trackable event
type AnalyticsEvent struct {
	Type      string
	PlayerID  int64
	SessionID string
	Data      string // JSON metadata (optional)
	Timestamp time.Time
}

// Analytics batches events into sqlite from a background writer.
// A nil *Analytics accepts and drops everything.
type Analytics struct {
	db     *DB
	events chan AnalyticsEvent

	mu             sync.RWMutex
	activeSessions int
	activeClients  int
}

// NewAnalytics creates the tracker; call Run to start persisting
func NewAnalytics(db *DB) *Analytics {
	return &Analytics{
		db:     db,
		events: make(chan AnalyticsEvent, analyticsBuffer),
	}
}

// Track enqueues an event for async persistence (non-blocking)
func (a *Analytics) Track(evtType string, playerID int64, sessionID string, data any) {
	if a == nil {
		return
	}
	var payload string
	if data != nil {
		if b, err := json.Marshal(data); err == nil {
			payload = string(b)
		}
	}
	select {
	case a.events <- AnalyticsEvent{
		Type:      evtType,
		PlayerID:  playerID,
		SessionID: sessionID,
		Data:      payload,
		Timestamp: time.Now().UTC(),
	}:
	default:
		// full: drop rather than stall a game loop
	}
}

// SetLive updates the live gauges
func (a *Analytics) SetLive(sessions, clients int) {
	if a == nil {
		return
	}
	a.mu.Lock()
	a.activeSessions = sessions
	a.activeClients = clients
	a.mu.Unlock()
}

// Live returns (sessions, clients)
func (a *Analytics) Live() (int, int) {
	if a == nil {
		return 0, 0
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.activeSessions, a.activeClients
}

// Run writes batches until ctx is cancelled, then drains what is queued
func (a *Analytics) Run(ctx context.Context) error {
	batch := make([]AnalyticsEvent, 0, analyticsBatchSize)
	ticker := time.NewTicker(analyticsFlushEvery)
	defer ticker.Stop()

	for {
		select {
		case evt := <-a.events:
			batch = append(batch, evt)
			if len(batch) >= analyticsBatchSize {
				a.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				a.flush(batch)
				batch = batch[:0]
			}
		case <-ctx.Done():
			for {
				select {
				case evt := <-a.events:
					batch = append(batch, evt)
				default:
					a.flush(batch)
					return nil
				}
			}
		}
	}
}

// flush writes a batch of events in one transaction
func (a *Analytics) flush(events []AnalyticsEvent) {
	if a.db == nil || len(events) == 0 {
		return
	}
	tx, err := a.db.conn.Begin()
	if err != nil {
		slog.Error("analytics: begin tx", "err", err)
		return
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO analytics_events (event_type, player_id, session_id, data, created_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		slog.Error("analytics: prepare", "err", err)
		return
	}
	defer stmt.Close()

	for _, evt := range events {
		pid := sql.NullInt64{Int64: evt.PlayerID, Valid: evt.PlayerID > 0}
		sid := sql.NullString{String: evt.SessionID, Valid: evt.SessionID != ""}
		data := sql.NullString{String: evt.Data, Valid: evt.Data != ""}
		if _, err := stmt.Exec(evt.Type, pid, sid, data, evt.Timestamp.Format(time.RFC3339)); err != nil {
			slog.Error("analytics: insert", "type", evt.Type, "err", err)
		}
	}
	if err := tx.Commit(); err != nil {
		slog.Error("analytics: commit", "err", err)
	}
}

// --- Query methods for the API ---

// EventCounts returns counts of each event type for the last N days
func (a *Analytics) EventCounts(days int) (map[string]int, error) {
	if a == nil || a.db == nil {
		return map[string]int{}, nil
	}
	rows, err := a.db.conn.Query(`
		SELECT event_type, COUNT(*) FROM analytics_events
		WHERE created_at >= date('now', '-' || ? || ' days')
		GROUP BY event_type ORDER BY COUNT(*) DESC
	`, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]int)
	for rows.Next() {
		var evtType string
		var count int
		if err := rows.Scan(&evtType, &count); err != nil {
			continue
		}
		result[evtType] = count
	}
	return result, rows.Err()
}

// LevelFunnel returns starts, clears and failures per level
func (a *Analytics) LevelFunnel() ([]LevelFunnelRow, error) {
	if a == nil || a.db == nil {
		return nil, nil
	}
	rows, err := a.db.conn.Query(`
		SELECT CAST(json_extract(data, '$.level') AS INTEGER) AS lvl,
			SUM(event_type = ?), SUM(event_type = ?), SUM(event_type = ?)
		FROM analytics_events
		WHERE event_type IN (?, ?, ?) AND json_valid(data)
		GROUP BY lvl ORDER BY lvl
	`, EvtLevelStart, EvtLevelComplete, EvtLevelFail, EvtLevelStart, EvtLevelComplete, EvtLevelFail)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []LevelFunnelRow
	for rows.Next() {
		var r LevelFunnelRow
		if err := rows.Scan(&r.Level, &r.Starts, &r.Clears, &r.Fails); err != nil {
			continue
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// LevelFunnelRow holds per-level attempt counts
type LevelFunnelRow struct {
	Level  int `json:"level"`
	Starts int `json:"starts"`
	Clears int `json:"clears"`
	Fails  int `json:"fails"`
}
