package main

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// goose keeps its FS and dialect in package state
var gooseMu sync.Mutex

// DB wraps the SQLite database connection
type DB struct {
	conn *sql.DB
}

// PlayerRow represents a player record in the database
type PlayerRow struct {
	ID        int64
	Username  string
	PassHash  string
	CreatedAt time.Time
}

// StatsRow represents lifetime player stats
type StatsRow struct {
	PlayerID  int64
	Kills     int
	Deaths    int
	Clears    int
	Fragments int
	Playtime  float64 // seconds
	XP        int
	Rank      int
}

// LevelResult is one finished level attempt
type LevelResult struct {
	Level       int
	Won         bool
	Duration    float64
	Kills       int
	Fragments   int
	DamageTaken float64
	Accuracy    float64
}

// OpenDB opens (or creates) the SQLite database and applies migrations
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// sqlite allows one writer; a single connection also keeps :memory: shared
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return &DB{conn: conn}, nil
}

func migrate(conn *sql.DB) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}
	if err := goose.Up(conn, "migrations"); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// CreatePlayer creates a new player account (returns player ID)
func (db *DB) CreatePlayer(username, passHash string) (int64, error) {
	res, err := db.conn.Exec(
		"INSERT INTO players (username, pass_hash) VALUES (?, ?)",
		username, passHash,
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	_, err = db.conn.Exec("INSERT INTO stats (player_id) VALUES (?)", id)
	return id, err
}

// GetPlayerByUsername returns a player by username, nil if missing
func (db *DB) GetPlayerByUsername(username string) (*PlayerRow, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, pass_hash, created_at FROM players WHERE username = ?",
		username,
	)
	p := &PlayerRow{}
	err := row.Scan(&p.ID, &p.Username, &p.PassHash, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

// UsernameExists checks if a username is taken
func (db *DB) UsernameExists(username string) (bool, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM players WHERE username = ?", username).Scan(&count)
	return count > 0, err
}

// GetStats returns player stats, nil if missing
func (db *DB) GetStats(playerID int64) (*StatsRow, error) {
	row := db.conn.QueryRow(
		"SELECT player_id, kills, deaths, clears, fragments, playtime, xp, rank FROM stats WHERE player_id = ?",
		playerID,
	)
	s := &StatsRow{}
	err := row.Scan(&s.PlayerID, &s.Kills, &s.Deaths, &s.Clears, &s.Fragments, &s.Playtime, &s.XP, &s.Rank)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

// XPForRank returns the total XP required to reach a given rank.
// Rank 1 requires 0 XP, rank 2 requires 100, etc.
func XPForRank(rank int) int {
	if rank <= 1 {
		return 0
	}
	total := 0.0
	for i := 1; i < rank; i++ {
		total += 100.0 * math.Pow(float64(i), 1.5)
	}
	return int(total)
}

// CalculateRank returns the rank for a given total XP amount
func CalculateRank(totalXP int) int {
	rank := 1
	for {
		if totalXP < XPForRank(rank+1) {
			return rank
		}
		rank++
		if rank >= 100 {
			return 100
		}
	}
}

// XPForResult awards XP for a level attempt: kills always count, a clear
// adds a bonus that grows with the level
func XPForResult(r LevelResult) int {
	xp := r.Kills * 5
	if r.Won {
		xp += 100 * (r.Level + 1)
	}
	return xp
}

// RecordLevelResult folds one attempt into lifetime stats and, for a clear,
// the leaderboard. Returns (totalXP, rank).
func (db *DB) RecordLevelResult(playerID int64, r LevelResult) (int, int, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, 0, err
	}
	defer tx.Rollback()

	clears, deaths := 0, 1
	if r.Won {
		clears, deaths = 1, 0
	}
	_, err = tx.Exec(`
		UPDATE stats SET
			kills = kills + ?,
			deaths = deaths + ?,
			clears = clears + ?,
			fragments = fragments + ?,
			playtime = playtime + ?,
			xp = xp + ?
		WHERE player_id = ?`,
		r.Kills, deaths, clears, r.Fragments, r.Duration, XPForResult(r), playerID,
	)
	if err != nil {
		return 0, 0, err
	}

	if r.Won {
		_, err = tx.Exec(
			`INSERT INTO level_clears (player_id, level, duration, kills, damage_taken, accuracy)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			playerID, r.Level, r.Duration, r.Kills, r.DamageTaken, r.Accuracy,
		)
		if err != nil {
			return 0, 0, err
		}
	}

	var totalXP int
	if err := tx.QueryRow("SELECT xp FROM stats WHERE player_id = ?", playerID).Scan(&totalXP); err != nil {
		return 0, 0, err
	}
	rank := CalculateRank(totalXP)
	if _, err := tx.Exec("UPDATE stats SET rank = ? WHERE player_id = ?", rank, playerID); err != nil {
		return 0, 0, err
	}
	return totalXP, rank, tx.Commit()
}

// LeaderboardEntry represents one row in the leaderboard
type LeaderboardEntry struct {
	Rank     int     `json:"rank"`
	Username string  `json:"username"`
	Level    int     `json:"level"`
	Duration float64 `json:"duration"`
	Kills    int     `json:"kills"`
	Accuracy float64 `json:"accuracy"`
}

// GetLeaderboard returns the fastest clear of each player for one level
func (db *DB) GetLeaderboard(level, limit int) ([]LeaderboardEntry, error) {
	rows, err := db.conn.Query(`
		SELECT p.username, c.level, MIN(c.duration), c.kills, c.accuracy
		FROM level_clears c JOIN players p ON p.id = c.player_id
		WHERE c.level = ?
		GROUP BY c.player_id
		ORDER BY MIN(c.duration) ASC
		LIMIT ?`,
		level, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []LeaderboardEntry{}
	rank := 1
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.Username, &e.Level, &e.Duration, &e.Kills, &e.Accuracy); err != nil {
			return nil, err
		}
		e.Rank = rank
		rank++
		result = append(result, e)
	}
	return result, rows.Err()
}

// ClearedLevels returns the distinct level indices a player has cleared
func (db *DB) ClearedLevels(playerID int64) ([]int, error) {
	rows, err := db.conn.Query(
		"SELECT DISTINCT level FROM level_clears WHERE player_id = ? ORDER BY level",
		playerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var lvl int
		if err := rows.Scan(&lvl); err != nil {
			return nil, err
		}
		out = append(out, lvl)
	}
	return out, rows.Err()
}

// GetSetting returns a persisted setting, "" if missing
func (db *DB) GetSetting(key string) string {
	var v string
	if err := db.conn.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&v); err != nil {
		return ""
	}
	return v
}

// SetSetting upserts a setting
func (db *DB) SetSetting(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	return err
}

// GetAchievements returns the ids a player has unlocked
func (db *DB) GetAchievements(playerID int64) ([]string, error) {
	rows, err := db.conn.Query("SELECT achievement_id FROM achievements WHERE player_id = ? ORDER BY unlocked_at", playerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// UnlockAchievement records an achievement. Returns false if it was already held.
func (db *DB) UnlockAchievement(playerID int64, id string) (bool, error) {
	res, err := db.conn.Exec(
		"INSERT OR IGNORE INTO achievements (player_id, achievement_id) VALUES (?, ?)",
		playerID, id,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
