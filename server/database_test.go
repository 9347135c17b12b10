package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenDBMigratesTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twice.db")
	db, err := OpenDB(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = OpenDB(path)
	require.NoError(t, err)
	defer db.Close()

	exists, err := db.UsernameExists("nobody")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCreatePlayerAndStats(t *testing.T) {
	db := openTestDB(t)

	id, err := db.CreatePlayer("trinity", "hash")
	require.NoError(t, err)

	p, err := db.GetPlayerByUsername("trinity")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, id, p.ID)
	assert.Equal(t, "hash", p.PassHash)

	missing, err := db.GetPlayerByUsername("morpheus")
	require.NoError(t, err)
	assert.Nil(t, missing)

	stats, err := db.GetStats(id)
	require.NoError(t, err)
	require.NotNil(t, stats)
	assert.Equal(t, 1, stats.Rank)
	assert.Zero(t, stats.XP)

	_, err = db.CreatePlayer("trinity", "other")
	assert.Error(t, err, "usernames are unique")
}

func TestRankCurve(t *testing.T) {
	assert.Equal(t, 0, XPForRank(1))
	assert.Equal(t, 100, XPForRank(2))
	assert.Equal(t, 1, CalculateRank(99))
	assert.Equal(t, 2, CalculateRank(100))
	assert.Equal(t, 100, CalculateRank(1<<30))
}

func TestRecordLevelResult(t *testing.T) {
	db := openTestDB(t)
	id, err := db.CreatePlayer("neo", "")
	require.NoError(t, err)

	loss := LevelResult{Level: 0, Won: false, Duration: 30, Kills: 4}
	xp, rank, err := db.RecordLevelResult(id, loss)
	require.NoError(t, err)
	assert.Equal(t, 20, xp)
	assert.Equal(t, 1, rank)

	win := LevelResult{Level: 1, Won: true, Duration: 95.5, Kills: 10, Fragments: 2, Accuracy: 0.5}
	xp, rank, err = db.RecordLevelResult(id, win)
	require.NoError(t, err)
	assert.Equal(t, 20+50+200, xp)
	assert.Equal(t, 2, rank)

	stats, err := db.GetStats(id)
	require.NoError(t, err)
	assert.Equal(t, 14, stats.Kills)
	assert.Equal(t, 1, stats.Deaths)
	assert.Equal(t, 1, stats.Clears)
	assert.Equal(t, 2, stats.Fragments)
	assert.InDelta(t, 125.5, stats.Playtime, 1e-9)

	cleared, err := db.ClearedLevels(id)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, cleared)
}

func TestLeaderboardFastestClearPerPlayer(t *testing.T) {
	db := openTestDB(t)
	a, _ := db.CreatePlayer("alice", "")
	b, _ := db.CreatePlayer("bob", "")

	for _, r := range []struct {
		pid int64
		dur float64
	}{{a, 80}, {a, 60}, {b, 70}} {
		_, _, err := db.RecordLevelResult(r.pid, LevelResult{Level: 2, Won: true, Duration: r.dur})
		require.NoError(t, err)
	}
	_, _, err := db.RecordLevelResult(b, LevelResult{Level: 2, Won: false, Duration: 10})
	require.NoError(t, err)

	board, err := db.GetLeaderboard(2, 10)
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, "alice", board[0].Username)
	assert.Equal(t, 60.0, board[0].Duration)
	assert.Equal(t, 1, board[0].Rank)
	assert.Equal(t, "bob", board[1].Username)
	assert.Equal(t, 70.0, board[1].Duration)

	empty, err := db.GetLeaderboard(0, 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSettings(t *testing.T) {
	db := openTestDB(t)
	assert.Equal(t, "", db.GetSetting("missing"))
	require.NoError(t, db.SetSetting("k", "v1"))
	require.NoError(t, db.SetSetting("k", "v2"))
	assert.Equal(t, "v2", db.GetSetting("k"))
}

func TestCheckAchievements(t *testing.T) {
	db := openTestDB(t)
	id, _ := db.CreatePlayer("neo", "")

	r := LevelResult{Level: 0, Won: true, Duration: 40, Kills: 3, Accuracy: 0.8}
	_, _, err := db.RecordLevelResult(id, r)
	require.NoError(t, err)

	got := CheckAchievements(db, id, r)
	var ids []string
	for _, a := range got {
		ids = append(ids, a.ID)
	}
	assert.ElementsMatch(t, []string{"hive_breaker", "untouchable", "marksman"}, ids)

	assert.Empty(t, CheckAchievements(db, id, r), "achievements unlock once")

	stored, err := db.GetAchievements(id)
	require.NoError(t, err)
	assert.Len(t, stored, 3)

	assert.Nil(t, CheckAchievements(nil, id, r))
	assert.Nil(t, CheckAchievements(db, 0, r))
}

func TestAuthRoundTrip(t *testing.T) {
	db := openTestDB(t)
	auth := NewAuth(db)

	id, token, err := auth.Register("  neo ", "secret")
	require.NoError(t, err)

	pid, name, err := auth.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, id, pid)
	assert.Equal(t, "neo", name)

	_, _, err = auth.Register("neo", "secret")
	assert.ErrorIs(t, err, ErrUsernameTaken)

	_, _, err = auth.Login("neo", "nope", "10.0.0.1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	loginID, _, err := auth.Login("neo", "secret", "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, id, loginID)

	// the signing key survives a restart
	again := NewAuth(db)
	_, _, err = again.ValidateToken(token)
	assert.NoError(t, err)
}

func TestAuthRateLimit(t *testing.T) {
	db := openTestDB(t)
	auth := NewAuth(db)
	for i := 0; i < maxLoginAttempts; i++ {
		_, _, err := auth.Login("ghost", "x", "10.0.0.2")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}
	_, _, err := auth.Login("ghost", "x", "10.0.0.2")
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestAnalyticsPersistsOnShutdown(t *testing.T) {
	db := openTestDB(t)
	a := NewAnalytics(db)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	a.Track(EvtLevelStart, 0, "s1", map[string]int{"level": 0})
	a.Track(EvtLevelStart, 0, "s1", map[string]int{"level": 1})
	a.Track(EvtLevelComplete, 0, "s1", map[string]int{"level": 0})
	a.Track(EvtLevelFail, 0, "s1", map[string]int{"level": 1})
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("analytics did not stop")
	}

	counts, err := a.EventCounts(1)
	require.NoError(t, err)
	assert.Equal(t, 2, counts[EvtLevelStart])

	funnel, err := a.LevelFunnel()
	require.NoError(t, err)
	assert.Equal(t, []LevelFunnelRow{
		{Level: 0, Starts: 1, Clears: 1},
		{Level: 1, Starts: 1, Fails: 1},
	}, funnel)
}

func TestNilAnalyticsIsSafe(t *testing.T) {
	var a *Analytics
	a.Track(EvtSessionStart, 1, "s", nil)
	a.SetLive(1, 2)
	s, c := a.Live()
	assert.Zero(t, s)
	assert.Zero(t, c)
	counts, err := a.EventCounts(7)
	assert.NoError(t, err)
	assert.Empty(t, counts)
}
