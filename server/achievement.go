package main

// Achievement definitions
type AchievementDef struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"desc"`
}

var Achievements = []AchievementDef{
	{"hive_breaker", "Hive Breaker", "Clear the hive district"},
	{"anchor_cutter", "Anchor Cutter", "Cut every anchor"},
	{"boss_slayer", "Tower Falls", "Defeat the boss"},
	{"archivist", "Archivist", "Collect 5 memory fragments"},
	{"untouchable", "Untouchable", "Clear a level without taking damage"},
	{"marksman", "Marksman", "Clear a level with at least 75% accuracy"},
	{"exterminator", "Exterminator", "Reach 500 total kills"},
}

// achievementEarned reports whether a result and the lifetime stats it was
// folded into satisfy an achievement
func achievementEarned(id string, r LevelResult, stats *StatsRow) bool {
	switch id {
	case "hive_breaker":
		return r.Won && r.Level == 0
	case "anchor_cutter":
		return r.Won && r.Level == 1
	case "boss_slayer":
		return r.Won && r.Level == 2
	case "archivist":
		return stats != nil && stats.Fragments >= 5
	case "untouchable":
		return r.Won && r.DamageTaken == 0
	case "marksman":
		return r.Won && r.Accuracy >= 0.75
	case "exterminator":
		return stats != nil && stats.Kills >= 500
	}
	return false
}

// CheckAchievements unlocks what a finished level attempt earned.
// Returns only the newly unlocked achievements.
func CheckAchievements(db *DB, playerID int64, r LevelResult) []AchievementDef {
	if db == nil || playerID == 0 {
		return nil
	}
	stats, err := db.GetStats(playerID)
	if err != nil || stats == nil {
		return nil
	}

	var unlocked []AchievementDef
	for _, def := range Achievements {
		if !achievementEarned(def.ID, r, stats) {
			continue
		}
		if newlyUnlocked, err := db.UnlockAchievement(playerID, def.ID); err == nil && newlyUnlocked {
			unlocked = append(unlocked, def)
		}
	}
	return unlocked
}
