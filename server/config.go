package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the combat server.
type Config struct {
	// Network
	Addr      string `yaml:"addr"`
	ClientDir string `yaml:"client_dir"`
	PublicURL string `yaml:"public_url"` // base for share links, e.g. https://play.example.com

	// Storage
	DBPath string `yaml:"db_path"`

	// Logging: debug, info, warn, error
	LogLevel string `yaml:"log_level"`

	// Simulation
	TickRate      int `yaml:"tick_rate"`
	BroadcastRate int `yaml:"broadcast_rate"`

	Tuning Tuning `yaml:"tuning"`
}

// Tuning is the gameplay balance handed explicitly to the sequencer and
// every level it builds.
type Tuning struct {
	PlayerMaxHealth float64 `yaml:"player_max_health"`

	WeaponFireInterval float64 `yaml:"weapon_fire_interval"`
	WeaponRange        float64 `yaml:"weapon_range"`
	WeaponDamage       float64 `yaml:"weapon_damage"`
	WeaponRecoil       float64 `yaml:"weapon_recoil"`

	EnemyDisposeDelay   float64 `yaml:"enemy_dispose_delay"`
	SpawnerDisposeDelay float64 `yaml:"spawner_dispose_delay"`

	HiveHealth        float64 `yaml:"hive_health"`
	HiveSpawnInterval float64 `yaml:"hive_spawn_interval"`
	HiveCap           int     `yaml:"hive_cap"`
	HiveSwarmChance   float64 `yaml:"hive_swarm_chance"`
	AnchorHealth      float64 `yaml:"anchor_health"`

	BossHealth          float64 `yaml:"boss_health"`
	BossPhase2At        float64 `yaml:"boss_phase2_at"`
	BossPhase3At        float64 `yaml:"boss_phase3_at"`
	StunPeriod          float64 `yaml:"stun_period"`
	StunWindow          float64 `yaml:"stun_window"`
	StunReward          float64 `yaml:"stun_reward"`
	StunFreeze          float64 `yaml:"stun_freeze"`
	MinionChance        float64 `yaml:"minion_chance"`
	MinionCap           int     `yaml:"minion_cap"`
	HazardDamagePerSec  float64 `yaml:"hazard_damage_per_sec"`
	InterferencePeriod  float64 `yaml:"interference_period"`
	PhantomAudioPeriod  float64 `yaml:"phantom_audio_period"`
	DragPeriod          float64 `yaml:"drag_period"`
	DragMultiplier      float64 `yaml:"drag_multiplier"`
	DragDuration        float64 `yaml:"drag_duration"`
	ShadowChance        float64 `yaml:"shadow_chance"`
	ShadowCap           int     `yaml:"shadow_cap"`
	ShadowLifetime      float64 `yaml:"shadow_lifetime"`
	FragmentPickupRange float64 `yaml:"fragment_pickup_range"`
}

// DefaultTuning returns the shipped balance values.
func DefaultTuning() Tuning {
	return Tuning{
		PlayerMaxHealth: 100,

		WeaponFireInterval: 0.15,
		WeaponRange:        100,
		WeaponDamage:       25,
		WeaponRecoil:       0.02,

		EnemyDisposeDelay:   0.6,
		SpawnerDisposeDelay: 0.5,

		HiveHealth:        200,
		HiveSpawnInterval: 5,
		HiveCap:           4,
		HiveSwarmChance:   0.7,
		AnchorHealth:      150,

		BossHealth:          1500,
		BossPhase2At:        0.66,
		BossPhase3At:        0.33,
		StunPeriod:          12,
		StunWindow:          3,
		StunReward:          2,
		StunFreeze:          2,
		MinionChance:        0.005,
		MinionCap:           5,
		HazardDamagePerSec:  5,
		InterferencePeriod:  15,
		PhantomAudioPeriod:  10,
		DragPeriod:          20,
		DragMultiplier:      0.5,
		DragDuration:        2,
		ShadowChance:        0.01,
		ShadowCap:           3,
		ShadowLifetime:      3,
		FragmentPickupRange: 2,
	}
}

// DefaultConfig returns Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Addr:          ":8080",
		ClientDir:     "../client",
		DBPath:        "terror.db",
		LogLevel:      "info",
		TickRate:      60,
		BroadcastRate: 30,
		Tuning:        DefaultTuning(),
	}
}

// LoadConfig loads config from a YAML file over the defaults.
// If the file doesn't exist, returns defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects values the simulation cannot run with
func (c Config) Validate() error {
	if c.TickRate <= 0 {
		return fmt.Errorf("tick_rate must be positive, got %d", c.TickRate)
	}
	if c.BroadcastRate <= 0 || c.BroadcastRate > c.TickRate {
		return fmt.Errorf("broadcast_rate must be in 1..%d, got %d", c.TickRate, c.BroadcastRate)
	}
	t := c.Tuning
	if t.WeaponFireInterval <= 0 || t.WeaponRange <= 0 {
		return fmt.Errorf("weapon interval and range must be positive")
	}
	if t.BossPhase3At >= t.BossPhase2At || t.BossPhase2At >= 1 || t.BossPhase3At <= 0 {
		return fmt.Errorf("boss thresholds must satisfy 0 < phase3 (%v) < phase2 (%v) < 1", t.BossPhase3At, t.BossPhase2At)
	}
	if t.HiveCap < 0 || t.MinionCap < 0 || t.ShadowCap < 0 {
		return fmt.Errorf("caps must not be negative")
	}
	return nil
}

// SlogLevel maps the configured log level name to a slog level
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
