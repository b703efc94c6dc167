// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for engine timing, movement
// thresholds, role tuning, and server settings.
//
// IMPORTANT: When changing values, only modify this file.
// All other parts of the codebase should reference these values.
package config

import (
	"os"
	"strconv"
)

// =============================================================================
// ENGINE TIMING
// =============================================================================

// GameConfig holds core simulation settings.
type GameConfig struct {
	TickIntervalMs    int     // Logical tick length in milliseconds
	MotionHistorySize int     // Ring buffer size for recent motion samples
	SmoothingWindow   int     // Samples averaged for intensity (<=1 disables smoothing)
	GravityBaseline   float64 // Accelerometer magnitude at rest (m/s^2)
	DeathThreshold    float64 // Accumulated damage that kills a player
	IdleMotionFloor   float64 // Intensity below this counts as "not moving"
	LobbyGraceSeconds int     // Number reservation window after a lobby disconnect
}

// DefaultGame returns the default simulation configuration.
func DefaultGame() GameConfig {
	return GameConfig{
		TickIntervalMs:    100,
		MotionHistorySize: 10,
		SmoothingWindow:   5,
		GravityBaseline:   9.81,
		DeathThreshold:    100,
		IdleMotionFloor:   1.0,
		LobbyGraceSeconds: 60,
	}
}

// GameFromEnv returns simulation configuration with environment overrides.
func GameFromEnv() GameConfig {
	cfg := DefaultGame()

	if v := getEnvInt("TICK_INTERVAL_MS", 0); v > 0 {
		cfg.TickIntervalMs = v
	}
	if v := getEnvFloat("DEATH_THRESHOLD", 0); v > 0 {
		cfg.DeathThreshold = v
	}
	if v := getEnvInt("LOBBY_GRACE_SECONDS", 0); v > 0 {
		cfg.LobbyGraceSeconds = v
	}

	return cfg
}

// =============================================================================
// MOVEMENT & SENSITIVITY
// =============================================================================

// MovementDefaults holds the initial global movement configuration.
// The live values are owned by the engine and mutated only by mode
// installation and game-event transitions (with capture/restore).
type MovementDefaults struct {
	DangerThreshold  float64 // Intensity above this accumulates damage
	DamageMultiplier float64 // Damage per unit of excess intensity per tick
	OneshotMode      bool    // Any excess motion is instantly lethal
	Sensitivity      string  // Preset label: low | medium | high
}

// DefaultMovement returns the default movement configuration.
func DefaultMovement() MovementDefaults {
	return MovementDefaults{
		DangerThreshold:  3.0,
		DamageMultiplier: 2.0,
		OneshotMode:      false,
		Sensitivity:      "medium",
	}
}

// SensitivityPreset maps a human label to concrete movement values.
type SensitivityPreset struct {
	DangerThreshold  float64
	DamageMultiplier float64
}

// SensitivityPresets returns the fixed preset table.
// "medium" matches DefaultMovement.
func SensitivityPresets() map[string]SensitivityPreset {
	return map[string]SensitivityPreset{
		"low":    {DangerThreshold: 5.0, DamageMultiplier: 1.5},
		"medium": {DangerThreshold: 3.0, DamageMultiplier: 2.0},
		"high":   {DangerThreshold: 2.0, DamageMultiplier: 3.0},
	}
}

// =============================================================================
// ROLE TUNING
// =============================================================================

// RolesConfig holds every role-specific knob. Values referenced as 2x/3x/4x
// in older fixtures are canonical here and nowhere else.
type RolesConfig struct {
	NinjaThresholdFactor     float64 // Multiplies the danger threshold for Ninjas
	VampireBloodlustSeconds  int     // Round time before bloodlust arms
	VampireKillBonus         int     // Points per other-death while bloodlust is armed
	BeastToughness           float64
	BeastHunterBonus         int // Points when any Beast dies
	AngelInvulnSeconds       int // Invulnerability window after the absorbed hit
	SurvivorIntervalSeconds  int // Seconds alive per point
	ExecutionerBonus         int // Points when the assigned target dies
	BodyguardBonus           int // Protection bonus when the target reaches top 3
	BerserkerQuietMs         int // Trailing-edge debounce after damage
	BerserkerToughnessFactor float64
	BerserkerDurationSeconds int
	MasochistIntervalSeconds int     // Seconds per point while at half damage or worse
	SiblingToughness         float64 // Shared with Beast in the source material
	VultureWindowSeconds     int     // Window after a death during which deaths pay out
	VultureBonus             int
	TrollHealDelaySeconds    int     // Quiet time before pending damage heals
	IroncladBonus            float64 // Absolute toughness added by the ability
	IroncladDurationSeconds  int
	ExcitedIdleKillSeconds   int // Excited effect: idle longer than this kills
}

// DefaultRoles returns the default role tuning.
func DefaultRoles() RolesConfig {
	return RolesConfig{
		NinjaThresholdFactor:     3.0,
		VampireBloodlustSeconds:  60,
		VampireKillBonus:         1,
		BeastToughness:           1.5,
		BeastHunterBonus:         2,
		AngelInvulnSeconds:       3,
		SurvivorIntervalSeconds:  30,
		ExecutionerBonus:         3,
		BodyguardBonus:           3,
		BerserkerQuietMs:         300,
		BerserkerToughnessFactor: 2.0,
		BerserkerDurationSeconds: 5,
		MasochistIntervalSeconds: 15,
		SiblingToughness:         1.5,
		VultureWindowSeconds:     5,
		VultureBonus:             1,
		TrollHealDelaySeconds:    5,
		IroncladBonus:            2.0,
		IroncladDurationSeconds:  8,
		ExcitedIdleKillSeconds:   2,
	}
}

// RolesFromEnv returns role tuning with environment overrides.
func RolesFromEnv() RolesConfig {
	cfg := DefaultRoles()

	if v := getEnvFloat("NINJA_THRESHOLD_FACTOR", 0); v > 0 {
		cfg.NinjaThresholdFactor = v
	}
	if v := getEnvInt("VAMPIRE_BLOODLUST_SECONDS", 0); v > 0 {
		cfg.VampireBloodlustSeconds = v
	}

	return cfg
}

// =============================================================================
// MODE TUNING
// =============================================================================

// ModesConfig holds per-mode defaults. Settings and launch options may
// override the round/duration knobs at runtime.
type ModesConfig struct {
	PlacementBonuses          []int // Round placement payout: rank 1, 2, 3, ... (beyond = 0)
	BodyguardPlacementBonuses []int // Bodyguard's override table
	CountdownSeconds          int   // Default pre-round countdown
	RoleRevealSeconds         int   // Minimum countdown when roles are in play
	ReadyDelaySeconds         int   // Pause before ready signals are accepted
	DefaultRoundCount         int
	DefaultRoundDurationMs    int // DeathCount round cap
	DeathCountRespawnDelayMs  int
	DominationIntervalMs      int // Per-base scoring interval
	DominationPointTarget     int
	SpeedShiftCheckSeconds    int     // Phase-transition check cadence
	SpeedShiftFastFactor      float64 // Threshold multiplier in the fast phase
	SpeedShiftRestoreDelayMs  int     // Trailing-motion absorption on fast->slow
	TempoShiftCheckSeconds    int     // Phase-transition check cadence
	TempoShiftIntenseFactor   float64 // Threshold multiplier in the frantic phase
}

// DefaultModes returns the default mode tuning.
func DefaultModes() ModesConfig {
	return ModesConfig{
		PlacementBonuses:          []int{5, 3, 1},
		BodyguardPlacementBonuses: []int{4, 2, 1},
		CountdownSeconds:          5,
		RoleRevealSeconds:         10,
		ReadyDelaySeconds:         3,
		DefaultRoundCount:         1,
		DefaultRoundDurationMs:    120_000,
		DeathCountRespawnDelayMs:  5_000,
		DominationIntervalMs:      1_000,
		DominationPointTarget:     100,
		SpeedShiftCheckSeconds:    5,
		SpeedShiftFastFactor:      2.0,
		SpeedShiftRestoreDelayMs:  1_000,
		TempoShiftCheckSeconds:    5,
		TempoShiftIntenseFactor:   1.5,
	}
}

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int
	SettingsPath string // Location of the persisted settings document
	MatchLogDir  string // Directory for JSONL match audit logs
	MatchLogOn   bool   // Whether the audit log writer runs
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:         3000,
		SettingsPath: "data/settings.json",
		MatchLogDir:  "logs",
		MatchLogOn:   true,
	}
}

// ServerFromEnv returns server configuration with environment overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if v := os.Getenv("SETTINGS_PATH"); v != "" {
		cfg.SettingsPath = v
	}
	if v := os.Getenv("MATCH_LOG_DIR"); v != "" {
		cfg.MatchLogDir = v
	}
	if os.Getenv("MATCH_LOG") == "false" {
		cfg.MatchLogOn = false
	}

	return cfg
}

// =============================================================================
// RESOURCE LIMITS
// =============================================================================

// LimitsConfig controls DoS protection and capacity limits.
type LimitsConfig struct {
	MaxPlayers       int // Hard cap on registered players
	MaxBases         int // Hard cap on Domination control points
	IngestBufferSize int // Motion ingest queue capacity
}

// DefaultLimits returns the default resource limits.
func DefaultLimits() LimitsConfig {
	return LimitsConfig{
		MaxPlayers:       40,
		MaxBases:         8,
		IngestBufferSize: 1024,
	}
}

// LimitsFromEnv returns resource limits with environment overrides.
func LimitsFromEnv() LimitsConfig {
	cfg := DefaultLimits()

	if mp := getEnvInt("MAX_PLAYERS", 0); mp > 0 {
		cfg.MaxPlayers = mp
	}

	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Game     GameConfig
	Movement MovementDefaults
	Roles    RolesConfig
	Modes    ModesConfig
	Server   ServerConfig
	Limits   LimitsConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Game:     GameFromEnv(),
		Movement: DefaultMovement(),
		Roles:    RolesFromEnv(),
		Modes:    DefaultModes(),
		Server:   ServerFromEnv(),
		Limits:   LimitsFromEnv(),
	}
}

// Default returns the complete configuration without environment overrides.
// Tests use this for reproducibility.
func Default() AppConfig {
	return AppConfig{
		Game:     DefaultGame(),
		Movement: DefaultMovement(),
		Roles:    DefaultRoles(),
		Modes:    DefaultModes(),
		Server:   DefaultServer(),
		Limits:   DefaultLimits(),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
