package game

import (
	"fmt"
	"sort"
	"time"

	"github.com/SimoneRocutto/role-based-joust-sub000/internal/config"
)

// Mode names accepted by Launch.
const (
	ModeClassic    = "classic"
	ModeRoleBased  = "rolebased"
	ModeDeathCount = "deathcount"
	ModeDomination = "domination"
)

// LaunchOptions tunes a match at launch time. Zero values fall back to
// mode defaults from config.
type LaunchOptions struct {
	RoundCount       int      `json:"roundCount,omitempty"`
	TargetScore      int      `json:"targetScore,omitempty"`
	RoundDurationMs  int      `json:"roundDurationMs,omitempty"`
	RespawnDelayMs   int      `json:"respawnDelayMs,omitempty"`
	PointTarget      int      `json:"pointTarget,omitempty"`
	CountdownSeconds *int     `json:"countdownSeconds,omitempty"`
	GameEvents       []string `json:"gameEvents,omitempty"`
	Sensitivity      string   `json:"sensitivity,omitempty"`
}

// Mode is the per-match strategy. All hooks run on the engine thread.
type Mode interface {
	Name() string

	// OnModeSelected installs countdown and movement overrides at launch.
	OnModeSelected(e *Engine)

	// OnGameStart runs once per match, before the first round.
	OnGameStart(e *Engine, now time.Time)

	// OnRoundStart runs when a round becomes active.
	OnRoundStart(e *Engine, now time.Time)

	// OnTick runs every engine tick while a round is active.
	OnTick(e *Engine, now time.Time, dt time.Duration)

	// OnPlayerDeath runs after the victim is marked dead and the death
	// event published.
	OnPlayerDeath(e *Engine, victim *Player, now time.Time)

	// OnRoundEnd settles scoring for the round and reports whether the
	// match is over.
	OnRoundEnd(e *Engine, now time.Time) (gameEnded bool)

	// OnGameEnd restores anything OnModeSelected changed.
	OnGameEnd(e *Engine)

	// CheckWinCondition is polled each tick while active.
	CheckWinCondition(e *Engine) (roundEnded, gameEnded bool)

	// CalculateFinalScores returns the final ordered standings.
	CalculateFinalScores(e *Engine) []ScoreEntry

	// GetRolePool returns role tags to deal to n players, empty when
	// the mode plays without roles.
	GetRolePool(n int) []RoleTag

	// GetGameEvents returns the game-event tags this mode registers.
	GetGameEvents() []string

	// CountdownSeconds is the pre-round countdown length.
	CountdownSeconds(e *Engine) int

	// ReadyDelay is the pause before ready signals reopen after a
	// round ends.
	ReadyDelay(e *Engine) time.Duration
}

// launchValidator is implemented by modes with extra launch
// preconditions (Domination requires teams).
type launchValidator interface {
	ValidateLaunch(e *Engine) error
}

// baseTapper is implemented by modes that react to control-point taps.
type baseTapper interface {
	HandleBaseTap(e *Engine, baseID string, teamID int, now time.Time) bool
}

// modeBase supplies neutral defaults for hooks a mode doesn't care
// about.
type modeBase struct {
	cfg  config.AppConfig
	opts LaunchOptions
}

func (m *modeBase) OnModeSelected(e *Engine) {
	if m.opts.Sensitivity != "" {
		e.applySensitivity(m.opts.Sensitivity)
	}
}

func (m *modeBase) OnGameStart(*Engine, time.Time)                 {}
func (m *modeBase) OnRoundStart(*Engine, time.Time)                {}
func (m *modeBase) OnTick(*Engine, time.Time, time.Duration)       {}
func (m *modeBase) OnPlayerDeath(*Engine, *Player, time.Time)      {}
func (m *modeBase) OnRoundEnd(*Engine, time.Time) bool             { return true }
func (m *modeBase) OnGameEnd(e *Engine)                            { e.restoreMovementConfig() }
func (m *modeBase) CheckWinCondition(*Engine) (bool, bool)         { return false, false }
func (m *modeBase) GetRolePool(int) []RoleTag                      { return nil }
func (m *modeBase) GetGameEvents() []string                        { return nil }

func (m *modeBase) CalculateFinalScores(e *Engine) []ScoreEntry {
	return rankByTotalPoints(e.roster())
}

func (m *modeBase) CountdownSeconds(e *Engine) int {
	if m.opts.CountdownSeconds != nil && *m.opts.CountdownSeconds >= 0 {
		return *m.opts.CountdownSeconds
	}
	return m.cfg.Modes.CountdownSeconds
}

func (m *modeBase) ReadyDelay(e *Engine) time.Duration {
	return time.Duration(m.cfg.Modes.ReadyDelaySeconds) * time.Second
}

// placementsFor resolves the bonus table for a player, honoring role
// overrides.
func (m *modeBase) placementsFor(p *Player, table PlacementTable) PlacementTable {
	if p.Role != nil {
		if override := p.Role.PlacementBonuses(); override != nil {
			return override
		}
	}
	return table
}

var modeFactories = map[string]func(cfg config.AppConfig, opts LaunchOptions) Mode{
	ModeClassic:    func(cfg config.AppConfig, opts LaunchOptions) Mode { return newClassicMode(cfg, opts) },
	ModeRoleBased:  func(cfg config.AppConfig, opts LaunchOptions) Mode { return newRoleBasedMode(cfg, opts) },
	ModeDeathCount: func(cfg config.AppConfig, opts LaunchOptions) Mode { return newDeathCountMode(cfg, opts) },
	ModeDomination: func(cfg config.AppConfig, opts LaunchOptions) Mode { return newDominationMode(cfg, opts) },
}

// NewMode builds the strategy for a launch request. Mode names arrive
// from clients, so unknown names are reported, not fatal.
func NewMode(name string, cfg config.AppConfig, opts LaunchOptions) (Mode, error) {
	factory, ok := modeFactories[name]
	if !ok {
		return nil, fmt.Errorf("unknown mode %q", name)
	}
	return factory(cfg, opts), nil
}

// KnownModes lists the registered mode names, sorted.
func KnownModes() []string {
	names := make([]string, 0, len(modeFactories))
	for name := range modeFactories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
