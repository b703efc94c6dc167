package game

import (
	"time"

	"github.com/SimoneRocutto/role-based-joust-sub000/internal/config"
)

// classicMode is last-standing elimination. A match runs a fixed number
// of rounds, or until someone reaches targetScore when that is set.
type classicMode struct {
	modeBase
	roundCount  int
	targetScore int
	placements  PlacementTable
}

func newClassicMode(cfg config.AppConfig, opts LaunchOptions) *classicMode {
	m := &classicMode{
		modeBase:    modeBase{cfg: cfg, opts: opts},
		roundCount:  opts.RoundCount,
		targetScore: opts.TargetScore,
		placements:  PlacementTable(cfg.Modes.PlacementBonuses),
	}
	if m.roundCount <= 0 {
		m.roundCount = cfg.Modes.DefaultRoundCount
	}
	return m
}

func (m *classicMode) Name() string { return ModeClassic }

func (m *classicMode) GetGameEvents() []string { return []string{GameEventSpeedShift} }

// OnPlayerDeath pays the placement bonus for the rank the victim just
// locked in: with k players still alive they finished (k+1)-th.
func (m *classicMode) OnPlayerDeath(e *Engine, victim *Player, now time.Time) {
	rank := e.aliveCount() + 1
	if bonus := m.placementsFor(victim, m.placements).Bonus(rank); bonus > 0 {
		victim.AddPoints(bonus)
	}
}

func (m *classicMode) CheckWinCondition(e *Engine) (roundEnded, gameEnded bool) {
	if e.teams.Enabled() {
		return e.aliveTeamCount() <= 1, false
	}
	return e.aliveCount() <= 1, false
}

func (m *classicMode) OnRoundEnd(e *Engine, now time.Time) bool {
	m.settleRound(e)
	return m.matchDecided(e)
}

// settleRound pays the survivors. In free-for-all the last player
// standing takes first place; with teams the surviving team earns a
// match point.
func (m *classicMode) settleRound(e *Engine) {
	for _, p := range e.alivePlayers() {
		if bonus := m.placementsFor(p, m.placements).Bonus(1); bonus > 0 {
			p.AddPoints(bonus)
		}
	}
	if !e.teams.Enabled() {
		return
	}
	if winner, ok := e.soleAliveTeam(); ok {
		e.teams.AddMatchPoints(winner, 1)
	}
}

func (m *classicMode) matchDecided(e *Engine) bool {
	if m.targetScore > 0 {
		if e.teams.Enabled() {
			for _, t := range e.teams.Standings() {
				if t.MatchPoints >= m.targetScore {
					return true
				}
			}
			return false
		}
		for _, p := range e.roster() {
			if p.TotalPoints >= m.targetScore {
				return true
			}
		}
		return false
	}
	return e.currentRound >= m.roundCount
}
