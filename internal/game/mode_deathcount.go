package game

import (
	"time"

	"github.com/SimoneRocutto/role-based-joust-sub000/internal/config"
)

// deathCountMode keeps every player in the fight: deaths respawn after
// a delay, a timer caps the round, and the fewest deaths wins it.
type deathCountMode struct {
	modeBase
	roundCount    int
	roundDuration time.Duration
	respawnDelay  time.Duration
	placements    PlacementTable

	roundDeaths   map[string]int
	roundDeadline time.Time
}

func newDeathCountMode(cfg config.AppConfig, opts LaunchOptions) *deathCountMode {
	m := &deathCountMode{
		modeBase:      modeBase{cfg: cfg, opts: opts},
		roundCount:    opts.RoundCount,
		roundDuration: time.Duration(opts.RoundDurationMs) * time.Millisecond,
		respawnDelay:  time.Duration(opts.RespawnDelayMs) * time.Millisecond,
		placements:    PlacementTable(cfg.Modes.PlacementBonuses),
	}
	if m.roundCount <= 0 {
		m.roundCount = cfg.Modes.DefaultRoundCount
	}
	if m.roundDuration <= 0 {
		m.roundDuration = time.Duration(cfg.Modes.DefaultRoundDurationMs) * time.Millisecond
	}
	if m.respawnDelay <= 0 {
		m.respawnDelay = time.Duration(cfg.Modes.DeathCountRespawnDelayMs) * time.Millisecond
	}
	return m
}

func (m *deathCountMode) Name() string { return ModeDeathCount }

func (m *deathCountMode) GetGameEvents() []string { return []string{GameEventTempoShift} }

func (m *deathCountMode) OnRoundStart(e *Engine, now time.Time) {
	m.roundDeaths = make(map[string]int)
	m.roundDeadline = now.Add(m.roundDuration)
}

// OnPlayerDeath books the death and queues the comeback. Respawns that
// would land past the round deadline are suppressed: the player stays
// down for the remainder.
func (m *deathCountMode) OnPlayerDeath(e *Engine, victim *Player, now time.Time) {
	m.roundDeaths[victim.ID]++
	e.respawns.Schedule(victim, m.respawnDelay, m.roundDeadline, now, e.scheduleTimer, e.respawnPlayer)
}

func (m *deathCountMode) CheckWinCondition(e *Engine) (roundEnded, gameEnded bool) {
	if !m.roundDeadline.IsZero() && !e.now().Before(m.roundDeadline) {
		return true, false
	}
	// Everyone down with no comebacks queued ends the round early.
	if e.aliveCount() == 0 && e.respawns.PendingCount() == 0 {
		return true, false
	}
	return false, false
}

func (m *deathCountMode) OnRoundEnd(e *Engine, now time.Time) bool {
	m.settleRound(e)
	return e.currentRound >= m.roundCount
}

// settleRound pays placement bonuses from fewest to most deaths this
// round; ties share the better bonus. With teams, the side with the
// lower death sum takes the match point, both sides on a tie.
func (m *deathCountMode) settleRound(e *Engine) {
	roster := e.roster()
	ranked := rankAscendingBy(roster, func(p *Player) int { return m.roundDeaths[p.ID] })
	for _, entry := range ranked {
		if bonus := m.placements.Bonus(entry.Rank); bonus > 0 {
			if p := e.playerByID(entry.PlayerID); p != nil {
				p.AddPoints(bonus)
			}
		}
	}

	if !e.teams.Enabled() {
		return
	}
	sums := make(map[int]int)
	for _, p := range roster {
		if p.Team != nil {
			sums[*p.Team] += m.roundDeaths[p.ID]
		}
	}
	if len(sums) == 0 {
		return
	}
	best := -1
	for _, total := range sums {
		if best < 0 || total < best {
			best = total
		}
	}
	for teamID, total := range sums {
		if total == best {
			e.teams.AddMatchPoints(teamID, 1)
		}
	}
}
