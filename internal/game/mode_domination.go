package game

import (
	"fmt"
	"time"

	"github.com/SimoneRocutto/role-based-joust-sub000/internal/config"
)

// dominationMode is team control-point capture. Bases score a point
// for their owning team on a fixed interval; the first team to the
// point target takes the match. There is no round structure: the
// single "round" runs until the target is hit.
type dominationMode struct {
	modeBase
	interval     time.Duration
	pointTarget  int
	respawnDelay time.Duration

	winnerTeam *int
}

func newDominationMode(cfg config.AppConfig, opts LaunchOptions) *dominationMode {
	m := &dominationMode{
		modeBase:     modeBase{cfg: cfg, opts: opts},
		interval:     time.Duration(cfg.Modes.DominationIntervalMs) * time.Millisecond,
		pointTarget:  opts.PointTarget,
		respawnDelay: time.Duration(opts.RespawnDelayMs) * time.Millisecond,
	}
	if m.pointTarget <= 0 {
		m.pointTarget = cfg.Modes.DominationPointTarget
	}
	if m.respawnDelay <= 0 {
		m.respawnDelay = time.Duration(cfg.Modes.DeathCountRespawnDelayMs) * time.Millisecond
	}
	return m
}

func (m *dominationMode) Name() string { return ModeDomination }

func (m *dominationMode) ValidateLaunch(e *Engine) error {
	if !e.teams.Enabled() {
		return fmt.Errorf("domination requires teams")
	}
	return nil
}

func (m *dominationMode) OnRoundStart(e *Engine, now time.Time) {
	m.winnerTeam = nil
	e.bases.ResetOwnership()
}

// OnPlayerDeath keeps players cycling back in; downtime is the only
// cost of dying here.
func (m *dominationMode) OnPlayerDeath(e *Engine, victim *Player, now time.Time) {
	e.respawns.Schedule(victim, m.respawnDelay, time.Time{}, now, e.scheduleTimer, e.respawnPlayer)
}

// HandleBaseTap advances the base's owner one step around the team
// cycle and restarts its scoring clock. Taps are live only during an
// active round and only for connected bases.
func (m *dominationMode) HandleBaseTap(e *Engine, baseID string, teamID int, now time.Time) bool {
	if e.state != StateActive {
		return false
	}
	if teamID < 0 || teamID >= e.teams.Count() {
		return false
	}
	b, ok := e.bases.Capture(baseID, teamID, e.teams.Count(), now)
	if !ok {
		return false
	}
	if b.OwnerTeam != nil {
		b.nextScoreAt = now.Add(m.interval)
	}
	e.bus.Publish(Event{Type: EventTypeBaseCaptured, Payload: BaseCapturedPayload{
		BaseID:     b.ID,
		Number:     b.Number,
		OwnerTeam:  b.OwnerTeam,
		CapturedAt: b.CapturedAt.UnixMilli(),
	}})
	return true
}

// OnTick pays owners for every full interval their base has held.
func (m *dominationMode) OnTick(e *Engine, now time.Time, dt time.Duration) {
	paid := false
	for _, b := range e.bases.All() {
		if b.OwnerTeam == nil || b.nextScoreAt.IsZero() {
			continue
		}
		if !b.Connected {
			// A paused base accrues nothing. Keep its epoch moving so a
			// reconnect does not back-pay the offline stretch.
			for !now.Before(b.nextScoreAt) {
				b.nextScoreAt = b.nextScoreAt.Add(m.interval)
			}
			continue
		}
		for !now.Before(b.nextScoreAt) {
			e.teams.AddMatchPoints(*b.OwnerTeam, 1)
			e.bus.Publish(Event{Type: EventTypeBasePoint, Payload: BasePointPayload{
				BaseID: b.ID,
				TeamID: *b.OwnerTeam,
			}})
			b.nextScoreAt = b.nextScoreAt.Add(m.interval)
			paid = true
		}
	}
	if paid {
		e.publishTeamsUpdate()
	}
}

func (m *dominationMode) CheckWinCondition(e *Engine) (roundEnded, gameEnded bool) {
	for _, t := range e.teams.Standings() {
		if t.MatchPoints >= m.pointTarget {
			id := t.TeamID
			m.winnerTeam = &id
			return true, true
		}
	}
	return false, false
}

func (m *dominationMode) OnRoundEnd(e *Engine, now time.Time) bool {
	if m.winnerTeam != nil {
		e.bus.Publish(Event{Type: EventTypeDominationWin, Payload: DominationWinPayload{
			TeamID:      *m.winnerTeam,
			MatchPoints: e.teams.MatchPoints(*m.winnerTeam),
		}})
	}
	return true
}
