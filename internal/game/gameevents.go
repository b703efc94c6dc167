package game

import (
	"fmt"
	"math"
	"time"

	"github.com/SimoneRocutto/role-based-joust-sub000/internal/config"
)

// Game-event tags accepted by modes and launch options.
const (
	GameEventSpeedShift = "speedshift"
	GameEventTempoShift = "temposhift"
)

// GameEvent is a timed global modifier. The manager drives the
// lifecycle: ShouldActivate is polled while dormant, OnTick plus
// ShouldDeactivate while running. OnEnd must always leave the engine's
// movement config as it found it.
type GameEvent interface {
	Tag() string
	ShouldActivate(e *Engine, now time.Time) bool
	OnStart(e *Engine, now time.Time)
	OnTick(e *Engine, now time.Time)
	ShouldDeactivate(e *Engine, now time.Time) bool
	OnEnd(e *Engine, now time.Time)
}

var gameEventFactories = map[string]func(cfg config.ModesConfig) GameEvent{
	GameEventSpeedShift: func(cfg config.ModesConfig) GameEvent { return newSpeedShift(cfg) },
	GameEventTempoShift: func(cfg config.ModesConfig) GameEvent { return newTempoShift(cfg) },
}

// NewGameEvent builds a fresh event for the tag. Launch options carry
// client-supplied tags, so an unknown tag is an input error rather
// than a panic.
func NewGameEvent(tag string, cfg config.ModesConfig) (GameEvent, error) {
	factory, ok := gameEventFactories[tag]
	if !ok {
		return nil, fmt.Errorf("unknown game event %q", tag)
	}
	return factory(cfg), nil
}

// KnownGameEvent reports whether the tag names a catalog entry.
func KnownGameEvent(tag string) bool {
	_, ok := gameEventFactories[tag]
	return ok
}

// GameEventManager owns the events registered for the current match.
type GameEventManager struct {
	registered []GameEvent
	active     map[string]bool
}

func newGameEventManager() *GameEventManager {
	return &GameEventManager{active: make(map[string]bool)}
}

// Register adds an event for this match. Duplicate tags collapse to
// the first registration.
func (m *GameEventManager) Register(ev GameEvent) {
	if m.active == nil {
		m.active = make(map[string]bool)
	}
	for _, existing := range m.registered {
		if existing.Tag() == ev.Tag() {
			return
		}
	}
	m.registered = append(m.registered, ev)
}

// Tick advances every registered event one step.
func (m *GameEventManager) Tick(e *Engine, now time.Time) {
	for _, ev := range m.registered {
		if !m.active[ev.Tag()] {
			if ev.ShouldActivate(e, now) {
				ev.OnStart(e, now)
				m.active[ev.Tag()] = true
			}
			continue
		}
		ev.OnTick(e, now)
		if ev.ShouldDeactivate(e, now) {
			ev.OnEnd(e, now)
			delete(m.active, ev.Tag())
		}
	}
}

// DeactivateAll ends every running event, restoring whatever each one
// changed. Registration survives so the next round can re-activate.
func (m *GameEventManager) DeactivateAll(e *Engine, now time.Time) {
	for _, ev := range m.registered {
		if m.active[ev.Tag()] {
			ev.OnEnd(e, now)
			delete(m.active, ev.Tag())
		}
	}
}

// Reset drops all registrations. Used when a match is torn down.
func (m *GameEventManager) Reset() {
	m.registered = nil
	m.active = make(map[string]bool)
}

// ActiveTags returns the tags currently running, in registration order.
func (m *GameEventManager) ActiveTags() []string {
	tags := make([]string, 0, len(m.registered))
	for _, ev := range m.registered {
		if m.active[ev.Tag()] {
			tags = append(tags, ev.Tag())
		}
	}
	return tags
}

// RegisteredTags returns every registered tag, in registration order.
func (m *GameEventManager) RegisteredTags() []string {
	tags := make([]string, 0, len(m.registered))
	for _, ev := range m.registered {
		tags = append(tags, ev.Tag())
	}
	return tags
}

// ---------------------------------------------------------------------------
// SPEEDSHIFT: slow/fast phases on an escalating coin
//
// Every check the event either stays in its phase or flips. The stay
// probability decays with consecutive stays: (3/4)^n while slow,
// (2/3)^n while fast, n starting at 1. The fast phase doubles the
// global danger threshold. Flipping back to slow restores the
// threshold after a short delay so trailing motion from the fast phase
// doesn't instantly kill anyone.
// ---------------------------------------------------------------------------

type speedShiftEvent struct {
	checkEvery   time.Duration
	fastFactor   float64
	restoreDelay time.Duration

	fast          bool
	streak        int
	nextCheckAt   time.Time
	baseThreshold float64
	restoreTimer  *timer
}

func newSpeedShift(cfg config.ModesConfig) *speedShiftEvent {
	return &speedShiftEvent{
		checkEvery:   time.Duration(cfg.SpeedShiftCheckSeconds) * time.Second,
		fastFactor:   cfg.SpeedShiftFastFactor,
		restoreDelay: time.Duration(cfg.SpeedShiftRestoreDelayMs) * time.Millisecond,
	}
}

func (ev *speedShiftEvent) Tag() string { return GameEventSpeedShift }

func (ev *speedShiftEvent) ShouldActivate(e *Engine, now time.Time) bool {
	return e.state == StateActive
}

func (ev *speedShiftEvent) OnStart(e *Engine, now time.Time) {
	ev.fast = false
	ev.streak = 1
	ev.nextCheckAt = now.Add(ev.checkEvery)
	ev.baseThreshold = e.movement.DangerThreshold
	e.publishModeEvent("speedshift:slow", map[string]interface{}{
		"threshold": ev.baseThreshold,
	})
}

func (ev *speedShiftEvent) OnTick(e *Engine, now time.Time) {
	for !now.Before(ev.nextCheckAt) {
		ev.check(e, now)
		ev.nextCheckAt = ev.nextCheckAt.Add(ev.checkEvery)
	}
}

func (ev *speedShiftEvent) ShouldDeactivate(e *Engine, now time.Time) bool {
	return e.state != StateActive
}

func (ev *speedShiftEvent) OnEnd(e *Engine, now time.Time) {
	ev.cancelRestore()
	if ev.baseThreshold > 0 {
		e.movement.DangerThreshold = ev.baseThreshold
	}
	ev.fast = false
}

func (ev *speedShiftEvent) check(e *Engine, now time.Time) {
	var stay float64
	if ev.fast {
		stay = math.Pow(2.0/3.0, float64(ev.streak))
	} else {
		stay = math.Pow(3.0/4.0, float64(ev.streak))
	}
	if e.roll() < stay {
		ev.streak++
		return
	}
	ev.streak = 1
	if ev.fast {
		ev.switchToSlow(e, now)
	} else {
		ev.switchToFast(e, now)
	}
}

func (ev *speedShiftEvent) switchToFast(e *Engine, now time.Time) {
	ev.fast = true
	ev.cancelRestore()
	e.movement.DangerThreshold = ev.baseThreshold * ev.fastFactor
	e.publishModeEvent("speedshift:fast", map[string]interface{}{
		"threshold": e.movement.DangerThreshold,
	})
}

func (ev *speedShiftEvent) switchToSlow(e *Engine, now time.Time) {
	ev.fast = false
	ev.cancelRestore()
	base := ev.baseThreshold
	ev.restoreTimer = e.scheduleTimer("speedshift:restore", ev.restoreDelay, func(time.Time) {
		e.movement.DangerThreshold = base
		ev.restoreTimer = nil
	})
	e.publishModeEvent("speedshift:slow", map[string]interface{}{
		"threshold":   base,
		"restoreInMs": ev.restoreDelay.Milliseconds(),
	})
}

func (ev *speedShiftEvent) cancelRestore() {
	if ev.restoreTimer != nil {
		ev.restoreTimer.Cancel()
		ev.restoreTimer = nil
	}
}

// ---------------------------------------------------------------------------
// TEMPOSHIFT: steady/frantic phases on a faster-flipping coin
//
// Same ladder as SpeedShift with gentler stakes: the frantic phase
// raises the danger threshold by a smaller factor, flips are more
// frequent ((4/5)^n steady, (1/2)^n frantic), and restoration is
// immediate.
// ---------------------------------------------------------------------------

type tempoShiftEvent struct {
	checkEvery    time.Duration
	intenseFactor float64

	frantic       bool
	streak        int
	nextCheckAt   time.Time
	baseThreshold float64
}

func newTempoShift(cfg config.ModesConfig) *tempoShiftEvent {
	return &tempoShiftEvent{
		checkEvery:    time.Duration(cfg.TempoShiftCheckSeconds) * time.Second,
		intenseFactor: cfg.TempoShiftIntenseFactor,
	}
}

func (ev *tempoShiftEvent) Tag() string { return GameEventTempoShift }

func (ev *tempoShiftEvent) ShouldActivate(e *Engine, now time.Time) bool {
	return e.state == StateActive
}

func (ev *tempoShiftEvent) OnStart(e *Engine, now time.Time) {
	ev.frantic = false
	ev.streak = 1
	ev.nextCheckAt = now.Add(ev.checkEvery)
	ev.baseThreshold = e.movement.DangerThreshold
	e.publishModeEvent("temposhift:steady", map[string]interface{}{
		"threshold": ev.baseThreshold,
	})
}

func (ev *tempoShiftEvent) OnTick(e *Engine, now time.Time) {
	for !now.Before(ev.nextCheckAt) {
		ev.check(e, now)
		ev.nextCheckAt = ev.nextCheckAt.Add(ev.checkEvery)
	}
}

func (ev *tempoShiftEvent) ShouldDeactivate(e *Engine, now time.Time) bool {
	return e.state != StateActive
}

func (ev *tempoShiftEvent) OnEnd(e *Engine, now time.Time) {
	if ev.baseThreshold > 0 {
		e.movement.DangerThreshold = ev.baseThreshold
	}
	ev.frantic = false
}

func (ev *tempoShiftEvent) check(e *Engine, now time.Time) {
	var stay float64
	if ev.frantic {
		stay = math.Pow(1.0/2.0, float64(ev.streak))
	} else {
		stay = math.Pow(4.0/5.0, float64(ev.streak))
	}
	if e.roll() < stay {
		ev.streak++
		return
	}
	ev.streak = 1
	ev.frantic = !ev.frantic
	if ev.frantic {
		e.movement.DangerThreshold = ev.baseThreshold * ev.intenseFactor
		e.publishModeEvent("temposhift:frantic", map[string]interface{}{
			"threshold": e.movement.DangerThreshold,
		})
	} else {
		e.movement.DangerThreshold = ev.baseThreshold
		e.publishModeEvent("temposhift:steady", map[string]interface{}{
			"threshold": ev.baseThreshold,
		})
	}
}
