package game

import "time"

// RoundSetupManager resets per-round player state and runs the pre-round
// countdown, emitting one event per second. Engine-thread only.
type RoundSetupManager struct {
	bus *Bus

	current *timer
	running bool
}

// NewRoundSetupManager wires the manager to the bus.
func NewRoundSetupManager(bus *Bus) *RoundSetupManager {
	return &RoundSetupManager{bus: bus}
}

// ResetPlayers puts every roster player into round-fresh state. Role
// assignment and role round hooks are the caller's job.
func (rs *RoundSetupManager) ResetPlayers(players []*Player) {
	for _, p := range players {
		p.ResetForRound()
	}
}

// StartCountdown emits game:countdown once per second from totalSeconds
// down to 1, then a final "go", then invokes onComplete. Zero seconds
// goes straight to "go" and completes synchronously.
func (rs *RoundSetupManager) StartCountdown(totalSeconds int, now time.Time,
	schedule func(string, time.Duration, func(time.Time)) *timer,
	onComplete func(now time.Time)) {

	rs.Cancel()
	rs.running = true

	var step func(remaining int, at time.Time)
	step = func(remaining int, at time.Time) {
		if remaining <= 0 {
			rs.bus.Publish(Event{Type: EventTypeCountdown, Payload: CountdownPayload{
				Phase:            "go",
				SecondsRemaining: 0,
				TotalSeconds:     totalSeconds,
			}})
			rs.running = false
			rs.current = nil
			onComplete(at)
			return
		}
		rs.bus.Publish(Event{Type: EventTypeCountdown, Payload: CountdownPayload{
			Phase:            "countdown",
			SecondsRemaining: remaining,
			TotalSeconds:     totalSeconds,
		}})
		rs.current = schedule("countdown", time.Second, func(fireAt time.Time) {
			step(remaining-1, fireAt)
		})
	}

	step(totalSeconds, now)
}

// Cancel aborts a running countdown, leaving no pending callbacks.
func (rs *RoundSetupManager) Cancel() {
	if rs.current != nil {
		rs.current.Cancel()
		rs.current = nil
	}
	rs.running = false
}

// Running reports whether a countdown is in flight.
func (rs *RoundSetupManager) Running() bool { return rs.running }
