package game

import "time"

// ReadyManager gates round starts on players signalling ready. Signals
// are only accepted inside the ready window, which opens a configured
// delay after a round ends (immediately in test mode).
// Engine-thread only.
type ReadyManager struct {
	conns *ConnectionManager
	bus   *Bus

	enabled     bool
	enableTimer *timer
}

// NewReadyManager wires the manager to the player registry and bus.
func NewReadyManager(conns *ConnectionManager, bus *Bus) *ReadyManager {
	return &ReadyManager{conns: conns, bus: bus}
}

// Enabled reports whether ready signals are currently accepted.
func (rm *ReadyManager) Enabled() bool { return rm.enabled }

// Enable opens the ready window and announces it.
func (rm *ReadyManager) Enable() {
	if rm.enabled {
		return
	}
	rm.enabled = true
	rm.bus.Publish(Event{Type: EventTypeReadyEnabled, Payload: ReadyEnabledPayload{Enabled: true}})
}

// Disable closes the window, cancels a pending delayed enable, and
// announces the change if the window was open.
func (rm *ReadyManager) Disable() {
	if rm.enableTimer != nil {
		rm.enableTimer.Cancel()
		rm.enableTimer = nil
	}
	if !rm.enabled {
		return
	}
	rm.enabled = false
	rm.bus.Publish(Event{Type: EventTypeReadyEnabled, Payload: ReadyEnabledPayload{Enabled: false}})
}

// ScheduleEnable opens the window after delay (immediately when zero).
// Replaces any previously scheduled enable.
func (rm *ReadyManager) ScheduleEnable(delay time.Duration, schedule func(string, time.Duration, func(time.Time)) *timer) {
	if rm.enableTimer != nil {
		rm.enableTimer.Cancel()
		rm.enableTimer = nil
	}
	if delay <= 0 {
		rm.Enable()
		return
	}
	rm.enableTimer = schedule("ready:enable", delay, func(time.Time) {
		rm.enableTimer = nil
		rm.Enable()
	})
}

// SetPlayerReady records a ready signal. Unknown players are a silent
// no-op returning false. While the window is closed only un-ready is
// accepted. Emits player:ready plus a ready:update tally on success.
func (rm *ReadyManager) SetPlayerReady(id string, ready bool, roster []*Player) bool {
	p := rm.conns.Get(id)
	if p == nil {
		return false
	}
	if ready && !rm.enabled {
		return false
	}
	p.Ready = ready

	rm.bus.Publish(Event{Type: EventTypePlayerReady, Payload: PlayerReadyPayload{ID: p.ID, IsReady: ready}})
	readyCount, total := rm.Tally(roster)
	rm.bus.Publish(Event{Type: EventTypeReadyUpdate, Payload: ReadyUpdatePayload{Ready: readyCount, Total: total}})
	return true
}

// Tally counts ready and total among the *connected* roster players.
// Lobby-disconnected players neither count nor block.
func (rm *ReadyManager) Tally(roster []*Player) (ready, total int) {
	for _, p := range roster {
		if !p.Connected {
			continue
		}
		total++
		if p.Ready {
			ready++
		}
	}
	return ready, total
}

// AllReady reports whether every connected roster player is ready.
// An empty connected set is never "all ready".
func (rm *ReadyManager) AllReady(roster []*Player) bool {
	ready, total := rm.Tally(roster)
	return total > 0 && ready == total
}

// ClearAll un-readies every given player and closes the window.
func (rm *ReadyManager) ClearAll(players []*Player) {
	for _, p := range players {
		p.Ready = false
	}
	rm.Disable()
}
