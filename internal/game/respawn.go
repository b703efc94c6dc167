package game

import (
	"log"
	"time"
)

// RespawnManager schedules delayed respawns for modes that allow them.
// A respawn that would land past the round deadline is suppressed
// entirely: the player stays down for the rest of the round.
// Engine-thread only.
type RespawnManager struct {
	bus     *Bus
	pending map[string]*timer
}

// NewRespawnManager wires the manager to the bus.
func NewRespawnManager(bus *Bus) *RespawnManager {
	return &RespawnManager{bus: bus, pending: make(map[string]*timer)}
}

// Schedule queues a respawn for the player after delay. roundDeadline
// caps it: when now+delay falls past the deadline the respawn is
// dropped (zero deadline means uncapped). Emits player:respawn-pending
// when actually queued. Returns whether a respawn was scheduled.
func (rm *RespawnManager) Schedule(p *Player, delay time.Duration, roundDeadline, now time.Time,
	schedule func(string, time.Duration, func(time.Time)) *timer,
	onRespawn func(p *Player, now time.Time)) bool {

	if !roundDeadline.IsZero() && now.Add(delay).After(roundDeadline) {
		log.Printf("💀 %s (#%d) stays down: respawn would land after round end", p.Name, p.Number)
		return false
	}

	rm.Cancel(p.ID)
	rm.bus.Publish(Event{Type: EventTypeRespawnPending, Payload: RespawnPendingPayload{
		ID:        p.ID,
		RespawnIn: int(delay / time.Millisecond),
	}})

	id := p.ID
	rm.pending[id] = schedule("respawn:"+id, delay, func(fireAt time.Time) {
		delete(rm.pending, id)
		onRespawn(p, fireAt)
	})
	return true
}

// Cancel drops the pending respawn for a player, if any.
func (rm *RespawnManager) Cancel(id string) {
	if t, ok := rm.pending[id]; ok {
		t.Cancel()
		delete(rm.pending, id)
	}
}

// CancelAll drops every pending respawn (round end, stop).
func (rm *RespawnManager) CancelAll() {
	for id, t := range rm.pending {
		t.Cancel()
		delete(rm.pending, id)
	}
}

// PendingCount returns how many respawns are queued.
func (rm *RespawnManager) PendingCount() int { return len(rm.pending) }
