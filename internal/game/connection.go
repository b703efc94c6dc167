package game

import (
	"fmt"
	"log"
	"sort"
	"time"
)

// ConnectionManager owns the player registry: identity, numbers,
// socket binding, and lobby-disconnect grace. The engine and everything
// else hold non-owning references obtained by id lookup.
// Engine-thread only.
type ConnectionManager struct {
	players  map[string]*Player
	bySocket map[string]string // socket id -> player id

	graceTimers map[string]*timer
	grace       time.Duration
	maxPlayers  int
	playerOpts  PlayerOptions

	// schedule plugs grace timers into the engine's timer queue so
	// they stay deterministic under FastForward.
	schedule func(tag string, delay time.Duration, fn func(now time.Time)) *timer
}

// NewConnectionManager wires a registry. schedule must enqueue on the
// owning engine's timer queue.
func NewConnectionManager(maxPlayers int, grace time.Duration, opts PlayerOptions, schedule func(string, time.Duration, func(time.Time)) *timer) *ConnectionManager {
	return &ConnectionManager{
		players:     make(map[string]*Player),
		bySocket:    make(map[string]string),
		graceTimers: make(map[string]*timer),
		grace:       grace,
		maxPlayers:  maxPlayers,
		playerOpts:  opts,
		schedule:    schedule,
	}
}

// Register binds a player to a socket. A known id reconnects: the
// number survives, any grace timer dies, and the socket rebinds. A new
// id gets the smallest free number >= 1.
func (cm *ConnectionManager) Register(id, socketID, name string, isBot bool) (*Player, bool, error) {
	if p, ok := cm.players[id]; ok {
		cm.cancelGrace(id)
		delete(cm.bySocket, p.SocketID)
		p.SocketID = socketID
		p.Connected = true
		if name != "" {
			p.Name = name
		}
		if socketID != "" {
			cm.bySocket[socketID] = id
		}
		return p, false, nil
	}

	if len(cm.players) >= cm.maxPlayers {
		return nil, false, fmt.Errorf("player limit reached (%d)", cm.maxPlayers)
	}

	opts := cm.playerOpts
	opts.IsBot = isBot
	p := NewPlayer(id, name, opts)
	p.SocketID = socketID
	p.Number = cm.lowestFreeNumber()
	cm.players[id] = p
	if socketID != "" {
		cm.bySocket[socketID] = id
	}
	return p, true, nil
}

// HandleSocketDisconnect marks the socket's player disconnected and
// clears readiness. The number stays reserved; mid-game reconnects pick
// the player back up by id. Unknown sockets are a no-op.
func (cm *ConnectionManager) HandleSocketDisconnect(socketID string) *Player {
	id, ok := cm.bySocket[socketID]
	if !ok {
		return nil
	}
	delete(cm.bySocket, socketID)
	p := cm.players[id]
	p.Connected = false
	p.Ready = false
	p.SocketID = ""
	return p
}

// HandleLobbyDisconnect is the waiting-room variant: the player also
// gets a grace timer, and onExpiry runs when it lapses without a
// reconnect. Re-registration within the window cancels it.
func (cm *ConnectionManager) HandleLobbyDisconnect(socketID string, onExpiry func(p *Player, now time.Time)) *Player {
	p := cm.HandleSocketDisconnect(socketID)
	if p == nil {
		return nil
	}

	cm.cancelGrace(p.ID)
	id := p.ID
	cm.graceTimers[id] = cm.schedule("grace:"+id, cm.grace, func(now time.Time) {
		delete(cm.graceTimers, id)
		player, ok := cm.players[id]
		if !ok || player.Connected {
			return
		}
		log.Printf("🔌 Grace expired for %s (#%d)", player.Name, player.Number)
		onExpiry(player, now)
	})
	return p
}

// Remove deletes all state for the player and frees the number.
func (cm *ConnectionManager) Remove(id string) *Player {
	p, ok := cm.players[id]
	if !ok {
		return nil
	}
	cm.cancelGrace(id)
	delete(cm.players, id)
	if p.SocketID != "" {
		delete(cm.bySocket, p.SocketID)
	}
	return p
}

// Get returns a player by id, nil when unknown.
func (cm *ConnectionManager) Get(id string) *Player {
	return cm.players[id]
}

// BySocket returns the player bound to the socket, nil when unknown.
func (cm *ConnectionManager) BySocket(socketID string) *Player {
	id, ok := cm.bySocket[socketID]
	if !ok {
		return nil
	}
	return cm.players[id]
}

// All returns every registered player ordered by number.
func (cm *ConnectionManager) All() []*Player {
	out := make([]*Player, 0, len(cm.players))
	for _, p := range cm.players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// Count returns the number of registered players, connected or not.
func (cm *ConnectionManager) Count() int { return len(cm.players) }

// ConnectedCount returns how many players currently hold a socket.
func (cm *ConnectionManager) ConnectedCount() int {
	n := 0
	for _, p := range cm.players {
		if p.Connected {
			n++
		}
	}
	return n
}

// Reset drops every player and pending grace timer.
func (cm *ConnectionManager) Reset() {
	for id := range cm.graceTimers {
		cm.cancelGrace(id)
	}
	cm.players = make(map[string]*Player)
	cm.bySocket = make(map[string]string)
}

func (cm *ConnectionManager) cancelGrace(id string) {
	if t, ok := cm.graceTimers[id]; ok {
		t.Cancel()
		delete(cm.graceTimers, id)
	}
}

// ClearGraceTimers forgets every pending grace expiration. Used when
// the engine flushes its whole timer queue on a match stop.
func (cm *ConnectionManager) ClearGraceTimers() {
	for id := range cm.graceTimers {
		cm.cancelGrace(id)
	}
}

// lowestFreeNumber scans for the smallest unused number >= 1. The
// roster is dozens of phones, not thousands; a linear scan is fine.
func (cm *ConnectionManager) lowestFreeNumber() int {
	used := make(map[int]bool, len(cm.players))
	for _, p := range cm.players {
		used[p.Number] = true
	}
	for n := 1; ; n++ {
		if !used[n] {
			return n
		}
	}
}
