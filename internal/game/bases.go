package game

import (
	"fmt"
	"sort"
	"time"
)

// Base is a Domination control point: a physical device on its own
// socket that players tap to flip ownership.
type Base struct {
	ID         string    `json:"id"`
	Number     int       `json:"number"`
	SocketID   string    `json:"-"`
	OwnerTeam  *int      `json:"ownerTeam"`
	CapturedAt time.Time `json:"capturedAt"`
	Connected  bool      `json:"connected"`

	nextScoreAt time.Time // Domination scoring epoch, reset on capture
}

// BaseManager registers control-point devices and tracks their socket
// lifecycle. Disconnected bases keep their number but pause scoring.
// Engine-thread only.
type BaseManager struct {
	bases    map[string]*Base  // by base id
	bySocket map[string]string // socket id -> base id
	maxBases int
}

// NewBaseManager creates an empty registry capped at maxBases.
func NewBaseManager(maxBases int) *BaseManager {
	if maxBases <= 0 {
		maxBases = 8
	}
	return &BaseManager{
		bases:    make(map[string]*Base),
		bySocket: make(map[string]string),
		maxBases: maxBases,
	}
}

// Register creates a base for the socket, or revives the one already
// bound to it. Numbers are assigned lowest-free starting at 1.
func (bm *BaseManager) Register(socketID string) (*Base, error) {
	if id, ok := bm.bySocket[socketID]; ok {
		b := bm.bases[id]
		b.Connected = true
		return b, nil
	}
	if len(bm.bases) >= bm.maxBases {
		return nil, fmt.Errorf("base limit reached (%d)", bm.maxBases)
	}

	number := bm.lowestFreeNumber()
	b := &Base{
		ID:        fmt.Sprintf("base-%d", number),
		Number:    number,
		SocketID:  socketID,
		Connected: true,
	}
	bm.bases[b.ID] = b
	bm.bySocket[socketID] = b.ID
	return b, nil
}

// HandleDisconnect pauses the base bound to the socket. Returns the
// base, or nil when the socket owned none.
func (bm *BaseManager) HandleDisconnect(socketID string) *Base {
	id, ok := bm.bySocket[socketID]
	if !ok {
		return nil
	}
	b := bm.bases[id]
	b.Connected = false
	return b
}

// Remove deletes the base and releases its number.
func (bm *BaseManager) Remove(baseID string) bool {
	b, ok := bm.bases[baseID]
	if !ok {
		return false
	}
	delete(bm.bases, baseID)
	delete(bm.bySocket, b.SocketID)
	return true
}

// PurgeDisconnected removes every base whose socket is gone. Returns
// how many were dropped.
func (bm *BaseManager) PurgeDisconnected() int {
	n := 0
	for id, b := range bm.bases {
		if !b.Connected {
			delete(bm.bases, id)
			delete(bm.bySocket, b.SocketID)
			n++
		}
	}
	return n
}

// Capture applies one tap: a neutral base goes to the tapping team,
// an owned base cycles to the next team id regardless of who tapped.
// Disconnected or unknown bases reject the tap.
func (bm *BaseManager) Capture(baseID string, tappingTeam, teamCount int, now time.Time) (*Base, bool) {
	b, ok := bm.bases[baseID]
	if !ok || !b.Connected {
		return nil, false
	}

	var next int
	if b.OwnerTeam == nil {
		next = tappingTeam
	} else {
		next = (*b.OwnerTeam + 1) % teamCount
	}
	b.OwnerTeam = &next
	b.CapturedAt = now
	b.nextScoreAt = time.Time{} // mode re-arms the scoring epoch
	return b, true
}

// Get returns a base by id, nil when unknown.
func (bm *BaseManager) Get(baseID string) *Base {
	return bm.bases[baseID]
}

// All returns every base ordered by number.
func (bm *BaseManager) All() []*Base {
	out := make([]*Base, 0, len(bm.bases))
	for _, b := range bm.bases {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// ResetOwnership clears owners and capture times, keeping registration.
func (bm *BaseManager) ResetOwnership() {
	for _, b := range bm.bases {
		b.OwnerTeam = nil
		b.CapturedAt = time.Time{}
		b.nextScoreAt = time.Time{}
	}
}

// Reset drops every base.
func (bm *BaseManager) Reset() {
	bm.bases = make(map[string]*Base)
	bm.bySocket = make(map[string]string)
}

func (bm *BaseManager) lowestFreeNumber() int {
	used := make(map[int]bool, len(bm.bases))
	for _, b := range bm.bases {
		used[b.Number] = true
	}
	for n := 1; ; n++ {
		if !used[n] {
			return n
		}
	}
}
