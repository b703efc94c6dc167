package game

import "log"

// EventType enum for everything the engine announces to the outside
// world. The transport layer maps these 1:1 onto WebSocket frames;
// nothing else is allowed to couple the engine to the network.
type EventType uint8

const (
	EventTypeUnknown EventType = iota
	EventTypePlayerJoined
	EventTypePlayerLeft
	EventTypePlayerReady
	EventTypeReadyUpdate
	EventTypeReadyEnabled
	EventTypeCountdown
	EventTypeGameStart
	EventTypeRoundStart
	EventTypeRoundEnd
	EventTypeGameFinished
	EventTypePlayerDamage
	EventTypePlayerDied
	EventTypeRespawnPending
	EventTypePlayerRespawn
	EventTypeModeEvent
	EventTypeTeamsUpdate
	EventTypeBaseCaptured
	EventTypeBasePoint
	EventTypeDominationWin
)

// String returns the wire name of the event type.
func (t EventType) String() string {
	switch t {
	case EventTypePlayerJoined:
		return "player:joined"
	case EventTypePlayerLeft:
		return "player:left"
	case EventTypePlayerReady:
		return "player:ready"
	case EventTypeReadyUpdate:
		return "ready:update"
	case EventTypeReadyEnabled:
		return "ready:enabled"
	case EventTypeCountdown:
		return "game:countdown"
	case EventTypeGameStart:
		return "game:start"
	case EventTypeRoundStart:
		return "game:round-start"
	case EventTypeRoundEnd:
		return "round:end"
	case EventTypeGameFinished:
		return "game:finished"
	case EventTypePlayerDamage:
		return "player:damage"
	case EventTypePlayerDied:
		return "player:died"
	case EventTypeRespawnPending:
		return "player:respawn-pending"
	case EventTypePlayerRespawn:
		return "player:respawn"
	case EventTypeModeEvent:
		return "mode:event"
	case EventTypeTeamsUpdate:
		return "teams:update"
	case EventTypeBaseCaptured:
		return "base:captured"
	case EventTypeBasePoint:
		return "base:point"
	case EventTypeDominationWin:
		return "domination:win"
	default:
		return "unknown"
	}
}

// Event pairs a type with its payload struct. Payload is always one of
// the *Payload types below, never a raw map.
type Event struct {
	Type    EventType
	Payload interface{}
}

// Typed payloads, one per event kind.

type PlayerJoinedPayload struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Number int    `json:"number"`
}

type PlayerLeftPayload struct {
	ID string `json:"id"`
}

type PlayerReadyPayload struct {
	ID      string `json:"id"`
	IsReady bool   `json:"isReady"`
}

type ReadyUpdatePayload struct {
	Ready int `json:"ready"`
	Total int `json:"total"`
}

type ReadyEnabledPayload struct {
	Enabled bool `json:"enabled"`
}

type CountdownPayload struct {
	Phase            string `json:"phase"` // "countdown" | "go"
	SecondsRemaining int    `json:"secondsRemaining"`
	TotalSeconds     int    `json:"totalSeconds"`
}

type GameStartPayload struct {
	Mode        string `json:"mode"`
	Sensitivity string `json:"sensitivity"`
}

type RoundStartPayload struct {
	Round int `json:"round"`
}

type RoundEndPayload struct {
	Round      int          `json:"round"`
	Scores     []ScoreEntry `json:"scores"`
	TeamScores []TeamScore  `json:"teamScores,omitempty"`
}

type GameFinishedPayload struct {
	Scores     []ScoreEntry `json:"scores"`
	TeamScores []TeamScore  `json:"teamScores,omitempty"`
}

type PlayerDamagePayload struct {
	ID                string  `json:"id"`
	AccumulatedDamage float64 `json:"accumulatedDamage"`
}

type PlayerDiedPayload struct {
	ID string `json:"id"`
}

type RespawnPendingPayload struct {
	ID        string `json:"id"`
	RespawnIn int    `json:"respawnIn"` // milliseconds
}

type PlayerRespawnPayload struct {
	Player PlayerSnapshot `json:"player"`
}

type ModeEventPayload struct {
	ModeName  string      `json:"modeName"`
	EventType string      `json:"eventType"`
	Data      interface{} `json:"data,omitempty"`
}

type TeamsUpdatePayload struct {
	Teams []TeamSnapshot `json:"teams"`
}

type BaseCapturedPayload struct {
	BaseID     string `json:"baseId"`
	Number     int    `json:"number"`
	OwnerTeam  *int   `json:"ownerTeam"`
	CapturedAt int64  `json:"capturedAt"` // unix millis
}

type BasePointPayload struct {
	BaseID string `json:"baseId"`
	TeamID int    `json:"teamId"`
}

type DominationWinPayload struct {
	TeamID      int `json:"teamId"`
	MatchPoints int `json:"matchPoints"`
}

// Bus is the process-local publish/subscribe channel between the engine
// and its observers. Delivery is synchronous on the engine thread:
// everything published inside a tick is observed before the next tick.
// Subscribers must not call back into engine mutation; transport
// listeners only serialize and hand off to socket queues.
type Bus struct {
	subscribers []func(Event)
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a listener. Subscriptions happen at wiring time,
// before the engine starts; the bus is not safe for concurrent
// subscription afterwards.
func (b *Bus) Subscribe(fn func(Event)) {
	b.subscribers = append(b.subscribers, fn)
}

// Publish delivers the event to every subscriber in subscription order.
// A panicking subscriber is logged and skipped; delivery continues.
func (b *Bus) Publish(ev Event) {
	for _, fn := range b.subscribers {
		b.deliver(fn, ev)
	}
}

func (b *Bus) deliver(fn func(Event), ev Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("⚠️ Event listener panicked on %s: %v", ev.Type, r)
		}
	}()
	fn(ev)
}
