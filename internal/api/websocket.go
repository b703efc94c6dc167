package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/SimoneRocutto/role-based-joust-sub000/internal/game"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	// MaxWSConnectionsTotal caps sockets across all client kinds.
	MaxWSConnectionsTotal = 500

	// MaxWSConnectionsPerIP allows a NATed household of phones without
	// letting one device hog slots.
	MaxWSConnectionsPerIP = 16

	// wsSendBuffer is the per-client outbound queue. A client that
	// cannot drain this is dropped rather than stalling the hub.
	wsSendBuffer = 256

	wsMaxMessageSize = 4096
	wsWriteTimeout   = 5 * time.Second

	// Inbound message budget per socket. Phones stream motion at
	// 20-50 Hz; anything past this is a misbehaving client.
	wsMessagesPerSecond = 120
	wsMessageBurst      = 240
)

// Client kinds, also the label values of the connection gauge.
const (
	ClientKindPlayer    = "player"
	ClientKindDashboard = "dashboard"
	ClientKindBase      = "base"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if IsAllowedOrigin(origin) {
			return true
		}
		log.Printf("⚠️ WebSocket connection rejected from origin: %s", origin)
		RecordConnectionRejected("origin")
		return false
	},
}

var socketSeq uint64

// wsInbound is the envelope for client->server frames.
type wsInbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// wsClient is one connected socket.
type wsClient struct {
	hub      *WebSocketHub
	conn     *websocket.Conn
	ip       string
	kind     string
	socketID string
	send     chan []byte
	done     chan struct{} // closed by the hub when the client is dropped
	limiter  *rate.Limiter

	// Bound identities, set by the first join/register frame.
	playerID string
	baseID   string
}

// wsFrame is a queued broadcast; an empty kind targets every client.
type wsFrame struct {
	kind string
	data []byte
}

// WebSocketHub owns every socket and fans engine events out to them.
// All map access happens on the Run goroutine via channels, except the
// read-mostly count helpers guarded by mu.
type WebSocketHub struct {
	engine EngineInterface
	ingest *MotionQueue

	clients    map[*wsClient]bool
	broadcast  chan wsFrame
	register   chan *wsClient
	unregister chan *wsClient
	stopChan   chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex

	wsLimiter *WebSocketRateLimiter
}

// NewWebSocketHub creates a hub. Run must be started before clients
// connect.
func NewWebSocketHub(engine EngineInterface, ingest *MotionQueue) *WebSocketHub {
	return &WebSocketHub{
		engine:     engine,
		ingest:     ingest,
		clients:    make(map[*wsClient]bool),
		broadcast:  make(chan wsFrame, 256),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		stopChan:   make(chan struct{}),
		wsLimiter:  NewWebSocketRateLimiter(MaxWSConnectionsPerIP),
	}
}

// BindBus forwards every engine event to connected clients and feeds
// the event metrics. Call during wiring, before the engine starts.
func (h *WebSocketHub) BindBus(bus *game.Bus) {
	bus.Subscribe(func(ev game.Event) {
		name := ev.Type.String()
		RecordEventPublished(name)
		if ev.Type == game.EventTypePlayerDied {
			RecordDeath()
		}
		h.Broadcast(name, ev.Payload)
	})
}

// Run processes register/unregister/broadcast until Stop.
func (h *WebSocketHub) Run() {
	for {
		select {
		case <-h.stopChan:
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()

			log.Printf("🔌 %s client connected from %s (%d total)", client.kind, client.ip, count)
			h.refreshGauges()

		case client := <-h.unregister:
			h.dropClient(client)

		case frame := <-h.broadcast:
			h.mu.RLock()
			var slow []*wsClient
			for client := range h.clients {
				if frame.kind != "" && client.kind != frame.kind {
					continue
				}
				select {
				case client.send <- frame.data:
				default:
					slow = append(slow, client)
				}
			}
			h.mu.RUnlock()

			// A full send buffer means the client stopped reading;
			// drop it instead of stalling everyone else.
			for _, client := range slow {
				log.Printf("⚠️ Dropping slow %s client %s", client.kind, client.ip)
				h.dropClient(client)
			}
			IncrementWSMessages()
		}
	}
}

// Stop halts the Run loop. Open sockets close when the process exits.
func (h *WebSocketHub) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopChan)
	})
}

func (h *WebSocketHub) dropClient(client *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	count := len(h.clients)
	h.mu.Unlock()

	h.wsLimiter.Release(client.ip)
	// send stays open: the client's readPump may be queueing a direct
	// reply concurrently. done unblocks the writePump instead.
	close(client.done)
	client.conn.Close()
	h.notifyDisconnect(client)

	log.Printf("👋 %s client disconnected (%d remaining)", client.kind, count)
	h.refreshGauges()
}

// notifyDisconnect tells the engine a socket went away.
func (h *WebSocketHub) notifyDisconnect(client *wsClient) {
	switch client.kind {
	case ClientKindPlayer:
		h.engine.HandleSocketDisconnect(client.socketID)
	case ClientKindBase:
		h.engine.HandleBaseSocketDisconnect(client.socketID)
	}
}

// Broadcast queues an event for every client.
func (h *WebSocketHub) Broadcast(event string, data interface{}) {
	h.broadcastKind("", event, data)
}

// BroadcastTo queues an event for one client kind.
func (h *WebSocketHub) BroadcastTo(kind, event string, data interface{}) {
	h.broadcastKind(kind, event, data)
}

func (h *WebSocketHub) broadcastKind(kind, event string, data interface{}) {
	msg, err := json.Marshal(map[string]interface{}{
		"event": event,
		"data":  data,
	})
	if err != nil {
		return
	}

	select {
	case h.broadcast <- wsFrame{kind: kind, data: msg}:
	default:
		// Hub saturated; the next state sync carries the truth.
	}
}

// ClientCount returns the number of connected clients.
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *WebSocketHub) refreshGauges() {
	h.mu.RLock()
	counts := map[string]int{ClientKindPlayer: 0, ClientKindDashboard: 0, ClientKindBase: 0}
	for client := range h.clients {
		counts[client.kind]++
	}
	h.mu.RUnlock()
	for kind, count := range counts {
		UpdateWSConnections(kind, count)
	}
}

// StartStateLoop pushes a periodic full-state frame to dashboards and
// keeps the player gauges fresh. One goroutine, stopped with the hub.
func (h *WebSocketHub) StartStateLoop(interval time.Duration) {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-h.stopChan:
				return
			case <-ticker.C:
				snap := h.engine.Snapshot()
				connected := 0
				for _, p := range snap.Players {
					if p.IsConnected {
						connected++
					}
				}
				UpdatePlayerGauges(connected, snap.AlivePlayers)

				if h.ClientCount() == 0 {
					continue
				}
				h.BroadcastTo(ClientKindDashboard, "game:state", snap)
			}
		}
	}()
}

// HandleWebSocket returns the upgrade handler for one client kind.
func (h *WebSocketHub) HandleWebSocket(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := GetClientIP(r)

		if h.ClientCount() >= MaxWSConnectionsTotal {
			log.Printf("⚠️ WebSocket connection rejected: total limit reached (%d)", MaxWSConnectionsTotal)
			RecordConnectionRejected("ws_total_limit")
			http.Error(w, "Too many connections", http.StatusServiceUnavailable)
			return
		}

		if !h.wsLimiter.Allow(ip) {
			log.Printf("⚠️ WebSocket connection rejected from %s: per-IP limit reached", ip)
			RecordConnectionRejected("ws_ip_limit")
			http.Error(w, "Too many connections from your IP", http.StatusTooManyRequests)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("WebSocket upgrade error: %v", err)
			h.wsLimiter.Release(ip)
			return
		}

		client := &wsClient{
			hub:      h,
			conn:     conn,
			ip:       ip,
			kind:     kind,
			socketID: newSocketID(kind),
			send:     make(chan []byte, wsSendBuffer),
			done:     make(chan struct{}),
			limiter:  rate.NewLimiter(wsMessagesPerSecond, wsMessageBurst),
		}
		h.register <- client

		go client.writePump()
		go client.readPump()
	}
}

func newSocketID(kind string) string {
	return kind + "-" + itoa(atomic.AddUint64(&socketSeq, 1))
}

func itoa(n uint64) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// writePump drains the send channel onto the socket until the client
// is dropped or the write fails.
func (c *wsClient) writePump() {
	defer c.conn.Close()
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}
}

// readPump consumes inbound frames and dispatches them by client kind.
func (c *wsClient) readPump() {
	defer func() {
		c.hub.unregister <- c
	}()

	c.conn.SetReadLimit(wsMaxMessageSize)

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		if !c.limiter.Allow() {
			RecordConnectionRejected("ws_msg_limit")
			continue
		}

		var msg wsInbound
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}

		switch c.kind {
		case ClientKindPlayer:
			c.handlePlayerMessage(msg)
		case ClientKindBase:
			c.handleBaseMessage(msg)
		default:
			// Dashboards only listen.
		}
	}
}

// sendDirect queues a frame for this client only.
func (c *wsClient) sendDirect(event string, data interface{}) {
	msg, err := json.Marshal(map[string]interface{}{
		"event": event,
		"data":  data,
	})
	if err != nil {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

func (c *wsClient) sendError(message string) {
	c.sendDirect("error", map[string]string{"message": message})
}

func (c *wsClient) handlePlayerMessage(msg wsInbound) {
	switch msg.Event {
	case "player:join":
		var data struct {
			PlayerID string `json:"playerId"`
			Name     string `json:"name"`
			IsBot    bool   `json:"isBot,omitempty"`
		}
		if err := json.Unmarshal(msg.Data, &data); err != nil || data.PlayerID == "" {
			c.sendError("playerId is required")
			return
		}
		p, err := c.hub.engine.RegisterPlayer(data.PlayerID, c.socketID, data.Name, data.IsBot)
		if err != nil {
			c.sendError(err.Error())
			return
		}
		c.playerID = p.ID

	case "player:motion":
		if c.playerID == "" {
			return
		}
		var sample game.MotionSample
		if err := json.Unmarshal(msg.Data, &sample); err != nil {
			return
		}
		if c.hub.ingest.Enqueue(c.playerID, sample) {
			RecordMotionSample()
		}

	case "player:ready":
		if c.playerID == "" {
			return
		}
		var data struct {
			IsReady bool `json:"isReady"`
		}
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return
		}
		c.hub.engine.SetPlayerReady(c.playerID, data.IsReady)

	case "player:use-ability":
		if c.playerID == "" {
			return
		}
		c.hub.engine.UseAbility(c.playerID)

	case "player:team":
		if c.playerID == "" {
			return
		}
		c.hub.engine.CycleTeam(c.playerID)
	}
}

func (c *wsClient) handleBaseMessage(msg wsInbound) {
	switch msg.Event {
	case "base:register":
		b, err := c.hub.engine.RegisterBase(c.socketID)
		if err != nil {
			c.sendError(err.Error())
			return
		}
		c.baseID = b.ID
		c.sendDirect("base:registered", map[string]interface{}{
			"baseId": b.ID,
			"number": b.Number,
		})

	case "base:tap":
		if c.baseID == "" {
			return
		}
		var data struct {
			TeamID int `json:"teamId"`
		}
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return
		}
		c.hub.engine.TapBase(c.baseID, data.TeamID)
	}
}
