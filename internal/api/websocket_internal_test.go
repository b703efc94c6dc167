package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// upgradedConn returns the server side of a live websocket connection.
func upgradedConn(t *testing.T) *websocket.Conn {
	t.Helper()

	conns := make(chan *websocket.Conn, 1)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conns <- conn
	}))
	t.Cleanup(ts.Close)

	dialer, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { dialer.Close() })

	return <-conns
}

// TestDropClientDuringDirectReply verifies a hub-side drop racing a
// direct reply from the client's read goroutine. The reply must be
// discarded, never panic, and the drop must still unregister the
// client.
func TestDropClientDuringDirectReply(t *testing.T) {
	hub := NewWebSocketHub(nil, nil)
	conn := upgradedConn(t)

	client := &wsClient{
		hub:      hub,
		conn:     conn,
		ip:       "192.168.0.40",
		kind:     ClientKindDashboard,
		socketID: newSocketID(ClientKindDashboard),
		send:     make(chan []byte, 4),
		done:     make(chan struct{}),
		limiter:  rate.NewLimiter(wsMessagesPerSecond, wsMessageBurst),
	}
	hub.mu.Lock()
	hub.clients[client] = true
	hub.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			client.sendError("playerId is required")
		}
	}()
	hub.dropClient(client)
	wg.Wait()

	// A reply issued strictly after the drop is discarded the same way.
	client.sendError("playerId is required")

	if got := hub.ClientCount(); got != 0 {
		t.Errorf("Expected the client unregistered, got %d remaining", got)
	}
	select {
	case <-client.done:
	default:
		t.Error("Expected the drop to signal the done channel")
	}

	// Dropping the same client twice is a no-op.
	hub.dropClient(client)
}

// TestWritePumpStopsOnDrop verifies the write goroutine exits when the
// hub drops its client, even with queued frames left unsent.
func TestWritePumpStopsOnDrop(t *testing.T) {
	hub := NewWebSocketHub(nil, nil)
	conn := upgradedConn(t)

	client := &wsClient{
		hub:      hub,
		conn:     conn,
		ip:       "192.168.0.41",
		kind:     ClientKindDashboard,
		socketID: newSocketID(ClientKindDashboard),
		send:     make(chan []byte, 4),
		done:     make(chan struct{}),
		limiter:  rate.NewLimiter(wsMessagesPerSecond, wsMessageBurst),
	}
	hub.mu.Lock()
	hub.clients[client] = true
	hub.mu.Unlock()

	pumpDone := make(chan struct{})
	go func() {
		client.writePump()
		close(pumpDone)
	}()

	client.send <- []byte(`{"event":"noop"}`)
	hub.dropClient(client)

	select {
	case <-pumpDone:
	case <-time.After(2 * time.Second):
		t.Fatal("Expected the write pump to exit after the drop")
	}
}
