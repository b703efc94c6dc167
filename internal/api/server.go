package api

import (
	"log"
	"net/http"
	"time"

	"github.com/SimoneRocutto/role-based-joust-sub000/internal/game"
	"github.com/SimoneRocutto/role-based-joust-sub000/internal/settings"

	"github.com/go-chi/chi/v5"
)

// Server combines the HTTP router, the WebSocket hub, and the motion
// ingest queue into the full transport surface.
type Server struct {
	engine      EngineInterface
	store       *settings.Store
	router      *chi.Mux
	hub         *WebSocketHub
	ingest      *MotionQueue
	rateLimiter *IPRateLimiter
	stateSync   time.Duration
}

// ServerOptions tunes the server without widening the constructor.
type ServerOptions struct {
	// IngestBufferSize caps the motion queue; <= 0 uses the default.
	IngestBufferSize int

	// CORSOrigins pins allowed origins; nil accepts localhost and
	// private-network origins.
	CORSOrigins []string

	// DisableLogging silences the request logger (tests).
	DisableLogging bool

	// StateSyncInterval is the dashboard full-state push cadence;
	// <= 0 uses 100ms (one engine tick).
	StateSyncInterval time.Duration
}

// NewServer creates the API server.
//
// IMPORTANT: no background workers start here. Goroutines and listeners
// appear only in Start(), so tests can construct a Server and use
// Router() with httptest without anything running.
func NewServer(engine EngineInterface, store *settings.Store, bus *game.Bus, opts ServerOptions) *Server {
	s := &Server{
		engine: engine,
		store:  store,
	}

	s.ingest = NewMotionQueue(engine, opts.IngestBufferSize)
	s.hub = NewWebSocketHub(engine, s.ingest)
	s.hub.BindBus(bus)
	s.stateSync = opts.StateSyncInterval

	s.rateLimiter = NewIPRateLimiter(DefaultRateLimitConfig)

	s.router = NewRouter(RouterConfig{
		Engine:         engine,
		Settings:       store,
		RateLimiter:    s.rateLimiter,
		CORSOrigins:    opts.CORSOrigins,
		DisableLogging: opts.DisableLogging,
	})

	s.setupWebSocketRoutes()

	return s
}

// setupWebSocketRoutes mounts the socket endpoints. They need the hub
// instance, so they live outside the pure NewRouter factory.
func (s *Server) setupWebSocketRoutes() {
	s.router.Get("/ws/player", s.hub.HandleWebSocket(ClientKindPlayer))
	s.router.Get("/ws/dashboard", s.hub.HandleWebSocket(ClientKindDashboard))
	s.router.Get("/ws/base", s.hub.HandleWebSocket(ClientKindBase))
}

// Start launches the background workers and serves HTTP. This is the
// only method that starts goroutines or opens listeners.
func (s *Server) Start(addr string) error {
	go s.hub.Run()
	s.hub.StartStateLoop(s.stateSync)
	s.ingest.Start()

	log.Printf("🌐 API server starting on %s", addr)

	return http.ListenAndServe(addr, s.router)
}

// Router returns the HTTP handler for use with httptest:
//
//	server := api.NewServer(engine, store, bus, api.ServerOptions{})
//	ts := httptest.NewServer(server.Router())
//	defer ts.Close()
func (s *Server) Router() http.Handler {
	return s.router
}

// Hub exposes the WebSocket hub (tests, direct broadcasts).
func (s *Server) Hub() *WebSocketHub {
	return s.hub
}

// IngestStats reports motion queue counters.
func (s *Server) IngestStats() QueueStats {
	return s.ingest.Stats()
}

// Stop shuts down background workers.
func (s *Server) Stop() {
	s.ingest.Stop()
	s.hub.Stop()
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
}
