package api

import (
	"net/http"
	"time"

	"github.com/SimoneRocutto/role-based-joust-sub000/internal/game"
	"github.com/SimoneRocutto/role-based-joust-sub000/internal/settings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// EngineInterface defines the engine methods the transport layer uses.
// It enables mocking in tests without spinning up the tick loop.
// Keep this to what handlers and sockets actually call.
type EngineInterface interface {
	// Read side
	Snapshot() game.StateSnapshot
	Lobby() []game.LobbyPlayer
	Teams() game.TeamsView
	TestMode() bool

	// Match control
	Launch(modeName string, opts game.LaunchOptions) error
	ProceedFromPreGame() error
	StopMatch()
	ResetGame()

	// Settings application
	ApplyMovementSettings(mv game.MovementConfig, sensitivity string)
	ConfigureTeams(enabled bool, count int) error
	ShuffleTeams() error

	// Player transport
	RegisterPlayer(id, socketID, name string, isBot bool) (*game.Player, error)
	HandleSocketDisconnect(socketID string)
	ProcessMotion(id string, s game.MotionSample) bool
	SetPlayerReady(id string, ready bool) bool
	UseAbility(id string) bool
	CycleTeam(id string) (int, bool)

	// Base transport
	RegisterBase(socketID string) (*game.Base, error)
	HandleBaseSocketDisconnect(socketID string)
	TapBase(baseID string, teamID int) bool

	// Debug surface
	KillPlayer(id string) bool
	BotCommand(id, command string) bool
	FastForward(ms int)
}

// RouterConfig contains the dependencies needed to construct the HTTP
// router. Designed for dependency injection:
//
//	cfg := api.RouterConfig{
//	    Engine:   mockEngine,
//	    Settings: store,
//	    RateLimitConfig: &api.RateLimitConfig{
//	        RequestsPerSecond: 1000, // generous for tests
//	        Burst:             1000,
//	    },
//	}
//	router := api.NewRouter(cfg)
//	ts := httptest.NewServer(router)
type RouterConfig struct {
	// Engine is the game engine (required).
	Engine EngineInterface

	// Settings is the persisted settings store (required).
	Settings *settings.Store

	// RateLimiter is an optional pre-configured rate limiter.
	// If nil, one is created from RateLimitConfig.
	RateLimiter *IPRateLimiter

	// RateLimitConfig is used only when RateLimiter is nil. If both are
	// nil, DefaultRateLimitConfig applies.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins optionally pins the allowed origins. If nil, any
	// localhost or private-network origin is accepted.
	CORSOrigins []string

	// DisableLogging disables the request logger middleware (tests,
	// benchmarks).
	DisableLogging bool
}

// routerHandlers carries handler dependencies.
type routerHandlers struct {
	engine   EngineInterface
	settings *settings.Store
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// This function is PURE: no goroutines, no listeners, no background
// workers (the rate limiter's eviction loop belongs to the limiter,
// which tests may pass in pre-built). Safe for httptest.NewServer.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(requestMetrics)

	// Rate limiting before CORS: reject floods as early as possible.
	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}
	r.Use(rateLimiter.Middleware)

	corsOptions := cors.Options{
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}
	if cfg.CORSOrigins != nil {
		corsOptions.AllowedOrigins = cfg.CORSOrigins
	} else {
		corsOptions.AllowOriginFunc = func(r *http.Request, origin string) bool {
			return IsAllowedOrigin(origin)
		}
	}
	r.Use(cors.Handler(corsOptions))

	h := &routerHandlers{
		engine:   cfg.Engine,
		settings: cfg.Settings,
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.handleHealth)

		r.Route("/game", func(r chi.Router) {
			r.Get("/state", h.handleGetState)
			r.Get("/lobby", h.handleGetLobby)
			r.Get("/settings", h.handleGetSettings)
			r.Post("/settings", h.handleUpdateSettings)
			r.Post("/launch", h.handleLaunch)
			r.Post("/proceed", h.handleProceed)
			r.Post("/stop", h.handleStop)
			r.Get("/teams", h.handleGetTeams)
			r.Post("/teams/shuffle", h.handleShuffleTeams)
		})

		r.Route("/debug", func(r chi.Router) {
			r.Post("/player/{id}/kill", h.handleDebugKill)
			r.Post("/bot/{id}/command", h.handleBotCommand)
			r.Post("/fastforward", h.handleFastForward)
			r.Post("/reset", h.handleReset)
		})
	})

	return r
}

// requestMetrics records latency and status per route pattern. The
// pattern (not the raw URL) keeps metric cardinality bounded.
func requestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		endpoint := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				endpoint = pattern
			}
		}
		RecordRequest(r.Method, endpoint, ww.Status(), time.Since(start))
	})
}
