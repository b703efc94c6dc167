package api

import (
	"encoding/json"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/SimoneRocutto/role-based-joust-sub000/internal/game"
)

// Metrics with bounded cardinality: labels are event names, socket
// kinds, and route patterns, never player ids.
var (
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "game_tick_duration_seconds",
		Help:    "Time spent in one engine tick",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1},
	})

	playersConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "game_players_connected",
		Help: "Registered players with a live socket",
	})

	playersAlive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "game_players_alive",
		Help: "Alive players in the current round",
	})

	deathsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "game_deaths_total",
		Help: "Player deaths across all matches",
	})

	eventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "game_events_published_total",
		Help: "Engine bus events by wire name",
	}, []string{"event"})

	motionSamples = promauto.NewCounter(prometheus.CounterOpts{
		Name: "motion_samples_total",
		Help: "Accelerometer frames accepted from sockets",
	})

	ingestDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "motion_ingest_dropped_total",
		Help: "Motion frames dropped because the ingest queue was full",
	})

	connectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connection_rejected_total",
		Help: "Connections rejected by rate limiter or origin check",
	}, []string{"reason"}) // bounded: rate_limit, origin, ws_total_limit, ws_ip_limit, ws_msg_limit

	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency by route pattern",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"})

	requestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests by route pattern",
	}, []string{"method", "endpoint", "status"})

	wsConnectionsActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "websocket_connections_active",
		Help: "Active WebSocket connections by client kind",
	}, []string{"kind"}) // bounded: player, dashboard, base

	wsMessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "websocket_messages_total",
		Help: "WebSocket frames broadcast to clients",
	})
)

// ObservabilityConfig configures the debug server.
type ObservabilityConfig struct {
	Enabled       bool
	ListenAddr    string // keep on 127.0.0.1 unless explicitly overridden
	BasicAuthUser string // optional basic auth
	BasicAuthPass string

	// MatchLogTail, when set, serves the audit log's latest records on
	// /debug/matchlog?n=100.
	MatchLogTail func(n int) []game.MatchLogRecord
}

// DefaultObservabilityConfig returns safe defaults.
func DefaultObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		Enabled:    true,
		ListenAddr: "127.0.0.1:6060",
	}
}

// StartDebugServer starts pprof + /metrics + /health on a separate
// port. It binds to localhost only unless ALLOW_DEBUG_EXTERNAL=true:
// pprof on a reachable interface is a DoS surface.
func StartDebugServer(cfg ObservabilityConfig) error {
	if !cfg.Enabled {
		log.Println("📊 Debug server disabled")
		return nil
	}

	if cfg.ListenAddr != "127.0.0.1:6060" && cfg.ListenAddr != "localhost:6060" {
		if os.Getenv("ALLOW_DEBUG_EXTERNAL") != "true" {
			log.Println("⚠️ Debug server forced to localhost for security")
			cfg.ListenAddr = "127.0.0.1:6060"
		}
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	if cfg.MatchLogTail != nil {
		mux.HandleFunc("/debug/matchlog", func(w http.ResponseWriter, r *http.Request) {
			n := 100
			if v := r.URL.Query().Get("n"); v != "" {
				if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
					n = parsed
				}
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(cfg.MatchLogTail(n))
		})
	}

	var handler http.Handler = mux
	if cfg.BasicAuthUser != "" {
		handler = basicAuthMiddleware(cfg.BasicAuthUser, cfg.BasicAuthPass, mux)
	}

	go func() {
		log.Printf("📊 Debug server starting on %s", cfg.ListenAddr)
		log.Printf("   - pprof:   http://%s/debug/pprof/", cfg.ListenAddr)
		log.Printf("   - metrics: http://%s/metrics", cfg.ListenAddr)

		if err := http.ListenAndServe(cfg.ListenAddr, handler); err != nil {
			log.Printf("⚠️ Debug server error: %v", err)
		}
	}()

	return nil
}

func basicAuthMiddleware(user, pass string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || u != user || p != pass {
			w.Header().Set("WWW-Authenticate", `Basic realm="debug"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RecordTick observes one tick's wall-clock cost.
func RecordTick(d time.Duration) {
	tickDuration.Observe(d.Seconds())
}

// UpdatePlayerGauges refreshes the connected/alive gauges.
func UpdatePlayerGauges(connected, alive int) {
	playersConnected.Set(float64(connected))
	playersAlive.Set(float64(alive))
}

// RecordDeath increments the death counter.
func RecordDeath() {
	deathsTotal.Inc()
}

// RecordEventPublished counts one bus event by wire name.
func RecordEventPublished(event string) {
	eventsPublished.WithLabelValues(event).Inc()
}

// RecordMotionSample counts one accepted motion frame.
func RecordMotionSample() {
	motionSamples.Inc()
}

// RecordIngestDrop counts one dropped motion frame.
func RecordIngestDrop() {
	ingestDropped.Inc()
}

// RecordConnectionRejected increments the rejection counter.
// reason must come from the bounded set documented on the metric.
func RecordConnectionRejected(reason string) {
	connectionRejected.WithLabelValues(reason).Inc()
}

// RecordRequest records one HTTP request against its route pattern.
func RecordRequest(method, endpoint string, status int, d time.Duration) {
	requestLatency.WithLabelValues(method, endpoint).Observe(d.Seconds())
	requestTotal.WithLabelValues(method, endpoint, http.StatusText(status)).Inc()
}

// UpdateWSConnections refreshes the per-kind connection gauge.
func UpdateWSConnections(kind string, count int) {
	wsConnectionsActive.WithLabelValues(kind).Set(float64(count))
}

// IncrementWSMessages counts one broadcast frame.
func IncrementWSMessages() {
	wsMessagesTotal.Inc()
}
