package main

import (
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/SimoneRocutto/role-based-joust-sub000/internal/api"
	"github.com/SimoneRocutto/role-based-joust-sub000/internal/config"
	"github.com/SimoneRocutto/role-based-joust-sub000/internal/game"
	"github.com/SimoneRocutto/role-based-joust-sub000/internal/settings"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("💡 No .env file found, using environment variables only")
	} else {
		log.Println("✅ Loaded environment from .env")
	}

	log.Println("🎮 ================================")
	log.Println("🎮  MOTION JOUST - GAME SERVER")
	log.Println("🎮 ================================")

	// Centralized configuration (single source of truth).
	appConfig := config.Load()
	serverCfg := appConfig.Server

	// Persisted settings, loaded over the compiled-in defaults.
	store := settings.NewStore(serverCfg.SettingsPath, settings.Defaults(appConfig))
	store.Load()
	doc := store.Get()
	log.Printf("⚙️ Settings: %s (sensitivity %s, default mode %s)",
		serverCfg.SettingsPath, doc.Sensitivity, doc.DefaultMode)

	// Event bus wires the engine to transports and the audit log.
	bus := game.NewBus()

	// Game engine on the wall clock; TEST_MODE=true puts it on the
	// virtual clock so /api/debug/fastforward can drive it.
	var engine *game.Engine
	if os.Getenv("TEST_MODE") == "true" {
		engine = game.NewTestEngine(appConfig, bus, getEnvInt64("TEST_SEED", 1))
	} else {
		engine = game.NewEngine(appConfig, bus)
	}
	engine.OnTickDone = api.RecordTick
	log.Printf("🛡️ Limits: %d players, %d bases, ingest buffer %d",
		appConfig.Limits.MaxPlayers, appConfig.Limits.MaxBases, appConfig.Limits.IngestBufferSize)

	// Apply the persisted movement config before anything connects.
	engine.ApplyMovementSettings(game.MovementConfig{
		DangerThreshold:  doc.Movement.DangerThreshold,
		DamageMultiplier: doc.Movement.DamageMultiplier,
		OneshotMode:      doc.Movement.OneshotMode,
	}, doc.Sensitivity)
	if doc.TeamsEnabled {
		if err := engine.ConfigureTeams(true, doc.TeamCount); err != nil {
			log.Printf("⚠️ Persisted team config rejected: %v", err)
		}
	}

	// Match audit log.
	var matchLog *game.MatchLog
	if serverCfg.MatchLogOn {
		ml, err := game.NewMatchLog(serverCfg.MatchLogDir)
		if err == nil {
			err = ml.Start(bus)
		}
		if err != nil {
			log.Printf("⚠️ Match log disabled: %v", err)
		} else {
			matchLog = ml
			log.Printf("📝 Match log: %s", ml.Path())
		}
	}

	// Debug server: pprof + metrics + match log tail on localhost.
	if os.Getenv("DISABLE_DEBUG_SERVER") != "true" {
		obsCfg := api.DefaultObservabilityConfig()
		if matchLog != nil {
			obsCfg.MatchLogTail = matchLog.RecentEvents
		}
		if err := api.StartDebugServer(obsCfg); err != nil {
			log.Printf("⚠️ Debug server disabled: %v", err)
		}
	}

	// Transport: HTTP control surface + WebSocket hub + motion ingest.
	server := api.NewServer(engine, store, bus, api.ServerOptions{
		IngestBufferSize: appConfig.Limits.IngestBufferSize,
	})

	engine.Start()
	log.Println("✅ Game engine started")

	go func() {
		addr := ":" + strconv.Itoa(serverCfg.Port)
		log.Printf("🌐 API server on http://localhost%s", addr)
		log.Printf("📱 Players:    ws://<lan-ip>%s/ws/player", addr)
		log.Printf("🖥️ Dashboards: ws://<lan-ip>%s/ws/dashboard", addr)
		log.Printf("🏰 Bases:      ws://<lan-ip>%s/ws/base", addr)

		if err := server.Start(addr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Println("✅ Server ready! Press Ctrl+C to stop.")
	<-quit

	log.Println("🛑 Shutting down...")
	server.Stop()
	if matchLog != nil {
		matchLog.Stop()
	}
	engine.Stop()
	log.Println("👋 Goodbye!")
}

func getEnvInt64(key string, defaultVal int64) int64 {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			return i
		}
	}
	return defaultVal
}
