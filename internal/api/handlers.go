package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/SimoneRocutto/role-based-joust-sub000/internal/game"
	"github.com/SimoneRocutto/role-based-joust-sub000/internal/settings"

	"github.com/go-chi/chi/v5"
)

// Handlers decode, validate, call one engine operation, and write the
// result. Only this layer converts failures into wire errors: invalid
// input is a 400 with {error}, an unknown entity is {success:false}
// with a 200.

func (h *routerHandlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (h *routerHandlers) handleGetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.engine.Snapshot())
}

func (h *routerHandlers) handleGetLobby(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"success": true,
		"players": h.engine.Lobby(),
	})
}

func (h *routerHandlers) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.settings.Get())
}

func (h *routerHandlers) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch settings.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	doc, err := h.settings.Apply(patch)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Push the new values into the engine. The engine only takes them
	// in the waiting state; a live match keeps its captured config and
	// picks these up on the next launch.
	h.engine.ApplyMovementSettings(game.MovementConfig{
		DangerThreshold:  doc.Movement.DangerThreshold,
		DamageMultiplier: doc.Movement.DamageMultiplier,
		OneshotMode:      doc.Movement.OneshotMode,
	}, doc.Sensitivity)
	if patch.TeamsEnabled != nil || patch.TeamCount != nil {
		// The count is already validated to [2,4]; only the mid-match
		// lobby lock can reject here, and the document keeps the change
		// for the next lobby session.
		if err := h.engine.ConfigureTeams(doc.TeamsEnabled, doc.TeamCount); err != nil {
			log.Printf("⚠️ Team settings persisted, not applied: %v", err)
		}
	}

	writeJSON(w, doc)
}

// launchRequest is the wire shape of POST /api/game/launch. Durations
// that arrive as zero fall back to the persisted settings.
type launchRequest struct {
	Mode              string   `json:"mode"`
	CountdownDuration *int     `json:"countdownDuration,omitempty"`
	RoundCount        int      `json:"roundCount,omitempty"`
	RoundDuration     int      `json:"roundDuration,omitempty"`
	TargetScore       int      `json:"targetScore,omitempty"`
	RespawnDelay      int      `json:"respawnDelay,omitempty"`
	PointTarget       int      `json:"pointTarget,omitempty"`
	GameEvents        []string `json:"gameEvents,omitempty"`
	Sensitivity       string   `json:"sensitivity,omitempty"`
}

func (h *routerHandlers) handleLaunch(w http.ResponseWriter, r *http.Request) {
	var req launchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	doc := h.settings.Get()
	mode := req.Mode
	if mode == "" {
		mode = doc.DefaultMode
	}
	opts := game.LaunchOptions{
		RoundCount:       req.RoundCount,
		TargetScore:      req.TargetScore,
		RoundDurationMs:  req.RoundDuration,
		RespawnDelayMs:   req.RespawnDelay,
		PointTarget:      req.PointTarget,
		CountdownSeconds: req.CountdownDuration,
		GameEvents:       req.GameEvents,
		Sensitivity:      req.Sensitivity,
	}
	if opts.RoundCount == 0 {
		opts.RoundCount = doc.RoundCount
	}
	if opts.RoundDurationMs == 0 {
		opts.RoundDurationMs = doc.RoundDurationMs
	}
	if opts.RespawnDelayMs == 0 {
		opts.RespawnDelayMs = doc.DeathCountRespawnMs
	}
	if opts.PointTarget == 0 {
		opts.PointTarget = doc.DominationPointTarget
	}
	if opts.Sensitivity == "" {
		opts.Sensitivity = doc.Sensitivity
	}

	if err := h.engine.Launch(mode, opts); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]bool{"success": true})
}

func (h *routerHandlers) handleProceed(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.ProceedFromPreGame(); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]bool{"success": true})
}

func (h *routerHandlers) handleStop(w http.ResponseWriter, r *http.Request) {
	h.engine.StopMatch()
	writeJSON(w, map[string]bool{"success": true})
}

func (h *routerHandlers) handleGetTeams(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.engine.Teams())
}

func (h *routerHandlers) handleShuffleTeams(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.ShuffleTeams(); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, h.engine.Teams())
}

func (h *routerHandlers) handleDebugKill(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ok := h.engine.KillPlayer(id)
	writeJSON(w, map[string]bool{"success": ok})
}

func (h *routerHandlers) handleBotCommand(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Command string `json:"command"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Command == "" {
		writeError(w, "command is required", http.StatusBadRequest)
		return
	}

	ok := h.engine.BotCommand(id, req.Command)
	writeJSON(w, map[string]bool{"success": ok})
}

func (h *routerHandlers) handleFastForward(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Milliseconds int `json:"milliseconds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if !h.engine.TestMode() {
		writeError(w, "fastforward requires a test-mode engine", http.StatusBadRequest)
		return
	}
	if req.Milliseconds <= 0 {
		writeError(w, "milliseconds must be positive", http.StatusBadRequest)
		return
	}

	h.engine.FastForward(req.Milliseconds)
	writeJSON(w, map[string]bool{"success": true})
}

func (h *routerHandlers) handleReset(w http.ResponseWriter, r *http.Request) {
	h.engine.ResetGame()
	writeJSON(w, map[string]bool{"success": true})
}

// Helper functions (package-level for reuse)

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
