// Package settings persists the operator-tunable game settings as a
// single JSON document. Persistence is best-effort: the engine never
// depends on a successful save, and a corrupt or missing file just
// means defaults.
package settings

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/SimoneRocutto/role-based-joust-sub000/internal/config"
)

// MovementSettings is the nested movement block of the document.
type MovementSettings struct {
	DangerThreshold  float64 `json:"dangerThreshold"`
	DamageMultiplier float64 `json:"damageMultiplier"`
	OneshotMode      bool    `json:"oneshotMode"`
}

// Document is the persisted settings, one JSON object on disk.
type Document struct {
	Movement              MovementSettings `json:"movement"`
	Sensitivity           string           `json:"sensitivity"`
	DefaultMode           string           `json:"defaultMode"`
	Theme                 string           `json:"theme"`
	RoundCount            int              `json:"roundCount"`
	RoundDurationMs       int              `json:"roundDurationMs"`
	TeamsEnabled          bool             `json:"teamsEnabled"`
	TeamCount             int              `json:"teamCount"`
	DominationPointTarget int              `json:"dominationPointTarget"`
	DominationIntervalMs  int              `json:"dominationIntervalMs"`
	DeathCountRespawnMs   int              `json:"deathCountRespawnMs"`
	EarbudMode            bool             `json:"earbudMode"`
}

// Defaults builds the document matching the compiled-in configuration.
func Defaults(cfg config.AppConfig) Document {
	return Document{
		Movement: MovementSettings{
			DangerThreshold:  cfg.Movement.DangerThreshold,
			DamageMultiplier: cfg.Movement.DamageMultiplier,
			OneshotMode:      cfg.Movement.OneshotMode,
		},
		Sensitivity:           cfg.Movement.Sensitivity,
		DefaultMode:           "classic",
		Theme:                 "default",
		RoundCount:            cfg.Modes.DefaultRoundCount,
		RoundDurationMs:       cfg.Modes.DefaultRoundDurationMs,
		TeamsEnabled:          false,
		TeamCount:             2,
		DominationPointTarget: cfg.Modes.DominationPointTarget,
		DominationIntervalMs:  cfg.Modes.DominationIntervalMs,
		DeathCountRespawnMs:   cfg.Modes.DeathCountRespawnDelayMs,
		EarbudMode:            false,
	}
}

// Patch is a partial settings update. Nil fields keep their value.
type Patch struct {
	Movement              *MovementPatch `json:"movement,omitempty"`
	Sensitivity           *string        `json:"sensitivity,omitempty"`
	DefaultMode           *string        `json:"defaultMode,omitempty"`
	Theme                 *string        `json:"theme,omitempty"`
	RoundCount            *int           `json:"roundCount,omitempty"`
	RoundDurationMs       *int           `json:"roundDurationMs,omitempty"`
	TeamsEnabled          *bool          `json:"teamsEnabled,omitempty"`
	TeamCount             *int           `json:"teamCount,omitempty"`
	DominationPointTarget *int           `json:"dominationPointTarget,omitempty"`
	DominationIntervalMs  *int           `json:"dominationIntervalMs,omitempty"`
	DeathCountRespawnMs   *int           `json:"deathCountRespawnMs,omitempty"`
	EarbudMode            *bool          `json:"earbudMode,omitempty"`
}

// MovementPatch is a partial movement update.
type MovementPatch struct {
	DangerThreshold  *float64 `json:"dangerThreshold,omitempty"`
	DamageMultiplier *float64 `json:"damageMultiplier,omitempty"`
	OneshotMode      *bool    `json:"oneshotMode,omitempty"`
}

// Validate rejects out-of-range values before anything is applied.
func (p Patch) Validate() error {
	if p.TeamCount != nil && (*p.TeamCount < 2 || *p.TeamCount > 4) {
		return fmt.Errorf("teamCount must be between 2 and 4, got %d", *p.TeamCount)
	}
	if p.RoundCount != nil && *p.RoundCount < 1 {
		return fmt.Errorf("roundCount must be at least 1, got %d", *p.RoundCount)
	}
	if p.RoundDurationMs != nil && *p.RoundDurationMs <= 0 {
		return fmt.Errorf("roundDurationMs must be positive, got %d", *p.RoundDurationMs)
	}
	if p.DominationPointTarget != nil && *p.DominationPointTarget < 1 {
		return fmt.Errorf("dominationPointTarget must be at least 1, got %d", *p.DominationPointTarget)
	}
	if p.DominationIntervalMs != nil && *p.DominationIntervalMs <= 0 {
		return fmt.Errorf("dominationIntervalMs must be positive, got %d", *p.DominationIntervalMs)
	}
	if p.DeathCountRespawnMs != nil && *p.DeathCountRespawnMs < 0 {
		return fmt.Errorf("deathCountRespawnMs must not be negative, got %d", *p.DeathCountRespawnMs)
	}
	if p.Sensitivity != nil {
		if _, ok := config.SensitivityPresets()[*p.Sensitivity]; !ok {
			return fmt.Errorf("unknown sensitivity %q", *p.Sensitivity)
		}
	}
	if p.Movement != nil {
		if p.Movement.DangerThreshold != nil && *p.Movement.DangerThreshold <= 0 {
			return fmt.Errorf("dangerThreshold must be positive, got %g", *p.Movement.DangerThreshold)
		}
		if p.Movement.DamageMultiplier != nil && *p.Movement.DamageMultiplier <= 0 {
			return fmt.Errorf("damageMultiplier must be positive, got %g", *p.Movement.DamageMultiplier)
		}
	}
	return nil
}

// Store owns the document and its file. Reads and writes are mutexed;
// disk writes stay off the engine thread.
type Store struct {
	mu       sync.Mutex
	path     string
	doc      Document
	defaults Document
	enabled  bool
}

// NewStore creates a store persisting at path. Call Load before use.
func NewStore(path string, defaults Document) *Store {
	return &Store{
		path:     path,
		doc:      defaults,
		defaults: defaults,
		enabled:  true,
	}
}

// Load reads the document from disk. A missing, empty, or corrupt file
// falls back to defaults without failing: the game must come up
// regardless. Legacy files with flat movement keys are migrated into
// the nested layout and rewritten.
func (s *Store) Load() {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("⚠️ Settings read failed, using defaults: %v", err)
		}
		s.doc = s.defaults
		return
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		log.Printf("⚠️ Settings file corrupt, using defaults")
		s.doc = s.defaults
		return
	}

	doc := s.defaults
	if err := json.Unmarshal(data, &doc); err != nil {
		log.Printf("⚠️ Settings file corrupt, using defaults")
		s.doc = s.defaults
		return
	}

	if migrated := migrateFlatMovement(raw, &doc); migrated {
		log.Println("📦 Migrated legacy flat settings layout")
		s.doc = doc
		s.saveLocked()
		return
	}
	s.doc = doc
}

// migrateFlatMovement lifts top-level movement keys from the legacy
// layout into the nested block. Returns whether anything moved.
func migrateFlatMovement(raw map[string]json.RawMessage, doc *Document) bool {
	if _, nested := raw["movement"]; nested {
		return false
	}
	migrated := false
	if v, ok := raw["dangerThreshold"]; ok {
		if json.Unmarshal(v, &doc.Movement.DangerThreshold) == nil {
			migrated = true
		}
	}
	if v, ok := raw["damageMultiplier"]; ok {
		if json.Unmarshal(v, &doc.Movement.DamageMultiplier) == nil {
			migrated = true
		}
	}
	if v, ok := raw["oneshotMode"]; ok {
		if json.Unmarshal(v, &doc.Movement.OneshotMode) == nil {
			migrated = true
		}
	}
	return migrated
}

// Get returns the current document.
func (s *Store) Get() Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc
}

// Apply validates and merges a patch, persists, and returns the updated
// document.
func (s *Store) Apply(p Patch) (Document, error) {
	if err := p.Validate(); err != nil {
		return Document{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if p.Movement != nil {
		if p.Movement.DangerThreshold != nil {
			s.doc.Movement.DangerThreshold = *p.Movement.DangerThreshold
		}
		if p.Movement.DamageMultiplier != nil {
			s.doc.Movement.DamageMultiplier = *p.Movement.DamageMultiplier
		}
		if p.Movement.OneshotMode != nil {
			s.doc.Movement.OneshotMode = *p.Movement.OneshotMode
		}
	}
	if p.Sensitivity != nil {
		s.doc.Sensitivity = *p.Sensitivity
	}
	if p.DefaultMode != nil {
		s.doc.DefaultMode = *p.DefaultMode
	}
	if p.Theme != nil {
		s.doc.Theme = *p.Theme
	}
	if p.RoundCount != nil {
		s.doc.RoundCount = *p.RoundCount
	}
	if p.RoundDurationMs != nil {
		s.doc.RoundDurationMs = *p.RoundDurationMs
	}
	if p.TeamsEnabled != nil {
		s.doc.TeamsEnabled = *p.TeamsEnabled
	}
	if p.TeamCount != nil {
		s.doc.TeamCount = *p.TeamCount
	}
	if p.DominationPointTarget != nil {
		s.doc.DominationPointTarget = *p.DominationPointTarget
	}
	if p.DominationIntervalMs != nil {
		s.doc.DominationIntervalMs = *p.DominationIntervalMs
	}
	if p.DeathCountRespawnMs != nil {
		s.doc.DeathCountRespawnMs = *p.DeathCountRespawnMs
	}
	if p.EarbudMode != nil {
		s.doc.EarbudMode = *p.EarbudMode
	}

	s.saveLocked()
	return s.doc, nil
}

// Disable turns persistence off; Get/Apply keep working in memory.
// Test harnesses use this to avoid touching disk.
func (s *Store) Disable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = false
}

// Enable turns persistence back on.
func (s *Store) Enable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = true
}

// saveLocked writes the document atomically. A failed write logs,
// disables further persistence, and the game carries on in memory.
func (s *Store) saveLocked() {
	if !s.enabled {
		return
	}
	if err := s.writeFile(); err != nil {
		log.Printf("⚠️ Settings save failed, persistence disabled: %v", err)
		s.enabled = false
	}
}

func (s *Store) writeFile() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
