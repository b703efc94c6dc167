package game

import (
	"github.com/SimoneRocutto/role-based-joust-sub000/internal/config"
)

// roleBasedMode is classic elimination with a role dealt to every
// player at round start. The engine shuffles the pool before dealing.
type roleBasedMode struct {
	classicMode
}

func newRoleBasedMode(cfg config.AppConfig, opts LaunchOptions) *roleBasedMode {
	return &roleBasedMode{classicMode: *newClassicMode(cfg, opts)}
}

func (m *roleBasedMode) Name() string { return ModeRoleBased }

// GetRolePool deals one tag per player, cycling the catalog when the
// lobby outgrows it.
func (m *roleBasedMode) GetRolePool(n int) []RoleTag {
	if n <= 0 {
		return nil
	}
	catalog := AllRoleTags()
	pool := make([]RoleTag, 0, n)
	for len(pool) < n {
		pool = append(pool, catalog[len(pool)%len(catalog)])
	}
	return pool
}

// CountdownSeconds guarantees room for the role-reveal voice cue.
func (m *roleBasedMode) CountdownSeconds(e *Engine) int {
	secs := m.classicMode.CountdownSeconds(e)
	if reveal := m.cfg.Modes.RoleRevealSeconds; secs < reveal {
		return reveal
	}
	return secs
}
