package game

import "time"

// EffectKind enumerates the closed set of status effects. Priorities
// are fixed: higher runs first when intercepting damage, so
// Invulnerability always gets the chance to zero a hit before a shield
// burns pool on it.
type EffectKind uint8

const (
	EffectInvulnerability EffectKind = iota
	EffectShielded
	EffectToughened    // multiplicative toughness (Berserker)
	EffectStrengthened // absolute toughness bonus (Ironclad)
	EffectWeakened
	EffectExcited
)

// String returns the effect's wire/log name.
func (k EffectKind) String() string {
	switch k {
	case EffectInvulnerability:
		return "invulnerability"
	case EffectShielded:
		return "shielded"
	case EffectToughened:
		return "toughened"
	case EffectStrengthened:
		return "strengthened"
	case EffectWeakened:
		return "weakened"
	case EffectExcited:
		return "excited"
	default:
		return "unknown"
	}
}

// Priority returns the fixed interception priority of the kind.
func (k EffectKind) Priority() int {
	switch k {
	case EffectInvulnerability:
		return 100
	case EffectShielded:
		return 80
	case EffectToughened, EffectStrengthened:
		return 60
	case EffectWeakened:
		return 40
	case EffectExcited:
		return 20
	default:
		return 0
	}
}

// StatusEffect is one active effect instance on a player. At most one
// instance per kind exists; re-applying refreshes AppliedAt/Duration
// and replaces Magnitude (never stacks).
type StatusEffect struct {
	Kind      EffectKind    `json:"kind"`
	AppliedAt time.Time     `json:"-"`
	Duration  time.Duration `json:"-"` // 0 = until removed
	Magnitude float64       `json:"magnitude"`
}

// expired reports whether the effect's duration has elapsed.
// Zero-duration effects never expire on their own.
func (ef *StatusEffect) expired(now time.Time) bool {
	if ef.Duration == 0 {
		return false
	}
	return !now.Before(ef.AppliedAt.Add(ef.Duration))
}

// modifyIncomingDamage intercepts a hit and returns what passes
// through. Shielded consumes its pool; the caller removes the effect
// once Magnitude reaches zero.
func (ef *StatusEffect) modifyIncomingDamage(amount float64) float64 {
	switch ef.Kind {
	case EffectInvulnerability:
		return 0
	case EffectShielded:
		if ef.Magnitude >= amount {
			ef.Magnitude -= amount
			return 0
		}
		rest := amount - ef.Magnitude
		ef.Magnitude = 0
		return rest
	default:
		return amount
	}
}

// modifyToughness folds the effect into the player's effective
// toughness. Toughened and Weakened scale, Strengthened adds.
func (ef *StatusEffect) modifyToughness(base float64) float64 {
	switch ef.Kind {
	case EffectToughened, EffectWeakened:
		return base * ef.Magnitude
	case EffectStrengthened:
		return base + ef.Magnitude
	default:
		return base
	}
}

// tick runs the effect's per-tick behavior. Returns true when the
// effect demands the player's death this tick (Excited on idle).
func (ef *StatusEffect) tick(e *Engine, p *Player, now time.Time) bool {
	if ef.Kind != EffectExcited {
		return false
	}
	idleLimit := time.Duration(e.cfg.Roles.ExcitedIdleKillSeconds) * time.Second
	since := ef.AppliedAt
	if p.lastActiveAt.After(since) {
		since = p.lastActiveAt
	}
	return now.Sub(since) > idleLimit
}
