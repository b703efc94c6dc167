package game

import (
	"sort"
	"time"
)

// Player is one participant in the match: a phone reporting motion, or
// a bot driven by the engine. All mutation happens on the engine
// thread; the struct carries no lock of its own.
type Player struct {
	ID        string
	SocketID  string
	Name      string
	Number    int
	IsBot     bool
	Connected bool

	IsAlive           bool
	AccumulatedDamage float64
	DeathThreshold    float64
	Toughness         float64 // base divisor; roles override, effects modify on top

	Points      int // this round
	TotalPoints int // whole match, never decreases mid-match
	DeathCount  int

	Ready bool
	Team  *int

	Role Role

	// Per-player movement override. Nil means the engine's global
	// config applies, which is how game events reach everyone mid-round.
	MovementOverride *MovementConfig

	motion       *motionRing
	gravity      float64
	idleFloor    float64
	lastMotionAt time.Time // last sample of any size
	lastActiveAt time.Time // last sample above the idle floor
	diedAt       time.Time

	effects []*StatusEffect // sorted by priority desc, then kind
}

// PlayerOptions tunes a new player. Zero values fall back to the
// engine defaults.
type PlayerOptions struct {
	IsBot          bool
	DeathThreshold float64
	HistorySize    int
	Gravity        float64
	IdleFloor      float64
}

// NewPlayer creates a lobby-fresh player. Number assignment belongs to
// the ConnectionManager, not here.
func NewPlayer(id, name string, opts PlayerOptions) *Player {
	if opts.DeathThreshold <= 0 {
		opts.DeathThreshold = 100
	}
	if opts.HistorySize <= 0 {
		opts.HistorySize = 10
	}
	if opts.Gravity <= 0 {
		opts.Gravity = 9.81
	}
	if opts.IdleFloor <= 0 {
		opts.IdleFloor = 1.0
	}

	return &Player{
		ID:             id,
		Name:           name,
		IsBot:          opts.IsBot,
		Connected:      true,
		IsAlive:        true,
		DeathThreshold: opts.DeathThreshold,
		Toughness:      1.0,
		motion:         newMotionRing(opts.HistorySize),
		gravity:        opts.Gravity,
		idleFloor:      opts.IdleFloor,
	}
}

// ApplyMotion records one accelerometer sample. Samples for a player
// arrive and apply in order; damage is integrated later by the tick.
func (p *Player) ApplyMotion(s MotionSample, now time.Time) {
	intensity := s.Intensity(p.gravity)
	p.motion.push(intensity)
	p.lastMotionAt = now
	if intensity > p.idleFloor {
		p.lastActiveAt = now
	}
}

// CurrentIntensity returns the smoothed intensity over the last window
// samples; window <= 1 returns the raw latest sample.
func (p *Player) CurrentIntensity(window int) float64 {
	if window <= 1 {
		return p.motion.latest()
	}
	return p.motion.mean(window)
}

// Movement resolves the effective movement config: the player override
// when set, otherwise the supplied global.
func (p *Player) Movement(global MovementConfig) MovementConfig {
	if p.MovementOverride != nil {
		return *p.MovementOverride
	}
	return global
}

// EffectiveToughness folds role base and active effects into the
// damage divisor. Never returns less than 0.1 so damage stays finite.
func (p *Player) EffectiveToughness() float64 {
	t := p.Toughness
	if p.Role != nil {
		t = p.Role.ToughnessBase()
	}
	for _, ef := range p.effects {
		t = ef.modifyToughness(t)
	}
	if t < 0.1 {
		t = 0.1
	}
	return t
}

// ApplyEffect adds or refreshes an effect. Re-applying the same kind
// refreshes AppliedAt/Duration and replaces Magnitude; it never stacks.
func (p *Player) ApplyEffect(kind EffectKind, duration time.Duration, magnitude float64, now time.Time) *StatusEffect {
	if ef := p.Effect(kind); ef != nil {
		ef.AppliedAt = now
		ef.Duration = duration
		ef.Magnitude = magnitude
		return ef
	}

	ef := &StatusEffect{Kind: kind, AppliedAt: now, Duration: duration, Magnitude: magnitude}
	p.effects = append(p.effects, ef)
	sort.SliceStable(p.effects, func(i, j int) bool {
		pi, pj := p.effects[i].Kind.Priority(), p.effects[j].Kind.Priority()
		if pi != pj {
			return pi > pj
		}
		return p.effects[i].Kind < p.effects[j].Kind
	})
	return ef
}

// RemoveEffect drops the effect of the given kind. Unknown kinds are a
// silent no-op; returns whether anything was removed.
func (p *Player) RemoveEffect(kind EffectKind) bool {
	for i, ef := range p.effects {
		if ef.Kind == kind {
			p.effects = append(p.effects[:i], p.effects[i+1:]...)
			return true
		}
	}
	return false
}

// Effect returns the active instance of kind, or nil.
func (p *Player) Effect(kind EffectKind) *StatusEffect {
	for _, ef := range p.effects {
		if ef.Kind == kind {
			return ef
		}
	}
	return nil
}

// HasEffect reports whether an effect of kind is active.
func (p *Player) HasEffect(kind EffectKind) bool {
	return p.Effect(kind) != nil
}

// Effects returns the active effects in priority order. Callers must
// not mutate the slice.
func (p *Player) Effects() []*StatusEffect {
	return p.effects
}

// expireEffects removes everything whose duration elapsed, in place,
// preserving order.
func (p *Player) expireEffects(now time.Time) []EffectKind {
	var removed []EffectKind
	kept := p.effects[:0]
	for _, ef := range p.effects {
		if ef.expired(now) {
			removed = append(removed, ef.Kind)
			continue
		}
		kept = append(kept, ef)
	}
	p.effects = kept
	return removed
}

// interceptDamage runs the incoming amount through the effect stack in
// priority order. Shields drained to zero are removed here.
func (p *Player) interceptDamage(amount float64) float64 {
	for _, ef := range p.effects {
		amount = ef.modifyIncomingDamage(amount)
		if amount <= 0 {
			break
		}
	}
	// Drop exhausted shields.
	if ef := p.Effect(EffectShielded); ef != nil && ef.Magnitude <= 0 {
		p.RemoveEffect(EffectShielded)
	}
	if amount < 0 {
		amount = 0
	}
	return amount
}

// AddPoints credits the player for this round and the match total.
func (p *Player) AddPoints(n int) {
	if n <= 0 {
		return
	}
	p.Points += n
	p.TotalPoints += n
}

// markDead flips liveness exactly once per death; the engine guards
// the one-shot and publishes the event.
func (p *Player) markDead(now time.Time) {
	p.IsAlive = false
	p.DeathCount++
	p.diedAt = now
}

// revive restores liveness with a clean damage slate.
func (p *Player) revive() {
	p.IsAlive = true
	p.AccumulatedDamage = 0
}

// ResetForRound puts the player into round-fresh state: alive, no
// damage, no round points, no effects, no movement override, empty
// motion history. Match totals and the assigned number survive.
func (p *Player) ResetForRound() {
	p.IsAlive = true
	p.AccumulatedDamage = 0
	p.Points = 0
	p.effects = nil
	p.MovementOverride = nil
	p.motion.reset()
	p.lastMotionAt = time.Time{}
	p.lastActiveAt = time.Time{}
	p.diedAt = time.Time{}
}

// RoleTag returns the player's role tag, or empty when unassigned.
func (p *Player) RoleTag() RoleTag {
	if p.Role == nil {
		return ""
	}
	return p.Role.Tag()
}
