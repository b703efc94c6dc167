package game

import (
	"time"

	"github.com/SimoneRocutto/role-based-joust-sub000/internal/config"
)

// ---------------------------------------------------------------------------
// VAMPIRE: bloodlust after a quiet first minute, then feeds on every kill
// ---------------------------------------------------------------------------

type vampireRole struct {
	roleBase
	bloodlustAfter time.Duration
	killBonus      int

	roundStart time.Time
	armed      bool
}

func newVampire(cfg config.RolesConfig) *vampireRole {
	return &vampireRole{
		bloodlustAfter: time.Duration(cfg.VampireBloodlustSeconds) * time.Second,
		killBonus:      cfg.VampireKillBonus,
	}
}

func (r *vampireRole) Tag() RoleTag { return RoleVampire }

func (r *vampireRole) OnRoundStart(e *Engine, p *Player, now time.Time) {
	r.roundStart = now
	r.armed = false
}

func (r *vampireRole) OnTick(e *Engine, p *Player, now time.Time) {
	if r.armed || !p.IsAlive {
		return
	}
	if now.Sub(r.roundStart) >= r.bloodlustAfter {
		r.armed = true
		e.publishModeEvent("vampire:bloodlust", map[string]interface{}{"id": p.ID})
	}
}

func (r *vampireRole) OnOtherDeath(e *Engine, p *Player, victim *Player, now time.Time) {
	if r.armed && p.IsAlive {
		p.AddPoints(r.killBonus)
	}
}

// ---------------------------------------------------------------------------
// BEAST: raw toughness, nothing clever
// ---------------------------------------------------------------------------

type beastRole struct {
	roleBase
	toughness float64
}

func newBeast(cfg config.RolesConfig) *beastRole {
	return &beastRole{toughness: cfg.BeastToughness}
}

func (r *beastRole) Tag() RoleTag            { return RoleBeast }
func (r *beastRole) ToughnessBase() float64  { return r.toughness }

// ---------------------------------------------------------------------------
// BEAST HUNTER: paid whenever a Beast goes down
// ---------------------------------------------------------------------------

type beastHunterRole struct {
	roleBase
	bonus int
}

func newBeastHunter(cfg config.RolesConfig) *beastHunterRole {
	return &beastHunterRole{bonus: cfg.BeastHunterBonus}
}

func (r *beastHunterRole) Tag() RoleTag { return RoleBeastHunter }

func (r *beastHunterRole) OnOtherDeath(e *Engine, p *Player, victim *Player, now time.Time) {
	if victim.RoleTag() == RoleBeast {
		p.AddPoints(r.bonus)
	}
}

// ---------------------------------------------------------------------------
// ANGEL: cheats death once per round, walks away invulnerable
// ---------------------------------------------------------------------------

type angelRole struct {
	roleBase
	invulnFor time.Duration
	used      bool
}

func newAngel(cfg config.RolesConfig) *angelRole {
	return &angelRole{invulnFor: time.Duration(cfg.AngelInvulnSeconds) * time.Second}
}

func (r *angelRole) Tag() RoleTag { return RoleAngel }

func (r *angelRole) OnRoundStart(e *Engine, p *Player, now time.Time) {
	r.used = false
}

func (r *angelRole) OnDamage(e *Engine, p *Player, amount float64, now time.Time) float64 {
	if r.used || amount <= 0 {
		return amount
	}
	if p.AccumulatedDamage+amount < p.DeathThreshold {
		return amount
	}
	// Lethal hit: cancel it and grant a short grace window.
	r.used = true
	p.ApplyEffect(EffectInvulnerability, r.invulnFor, 0, now)
	e.publishModeEvent("angel:saved", map[string]interface{}{"id": p.ID})
	return 0
}

// ---------------------------------------------------------------------------
// SURVIVOR: a point for every interval spent alive
// ---------------------------------------------------------------------------

type survivorRole struct {
	roleBase
	interval    time.Duration
	nextAwardAt time.Time
}

func newSurvivor(cfg config.RolesConfig) *survivorRole {
	return &survivorRole{interval: time.Duration(cfg.SurvivorIntervalSeconds) * time.Second}
}

func (r *survivorRole) Tag() RoleTag { return RoleSurvivor }

func (r *survivorRole) OnRoundStart(e *Engine, p *Player, now time.Time) {
	r.nextAwardAt = now.Add(r.interval)
}

func (r *survivorRole) OnTick(e *Engine, p *Player, now time.Time) {
	if !p.IsAlive || r.nextAwardAt.IsZero() {
		return
	}
	for !now.Before(r.nextAwardAt) {
		p.AddPoints(1)
		r.nextAwardAt = r.nextAwardAt.Add(r.interval)
	}
}

// ---------------------------------------------------------------------------
// EXECUTIONER: hunts one marked player at a time
// ---------------------------------------------------------------------------

type executionerRole struct {
	roleBase
	bonus    int
	targetID string
}

func newExecutioner(cfg config.RolesConfig) *executionerRole {
	return &executionerRole{bonus: cfg.ExecutionerBonus}
}

func (r *executionerRole) Tag() RoleTag { return RoleExecutioner }

func (r *executionerRole) OnRoundStart(e *Engine, p *Player, now time.Time) {
	r.reroll(e, p)
}

func (r *executionerRole) OnOtherDeath(e *Engine, p *Player, victim *Player, now time.Time) {
	if victim.ID != r.targetID {
		return
	}
	if p.IsAlive {
		p.AddPoints(r.bonus)
	}
	r.reroll(e, p)
}

func (r *executionerRole) RetargetIfNeeded(e *Engine, p *Player, goneID string, now time.Time) {
	if r.targetID == goneID {
		r.reroll(e, p)
	}
}

func (r *executionerRole) reroll(e *Engine, p *Player) {
	r.targetID = e.pickTargetFor(p)
	if r.targetID != "" {
		e.publishModeEvent("executioner:target", map[string]interface{}{
			"id":     p.ID,
			"target": r.targetID,
		})
	}
}

// ---------------------------------------------------------------------------
// BODYGUARD: paid if the ward makes the podium, scores flat placements
// ---------------------------------------------------------------------------

type bodyguardRole struct {
	roleBase
	bonus      int
	placements PlacementTable

	targetID string
	awarded  bool
}

func newBodyguard(cfg config.RolesConfig) *bodyguardRole {
	return &bodyguardRole{bonus: cfg.BodyguardBonus}
}

func (r *bodyguardRole) Tag() RoleTag { return RoleBodyguard }

func (r *bodyguardRole) PlacementBonuses() PlacementTable { return r.placements }

func (r *bodyguardRole) OnRoundStart(e *Engine, p *Player, now time.Time) {
	r.awarded = false
	r.placements = PlacementTable(e.cfg.Modes.BodyguardPlacementBonuses)
	r.targetID = e.pickTargetFor(p)
}

func (r *bodyguardRole) OnOtherDeath(e *Engine, p *Player, victim *Player, now time.Time) {
	if victim.ID == r.targetID {
		r.targetID = e.pickTargetFor(p)
		return
	}
	if r.awarded || r.targetID == "" {
		return
	}
	ward := e.playerByID(r.targetID)
	if ward == nil || !ward.IsAlive {
		return
	}
	if e.aliveCount() <= 3 {
		r.awarded = true
		p.AddPoints(r.bonus)
	}
}

func (r *bodyguardRole) RetargetIfNeeded(e *Engine, p *Player, goneID string, now time.Time) {
	if r.targetID == goneID {
		r.targetID = e.pickTargetFor(p)
	}
}

// ---------------------------------------------------------------------------
// BERSERKER: hardens up after surviving a burst of hits
// ---------------------------------------------------------------------------

type berserkerRole struct {
	roleBase
	quiet  time.Duration
	factor float64
	boost  time.Duration

	armed        bool
	lastDamageAt time.Time
}

func newBerserker(cfg config.RolesConfig) *berserkerRole {
	return &berserkerRole{
		quiet:  time.Duration(cfg.BerserkerQuietMs) * time.Millisecond,
		factor: cfg.BerserkerToughnessFactor,
		boost:  time.Duration(cfg.BerserkerDurationSeconds) * time.Second,
	}
}

func (r *berserkerRole) Tag() RoleTag { return RoleBerserker }

func (r *berserkerRole) OnRoundStart(e *Engine, p *Player, now time.Time) {
	r.armed = false
}

func (r *berserkerRole) OnDamage(e *Engine, p *Player, amount float64, now time.Time) float64 {
	if amount > 0 {
		r.armed = true
		r.lastDamageAt = now
	}
	return amount
}

func (r *berserkerRole) OnTick(e *Engine, p *Player, now time.Time) {
	if !r.armed || !p.IsAlive {
		return
	}
	if now.Sub(r.lastDamageAt) < r.quiet {
		return
	}
	r.armed = false
	p.ApplyEffect(EffectToughened, r.boost, r.factor, now)
	e.publishModeEvent("berserker:enraged", map[string]interface{}{"id": p.ID})
}

// ---------------------------------------------------------------------------
// NINJA: a higher bar to clear, but clearing it is fatal
// ---------------------------------------------------------------------------

type ninjaRole struct {
	roleBase
	factor float64
}

func newNinja(cfg config.RolesConfig) *ninjaRole {
	return &ninjaRole{factor: cfg.NinjaThresholdFactor}
}

func (r *ninjaRole) Tag() RoleTag             { return RoleNinja }
func (r *ninjaRole) ThresholdFactor() float64 { return r.factor }
func (r *ninjaRole) InstantLethal() bool      { return true }

// ---------------------------------------------------------------------------
// MASOCHIST: paid for staying hurt
// ---------------------------------------------------------------------------

type masochistRole struct {
	roleBase
	interval time.Duration

	qualifying  bool
	nextAwardAt time.Time
}

func newMasochist(cfg config.RolesConfig) *masochistRole {
	return &masochistRole{interval: time.Duration(cfg.MasochistIntervalSeconds) * time.Second}
}

func (r *masochistRole) Tag() RoleTag { return RoleMasochist }

func (r *masochistRole) OnRoundStart(e *Engine, p *Player, now time.Time) {
	r.qualifying = false
}

func (r *masochistRole) OnTick(e *Engine, p *Player, now time.Time) {
	hurting := p.IsAlive && p.AccumulatedDamage >= p.DeathThreshold*0.5
	if !hurting {
		r.qualifying = false
		return
	}
	if !r.qualifying {
		r.qualifying = true
		r.nextAwardAt = now.Add(r.interval)
		return
	}
	for !now.Before(r.nextAwardAt) {
		p.AddPoints(1)
		r.nextAwardAt = r.nextAwardAt.Add(r.interval)
	}
}

// ---------------------------------------------------------------------------
// SIBLING: bound pairs that share every wound
// ---------------------------------------------------------------------------

type siblingRole struct {
	roleBase
	toughness float64

	pairID          string
	receivingMirror bool
}

func newSibling(cfg config.RolesConfig) *siblingRole {
	return &siblingRole{toughness: cfg.SiblingToughness}
}

func (r *siblingRole) Tag() RoleTag           { return RoleSibling }
func (r *siblingRole) ToughnessBase() float64 { return r.toughness }

func (r *siblingRole) OnRoundStart(e *Engine, p *Player, now time.Time) {
	r.receivingMirror = false
	// Roles are fresh instances each round and the first half of a pair
	// claims both sides, so only a still-unclaimed sibling searches.
	if r.pairID == "" {
		r.pairUp(e, p)
	}
}

func (r *siblingRole) OnDamage(e *Engine, p *Player, amount float64, now time.Time) float64 {
	if r.receivingMirror || amount <= 0 || r.pairID == "" {
		return amount
	}
	pair := e.playerByID(r.pairID)
	if pair == nil || !pair.IsAlive {
		return amount
	}
	pairRole, ok := pair.Role.(*siblingRole)
	if !ok {
		return amount
	}
	// Guard against ping-pong: the mirrored hit must not mirror back.
	pairRole.receivingMirror = true
	e.mirrorDamage(pair, amount, now)
	pairRole.receivingMirror = false
	return amount
}

func (r *siblingRole) RetargetIfNeeded(e *Engine, p *Player, goneID string, now time.Time) {
	if r.pairID == goneID {
		r.pairID = ""
		r.pairUp(e, p)
	}
}

// pairUp links this sibling with the first unpaired sibling in number
// order. Round start visits players in number order, so both halves
// agree on the pairing.
func (r *siblingRole) pairUp(e *Engine, p *Player) {
	for _, other := range e.alivePlayers() {
		if other.ID == p.ID {
			continue
		}
		otherRole, ok := other.Role.(*siblingRole)
		if !ok || otherRole.pairID != "" {
			continue
		}
		r.pairID = other.ID
		otherRole.pairID = p.ID
		e.publishModeEvent("sibling:paired", map[string]interface{}{
			"id":   p.ID,
			"pair": other.ID,
		})
		return
	}
}

// ---------------------------------------------------------------------------
// VULTURE: profits when deaths come in quick succession
// ---------------------------------------------------------------------------

type vultureRole struct {
	roleBase
	window time.Duration
	bonus  int

	lastDeathAt time.Time
}

func newVulture(cfg config.RolesConfig) *vultureRole {
	return &vultureRole{
		window: time.Duration(cfg.VultureWindowSeconds) * time.Second,
		bonus:  cfg.VultureBonus,
	}
}

func (r *vultureRole) Tag() RoleTag { return RoleVulture }

func (r *vultureRole) OnRoundStart(e *Engine, p *Player, now time.Time) {
	r.lastDeathAt = time.Time{}
}

func (r *vultureRole) OnOtherDeath(e *Engine, p *Player, victim *Player, now time.Time) {
	if !r.lastDeathAt.IsZero() && now.Sub(r.lastDeathAt) <= r.window && p.IsAlive {
		p.AddPoints(r.bonus)
	}
	r.lastDeathAt = now
}

// ---------------------------------------------------------------------------
// TROLL: shrugs wounds off after five quiet seconds
// ---------------------------------------------------------------------------

type trollRole struct {
	roleBase
	healDelay time.Duration

	pending      float64
	lastDamageAt time.Time
}

func newTroll(cfg config.RolesConfig) *trollRole {
	return &trollRole{healDelay: time.Duration(cfg.TrollHealDelaySeconds) * time.Second}
}

func (r *trollRole) Tag() RoleTag { return RoleTroll }

func (r *trollRole) OnRoundStart(e *Engine, p *Player, now time.Time) {
	r.pending = 0
}

func (r *trollRole) OnDamage(e *Engine, p *Player, amount float64, now time.Time) float64 {
	if amount > 0 {
		r.pending += amount
		r.lastDamageAt = now
	}
	return amount
}

func (r *trollRole) OnTick(e *Engine, p *Player, now time.Time) {
	if r.pending <= 0 || !p.IsAlive {
		return
	}
	if now.Sub(r.lastDamageAt) < r.healDelay {
		return
	}
	p.AccumulatedDamage -= r.pending
	if p.AccumulatedDamage < 0 {
		p.AccumulatedDamage = 0
	}
	r.pending = 0
	e.publishDamage(p)
	e.publishModeEvent("troll:regenerated", map[string]interface{}{"id": p.ID})
}

func (r *trollRole) OnDeath(e *Engine, p *Player, now time.Time) {
	r.pending = 0
}

// ---------------------------------------------------------------------------
// IRONCLAD: one deliberate moment of fortification
// ---------------------------------------------------------------------------

type ironcladRole struct {
	roleBase
	bonus    float64
	duration time.Duration
	charges  int
}

func newIronclad(cfg config.RolesConfig) *ironcladRole {
	return &ironcladRole{
		bonus:    cfg.IroncladBonus,
		duration: time.Duration(cfg.IroncladDurationSeconds) * time.Second,
		charges:  1,
	}
}

func (r *ironcladRole) Tag() RoleTag { return RoleIronclad }

func (r *ironcladRole) UseAbility(e *Engine, p *Player, now time.Time) bool {
	if r.charges <= 0 || !p.IsAlive {
		return false
	}
	r.charges--
	p.ApplyEffect(EffectStrengthened, r.duration, r.bonus, now)
	e.publishModeEvent("ironclad:fortified", map[string]interface{}{"id": p.ID})
	return true
}
