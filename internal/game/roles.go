package game

import (
	"fmt"
	"time"

	"github.com/SimoneRocutto/role-based-joust-sub000/internal/config"
)

// RoleTag identifies a role in the closed catalog.
type RoleTag string

const (
	RoleVampire     RoleTag = "vampire"
	RoleBeast       RoleTag = "beast"
	RoleBeastHunter RoleTag = "beasthunter"
	RoleAngel       RoleTag = "angel"
	RoleSurvivor    RoleTag = "survivor"
	RoleExecutioner RoleTag = "executioner"
	RoleBodyguard   RoleTag = "bodyguard"
	RoleBerserker   RoleTag = "berserker"
	RoleNinja       RoleTag = "ninja"
	RoleMasochist   RoleTag = "masochist"
	RoleSibling     RoleTag = "sibling"
	RoleVulture     RoleTag = "vulture"
	RoleTroll       RoleTag = "troll"
	RoleIronclad    RoleTag = "ironclad"
)

// Role is a player specialization hooked into the lifecycle. Hooks run
// on the engine thread; per-role private state lives in the variant
// struct and the engine never reaches inside it.
type Role interface {
	Tag() RoleTag

	// ToughnessBase is the role's damage divisor before effects.
	ToughnessBase() float64

	// ThresholdFactor scales the danger threshold for this role (Ninja).
	ThresholdFactor() float64

	// InstantLethal marks over-threshold motion as instantly fatal
	// instead of accumulating (Ninja).
	InstantLethal() bool

	// PlacementBonuses overrides the mode's placement table, nil keeps
	// the mode default (Bodyguard).
	PlacementBonuses() PlacementTable

	OnRoundStart(e *Engine, p *Player, now time.Time)
	OnTick(e *Engine, p *Player, now time.Time)

	// OnDamage observes and may adjust a hit after effect interception
	// and before accumulation. Returns the amount that lands.
	OnDamage(e *Engine, p *Player, amount float64, now time.Time) float64

	OnDeath(e *Engine, p *Player, now time.Time)
	OnOtherDeath(e *Engine, p *Player, victim *Player, now time.Time)

	// UseAbility triggers the role's active ability, if any. Returns
	// whether anything happened.
	UseAbility(e *Engine, p *Player, now time.Time) bool
}

// retargeter is implemented by roles that track another player and must
// reroll when that player leaves the pool.
type retargeter interface {
	RetargetIfNeeded(e *Engine, p *Player, goneID string, now time.Time)
}

// roleBase supplies no-op defaults so variants only implement the hooks
// they care about.
type roleBase struct{}

func (roleBase) ToughnessBase() float64                        { return 1.0 }
func (roleBase) ThresholdFactor() float64                      { return 1.0 }
func (roleBase) InstantLethal() bool                           { return false }
func (roleBase) PlacementBonuses() PlacementTable              { return nil }
func (roleBase) OnRoundStart(*Engine, *Player, time.Time)      {}
func (roleBase) OnTick(*Engine, *Player, time.Time)            {}
func (roleBase) OnDeath(*Engine, *Player, time.Time)           {}
func (roleBase) OnOtherDeath(*Engine, *Player, *Player, time.Time) {
}
func (roleBase) UseAbility(*Engine, *Player, time.Time) bool { return false }
func (roleBase) OnDamage(_ *Engine, _ *Player, amount float64, _ time.Time) float64 {
	return amount
}

// roleFactories is the single registry of role constructors.
var roleFactories = map[RoleTag]func(cfg config.RolesConfig) Role{
	RoleVampire:     func(cfg config.RolesConfig) Role { return newVampire(cfg) },
	RoleBeast:       func(cfg config.RolesConfig) Role { return newBeast(cfg) },
	RoleBeastHunter: func(cfg config.RolesConfig) Role { return newBeastHunter(cfg) },
	RoleAngel:       func(cfg config.RolesConfig) Role { return newAngel(cfg) },
	RoleSurvivor:    func(cfg config.RolesConfig) Role { return newSurvivor(cfg) },
	RoleExecutioner: func(cfg config.RolesConfig) Role { return newExecutioner(cfg) },
	RoleBodyguard:   func(cfg config.RolesConfig) Role { return newBodyguard(cfg) },
	RoleBerserker:   func(cfg config.RolesConfig) Role { return newBerserker(cfg) },
	RoleNinja:       func(cfg config.RolesConfig) Role { return newNinja(cfg) },
	RoleMasochist:   func(cfg config.RolesConfig) Role { return newMasochist(cfg) },
	RoleSibling:     func(cfg config.RolesConfig) Role { return newSibling(cfg) },
	RoleVulture:     func(cfg config.RolesConfig) Role { return newVulture(cfg) },
	RoleTroll:       func(cfg config.RolesConfig) Role { return newTroll(cfg) },
	RoleIronclad:    func(cfg config.RolesConfig) Role { return newIronclad(cfg) },
}

// NewRole builds a fresh role instance. An unknown tag is a wiring bug,
// not an input error, so it panics at construction.
func NewRole(tag RoleTag, cfg config.RolesConfig) Role {
	factory, ok := roleFactories[tag]
	if !ok {
		panic(fmt.Sprintf("game: unknown role tag %q", tag))
	}
	return factory(cfg)
}

// AllRoleTags returns the catalog in a stable order.
func AllRoleTags() []RoleTag {
	return []RoleTag{
		RoleVampire, RoleBeast, RoleBeastHunter, RoleAngel,
		RoleSurvivor, RoleExecutioner, RoleBodyguard, RoleBerserker,
		RoleNinja, RoleMasochist, RoleSibling, RoleVulture,
		RoleTroll, RoleIronclad,
	}
}
