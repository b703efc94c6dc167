package game

import (
	"testing"
	"time"

	"github.com/SimoneRocutto/role-based-joust-sub000/internal/config"
)

// TestNewRoleUnknownTagPanics verifies an unknown tag is treated as a
// wiring bug rather than an input error.
func TestNewRoleUnknownTagPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Expected a panic for an unknown role tag")
		}
	}()
	NewRole(RoleTag("warlock"), config.DefaultRoles())
}

// TestRoleCatalogComplete verifies every catalog tag constructs a role
// that agrees on its own tag.
func TestRoleCatalogComplete(t *testing.T) {
	tags := AllRoleTags()
	if len(tags) != 14 {
		t.Fatalf("Expected 14 roles in the catalog, got %d", len(tags))
	}
	for _, tag := range tags {
		role := NewRole(tag, config.DefaultRoles())
		if role.Tag() != tag {
			t.Errorf("Role %q reports tag %q", tag, role.Tag())
		}
	}
}

// TestRoleBaseStats verifies the passive stat overrides.
func TestRoleBaseStats(t *testing.T) {
	tests := []struct {
		tag       RoleTag
		toughness float64
		threshold float64
		lethal    bool
	}{
		{RoleBeast, 1.5, 1.0, false},
		{RoleSibling, 1.5, 1.0, false},
		{RoleNinja, 1.0, 3.0, true},
		{RoleVampire, 1.0, 1.0, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.tag), func(t *testing.T) {
			role := NewRole(tt.tag, config.DefaultRoles())
			if got := role.ToughnessBase(); got != tt.toughness {
				t.Errorf("Expected toughness %.1f, got %.1f", tt.toughness, got)
			}
			if got := role.ThresholdFactor(); got != tt.threshold {
				t.Errorf("Expected threshold factor %.1f, got %.1f", tt.threshold, got)
			}
			if got := role.InstantLethal(); got != tt.lethal {
				t.Errorf("Expected instant lethal %v, got %v", tt.lethal, got)
			}
		})
	}
}

// TestVampireBloodlust verifies the kill bonus only pays once the
// quiet first minute has armed the bloodlust.
func TestVampireBloodlust(t *testing.T) {
	e, _ := newEngineWithPlayers(t, 2)
	p1, p2 := e.conns.Get("p1"), e.conns.Get("p2")
	v := newVampire(config.DefaultRoles())
	p1.Role = v
	start := e.now()

	v.OnRoundStart(e, p1, start)
	v.OnTick(e, p1, start.Add(30*time.Second))
	v.OnOtherDeath(e, p1, p2, start.Add(30*time.Second))
	if p1.Points != 0 {
		t.Errorf("Expected no points before bloodlust, got %d", p1.Points)
	}

	v.OnTick(e, p1, start.Add(60*time.Second))
	if !v.armed {
		t.Fatal("Expected bloodlust to arm at the 60s mark")
	}
	v.OnOtherDeath(e, p1, p2, start.Add(61*time.Second))
	if p1.Points != 1 {
		t.Errorf("Expected 1 point per death under bloodlust, got %d", p1.Points)
	}
}

// TestBeastHunterBounty verifies only dead Beasts pay out.
func TestBeastHunterBounty(t *testing.T) {
	e, _ := newEngineWithPlayers(t, 3)
	hunter, civilian, beast := e.conns.Get("p1"), e.conns.Get("p2"), e.conns.Get("p3")
	cfg := config.DefaultRoles()
	bh := newBeastHunter(cfg)
	hunter.Role = bh
	beast.Role = NewRole(RoleBeast, cfg)
	now := e.now()

	bh.OnOtherDeath(e, hunter, civilian, now)
	if hunter.Points != 0 {
		t.Errorf("Expected no bounty for a civilian, got %d", hunter.Points)
	}
	bh.OnOtherDeath(e, hunter, beast, now)
	if hunter.Points != 2 {
		t.Errorf("Expected bounty 2 for a dead beast, got %d", hunter.Points)
	}
}

// TestAngelSavesOneLethalHit verifies the lethal hit is cancelled once,
// with a grace window, and that the save never repeats.
func TestAngelSavesOneLethalHit(t *testing.T) {
	e, _ := newEngineWithPlayers(t, 1)
	p := e.conns.Get("p1")
	p.Role = NewRole(RoleAngel, config.DefaultRoles())
	now := e.now()

	if got := e.applyDamage(p, 40, now); got != 40 {
		t.Fatalf("Expected a non-lethal hit to land 40, got %.1f", got)
	}
	if got := e.applyDamage(p, 70, now); got != 0 {
		t.Errorf("Expected the lethal hit to be cancelled, got %.1f", got)
	}
	if !p.IsAlive || p.AccumulatedDamage != 40 {
		t.Fatalf("Expected a saved player at damage 40, alive=%v damage=%.1f",
			p.IsAlive, p.AccumulatedDamage)
	}
	if !p.HasEffect(EffectInvulnerability) {
		t.Error("Expected the save to grant invulnerability")
	}

	// Once per round: with the grace window gone, the next lethal hit
	// sticks.
	p.RemoveEffect(EffectInvulnerability)
	e.applyDamage(p, 70, now)
	if p.IsAlive {
		t.Error("Expected the second lethal hit to kill")
	}
}

// TestSurvivorPaysPerInterval verifies the per-30s award, including the
// catch-up when ticks arrive late.
func TestSurvivorPaysPerInterval(t *testing.T) {
	e, _ := newEngineWithPlayers(t, 1)
	p := e.conns.Get("p1")
	s := newSurvivor(config.DefaultRoles())
	p.Role = s
	start := e.now()

	s.OnRoundStart(e, p, start)
	s.OnTick(e, p, start.Add(29*time.Second))
	if p.Points != 0 {
		t.Errorf("Expected no points at 29s, got %d", p.Points)
	}
	s.OnTick(e, p, start.Add(30*time.Second))
	if p.Points != 1 {
		t.Errorf("Expected 1 point at 30s, got %d", p.Points)
	}
	s.OnTick(e, p, start.Add(90*time.Second))
	if p.Points != 3 {
		t.Errorf("Expected a catch-up to 3 points at 90s, got %d", p.Points)
	}
}

// TestExecutionerBountyAndReroll verifies only the marked death pays
// and the mark moves to a living player afterwards.
func TestExecutionerBountyAndReroll(t *testing.T) {
	e, _ := newEngineWithPlayers(t, 4)
	hunter := e.conns.Get("p1")
	ex := newExecutioner(config.DefaultRoles())
	hunter.Role = ex
	now := e.now()

	ex.OnRoundStart(e, hunter, now)
	first := ex.targetID
	if first == "" || first == hunter.ID {
		t.Fatalf("Expected a mark among the others, got %q", first)
	}

	var offTarget *Player
	for _, id := range []string{"p2", "p3", "p4"} {
		if id != first {
			offTarget = e.conns.Get(id)
			break
		}
	}
	e.killPlayer(offTarget, now)
	if hunter.Points != 0 {
		t.Errorf("Expected no bounty for an unmarked death, got %d", hunter.Points)
	}

	e.killPlayer(e.conns.Get(first), now)
	if hunter.Points != 3 {
		t.Errorf("Expected bounty 3 for the mark, got %d", hunter.Points)
	}
	var remaining string
	for _, id := range []string{"p2", "p3", "p4"} {
		if id != first && id != offTarget.ID {
			remaining = id
		}
	}
	if ex.targetID != remaining {
		t.Errorf("Expected the mark to move to %s, got %q", remaining, ex.targetID)
	}
}

// TestBodyguardPodiumPay verifies the ward must be alive in the top 3,
// the bonus pays once, and a dead ward rerolls the assignment.
func TestBodyguardPodiumPay(t *testing.T) {
	e, _ := newEngineWithPlayers(t, 5)
	guard := e.conns.Get("p1")
	bg := newBodyguard(config.DefaultRoles())
	guard.Role = bg
	now := e.now()

	bg.OnRoundStart(e, guard, now)
	if len(bg.PlacementBonuses()) != 3 {
		t.Fatalf("Expected the flat placement table, got %v", bg.PlacementBonuses())
	}
	bg.targetID = "p2" // pin the ward so the rest is deterministic

	e.killPlayer(e.conns.Get("p5"), now)
	if guard.Points != 0 {
		t.Errorf("Expected no pay with 4 still standing, got %d", guard.Points)
	}

	e.killPlayer(e.conns.Get("p4"), now)
	if guard.Points != 3 {
		t.Errorf("Expected the protection bonus at top 3, got %d", guard.Points)
	}

	e.killPlayer(e.conns.Get("p3"), now)
	if guard.Points != 3 {
		t.Errorf("Expected the bonus to pay once, got %d", guard.Points)
	}

	e.killPlayer(e.conns.Get("p2"), now)
	if bg.targetID != "" {
		t.Errorf("Expected no ward candidates left, got %q", bg.targetID)
	}
}

// TestBerserkerTougheningAfterQuietSpell verifies the boost arms on
// damage and fires only after the debounce elapses.
func TestBerserkerTougheningAfterQuietSpell(t *testing.T) {
	e, _ := newEngineWithPlayers(t, 1)
	p := e.conns.Get("p1")
	b := newBerserker(config.DefaultRoles())
	p.Role = b
	start := e.now()

	e.applyDamage(p, 10, start)
	b.OnTick(e, p, start.Add(100*time.Millisecond))
	if p.HasEffect(EffectToughened) {
		t.Fatal("Expected no boost while hits are still fresh")
	}

	b.OnTick(e, p, start.Add(400*time.Millisecond))
	if !p.HasEffect(EffectToughened) {
		t.Fatal("Expected the boost after 300ms of quiet")
	}
	if got := p.EffectiveToughness(); got != 2.0 {
		t.Errorf("Expected toughness 2.0 while enraged, got %.1f", got)
	}
}

// TestNinjaInstantLethal verifies the tripled bar and that clearing it
// skips accumulation entirely.
func TestNinjaInstantLethal(t *testing.T) {
	e, _ := newEngineWithPlayers(t, 1)
	p := e.conns.Get("p1")
	p.Role = NewRole(RoleNinja, config.DefaultRoles())
	now := e.now()
	gravity := e.cfg.Game.GravityBaseline

	// Danger threshold 3.0 tripled to 9.0: 8.5 stays under the bar.
	for i := 0; i < 5; i++ {
		p.ApplyMotion(MotionSample{Z: gravity + 8.5}, now)
	}
	e.applyMotionDamage(p, now)
	if p.AccumulatedDamage != 0 || !p.IsAlive {
		t.Fatalf("Expected 8.5 to stay under the ninja bar, damage=%.1f", p.AccumulatedDamage)
	}

	for i := 0; i < 5; i++ {
		p.ApplyMotion(MotionSample{Z: gravity + 9.5}, now)
	}
	e.applyMotionDamage(p, now)
	if p.IsAlive {
		t.Error("Expected clearing the bar to be instantly fatal")
	}
}

// TestMasochistPaidWhileHurting verifies pay starts after a full
// interval at half damage or worse and healing resets the clock.
func TestMasochistPaidWhileHurting(t *testing.T) {
	e, _ := newEngineWithPlayers(t, 1)
	p := e.conns.Get("p1")
	m := newMasochist(config.DefaultRoles())
	p.Role = m
	start := e.now()

	m.OnRoundStart(e, p, start)
	p.AccumulatedDamage = 50

	m.OnTick(e, p, start.Add(100*time.Millisecond))
	if p.Points != 0 {
		t.Errorf("Expected qualifying to start unpaid, got %d", p.Points)
	}
	m.OnTick(e, p, start.Add(100*time.Millisecond+15*time.Second))
	if p.Points != 1 {
		t.Errorf("Expected 1 point after a full interval, got %d", p.Points)
	}

	// Healing below half disqualifies and restarts the interval.
	p.AccumulatedDamage = 10
	m.OnTick(e, p, start.Add(16*time.Second))
	p.AccumulatedDamage = 60
	m.OnTick(e, p, start.Add(17*time.Second))
	m.OnTick(e, p, start.Add(31*time.Second))
	if p.Points != 1 {
		t.Errorf("Expected no pay before the restarted interval, got %d", p.Points)
	}
	m.OnTick(e, p, start.Add(32*time.Second))
	if p.Points != 2 {
		t.Errorf("Expected 2 points after the restarted interval, got %d", p.Points)
	}
}

// TestSiblingsShareEveryWound verifies round start forms a mutual pair
// and a hit on either half lands on both.
func TestSiblingsShareEveryWound(t *testing.T) {
	e, _ := newEngineWithPlayers(t, 2)
	a, b := e.conns.Get("p1"), e.conns.Get("p2")
	cfg := config.DefaultRoles()
	ra, rb := newSibling(cfg), newSibling(cfg)
	a.Role, b.Role = ra, rb
	now := e.now()

	// Round start visits players in number order; the first claims both
	// sides and the second keeps the claim.
	ra.OnRoundStart(e, a, now)
	rb.OnRoundStart(e, b, now)
	if ra.pairID != b.ID || rb.pairID != a.ID {
		t.Fatalf("Expected a mutual pair, got %q / %q", ra.pairID, rb.pairID)
	}

	e.applyDamage(a, 10, now)
	if a.AccumulatedDamage != 10 {
		t.Errorf("Expected the victim at damage 10, got %.1f", a.AccumulatedDamage)
	}
	if b.AccumulatedDamage != 10 {
		t.Errorf("Expected the mirrored sibling at damage 10, got %.1f", b.AccumulatedDamage)
	}
}

// TestVultureQuickSuccession verifies only deaths inside the window
// after the previous death pay out.
func TestVultureQuickSuccession(t *testing.T) {
	e, _ := newEngineWithPlayers(t, 4)
	v := e.conns.Get("p1")
	role := newVulture(config.DefaultRoles())
	v.Role = role
	start := e.now()

	role.OnRoundStart(e, v, start)
	e.killPlayer(e.conns.Get("p2"), start)
	if v.Points != 0 {
		t.Errorf("Expected the first death to only open the window, got %d", v.Points)
	}
	e.killPlayer(e.conns.Get("p3"), start.Add(4*time.Second))
	if v.Points != 1 {
		t.Errorf("Expected a death inside the window to pay, got %d", v.Points)
	}
	e.killPlayer(e.conns.Get("p4"), start.Add(20*time.Second))
	if v.Points != 1 {
		t.Errorf("Expected a late death to pay nothing, got %d", v.Points)
	}
}

// TestTrollHealsAfterQuietSpell verifies pending wounds clear in one go
// once the heal delay passes without new damage.
func TestTrollHealsAfterQuietSpell(t *testing.T) {
	e, _ := newEngineWithPlayers(t, 1)
	p := e.conns.Get("p1")
	tr := newTroll(config.DefaultRoles())
	p.Role = tr
	start := e.now()

	e.applyDamage(p, 30, start)
	tr.OnTick(e, p, start.Add(4*time.Second))
	if p.AccumulatedDamage != 30 {
		t.Fatalf("Expected wounds to linger before the delay, got %.1f", p.AccumulatedDamage)
	}
	tr.OnTick(e, p, start.Add(5*time.Second))
	if p.AccumulatedDamage != 0 {
		t.Errorf("Expected a full regeneration, got %.1f", p.AccumulatedDamage)
	}
}

// TestIroncladSingleCharge verifies the ability fires once and the
// fortification adds flat toughness.
func TestIroncladSingleCharge(t *testing.T) {
	e, _ := newEngineWithPlayers(t, 1)
	p := e.conns.Get("p1")
	p.Role = NewRole(RoleIronclad, config.DefaultRoles())
	now := e.now()

	if !p.Role.UseAbility(e, p, now) {
		t.Fatal("Expected the first use to fire")
	}
	if got := p.EffectiveToughness(); got != 3.0 {
		t.Errorf("Expected toughness 3.0 while fortified, got %.1f", got)
	}
	if p.Role.UseAbility(e, p, now) {
		t.Error("Expected the single charge to be spent")
	}
}
