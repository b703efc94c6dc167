package game

import (
	"testing"

	"github.com/SimoneRocutto/role-based-joust-sub000/internal/config"
)

// TestNewModeUnknown verifies unknown mode names are reported as input
// errors and the catalog listing stays sorted.
func TestNewModeUnknown(t *testing.T) {
	if _, err := NewMode("freeforall", config.Default(), LaunchOptions{}); err == nil {
		t.Error("Expected an error for an unknown mode")
	}

	want := []string{ModeClassic, ModeDeathCount, ModeDomination, ModeRoleBased}
	got := KnownModes()
	if len(got) != len(want) {
		t.Fatalf("Expected %d modes, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Mode %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

// TestRolePoolCyclesCatalog verifies the deal wraps around the catalog
// when the lobby outgrows it.
func TestRolePoolCyclesCatalog(t *testing.T) {
	m, err := NewMode(ModeRoleBased, config.Default(), LaunchOptions{})
	if err != nil {
		t.Fatal(err)
	}

	pool := m.GetRolePool(20)
	if len(pool) != 20 {
		t.Fatalf("Expected 20 tags, got %d", len(pool))
	}
	if pool[14] != pool[0] {
		t.Errorf("Expected the pool to wrap at the catalog size, got %s vs %s", pool[14], pool[0])
	}
	if m.GetRolePool(0) != nil {
		t.Error("Expected no pool for an empty roster")
	}
}

// TestRoleBasedCountdownFloor verifies the countdown never undercuts
// the role-reveal cue.
func TestRoleBasedCountdownFloor(t *testing.T) {
	e := NewTestEngine(config.Default(), NewBus(), 1)
	tests := []struct {
		name string
		opts LaunchOptions
		want int
	}{
		{"default stretches to the reveal", LaunchOptions{}, 10},
		{"short requests get floored", LaunchOptions{CountdownSeconds: intPtr(3)}, 10},
		{"long requests pass through", LaunchOptions{CountdownSeconds: intPtr(20)}, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewMode(ModeRoleBased, config.Default(), tt.opts)
			if err != nil {
				t.Fatal(err)
			}
			if got := m.CountdownSeconds(e); got != tt.want {
				t.Errorf("Expected countdown %d, got %d", tt.want, got)
			}
		})
	}
}

// TestClassicRoundFlow verifies the core elimination round: the death
// pays second place, the survivor takes first, and a single-round match
// finishes with ranked final scores.
func TestClassicRoundFlow(t *testing.T) {
	e, bus := newEngineWithPlayers(t, 2)
	rec := recordEvents(bus)

	if err := e.Launch(ModeClassic, LaunchOptions{CountdownSeconds: intPtr(0)}); err != nil {
		t.Fatalf("launch: %v", err)
	}
	if e.state != StateActive {
		t.Fatalf("Expected an immediate active round, got %s", e.state)
	}

	if !e.KillPlayer("p2") {
		t.Fatal("debug kill failed")
	}
	e.FastForward(100) // next tick settles the round

	if e.state != StateFinished {
		t.Fatalf("Expected the single-round match to finish, got %s", e.state)
	}
	p1, p2 := e.conns.Get("p1"), e.conns.Get("p2")
	if p1.TotalPoints != 5 || p2.TotalPoints != 3 {
		t.Errorf("Expected totals 5/3, got %d/%d", p1.TotalPoints, p2.TotalPoints)
	}
	if len(e.finalScores) != 2 || e.finalScores[0].PlayerID != "p1" || e.finalScores[0].Rank != 1 {
		t.Errorf("Expected p1 to take the match, got %+v", e.finalScores)
	}
	if n := len(rec.ofType(EventTypeRoundEnd)); n != 1 {
		t.Errorf("Expected one round end, got %d", n)
	}
	if n := len(rec.ofType(EventTypeGameFinished)); n != 1 {
		t.Errorf("Expected one finish announcement, got %d", n)
	}
}

// TestClassicTargetScore verifies a target score ends the match early,
// before the configured round count is spent.
func TestClassicTargetScore(t *testing.T) {
	e, _ := newEngineWithPlayers(t, 2)

	err := e.Launch(ModeClassic, LaunchOptions{
		RoundCount:       3,
		TargetScore:      5,
		CountdownSeconds: intPtr(0),
	})
	if err != nil {
		t.Fatalf("launch: %v", err)
	}

	e.KillPlayer("p2")
	e.FastForward(100)

	// The survivor's first-place bonus already meets the target.
	if e.state != StateFinished {
		t.Errorf("Expected the target score to end the match, got %s", e.state)
	}
}

// TestDeathCountRespawnTiming verifies the death books a respawn that
// fires exactly after the configured delay.
func TestDeathCountRespawnTiming(t *testing.T) {
	e, bus := newEngineWithPlayers(t, 2)
	rec := recordEvents(bus)

	err := e.Launch(ModeDeathCount, LaunchOptions{
		RoundDurationMs:  60000,
		RespawnDelayMs:   5000,
		CountdownSeconds: intPtr(0),
	})
	if err != nil {
		t.Fatalf("launch: %v", err)
	}

	e.FastForward(1000)
	if !e.KillPlayer("p1") {
		t.Fatal("debug kill failed")
	}

	pending := rec.ofType(EventTypeRespawnPending)
	if len(pending) != 1 {
		t.Fatalf("Expected a respawn announcement, got %d", len(pending))
	}
	if pl := pending[0].Payload.(RespawnPendingPayload); pl.ID != "p1" || pl.RespawnIn != 5000 {
		t.Errorf("Expected p1 back in 5000ms, got %+v", pl)
	}

	e.FastForward(4900)
	if e.conns.Get("p1").IsAlive {
		t.Fatal("Expected p1 still down before the delay elapses")
	}

	e.FastForward(100)
	p1 := e.conns.Get("p1")
	if !p1.IsAlive || p1.AccumulatedDamage != 0 {
		t.Errorf("Expected a clean respawn, alive=%v damage=%.1f", p1.IsAlive, p1.AccumulatedDamage)
	}
	if p1.DeathCount != 1 {
		t.Errorf("Expected one booked death, got %d", p1.DeathCount)
	}
	if e.state != StateActive {
		t.Errorf("Expected the round to keep running, got %s", e.state)
	}
}

// TestDeathCountNoLateRespawn verifies a respawn that would land past
// the round deadline is suppressed, and the fewest deaths win at the
// horn.
func TestDeathCountNoLateRespawn(t *testing.T) {
	e, bus := newEngineWithPlayers(t, 2)
	rec := recordEvents(bus)

	err := e.Launch(ModeDeathCount, LaunchOptions{
		RoundDurationMs:  10000,
		RespawnDelayMs:   5000,
		CountdownSeconds: intPtr(0),
	})
	if err != nil {
		t.Fatalf("launch: %v", err)
	}

	e.FastForward(6000)
	e.KillPlayer("p1") // would come back at 11s, past the 10s deadline
	if n := len(rec.ofType(EventTypeRespawnPending)); n != 0 {
		t.Errorf("Expected the late respawn suppressed, got %d announcements", n)
	}

	e.FastForward(4000) // reaches the deadline
	if e.state != StateFinished {
		t.Fatalf("Expected the match to end at the horn, got %s", e.state)
	}
	p1, p2 := e.conns.Get("p1"), e.conns.Get("p2")
	if p1.IsAlive {
		t.Error("Expected p1 to stay down to the horn")
	}
	if p2.TotalPoints != 5 || p1.TotalPoints != 3 {
		t.Errorf("Expected fewest-deaths totals 5/3, got %d/%d", p2.TotalPoints, p1.TotalPoints)
	}
	if e.finalScores[0].PlayerID != "p2" {
		t.Errorf("Expected p2 to take the match, got %+v", e.finalScores)
	}
}

// TestDominationCaptureAndScoring verifies the capture cycle, the
// per-interval payout, and the point-target win.
func TestDominationCaptureAndScoring(t *testing.T) {
	e, bus := newEngineWithPlayers(t, 4)
	rec := recordEvents(bus)

	if err := e.ConfigureTeams(true, 2); err != nil {
		t.Fatalf("teams: %v", err)
	}
	if _, err := e.RegisterBase("base-sock-1"); err != nil {
		t.Fatalf("base: %v", err)
	}

	err := e.Launch(ModeDomination, LaunchOptions{
		PointTarget:      3,
		CountdownSeconds: intPtr(0),
	})
	if err != nil {
		t.Fatalf("launch: %v", err)
	}

	if !e.TapBase("base-1", 0) {
		t.Fatal("Expected the tap to capture the neutral base")
	}
	captured := rec.ofType(EventTypeBaseCaptured)
	if len(captured) != 1 {
		t.Fatalf("Expected one capture event, got %d", len(captured))
	}
	if pl := captured[0].Payload.(BaseCapturedPayload); pl.OwnerTeam == nil || *pl.OwnerTeam != 0 {
		t.Errorf("Expected team 0 to take the base, got %+v", pl)
	}

	e.FastForward(3100) // pays at 1s, 2s, 3s; 3 points is the target

	if got := len(rec.ofType(EventTypeBasePoint)); got != 3 {
		t.Errorf("Expected 3 base points, got %d", got)
	}
	wins := rec.ofType(EventTypeDominationWin)
	if len(wins) != 1 {
		t.Fatalf("Expected a domination win, got %d", len(wins))
	}
	if pl := wins[0].Payload.(DominationWinPayload); pl.TeamID != 0 || pl.MatchPoints != 3 {
		t.Errorf("Expected team 0 at 3 points, got %+v", pl)
	}
	if e.state != StateFinished {
		t.Errorf("Expected the match finished, got %s", e.state)
	}
}

// TestDominationDisconnectedBase verifies an offline base accrues
// nothing and a reconnect resumes scoring without back-pay.
func TestDominationDisconnectedBase(t *testing.T) {
	e, _ := newEngineWithPlayers(t, 4)
	if err := e.ConfigureTeams(true, 2); err != nil {
		t.Fatalf("teams: %v", err)
	}
	if _, err := e.RegisterBase("base-sock-1"); err != nil {
		t.Fatalf("base: %v", err)
	}
	err := e.Launch(ModeDomination, LaunchOptions{
		PointTarget:      100,
		CountdownSeconds: intPtr(0),
	})
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	e.TapBase("base-1", 0)

	e.FastForward(1000)
	if got := e.teams.MatchPoints(0); got != 1 {
		t.Fatalf("Expected 1 point after one interval, got %d", got)
	}

	e.HandleBaseSocketDisconnect("base-sock-1")
	e.FastForward(5000)
	if got := e.teams.MatchPoints(0); got != 1 {
		t.Errorf("Expected no points while offline, got %d", got)
	}

	if _, err := e.RegisterBase("base-sock-1"); err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	e.FastForward(1000)
	if got := e.teams.MatchPoints(0); got != 2 {
		t.Errorf("Expected exactly one more point after the reconnect, got %d", got)
	}
}

// TestDominationRequiresTeams verifies the launch precondition.
func TestDominationRequiresTeams(t *testing.T) {
	e, _ := newEngineWithPlayers(t, 4)

	err := e.Launch(ModeDomination, LaunchOptions{CountdownSeconds: intPtr(0)})
	if err == nil {
		t.Fatal("Expected the launch to be rejected without teams")
	}
	if e.state != StateWaiting {
		t.Errorf("Expected the lobby untouched, got %s", e.state)
	}
}

// TestTapBaseOutsideDomination verifies taps are dead air in the lobby
// and under modes that have no bases.
func TestTapBaseOutsideDomination(t *testing.T) {
	e, bus := newEngineWithPlayers(t, 2)
	if _, err := e.RegisterBase("base-sock-1"); err != nil {
		t.Fatalf("base: %v", err)
	}
	rec := recordEvents(bus)

	if e.TapBase("base-1", 0) {
		t.Error("Expected a lobby tap to be ignored")
	}

	if err := e.Launch(ModeClassic, LaunchOptions{CountdownSeconds: intPtr(0)}); err != nil {
		t.Fatalf("launch: %v", err)
	}
	if e.TapBase("base-1", 0) {
		t.Error("Expected a tap outside domination to be ignored")
	}
	if n := len(rec.ofType(EventTypeBaseCaptured)); n != 0 {
		t.Errorf("Expected no capture events, got %d", n)
	}
}
