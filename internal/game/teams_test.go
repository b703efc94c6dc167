package game

import (
	"math/rand"
	"testing"
)

// TestConfigureClampsCount verifies the team count stays within the
// color table.
func TestConfigureClampsCount(t *testing.T) {
	tm := NewTeamManager()
	tm.Configure(true, 1)
	if tm.Count() != 2 {
		t.Errorf("Expected clamp to 2, got %d", tm.Count())
	}
	tm.Configure(true, 9)
	if tm.Count() != 4 {
		t.Errorf("Expected clamp to 4, got %d", tm.Count())
	}
}

// TestConfigureDropsOrphanedAssignments verifies players on removed
// teams lose their assignment.
func TestConfigureDropsOrphanedAssignments(t *testing.T) {
	tm := NewTeamManager()
	tm.Configure(true, 4)
	tm.assignment["p1"] = 3
	tm.assignment["p2"] = 1

	tm.Configure(true, 2)

	if tm.TeamOf("p1") != nil {
		t.Error("Assignment to a removed team should be dropped")
	}
	if got := tm.TeamOf("p2"); got == nil || *got != 1 {
		t.Error("Assignments within range should survive")
	}
}

// TestAddPlayerBalances verifies new players land on the smallest team,
// ties to the lowest id.
func TestAddPlayerBalances(t *testing.T) {
	tm := NewTeamManager()
	tm.Configure(true, 2)

	if got := tm.AddPlayer("p1"); got != 0 {
		t.Errorf("First player should land on team 0, got %d", got)
	}
	if got := tm.AddPlayer("p2"); got != 1 {
		t.Errorf("Second player should balance to team 1, got %d", got)
	}
	if got := tm.AddPlayer("p3"); got != 0 {
		t.Errorf("Third player should tie-break to team 0, got %d", got)
	}
}

// TestCyclePlayerTeam verifies the wrap-around and the unassigned case.
func TestCyclePlayerTeam(t *testing.T) {
	tm := NewTeamManager()
	tm.Configure(true, 2)

	if got := tm.CyclePlayerTeam("new"); got != 0 {
		t.Errorf("Unassigned player should land on team 0, got %d", got)
	}
	if got := tm.CyclePlayerTeam("new"); got != 1 {
		t.Errorf("Expected a cycle to team 1, got %d", got)
	}
	if got := tm.CyclePlayerTeam("new"); got != 0 {
		t.Errorf("Expected a wrap back to team 0, got %d", got)
	}
}

// TestValidateRejectsEmptyTeam verifies launches can be blocked on an
// uncovered team.
func TestValidateRejectsEmptyTeam(t *testing.T) {
	tm := NewTeamManager()
	tm.Configure(true, 2)
	tm.AddPlayer("p1") // team 0

	if err := tm.Validate([]string{"p1"}); err == nil {
		t.Error("Expected an error for the empty team")
	}

	tm.AddPlayer("p2") // team 1
	if err := tm.Validate([]string{"p1", "p2"}); err != nil {
		t.Errorf("Both teams covered, got %v", err)
	}

	tm.Configure(false, 2)
	if err := tm.Validate([]string{"p1"}); err != nil {
		t.Errorf("Disabled teams should always validate, got %v", err)
	}
}

// TestMatchPointsRejections verifies unknown teams and non-positive
// awards are silent no-ops.
func TestMatchPointsRejections(t *testing.T) {
	tm := NewTeamManager()
	tm.Configure(true, 2)

	if tm.AddMatchPoints(7, 1) {
		t.Error("Unknown team should not take points")
	}
	if tm.AddMatchPoints(0, 0) {
		t.Error("Zero awards should be rejected")
	}
	if !tm.AddMatchPoints(0, 3) {
		t.Error("A valid award should land")
	}
	if got := tm.MatchPoints(0); got != 3 {
		t.Errorf("Expected 3 points, got %d", got)
	}
	if got := tm.MatchPoints(9); got != 0 {
		t.Errorf("Unknown teams should read 0, got %d", got)
	}
}

// TestStandingsOrder verifies points-descending order with id as the
// tie-break.
func TestStandingsOrder(t *testing.T) {
	tm := NewTeamManager()
	tm.Configure(true, 3)
	tm.AddMatchPoints(2, 5)
	tm.AddMatchPoints(0, 5)
	tm.AddMatchPoints(1, 9)

	s := tm.Standings()
	if s[0].TeamID != 1 || s[1].TeamID != 0 || s[2].TeamID != 2 {
		t.Errorf("Unexpected standings order: %+v", s)
	}
}

// TestLeaderTie verifies a tied lead is reported as non-unique.
func TestLeaderTie(t *testing.T) {
	tm := NewTeamManager()
	tm.Configure(true, 2)
	tm.AddMatchPoints(0, 2)
	tm.AddMatchPoints(1, 2)

	if _, unique := tm.Leader(); unique {
		t.Error("A tied lead should not be unique")
	}

	tm.AddMatchPoints(0, 1)
	leader, unique := tm.Leader()
	if !unique || leader != 0 {
		t.Errorf("Expected team 0 to lead uniquely, got %d/%v", leader, unique)
	}
}

// TestShuffleDealsEveryone verifies a shuffle assigns every player and
// keeps the deal even.
func TestShuffleDealsEveryone(t *testing.T) {
	tm := NewTeamManager()
	tm.Configure(true, 2)
	ids := []string{"a", "b", "c", "d"}

	tm.Shuffle(ids, rand.New(rand.NewSource(1)))

	counts := map[int]int{}
	for _, id := range ids {
		team := tm.TeamOf(id)
		if team == nil {
			t.Fatalf("Player %s unassigned after shuffle", id)
		}
		counts[*team]++
	}
	if counts[0] != 2 || counts[1] != 2 {
		t.Errorf("Expected a 2/2 deal, got %v", counts)
	}
}
