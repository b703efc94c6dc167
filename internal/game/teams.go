package game

import (
	"fmt"
	"math/rand"
	"sort"
)

// Team colors are a fixed table; team IDs index into it, so the count
// is capped at four.
var teamTable = []struct {
	Name  string
	Color string
}{
	{"Red", "#e53935"},
	{"Blue", "#1e88e5"},
	{"Green", "#43a047"},
	{"Yellow", "#fdd835"},
}

const (
	minTeamCount = 2
	maxTeamCount = 4
)

// Team is one side in a team-enabled match.
type Team struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Color       string `json:"color"`
	MatchPoints int    `json:"matchPoints"`
}

// TeamManager owns team configuration, player assignment, and the
// per-team match-point tallies. Engine-thread only.
type TeamManager struct {
	enabled    bool
	teams      []*Team
	assignment map[string]int // player id -> team id
}

// NewTeamManager starts disabled with two teams configured.
func NewTeamManager() *TeamManager {
	tm := &TeamManager{assignment: make(map[string]int)}
	tm.Configure(false, minTeamCount)
	return tm
}

// Configure sets team play on or off and the team count. Counts
// outside [2,4] clamp to the range. Players assigned to teams that no
// longer exist are dropped from the assignment.
func (tm *TeamManager) Configure(enabled bool, count int) {
	if count < minTeamCount {
		count = minTeamCount
	}
	if count > maxTeamCount {
		count = maxTeamCount
	}

	tm.enabled = enabled
	tm.teams = make([]*Team, count)
	for i := 0; i < count; i++ {
		tm.teams[i] = &Team{ID: i, Name: teamTable[i].Name, Color: teamTable[i].Color}
	}
	for id, t := range tm.assignment {
		if t >= count {
			delete(tm.assignment, id)
		}
	}
}

// Enabled reports whether team play is on.
func (tm *TeamManager) Enabled() bool { return tm.enabled }

// Count returns the configured team count.
func (tm *TeamManager) Count() int { return len(tm.teams) }

// TeamOf returns the player's team id, or nil when unassigned.
func (tm *TeamManager) TeamOf(id string) *int {
	if t, ok := tm.assignment[id]; ok {
		teamID := t
		return &teamID
	}
	return nil
}

// AssignSequential deals players onto teams round-robin in input order.
func (tm *TeamManager) AssignSequential(ids []string) {
	for i, id := range ids {
		tm.assignment[id] = i % len(tm.teams)
	}
}

// AddPlayer puts the player on the currently smallest team and returns
// its id. Ties go to the lowest team id.
func (tm *TeamManager) AddPlayer(id string) int {
	counts := make([]int, len(tm.teams))
	for _, t := range tm.assignment {
		if t < len(counts) {
			counts[t]++
		}
	}
	best := 0
	for i := 1; i < len(counts); i++ {
		if counts[i] < counts[best] {
			best = i
		}
	}
	tm.assignment[id] = best
	return best
}

// RemovePlayer forgets the player's assignment.
func (tm *TeamManager) RemovePlayer(id string) {
	delete(tm.assignment, id)
}

// CyclePlayerTeam moves the player to the next team in id order and
// returns the new team id. Unassigned players land on team 0.
func (tm *TeamManager) CyclePlayerTeam(id string) int {
	cur, ok := tm.assignment[id]
	if !ok {
		tm.assignment[id] = 0
		return 0
	}
	next := (cur + 1) % len(tm.teams)
	tm.assignment[id] = next
	return next
}

// Shuffle randomizes team membership for the given players:
// Fisher-Yates on the order, then a sequential deal.
func (tm *TeamManager) Shuffle(ids []string, rng *rand.Rand) {
	shuffled := make([]string, len(ids))
	copy(shuffled, ids)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	tm.AssignSequential(shuffled)
}

// Validate checks that every team has at least one member among the
// given roster. An empty team makes a launch rejectable.
func (tm *TeamManager) Validate(roster []string) error {
	if !tm.enabled {
		return nil
	}
	counts := make([]int, len(tm.teams))
	for _, id := range roster {
		if t, ok := tm.assignment[id]; ok && t < len(counts) {
			counts[t]++
		}
	}
	for i, c := range counts {
		if c == 0 {
			return fmt.Errorf("team %s is empty", tm.teams[i].Name)
		}
	}
	return nil
}

// AddMatchPoints credits a team. Unknown team ids are a silent no-op.
func (tm *TeamManager) AddMatchPoints(teamID, n int) bool {
	if teamID < 0 || teamID >= len(tm.teams) || n <= 0 {
		return false
	}
	tm.teams[teamID].MatchPoints += n
	return true
}

// MatchPoints returns a team's tally, 0 for unknown ids.
func (tm *TeamManager) MatchPoints(teamID int) int {
	if teamID < 0 || teamID >= len(tm.teams) {
		return 0
	}
	return tm.teams[teamID].MatchPoints
}

// Standings returns per-team scores sorted by match points descending,
// team id ascending on ties.
func (tm *TeamManager) Standings() []TeamScore {
	scores := make([]TeamScore, 0, len(tm.teams))
	for _, t := range tm.teams {
		scores = append(scores, TeamScore{TeamID: t.ID, Name: t.Name, Color: t.Color, MatchPoints: t.MatchPoints})
	}
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].MatchPoints != scores[j].MatchPoints {
			return scores[i].MatchPoints > scores[j].MatchPoints
		}
		return scores[i].TeamID < scores[j].TeamID
	})
	return scores
}

// Leader returns the id of the team with the most match points and
// whether that lead is unique.
func (tm *TeamManager) Leader() (int, bool) {
	s := tm.Standings()
	if len(s) == 0 {
		return 0, false
	}
	if len(s) > 1 && s[1].MatchPoints == s[0].MatchPoints {
		return s[0].TeamID, false
	}
	return s[0].TeamID, true
}

// ResetMatchPoints zeroes every tally (new match).
func (tm *TeamManager) ResetMatchPoints() {
	for _, t := range tm.teams {
		t.MatchPoints = 0
	}
}

// Reset forgets assignments and tallies but keeps the configuration.
func (tm *TeamManager) Reset() {
	tm.assignment = make(map[string]int)
	tm.ResetMatchPoints()
}
