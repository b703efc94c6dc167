package game

import "sort"

// PlacementTable maps round placement to a point bonus. Index 0 pays
// rank 1; ranks past the end pay nothing.
type PlacementTable []int

// Bonus returns the payout for a 1-indexed rank.
func (t PlacementTable) Bonus(rank int) int {
	if rank < 1 || rank > len(t) {
		return 0
	}
	return t[rank-1]
}

// ScoreEntry is one row of a round or match standing.
type ScoreEntry struct {
	PlayerID    string `json:"id"`
	Name        string `json:"name"`
	Number      int    `json:"number"`
	Points      int    `json:"points"`
	TotalPoints int    `json:"totalPoints"`
	DeathCount  int    `json:"deathCount"`
	Rank        int    `json:"rank"`
	TeamID      *int   `json:"teamId,omitempty"`
}

// TeamScore is one row of the team standings.
type TeamScore struct {
	TeamID      int    `json:"teamId"`
	Name        string `json:"name"`
	Color       string `json:"color"`
	MatchPoints int    `json:"matchPoints"`
}

func scoreEntryFor(p *Player, rank int) ScoreEntry {
	return ScoreEntry{
		PlayerID:    p.ID,
		Name:        p.Name,
		Number:      p.Number,
		Points:      p.Points,
		TotalPoints: p.TotalPoints,
		DeathCount:  p.DeathCount,
		Rank:        rank,
		TeamID:      p.Team,
	}
}

// rankByTotalPoints orders players by match total, descending, with
// competition ranking: equal totals share the better rank and the next
// distinct total skips past them (1, 2, 2, 4).
func rankByTotalPoints(players []*Player) []ScoreEntry {
	sorted := make([]*Player, len(players))
	copy(sorted, players)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].TotalPoints != sorted[j].TotalPoints {
			return sorted[i].TotalPoints > sorted[j].TotalPoints
		}
		return sorted[i].Number < sorted[j].Number
	})

	entries := make([]ScoreEntry, 0, len(sorted))
	rank := 0
	for i, p := range sorted {
		if i == 0 || p.TotalPoints != sorted[i-1].TotalPoints {
			rank = i + 1
		}
		entries = append(entries, scoreEntryFor(p, rank))
	}
	return entries
}

// rankAscendingBy orders players by a metric, ascending, with the same
// competition ranking: tied players share the better rank and therefore
// the better placement bonus.
func rankAscendingBy(players []*Player, metric func(*Player) int) []ScoreEntry {
	sorted := make([]*Player, len(players))
	copy(sorted, players)
	sort.SliceStable(sorted, func(i, j int) bool {
		if metric(sorted[i]) != metric(sorted[j]) {
			return metric(sorted[i]) < metric(sorted[j])
		}
		return sorted[i].Number < sorted[j].Number
	})

	entries := make([]ScoreEntry, 0, len(sorted))
	rank := 0
	for i, p := range sorted {
		if i == 0 || metric(p) != metric(sorted[i-1]) {
			rank = i + 1
		}
		entries = append(entries, scoreEntryFor(p, rank))
	}
	return entries
}

// roundStandings ranks a finished round by round points, descending,
// competition style. Used for the round:end payload.
func roundStandings(players []*Player) []ScoreEntry {
	sorted := make([]*Player, len(players))
	copy(sorted, players)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Points != sorted[j].Points {
			return sorted[i].Points > sorted[j].Points
		}
		return sorted[i].Number < sorted[j].Number
	})

	entries := make([]ScoreEntry, 0, len(sorted))
	rank := 0
	for i, p := range sorted {
		if i == 0 || p.Points != sorted[i-1].Points {
			rank = i + 1
		}
		entries = append(entries, scoreEntryFor(p, rank))
	}
	return entries
}
