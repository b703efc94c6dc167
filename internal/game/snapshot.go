package game

// Read-side views of engine state. Handlers and the socket hub consume
// these; nothing here mutates. Each exported method takes the engine
// lock, builds plain structs, and returns. Cheap at lobby scale; a
// render loop would want lock-free double buffering instead.

// PlayerSnapshot is the full public view of one player.
type PlayerSnapshot struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Number            int      `json:"number"`
	IsBot             bool     `json:"isBot,omitempty"`
	IsConnected       bool     `json:"isConnected"`
	IsAlive           bool     `json:"isAlive"`
	IsReady           bool     `json:"isReady"`
	AccumulatedDamage float64  `json:"accumulatedDamage"`
	DeathThreshold    float64  `json:"deathThreshold"`
	Points            int      `json:"points"`
	TotalPoints       int      `json:"totalPoints"`
	DeathCount        int      `json:"deathCount"`
	TeamID            *int     `json:"teamId,omitempty"`
	Role              string   `json:"role,omitempty"`
	Effects           []string `json:"effects,omitempty"`
}

// TeamSnapshot is one team with its current membership.
type TeamSnapshot struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Color       string   `json:"color"`
	MatchPoints int      `json:"matchPoints"`
	Members     []string `json:"members"`
}

// BaseSnapshot is the public view of one control point.
type BaseSnapshot struct {
	ID         string `json:"id"`
	Number     int    `json:"number"`
	OwnerTeam  *int   `json:"ownerTeam"`
	Connected  bool   `json:"connected"`
	CapturedAt int64  `json:"capturedAt,omitempty"` // unix millis, 0 when never captured
}

// StateSnapshot is the full match view served by the state endpoint.
type StateSnapshot struct {
	State        string           `json:"state"`
	CurrentRound int              `json:"currentRound"`
	Mode         string           `json:"mode,omitempty"`
	PlayerCount  int              `json:"playerCount"`
	AlivePlayers int              `json:"alivePlayers"`
	Sensitivity  string           `json:"sensitivity"`
	Movement     MovementConfig   `json:"movement"`
	ActiveEvents []string         `json:"activeEvents,omitempty"`
	Players      []PlayerSnapshot `json:"players"`
	Teams        []TeamSnapshot   `json:"teams,omitempty"`
	Bases        []BaseSnapshot   `json:"bases,omitempty"`
	FinalScores  []ScoreEntry     `json:"finalScores,omitempty"`
}

// LobbyPlayer is the trimmed lobby listing row.
type LobbyPlayer struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Number      int    `json:"number"`
	IsReady     bool   `json:"isReady"`
	IsConnected bool   `json:"isConnected"`
	TeamID      *int   `json:"teamId,omitempty"`
}

// TeamsView is the team-configuration view.
type TeamsView struct {
	Enabled   bool           `json:"enabled"`
	TeamCount int            `json:"teamCount"`
	Teams     []TeamSnapshot `json:"teams"`
}

// Snapshot returns the full match view.
func (e *Engine) Snapshot() StateSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	roster := e.roster()
	players := make([]PlayerSnapshot, 0, len(roster))
	for _, p := range roster {
		players = append(players, e.playerSnapshot(p))
	}

	snap := StateSnapshot{
		State:        string(e.state),
		CurrentRound: e.currentRound,
		Mode:         e.modeName,
		PlayerCount:  len(roster),
		AlivePlayers: e.aliveCount(),
		Sensitivity:  e.sensitivity,
		Movement:     e.movement,
		ActiveEvents: e.gameEvents.ActiveTags(),
		Players:      players,
		FinalScores:  e.finalScores,
	}
	if e.teams.Enabled() {
		snap.Teams = e.teamSnapshots()
	}
	if bases := e.baseSnapshots(); len(bases) > 0 {
		snap.Bases = bases
	}
	return snap
}

// Lobby returns the lobby listing, every registered player in number
// order.
func (e *Engine) Lobby() []LobbyPlayer {
	e.mu.Lock()
	defer e.mu.Unlock()

	all := e.conns.All()
	rows := make([]LobbyPlayer, 0, len(all))
	for _, p := range all {
		rows = append(rows, LobbyPlayer{
			ID:          p.ID,
			Name:        p.Name,
			Number:      p.Number,
			IsReady:     p.Ready,
			IsConnected: p.Connected,
			TeamID:      p.Team,
		})
	}
	return rows
}

// Teams returns the team-configuration view.
func (e *Engine) Teams() TeamsView {
	e.mu.Lock()
	defer e.mu.Unlock()
	return TeamsView{
		Enabled:   e.teams.Enabled(),
		TeamCount: e.teams.Count(),
		Teams:     e.teamSnapshots(),
	}
}

// PlayerView returns one player's snapshot, false for unknown ids.
func (e *Engine) PlayerView(id string) (PlayerSnapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p := e.conns.Get(id)
	if p == nil {
		return PlayerSnapshot{}, false
	}
	return e.playerSnapshot(p), true
}

func (e *Engine) playerSnapshot(p *Player) PlayerSnapshot {
	var effects []string
	for _, ef := range p.Effects() {
		effects = append(effects, ef.Kind.String())
	}
	return PlayerSnapshot{
		ID:                p.ID,
		Name:              p.Name,
		Number:            p.Number,
		IsBot:             p.IsBot,
		IsConnected:       p.Connected,
		IsAlive:           p.IsAlive,
		IsReady:           p.Ready,
		AccumulatedDamage: p.AccumulatedDamage,
		DeathThreshold:    p.DeathThreshold,
		Points:            p.Points,
		TotalPoints:       p.TotalPoints,
		DeathCount:        p.DeathCount,
		TeamID:            p.Team,
		Role:              string(p.RoleTag()),
		Effects:           effects,
	}
}

func (e *Engine) teamSnapshots() []TeamSnapshot {
	standings := e.teams.Standings()
	members := make(map[int][]string)
	for _, p := range e.conns.All() {
		if p.Team != nil {
			members[*p.Team] = append(members[*p.Team], p.ID)
		}
	}
	snaps := make([]TeamSnapshot, 0, len(standings))
	for _, t := range standings {
		m := members[t.TeamID]
		if m == nil {
			m = []string{}
		}
		snaps = append(snaps, TeamSnapshot{
			ID:          t.TeamID,
			Name:        t.Name,
			Color:       t.Color,
			MatchPoints: t.MatchPoints,
			Members:     m,
		})
	}
	return snaps
}

func (e *Engine) baseSnapshots() []BaseSnapshot {
	all := e.bases.All()
	snaps := make([]BaseSnapshot, 0, len(all))
	for _, b := range all {
		var captured int64
		if !b.CapturedAt.IsZero() {
			captured = b.CapturedAt.UnixMilli()
		}
		snaps = append(snaps, BaseSnapshot{
			ID:         b.ID,
			Number:     b.Number,
			OwnerTeam:  b.OwnerTeam,
			Connected:  b.Connected,
			CapturedAt: captured,
		})
	}
	return snaps
}
