package game

import (
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/SimoneRocutto/role-based-joust-sub000/internal/config"
)

// MatchState is the match lifecycle phase.
type MatchState string

const (
	StateWaiting    MatchState = "waiting"
	StatePreGame    MatchState = "pre-game"
	StateCountdown  MatchState = "countdown"
	StateActive     MatchState = "active"
	StateRoundEnded MatchState = "round-ended"
	StateFinished   MatchState = "finished"
)

// Engine is the single authority over match state. Everything mutating
// runs under one mutex, so a tick and a transport call never interleave
// mid-update; within a tick the ordering is fixed (timers, bots,
// players, game events, ready checks, mode).
type Engine struct {
	mu sync.Mutex

	cfg config.AppConfig

	// Live movement knobs. Mutated only by mode installation and
	// game-event transitions; both capture and restore what they change.
	movement    MovementConfig
	sensitivity string

	movementBackup    MovementConfig
	sensitivityBackup string

	// Match state
	state          MatchState
	currentRound   int
	mode           Mode
	modeName       string
	launchOpts     LaunchOptions
	matchRoster    []*Player
	roundStartedAt time.Time
	finalScores    []ScoreEntry

	// Managers. Players are owned by the connection manager; the engine
	// holds non-owning references through id lookups.
	conns      *ConnectionManager
	teams      *TeamManager
	bases      *BaseManager
	ready      *ReadyManager
	setup      *RoundSetupManager
	respawns   *RespawnManager
	gameEvents *GameEventManager
	bots       *BotManager
	bus        *Bus
	timers     *timerQueue

	// Loop state
	running   bool
	ticker    *time.Ticker
	stopChan  chan struct{}
	tickCount int64

	// Test clock. When testMode is set the loop never runs; tests drive
	// time through FastForward and the virtual clock.
	testMode   bool
	virtualNow time.Time

	// Deterministic RNG; rollFn lets tests script exact outcomes.
	rng    *rand.Rand
	rollFn func() float64

	// OnTickDone, when set before Start, observes the wall-clock cost of
	// every tick. Set from main for metrics; must not call back into the
	// engine.
	OnTickDone func(d time.Duration)
}

// NewEngine creates an engine on the wall clock.
func NewEngine(cfg config.AppConfig, bus *Bus) *Engine {
	return newEngine(cfg, bus, false, time.Now().UnixNano())
}

// NewTestEngine creates an engine on a virtual clock starting at the
// unix epoch, advanced only by FastForward. The seed fixes the RNG.
func NewTestEngine(cfg config.AppConfig, bus *Bus, seed int64) *Engine {
	return newEngine(cfg, bus, true, seed)
}

func newEngine(cfg config.AppConfig, bus *Bus, testMode bool, seed int64) *Engine {
	e := &Engine{
		cfg: cfg,
		movement: MovementConfig{
			DangerThreshold:  cfg.Movement.DangerThreshold,
			DamageMultiplier: cfg.Movement.DamageMultiplier,
			OneshotMode:      cfg.Movement.OneshotMode,
		},
		sensitivity: cfg.Movement.Sensitivity,
		state:       StateWaiting,
		bus:         bus,
		timers:      newTimerQueue(),
		stopChan:    make(chan struct{}),
		testMode:    testMode,
		virtualNow:  time.Unix(0, 0).UTC(),
		rng:         rand.New(rand.NewSource(seed)),
	}

	playerOpts := PlayerOptions{
		DeathThreshold: cfg.Game.DeathThreshold,
		HistorySize:    cfg.Game.MotionHistorySize,
		Gravity:        cfg.Game.GravityBaseline,
		IdleFloor:      cfg.Game.IdleMotionFloor,
	}
	grace := time.Duration(cfg.Game.LobbyGraceSeconds) * time.Second

	e.conns = NewConnectionManager(cfg.Limits.MaxPlayers, grace, playerOpts, e.scheduleTimer)
	e.teams = NewTeamManager()
	e.bases = NewBaseManager(cfg.Limits.MaxBases)
	e.ready = NewReadyManager(e.conns, bus)
	e.setup = NewRoundSetupManager(bus)
	e.respawns = NewRespawnManager(bus)
	e.gameEvents = newGameEventManager()
	e.bots = NewBotManager()
	return e
}

// =============================================================================
// LOOP & CLOCK
// =============================================================================

// Start begins the tick loop. In test mode the clock is manual and
// Start only logs.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.running || e.testMode {
		e.mu.Unlock()
		if e.testMode {
			log.Println("🧪 Engine in test mode, clock driven by FastForward")
		}
		return
	}
	e.running = true
	interval := e.tickInterval()
	e.ticker = time.NewTicker(interval)
	e.mu.Unlock()

	go func() {
		for {
			select {
			case <-e.ticker.C:
				e.Tick()
			case <-e.stopChan:
				return
			}
		}
	}()

	log.Printf("🎮 Engine started, tick every %s", interval)
}

// Stop halts the tick loop. Match state is untouched; use StopMatch
// for that.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return
	}
	e.running = false
	if e.ticker != nil {
		e.ticker.Stop()
	}
	close(e.stopChan)
	log.Println("🛑 Engine stopped")
}

// Tick advances the simulation one step on the wall clock.
func (e *Engine) Tick() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.runTick(e.now())
}

// FastForward advances the virtual clock by ms milliseconds, running a
// tick for every full tick interval crossed. Test mode only.
func (e *Engine) FastForward(ms int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.testMode {
		return
	}
	interval := e.tickInterval()
	remaining := time.Duration(ms) * time.Millisecond
	for remaining >= interval {
		e.virtualNow = e.virtualNow.Add(interval)
		e.runTick(e.virtualNow)
		remaining -= interval
	}
	if remaining > 0 {
		e.virtualNow = e.virtualNow.Add(remaining)
	}
}

// TestMode reports whether the engine runs on the virtual clock.
func (e *Engine) TestMode() bool {
	return e.testMode
}

// now returns the engine's current time. Callers hold the lock.
func (e *Engine) now() time.Time {
	if e.testMode {
		return e.virtualNow
	}
	return time.Now()
}

func (e *Engine) tickInterval() time.Duration {
	return time.Duration(e.cfg.Game.TickIntervalMs) * time.Millisecond
}

// roll draws from the engine RNG, or from the scripted source when a
// test installed one.
func (e *Engine) roll() float64 {
	if e.rollFn != nil {
		return e.rollFn()
	}
	return e.rng.Float64()
}

// scheduleTimer queues fn to fire delay from now, drained at the top of
// each tick.
func (e *Engine) scheduleTimer(tag string, delay time.Duration, fn func(now time.Time)) *timer {
	return e.timers.schedule(tag, e.now().Add(delay), fn)
}

// runTick is the single mutator for time-driven state. A panicking mode
// or role hook aborts the rest of the tick; the next tick retries.
func (e *Engine) runTick(now time.Time) {
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("⚠️ Tick %d aborted: %v", e.tickCount, r)
		}
		if e.OnTickDone != nil {
			e.OnTickDone(time.Since(started))
		}
	}()
	e.tickCount++

	// 1. Due timers: countdown steps, respawns, ready-enable, grace
	// expirations, delayed restores.
	e.timers.drain(now)

	// 2. Bots feed motion like any phone would.
	e.bots.Tick(e, now)

	// 3. Per-player simulation, in number order.
	if e.state == StateActive {
		dt := e.tickInterval()
		for _, p := range e.roster() {
			if !p.IsAlive {
				continue
			}
			p.expireEffects(now)
			for _, ef := range p.Effects() {
				if ef.tick(e, p, now) {
					e.killPlayer(p, now)
					break
				}
			}
			if !p.IsAlive {
				continue
			}
			e.applyMotionDamage(p, now)
			if p.IsAlive && p.Role != nil {
				p.Role.OnTick(e, p, now)
			}
			if p.IsAlive && p.AccumulatedDamage >= p.DeathThreshold {
				e.killPlayer(p, now)
			}
		}

		// 4. Global timed modifiers.
		e.gameEvents.Tick(e, now)

		// 5. Mode progression and win conditions. The player loop can
		// already have ended the round through a death.
		if e.state == StateActive && e.mode != nil {
			e.mode.OnTick(e, now, dt)
			roundEnded, _ := e.mode.CheckWinCondition(e)
			if roundEnded {
				e.endRound(now)
			}
		}
	}

	// 6. Auto-advance on all-ready.
	e.checkAutoAdvance(now)
}

// =============================================================================
// PLAYERS & TRANSPORT
// =============================================================================

// RegisterPlayer adds a player or rebinds a reconnecting one. A known
// id keeps its number; within the lobby grace window the pending
// removal is cancelled.
func (e *Engine) RegisterPlayer(id, socketID, name string, isBot bool) (*Player, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, created, err := e.conns.Register(id, socketID, name, isBot)
	if err != nil {
		return nil, err
	}
	if created {
		if e.teams.Enabled() {
			team := e.teams.AddPlayer(p.ID)
			p.Team = &team
		}
		log.Printf("🎮 Player %s (#%d) joined", p.Name, p.Number)
	} else {
		log.Printf("🔁 Player %s (#%d) reconnected", p.Name, p.Number)
	}
	e.bus.Publish(Event{Type: EventTypePlayerJoined, Payload: PlayerJoinedPayload{
		ID:     p.ID,
		Name:   p.Name,
		Number: p.Number,
	}})
	return p, nil
}

// HandleSocketDisconnect reacts to a dropped player socket. In the
// lobby the number is held for a grace window and the player removed on
// expiry; mid-match the player simply goes disconnected and can rebind.
func (e *Engine) HandleSocketDisconnect(socketID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateWaiting {
		e.conns.HandleLobbyDisconnect(socketID, func(p *Player, now time.Time) {
			e.removePlayerLocked(p.ID, now)
		})
		return
	}
	e.conns.HandleSocketDisconnect(socketID)
}

// KickPlayer removes a player outright. Allowed only between matches.
func (e *Engine) KickPlayer(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateWaiting {
		return fmt.Errorf("kick is only available in the lobby (state %s)", e.state)
	}
	if !e.removePlayerLocked(id, e.now()) {
		return fmt.Errorf("unknown player %q", id)
	}
	return nil
}

func (e *Engine) removePlayerLocked(id string, now time.Time) bool {
	p := e.conns.Remove(id)
	if p == nil {
		return false
	}
	e.teams.RemovePlayer(id)
	e.respawns.Cancel(id)
	e.bots.Forget(id)
	for i, rp := range e.matchRoster {
		if rp.ID == id {
			e.matchRoster = append(e.matchRoster[:i], e.matchRoster[i+1:]...)
			break
		}
	}
	for _, other := range e.roster() {
		if other.Role == nil {
			continue
		}
		if r, ok := other.Role.(retargeter); ok {
			r.RetargetIfNeeded(e, other, id, now)
		}
	}
	e.bus.Publish(Event{Type: EventTypePlayerLeft, Payload: PlayerLeftPayload{ID: id}})
	log.Printf("👋 Player %s (#%d) removed", p.Name, p.Number)
	return true
}

// ProcessMotion applies an accelerometer sample. Samples land in the
// history immediately; damage is computed on the next tick.
func (e *Engine) ProcessMotion(id string, s MotionSample) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	p := e.conns.Get(id)
	if p == nil {
		return false
	}
	p.ApplyMotion(s, e.now())
	return true
}

// SetPlayerReady flips a ready flag. Unknown ids and set-while-disabled
// are no-ops returning false.
func (e *Engine) SetPlayerReady(id string, ready bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	ok := e.ready.SetPlayerReady(id, ready, e.roster())
	if ok && ready {
		e.checkAutoAdvance(e.now())
	}
	return ok
}

// UseAbility triggers the player's role ability, if the role has one.
func (e *Engine) UseAbility(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateActive {
		return false
	}
	p := e.conns.Get(id)
	if p == nil || !p.IsAlive || p.Role == nil {
		return false
	}
	return p.Role.UseAbility(e, p, e.now())
}

// =============================================================================
// BASES
// =============================================================================

// RegisterBase adds a control point or revives a reconnecting one.
func (e *Engine) RegisterBase(socketID string) (*Base, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	b, err := e.bases.Register(socketID)
	if err != nil {
		return nil, err
	}
	log.Printf("🏰 Base %s (#%d) connected", b.ID, b.Number)
	return b, nil
}

// HandleBaseSocketDisconnect pauses a base. It keeps its number and
// owner but stops scoring until the socket rebinds.
func (e *Engine) HandleBaseSocketDisconnect(socketID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if b := e.bases.HandleDisconnect(socketID); b != nil {
		log.Printf("🔌 Base %s (#%d) disconnected", b.ID, b.Number)
	}
}

// TapBase advances a base's owner one step around the team cycle.
// Only modes that play with bases accept taps; everything else is a
// no-op returning false.
func (e *Engine) TapBase(baseID string, teamID int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	tapper, ok := e.mode.(baseTapper)
	if !ok {
		return false
	}
	return tapper.HandleBaseTap(e, baseID, teamID, e.now())
}

// =============================================================================
// MATCH CONTROL
// =============================================================================

// Launch validates preconditions, snapshots the roster, installs the
// mode, and moves to pre-game (straight to countdown in test mode).
func (e *Engine) Launch(modeName string, opts LaunchOptions) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.now()

	if e.state != StateWaiting {
		return fmt.Errorf("cannot launch while %s", e.state)
	}
	if e.conns.ConnectedCount() < 2 {
		return fmt.Errorf("need at least 2 connected players")
	}
	mode, err := NewMode(modeName, e.cfg, opts)
	if err != nil {
		return err
	}
	if v, ok := mode.(launchValidator); ok {
		if err := v.ValidateLaunch(e); err != nil {
			return err
		}
	}

	roster := e.conns.All()
	if e.teams.Enabled() {
		for _, p := range roster {
			if e.teams.TeamOf(p.ID) == nil {
				e.teams.AddPlayer(p.ID)
			}
		}
		ids := make([]string, len(roster))
		for i, p := range roster {
			ids[i] = p.ID
		}
		if err := e.teams.Validate(ids); err != nil {
			return err
		}
		for _, p := range roster {
			p.Team = e.teams.TeamOf(p.ID)
		}
	} else {
		for _, p := range roster {
			p.Team = nil
		}
	}

	eventTags := append(append([]string{}, mode.GetGameEvents()...), opts.GameEvents...)
	for _, tag := range eventTags {
		if !KnownGameEvent(tag) {
			return fmt.Errorf("unknown game event %q", tag)
		}
	}

	// Committed. Snapshot the roster and install the mode.
	e.matchRoster = roster
	e.mode = mode
	e.modeName = mode.Name()
	e.launchOpts = opts
	e.finalScores = nil
	e.currentRound = 0
	e.movementBackup = e.movement
	e.sensitivityBackup = e.sensitivity
	mode.OnModeSelected(e)

	e.gameEvents.Reset()
	for _, tag := range eventTags {
		ev, err := NewGameEvent(tag, e.cfg.Modes)
		if err != nil {
			return err
		}
		e.gameEvents.Register(ev)
	}

	for _, p := range roster {
		p.Points = 0
		p.TotalPoints = 0
		p.DeathCount = 0
		p.Ready = false
	}
	e.teams.ResetMatchPoints()

	mode.OnGameStart(e, now)
	e.bus.Publish(Event{Type: EventTypeGameStart, Payload: GameStartPayload{
		Mode:        e.modeName,
		Sensitivity: e.sensitivity,
	}})
	log.Printf("🚀 Match launched: %s, %d players", e.modeName, len(roster))

	if e.testMode {
		e.startCountdown(now)
	} else {
		e.state = StatePreGame
		e.ready.ScheduleEnable(e.readyDelay(), e.scheduleTimer)
	}
	return nil
}

// ProceedFromPreGame skips the remaining pre-game wait.
func (e *Engine) ProceedFromPreGame() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StatePreGame {
		return fmt.Errorf("not in pre-game (state %s)", e.state)
	}
	e.startCountdown(e.now())
	return nil
}

// StopMatch aborts the match and returns to the lobby. Idempotent:
// stopping from waiting changes nothing.
func (e *Engine) StopMatch() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopMatchLocked(e.now())
}

func (e *Engine) stopMatchLocked(now time.Time) {
	if e.state == StateWaiting {
		return
	}
	e.setup.Cancel()
	e.respawns.CancelAll()
	e.gameEvents.DeactivateAll(e, now)
	if e.mode != nil {
		e.mode.OnGameEnd(e)
	}
	e.gameEvents.Reset()
	e.timers.cancelAll()
	e.conns.ClearGraceTimers()
	e.ready.Disable()

	for _, p := range e.conns.All() {
		p.ResetForRound()
		p.Role = nil
		p.Ready = false
	}
	e.matchRoster = nil
	e.mode = nil
	e.modeName = ""
	e.currentRound = 0
	e.state = StateWaiting
	log.Println("🛑 Match stopped, back to lobby")
}

// ResetGame is the debug full wipe: match, players, teams, bases.
func (e *Engine) ResetGame() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopMatchLocked(e.now())
	e.conns.Reset()
	e.teams.Reset()
	e.bases.Reset()
	e.bots.Reset()
	e.finalScores = nil
	log.Println("🔄 Full reset")
}

// =============================================================================
// TEAMS & TUNING
// =============================================================================

// ConfigureTeams enables or disables team play. Lobby only; counts
// outside 2..4 clamp.
func (e *Engine) ConfigureTeams(enabled bool, count int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateWaiting {
		return fmt.Errorf("team setup is only available in the lobby (state %s)", e.state)
	}
	e.teams.Configure(enabled, count)
	for _, p := range e.conns.All() {
		if enabled {
			if e.teams.TeamOf(p.ID) == nil {
				e.teams.AddPlayer(p.ID)
			}
			p.Team = e.teams.TeamOf(p.ID)
		} else {
			p.Team = nil
		}
	}
	e.publishTeamsUpdate()
	return nil
}

// CycleTeam moves a player to the next team. Unknown ids are a no-op.
func (e *Engine) CycleTeam(id string) (int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateWaiting || !e.teams.Enabled() {
		return 0, false
	}
	p := e.conns.Get(id)
	if p == nil {
		return 0, false
	}
	team := e.teams.CyclePlayerTeam(id)
	p.Team = &team
	e.publishTeamsUpdate()
	return team, true
}

// ShuffleTeams redeals every player across the teams.
func (e *Engine) ShuffleTeams() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateWaiting {
		return fmt.Errorf("shuffle is only available in the lobby (state %s)", e.state)
	}
	if !e.teams.Enabled() {
		return fmt.Errorf("teams are disabled")
	}
	roster := e.conns.All()
	ids := make([]string, len(roster))
	for i, p := range roster {
		ids[i] = p.ID
	}
	e.teams.Shuffle(ids, e.rng)
	for _, p := range roster {
		p.Team = e.teams.TeamOf(p.ID)
	}
	e.publishTeamsUpdate()
	return nil
}

// ApplyMovementSettings installs persisted movement values. Live
// matches keep their config until they end; the lobby applies
// immediately.
func (e *Engine) ApplyMovementSettings(mv MovementConfig, sensitivity string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateWaiting {
		return
	}
	e.movement = mv
	if sensitivity != "" {
		e.applySensitivity(sensitivity)
	}
}

// applySensitivity installs a preset by label. Unknown labels keep the
// current values.
func (e *Engine) applySensitivity(label string) bool {
	preset, ok := config.SensitivityPresets()[label]
	if !ok {
		log.Printf("⚠️ Unknown sensitivity %q, keeping %q", label, e.sensitivity)
		return false
	}
	e.movement.DangerThreshold = preset.DangerThreshold
	e.movement.DamageMultiplier = preset.DamageMultiplier
	e.sensitivity = label
	return true
}

// restoreMovementConfig puts back the values captured at launch.
func (e *Engine) restoreMovementConfig() {
	e.movement = e.movementBackup
	e.sensitivity = e.sensitivityBackup
}

// =============================================================================
// DEBUG OPERATIONS
// =============================================================================

// KillPlayer forces a death, bypassing the defense pipeline. Unknown
// or already-dead players are a no-op. Active rounds only.
func (e *Engine) KillPlayer(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateActive {
		return false
	}
	p := e.conns.Get(id)
	if p == nil || !p.IsAlive {
		return false
	}
	p.AccumulatedDamage = p.DeathThreshold
	e.killPlayer(p, e.now())
	return true
}

// DamagePlayer lands raw damage through the normal pipeline.
func (e *Engine) DamagePlayer(id string, amount float64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateActive {
		return false
	}
	p := e.conns.Get(id)
	if p == nil || !p.IsAlive {
		return false
	}
	return e.applyDamage(p, amount, e.now()) > 0
}

// BotCommand drives a simulated player. "spawn" registers the bot;
// other commands switch its behavior.
func (e *Engine) BotCommand(id, command string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if command == BotCommandSpawn {
		if _, _, err := e.conns.Register(id, "", id, true); err != nil {
			log.Printf("⚠️ Bot spawn rejected: %v", err)
			return false
		}
		e.bots.Adopt(id)
		e.bus.Publish(Event{Type: EventTypePlayerJoined, Payload: PlayerJoinedPayload{
			ID:     id,
			Name:   id,
			Number: e.conns.Get(id).Number,
		}})
		return true
	}
	p := e.conns.Get(id)
	if p == nil || !p.IsBot {
		return false
	}
	if command == BotCommandReady {
		return e.ready.SetPlayerReady(id, true, e.roster())
	}
	return e.bots.Command(id, command)
}

// =============================================================================
// ROUND FLOW (callers hold the lock)
// =============================================================================

func (e *Engine) startCountdown(now time.Time) {
	e.state = StateCountdown
	e.ready.Disable()
	e.ready.ClearAll(e.roster())
	e.respawns.CancelAll()
	e.setup.ResetPlayers(e.roster())
	e.dealRoles(now)

	secs := e.countdownSeconds()
	e.setup.StartCountdown(secs, now, e.scheduleTimer, func(at time.Time) {
		e.activateRound(at)
	})
}

// countdownSeconds resolves the pre-round countdown. Tests may force
// any value, including zero, through launch options.
func (e *Engine) countdownSeconds() int {
	if e.testMode && e.launchOpts.CountdownSeconds != nil {
		return *e.launchOpts.CountdownSeconds
	}
	return e.mode.CountdownSeconds(e)
}

func (e *Engine) readyDelay() time.Duration {
	if e.testMode {
		return 0
	}
	return e.mode.ReadyDelay(e)
}

// dealRoles assigns the mode's role pool, shuffled, one per player.
// Modes without roles clear any leftovers.
func (e *Engine) dealRoles(now time.Time) {
	roster := e.roster()
	pool := e.mode.GetRolePool(len(roster))
	if len(pool) == 0 {
		for _, p := range roster {
			p.Role = nil
		}
		return
	}
	shuffled := make([]RoleTag, len(pool))
	copy(shuffled, pool)
	e.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	assigned := make(map[string]string, len(roster))
	for i, p := range roster {
		p.Role = NewRole(shuffled[i], e.cfg.Roles)
		assigned[p.ID] = string(shuffled[i])
	}
	e.publishModeEvent("roles:assigned", assigned)
}

func (e *Engine) activateRound(now time.Time) {
	e.currentRound++
	e.state = StateActive
	e.roundStartedAt = now
	e.bus.Publish(Event{Type: EventTypeRoundStart, Payload: RoundStartPayload{Round: e.currentRound}})
	log.Printf("🏁 Round %d started", e.currentRound)

	e.mode.OnRoundStart(e, now)
	for _, p := range e.roster() {
		if p.Role != nil {
			p.Role.OnRoundStart(e, p, now)
		}
	}
}

func (e *Engine) endRound(now time.Time) {
	e.state = StateRoundEnded
	e.setup.Cancel()
	e.respawns.CancelAll()
	e.gameEvents.DeactivateAll(e, now)

	gameEnded := e.mode.OnRoundEnd(e, now)
	e.bus.Publish(Event{Type: EventTypeRoundEnd, Payload: RoundEndPayload{
		Round:      e.currentRound,
		Scores:     roundStandings(e.roster()),
		TeamScores: e.teamScoresOrNil(),
	}})
	log.Printf("🔚 Round %d ended", e.currentRound)

	if gameEnded {
		e.finishMatch(now)
		return
	}
	e.ready.ScheduleEnable(e.readyDelay(), e.scheduleTimer)
}

func (e *Engine) finishMatch(now time.Time) {
	e.state = StateFinished
	e.finalScores = e.mode.CalculateFinalScores(e)
	e.bus.Publish(Event{Type: EventTypeGameFinished, Payload: GameFinishedPayload{
		Scores:     e.finalScores,
		TeamScores: e.teamScoresOrNil(),
	}})
	e.mode.OnGameEnd(e)
	e.ready.ScheduleEnable(e.readyDelay(), e.scheduleTimer)
	log.Printf("🏆 Match finished after %d round(s)", e.currentRound)
}

// checkAutoAdvance moves the match along once every connected roster
// player is ready.
func (e *Engine) checkAutoAdvance(now time.Time) {
	if !e.ready.Enabled() || !e.ready.AllReady(e.roster()) {
		return
	}
	switch e.state {
	case StatePreGame, StateRoundEnded:
		e.startCountdown(now)
	case StateFinished:
		e.backToLobby(now)
	}
}

// backToLobby reopens the lobby after a finished match; scores survive
// for the dashboards until the next launch.
func (e *Engine) backToLobby(now time.Time) {
	e.ready.Disable()
	e.gameEvents.Reset()
	for _, p := range e.conns.All() {
		p.ResetForRound()
		p.Role = nil
		p.Ready = false
	}
	e.matchRoster = nil
	e.mode = nil
	e.modeName = ""
	e.currentRound = 0
	e.state = StateWaiting
	log.Println("🏠 Lobby reopened")
}

// =============================================================================
// DAMAGE & DEATH (callers hold the lock)
// =============================================================================

// applyMotionDamage converts the player's latest motion into damage.
func (e *Engine) applyMotionDamage(p *Player, now time.Time) {
	mv := p.Movement(e.movement)
	threshold := mv.DangerThreshold
	if p.Role != nil {
		threshold *= p.Role.ThresholdFactor()
	}
	intensity := p.CurrentIntensity(e.cfg.Game.SmoothingWindow)
	if intensity <= threshold {
		return
	}
	if mv.OneshotMode || (p.Role != nil && p.Role.InstantLethal()) {
		// Lethal excess: close the whole gap in one hit. The defense
		// pipeline still runs, so shields and saves apply.
		e.applyDamage(p, p.DeathThreshold-p.AccumulatedDamage, now)
		return
	}
	raw := (intensity - threshold) * mv.DamageMultiplier / p.EffectiveToughness()
	e.applyDamage(p, raw, now)
}

// applyDamage runs amount through the player's defenses and lands the
// remainder. Returns the delivered amount.
func (e *Engine) applyDamage(p *Player, amount float64, now time.Time) float64 {
	if !p.IsAlive || amount <= 0 {
		return 0
	}
	amount = p.interceptDamage(amount)
	if p.Role != nil {
		amount = p.Role.OnDamage(e, p, amount, now)
	}
	if amount <= 0 {
		return 0
	}
	p.AccumulatedDamage += amount
	e.publishDamage(p)
	if p.AccumulatedDamage >= p.DeathThreshold {
		e.killPlayer(p, now)
	}
	return amount
}

// mirrorDamage relays a hit to a bound partner through their own
// defenses. Toughness is not applied twice; the caller passes the
// post-reduction amount.
func (e *Engine) mirrorDamage(p *Player, amount float64, now time.Time) float64 {
	return e.applyDamage(p, amount, now)
}

// killPlayer is the one death path: marks the player dead, announces
// it, and fans out to the mode and every other role.
func (e *Engine) killPlayer(p *Player, now time.Time) {
	if !p.IsAlive {
		return
	}
	p.markDead(now)
	log.Printf("💀 %s (#%d) died", p.Name, p.Number)
	e.bus.Publish(Event{Type: EventTypePlayerDied, Payload: PlayerDiedPayload{ID: p.ID}})

	if p.Role != nil {
		p.Role.OnDeath(e, p, now)
	}
	if e.mode != nil {
		e.mode.OnPlayerDeath(e, p, now)
	}
	for _, other := range e.roster() {
		if other.ID == p.ID || other.Role == nil {
			continue
		}
		other.Role.OnOtherDeath(e, other, p, now)
	}
}

// respawnPlayer brings a player back clean.
func (e *Engine) respawnPlayer(p *Player, now time.Time) {
	if p.IsAlive {
		return
	}
	p.revive()
	log.Printf("✨ %s (#%d) respawned", p.Name, p.Number)
	e.bus.Publish(Event{Type: EventTypePlayerRespawn, Payload: PlayerRespawnPayload{
		Player: e.playerSnapshot(p),
	}})
}

// =============================================================================
// LOOKUPS & PUBLISH HELPERS (callers hold the lock)
// =============================================================================

// roster returns the match roster while a match exists, otherwise every
// registered player, in number order.
func (e *Engine) roster() []*Player {
	if e.mode != nil {
		return e.matchRoster
	}
	return e.conns.All()
}

func (e *Engine) playerByID(id string) *Player {
	return e.conns.Get(id)
}

func (e *Engine) alivePlayers() []*Player {
	alive := make([]*Player, 0, len(e.roster()))
	for _, p := range e.roster() {
		if p.IsAlive {
			alive = append(alive, p)
		}
	}
	return alive
}

func (e *Engine) aliveCount() int {
	n := 0
	for _, p := range e.roster() {
		if p.IsAlive {
			n++
		}
	}
	return n
}

// aliveTeamCount counts distinct teams with at least one living member.
func (e *Engine) aliveTeamCount() int {
	seen := make(map[int]bool)
	for _, p := range e.roster() {
		if p.IsAlive && p.Team != nil {
			seen[*p.Team] = true
		}
	}
	return len(seen)
}

// soleAliveTeam returns the only team left standing, if exactly one.
func (e *Engine) soleAliveTeam() (int, bool) {
	seen := make(map[int]bool)
	for _, p := range e.roster() {
		if p.IsAlive && p.Team != nil {
			seen[*p.Team] = true
		}
	}
	if len(seen) != 1 {
		return 0, false
	}
	for id := range seen {
		return id, true
	}
	return 0, false
}

// pickTargetFor draws a random living target, never the player
// themselves. Empty when nobody qualifies.
func (e *Engine) pickTargetFor(p *Player) string {
	candidates := make([]string, 0)
	for _, other := range e.alivePlayers() {
		if other.ID != p.ID {
			candidates = append(candidates, other.ID)
		}
	}
	if len(candidates) == 0 {
		return ""
	}
	return candidates[e.rng.Intn(len(candidates))]
}

func (e *Engine) publishDamage(p *Player) {
	e.bus.Publish(Event{Type: EventTypePlayerDamage, Payload: PlayerDamagePayload{
		ID:                p.ID,
		AccumulatedDamage: p.AccumulatedDamage,
	}})
}

func (e *Engine) publishModeEvent(eventType string, data interface{}) {
	e.bus.Publish(Event{Type: EventTypeModeEvent, Payload: ModeEventPayload{
		ModeName:  e.modeName,
		EventType: eventType,
		Data:      data,
	}})
}

func (e *Engine) publishTeamsUpdate() {
	e.bus.Publish(Event{Type: EventTypeTeamsUpdate, Payload: TeamsUpdatePayload{
		Teams: e.teamSnapshots(),
	}})
}

func (e *Engine) teamScoresOrNil() []TeamScore {
	if !e.teams.Enabled() {
		return nil
	}
	return e.teams.Standings()
}
