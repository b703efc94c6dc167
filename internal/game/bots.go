package game

import "time"

// Bot commands and behaviors. "spawn" and "ready" are handled by the
// engine; the rest select the motion pattern the bot feeds every tick.
const (
	BotCommandSpawn = "spawn"
	BotCommandReady = "ready"

	BotBehaviorStill   = "still"
	BotBehaviorGentle  = "gentle"
	BotBehaviorShake   = "shake"
	BotBehaviorSuicide = "suicide"
)

// BotManager drives simulated players. Bots are ordinary roster
// entries; the only difference is that their motion samples come from
// here instead of a phone.
type BotManager struct {
	behaviors map[string]string
}

func NewBotManager() *BotManager {
	return &BotManager{behaviors: make(map[string]string)}
}

// Adopt starts managing a freshly spawned bot, at rest.
func (bm *BotManager) Adopt(id string) {
	bm.behaviors[id] = BotBehaviorStill
}

// Command switches a bot's behavior. Unknown behaviors are rejected.
func (bm *BotManager) Command(id, command string) bool {
	switch command {
	case BotBehaviorStill, BotBehaviorGentle, BotBehaviorShake, BotBehaviorSuicide:
	default:
		return false
	}
	if _, ok := bm.behaviors[id]; !ok {
		return false
	}
	bm.behaviors[id] = command
	return true
}

// Forget drops a removed bot.
func (bm *BotManager) Forget(id string) {
	delete(bm.behaviors, id)
}

// Reset drops every bot.
func (bm *BotManager) Reset() {
	bm.behaviors = make(map[string]string)
}

// Tick feeds one motion sample per managed bot, shaped by its behavior
// relative to the current danger threshold.
func (bm *BotManager) Tick(e *Engine, now time.Time) {
	if len(bm.behaviors) == 0 {
		return
	}
	gravity := e.cfg.Game.GravityBaseline
	threshold := e.movement.DangerThreshold
	for _, p := range e.conns.All() {
		if !p.IsBot || !p.IsAlive {
			continue
		}
		behavior, ok := bm.behaviors[p.ID]
		if !ok {
			continue
		}
		var intensity float64
		switch behavior {
		case BotBehaviorGentle:
			intensity = threshold * (0.3 + 0.3*e.rng.Float64())
		case BotBehaviorShake:
			intensity = threshold + 1.0 + 2.0*e.rng.Float64()
		case BotBehaviorSuicide:
			intensity = threshold + 60.0
		default: // still
			intensity = 0
		}
		p.ApplyMotion(MotionSample{Z: gravity + intensity}, now)
	}
}
