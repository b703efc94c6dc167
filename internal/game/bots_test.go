package game

import (
	"testing"

	"github.com/SimoneRocutto/role-based-joust-sub000/internal/config"
)

// TestBotCommandValidation verifies the manager only accepts known
// behaviors for bots it has adopted.
func TestBotCommandValidation(t *testing.T) {
	bm := NewBotManager()

	if bm.Command("ghost", BotBehaviorShake) {
		t.Error("expected command for unadopted bot to be rejected")
	}

	bm.Adopt("bot-1")
	if !bm.Command("bot-1", BotBehaviorGentle) {
		t.Error("expected valid behavior to be accepted")
	}
	if bm.Command("bot-1", "moonwalk") {
		t.Error("expected unknown behavior to be rejected")
	}

	bm.Forget("bot-1")
	if bm.Command("bot-1", BotBehaviorStill) {
		t.Error("expected command for forgotten bot to be rejected")
	}
}

// TestBotSpawnViaEngine verifies the spawn command registers a roster
// entry flagged as a bot and that behavior commands reach the manager.
func TestBotSpawnViaEngine(t *testing.T) {
	e := NewTestEngine(config.Default(), NewBus(), 1)

	if !e.BotCommand("bot-1", BotCommandSpawn) {
		t.Fatal("spawn failed")
	}
	p := e.conns.Get("bot-1")
	if p == nil || !p.IsBot {
		t.Fatalf("expected bot-1 registered as bot, got %+v", p)
	}
	if !e.BotCommand("bot-1", BotBehaviorShake) {
		t.Error("expected behavior command for spawned bot to succeed")
	}
	if e.BotCommand("nobody", BotBehaviorShake) {
		t.Error("expected behavior command for unknown id to fail")
	}
}

// TestBotSuicideBehavior verifies a suicidal bot feeds motion far above
// the danger threshold and dies on the first damaging tick, while a
// still bot survives.
func TestBotSuicideBehavior(t *testing.T) {
	e := NewTestEngine(config.Default(), NewBus(), 1)
	e.BotCommand("bot-1", BotCommandSpawn)
	e.BotCommand("bot-2", BotCommandSpawn)

	zero := 0
	if err := e.Launch(ModeClassic, LaunchOptions{CountdownSeconds: &zero}); err != nil {
		t.Fatalf("launch: %v", err)
	}
	if e.state != StateActive {
		t.Fatalf("state = %s, want active", e.state)
	}

	if !e.BotCommand("bot-1", BotBehaviorSuicide) {
		t.Fatal("suicide command failed")
	}
	e.FastForward(2000)

	if e.conns.Get("bot-1").IsAlive {
		t.Error("expected suicidal bot to die")
	}
	if !e.conns.Get("bot-2").IsAlive {
		t.Error("expected still bot to survive")
	}
}
