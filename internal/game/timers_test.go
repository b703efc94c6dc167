package game

import (
	"testing"
	"time"
)

// TestTimerQueueFiresInOrder verifies due timers fire in fireAt order
// regardless of schedule order.
func TestTimerQueueFiresInOrder(t *testing.T) {
	q := newTimerQueue()
	base := time.Unix(0, 0)

	var fired []string
	q.schedule("b", base.Add(200*time.Millisecond), func(time.Time) { fired = append(fired, "b") })
	q.schedule("a", base.Add(100*time.Millisecond), func(time.Time) { fired = append(fired, "a") })
	q.schedule("c", base.Add(300*time.Millisecond), func(time.Time) { fired = append(fired, "c") })

	q.drain(base.Add(250 * time.Millisecond))

	if len(fired) != 2 || fired[0] != "a" || fired[1] != "b" {
		t.Errorf("Expected [a b], got %v", fired)
	}

	q.drain(base.Add(300 * time.Millisecond))
	if len(fired) != 3 || fired[2] != "c" {
		t.Errorf("Expected c to fire at its deadline, got %v", fired)
	}
}

// TestTimerQueueSameInstant verifies timers sharing a deadline fire in
// schedule order.
func TestTimerQueueSameInstant(t *testing.T) {
	q := newTimerQueue()
	at := time.Unix(10, 0)

	var fired []string
	for _, tag := range []string{"first", "second", "third"} {
		tag := tag
		q.schedule(tag, at, func(time.Time) { fired = append(fired, tag) })
	}

	q.drain(at)

	want := []string{"first", "second", "third"}
	if len(fired) != len(want) {
		t.Fatalf("Expected %d timers to fire, got %d", len(want), len(fired))
	}
	for i := range want {
		if fired[i] != want[i] {
			t.Errorf("Slot %d: expected %s, got %s", i, want[i], fired[i])
		}
	}
}

// TestTimerCancel verifies cancelled timers never fire and double cancel
// is harmless.
func TestTimerCancel(t *testing.T) {
	q := newTimerQueue()
	at := time.Unix(5, 0)

	fired := false
	tm := q.schedule("x", at, func(time.Time) { fired = true })
	tm.Cancel()
	tm.Cancel()

	q.drain(at.Add(time.Second))
	if fired {
		t.Error("Cancelled timer should not fire")
	}
	if q.pending() != 0 {
		t.Errorf("Expected 0 pending timers, got %d", q.pending())
	}
}

// TestTimerQueueChainedSchedule verifies a callback scheduling an
// already-due timer gets it fired within the same drain.
func TestTimerQueueChainedSchedule(t *testing.T) {
	q := newTimerQueue()
	base := time.Unix(0, 0)

	var fired []string
	q.schedule("outer", base.Add(100*time.Millisecond), func(now time.Time) {
		fired = append(fired, "outer")
		q.schedule("inner", now, func(time.Time) { fired = append(fired, "inner") })
	})

	q.drain(base.Add(time.Second))

	if len(fired) != 2 || fired[0] != "outer" || fired[1] != "inner" {
		t.Errorf("Expected the chained timer to fire in the same drain, got %v", fired)
	}
}

// TestTimerQueueCancelAll verifies cancelAll drops everything pending.
func TestTimerQueueCancelAll(t *testing.T) {
	q := newTimerQueue()
	at := time.Unix(1, 0)

	count := 0
	for i := 0; i < 5; i++ {
		q.schedule("t", at, func(time.Time) { count++ })
	}
	q.cancelAll()
	q.drain(at.Add(time.Minute))

	if count != 0 {
		t.Errorf("Expected no timers to fire after cancelAll, got %d", count)
	}
}

// TestTimerQueueDoesNotFireEarly verifies future timers stay queued.
func TestTimerQueueDoesNotFireEarly(t *testing.T) {
	q := newTimerQueue()
	at := time.Unix(100, 0)

	fired := false
	q.schedule("later", at, func(time.Time) { fired = true })

	q.drain(at.Add(-time.Millisecond))
	if fired {
		t.Error("Timer fired before its deadline")
	}
	if q.pending() != 1 {
		t.Errorf("Expected 1 pending timer, got %d", q.pending())
	}
}
