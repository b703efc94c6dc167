package game

import (
	"container/heap"
	"time"
)

// timer is a scheduled one-shot callback. setTimeout-style timers from
// the transport era become entries in a monotonic priority queue that
// the engine drains at the top of every tick, which keeps them
// deterministic under FastForward.
type timer struct {
	fireAt    time.Time
	tag       string
	fn        func(now time.Time)
	seq       uint64 // tie-break: same-instant timers fire in schedule order
	cancelled bool
}

// Cancel marks the timer dead. Safe to call twice and after firing.
func (t *timer) Cancel() {
	t.cancelled = true
}

type timerHeap []*timer

func (h timerHeap) Len() int { return len(h) }
func (h timerHeap) Less(i, j int) bool {
	if h[i].fireAt.Equal(h[j].fireAt) {
		return h[i].seq < h[j].seq
	}
	return h[i].fireAt.Before(h[j].fireAt)
}
func (h timerHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *timerHeap) Push(x interface{}) {
	*h = append(*h, x.(*timer))
}

func (h *timerHeap) Pop() interface{} {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return t
}

// timerQueue owns all pending engine timers (respawns, countdown
// seconds, ready-delay enables, grace expiries, game-event
// restorations). Engine-thread only.
type timerQueue struct {
	heap timerHeap
	seq  uint64
}

func newTimerQueue() *timerQueue {
	q := &timerQueue{}
	heap.Init(&q.heap)
	return q
}

// schedule enqueues fn to run at the first tick where now >= fireAt.
// The returned timer is the cancellation token.
func (q *timerQueue) schedule(tag string, fireAt time.Time, fn func(now time.Time)) *timer {
	q.seq++
	t := &timer{fireAt: fireAt, tag: tag, fn: fn, seq: q.seq}
	heap.Push(&q.heap, t)
	return t
}

// drain fires every due timer in (fireAt, seq) order. Callbacks may
// schedule new timers; anything due at or before now fires in the same
// drain.
func (q *timerQueue) drain(now time.Time) {
	for q.heap.Len() > 0 {
		next := q.heap[0]
		if next.fireAt.After(now) {
			return
		}
		heap.Pop(&q.heap)
		if next.cancelled {
			continue
		}
		next.fn(now)
	}
}

// cancelAll drops every pending timer. Used by Stop and Reset so no
// callback outlives the match that scheduled it.
func (q *timerQueue) cancelAll() {
	for _, t := range q.heap {
		t.cancelled = true
	}
	q.heap = q.heap[:0]
}

// pending reports how many live timers are queued (cancelled entries
// that have not been lazily dropped yet are excluded).
func (q *timerQueue) pending() int {
	n := 0
	for _, t := range q.heap {
		if !t.cancelled {
			n++
		}
	}
	return n
}
