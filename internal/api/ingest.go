package api

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/SimoneRocutto/role-based-joust-sub000/internal/game"
)

// MotionQueue is a bounded, non-blocking queue between WebSocket read
// loops and the engine's motion processing. It decouples socket reads
// from the engine lock while a single worker preserves arrival order,
// which the damage pipeline depends on.
type MotionQueue struct {
	frames   chan motionFrame
	engine   EngineInterface
	wg       sync.WaitGroup
	running  atomic.Bool
	stopChan chan struct{}

	// Metrics
	enqueued    atomic.Uint64
	processed   atomic.Uint64
	dropped     atomic.Uint64
	avgWaitTime atomic.Int64 // nanoseconds, exponential moving average
}

type motionFrame struct {
	playerID   string
	sample     game.MotionSample
	receivedAt time.Time
}

// NewMotionQueue creates a queue feeding the engine. bufferSize <= 0
// falls back to 1024 (about half a second of 40 phones at 50 Hz).
func NewMotionQueue(engine EngineInterface, bufferSize int) *MotionQueue {
	if bufferSize <= 0 {
		bufferSize = 1024
	}

	return &MotionQueue{
		frames:   make(chan motionFrame, bufferSize),
		engine:   engine,
		stopChan: make(chan struct{}),
	}
}

// Start launches the worker. Exactly one worker: frames from the same
// phone must reach the engine in the order they arrived.
func (q *MotionQueue) Start() {
	if q.running.Swap(true) {
		return // already running
	}

	log.Printf("🚀 MotionQueue starting, buffer size %d", cap(q.frames))

	q.wg.Add(1)
	go q.worker()
}

// Stop drains the worker and logs totals.
func (q *MotionQueue) Stop() {
	if !q.running.Swap(false) {
		return // not running
	}

	close(q.stopChan)
	q.wg.Wait()

	log.Printf("📊 MotionQueue stopped - enqueued: %d, processed: %d, dropped: %d",
		q.enqueued.Load(), q.processed.Load(), q.dropped.Load())
}

// Enqueue adds a frame without blocking. Returns false when the queue
// is full and the frame was dropped; motion is lossy by nature, the
// next sample carries fresher truth anyway.
func (q *MotionQueue) Enqueue(playerID string, sample game.MotionSample) bool {
	frame := motionFrame{
		playerID:   playerID,
		sample:     sample,
		receivedAt: time.Now(),
	}

	select {
	case q.frames <- frame:
		q.enqueued.Add(1)
		return true
	default:
		q.dropped.Add(1)
		RecordIngestDrop()
		if q.dropped.Load()%1000 == 1 {
			log.Printf("⚠️ MotionQueue full, dropped frame from %s (total dropped: %d)",
				playerID, q.dropped.Load())
		}
		return false
	}
}

func (q *MotionQueue) worker() {
	defer q.wg.Done()

	for {
		select {
		case <-q.stopChan:
			return
		case frame, ok := <-q.frames:
			if !ok {
				return
			}

			waitTime := time.Since(frame.receivedAt)
			q.updateAvgWaitTime(waitTime)

			if waitTime > 100*time.Millisecond {
				log.Printf("⚠️ Motion frame from %s waited %.1fms in queue",
					frame.playerID, float64(waitTime.Microseconds())/1000)
			}

			q.engine.ProcessMotion(frame.playerID, frame.sample)
			q.processed.Add(1)
		}
	}
}

// updateAvgWaitTime updates the EMA (alpha = 0.1, ~10 samples).
func (q *MotionQueue) updateAvgWaitTime(waitTime time.Duration) {
	current := q.avgWaitTime.Load()
	newAvg := (current*9 + waitTime.Nanoseconds()) / 10
	q.avgWaitTime.Store(newAvg)
}

// Stats returns current queue statistics.
func (q *MotionQueue) Stats() QueueStats {
	return QueueStats{
		Enqueued:       q.enqueued.Load(),
		Processed:      q.processed.Load(),
		Dropped:        q.dropped.Load(),
		Pending:        uint64(len(q.frames)),
		BufferSize:     uint64(cap(q.frames)),
		AvgWaitTimeMs:  float64(q.avgWaitTime.Load()) / 1e6,
		BufferUsagePct: float64(len(q.frames)) / float64(cap(q.frames)) * 100,
	}
}

// QueueStats holds queue metrics.
type QueueStats struct {
	Enqueued       uint64  `json:"enqueued"`
	Processed      uint64  `json:"processed"`
	Dropped        uint64  `json:"dropped"`
	Pending        uint64  `json:"pending"`
	BufferSize     uint64  `json:"buffer_size"`
	AvgWaitTimeMs  float64 `json:"avg_wait_time_ms"`
	BufferUsagePct float64 `json:"buffer_usage_pct"`
}
