package game

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

const (
	matchLogBufferSize = 1024                   // Circular buffer size
	matchLogMaxPerSec  = 2000                   // Global rate limit
	matchLogMaxDamage  = 200                    // player:damage events per second
	matchLogFlushSize  = 64                     // Records per batch write
	matchLogFlushEvery = 250 * time.Millisecond // How often to flush
)

// MatchLogRecord is one JSONL line in the audit file.
type MatchLogRecord struct {
	Seq     uint64      `json:"seq"`
	Ts      int64       `json:"ts"` // unix millis
	Event   string      `json:"event"`
	Payload interface{} `json:"payload,omitempty"`
}

// MatchLog is a bounded, rate-limited audit trail of everything the
// engine announces. It subscribes to the bus and never blocks the tick:
// records land in a circular buffer and a writer goroutine batches them
// to an append-only JSONL file. Under flood, oldest records are
// dropped, damage spam first.
type MatchLog struct {
	buffer    [matchLogBufferSize]MatchLogRecord
	writeHead uint64 // atomic, producer position
	readHead  uint64 // atomic, consumer position

	globalLimiter *rate.Limiter
	damageLimiter *rate.Limiter

	writerWg sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
	running  atomic.Bool

	filePath string
	file     *os.File
	fileMu   sync.Mutex

	droppedCount uint64 // atomic
	totalCount   uint64 // atomic
}

// NewMatchLog creates an audit log writing under dir, one file per
// process start.
func NewMatchLog(dir string) (*MatchLog, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating match log dir: %w", err)
	}
	name := fmt.Sprintf("match-%s.jsonl", time.Now().Format("20060102-150405"))
	return &MatchLog{
		globalLimiter: rate.NewLimiter(matchLogMaxPerSec, matchLogMaxPerSec/10),
		damageLimiter: rate.NewLimiter(matchLogMaxDamage, matchLogMaxDamage/10),
		stopChan:      make(chan struct{}),
		filePath:      filepath.Join(dir, name),
	}, nil
}

// Start opens the file, hooks the bus, and launches the writer.
func (ml *MatchLog) Start(bus *Bus) error {
	if ml.running.Load() {
		return nil
	}
	file, err := os.OpenFile(ml.filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening match log: %w", err)
	}
	ml.file = file
	ml.running.Store(true)

	bus.Subscribe(ml.record)

	ml.writerWg.Add(1)
	go ml.writerLoop()
	return nil
}

// Stop flushes what's buffered and closes the file.
func (ml *MatchLog) Stop() {
	ml.stopOnce.Do(func() {
		ml.running.Store(false)
		close(ml.stopChan)
		ml.writerWg.Wait()

		ml.fileMu.Lock()
		if ml.file != nil {
			ml.file.Close()
		}
		ml.fileMu.Unlock()
	})
}

// record is the bus subscriber. It must stay cheap and non-blocking.
func (ml *MatchLog) record(ev Event) {
	if !ml.running.Load() {
		return
	}
	if !ml.globalLimiter.Allow() {
		atomic.AddUint64(&ml.droppedCount, 1)
		return
	}
	// Damage telemetry arrives per player per tick; cap it separately
	// so a shaking lobby can't crowd out match milestones.
	if ev.Type == EventTypePlayerDamage && !ml.damageLimiter.Allow() {
		atomic.AddUint64(&ml.droppedCount, 1)
		return
	}

	head := atomic.AddUint64(&ml.writeHead, 1)
	tail := atomic.LoadUint64(&ml.readHead)
	if head-tail >= matchLogBufferSize {
		// Full buffer: drop the oldest record and keep going.
		atomic.AddUint64(&ml.readHead, 1)
		atomic.AddUint64(&ml.droppedCount, 1)
	}

	ml.buffer[head%matchLogBufferSize] = MatchLogRecord{
		Seq:     head,
		Ts:      time.Now().UnixMilli(),
		Event:   ev.Type.String(),
		Payload: ev.Payload,
	}
	atomic.AddUint64(&ml.totalCount, 1)
}

func (ml *MatchLog) writerLoop() {
	defer ml.writerWg.Done()

	ticker := time.NewTicker(matchLogFlushEvery)
	defer ticker.Stop()

	batch := make([]MatchLogRecord, 0, matchLogFlushSize)
	for {
		select {
		case <-ml.stopChan:
			for {
				batch = ml.collectBatch(batch[:0])
				if len(batch) == 0 {
					return
				}
				ml.flushBatch(batch)
			}
		case <-ticker.C:
			batch = ml.collectBatch(batch[:0])
			if len(batch) > 0 {
				ml.flushBatch(batch)
			}
		}
	}
}

func (ml *MatchLog) collectBatch(batch []MatchLogRecord) []MatchLogRecord {
	head := atomic.LoadUint64(&ml.writeHead)
	tail := atomic.LoadUint64(&ml.readHead)
	for i := tail; i < head && len(batch) < matchLogFlushSize; i++ {
		batch = append(batch, ml.buffer[i%matchLogBufferSize])
	}
	if len(batch) > 0 {
		atomic.AddUint64(&ml.readHead, uint64(len(batch)))
	}
	return batch
}

func (ml *MatchLog) flushBatch(batch []MatchLogRecord) {
	ml.fileMu.Lock()
	defer ml.fileMu.Unlock()
	if ml.file == nil {
		return
	}
	for _, rec := range batch {
		data, err := json.Marshal(rec)
		if err != nil {
			continue
		}
		ml.file.Write(data)
		ml.file.Write([]byte("\n"))
	}
}

// Stats returns totals for the debug surface.
func (ml *MatchLog) Stats() (total, dropped uint64) {
	return atomic.LoadUint64(&ml.totalCount), atomic.LoadUint64(&ml.droppedCount)
}

// RecentEvents returns up to n of the latest records, oldest first.
// Best-effort: a record overwritten by a later lap of the ring while
// this reads is skipped. Serves the debug surface, not the audit file.
func (ml *MatchLog) RecentEvents(n int) []MatchLogRecord {
	if n <= 0 {
		return nil
	}
	if n > matchLogBufferSize {
		n = matchLogBufferSize
	}
	head := atomic.LoadUint64(&ml.writeHead)
	if head == 0 {
		return nil
	}
	count := uint64(n)
	if count > head {
		count = head
	}
	out := make([]MatchLogRecord, 0, count)
	for i := head - count + 1; i <= head; i++ {
		rec := ml.buffer[i%matchLogBufferSize]
		if rec.Seq != i {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// Path returns the file this log writes to.
func (ml *MatchLog) Path() string {
	return ml.filePath
}
