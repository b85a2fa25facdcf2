package batch

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/Krimson/triage-kiosk/kiosk/internal/triage"
)

// Config - пороги сброса батча
type Config struct {
	MaxRecords    int
	FlushInterval time.Duration
}

type Batcher struct {
	cfg     Config
	sink    Sink
	mu      sync.Mutex
	current *currentBatch
	seq     uint64

	flushChan chan Batch
	stopChan  chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup

	stats struct {
		mu       sync.RWMutex
		received int64
		dropped  int64
		flushed  int64
		failed   int64
	}
}

type LogSink struct{}

func (ls *LogSink) Consume(ctx context.Context, b Batch) error {
	var counts [len(triage.Colors)]int
	for _, r := range b.Records {
		if r.Color.Valid() {
			counts[r.Color]++
		}
	}
	log.Printf("[BATCH] seq=%d records=%d green=%d yellow=%d red=%d t0=%s t1=%s",
		b.Seq,
		len(b.Records),
		counts[triage.Green],
		counts[triage.Yellow],
		counts[triage.Red],
		b.T0.Format(time.RFC3339),
		b.T1.Format(time.RFC3339))
	return nil
}

func NewBatcher(cfg Config, sink Sink) *Batcher {
	if cfg.MaxRecords <= 0 {
		cfg.MaxRecords = 8
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 5 * time.Second
	}

	b := &Batcher{
		cfg:       cfg,
		sink:      sink,
		current:   &currentBatch{},
		flushChan: make(chan Batch, 100),
		stopChan:  make(chan struct{}),
	}

	b.wg.Add(2)
	go b.flushWorker()
	go b.timerFlusher()

	return b
}

// Add добавляет запись в текущий батч; некорректные записи отбрасываются
func (b *Batcher) Add(r Record) error {
	if err := validateRecord(r); err != nil {
		b.incrementDropped()
		log.Printf("[WARN] Invalid record dropped: %v", err)
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.current.addRecord(r, time.Now())
	b.incrementReceived()

	if b.current.shouldFlushBySize(b.cfg.MaxRecords) {
		b.flushCurrent()
	}

	return nil
}

func validateRecord(r Record) error {
	if r.SessionID == "" {
		return fmt.Errorf("empty session_id")
	}

	if !r.Color.Valid() {
		return fmt.Errorf("invalid color: %v", r.Color)
	}

	if r.CommittedAt.IsZero() {
		return fmt.Errorf("missing commit time")
	}

	if r.BPM != nil {
		v := *r.BPM
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 || v >= 250 {
			return fmt.Errorf("invalid bpm: %f", v)
		}
	}

	if lv := r.Levels; lv != nil {
		for _, v := range []int{lv.Energy, lv.Mood, lv.Anxiety} {
			if v < triage.LevelMin || v > triage.LevelMax {
				return fmt.Errorf("invalid level: %d", v)
			}
		}
	}

	if r.SurveyBits != "" {
		if _, err := triage.ParseSurveyBits(r.SurveyBits); err != nil {
			return err
		}
	}

	return nil
}

// flushCurrent вызывается под b.mu
func (b *Batcher) flushCurrent() {
	if len(b.current.Records) == 0 {
		return
	}

	b.seq++
	b.current.Seq = b.seq
	batchCopy := b.current.clone()

	b.current.reset()

	select {
	case b.flushChan <- batchCopy:
		b.incrementFlushed()
	default:
		log.Printf("[WARN] Flush channel full, batch dropped")
		b.incrementDropped()
	}
}

func (b *Batcher) flushWorker() {
	defer b.wg.Done()

	for {
		select {
		case batch := <-b.flushChan:
			b.consume(batch)

		case <-b.stopChan:
			// Дописываем то, что успело попасть в канал
			for {
				select {
				case batch := <-b.flushChan:
					b.consume(batch)
				default:
					return
				}
			}
		}
	}
}

func (b *Batcher) consume(batch Batch) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := b.sink.Consume(ctx, batch); err != nil {
		b.incrementFailed()
		log.Printf("[ERROR] Failed to consume batch %d: %v", batch.Seq, err)
	}
}

func (b *Batcher) timerFlusher() {
	defer b.wg.Done()

	tick := b.cfg.FlushInterval / 4
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			b.flushOld(now)

		case <-b.stopChan:
			return
		}
	}
}

func (b *Batcher) flushOld(now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.current.shouldFlushByAge(now, b.cfg.FlushInterval) {
		b.flushCurrent()
	}
}

// Stop сбрасывает текущий батч и дожидается его доставки в sink
func (b *Batcher) Stop() {
	b.stopOnce.Do(func() {
		log.Printf("[INFO] Stopping batcher...")

		b.mu.Lock()
		b.flushCurrent()
		b.mu.Unlock()

		close(b.stopChan)
		b.wg.Wait()

		b.logStats()
	})
}

// Методы для работы со статистикой
func (b *Batcher) incrementReceived() {
	b.stats.mu.Lock()
	b.stats.received++
	b.stats.mu.Unlock()
}

func (b *Batcher) incrementDropped() {
	b.stats.mu.Lock()
	b.stats.dropped++
	b.stats.mu.Unlock()
}

func (b *Batcher) incrementFlushed() {
	b.stats.mu.Lock()
	b.stats.flushed++
	b.stats.mu.Unlock()
}

func (b *Batcher) incrementFailed() {
	b.stats.mu.Lock()
	b.stats.failed++
	b.stats.mu.Unlock()
}

func (b *Batcher) logStats() {
	b.stats.mu.RLock()
	defer b.stats.mu.RUnlock()

	log.Printf("[STATS] received=%d dropped=%d flushed=%d failed=%d",
		b.stats.received,
		b.stats.dropped,
		b.stats.flushed,
		b.stats.failed)
}

func (b *Batcher) GetStats() (received, dropped, flushed, failed int64) {
	b.stats.mu.RLock()
	defer b.stats.mu.RUnlock()

	return b.stats.received, b.stats.dropped, b.stats.flushed, b.stats.failed
}
