package runner

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/Krimson/triage-kiosk/kiosk/internal/batch"
	"github.com/Krimson/triage-kiosk/kiosk/internal/input"
	"github.com/Krimson/triage-kiosk/kiosk/internal/session"
	"github.com/Krimson/triage-kiosk/kiosk/internal/stats"
)

// Recorder принимает итоги сессий для отправки наружу
type Recorder interface {
	Add(r batch.Record) error
}

// Runner крутит такт киоска: входы, автомат сессии, живой пульс, выгрузка итогов
type Runner struct {
	tick     time.Duration
	source   input.Source
	machine  *session.Machine
	stats    *stats.Aggregator
	recorder Recorder

	ticks   atomic.Uint64
	commits atomic.Uint64
}

// New создает Runner; recorder может быть nil
func New(tick time.Duration, source input.Source, machine *session.Machine, agg *stats.Aggregator, recorder Recorder) *Runner {
	if tick <= 0 {
		tick = 10 * time.Millisecond
	}
	return &Runner{
		tick:     tick,
		source:   source,
		machine:  machine,
		stats:    agg,
		recorder: recorder,
	}
}

// Tick выполняет один такт в момент now
func (r *Runner) Tick(now time.Time) session.Output {
	ev := r.source.Poll()
	out := r.machine.Advance(now, ev)
	r.ticks.Add(1)

	r.stats.SetLive(r.machine.LiveHeartRate())

	if out.Commit != nil {
		r.commits.Add(1)
		if r.recorder != nil {
			if err := r.recorder.Add(batch.FromCommit(*out.Commit)); err != nil {
				log.Printf("[ERROR] Failed to record session %s: %v", out.Commit.SessionID, err)
			}
		}
	}
	return out
}

// Run крутит такты до отмены контекста
func (r *Runner) Run(ctx context.Context) error {
	log.Printf("[INFO] Kiosk loop started, tick=%s", r.tick)

	ticker := time.NewTicker(r.tick)
	defer ticker.Stop()

	r.Tick(time.Now())
	for {
		select {
		case <-ctx.Done():
			log.Printf("[INFO] Kiosk loop stopped after %d ticks, %d commits", r.ticks.Load(), r.commits.Load())
			return ctx.Err()
		case now := <-ticker.C:
			r.Tick(now)
		}
	}
}

// GetStats возвращает число тактов и зафиксированных сессий
func (r *Runner) GetStats() (ticks, commits uint64) {
	return r.ticks.Load(), r.commits.Load()
}
