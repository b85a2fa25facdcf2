package runner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Krimson/triage-kiosk/kiosk/internal/batch"
	"github.com/Krimson/triage-kiosk/kiosk/internal/config"
	"github.com/Krimson/triage-kiosk/kiosk/internal/input"
	"github.com/Krimson/triage-kiosk/kiosk/internal/session"
	"github.com/Krimson/triage-kiosk/kiosk/internal/sim"
	"github.com/Krimson/triage-kiosk/kiosk/internal/triage"
)

// collectingRecorder для тестирования - собирает записи
type collectingRecorder struct {
	mu      sync.Mutex
	records []batch.Record
	err     error
}

func (c *collectingRecorder) Add(r batch.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, r)
	return c.err
}

func (c *collectingRecorder) Records() []batch.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]batch.Record, len(c.records))
	copy(out, c.records)
	return out
}

type kioskFixture struct {
	t     *testing.T
	k     *Kiosk
	r     *Runner
	ppg   *sim.PPG
	col   *sim.ColorSensor
	rec   *collectingRecorder
	now   time.Time
	state session.State
}

func fastConfig(missingColor bool) *config.Config {
	cfg := config.Default()
	cfg.ValidationMode = "auto"
	cfg.SettleMS = 100
	cfg.BeatStepMS = 50
	cfg.TargetBeats = 3
	cfg.SimColorMissing = missingColor
	return cfg
}

func newKioskFixture(t *testing.T, cfg *config.Config) *kioskFixture {
	t.Helper()

	ppg := sim.NewPPG(cfg.SimHeartRateMissing, 7)
	col := sim.NewColorSensor(cfg.SimColorMissing)
	k, err := Build(cfg, Sensors{HeartRate: ppg, Color: col}, session.NopObserver{})
	if err != nil {
		t.Fatalf("Failed to build kiosk: %v", err)
	}

	rec := &collectingRecorder{}
	f := &kioskFixture{
		t:   t,
		k:   k,
		r:   New(50*time.Millisecond, k.Latch, k.Machine, k.Stats, rec),
		ppg: ppg,
		col: col,
		rec: rec,
		now: time.Unix(1700000000, 0),
	}
	f.step()
	return f
}

func (f *kioskFixture) step() {
	f.now = f.now.Add(50 * time.Millisecond)
	f.state = f.r.Tick(f.now).State
}

func (f *kioskFixture) press(k input.Key) {
	f.k.Latch.Press(k)
	f.step()
}

// until крутит такты, пока автомат не придет в нужное состояние
func (f *kioskFixture) until(s session.State, maxTicks int) {
	f.t.Helper()
	for i := 0; i < maxTicks; i++ {
		if f.state == s {
			return
		}
		f.step()
	}
	if f.state != s {
		f.t.Fatalf("Expected state %s, stuck in %s", s, f.state)
	}
}

// throughTriage проводит сессию до экрана рекомендации с уровнями 2,2,2
func (f *kioskFixture) throughTriage() {
	f.t.Helper()
	f.until(session.AwaitStart, 5)

	f.ppg.SetFinger(true)
	f.press(input.KeyA)
	f.until(session.AwaitSurveyOrManualInput, 400)

	if live := f.k.Stats.Snapshot(); live.BPMCount != 0 {
		f.t.Errorf("Expected no committed BPM before commit, got %d", live.BPMCount)
	}

	f.press(input.KeyA)
	f.press(input.KeyA)
	f.press(input.KeyA)
	f.until(session.TriageResultShown, 2)

	if got := f.k.Machine.Recommended(); got != triage.Red {
		f.t.Fatalf("Expected Red recommendation, got %s", got)
	}
	if live := f.k.Stats.Snapshot().Live; live != 0 {
		f.t.Errorf("Expected bpm_live 0 after measuring, got %.1f", live)
	}
}

func TestRunner_SessionEndToEnd(t *testing.T) {
	f := newKioskFixture(t, fastConfig(false))
	f.throughTriage()

	f.press(input.KeyA)
	f.until(session.ColorValidationIntro, 5)
	f.press(input.KeyA)
	f.until(session.ColorValidationLoop, 5)

	// Фон набирается при пустом датчике
	for i := 0; i < 30; i++ {
		f.step()
	}
	f.col.Hold(triage.Red)
	f.until(session.Commit, 60)

	records := f.rec.Records()
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}
	r := records[0]
	if r.Color != triage.Red || !r.ColorValidated {
		t.Errorf("Expected validated Red record, got %+v", r)
	}
	if r.BPM == nil || *r.BPM < 87 || *r.BPM > 92 {
		t.Errorf("Expected BPM within 87..92, got %v", r.BPM)
	}
	if r.Levels == nil || *r.Levels != triage.DefaultLevels() {
		t.Errorf("Expected default levels, got %v", r.Levels)
	}

	snap := f.k.Stats.Snapshot()
	if snap.Colors[triage.Red] != 1 || snap.BPMCount != 1 {
		t.Errorf("Unexpected snapshot after commit: %+v", snap)
	}

	ticks, commits := f.r.GetStats()
	if commits != 1 || ticks == 0 {
		t.Errorf("Expected 1 commit, got ticks=%d commits=%d", ticks, commits)
	}

	f.until(session.AwaitStart, 40)
}

func TestRunner_MissingColorSensorCommitsUnvalidated(t *testing.T) {
	f := newKioskFixture(t, fastConfig(true))
	f.throughTriage()

	f.press(input.KeyA)
	f.until(session.Commit, 60)

	records := f.rec.Records()
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}
	if records[0].ColorValidated {
		t.Error("Expected unvalidated record without color sensor")
	}
	if snap := f.k.Stats.Snapshot(); snap.NoColorSensor != 1 {
		t.Errorf("Expected NoColorSensor=1, got %d", snap.NoColorSensor)
	}
}

func TestRunner_RecorderErrorDoesNotStopSession(t *testing.T) {
	f := newKioskFixture(t, fastConfig(true))
	f.rec.err = errors.New("queue full")
	f.throughTriage()

	f.press(input.KeyA)
	f.until(session.Commit, 60)
	f.until(session.AwaitStart, 40)

	if _, commits := f.r.GetStats(); commits != 1 {
		t.Errorf("Expected 1 commit, got %d", commits)
	}
}

func TestRunner_RunStopsOnCancel(t *testing.T) {
	cfg := fastConfig(false)
	k, err := Build(cfg, Sensors{HeartRate: sim.NewPPG(false, 1), Color: sim.NewColorSensor(false)}, session.NopObserver{})
	if err != nil {
		t.Fatalf("Failed to build kiosk: %v", err)
	}
	r := New(5*time.Millisecond, k.Latch, k.Machine, k.Stats, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	if err := r.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline error, got %v", err)
	}
	if ticks, _ := r.GetStats(); ticks == 0 {
		t.Error("Expected ticks before cancel")
	}
	if k.Machine.State() != session.AwaitStart {
		t.Errorf("Expected AwaitStart, got %s", k.Machine.State())
	}
}

func TestBuild_RejectsUnknownValidationMode(t *testing.T) {
	cfg := config.Default()
	cfg.ValidationMode = "maybe"

	_, err := Build(cfg, Sensors{HeartRate: sim.NewPPG(false, 1), Color: sim.NewColorSensor(false)}, session.NopObserver{})
	if err == nil {
		t.Error("Expected error for unknown validation mode")
	}
}
