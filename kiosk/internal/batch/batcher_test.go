package batch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Krimson/triage-kiosk/kiosk/internal/session"
	"github.com/Krimson/triage-kiosk/kiosk/internal/stats"
	"github.com/Krimson/triage-kiosk/kiosk/internal/triage"
)

// TestSink для тестирования - собирает все батчи
type TestSink struct {
	mu      sync.Mutex
	batches []Batch
	err     error
}

func (ts *TestSink) Consume(ctx context.Context, b Batch) error {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.batches = append(ts.batches, b)
	return ts.err
}

func (ts *TestSink) GetBatches() []Batch {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	result := make([]Batch, len(ts.batches))
	copy(result, ts.batches)
	return result
}

func record(id string, c triage.Color) Record {
	bpm := 88.0
	return Record{
		SessionID:      id,
		CommittedAt:    time.Unix(1700000000, 0),
		Color:          c,
		ColorValidated: true,
		BPM:            &bpm,
	}
}

func TestBatcher_FlushBySize(t *testing.T) {
	sink := &TestSink{}
	batcher := NewBatcher(Config{MaxRecords: 3, FlushInterval: time.Hour}, sink)
	defer batcher.Stop()

	// Добавляем 5 записей подряд - по размеру сбрасывается только первый батч (3)
	for i, c := range []triage.Color{triage.Green, triage.Red, triage.Yellow, triage.Green, triage.Green} {
		if err := batcher.Add(record(string(rune('a'+i)), c)); err != nil {
			t.Fatalf("Failed to add record: %v", err)
		}
	}

	// Даем время для обработки
	time.Sleep(100 * time.Millisecond)

	batches := sink.GetBatches()
	if len(batches) != 1 {
		t.Fatalf("Expected 1 flushed batch, got %d", len(batches))
	}
	if len(batches[0].Records) != 3 {
		t.Errorf("Expected 3 records in first batch, got %d", len(batches[0].Records))
	}
	if batches[0].Seq != 1 {
		t.Errorf("Expected seq 1, got %d", batches[0].Seq)
	}
}

func TestBatcher_FlushByAge(t *testing.T) {
	sink := &TestSink{}
	batcher := NewBatcher(Config{MaxRecords: 100, FlushInterval: 100 * time.Millisecond}, sink)
	defer batcher.Stop()

	batcher.Add(record("a", triage.Green))

	time.Sleep(400 * time.Millisecond)

	batches := sink.GetBatches()
	if len(batches) != 1 || len(batches[0].Records) != 1 {
		t.Errorf("Expected one aged batch with 1 record, got %+v", batches)
	}
}

func TestBatcher_StopFlushesRemainder(t *testing.T) {
	sink := &TestSink{}
	batcher := NewBatcher(Config{MaxRecords: 100, FlushInterval: time.Hour}, sink)

	batcher.Add(record("a", triage.Red))
	batcher.Add(record("b", triage.Yellow))
	batcher.Stop()

	batches := sink.GetBatches()
	if len(batches) != 1 || len(batches[0].Records) != 2 {
		t.Fatalf("Expected remainder flushed on stop, got %+v", batches)
	}

	received, dropped, flushed, failed := batcher.GetStats()
	if received != 2 || dropped != 0 || flushed != 1 || failed != 0 {
		t.Errorf("Unexpected stats: received=%d dropped=%d flushed=%d failed=%d",
			received, dropped, flushed, failed)
	}

	// Повторный Stop безопасен
	batcher.Stop()
}

func TestBatcher_DropsInvalidRecords(t *testing.T) {
	sink := &TestSink{}
	batcher := NewBatcher(Config{MaxRecords: 100, FlushInterval: time.Hour}, sink)

	badBPM := 300.0
	invalid := []Record{
		{SessionID: "", CommittedAt: time.Unix(1, 0), Color: triage.Green},
		{SessionID: "x", CommittedAt: time.Unix(1, 0), Color: triage.Unknown},
		{SessionID: "x", Color: triage.Green},
		{SessionID: "x", CommittedAt: time.Unix(1, 0), Color: triage.Green, BPM: &badBPM},
		{SessionID: "x", CommittedAt: time.Unix(1, 0), Color: triage.Green, Levels: &triage.Levels{Energy: 4, Mood: 1, Anxiety: 1}},
		{SessionID: "x", CommittedAt: time.Unix(1, 0), Color: triage.Green, SurveyBits: "01"},
	}
	for _, r := range invalid {
		batcher.Add(r)
	}
	batcher.Stop()

	if len(sink.GetBatches()) != 0 {
		t.Error("Invalid records must not be flushed")
	}
	received, dropped, _, _ := batcher.GetStats()
	if received != 0 || dropped != int64(len(invalid)) {
		t.Errorf("Expected 0 received and %d dropped, got %d/%d", len(invalid), received, dropped)
	}
}

func TestBatcher_SinkErrorCounted(t *testing.T) {
	sink := &TestSink{err: errors.New("downstream unavailable")}
	batcher := NewBatcher(Config{MaxRecords: 1, FlushInterval: time.Hour}, sink)

	batcher.Add(record("a", triage.Green))
	batcher.Stop()

	if _, _, _, failed := batcher.GetStats(); failed != 1 {
		t.Errorf("Expected 1 failed batch, got %d", failed)
	}
}

func TestFromCommit(t *testing.T) {
	lv := triage.Levels{Energy: 1, Mood: 2, Anxiety: 3}
	bits, _ := triage.ParseSurveyBits("1100000001")
	at := time.Unix(1700000000, 0)

	r := FromCommit(session.CommitRecord{
		SessionID:   "s-1",
		CommittedAt: at,
		Entry: stats.Entry{
			Color:          triage.Yellow,
			ColorValidated: false,
			HeartRate:      91,
			HasHeartRate:   true,
			Levels:         &lv,
			Survey:         &bits,
		},
	})

	if r.SessionID != "s-1" || !r.CommittedAt.Equal(at) || r.Color != triage.Yellow || r.ColorValidated {
		t.Errorf("Unexpected record header: %+v", r)
	}
	if r.BPM == nil || *r.BPM != 91 {
		t.Errorf("Expected bpm 91, got %v", r.BPM)
	}
	if r.Levels == nil || *r.Levels != lv {
		t.Errorf("Expected levels %+v, got %v", lv, r.Levels)
	}
	if r.SurveyBits != "1100000001" {
		t.Errorf("Expected survey bits, got %q", r.SurveyBits)
	}

	// Без пульса поле остается пустым
	empty := FromCommit(session.CommitRecord{SessionID: "s-2", CommittedAt: at, Entry: stats.Entry{Color: triage.Green}})
	if empty.BPM != nil || empty.Levels != nil || empty.SurveyBits != "" {
		t.Errorf("Expected optional fields empty, got %+v", empty)
	}
}
