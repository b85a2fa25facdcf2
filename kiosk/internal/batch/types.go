package batch

import (
	"context"
	"time"

	"github.com/Krimson/triage-kiosk/kiosk/internal/session"
	"github.com/Krimson/triage-kiosk/kiosk/internal/triage"
)

// Record - обезличенный итог одной сессии
type Record struct {
	SessionID      string         `json:"session_id"`
	CommittedAt    time.Time      `json:"committed_at"`
	Color          triage.Color   `json:"color"`
	ColorValidated bool           `json:"color_validated"`
	BPM            *float64       `json:"bpm,omitempty"`
	Levels         *triage.Levels `json:"levels,omitempty"`
	SurveyBits     string         `json:"survey,omitempty"`
}

// FromCommit строит запись из зафиксированной сессии
func FromCommit(rec session.CommitRecord) Record {
	r := Record{
		SessionID:      rec.SessionID,
		CommittedAt:    rec.CommittedAt,
		Color:          rec.Entry.Color,
		ColorValidated: rec.Entry.ColorValidated,
	}
	if rec.Entry.HasHeartRate {
		bpm := rec.Entry.HeartRate
		r.BPM = &bpm
	}
	if rec.Entry.Levels != nil {
		lv := *rec.Entry.Levels
		r.Levels = &lv
	}
	if rec.Entry.Survey != nil {
		r.SurveyBits = rec.Entry.Survey.String()
	}
	return r
}

// Batch представляет собранный батч записей
type Batch struct {
	Seq     uint64    `json:"seq"`     // Порядковый номер батча
	T0      time.Time `json:"t0"`      // Время первой записи
	T1      time.Time `json:"t1"`      // Время последней записи
	Records []Record  `json:"records"` // Записи в батче
}

// Sink интерфейс для обработки готовых батчей
type Sink interface {
	Consume(ctx context.Context, b Batch) error
}

// currentBatch - внутренняя структура для отслеживания текущего состояния батча
type currentBatch struct {
	Batch
	openedAt time.Time // Время добавления первой записи
}

// addRecord добавляет запись и обновляет временные границы
func (cb *currentBatch) addRecord(r Record, now time.Time) {
	if len(cb.Records) == 0 {
		cb.T0 = r.CommittedAt
		cb.T1 = r.CommittedAt
		cb.openedAt = now
	} else {
		if r.CommittedAt.Before(cb.T0) {
			cb.T0 = r.CommittedAt
		}
		if r.CommittedAt.After(cb.T1) {
			cb.T1 = r.CommittedAt
		}
	}
	cb.Records = append(cb.Records, r)
}

// shouldFlushBySize проверяет, нужно ли сбросить батч по размеру
func (cb *currentBatch) shouldFlushBySize(maxRecords int) bool {
	return len(cb.Records) >= maxRecords
}

// shouldFlushByAge проверяет, не пролежал ли батч дольше интервала
func (cb *currentBatch) shouldFlushByAge(now time.Time, interval time.Duration) bool {
	return len(cb.Records) > 0 && now.Sub(cb.openedAt) >= interval
}

// clone создает копию батча для отправки в sink
func (cb *currentBatch) clone() Batch {
	recordsCopy := make([]Record, len(cb.Records))
	copy(recordsCopy, cb.Records)

	return Batch{
		Seq:     cb.Seq,
		T0:      cb.T0,
		T1:      cb.T1,
		Records: recordsCopy,
	}
}

// reset очищает батч для переиспользования
func (cb *currentBatch) reset() {
	cb.T0 = time.Time{}
	cb.T1 = time.Time{}
	cb.Records = cb.Records[:0] // Сохраняем capacity
	cb.openedAt = time.Time{}
}
