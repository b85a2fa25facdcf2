package survey

import (
	"log"
	"sync"

	"github.com/Krimson/triage-kiosk/kiosk/internal/triage"
)

// Bridge - одноместный почтовый ящик между сессией и веб-клиентом.
// Повторная отправка до чтения перезаписывает предыдущую.
type Bridge struct {
	mu      sync.Mutex
	open    bool
	pending bool
	bits    triage.SurveyBits

	stats struct {
		opened      int64
		submitted   int64
		overwritten int64
		taken       int64
	}
}

// NewBridge создает закрытый почтовый ящик
func NewBridge() *Bridge {
	return &Bridge{}
}

// Begin открывает анкету и сбрасывает устаревший ответ
func (b *Bridge) Begin() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.open = true
	b.pending = false
	b.bits = triage.SurveyBits{}
	b.stats.opened++

	log.Printf("[SURVEY] Survey opened")
}

// Submit сохраняет ответ веб-клиента
func (b *Bridge) Submit(bits triage.SurveyBits) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pending {
		b.stats.overwritten++
		log.Printf("[SURVEY] Pending answer overwritten")
	}
	b.bits = bits
	b.pending = true
	b.stats.submitted++
}

// Take забирает ответ ровно один раз и закрывает анкету
func (b *Bridge) Take() (triage.SurveyBits, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.pending {
		return triage.SurveyBits{}, false
	}

	bits := b.bits
	b.pending = false
	b.open = false
	b.bits = triage.SurveyBits{}
	b.stats.taken++

	log.Printf("[SURVEY] Answer consumed: %s", bits.String())
	return bits, true
}

// Cancel закрывает анкету без ответа (сессия прервана)
func (b *Bridge) Cancel() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.open = false
	b.pending = false
	b.bits = triage.SurveyBits{}
}

// IsOpen сообщает транспорту, нужно ли показывать форму
func (b *Bridge) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}

// HasPending сообщает, ожидает ли ответ чтения
func (b *Bridge) HasPending() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pending
}

func (b *Bridge) GetStats() (opened, submitted, overwritten, taken int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats.opened, b.stats.submitted, b.stats.overwritten, b.stats.taken
}
