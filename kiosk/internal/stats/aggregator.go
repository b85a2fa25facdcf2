package stats

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/Krimson/triage-kiosk/kiosk/internal/triage"
	"github.com/Krimson/triage-kiosk/kiosk/internal/x/mathx"
)

const (
	// DefaultBPMCapacity - размер скользящего окна пульса
	DefaultBPMCapacity = 64

	maxPlausibleBPM = 250.0
)

var (
	ErrInvalidColor = errors.New("entry color is not a triage color")
	ErrInvalidLevel = errors.New("self-report level out of range")
)

// Entry - итог одной сессии, фиксируемый целиком
type Entry struct {
	Color          triage.Color
	ColorValidated bool
	HeartRate      float64
	HasHeartRate   bool
	Levels         *triage.Levels
	Survey         *triage.SurveyBits
}

type meanAcc struct {
	sum float64
	n   uint64
}

func (m *meanAcc) add(v float64) {
	m.sum += v
	m.n++
}

func (m meanAcc) stat() LevelStat {
	if m.n == 0 {
		return LevelStat{}
	}
	return LevelStat{Mean: Mean{Value: m.sum / float64(m.n), Valid: true}, N: m.n}
}

type bucket struct {
	bpm       []float64
	colors    [len(triage.Colors)]uint64
	anxiety   meanAcc
	energy    meanAcc
	mood      meanAcc
	surveyN   uint64
	surveyYes [triage.SurveyQuestions]uint64
	noSensor  uint64
}

func (b *bucket) addBPM(v float64, capacity int) {
	if len(b.bpm) < capacity {
		b.bpm = append(b.bpm, v)
		return
	}
	copy(b.bpm, b.bpm[1:])
	b.bpm[len(b.bpm)-1] = v
}

// Aggregator накапливает анонимные групповые метрики.
// Безопасен для одновременного использования сессией и транспортом.
type Aggregator struct {
	mu       sync.RWMutex
	capacity int
	all      bucket
	byColor  [len(triage.Colors)]bucket
	sampleID uint64
	live     float64
}

// NewAggregator создает агрегатор с заданной емкостью окна пульса
func NewAggregator(capacity int) *Aggregator {
	if capacity <= 0 {
		capacity = DefaultBPMCapacity
	}
	return &Aggregator{capacity: capacity}
}

func validBPM(v float64) bool {
	return mathx.OpenBetween(v, 0, maxPlausibleBPM)
}

// AddHeartRate добавляет отсчет пульса в общее окно.
// Значения вне (0, 250) отбрасываются.
func (a *Aggregator) AddHeartRate(bpm float64) bool {
	if !validBPM(bpm) {
		return false
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.all.addBPM(bpm, a.capacity)
	a.sampleID++
	return true
}

// SetLive обновляет текущее значение пульса для отчетов
func (a *Aggregator) SetLive(bpm float64) {
	a.mu.Lock()
	a.live = bpm
	a.mu.Unlock()
}

// Commit атомарно фиксирует итог сессии: либо все поля, либо ничего
func (a *Aggregator) Commit(e Entry) error {
	if !e.Color.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidColor, e.Color)
	}
	if e.Levels != nil {
		for _, v := range []int{e.Levels.Energy, e.Levels.Mood, e.Levels.Anxiety} {
			if !mathx.Between(v, triage.LevelMin, triage.LevelMax) {
				return fmt.Errorf("%w: %d", ErrInvalidLevel, v)
			}
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	targets := []*bucket{&a.all, &a.byColor[e.Color]}

	if e.HasHeartRate && validBPM(e.HeartRate) {
		for _, b := range targets {
			b.addBPM(e.HeartRate, a.capacity)
		}
		a.sampleID++
	} else if e.HasHeartRate {
		log.Printf("[WARN] Heart rate %.1f outside plausible range, not aggregated", e.HeartRate)
	}

	for _, b := range targets {
		b.colors[e.Color]++
	}
	a.sampleID++

	if e.Levels != nil {
		for _, b := range targets {
			b.anxiety.add(float64(e.Levels.Anxiety))
			b.energy.add(float64(e.Levels.Energy))
			b.mood.add(float64(e.Levels.Mood))
		}
		a.sampleID += 3
	}

	if e.Survey != nil {
		for _, b := range targets {
			b.surveyN++
			for i, yes := range e.Survey {
				if yes {
					b.surveyYes[i]++
				}
			}
		}
		a.sampleID++
	}

	if !e.ColorValidated {
		for _, b := range targets {
			b.noSensor++
		}
	}

	return nil
}

// Snapshot возвращает копию общих агрегатов
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.snapshotLocked(&a.all)
}

// SnapshotByColor возвращает агрегаты только по сессиям с данным цветом
func (a *Aggregator) SnapshotByColor(c triage.Color) Snapshot {
	if !c.Valid() {
		return a.Snapshot()
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	s := a.snapshotLocked(&a.byColor[c])
	s.Filter = c
	s.Filtered = true
	return s
}

func (a *Aggregator) snapshotLocked(b *bucket) Snapshot {
	mean, ok := TrimmedMean(b.bpm)
	return Snapshot{
		SampleID:      a.sampleID,
		Live:          a.live,
		BPMMean:       Mean{Value: mean, Valid: ok},
		BPMCount:      uint64(len(b.bpm)),
		Colors:        b.colors,
		Anxiety:       b.anxiety.stat(),
		Energy:        b.energy.stat(),
		Mood:          b.mood.stat(),
		SurveyN:       b.surveyN,
		SurveyYes:     b.surveyYes,
		NoColorSensor: b.noSensor,
	}
}

// TrimmedMean отбрасывает по одному крайнему значению с каждой стороны
// при n > 2. Для пустого набора значения нет.
func TrimmedMean(v []float64) (float64, bool) {
	n := len(v)
	if n == 0 {
		return 0, false
	}
	if n <= 2 {
		sum := 0.0
		for _, x := range v {
			sum += x
		}
		return sum / float64(n), true
	}

	sorted := make([]float64, n)
	copy(sorted, v)
	sort.Float64s(sorted)

	sum := 0.0
	for _, x := range sorted[1 : n-1] {
		sum += x
	}
	return sum / float64(n-2), true
}
