package color

import (
	"errors"
	"math"
	"time"

	"github.com/Krimson/triage-kiosk/kiosk/internal/triage"
)

// ErrNoReading - датчик не выдал отсчет (это не нулевая яркость)
var ErrNoReading = errors.New("color sensor returned no reading")

// Reading - нормированные каналы красный, зеленый, синий и общий (0..1)
type Reading struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
	C float64 `json:"c"`
}

// Chroma - разница между максимальным и минимальным цветовым каналом
func (r Reading) Chroma() float64 {
	return math.Max(r.R, math.Max(r.G, r.B)) - math.Min(r.R, math.Min(r.G, r.B))
}

// Sensor - датчик отраженного цвета
type Sensor interface {
	Init() error
	// Read возвращает ErrNoReading, если данных нет
	Read() (Reading, error)
}

// Baseline накапливает фон до готовности. Готовность монотонна:
// после Ready() == true новые отсчеты не меняют среднее.
type Baseline struct {
	minSamples int
	deadline   time.Time
	sum        Reading
	n          int
	ready      bool
	mean       Reading
}

// NewBaseline начинает калибровку: нужно minSamples отсчетов и окно window
func NewBaseline(now time.Time, window time.Duration, minSamples int) *Baseline {
	if minSamples < 1 {
		minSamples = 1
	}
	return &Baseline{minSamples: minSamples, deadline: now.Add(window)}
}

// Add учитывает отсчет фона и проверяет готовность
func (b *Baseline) Add(now time.Time, r Reading) {
	if b.ready {
		return
	}
	b.sum.R += r.R
	b.sum.G += r.G
	b.sum.B += r.B
	b.sum.C += r.C
	b.n++
	b.check(now)
}

// Tick проверяет готовность без нового отсчета
func (b *Baseline) Tick(now time.Time) {
	if !b.ready {
		b.check(now)
	}
}

func (b *Baseline) check(now time.Time) {
	if b.n < b.minSamples || now.Before(b.deadline) {
		return
	}
	n := float64(b.n)
	b.mean = Reading{R: b.sum.R / n, G: b.sum.G / n, B: b.sum.B / n, C: b.sum.C / n}
	b.ready = true
}

func (b *Baseline) Ready() bool {
	return b.ready
}

// Mean возвращает фон; до готовности - нулевой Reading
func (b *Baseline) Mean() Reading {
	return b.mean
}

// Samples возвращает число учтенных отсчетов
func (b *Baseline) Samples() int {
	return b.n
}

// Thresholds - пороги принятия отсчета как "браслет у датчика"
type Thresholds struct {
	MinClear      float64
	MinChroma     float64
	MinDeltaClear float64
}

// DefaultThresholds возвращает пороги по умолчанию
func DefaultThresholds() Thresholds {
	return Thresholds{MinClear: 0.06, MinChroma: 0.14, MinDeltaClear: 0.25}
}

// Verdict - итог проверки одного отсчета
type Verdict int

const (
	VerdictNoReading Verdict = iota
	VerdictWeak
	VerdictAccepted
)

func (v Verdict) String() string {
	switch v {
	case VerdictNoReading:
		return "no_reading"
	case VerdictWeak:
		return "weak"
	case VerdictAccepted:
		return "accepted"
	default:
		return "unknown"
	}
}

// Evaluation - проверенный отсчет
type Evaluation struct {
	Verdict    Verdict
	Reading    Reading
	Chroma     float64
	DeltaClear float64
	Color      triage.Color
}

const darkBaseline = 1e-6

// Evaluate принимает отсчет, если одновременно достаточно яркости,
// отклонения яркости от фона и цветности; затем классифицирует цвет
func Evaluate(base, r Reading, th Thresholds) Evaluation {
	ev := Evaluation{Reading: r, Chroma: r.Chroma(), Color: triage.Unknown}

	if base.C > darkBaseline {
		ev.DeltaClear = math.Abs(r.C-base.C) / base.C
	} else {
		// Любой свет на темном фоне считается изменением
		ev.DeltaClear = 1
	}

	if r.C > th.MinClear && ev.DeltaClear > th.MinDeltaClear && ev.Chroma > th.MinChroma {
		ev.Verdict = VerdictAccepted
		ev.Color = Classify(r)
	} else {
		ev.Verdict = VerdictWeak
	}
	return ev
}

// Classify определяет цвет по доминирующему каналу.
// Красный и зеленый близкие по силе при слабом синем дают желтый.
func Classify(r Reading) triage.Color {
	if r.R+r.G+r.B <= 0 {
		return triage.Unknown
	}
	if r.B >= r.R && r.B >= r.G {
		return triage.Unknown
	}

	hi, lo := math.Max(r.R, r.G), math.Min(r.R, r.G)
	if lo >= 0.7*hi {
		if r.B < 0.6*lo {
			return triage.Yellow
		}
		return triage.Unknown
	}

	if r.R > r.G {
		return triage.Red
	}
	return triage.Green
}
