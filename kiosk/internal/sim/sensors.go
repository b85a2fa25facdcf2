package sim

import (
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"

	"github.com/Krimson/triage-kiosk/kiosk/internal/color"
	"github.com/Krimson/triage-kiosk/kiosk/internal/triage"
)

// Ошибки эмулятора
var (
	ErrNotPresent = errors.New("simulated sensor is not attached")
	ErrNotStarted = errors.New("simulated sensor is not started")
)

// Уровни ИК-сигнала: палец на датчике и открытый датчик
const (
	IRFinger  uint32 = 52000
	IRAmbient uint32 = 800
)

// PPG эмулирует оптический датчик пульса; палец ставится и убирается извне
type PPG struct {
	missing bool
	finger  atomic.Bool

	mu      sync.Mutex
	rand    *rand.Rand
	started bool
}

// NewPPG создает эмулятор; missing=true имитирует отсутствие датчика на шине
func NewPPG(missing bool, seed int64) *PPG {
	return &PPG{missing: missing, rand: rand.New(rand.NewSource(seed))}
}

func (p *PPG) SetFinger(on bool) { p.finger.Store(on) }

// ToggleFinger переключает палец и возвращает новое состояние
func (p *PPG) ToggleFinger() bool {
	for {
		old := p.finger.Load()
		if p.finger.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

func (p *PPG) Finger() bool { return p.finger.Load() }

func (p *PPG) Init() error {
	if p.missing {
		return ErrNotPresent
	}
	return nil
}

func (p *PPG) Start() error {
	if p.missing {
		return ErrNotPresent
	}
	p.mu.Lock()
	p.started = true
	p.mu.Unlock()
	return nil
}

func (p *PPG) ReadIR(n int) ([]uint32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return nil, ErrNotStarted
	}

	level := IRAmbient
	if p.finger.Load() {
		level = IRFinger
	}

	out := make([]uint32, n)
	for i := range out {
		// Небольшой шум вокруг уровня
		out[i] = level + uint32(p.rand.Intn(400))
	}
	return out, nil
}

func (p *PPG) Shutdown() error {
	p.mu.Lock()
	p.started = false
	p.mu.Unlock()
	return nil
}

// Отражение браслетов и фона
var (
	Ambient    = color.Reading{R: 0.32, G: 0.34, B: 0.30, C: 0.40}
	GreenBand  = color.Reading{R: 0.1, G: 0.6, B: 0.1, C: 0.55}
	YellowBand = color.Reading{R: 0.5, G: 0.45, B: 0.08, C: 0.62}
	RedBand    = color.Reading{R: 0.62, G: 0.12, B: 0.1, C: 0.52}
)

// BandReading возвращает отражение браслета заданного цвета
func BandReading(c triage.Color) (color.Reading, bool) {
	switch c {
	case triage.Green:
		return GreenBand, true
	case triage.Yellow:
		return YellowBand, true
	case triage.Red:
		return RedBand, true
	default:
		return color.Reading{}, false
	}
}

// ColorSensor эмулирует датчик цвета; над ним может лежать браслет
type ColorSensor struct {
	missing bool

	mu   sync.Mutex
	band triage.Color
	held bool
}

// NewColorSensor создает эмулятор датчика цвета
func NewColorSensor(missing bool) *ColorSensor {
	return &ColorSensor{missing: missing, band: triage.Unknown}
}

// Hold кладет браслет над датчиком
func (s *ColorSensor) Hold(c triage.Color) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.band = c
	s.held = c.Valid()
}

// Remove убирает браслет
func (s *ColorSensor) Remove() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.band = triage.Unknown
	s.held = false
}

// Held возвращает цвет браслета над датчиком
func (s *ColorSensor) Held() (triage.Color, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.band, s.held
}

func (s *ColorSensor) Init() error {
	if s.missing {
		return ErrNotPresent
	}
	return nil
}

func (s *ColorSensor) Read() (color.Reading, error) {
	if s.missing {
		return color.Reading{}, color.ErrNoReading
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.held {
		r, _ := BandReading(s.band)
		return r, nil
	}
	return Ambient, nil
}
