package session

import (
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/Krimson/triage-kiosk/kiosk/internal/color"
	"github.com/Krimson/triage-kiosk/kiosk/internal/display"
	"github.com/Krimson/triage-kiosk/kiosk/internal/heartrate"
	"github.com/Krimson/triage-kiosk/kiosk/internal/input"
	"github.com/Krimson/triage-kiosk/kiosk/internal/stats"
	"github.com/Krimson/triage-kiosk/kiosk/internal/survey"
	"github.com/Krimson/triage-kiosk/kiosk/internal/triage"
)

var ErrMissingDependency = errors.New("session dependency is missing")

// Deps - компоненты, которыми управляет сессия
type Deps struct {
	HeartRate *heartrate.Acquisition
	Color     *color.Validator
	Stats     *stats.Aggregator
	Display   *display.Mirror
	Survey    *survey.Bridge
	Observer  Observer
}

type stateHandler struct {
	enter func(now time.Time)
	tick  func(now time.Time, ev input.Events)
}

// pendingTransition заменяет паузы: кадр уже показан, переход - по сроку
type pendingTransition struct {
	active bool
	to     State
	at     time.Time
}

// flash - временное сообщение внутри состояния
type flash struct {
	active bool
	until  time.Time
}

// Machine - автомат сессии триажа. Вызывается из одной горутины раз в такт.
type Machine struct {
	cfg      Config
	deps     Deps
	handlers [stateCount]stateHandler

	started   bool
	state     State
	enteredAt time.Time
	pending   pendingTransition
	flash     flash
	out       Output

	// Данные текущей сессии
	id             string
	inputs         triage.Inputs
	hasLevels      bool
	hasSurvey      bool
	recommended    triage.Color
	colorValidated bool

	selector      int
	attempts      int
	nextAttempt   time.Time
	colorInit     bool
	lastRefresh   time.Time
	baselineShown bool
}

// NewMachine создает автомат сессии
func NewMachine(cfg Config, deps Deps) (*Machine, error) {
	if deps.HeartRate == nil || deps.Color == nil || deps.Stats == nil || deps.Display == nil || deps.Survey == nil {
		return nil, ErrMissingDependency
	}
	if deps.Observer == nil {
		deps.Observer = NopObserver{}
	}
	if cfg.InitAttempts <= 0 {
		cfg.InitAttempts = 3
	}
	if cfg.TriageMode == "" {
		cfg.TriageMode = triage.ModeOrdinal
	}

	m := &Machine{cfg: cfg, deps: deps, recommended: triage.Unknown}
	m.handlers = [stateCount]stateHandler{
		AwaitStart:               {m.enterAwaitStart, m.tickAwaitStart},
		HeartRatePrep:            {m.enterHeartRatePrep, m.tickHeartRatePrep},
		HeartRateRunning:         {m.enterHeartRateRunning, m.tickHeartRateRunning},
		ShowHeartRateResult:      {m.enterShowHeartRateResult, m.tickIdle},
		AwaitSurveyOrManualInput: {m.enterAwaitInput, m.tickAwaitInput},
		TriageResultShown:        {m.enterTriageResult, m.tickTriageResult},
		ColorValidationIntro:     {m.enterColorIntro, m.tickColorIntro},
		ColorValidationLoop:      {m.enterColorLoop, m.tickColorLoop},
		Commit:                   {m.enterCommit, m.tickIdle},
		ReportView:               {m.enterReport, m.tickReport},
	}
	return m, nil
}

// Advance выполняет один такт: входные фронты, таймеры, датчики
func (m *Machine) Advance(now time.Time, ev input.Events) Output {
	m.out = Output{}

	if !m.started {
		m.started = true
		log.Printf("[SESSION] Machine started in %s", AwaitStart)
		m.enter(now, AwaitStart)
	} else if m.pending.active {
		if !now.Before(m.pending.at) {
			to := m.pending.to
			m.pending = pendingTransition{}
			m.transition(now, to)
		}
	} else {
		m.handlers[m.state].tick(now, ev)
	}

	m.out.State = m.state
	m.out.Frame, _ = m.deps.Display.Frame()
	return m.out
}

// State возвращает активное состояние
func (m *Machine) State() State {
	return m.state
}

// SessionID возвращает идентификатор текущей сессии или пустую строку
func (m *Machine) SessionID() string {
	return m.id
}

// Recommended возвращает цвет, рекомендованный в текущей сессии
func (m *Machine) Recommended() triage.Color {
	return m.recommended
}

// LiveHeartRate возвращает текущее значение пульса, пока идет измерение, иначе 0
func (m *Machine) LiveHeartRate() float64 {
	if m.state == HeartRateRunning {
		return m.deps.HeartRate.Live()
	}
	return 0
}

func (m *Machine) transition(now time.Time, to State) {
	log.Printf("[SESSION] %s -> %s", m.state, to)
	m.enter(now, to)
}

// enter делает to активным и один раз выполняет его входное действие
func (m *Machine) enter(now time.Time, to State) {
	m.state = to
	m.enteredAt = now
	m.flash = flash{}

	m.deps.Observer.StateEntered(to)
	m.handlers[to].enter(now)
}

// after показывает уже выведенный кадр и переходит в to по истечении d
func (m *Machine) after(now time.Time, d time.Duration, to State) {
	m.pending = pendingTransition{active: true, to: to, at: now.Add(d)}
}

func (m *Machine) show(l1, l2, l3, l4 string) {
	m.deps.Display.Set(l1, l2, l3, l4)
	m.out.Redrawn = true
}

// showFlash выводит временное сообщение, не покидая состояние
func (m *Machine) showFlash(now time.Time, d time.Duration, l1, l2, l3, l4 string) {
	m.show(l1, l2, l3, l4)
	m.flash = flash{active: true, until: now.Add(d)}
}

func (m *Machine) beginSession() {
	m.id = uuid.New().String()
	m.inputs = triage.Inputs{}
	m.hasLevels = false
	m.hasSurvey = false
	m.recommended = triage.Unknown
	m.colorValidated = false

	log.Printf("[SESSION] Created new session: %s", m.id)
	m.deps.Observer.SessionStarted(m.id)
}

func (m *Machine) clearSession() {
	m.id = ""
	m.inputs = triage.Inputs{}
	m.hasLevels = false
	m.hasSurvey = false
	m.recommended = triage.Unknown
	m.colorValidated = false
}

// abort отбрасывает сессию без фиксации и возвращает в ожидание
func (m *Machine) abort(now time.Time, reason string, d time.Duration, l1, l2, l3, l4 string) {
	m.deps.HeartRate.Stop()
	m.deps.Survey.Cancel()

	log.Printf("[SESSION] Session %s aborted: %s", m.id, reason)
	m.deps.Observer.SessionAborted(m.id, reason)
	m.clearSession()

	m.show(l1, l2, l3, l4)
	m.after(now, d, AwaitStart)
}

func (m *Machine) decide() {
	m.recommended = triage.Decide(m.cfg.TriageMode, m.inputs)
	log.Printf("[SESSION] Session %s triage: mode=%s bpm=%.1f color=%s",
		m.id, m.cfg.TriageMode, m.inputs.BPM(), m.recommended)
}

func (m *Machine) entry() stats.Entry {
	e := stats.Entry{
		Color:          m.recommended,
		ColorValidated: m.colorValidated,
		HeartRate:      m.inputs.HeartRate,
		HasHeartRate:   m.inputs.HasHeartRate,
	}
	if m.hasLevels {
		lv := m.inputs.Levels
		e.Levels = &lv
	}
	if m.hasSurvey {
		bits := m.inputs.Survey
		e.Survey = &bits
	}
	return e
}
