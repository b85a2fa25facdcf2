package color

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Krimson/triage-kiosk/kiosk/internal/triage"
)

var ErrSensorNotFound = errors.New("color sensor not found")

// Mode - политика подтверждения совпадения
type Mode string

const (
	// ModeConfirm: совпадение проверяется только по нажатию подтверждения
	ModeConfirm Mode = "confirm"
	// ModeAuto: каждый принятый отсчет сравнивается сразу
	ModeAuto Mode = "auto"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeConfirm, ModeAuto:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown validation mode %q", s)
	}
}

// Outcome - результат шага проверки браслета
type Outcome int

const (
	OutcomeIdle Outcome = iota
	OutcomeCalibrating
	OutcomeNoReading
	OutcomeWeak
	OutcomeCandidate
	OutcomeMatch
	OutcomeMismatch
	OutcomeCooldown
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIdle:
		return "idle"
	case OutcomeCalibrating:
		return "calibrating"
	case OutcomeNoReading:
		return "no_reading"
	case OutcomeWeak:
		return "weak"
	case OutcomeCandidate:
		return "candidate"
	case OutcomeMatch:
		return "match"
	case OutcomeMismatch:
		return "mismatch"
	case OutcomeCooldown:
		return "cooldown"
	default:
		return "unknown"
	}
}

// Result - исход Poll или Confirm
type Result struct {
	Outcome Outcome
	Eval    Evaluation
}

// Config - параметры проверки браслета
type Config struct {
	Mode               Mode
	Thresholds         Thresholds
	PollInterval       time.Duration
	BaselineWindow     time.Duration
	BaselineMinSamples int
	MismatchCooldown   time.Duration
}

// Validator проводит калибровку фона и проверку браслета для одной попытки
type Validator struct {
	sensor Sensor
	cfg    Config

	inited        bool
	target        triage.Color
	base          *Baseline
	nextPoll      time.Time
	cooldownUntil time.Time
	candidate     *Evaluation
}

// NewValidator создает проверку поверх датчика
func NewValidator(sensor Sensor, cfg Config) *Validator {
	if cfg.Mode == "" {
		cfg.Mode = ModeConfirm
	}
	if cfg.BaselineMinSamples <= 0 {
		cfg.BaselineMinSamples = 3
	}
	return &Validator{sensor: sensor, cfg: cfg, target: triage.Unknown}
}

// Init инициализирует датчик; повторный вызов после успеха ничего не делает
func (v *Validator) Init() error {
	if v.inited {
		return nil
	}
	if err := v.sensor.Init(); err != nil {
		return fmt.Errorf("%w: %v", ErrSensorNotFound, err)
	}
	v.inited = true
	log.Printf("[COLOR] Sensor initialized")
	return nil
}

// Mode возвращает действующую политику
func (v *Validator) Mode() Mode {
	return v.cfg.Mode
}

// Begin начинает новую попытку: калибровка фона заново
func (v *Validator) Begin(now time.Time, target triage.Color) {
	v.target = target
	v.base = NewBaseline(now, v.cfg.BaselineWindow, v.cfg.BaselineMinSamples)
	v.nextPoll = now
	v.cooldownUntil = time.Time{}
	v.candidate = nil
}

// BaselineReady сообщает, завершена ли калибровка
func (v *Validator) BaselineReady() bool {
	return v.base != nil && v.base.Ready()
}

// Candidate возвращает последний принятый отсчет в режиме подтверждения
func (v *Validator) Candidate() (Evaluation, bool) {
	if v.candidate == nil {
		return Evaluation{}, false
	}
	return *v.candidate, true
}

// Poll читает датчик не чаще PollInterval
func (v *Validator) Poll(now time.Time) Result {
	if v.base == nil {
		return Result{Outcome: OutcomeIdle}
	}
	if now.Before(v.nextPoll) {
		v.base.Tick(now)
		return Result{Outcome: OutcomeIdle}
	}
	v.nextPoll = now.Add(v.cfg.PollInterval)

	r, ok := v.read()
	if !v.base.Ready() {
		if ok {
			v.base.Add(now, r)
		} else {
			v.base.Tick(now)
		}
		if v.base.Ready() {
			log.Printf("[COLOR] Baseline ready: samples=%d clear=%.3f", v.base.Samples(), v.base.Mean().C)
		}
		return Result{Outcome: OutcomeCalibrating}
	}

	if !ok {
		v.candidate = nil
		return Result{Outcome: OutcomeNoReading}
	}

	ev := Evaluate(v.base.Mean(), r, v.cfg.Thresholds)
	if ev.Verdict != VerdictAccepted {
		v.candidate = nil
		return Result{Outcome: OutcomeWeak, Eval: ev}
	}

	if v.cfg.Mode == ModeConfirm {
		v.candidate = &ev
		return Result{Outcome: OutcomeCandidate, Eval: ev}
	}

	if now.Before(v.cooldownUntil) {
		return Result{Outcome: OutcomeCooldown, Eval: ev}
	}
	return v.compare(now, ev)
}

// Confirm делает свежий отсчет и сравнивает его с целевым цветом
func (v *Validator) Confirm(now time.Time) Result {
	if !v.BaselineReady() {
		return Result{Outcome: OutcomeCalibrating}
	}

	r, ok := v.read()
	if !ok {
		return Result{Outcome: OutcomeNoReading}
	}

	ev := Evaluate(v.base.Mean(), r, v.cfg.Thresholds)
	if ev.Verdict != VerdictAccepted {
		return Result{Outcome: OutcomeWeak, Eval: ev}
	}
	return v.compare(now, ev)
}

func (v *Validator) compare(now time.Time, ev Evaluation) Result {
	v.candidate = nil
	if ev.Color == v.target {
		log.Printf("[COLOR] Band matched: %s", ev.Color)
		return Result{Outcome: OutcomeMatch, Eval: ev}
	}
	v.cooldownUntil = now.Add(v.cfg.MismatchCooldown)
	log.Printf("[COLOR] Band mismatch: read=%s want=%s", ev.Color, v.target)
	return Result{Outcome: OutcomeMismatch, Eval: ev}
}

func (v *Validator) read() (Reading, bool) {
	r, err := v.sensor.Read()
	if err != nil {
		if !errors.Is(err, ErrNoReading) {
			log.Printf("[WARN] Color sensor read failed: %v", err)
		}
		return Reading{}, false
	}
	return r, true
}
