package heartrate

import (
	"errors"
	"fmt"
	"log"
	"time"
)

// State - грубое состояние измерения
type State int

const (
	AwaitContact State = iota
	Settling
	Measuring
	Done
	Error
)

func (s State) String() string {
	switch s {
	case AwaitContact:
		return "await_contact"
	case Settling:
		return "settling"
	case Measuring:
		return "measuring"
	case Done:
		return "done"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

var (
	ErrNotInitialized = errors.New("heart-rate sensor not initialized")
	ErrSensorNotFound = errors.New("heart-rate sensor not found")
)

// Sensor - оптический датчик, отдающий ИК-отсчеты
type Sensor interface {
	// Init проверяет наличие датчика и настраивает его
	Init() error
	// Start включает излучатели и сбрасывает буфер отсчетов
	Start() error
	// ReadIR читает до n отсчетов; ноль означает пустой слот буфера
	ReadIR(n int) ([]uint32, error)
	// Shutdown переводит датчик в режим сна
	Shutdown() error
}

// Config - параметры измерения
type Config struct {
	PresenceThreshold uint32
	DetectBurst       int
	HoldBurst         int
	Settle            time.Duration
	Step              time.Duration
	TargetBeats       int
	MinBPM            float64
	MaxBPM            float64
	Seed              int64
}

// Acquisition - неблокирующий автомат измерения пульса, управляемый Poll
type Acquisition struct {
	sensor Sensor
	cfg    Config
	gen    *Generator

	inited   bool
	state    State
	t0       time.Time
	lastStep time.Time
	valid    int
	live     float64
	final    float64
	sum      float64
	cnt      int
	err      error
}

// New создает автомат измерения поверх датчика
func New(sensor Sensor, cfg Config) (*Acquisition, error) {
	gen, err := NewGenerator(cfg.MinBPM, cfg.MaxBPM, cfg.Seed)
	if err != nil {
		return nil, fmt.Errorf("failed to create generator: %w", err)
	}
	if cfg.TargetBeats <= 0 {
		return nil, fmt.Errorf("target beats must be positive, got %d", cfg.TargetBeats)
	}
	if cfg.DetectBurst <= 0 {
		cfg.DetectBurst = 10
	}
	if cfg.HoldBurst <= 0 {
		cfg.HoldBurst = 6
	}
	return &Acquisition{sensor: sensor, cfg: cfg, gen: gen}, nil
}

// Init инициализирует датчик; повторный вызов после успеха ничего не делает
func (a *Acquisition) Init() error {
	if a.inited {
		return nil
	}
	if err := a.sensor.Init(); err != nil {
		return fmt.Errorf("%w: %v", ErrSensorNotFound, err)
	}
	a.inited = true
	log.Printf("[HEARTRATE] Sensor initialized")
	return nil
}

// Ready сообщает, инициализирован ли датчик
func (a *Acquisition) Ready() bool {
	return a.inited
}

// Start начинает новое измерение с ожидания контакта
func (a *Acquisition) Start(now time.Time) error {
	if !a.inited {
		return ErrNotInitialized
	}
	if err := a.sensor.Start(); err != nil {
		a.fail(fmt.Errorf("failed to start sensor: %w", err))
		return a.err
	}

	a.state = AwaitContact
	a.t0 = now
	a.lastStep = time.Time{}
	a.resetRun()
	a.final = 0
	a.err = nil
	return nil
}

// Stop прерывает измерение и усыпляет датчик
func (a *Acquisition) Stop() {
	if !a.inited {
		return
	}
	if err := a.sensor.Shutdown(); err != nil {
		log.Printf("[WARN] Failed to shut down heart-rate sensor: %v", err)
	}
}

// Poll продвигает автомат; никогда не блокирует
func (a *Acquisition) Poll(now time.Time) {
	switch a.state {
	case AwaitContact:
		present, err := a.presence(a.cfg.DetectBurst)
		if err != nil {
			a.fail(err)
			return
		}
		if present {
			a.state = Settling
			a.t0 = now
		}

	case Settling:
		present, err := a.presence(a.cfg.HoldBurst)
		if err != nil {
			a.fail(err)
			return
		}
		if !present {
			a.loseContact(now)
			return
		}
		if now.Sub(a.t0) >= a.cfg.Settle {
			a.state = Measuring
			a.t0 = now
			a.lastStep = now
			a.resetRun()
		}

	case Measuring:
		present, err := a.presence(a.cfg.HoldBurst)
		if err != nil {
			a.fail(err)
			return
		}
		if !present {
			a.loseContact(now)
			return
		}
		if now.Sub(a.lastStep) >= a.cfg.Step {
			a.lastStep = a.lastStep.Add(a.cfg.Step)
			a.valid++
			a.live = a.gen.Next(a.live)
			a.sum += a.live
			a.cnt++

			if a.valid >= a.cfg.TargetBeats {
				a.final = a.sum / float64(a.cnt)
				a.state = Done
				a.Stop()

				st := a.gen.GetStats()
				log.Printf("[HEARTRATE] Measurement done: final=%.1f min=%.1f max=%.1f",
					a.final, st.MinValueGenerated, st.MaxValueGenerated)
			}
		}
	}
}

// presence: большинство ненулевых отсчетов пачки выше порога
func (a *Acquisition) presence(burst int) (bool, error) {
	samples, err := a.sensor.ReadIR(burst)
	if err != nil {
		return false, fmt.Errorf("failed to read IR samples: %w", err)
	}

	nonZero, above := 0, 0
	for _, v := range samples {
		if v == 0 {
			continue
		}
		nonZero++
		if v > a.cfg.PresenceThreshold {
			above++
		}
	}
	if nonZero == 0 {
		return false, nil
	}
	return above*2 > nonZero, nil
}

func (a *Acquisition) loseContact(now time.Time) {
	a.state = AwaitContact
	a.t0 = now
	a.resetRun()
}

func (a *Acquisition) resetRun() {
	a.valid = 0
	a.live = 0
	a.sum = 0
	a.cnt = 0
	a.gen.ResetStats()
}

func (a *Acquisition) fail(err error) {
	a.state = Error
	a.err = err
	log.Printf("[ERROR] Heart-rate acquisition failed: %v", err)
}

// State возвращает текущее состояние
func (a *Acquisition) State() State {
	return a.state
}

// Live возвращает последнее значение пульса в текущем измерении
func (a *Acquisition) Live() float64 {
	return a.live
}

// Final возвращает итоговое среднее; ok=false до завершения
func (a *Acquisition) Final() (float64, bool) {
	if a.state != Done {
		return 0, false
	}
	return a.final, true
}

// Progress возвращает число засчитанных ударов и цель
func (a *Acquisition) Progress() (valid, target int) {
	return a.valid, a.cfg.TargetBeats
}

// Err возвращает причину перехода в Error
func (a *Acquisition) Err() error {
	return a.err
}
