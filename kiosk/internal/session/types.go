package session

import (
	"time"

	"github.com/Krimson/triage-kiosk/kiosk/internal/config"
	"github.com/Krimson/triage-kiosk/kiosk/internal/display"
	"github.com/Krimson/triage-kiosk/kiosk/internal/stats"
	"github.com/Krimson/triage-kiosk/kiosk/internal/triage"
)

// State - состояние сессии; активно ровно одно
type State int

const (
	AwaitStart State = iota
	HeartRatePrep
	HeartRateRunning
	ShowHeartRateResult
	AwaitSurveyOrManualInput
	TriageResultShown
	ColorValidationIntro
	ColorValidationLoop
	Commit
	ReportView

	stateCount
)

func (s State) String() string {
	switch s {
	case AwaitStart:
		return "await_start"
	case HeartRatePrep:
		return "heart_rate_prep"
	case HeartRateRunning:
		return "heart_rate_running"
	case ShowHeartRateResult:
		return "show_heart_rate_result"
	case AwaitSurveyOrManualInput:
		return "await_survey_or_manual_input"
	case TriageResultShown:
		return "triage_result_shown"
	case ColorValidationIntro:
		return "color_validation_intro"
	case ColorValidationLoop:
		return "color_validation_loop"
	case Commit:
		return "commit"
	case ReportView:
		return "report_view"
	default:
		return "unknown"
	}
}

// States перечисляет все состояния
func States() []State {
	out := make([]State, 0, stateCount)
	for s := AwaitStart; s < stateCount; s++ {
		out = append(out, s)
	}
	return out
}

// SensorKind - датчик, о состоянии которого сообщает сессия
type SensorKind string

const (
	SensorHeartRate SensorKind = "heart_rate"
	SensorColor     SensorKind = "color"
)

// Причины прерывания сессии
const (
	ReasonCancelled         = "cancelled"
	ReasonHeartRateMissing  = "heart_rate_sensor_missing"
	ReasonHeartRateError    = "heart_rate_sensor_error"
	ReasonCommitFailed      = "commit_failed"
	ReasonHeartRateStartErr = "heart_rate_start_failed"
)

// CommitRecord - зафиксированный итог сессии
type CommitRecord struct {
	SessionID   string
	CommittedAt time.Time
	Entry       stats.Entry
}

// Output - результат одного такта
type Output struct {
	State   State
	Frame   display.Frame
	Redrawn bool
	Commit  *CommitRecord
}

// Observer получает события сессии (метрики, health, логи)
type Observer interface {
	StateEntered(s State)
	SessionStarted(id string)
	SessionCommitted(rec CommitRecord)
	SessionAborted(id, reason string)
	SensorStatus(sensor SensorKind, ok bool)
}

// NopObserver игнорирует события
type NopObserver struct{}

func (NopObserver) StateEntered(State) {}
func (NopObserver) SessionStarted(string) {}
func (NopObserver) SessionCommitted(CommitRecord) {}
func (NopObserver) SessionAborted(string, string) {}
func (NopObserver) SensorStatus(SensorKind, bool) {}

// Observers рассылает события нескольким наблюдателям
type Observers []Observer

func (o Observers) StateEntered(s State) {
	for _, ob := range o {
		ob.StateEntered(s)
	}
}

func (o Observers) SessionStarted(id string) {
	for _, ob := range o {
		ob.SessionStarted(id)
	}
}

func (o Observers) SessionCommitted(rec CommitRecord) {
	for _, ob := range o {
		ob.SessionCommitted(rec)
	}
}

func (o Observers) SessionAborted(id, reason string) {
	for _, ob := range o {
		ob.SessionAborted(id, reason)
	}
}

func (o Observers) SensorStatus(sensor SensorKind, ok bool) {
	for _, ob := range o {
		ob.SensorStatus(sensor, ok)
	}
}

// Config - тайминги и режимы сессии
type Config struct {
	TriageMode triage.Mode

	TriageResultDwell time.Duration
	ColorIntro        time.Duration
	HeartRateShow     time.Duration
	CancelNotice      time.Duration
	SensorMissing     time.Duration
	SensorError       time.Duration
	ColorSkip         time.Duration
	Mismatch          time.Duration
	WeakReading       time.Duration
	Match             time.Duration
	CommitNotice      time.Duration
	ReportRefresh     time.Duration
	LiveRefresh       time.Duration

	InitAttempts int
	InitBackoff  time.Duration
}

// ConfigFrom переносит настройки сессии из общей конфигурации
func ConfigFrom(c *config.Config) Config {
	return Config{
		TriageMode:        triage.Mode(c.TriageMode),
		TriageResultDwell: config.Ms(c.TriageResultDwellMS),
		ColorIntro:        config.Ms(c.ColorIntroMS),
		HeartRateShow:     config.Ms(c.HeartRateShowMS),
		CancelNotice:      config.Ms(c.CancelNoticeMS),
		SensorMissing:     config.Ms(c.SensorMissingMS),
		SensorError:       config.Ms(c.SensorErrorMS),
		ColorSkip:         config.Ms(c.ColorSkipMS),
		Mismatch:          config.Ms(c.MismatchMS),
		WeakReading:       config.Ms(c.WeakReadingMS),
		Match:             config.Ms(c.MatchMS),
		CommitNotice:      config.Ms(c.CommitNoticeMS),
		ReportRefresh:     config.Ms(c.ReportRefreshMS),
		LiveRefresh:       config.Ms(c.LiveRefreshMS),
		InitAttempts:      c.SensorInitAttempts,
		InitBackoff:       config.Ms(c.SensorInitBackoffMS),
	}
}
