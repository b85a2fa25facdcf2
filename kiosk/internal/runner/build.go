package runner

import (
	"fmt"

	"github.com/Krimson/triage-kiosk/kiosk/internal/color"
	"github.com/Krimson/triage-kiosk/kiosk/internal/config"
	"github.com/Krimson/triage-kiosk/kiosk/internal/display"
	"github.com/Krimson/triage-kiosk/kiosk/internal/heartrate"
	"github.com/Krimson/triage-kiosk/kiosk/internal/input"
	"github.com/Krimson/triage-kiosk/kiosk/internal/session"
	"github.com/Krimson/triage-kiosk/kiosk/internal/stats"
	"github.com/Krimson/triage-kiosk/kiosk/internal/survey"
)

// Sensors - физические или эмулированные датчики киоска
type Sensors struct {
	HeartRate heartrate.Sensor
	Color     color.Sensor
}

// Kiosk - собранные компоненты киоска
type Kiosk struct {
	Latch     *input.Latch
	Mirror    *display.Mirror
	Stats     *stats.Aggregator
	Survey    *survey.Bridge
	HeartRate *heartrate.Acquisition
	Color     *color.Validator
	Machine   *session.Machine
}

// Build собирает автомат сессии и его зависимости из конфигурации
func Build(cfg *config.Config, sensors Sensors, observer session.Observer, sinks ...display.Sink) (*Kiosk, error) {
	acq, err := heartrate.New(sensors.HeartRate, heartrate.Config{
		PresenceThreshold: cfg.PresenceThreshold,
		DetectBurst:       cfg.DetectBurst,
		HoldBurst:         cfg.HoldBurst,
		Settle:            config.Ms(cfg.SettleMS),
		Step:              config.Ms(cfg.BeatStepMS),
		TargetBeats:       cfg.TargetBeats,
		MinBPM:            cfg.MinBPM,
		MaxBPM:            cfg.MaxBPM,
		Seed:              cfg.Seed,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create heart-rate acquisition: %w", err)
	}

	vmode, err := color.ParseMode(cfg.ValidationMode)
	if err != nil {
		return nil, fmt.Errorf("failed to parse validation mode: %w", err)
	}
	validator := color.NewValidator(sensors.Color, color.Config{
		Mode: vmode,
		Thresholds: color.Thresholds{
			MinClear:      cfg.ColorMinClear,
			MinChroma:     cfg.ColorMinChroma,
			MinDeltaClear: cfg.ColorMinDeltaClear,
		},
		PollInterval:       config.Ms(cfg.ColorPollMS),
		BaselineWindow:     config.Ms(cfg.BaselineWindowMS),
		BaselineMinSamples: cfg.BaselineMinSamples,
		MismatchCooldown:   config.Ms(cfg.MismatchCooldownMS),
	})

	k := &Kiosk{
		Latch:     input.NewLatch(),
		Mirror:    display.NewMirror(sinks...),
		Stats:     stats.NewAggregator(cfg.BPMCapacity),
		Survey:    survey.NewBridge(),
		HeartRate: acq,
		Color:     validator,
	}

	k.Machine, err = session.NewMachine(session.ConfigFrom(cfg), session.Deps{
		HeartRate: k.HeartRate,
		Color:     k.Color,
		Stats:     k.Stats,
		Display:   k.Mirror,
		Survey:    k.Survey,
		Observer:  observer,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session machine: %w", err)
	}
	return k, nil
}
