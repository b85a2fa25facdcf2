package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Config содержит все настройки киоска
type Config struct {
	// Network settings
	HTTPPort    string `toml:"http_port"`
	GRPCPort    string `toml:"grpc_port"`
	OpsPort     string `toml:"ops_port"`
	MetricsPath string `toml:"metrics_path"`
	MaxChunk    int    `toml:"max_chunk"`
	SendWindow  int    `toml:"send_window"`

	// Triage settings
	TriageMode     string `toml:"triage_mode"`
	ValidationMode string `toml:"validation_mode"`

	// Session timing (ms)
	TickMS              int64 `toml:"tick_ms"`
	TriageResultDwellMS int64 `toml:"triage_result_dwell_ms"`
	ColorIntroMS        int64 `toml:"color_intro_ms"`
	HeartRateShowMS     int64 `toml:"heart_rate_show_ms"`
	CancelNoticeMS      int64 `toml:"cancel_notice_ms"`
	SensorMissingMS     int64 `toml:"sensor_missing_ms"`
	SensorErrorMS       int64 `toml:"sensor_error_ms"`
	ColorSkipMS         int64 `toml:"color_skip_ms"`
	MismatchMS          int64 `toml:"mismatch_ms"`
	WeakReadingMS       int64 `toml:"weak_reading_ms"`
	MatchMS             int64 `toml:"match_ms"`
	CommitNoticeMS      int64 `toml:"commit_notice_ms"`
	ReportRefreshMS     int64 `toml:"report_refresh_ms"`
	LiveRefreshMS       int64 `toml:"live_refresh_ms"`
	SensorInitAttempts  int   `toml:"sensor_init_attempts"`
	SensorInitBackoffMS int64 `toml:"sensor_init_backoff_ms"`
	MismatchCooldownMS  int64 `toml:"mismatch_cooldown_ms"`
	ColorPollMS         int64 `toml:"color_poll_ms"`
	BaselineWindowMS    int64 `toml:"baseline_window_ms"`
	BaselineMinSamples  int   `toml:"baseline_min_samples"`

	// Color thresholds
	ColorMinClear      float64 `toml:"color_min_clear"`
	ColorMinChroma     float64 `toml:"color_min_chroma"`
	ColorMinDeltaClear float64 `toml:"color_min_delta_clear"`

	// Heart-rate acquisition
	PresenceThreshold uint32  `toml:"presence_threshold"`
	DetectBurst       int     `toml:"detect_burst"`
	HoldBurst         int     `toml:"hold_burst"`
	SettleMS          int64   `toml:"settle_ms"`
	BeatStepMS        int64   `toml:"beat_step_ms"`
	TargetBeats       int     `toml:"target_beats"`
	MinBPM            float64 `toml:"min_bpm"`
	MaxBPM            float64 `toml:"max_bpm"`
	Seed              int64   `toml:"seed"`

	// Statistics
	BPMCapacity int `toml:"bpm_capacity"`

	// Batch settings
	BatchMaxRecords int   `toml:"batch_max_records"`
	FlushIntervalMS int64 `toml:"flush_interval_ms"`

	// Redis settings
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	RedisChannel  string `toml:"redis_channel"`

	// Simulation
	SimHeartRateMissing bool `toml:"sim_heart_rate_missing"`
	SimColorMissing     bool `toml:"sim_color_missing"`
}

// Default возвращает конфигурацию со значениями по умолчанию
func Default() *Config {
	return &Config{
		HTTPPort:    "8080",
		GRPCPort:    "50051",
		OpsPort:     "9091",
		MetricsPath: "/metrics",
		MaxChunk:    1200,
		SendWindow:  2920,

		TriageMode:     "ordinal",
		ValidationMode: "confirm",

		TickMS:              10,
		TriageResultDwellMS: 3000,
		ColorIntroMS:        5000,
		HeartRateShowMS:     1500,
		CancelNoticeMS:      700,
		SensorMissingMS:     1200,
		SensorErrorMS:       1500,
		ColorSkipMS:         900,
		MismatchMS:          1000,
		WeakReadingMS:       700,
		MatchMS:             900,
		CommitNoticeMS:      900,
		ReportRefreshMS:     1000,
		LiveRefreshMS:       200,
		SensorInitAttempts:  3,
		SensorInitBackoffMS: 200,
		MismatchCooldownMS:  1000,
		ColorPollMS:         200,
		BaselineWindowMS:    800,
		BaselineMinSamples:  3,

		ColorMinClear:      0.06,
		ColorMinChroma:     0.14,
		ColorMinDeltaClear: 0.25,

		PresenceThreshold: 20000,
		DetectBurst:       10,
		HoldBurst:         6,
		SettleMS:          2500,
		BeatStepMS:        2000,
		TargetBeats:       8,
		MinBPM:            87,
		MaxBPM:            92,
		Seed:              0x1234ABCD,

		BPMCapacity: 64,

		BatchMaxRecords: 8,
		FlushIntervalMS: 5000,

		RedisAddr:    "",
		RedisDB:      0,
		RedisChannel: "kiosk:sessions",
	}
}

// Load загружает конфигурацию: значения по умолчанию, затем TOML-файл
// (если путь не пустой), затем переменные окружения
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("KIOSK_CONFIG")
	}
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.HTTPPort = getEnvString("HTTP_PORT", c.HTTPPort)
	c.GRPCPort = getEnvString("GRPC_PORT", c.GRPCPort)
	c.OpsPort = getEnvString("OPS_PORT", c.OpsPort)
	c.MetricsPath = getEnvString("METRICS_PATH", c.MetricsPath)
	c.MaxChunk = getEnvInt("MAX_CHUNK", c.MaxChunk)
	c.SendWindow = getEnvInt("SEND_WINDOW", c.SendWindow)

	c.TriageMode = getEnvString("TRIAGE_MODE", c.TriageMode)
	c.ValidationMode = getEnvString("VALIDATION_MODE", c.ValidationMode)

	c.TickMS = getEnvInt64("TICK_MS", c.TickMS)
	c.TriageResultDwellMS = getEnvInt64("TRIAGE_RESULT_DWELL_MS", c.TriageResultDwellMS)
	c.ColorIntroMS = getEnvInt64("COLOR_INTRO_MS", c.ColorIntroMS)
	c.ReportRefreshMS = getEnvInt64("REPORT_REFRESH_MS", c.ReportRefreshMS)
	c.SensorInitAttempts = getEnvInt("SENSOR_INIT_ATTEMPTS", c.SensorInitAttempts)
	c.MismatchCooldownMS = getEnvInt64("MISMATCH_COOLDOWN_MS", c.MismatchCooldownMS)

	c.SettleMS = getEnvInt64("SETTLE_MS", c.SettleMS)
	c.BeatStepMS = getEnvInt64("BEAT_STEP_MS", c.BeatStepMS)
	c.TargetBeats = getEnvInt("TARGET_BEATS", c.TargetBeats)
	c.Seed = getEnvInt64("SEED", c.Seed)

	c.BPMCapacity = getEnvInt("BPM_CAPACITY", c.BPMCapacity)

	c.BatchMaxRecords = getEnvInt("BATCH_MAX_RECORDS", c.BatchMaxRecords)
	c.FlushIntervalMS = getEnvInt64("FLUSH_INTERVAL_MS", c.FlushIntervalMS)

	c.RedisAddr = getEnvString("REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = getEnvString("REDIS_PASSWORD", c.RedisPassword)
	c.RedisDB = getEnvInt("REDIS_DB", c.RedisDB)
	c.RedisChannel = getEnvString("REDIS_CHANNEL", c.RedisChannel)

	c.SimHeartRateMissing = getEnvBool("SIM_HR_MISSING", c.SimHeartRateMissing)
	c.SimColorMissing = getEnvBool("SIM_COLOR_MISSING", c.SimColorMissing)
}

// Validate проверяет согласованность настроек
func (c *Config) Validate() error {
	switch c.TriageMode {
	case "ordinal", "survey":
	default:
		return fmt.Errorf("invalid triage mode %q: want ordinal or survey", c.TriageMode)
	}
	switch c.ValidationMode {
	case "confirm", "auto":
	default:
		return fmt.Errorf("invalid validation mode %q: want confirm or auto", c.ValidationMode)
	}
	if c.MinBPM <= 0 || c.MaxBPM < c.MinBPM {
		return fmt.Errorf("invalid heart-rate band [%.1f, %.1f]", c.MinBPM, c.MaxBPM)
	}
	if c.TargetBeats <= 0 {
		return fmt.Errorf("target beats must be positive, got %d", c.TargetBeats)
	}
	if c.BPMCapacity <= 0 {
		return fmt.Errorf("bpm capacity must be positive, got %d", c.BPMCapacity)
	}
	if c.MaxChunk <= 0 || c.SendWindow <= 0 {
		return fmt.Errorf("max chunk and send window must be positive")
	}
	if c.TickMS <= 0 {
		return fmt.Errorf("tick must be positive, got %d", c.TickMS)
	}
	return nil
}

// Ms переводит миллисекунды из конфигурации в time.Duration
func Ms(v int64) time.Duration {
	return time.Duration(v) * time.Millisecond
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
