// Package config loads dipsentry's TOML configuration with a
// defaults -> file(s) -> CLI-flag override layering, the same shape as
// the teacher's internal/common/config.go.
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Config is the root configuration object for the evaluation pipeline.
type Config struct {
	Environment string        `toml:"environment"` // "development" or "production"
	Logging     LoggingConfig `toml:"logging"`
	Storage     StorageConfig `toml:"storage"`
	Pipeline    PipelineConfig `toml:"pipeline"`
	NoiseControl NoiseControlConfig `toml:"noise_control"`
	Sectors     SectorsConfig `toml:"sectors"`
	Filter      FilterConfig  `toml:"filter"`
	Notify      NotifyConfig  `toml:"notify"`
}

// LoggingConfig configures the arbor logger, mirroring the teacher's shape.
type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // e.g. "15:04:05.000"
}

// StorageConfig groups the two persistence tiers: the fast KV tier (C12
// state cache) and the durable relational tier (C12 rule store).
type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
	SQLite SQLiteConfig `toml:"sqlite"`
}

// BadgerConfig configures the badgerhold-backed state KV (AlertState,
// budget counters, sector state records).
type BadgerConfig struct {
	Path           string `toml:"path"`
	ResetOnStartup bool   `toml:"reset_on_startup"`
}

// SQLiteConfig configures the durable rule store + suppression log.
type SQLiteConfig struct {
	Path            string `toml:"path"`
	ResetOnStartup  bool   `toml:"reset_on_startup"`
}

// PipelineConfig holds the scheduler cadence and evaluation-window knobs
// from spec.md §6.
type PipelineConfig struct {
	AlertCycleMinutes  int    `toml:"alert_cycle_minutes"`  // default 2
	SectorCycleMinutes int    `toml:"sector_cycle_minutes"` // default 15
	BarHistoryDays     int    `toml:"bar_history_days"`     // default 252; >=200 required for SMA200, >=365 for the full rolling-high window
	ExchangeTimezone   string `toml:"exchange_timezone"`    // IANA tz name, e.g. "Australia/Sydney"
	CandidateLimit     int    `toml:"candidate_limit"`      // default 12
}

// NoiseControlConfig holds C7 budget and quiet-hours knobs.
type NoiseControlConfig struct {
	DailyUserCap   int    `toml:"daily_user_cap"`   // default 5
	DailySymbolCap int    `toml:"daily_symbol_cap"` // default 2
	QuietStart     string `toml:"quiet_start"`      // "HH:MM", exchange-local
	QuietEnd       string `toml:"quiet_end"`        // "HH:MM", exchange-local, may wrap past midnight
}

// SectorsConfig holds C8 thresholds, all with spec.md §4.8 defaults.
type SectorsConfig struct {
	CooldownSeconds int `toml:"cooldown_seconds"` // default 1800
}

// FilterConfig holds C4 pre-filter knobs.
type FilterConfig struct {
	MinPrice float64 `toml:"min_price"` // default 50
	MinADTV  float64 `toml:"min_adtv"`  // default 1e6
}

// NotifyConfig selects which C10 providers are active.
type NotifyConfig struct {
	Console bool `toml:"console"`
	FCM     bool `toml:"fcm"`
}

// NewDefaultConfig returns the baked-in defaults, overridden by whatever
// config files and flags are layered on top.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout"},
			TimeFormat: "15:04:05.000",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{Path: "./data/dipsentry.badger"},
			SQLite: SQLiteConfig{Path: "./data/dipsentry.db"},
		},
		Pipeline: PipelineConfig{
			AlertCycleMinutes:  2,
			SectorCycleMinutes: 15,
			BarHistoryDays:     252,
			ExchangeTimezone:   "Australia/Sydney",
			CandidateLimit:     12,
		},
		NoiseControl: NoiseControlConfig{
			DailyUserCap:   5,
			DailySymbolCap: 2,
			QuietStart:     "21:00",
			QuietEnd:       "07:00",
		},
		Sectors: SectorsConfig{
			CooldownSeconds: 1800,
		},
		Filter: FilterConfig{
			MinPrice: 50,
			MinADTV:  1_000_000,
		},
		Notify: NotifyConfig{
			Console: true,
			FCM:     false,
		},
	}
}

// LoadFromFiles loads configuration starting from defaults and merging each
// TOML file in order; later files override earlier ones. An empty/missing
// path list is not an error - callers get the defaults.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	return config, nil
}

// ApplyFlagOverrides layers CLI-flag overrides, which always win over file
// and default configuration.
func ApplyFlagOverrides(config *Config, badgerPath, sqlitePath string, logLevel string) {
	if badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}
	if sqlitePath != "" {
		config.Storage.SQLite.Path = sqlitePath
	}
	if logLevel != "" {
		config.Logging.Level = logLevel
	}
}
