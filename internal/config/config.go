package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidConfig is returned when a configuration value is out of range.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config is the main configuration structure for confrag.
type Config struct {
	Version  int            `yaml:"version"`
	Logging  LoggingConfig  `yaml:"logging"`
	Tracing  TracingConfig  `yaml:"tracing"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Store    StoreConfig    `yaml:"store"`
	Grading  GradingConfig  `yaml:"grading"`
	Watch    WatchConfig    `yaml:"watch"`
	Schedule ScheduleConfig `yaml:"schedule"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json | text | auto
}

// TracingConfig controls OpenTelemetry tracing.
type TracingConfig struct {
	Enabled        bool              `yaml:"enabled"`
	Endpoint       string            `yaml:"endpoint"`
	ServiceName    string            `yaml:"service_name"`
	ServiceVersion string            `yaml:"service_version"`
	Environment    string            `yaml:"environment"`
	SamplingRate   float64           `yaml:"sampling_rate"`
	Insecure       bool              `yaml:"insecure"`
	Attributes     map[string]string `yaml:"attributes"`
}

// MetricsConfig controls the Prometheus endpoint served by long-running commands.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
	Path string `yaml:"path"`
}

// StoreConfig selects where evaluation reports are persisted.
type StoreConfig struct {
	// Driver is one of memory, sqlite, sqlite3, postgres or pgx.
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// GradingConfig tunes the scoring engine and batch evaluation.
type GradingConfig struct {
	// MemoCapacity bounds the matcher's per-call memo table.
	MemoCapacity int  `yaml:"memo_capacity"`
	Concurrency  int  `yaml:"concurrency"`
	StopOnError  bool `yaml:"stop_on_error"`
	// ValidateSchema checks record files against the bundled JSON schemas.
	ValidateSchema *bool `yaml:"validate_schema"`
}

type WatchConfig struct {
	Inbox    string `yaml:"inbox"`
	TruthDir string `yaml:"truth_dir"`
	// Pattern selects record files in the inbox by base name.
	Pattern  string        `yaml:"pattern"`
	Debounce time.Duration `yaml:"debounce"`
}

type ScheduleConfig struct {
	Cron    string `yaml:"cron"`
	TestSet string `yaml:"test_set"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "auto"
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = "confrag"
	}
	if cfg.Tracing.SamplingRate == 0 {
		cfg.Tracing.SamplingRate = 1.0
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = "memory"
	}
	if cfg.Grading.Concurrency <= 0 {
		cfg.Grading.Concurrency = 1
	}
	if cfg.Grading.ValidateSchema == nil {
		enabled := true
		cfg.Grading.ValidateSchema = &enabled
	}
	if cfg.Watch.Debounce <= 0 {
		cfg.Watch.Debounce = 250 * time.Millisecond
	}
}

// Validate reports the first invalid value.
func (c *Config) Validate() error {
	if err := ValidateVersion(c.Version); err != nil {
		return err
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: logging.level %q", ErrInvalidConfig, c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "text", "auto":
	default:
		return fmt.Errorf("%w: logging.format %q", ErrInvalidConfig, c.Logging.Format)
	}
	if c.Tracing.SamplingRate < 0 || c.Tracing.SamplingRate > 1 {
		return fmt.Errorf("%w: tracing.sampling_rate must be within [0,1]", ErrInvalidConfig)
	}
	if c.Tracing.Enabled && strings.TrimSpace(c.Tracing.Endpoint) == "" {
		return fmt.Errorf("%w: tracing.endpoint is required when tracing is enabled", ErrInvalidConfig)
	}
	switch c.Store.Driver {
	case "memory":
	case "sqlite", "sqlite3", "postgres", "pgx":
		if strings.TrimSpace(c.Store.DSN) == "" {
			return fmt.Errorf("%w: store.dsn is required for driver %s", ErrInvalidConfig, c.Store.Driver)
		}
	default:
		return fmt.Errorf("%w: unknown store.driver %q", ErrInvalidConfig, c.Store.Driver)
	}
	if c.Grading.MemoCapacity < 0 {
		return fmt.Errorf("%w: grading.memo_capacity must not be negative", ErrInvalidConfig)
	}
	return nil
}

// SchemaValidation reports whether record files are checked against schemas.
func (c *Config) SchemaValidation() bool {
	return c.Grading.ValidateSchema == nil || *c.Grading.ValidateSchema
}
