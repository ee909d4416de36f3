// Package config holds the runtime configuration of the scenecore binary.
//
// A configuration is built in three layers: Default(), then an optional YAML
// file decoded over it with unknown keys rejected, then SCENECORE_*
// environment variables. The result is checked by Validate.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Configuration validation errors.
var (
	ErrInvalidLogLevel    = errors.New("invalid log level")
	ErrInvalidLogFormat   = errors.New("invalid log format")
	ErrInvalidRate        = errors.New("invalid clock rate")
	ErrInvalidDuration    = errors.New("invalid clock duration")
	ErrInvalidMaxSteps    = errors.New("invalid max steps")
	ErrInvalidBusyTimeout = errors.New("invalid store busy timeout")
)

// LogLevel is a slog level name.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// IsValid reports whether l names a supported level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true
	}
	return false
}

// LogFormat selects the slog handler.
type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

// IsValid reports whether f names a supported handler.
func (f LogFormat) IsValid() bool {
	return f == LogFormatText || f == LogFormatJSON
}

// Config is the complete runtime configuration.
type Config struct {
	Engine EngineConfig `yaml:"engine" json:"engine"`
	Log    LogConfig    `yaml:"log" json:"log"`
	Store  StoreConfig  `yaml:"store" json:"store"`
	Clock  ClockConfig  `yaml:"clock" json:"clock"`
}

// EngineConfig configures event propagation.
type EngineConfig struct {
	// MaxSteps is the delivery quota per timestamp. Zero selects the engine
	// default; a negative value disables the quota.
	MaxSteps int `yaml:"max_steps" json:"max_steps"`

	// LoopBreaking lets each eventOut fire at most once per timestamp.
	LoopBreaking bool `yaml:"loop_breaking" json:"loop_breaking"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  LogLevel  `yaml:"level" json:"level"`
	Format LogFormat `yaml:"format" json:"format"`
}

// StoreConfig configures the trace database.
type StoreConfig struct {
	// Path of the SQLite file. Empty disables trace recording.
	Path        string        `yaml:"path" json:"path"`
	// BusyTimeout is how long to wait on a locked database. Zero uses
	// the store default.
	BusyTimeout time.Duration `yaml:"busy_timeout" json:"busy_timeout"`
}

// ClockConfig configures the driving clock of `scenecore run`.
type ClockConfig struct {
	// Rate is the number of ticks per second of scene time.
	Rate float64 `yaml:"rate" json:"rate"`

	// Duration is the scene time to run for. Zero runs until interrupted.
	Duration time.Duration `yaml:"duration" json:"duration"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			MaxSteps: 1000,
		},
		Log: LogConfig{
			Level:  LogLevelInfo,
			Format: LogFormatText,
		},
		Clock: ClockConfig{
			Rate: 60,
		},
	}
}

// Validate checks the configuration for values the runtime cannot use.
func (c *Config) Validate() error {
	if !c.Log.Level.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Log.Level)
	}
	if !c.Log.Format.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.Log.Format)
	}
	if c.Clock.Rate <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidRate, c.Clock.Rate)
	}
	if c.Clock.Duration < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidDuration, c.Clock.Duration)
	}
	if c.Store.BusyTimeout < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidBusyTimeout, c.Store.BusyTimeout)
	}
	if c.Engine.MaxSteps == 0 {
		return fmt.Errorf("%w: 0 (use a negative value to disable the quota)", ErrInvalidMaxSteps)
	}
	return nil
}

// TickInterval returns the scene time between two ticks.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(float64(time.Second) / c.Clock.Rate)
}
