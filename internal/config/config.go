// Package config loads the application configuration: observability settings
// and analysis defaults shared by every codetally command.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Sumatoshi-tech/codetally/internal/observability"
	"github.com/Sumatoshi-tech/codetally/pkg/version"
)

// Config is the top-level application configuration.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	Observability Observability `mapstructure:"observability"`
	Analysis      Analysis      `mapstructure:"analysis"`
}

// Observability holds logging, tracing and metrics settings.
type Observability struct {
	ServiceName  string  `mapstructure:"service_name"`
	Environment  string  `mapstructure:"environment"`
	LogLevel     string  `mapstructure:"log_level"`
	LogJSON      bool    `mapstructure:"log_json"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	OTLPHeaders  string  `mapstructure:"otlp_headers"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

// Analysis holds defaults applied when the repo config leaves them unset.
type Analysis struct {
	Workers       int  `mapstructure:"workers"`
	FileLineLimit int  `mapstructure:"file_line_limit"`
	Churn         bool `mapstructure:"churn"`
}

// sampleRatioMax is the upper bound for the trace sampling ratio.
const sampleRatioMax = 1.0

// Sentinel errors for configuration validation.
var (
	// ErrInvalidWorkers indicates the workers value is negative.
	ErrInvalidWorkers = errors.New("analysis.workers must be non-negative")
	// ErrInvalidFileLineLimit indicates the file line limit is negative.
	ErrInvalidFileLineLimit = errors.New("analysis.file_line_limit must be non-negative")
	// ErrInvalidSampleRatio indicates the sampling ratio is out of range.
	ErrInvalidSampleRatio = errors.New("observability.sample_ratio must be between 0 and 1")
	// ErrInvalidLogLevel indicates an unrecognized log level name.
	ErrInvalidLogLevel = errors.New("observability.log_level must be one of debug, info, warn, error")
)

// Validate checks Config invariants and returns the first error found.
func (c *Config) Validate() error {
	if c.Analysis.Workers < 0 {
		return ErrInvalidWorkers
	}

	if c.Analysis.FileLineLimit < 0 {
		return ErrInvalidFileLineLimit
	}

	if c.Observability.SampleRatio < 0 || c.Observability.SampleRatio > sampleRatioMax {
		return ErrInvalidSampleRatio
	}

	_, err := ParseLogLevel(c.Observability.LogLevel)

	return err
}

// BuildObservability maps the application settings onto an observability
// Config for the given execution mode.
func (c *Config) BuildObservability(mode observability.AppMode) (observability.Config, error) {
	level, err := ParseLogLevel(c.Observability.LogLevel)
	if err != nil {
		return observability.Config{}, err
	}

	obsCfg := observability.DefaultConfig()
	obsCfg.Mode = mode
	obsCfg.ServiceVersion = version.Version
	obsCfg.LogLevel = level
	obsCfg.LogJSON = c.Observability.LogJSON
	obsCfg.OTLPEndpoint = c.Observability.OTLPEndpoint
	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(c.Observability.OTLPHeaders)
	obsCfg.OTLPInsecure = c.Observability.OTLPInsecure
	obsCfg.SampleRatio = c.Observability.SampleRatio

	if c.Observability.ServiceName != "" {
		obsCfg.ServiceName = c.Observability.ServiceName
	}

	if c.Observability.Environment != "" {
		obsCfg.Environment = c.Observability.Environment
	}

	return obsCfg, nil
}

// ParseLogLevel maps a level name to its slog severity. Empty means info.
func ParseLogLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLogLevel, name)
	}
}
