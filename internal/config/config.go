// Package config is the top-level configuration struct for mmcore,
// unmarshalled by LoadConfig the way the teacher's internal/config loads
// its own Config: viper, mapstructure tags, sentinel validation errors.
package config

import (
	"errors"

	"gopkg.in/yaml.v3"

	"github.com/mm-tools/mmcore/internal/db"
)

// Config mirrors db.Options field-for-field, plus the source root and
// overlay-adjacent settings a CLI invocation needs but Database itself does
// not own.
type Config struct {
	Root            string `mapstructure:"root" yaml:"root"`
	Autosplit       bool   `mapstructure:"autosplit" yaml:"autosplit"`
	Timing          bool   `mapstructure:"timing" yaml:"timing"`
	TraceRecalc     bool   `mapstructure:"trace_recalc" yaml:"trace_recalc"`
	Outline         bool   `mapstructure:"outline" yaml:"outline"`
	Incremental     bool   `mapstructure:"incremental" yaml:"incremental"`
	Jobs            int    `mapstructure:"jobs" yaml:"jobs"`
	ParseStatements bool   `mapstructure:"parse_statements" yaml:"parse_statements"`

	Observability ObservabilityConfig `mapstructure:"observability" yaml:"observability"`
}

// ObservabilityConfig configures the otel/Prometheus/slog stack mmcore
// carries ambiently regardless of which analysis features are in scope,
// mirroring the shape of the teacher's internal/observability.Config.
type ObservabilityConfig struct {
	ServiceName  string `mapstructure:"service_name" yaml:"service_name"`
	LogLevel     string `mapstructure:"log_level" yaml:"log_level"`
	LogJSON      bool   `mapstructure:"log_json" yaml:"log_json"`
	MetricsAddr  string `mapstructure:"metrics_addr" yaml:"metrics_addr"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint" yaml:"otlp_endpoint"`
	OTLPInsecure bool   `mapstructure:"otlp_insecure" yaml:"otlp_insecure"`
}

// Sentinel validation errors, in the teacher's ErrInvalidX naming style.
var (
	// ErrInvalidJobs indicates the jobs value is negative.
	ErrInvalidJobs = errors.New("jobs must be non-negative")
	// ErrMissingRoot indicates no source root was supplied.
	ErrMissingRoot = errors.New("root must be set")
)

// Validate checks Config invariants and returns the first error found.
func (c *Config) Validate() error {
	if c.Root == "" {
		return ErrMissingRoot
	}

	if c.Jobs < 0 {
		return ErrInvalidJobs
	}

	return nil
}

// DbOptions projects Config onto the db.Options subset Database actually
// consumes.
func (c *Config) DbOptions() db.Options {
	return db.Options{
		Autosplit:       c.Autosplit,
		Timing:          c.Timing,
		TraceRecalc:     c.TraceRecalc,
		Outline:         c.Outline,
		Incremental:     c.Incremental,
		Jobs:            c.Jobs,
		ParseStatements: c.ParseStatements,
	}
}

// Dump renders c as YAML, in the same field order LoadConfig unmarshals it
// from, for the `mmcore config` subcommand's output.
func (c *Config) Dump() ([]byte, error) {
	return yaml.Marshal(c)
}
