// Package config loads and validates the operational configuration for the
// twin engine and its tools. Configuration is YAML; every field has a default
// so an empty file (or no file at all) yields a working setup.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ML-dev-crypto/village-digital-twin/pkg/interpret"
	"github.com/ML-dev-crypto/village-digital-twin/pkg/validation"
)

// Predictor kinds selectable in configuration.
const (
	// KindCascade runs the in-process deterministic cascade model.
	KindCascade = "cascade"

	// KindRemote calls a predictor service over the wire.
	KindRemote = "remote"
)

// Duration wraps time.Duration so YAML values like "30s" parse.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the root configuration document.
type Config struct {
	Engine    EngineConfig    `yaml:"engine"`
	Predictor PredictorConfig `yaml:"predictor"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// EngineConfig tunes simulation runs.
type EngineConfig struct {
	Workers            int      `yaml:"workers"`              // parallel predictor calls during attribution
	Timeout            Duration `yaml:"timeout"`              // per-run deadline
	Pessimistic        bool     `yaml:"pessimistic"`          // amplify adverse deltas by default
	DefaultFailureMode string   `yaml:"default_failure_mode"` // used when a request carries no mode
}

// PredictorConfig selects and tunes the impact model.
type PredictorConfig struct {
	Kind    string   `yaml:"kind"`
	Address string   `yaml:"address"` // remote transport URL, e.g. tcp://host:5555
	Timeout Duration `yaml:"timeout"` // per-call deadline for remote predictors
	Retries int      `yaml:"retries"` // remote retry budget per call

	// Cascade model tuning. Zero attenuation means the model default.
	Attenuation float64 `yaml:"attenuation"`
	Rounds      int     `yaml:"rounds"`
}

// LoggingConfig tunes structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the configuration used when nothing is specified.
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			Workers: 8,
			Timeout: Duration(30 * time.Second),
		},
		Predictor: PredictorConfig{
			Kind:        KindCascade,
			Timeout:     Duration(10 * time.Second),
			Retries:     2,
			Attenuation: 0.85,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// ApplyDefaults fills zero-valued fields from DefaultConfig.
func (c *Config) ApplyDefaults() {
	defaults := DefaultConfig()

	c.Engine.Workers = validation.DefaultOrInt(c.Engine.Workers, defaults.Engine.Workers)
	c.Engine.Timeout = Duration(validation.DefaultOrDuration(c.Engine.Timeout.Std(), defaults.Engine.Timeout.Std()))

	if c.Predictor.Kind == "" {
		c.Predictor.Kind = defaults.Predictor.Kind
	}
	c.Predictor.Timeout = Duration(validation.DefaultOrDuration(c.Predictor.Timeout.Std(), defaults.Predictor.Timeout.Std()))
	if c.Predictor.Attenuation == 0 {
		c.Predictor.Attenuation = defaults.Predictor.Attenuation
	}

	if c.Logging.Level == "" {
		c.Logging.Level = defaults.Logging.Level
	}
}

// Validate checks the configuration after defaults are applied.
func (c *Config) Validate() error {
	v := validation.NewConfigValidator("Config")

	v.RangeInt("Engine.Workers", c.Engine.Workers, 1, 256).
		MinDuration("Engine.Timeout", c.Engine.Timeout.Std(), time.Millisecond).
		Custom("Engine.DefaultFailureMode", func() error {
			_, err := interpret.ParseFailureMode(c.Engine.DefaultFailureMode)
			return err
		})

	v.OneOf("Predictor.Kind", c.Predictor.Kind, []string{KindCascade, KindRemote}).
		NonNegative("Predictor.Retries", c.Predictor.Retries).
		NonNegative("Predictor.Rounds", c.Predictor.Rounds).
		Custom("Predictor.Attenuation", func() error {
			if c.Predictor.Attenuation <= 0 || c.Predictor.Attenuation > 1 {
				return fmt.Errorf("attenuation %v outside (0, 1]", c.Predictor.Attenuation)
			}
			return nil
		})

	v.When(c.Predictor.Kind == KindRemote, func(cv *validation.ConfigValidator) {
		cv.Required("Predictor.Address", c.Predictor.Address).
			MinDuration("Predictor.Timeout", c.Predictor.Timeout.Std(), time.Millisecond)
	})

	v.OneOf("Logging.Level", strings.ToLower(c.Logging.Level), []string{"debug", "info", "warn", "error"})

	return v.Validate()
}

// DefaultMode returns the configured default failure mode. Validate has
// already rejected unknown tags, so parse failures fall back to none.
func (c *Config) DefaultMode() interpret.FailureMode {
	mode, err := interpret.ParseFailureMode(c.Engine.DefaultFailureMode)
	if err != nil {
		return interpret.ModeNone
	}
	return mode
}

// Load reads, defaults, and validates a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
