// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Loading layers a YAML file and environment variables over the defaults.
// - External errors are wrapped with this package's sentinel kinds.
package config

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log output: text, json or pretty.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8501".
	Addr string `koanf:"addr"`

	// PredictURL is the prediction endpoint receiving the customer record.
	PredictURL string `koanf:"predict_url"`

	// PredictTimeoutMS bounds the single prediction call.
	PredictTimeoutMS int `koanf:"predict_timeout_ms"`

	// HighRiskThreshold is the probability above which a customer is shown as at risk.
	HighRiskThreshold float64 `koanf:"high_risk_threshold"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":8501",
		PredictURL:        "http://localhost:8000/predict",
		PredictTimeoutMS:  5000,
		HighRiskThreshold: 0.5,
	}
}

// PredictTimeout returns PredictTimeoutMS as a duration.
func (c *Config) PredictTimeout() time.Duration {
	return time.Duration(c.PredictTimeoutMS) * time.Millisecond
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if err := validateURL(c.PredictURL); err != nil {
		return fmt.Errorf("%w: predict_url %w", ErrInvalidConfig, err)
	}
	if c.PredictTimeoutMS <= 0 {
		return fmt.Errorf("%w: predict_timeout_ms must be positive", ErrInvalidConfig)
	}
	if math.IsNaN(c.HighRiskThreshold) || c.HighRiskThreshold <= 0 || c.HighRiskThreshold >= 1 {
		return fmt.Errorf("%w: high_risk_threshold must be between 0 and 1 (exclusive)", ErrInvalidConfig)
	}
	return nil
}

func validateURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return errors.New("must not be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("is not a URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("must use http or https")
	}
	if u.Host == "" {
		return errors.New("must include a host")
	}
	return nil
}
