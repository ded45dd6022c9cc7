package ocr

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds OCR service connection and circuit breaker parameters.
type Config struct {
	BaseURL          string `toml:"base_url"`
	CallbackURL      string `toml:"callback_url"`
	RequestTimeout   string `toml:"request_timeout"`
	FailureThreshold int    `toml:"failure_threshold"`
	ResetTimeout     string `toml:"reset_timeout"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	BaseURL          string
	CallbackURL      string
	RequestTimeout   string
	FailureThreshold string
	ResetTimeout     string
}

// RequestTimeoutDuration returns RequestTimeout as a time.Duration.
func (c *Config) RequestTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.RequestTimeout)
	return d
}

// ResetTimeoutDuration returns ResetTimeout as a time.Duration.
func (c *Config) ResetTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ResetTimeout)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.BaseURL != "" {
		c.BaseURL = overlay.BaseURL
	}
	if overlay.CallbackURL != "" {
		c.CallbackURL = overlay.CallbackURL
	}
	if overlay.RequestTimeout != "" {
		c.RequestTimeout = overlay.RequestTimeout
	}
	if overlay.FailureThreshold != 0 {
		c.FailureThreshold = overlay.FailureThreshold
	}
	if overlay.ResetTimeout != "" {
		c.ResetTimeout = overlay.ResetTimeout
	}
}

func (c *Config) loadDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "http://localhost:8081"
	}
	if c.RequestTimeout == "" {
		c.RequestTimeout = "30s"
	}
	if c.FailureThreshold == 0 {
		c.FailureThreshold = 5
	}
	if c.ResetTimeout == "" {
		c.ResetTimeout = "1m"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.BaseURL != "" {
		if v := os.Getenv(env.BaseURL); v != "" {
			c.BaseURL = v
		}
	}
	if env.CallbackURL != "" {
		if v := os.Getenv(env.CallbackURL); v != "" {
			c.CallbackURL = v
		}
	}
	if env.RequestTimeout != "" {
		if v := os.Getenv(env.RequestTimeout); v != "" {
			c.RequestTimeout = v
		}
	}
	if env.FailureThreshold != "" {
		if v := os.Getenv(env.FailureThreshold); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				c.FailureThreshold = n
			}
		}
	}
	if env.ResetTimeout != "" {
		if v := os.Getenv(env.ResetTimeout); v != "" {
			c.ResetTimeout = v
		}
	}
}

func (c *Config) validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("ocr base_url is required")
	}
	if _, err := time.ParseDuration(c.RequestTimeout); err != nil {
		return fmt.Errorf("invalid request_timeout: %w", err)
	}
	if _, err := time.ParseDuration(c.ResetTimeout); err != nil {
		return fmt.Errorf("invalid reset_timeout: %w", err)
	}
	if c.FailureThreshold < 1 {
		return fmt.Errorf("failure_threshold must be positive: %d", c.FailureThreshold)
	}
	return nil
}
