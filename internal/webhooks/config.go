package webhooks

import (
	"fmt"
	"os"
	"time"

	"github.com/private-doc-vault/docvault/pkg/formatting"
)

// SignatureHeader carries the hex-encoded HMAC-SHA256 of the raw request body.
const SignatureHeader = "X-Webhook-Signature"

// Config holds webhook authentication and idempotency parameters.
type Config struct {
	Secret         string `toml:"secret"`
	IdempotencyTTL string `toml:"idempotency_ttl"`
	MaxBodySize    string `toml:"max_body_size"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Secret         string
	IdempotencyTTL string
	MaxBodySize    string
}

// MaxBodySizeBytes returns MaxBodySize as a byte count.
func (c *Config) MaxBodySizeBytes() int64 {
	size, err := formatting.ParseBytes(c.MaxBodySize)
	if err != nil {
		return 10 * 1024 * 1024 // 10MB fallback
	}
	return size
}

// IdempotencyTTLDuration returns IdempotencyTTL as a time.Duration.
func (c *Config) IdempotencyTTLDuration() time.Duration {
	d, _ := time.ParseDuration(c.IdempotencyTTL)
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
	if overlay.Secret != "" {
		c.Secret = overlay.Secret
	}
	if overlay.IdempotencyTTL != "" {
		c.IdempotencyTTL = overlay.IdempotencyTTL
	}
	if overlay.MaxBodySize != "" {
		c.MaxBodySize = overlay.MaxBodySize
	}
}

func (c *Config) loadDefaults() {
	if c.IdempotencyTTL == "" {
		c.IdempotencyTTL = "24h"
	}
	if c.MaxBodySize == "" {
		c.MaxBodySize = "10MB"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Secret != "" {
		if v := os.Getenv(env.Secret); v != "" {
			c.Secret = v
		}
	}
	if env.IdempotencyTTL != "" {
		if v := os.Getenv(env.IdempotencyTTL); v != "" {
			c.IdempotencyTTL = v
		}
	}
	if env.MaxBodySize != "" {
		if v := os.Getenv(env.MaxBodySize); v != "" {
			c.MaxBodySize = v
		}
	}
}

func (c *Config) validate() error {
	if c.Secret == "" {
		return fmt.Errorf("webhook secret is required")
	}
	if _, err := time.ParseDuration(c.IdempotencyTTL); err != nil {
		return fmt.Errorf("invalid idempotency_ttl: %w", err)
	}
	return nil
}
