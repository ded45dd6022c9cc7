// Package config loads and finalizes the service configuration from TOML
// files, environment overlays, and environment variable overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/private-doc-vault/docvault/internal/ocr"
	"github.com/private-doc-vault/docvault/internal/webhooks"
	"github.com/private-doc-vault/docvault/pkg/database"
	"github.com/private-doc-vault/docvault/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvDocvaultEnv             = "DOCVAULT_ENV"
	EnvDocvaultShutdownTimeout = "DOCVAULT_SHUTDOWN_TIMEOUT"
	EnvDocvaultVersion         = "DOCVAULT_VERSION"
)

var databaseEnv = &database.Env{
	Host:            "DOCVAULT_DB_HOST",
	Port:            "DOCVAULT_DB_PORT",
	Name:            "DOCVAULT_DB_NAME",
	User:            "DOCVAULT_DB_USER",
	Password:        "DOCVAULT_DB_PASSWORD",
	SSLMode:         "DOCVAULT_DB_SSL_MODE",
	MaxOpenConns:    "DOCVAULT_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "DOCVAULT_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "DOCVAULT_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "DOCVAULT_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	ContainerName:    "DOCVAULT_STORAGE_CONTAINER_NAME",
	ConnectionString: "DOCVAULT_STORAGE_CONNECTION_STRING",
}

var ocrEnv = &ocr.Env{
	BaseURL:          "DOCVAULT_OCR_BASE_URL",
	CallbackURL:      "DOCVAULT_OCR_CALLBACK_URL",
	RequestTimeout:   "DOCVAULT_OCR_REQUEST_TIMEOUT",
	FailureThreshold: "DOCVAULT_OCR_FAILURE_THRESHOLD",
	ResetTimeout:     "DOCVAULT_OCR_RESET_TIMEOUT",
}

var webhookEnv = &webhooks.Env{
	Secret:         "DOCVAULT_WEBHOOK_SECRET",
	IdempotencyTTL: "DOCVAULT_WEBHOOK_IDEMPOTENCY_TTL",
	MaxBodySize:    "DOCVAULT_WEBHOOK_MAX_BODY_SIZE",
}

// Config is the root configuration for the docvault service.
type Config struct {
	Server          ServerConfig    `toml:"server"`
	Database        database.Config `toml:"database"`
	Storage         storage.Config  `toml:"storage"`
	OCR             ocr.Config      `toml:"ocr"`
	Webhook         webhooks.Config `toml:"webhook"`
	API             APIConfig       `toml:"api"`
	ShutdownTimeout string          `toml:"shutdown_timeout"`
	Version         string          `toml:"version"`
}

// Env returns the DOCVAULT_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvDocvaultEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config.toml exists, defaults and environment
// variables provide all configuration.
func Load() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(BaseConfigFile); err == nil {
		loaded, err := load(BaseConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.OCR.Merge(&overlay.OCR)
	c.Webhook.Merge(&overlay.Webhook)
	c.API.Merge(&overlay.API)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Database.Finalize(databaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.OCR.Finalize(ocrEnv); err != nil {
		return fmt.Errorf("ocr: %w", err)
	}
	if err := c.Webhook.Finalize(webhookEnv); err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvDocvaultShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvDocvaultVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvDocvaultEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
