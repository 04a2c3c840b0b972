// Package config loads framework settings from config.yaml with environment
// variable overrides, and the database inventory from a separate YAML file.
// Secrets (the credential encryption key) come from the environment only.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all settings for the connector framework. Environment
// variables always override YAML values.
type Config struct {
	Log   LogConfig   `yaml:"log"`
	Pool  PoolConfig  `yaml:"pool"`
	Query QueryConfig `yaml:"query"`
	Retry RetryConfig `yaml:"retry"`

	// CredentialsKey decrypts password_encrypted fields in the database
	// inventory. A 32-byte base64 key (openssl rand -base64 32) or any
	// passphrase. Secret - not in YAML.
	CredentialsKey string `yaml:"-" env:"DGC_CREDENTIALS_KEY"`

	// CredentialsKeyPrevious lists retired keys still accepted for
	// decryption during a rotation, comma-separated.
	CredentialsKeyPrevious []string `yaml:"-" env:"DGC_CREDENTIALS_KEY_PREVIOUS" env-separator:","`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level" env:"DGC_LOG_LEVEL" env-default:"info"`
}

// PoolConfig holds connection pool settings, applied per database id.
type PoolConfig struct {
	// MaxPoolSize caps live connections per database id.
	MaxPoolSize int `yaml:"max_pool_size" env:"DGC_POOL_MAX_SIZE" env-default:"10"`
	// ConnectionTimeout evicts connections idle longer than this.
	ConnectionTimeout time.Duration `yaml:"connection_timeout" env:"DGC_POOL_CONNECTION_TIMEOUT" env-default:"5m"`
	// MaxConnectionAge evicts connections older than this regardless of use.
	MaxConnectionAge time.Duration `yaml:"max_connection_age" env:"DGC_POOL_MAX_CONNECTION_AGE" env-default:"30m"`
}

// QueryConfig holds per-query execution defaults, used when the caller leaves
// the corresponding QueryOptions fields zero.
type QueryConfig struct {
	DefaultTimeout time.Duration `yaml:"default_timeout" env:"DGC_QUERY_DEFAULT_TIMEOUT" env-default:"30s"`
	DefaultMaxRows int           `yaml:"default_max_rows" env:"DGC_QUERY_DEFAULT_MAX_ROWS" env-default:"1000"`
}

// RetryConfig holds the transient-failure retry policy parameters.
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts" env:"DGC_RETRY_MAX_ATTEMPTS" env-default:"3"`
	InitialDelay time.Duration `yaml:"initial_delay" env:"DGC_RETRY_INITIAL_DELAY" env-default:"100ms"`
	MaxDelay     time.Duration `yaml:"max_delay" env:"DGC_RETRY_MAX_DELAY" env-default:"5s"`
	Multiplier   float64       `yaml:"multiplier" env:"DGC_RETRY_MULTIPLIER" env-default:"2.0"`
	JitterFactor float64       `yaml:"jitter_factor" env:"DGC_RETRY_JITTER_FACTOR" env-default:"0.1"`
}

// Load reads configuration from config.yaml (when present) with environment
// variable overrides; without the file, settings come from the environment
// and tag defaults alone.
func Load() (*Config, error) {
	return LoadFrom("config.yaml")
}

// LoadFrom reads configuration from the given YAML path, falling back to
// environment-only loading when the file does not exist.
func LoadFrom(path string) (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else if os.IsNotExist(err) {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	} else {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Pool.MaxPoolSize < 1 {
		return fmt.Errorf("pool.max_pool_size must be at least 1, got %d", c.Pool.MaxPoolSize)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.Multiplier < 1 {
		return fmt.Errorf("retry.multiplier must be at least 1, got %g", c.Retry.Multiplier)
	}
	if c.Query.DefaultMaxRows < 0 {
		return fmt.Errorf("query.default_max_rows must not be negative, got %d", c.Query.DefaultMaxRows)
	}
	return nil
}
