// Package config loads qcledger configuration from YAML with environment
// overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultHistoryDepth bounds the act undo stack when nothing else is configured.
const DefaultHistoryDepth = 20

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Metrics exporters.
const (
	MetricsExpvar     = "expvar"
	MetricsPrometheus = "prometheus"
)

// Config is the root configuration.
type Config struct {
	Storage      Storage `yaml:"storage"`
	Blob         Blob    `yaml:"blob"`
	HistoryDepth int     `yaml:"history_depth"`
	LogLevel     string  `yaml:"log_level"`
	Metrics      string  `yaml:"metrics"`
}

// Storage selects the key-value backend mirroring the ledger state.
type Storage struct {
	Driver      string `yaml:"driver"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
	RedisURL    string `yaml:"redis_url"`
	RedisPrefix string `yaml:"redis_prefix"`
}

// Blob selects the store used for unpacked backup archives.
type Blob struct {
	Driver string `yaml:"driver"`
	FSRoot string `yaml:"fs_root"`
	S3     S3     `yaml:"s3"`
}

// S3 configures the S3-compatible blob driver.
type S3 struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Storage: Storage{
			Driver:     DriverSQLite,
			SQLitePath: "qcledger.db",
		},
		Blob: Blob{
			Driver: "fs",
			FSRoot: "./backups",
		},
		HistoryDepth: DefaultHistoryDepth,
		LogLevel:     "info",
		Metrics:      MetricsExpvar,
	}
}

// Load reads configuration from path. A missing file yields defaults.
// Environment variables override both.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate checks driver names and bounds.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverMemory, DriverSQLite, DriverPostgres, DriverRedis:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Storage.Driver == DriverRedis && c.Storage.RedisURL == "" {
		return fmt.Errorf("redis storage driver requires redis_url")
	}
	switch c.Metrics {
	case MetricsExpvar, MetricsPrometheus:
	default:
		return fmt.Errorf("unknown metrics exporter %q", c.Metrics)
	}
	if c.HistoryDepth < 1 {
		return fmt.Errorf("history_depth must be positive, got %d", c.HistoryDepth)
	}
	return nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("QCLEDGER_STORAGE_DRIVER"); v != "" {
		c.Storage.Driver = strings.ToLower(v)
	}
	if v := os.Getenv("QCLEDGER_SQLITE_PATH"); v != "" {
		c.Storage.SQLitePath = v
	}
	if v := os.Getenv("QCLEDGER_POSTGRES_DSN"); v != "" {
		c.Storage.PostgresDSN = v
	}
	if v := os.Getenv("QCLEDGER_REDIS_URL"); v != "" {
		c.Storage.RedisURL = v
	}
	if v := os.Getenv("QCLEDGER_REDIS_PREFIX"); v != "" {
		c.Storage.RedisPrefix = v
	}
	if v := os.Getenv("QCLEDGER_BLOB_DRIVER"); v != "" {
		c.Blob.Driver = strings.ToLower(v)
	}
	if v := os.Getenv("QCLEDGER_BLOB_FS_ROOT"); v != "" {
		c.Blob.FSRoot = v
	}
	if v := os.Getenv("QCLEDGER_BLOB_S3_BUCKET"); v != "" {
		c.Blob.S3.Bucket = v
	}
	if v := os.Getenv("QCLEDGER_BLOB_S3_REGION"); v != "" {
		c.Blob.S3.Region = v
	}
	if v := os.Getenv("QCLEDGER_BLOB_S3_ENDPOINT"); v != "" {
		c.Blob.S3.Endpoint = v
	}
	if v := os.Getenv("QCLEDGER_BLOB_S3_PATH_STYLE"); v != "" {
		c.Blob.S3.PathStyle = strings.EqualFold(v, "true")
	}
	if v := os.Getenv("QCLEDGER_HISTORY_DEPTH"); v != "" {
		depth, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("QCLEDGER_HISTORY_DEPTH: %w", err)
		}
		c.HistoryDepth = depth
	}
	if v := os.Getenv("QCLEDGER_LOG_LEVEL"); v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	if v := os.Getenv("QCLEDGER_METRICS"); v != "" {
		c.Metrics = strings.ToLower(v)
	}
	return nil
}
