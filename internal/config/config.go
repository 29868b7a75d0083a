// Package config loads the castore configuration from defaults, an optional
// YAML file and CASTORE_ environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const EnvPrefix = "CASTORE_"

// Storage backends.
const (
	BackendDisk     = "disk"
	BackendMemory   = "memory"
	BackendNATS     = "nats"
	BackendPostgres = "postgres"
)

type Config struct {
	Storage  StorageConfig  `koanf:"storage"`
	NATS     NATSConfig     `koanf:"nats"`
	Postgres PostgresConfig `koanf:"postgres"`
	Archive  ArchiveConfig  `koanf:"archive"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Log      LogConfig      `koanf:"log"`
	Cache    CacheConfig    `koanf:"cache"`
}

type StorageConfig struct {
	Backend string `koanf:"backend"` // disk, memory, nats or postgres
	Dir     string `koanf:"dir"`
}

type NATSConfig struct {
	URL      string `koanf:"url"`
	Bucket   string `koanf:"bucket"`
	Replicas int    `koanf:"replicas"`
}

type PostgresConfig struct {
	DSN string `koanf:"dsn"`
}

// ArchiveConfig controls archiving of old commands. Days 0 disables it.
type ArchiveConfig struct {
	Days   int      `koanf:"days"`
	Labels []string `koanf:"labels"`
}

type MetricsConfig struct {
	Addr string `koanf:"addr"` // empty disables the /metrics listener
}

type LogConfig struct {
	Level string `koanf:"level"`
}

type CacheConfig struct {
	Size int `koanf:"size"` // 0 keeps every aggregate
}

var defaults = map[string]any{
	"storage.backend": BackendDisk,
	"storage.dir":     "./data",
	"nats.url":        "nats://127.0.0.1:4222",
	"nats.bucket":     "castore",
	"nats.replicas":   1,
	"postgres.dsn":    "",
	"archive.days":    0,
	"archive.labels":  []string{"cmd-ca-publish", "pubd-publish"},
	"metrics.addr":    "",
	"log.level":       "info",
	"cache.size":      0,
}

// Load reads the configuration. configPath may be empty.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("failed to set default %s: %w", key, err)
		}
	}

	// 2. Load from file
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// 3. Load from Environment Variables
	// CASTORE_STORAGE__BACKEND=nats overrides storage.backend
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(
			strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	switch c.Storage.Backend {
	case BackendDisk:
		if c.Storage.Dir == "" {
			errs = append(errs, errors.New("storage.dir is required for the disk backend"))
		}
	case BackendMemory:
	case BackendNATS:
		if c.NATS.URL == "" {
			errs = append(errs, errors.New("nats.url is required for the nats backend"))
		}
	case BackendPostgres:
		if c.Postgres.DSN == "" {
			errs = append(errs, errors.New("postgres.dsn is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage.backend %q", c.Storage.Backend))
	}
	if c.Archive.Days < 0 {
		errs = append(errs, errors.New("archive.days must not be negative"))
	}
	if c.Cache.Size < 0 {
		errs = append(errs, errors.New("cache.size must not be negative"))
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// SlogLevel parses Level, accepting the slog level names.
func (c LogConfig) SlogLevel() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Level)); err != nil {
		return l, fmt.Errorf("invalid log.level %q", c.Level)
	}
	return l, nil
}
