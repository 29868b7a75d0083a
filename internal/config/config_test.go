package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, BackendDisk, cfg.Storage.Backend)
	require.Equal(t, "./data", cfg.Storage.Dir)
	require.Equal(t, "castore", cfg.NATS.Bucket)
	require.Equal(t, []string{"cmd-ca-publish", "pubd-publish"}, cfg.Archive.Labels)
	require.Equal(t, 0, cfg.Archive.Days)

	level, err := cfg.Log.SlogLevel()
	require.NoError(t, err)
	require.Equal(t, slog.LevelInfo, level)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "castore.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
storage:
  backend: nats
nats:
  url: nats://nats:4222
  bucket: ca-state
archive:
  days: 30
  labels: [cmd-ca-publish]
log:
  level: debug
`), 0o600))

	t.Setenv("CASTORE_NATS__BUCKET", "from-env")
	t.Setenv("CASTORE_CACHE__SIZE", "64")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, BackendNATS, cfg.Storage.Backend)
	require.Equal(t, "nats://nats:4222", cfg.NATS.URL)
	require.Equal(t, "from-env", cfg.NATS.Bucket)
	require.Equal(t, 30, cfg.Archive.Days)
	require.Equal(t, []string{"cmd-ca-publish"}, cfg.Archive.Labels)
	require.Equal(t, 64, cfg.Cache.Size)
	require.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Storage: StorageConfig{Backend: BackendDisk, Dir: "/tmp/castore"},
			Log:     LogConfig{Level: "info"},
		}
	}

	tests := []struct {
		name   string
		modify func(c *Config)
		ok     bool
	}{
		{"valid", func(c *Config) {}, true},
		{"memory", func(c *Config) { c.Storage = StorageConfig{Backend: BackendMemory} }, true},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "s3" }, false},
		{"disk without dir", func(c *Config) { c.Storage.Dir = "" }, false},
		{"nats without url", func(c *Config) { c.Storage.Backend = BackendNATS }, false},
		{"postgres without dsn", func(c *Config) { c.Storage.Backend = BackendPostgres }, false},
		{"postgres", func(c *Config) {
			c.Storage.Backend = BackendPostgres
			c.Postgres.DSN = "postgres://localhost/castore"
		}, true},
		{"negative days", func(c *Config) { c.Archive.Days = -1 }, false},
		{"negative cache", func(c *Config) { c.Cache.Size = -1 }, false},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.modify(&c)
			err := c.Validate()
			if tt.ok {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}
