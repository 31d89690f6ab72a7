package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("TALLY_CONFIG_PATH", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
	require.Equal(t, BackendSQLite, cfg.Storage.Backend)
	require.Equal(t, 1000, cfg.Activity.MaxEntries)
	require.Equal(t, 50, cfg.Activity.RecentLimit)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := writeFile(t, "tally.yaml", `
server:
  port: 9090
storage:
  backend: redis
  redis:
    addr: cache:6379
activity:
  slot_key: custom
  max_entries: 25
log:
  level: debug
`)
	t.Setenv("TALLY_CONFIG_PATH", path)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "0.0.0.0", cfg.Server.Host)
	require.Equal(t, BackendRedis, cfg.Storage.Backend)
	require.Equal(t, "cache:6379", cfg.Storage.Redis.Addr)
	require.Equal(t, "custom", cfg.Activity.SlotKey)
	require.Equal(t, 25, cfg.Activity.MaxEntries)
	require.Equal(t, 50, cfg.Activity.RecentLimit)
	require.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_TOMLFile(t *testing.T) {
	path := writeFile(t, "tally.toml", `
[transport]
mode = "stdio"

[storage]
backend = "memory"

[auth]
enabled = true

[auth.keys]
abc123 = "ops"
`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, ModeStdio, cfg.Transport.Mode)
	require.Equal(t, BackendMemory, cfg.Storage.Backend)
	require.True(t, cfg.Auth.Enabled)
	require.Equal(t, map[string]string{"abc123": "ops"}, cfg.Auth.Keys)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "tally.yaml", "storage:\n  path: from-file.db\n")
	t.Setenv("TALLY_CONFIG_PATH", path)
	t.Setenv("TALLY_DB_PATH", "from-env.db")
	t.Setenv("TALLY_SERVER_PORT", "7070")
	t.Setenv("TALLY_MAX_ACTIVITIES", "10")
	t.Setenv("TALLY_SLOT_KEY", "env-slot")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "from-env.db", cfg.Storage.Path)
	require.Equal(t, 7070, cfg.Server.Port)
	require.Equal(t, 10, cfg.Activity.MaxEntries)
	require.Equal(t, "env-slot", cfg.Activity.SlotKey)
}

func TestLoad_InvalidEnv(t *testing.T) {
	t.Setenv("TALLY_CONFIG_PATH", "")
	t.Setenv("TALLY_SERVER_PORT", "eighty")

	_, err := Load()
	require.ErrorContains(t, err, "TALLY_SERVER_PORT")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.ErrorContains(t, err, "read config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"unknown backend", func(c *Config) { c.Storage.Backend = "mongo" }, "storage.backend"},
		{"empty sqlite path", func(c *Config) { c.Storage.Path = " " }, "storage.path"},
		{"empty redis addr", func(c *Config) { c.Storage.Backend = BackendRedis; c.Storage.Redis.Addr = "" }, "storage.redis.addr"},
		{"bad mode", func(c *Config) { c.Transport.Mode = "grpc" }, "transport.mode"},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"empty slot", func(c *Config) { c.Activity.SlotKey = "" }, "slot_key"},
		{"zero cap", func(c *Config) { c.Activity.MaxEntries = 0 }, "max_entries"},
		{"zero recent", func(c *Config) { c.Activity.RecentLimit = 0 }, "recent_limit"},
		{"negative retries", func(c *Config) { c.Activity.MaxWriteRetries = -1 }, "max_write_retries"},
		{"auth without keys", func(c *Config) { c.Auth.Enabled = true }, "auth.keys"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			require.ErrorContains(t, cfg.Validate(), tt.errMsg)
		})
	}

	require.NoError(t, Default().Validate())
}
