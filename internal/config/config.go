package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Transport modes.
const (
	ModeHTTP  = "http"
	ModeStdio = "stdio"
)

// Config defines server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Transport TransportConfig `yaml:"transport" toml:"transport"`
	Storage   StorageConfig   `yaml:"storage" toml:"storage"`
	Activity  ActivityConfig  `yaml:"activity" toml:"activity"`
	Auth      AuthConfig      `yaml:"auth" toml:"auth"`
	Log       LogConfig       `yaml:"log" toml:"log"`
}

type ServerConfig struct {
	Host string `yaml:"host" toml:"host"`
	Port int    `yaml:"port" toml:"port"`
}

type TransportConfig struct {
	Mode string `yaml:"mode" toml:"mode"` // "http" or "stdio"
}

type StorageConfig struct {
	Backend string      `yaml:"backend" toml:"backend"`
	Path    string      `yaml:"path" toml:"path"`
	Redis   RedisConfig `yaml:"redis" toml:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" toml:"addr"`
	Password string `yaml:"password" toml:"password"`
	DB       int    `yaml:"db" toml:"db"`
}

type ActivityConfig struct {
	SlotKey         string `yaml:"slot_key" toml:"slot_key"`
	MaxEntries      int    `yaml:"max_entries" toml:"max_entries"`
	RecentLimit     int    `yaml:"recent_limit" toml:"recent_limit"`
	MaxWriteRetries int    `yaml:"max_write_retries" toml:"max_write_retries"`
}

type AuthConfig struct {
	Enabled bool `yaml:"enabled" toml:"enabled"`
	// Keys maps the hex SHA-256 of a bearer token to a principal name.
	Keys map[string]string `yaml:"keys" toml:"keys"`
}

type LogConfig struct {
	Level string `yaml:"level" toml:"level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Transport: TransportConfig{
			Mode: ModeHTTP,
		},
		Storage: StorageConfig{
			Backend: BackendSQLite,
			Path:    "tally.db",
			Redis: RedisConfig{
				Addr: "localhost:6379",
			},
		},
		Activity: ActivityConfig{
			SlotKey:         "community_activity_log",
			MaxEntries:      1000,
			RecentLimit:     50,
			MaxWriteRetries: 3,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from an optional YAML or TOML file and
// environment variables.
func Load() (Config, error) {
	return LoadFile(os.Getenv("TALLY_CONFIG_PATH"))
}

// LoadFile is Load with an explicit config file path. An empty path skips
// the file.
func LoadFile(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if host := os.Getenv("TALLY_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("TALLY_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("invalid TALLY_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if mode := os.Getenv("TALLY_TRANSPORT_MODE"); mode != "" {
		cfg.Transport.Mode = mode
	}
	if backend := os.Getenv("TALLY_STORAGE_BACKEND"); backend != "" {
		cfg.Storage.Backend = backend
	}
	if dbPath := os.Getenv("TALLY_DB_PATH"); dbPath != "" {
		cfg.Storage.Path = dbPath
	}
	if addr := os.Getenv("TALLY_REDIS_ADDR"); addr != "" {
		cfg.Storage.Redis.Addr = addr
	}
	if password := os.Getenv("TALLY_REDIS_PASSWORD"); password != "" {
		cfg.Storage.Redis.Password = password
	}
	if key := os.Getenv("TALLY_SLOT_KEY"); key != "" {
		cfg.Activity.SlotKey = key
	}
	if maxStr := os.Getenv("TALLY_MAX_ACTIVITIES"); maxStr != "" {
		n, err := strconv.Atoi(maxStr)
		if err != nil {
			return fmt.Errorf("invalid TALLY_MAX_ACTIVITIES: %w", err)
		}
		cfg.Activity.MaxEntries = n
	}
	if level := os.Getenv("TALLY_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if enabled := os.Getenv("TALLY_AUTH_ENABLED"); enabled != "" {
		v, err := strconv.ParseBool(enabled)
		if err != nil {
			return fmt.Errorf("invalid TALLY_AUTH_ENABLED: %w", err)
		}
		cfg.Auth.Enabled = v
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	switch c.Storage.Backend {
	case BackendSQLite:
		if strings.TrimSpace(c.Storage.Path) == "" {
			return errors.New("storage.path is required for the sqlite backend")
		}
	case BackendRedis:
		if strings.TrimSpace(c.Storage.Redis.Addr) == "" {
			return errors.New("storage.redis.addr is required for the redis backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("invalid storage.backend: %q", c.Storage.Backend)
	}

	switch c.Transport.Mode {
	case ModeHTTP, ModeStdio:
	default:
		return fmt.Errorf("invalid transport.mode: %q", c.Transport.Mode)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port: %d", c.Server.Port)
	}
	if strings.TrimSpace(c.Activity.SlotKey) == "" {
		return errors.New("activity.slot_key is required")
	}
	if c.Activity.MaxEntries <= 0 {
		return fmt.Errorf("activity.max_entries must be > 0, got %d", c.Activity.MaxEntries)
	}
	if c.Activity.RecentLimit <= 0 {
		return fmt.Errorf("activity.recent_limit must be > 0, got %d", c.Activity.RecentLimit)
	}
	if c.Activity.MaxWriteRetries < 0 {
		return fmt.Errorf("activity.max_write_retries must be >= 0, got %d", c.Activity.MaxWriteRetries)
	}
	if c.Auth.Enabled && len(c.Auth.Keys) == 0 {
		return errors.New("auth.keys must not be empty when auth is enabled")
	}
	return nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parse toml config file: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parse config file: %w", err)
		}
	}
	return nil
}
