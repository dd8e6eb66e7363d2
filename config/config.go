// Package config loads remotify settings from TOML files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/remotify/remotify/bus"
)

// DefaultCallbackTimeout is used when callback_timeout_ms is not set.
const DefaultCallbackTimeout = 60 * time.Second

// Config holds the settings shared by callers and listeners.
type Config struct {
	// ServerID is the call namespace both sides must agree on.
	ServerID string

	// CallerID is the logical caller name. Each caller instance appends
	// its own random suffix, so several processes can share one name.
	CallerID string

	// CallbackTimeout bounds how long a caller waits for a reply.
	CallbackTimeout time.Duration

	Redis RedisConfig
	Log   LogConfig
}

// RedisConfig selects and authenticates the Redis backend.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// LogConfig controls log output.
type LogConfig struct {
	Level string `toml:"level"`
}

// rawConfig is the TOML representation. channel_id is an accepted alias
// for server_id kept for older config files.
type rawConfig struct {
	ServerID          string      `toml:"server_id"`
	ChannelID         string      `toml:"channel_id"`
	CallerID          string      `toml:"caller_id"`
	CallbackTimeoutMS int64       `toml:"callback_timeout_ms"`
	Redis             RedisConfig `toml:"redis"`
	Log               LogConfig   `toml:"log"`
}

// Default returns the zero-config defaults.
func Default() *Config {
	return &Config{
		CallbackTimeout: DefaultCallbackTimeout,
		Redis:           RedisConfig{Addr: "localhost:6379"},
		Log:             LogConfig{Level: "info"},
	}
}

// StandardPaths returns the standard config file locations in order of priority.
func StandardPaths() []string {
	paths := []string{"remotify.toml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "remotify", "remotify.toml"))
		paths = append(paths, filepath.Join(home, ".remotify", "remotify.toml"))
	}
	return paths
}

// Load loads configuration from the first available standard location.
// When no file exists, the defaults are returned with an empty path.
func Load() (*Config, string, error) {
	for _, path := range StandardPaths() {
		if _, err := os.Stat(path); err == nil {
			cfg, err := LoadFile(path)
			if err != nil {
				return nil, path, err
			}
			return cfg, path, nil
		}
	}
	return Default(), "", nil
}

// LoadFile loads configuration from a specific file.
func LoadFile(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse parses configuration from TOML content. Unset options keep their
// defaults.
func Parse(content string) (*Config, error) {
	var raw rawConfig
	if _, err := toml.Decode(content, &raw); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	cfg := Default()

	cfg.ServerID = raw.ServerID
	if cfg.ServerID == "" {
		cfg.ServerID = raw.ChannelID
	}
	cfg.CallerID = raw.CallerID

	if raw.CallbackTimeoutMS < 0 {
		return nil, fmt.Errorf("callback_timeout_ms must not be negative, got %d", raw.CallbackTimeoutMS)
	}
	if raw.CallbackTimeoutMS > 0 {
		cfg.CallbackTimeout = time.Duration(raw.CallbackTimeoutMS) * time.Millisecond
	}

	if raw.Redis.Addr != "" {
		cfg.Redis.Addr = raw.Redis.Addr
	}
	cfg.Redis.Username = raw.Redis.Username
	cfg.Redis.Password = raw.Redis.Password
	cfg.Redis.DB = raw.Redis.DB

	if raw.Log.Level != "" {
		cfg.Log.Level = raw.Log.Level
	}

	return cfg, nil
}

// BusConfig translates the [redis] section into a RedisBus configuration.
func (c *Config) BusConfig() bus.RedisConfig {
	rc := bus.DefaultRedisConfig()
	if c.Redis.Addr != "" {
		rc.Addr = c.Redis.Addr
	}
	rc.Username = c.Redis.Username
	rc.Password = c.Redis.Password
	rc.DB = c.Redis.DB
	return rc
}
