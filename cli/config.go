package cli

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Defaults.
const (
	DefaultServer         = "http://localhost:8080"
	DefaultTimeoutSeconds = 10
)

// Config holds the board client settings. Values are resolved in order:
// built-in defaults, then the config file, then the TASKMASTER_SERVER
// environment variable, then flags.
type Config struct {
	Server         string `toml:"server"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Timeout returns the request timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// DefaultConfigPath returns the per-user config file location.
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "taskmaster", "config.toml")
}

// LoadConfig reads the config file at path, falling back to defaults when it
// does not exist. An empty path means the default location.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{
		Server:         DefaultServer,
		TimeoutSeconds: DefaultTimeoutSeconds,
	}

	if path == "" {
		path = DefaultConfigPath()
	}
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, cfg); err != nil {
				return nil, err
			}
		}
	}

	if server := os.Getenv("TASKMASTER_SERVER"); server != "" {
		cfg.Server = server
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = DefaultTimeoutSeconds
	}
	return cfg, nil
}
