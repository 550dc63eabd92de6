// Package config loads stateshift settings from the environment and
// optional .env files.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// ErrInvalidConfig is returned when a setting has an unsupported value.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds the environment driven configuration.
type Config struct {
	// Storage
	DBPath   string `env:"STATESHIFT_DB" envDefault:"stateshift.db"`
	FilePath string `env:"STATESHIFT_FILE"` // When set, the JSON file store replaces sqlite
	Key      string `env:"STATESHIFT_KEY" envDefault:"root"`

	// Migration
	Locale     string `env:"STATESHIFT_LOCALE"` // Empty resolves from LC_ALL, LC_MESSAGES, LANG
	Checkpoint bool   `env:"STATESHIFT_CHECKPOINT" envDefault:"true"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`
}

// UseFile reports whether the document lives in a JSON file instead of
// the sqlite store.
func (c *Config) UseFile() bool {
	return c.FilePath != ""
}

// Load reads the process environment overlaid with files. Files that do not
// exist are skipped; values in files override the process environment.
func Load(files ...string) (*Config, error) {
	return LoadEnv(environ(), files...)
}

// LoadEnv is Load over an explicit base environment.
func LoadEnv(base map[string]string, files ...string) (*Config, error) {
	vars := make(map[string]string, len(base))
	for k, v := range base {
		vars[k] = v
	}
	for _, path := range files {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		fileVars, err := godotenv.Read(path)
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %w", ErrInvalidConfig, path, err)
		}
		for k, v := range fileVars {
			vars[k] = v
		}
	}

	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: vars}); err != nil {
		return nil, fmt.Errorf("%w: parse env: %w", ErrInvalidConfig, err)
	}

	cfg.Key = strings.TrimSpace(cfg.Key)
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that have a closed set of values.
func (c *Config) Validate() error {
	if c.Key == "" {
		return fmt.Errorf("%w: STATESHIFT_KEY must not be empty", ErrInvalidConfig)
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("%w: LOG_FORMAT %q, want console or json", ErrInvalidConfig, c.LogFormat)
	}
	return nil
}

func environ() map[string]string {
	out := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			out[k] = v
		}
	}
	return out
}
