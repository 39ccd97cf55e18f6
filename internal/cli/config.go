package cli

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// ConfigEnv names the environment variable read when --config is not set.
const ConfigEnv = "EXPECTO_CONFIG"

// Config is the optional TOML config file. Command-line flags override it.
//
//	timeout = "2s"
//	encoding = "utf-8"
//	max_buffer = 65536
//	log_level = "warn"
//	db = "expecto.db"
type Config struct {
	Timeout   string `toml:"timeout"`
	Encoding  string `toml:"encoding"`
	MaxBuffer int    `toml:"max_buffer"`
	LogLevel  string `toml:"log_level"`
	DB        string `toml:"db"`
}

// LoadConfig reads and checks the config file at path. An empty path
// means no config file.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config file %s: %w", path, err)
	}

	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return cfg, fmt.Errorf("config file %s: unknown keys:\n%s", path, strict.String())
		}
		return cfg, fmt.Errorf("config file %s: %w", path, err)
	}

	if _, err := cfg.timeout(); err != nil {
		return cfg, fmt.Errorf("config file %s: %w", path, err)
	}
	if _, err := cfg.level(); err != nil {
		return cfg, fmt.Errorf("config file %s: %w", path, err)
	}
	if cfg.MaxBuffer < 0 {
		return cfg, fmt.Errorf("config file %s: max_buffer must not be negative", path)
	}
	return cfg, nil
}

func (c Config) timeout() (time.Duration, error) {
	if c.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid timeout %q", c.Timeout)
	}
	return d, nil
}

// level returns the configured log level; warn when unset, so engine
// Info records stay out of script output unless asked for.
func (c Config) level() (slog.Level, error) {
	if c.LogLevel == "" {
		return slog.LevelWarn, nil
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	return l, nil
}
