// Package config loads vchain runtime configuration from viper.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/viper"
)

// ErrInvalid is returned by Load when a configured value is out of range.
var ErrInvalid = errors.New("invalid configuration")

// Config holds all runtime configuration for a vchain invocation.
// Values are populated from .vchain.yaml, VCHAIN_* env vars, and CLI flags.
// The document layout itself lives in the workspace's project file.
type Config struct {
	Workspace     string `mapstructure:"workspace"`
	ProjectConfig string `mapstructure:"project_config"`
	StateDir      string `mapstructure:"state_dir"`
	LogLevel      string `mapstructure:"log_level"`
	LogFormat     string `mapstructure:"log_format"`
	MetricsFile   string `mapstructure:"metrics_file"`
	Checkpoint    string `mapstructure:"checkpoint"`
	Audit         bool   `mapstructure:"audit"`
	Verbose       bool   `mapstructure:"verbose"`
}

// Load reads configuration from viper, applying built-in defaults for any
// values not set by config file, environment, or flags.
func Load() (Config, error) {
	viper.SetDefault("workspace", ".")
	viper.SetDefault("project_config", "vchain.toml")
	viper.SetDefault("state_dir", ".vchain")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_format", "text")
	viper.SetDefault("metrics_file", "")
	viper.SetDefault("checkpoint", "auto")
	viper.SetDefault("audit", true)
	viper.SetDefault("verbose", false)

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the enumerated settings.
func (c Config) Validate() error {
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log_format %q (want text or json)", ErrInvalid, c.LogFormat)
	}
	switch c.Checkpoint {
	case "auto", "git", "dir", "off":
	default:
		return fmt.Errorf("%w: checkpoint %q (want auto, git, dir or off)", ErrInvalid, c.Checkpoint)
	}
	if strings.TrimSpace(c.StateDir) == "" {
		return fmt.Errorf("%w: state_dir is empty", ErrInvalid)
	}
	return nil
}

// NewLogger builds the process logger described by c. Verbose forces the
// debug level.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	if c.Verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("%w: log_level %q", ErrInvalid, s)
	}
}
