package config

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/spf13/viper"
)

// resetViper clears all viper state between tests to avoid cross-contamination.
func resetViper() {
	viper.Reset()
}

func TestLoad_Defaults(t *testing.T) {
	resetViper()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"Workspace", cfg.Workspace, "."},
		{"ProjectConfig", cfg.ProjectConfig, "vchain.toml"},
		{"StateDir", cfg.StateDir, ".vchain"},
		{"LogLevel", cfg.LogLevel, "info"},
		{"LogFormat", cfg.LogFormat, "text"},
		{"MetricsFile", cfg.MetricsFile, ""},
		{"Checkpoint", cfg.Checkpoint, "auto"},
		{"Audit", cfg.Audit, true},
		{"Verbose", cfg.Verbose, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	resetViper()

	tests := []struct {
		name   string
		envKey string
		envVal string
		field  func(Config) any
		want   any
	}{
		{
			name:   "workspace",
			envKey: "VCHAIN_WORKSPACE",
			envVal: "/srv/docs",
			field:  func(c Config) any { return c.Workspace },
			want:   "/srv/docs",
		},
		{
			name:   "state_dir",
			envKey: "VCHAIN_STATE_DIR",
			envVal: "/var/lib/vchain",
			field:  func(c Config) any { return c.StateDir },
			want:   "/var/lib/vchain",
		},
		{
			name:   "log_format",
			envKey: "VCHAIN_LOG_FORMAT",
			envVal: "JSON",
			field:  func(c Config) any { return c.LogFormat },
			want:   "json",
		},
		{
			name:   "checkpoint",
			envKey: "VCHAIN_CHECKPOINT",
			envVal: "dir",
			field:  func(c Config) any { return c.Checkpoint },
			want:   "dir",
		},
		{
			name:   "audit",
			envKey: "VCHAIN_AUDIT",
			envVal: "false",
			field:  func(c Config) any { return c.Audit },
			want:   false,
		},
		{
			name:   "metrics_file",
			envKey: "VCHAIN_METRICS_FILE",
			envVal: "/tmp/vchain.prom",
			field:  func(c Config) any { return c.MetricsFile },
			want:   "/tmp/vchain.prom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetViper()
			// Set env prefix so VCHAIN_* env vars map to config keys.
			viper.SetEnvPrefix("VCHAIN")
			viper.AutomaticEnv()

			os.Setenv(tt.envKey, tt.envVal)
			defer os.Unsetenv(tt.envKey)

			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load() returned unexpected error: %v", err)
			}
			got := tt.field(cfg)
			if got != tt.want {
				t.Errorf("%s: got %v (%T), want %v (%T)", tt.name, got, got, tt.want, tt.want)
			}
		})
	}
}

func TestLoad_RejectsInvalid(t *testing.T) {
	tests := []struct {
		key string
		val any
	}{
		{"checkpoint", "snapshot"},
		{"log_format", "xml"},
		{"log_level", "loud"},
		{"state_dir", " "},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			resetViper()
			viper.Set(tt.key, tt.val)
			if _, err := Load(); !errors.Is(err, ErrInvalid) {
				t.Errorf("Load() with %s=%v: err = %v, want ErrInvalid", tt.key, tt.val, err)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	cfg := Config{LogLevel: "warn", LogFormat: "json"}
	logger := cfg.NewLogger(&buf)
	logger.Info("hidden")
	logger.Warn("shown", "cr", "CR-261018-001")
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record written at warn level: %s", out)
	}
	if !strings.Contains(out, `"msg":"shown"`) || !strings.Contains(out, `"cr":"CR-261018-001"`) {
		t.Errorf("unexpected JSON output: %s", out)
	}

	buf.Reset()
	Config{LogLevel: "error", Verbose: true}.NewLogger(&buf).Debug("debugging")
	if !strings.Contains(buf.String(), "debugging") {
		t.Error("verbose should force debug level")
	}
}
