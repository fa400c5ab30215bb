package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadKeepsDefaultsForAbsentKeys(t *testing.T) {
	path := writeConfig(t, `
node: bench-1
server:
  url: ws://10.0.0.5:9000/ws
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Node != "bench-1" {
		t.Errorf("Node = %q", cfg.Node)
	}
	if cfg.Server.URL != "ws://10.0.0.5:9000/ws" {
		t.Errorf("Server.URL = %q", cfg.Server.URL)
	}

	def := Default()
	if cfg.Servo != def.Servo {
		t.Errorf("Servo = %+v, want defaults %+v", cfg.Servo, def.Servo)
	}
	if cfg.Motion != def.Motion {
		t.Errorf("Motion = %+v, want defaults %+v", cfg.Motion, def.Motion)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
servo:
  pan_pin: 12
  tilt_pin: 19
  mock: true
motion:
  pan_min: 10
  pan_max: 170
  tilt_min_safe: 60
  step_size: 2
  step_interval_ms: 20
  command_timeout_ms: 2500
  initial_pan: 45
  initial_tilt: 100
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Servo.PanPin != 12 || cfg.Servo.TiltPin != 19 || !cfg.Servo.Mock {
		t.Errorf("Servo = %+v", cfg.Servo)
	}
	if cfg.Motion.PanMin != 10 || cfg.Motion.PanMax != 170 {
		t.Errorf("pan envelope = [%d, %d]", cfg.Motion.PanMin, cfg.Motion.PanMax)
	}
	if cfg.Motion.TiltMinSafe != 60 {
		t.Errorf("TiltMinSafe = %d", cfg.Motion.TiltMinSafe)
	}
	if got := cfg.StepInterval(); got != 20*time.Millisecond {
		t.Errorf("StepInterval = %s", got)
	}
	if got := cfg.CommandTimeout(); got != 2500*time.Millisecond {
		t.Errorf("CommandTimeout = %s", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Load error = %v, want os.ErrNotExist", err)
	}
}

func TestLoadBadYAML(t *testing.T) {
	path := writeConfig(t, "motion: [not, a, map")
	if _, err := Load(path); err == nil {
		t.Fatal("Load accepted malformed yaml")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults pass", func(c *Config) {}, true},
		{"empty server url", func(c *Config) { c.Server.URL = "" }, false},
		{"inverted pan envelope", func(c *Config) { c.Motion.PanMin = 180; c.Motion.PanMax = 0 }, false},
		{"inverted tilt envelope", func(c *Config) { c.Motion.TiltMin = 90; c.Motion.TiltMax = 90 }, false},
		{"safety floor below envelope", func(c *Config) { c.Motion.TiltMin = 50; c.Motion.TiltMinSafe = 40 }, false},
		{"safety floor above envelope", func(c *Config) { c.Motion.TiltMinSafe = 181 }, false},
		{"safety floor at envelope max", func(c *Config) { c.Motion.TiltMinSafe = 180 }, true},
		{"zero step size", func(c *Config) { c.Motion.StepSize = 0 }, false},
		{"zero step interval", func(c *Config) { c.Motion.StepIntervalMs = 0 }, false},
		{"timeout below one interval", func(c *Config) { c.Motion.CommandTimeoutMs = 10 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate: %v", err)
			}
			if !tt.ok && err == nil {
				t.Error("Validate accepted invalid config")
			}
		})
	}
}
