package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerConfig locates the command-and-control server.
type ServerConfig struct {
	URL string `yaml:"url"`
}

// ServoConfig holds the GPIO wiring for the two servos. Pins are BCM
// numbers and must be PWM-capable. Mock swaps in the recording driver for
// development off-target.
type ServoConfig struct {
	PanPin  int  `yaml:"pan_pin"`
	TiltPin int  `yaml:"tilt_pin"`
	Mock    bool `yaml:"mock"`
}

// MotionConfig is the motion envelope and scheduler timing.
type MotionConfig struct {
	PanMin      int `yaml:"pan_min"`
	PanMax      int `yaml:"pan_max"`
	TiltMin     int `yaml:"tilt_min"`
	TiltMax     int `yaml:"tilt_max"`
	TiltMinSafe int `yaml:"tilt_min_safe"` // safety floor, protects the mount

	StepSize         int `yaml:"step_size"`          // degrees per tick, absolute mode
	StepIntervalMs   int `yaml:"step_interval_ms"`   // stepping period
	CommandTimeoutMs int `yaml:"command_timeout_ms"` // soft per-command deadline

	InitialPan  int `yaml:"initial_pan"`
	InitialTilt int `yaml:"initial_tilt"`
}

// Config aggregates all node configuration.
type Config struct {
	Node   string       `yaml:"node"`
	Server ServerConfig `yaml:"server"`
	Servo  ServoConfig  `yaml:"servo"`
	Motion MotionConfig `yaml:"motion"`
}

// Default returns the built-in configuration: the full 0-180 envelope with
// a 45 degree tilt safety floor, 5 degree steps every 15ms, and a 4s
// command timeout.
func Default() Config {
	return Config{
		Server: ServerConfig{URL: "ws://127.0.0.1:8080/"},
		Servo:  ServoConfig{PanPin: 18, TiltPin: 13},
		Motion: MotionConfig{
			PanMin:           0,
			PanMax:           180,
			TiltMin:          0,
			TiltMax:          180,
			TiltMinSafe:      45,
			StepSize:         5,
			StepIntervalMs:   15,
			CommandTimeoutMs: 4000,
			InitialPan:       90,
			InitialTilt:      90,
		},
	}
}

// Load reads a YAML file over the defaults: keys absent from the file keep
// their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the motion envelope and timing for consistency.
func (c *Config) Validate() error {
	if c.Server.URL == "" {
		return fmt.Errorf("server.url is required")
	}
	m := c.Motion
	if m.PanMin >= m.PanMax {
		return fmt.Errorf("pan_min (%d) must be below pan_max (%d)", m.PanMin, m.PanMax)
	}
	if m.TiltMin >= m.TiltMax {
		return fmt.Errorf("tilt_min (%d) must be below tilt_max (%d)", m.TiltMin, m.TiltMax)
	}
	if m.TiltMinSafe < m.TiltMin || m.TiltMinSafe > m.TiltMax {
		return fmt.Errorf("tilt_min_safe (%d) must lie within [%d, %d]", m.TiltMinSafe, m.TiltMin, m.TiltMax)
	}
	if m.StepSize < 1 {
		return fmt.Errorf("step_size must be at least 1, got %d", m.StepSize)
	}
	if m.StepIntervalMs < 1 {
		return fmt.Errorf("step_interval_ms must be at least 1, got %d", m.StepIntervalMs)
	}
	if m.CommandTimeoutMs < m.StepIntervalMs {
		return fmt.Errorf("command_timeout_ms (%d) must cover at least one step interval (%d)", m.CommandTimeoutMs, m.StepIntervalMs)
	}
	return nil
}

// StepInterval returns the stepping period.
func (c *Config) StepInterval() time.Duration {
	return time.Duration(c.Motion.StepIntervalMs) * time.Millisecond
}

// CommandTimeout returns the soft per-command deadline.
func (c *Config) CommandTimeout() time.Duration {
	return time.Duration(c.Motion.CommandTimeoutMs) * time.Millisecond
}
