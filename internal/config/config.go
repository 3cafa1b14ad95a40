// Package config loads the rover daemon configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete rover configuration.
type Config struct {
	Scheduler SchedulerConfig `yaml:"scheduler"`
	FSM       FSMConfig       `yaml:"fsm"`
	Log       LogConfig       `yaml:"log"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Bench     BenchConfig     `yaml:"bench"`
	Persist   PersistConfig   `yaml:"persist"`
}

// SchedulerConfig defines the tick scheduler timing.
type SchedulerConfig struct {
	TimerFrequencyHz uint64        `yaml:"timer_frequency_hz"`
	BasePeriod       time.Duration `yaml:"base_period"`
	BudgetFraction   float64       `yaml:"budget_fraction"`
	QueueDepth       int           `yaml:"queue_depth"`
}

type FSMConfig struct {
	MachineID string `yaml:"machine_id"`
}

// LogConfig defines log level and destination. An empty File logs to stdout.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// BenchConfig defines the host-side bench HTTP surface. Empty Listen
// disables it.
type BenchConfig struct {
	Listen string `yaml:"listen"`
}

// PersistConfig defines snapshot persistence. Empty Dir and RegistryPath
// disable the respective sink.
type PersistConfig struct {
	Dir          string `yaml:"dir"`
	Format       string `yaml:"format"`
	RegistryPath string `yaml:"registry_path"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Scheduler: SchedulerConfig{
			TimerFrequencyHz: 1_000_000,
			BasePeriod:       time.Millisecond,
			BudgetFraction:   0.65,
			QueueDepth:       16,
		},
		FSM:     FSMConfig{MachineID: "rover-1"},
		Log:     LogConfig{Level: "info", MaxSizeMB: 10, MaxBackups: 3},
		Metrics: MetricsConfig{Enabled: true},
		Bench:   BenchConfig{Listen: "127.0.0.1:8088"},
		Persist: PersistConfig{Format: "yaml"},
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid field.
func (c *Config) Validate() error {
	var errs []error
	s := c.Scheduler
	if s.TimerFrequencyHz == 0 {
		errs = append(errs, errors.New("scheduler.timer_frequency_hz must be positive"))
	}
	if s.BasePeriod <= 0 {
		errs = append(errs, errors.New("scheduler.base_period must be positive"))
	}
	if s.BudgetFraction <= 0 || s.BudgetFraction > 1 {
		errs = append(errs, fmt.Errorf("scheduler.budget_fraction %v must be in (0, 1]", s.BudgetFraction))
	}
	if s.QueueDepth <= 0 {
		errs = append(errs, errors.New("scheduler.queue_depth must be positive"))
	}
	if c.FSM.MachineID == "" {
		errs = append(errs, errors.New("fsm.machine_id is required"))
	}
	switch c.Persist.Format {
	case "json", "yaml":
	default:
		errs = append(errs, fmt.Errorf("persist.format %q must be json or yaml", c.Persist.Format))
	}
	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 {
		errs = append(errs, errors.New("log.max_size_mb and log.max_backups must not be negative"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
