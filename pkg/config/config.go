// Package config loads builder tunables from a YAML file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config carries the builder-session tunables.
type Config struct {
	Autosave  AutosaveConfig  `yaml:"autosave"`
	Execution ExecutionConfig `yaml:"execution"`
}

// AutosaveConfig tunes the dirty-check save loop.
type AutosaveConfig struct {
	// Interval between autosave ticks.
	Interval time.Duration `yaml:"interval"`
}

// ExecutionConfig tunes run correlation.
type ExecutionConfig struct {
	// Timeout before a run without a terminal event is abandoned.
	Timeout time.Duration `yaml:"timeout"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		Autosave:  AutosaveConfig{Interval: 5 * time.Second},
		Execution: ExecutionConfig{Timeout: 30 * time.Second},
	}
}

// Load reads the YAML file at path, filling unset fields from Default. An
// empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	if cfg.Autosave.Interval <= 0 {
		cfg.Autosave.Interval = Default().Autosave.Interval
	}

	if cfg.Execution.Timeout <= 0 {
		cfg.Execution.Timeout = Default().Execution.Timeout
	}

	return cfg, nil
}
