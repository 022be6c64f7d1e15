// Package config loads run configuration from a YAML file. The file
// mirrors the CLI flags; flags set on the command line override file
// values.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the file form of a validation run's settings.
type Config struct {
	// Source is the directory holding event log files.
	Source string `yaml:"source,omitempty"`

	// Patterns are glob patterns selecting log files below Source.
	Patterns []string `yaml:"patterns,omitempty"`

	// Interval is the analysis window: a single date or
	// "YYYY-MM-DD-YYYY-MM-DD".
	Interval string `yaml:"interval,omitempty"`

	// OutputRoot is where synthesized output files are written.
	OutputRoot string `yaml:"output_root,omitempty"`

	// EventOutput selects full event documents over tuple output.
	EventOutput bool `yaml:"event_output,omitempty"`

	// GenerateBefore enables synthesizing events that predate the
	// analysis window.
	GenerateBefore bool `yaml:"generate_before,omitempty"`

	// RequireValidation reports keys that have events but no
	// validation snapshot.
	RequireValidation bool `yaml:"require_validation,omitempty"`

	// ExpandDays widens log-file selection beyond the interval. Zero
	// means the default of one day.
	ExpandDays int `yaml:"expand_days,omitempty"`

	// Workers bounds the map and reduce pools. Zero means NumCPU.
	Workers int `yaml:"workers,omitempty"`
}

// Load reads and parses a config YAML file. Relative Source and
// OutputRoot paths resolve against the config file's directory, so a
// config stays valid regardless of the working directory it is invoked
// from. Unknown fields are rejected to catch typos.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	base := filepath.Dir(path)
	if cfg.Source != "" && !filepath.IsAbs(cfg.Source) {
		cfg.Source = filepath.Join(base, cfg.Source)
	}
	if cfg.OutputRoot != "" && !filepath.IsAbs(cfg.OutputRoot) {
		cfg.OutputRoot = filepath.Join(base, cfg.OutputRoot)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Workers < 0 {
		return fmt.Errorf("workers must not be negative")
	}
	if cfg.ExpandDays < 0 {
		return fmt.Errorf("expand_days must not be negative")
	}
	return nil
}
