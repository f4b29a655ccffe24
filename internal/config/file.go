package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Config aggregates every durable knob the binary owns, in the shape a
// YAML config file overlays.
type Config struct {
	API     APIConfig     `yaml:"api"`
	View    ViewConfig    `yaml:"view"`
	Fleet   FleetConfig   `yaml:"fleet"`
	History HistoryConfig `yaml:"history"`
}

// NewConfig builds the effective configuration: defaults first, then
// the YAML file at path overlaid when one is given, then environment
// overrides. A missing file that was explicitly requested is an error.
func NewConfig(path string) (*Config, error) {
	cfg := &Config{
		API:     DefaultAPIConfig(),
		Fleet:   DefaultFleetConfig(),
		History: DefaultHistoryConfig(),
	}

	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(content, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.Fleet.ApplyEnv()
	return cfg, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.API.Validate(); err != nil {
		return err
	}
	return c.Fleet.Validate()
}
