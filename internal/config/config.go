// Package config loads the daemon configuration from YAML.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mcuadros/go-defaults"
	"gopkg.in/yaml.v3"
)

// DeviceTypeConfig enables one concrete device type for discovery.
type DeviceTypeConfig struct {
	// Type is the stable device type tag (e.g. "blood-pressure-cuff").
	Type string `yaml:"type"`
	// Services are the advertised service UUIDs identifying the type.
	Services []string `yaml:"services"`
}

// Config holds all daemon configuration.
type Config struct {
	// StorePath is the JSON file holding paired-device records.
	StorePath string `yaml:"store_path"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" default:"info"`
	// DiscardAfterSeconds drops a silent discovered device.
	DiscardAfterSeconds int `yaml:"discard_after_seconds" default:"30"`
	// DeviceTypes lists the device types the central discovers.
	DeviceTypes []DeviceTypeConfig `yaml:"device_types"`
}

// DefaultConfigPath returns the default config file location.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "vitalink.yaml"
	}
	return filepath.Join(home, ".config", "vitalink", "config.yaml")
}

// Default returns a Config with default values applied.
func Default() *Config {
	cfg := &Config{}
	defaults.SetDefaults(cfg)

	home, err := os.UserHomeDir()
	if err == nil {
		cfg.StorePath = filepath.Join(home, ".local", "share", "vitalink", "devices.json")
	} else {
		cfg.StorePath = "devices.json"
	}

	cfg.DeviceTypes = []DeviceTypeConfig{
		{Type: "weight-scale", Services: []string{"181d"}},
		{Type: "blood-pressure-cuff", Services: []string{"1810"}},
	}
	return cfg
}

// Load reads the config file at path, falling back to defaults when the file
// does not exist.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks config invariants.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q (must be debug, info, warn, or error)", c.LogLevel)
	}

	if c.StorePath == "" {
		return fmt.Errorf("store_path must not be empty")
	}
	if c.DiscardAfterSeconds <= 0 {
		return fmt.Errorf("discard_after_seconds must be positive")
	}

	seen := make(map[string]bool, len(c.DeviceTypes))
	for _, dt := range c.DeviceTypes {
		if dt.Type == "" {
			return fmt.Errorf("device type entry with empty type tag")
		}
		if seen[dt.Type] {
			return fmt.Errorf("duplicate device type %q", dt.Type)
		}
		seen[dt.Type] = true
		if len(dt.Services) == 0 {
			return fmt.Errorf("device type %q lists no services", dt.Type)
		}
	}
	return nil
}
