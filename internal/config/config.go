// Copyright 2026 The QueryDesk Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config loads and validates the server configuration from YAML.
// Validation is fail-fast: a config that parses but carries an out-of-range
// value stops startup instead of running with surprising thresholds.
package config

import (
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/querydesk/querydesk/internal/classify"
	"github.com/querydesk/querydesk/internal/route"
)

// Config is the root server configuration.
type Config struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	Debug         bool   `yaml:"debug"`
	LoggingToFile bool   `yaml:"logging-to-file"`
	LogDir        string `yaml:"log-dir"`
	// ManagementKey is a bcrypt hash guarding the management endpoints
	// (metrics, history). Empty disables them entirely.
	ManagementKey string `yaml:"management-key"`

	Classifier ClassifierConfig `yaml:"classifier"`
	Routing    RoutingConfig    `yaml:"routing"`
	History    HistoryConfig    `yaml:"history"`
}

// ClassifierConfig holds the detector thresholds and the optional external
// rule file.
type ClassifierConfig struct {
	MultiIntentThreshold   float64 `yaml:"multi-intent-threshold"`
	LowConfidenceThreshold float64 `yaml:"low-confidence-threshold"`
	MinSignalFloor         float64 `yaml:"min-signal-floor"`
	// RulesFile points at a YAML rule table; empty uses the builtin rules.
	RulesFile string `yaml:"rules-file"`
	// WatchRules enables hot reload of RulesFile on change.
	WatchRules bool `yaml:"watch-rules"`
}

// RoutingConfig holds operator routing overrides.
type RoutingConfig struct {
	Overrides []route.OverrideRule `yaml:"overrides"`
}

// HistoryConfig controls the decision history store.
type HistoryConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention-days"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Host:   "0.0.0.0",
		Port:   8317,
		LogDir: "logs",
		Classifier: ClassifierConfig{
			MultiIntentThreshold:   classify.DefaultMultiIntentThreshold,
			LowConfidenceThreshold: classify.DefaultLowConfidenceThreshold,
			MinSignalFloor:         classify.DefaultMinSignalFloor,
		},
		History: HistoryConfig{
			Enabled:       false,
			Path:          "history.db",
			RetentionDays: 90,
		},
	}
}

// Load reads and validates a configuration file. An empty path yields the
// defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the loaded configuration for out-of-range values.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config: port %d outside [1,65535]", c.Port)
	}
	if err := c.ClassifierConfig().Validate(); err != nil {
		return err
	}
	if c.ManagementKey != "" {
		if _, err := bcrypt.Cost([]byte(c.ManagementKey)); err != nil {
			return fmt.Errorf("config: management-key is not a bcrypt hash: %w", err)
		}
	}
	if c.History.Enabled && c.History.Path == "" {
		return fmt.Errorf("config: history enabled but no path set")
	}
	if c.History.RetentionDays < 0 {
		return fmt.Errorf("config: history retention-days %d is negative", c.History.RetentionDays)
	}
	return nil
}

// ClassifierConfig materializes the detector configuration.
func (c *Config) ClassifierConfig() classify.Config {
	return classify.Config{
		MultiIntentThreshold:   c.Classifier.MultiIntentThreshold,
		LowConfidenceThreshold: c.Classifier.LowConfidenceThreshold,
		MinSignalFloor:         c.Classifier.MinSignalFloor,
	}
}

// RouterConfig materializes the router configuration. The low-confidence
// threshold is shared with the detector so both layers agree on what
// "unreliable" means.
func (c *Config) RouterConfig() route.Config {
	return route.Config{
		LowConfidenceThreshold: c.Classifier.LowConfidenceThreshold,
		Overrides:              c.Routing.Overrides,
	}
}

// CheckManagementKey reports whether the presented key matches the stored
// bcrypt hash. It always fails when no key is configured.
func (c *Config) CheckManagementKey(key string) bool {
	if c.ManagementKey == "" || key == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(c.ManagementKey), []byte(key)) == nil
}
