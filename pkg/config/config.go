// SPDX-License-Identifier: AGPL-3.0-or-later

/*
simcore - a distributed digital-twin simulation platform core.

Copyright (C) 2025  simcore contributors

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.
*/

// Package config defines the simcore manager configuration schema and
// helpers for loading and validating config files.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Feature: CORE_CONFIG
// Spec: spec/core/config.md

// ErrConfigNotFound is returned when the config file does not exist at the
// given path.
var ErrConfigNotFound = errors.New("simcore config not found")

// Config is the runtime configuration of the simcore manager. Per spec.md
// §6, the core takes a DB URL, a listen address, a connector address, and a
// poll interval; everything else here tunes those four knobs.
type Config struct {
	// DatabaseURL is the Postgres connection string for the StateStore.
	DatabaseURL string `yaml:"databaseUrl"`
	// ListenAddr is the address the ControlPlane RPC surface binds to.
	ListenAddr string `yaml:"listenAddr"`
	// ConnectorAddr is the address simulators register against.
	ConnectorAddr string `yaml:"connectorAddr"`
	// PollInterval is the Orchestrator's fallback poll interval.
	PollInterval time.Duration `yaml:"pollInterval"`
	// MaxConcurrentSimulations bounds how many simulations a single manager
	// process owns at once.
	MaxConcurrentSimulations int `yaml:"maxConcurrentSimulations"`
	// StepTimeout bounds a single simulator do_timestep call; exceeding it
	// counts as a transient transport error. Zero disables the bound.
	StepTimeout time.Duration `yaml:"stepTimeout"`
	// RetryBackoff tunes the transient-transport-error retry policy.
	RetryBackoff RetryConfig `yaml:"retryBackoff"`
	// PredictorTrainFraction is the default training fraction for the VAR
	// predictor (spec.md §4.10 default is 0.95).
	PredictorTrainFraction float64 `yaml:"predictorTrainFraction"`
	// RegistryStaleCutoff is how long a registered simulator may go without
	// a setup-handshake touch before the orchestrator's poll loop prunes it.
	// Zero disables pruning.
	RegistryStaleCutoff time.Duration `yaml:"registryStaleCutoff"`
	// Verbose enables debug-level logging.
	Verbose bool `yaml:"verbose"`
}

// RetryConfig tunes bounded exponential backoff for transient transport
// errors between the orchestrator and a simulator (spec.md §4.8, §7).
type RetryConfig struct {
	MaxAttempts int           `yaml:"maxAttempts"`
	BaseDelay   time.Duration `yaml:"baseDelay"`
	MaxDelay    time.Duration `yaml:"maxDelay"`
}

// Default returns a Config populated with conservative defaults.
func Default() Config {
	return Config{
		ListenAddr:               ":8700",
		ConnectorAddr:            ":8701",
		PollInterval:             5 * time.Second,
		MaxConcurrentSimulations: 4,
		StepTimeout:              30 * time.Second,
		RetryBackoff: RetryConfig{
			MaxAttempts: 5,
			BaseDelay:   200 * time.Millisecond,
			MaxDelay:    10 * time.Second,
		},
		PredictorTrainFraction: 0.95,
		RegistryStaleCutoff:    5 * time.Minute,
	}
}

// Load reads and validates a YAML config file at path, applying Default()
// for any unset fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required fields are populated.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("config: databaseUrl is required")
	}
	if c.ListenAddr == "" {
		return errors.New("config: listenAddr is required")
	}
	if c.ConnectorAddr == "" {
		return errors.New("config: connectorAddr is required")
	}
	if c.PollInterval <= 0 {
		return errors.New("config: pollInterval must be positive")
	}
	if c.MaxConcurrentSimulations <= 0 {
		return errors.New("config: maxConcurrentSimulations must be positive")
	}
	return nil
}
