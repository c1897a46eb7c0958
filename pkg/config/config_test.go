// SPDX-License-Identifier: AGPL-3.0-or-later

/*
simcore - a distributed digital-twin simulation platform core.

Copyright (C) 2025  simcore contributors

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.
*/

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_NotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	if !errors.Is(err, ErrConfigNotFound) {
		t.Fatalf("expected ErrConfigNotFound, got %v", err)
	}
}

func TestLoad_AppliesDefaultsAndOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "simcore.yml")
	content := `
databaseUrl: "postgres://localhost/simcore"
listenAddr: ":9000"
connectorAddr: ":9001"
pollInterval: 2s
maxConcurrentSimulations: 8
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.DatabaseURL != "postgres://localhost/simcore" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.ListenAddr != ":9000" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.PollInterval != 2*time.Second {
		t.Errorf("PollInterval = %v", cfg.PollInterval)
	}
	if cfg.MaxConcurrentSimulations != 8 {
		t.Errorf("MaxConcurrentSimulations = %d", cfg.MaxConcurrentSimulations)
	}
	// Defaults not overridden in the YAML should survive.
	if cfg.StepTimeout != Default().StepTimeout {
		t.Errorf("StepTimeout = %v, want default %v", cfg.StepTimeout, Default().StepTimeout)
	}
	if cfg.PredictorTrainFraction != 0.95 {
		t.Errorf("PredictorTrainFraction = %v", cfg.PredictorTrainFraction)
	}
}

func TestValidate_MissingFields(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing database url", Config{ListenAddr: ":1", ConnectorAddr: ":2", PollInterval: time.Second, MaxConcurrentSimulations: 1}},
		{"missing listen addr", Config{DatabaseURL: "x", ConnectorAddr: ":2", PollInterval: time.Second, MaxConcurrentSimulations: 1}},
		{"missing connector addr", Config{DatabaseURL: "x", ListenAddr: ":1", PollInterval: time.Second, MaxConcurrentSimulations: 1}},
		{"zero poll interval", Config{DatabaseURL: "x", ListenAddr: ":1", ConnectorAddr: ":2", MaxConcurrentSimulations: 1}},
		{"zero concurrency", Config{DatabaseURL: "x", ListenAddr: ":1", ConnectorAddr: ":2", PollInterval: time.Second}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestDefault_IsValidModuloRequiredFields(t *testing.T) {
	cfg := Default()
	cfg.DatabaseURL = "postgres://localhost/simcore"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default()+DatabaseURL should validate: %v", err)
	}
}
