// SPDX-License-Identifier: AGPL-3.0-or-later

/*
simcore - a distributed digital-twin simulation platform core.

Copyright (C) 2025  simcore contributors

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.
*/

// Package simulation defines the Simulation entity shared by StateStore,
// Orchestrator, and ControlPlane (spec.md §3).
package simulation

import "github.com/google/uuid"

// Feature: SIMULATION_ENTITY
// Spec: spec/core/simulation.md

// Status is a Simulation's lifecycle state (spec.md §3). The wire ordinal
// values are fixed (spec.md §8): Pending=0, Computing=1, Finished=2, Failed=3.
type Status int

const (
	StatusPending Status = iota
	StatusComputing
	StatusFinished
	StatusFailed
)

// String names the status for logging and persistence.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusComputing:
		return "Computing"
	case StatusFinished:
		return "Finished"
	case StatusFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Simulation is mutated only by Orchestrator and ControlPlane, and destroyed
// by explicit delete, which cascades to all persisted frames (spec.md §3).
type Simulation struct {
	ID                 uuid.UUID
	Name               string
	StepDeltaMs        int32
	MaxSteps           int32
	Status             Status
	StatusInfo         string
	SelectedSimulators []string
}

// New builds a Pending simulation with a freshly generated id.
func New(name string, stepDeltaMs, maxSteps int32, selectedSimulators []string) Simulation {
	return Simulation{
		ID:                 uuid.New(),
		Name:               name,
		StepDeltaMs:        stepDeltaMs,
		MaxSteps:           maxSteps,
		Status:             StatusPending,
		SelectedSimulators: append([]string(nil), selectedSimulators...),
	}
}
