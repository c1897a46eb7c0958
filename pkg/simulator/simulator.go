// SPDX-License-Identifier: AGPL-3.0-or-later

/*
simcore - a distributed digital-twin simulation platform core.

Copyright (C) 2025  simcore contributors

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.
*/

// Package simulator defines the stable contract every simulator worker
// implements: report I/O configuration, perform setup with the initial
// state, and execute one timestep consuming and returning a Graph
// (spec.md §4.5).
package simulator

import (
	"context"
	"time"

	"simcore/pkg/component"
	"simcore/pkg/graph"
)

// Feature: SIMULATOR_CONTRACT
// Spec: spec/core/simulator-contract.md

// IOConfig describes what a simulator consumes and produces: the component
// specs it knows about, and three disjoint partitions of their names
// (spec.md §4.5).
type IOConfig struct {
	Components     map[string]component.Spec
	RequiredInputs []string
	OptionalInputs []string
	Outputs        []string
}

// AllInputs returns RequiredInputs followed by OptionalInputs.
func (c IOConfig) AllInputs() []string {
	out := make([]string, 0, len(c.RequiredInputs)+len(c.OptionalInputs))
	out = append(out, c.RequiredInputs...)
	out = append(out, c.OptionalInputs...)
	return out
}

// Declares reports whether name is among Outputs.
func (c IOConfig) Declares(name string) bool {
	for _, o := range c.Outputs {
		if o == name {
			return true
		}
	}
	return false
}

// Simulator is the boundary a worker implements. Implementations may be a
// direct in-process Go type (for tests and single-binary deployments) or a
// thin client stub over the transport layer talking to a remote worker
// process.
type Simulator interface {
	// Name is the simulator's unique registered name.
	Name() string

	// GetIOConfig reports this simulator's component declarations. Called
	// at registration time and whenever the orchestrator needs to
	// recompute an input/output intersection.
	GetIOConfig(ctx context.Context) (IOConfig, error)

	// Setup is called exactly once per simulation lifetime on this
	// simulator, with the timestep-0 frame restricted to its declared
	// inputs and the simulation's step delta in milliseconds.
	Setup(ctx context.Context, initial *graph.Graph, stepDeltaMs int32) error

	// DoTimestep consumes a frame restricted to the declared inputs and
	// returns a frame whose component names are a subset of Outputs.
	DoTimestep(ctx context.Context, input *graph.Graph) (*graph.Graph, error)
}

// StepDelta converts a step_delta_ms value to a time.Duration, for
// implementations that want to reason about wall-clock pacing.
func StepDelta(stepDeltaMs int32) time.Duration {
	return time.Duration(stepDeltaMs) * time.Millisecond
}
