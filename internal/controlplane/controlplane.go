// SPDX-License-Identifier: AGPL-3.0-or-later

/*
simcore - a distributed digital-twin simulation platform core.

Copyright (C) 2025  simcore contributors

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.
*/

// Package controlplane implements the client-facing operations of spec.md
// §4.9: submit, status lookup, frame streaming, and registry introspection.
package controlplane

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"simcore/pkg/component"
	"simcore/pkg/graph"
	"simcore/pkg/simerr"
	"simcore/pkg/simulation"

	"simcore/internal/registry"
	"simcore/internal/store"
)

// Feature: CONTROL_PLANE
// Spec: spec/core/control-plane.md

// Notifier pokes the orchestrator's poll loop after a new simulation is
// enqueued, without the control plane depending on the orchestrator package
// directly.
type Notifier interface {
	Notify()
}

// ControlPlane is the service backing cmd/simcorectl and the transport
// layer's ControlPlane RPC surface.
type ControlPlane struct {
	store    store.Store
	registry *registry.Registry
	notify   Notifier
}

// New builds a ControlPlane over the given store and registry. notify may
// be nil (e.g. in tests that only exercise read operations).
func New(st store.Store, reg *registry.Registry, notify Notifier) *ControlPlane {
	return &ControlPlane{store: st, registry: reg, notify: notify}
}

// SubmitSimulation persists the initial Graph at timestep 0, enqueues the
// simulation, and wakes the orchestrator (spec.md §4.9). A duplicate name is
// Conflict.
func (c *ControlPlane) SubmitSimulation(ctx context.Context, name string, initial *graph.Graph, stepDeltaMs, maxSteps int32, selectedSimulators []string) (uuid.UUID, error) {
	sim := simulation.New(name, stepDeltaMs, maxSteps, selectedSimulators)

	if err := c.store.Enqueue(ctx, sim); err != nil {
		return uuid.Nil, err
	}
	if initial == nil {
		initial = graph.New()
	}
	if err := c.store.InsertFrame(ctx, sim.ID, 0, initial, c.registry.ComponentSchema()); err != nil {
		return uuid.Nil, simerr.Wrap(simerr.KindStorage, "persisting timestep-0 frame", err)
	}
	if c.notify != nil {
		c.notify.Notify()
	}
	return sim.ID, nil
}

// SimulationStatus is the read projection spec.md §4.9's get_simulation
// returns.
type SimulationStatus struct {
	ID               uuid.UUID
	Name             string
	Status           simulation.Status
	StatusInfo       string
	TimestepCount    int32
	MaxTimestepCount int32
	StepDeltaMs      int32
}

// GetSimulation resolves id_or_name (tried as a uuid first, then as a name)
// and reports its current status and persisted frame extent.
func (c *ControlPlane) GetSimulation(ctx context.Context, idOrName string) (SimulationStatus, error) {
	sim, err := c.resolve(ctx, idOrName)
	if err != nil {
		return SimulationStatus{}, err
	}
	maxStep, err := c.store.MaxPersistedTimestep(ctx, sim.ID)
	if err != nil {
		return SimulationStatus{}, simerr.Wrap(simerr.KindStorage, "loading max persisted timestep", err)
	}
	return SimulationStatus{
		ID:               sim.ID,
		Name:             sim.Name,
		Status:           sim.Status,
		StatusInfo:       sim.StatusInfo,
		TimestepCount:    maxStep,
		MaxTimestepCount: sim.MaxSteps,
		StepDeltaMs:      sim.StepDeltaMs,
	}, nil
}

func (c *ControlPlane) resolve(ctx context.Context, idOrName string) (simulation.Simulation, error) {
	if id, err := uuid.Parse(idOrName); err == nil {
		return c.store.GetSimulation(ctx, id)
	}
	return c.store.GetSimulationByName(ctx, idOrName)
}

// FrameResult pairs a requested timestep with its loaded frame or the error
// that occurred loading it (spec.md §4.9: "requests for un-persisted frames
// yield an error item rather than blocking").
type FrameResult struct {
	Timestep int32
	Frame    *graph.Graph
	Err      error
}

// StreamFrames loads each requested timestep for id in order, calling emit
// for each one as it becomes available. Frames are loaded lazily, one at a
// time, so a caller may stop consuming (e.g. by returning a non-nil error
// from emit) without the remaining requests being loaded at all.
func (c *ControlPlane) StreamFrames(ctx context.Context, id uuid.UUID, frameNrs []int32, emit func(FrameResult) error) error {
	schema := c.registry.ComponentSchema()
	for _, nr := range frameNrs {
		g, err := c.store.LoadFrame(ctx, id, nr, schema)
		result := FrameResult{Timestep: nr}
		if err != nil {
			result.Err = err
		} else {
			result.Frame = g
		}
		if err := emit(result); err != nil {
			return err
		}
	}
	return nil
}

// ListComponents returns the union of every registered simulator's declared
// ComponentSpecs (spec.md §4.9).
func (c *ControlPlane) ListComponents() map[string]component.Spec {
	return c.registry.ComponentSchema()
}

// SimulatorSummary is one entry of list_simulators (spec.md §4.9).
type SimulatorSummary struct {
	Name            string
	DeclaredOutputs []string
}

// ListSimulators returns the registered simulators' names and declared
// outputs, in registration order.
func (c *ControlPlane) ListSimulators() []SimulatorSummary {
	infos := c.registry.List()
	out := make([]SimulatorSummary, 0, len(infos))
	for _, info := range infos {
		outputs := make([]string, 0, len(info.Components))
		for _, spec := range info.Components {
			outputs = append(outputs, spec.Name)
		}
		out = append(out, SimulatorSummary{Name: info.Name, DeclaredOutputs: outputs})
	}
	return out
}

// DeleteSimulation removes name and cascades to its frames and queue entry
// (spec.md §4.9).
func (c *ControlPlane) DeleteSimulation(ctx context.Context, name string) error {
	if err := c.store.DeleteSimulation(ctx, name); err != nil {
		return fmt.Errorf("deleting simulation %q: %w", name, err)
	}
	return nil
}
