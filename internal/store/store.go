// SPDX-License-Identifier: AGPL-3.0-or-later

/*
simcore - a distributed digital-twin simulation platform core.

Copyright (C) 2025  simcore contributors

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.
*/

// Package store is the durable relational StateStore: simulations, the
// enqueue FIFO, and per-timestep nodes/edges/globals, with transactional
// per-step writes (spec.md §4.7).
package store

import (
	"context"

	"github.com/google/uuid"

	"simcore/pkg/graph"
	"simcore/pkg/simulation"
)

// Feature: STATE_STORE
// Spec: spec/core/state-store.md

// Store is the StateStore boundary (spec.md §4.7). PostgresStore is the
// durable, pgx-backed implementation; MemStore is an in-memory fake used by
// orchestrator tests where a real Postgres instance is not available.
type Store interface {
	// Enqueue persists a new Pending simulation and appends it to the FIFO
	// queue in one transaction.
	Enqueue(ctx context.Context, sim simulation.Simulation) error

	// DequeueHead atomically claims the oldest still-Pending queue entry,
	// transitioning it to Computing. Returns found=false if the queue is
	// empty.
	DequeueHead(ctx context.Context) (sim simulation.Simulation, found bool, err error)

	// GetSimulation loads a simulation by id.
	GetSimulation(ctx context.Context, id uuid.UUID) (simulation.Simulation, error)

	// GetSimulationByName loads a simulation by its unique name.
	GetSimulationByName(ctx context.Context, name string) (simulation.Simulation, error)

	// SetStatus updates a simulation's status and status_info.
	SetStatus(ctx context.Context, id uuid.UUID, status simulation.Status, info string) error

	// InsertFrame persists all nodes/edges/globals of timestep under a
	// single transaction (spec.md §4.7 "primary write pattern").
	InsertFrame(ctx context.Context, simID uuid.UUID, timestep int32, g *graph.Graph, schema graph.Schema) error

	// LoadFrame reconstructs the Graph persisted at timestep.
	LoadFrame(ctx context.Context, simID uuid.UUID, timestep int32, schema graph.Schema) (*graph.Graph, error)

	// MaxPersistedTimestep returns the highest timestep persisted for simID,
	// or -1 if none has been persisted yet.
	MaxPersistedTimestep(ctx context.Context, simID uuid.UUID) (int32, error)

	// DeleteSimulation removes a simulation and cascades to all its
	// persisted frames.
	DeleteSimulation(ctx context.Context, name string) error

	// RecordSetupAck persists that simulatorName has completed Setup for
	// simID (SPEC_FULL supplement: resolves the setup-ack Open Question).
	RecordSetupAck(ctx context.Context, simID uuid.UUID, simulatorName string) error

	// HasSetupAck reports whether simulatorName has already completed
	// Setup for simID, so an orchestrator restart does not re-invoke Setup.
	HasSetupAck(ctx context.Context, simID uuid.UUID, simulatorName string) (bool, error)
}
