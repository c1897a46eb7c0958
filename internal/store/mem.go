// SPDX-License-Identifier: AGPL-3.0-or-later

/*
simcore - a distributed digital-twin simulation platform core.

Copyright (C) 2025  simcore contributors

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.
*/

package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"simcore/pkg/graph"
	"simcore/pkg/simerr"
	"simcore/pkg/simulation"
)

// Feature: STATE_STORE_MEM
// Spec: spec/core/state-store.md

type frameKey struct {
	simID    uuid.UUID
	timestep int32
}

// MemStore is an in-memory Store used by orchestrator tests in place of a
// real Postgres instance (SPEC_FULL §10): it implements the same Store
// interface as PostgresStore, so orchestrator code is exercised unchanged.
type MemStore struct {
	mu sync.Mutex

	simsByID   map[uuid.UUID]*simulation.Simulation
	simsByName map[string]uuid.UUID
	queue      []uuid.UUID

	frames    map[frameKey]*graph.Graph
	maxStep   map[uuid.UUID]int32
	setupAcks map[uuid.UUID]map[string]bool
}

var _ Store = (*MemStore)(nil)

// NewMem builds an empty MemStore.
func NewMem() *MemStore {
	return &MemStore{
		simsByID:   make(map[uuid.UUID]*simulation.Simulation),
		simsByName: make(map[string]uuid.UUID),
		frames:     make(map[frameKey]*graph.Graph),
		maxStep:    make(map[uuid.UUID]int32),
		setupAcks:  make(map[uuid.UUID]map[string]bool),
	}
}

func (m *MemStore) Enqueue(ctx context.Context, sim simulation.Simulation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.simsByName[sim.Name]; exists {
		return simerr.New(simerr.KindConflict, fmt.Sprintf("simulation name %q already exists", sim.Name))
	}
	stored := sim
	m.simsByID[sim.ID] = &stored
	m.simsByName[sim.Name] = sim.ID
	m.queue = append(m.queue, sim.ID)
	m.maxStep[sim.ID] = -1
	return nil
}

func (m *MemStore) DequeueHead(ctx context.Context) (simulation.Simulation, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, id := range m.queue {
		sim := m.simsByID[id]
		if sim.Status == simulation.StatusPending {
			sim.Status = simulation.StatusComputing
			m.queue = append(m.queue[:i:i], m.queue[i+1:]...)
			return *sim, true, nil
		}
	}
	return simulation.Simulation{}, false, nil
}

func (m *MemStore) GetSimulation(ctx context.Context, id uuid.UUID) (simulation.Simulation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sim, ok := m.simsByID[id]
	if !ok {
		return simulation.Simulation{}, simerr.New(simerr.KindNotFound, "simulation not found")
	}
	return *sim, nil
}

func (m *MemStore) GetSimulationByName(ctx context.Context, name string) (simulation.Simulation, error) {
	m.mu.Lock()
	id, ok := m.simsByName[name]
	m.mu.Unlock()
	if !ok {
		return simulation.Simulation{}, simerr.New(simerr.KindNotFound, fmt.Sprintf("simulation %q not found", name))
	}
	return m.GetSimulation(ctx, id)
}

func (m *MemStore) SetStatus(ctx context.Context, id uuid.UUID, status simulation.Status, info string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sim, ok := m.simsByID[id]
	if !ok {
		return simerr.New(simerr.KindNotFound, "simulation not found")
	}
	sim.Status = status
	sim.StatusInfo = info
	return nil
}

func (m *MemStore) InsertFrame(ctx context.Context, simID uuid.UUID, timestep int32, g *graph.Graph, schema graph.Schema) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.simsByID[simID]; !ok {
		return simerr.New(simerr.KindNotFound, "simulation not found")
	}
	m.frames[frameKey{simID, timestep}] = g
	if timestep > m.maxStep[simID] {
		m.maxStep[simID] = timestep
	}
	return nil
}

func (m *MemStore) LoadFrame(ctx context.Context, simID uuid.UUID, timestep int32, schema graph.Schema) (*graph.Graph, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.frames[frameKey{simID, timestep}]
	if !ok {
		return nil, simerr.New(simerr.KindNotFound, fmt.Sprintf("frame %d not found", timestep))
	}
	return g, nil
}

func (m *MemStore) MaxPersistedTimestep(ctx context.Context, simID uuid.UUID) (int32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	max, ok := m.maxStep[simID]
	if !ok {
		return -1, nil
	}
	return max, nil
}

func (m *MemStore) DeleteSimulation(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.simsByName[name]
	if !ok {
		return simerr.New(simerr.KindNotFound, fmt.Sprintf("simulation %q not found", name))
	}
	delete(m.simsByName, name)
	delete(m.simsByID, id)
	delete(m.maxStep, id)
	delete(m.setupAcks, id)
	for k := range m.frames {
		if k.simID == id {
			delete(m.frames, k)
		}
	}
	return nil
}

func (m *MemStore) RecordSetupAck(ctx context.Context, simID uuid.UUID, simulatorName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setupAcks[simID] == nil {
		m.setupAcks[simID] = make(map[string]bool)
	}
	m.setupAcks[simID][simulatorName] = true
	return nil
}

func (m *MemStore) HasSetupAck(ctx context.Context, simID uuid.UUID, simulatorName string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setupAcks[simID][simulatorName], nil
}
