// SPDX-License-Identifier: AGPL-3.0-or-later

/*
simcore - a distributed digital-twin simulation platform core.

Copyright (C) 2025  simcore contributors

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.
*/

package controlplane

import (
	"context"
	"testing"

	"simcore/pkg/component"
	"simcore/pkg/graph"
	"simcore/pkg/simulation"
	"simcore/pkg/value"

	"simcore/internal/registry"
	"simcore/internal/store"
)

// Feature: CONTROL_PLANE
// Spec: spec/core/control-plane.md

type countingNotifier struct{ n int }

func (c *countingNotifier) Notify() { c.n++ }

func TestSubmitSimulation_PersistsAndEnqueues(t *testing.T) {
	ctx := context.Background()
	st := store.NewMem()
	reg := registry.New()
	notify := &countingNotifier{}
	cp := New(st, reg, notify)

	g := graph.New()
	_ = g.InsertNode(graph.Node{ID: 1, Components: map[string]value.Value{"temperature": value.Number(20)}})

	id, err := cp.SubmitSimulation(ctx, "weather-twin", g, 1000, 10, []string{"weather"})
	if err != nil {
		t.Fatal(err)
	}
	if id.String() == "" {
		t.Fatal("expected a non-empty id")
	}
	if notify.n != 1 {
		t.Fatalf("expected orchestrator to be notified once, got %d", notify.n)
	}

	sim, err := st.GetSimulation(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if sim.Status != simulation.StatusPending {
		t.Fatalf("expected Pending, got %v", sim.Status)
	}

	loaded, err := st.LoadFrame(ctx, id, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := loaded.GetNodeComponent(1, "temperature"); !ok {
		t.Fatal("expected timestep-0 frame to be persisted")
	}
}

func TestSubmitSimulation_DuplicateNameConflicts(t *testing.T) {
	ctx := context.Background()
	cp := New(store.NewMem(), registry.New(), nil)

	if _, err := cp.SubmitSimulation(ctx, "dup", graph.New(), 1000, 1, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := cp.SubmitSimulation(ctx, "dup", graph.New(), 1000, 1, nil); err == nil {
		t.Fatal("expected conflict on duplicate submission name")
	}
}

func TestGetSimulation_ByIDAndByName(t *testing.T) {
	ctx := context.Background()
	cp := New(store.NewMem(), registry.New(), nil)

	id, err := cp.SubmitSimulation(ctx, "lookup-me", graph.New(), 500, 20, nil)
	if err != nil {
		t.Fatal(err)
	}

	byName, err := cp.GetSimulation(ctx, "lookup-me")
	if err != nil {
		t.Fatal(err)
	}
	byID, err := cp.GetSimulation(ctx, id.String())
	if err != nil {
		t.Fatal(err)
	}
	if byName.ID != byID.ID || byName.MaxTimestepCount != 20 || byName.StepDeltaMs != 500 {
		t.Fatalf("expected consistent lookups, got %+v vs %+v", byName, byID)
	}
}

func TestStreamFrames_ErrorItemForUnpersistedFrame(t *testing.T) {
	ctx := context.Background()
	st := store.NewMem()
	cp := New(st, registry.New(), nil)

	id, err := cp.SubmitSimulation(ctx, "partial", graph.New(), 1000, 5, nil)
	if err != nil {
		t.Fatal(err)
	}

	var results []FrameResult
	err = cp.StreamFrames(ctx, id, []int32{0, 1, 2}, func(r FrameResult) error {
		results = append(results, r)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Err != nil || results[0].Frame == nil {
		t.Fatalf("expected frame 0 to load cleanly, got %+v", results[0])
	}
	if results[1].Err == nil {
		t.Fatal("expected frame 1 to be an error item, not an error return")
	}
}

func TestStreamFrames_StopsOnEmitError(t *testing.T) {
	ctx := context.Background()
	cp := New(store.NewMem(), registry.New(), nil)
	id, err := cp.SubmitSimulation(ctx, "stop-early", graph.New(), 1000, 5, nil)
	if err != nil {
		t.Fatal(err)
	}

	calls := 0
	stopErr := context.Canceled
	err = cp.StreamFrames(ctx, id, []int32{0, 1, 2}, func(r FrameResult) error {
		calls++
		return stopErr
	})
	if err != stopErr {
		t.Fatalf("expected stopErr to propagate, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected exactly one emit call before stopping, got %d", calls)
	}
}

func TestListComponentsAndSimulators(t *testing.T) {
	reg := registry.New()
	if err := reg.Register(registry.Info{
		Name:       "weather",
		Endpoint:   "localhost:9001",
		Components: []component.Spec{{Name: "temperature", Kind: component.KindNode, Structure: component.NewPrimitive(component.F64)}},
	}); err != nil {
		t.Fatal(err)
	}

	cp := New(store.NewMem(), reg, nil)

	components := cp.ListComponents()
	if _, ok := components["temperature"]; !ok {
		t.Fatal("expected temperature in component schema")
	}

	sims := cp.ListSimulators()
	if len(sims) != 1 || sims[0].Name != "weather" {
		t.Fatalf("expected one simulator named weather, got %+v", sims)
	}
	if len(sims[0].DeclaredOutputs) != 1 || sims[0].DeclaredOutputs[0] != "temperature" {
		t.Fatalf("expected declared outputs [temperature], got %v", sims[0].DeclaredOutputs)
	}
}

func TestDeleteSimulation_Cascades(t *testing.T) {
	ctx := context.Background()
	st := store.NewMem()
	cp := New(st, registry.New(), nil)

	id, err := cp.SubmitSimulation(ctx, "to-remove", graph.New(), 1000, 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := cp.DeleteSimulation(ctx, "to-remove"); err != nil {
		t.Fatal(err)
	}
	if _, err := st.GetSimulation(ctx, id); err == nil {
		t.Fatal("expected simulation to be gone after delete")
	}
}
