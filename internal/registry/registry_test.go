// SPDX-License-Identifier: AGPL-3.0-or-later

/*
simcore - a distributed digital-twin simulation platform core.

Copyright (C) 2025  simcore contributors

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.
*/

package registry

import (
	"testing"
	"time"

	"simcore/pkg/component"
	"simcore/pkg/simerr"
)

// Feature: SIMULATOR_REGISTRY
// Spec: spec/core/simulator-registry.md

func tempSpec() component.Spec {
	return component.Spec{Name: "temperature", Kind: component.KindNode, Structure: component.NewPrimitive(component.F64)}
}

func TestRegister_RejectsSchemaConflict(t *testing.T) {
	r := New()
	if err := r.Register(Info{Name: "weather", Endpoint: "localhost:9001", Components: []component.Spec{tempSpec()}}); err != nil {
		t.Fatal(err)
	}

	conflicting := component.Spec{Name: "temperature", Kind: component.KindNode, Structure: component.NewPrimitive(component.StringPrimitive)}
	err := r.Register(Info{Name: "load-flow", Endpoint: "localhost:9002", Components: []component.Spec{conflicting}})
	if err == nil {
		t.Fatal("expected SchemaConflict")
	}
	if !simerr.Is(err, simerr.KindSchemaConflict) {
		t.Fatalf("expected SchemaConflict kind, got %v", simerr.KindOf(err))
	}

	if _, ok := r.Get("load-flow"); ok {
		t.Fatal("rejected registration must not be applied")
	}
}

func TestRegister_SameSimulatorReRegisterSameSpecOK(t *testing.T) {
	r := New()
	info := Info{Name: "weather", Endpoint: "localhost:9001", Components: []component.Spec{tempSpec()}}
	if err := r.Register(info); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(info); err != nil {
		t.Fatalf("re-registering the same declaration should succeed, got %v", err)
	}
}

func TestList_OrderedByRegistrationTime(t *testing.T) {
	r := New()
	_ = r.Register(Info{Name: "b", Components: nil})
	_ = r.Register(Info{Name: "a", Components: nil})
	_ = r.Register(Info{Name: "c", Components: nil})

	list := r.List()
	if len(list) != 3 || list[0].Name != "b" || list[1].Name != "a" || list[2].Name != "c" {
		t.Fatalf("expected registration order b,a,c, got %v", list)
	}
}

func TestPruneStale_RemovesOnlyUnreachableEntries(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r := New()
	r.now = func() time.Time { return now }

	_ = r.Register(Info{Name: "stale"})
	_ = r.Register(Info{Name: "fresh"})

	now = now.Add(10 * time.Minute)
	r.Touch("fresh")

	removed := r.PruneStale(5 * time.Minute)
	if len(removed) != 1 || removed[0] != "stale" {
		t.Fatalf("expected only 'stale' pruned, got %v", removed)
	}
	if _, ok := r.Get("fresh"); !ok {
		t.Fatal("fresh entry should survive pruning")
	}
	if _, ok := r.Get("stale"); ok {
		t.Fatal("stale entry should have been pruned")
	}
}

func TestUnregister(t *testing.T) {
	r := New()
	_ = r.Register(Info{Name: "weather"})
	r.Unregister("weather")
	if _, ok := r.Get("weather"); ok {
		t.Fatal("expected weather to be removed")
	}
	if len(r.List()) != 0 {
		t.Fatal("expected empty registry after unregister")
	}
}

func TestComponentSchema(t *testing.T) {
	r := New()
	_ = r.Register(Info{Name: "weather", Components: []component.Spec{tempSpec()}})
	schema := r.ComponentSchema()
	if _, ok := schema["temperature"]; !ok {
		t.Fatal("expected temperature in component schema")
	}
}
