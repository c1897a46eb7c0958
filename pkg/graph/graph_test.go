// SPDX-License-Identifier: AGPL-3.0-or-later

/*
simcore - a distributed digital-twin simulation platform core.

Copyright (C) 2025  simcore contributors

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.
*/

package graph

import (
	"testing"

	"simcore/pkg/value"
)

// Feature: GRAPH_CONTAINER
// Spec: spec/core/graph.md

func buildSampleGraph(t *testing.T) *Graph {
	t.Helper()
	g := New()
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}

	must(g.InsertNode(Node{ID: 1, Longitude: 1, Latitude: 1, Components: map[string]value.Value{
		"temperature": value.Number(20),
	}}))
	must(g.InsertNode(Node{ID: 2, Longitude: 2, Latitude: 2, Components: map[string]value.Value{
		"temperature": value.Number(21),
		"humidity":    value.Number(0.5),
	}}))
	must(g.InsertNode(Node{ID: 3, Longitude: 3, Latitude: 3}))

	must(g.InsertEdge(Edge{From: 1, To: 2, ID: 100, ComponentType: "power-line", ComponentData: value.Number(1000)}))

	g.SetGlobal("season", value.String("summer"))
	return g
}

func TestInsertEdge_RejectsUnknownEndpoint(t *testing.T) {
	g := New()
	if err := g.InsertNode(Node{ID: 1}); err != nil {
		t.Fatal(err)
	}
	if err := g.InsertEdge(Edge{From: 1, To: 99, ID: 1, ComponentType: "x", ComponentData: value.Null()}); err == nil {
		t.Fatal("expected error for unknown to-node")
	}
}

func TestInsertNode_RejectsDuplicateID(t *testing.T) {
	g := New()
	if err := g.InsertNode(Node{ID: 1}); err != nil {
		t.Fatal(err)
	}
	if err := g.InsertNode(Node{ID: 1}); err == nil {
		t.Fatal("expected error for duplicate node id")
	}
}

func TestGetAllNodesWith_OrderAndContent(t *testing.T) {
	g := buildSampleGraph(t)
	refs := g.GetAllNodesWith("temperature")
	if len(refs) != 2 {
		t.Fatalf("expected 2 nodes with temperature, got %d", len(refs))
	}
	if refs[0].ID != 1 || refs[1].ID != 2 {
		t.Fatalf("expected insertion order 1,2, got %d,%d", refs[0].ID, refs[1].ID)
	}
	if n, _ := refs[0].Value.AsNumber(); n != 20 {
		t.Fatalf("expected 20, got %v", n)
	}
}

func TestGetNodeComponent(t *testing.T) {
	g := buildSampleGraph(t)
	v, ok := g.GetNodeComponent(2, "humidity")
	if !ok {
		t.Fatal("expected humidity component on node 2")
	}
	if n, _ := v.AsNumber(); n != 0.5 {
		t.Fatalf("expected 0.5, got %v", n)
	}

	if _, ok := g.GetNodeComponent(3, "humidity"); ok {
		t.Fatal("node 3 should not have humidity")
	}
	if _, ok := g.GetNodeComponent(999, "humidity"); ok {
		t.Fatal("unknown node should not have a component")
	}
}

func TestGetEdgeComponent(t *testing.T) {
	g := buildSampleGraph(t)
	v, ok := g.GetEdgeComponent(100, "power-line")
	if !ok {
		t.Fatal("expected power-line component on edge 100")
	}
	if n, _ := v.AsNumber(); n != 1000 {
		t.Fatalf("expected 1000, got %v", n)
	}
	if _, ok := g.GetEdgeComponent(100, "other"); ok {
		t.Fatal("edge 100 should not match a different component name")
	}
}

func TestFilter_KeepsNodesTrimsComponentsAndDropsNonMatchingEdges(t *testing.T) {
	g := buildSampleGraph(t)
	filtered := g.Filter(map[string]bool{"temperature": true})

	if len(filtered.Nodes()) != 3 {
		t.Fatalf("expected all 3 nodes retained, got %d", len(filtered.Nodes()))
	}
	if _, ok := filtered.GetNodeComponent(2, "humidity"); ok {
		t.Fatal("humidity should have been filtered out")
	}
	if _, ok := filtered.GetNodeComponent(1, "temperature"); !ok {
		t.Fatal("temperature should have been retained")
	}
	if len(filtered.Edges()) != 0 {
		t.Fatal("power-line edge should have been dropped (not in declared names)")
	}
	if _, ok := filtered.GetGlobal("season"); ok {
		t.Fatal("season global should have been filtered out")
	}
}

func TestFilter_RetainsEdgeWhenComponentDeclared(t *testing.T) {
	g := buildSampleGraph(t)
	filtered := g.Filter(map[string]bool{"power-line": true})
	if len(filtered.Edges()) != 1 {
		t.Fatalf("expected power-line edge retained, got %d edges", len(filtered.Edges()))
	}
}

func TestSetNodeComponent_UpdatesColumnarIndex(t *testing.T) {
	g := buildSampleGraph(t)
	if err := g.SetNodeComponent(3, "temperature", value.Number(15)); err != nil {
		t.Fatal(err)
	}
	refs := g.GetAllNodesWith("temperature")
	if len(refs) != 3 {
		t.Fatalf("expected 3 nodes with temperature after update, got %d", len(refs))
	}
	if refs[2].ID != 3 {
		t.Fatalf("expected node 3 appended last in columnar order, got %d", refs[2].ID)
	}
}
