// SPDX-License-Identifier: AGPL-3.0-or-later

/*
simcore - a distributed digital-twin simulation platform core.

Copyright (C) 2025  simcore contributors

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.
*/

package graph

import (
	"strings"
	"testing"

	"simcore/pkg/component"
	"simcore/pkg/simerr"
	"simcore/pkg/value"
)

// Feature: GRAPH_WIRE
// Spec: spec/core/graph.md

func sampleSchema() Schema {
	return Schema{
		"temperature": {Name: "temperature", Kind: component.KindNode, Structure: component.NewPrimitive(component.F64)},
		"power-line":  {Name: "power-line", Kind: component.KindEdge, Structure: component.NewPrimitive(component.F64)},
		"season":      {Name: "season", Kind: component.KindGlobal, Structure: component.NewPrimitive(component.StringPrimitive)},
	}
}

func TestToWireFromWireRoundTrip(t *testing.T) {
	g := New()
	if err := g.InsertNode(Node{ID: 1, Components: map[string]value.Value{"temperature": value.Number(20)}}); err != nil {
		t.Fatal(err)
	}
	if err := g.InsertNode(Node{ID: 2}); err != nil {
		t.Fatal(err)
	}
	if err := g.InsertEdge(Edge{From: 1, To: 2, ID: 10, ComponentType: "power-line", ComponentData: value.Number(5)}); err != nil {
		t.Fatal(err)
	}
	g.SetGlobal("season", value.String("winter"))

	schema := sampleSchema()
	wire, err := ToWire(g, schema)
	if err != nil {
		t.Fatalf("ToWire: %v", err)
	}

	roundTripped, err := FromWire(wire, schema)
	if err != nil {
		t.Fatalf("FromWire: %v", err)
	}

	if v, ok := roundTripped.GetNodeComponent(1, "temperature"); !ok {
		t.Fatal("expected temperature on node 1")
	} else if n, _ := v.AsNumber(); n != 20 {
		t.Fatalf("expected 20, got %v", n)
	}
	if v, ok := roundTripped.GetEdgeComponent(10, "power-line"); !ok {
		t.Fatal("expected power-line on edge 10")
	} else if n, _ := v.AsNumber(); n != 5 {
		t.Fatalf("expected 5, got %v", n)
	}
	if v, ok := roundTripped.GetGlobal("season"); !ok {
		t.Fatal("expected season global")
	} else if s, _ := v.AsString(); s != "winter" {
		t.Fatalf("expected winter, got %v", s)
	}
}

func TestFromWire_UnknownComponentIsStructureMismatch(t *testing.T) {
	raw, _ := value.Encode(value.Number(1))
	wire := WireGraph{
		Nodes: []WireNode{{ID: 1, Components: map[string][]byte{"unknown": raw}}},
	}
	_, err := FromWire(wire, sampleSchema())
	if err == nil {
		t.Fatal("expected StructureMismatch for unknown component")
	}
	if simerr.KindOf(err) != simerr.KindStructureMismatch {
		t.Fatalf("expected StructureMismatch, got %v", simerr.KindOf(err))
	}
}

func TestFromWire_StructureMismatchNamesOffendingEntity(t *testing.T) {
	raw, _ := value.Encode(value.String("not a number"))
	wire := WireGraph{
		Nodes: []WireNode{{ID: 7, Components: map[string][]byte{"temperature": raw}}},
	}
	_, err := FromWire(wire, sampleSchema())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "node[0] 7") || !strings.Contains(err.Error(), `"temperature"`) {
		t.Fatalf("expected error to name node[0] 7 and component \"temperature\", got %v", err)
	}
}
