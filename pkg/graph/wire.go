// SPDX-License-Identifier: AGPL-3.0-or-later

/*
simcore - a distributed digital-twin simulation platform core.

Copyright (C) 2025  simcore contributors

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.
*/

package graph

import (
	"fmt"

	"simcore/pkg/component"
	"simcore/pkg/simerr"
	"simcore/pkg/value"
)

// Feature: GRAPH_WIRE
// Spec: spec/core/graph.md (§4.3 from_wire/to_wire)

// WireNode is the transport representation of a Node: encoded Values keyed
// by component name.
type WireNode struct {
	Longitude  float64
	Latitude   float64
	ID         uint64
	Components map[string][]byte
}

// WireEdge is the transport representation of an Edge.
type WireEdge struct {
	From          uint64
	To            uint64
	ID            uint64
	ComponentType string
	ComponentData []byte
}

// WireGraph is the transport representation of a Graph (spec.md §6
// "Persisted state layout" / the SimulatorRPC frame payload).
type WireGraph struct {
	Nodes   []WireNode
	Edges   []WireEdge
	Globals map[string][]byte
}

// Schema maps a component name to its ComponentSpec, as SimulatorRegistry or
// StateStore would supply it.
type Schema map[string]component.Spec

// FromWire validates every carried component against schema and builds a
// Graph, yielding StructureMismatch at the offending (node/edge index,
// component name) per spec.md §4.3.
func FromWire(w WireGraph, schema Schema) (*Graph, error) {
	g := New()

	for i, wn := range w.Nodes {
		n := Node{Longitude: wn.Longitude, Latitude: wn.Latitude, ID: wn.ID, Components: map[string]value.Value{}}
		for name, raw := range wn.Components {
			spec, ok := schema[name]
			if !ok {
				return nil, simerr.New(simerr.KindStructureMismatch, fmt.Sprintf("node[%d] %d: unknown component %q", i, wn.ID, name))
			}
			v, err := value.Decode(raw)
			if err != nil {
				return nil, simerr.Wrap(simerr.KindStructureMismatch, fmt.Sprintf("node[%d] %d: component %q", i, wn.ID, name), err)
			}
			decoded, err := spec.Structure.DecodeAs(v)
			if err != nil {
				return nil, simerr.Wrap(simerr.KindStructureMismatch, fmt.Sprintf("node[%d] %d: component %q", i, wn.ID, name), err)
			}
			n.Components[name] = decoded
		}
		if err := g.InsertNode(n); err != nil {
			return nil, err
		}
	}

	for i, we := range w.Edges {
		spec, ok := schema[we.ComponentType]
		if !ok {
			return nil, simerr.New(simerr.KindStructureMismatch, fmt.Sprintf("edge[%d] %d: unknown component %q", i, we.ID, we.ComponentType))
		}
		v, err := value.Decode(we.ComponentData)
		if err != nil {
			return nil, simerr.Wrap(simerr.KindStructureMismatch, fmt.Sprintf("edge[%d] %d: component %q", i, we.ID, we.ComponentType), err)
		}
		decoded, err := spec.Structure.DecodeAs(v)
		if err != nil {
			return nil, simerr.Wrap(simerr.KindStructureMismatch, fmt.Sprintf("edge[%d] %d: component %q", i, we.ID, we.ComponentType), err)
		}
		if err := g.InsertEdge(Edge{From: we.From, To: we.To, ID: we.ID, ComponentType: we.ComponentType, ComponentData: decoded}); err != nil {
			return nil, err
		}
	}

	for name, raw := range w.Globals {
		spec, ok := schema[name]
		if !ok {
			return nil, simerr.New(simerr.KindStructureMismatch, fmt.Sprintf("global: unknown component %q", name))
		}
		v, err := value.Decode(raw)
		if err != nil {
			return nil, simerr.Wrap(simerr.KindStructureMismatch, fmt.Sprintf("global %q", name), err)
		}
		decoded, err := spec.Structure.DecodeAs(v)
		if err != nil {
			return nil, simerr.Wrap(simerr.KindStructureMismatch, fmt.Sprintf("global %q", name), err)
		}
		g.SetGlobal(name, decoded)
	}

	return g, nil
}

// ToWire serializes a Graph. Every edge MUST carry a component_data Value;
// a missing one is an implementation bug and InternalInvariant (spec.md
// §4.3). InsertEdge accepts an edge with an empty ComponentType, so such an
// edge reaches ToWire and is reported here as a programmer error rather than
// a validation error.
func ToWire(g *Graph, schema Schema) (WireGraph, error) {
	w := WireGraph{Globals: map[string][]byte{}}

	for _, n := range g.nodes {
		wn := WireNode{Longitude: n.Longitude, Latitude: n.Latitude, ID: n.ID, Components: map[string][]byte{}}
		for name, v := range n.Components {
			if _, ok := schema[name]; !ok {
				return WireGraph{}, simerr.New(simerr.KindInternalInvariant, fmt.Sprintf("node %d: component %q has no schema entry", n.ID, name))
			}
			encoded, err := value.Encode(v)
			if err != nil {
				return WireGraph{}, simerr.Wrap(simerr.KindInternalInvariant, fmt.Sprintf("node %d: component %q", n.ID, name), err)
			}
			wn.Components[name] = encoded
		}
		w.Nodes = append(w.Nodes, wn)
	}

	for _, e := range g.edges {
		if e.ComponentType == "" {
			return WireGraph{}, simerr.New(simerr.KindInternalInvariant, fmt.Sprintf("edge %d: missing component_data", e.ID))
		}
		encoded, err := value.Encode(e.ComponentData)
		if err != nil {
			return WireGraph{}, simerr.Wrap(simerr.KindInternalInvariant, fmt.Sprintf("edge %d: component %q", e.ID, e.ComponentType), err)
		}
		w.Edges = append(w.Edges, WireEdge{From: e.From, To: e.To, ID: e.ID, ComponentType: e.ComponentType, ComponentData: encoded})
	}

	for _, name := range g.globalOrder {
		v := g.globals[name]
		encoded, err := value.Encode(v)
		if err != nil {
			return WireGraph{}, simerr.Wrap(simerr.KindInternalInvariant, fmt.Sprintf("global %q", name), err)
		}
		w.Globals[name] = encoded
	}

	return w, nil
}
