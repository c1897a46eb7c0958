// SPDX-License-Identifier: AGPL-3.0-or-later

/*
simcore - a distributed digital-twin simulation platform core.

Copyright (C) 2025  simcore contributors

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.
*/

// Package graph implements the per-timestep Graph container: ordered
// nodes, ordered edges, and named globals, with columnar indexing by
// component type (spec.md §3, §4.3).
package graph

import (
	"fmt"
	"sort"

	"simcore/pkg/simerr"
	"simcore/pkg/value"
)

// Feature: GRAPH_CONTAINER
// Spec: spec/core/graph.md

// Node is one vertex of a frame: position, stable id, and named components.
type Node struct {
	Longitude  float64
	Latitude   float64
	ID         uint64
	Components map[string]value.Value
}

// cloneComponents returns a shallow copy of a component map so callers
// cannot mutate a Graph's storage through a Node they passed in.
func cloneComponents(in map[string]value.Value) map[string]value.Value {
	out := make(map[string]value.Value, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Edge carries exactly one named component between two node ids present in
// the same frame (spec.md §3).
type Edge struct {
	From          uint64
	To            uint64
	ID            uint64
	ComponentType string
	ComponentData value.Value
}

// Graph is the per-timestep container (spec.md §3, §4.3). Node and edge
// ordering is preserved end-to-end; the id is the stable cross-frame
// identity, positional index is not.
type Graph struct {
	nodes []Node
	edges []Edge

	globalOrder []string
	globals     map[string]value.Value

	nodeIndexByID map[uint64]int // node id -> positional index
	edgeIndexByID map[uint64]int // edge id -> positional index

	// nodeComponentIndex[name] holds the sorted positional indices of nodes
	// that carry a component named name — the columnar store of spec.md §4.3.
	nodeComponentIndex map[string][]int
	// edgeComponentIndex[name] holds the sorted positional indices of edges
	// whose single component is named name.
	edgeComponentIndex map[string][]int
}

// New builds an empty Graph.
func New() *Graph {
	return &Graph{
		globals:            make(map[string]value.Value),
		nodeIndexByID:      make(map[uint64]int),
		edgeIndexByID:      make(map[uint64]int),
		nodeComponentIndex: make(map[string][]int),
		edgeComponentIndex: make(map[string][]int),
	}
}

// InsertNode appends a node, recording its positional index in every
// component-name column it carries. Returns InvalidInput if the node id is
// already present in this frame.
func (g *Graph) InsertNode(n Node) error {
	if _, exists := g.nodeIndexByID[n.ID]; exists {
		return simerr.New(simerr.KindInvalidInput, fmt.Sprintf("duplicate node id %d in frame", n.ID))
	}
	idx := len(g.nodes)
	stored := n
	stored.Components = cloneComponents(n.Components)
	g.nodes = append(g.nodes, stored)
	g.nodeIndexByID[n.ID] = idx

	names := make([]string, 0, len(stored.Components))
	for name := range stored.Components {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		g.nodeComponentIndex[name] = append(g.nodeComponentIndex[name], idx)
	}
	return nil
}

// InsertEdge appends an edge after checking that From and To refer to node
// ids present in this frame (spec.md §3 invariant). Returns InvalidInput on
// a missing endpoint or a duplicate edge id.
func (g *Graph) InsertEdge(e Edge) error {
	if _, exists := g.edgeIndexByID[e.ID]; exists {
		return simerr.New(simerr.KindInvalidInput, fmt.Sprintf("duplicate edge id %d in frame", e.ID))
	}
	if _, ok := g.nodeIndexByID[e.From]; !ok {
		return simerr.New(simerr.KindInvalidInput, fmt.Sprintf("edge %d: unknown from-node %d", e.ID, e.From))
	}
	if _, ok := g.nodeIndexByID[e.To]; !ok {
		return simerr.New(simerr.KindInvalidInput, fmt.Sprintf("edge %d: unknown to-node %d", e.ID, e.To))
	}

	idx := len(g.edges)
	g.edges = append(g.edges, e)
	g.edgeIndexByID[e.ID] = idx
	if e.ComponentType != "" {
		g.edgeComponentIndex[e.ComponentType] = append(g.edgeComponentIndex[e.ComponentType], idx)
	}
	return nil
}

// SetGlobal sets a named global component, preserving first-set order.
func (g *Graph) SetGlobal(name string, v value.Value) {
	if _, exists := g.globals[name]; !exists {
		g.globalOrder = append(g.globalOrder, name)
	}
	g.globals[name] = v
}

// GetGlobal returns a named global component.
func (g *Graph) GetGlobal(name string) (value.Value, bool) {
	v, ok := g.globals[name]
	return v, ok
}

// GlobalNames returns global component names in first-set order.
func (g *Graph) GlobalNames() []string {
	out := make([]string, len(g.globalOrder))
	copy(out, g.globalOrder)
	return out
}

// Nodes returns the frame's nodes in insertion order. Callers must not
// mutate the returned slice's Components maps.
func (g *Graph) Nodes() []Node {
	out := make([]Node, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Edges returns the frame's edges in insertion order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// NodeByID returns a node and its positional index by id.
func (g *Graph) NodeByID(id uint64) (Node, int, bool) {
	idx, ok := g.nodeIndexByID[id]
	if !ok {
		return Node{}, 0, false
	}
	return g.nodes[idx], idx, true
}

// EdgeByID returns an edge and its positional index by id.
func (g *Graph) EdgeByID(id uint64) (Edge, int, bool) {
	idx, ok := g.edgeIndexByID[id]
	if !ok {
		return Edge{}, 0, false
	}
	return g.edges[idx], idx, true
}

// ComponentRef is one (id, positional index, component value) triple
// returned by the typed accessors below.
type ComponentRef struct {
	ID    uint64
	Index int
	Value value.Value
}

// GetAllNodesWith returns every node carrying a component named name, in
// frame insertion order, using the columnar index's sorted positional
// slice (spec.md §4.3).
func (g *Graph) GetAllNodesWith(name string) []ComponentRef {
	indices := g.nodeComponentIndex[name]
	out := make([]ComponentRef, 0, len(indices))
	for _, idx := range indices {
		n := g.nodes[idx]
		out = append(out, ComponentRef{ID: n.ID, Index: idx, Value: n.Components[name]})
	}
	return out
}

// GetAllEdgesWith returns every edge whose single component is named name,
// in frame insertion order.
func (g *Graph) GetAllEdgesWith(name string) []ComponentRef {
	indices := g.edgeComponentIndex[name]
	out := make([]ComponentRef, 0, len(indices))
	for _, idx := range indices {
		e := g.edges[idx]
		out = append(out, ComponentRef{ID: e.ID, Index: idx, Value: e.ComponentData})
	}
	return out
}

// GetNodeComponent returns the named component of the node with id, via a
// binary search over the column's sorted positional-index slice (spec.md
// §4.3's "binary search by positional index is required for single-component
// lookups").
func (g *Graph) GetNodeComponent(id uint64, name string) (value.Value, bool) {
	idx, ok := g.nodeIndexByID[id]
	if !ok {
		return value.Value{}, false
	}
	indices := g.nodeComponentIndex[name]
	i := sort.SearchInts(indices, idx)
	if i >= len(indices) || indices[i] != idx {
		return value.Value{}, false
	}
	return g.nodes[idx].Components[name], true
}

// GetEdgeComponent returns the component of the edge with id, if its
// ComponentType matches name, via the same binary-search discipline.
func (g *Graph) GetEdgeComponent(id uint64, name string) (value.Value, bool) {
	idx, ok := g.edgeIndexByID[id]
	if !ok {
		return value.Value{}, false
	}
	indices := g.edgeComponentIndex[name]
	i := sort.SearchInts(indices, idx)
	if i >= len(indices) || indices[i] != idx {
		return value.Value{}, false
	}
	return g.edges[idx].ComponentData, true
}

// SetNodeComponent mutates the named component of an existing node
// in-place, updating the columnar index if this is a newly-added column
// for that node.
func (g *Graph) SetNodeComponent(id uint64, name string, v value.Value) error {
	idx, ok := g.nodeIndexByID[id]
	if !ok {
		return simerr.New(simerr.KindInvalidInput, fmt.Sprintf("unknown node id %d", id))
	}
	_, had := g.nodes[idx].Components[name]
	g.nodes[idx].Components[name] = v
	if !had {
		insertSorted(g.nodeComponentIndex, name, idx)
	}
	return nil
}

func insertSorted(index map[string][]int, name string, idx int) {
	indices := index[name]
	i := sort.SearchInts(indices, idx)
	indices = append(indices, 0)
	copy(indices[i+1:], indices[i:])
	indices[i] = idx
	index[name] = indices
}

func removeSorted(index map[string][]int, name string, idx int) {
	indices := index[name]
	i := sort.SearchInts(indices, idx)
	if i >= len(indices) || indices[i] != idx {
		return
	}
	index[name] = append(indices[:i], indices[i+1:]...)
}

// SetEdgeComponent sets the single component carried by an existing edge,
// moving it between columnar index buckets if this call changes the edge's
// ComponentType.
func (g *Graph) SetEdgeComponent(id uint64, name string, v value.Value) error {
	idx, ok := g.edgeIndexByID[id]
	if !ok {
		return simerr.New(simerr.KindInvalidInput, fmt.Sprintf("unknown edge id %d", id))
	}
	old := g.edges[idx].ComponentType
	if old != name {
		if old != "" {
			removeSorted(g.edgeComponentIndex, old, idx)
		}
		insertSorted(g.edgeComponentIndex, name, idx)
	}
	g.edges[idx].ComponentType = name
	g.edges[idx].ComponentData = v
	return nil
}

// Filter retains only components (node components, qualifying edges, and
// globals) whose names are in names; nodes are always kept (with their
// component map trimmed) so edge endpoint invariants stay intact, but an
// edge whose sole component isn't in names is dropped entirely, since an
// edge without a component_data would violate the single-component
// invariant of spec.md §3.
func (g *Graph) Filter(names map[string]bool) *Graph {
	out := New()
	for _, n := range g.nodes {
		filtered := Node{Longitude: n.Longitude, Latitude: n.Latitude, ID: n.ID, Components: map[string]value.Value{}}
		for name, v := range n.Components {
			if names[name] {
				filtered.Components[name] = v
			}
		}
		// InsertNode cannot fail here: ids are unique by construction of g.
		_ = out.InsertNode(filtered)
	}
	for _, e := range g.edges {
		if names[e.ComponentType] {
			_ = out.InsertEdge(e)
		}
	}
	for _, name := range g.globalOrder {
		if names[name] {
			out.SetGlobal(name, g.globals[name])
		}
	}
	return out
}
