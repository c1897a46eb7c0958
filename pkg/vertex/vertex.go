// SPDX-License-Identifier: AGPL-3.0-or-later

/*
simcore - a distributed digital-twin simulation platform core.

Copyright (C) 2025  simcore contributors

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.
*/

// Package vertex implements the bulk-synchronous vertex engine used by
// individual simulators for intra-timestep message passing: a graph of
// typed vertices with directed edges, per-vertex dual mailboxes, type-erased
// message handlers, and a synchronous superstep loop (spec.md §4.4, §5).
package vertex

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"simcore/pkg/simerr"
)

// Feature: VERTEX_ENGINE
// Spec: spec/core/vertex-engine.md

// VertexID is a monotone, never-reused identifier, typed by the vertex
// state's Go type so that callers cannot accidentally mix ids across
// unrelated vertex kinds.
type VertexID[V any] uint64

// Raw strips the type parameter, for storage in untyped adjacency sets and
// mailboxes.
func (id VertexID[V]) Raw() uint64 { return uint64(id) }

// MessageEntry is one (sender_id, payload) pair in a vertex's mailbox,
// ordered by sender_id to give deterministic delivery order within a
// superstep (spec.md §3).
type MessageEntry struct {
	SenderID uint64
	msgType  reflect.Type
	payload  interface{}
}

// record is the engine-internal representation of one Vertex (spec.md §3):
// id, type tag, state, ordered adjacency sets, and dual mailboxes.
type record struct {
	id      uint64
	typeTag reflect.Type
	state   interface{} // always a pointer to the concrete vertex state type

	stateMu sync.Mutex // the vertex's exclusive state-lock (spec.md §4.4, §5)

	adjMu    sync.Mutex
	outgoing []uint64 // sorted, deduplicated
	incoming []uint64 // sorted, deduplicated

	mailboxMu sync.Mutex
	mailbox   [2][]MessageEntry
}

// Engine is the VertexEngine: a graph of typed vertices with directed
// edges, BSP supersteps, and a type-erased handler table (spec.md §4.4).
type Engine struct {
	mu       sync.RWMutex // protects vertices map and nextID during topology edits
	vertices map[uint64]*record
	nextID   uint64

	handlerMu sync.RWMutex
	handlers  map[handlerKey]handlerThunk

	timestep uint64
	parallel bool
}

type handlerKey struct {
	vertexType reflect.Type
	msgType    reflect.Type
}

// handlerThunk is the monomorphized, type-erased form of a registered
// handler: it type-asserts the boxed state and payload back to their
// concrete types before calling the user's generic handler (spec.md §9,
// "Type-erased message dispatch").
type handlerThunk func(ctx *Context, state interface{}, payload interface{})

// New builds an empty engine. If parallel is true, do_superstep schedules
// vertex bodies across goroutines (data parallelism); otherwise it runs
// them sequentially. Either way the result is identical, per the
// determinism contract of spec.md §4.4.
func New(parallel bool) *Engine {
	return &Engine{
		vertices: make(map[uint64]*record),
		handlers: make(map[handlerKey]handlerThunk),
		parallel: parallel,
	}
}

// InsertVertex allocates a new monotone id and stores state (by address) as
// the vertex's state. Panics on id-space exhaustion (spec.md §4.4).
func InsertVertex[V any](e *Engine, state V) VertexID[V] {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.nextID
	e.nextID++
	if e.nextID == 0 && id != 0 {
		panic("vertex: id space exhausted")
	}

	boxed := new(V)
	*boxed = state
	e.vertices[id] = &record{
		id:      id,
		typeTag: reflect.TypeOf(*boxed),
		state:   boxed,
	}
	return VertexID[V](id)
}

// RemoveVertex removes a vertex and cleans both sides of every incident
// edge in O(degree) (spec.md §4.4).
func (e *Engine) RemoveVertex(id uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, ok := e.vertices[id]
	if !ok {
		return simerr.New(simerr.KindNotFound, fmt.Sprintf("vertex %d not found", id))
	}

	for _, out := range rec.outgoing {
		if peer, ok := e.vertices[out]; ok {
			peer.adjMu.Lock()
			peer.incoming = removeSorted(peer.incoming, id)
			peer.adjMu.Unlock()
		}
	}
	for _, in := range rec.incoming {
		if peer, ok := e.vertices[in]; ok {
			peer.adjMu.Lock()
			peer.outgoing = removeSorted(peer.outgoing, id)
			peer.adjMu.Unlock()
		}
	}

	delete(e.vertices, id)
	return nil
}

// InsertEdgeDirected adds a single directed edge a->b. Idempotent: a
// duplicate insert is a no-op (spec.md §4.4, edges are ordered-pair sets).
func (e *Engine) InsertEdgeDirected(a, b uint64) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	va, ok := e.vertices[a]
	if !ok {
		return simerr.New(simerr.KindNotFound, fmt.Sprintf("vertex %d not found", a))
	}
	vb, ok := e.vertices[b]
	if !ok {
		return simerr.New(simerr.KindNotFound, fmt.Sprintf("vertex %d not found", b))
	}

	va.adjMu.Lock()
	va.outgoing = insertSorted(va.outgoing, b)
	va.adjMu.Unlock()

	vb.adjMu.Lock()
	vb.incoming = insertSorted(vb.incoming, a)
	vb.adjMu.Unlock()

	return nil
}

// InsertEdgeBidirectional adds directed edges a->b and b->a.
func (e *Engine) InsertEdgeBidirectional(a, b uint64) error {
	if err := e.InsertEdgeDirected(a, b); err != nil {
		return err
	}
	return e.InsertEdgeDirected(b, a)
}

// RemoveEdgeDirected removes a single directed edge a->b, if present.
func (e *Engine) RemoveEdgeDirected(a, b uint64) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	va, ok := e.vertices[a]
	if !ok {
		return simerr.New(simerr.KindNotFound, fmt.Sprintf("vertex %d not found", a))
	}
	vb, ok := e.vertices[b]
	if !ok {
		return simerr.New(simerr.KindNotFound, fmt.Sprintf("vertex %d not found", b))
	}

	va.adjMu.Lock()
	va.outgoing = removeSorted(va.outgoing, b)
	va.adjMu.Unlock()

	vb.adjMu.Lock()
	vb.incoming = removeSorted(vb.incoming, a)
	vb.adjMu.Unlock()

	return nil
}

// RemoveEdgeBidirectional removes both a->b and b->a.
func (e *Engine) RemoveEdgeBidirectional(a, b uint64) error {
	if err := e.RemoveEdgeDirected(a, b); err != nil {
		return err
	}
	return e.RemoveEdgeDirected(b, a)
}

// ElapsedTimesteps returns the number of completed supersteps.
func (e *Engine) ElapsedTimesteps() uint64 {
	return e.timestep
}

// Guard is an exclusive lock held over a vertex's typed state, released by
// Unlock.
type Guard[V any] struct {
	rec   *record
	state *V
}

// State returns the locked, mutable vertex state.
func (g *Guard[V]) State() *V { return g.state }

// Unlock releases the vertex's state lock.
func (g *Guard[V]) Unlock() { g.rec.stateMu.Unlock() }

// LockVertex acquires an exclusive guard over the vertex's state, type-checked
// against V. Returns NotFound or a type-mismatch error otherwise (spec.md
// §4.4).
func LockVertex[V any](e *Engine, id uint64) (*Guard[V], error) {
	e.mu.RLock()
	rec, ok := e.vertices[id]
	e.mu.RUnlock()
	if !ok {
		return nil, simerr.New(simerr.KindNotFound, fmt.Sprintf("vertex %d not found", id))
	}

	wantType := reflect.TypeOf((*V)(nil)).Elem()
	if rec.typeTag != wantType {
		return nil, simerr.New(simerr.KindInvalidInput, fmt.Sprintf("vertex %d has type %s, not %s", id, rec.typeTag, wantType))
	}

	rec.stateMu.Lock()
	return &Guard[V]{rec: rec, state: rec.state.(*V)}, nil
}

func insertSorted(s []uint64, v uint64) []uint64 {
	i := sort.Search(len(s), func(i int) bool { return s[i] >= v })
	if i < len(s) && s[i] == v {
		return s
	}
	s = append(s, 0)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}

func removeSorted(s []uint64, v uint64) []uint64 {
	i := sort.Search(len(s), func(i int) bool { return s[i] >= v })
	if i < len(s) && s[i] == v {
		return append(s[:i], s[i+1:]...)
	}
	return s
}
