// SPDX-License-Identifier: AGPL-3.0-or-later

/*
simcore - a distributed digital-twin simulation platform core.

Copyright (C) 2025  simcore contributors

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.
*/

package vertex

import (
	"testing"
)

// Feature: VERTEX_ENGINE
// Spec: spec/core/vertex-engine.md

// bumpMsg is the lone message type used by these tests.
type bumpMsg struct {
	Value int
}

// vertexState accumulates every message it receives and, on each superstep,
// broadcasts a bump of value 1 to every outgoing neighbour plus an extra
// bump of value 2 to its first (lowest-id) neighbour (spec.md §8 scenario 7).
type vertexState struct {
	Messages   int
	Neighbours int
	OtherData  int
}

func bumpHandler(ctx *Context, s *vertexState, msg bumpMsg) {
	s.Messages++
	s.OtherData += msg.Value
}

func (s *vertexState) Step(ctx *Context) {
	neighbours := GetOutgoingNeighbours[vertexState](ctx)
	s.Neighbours = len(neighbours)
	if len(neighbours) == 0 {
		return
	}
	SendMessage(ctx, neighbours, bumpMsg{Value: 1}, bumpHandler)
	SendMessage(ctx, neighbours[:1], bumpMsg{Value: 2}, bumpHandler)
}

// buildBroadcastStar builds 5 vertices with vertex 0 bidirectionally
// connected to each of the other 4, seeding OtherData to each vertex's
// index — the topology and seed of spec.md §8 scenario 7.
func buildBroadcastStar(t *testing.T, parallel bool) (*Engine, []VertexID[vertexState]) {
	t.Helper()
	e := New(parallel)
	ids := make([]VertexID[vertexState], 0, 5)
	for i := 0; i < 5; i++ {
		ids = append(ids, InsertVertex(e, vertexState{OtherData: i}))
	}
	for i := 1; i < 5; i++ {
		if err := e.InsertEdgeBidirectional(ids[0].Raw(), ids[i].Raw()); err != nil {
			t.Fatal(err)
		}
	}
	return e, ids
}

// TestBSPThreeSuperstepsOracle reproduces spec.md §8 scenario 7's oracle: 5
// vertices, vertex 0 bidirectionally adjacent to the other 4, all 5 running
// the identical broadcast-plus-extra-to-first-neighbour Step. After 3
// supersteps every vertex's message count, neighbour count, and accumulated
// data must match the literal numbers of the scenario.
func TestBSPThreeSuperstepsOracle(t *testing.T) {
	want := []struct {
		messages, neighbours, otherData int
	}{
		{16, 4, 24},
		{4, 1, 7},
		{2, 1, 4},
		{2, 1, 5},
		{2, 1, 6},
	}

	for _, parallel := range []bool{false, true} {
		e, ids := buildBroadcastStar(t, parallel)

		for i := 0; i < 3; i++ {
			if err := e.DoSuperstep(); err != nil {
				t.Fatalf("parallel=%v step %d: %v", parallel, i, err)
			}
		}

		for i, id := range ids {
			g, err := LockVertex[vertexState](e, id.Raw())
			if err != nil {
				t.Fatal(err)
			}
			got := g.State()
			messages, neighbours, otherData := got.Messages, got.Neighbours, got.OtherData
			g.Unlock()

			if messages != want[i].messages || neighbours != want[i].neighbours || otherData != want[i].otherData {
				t.Fatalf("parallel=%v vertex %d: got messages=%d neighbours=%d otherData=%d, want messages=%d neighbours=%d otherData=%d",
					parallel, i, messages, neighbours, otherData, want[i].messages, want[i].neighbours, want[i].otherData)
			}
		}

		if e.ElapsedTimesteps() != 3 {
			t.Fatalf("parallel=%v: expected 3 elapsed timesteps, got %d", parallel, e.ElapsedTimesteps())
		}
	}
}

// TestNoMessageObservedSameSuperstep checks the determinism-contract
// property of spec.md §8: a message sent during superstep T is not observed
// by any handler invoked within T, only at T+1.
func TestNoMessageObservedSameSuperstep(t *testing.T) {
	e, ids := buildBroadcastStar(t, false)

	if err := e.DoSuperstep(); err != nil {
		t.Fatal(err)
	}
	for _, id := range ids {
		g, err := LockVertex[vertexState](e, id.Raw())
		if err != nil {
			t.Fatal(err)
		}
		if g.State().Messages != 0 {
			t.Fatalf("vertex %d observed a message within the same superstep it was sent", id.Raw())
		}
		g.Unlock()
	}
}

// TestLockVertex_TypeMismatchAndNotFound exercises the two error paths of
// lock_vertex (spec.md §4.4).
func TestLockVertex_TypeMismatchAndNotFound(t *testing.T) {
	e := New(false)
	id := InsertVertex(e, vertexState{})

	if _, err := LockVertex[string](e, id.Raw()); err == nil {
		t.Fatal("expected type-mismatch error")
	}
	if _, err := LockVertex[vertexState](e, 9999); err == nil {
		t.Fatal("expected NotFound error")
	}
}

// TestInsertEdge_IdempotentAndRemoveCleansBothSides covers spec.md §4.4's
// "clean both sides of every incident edge" contract and edge idempotency.
func TestInsertEdge_IdempotentAndRemoveCleansBothSides(t *testing.T) {
	e := New(false)
	a := InsertVertex(e, vertexState{})
	b := InsertVertex(e, vertexState{})

	if err := e.InsertEdgeDirected(a.Raw(), b.Raw()); err != nil {
		t.Fatal(err)
	}
	if err := e.InsertEdgeDirected(a.Raw(), b.Raw()); err != nil {
		t.Fatal(err)
	}
	if got := len(e.vertices[a.Raw()].outgoing); got != 1 {
		t.Fatalf("expected idempotent insert, outgoing len=%d", got)
	}

	if err := e.RemoveVertex(b.Raw()); err != nil {
		t.Fatal(err)
	}
	if got := len(e.vertices[a.Raw()].outgoing); got != 0 {
		t.Fatalf("expected a's outgoing cleaned after b removed, got len=%d", got)
	}
}

// TestUnregisteredHandlerDispatchPanics covers the fatal-invariant-violation
// contract of spec.md §4.4: a drained message with no registered handler for
// its (vertex_type_tag, message_type_tag) pair must panic.
func TestUnregisteredHandlerDispatchPanics(t *testing.T) {
	e := New(false)
	a := InsertVertex(e, vertexState{})
	b := InsertVertex(e, vertexState{})

	e.vertices[b.Raw()].mailboxMu.Lock()
	e.vertices[b.Raw()].mailbox[0] = []MessageEntry{{SenderID: a.Raw(), msgType: nil, payload: 42}}
	e.vertices[b.Raw()].mailboxMu.Unlock()

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for unregistered handler dispatch")
		}
	}()
	_ = e.DoSuperstep()
}
