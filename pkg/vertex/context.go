// SPDX-License-Identifier: AGPL-3.0-or-later

/*
simcore - a distributed digital-twin simulation platform core.

Copyright (C) 2025  simcore contributors

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.
*/

package vertex

import "reflect"

// Feature: VERTEX_ENGINE
// Spec: spec/core/vertex-engine.md (§4.4 superstep context primitives)

// Context is handed to a vertex's handlers and its own Step method during a
// superstep: read access to the vertex's own id and topology, and the
// ability to send typed messages into the inactive mailbox of any receiver
// (spec.md §4.4).
type Context struct {
	engine    *Engine
	selfID    uint64
	activeIdx int // 0 or 1: the mailbox index currently being drained
}

// SelfID returns the id of the vertex currently being processed.
func (c *Context) SelfID() uint64 { return c.selfID }

// inactiveIdx is the mailbox index messages sent during this superstep land
// in; it becomes the active mailbox on the following superstep.
func (c *Context) inactiveIdx() int { return 1 - c.activeIdx }

// GetOutgoingNeighbours returns the ids of this vertex's outgoing neighbours
// whose state has Go type V, in ascending id order (spec.md §4.4
// get_outgoing_neighbours<T>).
func GetOutgoingNeighbours[V any](c *Context) []VertexID[V] {
	return typedNeighbours[V](c.engine, c.selfID, true)
}

// GetIncomingNeighbours returns the ids of this vertex's incoming neighbours
// whose state has Go type V, in ascending id order.
func GetIncomingNeighbours[V any](c *Context) []VertexID[V] {
	return typedNeighbours[V](c.engine, c.selfID, false)
}

func typedNeighbours[V any](e *Engine, id uint64, outgoing bool) []VertexID[V] {
	e.mu.RLock()
	rec, ok := e.vertices[id]
	e.mu.RUnlock()
	if !ok {
		return nil
	}

	rec.adjMu.Lock()
	var src []uint64
	if outgoing {
		src = append([]uint64(nil), rec.outgoing...)
	} else {
		src = append([]uint64(nil), rec.incoming...)
	}
	rec.adjMu.Unlock()

	wantType := reflect.TypeOf((*V)(nil)).Elem()
	out := make([]VertexID[V], 0, len(src))
	for _, peerID := range src {
		e.mu.RLock()
		peer, ok := e.vertices[peerID]
		e.mu.RUnlock()
		if ok && peer.typeTag == wantType {
			out = append(out, VertexID[V](peerID))
		}
	}
	return out
}

// HandlerFunc processes one received message of type M at a vertex of state
// type V.
type HandlerFunc[V any, M any] func(ctx *Context, state *V, msg M)

// SendMessage delivers msg from the currently-processing vertex to each
// receiver's inactive mailbox, and registers handler as the dispatch target
// for (V, M) if no handler is registered yet for that pair — mirroring the
// "populated at first send_message call site" contract of spec.md §9; a
// later send for the same (V, M) pair only reads the table.
func SendMessage[V any, M any](c *Context, receivers []VertexID[V], msg M, handler HandlerFunc[V, M]) {
	var zero V
	key := handlerKey{vertexType: reflect.TypeOf(zero), msgType: reflect.TypeOf(msg)}

	c.engine.handlerMu.RLock()
	_, registered := c.engine.handlers[key]
	c.engine.handlerMu.RUnlock()

	if !registered {
		c.engine.handlerMu.Lock()
		if _, registered = c.engine.handlers[key]; !registered {
			c.engine.handlers[key] = func(ctx *Context, stateIface interface{}, payloadIface interface{}) {
				handler(ctx, stateIface.(*V), payloadIface.(M))
			}
		}
		c.engine.handlerMu.Unlock()
	}

	msgType := key.msgType
	dst := c.inactiveIdx()
	for _, r := range receivers {
		c.engine.mu.RLock()
		rec, ok := c.engine.vertices[uint64(r)]
		c.engine.mu.RUnlock()
		if !ok {
			continue // a receiver removed mid-superstep simply drops the message
		}
		rec.mailboxMu.Lock()
		rec.mailbox[dst] = append(rec.mailbox[dst], MessageEntry{SenderID: c.selfID, msgType: msgType, payload: msg})
		rec.mailboxMu.Unlock()
	}
}

// Stepper is implemented by vertex state types with per-superstep logic run
// after their mailbox has been fully drained (spec.md §4.4).
type Stepper interface {
	Step(ctx *Context)
}
