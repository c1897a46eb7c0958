// SPDX-License-Identifier: AGPL-3.0-or-later

/*
simcore - a distributed digital-twin simulation platform core.

Copyright (C) 2025  simcore contributors

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.
*/

package vertex

import (
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"
)

// Feature: VERTEX_ENGINE
// Spec: spec/core/vertex-engine.md (§4.4 do_superstep)

// DoSuperstep runs one bulk-synchronous step over every vertex currently in
// the engine: each vertex drains its active mailbox in sender-id order,
// dispatching each message to the handler registered for its (vertex type,
// message type) pair, then runs its own Step method if it implements
// Stepper. Messages sent during this superstep land in the opposite
// mailbox and are not observed until the following superstep (spec.md §3,
// determinism contract). Vertex bodies run concurrently when the engine was
// built with parallel=true; the outcome is identical either way because
// vertices only observe state produced by strictly earlier supersteps.
func (e *Engine) DoSuperstep() error {
	active := int(e.timestep % 2)

	e.mu.RLock()
	ids := make([]uint64, 0, len(e.vertices))
	for id := range e.vertices {
		ids = append(ids, id)
	}
	e.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	process := func(id uint64) error {
		e.mu.RLock()
		rec, ok := e.vertices[id]
		e.mu.RUnlock()
		if !ok {
			return nil // removed between the id snapshot and processing
		}

		rec.mailboxMu.Lock()
		inbox := rec.mailbox[active]
		rec.mailbox[active] = nil
		rec.mailboxMu.Unlock()

		sort.Slice(inbox, func(i, j int) bool { return inbox[i].SenderID < inbox[j].SenderID })

		ctx := &Context{engine: e, selfID: id, activeIdx: active}

		rec.stateMu.Lock()
		defer rec.stateMu.Unlock()

		for _, entry := range inbox {
			key := handlerKey{vertexType: rec.typeTag, msgType: entry.msgType}
			e.handlerMu.RLock()
			thunk, ok := e.handlers[key]
			e.handlerMu.RUnlock()
			if !ok {
				panic(fmt.Sprintf("vertex: no handler registered for vertex type %s, message type %s", rec.typeTag, entry.msgType))
			}
			thunk(ctx, rec.state, entry.payload)
		}

		if stepper, ok := rec.state.(Stepper); ok {
			stepper.Step(ctx)
		}
		return nil
	}

	if e.parallel {
		var g errgroup.Group
		for _, id := range ids {
			id := id
			g.Go(func() error { return process(id) })
		}
		if err := g.Wait(); err != nil {
			return err
		}
	} else {
		for _, id := range ids {
			if err := process(id); err != nil {
				return err
			}
		}
	}

	e.timestep++
	return nil
}
