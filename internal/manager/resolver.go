// SPDX-License-Identifier: AGPL-3.0-or-later

/*
simcore - a distributed digital-twin simulation platform core.

Copyright (C) 2025  simcore contributors

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.
*/

// Package manager wires the orchestrator's SimulatorLookup to live grpc
// connections against the endpoints simulators registered with the
// connector (spec.md §4.6, §4.8).
package manager

import (
	"fmt"
	"sync"

	"simcore/internal/registry"
	"simcore/internal/transport"
	"simcore/pkg/simerr"
	"simcore/pkg/simulator"
)

// Feature: ORCHESTRATOR
// Spec: spec/core/orchestrator.md

// DialingResolver satisfies orchestrator.SimulatorLookup by dialing a
// registered simulator's endpoint on first use and caching the connection
// for the lifetime of the process.
type DialingResolver struct {
	registry *registry.Registry

	mu      sync.Mutex
	clients map[string]*transport.SimulatorClient
}

// NewDialingResolver builds a resolver over reg.
func NewDialingResolver(reg *registry.Registry) *DialingResolver {
	return &DialingResolver{registry: reg, clients: make(map[string]*transport.SimulatorClient)}
}

// Resolve returns a cached client for name, dialing it if this is the first
// lookup. A name absent from the registry is NotFound (spec.md §4.6).
func (r *DialingResolver) Resolve(name string) (simulator.Simulator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.clients[name]; ok {
		return c, nil
	}

	info, ok := r.registry.Get(name)
	if !ok {
		return nil, simerr.New(simerr.KindNotFound, fmt.Sprintf("manager: simulator %q is not registered", name))
	}

	client, err := transport.DialSimulator(name, info.Endpoint)
	if err != nil {
		return nil, err
	}
	r.clients[name] = client
	return client, nil
}

// CloseAll closes every cached connection. Intended for orderly shutdown.
func (r *DialingResolver) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, c := range r.clients {
		_ = c.Close()
		delete(r.clients, name)
	}
}
