// SPDX-License-Identifier: AGPL-3.0-or-later

/*
simcore - a distributed digital-twin simulation platform core.

Copyright (C) 2025  simcore contributors

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.
*/

// Package registry maintains the live set of connected simulator endpoints:
// name, address, and declared I/O capabilities (spec.md §4.6).
package registry

import (
	"fmt"
	"sync"
	"time"

	"simcore/pkg/component"
	"simcore/pkg/simerr"
)

// Feature: SIMULATOR_REGISTRY
// Spec: spec/core/simulator-registry.md

// Info is what a simulator declares at registration time.
type Info struct {
	Name       string
	Endpoint   string
	Components []component.Spec
}

type entry struct {
	info         Info
	registeredAt time.Time
	lastSeen     time.Time
}

// Registry is the live set of registered simulators (spec.md §4.6). It also
// owns the process-wide map of component name -> declared ComponentSpec,
// since schema conflicts are detected across simulators, not within one.
type Registry struct {
	mu sync.RWMutex

	order   []string // registration order, for List()'s stable ordering
	entries map[string]*entry

	componentOwner map[string]component.Spec // name -> the spec that first claimed it

	now func() time.Time
}

// New builds an empty registry.
func New() *Registry {
	return &Registry{
		entries:        make(map[string]*entry),
		componentOwner: make(map[string]component.Spec),
		now:            time.Now,
	}
}

// Register validates info's component specs against every previously
// registered simulator's, and against any earlier registration for info.Name.
// A name collision with a different structure is SchemaConflict (spec.md
// §4.6) and the registration is rejected in full — no partial application.
func (r *Registry) Register(info Info) error {
	if info.Name == "" {
		return simerr.New(simerr.KindInvalidInput, "registry: simulator name must not be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, spec := range info.Components {
		if owner, exists := r.componentOwner[spec.Name]; exists && owner.Conflicts(spec) {
			return simerr.New(simerr.KindSchemaConflict, fmt.Sprintf("registry: component %q conflicts with an earlier declaration (%s vs %s)", spec.Name, owner, spec))
		}
	}

	now := r.now()
	e, existed := r.entries[info.Name]
	if !existed {
		e = &entry{registeredAt: now}
		r.entries[info.Name] = e
		r.order = append(r.order, info.Name)
	}
	e.info = info
	e.lastSeen = now

	for _, spec := range info.Components {
		r.componentOwner[spec.Name] = spec
	}
	return nil
}

// Touch records that name was reached during a setup handshake, resetting
// its staleness clock.
func (r *Registry) Touch(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[name]; ok {
		e.lastSeen = r.now()
	}
}

// Unregister explicitly removes a simulator.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remove(name)
}

func (r *Registry) remove(name string) {
	if _, ok := r.entries[name]; !ok {
		return
	}
	delete(r.entries, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// PruneStale drops every entry whose last-seen timestamp is older than
// cutoff and returns the names removed. The registry has no live heartbeat
// requirement (spec.md §4.6); this is the lazy-drop mechanism callers may
// invoke around a setup handshake.
func (r *Registry) PruneStale(cutoff time.Duration) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	threshold := r.now().Add(-cutoff)
	var removed []string
	for _, name := range append([]string(nil), r.order...) {
		if r.entries[name].lastSeen.Before(threshold) {
			removed = append(removed, name)
			r.remove(name)
		}
	}
	return removed
}

// Get returns a registered simulator's info by name.
func (r *Registry) Get(name string) (Info, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok {
		return Info{}, false
	}
	return e.info, true
}

// List returns every registered simulator's info, ordered by registration
// time (spec.md §4.6).
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Info, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.entries[name].info)
	}
	return out
}

// ComponentSchema returns the process-wide map of every component name
// ever declared by a registered simulator to its ComponentSpec, as StateStore
// or the Graph wire codec would need it.
func (r *Registry) ComponentSchema() map[string]component.Spec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]component.Spec, len(r.componentOwner))
	for name, spec := range r.componentOwner {
		out[name] = spec
	}
	return out
}
