// SPDX-License-Identifier: AGPL-3.0-or-later

/*
simcore - a distributed digital-twin simulation platform core.

Copyright (C) 2025  simcore contributors

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.
*/

package component

import "fmt"

// Feature: COMPONENT_SPEC
// Spec: spec/core/component-schema.md

// ComponentKind is the entity a component attaches to (spec.md §3).
type ComponentKind int

const (
	KindNode ComponentKind = iota + 1
	KindEdge
	KindGlobal
)

// String names the kind for diagnostics and the wire form (spec.md §6:
// Node=1, Edge=2, Global=3).
func (k ComponentKind) String() string {
	switch k {
	case KindNode:
		return "Node"
	case KindEdge:
		return "Edge"
	case KindGlobal:
		return "Global"
	default:
		return "Unknown"
	}
}

// Spec is a ComponentSpec: (name, kind, structure) (spec.md §3). Names are
// globally unique across a running system.
type Spec struct {
	Name      string
	Kind      ComponentKind
	Structure Structure
}

// Conflicts reports whether two specs declare the same name with a
// different kind or structure — the condition that is fatal at registration
// (spec.md §3, §4.6, SchemaConflict in §7).
func (s Spec) Conflicts(other Spec) bool {
	return s.Name == other.Name && (s.Kind != other.Kind || !Equal(s.Structure, other.Structure))
}

// String renders the spec for diagnostics.
func (s Spec) String() string {
	return fmt.Sprintf("%s(%s)", s.Name, s.Kind)
}
