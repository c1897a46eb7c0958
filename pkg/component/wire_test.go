// SPDX-License-Identifier: AGPL-3.0-or-later

/*
simcore - a distributed digital-twin simulation platform core.

Copyright (C) 2025  simcore contributors

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.
*/

package component

import "testing"

// Feature: COMPONENT_WIRE
// Spec: spec/core/component-schema.md

func TestStructureWireRoundTrip(t *testing.T) {
	structures := []Structure{
		NewPrimitive(Bool),
		NewPrimitive(U64),
		NewPrimitive(F32),
		NewOption(NewPrimitive(StringPrimitive)),
		NewList(NewPrimitive(I32)),
		NewStructBuilder().
			Field("a", NewPrimitive(U8)).
			Field("b", NewList(NewOption(NewPrimitive(F64)))).
			Build(),
	}

	for i, s := range structures {
		encoded := EncodeStructure(s)
		decoded, err := DecodeStructure(encoded)
		if err != nil {
			t.Fatalf("case %d: DecodeStructure: %v", i, err)
		}
		if !Equal(s, decoded) {
			t.Fatalf("case %d: round-trip mismatch", i)
		}
	}
}

func TestSpecWireRoundTrip(t *testing.T) {
	spec := Spec{
		Name: "voltage",
		Kind: KindEdge,
		Structure: NewStructBuilder().
			Field("magnitude", NewPrimitive(F64)).
			Field("phase", NewOption(NewPrimitive(F64))).
			Build(),
	}

	encoded := EncodeSpec(spec)
	decoded, err := DecodeSpec(spec.Name, encoded)
	if err != nil {
		t.Fatalf("DecodeSpec: %v", err)
	}
	if decoded.Name != spec.Name || decoded.Kind != spec.Kind || !Equal(decoded.Structure, spec.Structure) {
		t.Fatalf("round-trip mismatch: got %+v", decoded)
	}
}
