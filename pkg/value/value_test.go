// SPDX-License-Identifier: AGPL-3.0-or-later

/*
simcore - a distributed digital-twin simulation platform core.

Copyright (C) 2025  simcore contributors

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.
*/

package value

import (
	"math"
	"testing"

	"simcore/pkg/simerr"
)

// Feature: VALUE_CODEC
// Spec: spec/core/value-codec.md

func sampleValues() []Value {
	return []Value{
		Null(),
		Bool(true),
		Bool(false),
		Number(0),
		Number(-12.5),
		Number(1 << 40),
		String(""),
		String("hello, 世界"),
		List(),
		List(Number(1), Number(2), String("three")),
		NewStruct().Build(),
		NewStruct().Set("a", Number(1)).Set("b", String("x")).Build(),
		List(
			NewStruct().Set("nested", List(Bool(true), Null())).Build(),
			Number(3.14159),
		),
	}
}

func TestWireRoundTrip(t *testing.T) {
	for i, v := range sampleValues() {
		encoded, err := Encode(v)
		if err != nil {
			t.Fatalf("case %d: Encode: %v", i, err)
		}
		decoded, err := Decode(encoded)
		if err != nil {
			t.Fatalf("case %d: Decode: %v", i, err)
		}
		if !Equal(v, decoded) {
			t.Fatalf("case %d: round trip mismatch", i)
		}
	}
}

func TestJSONRoundTrip(t *testing.T) {
	for i, v := range sampleValues() {
		encoded, err := ToJSON(v)
		if err != nil {
			t.Fatalf("case %d: ToJSON: %v", i, err)
		}
		decoded, err := FromJSON(encoded)
		if err != nil {
			t.Fatalf("case %d: FromJSON: %v", i, err)
		}
		if !Equal(v, decoded) {
			t.Fatalf("case %d: JSON round trip mismatch: %s", i, encoded)
		}
	}
}

func TestEncode_RejectsNonFinite(t *testing.T) {
	for _, n := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := Encode(Number(n))
		if err == nil {
			t.Fatalf("expected error encoding %v", n)
		}
		if simerr.KindOf(err) != simerr.KindInvalidInput {
			t.Fatalf("expected InvalidInput, got %v", simerr.KindOf(err))
		}
	}
}

func TestToJSON_RejectsNonFinite(t *testing.T) {
	_, err := ToJSON(Number(math.NaN()))
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestDecode_RejectsDuplicateStructField(t *testing.T) {
	// Hand-build a wire payload with two identical field names, bypassing
	// StructBuilder (which itself forbids duplicates) to exercise Decode's
	// own guard against a malformed/adversarial wire payload: tag=struct(5),
	// count=2, two fields each named "x" holding the number 1.
	var buf []byte
	buf = append(buf, byte(tagStruct))
	buf = append(buf, 2, 0, 0, 0) // count = 2, little-endian uint32
	numberOne, err := Encode(Number(1))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		buf = append(buf, 1, 0, 0, 0) // name length = 1
		buf = append(buf, 'x')
		buf = append(buf, numberOne...)
	}

	if _, err := Decode(buf); err == nil {
		t.Fatal("expected duplicate field error")
	}
}

func TestStructBuilder_PanicsOnDuplicateName(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate field name")
		}
	}()
	NewStruct().Set("x", Number(1)).Set("x", Number(2))
}

func TestEqual_StructFieldOrderInsignificant(t *testing.T) {
	a := NewStruct().Set("a", Number(1)).Set("b", Number(2)).Build()
	b := NewStruct().Set("b", Number(2)).Set("a", Number(1)).Build()
	if !Equal(a, b) {
		t.Fatal("expected struct equality regardless of field order")
	}
}

func TestGet(t *testing.T) {
	s := NewStruct().Set("x", Number(42)).Build()
	v, ok := s.Get("x")
	if !ok {
		t.Fatal("expected field x")
	}
	if n, _ := v.AsNumber(); n != 42 {
		t.Fatalf("expected 42, got %v", n)
	}
	if _, ok := s.Get("missing"); ok {
		t.Fatal("expected missing field to be absent")
	}
}
