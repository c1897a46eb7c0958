// SPDX-License-Identifier: AGPL-3.0-or-later

/*
simcore - a distributed digital-twin simulation platform core.

Copyright (C) 2025  simcore contributors

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.
*/

package component

import (
	"strings"
	"testing"

	"simcore/pkg/simerr"
	"simcore/pkg/value"
)

// Feature: COMPONENT_SCHEMA
// Spec: spec/core/component-schema.md

func TestPrimitiveFit_IntegerBounds(t *testing.T) {
	u8 := NewPrimitive(U8)

	if !u8.Accepts(value.Number(255)) {
		t.Error("255 should fit u8")
	}
	if u8.Accepts(value.Number(256)) {
		t.Error("256 should not fit u8")
	}
	if u8.Accepts(value.Number(-1)) {
		t.Error("-1 should not fit u8")
	}
	if u8.Accepts(value.Number(1.5)) {
		t.Error("non-integral number should not fit u8")
	}
}

func TestOption_NullIsNone(t *testing.T) {
	opt := NewOption(NewPrimitive(F64))

	decoded, err := opt.DecodeAs(value.Null())
	if err != nil {
		t.Fatalf("null should decode to None: %v", err)
	}
	if !decoded.IsNull() {
		t.Fatalf("expected null, got %v", decoded)
	}

	decoded, err = opt.DecodeAs(value.Number(3.5))
	if err != nil {
		t.Fatalf("inner value should decode: %v", err)
	}
	if n, _ := decoded.AsNumber(); n != 3.5 {
		t.Fatalf("expected 3.5, got %v", n)
	}
}

func TestList_ElementErrorsAreFatalAndPositional(t *testing.T) {
	list := NewList(NewPrimitive(U8))
	_, err := list.DecodeAs(value.List(value.Number(1), value.Number(-1), value.Number(3)))
	if err == nil {
		t.Fatal("expected error for out-of-range element")
	}
	if simerr.KindOf(err) != simerr.KindStructureMismatch {
		t.Fatalf("expected StructureMismatch, got %v", simerr.KindOf(err))
	}
	if !strings.Contains(err.Error(), "element 1") {
		t.Fatalf("expected error to name element 1, got %v", err)
	}
}

func TestStruct_ExtraFieldsIgnored_MissingOptionDefaultsNone(t *testing.T) {
	s := NewStructBuilder().
		Field("required", NewPrimitive(F64)).
		Field("optional", NewOption(NewPrimitive(F64))).
		Build()

	in := value.NewStruct().Set("required", value.Number(1)).Set("extra", value.Bool(true)).Build()
	decoded, err := s.DecodeAs(in)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if _, ok := decoded.Get("extra"); ok {
		t.Fatal("extra field should be dropped")
	}
	opt, ok := decoded.Get("optional")
	if !ok || !opt.IsNull() {
		t.Fatal("missing optional field should default to null/None")
	}
}

func TestStruct_MissingRequiredFieldIsMismatch(t *testing.T) {
	s := NewStructBuilder().Field("required", NewPrimitive(F64)).Build()
	_, err := s.DecodeAs(value.NewStruct().Build())
	if err == nil {
		t.Fatal("expected StructureMismatch")
	}
	if simerr.KindOf(err) != simerr.KindStructureMismatch {
		t.Fatalf("expected StructureMismatch, got %v", simerr.KindOf(err))
	}
}

func TestEqual_FieldOrderInsignificant(t *testing.T) {
	a := NewStructBuilder().Field("a", NewPrimitive(Bool)).Field("b", NewPrimitive(F64)).Build()
	b := NewStructBuilder().Field("b", NewPrimitive(F64)).Field("a", NewPrimitive(Bool)).Build()
	if !Equal(a, b) {
		t.Fatal("expected structural equality regardless of declared field order")
	}
}

// TestAccepts_MatchesDecodeAsRoundTrip is the quantified property of
// spec.md §8: `s.accepts(v) ⇔ decode_as(s, encode(v)) = Ok(v)`.
func TestAccepts_MatchesDecodeAsRoundTrip(t *testing.T) {
	s := NewStructBuilder().
		Field("x", NewPrimitive(U16)).
		Field("y", NewOption(NewPrimitive(StringPrimitive))).
		Build()

	cases := []value.Value{
		value.NewStruct().Set("x", value.Number(10)).Set("y", value.Null()).Build(),
		value.NewStruct().Set("x", value.Number(10)).Set("y", value.String("hi")).Build(),
		value.NewStruct().Set("x", value.Number(-1)).Build(), // invalid: negative u16
		value.Bool(true),                                     // invalid: not a struct
	}

	for i, v := range cases {
		accepts := s.Accepts(v)
		decoded, err := s.DecodeAs(v)
		if accepts != (err == nil) {
			t.Fatalf("case %d: Accepts=%v but DecodeAs err=%v", i, accepts, err)
		}
		if err == nil && !value.Equal(decoded, v) {
			// Only compares when decoding is a pure pass-through (no
			// Option-default or extra-field dropping applies to these cases).
			t.Fatalf("case %d: decoded value diverged from input", i)
		}
	}
}

func TestConflicts(t *testing.T) {
	a := Spec{Name: "temp", Kind: KindNode, Structure: NewPrimitive(F64)}
	b := Spec{Name: "temp", Kind: KindNode, Structure: NewPrimitive(F64)}
	c := Spec{Name: "temp", Kind: KindNode, Structure: NewPrimitive(F32)}
	d := Spec{Name: "temp", Kind: KindEdge, Structure: NewPrimitive(F64)}

	if a.Conflicts(b) {
		t.Error("identical specs should not conflict")
	}
	if !a.Conflicts(c) {
		t.Error("differing structure should conflict")
	}
	if !a.Conflicts(d) {
		t.Error("differing kind should conflict")
	}
}
