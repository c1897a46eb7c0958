// SPDX-License-Identifier: AGPL-3.0-or-later

/*
simcore - a distributed digital-twin simulation platform core.

Copyright (C) 2025  simcore contributors

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.
*/

// Package component implements ComponentStructure and ComponentSpec: the
// schema layer that validates dynamic Values against a declared shape
// (spec.md §3, §4.2).
package component

import (
	"fmt"
	"math"

	"simcore/pkg/simerr"
	"simcore/pkg/value"
)

// Feature: COMPONENT_SCHEMA
// Spec: spec/core/component-schema.md

// Primitive enumerates the 14 primitive tags of spec.md §3.
type Primitive int

const (
	Bool Primitive = iota
	U8
	U16
	U32
	U64
	U128
	I8
	I16
	I32
	I64
	I128
	F32
	F64
	StringPrimitive
)

// primitiveRange describes the inclusive integer bounds a primitive kind
// accepts; non-integer primitives are handled separately in Accepts.
var primitiveRange = map[Primitive][2]float64{
	U8:   {0, math.MaxUint8},
	U16:  {0, math.MaxUint16},
	U32:  {0, math.MaxUint32},
	U64:  {0, math.MaxUint64},
	U128: {0, math.MaxUint64}, // Go has no native u128; bounded by float64 precision in practice.
	I8:   {math.MinInt8, math.MaxInt8},
	I16:  {math.MinInt16, math.MaxInt16},
	I32:  {math.MinInt32, math.MaxInt32},
	I64:  {math.MinInt64, math.MaxInt64},
	I128: {math.MinInt64, math.MaxInt64},
}

// Kind discriminates the ComponentStructure sum type.
type Kind int

const (
	KindPrimitive Kind = iota
	KindOption
	KindList
	KindStruct
)

// Structure is a ComponentStructure: a sum over a primitive tag, Option(T),
// List(T), or a named-field Struct (spec.md §3). Two structures are equal
// iff structurally identical; struct field ordering is not significant.
type Structure struct {
	kind      Kind
	primitive Primitive
	inner     *Structure          // Option/List element type
	fields    map[string]Structure // Struct
	fieldOrd  []string             // declared order, for deterministic wire/diagnostics
}

// NewPrimitive builds a primitive structure.
func NewPrimitive(p Primitive) Structure {
	return Structure{kind: KindPrimitive, primitive: p}
}

// NewOption builds an Option(inner) structure.
func NewOption(inner Structure) Structure {
	cp := inner
	return Structure{kind: KindOption, inner: &cp}
}

// NewList builds a List(inner) structure.
func NewList(inner Structure) Structure {
	cp := inner
	return Structure{kind: KindList, inner: &cp}
}

// StructBuilder accumulates named fields for a Struct structure, preserving
// declaration order for diagnostics while treating the set as unordered for
// equality (spec.md §3).
type StructBuilder struct {
	fields map[string]Structure
	order  []string
}

// NewStructBuilder starts an empty struct structure builder.
func NewStructBuilder() *StructBuilder {
	return &StructBuilder{fields: make(map[string]Structure)}
}

// Field declares a named field. Panics on a duplicate name.
func (b *StructBuilder) Field(name string, s Structure) *StructBuilder {
	if _, ok := b.fields[name]; ok {
		panic(fmt.Sprintf("component: duplicate struct field %q", name))
	}
	b.fields[name] = s
	b.order = append(b.order, name)
	return b
}

// Build finalizes the Struct structure.
func (b *StructBuilder) Build() Structure {
	fields := make(map[string]Structure, len(b.fields))
	for k, v := range b.fields {
		fields[k] = v
	}
	order := make([]string, len(b.order))
	copy(order, b.order)
	return Structure{kind: KindStruct, fields: fields, fieldOrd: order}
}

// Kind returns the structure's discriminant.
func (s Structure) Kind() Kind { return s.kind }

// Primitive returns the primitive tag; only meaningful if Kind()==KindPrimitive.
func (s Structure) Primitive() Primitive { return s.primitive }

// Inner returns the Option/List element type; only meaningful for those kinds.
func (s Structure) Inner() Structure {
	if s.inner == nil {
		return Structure{}
	}
	return *s.inner
}

// FieldNames returns the declared field names of a Struct structure in
// declaration order.
func (s Structure) FieldNames() []string {
	out := make([]string, len(s.fieldOrd))
	copy(out, s.fieldOrd)
	return out
}

// FieldType returns the structure of a named struct field.
func (s Structure) FieldType(name string) (Structure, bool) {
	f, ok := s.fields[name]
	return f, ok
}

// Equal reports structural equality: field ordering does not matter.
func Equal(a, b Structure) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindPrimitive:
		return a.primitive == b.primitive
	case KindOption, KindList:
		return Equal(*a.inner, *b.inner)
	case KindStruct:
		if len(a.fields) != len(b.fields) {
			return false
		}
		for name, at := range a.fields {
			bt, ok := b.fields[name]
			if !ok || !Equal(at, bt) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Accepts reports whether v structurally fits s (spec.md §4.2), that is,
// whether s.DecodeAs(v) succeeds. The decoded Value equals v unless DecodeAs
// dropped extra struct fields or filled missing Option fields with None.
func (s Structure) Accepts(v value.Value) bool {
	_, err := s.DecodeAs(v)
	return err == nil
}

// DecodeAs validates and narrows v against s, returning StructureMismatch on
// any incompatibility. Integer primitives require a finite, integral Value
// within range (spec.md §4.2 "Primitive fit"). Option treats a null Value as
// None; Struct decode ignores extra fields and defaults missing Option
// fields to None, failing with StructureMismatch on any other missing field.
func (s Structure) DecodeAs(v value.Value) (value.Value, error) {
	switch s.kind {
	case KindPrimitive:
		return s.decodePrimitive(v)
	case KindOption:
		if v.IsNull() {
			return value.Null(), nil
		}
		return s.inner.DecodeAs(v)
	case KindList:
		items, ok := v.AsList()
		if !ok {
			return value.Value{}, mismatch("expected list, got %s", v.Kind())
		}
		decoded := make([]value.Value, len(items))
		for i, item := range items {
			d, err := s.inner.DecodeAs(item)
			if err != nil {
				return value.Value{}, fmt.Errorf("element %d: %w", i, err)
			}
			decoded[i] = d
		}
		return value.List(decoded...), nil
	case KindStruct:
		return s.decodeStruct(v)
	default:
		return value.Value{}, mismatch("unknown structure kind %d", s.kind)
	}
}

func (s Structure) decodePrimitive(v value.Value) (value.Value, error) {
	switch s.primitive {
	case Bool:
		b, ok := v.AsBool()
		if !ok {
			return value.Value{}, mismatch("expected bool, got %s", v.Kind())
		}
		return value.Bool(b), nil
	case StringPrimitive:
		str, ok := v.AsString()
		if !ok {
			return value.Value{}, mismatch("expected string, got %s", v.Kind())
		}
		return value.String(str), nil
	case F32, F64:
		n, ok := v.AsNumber()
		if !ok {
			return value.Value{}, mismatch("expected number, got %s", v.Kind())
		}
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return value.Value{}, mismatch("non-finite number")
		}
		return value.Number(n), nil
	default:
		n, ok := v.AsNumber()
		if !ok {
			return value.Value{}, mismatch("expected integer number, got %s", v.Kind())
		}
		if math.IsNaN(n) || math.IsInf(n, 0) || n != math.Trunc(n) {
			return value.Value{}, mismatch("expected integral number, got %v", n)
		}
		bounds, ok := primitiveRange[s.primitive]
		if !ok {
			return value.Value{}, mismatch("unknown integer primitive %d", s.primitive)
		}
		if n < bounds[0] || n > bounds[1] {
			return value.Value{}, mismatch("value %v out of range for primitive", n)
		}
		return value.Number(n), nil
	}
}

func (s Structure) decodeStruct(v value.Value) (value.Value, error) {
	fields, ok := v.Fields()
	if !ok {
		return value.Value{}, mismatch("expected struct, got %s", v.Kind())
	}
	present := make(map[string]value.Value, len(fields))
	for _, f := range fields {
		present[f.Name] = f.Value
	}

	out := value.NewStruct()
	for _, name := range s.fieldOrd {
		fieldType := s.fields[name]
		raw, ok := present[name]
		if !ok {
			if fieldType.kind == KindOption {
				out.Set(name, value.Null())
				continue
			}
			return value.Value{}, mismatch("missing required field %q", name)
		}
		decoded, err := fieldType.DecodeAs(raw)
		if err != nil {
			return value.Value{}, fmt.Errorf("field %q: %w", name, err)
		}
		out.Set(name, decoded)
	}
	return out.Build(), nil
}

func mismatch(format string, args ...interface{}) error {
	return simerr.New(simerr.KindStructureMismatch, fmt.Sprintf(format, args...))
}
