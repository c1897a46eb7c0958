// SPDX-License-Identifier: AGPL-3.0-or-later

/*
simcore - a distributed digital-twin simulation platform core.

Copyright (C) 2025  simcore contributors

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.
*/

// Package value implements the self-describing dynamic Value tree that
// carries every component's payload on the wire and in persistence
// (spec.md §3, §4.1, §6).
package value

import (
	"fmt"

	"simcore/pkg/simerr"
)

// Feature: VALUE_CODEC
// Spec: spec/core/value-codec.md

// Kind discriminates the sum type a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindList
	KindStruct
)

// String names the kind, mostly for error messages.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindStruct:
		return "struct"
	default:
		return "unknown"
	}
}

// field is one name→Value pair of a struct Value. Struct values preserve
// insertion order; names must be unique within one struct.
type field struct {
	name  string
	value Value
}

// Value is the dynamic, self-describing payload of a component (spec.md
// §3). Exactly one of the typed accessors is meaningful, selected by Kind.
type Value struct {
	kind   Kind
	bool_  bool
	number float64
	str    string
	list   []Value
	fields []field
}

// Null returns the null Value.
func Null() Value { return Value{kind: KindNull} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, bool_: b} }

// Number wraps an IEEE-754 double.
func Number(n float64) Value { return Value{kind: KindNumber, number: n} }

// String wraps a UTF-8 string.
func String(s string) Value { return Value{kind: KindString, str: s} }

// List wraps an ordered sequence of Values. The slice is copied.
func List(items ...Value) Value {
	cp := make([]Value, len(items))
	copy(cp, items)
	return Value{kind: KindList, list: cp}
}

// StructBuilder accumulates name→Value pairs for Struct, preserving
// insertion order and rejecting duplicate names.
type StructBuilder struct {
	fields []field
	seen   map[string]struct{}
}

// NewStruct starts an empty struct builder.
func NewStruct() *StructBuilder {
	return &StructBuilder{seen: make(map[string]struct{})}
}

// Set appends a name→Value pair. Panics on a duplicate name, matching the
// "keys unique" invariant of spec.md §3 — callers construct Values from
// trusted schemas, not untrusted wire input (Decode enforces uniqueness
// there by construction of the wire format itself).
func (b *StructBuilder) Set(name string, v Value) *StructBuilder {
	if _, ok := b.seen[name]; ok {
		panic(fmt.Sprintf("value: duplicate struct field %q", name))
	}
	b.seen[name] = struct{}{}
	b.fields = append(b.fields, field{name: name, value: v})
	return b
}

// Build finalizes the struct Value.
func (b *StructBuilder) Build() Value {
	return Value{kind: KindStruct, fields: b.fields}
}

// Kind returns the Value's discriminant.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the bool payload and whether v is a bool.
func (v Value) AsBool() (bool, bool) { return v.bool_, v.kind == KindBool }

// AsNumber returns the number payload and whether v is a number.
func (v Value) AsNumber() (float64, bool) { return v.number, v.kind == KindNumber }

// AsString returns the string payload and whether v is a string.
func (v Value) AsString() (string, bool) { return v.str, v.kind == KindString }

// AsList returns the list payload and whether v is a list. The returned
// slice must not be mutated by the caller.
func (v Value) AsList() ([]Value, bool) { return v.list, v.kind == KindList }

// Fields returns the struct's name→Value pairs in insertion order, and
// whether v is a struct.
func (v Value) Fields() ([]StructField, bool) {
	if v.kind != KindStruct {
		return nil, false
	}
	out := make([]StructField, len(v.fields))
	for i, f := range v.fields {
		out[i] = StructField{Name: f.name, Value: f.value}
	}
	return out, true
}

// StructField is a single exported name→Value pair of a struct Value.
type StructField struct {
	Name  string
	Value Value
}

// Get returns the named field of a struct Value, if present.
func (v Value) Get(name string) (Value, bool) {
	if v.kind != KindStruct {
		return Value{}, false
	}
	for _, f := range v.fields {
		if f.name == name {
			return f.value, true
		}
	}
	return Value{}, false
}

// Equal reports deep, order-sensitive-for-lists, order-insensitive-for-structs
// equality, matching the ComponentStructure equality rule that struct field
// ordering is not significant (spec.md §3).
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.bool_ == b.bool_
	case KindNumber:
		return a.number == b.number || (a.number != a.number && b.number != b.number) // NaN aware, though NaN is rejected by Encode
	case KindString:
		return a.str == b.str
	case KindList:
		if len(a.list) != len(b.list) {
			return false
		}
		for i := range a.list {
			if !Equal(a.list[i], b.list[i]) {
				return false
			}
		}
		return true
	case KindStruct:
		if len(a.fields) != len(b.fields) {
			return false
		}
		am := make(map[string]Value, len(a.fields))
		for _, f := range a.fields {
			am[f.name] = f.value
		}
		bSeen := make(map[string]struct{}, len(b.fields))
		for _, f := range b.fields {
			bSeen[f.name] = struct{}{}
			av, ok := am[f.name]
			if !ok || !Equal(av, f.value) {
				return false
			}
		}
		return len(bSeen) == len(am)
	default:
		return false
	}
}

// errInvalidValue constructs the InvalidValue category error for
// non-finite numbers (spec.md §4.1).
func errInvalidValue(msg string) error {
	return simerr.New(simerr.KindInvalidInput, msg)
}
