// SPDX-License-Identifier: AGPL-3.0-or-later

/*
simcore - a distributed digital-twin simulation platform core.

Copyright (C) 2025  simcore contributors

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.
*/

package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// Feature: VALUE_CODEC_JSON
// Spec: spec/core/value-codec.md (§4.1, §6 JSON persistence form)

// ToJSON renders v as the persisted JSON form (spec.md §6): null↔null,
// bool↔bool, number↔number, string↔string, list↔array, struct↔object.
// Struct field order is preserved by encoding as a JSON object built
// field-by-field rather than via a Go map (maps would not preserve order).
func ToJSON(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeJSON(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeJSON(buf *bytes.Buffer, v Value) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		if v.bool_ {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case KindNumber:
		if math.IsNaN(v.number) || math.IsInf(v.number, 0) {
			return errInvalidValue(fmt.Sprintf("non-finite number %v", v.number))
		}
		enc, err := json.Marshal(v.number)
		if err != nil {
			return err
		}
		buf.Write(enc)
	case KindString:
		enc, err := json.Marshal(v.str)
		if err != nil {
			return err
		}
		buf.Write(enc)
	case KindList:
		buf.WriteByte('[')
		for i, item := range v.list {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSON(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindStruct:
		buf.WriteByte('{')
		for i, f := range v.fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			nameEnc, err := json.Marshal(f.name)
			if err != nil {
				return err
			}
			buf.Write(nameEnc)
			buf.WriteByte(':')
			if err := writeJSON(buf, f.value); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return errInvalidValue(fmt.Sprintf("unknown value kind %d", v.kind))
	}
	return nil
}

// FromJSON parses the persisted JSON form back into a Value.
func FromJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return Value{}, errInvalidValue(fmt.Sprintf("invalid JSON: %v", err))
	}
	if dec.More() {
		return Value{}, errInvalidValue("trailing content after JSON value")
	}
	return fromGo(raw)
}

func fromGo(raw interface{}) (Value, error) {
	switch t := raw.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, errInvalidValue(fmt.Sprintf("invalid JSON number %q", t.String()))
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return Value{}, errInvalidValue(fmt.Sprintf("non-finite JSON number %q", t.String()))
		}
		return Number(f), nil
	case string:
		return String(t), nil
	case []interface{}:
		items := make([]Value, len(t))
		for i, item := range t {
			v, err := fromGo(item)
			if err != nil {
				return Value{}, fmt.Errorf("array element %d: %w", i, err)
			}
			items[i] = v
		}
		return Value{kind: KindList, list: items}, nil
	case map[string]interface{}:
		// encoding/json does not preserve object key order; to honor the
		// round-trip law for struct field order we require callers that
		// care about exact order to go through the wire codec instead.
		// Persistence (jsonb) does not depend on field order (spec.md §4.3
		// says struct field ordering is not significant).
		names := make([]string, 0, len(t))
		for name := range t {
			names = append(names, name)
		}
		sort.Strings(names)
		fields := make([]field, 0, len(names))
		for _, name := range names {
			v, err := fromGo(t[name])
			if err != nil {
				return Value{}, fmt.Errorf("struct field %q: %w", name, err)
			}
			fields = append(fields, field{name: name, value: v})
		}
		return Value{kind: KindStruct, fields: fields}, nil
	default:
		return Value{}, errInvalidValue(fmt.Sprintf("unsupported JSON type %T", raw))
	}
}
