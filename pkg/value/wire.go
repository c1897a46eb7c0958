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
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Feature: VALUE_CODEC_WIRE
// Spec: spec/core/value-codec.md (§6 wire format)

// wireTag is the discriminated-union tag byte on the wire (spec.md §6).
type wireTag byte

const (
	tagNull   wireTag = 0
	tagBool   wireTag = 1
	tagNumber wireTag = 2
	tagString wireTag = 3
	tagList   wireTag = 4
	tagStruct wireTag = 5
)

// Encode serializes v into the bit-exact wire format of spec.md §6:
// a tag byte, then a tag-specific payload (booleans as one byte,
// numbers as little-endian IEEE-754 doubles, strings/lists/structs
// length- or count-prefixed with a uint32).
//
// Encode rejects non-finite numbers anywhere in the tree with
// InvalidInput, per spec.md §4.1.
func Encode(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeInto(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeInto(buf *bytes.Buffer, v Value) error {
	switch v.kind {
	case KindNull:
		buf.WriteByte(byte(tagNull))
	case KindBool:
		buf.WriteByte(byte(tagBool))
		if v.bool_ {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	case KindNumber:
		if math.IsNaN(v.number) || math.IsInf(v.number, 0) {
			return errInvalidValue(fmt.Sprintf("non-finite number %v", v.number))
		}
		buf.WriteByte(byte(tagNumber))
		var bits [8]byte
		binary.LittleEndian.PutUint64(bits[:], math.Float64bits(v.number))
		buf.Write(bits[:])
	case KindString:
		buf.WriteByte(byte(tagString))
		writeLengthPrefixed(buf, []byte(v.str))
	case KindList:
		buf.WriteByte(byte(tagList))
		writeCount(buf, len(v.list))
		for _, item := range v.list {
			if err := encodeInto(buf, item); err != nil {
				return err
			}
		}
	case KindStruct:
		buf.WriteByte(byte(tagStruct))
		writeCount(buf, len(v.fields))
		for _, f := range v.fields {
			writeLengthPrefixed(buf, []byte(f.name))
			if err := encodeInto(buf, f.value); err != nil {
				return err
			}
		}
	default:
		return errInvalidValue(fmt.Sprintf("unknown value kind %d", v.kind))
	}
	return nil
}

func writeCount(buf *bytes.Buffer, n int) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(n))
	buf.Write(b[:])
}

func writeLengthPrefixed(buf *bytes.Buffer, data []byte) {
	writeCount(buf, len(data))
	buf.Write(data)
}

// Decode parses the wire format produced by Encode. A top-level null is
// accepted by Decode itself; callers enforcing "null is an error in a
// non-Option context" do so at the ComponentSchema layer (spec.md §4.1).
func Decode(data []byte) (Value, error) {
	r := bytes.NewReader(data)
	v, err := decodeFrom(r)
	if err != nil {
		return Value{}, err
	}
	if r.Len() != 0 {
		return Value{}, errInvalidValue("trailing bytes after decoded value")
	}
	return v, nil
}

func decodeFrom(r *bytes.Reader) (Value, error) {
	tagByte, err := r.ReadByte()
	if err != nil {
		return Value{}, errInvalidValue("truncated value: missing tag byte")
	}

	switch wireTag(tagByte) {
	case tagNull:
		return Null(), nil
	case tagBool:
		b, err := r.ReadByte()
		if err != nil {
			return Value{}, errInvalidValue("truncated bool payload")
		}
		return Bool(b != 0), nil
	case tagNumber:
		var bits [8]byte
		if _, err := io.ReadFull(r, bits[:]); err != nil {
			return Value{}, errInvalidValue("truncated number payload")
		}
		n := math.Float64frombits(binary.LittleEndian.Uint64(bits[:]))
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return Value{}, errInvalidValue(fmt.Sprintf("non-finite number %v on wire", n))
		}
		return Number(n), nil
	case tagString:
		s, err := readLengthPrefixed(r)
		if err != nil {
			return Value{}, err
		}
		return String(string(s)), nil
	case tagList:
		n, err := readCount(r)
		if err != nil {
			return Value{}, err
		}
		items := make([]Value, 0, n)
		for i := 0; i < n; i++ {
			item, err := decodeFrom(r)
			if err != nil {
				return Value{}, fmt.Errorf("list element %d: %w", i, err)
			}
			items = append(items, item)
		}
		return Value{kind: KindList, list: items}, nil
	case tagStruct:
		n, err := readCount(r)
		if err != nil {
			return Value{}, err
		}
		seen := make(map[string]struct{}, n)
		fields := make([]field, 0, n)
		for i := 0; i < n; i++ {
			nameBytes, err := readLengthPrefixed(r)
			if err != nil {
				return Value{}, err
			}
			name := string(nameBytes)
			if _, dup := seen[name]; dup {
				return Value{}, errInvalidValue(fmt.Sprintf("duplicate struct field %q", name))
			}
			seen[name] = struct{}{}
			v, err := decodeFrom(r)
			if err != nil {
				return Value{}, fmt.Errorf("struct field %q: %w", name, err)
			}
			fields = append(fields, field{name: name, value: v})
		}
		return Value{kind: KindStruct, fields: fields}, nil
	default:
		return Value{}, errInvalidValue(fmt.Sprintf("unknown wire tag %d", tagByte))
	}
}

func readCount(r *bytes.Reader) (int, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, errInvalidValue("truncated count prefix")
	}
	return int(binary.LittleEndian.Uint32(b[:])), nil
}

func readLengthPrefixed(r *bytes.Reader) ([]byte, error) {
	n, err := readCount(r)
	if err != nil {
		return nil, err
	}
	data := make([]byte, n)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, errInvalidValue("truncated length-prefixed payload")
	}
	return data, nil
}
