// SPDX-License-Identifier: AGPL-3.0-or-later

/*
simcore - a distributed digital-twin simulation platform core.

Copyright (C) 2025  simcore contributors

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.
*/

package component

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"simcore/pkg/simerr"
)

// Feature: COMPONENT_WIRE
// Spec: spec/core/component-schema.md (§6 ComponentSpec wire form)

// structureTag enumerates the recursive ComponentStructure union on the
// wire: primitive(0), option(1), list(2), struct(3).
type structureTag byte

const (
	structTagPrimitive structureTag = 0
	structTagOption    structureTag = 1
	structTagList      structureTag = 2
	structTagStruct    structureTag = 3
)

// EncodeStructure serializes a ComponentStructure per spec.md §6: a
// recursive union of primitive (with a 14-value enum), Option(structure),
// List(structure), Struct(name→structure map).
func EncodeStructure(s Structure) []byte {
	var buf bytes.Buffer
	encodeStructureInto(&buf, s)
	return buf.Bytes()
}

func encodeStructureInto(buf *bytes.Buffer, s Structure) {
	switch s.kind {
	case KindPrimitive:
		buf.WriteByte(byte(structTagPrimitive))
		buf.WriteByte(byte(s.primitive))
	case KindOption:
		buf.WriteByte(byte(structTagOption))
		encodeStructureInto(buf, *s.inner)
	case KindList:
		buf.WriteByte(byte(structTagList))
		encodeStructureInto(buf, *s.inner)
	case KindStruct:
		buf.WriteByte(byte(structTagStruct))
		writeCount(buf, len(s.fieldOrd))
		for _, name := range s.fieldOrd {
			writeLengthPrefixed(buf, []byte(name))
			encodeStructureInto(buf, s.fields[name])
		}
	}
}

// DecodeStructure parses the wire form produced by EncodeStructure.
func DecodeStructure(data []byte) (Structure, error) {
	r := bytes.NewReader(data)
	s, err := decodeStructureFrom(r)
	if err != nil {
		return Structure{}, err
	}
	if r.Len() != 0 {
		return Structure{}, invalid("trailing bytes after decoded structure")
	}
	return s, nil
}

func decodeStructureFrom(r *bytes.Reader) (Structure, error) {
	tagByte, err := r.ReadByte()
	if err != nil {
		return Structure{}, invalid("truncated structure: missing tag")
	}
	switch structureTag(tagByte) {
	case structTagPrimitive:
		pByte, err := r.ReadByte()
		if err != nil {
			return Structure{}, invalid("truncated primitive tag")
		}
		return NewPrimitive(Primitive(pByte)), nil
	case structTagOption:
		inner, err := decodeStructureFrom(r)
		if err != nil {
			return Structure{}, err
		}
		return NewOption(inner), nil
	case structTagList:
		inner, err := decodeStructureFrom(r)
		if err != nil {
			return Structure{}, err
		}
		return NewList(inner), nil
	case structTagStruct:
		n, err := readCount(r)
		if err != nil {
			return Structure{}, err
		}
		b := NewStructBuilder()
		for i := 0; i < n; i++ {
			nameBytes, err := readLengthPrefixed(r)
			if err != nil {
				return Structure{}, err
			}
			fieldStruct, err := decodeStructureFrom(r)
			if err != nil {
				return Structure{}, fmt.Errorf("field %q: %w", nameBytes, err)
			}
			b.Field(string(nameBytes), fieldStruct)
		}
		return b.Build(), nil
	default:
		return Structure{}, invalid(fmt.Sprintf("unknown structure tag %d", tagByte))
	}
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

func readCount(r *bytes.Reader) (int, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, invalid("truncated count prefix")
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
		return nil, invalid("truncated length-prefixed payload")
	}
	return data, nil
}

// EncodeSpec serializes a ComponentSpec: (kind enum, structure) (spec.md §6).
func EncodeSpec(s Spec) []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(s.Kind))
	encodeStructureInto(&buf, s.Structure)
	return buf.Bytes()
}

// DecodeSpec parses the wire form produced by EncodeSpec. The name is not
// part of the wire payload here (it is the map key / RPC field carrying the
// spec); callers attach it after decoding.
func DecodeSpec(name string, data []byte) (Spec, error) {
	r := bytes.NewReader(data)
	kindByte, err := r.ReadByte()
	if err != nil {
		return Spec{}, invalid("truncated component spec: missing kind")
	}
	kind := ComponentKind(kindByte)
	if kind != KindNode && kind != KindEdge && kind != KindGlobal {
		return Spec{}, invalid(fmt.Sprintf("unknown component kind %d", kindByte))
	}
	structure, err := decodeStructureFrom(r)
	if err != nil {
		return Spec{}, err
	}
	if r.Len() != 0 {
		return Spec{}, invalid("trailing bytes after decoded component spec")
	}
	return Spec{Name: name, Kind: kind, Structure: structure}, nil
}

func invalid(msg string) error {
	return simerr.New(simerr.KindInvalidInput, msg)
}
