// SPDX-License-Identifier: AGPL-3.0-or-later

/*
simcore - a distributed digital-twin simulation platform core.

Copyright (C) 2025  simcore contributors

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.
*/

package transport

import "simcore/pkg/component"

// Feature: TRANSPORT_MESSAGES
// Spec: spec/core/transport.md

// structureToWire converts a component.Structure to its recursive wire form
// (spec.md §6: "structure is a recursive union").
func structureToWire(s component.Structure) StructureWire {
	switch s.Kind() {
	case component.KindPrimitive:
		return StructureWire{Kind: "primitive", Primitive: int32(s.Primitive())}
	case component.KindOption:
		inner := structureToWire(s.Inner())
		return StructureWire{Kind: "option", Inner: &inner}
	case component.KindList:
		inner := structureToWire(s.Inner())
		return StructureWire{Kind: "list", Inner: &inner}
	case component.KindStruct:
		names := s.FieldNames()
		fields := make([]StructFieldWire, 0, len(names))
		for _, name := range names {
			ft, _ := s.FieldType(name)
			fields = append(fields, StructFieldWire{Name: name, Type: structureToWire(ft)})
		}
		return StructureWire{Kind: "struct", Fields: fields}
	default:
		return StructureWire{}
	}
}

// structureFromWire reconstructs a component.Structure from its wire form.
func structureFromWire(w StructureWire) component.Structure {
	switch w.Kind {
	case "primitive":
		return component.NewPrimitive(component.Primitive(w.Primitive))
	case "option":
		return component.NewOption(structureFromWire(*w.Inner))
	case "list":
		return component.NewList(structureFromWire(*w.Inner))
	case "struct":
		b := component.NewStructBuilder()
		for _, f := range w.Fields {
			b.Field(f.Name, structureFromWire(f.Type))
		}
		return b.Build()
	default:
		return component.Structure{}
	}
}

// specToWire converts a component.Spec to its wire form.
func specToWire(s component.Spec) ComponentSpecWire {
	return ComponentSpecWire{Name: s.Name, Kind: int32(s.Kind), Structure: structureToWire(s.Structure)}
}

// specFromWire reconstructs a component.Spec from its wire form.
func specFromWire(w ComponentSpecWire) component.Spec {
	return component.Spec{Name: w.Name, Kind: component.ComponentKind(w.Kind), Structure: structureFromWire(w.Structure)}
}

func specsToWire(specs []component.Spec) []ComponentSpecWire {
	out := make([]ComponentSpecWire, len(specs))
	for i, s := range specs {
		out[i] = specToWire(s)
	}
	return out
}

func specsFromWire(wire []ComponentSpecWire) []component.Spec {
	out := make([]component.Spec, len(wire))
	for i, w := range wire {
		out[i] = specFromWire(w)
	}
	return out
}
