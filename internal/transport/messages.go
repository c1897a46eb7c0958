// SPDX-License-Identifier: AGPL-3.0-or-later

/*
simcore - a distributed digital-twin simulation platform core.

Copyright (C) 2025  simcore contributors

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.
*/

package transport

import "simcore/pkg/graph"

// Feature: TRANSPORT_MESSAGES
// Spec: spec/core/transport.md

// ComponentSpecWire is the wire form of a component.Spec (spec.md §6:
// "(kind enum, structure)").
type ComponentSpecWire struct {
	Name      string
	Kind      int32
	Structure StructureWire
}

// StructureWire is the recursive wire form of a component.Structure
// (spec.md §6): a primitive tag, or Option/List wrapping another
// StructureWire, or a Struct of named fields.
type StructureWire struct {
	Kind      string // "primitive", "option", "list", "struct"
	Primitive int32
	Inner     *StructureWire
	Fields    []StructFieldWire
}

// StructFieldWire is one named field of a Struct StructureWire, carried as
// an ordered slice rather than a map so field order survives the wire.
type StructFieldWire struct {
	Name string
	Type StructureWire
}

// RegisterRequest is what a simulator worker sends the connector on
// startup (spec.md §6: "Registration advertises (name, port, ComponentSpec
// set)").
type RegisterRequest struct {
	Name       string
	Endpoint   string
	Components []ComponentSpecWire
}

// RegisterResponse acknowledges a registration.
type RegisterResponse struct {
	OK    bool
	Error string
}

// IOConfigRequest is empty; GetIOConfig takes no parameters beyond the call
// context.
type IOConfigRequest struct{}

// IOConfigResponse carries a simulator's declared IOConfig.
type IOConfigResponse struct {
	Components     []ComponentSpecWire
	RequiredInputs []string
	OptionalInputs []string
	Outputs        []string
}

// SetupRequest carries the timestep-0 frame restricted to a simulator's
// declared inputs, and the simulation's step delta.
type SetupRequest struct {
	Initial     graph.WireGraph
	StepDeltaMs int32
}

// SetupResponse acknowledges a setup call.
type SetupResponse struct {
	OK    bool
	Error string
}

// DoTimestepRequest carries one step's input frame.
type DoTimestepRequest struct {
	Input graph.WireGraph
}

// DoTimestepResponse carries one step's output frame.
type DoTimestepResponse struct {
	Output graph.WireGraph
	Error  string
}

// SubmitSimulationRequest is the ControlPlane submit_simulation call
// (spec.md §4.9).
type SubmitSimulationRequest struct {
	Name               string
	Initial            graph.WireGraph
	StepDeltaMs        int32
	MaxSteps           int32
	SelectedSimulators []string
}

// SubmitSimulationResponse returns the assigned id, or an error (e.g.
// Conflict on a duplicate name).
type SubmitSimulationResponse struct {
	ID    string
	Error string
}

// GetSimulationRequest looks a simulation up by id or name.
type GetSimulationRequest struct {
	IDOrName string
}

// GetSimulationResponse is the projection spec.md §4.9's get_simulation
// returns.
type GetSimulationResponse struct {
	ID               string
	Name             string
	Status           int32
	StatusInfo       string
	TimestepCount    int32
	MaxTimestepCount int32
	StepDeltaMs      int32
	Error            string
}

// StreamFramesRequest is one (simulation_id, frame_nr) request sent by the
// client over the bidirectional stream (spec.md §6).
type StreamFramesRequest struct {
	SimulationID string
	FrameNr      int32
}

// StreamFramesResponse is the (request, state) pair the server emits per
// request, preserving order (spec.md §6).
type StreamFramesResponse struct {
	FrameNr int32
	Frame   *graph.WireGraph
	Error   string
}

// ListComponentsRequest is empty.
type ListComponentsRequest struct{}

// ListComponentsResponse is the union of all registered ComponentSpecs.
type ListComponentsResponse struct {
	Components []ComponentSpecWire
}

// ListSimulatorsRequest is empty.
type ListSimulatorsRequest struct{}

// SimulatorSummaryWire is one entry of list_simulators (spec.md §4.9).
type SimulatorSummaryWire struct {
	Name            string
	DeclaredOutputs []string
}

// ListSimulatorsResponse enumerates registered simulators.
type ListSimulatorsResponse struct {
	Simulators []SimulatorSummaryWire
}

// DeleteSimulationRequest names a simulation to cascade-delete.
type DeleteSimulationRequest struct {
	Name string
}

// DeleteSimulationResponse acknowledges a delete.
type DeleteSimulationResponse struct {
	OK    bool
	Error string
}
