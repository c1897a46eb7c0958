// SPDX-License-Identifier: AGPL-3.0-or-later

/*
simcore - a distributed digital-twin simulation platform core.

Copyright (C) 2025  simcore contributors

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.
*/

package transport

import (
	"context"
	"io"

	"github.com/google/uuid"
	"google.golang.org/grpc"

	"simcore/internal/controlplane"
	"simcore/pkg/component"
	"simcore/pkg/graph"
)

// parseUUID wraps uuid.Parse so StreamFrames can report a malformed
// simulation id as a response-level error rather than a transport error.
func parseUUID(s string) (uuid.UUID, error) {
	return uuid.Parse(s)
}

// Feature: TRANSPORT_CONTROL_PLANE
// Spec: spec/core/transport.md (spec.md §4.9, §6: "bidirectional" stream_frames)

const controlPlaneServiceName = "simcore.ControlPlane"

// ControlPlaneRPCServer is the grpc-facing surface of internal/controlplane
// (spec.md §4.9, §6).
type ControlPlaneRPCServer interface {
	SubmitSimulation(ctx context.Context, req *SubmitSimulationRequest) (*SubmitSimulationResponse, error)
	GetSimulation(ctx context.Context, req *GetSimulationRequest) (*GetSimulationResponse, error)
	ListComponents(ctx context.Context, req *ListComponentsRequest) (*ListComponentsResponse, error)
	ListSimulators(ctx context.Context, req *ListSimulatorsRequest) (*ListSimulatorsResponse, error)
	DeleteSimulation(ctx context.Context, req *DeleteSimulationRequest) (*DeleteSimulationResponse, error)
	StreamFrames(stream grpc.ServerStream) error
}

// controlPlaneServer adapts a controlplane.ControlPlane to the grpc surface.
type controlPlaneServer struct {
	cp     *controlplane.ControlPlane
	schema func() graph.Schema
}

// NewControlPlaneServer wraps cp for registration against a grpc.Server.
// schema supplies the component schema StreamFrames needs to serialize
// frames (ordinarily registry.Registry.ComponentSchema).
func NewControlPlaneServer(cp *controlplane.ControlPlane, schema func() graph.Schema) ControlPlaneRPCServer {
	return &controlPlaneServer{cp: cp, schema: schema}
}

func (s *controlPlaneServer) SubmitSimulation(ctx context.Context, req *SubmitSimulationRequest) (*SubmitSimulationResponse, error) {
	g, err := graph.FromWire(req.Initial, s.schema())
	if err != nil {
		return &SubmitSimulationResponse{Error: err.Error()}, nil
	}
	id, err := s.cp.SubmitSimulation(ctx, req.Name, g, req.StepDeltaMs, req.MaxSteps, req.SelectedSimulators)
	if err != nil {
		return &SubmitSimulationResponse{Error: err.Error()}, nil
	}
	return &SubmitSimulationResponse{ID: id.String()}, nil
}

func (s *controlPlaneServer) GetSimulation(ctx context.Context, req *GetSimulationRequest) (*GetSimulationResponse, error) {
	status, err := s.cp.GetSimulation(ctx, req.IDOrName)
	if err != nil {
		return &GetSimulationResponse{Error: err.Error()}, nil
	}
	return &GetSimulationResponse{
		ID:               status.ID.String(),
		Name:             status.Name,
		Status:           int32(status.Status),
		StatusInfo:       status.StatusInfo,
		TimestepCount:    status.TimestepCount,
		MaxTimestepCount: status.MaxTimestepCount,
		StepDeltaMs:      status.StepDeltaMs,
	}, nil
}

func (s *controlPlaneServer) ListComponents(ctx context.Context, req *ListComponentsRequest) (*ListComponentsResponse, error) {
	components := s.cp.ListComponents()
	specs := make([]component.Spec, 0, len(components))
	for _, spec := range components {
		specs = append(specs, spec)
	}
	return &ListComponentsResponse{Components: specsToWire(specs)}, nil
}

func (s *controlPlaneServer) ListSimulators(ctx context.Context, req *ListSimulatorsRequest) (*ListSimulatorsResponse, error) {
	sims := s.cp.ListSimulators()
	out := make([]SimulatorSummaryWire, len(sims))
	for i, sim := range sims {
		out[i] = SimulatorSummaryWire{Name: sim.Name, DeclaredOutputs: sim.DeclaredOutputs}
	}
	return &ListSimulatorsResponse{Simulators: out}, nil
}

func (s *controlPlaneServer) DeleteSimulation(ctx context.Context, req *DeleteSimulationRequest) (*DeleteSimulationResponse, error) {
	if err := s.cp.DeleteSimulation(ctx, req.Name); err != nil {
		return &DeleteSimulationResponse{Error: err.Error()}, nil
	}
	return &DeleteSimulationResponse{OK: true}, nil
}

// StreamFrames implements the bidirectional stream_frames call: the client
// sends (simulation_id, frame_nr) requests, the server emits one response
// per request in order, loading each frame lazily (spec.md §6).
func (s *controlPlaneServer) StreamFrames(stream grpc.ServerStream) error {
	ctx := stream.Context()
	for {
		req := new(StreamFramesRequest)
		if err := stream.RecvMsg(req); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}

		var resp StreamFramesResponse
		resp.FrameNr = req.FrameNr
		id, err := parseUUID(req.SimulationID)
		if err != nil {
			resp.Error = err.Error()
		} else {
			emitted := false
			streamErr := s.cp.StreamFrames(ctx, id, []int32{req.FrameNr}, func(r controlplane.FrameResult) error {
				emitted = true
				if r.Err != nil {
					resp.Error = r.Err.Error()
					return nil
				}
				wire, err := graph.ToWire(r.Frame, s.schema())
				if err != nil {
					resp.Error = err.Error()
					return nil
				}
				resp.Frame = &wire
				return nil
			})
			if streamErr != nil {
				resp.Error = streamErr.Error()
			} else if !emitted {
				resp.Error = "frame not found"
			}
		}

		if err := stream.SendMsg(&resp); err != nil {
			return err
		}
	}
}

func _ControlPlane_SubmitSimulation_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(SubmitSimulationRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ControlPlaneRPCServer).SubmitSimulation(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + controlPlaneServiceName + "/SubmitSimulation"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ControlPlaneRPCServer).SubmitSimulation(ctx, req.(*SubmitSimulationRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func _ControlPlane_GetSimulation_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(GetSimulationRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ControlPlaneRPCServer).GetSimulation(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + controlPlaneServiceName + "/GetSimulation"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ControlPlaneRPCServer).GetSimulation(ctx, req.(*GetSimulationRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func _ControlPlane_ListComponents_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(ListComponentsRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ControlPlaneRPCServer).ListComponents(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + controlPlaneServiceName + "/ListComponents"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ControlPlaneRPCServer).ListComponents(ctx, req.(*ListComponentsRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func _ControlPlane_ListSimulators_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(ListSimulatorsRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ControlPlaneRPCServer).ListSimulators(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + controlPlaneServiceName + "/ListSimulators"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ControlPlaneRPCServer).ListSimulators(ctx, req.(*ListSimulatorsRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func _ControlPlane_DeleteSimulation_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(DeleteSimulationRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ControlPlaneRPCServer).DeleteSimulation(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + controlPlaneServiceName + "/DeleteSimulation"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ControlPlaneRPCServer).DeleteSimulation(ctx, req.(*DeleteSimulationRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func _ControlPlane_StreamFrames_Handler(srv interface{}, stream grpc.ServerStream) error {
	return srv.(ControlPlaneRPCServer).StreamFrames(stream)
}

var controlPlaneServiceDesc = grpc.ServiceDesc{
	ServiceName: controlPlaneServiceName,
	HandlerType: (*ControlPlaneRPCServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SubmitSimulation", Handler: _ControlPlane_SubmitSimulation_Handler},
		{MethodName: "GetSimulation", Handler: _ControlPlane_GetSimulation_Handler},
		{MethodName: "ListComponents", Handler: _ControlPlane_ListComponents_Handler},
		{MethodName: "ListSimulators", Handler: _ControlPlane_ListSimulators_Handler},
		{MethodName: "DeleteSimulation", Handler: _ControlPlane_DeleteSimulation_Handler},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "StreamFrames",
			Handler:       _ControlPlane_StreamFrames_Handler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "control_plane",
}

// RegisterControlPlaneRPCServer registers srv on s.
func RegisterControlPlaneRPCServer(s *grpc.Server, srv ControlPlaneRPCServer) {
	s.RegisterService(&controlPlaneServiceDesc, srv)
}
