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

	"google.golang.org/grpc"

	"simcore/pkg/component"
	"simcore/pkg/graph"
	"simcore/pkg/simulator"
)

// Feature: TRANSPORT_SIMULATOR_RPC
// Spec: spec/core/transport.md (spec.md §4.5, §6: "three unary methods")

const simulatorRPCServiceName = "simcore.SimulatorRPC"

// SimulatorRPCServer is the grpc-facing shape of a simulator worker: three
// unary methods mirroring simulator.Simulator (spec.md §4.5, §6).
type SimulatorRPCServer interface {
	GetIOConfig(ctx context.Context, req *IOConfigRequest) (*IOConfigResponse, error)
	Setup(ctx context.Context, req *SetupRequest) (*SetupResponse, error)
	DoTimestep(ctx context.Context, req *DoTimestepRequest) (*DoTimestepResponse, error)
}

// simulatorServer adapts an in-process simulator.Simulator to the
// SimulatorRPCServer grpc surface, translating wire graphs against its
// declared IOConfig's component schema.
type simulatorServer struct {
	sim simulator.Simulator
}

// NewSimulatorServer wraps sim for registration against a grpc.Server via
// RegisterSimulatorRPCServer.
func NewSimulatorServer(sim simulator.Simulator) SimulatorRPCServer {
	return &simulatorServer{sim: sim}
}

func (s *simulatorServer) schema(ctx context.Context) (graph.Schema, error) {
	cfg, err := s.sim.GetIOConfig(ctx)
	if err != nil {
		return nil, err
	}
	return graph.Schema(cfg.Components), nil
}

func (s *simulatorServer) GetIOConfig(ctx context.Context, req *IOConfigRequest) (*IOConfigResponse, error) {
	cfg, err := s.sim.GetIOConfig(ctx)
	if err != nil {
		return nil, err
	}
	specs := make([]component.Spec, 0, len(cfg.Components))
	for _, spec := range cfg.Components {
		specs = append(specs, spec)
	}
	return &IOConfigResponse{
		Components:     specsToWire(specs),
		RequiredInputs: cfg.RequiredInputs,
		OptionalInputs: cfg.OptionalInputs,
		Outputs:        cfg.Outputs,
	}, nil
}

func (s *simulatorServer) Setup(ctx context.Context, req *SetupRequest) (*SetupResponse, error) {
	schema, err := s.schema(ctx)
	if err != nil {
		return &SetupResponse{Error: err.Error()}, nil
	}
	g, err := graph.FromWire(req.Initial, schema)
	if err != nil {
		return &SetupResponse{Error: err.Error()}, nil
	}
	if err := s.sim.Setup(ctx, g, req.StepDeltaMs); err != nil {
		return &SetupResponse{Error: err.Error()}, nil
	}
	return &SetupResponse{OK: true}, nil
}

func (s *simulatorServer) DoTimestep(ctx context.Context, req *DoTimestepRequest) (*DoTimestepResponse, error) {
	schema, err := s.schema(ctx)
	if err != nil {
		return &DoTimestepResponse{Error: err.Error()}, nil
	}
	input, err := graph.FromWire(req.Input, schema)
	if err != nil {
		return &DoTimestepResponse{Error: err.Error()}, nil
	}
	output, err := s.sim.DoTimestep(ctx, input)
	if err != nil {
		return &DoTimestepResponse{Error: err.Error()}, nil
	}
	wireOut, err := graph.ToWire(output, schema)
	if err != nil {
		return &DoTimestepResponse{Error: err.Error()}, nil
	}
	return &DoTimestepResponse{Output: wireOut}, nil
}

func _SimulatorRPC_GetIOConfig_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(IOConfigRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SimulatorRPCServer).GetIOConfig(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + simulatorRPCServiceName + "/GetIOConfig"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SimulatorRPCServer).GetIOConfig(ctx, req.(*IOConfigRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func _SimulatorRPC_Setup_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(SetupRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SimulatorRPCServer).Setup(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + simulatorRPCServiceName + "/Setup"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SimulatorRPCServer).Setup(ctx, req.(*SetupRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func _SimulatorRPC_DoTimestep_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(DoTimestepRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SimulatorRPCServer).DoTimestep(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + simulatorRPCServiceName + "/DoTimestep"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SimulatorRPCServer).DoTimestep(ctx, req.(*DoTimestepRequest))
	}
	return interceptor(ctx, req, info, handler)
}

// simulatorRPCServiceDesc is hand-written in place of protoc-gen-go-grpc
// output (SPEC_FULL §8): same shape, no protobuf toolchain required.
var simulatorRPCServiceDesc = grpc.ServiceDesc{
	ServiceName: simulatorRPCServiceName,
	HandlerType: (*SimulatorRPCServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetIOConfig", Handler: _SimulatorRPC_GetIOConfig_Handler},
		{MethodName: "Setup", Handler: _SimulatorRPC_Setup_Handler},
		{MethodName: "DoTimestep", Handler: _SimulatorRPC_DoTimestep_Handler},
	},
	Metadata: "simulator_rpc",
}

// RegisterSimulatorRPCServer registers srv on s under the json content-subtype.
func RegisterSimulatorRPCServer(s *grpc.Server, srv SimulatorRPCServer) {
	s.RegisterService(&simulatorRPCServiceDesc, srv)
}

// simulatorRPCClient is the grpc client stub for SimulatorRPCServer.
type simulatorRPCClient struct {
	cc *grpc.ClientConn
}

func newSimulatorRPCClient(cc *grpc.ClientConn) *simulatorRPCClient {
	return &simulatorRPCClient{cc: cc}
}

func (c *simulatorRPCClient) GetIOConfig(ctx context.Context, req *IOConfigRequest) (*IOConfigResponse, error) {
	resp := new(IOConfigResponse)
	if err := c.cc.Invoke(ctx, "/"+simulatorRPCServiceName+"/GetIOConfig", req, resp, grpc.CallContentSubtype(jsonCodecName)); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *simulatorRPCClient) Setup(ctx context.Context, req *SetupRequest) (*SetupResponse, error) {
	resp := new(SetupResponse)
	if err := c.cc.Invoke(ctx, "/"+simulatorRPCServiceName+"/Setup", req, resp, grpc.CallContentSubtype(jsonCodecName)); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *simulatorRPCClient) DoTimestep(ctx context.Context, req *DoTimestepRequest) (*DoTimestepResponse, error) {
	resp := new(DoTimestepResponse)
	if err := c.cc.Invoke(ctx, "/"+simulatorRPCServiceName+"/DoTimestep", req, resp, grpc.CallContentSubtype(jsonCodecName)); err != nil {
		return nil, err
	}
	return resp, nil
}
