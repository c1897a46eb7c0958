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

	"simcore/internal/registry"
)

// Feature: TRANSPORT_CONNECTOR
// Spec: spec/core/transport.md (spec.md §4.6: "registration advertises
// (name, port, ComponentSpec set)")

const connectorServiceName = "simcore.Connector"

// ConnectorRPCServer is the registration surface a simulator worker dials on
// startup.
type ConnectorRPCServer interface {
	Register(ctx context.Context, req *RegisterRequest) (*RegisterResponse, error)
}

// connectorServer feeds incoming registrations into a registry.Registry.
type connectorServer struct {
	registry *registry.Registry
}

// NewConnectorServer wraps reg for registration against a grpc.Server.
func NewConnectorServer(reg *registry.Registry) ConnectorRPCServer {
	return &connectorServer{registry: reg}
}

func (s *connectorServer) Register(ctx context.Context, req *RegisterRequest) (*RegisterResponse, error) {
	info := registry.Info{
		Name:       req.Name,
		Endpoint:   req.Endpoint,
		Components: specsFromWire(req.Components),
	}
	if err := s.registry.Register(info); err != nil {
		return &RegisterResponse{Error: err.Error()}, nil
	}
	return &RegisterResponse{OK: true}, nil
}

func _Connector_Register_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(RegisterRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ConnectorRPCServer).Register(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + connectorServiceName + "/Register"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ConnectorRPCServer).Register(ctx, req.(*RegisterRequest))
	}
	return interceptor(ctx, req, info, handler)
}

var connectorServiceDesc = grpc.ServiceDesc{
	ServiceName: connectorServiceName,
	HandlerType: (*ConnectorRPCServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Register", Handler: _Connector_Register_Handler},
	},
	Metadata: "connector",
}

// RegisterConnectorRPCServer registers srv on s.
func RegisterConnectorRPCServer(s *grpc.Server, srv ConnectorRPCServer) {
	s.RegisterService(&connectorServiceDesc, srv)
}

// connectorRPCClient is the grpc client stub simulator workers use to
// register themselves with the manager's connector address.
type connectorRPCClient struct {
	cc *grpc.ClientConn
}

func newConnectorRPCClient(cc *grpc.ClientConn) *connectorRPCClient {
	return &connectorRPCClient{cc: cc}
}

func (c *connectorRPCClient) Register(ctx context.Context, req *RegisterRequest) (*RegisterResponse, error) {
	resp := new(RegisterResponse)
	if err := c.cc.Invoke(ctx, "/"+connectorServiceName+"/Register", req, resp, grpc.CallContentSubtype(jsonCodecName)); err != nil {
		return nil, err
	}
	return resp, nil
}
