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
	"google.golang.org/grpc/credentials/insecure"

	"simcore/pkg/simerr"
)

// Feature: TRANSPORT_CONTROL_PLANE
// Spec: spec/core/transport.md

// ControlPlaneClient is the grpc client stub cmd/simcorectl dials to reach a
// running manager's ControlPlane RPC surface.
type ControlPlaneClient struct {
	conn *grpc.ClientConn
}

// DialControlPlane opens a grpc connection to a manager's listen address.
func DialControlPlane(addr string) (*ControlPlaneClient, error) {
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(jsonCodecName)),
	)
	if err != nil {
		return nil, simerr.Wrap(simerr.KindTransport, "dialing control plane at "+addr, err)
	}
	return &ControlPlaneClient{conn: conn}, nil
}

// Close releases the underlying connection.
func (c *ControlPlaneClient) Close() error { return c.conn.Close() }

func (c *ControlPlaneClient) SubmitSimulation(ctx context.Context, req *SubmitSimulationRequest) (*SubmitSimulationResponse, error) {
	resp := new(SubmitSimulationResponse)
	if err := c.conn.Invoke(ctx, "/"+controlPlaneServiceName+"/SubmitSimulation", req, resp, grpc.CallContentSubtype(jsonCodecName)); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *ControlPlaneClient) GetSimulation(ctx context.Context, req *GetSimulationRequest) (*GetSimulationResponse, error) {
	resp := new(GetSimulationResponse)
	if err := c.conn.Invoke(ctx, "/"+controlPlaneServiceName+"/GetSimulation", req, resp, grpc.CallContentSubtype(jsonCodecName)); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *ControlPlaneClient) ListComponents(ctx context.Context, req *ListComponentsRequest) (*ListComponentsResponse, error) {
	resp := new(ListComponentsResponse)
	if err := c.conn.Invoke(ctx, "/"+controlPlaneServiceName+"/ListComponents", req, resp, grpc.CallContentSubtype(jsonCodecName)); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *ControlPlaneClient) ListSimulators(ctx context.Context, req *ListSimulatorsRequest) (*ListSimulatorsResponse, error) {
	resp := new(ListSimulatorsResponse)
	if err := c.conn.Invoke(ctx, "/"+controlPlaneServiceName+"/ListSimulators", req, resp, grpc.CallContentSubtype(jsonCodecName)); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *ControlPlaneClient) DeleteSimulation(ctx context.Context, req *DeleteSimulationRequest) (*DeleteSimulationResponse, error) {
	resp := new(DeleteSimulationResponse)
	if err := c.conn.Invoke(ctx, "/"+controlPlaneServiceName+"/DeleteSimulation", req, resp, grpc.CallContentSubtype(jsonCodecName)); err != nil {
		return nil, err
	}
	return resp, nil
}

// FrameStream is the client side of the bidirectional stream_frames call:
// callers send one StreamFramesRequest per desired frame, in order, and
// read back one StreamFramesResponse per request (spec.md §6).
type FrameStream struct {
	stream grpc.ClientStream
}

// StreamFrames opens the bidirectional stream.
func (c *ControlPlaneClient) StreamFrames(ctx context.Context) (*FrameStream, error) {
	stream, err := c.conn.NewStream(ctx, &controlPlaneServiceDesc.Streams[0], "/"+controlPlaneServiceName+"/StreamFrames", grpc.CallContentSubtype(jsonCodecName))
	if err != nil {
		return nil, err
	}
	return &FrameStream{stream: stream}, nil
}

// Send requests one frame.
func (s *FrameStream) Send(req *StreamFramesRequest) error {
	return s.stream.SendMsg(req)
}

// Recv reads back one response, in the order requests were sent.
func (s *FrameStream) Recv() (*StreamFramesResponse, error) {
	resp := new(StreamFramesResponse)
	if err := s.stream.RecvMsg(resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// CloseSend signals that no further requests will be sent.
func (s *FrameStream) CloseSend() error {
	return s.stream.CloseSend()
}
