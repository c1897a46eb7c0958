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
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"simcore/pkg/component"
	"simcore/pkg/graph"
	"simcore/pkg/simerr"
	"simcore/pkg/simulator"
)

// Feature: TRANSPORT_SIMULATOR_CLIENT
// Spec: spec/core/transport.md

// SimulatorClient adapts a grpc connection to a registered simulator
// worker's endpoint into the simulator.Simulator interface the Orchestrator
// expects, so orchestrator code is unaware it is calling over the network.
type SimulatorClient struct {
	name string
	rpc  *simulatorRPCClient
	conn *grpc.ClientConn
}

var _ simulator.Simulator = (*SimulatorClient)(nil)

// DialSimulator opens a grpc connection to endpoint and wraps it as a
// simulator.Simulator named name.
func DialSimulator(name, endpoint string) (*SimulatorClient, error) {
	conn, err := grpc.NewClient(endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(jsonCodecName)),
	)
	if err != nil {
		return nil, simerr.Wrap(simerr.KindTransport, "dialing simulator "+name, err)
	}
	return &SimulatorClient{name: name, rpc: newSimulatorRPCClient(conn), conn: conn}, nil
}

// Close releases the underlying connection.
func (c *SimulatorClient) Close() error {
	return c.conn.Close()
}

func (c *SimulatorClient) Name() string { return c.name }

func (c *SimulatorClient) GetIOConfig(ctx context.Context) (simulator.IOConfig, error) {
	resp, err := c.rpc.GetIOConfig(ctx, &IOConfigRequest{})
	if err != nil {
		return simulator.IOConfig{}, simerr.Wrap(simerr.KindTransport, "get_io_config: "+c.name, err)
	}
	components := make(map[string]component.Spec, len(resp.Components))
	for _, w := range specsFromWire(resp.Components) {
		components[w.Name] = w
	}
	return simulator.IOConfig{
		Components:     components,
		RequiredInputs: resp.RequiredInputs,
		OptionalInputs: resp.OptionalInputs,
		Outputs:        resp.Outputs,
	}, nil
}

func (c *SimulatorClient) Setup(ctx context.Context, initial *graph.Graph, stepDeltaMs int32) error {
	cfg, err := c.GetIOConfig(ctx)
	if err != nil {
		return err
	}
	schema := graph.Schema(cfg.Components)
	wire, err := graph.ToWire(initial, schema)
	if err != nil {
		return simerr.Wrap(simerr.KindInternalInvariant, "encoding setup frame: "+c.name, err)
	}
	resp, err := c.rpc.Setup(ctx, &SetupRequest{Initial: wire, StepDeltaMs: stepDeltaMs})
	if err != nil {
		return simerr.Wrap(simerr.KindTransport, "setup: "+c.name, err)
	}
	if !resp.OK {
		return errors.New(resp.Error)
	}
	return nil
}

func (c *SimulatorClient) DoTimestep(ctx context.Context, input *graph.Graph) (*graph.Graph, error) {
	cfg, err := c.GetIOConfig(ctx)
	if err != nil {
		return nil, err
	}
	schema := graph.Schema(cfg.Components)
	wire, err := graph.ToWire(input, schema)
	if err != nil {
		return nil, simerr.Wrap(simerr.KindInternalInvariant, "encoding timestep frame: "+c.name, err)
	}
	resp, err := c.rpc.DoTimestep(ctx, &DoTimestepRequest{Input: wire})
	if err != nil {
		return nil, simerr.Wrap(simerr.KindTransport, "do_timestep: "+c.name, err)
	}
	if resp.Error != "" {
		return nil, errors.New(resp.Error)
	}
	return graph.FromWire(resp.Output, schema)
}
