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
	"simcore/pkg/simerr"
)

// Feature: TRANSPORT_CONNECTOR
// Spec: spec/core/transport.md

// RegisterSimulator dials connectorAddr and registers a simulator worker
// listening at endpoint under name with the given component declarations
// (spec.md §4.6). It is the worker-side counterpart to ConnectorRPCServer.
func RegisterSimulator(ctx context.Context, connectorAddr, name, endpoint string, components []component.Spec) error {
	conn, err := grpc.NewClient(connectorAddr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(jsonCodecName)),
	)
	if err != nil {
		return simerr.Wrap(simerr.KindTransport, "dialing connector at "+connectorAddr, err)
	}
	defer conn.Close()

	client := newConnectorRPCClient(conn)
	resp, err := client.Register(ctx, &RegisterRequest{
		Name:       name,
		Endpoint:   endpoint,
		Components: specsToWire(components),
	})
	if err != nil {
		return simerr.Wrap(simerr.KindTransport, "register "+name, err)
	}
	if !resp.OK {
		return errors.New(resp.Error)
	}
	return nil
}
