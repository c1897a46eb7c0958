// SPDX-License-Identifier: AGPL-3.0-or-later

/*
simcore - a distributed digital-twin simulation platform core.

Copyright (C) 2025  simcore contributors

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.
*/

package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"simcore/internal/controlplane"
	"simcore/internal/manager"
	"simcore/internal/orchestrator"
	"simcore/internal/registry"
	"simcore/internal/store"
	"simcore/internal/transport"
	"simcore/pkg/config"
	"simcore/pkg/graph"
	"simcore/pkg/logging"
)

// Feature: CORE_CONFIG, ORCHESTRATOR, CONTROL_PLANE, TRANSPORT_CONNECTOR
// Spec: spec/core/config.md, spec/core/orchestrator.md, spec/core/control-plane.md

var version = "0.0.0-dev"

func main() {
	rootCmd := newRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "simcore-manager",
		Short:         "simcore-manager – control plane, connector, and orchestrator for a simcore deployment",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "simcore-manager version %s\n", version)
		},
	})
	cmd.AddCommand(newServeCommand())

	return cmd
}

func newServeCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "run the control plane, connector, and orchestrator loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "simcore.yaml", "path to manager config")
	return cmd
}

func runServe(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logging.NewLogger(cfg.Verbose)

	st, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("opening state store: %w", err)
	}
	defer st.Close()

	reg := registry.New()
	resolver := manager.NewDialingResolver(reg)
	defer resolver.CloseAll()

	orch := orchestrator.New(st, reg, resolver.Resolve, *cfg, log)
	cp := controlplane.New(st, reg, orch)

	connLis, err := net.Listen("tcp", cfg.ConnectorAddr)
	if err != nil {
		return fmt.Errorf("listening on connector address %s: %w", cfg.ConnectorAddr, err)
	}
	connectorServer := grpc.NewServer()
	transport.RegisterConnectorRPCServer(connectorServer, transport.NewConnectorServer(reg))

	ctlLis, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listening on listen address %s: %w", cfg.ListenAddr, err)
	}
	ctlServer := grpc.NewServer()
	transport.RegisterControlPlaneRPCServer(ctlServer, transport.NewControlPlaneServer(cp, func() graph.Schema {
		return graph.Schema(reg.ComponentSchema())
	}))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errs := make(chan error, 3)
	go func() { errs <- connectorServer.Serve(connLis) }()
	go func() { errs <- ctlServer.Serve(ctlLis) }()
	go func() { errs <- orch.Run(runCtx) }()

	log.Info("simcore-manager listening",
		logging.NewField("listen_addr", cfg.ListenAddr),
		logging.NewField("connector_addr", cfg.ConnectorAddr),
	)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errs:
		cancel()
		connectorServer.Stop()
		ctlServer.Stop()
		return err
	case <-sig:
		log.Info("shutting down")
		cancel()
		connectorServer.GracefulStop()
		ctlServer.GracefulStop()
		return nil
	}
}
