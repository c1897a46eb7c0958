// SPDX-License-Identifier: AGPL-3.0-or-later

/*
simcore - a distributed digital-twin simulation platform core.

Copyright (C) 2025  simcore contributors

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.
*/

package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"simcore/internal/transport"
)

// Feature: CONTROL_PLANE
// Spec: spec/core/control-plane.md

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
		Use:           "simcorectl",
		Short:         "simcorectl – client for a simcore manager's control plane",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var addr string
	cmd.PersistentFlags().StringVar(&addr, "addr", "127.0.0.1:8700", "manager listen address")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "simcorectl version %s\n", version)
		},
	})

	cmd.AddCommand(newDeleteCommand(&addr))
	cmd.AddCommand(newListComponentsCommand(&addr))
	cmd.AddCommand(newListSimulatorsCommand(&addr))
	cmd.AddCommand(newStatusCommand(&addr))
	cmd.AddCommand(newStreamFramesCommand(&addr))
	cmd.AddCommand(newSubmitCommand(&addr))

	return cmd
}

func dial(addr string) (*transport.ControlPlaneClient, error) {
	return transport.DialControlPlane(addr)
}

func newSubmitCommand(addr *string) *cobra.Command {
	var (
		name        string
		stepDeltaMs int32
		maxSteps    int32
		simulators  string
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "submit a new simulation (spec.md §4.9 submit_simulation)",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := dial(*addr)
			if err != nil {
				return err
			}
			defer client.Close()

			var selected []string
			if simulators != "" {
				selected = strings.Split(simulators, ",")
			}

			resp, err := client.SubmitSimulation(cmd.Context(), &transport.SubmitSimulationRequest{
				Name:               name,
				StepDeltaMs:        stepDeltaMs,
				MaxSteps:           maxSteps,
				SelectedSimulators: selected,
			})
			if err != nil {
				return err
			}
			if resp.Error != "" {
				return fmt.Errorf("%s", resp.Error)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), resp.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "simulation name (required)")
	cmd.Flags().Int32Var(&stepDeltaMs, "step-delta-ms", 1000, "wall-clock milliseconds per timestep")
	cmd.Flags().Int32Var(&maxSteps, "max-steps", 0, "number of timesteps to run (0 runs none)")
	cmd.Flags().StringVar(&simulators, "simulators", "", "comma-separated list of simulator names to run")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newStatusCommand(addr *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status <id-or-name>",
		Short: "report a simulation's status (spec.md §4.9 get_simulation)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := dial(*addr)
			if err != nil {
				return err
			}
			defer client.Close()

			resp, err := client.GetSimulation(cmd.Context(), &transport.GetSimulationRequest{IDOrName: args[0]})
			if err != nil {
				return err
			}
			if resp.Error != "" {
				return fmt.Errorf("%s", resp.Error)
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "id:          %s\n", resp.ID)
			_, _ = fmt.Fprintf(out, "name:        %s\n", resp.Name)
			_, _ = fmt.Fprintf(out, "status:      %d\n", resp.Status)
			_, _ = fmt.Fprintf(out, "status_info: %s\n", resp.StatusInfo)
			_, _ = fmt.Fprintf(out, "timestep:    %d / %d\n", resp.TimestepCount, resp.MaxTimestepCount)
			_, _ = fmt.Fprintf(out, "step_delta:  %dms\n", resp.StepDeltaMs)
			return nil
		},
	}
}

func newStreamFramesCommand(addr *string) *cobra.Command {
	var from, to int32

	cmd := &cobra.Command{
		Use:   "stream-frames <simulation-id>",
		Short: "request a range of frames over the bidirectional stream (spec.md §6)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := dial(*addr)
			if err != nil {
				return err
			}
			defer client.Close()

			stream, err := client.StreamFrames(cmd.Context())
			if err != nil {
				return err
			}

			simID := args[0]
			go func() {
				for nr := from; nr <= to; nr++ {
					if err := stream.Send(&transport.StreamFramesRequest{SimulationID: simID, FrameNr: nr}); err != nil {
						return
					}
				}
				_ = stream.CloseSend()
			}()

			out := cmd.OutOrStdout()
			for nr := from; nr <= to; nr++ {
				resp, err := stream.Recv()
				if err == io.EOF {
					break
				}
				if err != nil {
					return err
				}
				if resp.Error != "" {
					_, _ = fmt.Fprintf(out, "frame %d: error: %s\n", resp.FrameNr, resp.Error)
					continue
				}
				nodes, edges := 0, 0
				if resp.Frame != nil {
					nodes, edges = len(resp.Frame.Nodes), len(resp.Frame.Edges)
				}
				_, _ = fmt.Fprintf(out, "frame %d: %d nodes, %d edges\n", resp.FrameNr, nodes, edges)
			}
			return nil
		},
	}
	cmd.Flags().Int32Var(&from, "from", 0, "first timestep to request")
	cmd.Flags().Int32Var(&to, "to", 0, "last timestep to request (inclusive)")
	return cmd
}

func newListComponentsCommand(addr *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list-components",
		Short: "list the union of registered ComponentSpecs (spec.md §4.9)",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := dial(*addr)
			if err != nil {
				return err
			}
			defer client.Close()

			resp, err := client.ListComponents(cmd.Context(), &transport.ListComponentsRequest{})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, c := range resp.Components {
				_, _ = fmt.Fprintf(out, "%s (kind=%d)\n", c.Name, c.Kind)
			}
			return nil
		},
	}
}

func newListSimulatorsCommand(addr *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list-simulators",
		Short: "list registered simulators and their declared outputs (spec.md §4.9)",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := dial(*addr)
			if err != nil {
				return err
			}
			defer client.Close()

			resp, err := client.ListSimulators(cmd.Context(), &transport.ListSimulatorsRequest{})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, s := range resp.Simulators {
				_, _ = fmt.Fprintf(out, "%s: %s\n", s.Name, strings.Join(s.DeclaredOutputs, ", "))
			}
			return nil
		},
	}
}

func newDeleteCommand(addr *string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "cascade-delete a simulation and its frames (spec.md §4.9)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := dial(*addr)
			if err != nil {
				return err
			}
			defer client.Close()

			resp, err := client.DeleteSimulation(cmd.Context(), &transport.DeleteSimulationRequest{Name: args[0]})
			if err != nil {
				return err
			}
			if resp.Error != "" {
				return fmt.Errorf("%s", resp.Error)
			}
			return nil
		},
	}
}
