// SPDX-License-Identifier: AGPL-3.0-or-later

/*
simcore - a distributed digital-twin simulation platform core.

Copyright (C) 2025  simcore contributors

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.
*/

// Package orchestrator drives one simulation's full lifecycle: dequeue,
// simulator setup, the timestep loop with carry-forward, and status
// advancement (spec.md §4.8).
package orchestrator

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/semaphore"

	"simcore/pkg/config"
	"simcore/pkg/graph"
	"simcore/pkg/logging"
	"simcore/pkg/simerr"
	"simcore/pkg/simulation"
	"simcore/pkg/simulator"

	"simcore/internal/registry"
	"simcore/internal/store"
)

// Feature: ORCHESTRATOR
// Spec: spec/core/orchestrator.md

// SimulatorLookup resolves a registered simulator's name to the client
// stub that actually talks to it. Kept as a function type rather than a
// concrete dependency on internal/transport so orchestrator tests can
// supply in-process fakes directly (SPEC_FULL §10).
type SimulatorLookup func(name string) (simulator.Simulator, error)

// Orchestrator is a background worker that claims and drives simulations
// one at a time, up to a bounded number concurrently (spec.md §4.8: "multiple
// workers may coexist, each owning a dequeued simulation for its lifetime").
type Orchestrator struct {
	store    store.Store
	registry *registry.Registry
	resolve  SimulatorLookup
	cfg      config.Config
	log      logging.Logger

	sem *semaphore.Weighted

	notify chan struct{}
}

// New builds an Orchestrator. resolve maps a registered simulator name to
// its live client; in production this is backed by internal/transport, in
// tests it is an in-process fake.
func New(st store.Store, reg *registry.Registry, resolve SimulatorLookup, cfg config.Config, log logging.Logger) *Orchestrator {
	return &Orchestrator{
		store:    st,
		registry: reg,
		resolve:  resolve,
		cfg:      cfg,
		log:      log,
		sem:      semaphore.NewWeighted(int64(cfg.MaxConcurrentSimulations)),
		notify:   make(chan struct{}, 1),
	}
}

// Notify wakes the orchestrator's poll loop without blocking (spec.md
// §4.8's "enqueue notification channel, non-blocking signal, coalesced").
func (o *Orchestrator) Notify() {
	select {
	case o.notify <- struct{}{}:
	default:
	}
}

// Run blocks, dequeuing and driving simulations until ctx is canceled. Each
// claimed simulation is processed in its own goroutine, bounded by
// MaxConcurrentSimulations.
func (o *Orchestrator) Run(ctx context.Context) error {
	ticker := newTicker(o.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-o.notify:
		case <-ticker.C:
		}
		o.pruneStaleRegistrations()
		o.drainQueue(ctx)
	}
}

// pruneStaleRegistrations drops any simulator registration that has gone
// without a setup-handshake touch past the configured cutoff (spec.md §4.6
// staleness pruning; SPEC_FULL §6 supplement). A zero cutoff disables it.
func (o *Orchestrator) pruneStaleRegistrations() {
	if o.cfg.RegistryStaleCutoff <= 0 {
		return
	}
	for _, name := range o.registry.PruneStale(o.cfg.RegistryStaleCutoff) {
		o.log.Warn("pruned stale simulator registration", logging.SimulatorField(name))
	}
}

func (o *Orchestrator) drainQueue(ctx context.Context) {
	for {
		if err := o.sem.Acquire(ctx, 1); err != nil {
			return
		}
		sim, found, err := o.store.DequeueHead(ctx)
		if err != nil {
			o.log.Error("dequeue failed", logging.NewField("error", err.Error()))
			o.sem.Release(1)
			return
		}
		if !found {
			o.sem.Release(1)
			return
		}
		go func() {
			defer o.sem.Release(1)
			o.runOne(ctx, sim)
		}()
	}
}

// runOne drives a single simulation's full lifecycle per spec.md §4.8.
func (o *Orchestrator) runOne(ctx context.Context, sim simulation.Simulation) {
	log := o.log.WithFields(logging.SimulationField(sim.Name))

	if err := o.setupAll(ctx, sim); err != nil {
		o.fail(ctx, sim, err)
		return
	}

	for step := int32(0); step < sim.MaxSteps; step++ {
		if err := o.runStep(ctx, sim, step); err != nil {
			log.Error("timestep failed", logging.TimestepField(int(step)), logging.NewField("error", err.Error()))
			o.fail(ctx, sim, err)
			return
		}
	}

	if err := o.store.SetStatus(ctx, sim.ID, simulation.StatusFinished, ""); err != nil {
		log.Error("failed to mark Finished", logging.NewField("error", err.Error()))
	}
}

func (o *Orchestrator) fail(ctx context.Context, sim simulation.Simulation, cause error) {
	info := cause.Error()
	if err := o.store.SetStatus(ctx, sim.ID, simulation.StatusFailed, info); err != nil {
		o.log.Error("failed to mark Failed", logging.NewField("error", err.Error()))
	}
}

// setupAll pushes the timestep-0 frame through every selected simulator's
// Setup, in order, skipping any simulator that already has a persisted
// setup ack (spec.md §4.8 step 2; SPEC_FULL §6 resume-without-re-setup
// supplement).
func (o *Orchestrator) setupAll(ctx context.Context, sim simulation.Simulation) error {
	schema := o.registry.ComponentSchema()
	frame0, err := o.store.LoadFrame(ctx, sim.ID, 0, schema)
	if err != nil {
		return simerr.Wrap(simerr.KindInternalInvariant, "loading timestep-0 frame", err)
	}

	for _, name := range sim.SelectedSimulators {
		acked, err := o.store.HasSetupAck(ctx, sim.ID, name)
		if err != nil {
			return err
		}
		if acked {
			continue
		}

		sc, err := o.resolve(name)
		if err != nil {
			return simerr.Wrap(simerr.KindInvalidInput, fmt.Sprintf("resolving simulator %q", name), err)
		}
		cfg, err := sc.GetIOConfig(ctx)
		if err != nil {
			return simerr.Wrap(simerr.KindInternalInvariant, fmt.Sprintf("simulator %q: get_io_config", name), err)
		}
		o.registry.Touch(name)
		restricted := frame0.Filter(namesToSet(cfg.AllInputs()))

		if err := withRetry(ctx, o.cfg.RetryBackoff, func() error {
			return sc.Setup(ctx, restricted, sim.StepDeltaMs)
		}); err != nil {
			return simerr.Wrap(simerr.KindOf(err), fmt.Sprintf("simulator %q: setup", name), err)
		}
		if err := o.store.RecordSetupAck(ctx, sim.ID, name); err != nil {
			return err
		}
	}
	return nil
}

// runStep executes one iteration of the timestep loop of spec.md §4.8 step
// 3: build each simulator's input frame, invoke do_timestep, persist
// returned components, and carry forward everything sent-but-not-returned.
func (o *Orchestrator) runStep(ctx context.Context, sim simulation.Simulation, step int32) error {
	schema := o.registry.ComponentSchema()
	frame, err := o.store.LoadFrame(ctx, sim.ID, step, schema)
	if err != nil {
		return simerr.Wrap(simerr.KindInternalInvariant, fmt.Sprintf("loading frame %d", step), err)
	}

	next := graph.New()
	for _, n := range frame.Nodes() {
		_ = next.InsertNode(graph.Node{Longitude: n.Longitude, Latitude: n.Latitude, ID: n.ID})
	}
	for _, e := range frame.Edges() {
		_ = next.InsertEdge(graph.Edge{From: e.From, To: e.To, ID: e.ID})
	}

	sentNodeComponent := map[nodeComponentKey]bool{}
	sentEdgeComponent := map[uint64]bool{} // edge id (an edge carries exactly one component)
	sentGlobal := map[string]bool{}
	returnedNodeComponent := map[nodeComponentKey]bool{}
	returnedEdgeComponent := map[uint64]bool{}
	returnedGlobal := map[string]bool{}

	for _, name := range sim.SelectedSimulators {
		sc, err := o.resolve(name)
		if err != nil {
			return simerr.Wrap(simerr.KindInvalidInput, fmt.Sprintf("resolving simulator %q", name), err)
		}
		ioCfg, err := sc.GetIOConfig(ctx)
		if err != nil {
			return simerr.Wrap(simerr.KindInternalInvariant, fmt.Sprintf("simulator %q: get_io_config", name), err)
		}
		o.registry.Touch(name)

		inputNames := namesToSet(ioCfg.AllInputs())
		requiredNames := namesToSet(ioCfg.RequiredInputs)
		input := frame.Filter(inputNames)

		if err := checkRequiredPresent(frame, requiredNames); err != nil {
			return simerr.Wrap(simerr.KindInvalidInput, fmt.Sprintf("simulator %q: missing required input", name), err)
		}
		markSent(frame, inputNames, sentNodeComponent, sentEdgeComponent, sentGlobal)

		var output *graph.Graph
		if err := withRetry(ctx, o.cfg.RetryBackoff, func() error {
			callCtx, cancel := ctx, context.CancelFunc(func() {})
			if o.cfg.StepTimeout > 0 {
				callCtx, cancel = context.WithTimeout(ctx, o.cfg.StepTimeout)
			}
			defer cancel()
			var callErr error
			output, callErr = sc.DoTimestep(callCtx, input)
			if callErr != nil && callCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
				callErr = simerr.Wrap(simerr.KindTransport, "step timeout exceeded", callErr)
			}
			return callErr
		}); err != nil {
			return simerr.Wrap(simerr.KindOf(err), fmt.Sprintf("simulator %q: do_timestep", name), err)
		}

		if err := applyOutput(next, output, ioCfg, o.log.WithFields(logging.SimulatorField(name)), returnedNodeComponent, returnedEdgeComponent, returnedGlobal); err != nil {
			return simerr.Wrap(simerr.KindInvalidInput, fmt.Sprintf("simulator %q: output", name), err)
		}
	}

	carryForward(frame, next, sentNodeComponent, returnedNodeComponent, sentEdgeComponent, returnedEdgeComponent, sentGlobal, returnedGlobal)

	if err := o.store.InsertFrame(ctx, sim.ID, step+1, next, schema); err != nil {
		return simerr.Wrap(simerr.KindStorage, fmt.Sprintf("persisting frame %d", step+1), err)
	}
	return nil
}

// nodeComponentKey identifies one (node, component-name) slot for
// carry-forward bookkeeping (spec.md §4.8 step 3d: "per (entity,
// component-name), not per entity").
type nodeComponentKey struct {
	ID   uint64
	Name string
}

func namesToSet(names []string) map[string]bool {
	out := make(map[string]bool, len(names))
	for _, n := range names {
		out[n] = true
	}
	return out
}

// checkRequiredPresent fails if a declared required input is absent from
// the whole frame (spec.md §4.8 step 3c: "a missing required input for any
// referenced node/edge aborts the step"). Per-node partial presence of an
// optional-but-declared-required component is the caller's contract to
// honor; this guards the case no caller can route around, the input never
// appearing in the frame at all.
func checkRequiredPresent(frame *graph.Graph, required map[string]bool) error {
	for name := range required {
		if len(frame.GetAllNodesWith(name)) > 0 || len(frame.GetAllEdgesWith(name)) > 0 {
			continue
		}
		if _, ok := frame.GetGlobal(name); ok {
			continue
		}
		return simerr.New(simerr.KindInvalidInput, fmt.Sprintf("required input %q absent from frame", name))
	}
	return nil
}

func markSent(frame *graph.Graph, names map[string]bool, sentNode map[nodeComponentKey]bool, sentEdge map[uint64]bool, sentGlobal map[string]bool) {
	for name := range names {
		for _, ref := range frame.GetAllNodesWith(name) {
			sentNode[nodeComponentKey{ref.ID, name}] = true
		}
		for _, ref := range frame.GetAllEdgesWith(name) {
			sentEdge[ref.ID] = true
		}
		if _, ok := frame.GetGlobal(name); ok {
			sentGlobal[name] = true
		}
	}
}

// applyOutput persists every (node, component) pair in output whose name is
// a declared output of ioCfg, last-writer-wins across simulators processed
// in sim.SelectedSimulators order (spec.md §9 Open Question decision).
// Components not in Outputs are discarded with a warning on log; unknown
// node/edge ids are silently discarded (spec.md §4.8 step 3c). An edge
// returned under a known id but with different from/to endpoints is
// rejected as InvalidInput (spec.md §9).
func applyOutput(next *graph.Graph, output *graph.Graph, ioCfg simulator.IOConfig, log logging.Logger, returnedNode map[nodeComponentKey]bool, returnedEdge map[uint64]bool, returnedGlobal map[string]bool) error {
	for _, n := range output.Nodes() {
		if _, _, ok := next.NodeByID(n.ID); !ok {
			continue // unknown node id: silently discarded
		}
		for name, v := range n.Components {
			if !ioCfg.Declares(name) {
				log.Warn("discarding undeclared output component", logging.NewField("component", name))
				continue
			}
			_ = next.SetNodeComponent(n.ID, name, v)
			returnedNode[nodeComponentKey{n.ID, name}] = true
		}
	}
	for _, e := range output.Edges() {
		if !ioCfg.Declares(e.ComponentType) {
			log.Warn("discarding undeclared output component", logging.NewField("component", e.ComponentType))
			continue
		}
		prev, _, ok := next.EdgeByID(e.ID)
		if !ok {
			continue // unknown edge id: silently discarded
		}
		if prev.From != e.From || prev.To != e.To {
			return simerr.New(simerr.KindInvalidInput, fmt.Sprintf("edge %d returned as %d->%d, frame has %d->%d", e.ID, e.From, e.To, prev.From, prev.To))
		}
		_ = next.SetEdgeComponent(e.ID, e.ComponentType, e.ComponentData)
		returnedEdge[e.ID] = true
	}
	for _, name := range output.GlobalNames() {
		if !ioCfg.Declares(name) {
			log.Warn("discarding undeclared output component", logging.NewField("component", name))
			continue
		}
		v, _ := output.GetGlobal(name)
		next.SetGlobal(name, v)
		returnedGlobal[name] = true
	}
	return nil
}

// carryForward copies verbatim every (entity, component) sent-but-not-
// returned from frame into next (spec.md §4.8 step 3d): per (entity,
// component-name), not per entity.
func carryForward(frame, next *graph.Graph, sentNode, returnedNode map[nodeComponentKey]bool, sentEdge, returnedEdge map[uint64]bool, sentGlobal, returnedGlobal map[string]bool) {
	for key := range sentNode {
		if returnedNode[key] {
			continue
		}
		if v, ok := frame.GetNodeComponent(key.ID, key.Name); ok {
			_ = next.SetNodeComponent(key.ID, key.Name, v)
		}
	}

	sortedEdgeIDs := make([]uint64, 0, len(sentEdge))
	for id := range sentEdge {
		sortedEdgeIDs = append(sortedEdgeIDs, id)
	}
	sort.Slice(sortedEdgeIDs, func(i, j int) bool { return sortedEdgeIDs[i] < sortedEdgeIDs[j] })
	for _, id := range sortedEdgeIDs {
		if returnedEdge[id] {
			continue
		}
		if e, _, ok := frame.EdgeByID(id); ok {
			if _, _, exists := next.EdgeByID(id); exists {
				_ = next.SetEdgeComponent(id, e.ComponentType, e.ComponentData)
			} else {
				_ = next.InsertEdge(e)
			}
		}
	}

	for name := range sentGlobal {
		if returnedGlobal[name] {
			continue
		}
		if v, ok := frame.GetGlobal(name); ok {
			next.SetGlobal(name, v)
		}
	}
}
