// SPDX-License-Identifier: AGPL-3.0-or-later

/*
simcore - a distributed digital-twin simulation platform core.

Copyright (C) 2025  simcore contributors

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.
*/

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"simcore/pkg/graph"
	"simcore/pkg/simerr"
	"simcore/pkg/simulation"
	"simcore/pkg/value"
)

// Feature: STATE_STORE_POSTGRES
// Spec: spec/core/state-store.md (§4.7 relational schema)

// schemaDDL is the relational schema of spec.md §4.7, plus
// simulator_setup_acks (SPEC_FULL §6 supplement).
const schemaDDL = `
CREATE TABLE IF NOT EXISTS simulations (
	id UUID PRIMARY KEY,
	name TEXT UNIQUE NOT NULL,
	step_delta_ms INTEGER NOT NULL,
	max_steps INTEGER NOT NULL,
	status SMALLINT NOT NULL,
	status_info TEXT,
	selected_simulators TEXT[] NOT NULL
);

CREATE TABLE IF NOT EXISTS queue (
	id UUID PRIMARY KEY,
	simulation_id UUID NOT NULL REFERENCES simulations(id) ON DELETE CASCADE,
	enqueue_seq BIGSERIAL NOT NULL
);

CREATE TABLE IF NOT EXISTS nodes (
	pk BIGSERIAL PRIMARY KEY,
	simulation_id UUID NOT NULL REFERENCES simulations(id) ON DELETE CASCADE,
	timestep INTEGER NOT NULL,
	node_id BIGINT NOT NULL,
	longitude DOUBLE PRECISION NOT NULL,
	latitude DOUBLE PRECISION NOT NULL,
	UNIQUE(simulation_id, timestep, node_id)
);

CREATE TABLE IF NOT EXISTS node_components (
	node_pk BIGINT NOT NULL REFERENCES nodes(pk) ON DELETE CASCADE,
	name TEXT NOT NULL,
	value_json JSONB NOT NULL,
	PRIMARY KEY(node_pk, name)
);

CREATE TABLE IF NOT EXISTS edges (
	pk BIGSERIAL PRIMARY KEY,
	simulation_id UUID NOT NULL REFERENCES simulations(id) ON DELETE CASCADE,
	timestep INTEGER NOT NULL,
	edge_id BIGINT NOT NULL,
	from_node BIGINT NOT NULL,
	to_node BIGINT NOT NULL,
	component_type TEXT NOT NULL,
	value_json JSONB NOT NULL,
	UNIQUE(simulation_id, timestep, edge_id)
);

CREATE TABLE IF NOT EXISTS global_components (
	simulation_id UUID NOT NULL REFERENCES simulations(id) ON DELETE CASCADE,
	timestep INTEGER NOT NULL,
	name TEXT NOT NULL,
	value_json JSONB NOT NULL,
	PRIMARY KEY(simulation_id, timestep, name)
);

CREATE TABLE IF NOT EXISTS simulator_setup_acks (
	simulation_id UUID NOT NULL REFERENCES simulations(id) ON DELETE CASCADE,
	simulator_name TEXT NOT NULL,
	PRIMARY KEY(simulation_id, simulator_name)
);
`

// PostgresStore is the durable StateStore, backed by pgx/v5's stdlib
// driver over database/sql (spec.md §4.7), with a per-step transactional
// write pattern modeled on the migration engine's BeginTx/ExecContext/
// Commit/Rollback idiom.
type PostgresStore struct {
	db *sql.DB
}

var _ Store = (*PostgresStore)(nil)

// Open connects to dbURL (a postgres:// DSN) and ensures the schema exists.
func Open(ctx context.Context, dbURL string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		return nil, simerr.Wrap(simerr.KindStorage, "opening database", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, simerr.Wrap(simerr.KindStorage, "pinging database", err)
	}
	if _, err := db.ExecContext(ctx, schemaDDL); err != nil {
		_ = db.Close()
		return nil, simerr.Wrap(simerr.KindStorage, "applying schema", err)
	}
	return &PostgresStore{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() error { return s.db.Close() }

func (s *PostgresStore) Enqueue(ctx context.Context, sim simulation.Simulation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return simerr.Wrap(simerr.KindStorage, "begin enqueue tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM simulations WHERE name=$1)`, sim.Name).Scan(&exists); err != nil {
		return simerr.Wrap(simerr.KindStorage, "checking simulation name", err)
	}
	if exists {
		return simerr.New(simerr.KindConflict, fmt.Sprintf("simulation name %q already exists", sim.Name))
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO simulations (id, name, step_delta_ms, max_steps, status, status_info, selected_simulators)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		sim.ID, sim.Name, sim.StepDeltaMs, sim.MaxSteps, int(sim.Status), nullableString(sim.StatusInfo), stringArrayLiteral(sim.SelectedSimulators),
	); err != nil {
		return simerr.Wrap(simerr.KindStorage, "inserting simulation", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO queue (id, simulation_id) VALUES ($1, $2)`,
		uuid.New(), sim.ID,
	); err != nil {
		return simerr.Wrap(simerr.KindStorage, "inserting queue entry", err)
	}
	if err := tx.Commit(); err != nil {
		return simerr.Wrap(simerr.KindStorage, "commit enqueue tx", err)
	}
	return nil
}

func (s *PostgresStore) DequeueHead(ctx context.Context) (simulation.Simulation, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return simulation.Simulation{}, false, simerr.Wrap(simerr.KindStorage, "begin dequeue tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	var queueID uuid.UUID
	var sim simulation.Simulation
	var statusInfo sql.NullString
	var selected string
	row := tx.QueryRowContext(ctx, `
		SELECT q.id, s.id, s.name, s.step_delta_ms, s.max_steps, s.status, s.status_info, s.selected_simulators
		FROM queue q JOIN simulations s ON s.id = q.simulation_id
		WHERE s.status = $1
		ORDER BY q.enqueue_seq ASC
		LIMIT 1
		FOR UPDATE OF q, s SKIP LOCKED`,
		int(simulation.StatusPending),
	)
	var status int
	if err := row.Scan(&queueID, &sim.ID, &sim.Name, &sim.StepDeltaMs, &sim.MaxSteps, &status, &statusInfo, &selected); err != nil {
		if err == sql.ErrNoRows {
			return simulation.Simulation{}, false, nil
		}
		return simulation.Simulation{}, false, simerr.Wrap(simerr.KindStorage, "scanning queue head", err)
	}
	sim.Status = simulation.Status(status)
	sim.StatusInfo = statusInfo.String
	sim.SelectedSimulators = parseStringArrayLiteral(selected)

	if _, err := tx.ExecContext(ctx, `UPDATE simulations SET status = $1 WHERE id = $2`, int(simulation.StatusComputing), sim.ID); err != nil {
		return simulation.Simulation{}, false, simerr.Wrap(simerr.KindStorage, "transitioning to Computing", err)
	}
	sim.Status = simulation.StatusComputing

	if err := tx.Commit(); err != nil {
		return simulation.Simulation{}, false, simerr.Wrap(simerr.KindStorage, "commit dequeue tx", err)
	}
	return sim, true, nil
}

func (s *PostgresStore) GetSimulation(ctx context.Context, id uuid.UUID) (simulation.Simulation, error) {
	return s.scanSimulation(ctx, `SELECT id, name, step_delta_ms, max_steps, status, status_info, selected_simulators FROM simulations WHERE id = $1`, id)
}

func (s *PostgresStore) GetSimulationByName(ctx context.Context, name string) (simulation.Simulation, error) {
	return s.scanSimulation(ctx, `SELECT id, name, step_delta_ms, max_steps, status, status_info, selected_simulators FROM simulations WHERE name = $1`, name)
}

func (s *PostgresStore) scanSimulation(ctx context.Context, query string, arg interface{}) (simulation.Simulation, error) {
	var sim simulation.Simulation
	var statusInfo sql.NullString
	var selected string
	var status int
	row := s.db.QueryRowContext(ctx, query, arg)
	if err := row.Scan(&sim.ID, &sim.Name, &sim.StepDeltaMs, &sim.MaxSteps, &status, &statusInfo, &selected); err != nil {
		if err == sql.ErrNoRows {
			return simulation.Simulation{}, simerr.New(simerr.KindNotFound, "simulation not found")
		}
		return simulation.Simulation{}, simerr.Wrap(simerr.KindStorage, "scanning simulation", err)
	}
	sim.Status = simulation.Status(status)
	sim.StatusInfo = statusInfo.String
	sim.SelectedSimulators = parseStringArrayLiteral(selected)
	return sim, nil
}

func (s *PostgresStore) SetStatus(ctx context.Context, id uuid.UUID, status simulation.Status, info string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE simulations SET status = $1, status_info = $2 WHERE id = $3`, int(status), nullableString(info), id)
	if err != nil {
		return simerr.Wrap(simerr.KindStorage, "updating status", err)
	}
	return nil
}

func (s *PostgresStore) InsertFrame(ctx context.Context, simID uuid.UUID, timestep int32, g *graph.Graph, schema graph.Schema) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return simerr.Wrap(simerr.KindStorage, "begin insert-frame tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, n := range g.Nodes() {
		var nodePK int64
		row := tx.QueryRowContext(ctx,
			`INSERT INTO nodes (simulation_id, timestep, node_id, longitude, latitude) VALUES ($1,$2,$3,$4,$5) RETURNING pk`,
			simID, timestep, n.ID, n.Longitude, n.Latitude,
		)
		if err := row.Scan(&nodePK); err != nil {
			return simerr.Wrap(simerr.KindStorage, fmt.Sprintf("inserting node %d", n.ID), err)
		}
		for name, v := range n.Components {
			raw, err := value.ToJSON(v)
			if err != nil {
				return simerr.Wrap(simerr.KindInternalInvariant, fmt.Sprintf("node %d component %q", n.ID, name), err)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO node_components (node_pk, name, value_json) VALUES ($1,$2,$3)`,
				nodePK, name, raw,
			); err != nil {
				return simerr.Wrap(simerr.KindStorage, fmt.Sprintf("inserting node component %q", name), err)
			}
		}
	}

	for _, e := range g.Edges() {
		raw, err := value.ToJSON(e.ComponentData)
		if err != nil {
			return simerr.Wrap(simerr.KindInternalInvariant, fmt.Sprintf("edge %d component", e.ID), err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO edges (simulation_id, timestep, edge_id, from_node, to_node, component_type, value_json) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			simID, timestep, e.ID, e.From, e.To, e.ComponentType, raw,
		); err != nil {
			return simerr.Wrap(simerr.KindStorage, fmt.Sprintf("inserting edge %d", e.ID), err)
		}
	}

	for _, name := range g.GlobalNames() {
		v, _ := g.GetGlobal(name)
		raw, err := value.ToJSON(v)
		if err != nil {
			return simerr.Wrap(simerr.KindInternalInvariant, fmt.Sprintf("global %q", name), err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO global_components (simulation_id, timestep, name, value_json) VALUES ($1,$2,$3,$4)`,
			simID, timestep, name, raw,
		); err != nil {
			return simerr.Wrap(simerr.KindStorage, fmt.Sprintf("inserting global %q", name), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return simerr.Wrap(simerr.KindStorage, "commit insert-frame tx", err)
	}
	return nil
}

func (s *PostgresStore) LoadFrame(ctx context.Context, simID uuid.UUID, timestep int32, schema graph.Schema) (*graph.Graph, error) {
	g := graph.New()

	nodeRows, err := s.db.QueryContext(ctx,
		`SELECT pk, node_id, longitude, latitude FROM nodes WHERE simulation_id=$1 AND timestep=$2 ORDER BY pk`,
		simID, timestep,
	)
	if err != nil {
		return nil, simerr.Wrap(simerr.KindStorage, "loading nodes", err)
	}
	type nodeRow struct {
		pk       int64
		id       uint64
		lon, lat float64
	}
	var nodeRowsList []nodeRow
	for nodeRows.Next() {
		var r nodeRow
		if err := nodeRows.Scan(&r.pk, &r.id, &r.lon, &r.lat); err != nil {
			_ = nodeRows.Close()
			return nil, simerr.Wrap(simerr.KindStorage, "scanning node row", err)
		}
		nodeRowsList = append(nodeRowsList, r)
	}
	_ = nodeRows.Close()

	for _, r := range nodeRowsList {
		components := map[string]value.Value{}
		compRows, err := s.db.QueryContext(ctx, `SELECT name, value_json FROM node_components WHERE node_pk=$1`, r.pk)
		if err != nil {
			return nil, simerr.Wrap(simerr.KindStorage, "loading node components", err)
		}
		for compRows.Next() {
			var name string
			var raw []byte
			if err := compRows.Scan(&name, &raw); err != nil {
				_ = compRows.Close()
				return nil, simerr.Wrap(simerr.KindStorage, "scanning node component", err)
			}
			v, err := value.FromJSON(raw)
			if err != nil {
				_ = compRows.Close()
				return nil, simerr.Wrap(simerr.KindInternalInvariant, fmt.Sprintf("decoding component %q", name), err)
			}
			components[name] = v
		}
		_ = compRows.Close()
		if err := g.InsertNode(graph.Node{ID: r.id, Longitude: r.lon, Latitude: r.lat, Components: components}); err != nil {
			return nil, err
		}
	}

	edgeRows, err := s.db.QueryContext(ctx,
		`SELECT edge_id, from_node, to_node, component_type, value_json FROM edges WHERE simulation_id=$1 AND timestep=$2 ORDER BY pk`,
		simID, timestep,
	)
	if err != nil {
		return nil, simerr.Wrap(simerr.KindStorage, "loading edges", err)
	}
	for edgeRows.Next() {
		var id, from, to uint64
		var compType string
		var raw []byte
		if err := edgeRows.Scan(&id, &from, &to, &compType, &raw); err != nil {
			_ = edgeRows.Close()
			return nil, simerr.Wrap(simerr.KindStorage, "scanning edge row", err)
		}
		v, err := value.FromJSON(raw)
		if err != nil {
			_ = edgeRows.Close()
			return nil, simerr.Wrap(simerr.KindInternalInvariant, fmt.Sprintf("decoding edge %d component", id), err)
		}
		if err := g.InsertEdge(graph.Edge{From: from, To: to, ID: id, ComponentType: compType, ComponentData: v}); err != nil {
			_ = edgeRows.Close()
			return nil, err
		}
	}
	_ = edgeRows.Close()

	globalRows, err := s.db.QueryContext(ctx, `SELECT name, value_json FROM global_components WHERE simulation_id=$1 AND timestep=$2`, simID, timestep)
	if err != nil {
		return nil, simerr.Wrap(simerr.KindStorage, "loading globals", err)
	}
	for globalRows.Next() {
		var name string
		var raw []byte
		if err := globalRows.Scan(&name, &raw); err != nil {
			_ = globalRows.Close()
			return nil, simerr.Wrap(simerr.KindStorage, "scanning global row", err)
		}
		v, err := value.FromJSON(raw)
		if err != nil {
			_ = globalRows.Close()
			return nil, simerr.Wrap(simerr.KindInternalInvariant, fmt.Sprintf("decoding global %q", name), err)
		}
		g.SetGlobal(name, v)
	}
	_ = globalRows.Close()

	_ = schema // not consulted: stored JSON values are decoded as-is, without validation against schema
	return g, nil
}

func (s *PostgresStore) MaxPersistedTimestep(ctx context.Context, simID uuid.UUID) (int32, error) {
	var max sql.NullInt32
	row := s.db.QueryRowContext(ctx, `SELECT MAX(timestep) FROM (
		SELECT timestep FROM nodes WHERE simulation_id=$1
		UNION ALL SELECT timestep FROM global_components WHERE simulation_id=$1) AS persisted`, simID)
	if err := row.Scan(&max); err != nil {
		return 0, simerr.Wrap(simerr.KindStorage, "scanning max timestep", err)
	}
	if !max.Valid {
		return -1, nil
	}
	return max.Int32, nil
}

func (s *PostgresStore) DeleteSimulation(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM simulations WHERE name=$1`, name)
	if err != nil {
		return simerr.Wrap(simerr.KindStorage, "deleting simulation", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return simerr.Wrap(simerr.KindStorage, "checking delete result", err)
	}
	if n == 0 {
		return simerr.New(simerr.KindNotFound, fmt.Sprintf("simulation %q not found", name))
	}
	return nil
}

func (s *PostgresStore) RecordSetupAck(ctx context.Context, simID uuid.UUID, simulatorName string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO simulator_setup_acks (simulation_id, simulator_name) VALUES ($1,$2) ON CONFLICT DO NOTHING`,
		simID, simulatorName,
	)
	if err != nil {
		return simerr.Wrap(simerr.KindStorage, "recording setup ack", err)
	}
	return nil
}

func (s *PostgresStore) HasSetupAck(ctx context.Context, simID uuid.UUID, simulatorName string) (bool, error) {
	var exists bool
	row := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM simulator_setup_acks WHERE simulation_id=$1 AND simulator_name=$2)`,
		simID, simulatorName,
	)
	if err := row.Scan(&exists); err != nil {
		return false, simerr.Wrap(simerr.KindStorage, "checking setup ack", err)
	}
	return exists, nil
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// stringArrayLiteral renders a Postgres TEXT[] literal for driver-level
// array binding without requiring pgtype's array helpers.
func stringArrayLiteral(ss []string) string {
	escaped := make([]string, len(ss))
	for i, s := range ss {
		escaped[i] = `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
	}
	return "{" + strings.Join(escaped, ",") + "}"
}

func parseStringArrayLiteral(lit string) []string {
	lit = strings.TrimPrefix(lit, "{")
	lit = strings.TrimSuffix(lit, "}")
	if lit == "" {
		return nil
	}
	parts := strings.Split(lit, ",")
	out := make([]string, len(parts))
	for i, p := range parts {
		p = strings.Trim(p, `"`)
		out[i] = strings.ReplaceAll(p, `\"`, `"`)
	}
	return out
}
