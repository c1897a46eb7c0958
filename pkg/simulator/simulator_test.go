// SPDX-License-Identifier: AGPL-3.0-or-later

/*
simcore - a distributed digital-twin simulation platform core.

Copyright (C) 2025  simcore contributors

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.
*/

package simulator

import "testing"

// Feature: SIMULATOR_CONTRACT
// Spec: spec/core/simulator-contract.md

func TestIOConfig_AllInputsAndDeclares(t *testing.T) {
	cfg := IOConfig{
		RequiredInputs: []string{"temperature"},
		OptionalInputs: []string{"humidity"},
		Outputs:        []string{"power-draw"},
	}

	all := cfg.AllInputs()
	if len(all) != 2 || all[0] != "temperature" || all[1] != "humidity" {
		t.Fatalf("unexpected AllInputs: %v", all)
	}
	if !cfg.Declares("power-draw") {
		t.Fatal("expected power-draw to be declared")
	}
	if cfg.Declares("temperature") {
		t.Fatal("temperature is an input, not a declared output")
	}
}

func TestStepDelta(t *testing.T) {
	if got := StepDelta(500); got.String() != "500ms" {
		t.Fatalf("expected 500ms, got %s", got)
	}
}
