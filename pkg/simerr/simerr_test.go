// SPDX-License-Identifier: AGPL-3.0-or-later

/*
simcore - a distributed digital-twin simulation platform core.

Copyright (C) 2025  simcore contributors

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.
*/

package simerr

import (
	"errors"
	"testing"
)

// Feature: CORE_ERRORS
// Spec: spec/core/errors.md

func TestIs_MatchesWrappedKind(t *testing.T) {
	err := Wrap(KindTransport, "dial failed", errors.New("connection refused"))

	if !Is(err, KindTransport) {
		t.Error("expected err to be KindTransport")
	}
	if Is(err, KindStorage) {
		t.Error("expected err not to be KindStorage")
	}
}

func TestIs_FalseForPlainError(t *testing.T) {
	if Is(errors.New("boom"), KindNotFound) {
		t.Error("a plain error should never match a kind")
	}
}

func TestKindOf_DefaultsToInternalInvariant(t *testing.T) {
	if got := KindOf(errors.New("boom")); got != KindInternalInvariant {
		t.Errorf("KindOf(plain error) = %v, want KindInternalInvariant", got)
	}
	if got := KindOf(New(KindConflict, "dup")); got != KindConflict {
		t.Errorf("KindOf(categorized) = %v, want KindConflict", got)
	}
}

func TestError_MessageIncludesCause(t *testing.T) {
	cause := errors.New("timeout")
	err := Wrap(KindTransport, "calling simulator", cause)

	got := err.Error()
	want := "TransportError: calling simulator: timeout"
	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestError_UnwrapReachesCause(t *testing.T) {
	cause := errors.New("timeout")
	err := Wrap(KindTransport, "calling simulator", cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is should reach the wrapped cause")
	}
}

func TestSentinelErrors_Kinds(t *testing.T) {
	if ErrNotFound.Kind() != KindNotFound {
		t.Errorf("ErrNotFound.Kind() = %v, want KindNotFound", ErrNotFound.Kind())
	}
	if ErrConflict.Kind() != KindConflict {
		t.Errorf("ErrConflict.Kind() = %v, want KindConflict", ErrConflict.Kind())
	}
}

func TestKind_String(t *testing.T) {
	cases := map[Kind]string{
		KindInvalidInput:      "InvalidInput",
		KindSchemaConflict:    "SchemaConflict",
		KindStructureMismatch: "StructureMismatch",
		KindNotReady:          "NotReady",
		KindTransport:         "TransportError",
		KindStorage:           "StorageError",
		KindInternalInvariant: "InternalInvariant",
		KindConflict:          "Conflict",
		KindNotFound:          "NotFound",
	}
	for kind, want := range cases {
		if got := kind.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", kind, got, want)
		}
	}
}
