// SPDX-License-Identifier: AGPL-3.0-or-later

/*
simcore - a distributed digital-twin simulation platform core.

Copyright (C) 2025  simcore contributors

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.
*/

// Package simerr defines the error categories that cross the boundaries
// described by the simulator contract, the control plane, and the state
// store.
package simerr

import (
	"errors"
	"fmt"
)

// Feature: CORE_ERRORS
// Spec: spec/core/errors.md

// Kind is the category of a boundary error.
type Kind int

const (
	// KindInvalidInput covers malformed requests, unknown ids, bad enum values.
	KindInvalidInput Kind = iota
	// KindSchemaConflict covers two simulators advertising the same component
	// name with different structures.
	KindSchemaConflict
	// KindStructureMismatch covers a Value that does not fit its declared
	// ComponentStructure.
	KindStructureMismatch
	// KindNotReady covers a timestep invoked before setup completed.
	KindNotReady
	// KindTransport covers transient transport errors between orchestrator
	// and simulator.
	KindTransport
	// KindStorage covers any DB failure during a step transaction.
	KindStorage
	// KindInternalInvariant covers programmer errors such as carry-forward
	// referencing a missing source row.
	KindInternalInvariant
	// KindConflict covers a duplicate-name submission.
	KindConflict
	// KindNotFound covers a lookup for an id/name that does not exist.
	KindNotFound
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "InvalidInput"
	case KindSchemaConflict:
		return "SchemaConflict"
	case KindStructureMismatch:
		return "StructureMismatch"
	case KindNotReady:
		return "NotReady"
	case KindTransport:
		return "TransportError"
	case KindStorage:
		return "StorageError"
	case KindInternalInvariant:
		return "InternalInvariant"
	case KindConflict:
		return "Conflict"
	case KindNotFound:
		return "NotFound"
	default:
		return "Unknown"
	}
}

// Error is a categorized boundary error.
type Error struct {
	kind Kind
	msg  string
	err  error
}

// New creates a categorized error with a message.
func New(kind Kind, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

// Wrap creates a categorized error wrapping an underlying cause.
func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{kind: kind, msg: msg, err: cause}
}

// Error implements error.
func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.kind, e.msg, e.err)
	}
	return fmt.Sprintf("%s: %s", e.kind, e.msg)
}

// Unwrap supports errors.Is/As.
func (e *Error) Unwrap() error {
	return e.err
}

// Kind returns the error's category.
func (e *Error) Kind() Kind {
	return e.kind
}

// Is reports whether a given kind applies to err.
func Is(err error, kind Kind) bool {
	var categorized *Error
	if errors.As(err, &categorized) {
		return categorized.kind == kind
	}
	return false
}

// KindOf extracts the Kind of err, defaulting to KindInternalInvariant when
// err is not a categorized error.
func KindOf(err error) Kind {
	var categorized *Error
	if errors.As(err, &categorized) {
		return categorized.kind
	}
	return KindInternalInvariant
}

// Sentinel errors for simple equality checks where a category is implied by
// context (e.g. registry lookups).
var (
	// ErrNotFound is returned when a lookup by id or name fails.
	ErrNotFound = New(KindNotFound, "not found")
	// ErrConflict is returned on duplicate submission.
	ErrConflict = New(KindConflict, "conflict")
)
