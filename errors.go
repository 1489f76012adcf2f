// Copyright (c) 2025 pk910
// SPDX-License-Identifier: Apache-2.0
// This file is part of the bmtree library.

// Package bmtree implements a content-addressed binary Merkle tree addressed
// by generalized indices, with a pluggable refcounted backend and a compact
// proof format.
package bmtree

import (
	"errors"
	"fmt"
)

// Kind classifies the abstract error taxonomy shared by every backend and
// container operation in this module.
type Kind uint8

const (
	// KindInvalidIndex marks an index of zero, an out-of-range container
	// index, or depth arithmetic underflow.
	KindInvalidIndex Kind = iota
	// KindNotFound marks a backend lookup for an expected key that
	// returned nothing.
	KindNotFound
	// KindCorruptedDatabase marks a reached child that was an End where an
	// Intermediate was required, an unresolved backend reference, or
	// inconsistent container metadata.
	KindCorruptedDatabase
	// KindCorruptedProof marks a compact-form rehash mismatch.
	KindCorruptedProof
	// KindBackendError is an opaque pass-through of a backend's own
	// failure.
	KindBackendError
)

func (k Kind) String() string {
	switch k {
	case KindInvalidIndex:
		return "invalid index"
	case KindNotFound:
		return "not found"
	case KindCorruptedDatabase:
		return "corrupted database"
	case KindCorruptedProof:
		return "corrupted proof"
	case KindBackendError:
		return "backend error"
	default:
		return "unknown error"
	}
}

// Error is the error type returned by this module's tree, backend,
// container, encoding and proof operations (encode.ParseSchema, which
// returns a plain wrapped YAML error, is the exception). It wraps one of
// the abstract Kind values plus, optionally, the underlying cause (a
// concrete backend's own error).
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		if e.Op != "" {
			return fmt.Sprintf("bmtree: %s: %s: %v", e.Op, e.Kind, e.Err)
		}
		return fmt.Sprintf("bmtree: %s: %v", e.Kind, e.Err)
	}
	if e.Op != "" {
		return fmt.Sprintf("bmtree: %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("bmtree: %s", e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for e's Kind, so that
// errors.Is(err, bmtree.ErrNotFound) works without callers needing to know
// about *Error at all.
func (e *Error) Is(target error) bool {
	sentinel, ok := target.(*Error)
	if !ok {
		return false
	}
	return sentinel.Kind == e.Kind && sentinel.Op == "" && sentinel.Err == nil
}

// NewError builds an *Error for the given kind, operation label, and
// optional wrapped cause.
func NewError(kind Kind, op string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Err: cause}
}

// Sentinel errors for use with errors.Is. Each carries only a Kind so that
// Error.Is can match it against any concrete *Error of the same kind.
var (
	ErrInvalidIndex      = &Error{Kind: KindInvalidIndex}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrCorruptedDatabase = &Error{Kind: KindCorruptedDatabase}
	ErrCorruptedProof    = &Error{Kind: KindCorruptedProof}
	ErrBackendError      = &Error{Kind: KindBackendError}
)

// WrapBackendError wraps an arbitrary backend-supplied error as an opaque
// KindBackendError, unless it is already a *Error (in which case it is
// passed through unchanged so that Kind information is never lost).
func WrapBackendError(op string, err error) error {
	if err == nil {
		return nil
	}
	var be *Error
	if errors.As(err, &be) {
		return err
	}
	return NewError(KindBackendError, op, err)
}
