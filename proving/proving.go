// Copyright (c) 2025 pk910
// SPDX-License-Identifier: Apache-2.0
// This file is part of the bmtree library.

// Package proving wraps a bmtree.Backend to record every Intermediate's
// children touched by a Get that was not preceded by a local Insert of the
// same key, building the witness set a compact proof is built from (spec
// §4.6; ported from the original crate's src/proving.rs).
package proving

import "github.com/merkledb/bmtree"

// ProvingBackend decorates an inner bmtree.Backend, recording reads as it
// goes. It is not itself safe for concurrent use.
type ProvingBackend[E any] struct {
	inner bmtree.Backend[E]

	proofs  map[bmtree.Hash]bmtree.Pair[E]
	inserts map[bmtree.Hash]struct{}
}

var _ bmtree.Backend[[]byte] = (*ProvingBackend[[]byte])(nil)

// New wraps inner in a ProvingBackend with an empty recording session.
func New[E any](inner bmtree.Backend[E]) *ProvingBackend[E] {
	return &ProvingBackend[E]{
		inner:   inner,
		proofs:  make(map[bmtree.Hash]bmtree.Pair[E]),
		inserts: make(map[bmtree.Hash]struct{}),
	}
}

// Construct implements bmtree.Backend by delegating to the inner backend.
func (b *ProvingBackend[E]) Construct() bmtree.Construct[E] { return b.inner.Construct() }

// Get delegates to the inner backend, recording (key, pair) into the
// current session's proof set unless key was locally Inserted earlier in
// the same session (an insert means the caller already knows the children,
// so no witness is needed for them).
func (b *ProvingBackend[E]) Get(key bmtree.Hash) (bmtree.Pair[E], error) {
	pair, err := b.inner.Get(key)
	if err != nil {
		return pair, err
	}
	if _, inserted := b.inserts[key]; !inserted {
		b.proofs[key] = pair
	}
	return pair, nil
}

// Insert delegates to the inner backend and marks key as locally known, so
// a later Get of the same key within this session is not recorded.
func (b *ProvingBackend[E]) Insert(key bmtree.Hash, value bmtree.Pair[E]) error {
	if err := b.inner.Insert(key, value); err != nil {
		return err
	}
	b.inserts[key] = struct{}{}
	return nil
}

// Rootify delegates to the inner backend.
func (b *ProvingBackend[E]) Rootify(key bmtree.Hash) error { return b.inner.Rootify(key) }

// Unrootify delegates to the inner backend.
func (b *ProvingBackend[E]) Unrootify(key bmtree.Hash) error { return b.inner.Unrootify(key) }

// EmptyAt delegates to the inner backend. Empty subtrees need no witness:
// any verifier can recompute them from depth alone, so they are never
// recorded.
func (b *ProvingBackend[E]) EmptyAt(depth int) (bmtree.Value[E], error) {
	return b.inner.EmptyAt(depth)
}

// Reset atomically swaps out the accumulated (proofs, inserts) session
// state and returns what had been recorded since the last Reset (or since
// New, for the first call).
func (b *ProvingBackend[E]) Reset() map[bmtree.Hash]bmtree.Pair[E] {
	proofs := b.proofs
	b.proofs = make(map[bmtree.Hash]bmtree.Pair[E])
	b.inserts = make(map[bmtree.Hash]struct{})
	return proofs
}
