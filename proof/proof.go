// Copyright (c) 2025 pk910
// SPDX-License-Identifier: Apache-2.0
// This file is part of the bmtree library.

// Package proof implements the compact proof format (spec §4.6): a
// canonical DFS pre-order sequence of (Value, Value) pairs that omits the
// keys of every witnessed Intermediate, relying on the fact that a key is
// recomputable by rehashing its (now known) children. Grounded on
// original_source's tests/proving.rs end-to-end scenario (populate a fresh
// backend from a harvested proof, reconstruct, read back) and on
// treeproof/tree.go's zero-hash-omission Compress/Decompress shape for the
// idea of a compact wire form distinct from the full witness map.
package proof

import "github.com/merkledb/bmtree"

// Proofs is a map H -> (L, R): the witness set harvested from a
// bmtree/proving.ProvingBackend session.
type Proofs[E any] map[bmtree.Hash]bmtree.Pair[E]

// CompactKind discriminates how a CompactValue's slot is represented in
// the wire form.
type CompactKind uint8

const (
	// CompactEnd carries an End leaf's payload directly.
	CompactEnd CompactKind = iota
	// CompactWitnessed marks an Intermediate whose (L, R) pair is the next
	// entry in DFS pre-order; its key is omitted and recomputed on decode.
	CompactWitnessed
	// CompactHash carries an un-witnessed Intermediate's key directly: a
	// sibling subtree outside the proven path, needed to recompute an
	// ancestor's hash but never itself expanded.
	CompactHash
)

// CompactValue is one child slot's wire representation.
type CompactValue[E any] struct {
	Kind CompactKind
	End  E
	Hash bmtree.Hash
}

// CompactPair is one witnessed node's (Left, Right) slots.
type CompactPair[E any] struct {
	Left, Right CompactValue[E]
}

// Compact is the proof's wire form: the root's own slot, plus the DFS
// pre-order sequence of every witnessed descendant's pair.
type Compact[E any] struct {
	Root    CompactValue[E]
	Entries []CompactPair[E]
}

// IntoCompact strips keys from proofs reachable (by DFS from root) through
// witnessed Intermediates, producing the canonical compact wire form.
// Un-witnessed Intermediates (not present in proofs) keep their explicit
// key.
func IntoCompact[E any](proofs Proofs[E], root bmtree.Value[E]) *Compact[E] {
	c := &Compact[E]{}
	c.Root = compactVisit(proofs, root, &c.Entries)
	return c
}

func compactVisit[E any](proofs Proofs[E], v bmtree.Value[E], entries *[]CompactPair[E]) CompactValue[E] {
	if e, ok := v.EndValue(); ok {
		return CompactValue[E]{Kind: CompactEnd, End: e}
	}

	key, _ := v.IntermediateKey()
	pair, ok := proofs[key]
	if !ok {
		return CompactValue[E]{Kind: CompactHash, Hash: key}
	}

	// Reserve this node's slot before descending, so that its index
	// precedes every descendant's — the DFS pre-order the decoder expects.
	idx := len(*entries)
	*entries = append(*entries, CompactPair[E]{})
	left := compactVisit(proofs, pair.Left, entries)
	right := compactVisit(proofs, pair.Right, entries)
	(*entries)[idx] = CompactPair[E]{Left: left, Right: right}

	return CompactValue[E]{Kind: CompactWitnessed}
}

// FromCompact reconstructs (Proofs, root) from a Compact, rehashing every
// witnessed node's key from its (now decoded) children. It fails with
// KindCorruptedProof if the entry sequence is exhausted early or has
// unconsumed trailing entries.
func FromCompact[E any](c bmtree.Construct[E], compact *Compact[E]) (Proofs[E], bmtree.Value[E], error) {
	proofs := Proofs[E]{}
	pos := 0

	root, err := decompactVisit(c, compact.Entries, &pos, compact.Root, proofs)
	if err != nil {
		return nil, bmtree.Value[E]{}, err
	}
	if pos != len(compact.Entries) {
		return nil, bmtree.Value[E]{}, bmtree.NewError(bmtree.KindCorruptedProof, "FromCompact", nil)
	}
	return proofs, root, nil
}

func decompactVisit[E any](c bmtree.Construct[E], entries []CompactPair[E], pos *int, cv CompactValue[E], proofs Proofs[E]) (bmtree.Value[E], error) {
	switch cv.Kind {
	case CompactEnd:
		return bmtree.End[E](cv.End), nil
	case CompactHash:
		return bmtree.Intermediate[E](cv.Hash), nil
	case CompactWitnessed:
		if *pos >= len(entries) {
			return bmtree.Value[E]{}, bmtree.NewError(bmtree.KindCorruptedProof, "FromCompact", nil)
		}
		entry := entries[*pos]
		*pos++

		left, err := decompactVisit(c, entries, pos, entry.Left, proofs)
		if err != nil {
			return bmtree.Value[E]{}, err
		}
		right, err := decompactVisit(c, entries, pos, entry.Right, proofs)
		if err != nil {
			return bmtree.Value[E]{}, err
		}

		key := bmtree.IntermediateOf(c, left, right)
		proofs[key] = bmtree.Pair[E]{Left: left, Right: right}
		return bmtree.Intermediate[E](key), nil
	default:
		return bmtree.Value[E]{}, bmtree.NewError(bmtree.KindCorruptedProof, "FromCompact", nil)
	}
}

// Populate inserts every entry of p with an initial refcount of one and
// rootifies root's key (if it is an Intermediate), seeding a fresh backend
// so that reads along the originally-proven paths succeed (spec §4.6).
func Populate[E any](db bmtree.Backend[E], p Proofs[E], root bmtree.Value[E]) error {
	for key, pair := range p {
		if err := db.Insert(key, pair); err != nil {
			return bmtree.WrapBackendError("Populate", err)
		}
	}
	if key, ok := root.IntermediateKey(); ok {
		if err := db.Rootify(key); err != nil {
			return bmtree.WrapBackendError("Populate", err)
		}
	}
	return nil
}
