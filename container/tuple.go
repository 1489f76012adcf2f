// Copyright (c) 2025 pk910
// SPDX-License-Identifier: Apache-2.0
// This file is part of the bmtree library.

// Package container implements the structured containers layered on
// bmtree/raw: Tuple (fixed-length), List (growable, covers spec's
// Vector/List), and their bit-packed variants (spec §4.4). Grounded on the
// original crate's src/vec.rs, the only container source file present in
// original_source/ — tuple.rs and packed.rs are not included there, so
// Tuple and the packed variants are built from spec §4.4's prose plus
// vec.rs's usage of a MerkleTuple (create/len/get/set/push/pop/root/drop/
// leak/from_leaked) as the shape to fill in.
package container

import (
	"github.com/merkledb/bmtree"
	"github.com/merkledb/bmtree/raw"
)

// depthForLength returns ceil(log2(max(length,1))): the Tuple depth that
// gives a capacity of at least length leaves.
func depthForLength(length int) int {
	if length <= 1 {
		return 0
	}
	depth := 0
	for (1 << uint(depth)) < length {
		depth++
	}
	return depth
}

// Tuple is a fixed-capacity sequence at depth d = depthForLength(length):
// element i lives at generalized index 2^d + i. Capacity slots beyond
// length are always End(default); growing or shrinking by one element
// changes d by at most one level.
type Tuple[E any] struct {
	raw       *raw.Raw[E]
	depth     int
	length    int
	emptyRoot bmtree.Value[E]
}

// CreateTuple allocates a Tuple of the given length, with every slot
// End(default): its root is computed deterministically as the cached
// empty subtree at the resulting depth, without any per-element Set call.
func CreateTuple[E any](db bmtree.Backend[E], length int) (*Tuple[E], error) {
	if length < 0 {
		return nil, bmtree.NewError(bmtree.KindInvalidIndex, "CreateTuple", nil)
	}
	depth := depthForLength(length)
	empty, err := db.EmptyAt(depth)
	if err != nil {
		return nil, bmtree.WrapBackendError("CreateTuple", err)
	}
	if key, ok := empty.IntermediateKey(); ok {
		if err := db.Rootify(key); err != nil {
			return nil, bmtree.WrapBackendError("CreateTuple", err)
		}
	}
	return &Tuple[E]{
		raw:       raw.FromLeaked[E](empty, true),
		depth:     depth,
		length:    length,
		emptyRoot: empty,
	}, nil
}

// Len returns the tuple's logical length.
func (t *Tuple[E]) Len() int { return t.length }

// Root returns the tuple's current root value.
func (t *Tuple[E]) Root() bmtree.Value[E] { return t.raw.Root() }

// Drop releases the tuple's backend references, if owned.
func (t *Tuple[E]) Drop(db bmtree.WriteBackend[E]) error { return t.raw.Drop(db) }

// Leak exposes the tuple's root, its empty-subtree-at-depth cache, and its
// length, for later reconstruction via FromLeaked (original crate's
// MerkleTuple::leak).
func (t *Tuple[E]) Leak() (root, emptyRoot bmtree.Value[E], length int) {
	return t.raw.Leak(), t.emptyRoot, t.length
}

// FromLeaked reconstructs a Tuple from a previously Leaked (root, emptyRoot,
// length) triple. depth is recomputed deterministically from length.
func FromLeaked[E any](root, emptyRoot bmtree.Value[E], length int, owned bool) *Tuple[E] {
	return &Tuple[E]{
		raw:       raw.FromLeaked[E](root, owned),
		depth:     depthForLength(length),
		length:    length,
		emptyRoot: emptyRoot,
	}
}

func (t *Tuple[E]) genIndex(i int) (bmtree.Index, error) {
	if i < 0 || i >= t.length {
		return 0, bmtree.NewError(bmtree.KindInvalidIndex, "Tuple", nil)
	}
	return bmtree.FromOne((uint64(1) << uint(t.depth)) + uint64(i))
}

// Get returns the value at logical index i, failing with KindInvalidIndex
// if i is out of [0, length).
func (t *Tuple[E]) Get(db bmtree.ReadBackend[E], i int) (bmtree.Value[E], error) {
	idx, err := t.genIndex(i)
	if err != nil {
		return bmtree.Value[E]{}, err
	}
	v, ok, err := t.raw.Get(db, idx)
	if err != nil {
		return bmtree.Value[E]{}, err
	}
	if !ok {
		return bmtree.Value[E]{}, bmtree.NewError(bmtree.KindCorruptedDatabase, "Tuple.Get", nil)
	}
	return v, nil
}

// Set writes the value at logical index i, failing with KindInvalidIndex
// if i is out of [0, length).
func (t *Tuple[E]) Set(db bmtree.Backend[E], i int, v bmtree.Value[E]) error {
	idx, err := t.genIndex(i)
	if err != nil {
		return err
	}
	return t.raw.Set(db, idx, v)
}

// grow extends the tuple's depth by repeatedly making the current root the
// left child of a new root whose right child is the empty subtree at the
// same (old) depth — the standard doubling growth for a power-of-two-sized
// vector: index 2^(d+1)+i for i < 2^d decodes to (Left, <old d-route for i>),
// so the old full subtree slots in unchanged as the new left child.
func (t *Tuple[E]) grow(db bmtree.Backend[E], newDepth int) error {
	c := db.Construct()
	owned := t.raw.Owned()

	for d := t.depth; d < newDepth; d++ {
		oldRoot := t.raw.Root()
		emptySibling, err := db.EmptyAt(d)
		if err != nil {
			return bmtree.WrapBackendError("Tuple.grow", err)
		}
		key := bmtree.IntermediateOf(c, oldRoot, emptySibling)
		pair := bmtree.Pair[E]{Left: oldRoot, Right: emptySibling}
		if err := db.Insert(key, pair); err != nil {
			return bmtree.WrapBackendError("Tuple.grow", err)
		}
		newRoot := bmtree.Intermediate[E](key)
		if owned {
			if err := db.Rootify(key); err != nil {
				return bmtree.WrapBackendError("Tuple.grow", err)
			}
			if oldKey, ok := oldRoot.IntermediateKey(); ok {
				if err := db.Unrootify(oldKey); err != nil {
					return bmtree.WrapBackendError("Tuple.grow", err)
				}
			}
		}
		t.raw = raw.FromLeaked[E](newRoot, owned)
	}

	empty, err := db.EmptyAt(newDepth)
	if err != nil {
		return bmtree.WrapBackendError("Tuple.grow", err)
	}
	t.depth = newDepth
	t.emptyRoot = empty
	return nil
}

// shrink is grow's inverse: the new root becomes the current root's left
// child, after pre-hoisting (pinning) that child's refcount the same way
// Raw.Set's pre-hoist step does, so that unrootifying the old (soon to be
// discarded) root does not also free the subtree being kept.
func (t *Tuple[E]) shrink(db bmtree.Backend[E], newDepth int) error {
	owned := t.raw.Owned()

	for d := t.depth; d > newDepth; d-- {
		oldRoot := t.raw.Root()
		oldKey, ok := oldRoot.IntermediateKey()
		if !ok {
			return bmtree.NewError(bmtree.KindCorruptedDatabase, "Tuple.shrink", nil)
		}
		pair, err := db.Get(oldKey)
		if err != nil {
			return bmtree.WrapBackendError("Tuple.shrink", err)
		}
		newRoot := pair.Left

		if key, ok := newRoot.IntermediateKey(); ok {
			childPair, err := db.Get(key)
			if err != nil {
				return bmtree.WrapBackendError("Tuple.shrink", err)
			}
			if err := db.Insert(key, childPair); err != nil {
				return bmtree.WrapBackendError("Tuple.shrink", err)
			}
		}
		if owned {
			if key, ok := newRoot.IntermediateKey(); ok {
				if err := db.Rootify(key); err != nil {
					return bmtree.WrapBackendError("Tuple.shrink", err)
				}
			}
			if err := db.Unrootify(oldKey); err != nil {
				return bmtree.WrapBackendError("Tuple.shrink", err)
			}
		}
		t.raw = raw.FromLeaked[E](newRoot, owned)
	}

	empty, err := db.EmptyAt(newDepth)
	if err != nil {
		return bmtree.WrapBackendError("Tuple.shrink", err)
	}
	t.depth = newDepth
	t.emptyRoot = empty
	return nil
}

// Push appends a value, growing the tuple's depth first if the new length
// crosses a power-of-two boundary.
func (t *Tuple[E]) Push(db bmtree.Backend[E], v bmtree.Value[E]) error {
	i := t.length
	newDepth := depthForLength(i + 1)
	if newDepth != t.depth {
		if err := t.grow(db, newDepth); err != nil {
			return err
		}
	}
	idx, err := bmtree.FromOne((uint64(1) << uint(t.depth)) + uint64(i))
	if err != nil {
		return err
	}
	if err := t.raw.Set(db, idx, v); err != nil {
		return err
	}
	t.length = i + 1
	return nil
}

// Pop removes and returns the last value, resetting its slot to
// End(default) and shrinking the tuple's depth if the new length crosses a
// power-of-two boundary downward. ok is false if the tuple was empty.
func (t *Tuple[E]) Pop(db bmtree.Backend[E]) (v bmtree.Value[E], ok bool, err error) {
	if t.length == 0 {
		return bmtree.Value[E]{}, false, nil
	}
	i := t.length - 1
	idx, err := bmtree.FromOne((uint64(1) << uint(t.depth)) + uint64(i))
	if err != nil {
		return bmtree.Value[E]{}, false, err
	}
	v, found, err := t.raw.Get(db, idx)
	if err != nil {
		return bmtree.Value[E]{}, false, err
	}
	if !found {
		return bmtree.Value[E]{}, false, bmtree.NewError(bmtree.KindCorruptedDatabase, "Tuple.Pop", nil)
	}

	c := db.Construct()
	if err := t.raw.Set(db, idx, bmtree.End[E](c.DefaultEnd())); err != nil {
		return bmtree.Value[E]{}, false, err
	}
	t.length = i

	newDepth := depthForLength(t.length)
	if newDepth != t.depth {
		if err := t.shrink(db, newDepth); err != nil {
			return bmtree.Value[E]{}, false, err
		}
	}
	return v, true, nil
}
