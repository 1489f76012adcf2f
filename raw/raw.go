// Copyright (c) 2025 pk910
// SPDX-License-Identifier: Apache-2.0
// This file is part of the bmtree library.

// Package raw implements the random-access generalized-index Merkle tree
// (spec §4.3): the core read/write primitive every higher-level container in
// bmtree/container is built on.
package raw

import "github.com/merkledb/bmtree"

// Raw is a (root, owned?) pair: a Merkle tree addressed by generalized
// indices. If owned, the root Intermediate (if any) holds a live Rootify
// reference on the backend; a dangling Raw borrows the liveness of whatever
// owning tree it was carved out of (via Subtree) and must not outlive it.
//
// The owned/dangling duality is the "compile-time tag" spec §9 Design Notes
// calls out as realizable as a runtime flag; only owned roots issue
// Rootify/Unrootify calls.
type Raw[E any] struct {
	root  bmtree.Value[E]
	owned bool
}

// NewOwned returns a fresh owned Raw tree: root = End(default).
func NewOwned[E any](c bmtree.Construct[E]) *Raw[E] {
	return &Raw[E]{root: bmtree.End(c.DefaultEnd()), owned: true}
}

// NewDangling returns a fresh dangling Raw tree: root = End(default). It
// holds no backend reference and is meant to be immediately Set or replaced
// via FromLeaked.
func NewDangling[E any](c bmtree.Construct[E]) *Raw[E] {
	return &Raw[E]{root: bmtree.End(c.DefaultEnd()), owned: false}
}

// FromLeaked reconstructs a Raw tree from a previously Leaked root value,
// per spec §9's Leak/from_leaked round-tripping (from original_source
// raw.rs's Leak trait): no backend calls are made, so the caller is
// responsible for the refcount state being consistent with owned.
func FromLeaked[E any](root bmtree.Value[E], owned bool) *Raw[E] {
	return &Raw[E]{root: root, owned: owned}
}

// Root returns the current root value.
func (r *Raw[E]) Root() bmtree.Value[E] { return r.root }

// Owned reports whether this tree holds a live Rootify reference.
func (r *Raw[E]) Owned() bool { return r.owned }

// Leak returns the root value without relinquishing any backend reference,
// for later reconstruction via FromLeaked. It is the caller's responsibility
// to eventually Drop (or otherwise account for) the leaked reference.
func (r *Raw[E]) Leak() bmtree.Value[E] { return r.root }

// Drop releases this tree's Rootify reference, if any: Unrootify is called
// on the root key only if this tree is owned and its root is an
// Intermediate.
func (r *Raw[E]) Drop(db bmtree.WriteBackend[E]) error {
	if !r.owned {
		return nil
	}
	if key, ok := r.root.IntermediateKey(); ok {
		if err := db.Unrootify(key); err != nil {
			return bmtree.WrapBackendError("Raw.Drop", err)
		}
	}
	return nil
}

// Get walks index's route from the root, descending through Intermediate
// nodes. If an End leaf is reached before the route is exhausted, Get
// returns (zero, false, nil): there is nothing at that index.
func (r *Raw[E]) Get(db bmtree.ReadBackend[E], index bmtree.Index) (bmtree.Value[E], bool, error) {
	route := index.Route()
	if route.Kind == bmtree.RouteRoot {
		return r.root, true, nil
	}

	current := r.root
	for _, sel := range route.Selections {
		key, ok := current.IntermediateKey()
		if !ok {
			var zero bmtree.Value[E]
			return zero, false, nil
		}
		pair, err := db.Get(key)
		if err != nil {
			return bmtree.Value[E]{}, false, bmtree.WrapBackendError("Raw.Get", err)
		}
		if sel == bmtree.Left {
			current = pair.Left
		} else {
			current = pair.Right
		}
	}
	return current, true, nil
}

// Subtree returns a dangling Raw whose root equals Get(index), failing with
// KindCorruptedDatabase if index resolves to nothing.
func (r *Raw[E]) Subtree(db bmtree.ReadBackend[E], index bmtree.Index) (*Raw[E], error) {
	sub, ok, err := r.Get(db, index)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, bmtree.NewError(bmtree.KindCorruptedDatabase, "Raw.Subtree", nil)
	}
	return &Raw[E]{root: sub, owned: false}, nil
}

type frame[E any] struct {
	sel  bmtree.Selection
	pair bmtree.Pair[E]
}

// Set writes value `set` at `index`, materializing empty intermediate nodes
// along the way as needed and rebuilding every ancestor's hash bottom-up.
// See spec §4.3's "Set algorithm (design-critical)" for the full
// justification of each step; this is a direct port of the original crate's
// src/raw.rs `Raw::set`.
func (r *Raw[E]) Set(db bmtree.Backend[E], index bmtree.Index, set bmtree.Value[E]) error {
	c := db.Construct()
	route := index.Route()

	// Pre-hoist: if the incoming value is itself an Intermediate, pin its
	// subtree to this tree before it is exposed as anyone's child, by
	// raising its refcount before doing anything else.
	if key, ok := set.IntermediateKey(); ok {
		pair, err := db.Get(key)
		if err != nil {
			return bmtree.WrapBackendError("Raw.Set", err)
		}
		if err := db.Insert(key, pair); err != nil {
			return bmtree.WrapBackendError("Raw.Set", err)
		}
	}

	var values []frame[E]
	depth := 1
	var current *bmtree.Hash

	if key, ok := r.root.IntermediateKey(); ok {
		current = &key
	} else {
		sel, ok := route.AtDepth(depth)
		if !ok {
			// Immediate-set special case: root is End and the route is
			// Root itself.
			if key, ok := set.IntermediateKey(); ok && r.owned {
				if err := db.Rootify(key); err != nil {
					return bmtree.WrapBackendError("Raw.Set", err)
				}
			}
			r.root = set
			return nil
		}
		values = append(values, frame[E]{sel: sel, pair: bmtree.Pair[E]{
			Left:  bmtree.End(c.DefaultEnd()),
			Right: bmtree.End(c.DefaultEnd()),
		}})
		depth++
		current = nil
	}

	for {
		sel, ok := route.AtDepth(depth)
		if !ok {
			break
		}
		if current != nil {
			pair, err := db.Get(*current)
			if err != nil {
				return bmtree.WrapBackendError("Raw.Set", err)
			}
			values = append(values, frame[E]{sel: sel, pair: pair})
			var next bmtree.Value[E]
			if sel == bmtree.Left {
				next = pair.Left
			} else {
				next = pair.Right
			}
			if key, ok := next.IntermediateKey(); ok {
				current = &key
			} else {
				current = nil
			}
		} else {
			values = append(values, frame[E]{sel: sel, pair: bmtree.Pair[E]{
				Left:  bmtree.End(c.DefaultEnd()),
				Right: bmtree.End(c.DefaultEnd()),
			}})
		}
		depth++
	}

	update := set
	for i := len(values) - 1; i >= 0; i-- {
		f := values[i]
		if f.sel == bmtree.Left {
			f.pair.Left = update
		} else {
			f.pair.Right = update
		}

		key := bmtree.IntermediateOf(c, f.pair.Left, f.pair.Right)
		if err := db.Insert(key, f.pair); err != nil {
			return bmtree.WrapBackendError("Raw.Set", err)
		}
		update = bmtree.Intermediate[E](key)
	}

	if key, ok := update.IntermediateKey(); ok && r.owned {
		if err := db.Rootify(key); err != nil {
			return bmtree.WrapBackendError("Raw.Set", err)
		}
	}
	if key, ok := r.root.IntermediateKey(); ok && r.owned {
		if err := db.Unrootify(key); err != nil {
			return bmtree.WrapBackendError("Raw.Set", err)
		}
	}

	r.root = update
	return nil
}
