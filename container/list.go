// Copyright (c) 2025 pk910
// SPDX-License-Identifier: Apache-2.0
// This file is part of the bmtree library.

package container

import (
	"github.com/merkledb/bmtree"
	"github.com/merkledb/bmtree/raw"
)

// itemRootIndex and lenIndex are the original crate's vec.rs ITEM_ROOT_INDEX
// (root().left()) and LEN_INDEX (root().right()) constants.
var (
	itemRootIndex = bmtree.MustFromOne(2)
	lenIndex      = bmtree.MustFromOne(3)
)

// LengthCodec embeds a container's logical length as an End value, the Go
// stand-in for the original crate's `EndOf<DB>: From<usize> + Into<usize>`
// trait bound on MerkleVec's End type.
type LengthCodec[E any] interface {
	EncodeLength(n int) E
	DecodeLength(e E) (int, error)
}

// List is a growable sequence: a 2-child top-level Raw tree whose left
// subtree holds an inner Tuple's root and whose right subtree holds the
// length as an End value (spec §4.4's Vector/List, unified — both the
// original crate's MerkleVec and the spec's prose describe the identical
// layout for "growable" vs "list", so this one type serves both).
type List[E any] struct {
	raw   *raw.Raw[E]
	tuple *Tuple[E]
	codec LengthCodec[E]
}

// CreateList allocates an empty owned List. The inner Tuple is created
// owned just long enough to seed the outer raw tree's two children (whose
// own Set calls pin the tuple root with their own rootify/pre-hoist
// bookkeeping), then Dropped and reattached as a dangling tuple: from this
// point on the outer raw tree is the sole owner of record for the tuple
// root (original crate's MerkleVec::create).
func CreateList[E any](db bmtree.Backend[E], codec LengthCodec[E]) (*List[E], error) {
	tuple, err := CreateTuple[E](db, 0)
	if err != nil {
		return nil, err
	}
	outer := raw.NewOwned[E](db.Construct())
	if err := outer.Set(db, itemRootIndex, tuple.Root()); err != nil {
		return nil, err
	}
	if err := outer.Set(db, lenIndex, bmtree.End[E](codec.EncodeLength(tuple.Len()))); err != nil {
		return nil, err
	}

	tupleRoot, tupleEmptyRoot, tupleLen := tuple.Leak()
	if err := tuple.Drop(db); err != nil {
		return nil, err
	}
	dangling := FromLeaked[E](tupleRoot, tupleEmptyRoot, tupleLen, false)

	return &List[E]{raw: outer, tuple: dangling, codec: codec}, nil
}

func (l *List[E]) updateMetadata(db bmtree.Backend[E]) error {
	if err := l.raw.Set(db, itemRootIndex, l.tuple.Root()); err != nil {
		return err
	}
	lenValue := bmtree.End[E](l.codec.EncodeLength(l.tuple.Len()))
	return l.raw.Set(db, lenIndex, lenValue)
}

// Root returns the list's current root value.
func (l *List[E]) Root() bmtree.Value[E] { return l.raw.Root() }

// Len returns the list's logical length.
func (l *List[E]) Len() int { return l.tuple.Len() }

// Get returns the value at logical index i.
func (l *List[E]) Get(db bmtree.ReadBackend[E], i int) (bmtree.Value[E], error) {
	return l.tuple.Get(db, i)
}

// Set writes the value at logical index i, then refreshes the top-level
// metadata.
func (l *List[E]) Set(db bmtree.Backend[E], i int, v bmtree.Value[E]) error {
	if err := l.tuple.Set(db, i, v); err != nil {
		return err
	}
	return l.updateMetadata(db)
}

// Push appends a value, then refreshes the top-level metadata.
func (l *List[E]) Push(db bmtree.Backend[E], v bmtree.Value[E]) error {
	if err := l.tuple.Push(db, v); err != nil {
		return err
	}
	return l.updateMetadata(db)
}

// Pop removes and returns the last value, then refreshes the top-level
// metadata. ok is false if the list was empty.
func (l *List[E]) Pop(db bmtree.Backend[E]) (v bmtree.Value[E], ok bool, err error) {
	v, ok, err = l.tuple.Pop(db)
	if err != nil {
		return bmtree.Value[E]{}, false, err
	}
	if !ok {
		return v, ok, nil
	}
	if err := l.updateMetadata(db); err != nil {
		return bmtree.Value[E]{}, false, err
	}
	return v, true, nil
}

// Drop releases this list's and its inner tuple's backend references.
func (l *List[E]) Drop(db bmtree.WriteBackend[E]) error {
	if err := l.raw.Drop(db); err != nil {
		return err
	}
	return l.tuple.Drop(db)
}

// Leak exposes the list's raw root, the inner tuple's root and empty-root
// cache, and the logical length (original crate's MerkleVec::leak).
func (l *List[E]) Leak() (rawRoot, tupleRoot, tupleEmptyRoot bmtree.Value[E], length int) {
	tupleRoot, tupleEmptyRoot, length = l.tuple.Leak()
	return l.raw.Leak(), tupleRoot, tupleEmptyRoot, length
}

// ListFromLeaked reconstructs a List from the values returned by a previous
// List.Leak.
func ListFromLeaked[E any](codec LengthCodec[E], rawRoot, tupleRoot, tupleEmptyRoot bmtree.Value[E], length int, owned bool) *List[E] {
	return &List[E]{
		raw:   raw.FromLeaked[E](rawRoot, owned),
		tuple: FromLeaked[E](tupleRoot, tupleEmptyRoot, length, false),
		codec: codec,
	}
}
