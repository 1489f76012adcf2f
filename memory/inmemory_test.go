// Copyright (c) 2025 pk910
// SPDX-License-Identifier: Apache-2.0
// This file is part of the bmtree library.

package memory_test

import (
	"testing"

	"github.com/merkledb/bmtree"
	"github.com/merkledb/bmtree/digest"
	"github.com/merkledb/bmtree/memory"
	"github.com/merkledb/bmtree/raw"
)

// xorCombine is a toy CombineFn distinguishable from hasher.DefaultCombine,
// used to assert WithHasher/SetHasher actually reroute pairwise hashing.
func xorCombine(left, right [32]byte) [32]byte {
	var out [32]byte
	for i := range out {
		out[i] = left[i] ^ right[i]
	}
	return out
}

func TestWithHasherOverridesCombine(t *testing.T) {
	c := digest.NewBytes()
	db := memory.New[[]byte](c, bmtree.WithHasher(xorCombine))
	tree := raw.NewOwned[[]byte](c)

	if err := tree.Set(db, bmtree.MustFromOne(2), bmtree.End[[]byte]([]byte{1})); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := tree.Set(db, bmtree.MustFromOne(3), bmtree.End[[]byte]([]byte{2})); err != nil {
		t.Fatalf("Set: %v", err)
	}

	key, ok := tree.Root().IntermediateKey()
	if !ok {
		t.Fatalf("expected an Intermediate root")
	}

	left := c.EndBytes([]byte{1})
	right := c.EndBytes([]byte{2})
	want := bmtree.Hash(xorCombine(left, right))
	if key != want {
		t.Fatalf("root = %x, want xorCombine(left, right) = %x", key, want)
	}
}

func TestEmptyAtRespectsCustomHasher(t *testing.T) {
	c := digest.NewBytes()
	db := memory.New[[]byte](c, bmtree.WithHasher(xorCombine))

	v1, err := db.EmptyAt(1)
	if err != nil {
		t.Fatalf("EmptyAt(1): %v", err)
	}
	key, ok := v1.IntermediateKey()
	if !ok {
		t.Fatalf("expected an Intermediate value at depth 1")
	}

	leaf := c.EndBytes(c.DefaultEnd())
	want := bmtree.Hash(xorCombine(leaf, leaf))
	if key != want {
		t.Fatalf("EmptyAt(1) = %x, want xorCombine(leaf, leaf) = %x (not the global default-hasher zero chain)", key, want)
	}
}

func TestEmptyAtIsPureAndUncounted(t *testing.T) {
	c := digest.NewBytes()
	db := memory.New[[]byte](c)

	v3a, err := db.EmptyAt(3)
	if err != nil {
		t.Fatalf("EmptyAt(3): %v", err)
	}
	v3b, err := db.EmptyAt(3)
	if err != nil {
		t.Fatalf("EmptyAt(3) again: %v", err)
	}
	if v3a != v3b {
		t.Fatalf("EmptyAt(3) not stable across calls")
	}
	if db.Len() != 0 {
		t.Fatalf("EmptyAt should not persist into the refcounted store, got Len() = %d", db.Len())
	}
}

func TestSetGetRoundTrip(t *testing.T) {
	c := digest.NewBytes()
	db := memory.New[[]byte](c)
	tree := raw.NewOwned[[]byte](c)

	idx := bmtree.MustFromOne(5)
	val := bmtree.End[[]byte]([]byte("hello"))
	if err := tree.Set(db, idx, val); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, ok, err := tree.Get(db, idx)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatalf("Get(%v) = not found", idx)
	}
	gotBytes, _ := got.EndValue()
	if string(gotBytes) != "hello" {
		t.Fatalf("Get(%v) = %q, want %q", idx, gotBytes, "hello")
	}
}

func TestRefcountZeroingAfterDrop(t *testing.T) {
	c := digest.NewBytes()
	db := memory.New[[]byte](c)
	tree := raw.NewOwned[[]byte](c)

	for _, n := range []uint64{4, 5, 6, 7} {
		if err := tree.Set(db, bmtree.MustFromOne(n), bmtree.End[[]byte]([]byte{byte(n)})); err != nil {
			t.Fatalf("Set(%d): %v", n, err)
		}
	}
	if db.Len() == 0 {
		t.Fatalf("expected some persisted intermediates after setting leaves")
	}

	if err := tree.Drop(db); err != nil {
		t.Fatalf("Drop: %v", err)
	}
	if db.Len() != 0 {
		t.Fatalf("expected empty backend after dropping the only owner, got Len() = %d", db.Len())
	}
}

func TestSetIsOrderIndependent(t *testing.T) {
	c := digest.NewBytes()

	run := func(order []uint64) bmtree.Hash {
		db := memory.New[[]byte](c)
		tree := raw.NewOwned[[]byte](c)
		for _, n := range order {
			if err := tree.Set(db, bmtree.MustFromOne(n), bmtree.End[[]byte]([]byte{byte(n)})); err != nil {
				t.Fatalf("Set(%d): %v", n, err)
			}
		}
		key, ok := tree.Root().IntermediateKey()
		if !ok {
			t.Fatalf("expected an Intermediate root")
		}
		return key
	}

	a := run([]uint64{4, 5, 6, 7})
	b := run([]uint64{7, 6, 5, 4})
	if a != b {
		t.Fatalf("root hash depends on Set order: %x != %x", a, b)
	}
}
