// Copyright (c) 2025 pk910
// SPDX-License-Identifier: Apache-2.0
// This file is part of the bmtree library.

package proving_test

import (
	"testing"

	"github.com/merkledb/bmtree"
	"github.com/merkledb/bmtree/digest"
	"github.com/merkledb/bmtree/memory"
	"github.com/merkledb/bmtree/proving"
	"github.com/merkledb/bmtree/raw"
)

func TestProvingBackendRecordsOnlyUnknownReads(t *testing.T) {
	c := digest.NewBytes()
	inner := memory.New[[]byte](c)
	tree := raw.NewOwned[[]byte](c)

	for n := uint64(8); n < 16; n++ {
		if err := tree.Set(inner, bmtree.MustFromOne(n), bmtree.End[[]byte]([]byte{byte(n)})); err != nil {
			t.Fatalf("Set(%d): %v", n, err)
		}
	}

	pb := proving.New[[]byte](inner)
	provingTree := raw.FromLeaked[[]byte](tree.Root(), false)

	if _, _, err := provingTree.Get(pb, bmtree.MustFromOne(9)); err != nil {
		t.Fatalf("Get(9): %v", err)
	}
	if _, _, err := provingTree.Get(pb, bmtree.MustFromOne(12)); err != nil {
		t.Fatalf("Get(12): %v", err)
	}

	proofs := pb.Reset()
	if len(proofs) == 0 {
		t.Fatalf("expected at least one recorded proof entry")
	}

	for key, pair := range proofs {
		want, err := inner.Get(key)
		if err != nil {
			t.Fatalf("inner.Get(%x): %v", key, err)
		}
		if want != pair {
			t.Fatalf("recorded pair for %x does not match backend", key)
		}
	}
}

func TestProvingBackendSkipsLocallyInsertedKeys(t *testing.T) {
	c := digest.NewBytes()
	inner := memory.New[[]byte](c)
	pb := proving.New[[]byte](inner)
	tree := raw.NewOwned[[]byte](c)

	if err := tree.Set(pb, bmtree.MustFromOne(5), bmtree.End[[]byte]([]byte("x"))); err != nil {
		t.Fatalf("Set: %v", err)
	}

	proofs := pb.Reset()
	if key, ok := tree.Root().IntermediateKey(); ok {
		if _, recorded := proofs[key]; recorded {
			t.Fatalf("key %x was locally inserted during Set and should not be recorded as a proof", key)
		}
	}
}
