// Copyright (c) 2025 pk910
// SPDX-License-Identifier: Apache-2.0
// This file is part of the bmtree library.

package hasher_test

import (
	"testing"

	"github.com/merkledb/bmtree/hasher"
)

func TestZeroHashIsPureFunctionOfDepth(t *testing.T) {
	a := hasher.ZeroHash(5)
	b := hasher.ZeroHash(5)
	if a != b {
		t.Fatalf("ZeroHash(5) not stable across calls: %x != %x", a, b)
	}
}

func TestZeroHashChain(t *testing.T) {
	d0 := hasher.ZeroHash(0)
	if d0 != ([32]byte{}) {
		t.Fatalf("ZeroHash(0) should be the all-zero leaf, got %x", d0)
	}

	d1 := hasher.ZeroHash(1)
	want := hasher.DefaultCombine(d0, d0)
	if d1 != want {
		t.Fatalf("ZeroHash(1) = %x, want Combine(ZeroHash(0), ZeroHash(0)) = %x", d1, want)
	}
}

func TestZeroHashLevel(t *testing.T) {
	for depth := 0; depth < 8; depth++ {
		h := hasher.ZeroHash(depth)
		level, ok := hasher.ZeroHashLevel(h)
		if !ok {
			t.Fatalf("ZeroHashLevel did not recognize ZeroHash(%d)", depth)
		}
		if level != depth {
			t.Fatalf("ZeroHashLevel(ZeroHash(%d)) = %d, want %d", depth, level, depth)
		}
	}

	var notZero [32]byte
	notZero[0] = 1
	if _, ok := hasher.ZeroHashLevel(notZero); ok {
		t.Fatalf("ZeroHashLevel unexpectedly matched a non-zero digest")
	}
}
