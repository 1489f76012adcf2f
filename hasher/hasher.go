// Copyright (c) 2025 pk910
// SPDX-License-Identifier: Apache-2.0
// This file is part of the bmtree library.

// Package hasher provides the pairwise-combine primitive shared by every
// Construct, plus a memoized chain of "empty subtree at depth d" digests
// (spec §4.2, §3 "Empty subtree at depth d").
//
// This implementation was adapted from the dynamic-ssz hasher package
// (itself adapted from fastssz's hasher.go); the SSZ-specific buffer/bitlist
// machinery was dropped and only the combine-function plumbing and the
// zero-hash chain were kept, generalized to the bm construct's pairwise
// combine contract instead of SSZ's flat-buffer merkleization.
package hasher

import (
	"crypto/sha256"
	"sync"
)

// CombineFn hashes a pair of 32-byte child digests into their parent's
// 32-byte key.
type CombineFn func(left, right [32]byte) [32]byte

// DefaultCombine is the SHA-256 pairwise combine used when no faster
// implementation has been registered.
func DefaultCombine(left, right [32]byte) [32]byte {
	var buf [64]byte
	copy(buf[:32], left[:])
	copy(buf[32:], right[:])
	return sha256.Sum256(buf[:])
}

// FastCombine is populated by the cgo-gated hashtree-bindings build (see
// hasher_hashtree.go) with a batch-oriented combine backed by
// github.com/pk910/hashtree-bindings. It is nil when that build tag is not
// active, in which case DefaultCombine is used instead.
var FastCombine CombineFn

// Combine returns the registered fast combine function if one has been
// wired in, otherwise DefaultCombine.
func Combine() CombineFn {
	if FastCombine != nil {
		return FastCombine
	}
	return DefaultCombine
}

var (
	zeroHashesMu sync.Mutex
	zeroHashes   = [][32]byte{{}}
)

// ZeroHash returns the canonical digest of the all-zero subtree at the given
// depth, extending the memoized chain as needed. Depth 0 is the all-zero
// 32-byte leaf embedding.
func ZeroHash(depth int) [32]byte {
	zeroHashesMu.Lock()
	defer zeroHashesMu.Unlock()

	for len(zeroHashes) <= depth {
		prev := zeroHashes[len(zeroHashes)-1]
		zeroHashes = append(zeroHashes, Combine()(prev, prev))
	}
	return zeroHashes[depth]
}

// ZeroHashLevel returns the depth of the memoized zero-hash chain matching
// digest, if any. Only digests already in the memoized chain are matched;
// the chain is not extended by this call.
func ZeroHashLevel(digest [32]byte) (int, bool) {
	zeroHashesMu.Lock()
	defer zeroHashesMu.Unlock()

	for i, h := range zeroHashes {
		if h == digest {
			return i, true
		}
	}
	return 0, false
}
