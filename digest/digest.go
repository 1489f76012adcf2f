// Copyright (c) 2025 pk910
// SPDX-License-Identifier: Apache-2.0
// This file is part of the bmtree library.

// Package digest provides a ready-made bmtree.Construct: a SHA-256 (or
// hashtree-bindings-accelerated) pairwise combine over a caller-supplied
// End-value codec, mirroring the original crate's default
// InheritedDigestConstruct<Sha256, E>.
package digest

import (
	"github.com/merkledb/bmtree"
	"github.com/merkledb/bmtree/hasher"
)

// EndCodec describes how an application's End-value type is embedded into
// the tree: its zero value, its equality relation, and its fixed 32-byte
// embedding used when hashing it as a child of an Intermediate node.
type EndCodec[E any] interface {
	Default() E
	Equal(a, b E) bool
	Bytes(e E) [32]byte
}

// InheritedDigestConstruct is a bmtree.Construct whose Intermediate and
// 32-byte End embeddings are combined with SHA-256 (or, under the cgo build
// tag, the accelerated hashtree-bindings batch hasher registered in
// bmtree/hasher).
type InheritedDigestConstruct[E any] struct {
	codec   EndCodec[E]
	combine hasher.CombineFn
}

// New builds an InheritedDigestConstruct over the given End-value codec.
func New[E any](codec EndCodec[E]) *InheritedDigestConstruct[E] {
	return &InheritedDigestConstruct[E]{codec: codec}
}

var _ bmtree.Construct[[]byte] = (*InheritedDigestConstruct[[]byte])(nil)
var _ bmtree.HasherSetter = (*InheritedDigestConstruct[[]byte])(nil)

// SetHasher overrides the combine function used by Combine, in place of
// hasher.Combine()'s package-level default/fast dispatch. Passing nil
// reverts to that default.
func (c *InheritedDigestConstruct[E]) SetHasher(fn hasher.CombineFn) {
	c.combine = fn
}

// DefaultEnd implements bmtree.Construct.
func (c *InheritedDigestConstruct[E]) DefaultEnd() E { return c.codec.Default() }

// EndEqual implements bmtree.Construct.
func (c *InheritedDigestConstruct[E]) EndEqual(a, b E) bool { return c.codec.Equal(a, b) }

// EndBytes implements bmtree.Construct.
func (c *InheritedDigestConstruct[E]) EndBytes(e E) [32]byte { return c.codec.Bytes(e) }

// Combine implements bmtree.Construct. It uses the instance's overridden
// combine function if SetHasher was called, otherwise hasher.Combine()'s
// default/fast dispatch.
func (c *InheritedDigestConstruct[E]) Combine(left, right [32]byte) bmtree.Hash {
	if c.combine != nil {
		return bmtree.Hash(c.combine(left, right))
	}
	return bmtree.Hash(hasher.Combine()(left, right))
}

// BytesCodec is an EndCodec for variable-length byte-slice End values,
// zero-padded to 32 bytes for embedding and truncated there for equality of
// the embedded form (matching the original crate's test fixtures, which use
// Vec<u8> as the End type). Values longer than 32 bytes can still be stored
// as leaves; only their embedding into a parent's hash is truncated, per
// spec §4.2's "fixed by the Construct" embedding contract.
type BytesCodec struct{}

// Default implements EndCodec.
func (BytesCodec) Default() []byte { return nil }

// Equal implements EndCodec.
func (BytesCodec) Equal(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Bytes implements EndCodec.
func (BytesCodec) Bytes(e []byte) [32]byte {
	var out [32]byte
	n := len(e)
	if n > 32 {
		n = 32
	}
	copy(out[:n], e[:n])
	return out
}

// NewBytes builds the common InheritedDigestConstruct[[]byte] instance.
func NewBytes() *InheritedDigestConstruct[[]byte] {
	return New[[]byte](BytesCodec{})
}

// FixedCodec is an EndCodec for a 32-byte fixed-width End type, matching the
// original crate's le/basic.rs `End([u8; 32])` scalar encoding target.
type FixedCodec struct{}

// Default implements EndCodec.
func (FixedCodec) Default() [32]byte { return [32]byte{} }

// Equal implements EndCodec.
func (FixedCodec) Equal(a, b [32]byte) bool { return a == b }

// Bytes implements EndCodec.
func (FixedCodec) Bytes(e [32]byte) [32]byte { return e }

// NewFixed builds the InheritedDigestConstruct[[32]byte] instance used by
// bmtree/encode's scalar and composite-record codecs.
func NewFixed() *InheritedDigestConstruct[[32]byte] {
	return New[[32]byte](FixedCodec{})
}
