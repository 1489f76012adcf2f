// Copyright (c) 2025 pk910
// SPDX-License-Identifier: Apache-2.0
// This file is part of the bmtree library.

package bmtree

// Hash is the fixed-width intermediate key type: a 32-byte digest produced by
// a Construct's combine function. The engine assumes collision resistance.
type Hash [32]byte

// ValueKind discriminates the two Value variants.
type ValueKind uint8

const (
	// KindEnd marks a leaf value carrying an opaque end-value.
	KindEnd ValueKind = iota
	// KindIntermediate marks an internal node resolvable via a backend.
	KindIntermediate
)

// Value is the sum of the two node variants: End(E), a leaf carrying an
// opaque end-value, or Intermediate(Hash), an internal node identified by a
// hash key resolvable via a Backend to a pair of children.
type Value[E any] struct {
	kind  ValueKind
	end   E
	inter Hash
}

// End constructs a leaf Value wrapping e.
func End[E any](e E) Value[E] {
	return Value[E]{kind: KindEnd, end: e}
}

// Intermediate constructs an internal-node Value identified by key.
func Intermediate[E any](key Hash) Value[E] {
	return Value[E]{kind: KindIntermediate, inter: key}
}

// IsEnd reports whether v is an End leaf.
func (v Value[E]) IsEnd() bool { return v.kind == KindEnd }

// IsIntermediate reports whether v is an Intermediate node.
func (v Value[E]) IsIntermediate() bool { return v.kind == KindIntermediate }

// EndValue returns the wrapped end-value and true if v is an End leaf.
func (v Value[E]) EndValue() (E, bool) {
	if v.kind != KindEnd {
		var zero E
		return zero, false
	}
	return v.end, true
}

// IntermediateKey returns the wrapped hash key and true if v is an
// Intermediate node.
func (v Value[E]) IntermediateKey() (Hash, bool) {
	if v.kind != KindIntermediate {
		return Hash{}, false
	}
	return v.inter, true
}

// Pair is a pair of children resolved from the backend for an Intermediate
// node: (left, right).
type Pair[E any] struct {
	Left  Value[E]
	Right Value[E]
}

// Construct binds an end-value type to its default value, its 32-byte
// embedding, and the hash function used to combine a pair of children into
// an intermediate key. Implementations are pure functions of their inputs.
// The canonical "empty subtree at depth d" value is produced by a backend's
// EmptyAt (see EmptyBackend), not by the Construct.
type Construct[E any] interface {
	// DefaultEnd returns the zero End value used to seed a fresh tree and
	// every all-default subtree.
	DefaultEnd() E

	// EndEqual reports whether two end-values are equal, per spec
	// invariant 1 ("two values H(L,R) are equal iff L and R are equal as
	// Values").
	EndEqual(a, b E) bool

	// EndBytes returns the fixed-width (32-byte) embedding of an
	// End value used when hashing it as a child of an Intermediate.
	EndBytes(e E) [32]byte

	// Combine computes the hash of the serialized form of a pair of
	// 32-byte child embeddings: for an Intermediate child its key is
	// embedded directly, for an End child its EndBytes embedding is used.
	Combine(left, right [32]byte) Hash
}

// childBytes returns the 32-byte embedding of v for hashing purposes: the
// key itself if v is Intermediate, or c.EndBytes(e) if v is an End leaf.
func childBytes[E any](c Construct[E], v Value[E]) [32]byte {
	if key, ok := v.IntermediateKey(); ok {
		return [32]byte(key)
	}
	e, _ := v.EndValue()
	return c.EndBytes(e)
}

// IntermediateOf computes the Construct's hash of the pair (l, r), per spec
// §4.2: the binding between a pair of child Values and the Hash that
// identifies their parent Intermediate node.
func IntermediateOf[E any](c Construct[E], l, r Value[E]) Hash {
	return c.Combine(childBytes(c, l), childBytes(c, r))
}
