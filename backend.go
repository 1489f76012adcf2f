// Copyright (c) 2025 pk910
// SPDX-License-Identifier: Apache-2.0
// This file is part of the bmtree library.

package bmtree

// ReadBackend resolves an Intermediate key to its pair of children. Get must
// fail with ErrNotFound for an unknown key.
type ReadBackend[E any] interface {
	Get(key Hash) (Pair[E], error)
}

// WriteBackend owns the refcounted store of Intermediate -> (left, right)
// entries. Insert raises an entry's refcount by one, creating it if absent;
// Rootify/Unrootify are the explicit refcount hooks that mark a key as (or no
// longer as) the root of a live owned tree. When Unrootify drops a refcount
// to zero the entry is removed and, if either child is itself an
// Intermediate, it is recursively unrootified.
type WriteBackend[E any] interface {
	Insert(key Hash, value Pair[E]) error
	Rootify(key Hash) error
	Unrootify(key Hash) error
}

// EmptyBackend produces (and may memoize) the canonical empty subtree Value
// at a given depth: depth 0 is End(default), depth d is
// Intermediate(Combine(empty(d-1), empty(d-1))).
type EmptyBackend[E any] interface {
	EmptyAt(depth int) (Value[E], error)
}

// Backend is the full contract consumed by Raw and the higher-level
// containers: read, write, and empty-subtree capabilities over one
// Construct.
type Backend[E any] interface {
	ReadBackend[E]
	WriteBackend[E]
	EmptyBackend[E]
	Construct() Construct[E]
}
