// Copyright (c) 2025 pk910
// SPDX-License-Identifier: Apache-2.0
// This file is part of the bmtree library.

// Package memory provides InMemoryBackend, a hashmap-based bmtree.Backend
// with per-intermediate reference counts (spec §4.2 "InMemory backend").
package memory

import (
	"strconv"

	"golang.org/x/sync/singleflight"

	"github.com/merkledb/bmtree"
	"github.com/merkledb/bmtree/hasher"
)

type entry[E any] struct {
	pair     bmtree.Pair[E]
	refcount int
}

// InMemoryBackend is a hashmap-based bmtree.Backend. It is not safe for
// concurrent use (spec §5: "single writer" model). EmptyAt runs each
// first-time per-depth computation through a singleflight.Group keyed by
// depth, but the memo map it reads and fills is not guarded by a lock, so
// concurrent EmptyAt calls are not safe either.
type InMemoryBackend[E any] struct {
	construct bmtree.Construct[E]
	opts      *bmtree.Options

	store map[bmtree.Hash]*entry[E]

	emptyCache map[int]bmtree.Value[E]
	emptyGroup singleflight.Group

	// customHasher is set once SetHasher has installed a non-nil override,
	// at which point EmptyAt can no longer trust hasher's global zero-hash
	// chain (built with hasher.Combine()'s default/fast dispatch) to match
	// this backend's actual combine function.
	customHasher bool
	// globalZeroEligible is true when this backend's all-default End
	// embeds to the all-zero 32 bytes, the precondition for hasher.ZeroHash's
	// chain to coincide with this backend's own empty-subtree keys.
	globalZeroEligible bool
}

var _ bmtree.Backend[[]byte] = (*InMemoryBackend[[]byte])(nil)

// New builds an empty InMemoryBackend bound to the given Construct.
func New[E any](c bmtree.Construct[E], opts ...bmtree.Option) *InMemoryBackend[E] {
	o := bmtree.NewOptions(opts...)
	b := &InMemoryBackend[E]{
		construct:          c,
		opts:               o,
		store:              make(map[bmtree.Hash]*entry[E]),
		emptyCache:         make(map[int]bmtree.Value[E]),
		globalZeroEligible: c.EndBytes(c.DefaultEnd()) == [32]byte{},
	}
	if o.Hasher != nil {
		b.SetHasher(o.Hasher)
	}
	return b
}

// SetHasher overrides the combine function used to hash pairs of children,
// delegating to the backend's Construct if it implements bmtree.HasherSetter
// (digest.InheritedDigestConstruct does). It is a no-op otherwise.
func (b *InMemoryBackend[E]) SetHasher(fn hasher.CombineFn) {
	if hs, ok := b.construct.(bmtree.HasherSetter); ok {
		hs.SetHasher(fn)
		b.customHasher = fn != nil
	}
}

// Construct implements bmtree.Backend.
func (b *InMemoryBackend[E]) Construct() bmtree.Construct[E] { return b.construct }

// Len reports the number of distinct Intermediate entries currently
// persisted, for asserting spec §8 testable property 5 ("refcount zeroing")
// and property 3/4 (order-independence / idempotence) in tests.
func (b *InMemoryBackend[E]) Len() int { return len(b.store) }

// Refcount returns the current refcount for key, or 0 if it is absent.
func (b *InMemoryBackend[E]) Refcount(key bmtree.Hash) int {
	if e, ok := b.store[key]; ok {
		return e.refcount
	}
	return 0
}

// Get implements bmtree.ReadBackend.
func (b *InMemoryBackend[E]) Get(key bmtree.Hash) (bmtree.Pair[E], error) {
	e, ok := b.store[key]
	if !ok {
		return bmtree.Pair[E]{}, bmtree.NewError(bmtree.KindNotFound, "InMemoryBackend.Get", nil)
	}
	return e.pair, nil
}

// Insert implements bmtree.WriteBackend: creates the entry if absent,
// otherwise just raises its refcount by one.
func (b *InMemoryBackend[E]) Insert(key bmtree.Hash, value bmtree.Pair[E]) error {
	if e, ok := b.store[key]; ok {
		e.refcount++
		b.opts.logf("bmtree/memory: insert %x refcount -> %d", key, e.refcount)
		return nil
	}
	b.store[key] = &entry[E]{pair: value, refcount: 1}
	b.opts.logf("bmtree/memory: insert %x refcount -> 1 (new)", key)
	return nil
}

// Rootify implements bmtree.WriteBackend: raises key's refcount by one,
// marking it as (additionally) referenced by a live owned tree's root.
func (b *InMemoryBackend[E]) Rootify(key bmtree.Hash) error {
	e, ok := b.store[key]
	if !ok {
		return bmtree.NewError(bmtree.KindNotFound, "InMemoryBackend.Rootify", nil)
	}
	e.refcount++
	b.opts.logf("bmtree/memory: rootify %x refcount -> %d", key, e.refcount)
	return nil
}

// Unrootify implements bmtree.WriteBackend: lowers key's refcount by one; if
// it reaches zero the entry is removed and any Intermediate children are
// recursively unrootified.
func (b *InMemoryBackend[E]) Unrootify(key bmtree.Hash) error {
	e, ok := b.store[key]
	if !ok {
		if b.opts != nil && b.opts.StrictRefcounts {
			return bmtree.NewError(bmtree.KindCorruptedDatabase, "InMemoryBackend.Unrootify", nil)
		}
		return nil
	}

	e.refcount--
	b.opts.logf("bmtree/memory: unrootify %x refcount -> %d", key, e.refcount)
	if e.refcount > 0 {
		return nil
	}

	delete(b.store, key)
	pair := e.pair
	if childKey, ok := pair.Left.IntermediateKey(); ok {
		if err := b.Unrootify(childKey); err != nil {
			return err
		}
	}
	if childKey, ok := pair.Right.IntermediateKey(); ok {
		if err := b.Unrootify(childKey); err != nil {
			return err
		}
	}
	return nil
}

// EmptyAt implements bmtree.EmptyBackend. The per-depth chain is memoized in
// a backend-private cache that is not reflected in the refcounted store: an
// all-default tree must cost nothing to persist (spec §4.3 tie-break,
// testable property 6), and empty_at must stay a pure function of depth
// (spec invariant 6) regardless of how many times it is called for the
// same depth.
//
// When no custom hasher is installed and this backend's default End embeds
// to the all-zero 32 bytes, depths above 0 are served directly from
// hasher.ZeroHash's memoized chain instead of recomputing Combine(child,
// child) down from depth 0: both chains are built with the same combine
// function over the same all-zero seed, so they coincide, and hasher.ZeroHash
// is the one place that work is shared across every Construct in the
// process rather than recomputed per backend.
func (b *InMemoryBackend[E]) EmptyAt(depth int) (bmtree.Value[E], error) {
	if v, ok := b.emptyCache[depth]; ok {
		return v, nil
	}

	result, err, _ := b.emptyGroup.Do(strconv.Itoa(depth), func() (any, error) {
		if v, ok := b.emptyCache[depth]; ok {
			return v, nil
		}
		if depth == 0 {
			v := bmtree.End(b.construct.DefaultEnd())
			b.emptyCache[0] = v
			return v, nil
		}
		if !b.customHasher && b.globalZeroEligible {
			v := bmtree.Intermediate[E](bmtree.Hash(hasher.ZeroHash(depth)))
			b.emptyCache[depth] = v
			return v, nil
		}
		child, err := b.EmptyAt(depth - 1)
		if err != nil {
			return nil, err
		}
		key := bmtree.IntermediateOf(b.construct, child, child)
		v := bmtree.Intermediate[E](key)
		b.emptyCache[depth] = v
		return v, nil
	})
	if err != nil {
		var zero bmtree.Value[E]
		return zero, err
	}
	return result.(bmtree.Value[E]), nil
}
