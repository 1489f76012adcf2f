// Copyright (c) 2025 pk910
// SPDX-License-Identifier: Apache-2.0
// This file is part of the bmtree library.

package bmtree

import "github.com/merkledb/bmtree/hasher"

// Options collects the functional-option settings taken by
// bmtree/memory's InMemoryBackend; bmtree/proving's ProvingBackend takes no
// options and does no logging of its own. It mirrors the
// teacher's DynSszOptions: a small bag of knobs plumbed through constructors
// rather than an ever-growing positional-argument list.
type Options struct {
	// Verbose, when true, causes backends to invoke LogCb for every
	// Insert/Rootify/Unrootify, tracing refcount transitions.
	Verbose bool
	// LogCb receives verbose trace lines when Verbose is set. If nil,
	// Verbose logging is silently skipped.
	LogCb func(format string, args ...any)
	// StrictRefcounts causes Unrootify on a key whose refcount is already
	// zero (or absent) to return a KindCorruptedDatabase error instead of
	// being a silent no-op. Useful in tests asserting exact refcount
	// bookkeeping (spec §8 property 5, "refcount zeroing").
	StrictRefcounts bool
	// Hasher, when set, overrides the default SHA-256 combine function
	// (spec §4.2's "any 32-byte digest" contract) for the Construct a
	// backend is built with, provided that Construct implements
	// HasherSetter. Applied once at construction time; SetHasher on the
	// backend itself can install a different one later.
	Hasher hasher.CombineFn
}

// HasherSetter is implemented by Constructs that support overriding their
// pairwise combine function at runtime (e.g. digest.InheritedDigestConstruct).
// A backend's SetHasher method delegates to it when the backend's Construct
// implements this interface.
type HasherSetter interface {
	SetHasher(fn hasher.CombineFn)
}

// Option configures an Options value.
type Option func(*Options)

// WithVerbose enables LogCb tracing of refcount transitions.
func WithVerbose() Option {
	return func(o *Options) { o.Verbose = true }
}

// WithLogCb installs the callback invoked for verbose trace lines.
func WithLogCb(cb func(format string, args ...any)) Option {
	return func(o *Options) { o.LogCb = cb }
}

// WithStrictRefcounts enables strict refcount-underflow checking.
func WithStrictRefcounts() Option {
	return func(o *Options) { o.StrictRefcounts = true }
}

// WithHasher overrides the combine function used to hash pairs of children
// into their parent's key, for any backend whose Construct implements
// HasherSetter (digest.InheritedDigestConstruct does).
func WithHasher(fn hasher.CombineFn) Option {
	return func(o *Options) { o.Hasher = fn }
}

// NewOptions applies opts over the zero value and returns the result.
func NewOptions(opts ...Option) *Options {
	o := &Options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Options) logf(format string, args ...any) {
	if o == nil || !o.Verbose || o.LogCb == nil {
		return
	}
	o.LogCb(format, args...)
}
