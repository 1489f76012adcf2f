// Copyright (c) 2025 pk910
// SPDX-License-Identifier: Apache-2.0
// This file is part of the bmtree library.

package container

import (
	"fmt"

	"github.com/casbin/govaluate"

	"github.com/merkledb/bmtree"
)

// PackedCodec packs and unpacks a fixed-width logical element type into a
// 32-byte block at a given element offset within the block, the way a
// packed Vector/List crams several logical elements into one leaf (spec
// §4.4's "Packed Vector / List").
type PackedCodec[E any] interface {
	// BitWidth is the number of bits one logical element occupies; it
	// must evenly divide 256.
	BitWidth() int
	Zero() E
	Pack(block [32]byte, offset int, v E) [32]byte
	Unpack(block [32]byte, offset int) E
}

// elementsPerBlock resolves "how many BitWidth-sized elements fit in one
// 256-bit leaf" via a govaluate expression over the codec's declared bit
// width, mirroring the teacher's use of govaluate to resolve spec-value
// arithmetic (e.g. SLOTS_PER_HISTORICAL_ROOT/32) rather than computing the
// division inline.
func elementsPerBlock(bitWidth int) (int, error) {
	if bitWidth <= 0 || 256%bitWidth != 0 {
		return 0, bmtree.NewError(bmtree.KindInvalidIndex, "elementsPerBlock", fmt.Errorf("bit width %d does not evenly divide 256", bitWidth))
	}
	expr, err := govaluate.NewEvaluableExpression(fmt.Sprintf("256/%d", bitWidth))
	if err != nil {
		return 0, bmtree.NewError(bmtree.KindBackendError, "elementsPerBlock", err)
	}
	result, err := expr.Evaluate(nil)
	if err != nil {
		return 0, bmtree.NewError(bmtree.KindBackendError, "elementsPerBlock", err)
	}
	f, ok := result.(float64)
	if !ok {
		return 0, bmtree.NewError(bmtree.KindBackendError, "elementsPerBlock", fmt.Errorf("unexpected expression result type %T", result))
	}
	return int(f), nil
}

// PackedTuple is a fixed-capacity sequence of bit-packed logical elements,
// backed by a Tuple[[32]byte] of blocks.
type PackedTuple[E any] struct {
	blocks   *Tuple[[32]byte]
	codec    PackedCodec[E]
	perBlock int
	length   int
}

// CreatePackedTuple allocates a PackedTuple of the given logical length.
func CreatePackedTuple[E any](db bmtree.Backend[[32]byte], codec PackedCodec[E], length int) (*PackedTuple[E], error) {
	if length < 0 {
		return nil, bmtree.NewError(bmtree.KindInvalidIndex, "CreatePackedTuple", nil)
	}
	perBlock, err := elementsPerBlock(codec.BitWidth())
	if err != nil {
		return nil, err
	}
	blockCount := (length + perBlock - 1) / perBlock
	blocks, err := CreateTuple[[32]byte](db, blockCount)
	if err != nil {
		return nil, err
	}
	return &PackedTuple[E]{blocks: blocks, codec: codec, perBlock: perBlock, length: length}, nil
}

// Len returns the number of logical elements.
func (p *PackedTuple[E]) Len() int { return p.length }

// Root returns the root of the underlying block tuple.
func (p *PackedTuple[E]) Root() bmtree.Value[[32]byte] { return p.blocks.Root() }

// Drop releases the underlying block tuple's backend references.
func (p *PackedTuple[E]) Drop(db bmtree.WriteBackend[[32]byte]) error { return p.blocks.Drop(db) }

func (p *PackedTuple[E]) locate(i int) (blockIdx, offset int, err error) {
	if i < 0 || i >= p.length {
		return 0, 0, bmtree.NewError(bmtree.KindInvalidIndex, "PackedTuple", nil)
	}
	return i / p.perBlock, i % p.perBlock, nil
}

// Get decodes and returns the logical element at index i.
func (p *PackedTuple[E]) Get(db bmtree.Backend[[32]byte], i int) (E, error) {
	var zero E
	blockIdx, offset, err := p.locate(i)
	if err != nil {
		return zero, err
	}
	v, err := p.blocks.Get(db, blockIdx)
	if err != nil {
		return zero, err
	}
	block, _ := v.EndValue()
	return p.codec.Unpack(block, offset), nil
}

// Set encodes val into the covering block at index i.
func (p *PackedTuple[E]) Set(db bmtree.Backend[[32]byte], i int, val E) error {
	blockIdx, offset, err := p.locate(i)
	if err != nil {
		return err
	}
	v, err := p.blocks.Get(db, blockIdx)
	if err != nil {
		return err
	}
	block, _ := v.EndValue()
	newBlock := p.codec.Pack(block, offset, val)
	return p.blocks.Set(db, blockIdx, bmtree.End[[32]byte](newBlock))
}

// PackedList is a growable sequence of bit-packed logical elements,
// tracking *logical* element count while backing storage grows/shrinks in
// whole blocks.
type PackedList[E any] struct {
	blocks   *List[[32]byte]
	codec    PackedCodec[E]
	perBlock int
	length   int
}

// CreatePackedList allocates an empty owned PackedList.
func CreatePackedList[E any](db bmtree.Backend[[32]byte], codec PackedCodec[E], lenCodec LengthCodec[[32]byte]) (*PackedList[E], error) {
	perBlock, err := elementsPerBlock(codec.BitWidth())
	if err != nil {
		return nil, err
	}
	blocks, err := CreateList[[32]byte](db, lenCodec)
	if err != nil {
		return nil, err
	}
	return &PackedList[E]{blocks: blocks, codec: codec, perBlock: perBlock}, nil
}

// Len returns the number of logical elements.
func (p *PackedList[E]) Len() int { return p.length }

// Root returns the root of the underlying block list.
func (p *PackedList[E]) Root() bmtree.Value[[32]byte] { return p.blocks.Root() }

// Drop releases the underlying block list's backend references.
func (p *PackedList[E]) Drop(db bmtree.WriteBackend[[32]byte]) error { return p.blocks.Drop(db) }

func (p *PackedList[E]) locate(i int) (blockIdx, offset int, err error) {
	if i < 0 || i >= p.length {
		return 0, 0, bmtree.NewError(bmtree.KindInvalidIndex, "PackedList", nil)
	}
	return i / p.perBlock, i % p.perBlock, nil
}

// Get decodes and returns the logical element at index i.
func (p *PackedList[E]) Get(db bmtree.Backend[[32]byte], i int) (E, error) {
	var zero E
	blockIdx, offset, err := p.locate(i)
	if err != nil {
		return zero, err
	}
	v, err := p.blocks.Get(db, blockIdx)
	if err != nil {
		return zero, err
	}
	block, _ := v.EndValue()
	return p.codec.Unpack(block, offset), nil
}

// Set encodes val into the covering block at index i.
func (p *PackedList[E]) Set(db bmtree.Backend[[32]byte], i int, val E) error {
	blockIdx, offset, err := p.locate(i)
	if err != nil {
		return err
	}
	v, err := p.blocks.Get(db, blockIdx)
	if err != nil {
		return err
	}
	block, _ := v.EndValue()
	newBlock := p.codec.Pack(block, offset, val)
	return p.blocks.Set(db, blockIdx, bmtree.End[[32]byte](newBlock))
}

// Push appends one logical element, growing the backing block list by one
// fresh block whenever the new logical length would overflow the current
// block count.
func (p *PackedList[E]) Push(db bmtree.Backend[[32]byte], val E) error {
	blockIdx := p.length / p.perBlock
	offset := p.length % p.perBlock

	if blockIdx >= p.blocks.Len() {
		if err := p.blocks.Push(db, bmtree.End[[32]byte]([32]byte{})); err != nil {
			return err
		}
	}
	v, err := p.blocks.Get(db, blockIdx)
	if err != nil {
		return err
	}
	block, _ := v.EndValue()
	newBlock := p.codec.Pack(block, offset, val)
	if err := p.blocks.Set(db, blockIdx, bmtree.End[[32]byte](newBlock)); err != nil {
		return err
	}
	p.length++
	return nil
}

// Pop removes and returns the last logical element, dropping the backing
// block once its last logical element is popped.
func (p *PackedList[E]) Pop(db bmtree.Backend[[32]byte]) (val E, ok bool, err error) {
	var zero E
	if p.length == 0 {
		return zero, false, nil
	}
	i := p.length - 1
	blockIdx := i / p.perBlock
	offset := i % p.perBlock

	v, err := p.blocks.Get(db, blockIdx)
	if err != nil {
		return zero, false, err
	}
	block, _ := v.EndValue()
	val = p.codec.Unpack(block, offset)

	cleared := p.codec.Pack(block, offset, p.codec.Zero())
	if err := p.blocks.Set(db, blockIdx, bmtree.End[[32]byte](cleared)); err != nil {
		return zero, false, err
	}
	p.length = i

	if offset == 0 {
		if _, _, err := p.blocks.Pop(db); err != nil {
			return zero, false, err
		}
	}
	return val, true, nil
}
