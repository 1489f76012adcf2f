// Copyright (c) 2025 pk910
// SPDX-License-Identifier: Apache-2.0
// This file is part of the bmtree library.

package container_test

import (
	"testing"

	"github.com/merkledb/bmtree/container"
	"github.com/merkledb/bmtree/digest"
	"github.com/merkledb/bmtree/memory"
)

// nibbleCodec packs 4-bit unsigned values, 64 per 32-byte block.
type nibbleCodec struct{}

func (nibbleCodec) BitWidth() int { return 4 }
func (nibbleCodec) Zero() uint8   { return 0 }

func (nibbleCodec) Pack(block [32]byte, offset int, v uint8) [32]byte {
	byteIdx := offset / 2
	if offset%2 == 0 {
		block[byteIdx] = (block[byteIdx] & 0xF0) | (v & 0x0F)
	} else {
		block[byteIdx] = (block[byteIdx] & 0x0F) | ((v & 0x0F) << 4)
	}
	return block
}

func (nibbleCodec) Unpack(block [32]byte, offset int) uint8 {
	byteIdx := offset / 2
	if offset%2 == 0 {
		return block[byteIdx] & 0x0F
	}
	return (block[byteIdx] >> 4) & 0x0F
}

func TestPackedTupleGetSet(t *testing.T) {
	c := digest.NewFixed()
	db := memory.New[[32]byte](c)

	pt, err := container.CreatePackedTuple[uint8](db, nibbleCodec{}, 200)
	if err != nil {
		t.Fatalf("CreatePackedTuple: %v", err)
	}
	for i := 0; i < 200; i++ {
		if err := pt.Set(db, i, uint8(i%16)); err != nil {
			t.Fatalf("Set(%d): %v", i, err)
		}
	}
	for i := 0; i < 200; i++ {
		got, err := pt.Get(db, i)
		if err != nil {
			t.Fatalf("Get(%d): %v", i, err)
		}
		if got != uint8(i%16) {
			t.Fatalf("Get(%d) = %d, want %d", i, got, i%16)
		}
	}
}

func TestPackedListPushPop(t *testing.T) {
	c := digest.NewFixed()
	db := memory.New[[32]byte](c)

	pl, err := container.CreatePackedList[uint8](db, nibbleCodec{}, fixedLenCodec{})
	if err != nil {
		t.Fatalf("CreatePackedList: %v", err)
	}
	for i := 0; i < 130; i++ {
		if err := pl.Push(db, uint8(i%16)); err != nil {
			t.Fatalf("Push(%d): %v", i, err)
		}
	}
	if pl.Len() != 130 {
		t.Fatalf("Len() = %d, want 130", pl.Len())
	}
	for i := 129; i >= 0; i-- {
		v, ok, err := pl.Pop(db)
		if err != nil {
			t.Fatalf("Pop at len %d: %v", i+1, err)
		}
		if !ok {
			t.Fatalf("Pop at len %d: ok = false", i+1)
		}
		if v != uint8(i%16) {
			t.Fatalf("Pop at len %d = %d, want %d", i+1, v, i%16)
		}
	}
}

type fixedLenCodec struct{}

func (fixedLenCodec) EncodeLength(n int) [32]byte {
	var out [32]byte
	v := uint64(n)
	for i := 0; i < 8; i++ {
		out[i] = byte(v >> (8 * i))
	}
	return out
}

func (fixedLenCodec) DecodeLength(e [32]byte) (int, error) {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(e[i]) << (8 * i)
	}
	return int(v), nil
}
