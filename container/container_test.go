// Copyright (c) 2025 pk910
// SPDX-License-Identifier: Apache-2.0
// This file is part of the bmtree library.

package container_test

import (
	"encoding/binary"
	"testing"

	"github.com/merkledb/bmtree"
	"github.com/merkledb/bmtree/container"
	"github.com/merkledb/bmtree/digest"
	"github.com/merkledb/bmtree/memory"
)

type lenCodec struct{}

func (lenCodec) EncodeLength(n int) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(n))
	return buf
}

func (lenCodec) DecodeLength(e []byte) (int, error) {
	var buf [8]byte
	copy(buf[:], e)
	return int(binary.LittleEndian.Uint64(buf[:])), nil
}

func elementValue(i int) bmtree.Value[[]byte] {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(i))
	return bmtree.End[[]byte](buf)
}

func elementInt(v bmtree.Value[[]byte]) int {
	e, _ := v.EndValue()
	var buf [8]byte
	copy(buf[:], e)
	return int(binary.LittleEndian.Uint64(buf[:]))
}

// TestListPushPopRoundTrip is spec scenario S4.
func TestListPushPopRoundTrip(t *testing.T) {
	c := digest.NewBytes()
	db := memory.New[[]byte](c)

	list, err := container.CreateList[[]byte](db, lenCodec{})
	if err != nil {
		t.Fatalf("CreateList: %v", err)
	}

	for i := 0; i < 100; i++ {
		if list.Len() != i {
			t.Fatalf("before push %d: Len() = %d, want %d", i, list.Len(), i)
		}
		if err := list.Push(db, elementValue(i)); err != nil {
			t.Fatalf("Push(%d): %v", i, err)
		}
	}
	if list.Len() != 100 {
		t.Fatalf("Len() = %d, want 100", list.Len())
	}

	for i := 99; i >= 0; i-- {
		v, ok, err := list.Pop(db)
		if err != nil {
			t.Fatalf("Pop at len %d: %v", i+1, err)
		}
		if !ok {
			t.Fatalf("Pop at len %d: ok = false", i+1)
		}
		if got := elementInt(v); got != i {
			t.Fatalf("Pop at len %d = %d, want %d", i+1, got, i)
		}
		if list.Len() != i {
			t.Fatalf("after pop: Len() = %d, want %d", list.Len(), i)
		}
	}

	if _, ok, err := list.Pop(db); err != nil || ok {
		t.Fatalf("Pop on empty list: ok=%v err=%v, want ok=false err=nil", ok, err)
	}
}

func TestTupleSetGet(t *testing.T) {
	c := digest.NewBytes()
	db := memory.New[[]byte](c)

	tuple, err := container.CreateTuple[[]byte](db, 10)
	if err != nil {
		t.Fatalf("CreateTuple: %v", err)
	}
	for i := 0; i < 10; i++ {
		if err := tuple.Set(db, i, elementValue(i*2)); err != nil {
			t.Fatalf("Set(%d): %v", i, err)
		}
	}
	for i := 0; i < 10; i++ {
		v, err := tuple.Get(db, i)
		if err != nil {
			t.Fatalf("Get(%d): %v", i, err)
		}
		if got := elementInt(v); got != i*2 {
			t.Fatalf("Get(%d) = %d, want %d", i, got, i*2)
		}
	}
	if _, err := tuple.Get(db, 10); err == nil {
		t.Fatalf("Get(10) on a length-10 tuple should fail")
	}
}

func TestListDropEmptiesBackend(t *testing.T) {
	c := digest.NewBytes()
	db := memory.New[[]byte](c)

	list, err := container.CreateList[[]byte](db, lenCodec{})
	if err != nil {
		t.Fatalf("CreateList: %v", err)
	}
	for i := 0; i < 40; i++ {
		if err := list.Push(db, elementValue(i)); err != nil {
			t.Fatalf("Push(%d): %v", i, err)
		}
	}
	if db.Len() == 0 {
		t.Fatalf("expected persisted intermediates after pushes")
	}
	if err := list.Drop(db); err != nil {
		t.Fatalf("Drop: %v", err)
	}
	if db.Len() != 0 {
		t.Fatalf("expected empty backend after Drop, got Len() = %d", db.Len())
	}
}
