// Copyright (c) 2025 pk910
// SPDX-License-Identifier: Apache-2.0
// This file is part of the bmtree library.

package encode_test

import (
	"testing"

	"github.com/merkledb/bmtree/digest"
	"github.com/merkledb/bmtree/encode"
	"github.com/merkledb/bmtree/memory"
)

func TestScalarRoundTrip(t *testing.T) {
	c := digest.NewFixed()
	db := memory.New[[32]byte](c)

	cases := []any{true, false, uint8(7), uint16(1000), uint32(70000), uint64(1) << 40}
	for _, in := range cases {
		v, err := encode.IntoTree(db, in)
		if err != nil {
			t.Fatalf("IntoTree(%v): %v", in, err)
		}
		out := newZero(in)
		if err := encode.FromTree(db, v, out); err != nil {
			t.Fatalf("FromTree(%v): %v", in, err)
		}
		if !equalDeref(in, out) {
			t.Fatalf("round trip mismatch: in=%v out=%v", in, deref(out))
		}
	}
}

func newZero(sample any) any {
	switch sample.(type) {
	case bool:
		return new(bool)
	case uint8:
		return new(uint8)
	case uint16:
		return new(uint16)
	case uint32:
		return new(uint32)
	case uint64:
		return new(uint64)
	}
	panic("unsupported sample type")
}

func deref(p any) any {
	switch x := p.(type) {
	case *bool:
		return *x
	case *uint8:
		return *x
	case *uint16:
		return *x
	case *uint32:
		return *x
	case *uint64:
		return *x
	}
	panic("unsupported pointer type")
}

func equalDeref(in, out any) bool {
	return in == deref(out)
}

type innerRecord struct {
	A uint32
	B bool
}

type outerRecord struct {
	Name innerRecord
	Tags []uint8 `bm:"compact"`
	N    uint64
}

func TestCompositeRecordRoundTrip(t *testing.T) {
	c := digest.NewFixed()
	db := memory.New[[32]byte](c)

	in := outerRecord{
		Name: innerRecord{A: 42, B: true},
		Tags: []uint8{1, 2, 3, 4, 5},
		N:    9001,
	}

	v, err := encode.IntoTree(db, in)
	if err != nil {
		t.Fatalf("IntoTree: %v", err)
	}

	var out outerRecord
	if err := encode.FromTree(db, v, &out); err != nil {
		t.Fatalf("FromTree: %v", err)
	}

	if out.Name != in.Name {
		t.Fatalf("Name = %+v, want %+v", out.Name, in.Name)
	}
	if out.N != in.N {
		t.Fatalf("N = %d, want %d", out.N, in.N)
	}
	if len(out.Tags) != len(in.Tags) {
		t.Fatalf("Tags length = %d, want %d", len(out.Tags), len(in.Tags))
	}
	for i := range in.Tags {
		if out.Tags[i] != in.Tags[i] {
			t.Fatalf("Tags[%d] = %d, want %d", i, out.Tags[i], in.Tags[i])
		}
	}
}

func TestCompactWrapperRoundTrip(t *testing.T) {
	c := digest.NewFixed()
	db := memory.New[[32]byte](c)

	in := encode.Compact[[]uint8]{Value: []uint8{1, 2, 3, 4, 5}}
	v, err := encode.IntoTree(db, in)
	if err != nil {
		t.Fatalf("IntoTree: %v", err)
	}

	var out encode.Compact[[]uint8]
	if err := encode.FromTree(db, v, &out); err != nil {
		t.Fatalf("FromTree: %v", err)
	}
	if len(out.Value) != len(in.Value) {
		t.Fatalf("Value length = %d, want %d", len(out.Value), len(in.Value))
	}
	for i := range in.Value {
		if out.Value[i] != in.Value[i] {
			t.Fatalf("Value[%d] = %d, want %d", i, out.Value[i], in.Value[i])
		}
	}

	ref := encode.CompactRef[[]uint8]{Value: &in.Value}
	refRoot, err := encode.IntoTree(db, ref)
	if err != nil {
		t.Fatalf("IntoTree(CompactRef): %v", err)
	}
	if refRoot != v {
		t.Fatalf("CompactRef root %x != Compact root %x", refRoot, v)
	}
}

type untaggedRecord struct {
	N    uint64
	Tags []uint8
}

func TestSchemaOverridesCompactFlag(t *testing.T) {
	c := digest.NewFixed()
	db := memory.New[[32]byte](c)

	schema, err := encode.ParseSchema([]byte(`
fields:
  - name: N
  - name: Tags
    compact: true
`))
	if err != nil {
		t.Fatalf("ParseSchema: %v", err)
	}

	in := untaggedRecord{N: 7, Tags: []uint8{9, 8, 7}}
	v, err := encode.IntoTreeWithSchema(db, in, schema)
	if err != nil {
		t.Fatalf("IntoTreeWithSchema: %v", err)
	}

	var out untaggedRecord
	if err := encode.FromTreeWithSchema(db, v, &out, schema); err != nil {
		t.Fatalf("FromTreeWithSchema: %v", err)
	}
	if out.N != in.N {
		t.Fatalf("N = %d, want %d", out.N, in.N)
	}
	if len(out.Tags) != len(in.Tags) {
		t.Fatalf("Tags length = %d, want %d", len(out.Tags), len(in.Tags))
	}
	for i := range in.Tags {
		if out.Tags[i] != in.Tags[i] {
			t.Fatalf("Tags[%d] = %d, want %d", i, out.Tags[i], in.Tags[i])
		}
	}
}
