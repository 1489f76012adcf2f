// Copyright (c) 2025 pk910
// SPDX-License-Identifier: Apache-2.0
// This file is part of the bmtree library.

// Package encode implements the serialization-to-tree layer (spec §4.5):
// little-endian, zero-padded scalar encodings, and a reflection-based
// composite-record codec standing in for the original crate's
// #[derive(IntoTree, FromTree)] proc-macro (spec §9 Design Notes: "this may
// be achieved by code generation, reflection over a declared schema, or
// manual implementation"). Grounded on original_source's le/src/basic.rs
// for the scalar encodings and ssztypes/typecache.go for the
// reflection-based descriptor cache shape.
package encode

import (
	"encoding/binary"

	"github.com/merkledb/bmtree"
)

// Uint128 is a 128-bit little-endian word, embedded zero-padded to 32
// bytes. Carried from original_source's u128 scalar impl even though
// spec.md's own prose only names up to u128 explicitly by way of the
// impl_builtin_uint! macro's instantiation list.
type Uint128 [16]byte

// Uint256 is a 256-bit little-endian word (original_source's
// primitive_types::U256 impl), carried as a supplemented feature (spec.md
// does not name it, but le/src/basic.rs implements it alongside the
// builtin unsigned integers).
type Uint256 [32]byte

// EncodeBool implements spec §4.5's "Booleans: End(1) / End(0)".
func EncodeBool(v bool) bmtree.Value[[32]byte] {
	if v {
		return EncodeUint8(1)
	}
	return EncodeUint8(0)
}

// DecodeBool is EncodeBool's inverse.
func DecodeBool(v bmtree.Value[[32]byte]) (bool, error) {
	n, err := DecodeUint8(v)
	if err != nil {
		return false, err
	}
	return n != 0, nil
}

// EncodeUint8 implements spec §4.5's little-endian zero-padded integer
// encoding for u8.
func EncodeUint8(v uint8) bmtree.Value[[32]byte] {
	var b [32]byte
	b[0] = v
	return bmtree.End[[32]byte](b)
}

// DecodeUint8 is EncodeUint8's inverse.
func DecodeUint8(v bmtree.Value[[32]byte]) (uint8, error) {
	b, err := endBytes(v, "DecodeUint8")
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// EncodeUint16 implements spec §4.5's little-endian zero-padded integer
// encoding for u16.
func EncodeUint16(v uint16) bmtree.Value[[32]byte] {
	var b [32]byte
	binary.LittleEndian.PutUint16(b[:2], v)
	return bmtree.End[[32]byte](b)
}

// DecodeUint16 is EncodeUint16's inverse.
func DecodeUint16(v bmtree.Value[[32]byte]) (uint16, error) {
	b, err := endBytes(v, "DecodeUint16")
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b[:2]), nil
}

// EncodeUint32 implements spec §4.5's little-endian zero-padded integer
// encoding for u32.
func EncodeUint32(v uint32) bmtree.Value[[32]byte] {
	var b [32]byte
	binary.LittleEndian.PutUint32(b[:4], v)
	return bmtree.End[[32]byte](b)
}

// DecodeUint32 is EncodeUint32's inverse.
func DecodeUint32(v bmtree.Value[[32]byte]) (uint32, error) {
	b, err := endBytes(v, "DecodeUint32")
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:4]), nil
}

// EncodeUint64 implements spec §4.5's little-endian zero-padded integer
// encoding for u64.
func EncodeUint64(v uint64) bmtree.Value[[32]byte] {
	var b [32]byte
	binary.LittleEndian.PutUint64(b[:8], v)
	return bmtree.End[[32]byte](b)
}

// DecodeUint64 is EncodeUint64's inverse.
func DecodeUint64(v bmtree.Value[[32]byte]) (uint64, error) {
	b, err := endBytes(v, "DecodeUint64")
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:8]), nil
}

// EncodeUint128 implements spec §4.5's little-endian zero-padded integer
// encoding for u128.
func EncodeUint128(v Uint128) bmtree.Value[[32]byte] {
	var b [32]byte
	copy(b[:16], v[:])
	return bmtree.End[[32]byte](b)
}

// DecodeUint128 is EncodeUint128's inverse.
func DecodeUint128(v bmtree.Value[[32]byte]) (Uint128, error) {
	b, err := endBytes(v, "DecodeUint128")
	if err != nil {
		return Uint128{}, err
	}
	var out Uint128
	copy(out[:], b[:16])
	return out, nil
}

// EncodeUint256 implements the original crate's U256 little-endian
// encoding (supplemented feature, see package doc).
func EncodeUint256(v Uint256) bmtree.Value[[32]byte] {
	return bmtree.End[[32]byte]([32]byte(v))
}

// DecodeUint256 is EncodeUint256's inverse.
func DecodeUint256(v bmtree.Value[[32]byte]) (Uint256, error) {
	b, err := endBytes(v, "DecodeUint256")
	if err != nil {
		return Uint256{}, err
	}
	return Uint256(b), nil
}

// endBytes requires v to be an End leaf, failing with KindCorruptedDatabase
// otherwise (original_source's `Value::Intermediate(_) =>
// Err(Error::CorruptedDatabase)` arm).
func endBytes(v bmtree.Value[[32]byte], op string) ([32]byte, error) {
	b, ok := v.EndValue()
	if !ok {
		return [32]byte{}, bmtree.NewError(bmtree.KindCorruptedDatabase, op, nil)
	}
	return b, nil
}
