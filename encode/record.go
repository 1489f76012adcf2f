// Copyright (c) 2025 pk910
// SPDX-License-Identifier: Apache-2.0
// This file is part of the bmtree library.

package encode

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/merkledb/bmtree"
)

// recordDescriptor caches, per struct type, the exported fields to encode
// and whether each carries an opt-in `bm:"compact"` tag (spec §4.5's
// "opt-in compact attribute"). Grounded on ssztypes/typecache.go's
// sync.RWMutex-guarded map-keyed-by-reflect.Type pattern: many callers
// share one process-wide descriptor cache safely for concurrent readers.
type recordDescriptor struct {
	fields []fieldDescriptor
}

type fieldDescriptor struct {
	index   int
	name    string
	compact bool
}

var (
	descriptorMu    sync.RWMutex
	descriptorCache = map[reflect.Type]*recordDescriptor{}
)

func describeRecord(t reflect.Type) *recordDescriptor {
	descriptorMu.RLock()
	d, ok := descriptorCache[t]
	descriptorMu.RUnlock()
	if ok {
		return d
	}

	descriptorMu.Lock()
	defer descriptorMu.Unlock()
	if d, ok := descriptorCache[t]; ok {
		return d
	}

	d = &recordDescriptor{}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" {
			continue
		}
		tag, _ := f.Tag.Lookup("bm")
		d.fields = append(d.fields, fieldDescriptor{index: i, name: f.Name, compact: tag == "compact"})
	}
	descriptorCache[t] = d
	return d
}

// recordDepth returns ceil(log2(max(n,1))), the vector-tree depth for a
// record of n fields (spec §4.5: "balanced binary tree up to the next
// power of two, padded with empty subtrees").
func recordDepth(n int) int {
	if n <= 1 {
		return 0
	}
	depth := 0
	for (1 << uint(depth)) < n {
		depth++
	}
	return depth
}

// vectorTree builds the root of a balanced binary tree over values, padded
// on the right with the backend's empty leaf up to the next power of two
// (spec §4.5's composite-record root construction, and §4.4's Tuple
// creation-with-length construction shared by both callers).
func vectorTree(db bmtree.Backend[[32]byte], values []bmtree.Value[[32]byte]) (bmtree.Value[[32]byte], error) {
	depth := recordDepth(len(values))
	size := 1 << uint(depth)

	emptyLeaf, err := db.EmptyAt(0)
	if err != nil {
		return bmtree.Value[[32]byte]{}, bmtree.WrapBackendError("vectorTree", err)
	}
	level := make([]bmtree.Value[[32]byte], size)
	for i := range level {
		level[i] = emptyLeaf
	}
	copy(level, values)

	c := db.Construct()
	for len(level) > 1 {
		next := make([]bmtree.Value[[32]byte], len(level)/2)
		for i := range next {
			l, r := level[2*i], level[2*i+1]
			key := bmtree.IntermediateOf(c, l, r)
			if err := db.Insert(key, bmtree.Pair[[32]byte]{Left: l, Right: r}); err != nil {
				return bmtree.Value[[32]byte]{}, bmtree.WrapBackendError("vectorTree", err)
			}
			next[i] = bmtree.Intermediate[[32]byte](key)
		}
		level = next
	}
	return level[0], nil
}

// vectorGet reads the value at position i of a vector-tree rooted at root,
// a fields-count wide balanced binary tree (original_source's
// DanglingVector::from_leaked((root, fields_count, None)) then
// vector.get(db, i)).
func vectorGet(db bmtree.ReadBackend[[32]byte], root bmtree.Value[[32]byte], fieldsCount, i int) (bmtree.Value[[32]byte], error) {
	depth := recordDepth(fieldsCount)
	idx, err := bmtree.FromOne((uint64(1) << uint(depth)) + uint64(i))
	if err != nil {
		return bmtree.Value[[32]byte]{}, err
	}
	route := idx.Route()
	current := root
	for _, sel := range route.Selections {
		key, ok := current.IntermediateKey()
		if !ok {
			return bmtree.Value[[32]byte]{}, bmtree.NewError(bmtree.KindCorruptedDatabase, "vectorGet", nil)
		}
		pair, err := db.Get(key)
		if err != nil {
			return bmtree.Value[[32]byte]{}, bmtree.WrapBackendError("vectorGet", err)
		}
		if sel == bmtree.Left {
			current = pair.Left
		} else {
			current = pair.Right
		}
	}
	return current, nil
}

// IntoTree encodes v as a tree Value. v must be one of the supported
// scalar types, a Compact[T]/CompactRef[T] wrapper, or a struct whose
// exported fields are themselves IntoTree-able (spec §4.5).
func IntoTree(db bmtree.Backend[[32]byte], v any) (bmtree.Value[[32]byte], error) {
	switch x := v.(type) {
	case bool:
		return EncodeBool(x), nil
	case uint8:
		return EncodeUint8(x), nil
	case uint16:
		return EncodeUint16(x), nil
	case uint32:
		return EncodeUint32(x), nil
	case uint64:
		return EncodeUint64(x), nil
	case Uint128:
		return EncodeUint128(x), nil
	case Uint256:
		return EncodeUint256(x), nil
	}

	if _, ok := v.(compactWrapper); ok {
		return intoTreeCompactWrapper(db, reflect.ValueOf(v))
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Struct:
		return intoTreeStruct(db, rv)
	case reflect.Slice, reflect.Array:
		return intoTreeCompactSlice(db, rv)
	default:
		return bmtree.Value[[32]byte]{}, bmtree.NewError(bmtree.KindInvalidIndex, "IntoTree", fmt.Errorf("unsupported type %T", v))
	}
}

// IntoTreeWithSchema encodes a struct using schema's compact overrides in
// place of its `bm:"compact"` tags, for record types whose layout is
// declared externally (see ParseSchema).
func IntoTreeWithSchema(db bmtree.Backend[[32]byte], v any, schema *RecordSchema) (bmtree.Value[[32]byte], error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Struct {
		return bmtree.Value[[32]byte]{}, bmtree.NewError(bmtree.KindInvalidIndex, "IntoTreeWithSchema", fmt.Errorf("expected struct, got %T", v))
	}
	return intoTreeStructFields(db, rv, schemaFields(rv.Type(), schema))
}

// FromTreeWithSchema is IntoTreeWithSchema's decode counterpart.
func FromTreeWithSchema(db bmtree.ReadBackend[[32]byte], root bmtree.Value[[32]byte], out any, schema *RecordSchema) error {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return bmtree.NewError(bmtree.KindInvalidIndex, "FromTreeWithSchema", fmt.Errorf("out must be a non-nil *struct, got %T", out))
	}
	elem := rv.Elem()
	return fromTreeStructFields(db, root, elem, schemaFields(elem.Type(), schema))
}

func schemaFields(t reflect.Type, schema *RecordSchema) []fieldDescriptor {
	names := make([]string, len(describeRecord(t).fields))
	for i, f := range describeRecord(t).fields {
		names[i] = f.name
	}
	return describeRecordFromSchema(describeRecord(t).fields, names, schema)
}

func intoTreeStruct(db bmtree.Backend[[32]byte], rv reflect.Value) (bmtree.Value[[32]byte], error) {
	return intoTreeStructFields(db, rv, describeRecord(rv.Type()).fields)
}

func intoTreeStructFields(db bmtree.Backend[[32]byte], rv reflect.Value, fields []fieldDescriptor) (bmtree.Value[[32]byte], error) {
	values := make([]bmtree.Value[[32]byte], len(fields))
	for i, f := range fields {
		fv := rv.Field(f.index)
		var (
			value bmtree.Value[[32]byte]
			err   error
		)
		if f.compact && (fv.Kind() == reflect.Slice || fv.Kind() == reflect.Array) {
			value, err = intoTreeCompactSlice(db, fv)
		} else {
			value, err = IntoTree(db, fv.Interface())
		}
		if err != nil {
			return bmtree.Value[[32]byte]{}, err
		}
		values[i] = value
	}
	return vectorTree(db, values)
}

// intoTreeCompactSlice implements spec §4.5's LengthMixed composite root
// (inner_root, length) for a variable-length field: the opt-in `compact`
// path, and the only way a slice-typed field is encodable at all (a plain
// vector-tree over a slice's current elements cannot recover its length on
// decode without an external source of truth).
func intoTreeCompactSlice(db bmtree.Backend[[32]byte], rv reflect.Value) (bmtree.Value[[32]byte], error) {
	n := rv.Len()
	elems := make([]bmtree.Value[[32]byte], n)
	for i := 0; i < n; i++ {
		v, err := IntoTree(db, rv.Index(i).Interface())
		if err != nil {
			return bmtree.Value[[32]byte]{}, err
		}
		elems[i] = v
	}
	innerRoot, err := vectorTree(db, elems)
	if err != nil {
		return bmtree.Value[[32]byte]{}, err
	}
	lengthValue := EncodeUint64(uint64(n))

	c := db.Construct()
	key := bmtree.IntermediateOf(c, innerRoot, lengthValue)
	if err := db.Insert(key, bmtree.Pair[[32]byte]{Left: innerRoot, Right: lengthValue}); err != nil {
		return bmtree.Value[[32]byte]{}, bmtree.WrapBackendError("intoTreeCompactSlice", err)
	}
	return bmtree.Intermediate[[32]byte](key), nil
}

// FromTree decodes root into *out, which must point to one of the
// supported scalar types, a Compact[T]/CompactRef[T] wrapper, or a struct
// whose exported fields are themselves FromTree-able.
func FromTree(db bmtree.ReadBackend[[32]byte], root bmtree.Value[[32]byte], out any) error {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return bmtree.NewError(bmtree.KindInvalidIndex, "FromTree", fmt.Errorf("out must be a non-nil pointer, got %T", out))
	}
	elem := rv.Elem()

	if _, ok := elem.Interface().(compactWrapper); ok {
		return fromTreeCompactWrapper(db, root, elem)
	}

	switch elem.Interface().(type) {
	case bool:
		v, err := DecodeBool(root)
		if err != nil {
			return err
		}
		elem.SetBool(v)
		return nil
	case uint8:
		v, err := DecodeUint8(root)
		if err != nil {
			return err
		}
		elem.SetUint(uint64(v))
		return nil
	case uint16:
		v, err := DecodeUint16(root)
		if err != nil {
			return err
		}
		elem.SetUint(uint64(v))
		return nil
	case uint32:
		v, err := DecodeUint32(root)
		if err != nil {
			return err
		}
		elem.SetUint(uint64(v))
		return nil
	case uint64:
		v, err := DecodeUint64(root)
		if err != nil {
			return err
		}
		elem.SetUint(v)
		return nil
	case Uint128:
		v, err := DecodeUint128(root)
		if err != nil {
			return err
		}
		elem.Set(reflect.ValueOf(v))
		return nil
	case Uint256:
		v, err := DecodeUint256(root)
		if err != nil {
			return err
		}
		elem.Set(reflect.ValueOf(v))
		return nil
	}

	if elem.Kind() == reflect.Struct {
		return fromTreeStruct(db, root, elem)
	}
	return bmtree.NewError(bmtree.KindInvalidIndex, "FromTree", fmt.Errorf("unsupported type %s", elem.Type()))
}

func fromTreeStruct(db bmtree.ReadBackend[[32]byte], root bmtree.Value[[32]byte], elem reflect.Value) error {
	return fromTreeStructFields(db, root, elem, describeRecord(elem.Type()).fields)
}

func fromTreeStructFields(db bmtree.ReadBackend[[32]byte], root bmtree.Value[[32]byte], elem reflect.Value, fields []fieldDescriptor) error {
	for i, f := range fields {
		fieldValue, err := vectorGet(db, root, len(fields), i)
		if err != nil {
			return err
		}
		fv := elem.Field(f.index)

		if f.compact && (fv.Kind() == reflect.Slice) {
			if err := fromTreeCompactSlice(db, fieldValue, fv); err != nil {
				return err
			}
			continue
		}

		target := reflect.New(fv.Type())
		if err := FromTree(db, fieldValue, target.Interface()); err != nil {
			return err
		}
		fv.Set(target.Elem())
	}
	return nil
}

func fromTreeCompactSlice(db bmtree.ReadBackend[[32]byte], v bmtree.Value[[32]byte], fv reflect.Value) error {
	key, ok := v.IntermediateKey()
	if !ok {
		return bmtree.NewError(bmtree.KindCorruptedDatabase, "fromTreeCompactSlice", nil)
	}
	pair, err := db.Get(key)
	if err != nil {
		return bmtree.WrapBackendError("fromTreeCompactSlice", err)
	}
	length, err := DecodeUint64(pair.Right)
	if err != nil {
		return err
	}

	elemType := fv.Type().Elem()
	out := reflect.MakeSlice(fv.Type(), int(length), int(length))
	for i := 0; i < int(length); i++ {
		elemValue, err := vectorGet(db, pair.Left, int(length), i)
		if err != nil {
			return err
		}
		target := reflect.New(elemType)
		if err := FromTree(db, elemValue, target.Interface()); err != nil {
			return err
		}
		out.Index(i).Set(target.Elem())
	}
	fv.Set(out)
	return nil
}

// Compact wraps a value T whose field-level encoding should take the
// length-mixed compact path (original crate's bm_le::Compact<T>), for
// callers that want the compact shape on a bare IntoTree/FromTree call
// without declaring a `bm:"compact"`-tagged struct field.
type Compact[T any] struct {
	Value T
}

func (Compact[T]) isCompactWrapper() {}

// CompactRef is Compact's borrowing counterpart in the original crate
// (bm_le::CompactRef<'a, T>, used on the encode side to avoid a copy);
// Go has no borrow checker to motivate the distinction, so CompactRef
// simply wraps a pointer, preserved for symmetry with the source crate's
// two-type split (spec §5 supplemented features).
type CompactRef[T any] struct {
	Value *T
}

func (CompactRef[T]) isCompactWrapper() {}

// compactWrapper marks Compact[T]/CompactRef[T]: IntoTree and FromTree route
// any value satisfying it through the length-mixed compact slice path,
// regardless of struct-field tags (spec §4.5's third IntoTree input shape).
type compactWrapper interface {
	isCompactWrapper()
}

func intoTreeCompactWrapper(db bmtree.Backend[[32]byte], rv reflect.Value) (bmtree.Value[[32]byte], error) {
	fv := rv.FieldByName("Value")
	if fv.Kind() == reflect.Ptr {
		if fv.IsNil() {
			return bmtree.Value[[32]byte]{}, bmtree.NewError(bmtree.KindInvalidIndex, "IntoTree", fmt.Errorf("nil CompactRef"))
		}
		fv = fv.Elem()
	}
	return intoTreeCompactSlice(db, fv)
}

func fromTreeCompactWrapper(db bmtree.ReadBackend[[32]byte], root bmtree.Value[[32]byte], elem reflect.Value) error {
	fv := elem.FieldByName("Value")
	if fv.Kind() == reflect.Ptr {
		target := reflect.New(fv.Type().Elem())
		if err := fromTreeCompactSlice(db, root, target.Elem()); err != nil {
			return err
		}
		fv.Set(target)
		return nil
	}
	return fromTreeCompactSlice(db, root, fv)
}
