// Copyright (c) 2025 pk910
// SPDX-License-Identifier: Apache-2.0
// This file is part of the bmtree library.

package encode

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// FieldSchema declares one field of a composite record: its name (matched
// case-sensitively against an exported Go struct field), whether it takes
// the compact/length-mixed path, and an optional maximum length. MaxItems
// is parsed but not applied: the encoder does not bound compact slices by
// it. It is the data-driven stand-in (the encoder still walks the struct by
// reflection) for the original crate's `#[derive(IntoTree, FromTree)]` attributes (spec
// §9 Design Notes: "this may be achieved by ... reflection over a declared
// schema"), grounded on spectests/init.go's embedded-YAML preset loading.
type FieldSchema struct {
	Name     string `yaml:"name"`
	Compact  bool   `yaml:"compact"`
	MaxItems int    `yaml:"maxItems"`
}

// RecordSchema is an ordered declaration of a record type's fields, loaded
// from a YAML document rather than inferred from Go struct tags.
type RecordSchema struct {
	Fields []FieldSchema `yaml:"fields"`
}

// ParseSchema parses a YAML document into a RecordSchema.
func ParseSchema(data []byte) (*RecordSchema, error) {
	var s RecordSchema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("encode: parse schema: %w", err)
	}
	return &s, nil
}

// fieldByName returns the schema entry for name, and whether it was found.
func (s *RecordSchema) fieldByName(name string) (FieldSchema, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSchema{}, false
}

// describeRecordFromSchema applies a declared schema's compact flags over a
// struct's own `bm:"compact"` tags, letting a caller drive the compact
// decision for a record type it does not control the source of (e.g. a
// type vendored from elsewhere). Field order follows the Go struct's own
// field order; the schema only supplies the compact flag per named field.
// Unknown schema field names are ignored; struct fields absent from the
// schema keep the flag from their own `bm:"compact"` tag.
func describeRecordFromSchema(fields []fieldDescriptor, names []string, schema *RecordSchema) []fieldDescriptor {
	out := make([]fieldDescriptor, len(fields))
	copy(out, fields)
	for i, name := range names {
		if f, ok := schema.fieldByName(name); ok {
			out[i].compact = f.Compact
		}
	}
	return out
}
