package storage

import (
	"errors"
	"fmt"
	"strings"
)

type Type int

const (
	Int32 Type = iota + 1
	UTF8String
)

func (t Type) String() string {
	switch t {
	case Int32:
		return "INT32"
	case UTF8String:
		return "UTF8_STRING"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// ParseType accepts the names printed by Type.String plus the short forms int and string.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "int32", "int":
		return Int32, nil
	case "utf8_string", "string", "str":
		return UTF8String, nil
	default:
		return 0, fmt.Errorf("unknown field type %q", s)
	}
}

var ErrFieldIndex = errors.New("field index out of range")

type Field struct {
	Type Type
	Name string
}

// TupleDesc is the ordered schema of one table.
type TupleDesc struct {
	fields []Field
}

func NewTupleDesc(fields ...Field) *TupleDesc {
	td := &TupleDesc{fields: make([]Field, 0, len(fields))}
	td.fields = append(td.fields, fields...)
	return td
}

// AddField appends a field and returns the schema so calls can be chained.
func (td *TupleDesc) AddField(aType Type, name string) *TupleDesc {
	td.fields = append(td.fields, Field{Type: aType, Name: name})
	return td
}

func (td *TupleDesc) NumFields() int {
	return len(td.fields)
}

func (td *TupleDesc) Field(i int) (Field, error) {
	if i < 0 || i >= len(td.fields) {
		return Field{}, fmt.Errorf("%w: %d (schema has %d fields)", ErrFieldIndex, i, len(td.fields))
	}
	return td.fields[i], nil
}

func (td *TupleDesc) Type(i int) (Type, error) {
	aField, err := td.Field(i)
	if err != nil {
		return 0, err
	}
	return aField.Type, nil
}

// FieldIndex returns the position of the named field or -1.
func (td *TupleDesc) FieldIndex(name string) int {
	for i, aField := range td.fields {
		if aField.Name == name {
			return i
		}
	}
	return -1
}

func (td *TupleDesc) Fields() []Field {
	fields := make([]Field, len(td.fields))
	copy(fields, td.fields)
	return fields
}

// Validate rejects empty schemas, unknown types and duplicate names.
func (td *TupleDesc) Validate() error {
	if len(td.fields) == 0 {
		return fmt.Errorf("schema has no fields")
	}
	seen := make(map[string]struct{}, len(td.fields))
	for i, aField := range td.fields {
		if aField.Type != Int32 && aField.Type != UTF8String {
			return fmt.Errorf("field %d (%s): unsupported type %s", i, aField.Name, aField.Type)
		}
		if aField.Name == "" {
			continue
		}
		if _, ok := seen[aField.Name]; ok {
			return fmt.Errorf("duplicate field name %q", aField.Name)
		}
		seen[aField.Name] = struct{}{}
	}
	return nil
}

func (td *TupleDesc) String() string {
	parts := make([]string, 0, len(td.fields))
	for _, aField := range td.fields {
		parts = append(parts, fmt.Sprintf("%s %s", aField.Name, aField.Type))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
