package storage

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

var (
	ErrTypeMismatch = errors.New("field type mismatch")
	ErrFieldNotSet  = errors.New("field not set")
	ErrShortBuffer  = errors.New("tuple data too short")
)

const lengthPrefixSize = 4

type fieldValue struct {
	Value any
	Valid bool
}

// Tuple is an ordered list of values bound to a schema.
type Tuple struct {
	desc   *TupleDesc
	values []fieldValue
}

func NewTuple(desc *TupleDesc) *Tuple {
	return &Tuple{
		desc:   desc,
		values: make([]fieldValue, desc.NumFields()),
	}
}

// NewTupleWithValues sets every field positionally, len(values) must match the schema.
func NewTupleWithValues(desc *TupleDesc, values ...any) (*Tuple, error) {
	if len(values) != desc.NumFields() {
		return nil, fmt.Errorf("%w: got %d values for %d fields", ErrTypeMismatch, len(values), desc.NumFields())
	}
	aTuple := NewTuple(desc)
	for i, v := range values {
		if err := aTuple.SetField(i, v); err != nil {
			return nil, err
		}
	}
	return aTuple, nil
}

func (t *Tuple) Desc() *TupleDesc {
	return t.desc
}

// SetField stores v at position i. Int32 fields accept int32 or an int
// that fits into 32 bits, string fields accept valid UTF-8 strings.
func (t *Tuple) SetField(i int, v any) error {
	aType, err := t.desc.Type(i)
	if err != nil {
		return err
	}

	switch aType {
	case Int32:
		switch n := v.(type) {
		case int32:
			t.values[i] = fieldValue{Value: n, Valid: true}
			return nil
		case int:
			if n < math.MinInt32 || n > math.MaxInt32 {
				return fmt.Errorf("%w: field %d value %d overflows int32", ErrTypeMismatch, i, n)
			}
			t.values[i] = fieldValue{Value: int32(n), Valid: true}
			return nil
		}
	case UTF8String:
		if s, ok := v.(string); ok {
			if !utf8.ValidString(s) {
				return fmt.Errorf("%w: field %d is not valid UTF-8", ErrTypeMismatch, i)
			}
			t.values[i] = fieldValue{Value: s, Valid: true}
			return nil
		}
	}

	return fmt.Errorf("%w: field %d expects %s, got %T", ErrTypeMismatch, i, aType, v)
}

func (t *Tuple) Field(i int) (any, error) {
	if _, err := t.desc.Field(i); err != nil {
		return nil, err
	}
	if !t.values[i].Valid {
		return nil, fmt.Errorf("%w: %d", ErrFieldNotSet, i)
	}
	return t.values[i].Value, nil
}

func (t *Tuple) Int32Field(i int) (int32, error) {
	v, err := t.Field(i)
	if err != nil {
		return 0, err
	}
	n, ok := v.(int32)
	if !ok {
		return 0, fmt.Errorf("%w: field %d is not %s", ErrTypeMismatch, i, Int32)
	}
	return n, nil
}

func (t *Tuple) StringField(i int) (string, error) {
	v, err := t.Field(i)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: field %d is not %s", ErrTypeMismatch, i, UTF8String)
	}
	return s, nil
}

// Values returns the field values in schema order, unset fields are nil.
func (t *Tuple) Values() []any {
	values := make([]any, len(t.values))
	for i, v := range t.values {
		if v.Valid {
			values[i] = v.Value
		}
	}
	return values
}

// Size returns the length of the serialized tuple.
func (t *Tuple) Size() (int, error) {
	size := 0
	for i := range t.values {
		if !t.values[i].Valid {
			return 0, fmt.Errorf("%w: %d", ErrFieldNotSet, i)
		}
		aType, _ := t.desc.Type(i)
		switch aType {
		case Int32:
			size += 4
		case UTF8String:
			size += lengthPrefixSize + len(t.values[i].Value.(string))
		}
	}
	return size, nil
}

// Marshal encodes the fields in schema order: int32 as 4 bytes,
// strings as a 4 byte length prefix followed by the UTF-8 bytes.
func (t *Tuple) Marshal() ([]byte, error) {
	if len(t.values) != t.desc.NumFields() {
		return nil, fmt.Errorf("%w: tuple has %d values for %d fields", ErrTypeMismatch, len(t.values), t.desc.NumFields())
	}

	size, err := t.Size()
	if err != nil {
		return nil, err
	}

	buf := make([]byte, size)
	i := 0
	for idx, v := range t.values {
		aType, _ := t.desc.Type(idx)
		switch aType {
		case Int32:
			n, ok := v.Value.(int32)
			if !ok {
				return nil, fmt.Errorf("%w: field %d holds %T", ErrTypeMismatch, idx, v.Value)
			}
			marshalInt32(buf, n, i)
			i += 4
		case UTF8String:
			s, ok := v.Value.(string)
			if !ok {
				return nil, fmt.Errorf("%w: field %d holds %T", ErrTypeMismatch, idx, v.Value)
			}
			marshalUint32(buf, uint32(len(s)), i)
			i += lengthPrefixSize
			copy(buf[i:], s)
			i += len(s)
		default:
			return nil, fmt.Errorf("%w: field %d has unsupported type %s", ErrTypeMismatch, idx, aType)
		}
	}

	return buf, nil
}

// UnmarshalTuple decodes buf against desc. It trusts the lengths encoded in
// buf and only fails when the buffer ends before the schema does.
func UnmarshalTuple(desc *TupleDesc, buf []byte) (*Tuple, error) {
	aTuple := NewTuple(desc)

	i := 0
	for idx := 0; idx < desc.NumFields(); idx++ {
		aType, _ := desc.Type(idx)
		switch aType {
		case Int32:
			if len(buf)-i < 4 {
				return nil, fmt.Errorf("%w: field %d needs 4 bytes at offset %d", ErrShortBuffer, idx, i)
			}
			aTuple.values[idx] = fieldValue{Value: unmarshalInt32(buf, i), Valid: true}
			i += 4
		case UTF8String:
			if len(buf)-i < lengthPrefixSize {
				return nil, fmt.Errorf("%w: field %d length prefix at offset %d", ErrShortBuffer, idx, i)
			}
			length := int(unmarshalUint32(buf, i))
			i += lengthPrefixSize
			if length < 0 || len(buf)-i < length {
				return nil, fmt.Errorf("%w: field %d needs %d bytes at offset %d", ErrShortBuffer, idx, length, i)
			}
			aTuple.values[idx] = fieldValue{Value: string(buf[i : i+length]), Valid: true}
			i += length
		default:
			return nil, fmt.Errorf("%w: field %d has unsupported type %s", ErrTypeMismatch, idx, aType)
		}
	}

	return aTuple, nil
}

func (t *Tuple) String() string {
	parts := make([]string, 0, len(t.values))
	for i, v := range t.values {
		aField, _ := t.desc.Field(i)
		value := "<unset>"
		if v.Valid {
			value = fmt.Sprint(v.Value)
		}
		if aField.Name != "" {
			parts = append(parts, fmt.Sprintf("%s: %s", aField.Name, value))
		} else {
			parts = append(parts, value)
		}
	}
	return "[" + strings.Join(parts, " | ") + "]"
}
