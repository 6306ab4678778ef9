package storage

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTuple_Marshal(t *testing.T) {
	t.Parallel()

	t.Run("example record", func(t *testing.T) {
		aTuple, err := NewTupleWithValues(testDesc, int32(1), "Alice", int32(30))
		require.NoError(t, err)

		data, err := aTuple.Marshal()
		require.NoError(t, err)

		// 4 for id, 4+5 for name, 4 for age
		assert.Equal(t, []byte{
			0, 0, 0, 1,
			0, 0, 0, 5, 'A', 'l', 'i', 'c', 'e',
			0, 0, 0, 30,
		}, data)

		actual, err := UnmarshalTuple(testDesc, data)
		require.NoError(t, err)
		assert.Equal(t, aTuple, actual)
		assert.Equal(t, "[id: 1 | name: Alice | age: 30]", actual.String())
	})

	t.Run("round trip random schemas", func(t *testing.T) {
		for range 50 {
			desc := gen.RandomDesc()
			aTuple := gen.TupleFor(desc)

			data, err := aTuple.Marshal()
			require.NoError(t, err)

			size, err := aTuple.Size()
			require.NoError(t, err)
			assert.Len(t, data, size)

			actual, err := UnmarshalTuple(desc, data)
			require.NoError(t, err)
			assert.Equal(t, aTuple.Values(), actual.Values())
		}
	})

	t.Run("multi byte strings", func(t *testing.T) {
		aTuple, err := NewTupleWithValues(testDesc, int32(-7), "Zoë 日本", int32(math.MaxInt32))
		require.NoError(t, err)

		data, err := aTuple.Marshal()
		require.NoError(t, err)

		actual, err := UnmarshalTuple(testDesc, data)
		require.NoError(t, err)
		assert.Equal(t, []any{int32(-7), "Zoë 日本", int32(math.MaxInt32)}, actual.Values())
	})
}

func TestTuple_Errors(t *testing.T) {
	t.Parallel()

	t.Run("unset field", func(t *testing.T) {
		aTuple := NewTuple(testDesc)
		require.NoError(t, aTuple.SetField(0, int32(1)))

		_, err := aTuple.Marshal()
		assert.ErrorIs(t, err, ErrFieldNotSet)

		_, err = aTuple.Field(1)
		assert.ErrorIs(t, err, ErrFieldNotSet)
	})

	t.Run("field index out of range", func(t *testing.T) {
		aTuple := NewTuple(testDesc)
		assert.ErrorIs(t, aTuple.SetField(3, int32(1)), ErrFieldIndex)
		assert.ErrorIs(t, aTuple.SetField(-1, int32(1)), ErrFieldIndex)

		_, err := aTuple.Field(3)
		assert.ErrorIs(t, err, ErrFieldIndex)
	})

	t.Run("type mismatch", func(t *testing.T) {
		aTuple := NewTuple(testDesc)
		assert.ErrorIs(t, aTuple.SetField(0, "one"), ErrTypeMismatch)
		assert.ErrorIs(t, aTuple.SetField(1, int32(1)), ErrTypeMismatch)
		assert.ErrorIs(t, aTuple.SetField(0, int64(1)), ErrTypeMismatch)
		assert.ErrorIs(t, aTuple.SetField(0, math.MaxInt32+1), ErrTypeMismatch)
		assert.ErrorIs(t, aTuple.SetField(1, string([]byte{0xff, 0xfe})), ErrTypeMismatch)

		require.NoError(t, aTuple.SetField(0, 12))
		n, err := aTuple.Int32Field(0)
		require.NoError(t, err)
		assert.Equal(t, int32(12), n)

		_, err = aTuple.StringField(0)
		assert.ErrorIs(t, err, ErrTypeMismatch)
	})

	t.Run("wrong number of values", func(t *testing.T) {
		_, err := NewTupleWithValues(testDesc, int32(1), "Bob")
		assert.ErrorIs(t, err, ErrTypeMismatch)
	})

	t.Run("short buffer", func(t *testing.T) {
		aTuple, err := NewTupleWithValues(testDesc, int32(2), "Bob", int32(25))
		require.NoError(t, err)
		data, err := aTuple.Marshal()
		require.NoError(t, err)

		for _, cut := range []int{0, 3, 6, 10, len(data) - 1} {
			_, err := UnmarshalTuple(testDesc, data[:cut])
			assert.ErrorIs(t, err, ErrShortBuffer, "cut at %d", cut)
		}
	})
}

func TestTupleDesc(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 3, testDesc.NumFields())
	assert.Equal(t, 1, testDesc.FieldIndex("name"))
	assert.Equal(t, -1, testDesc.FieldIndex("email"))
	assert.Equal(t, "[id INT32, name UTF8_STRING, age INT32]", testDesc.String())
	require.NoError(t, testDesc.Validate())

	aType, err := testDesc.Type(2)
	require.NoError(t, err)
	assert.Equal(t, Int32, aType)

	_, err = testDesc.Type(3)
	assert.ErrorIs(t, err, ErrFieldIndex)

	assert.Error(t, NewTupleDesc().Validate())
	assert.Error(t, NewTupleDesc().AddField(Int32, "a").AddField(UTF8String, "a").Validate())
	assert.Error(t, NewTupleDesc(Field{Type: Type(9), Name: "x"}).Validate())

	parsed, err := ParseType("string")
	require.NoError(t, err)
	assert.Equal(t, UTF8String, parsed)
	_, err = ParseType("float")
	assert.Error(t, err)
}
