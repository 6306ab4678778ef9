package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeapPage_Format(t *testing.T) {
	t.Parallel()

	aPage := NewPage(0)
	aHeapPage, formatted := NewHeapPage(aPage)
	assert.True(t, formatted)
	assert.Equal(t, uint32(0), aHeapPage.NumTuples())
	assert.Equal(t, uint32(PageSize), aPage.Uint32(heapFreePtrOffset))
	assert.Equal(t, PageSize-HeapPageHeaderSize, aHeapPage.FreeSpace())

	// wrapping an already formatted page does not touch it
	_, formatted = NewHeapPage(aPage)
	assert.False(t, formatted)
}

func TestHeapPage_InsertAndGet(t *testing.T) {
	t.Parallel()

	aPage := NewPage(0)
	aHeapPage, _ := NewHeapPage(aPage)

	alice, err := NewTupleWithValues(testDesc, int32(1), "Alice", int32(30))
	require.NoError(t, err)
	bob, err := NewTupleWithValues(testDesc, int32(2), "Bob", int32(25))
	require.NoError(t, err)

	slot, err := aHeapPage.InsertTuple(alice)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), slot)

	slot, err = aHeapPage.InsertTuple(bob)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), slot)

	/*
		+----------------------------------------------+
		| 2 | 4064 | [4079, 17] [4064, 15] ... bob alice |
		+----------------------------------------------+
	*/
	assert.Equal(t, uint32(2), aPage.Uint32(heapCountOffset))
	assert.Equal(t, uint32(PageSize-17-15), aPage.Uint32(heapFreePtrOffset))
	assert.Equal(t, uint32(PageSize-17), aPage.Uint32(HeapPageHeaderSize))
	assert.Equal(t, uint32(17), aPage.Uint32(HeapPageHeaderSize+4))
	assert.Equal(t, uint32(PageSize-17-15), aPage.Uint32(HeapPageHeaderSize+HeapSlotSize))
	assert.Equal(t, uint32(15), aPage.Uint32(HeapPageHeaderSize+HeapSlotSize+4))

	actual, err := aHeapPage.GetTuple(0, testDesc)
	require.NoError(t, err)
	assert.Equal(t, []any{int32(1), "Alice", int32(30)}, actual.Values())

	actual, err = aHeapPage.GetTuple(1, testDesc)
	require.NoError(t, err)
	assert.Equal(t, []any{int32(2), "Bob", int32(25)}, actual.Values())

	_, err = aHeapPage.GetTuple(2, testDesc)
	assert.ErrorIs(t, err, ErrInvalidSlot)

	offset, length, err := aHeapPage.SlotAt(1)
	require.NoError(t, err)
	assert.Equal(t, uint32(PageSize-17-15), offset)
	assert.Equal(t, uint32(15), length)

	_, _, err = aHeapPage.SlotAt(2)
	assert.ErrorIs(t, err, ErrInvalidSlot)
}

func TestHeapPage_Ordering(t *testing.T) {
	t.Parallel()

	var (
		aHeapPage, _ = NewHeapPage(NewPage(3))
		tuples       = gen.Tuples(50)
	)

	for i, aTuple := range tuples {
		slot, err := aHeapPage.InsertTuple(aTuple)
		require.NoError(t, err)
		assert.Equal(t, uint32(i), slot)
	}

	for i, aTuple := range tuples {
		actual, err := aHeapPage.GetTuple(uint32(i), testDesc)
		require.NoError(t, err)
		assert.Equal(t, aTuple.Values(), actual.Values())
	}

	all, err := aHeapPage.Tuples(testDesc)
	require.NoError(t, err)
	require.Len(t, all, len(tuples))
	for i := range tuples {
		assert.Equal(t, tuples[i].Values(), all[i].Values())
	}
}

func TestHeapPage_Full(t *testing.T) {
	t.Parallel()

	var (
		aPage        = NewPage(0)
		aHeapPage, _ = NewHeapPage(aPage)
		// 4 + 4+990 + 4 = 1002 bytes per tuple, 1010 with its slot
		name = strings.Repeat("x", 990)
	)

	for i := range 4 {
		aTuple, err := NewTupleWithValues(testDesc, int32(i), name, int32(i))
		require.NoError(t, err)
		_, err = aHeapPage.InsertTuple(aTuple)
		require.NoError(t, err)
	}
	assert.Equal(t, PageSize-HeapPageHeaderSize-4*1010, aHeapPage.FreeSpace())

	before := aPage.Clone()

	aTuple, err := NewTupleWithValues(testDesc, int32(5), name, int32(5))
	require.NoError(t, err)
	_, err = aHeapPage.InsertTuple(aTuple)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPageFull)

	// a failed insert leaves the page untouched
	assert.Equal(t, before.Data, aPage.Data)

	// a smaller tuple still fits in the remaining space
	small, err := NewTupleWithValues(testDesc, int32(6), "tiny", int32(6))
	require.NoError(t, err)
	slot, err := aHeapPage.InsertTuple(small)
	require.NoError(t, err)
	assert.Equal(t, uint32(4), slot)
}

func TestHeapPage_ExactFit(t *testing.T) {
	t.Parallel()

	aHeapPage, _ := NewHeapPage(NewPage(0))

	// fill the page with a single record so that exactly one slot is consumed
	data := make([]byte, PageSize-HeapPageHeaderSize-HeapSlotSize)
	slot, err := aHeapPage.InsertRecord(data)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), slot)
	assert.Equal(t, 0, aHeapPage.FreeSpace())

	_, err = aHeapPage.InsertRecord(nil)
	assert.ErrorIs(t, err, ErrPageFull)
}

func TestHeapPage_Corrupt(t *testing.T) {
	t.Parallel()

	aPage := NewPage(0)
	aHeapPage, _ := NewHeapPage(aPage)
	aTuple := gen.Tuple()
	_, err := aHeapPage.InsertTuple(aTuple)
	require.NoError(t, err)

	// slot points past the end of the page
	aPage.SetUint32(HeapPageHeaderSize, PageSize-2)
	_, err = aHeapPage.GetTuple(0, testDesc)
	assert.ErrorIs(t, err, ErrCorruptPage)

	// free space pointer below the slot directory
	aPage.SetUint32(heapFreePtrOffset, 4)
	_, err = aHeapPage.InsertTuple(aTuple)
	assert.ErrorIs(t, err, ErrCorruptPage)
}
