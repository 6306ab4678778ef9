package storage

import (
	"errors"
	"fmt"
)

var (
	ErrPageFull    = errors.New("page is full")
	ErrInvalidSlot = errors.New("invalid slot")
	ErrCorruptPage = errors.New("corrupt page")
)

/*
Heap page layout:

	+--------------------------------------------+
	| tuple count (4) | free space pointer (4)   |
	| slot 0: offset (4), length (4)             |
	| slot 1: offset (4), length (4)             |
	| ...  free space  ...                       |
	|                      tuple 1 | tuple 0     |
	+--------------------------------------------+

Slots grow forward from the header, tuple data grows backward from the end.
*/
const (
	heapCountOffset    = 0
	heapFreePtrOffset  = 4
	HeapPageHeaderSize = 8
	HeapSlotSize       = 8
)

// HeapPage is a slotted record view over a Page. It owns no storage,
// callers must mark the page dirty in the buffer pool after an insert.
type HeapPage struct {
	page *Page
}

// NewHeapPage wraps aPage, formatting it first if it is blank.
// It reports whether the page bytes were changed by formatting.
func NewHeapPage(aPage *Page) (*HeapPage, bool) {
	hp := &HeapPage{page: aPage}
	if hp.NumTuples() == 0 && hp.freeSpacePtr() == 0 {
		hp.setFreeSpacePtr(PageSize)
		return hp, true
	}
	return hp, false
}

func (hp *HeapPage) Page() *Page {
	return hp.page
}

func (hp *HeapPage) NumTuples() uint32 {
	return hp.page.Uint32(heapCountOffset)
}

func (hp *HeapPage) setNumTuples(n uint32) {
	hp.page.SetUint32(heapCountOffset, n)
}

func (hp *HeapPage) freeSpacePtr() uint32 {
	return hp.page.Uint32(heapFreePtrOffset)
}

func (hp *HeapPage) setFreeSpacePtr(offset uint32) {
	hp.page.SetUint32(heapFreePtrOffset, offset)
}

// FreeSpace returns the contiguous bytes between the slot directory and the
// tuple data. A tuple of length L fits if FreeSpace() >= L + HeapSlotSize.
func (hp *HeapPage) FreeSpace() int {
	slotsEnd := HeapPageHeaderSize + int(hp.NumTuples())*HeapSlotSize
	return int(hp.freeSpacePtr()) - slotsEnd
}

// InsertTuple stores the serialized tuple and returns its slot number.
func (hp *HeapPage) InsertTuple(aTuple *Tuple) (uint32, error) {
	data, err := aTuple.Marshal()
	if err != nil {
		return 0, fmt.Errorf("insert tuple: %w", err)
	}
	return hp.InsertRecord(data)
}

// InsertRecord appends raw record bytes. Space is checked before any byte is written.
func (hp *HeapPage) InsertRecord(data []byte) (uint32, error) {
	if err := hp.validateHeader(); err != nil {
		return 0, err
	}

	dataLen := len(data)
	if hp.FreeSpace() < dataLen+HeapSlotSize {
		return 0, fmt.Errorf("%w: page %d needs %d bytes, %d free", ErrPageFull, hp.page.ID, dataLen+HeapSlotSize, hp.FreeSpace())
	}

	writeStart := int(hp.freeSpacePtr()) - dataLen
	hp.page.Write(writeStart, data)
	hp.setFreeSpacePtr(uint32(writeStart))

	slot := hp.NumTuples()
	hp.setSlot(slot, uint32(writeStart), uint32(dataLen))
	hp.setNumTuples(slot + 1)

	return slot, nil
}

func (hp *HeapPage) GetTuple(slot uint32, desc *TupleDesc) (*Tuple, error) {
	data, err := hp.Record(slot)
	if err != nil {
		return nil, err
	}
	aTuple, err := UnmarshalTuple(desc, data)
	if err != nil {
		return nil, fmt.Errorf("page %d slot %d: %w", hp.page.ID, slot, err)
	}
	return aTuple, nil
}

// SlotAt returns the offset and length recorded in a slot entry.
func (hp *HeapPage) SlotAt(slot uint32) (uint32, uint32, error) {
	if slot >= hp.NumTuples() || slotPosition(slot)+HeapSlotSize > PageSize {
		return 0, 0, fmt.Errorf("%w: %d (page %d holds %d tuples)", ErrInvalidSlot, slot, hp.page.ID, hp.NumTuples())
	}
	offset, length := hp.slot(slot)
	return offset, length, nil
}

// Record returns a copy of the raw bytes stored in slot.
func (hp *HeapPage) Record(slot uint32) ([]byte, error) {
	if slot >= hp.NumTuples() {
		return nil, fmt.Errorf("%w: %d (page %d holds %d tuples)", ErrInvalidSlot, slot, hp.page.ID, hp.NumTuples())
	}

	if slotPosition(slot)+HeapSlotSize > PageSize {
		return nil, fmt.Errorf("%w: page %d slot %d is past the end of the page", ErrCorruptPage, hp.page.ID, slot)
	}

	offset, length := hp.slot(slot)
	if int(offset)+int(length) > PageSize || int(offset) < HeapPageHeaderSize {
		return nil, fmt.Errorf("%w: page %d slot %d points at [%d, %d)", ErrCorruptPage, hp.page.ID, slot, offset, offset+length)
	}

	data := make([]byte, length)
	copy(data, hp.page.Bytes(int(offset), int(length)))
	return data, nil
}

// Tuples returns every tuple of the page in slot order.
func (hp *HeapPage) Tuples(desc *TupleDesc) ([]*Tuple, error) {
	tuples := make([]*Tuple, 0, hp.NumTuples())
	for slot := uint32(0); slot < hp.NumTuples(); slot++ {
		aTuple, err := hp.GetTuple(slot, desc)
		if err != nil {
			return nil, err
		}
		tuples = append(tuples, aTuple)
	}
	return tuples, nil
}

func (hp *HeapPage) validateHeader() error {
	slotsEnd := HeapPageHeaderSize + int(hp.NumTuples())*HeapSlotSize
	if freePtr := int(hp.freeSpacePtr()); freePtr < slotsEnd || freePtr > PageSize {
		return fmt.Errorf("%w: page %d free space pointer %d outside [%d, %d]", ErrCorruptPage, hp.page.ID, freePtr, slotsEnd, PageSize)
	}
	return nil
}

func slotPosition(index uint32) int {
	return HeapPageHeaderSize + int(index)*HeapSlotSize
}

func (hp *HeapPage) setSlot(index, offset, length uint32) {
	pos := slotPosition(index)
	hp.page.SetUint32(pos, offset)
	hp.page.SetUint32(pos+4, length)
}

func (hp *HeapPage) slot(index uint32) (uint32, uint32) {
	pos := slotPosition(index)
	return hp.page.Uint32(pos), hp.page.Uint32(pos + 4)
}
