package index

import (
	"fmt"

	"github.com/RichardKnop/aerodb/internal/storage"
)

type LeafEntry struct {
	Key      int32
	RecordID storage.RecordID
}

// LeafPage is a view over a page holding sorted (key, RecordID) entries.
type LeafPage struct {
	page *storage.Page
}

// NewLeafPage formats aPage as an empty leaf.
func NewLeafPage(aPage *storage.Page, capacity uint32) *LeafPage {
	formatHeader(aPage, LeafPageType, capacity)
	return &LeafPage{page: aPage}
}

// LeafPageFrom wraps an already formatted leaf page.
func LeafPageFrom(aPage *storage.Page) (*LeafPage, error) {
	if err := checkHeader(aPage, LeafPageType, DefaultLeafCapacity); err != nil {
		return nil, err
	}
	return &LeafPage{page: aPage}, nil
}

func (l *LeafPage) PageID() storage.PageID {
	return l.page.ID
}

func (l *LeafPage) NumKeys() uint32 {
	return numKeys(l.page)
}

func (l *LeafPage) MaxKeys() uint32 {
	return maxKeys(l.page)
}

func (l *LeafPage) IsFull() bool {
	return l.NumKeys() >= l.MaxKeys()
}

func (l *LeafPage) KeyAt(i uint32) int32 {
	return l.page.Int32(leafEntryOffset(i))
}

func (l *LeafPage) ValueAt(i uint32) storage.RecordID {
	offset := leafEntryOffset(i)
	return storage.RecordID{
		PageID: storage.PageID(l.page.Uint32(offset + 4)),
		Slot:   l.page.Uint32(offset + 8),
	}
}

func (l *LeafPage) Entries() []LeafEntry {
	entries := make([]LeafEntry, 0, l.NumKeys())
	for i := uint32(0); i < l.NumKeys(); i++ {
		entries = append(entries, LeafEntry{Key: l.KeyAt(i), RecordID: l.ValueAt(i)})
	}
	return entries
}

func (l *LeafPage) Keys() []int32 {
	keys := make([]int32, 0, l.NumKeys())
	for i := uint32(0); i < l.NumKeys(); i++ {
		keys = append(keys, l.KeyAt(i))
	}
	return keys
}

// Lookup scans the leaf for an exact key match.
func (l *LeafPage) Lookup(key int32) (storage.RecordID, bool) {
	idx, found := l.search(key)
	if !found {
		return storage.RecordID{}, false
	}
	return l.ValueAt(idx), true
}

// Insert places the entry in sorted position, shifting greater keys right.
// An existing key has its RecordID replaced, which never needs space.
func (l *LeafPage) Insert(key int32, rid storage.RecordID) (bool, error) {
	idx, found := l.search(key)
	if found {
		l.setEntry(idx, key, rid)
		return true, nil
	}
	if l.IsFull() {
		return false, fmt.Errorf("leaf page %d: %w", l.page.ID, ErrPageFull)
	}

	n := l.NumKeys()
	if idx < n {
		from := leafEntryOffset(idx)
		to := leafEntryOffset(n)
		copy(l.page.Data[from+LeafEntrySize:to+LeafEntrySize], l.page.Data[from:to])
	}
	l.setEntry(idx, key, rid)
	l.page.SetUint32(keyCountOffset, n+1)

	return false, nil
}

// MoveHalf moves the upper half of the entries into the empty leaf right,
// the first ceil(n/2) entries stay. It returns the split key, the lowest key of right.
func (l *LeafPage) MoveHalf(right *LeafPage) int32 {
	var (
		n    = l.NumKeys()
		keep = (n + 1) / 2
	)
	for i := keep; i < n; i++ {
		right.setEntry(i-keep, l.KeyAt(i), l.ValueAt(i))
	}
	right.page.SetUint32(keyCountOffset, n-keep)

	clear(l.page.Data[leafEntryOffset(keep):leafEntryOffset(n)])
	l.page.SetUint32(keyCountOffset, keep)

	return right.KeyAt(0)
}

// search returns the position of key or the position it should be inserted at.
func (l *LeafPage) search(key int32) (uint32, bool) {
	n := l.NumKeys()
	for i := uint32(0); i < n; i++ {
		current := l.KeyAt(i)
		if current == key {
			return i, true
		}
		if current > key {
			return i, false
		}
	}
	return n, false
}

func (l *LeafPage) setEntry(i uint32, key int32, rid storage.RecordID) {
	offset := leafEntryOffset(i)
	l.page.SetInt32(offset, key)
	l.page.SetUint32(offset+4, uint32(rid.PageID))
	l.page.SetUint32(offset+8, rid.Slot)
}

func leafEntryOffset(i uint32) int {
	return HeaderSize + int(i)*LeafEntrySize
}
