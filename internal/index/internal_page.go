package index

import (
	"fmt"

	"github.com/RichardKnop/aerodb/internal/storage"
)

// Separator is a routing key together with the child covering keys >= Key.
type Separator struct {
	Key   int32
	Child storage.PageID
}

// InternalPage is a view over a routing page with n keys and n+1 children.
// Entry 0 holds only the leftmost child, entries 1..n pair key i with the
// child covering [key i, key i+1).
type InternalPage struct {
	page *storage.Page
}

// NewInternalPage formats aPage as an internal page with no keys and a single
// leftmost child.
func NewInternalPage(aPage *storage.Page, capacity uint32, leftmost storage.PageID) *InternalPage {
	formatHeader(aPage, InternalPageType, capacity)
	anInternal := &InternalPage{page: aPage}
	anInternal.SetChild(0, leftmost)
	return anInternal
}

// InternalPageFrom wraps an already formatted internal page.
func InternalPageFrom(aPage *storage.Page) (*InternalPage, error) {
	if err := checkHeader(aPage, InternalPageType, DefaultInternalCapacity); err != nil {
		return nil, err
	}
	return &InternalPage{page: aPage}, nil
}

func (p *InternalPage) PageID() storage.PageID {
	return p.page.ID
}

func (p *InternalPage) NumKeys() uint32 {
	return numKeys(p.page)
}

func (p *InternalPage) MaxKeys() uint32 {
	return maxKeys(p.page)
}

func (p *InternalPage) IsFull() bool {
	return p.NumKeys() >= p.MaxKeys()
}

// KeyAt returns key i, valid for 1 <= i <= NumKeys.
func (p *InternalPage) KeyAt(i uint32) int32 {
	return p.page.Int32(internalEntryOffset(i))
}

// ChildAt returns child i, valid for 0 <= i <= NumKeys.
func (p *InternalPage) ChildAt(i uint32) storage.PageID {
	return storage.PageID(p.page.Uint32(internalEntryOffset(i) + 4))
}

func (p *InternalPage) SetChild(i uint32, child storage.PageID) {
	p.page.SetUint32(internalEntryOffset(i)+4, uint32(child))
}

func (p *InternalPage) Keys() []int32 {
	keys := make([]int32, 0, p.NumKeys())
	for i := uint32(1); i <= p.NumKeys(); i++ {
		keys = append(keys, p.KeyAt(i))
	}
	return keys
}

func (p *InternalPage) Children() []storage.PageID {
	children := make([]storage.PageID, 0, p.NumKeys()+1)
	for i := uint32(0); i <= p.NumKeys(); i++ {
		children = append(children, p.ChildAt(i))
	}
	return children
}

// Separators returns entries 1..n.
func (p *InternalPage) Separators() []Separator {
	separators := make([]Separator, 0, p.NumKeys())
	for i := uint32(1); i <= p.NumKeys(); i++ {
		separators = append(separators, Separator{Key: p.KeyAt(i), Child: p.ChildAt(i)})
	}
	return separators
}

// Lookup picks the child whose range contains key, scanning from the highest
// key down and falling back to the leftmost child.
func (p *InternalPage) Lookup(key int32) storage.PageID {
	for i := p.NumKeys(); i >= 1; i-- {
		if p.KeyAt(i) <= key {
			return p.ChildAt(i)
		}
	}
	return p.ChildAt(0)
}

// Insert adds a separator in sorted position.
func (p *InternalPage) Insert(key int32, child storage.PageID) error {
	if p.IsFull() {
		return fmt.Errorf("internal page %d: %w", p.page.ID, ErrPageFull)
	}

	n := p.NumKeys()
	idx := n + 1
	for i := uint32(1); i <= n; i++ {
		if p.KeyAt(i) > key {
			idx = i
			break
		}
	}
	if idx <= n {
		from := internalEntryOffset(idx)
		to := internalEntryOffset(n + 1)
		copy(p.page.Data[from+InternalEntrySize:to+InternalEntrySize], p.page.Data[from:to])
	}
	p.setEntry(idx, key, child)
	p.page.SetUint32(keyCountOffset, n+1)

	return nil
}

// reset rewrites the page to hold leftmost followed by the separators.
func (p *InternalPage) reset(leftmost storage.PageID, separators []Separator) {
	capacity := p.MaxKeys()
	formatHeader(p.page, InternalPageType, capacity)
	p.SetChild(0, leftmost)
	for i, aSeparator := range separators {
		p.setEntry(uint32(i+1), aSeparator.Key, aSeparator.Child)
	}
	p.page.SetUint32(keyCountOffset, uint32(len(separators)))
}

func (p *InternalPage) setEntry(i uint32, key int32, child storage.PageID) {
	offset := internalEntryOffset(i)
	p.page.SetInt32(offset, key)
	p.page.SetUint32(offset+4, uint32(child))
}

func internalEntryOffset(i uint32) int {
	return HeaderSize + int(i)*InternalEntrySize
}
