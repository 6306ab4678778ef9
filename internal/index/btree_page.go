package index

import (
	"errors"
	"fmt"

	"github.com/RichardKnop/aerodb/internal/storage"
)

/*
Every index page starts with the same 12 byte header:

	+-----------+-----------+--------------+---------------------------+
	| type (4)  | keys (4)  | capacity (4) | entries ...               |
	+-----------+-----------+--------------+---------------------------+

Leaf entries are 12 bytes: key, record page ID, record slot.
Internal entries are 8 bytes: key, child page ID. Internal entry 0 only
holds the leftmost child pointer, its key field is ignored.
*/

type PageType uint32

const (
	InternalPageType PageType = 0
	LeafPageType     PageType = 1
)

func (t PageType) String() string {
	switch t {
	case InternalPageType:
		return "INTERNAL"
	case LeafPageType:
		return "LEAF"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint32(t))
	}
}

const (
	pageTypeOffset    = 0
	keyCountOffset    = 4
	maxCapacityOffset = 8

	HeaderSize        = 12
	LeafEntrySize     = 12
	InternalEntrySize = 8

	DefaultLeafCapacity     = (storage.PageSize - HeaderSize) / LeafEntrySize
	DefaultInternalCapacity = (storage.PageSize-HeaderSize)/InternalEntrySize - 1
	MinCapacity             = 3
)

var (
	ErrPageFull        = errors.New("index page is full")
	ErrInvalidPageType = errors.New("invalid index page type")
	ErrCapacity        = errors.New("invalid index page capacity")
)

func pageTypeOf(aPage *storage.Page) PageType {
	return PageType(aPage.Uint32(pageTypeOffset))
}

// isBlank reports whether the page has never been formatted as an index page.
func isBlank(aPage *storage.Page) bool {
	return aPage.IsZero(HeaderSize)
}

func numKeys(aPage *storage.Page) uint32 {
	return aPage.Uint32(keyCountOffset)
}

func maxKeys(aPage *storage.Page) uint32 {
	return aPage.Uint32(maxCapacityOffset)
}

func formatHeader(aPage *storage.Page, pageType PageType, capacity uint32) {
	clear(aPage.Data[:])
	aPage.SetUint32(pageTypeOffset, uint32(pageType))
	aPage.SetUint32(keyCountOffset, 0)
	aPage.SetUint32(maxCapacityOffset, capacity)
}

// checkHeader validates the stored capacity against what fits in a page.
func checkHeader(aPage *storage.Page, pageType PageType, limit uint32) error {
	if actual := pageTypeOf(aPage); actual != pageType {
		return fmt.Errorf("page %d is %s, expected %s: %w", aPage.ID, actual, pageType, ErrInvalidPageType)
	}
	capacity := maxKeys(aPage)
	if capacity < MinCapacity || capacity > limit {
		return fmt.Errorf("page %d capacity %d: %w", aPage.ID, capacity, ErrCapacity)
	}
	if numKeys(aPage) > capacity {
		return fmt.Errorf("page %d holds %d keys, capacity %d: %w", aPage.ID, numKeys(aPage), capacity, storage.ErrCorruptPage)
	}
	return nil
}

func validCapacity(capacity, limit uint32) error {
	if capacity < MinCapacity || capacity > limit {
		return fmt.Errorf("capacity %d must be between %d and %d: %w", capacity, MinCapacity, limit, ErrCapacity)
	}
	return nil
}
