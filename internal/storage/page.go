package storage

import (
	"fmt"
)

const (
	PageSize = 4096 // 4 kilobytes
)

type PageID uint32

// RecordID locates a tuple inside a heap page. It does not own the tuple.
type RecordID struct {
	PageID PageID
	Slot   uint32
}

func (r RecordID) String() string {
	return fmt.Sprintf("(page %d, slot %d)", r.PageID, r.Slot)
}

// Page is a single fixed size block of the backing file. Views such as
// HeapPage or the B+Tree leaf and internal pages borrow its bytes.
type Page struct {
	ID   PageID
	Data [PageSize]byte
}

// NewPage returns a zero filled page.
func NewPage(id PageID) *Page {
	return &Page{ID: id}
}

// NewPageFromBytes copies buf into a new page, buf must be exactly PageSize long.
func NewPageFromBytes(id PageID, buf []byte) (*Page, error) {
	if len(buf) != PageSize {
		return nil, fmt.Errorf("page data must be %d bytes, got %d", PageSize, len(buf))
	}
	aPage := NewPage(id)
	copy(aPage.Data[:], buf)
	return aPage, nil
}

func (p *Page) Uint32(offset int) uint32 {
	p.checkBounds(offset, 4)
	return unmarshalUint32(p.Data[:], offset)
}

func (p *Page) SetUint32(offset int, n uint32) {
	p.checkBounds(offset, 4)
	marshalUint32(p.Data[:], n, offset)
}

func (p *Page) Int32(offset int) int32 {
	return int32(p.Uint32(offset))
}

func (p *Page) SetInt32(offset int, n int32) {
	p.SetUint32(offset, uint32(n))
}

// Bytes returns a slice aliasing length bytes of the page starting at offset.
func (p *Page) Bytes(offset, length int) []byte {
	p.checkBounds(offset, length)
	return p.Data[offset : offset+length]
}

// Write copies buf into the page at offset.
func (p *Page) Write(offset int, buf []byte) {
	p.checkBounds(offset, len(buf))
	copy(p.Data[offset:], buf)
}

// IsZero reports whether the first n bytes of the page are all zero.
func (p *Page) IsZero(n int) bool {
	p.checkBounds(0, n)
	for _, b := range p.Data[:n] {
		if b != 0 {
			return false
		}
	}
	return true
}

func (p *Page) Clone() *Page {
	pageCopy := &Page{ID: p.ID}
	pageCopy.Data = p.Data
	return pageCopy
}

func (p *Page) String() string {
	return fmt.Sprintf("Page{id=%d}", p.ID)
}

func (p *Page) checkBounds(offset, length int) {
	if offset < 0 || length < 0 || offset+length > PageSize {
		panic(fmt.Sprintf("page %d: access [%d, %d) out of bounds", p.ID, offset, offset+length))
	}
}

// All integers are stored big endian.

func marshalUint32(buf []byte, n uint32, i int) []byte {
	buf[i+0] = byte(n >> 24)
	buf[i+1] = byte(n >> 16)
	buf[i+2] = byte(n >> 8)
	buf[i+3] = byte(n >> 0)
	return buf
}

func unmarshalUint32(buf []byte, i int) uint32 {
	return 0 |
		(uint32(buf[i+0]) << 24) |
		(uint32(buf[i+1]) << 16) |
		(uint32(buf[i+2]) << 8) |
		(uint32(buf[i+3]) << 0)
}

func marshalInt32(buf []byte, n int32, i int) []byte {
	return marshalUint32(buf, uint32(n), i)
}

func unmarshalInt32(buf []byte, i int) int32 {
	return int32(unmarshalUint32(buf, i))
}
