package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
)

var ErrPageOutOfRange = errors.New("page out of range")

type DBFile interface {
	io.Seeker
	io.ReaderAt
	io.WriterAt
	io.Closer
}

type syncer interface {
	Sync() error
}

// DiskManager maps page IDs to offsets of a flat file of PageSize blocks.
// It does no caching of its own, every call goes straight to the file.
type DiskManager struct {
	file DBFile
}

func NewDiskManager(file DBFile) *DiskManager {
	return &DiskManager{file: file}
}

// OpenDiskManager opens (or creates) the file at path for reading and writing.
func OpenDiskManager(path string) (*DiskManager, error) {
	aFile, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, fmt.Errorf("open db file %s: %w", path, err)
	}
	return NewDiskManager(aFile), nil
}

func (d *DiskManager) ReadPage(id PageID) (*Page, error) {
	fileSize, err := d.size()
	if err != nil {
		return nil, err
	}

	offset := int64(id) * PageSize
	if offset+PageSize > fileSize {
		return nil, fmt.Errorf("read page %d: %w (file holds %d pages)", id, ErrPageOutOfRange, fileSize/PageSize)
	}

	aPage := NewPage(id)
	n, err := d.file.ReadAt(aPage.Data[:], offset)
	if err != nil && !(errors.Is(err, io.EOF) && n == PageSize) {
		return nil, fmt.Errorf("read page %d: %w", id, err)
	}
	return aPage, nil
}

// WritePage writes the whole page at its offset, growing the file if needed.
func (d *DiskManager) WritePage(aPage *Page) error {
	offset := int64(aPage.ID) * PageSize
	if _, err := d.file.WriteAt(aPage.Data[:], offset); err != nil {
		return fmt.Errorf("write page %d: %w", aPage.ID, err)
	}
	return nil
}

func (d *DiskManager) NumPages() (uint32, error) {
	fileSize, err := d.size()
	if err != nil {
		return 0, err
	}
	return uint32(fileSize / PageSize), nil
}

func (d *DiskManager) Sync() error {
	if s, ok := d.file.(syncer); ok {
		return s.Sync()
	}
	return nil
}

func (d *DiskManager) Close() error {
	return d.file.Close()
}

func (d *DiskManager) size() (int64, error) {
	fileSize, err := d.file.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, fmt.Errorf("get db file size: %w", err)
	}
	return fileSize, nil
}
