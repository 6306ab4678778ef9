package database

import (
	"errors"
	"fmt"

	"github.com/RichardKnop/aerodb/internal/storage"
)

/*
Page 0 of the index file records where the tree root currently is:

	+------------+-------------+----------------+
	| "AIDX" (4) | version (4) | root page (4)  |
	+------------+-------------+----------------+
*/

const (
	MetaPageID     storage.PageID = 0
	initialRootID  storage.PageID = 1
	metaMagic                     = "AIDX"
	metaVersion                   = 1
	magicOffset                   = 0
	versionOffset                 = 4
	rootPageOffset                = 8
)

var ErrInvalidMeta = errors.New("invalid index meta page")

func writeMeta(aPage *storage.Page, rootPageID storage.PageID) {
	aPage.Write(magicOffset, []byte(metaMagic))
	aPage.SetUint32(versionOffset, metaVersion)
	aPage.SetUint32(rootPageOffset, uint32(rootPageID))
}

// ReadMeta returns the root page ID recorded in the index meta page.
func ReadMeta(aPage *storage.Page) (storage.PageID, error) {
	if magic := string(aPage.Bytes(magicOffset, len(metaMagic))); magic != metaMagic {
		return 0, fmt.Errorf("magic %q: %w", magic, ErrInvalidMeta)
	}
	if version := aPage.Uint32(versionOffset); version != metaVersion {
		return 0, fmt.Errorf("version %d: %w", version, ErrInvalidMeta)
	}
	rootPageID := storage.PageID(aPage.Uint32(rootPageOffset))
	if rootPageID == MetaPageID {
		return 0, fmt.Errorf("root page %d: %w", rootPageID, ErrInvalidMeta)
	}
	return rootPageID, nil
}
