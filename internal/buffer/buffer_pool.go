package buffer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/RichardKnop/aerodb/internal/storage"
	"github.com/RichardKnop/aerodb/pkg/lrucache"
)

// DefaultCapacity is used when a pool is created with capacity <= 0.
const DefaultCapacity = 50

var (
	ErrNoEvictablePage = errors.New("no evictable page in buffer pool")
	ErrPageNotCached   = errors.New("page not cached")
)

type DiskManager interface {
	ReadPage(storage.PageID) (*storage.Page, error)
	WritePage(*storage.Page) error
	NumPages() (uint32, error)
}

type frame struct {
	page  *storage.Page
	dirty bool
	pins  int
}

type Stats struct {
	Capacity   int
	Cached     int
	Dirty      int
	Hits       uint64
	Misses     uint64
	Evictions  uint64
	WriteBacks uint64
}

// BufferPool caches pages of a single file. Higher layers read and modify
// pages only through the pool. Pages are evicted least recently used first,
// dirty pages are written back before they leave the cache.
type BufferPool struct {
	logger   *zap.Logger
	disk     DiskManager
	frames   *lrucache.Cache[storage.PageID, *frame]
	capacity int
	stats    Stats
	mu       sync.Mutex
}

func New(logger *zap.Logger, disk DiskManager, capacity int) *BufferPool {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &BufferPool{
		logger:   logger,
		disk:     disk,
		frames:   lrucache.New[storage.PageID, *frame](capacity),
		capacity: capacity,
	}
}

func (bp *BufferPool) Capacity() int {
	return bp.capacity
}

// Get returns the cached page, loading it from disk on a miss.
// The returned page may be evicted by any later miss.
func (bp *BufferPool) Get(ctx context.Context, pageID storage.PageID) (*storage.Page, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	aFrame, err := bp.get(pageID)
	if err != nil {
		return nil, err
	}
	return aFrame.page, nil
}

// Fetch works like Get but pins the page so it cannot be evicted until Release.
func (bp *BufferPool) Fetch(ctx context.Context, pageID storage.PageID) (*storage.Page, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if aFrame, ok := bp.frames.GetAndPromote(pageID); ok {
		bp.stats.Hits += 1
		aFrame.pins += 1
		return aFrame.page, nil
	}

	aFrame, err := bp.load(pageID, 1)
	if err != nil {
		return nil, err
	}
	return aFrame.page, nil
}

// Release unpins a page fetched with Fetch.
func (bp *BufferPool) Release(pageID storage.PageID) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	aFrame, ok := bp.frames.Get(pageID)
	if !ok || aFrame.pins == 0 {
		bp.logger.Warn("release of page that is not pinned", zap.Uint32("page", uint32(pageID)))
		return
	}
	aFrame.pins -= 1
}

// MarkDirty flags a cached page for write back, it is a no-op for pages not in the cache.
func (bp *BufferPool) MarkDirty(pageID storage.PageID) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	aFrame, ok := bp.frames.Get(pageID)
	if !ok {
		bp.logger.Debug("mark dirty of page not in cache", zap.Uint32("page", uint32(pageID)))
		return
	}
	aFrame.dirty = true
}

func (bp *BufferPool) IsDirty(pageID storage.PageID) bool {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	aFrame, ok := bp.frames.Get(pageID)
	return ok && aFrame.dirty
}

func (bp *BufferPool) Contains(pageID storage.PageID) bool {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	_, ok := bp.frames.Get(pageID)
	return ok
}

// AllocatePage writes a blank page right after the current end of the file
// and returns its ID. The new page is not cached until the first Get.
func (bp *BufferPool) AllocatePage(ctx context.Context) (storage.PageID, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	numPages, err := bp.disk.NumPages()
	if err != nil {
		return 0, fmt.Errorf("allocate page: %w", err)
	}

	pageID := storage.PageID(numPages)
	if err := bp.disk.WritePage(storage.NewPage(pageID)); err != nil {
		return 0, fmt.Errorf("allocate page: %w", err)
	}

	bp.logger.Debug("allocated page", zap.Uint32("page", uint32(pageID)))

	return pageID, nil
}

// FlushPage writes a dirty page back to disk and keeps it cached as clean.
func (bp *BufferPool) FlushPage(ctx context.Context, pageID storage.PageID) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	aFrame, ok := bp.frames.Get(pageID)
	if !ok {
		return fmt.Errorf("flush page %d: %w", pageID, ErrPageNotCached)
	}
	return bp.writeBack(aFrame)
}

// FlushAll writes every dirty page to disk and empties the cache. Pages that
// fail to write stay cached and dirty, pinned pages stay cached as clean.
func (bp *BufferPool) FlushAll(ctx context.Context) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	var err error
	for _, pageID := range bp.frames.Keys() {
		aFrame, ok := bp.frames.Get(pageID)
		if !ok {
			continue
		}
		if writeErr := bp.writeBack(aFrame); writeErr != nil {
			err = multierr.Append(err, writeErr)
			continue
		}
		if aFrame.pins > 0 {
			continue
		}
		bp.frames.Remove(pageID)
	}

	bp.logger.Debug("flushed buffer pool", zap.Int("remaining", bp.frames.Len()))

	return err
}

func (bp *BufferPool) Len() int {
	return bp.frames.Len()
}

// CachedPageIDs lists cached pages from most to least recently used.
func (bp *BufferPool) CachedPageIDs() []storage.PageID {
	return bp.frames.Keys()
}

func (bp *BufferPool) Stats() Stats {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	stats := bp.stats
	stats.Capacity = bp.capacity
	stats.Cached = bp.frames.Len()
	for _, pageID := range bp.frames.Keys() {
		if aFrame, ok := bp.frames.Get(pageID); ok && aFrame.dirty {
			stats.Dirty += 1
		}
	}
	return stats
}

// get must be called with the lock held.
func (bp *BufferPool) get(pageID storage.PageID) (*frame, error) {
	if aFrame, ok := bp.frames.GetAndPromote(pageID); ok {
		bp.stats.Hits += 1
		return aFrame, nil
	}
	return bp.load(pageID, 0)
}

// load reads a page into the cache and evicts to get back under capacity.
// Must be called with the lock held.
func (bp *BufferPool) load(pageID storage.PageID, pins int) (*frame, error) {
	bp.stats.Misses += 1

	aPage, err := bp.disk.ReadPage(pageID)
	if err != nil {
		return nil, fmt.Errorf("load page %d: %w", pageID, err)
	}

	aFrame := &frame{page: aPage, pins: pins}
	bp.frames.Put(pageID, aFrame)

	bp.logger.Debug("loaded page", zap.Uint32("page", uint32(pageID)))

	if err := bp.evictIfNeeded(pageID); err != nil {
		bp.frames.Remove(pageID)
		return nil, err
	}

	return aFrame, nil
}

// evictIfNeeded removes least recently used unpinned pages until the cache
// fits its capacity again. The page being loaded is never chosen.
func (bp *BufferPool) evictIfNeeded(loading storage.PageID) error {
	for bp.frames.Len() > bp.capacity {
		victimID, victim, ok := bp.frames.Victim(func(pageID storage.PageID, aFrame *frame) bool {
			return pageID != loading && aFrame.pins == 0
		})
		if !ok {
			return fmt.Errorf("load page %d: %w (capacity %d)", loading, ErrNoEvictablePage, bp.capacity)
		}

		if err := bp.writeBack(victim); err != nil {
			return fmt.Errorf("evict page %d: %w", victimID, err)
		}

		bp.frames.Remove(victimID)
		bp.stats.Evictions += 1

		bp.logger.Debug("evicted page", zap.Uint32("page", uint32(victimID)))
	}
	return nil
}

func (bp *BufferPool) writeBack(aFrame *frame) error {
	if !aFrame.dirty {
		return nil
	}
	if err := bp.disk.WritePage(aFrame.page); err != nil {
		return err
	}
	aFrame.dirty = false
	bp.stats.WriteBacks += 1

	bp.logger.Debug("wrote back page", zap.Uint32("page", uint32(aFrame.page.ID)))

	return nil
}
