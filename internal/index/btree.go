package index

import (
	"context"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/RichardKnop/aerodb/internal/storage"
)

// Pager is the subset of the buffer pool the tree works through.
type Pager interface {
	Get(context.Context, storage.PageID) (*storage.Page, error)
	Fetch(context.Context, storage.PageID) (*storage.Page, error)
	Release(storage.PageID)
	MarkDirty(storage.PageID)
	AllocatePage(context.Context) (storage.PageID, error)
}

type Option func(*BTree)

// WithLeafCapacity sets the maximum number of keys in newly formatted leaves.
func WithLeafCapacity(capacity uint32) Option {
	return func(bt *BTree) {
		bt.leafCapacity = capacity
	}
}

// WithInternalCapacity sets the maximum number of keys in newly formatted internal pages.
func WithInternalCapacity(capacity uint32) Option {
	return func(bt *BTree) {
		bt.internalCapacity = capacity
	}
}

// BTree maps int32 keys to record locations. Pages are only ever touched
// through the pager, the tree pins at most the pages it is mutating.
type BTree struct {
	logger           *zap.Logger
	pager            Pager
	rootPageID       storage.PageID
	leafCapacity     uint32
	internalCapacity uint32
	mu               sync.RWMutex
}

// pushUp is what a split child hands to its parent, nil means no split happened.
type pushUp struct {
	key    int32
	pageID storage.PageID
}

// NewBTree opens the tree rooted at rootPageID. A blank root page is formatted
// as an empty leaf.
func NewBTree(ctx context.Context, logger *zap.Logger, pager Pager, rootPageID storage.PageID, opts ...Option) (*BTree, error) {
	bt := &BTree{
		logger:           logger,
		pager:            pager,
		rootPageID:       rootPageID,
		leafCapacity:     DefaultLeafCapacity,
		internalCapacity: DefaultInternalCapacity,
	}
	for _, opt := range opts {
		opt(bt)
	}
	if err := validCapacity(bt.leafCapacity, DefaultLeafCapacity); err != nil {
		return nil, fmt.Errorf("leaf %w", err)
	}
	if err := validCapacity(bt.internalCapacity, DefaultInternalCapacity); err != nil {
		return nil, fmt.Errorf("internal %w", err)
	}

	aRootPage, err := pager.Get(ctx, rootPageID)
	if err != nil {
		return nil, fmt.Errorf("get root page: %w", err)
	}

	if isBlank(aRootPage) {
		NewLeafPage(aRootPage, bt.leafCapacity)
		pager.MarkDirty(rootPageID)
		logger.Debug("formatted empty root leaf", zap.Uint32("page", uint32(rootPageID)))
		return bt, nil
	}

	switch pageTypeOf(aRootPage) {
	case LeafPageType:
		_, err = LeafPageFrom(aRootPage)
	case InternalPageType:
		_, err = InternalPageFrom(aRootPage)
	default:
		err = fmt.Errorf("root page %d: %w", rootPageID, ErrInvalidPageType)
	}
	if err != nil {
		return nil, err
	}

	return bt, nil
}

func (bt *BTree) RootPageID() storage.PageID {
	bt.mu.RLock()
	defer bt.mu.RUnlock()

	return bt.rootPageID
}

// Find returns the RecordID stored for key. A missing key is not an error.
func (bt *BTree) Find(ctx context.Context, key int32) (storage.RecordID, bool, error) {
	bt.mu.RLock()
	defer bt.mu.RUnlock()

	pageID := bt.rootPageID
	for {
		aPage, err := bt.pager.Get(ctx, pageID)
		if err != nil {
			return storage.RecordID{}, false, fmt.Errorf("find key %d: %w", key, err)
		}

		switch pageTypeOf(aPage) {
		case LeafPageType:
			aLeaf, err := LeafPageFrom(aPage)
			if err != nil {
				return storage.RecordID{}, false, err
			}
			rid, ok := aLeaf.Lookup(key)
			return rid, ok, nil
		case InternalPageType:
			anInternal, err := InternalPageFrom(aPage)
			if err != nil {
				return storage.RecordID{}, false, err
			}
			pageID = anInternal.Lookup(key)
		default:
			return storage.RecordID{}, false, fmt.Errorf("find key %d, page %d: %w", key, pageID, ErrInvalidPageType)
		}
	}
}

// Insert adds key to the tree, replacing the RecordID of an existing key.
// Full pages are split bottom up, a split root grows the tree by one level.
func (bt *BTree) Insert(ctx context.Context, key int32, rid storage.RecordID) error {
	bt.mu.Lock()
	defer bt.mu.Unlock()

	up, err := bt.insert(ctx, bt.rootPageID, key, rid)
	if err != nil {
		return fmt.Errorf("insert key %d: %w", key, err)
	}
	if up == nil {
		return nil
	}

	if err := bt.growRoot(ctx, up); err != nil {
		return fmt.Errorf("insert key %d: %w", key, err)
	}
	return nil
}

func (bt *BTree) insert(ctx context.Context, pageID storage.PageID, key int32, rid storage.RecordID) (*pushUp, error) {
	aPage, err := bt.pager.Fetch(ctx, pageID)
	if err != nil {
		return nil, err
	}

	switch pageTypeOf(aPage) {
	case LeafPageType:
		defer bt.pager.Release(pageID)
		aLeaf, err := LeafPageFrom(aPage)
		if err != nil {
			return nil, err
		}
		return bt.insertIntoLeaf(ctx, aLeaf, key, rid)
	case InternalPageType:
		anInternal, err := InternalPageFrom(aPage)
		if err != nil {
			bt.pager.Release(pageID)
			return nil, err
		}
		childID := anInternal.Lookup(key)
		bt.pager.Release(pageID)

		up, err := bt.insert(ctx, childID, key, rid)
		if err != nil || up == nil {
			return nil, err
		}
		return bt.insertIntoInternal(ctx, pageID, up)
	default:
		bt.pager.Release(pageID)
		return nil, fmt.Errorf("page %d: %w", pageID, ErrInvalidPageType)
	}
}

func (bt *BTree) insertIntoLeaf(ctx context.Context, aLeaf *LeafPage, key int32, rid storage.RecordID) (*pushUp, error) {
	if _, found := aLeaf.Lookup(key); found || !aLeaf.IsFull() {
		if _, err := aLeaf.Insert(key, rid); err != nil {
			return nil, err
		}
		bt.pager.MarkDirty(aLeaf.PageID())
		return nil, nil
	}

	newPageID, err := bt.pager.AllocatePage(ctx)
	if err != nil {
		return nil, fmt.Errorf("split leaf %d: %w", aLeaf.PageID(), err)
	}
	aNewPage, err := bt.pager.Fetch(ctx, newPageID)
	if err != nil {
		return nil, fmt.Errorf("split leaf %d: %w", aLeaf.PageID(), err)
	}
	defer bt.pager.Release(newPageID)

	aNewLeaf := NewLeafPage(aNewPage, aLeaf.MaxKeys())
	splitKey := aLeaf.MoveHalf(aNewLeaf)

	target := aLeaf
	if key >= splitKey {
		target = aNewLeaf
	}
	if _, err := target.Insert(key, rid); err != nil {
		return nil, err
	}

	bt.pager.MarkDirty(aLeaf.PageID())
	bt.pager.MarkDirty(newPageID)

	bt.logger.Debug("split leaf",
		zap.Uint32("page", uint32(aLeaf.PageID())),
		zap.Uint32("new page", uint32(newPageID)),
		zap.Int32("split key", splitKey),
	)

	return &pushUp{key: splitKey, pageID: newPageID}, nil
}

func (bt *BTree) insertIntoInternal(ctx context.Context, pageID storage.PageID, up *pushUp) (*pushUp, error) {
	aPage, err := bt.pager.Fetch(ctx, pageID)
	if err != nil {
		return nil, err
	}
	defer bt.pager.Release(pageID)

	anInternal, err := InternalPageFrom(aPage)
	if err != nil {
		return nil, err
	}

	if !anInternal.IsFull() {
		if err := anInternal.Insert(up.key, up.pageID); err != nil {
			return nil, err
		}
		bt.pager.MarkDirty(pageID)
		return nil, nil
	}

	return bt.splitInternal(ctx, anInternal, up)
}

// splitInternal merges the incoming separator with the existing ones, keeps
// the first ceil(m/2) and pushes the next one up. Its child becomes the
// leftmost child of the new page, the remaining separators follow it.
func (bt *BTree) splitInternal(ctx context.Context, anInternal *InternalPage, up *pushUp) (*pushUp, error) {
	var (
		leftmost   = anInternal.ChildAt(0)
		existing   = anInternal.Separators()
		separators = make([]Separator, 0, len(existing)+1)
		placed     bool
	)
	for _, aSeparator := range existing {
		if !placed && up.key < aSeparator.Key {
			separators = append(separators, Separator{Key: up.key, Child: up.pageID})
			placed = true
		}
		separators = append(separators, aSeparator)
	}
	if !placed {
		separators = append(separators, Separator{Key: up.key, Child: up.pageID})
	}

	var (
		keep   = (len(separators) + 1) / 2
		middle = separators[keep]
	)

	newPageID, err := bt.pager.AllocatePage(ctx)
	if err != nil {
		return nil, fmt.Errorf("split internal %d: %w", anInternal.PageID(), err)
	}
	aNewPage, err := bt.pager.Fetch(ctx, newPageID)
	if err != nil {
		return nil, fmt.Errorf("split internal %d: %w", anInternal.PageID(), err)
	}
	defer bt.pager.Release(newPageID)

	NewInternalPage(aNewPage, anInternal.MaxKeys(), middle.Child).reset(middle.Child, separators[keep+1:])
	anInternal.reset(leftmost, separators[:keep])

	bt.pager.MarkDirty(anInternal.PageID())
	bt.pager.MarkDirty(newPageID)

	bt.logger.Debug("split internal",
		zap.Uint32("page", uint32(anInternal.PageID())),
		zap.Uint32("new page", uint32(newPageID)),
		zap.Int32("split key", middle.Key),
	)

	return &pushUp{key: middle.Key, pageID: newPageID}, nil
}

// growRoot allocates a new root above the split old root. It is the only
// place the root page ID changes.
func (bt *BTree) growRoot(ctx context.Context, up *pushUp) error {
	newRootID, err := bt.pager.AllocatePage(ctx)
	if err != nil {
		return fmt.Errorf("grow root: %w", err)
	}
	aNewRootPage, err := bt.pager.Fetch(ctx, newRootID)
	if err != nil {
		return fmt.Errorf("grow root: %w", err)
	}
	defer bt.pager.Release(newRootID)

	aNewRoot := NewInternalPage(aNewRootPage, bt.internalCapacity, bt.rootPageID)
	if err := aNewRoot.Insert(up.key, up.pageID); err != nil {
		return err
	}
	bt.pager.MarkDirty(newRootID)

	oldRootID := bt.rootPageID
	bt.rootPageID = newRootID

	height, err := bt.height(ctx)
	if err != nil {
		return err
	}
	bt.logger.Info("index grew",
		zap.Uint32("old root", uint32(oldRootID)),
		zap.Uint32("new root", uint32(newRootID)),
		zap.Int("height", height),
	)

	return nil
}

// Height counts levels from the root down to the leaves, a lone leaf root is 1.
func (bt *BTree) Height(ctx context.Context) (int, error) {
	bt.mu.RLock()
	defer bt.mu.RUnlock()

	return bt.height(ctx)
}

func (bt *BTree) height(ctx context.Context) (int, error) {
	var (
		height = 1
		pageID = bt.rootPageID
	)
	for {
		aPage, err := bt.pager.Get(ctx, pageID)
		if err != nil {
			return 0, err
		}
		if pageTypeOf(aPage) == LeafPageType {
			return height, nil
		}
		anInternal, err := InternalPageFrom(aPage)
		if err != nil {
			return 0, err
		}
		pageID = anInternal.ChildAt(0)
		height += 1
	}
}

// EntryScanner is called for every entry during a scan, returning io.EOF stops
// the scan without an error.
type EntryScanner func(key int32, rid storage.RecordID) error

// Scan visits every entry in key order, or in reverse when reverse is set.
func (bt *BTree) Scan(ctx context.Context, reverse bool, callback EntryScanner) error {
	bt.mu.RLock()
	defer bt.mu.RUnlock()

	err := bt.scan(ctx, bt.rootPageID, reverse, callback)
	if err == io.EOF {
		return nil
	}
	return err
}

func (bt *BTree) scan(ctx context.Context, pageID storage.PageID, reverse bool, callback EntryScanner) error {
	aPage, err := bt.pager.Get(ctx, pageID)
	if err != nil {
		return err
	}

	switch pageTypeOf(aPage) {
	case LeafPageType:
		aLeaf, err := LeafPageFrom(aPage)
		if err != nil {
			return err
		}
		entries := aLeaf.Entries()
		for i := range entries {
			anEntry := entries[i]
			if reverse {
				anEntry = entries[len(entries)-1-i]
			}
			if err := callback(anEntry.Key, anEntry.RecordID); err != nil {
				return err
			}
		}
		return nil
	case InternalPageType:
		anInternal, err := InternalPageFrom(aPage)
		if err != nil {
			return err
		}
		// the page may be evicted while descending, copy the children first
		children := anInternal.Children()
		for i := range children {
			childID := children[i]
			if reverse {
				childID = children[len(children)-1-i]
			}
			if err := bt.scan(ctx, childID, reverse, callback); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("page %d: %w", pageID, ErrInvalidPageType)
	}
}

// BFS visits pages level by level starting at the root.
func (bt *BTree) BFS(ctx context.Context, f func(*storage.Page)) error {
	bt.mu.RLock()
	defer bt.mu.RUnlock()

	queue := []storage.PageID{bt.rootPageID}
	for len(queue) > 0 {
		pageID := queue[0]
		queue = queue[1:]

		aPage, err := bt.pager.Get(ctx, pageID)
		if err != nil {
			return err
		}
		if pageTypeOf(aPage) == InternalPageType {
			anInternal, err := InternalPageFrom(aPage)
			if err != nil {
				return err
			}
			queue = append(queue, anInternal.Children()...)
		}
		f(aPage)
	}
	return nil
}

// Print writes every page of the tree level by level to w.
func (bt *BTree) Print(ctx context.Context, w io.Writer) error {
	return bt.BFS(ctx, func(aPage *storage.Page) {
		switch pageTypeOf(aPage) {
		case LeafPageType:
			aLeaf := &LeafPage{page: aPage}
			fmt.Fprintln(w, "Leaf page,", "page:", aPage.ID, "number of keys:", aLeaf.NumKeys())
			fmt.Fprintln(w, "Keys:", aLeaf.Keys())
		case InternalPageType:
			anInternal := &InternalPage{page: aPage}
			fmt.Fprintln(w, "Internal page,", "page:", aPage.ID, "number of keys:", anInternal.NumKeys())
			fmt.Fprintln(w, "Keys:", anInternal.Keys())
			fmt.Fprintln(w, "Children:", anInternal.Children())
		}
		fmt.Fprintln(w, "---------")
	})
}
