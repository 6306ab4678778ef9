package database

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/RichardKnop/aerodb/internal/buffer"
	"github.com/RichardKnop/aerodb/internal/index"
	"github.com/RichardKnop/aerodb/internal/storage"
)

var (
	ErrDuplicateKey = errors.New("duplicate key")
	ErrClosed       = errors.New("database is closed")
	ErrKeyField     = errors.New("invalid key field")
	ErrCacheSize    = errors.New("buffer pool capacity too small")
)

// heapPageID is the only heap page, records never spill into a second one.
const heapPageID storage.PageID = 0

type Record struct {
	RecordID storage.RecordID
	Tuple    *storage.Tuple
}

type Stats struct {
	Records     uint32
	FreeSpace   int
	IndexRoot   storage.PageID
	IndexHeight int
	DataPool    buffer.Stats
	IndexPool   buffer.Stats
}

// Database stores records of one schema in a heap file and indexes them by an
// INT32 key field in a separate B+Tree file.
type Database struct {
	logger           *zap.Logger
	schema           *storage.TupleDesc
	keyFieldName     string
	keyField         int
	maxCachedPages   int
	leafCapacity     uint32
	internalCapacity uint32
	dataDisk         *storage.DiskManager
	indexDisk        *storage.DiskManager
	dataPool         *buffer.BufferPool
	indexPool        *buffer.BufferPool
	tree             *index.BTree
	closed           bool
	mu               sync.Mutex
}

// Open opens or creates the data and index files. Missing files are
// bootstrapped with an empty heap page and an empty index.
func Open(ctx context.Context, logger *zap.Logger, schema *storage.TupleDesc, dataPath, indexPath string, opts ...Option) (*Database, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}

	d := &Database{
		logger:         logger,
		schema:         schema,
		maxCachedPages: defaultMaxCachedPages,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.maxCachedPages < MinCachedPages {
		return nil, fmt.Errorf("%w: %d pages, need at least %d", ErrCacheSize, d.maxCachedPages, MinCachedPages)
	}

	keyField, err := resolveKeyField(schema, d.keyFieldName)
	if err != nil {
		return nil, err
	}
	d.keyField = keyField

	d.dataDisk, err = storage.OpenDiskManager(dataPath)
	if err != nil {
		return nil, fmt.Errorf("open data file: %w", err)
	}
	d.indexDisk, err = storage.OpenDiskManager(indexPath)
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("open index file: %w", err), d.dataDisk.Close())
	}

	d.dataPool = buffer.New(logger, d.dataDisk, d.maxCachedPages)
	d.indexPool = buffer.New(logger, d.indexDisk, d.maxCachedPages)

	if err := d.init(ctx); err != nil {
		return nil, multierr.Combine(err, d.dataDisk.Close(), d.indexDisk.Close())
	}

	logger.Info("opened database",
		zap.String("data", dataPath),
		zap.String("index", indexPath),
		zap.String("schema", schema.String()),
		zap.String("key field", d.KeyField()),
		zap.Uint32("index root", uint32(d.tree.RootPageID())),
	)

	return d, nil
}

func resolveKeyField(schema *storage.TupleDesc, name string) (int, error) {
	keyField := 0
	if name != "" {
		keyField = schema.FieldIndex(name)
		if keyField < 0 {
			return 0, fmt.Errorf("%w: no field named %q", ErrKeyField, name)
		}
	}
	aField, err := schema.Field(keyField)
	if err != nil {
		return 0, err
	}
	if aField.Type != storage.Int32 {
		return 0, fmt.Errorf("%w: field %q is %s, must be %s", ErrKeyField, aField.Name, aField.Type, storage.Int32)
	}
	return keyField, nil
}

func (d *Database) init(ctx context.Context) error {
	if err := d.initHeap(ctx); err != nil {
		return fmt.Errorf("init heap: %w", err)
	}
	if err := d.initIndex(ctx); err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	return nil
}

func (d *Database) initHeap(ctx context.Context) error {
	numPages, err := d.dataDisk.NumPages()
	if err != nil {
		return err
	}
	if numPages == 0 {
		if _, err := d.dataPool.AllocatePage(ctx); err != nil {
			return err
		}
	}

	aPage, err := d.dataPool.Get(ctx, heapPageID)
	if err != nil {
		return err
	}
	if _, formatted := storage.NewHeapPage(aPage); formatted {
		d.dataPool.MarkDirty(heapPageID)
		d.logger.Debug("formatted heap page", zap.Uint32("page", uint32(heapPageID)))
	}
	return nil
}

func (d *Database) initIndex(ctx context.Context) error {
	numPages, err := d.indexDisk.NumPages()
	if err != nil {
		return err
	}

	rootPageID := initialRootID
	if numPages == 0 {
		for range 2 {
			if _, err := d.indexPool.AllocatePage(ctx); err != nil {
				return err
			}
		}
		if err := d.writeMeta(ctx, rootPageID); err != nil {
			return err
		}
	} else {
		aMetaPage, err := d.indexPool.Get(ctx, MetaPageID)
		if err != nil {
			return err
		}
		rootPageID, err = ReadMeta(aMetaPage)
		if err != nil {
			return err
		}
	}

	var treeOpts []index.Option
	if d.leafCapacity > 0 {
		treeOpts = append(treeOpts, index.WithLeafCapacity(d.leafCapacity))
	}
	if d.internalCapacity > 0 {
		treeOpts = append(treeOpts, index.WithInternalCapacity(d.internalCapacity))
	}

	d.tree, err = index.NewBTree(ctx, d.logger, d.indexPool, rootPageID, treeOpts...)
	return err
}

func (d *Database) writeMeta(ctx context.Context, rootPageID storage.PageID) error {
	aMetaPage, err := d.indexPool.Get(ctx, MetaPageID)
	if err != nil {
		return err
	}
	writeMeta(aMetaPage, rootPageID)
	d.indexPool.MarkDirty(MetaPageID)
	return nil
}

func (d *Database) Schema() *storage.TupleDesc {
	return d.schema
}

func (d *Database) KeyField() string {
	aField, _ := d.schema.Field(d.keyField)
	return aField.Name
}

// InsertRecord stores a tuple built from values and indexes it by its key field.
func (d *Database) InsertRecord(ctx context.Context, values ...any) (storage.RecordID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return storage.RecordID{}, ErrClosed
	}

	aTuple, err := storage.NewTupleWithValues(d.schema, values...)
	if err != nil {
		return storage.RecordID{}, err
	}
	key, err := aTuple.Int32Field(d.keyField)
	if err != nil {
		return storage.RecordID{}, err
	}

	_, found, err := d.tree.Find(ctx, key)
	if err != nil {
		return storage.RecordID{}, err
	}
	if found {
		return storage.RecordID{}, fmt.Errorf("key %d: %w", key, ErrDuplicateKey)
	}

	slot, err := d.insertTuple(ctx, aTuple)
	if err != nil {
		return storage.RecordID{}, err
	}
	rid := storage.RecordID{PageID: heapPageID, Slot: slot}

	rootPageID := d.tree.RootPageID()
	if err := d.tree.Insert(ctx, key, rid); err != nil {
		return storage.RecordID{}, err
	}
	if newRootPageID := d.tree.RootPageID(); newRootPageID != rootPageID {
		if err := d.writeMeta(ctx, newRootPageID); err != nil {
			return storage.RecordID{}, fmt.Errorf("update index meta: %w", err)
		}
	}

	d.logger.Debug("inserted record", zap.Int32("key", key), zap.Stringer("record id", rid))

	return rid, nil
}

func (d *Database) insertTuple(ctx context.Context, aTuple *storage.Tuple) (uint32, error) {
	aPage, err := d.dataPool.Fetch(ctx, heapPageID)
	if err != nil {
		return 0, err
	}
	defer d.dataPool.Release(heapPageID)

	aHeapPage, _ := storage.NewHeapPage(aPage)
	slot, err := aHeapPage.InsertTuple(aTuple)
	if err != nil {
		return 0, err
	}
	d.dataPool.MarkDirty(heapPageID)

	return slot, nil
}

// FindByKey looks the key up in the index and reads the record it points to.
func (d *Database) FindByKey(ctx context.Context, key int32) (Record, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return Record{}, false, ErrClosed
	}

	rid, found, err := d.tree.Find(ctx, key)
	if err != nil || !found {
		return Record{}, false, err
	}

	aRecord, err := d.readRecord(ctx, rid)
	if err != nil {
		return Record{}, false, err
	}
	return aRecord, true, nil
}

func (d *Database) ReadRecord(ctx context.Context, rid storage.RecordID) (Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return Record{}, ErrClosed
	}
	return d.readRecord(ctx, rid)
}

func (d *Database) readRecord(ctx context.Context, rid storage.RecordID) (Record, error) {
	aHeapPage, err := d.heapPage(ctx, rid.PageID)
	if err != nil {
		return Record{}, err
	}
	aTuple, err := aHeapPage.GetTuple(rid.Slot, d.schema)
	if err != nil {
		return Record{}, fmt.Errorf("read record %s: %w", rid, err)
	}
	return Record{RecordID: rid, Tuple: aTuple}, nil
}

// Records returns all records in heap order.
func (d *Database) Records(ctx context.Context) ([]Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, ErrClosed
	}

	aHeapPage, err := d.heapPage(ctx, heapPageID)
	if err != nil {
		return nil, err
	}
	tuples, err := aHeapPage.Tuples(d.schema)
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(tuples))
	for i, aTuple := range tuples {
		records = append(records, Record{
			RecordID: storage.RecordID{PageID: heapPageID, Slot: uint32(i)},
			Tuple:    aTuple,
		})
	}
	return records, nil
}

// Scan calls callback for every record in key order. Returning io.EOF from the
// callback ends the scan early.
func (d *Database) Scan(ctx context.Context, reverse bool, callback func(Record) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}

	return d.tree.Scan(ctx, reverse, func(key int32, rid storage.RecordID) error {
		aRecord, err := d.readRecord(ctx, rid)
		if err != nil {
			return fmt.Errorf("key %d: %w", key, err)
		}
		return callback(aRecord)
	})
}

func (d *Database) Stats(ctx context.Context) (Stats, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return Stats{}, ErrClosed
	}

	aHeapPage, err := d.heapPage(ctx, heapPageID)
	if err != nil {
		return Stats{}, err
	}
	height, err := d.tree.Height(ctx)
	if err != nil {
		return Stats{}, err
	}

	return Stats{
		Records:     aHeapPage.NumTuples(),
		FreeSpace:   aHeapPage.FreeSpace(),
		IndexRoot:   d.tree.RootPageID(),
		IndexHeight: height,
		DataPool:    d.dataPool.Stats(),
		IndexPool:   d.indexPool.Stats(),
	}, nil
}

// PrintIndex writes every index page level by level to w.
func (d *Database) PrintIndex(ctx context.Context, w io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}
	return d.tree.Print(ctx, w)
}

// Flush persists every dirty page of both files without closing them.
func (d *Database) Flush(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}
	return d.flush(ctx)
}

func (d *Database) flush(ctx context.Context) error {
	return multierr.Combine(
		d.dataPool.FlushAll(ctx),
		d.indexPool.FlushAll(ctx),
		d.dataDisk.Sync(),
		d.indexDisk.Sync(),
	)
}

// Close flushes both files and releases them. The database cannot be used afterwards.
func (d *Database) Close(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}
	d.closed = true

	err := multierr.Combine(
		d.flush(ctx),
		d.dataDisk.Close(),
		d.indexDisk.Close(),
	)

	d.logger.Info("closed database", zap.Error(err))

	return err
}

func (d *Database) heapPage(ctx context.Context, pageID storage.PageID) (*storage.HeapPage, error) {
	aPage, err := d.dataPool.Get(ctx, pageID)
	if err != nil {
		return nil, err
	}
	aHeapPage, _ := storage.NewHeapPage(aPage)
	return aHeapPage, nil
}
