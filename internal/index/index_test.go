package index

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/RichardKnop/aerodb/internal/buffer"
	"github.com/RichardKnop/aerodb/internal/pkg/logging"
	"github.com/RichardKnop/aerodb/internal/storage"
)

const testDbName = "test_index"

var (
	gen        = newDataGen(uint64(time.Now().Unix()))
	testLogger *zap.Logger
)

func init() {
	logConf := logging.DefaultConfig()

	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "info"
	}

	l, err := logging.ParseLevel(level)
	if err != nil {
		panic(err)
	}
	logConf.Level = zap.NewAtomicLevelAt(l)

	testLogger, err = logConf.Build()
	if err != nil {
		panic(err)
	}
}

type dataGen struct {
	*gofakeit.Faker
}

func newDataGen(seed uint64) *dataGen {
	g := dataGen{
		Faker: gofakeit.New(seed),
	}

	return &g
}

// UniqueKeys returns n distinct random keys in random order.
func (g *dataGen) UniqueKeys(n int) []int32 {
	var (
		seen = make(map[int32]struct{}, n)
		keys = make([]int32, 0, n)
	)
	for len(keys) < n {
		key := g.Int32()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return keys
}

func (g *dataGen) RecordID() storage.RecordID {
	return storage.RecordID{
		PageID: storage.PageID(g.Uint32()),
		Slot:   uint32(g.IntRange(0, 500)),
	}
}

// initTest returns a buffer pool over a fresh temp file with one allocated
// page to serve as the tree root.
func initTest(t *testing.T, capacity int) (*buffer.BufferPool, *storage.DiskManager, storage.PageID) {
	dbFile, err := os.CreateTemp(t.TempDir(), testDbName)
	require.NoError(t, err)
	t.Cleanup(func() { dbFile.Close() })

	var (
		aDiskManager = storage.NewDiskManager(dbFile)
		aPool        = buffer.New(testLogger, aDiskManager, capacity)
	)

	rootPageID, err := aPool.AllocatePage(context.Background())
	require.NoError(t, err)

	return aPool, aDiskManager, rootPageID
}

func getLeaf(t *testing.T, aPool *buffer.BufferPool, pageID storage.PageID) *LeafPage {
	aPage, err := aPool.Get(context.Background(), pageID)
	require.NoError(t, err)
	aLeaf, err := LeafPageFrom(aPage)
	require.NoError(t, err)
	return aLeaf
}

func getInternal(t *testing.T, aPool *buffer.BufferPool, pageID storage.PageID) *InternalPage {
	aPage, err := aPool.Get(context.Background(), pageID)
	require.NoError(t, err)
	anInternal, err := InternalPageFrom(aPage)
	require.NoError(t, err)
	return anInternal
}
