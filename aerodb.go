// Package aerodb is an embedded single table storage engine. Records of one
// schema live in a slotted heap file and are indexed by an INT32 key field in
// a separate B+Tree file, both accessed through LRU buffer pools.
package aerodb

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/RichardKnop/aerodb/internal/buffer"
	"github.com/RichardKnop/aerodb/internal/database"
	"github.com/RichardKnop/aerodb/internal/pkg/logging"
	"github.com/RichardKnop/aerodb/internal/storage"
)

type (
	Type      = storage.Type
	Field     = storage.Field
	TupleDesc = storage.TupleDesc
	Tuple     = storage.Tuple
	PageID    = storage.PageID
	RecordID  = storage.RecordID
	Record    = database.Record
	Stats     = database.Stats
	PoolStats = buffer.Stats
)

const (
	Int32      = storage.Int32
	UTF8String = storage.UTF8String
)

var (
	ErrDuplicateKey = database.ErrDuplicateKey
	ErrClosed       = database.ErrClosed
	ErrKeyField     = database.ErrKeyField
	ErrCacheSize    = database.ErrCacheSize
	ErrPageFull     = storage.ErrPageFull
	ErrTypeMismatch = storage.ErrTypeMismatch
)

// NewTupleDesc starts a schema, chain AddField calls to declare its fields.
func NewTupleDesc(fields ...Field) *TupleDesc {
	return storage.NewTupleDesc(fields...)
}

// ParseSchema builds a schema from a comma separated list of name:type pairs,
// for example "id:int,name:string,age:int".
func ParseSchema(s string) (*TupleDesc, error) {
	desc := storage.NewTupleDesc()
	for _, part := range strings.Split(s, ",") {
		name, typeName, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid schema field %q: expected name:type", part)
		}
		aType, err := storage.ParseType(typeName)
		if err != nil {
			return nil, err
		}
		desc.AddField(aType, name)
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	return desc, nil
}

// DB is an open database. Callers must Close it before exiting, nothing is
// persisted in the background.
type DB struct {
	*database.Database
	config *ConnectionConfig
	logger *zap.Logger
}

// Open opens the database described by connStr, see ParseConnectionString.
func Open(ctx context.Context, connStr string, schema *TupleDesc) (*DB, error) {
	config, err := ParseConnectionString(connStr)
	if err != nil {
		return nil, err
	}

	logConf := logging.DefaultConfig()
	logConf.Level = config.GetZapLevel()
	logger, err := logConf.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return OpenWithLogger(ctx, logger, config, schema)
}

// OpenWithLogger opens the database with an already parsed config and logger.
func OpenWithLogger(ctx context.Context, logger *zap.Logger, config *ConnectionConfig, schema *TupleDesc) (*DB, error) {
	aDatabase, err := database.Open(ctx, logger, schema, config.DataPath, config.IndexPath,
		database.WithMaxCachedPages(config.MaxCachedPages),
		database.WithKeyField(config.KeyField),
		database.WithLeafCapacity(config.LeafCapacity),
		database.WithInternalCapacity(config.InternalCapacity),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &DB{
		Database: aDatabase,
		config:   config,
		logger:   logger,
	}, nil
}

func (db *DB) Config() ConnectionConfig {
	return *db.config
}

// Close flushes every dirty page, syncs and closes both files.
func (db *DB) Close(ctx context.Context) error {
	err := db.Database.Close(ctx)
	_ = db.logger.Sync()
	return err
}
