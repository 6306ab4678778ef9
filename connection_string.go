package aerodb

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/RichardKnop/aerodb/internal/buffer"
	"github.com/RichardKnop/aerodb/internal/database"
)

// ConnectionConfig holds parsed connection string parameters
type ConnectionConfig struct {
	DataPath         string // Heap data file path
	IndexPath        string // B+Tree index file path (default: data path + ".idx")
	LogLevel         string // Log level: debug, info, warn, error (default: warn)
	MaxCachedPages   int    // Maximum number of pages cached per file (default: 50)
	KeyField         string // INT32 field used as the index key (default: first field)
	LeafCapacity     uint32 // Keys per leaf page (default: 0 = as many as fit a page)
	InternalCapacity uint32 // Keys per internal page (default: 0 = as many as fit a page)
}

// DefaultConnectionConfig returns default configuration
func DefaultConnectionConfig(dataPath string) *ConnectionConfig {
	return &ConnectionConfig{
		DataPath:       dataPath,
		IndexPath:      dataPath + ".idx",
		LogLevel:       "warn",
		MaxCachedPages: buffer.DefaultCapacity,
	}
}

// ParseConnectionString parses a connection string with optional query parameters.
//
// Format: /path/to/data.db?param1=value1&param2=value2
//
// Supported parameters:
//   - index=/path/to/index.db : Index file path (default: data path + ".idx")
//   - log_level=debug|info|warn|error : Set logging level (default: warn)
//   - max_cached_pages=N : Buffer pool capacity per file, at least 2 (default: 50)
//   - key_field=name : INT32 field to index (default: first field)
//   - leaf_capacity=N, internal_capacity=N : Smaller B+Tree fan-out, at least 3
//
// Examples:
//   - "./people.db"                                 : Default settings
//   - "./people.db?index=./people.idx"              : Custom index location
//   - "./people.db?log_level=debug&max_cached_pages=8" : Both settings
func ParseConnectionString(connStr string) (*ConnectionConfig, error) {
	// Split on first '?' to separate path from query params
	parts := strings.SplitN(connStr, "?", 2)

	if parts[0] == "" {
		return nil, fmt.Errorf("invalid connection string: missing data file path")
	}

	config := DefaultConnectionConfig(parts[0])

	// No query parameters
	if len(parts) == 1 {
		return config, nil
	}

	// Parse query parameters
	queryParams, err := url.ParseQuery(parts[1])
	if err != nil {
		return nil, fmt.Errorf("invalid connection string query parameters: %w", err)
	}

	if indexPath := queryParams.Get("index"); indexPath != "" {
		if indexPath == config.DataPath {
			return nil, fmt.Errorf("invalid index parameter: must differ from the data file path")
		}
		config.IndexPath = indexPath
	}

	// Parse log_level parameter
	if logLevel := queryParams.Get("log_level"); logLevel != "" {
		logLevel = strings.ToLower(logLevel)
		switch logLevel {
		case "debug", "info", "warn", "error":
			config.LogLevel = logLevel
		default:
			return nil, fmt.Errorf("invalid log_level parameter: must be 'debug', 'info', 'warn', or 'error', got %q", logLevel)
		}
	}

	// Parse max_cached_pages parameter
	if maxPagesStr := queryParams.Get("max_cached_pages"); maxPagesStr != "" {
		maxPages, err := strconv.Atoi(maxPagesStr)
		if err != nil {
			return nil, fmt.Errorf("invalid max_cached_pages parameter: must be a positive integer, got %q", maxPagesStr)
		}
		if maxPages < database.MinCachedPages {
			return nil, fmt.Errorf("invalid max_cached_pages parameter: must be at least %d, got %d", database.MinCachedPages, maxPages)
		}
		config.MaxCachedPages = maxPages
	}

	if keyField := queryParams.Get("key_field"); keyField != "" {
		config.KeyField = keyField
	}

	if config.LeafCapacity, err = parseCapacity(queryParams, "leaf_capacity"); err != nil {
		return nil, err
	}
	if config.InternalCapacity, err = parseCapacity(queryParams, "internal_capacity"); err != nil {
		return nil, err
	}

	return config, nil
}

func parseCapacity(queryParams url.Values, name string) (uint32, error) {
	capacityStr := queryParams.Get(name)
	if capacityStr == "" {
		return 0, nil
	}
	capacity, err := strconv.ParseUint(capacityStr, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s parameter: must be a positive integer, got %q", name, capacityStr)
	}
	if capacity < 3 {
		return 0, fmt.Errorf("invalid %s parameter: must be at least 3, got %d", name, capacity)
	}
	return uint32(capacity), nil
}

// GetZapLevel converts log level string to zap.Level
func (c *ConnectionConfig) GetZapLevel() zap.AtomicLevel {
	switch c.LogLevel {
	case "debug":
		return zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		return zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		return zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		return zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		return zap.NewAtomicLevelAt(zap.WarnLevel)
	}
}
