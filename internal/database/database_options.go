package database

import (
	"github.com/RichardKnop/aerodb/internal/buffer"
)

type Option func(*Database)

// MinCachedPages is the smallest usable pool capacity, a split keeps the page
// being split and its new sibling pinned at the same time.
const MinCachedPages = 2

// WithMaxCachedPages sets the capacity of both the data and the index buffer pool.
// Values <= 0 keep the default, values below MinCachedPages make Open fail.
func WithMaxCachedPages(maxPages int) Option {
	return func(d *Database) {
		if maxPages > 0 {
			d.maxCachedPages = maxPages
		}
	}
}

// WithKeyField names the INT32 field indexed by the B+Tree, the first field by default.
func WithKeyField(name string) Option {
	return func(d *Database) {
		d.keyFieldName = name
	}
}

func WithLeafCapacity(capacity uint32) Option {
	return func(d *Database) {
		d.leafCapacity = capacity
	}
}

func WithInternalCapacity(capacity uint32) Option {
	return func(d *Database) {
		d.internalCapacity = capacity
	}
}

const defaultMaxCachedPages = buffer.DefaultCapacity
