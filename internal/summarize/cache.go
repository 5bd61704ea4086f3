// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package summarize

import (
	"fmt"
	"sync"

	"github.com/pdiddy/paper-digest/internal/workspace"
	"github.com/pdiddy/paper-digest/pkg/types"
)

// Cache is the global summary store shared by every run and topic, keyed by
// paper ID. The in-memory map is hydrated once and every Put is written
// through to disk with an atomic replace before it returns. Records are
// never evicted or recomputed.
//
// Cache is safe for use by one process. Separate processes sharing the same
// file can lose each other's writes.
type Cache struct {
	path string

	mu      sync.Mutex
	records map[string]types.SummaryRecord
}

// OpenCache loads the cache file at path. A missing or empty file yields an
// empty cache; nothing is written until the first Put.
func OpenCache(path string) (*Cache, error) {
	records, err := workspace.ReadSummaries(path)
	if err != nil {
		return nil, fmt.Errorf("opening summary cache: %w", err)
	}
	return &Cache{path: path, records: records}, nil
}

// Path returns the backing file path.
func (c *Cache) Path() string { return c.path }

// Get returns the cached record for paperID.
func (c *Cache) Get(paperID string) (types.SummaryRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.records[paperID]
	return rec, ok
}

// Put stores rec and persists the whole cache. If the write fails the
// record is dropped from memory so memory never runs ahead of disk.
func (c *Cache) Put(paperID string, rec types.SummaryRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev, existed := c.records[paperID]
	c.records[paperID] = rec
	if err := workspace.WriteSummaries(c.path, c.records); err != nil {
		if existed {
			c.records[paperID] = prev
		} else {
			delete(c.records, paperID)
		}
		return fmt.Errorf("writing summary cache: %w", err)
	}
	return nil
}

// Len returns the number of cached records.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}
