package store

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/thrylos-labs/postoken/types"
	"github.com/willf/bloom"
)

// StatsCache caches TokenStats rows for the read-only query surface. The
// bloom filter answers the common "symbol was never registered" lookup
// without touching the LRU; committing a transaction that rewrote a row
// evicts it, so a cached row is never older than the last committed
// mutation.
type StatsCache struct {
	cache       *lru.Cache[string, *types.TokenStats]
	bloomFilter *bloom.BloomFilter
	mutex       sync.RWMutex
}

// NewStatsCache creates a new LRU cache with a Bloom filter in front.
func NewStatsCache(size int, expectedItems uint, falsePositiveRate float64) (*StatsCache, error) {
	c, err := lru.New[string, *types.TokenStats](size)
	if err != nil {
		return nil, err
	}

	bf := bloom.NewWithEstimates(expectedItems, falsePositiveRate)

	return &StatsCache{
		cache:       c,
		bloomFilter: bf,
	}, nil
}

// Get retrieves a cached stats row.
func (c *StatsCache) Get(symCode string) (*types.TokenStats, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	if !c.bloomFilter.TestString(symCode) {
		return nil, false
	}

	return c.cache.Get(symCode)
}

// Add caches a stats row.
func (c *StatsCache) Add(symCode string, st *types.TokenStats) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	// Add to bloom filter first
	c.bloomFilter.AddString(symCode)

	c.cache.Add(symCode, st)
	return true
}

// Remove evicts a stats row. The bloom filter keeps the key; that only
// costs an LRU miss, never a stale read.
func (c *StatsCache) Remove(symCode string) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.cache.Remove(symCode)
	return true
}

// Purge clears all items from the cache
func (c *StatsCache) Purge() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.cache.Purge()
	c.bloomFilter.ClearAll()
}
