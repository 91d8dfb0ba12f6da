package terrain

import (
	"context"
	"os"
	"sync"

	"github.com/couchcryptid/terrain-analysis-service/internal/domain"
	"github.com/couchcryptid/terrain-analysis-service/internal/observability"
)

// CachedFetcher wraps a TileFetcher with an in-memory LRU cache keyed by
// region. A cache hit skips the index query and downloads entirely, as long
// as the previously downloaded files are still on disk.
type CachedFetcher struct {
	inner   domain.TileFetcher
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedFetcher creates a cache decorator around a tile fetcher.
func NewCachedFetcher(inner domain.TileFetcher, maxEntries int, metrics *observability.Metrics) *CachedFetcher {
	return &CachedFetcher{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *CachedFetcher) FetchTiles(ctx context.Context, bbox domain.BBox, resolutionM int, destDir string) ([]string, error) {
	key := bbox.RegionKey(resolutionM)
	if paths, ok := c.cache.get(key); ok && allExist(paths) {
		c.metrics.TileCacheLookup.WithLabelValues("hit").Inc()
		return paths, nil
	}
	c.metrics.TileCacheLookup.WithLabelValues("miss").Inc()

	paths, err := c.inner.FetchTiles(ctx, bbox, resolutionM, destDir)
	if err != nil {
		return paths, err
	}
	// Only cache covered regions so a later run can re-check coverage.
	if len(paths) > 0 {
		c.cache.put(key, paths)
	}
	return paths, nil
}

func allExist(paths []string) bool {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			return false
		}
	}
	return true
}

// lruCache is a simple thread-safe LRU cache of tile path lists.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value []string
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
