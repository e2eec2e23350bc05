// Package cache memoizes analysis reports for repeated uploads of the same series.
package cache

import (
	"context"
	"sync"

	"github.com/couchcryptid/rainfall-event-etl/internal/domain"
	"github.com/couchcryptid/rainfall-event-etl/internal/observability"
)

// CachedAnalyzer wraps an Analyzer with an in-memory LRU cache keyed by series
// ID and table fingerprint. A hit returns the stored report unchanged,
// including its original GeneratedAt. Returned reports are shared and must
// be treated as read-only.
type CachedAnalyzer struct {
	inner   domain.Analyzer
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedAnalyzer creates a cache decorator around an analyzer.
func NewCachedAnalyzer(inner domain.Analyzer, maxEntries int, metrics *observability.Metrics) *CachedAnalyzer {
	return &CachedAnalyzer{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *CachedAnalyzer) Analyze(ctx context.Context, table domain.Table) (domain.Report, error) {
	key := table.SeriesID() + "|" + table.Fingerprint()
	if report, ok := c.cache.get(key); ok {
		c.metrics.ReportCache.WithLabelValues("hit").Inc()
		return report, nil
	}
	c.metrics.ReportCache.WithLabelValues("miss").Inc()

	report, err := c.inner.Analyze(ctx, table)
	if err != nil {
		return report, err
	}
	c.cache.put(key, report)
	return report, nil
}

// Len reports the number of cached reports.
func (c *CachedAnalyzer) Len() int {
	return c.cache.len()
}

// lruCache is a simple thread-safe LRU cache for reports.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value domain.Report
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (domain.Report, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return domain.Report{}, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value domain.Report) {
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

	for len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
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
