// Package context implements the four-tier context inheritance resolver,
// its LRU cache, and the delegation/sync services that keep task and
// subtask contexts current.
package context

import (
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ctxforge/taskmcp/internal/types"
)

var (
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "context_cache_hits_total",
		Help: "Number of context resolutions served from cache.",
	})
	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "context_cache_misses_total",
		Help: "Number of context resolutions that missed the cache.",
	})
	cacheEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "context_cache_evictions_total",
		Help: "Number of cache entries evicted by LRU capacity pressure.",
	})
	resolveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "context_cache_resolve_duration_seconds",
		Help:    "Time spent resolving a context, cached or not.",
		Buckets: prometheus.DefBuckets,
	})
)

// cacheKey identifies one cached ResolvedContext.
type cacheKey struct {
	Level types.Level
	ID    string
}

type cacheEntry struct {
	resolved types.ResolvedContext
	depHash  string
	chain    []cacheKey
}

// Cache is the LRU-backed resolved-context cache. A single mutex guards
// both the LRU order and the dependency index, per spec §5's locking
// discipline: cache ops are short and never block on I/O.
type Cache struct {
	mu       sync.Mutex
	lru      *lru.Cache[cacheKey, *cacheEntry]
	deps     map[cacheKey]map[cacheKey]struct{} // context id -> cache keys whose chain includes it
	ttl      time.Duration
	capacity int
}

// NewCache builds a Cache with the given capacity and optional TTL (0 means
// unbounded / LRU-only, matching CONTEXT_CACHE_TTL's default).
func NewCache(capacity int, ttl time.Duration) (*Cache, error) {
	c := &Cache{deps: make(map[cacheKey]map[cacheKey]struct{}), ttl: ttl, capacity: capacity}
	evict := func(key cacheKey, _ *cacheEntry) {
		cacheEvictions.Inc()
		c.removeFromDepsLocked(key)
	}
	l, err := lru.NewWithEvict[cacheKey, *cacheEntry](capacity, evict)
	if err != nil {
		return nil, fmt.Errorf("failed to create context cache: %w", err)
	}
	c.lru = l
	return c, nil
}

// Get returns the cached ResolvedContext for (level, id) if present and not
// TTL-expired.
func (c *Cache) Get(level types.Level, id string) (types.ResolvedContext, bool) {
	start := time.Now()
	defer func() { resolveDuration.Observe(time.Since(start).Seconds()) }()

	key := cacheKey{Level: level, ID: id}
	c.mu.Lock()
	entry, ok := c.lru.Get(key)
	c.mu.Unlock()

	if !ok {
		cacheMisses.Inc()
		return types.ResolvedContext{}, false
	}
	if c.ttl > 0 && time.Since(entry.resolved.ResolvedAt) > c.ttl {
		c.mu.Lock()
		c.lru.Remove(key)
		c.removeFromDepsLocked(key)
		c.mu.Unlock()
		cacheMisses.Inc()
		return types.ResolvedContext{}, false
	}
	cacheHits.Inc()
	result := entry.resolved
	result.FromCache = true
	return result, true
}

// Put stores a resolved context keyed by (level, id), with depHash derived
// from the chain's ids+versions (staleness check) and chainIDs the set of
// (level, id) pairs consulted, used to build the dependency index.
func (c *Cache) Put(level types.Level, id string, resolved types.ResolvedContext, depHash string, chainIDs []cacheKey) {
	key := cacheKey{Level: level, ID: id}
	entry := &cacheEntry{resolved: resolved, depHash: depHash, chain: chainIDs}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(key, entry)
	for _, dep := range chainIDs {
		set, ok := c.deps[dep]
		if !ok {
			set = make(map[cacheKey]struct{})
			c.deps[dep] = set
		}
		set[key] = struct{}{}
	}
}

// Invalidate drops every cached entry whose chain includes (level, id),
// called synchronously within the writing transaction per spec §4.2's
// consistency contract.
func (c *Cache) Invalidate(level types.Level, id string) {
	dep := cacheKey{Level: level, ID: id}
	c.mu.Lock()
	defer c.mu.Unlock()

	set, ok := c.deps[dep]
	if !ok {
		return
	}
	for key := range set {
		c.lru.Remove(key)
	}
	delete(c.deps, dep)
}

func (c *Cache) removeFromDepsLocked(key cacheKey) {
	for dep, set := range c.deps {
		delete(set, key)
		if len(set) == 0 {
			delete(c.deps, dep)
		}
	}
}

// Stats reports the current cache occupancy, for diagnostics endpoints.
func (c *Cache) Stats() (length int, capacity int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len(), c.capacity
}

// Resize changes the LRU capacity in place, evicting the oldest entries if
// it shrinks. Used by the config file watcher to apply a live
// CONTEXT_CACHE_SIZE change without restarting the process.
func (c *Cache) Resize(capacity int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if capacity == c.capacity {
		return
	}
	c.lru.Resize(capacity)
	c.capacity = capacity
}

// SetTTL changes the cache entry TTL in place, applied to subsequent Get
// calls. Used by the config file watcher to apply a live CONTEXT_CACHE_TTL
// change without restarting the process.
func (c *Cache) SetTTL(ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ttl = ttl
}
