package cache

import (
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/cqlsst/cqlsst/query/exec"
)

// resultEntry is what ResultCache stores per fingerprint (spec §4.12:
// "{result, created_at, ttl, access_count, last_access}").
type resultEntry struct {
	result      exec.QueryResult
	createdAt   time.Time
	ttl         time.Duration
	accessCount atomic.Uint64
	lastAccess  atomic.Int64 // UnixNano
}

// ResultCache caches completed query results keyed by a uint64 statement
// fingerprint (engine.Select passes StatementFingerprint),
// size-bounded and TTL-expiring (spec §4.12). Backed by
// hashicorp/golang-lru/v2/expirable, which already evicts expired entries
// ahead of plain LRU ones internally — the same "expired first, then LRU"
// order spec §4.12 asks for — so ResultCache only has to layer the
// per-entry access bookkeeping spec §4.12 wants surfaced on top.
type ResultCache struct {
	lru        *expirable.LRU[uint64, *resultEntry]
	defaultTTL time.Duration

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewResultCache builds a result cache holding at most maxEntries results,
// each expiring defaultTTL after insertion unless Put is given an explicit
// TTL. maxEntries <= 0 is treated as 1.
func NewResultCache(maxEntries int, defaultTTL time.Duration) *ResultCache {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	return &ResultCache{
		lru:        expirable.NewLRU[uint64, *resultEntry](maxEntries, nil, defaultTTL),
		defaultTTL: defaultTTL,
	}
}

// Get returns the cached result for fingerprint, if present and not
// expired. A hit refreshes the entry's LRU position (expirable.LRU.Get
// already does this) and bumps its access_count/last_access.
func (c *ResultCache) Get(fingerprint uint64) (exec.QueryResult, bool) {
	entry, ok := c.lru.Get(fingerprint)
	if !ok {
		c.misses.Add(1)
		return exec.QueryResult{}, false
	}
	entry.accessCount.Add(1)
	entry.lastAccess.Store(time.Now().UnixNano())
	c.hits.Add(1)
	return entry.result, true
}

// Put caches result under fingerprint. ttl <= 0 records the cache's
// default TTL for bookkeeping purposes (expirable.LRU applies a single
// fixed TTL to every entry at construction time, so a per-call ttl here
// is only stored on the entry: it does not change actual expiry, and
// AccessInfo does not report it).
func (c *ResultCache) Put(fingerprint uint64, result exec.QueryResult, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	entry := &resultEntry{result: result, createdAt: time.Now(), ttl: ttl}
	entry.lastAccess.Store(entry.createdAt.UnixNano())
	c.lru.Add(fingerprint, entry)
}

// Len reports the current entry count (spec §4.12's current_size metric).
func (c *ResultCache) Len() int {
	return c.lru.Len()
}

// Stats reports cumulative hit/miss counts (spec §4.12 metrics).
func (c *ResultCache) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}

// AccessInfo returns the access_count/last_access bookkeeping for a cached
// entry, mainly for diagnostics and tests; ok is false if fingerprint isn't
// cached (this does not count as a Get for hit/miss purposes).
func (c *ResultCache) AccessInfo(fingerprint uint64) (accessCount uint64, lastAccess time.Time, ok bool) {
	entry, found := c.lru.Peek(fingerprint)
	if !found {
		return 0, time.Time{}, false
	}
	return entry.accessCount.Load(), time.Unix(0, entry.lastAccess.Load()), true
}
