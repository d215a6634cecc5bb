package cache

import (
	"container/list"
	"sync"
	"sync/atomic"

	"github.com/cqlsst/cqlsst/query/planner"
)

// PlanCache holds compiled plans keyed by StatementFingerprint, evicting
// the least-recently-used entry once MaxEntries is reached (spec §4.12:
// "same shape [as the result cache], but with no TTL"). Grounded on
// rockyardkv's LRUCache (container/list + a single mutex + atomic hit/miss
// counters): that cache also takes a full Lock() in Lookup rather than an
// RLock, since a hit has to MoveToFront the list element — reads and
// writes aren't actually separable there, so PlanCache doesn't pretend
// they are here either, despite spec §5's general "reads take a shared
// lock" guidance for caches.
type PlanCache struct {
	mu         sync.Mutex
	maxEntries int
	table      map[uint64]*list.Element
	order      *list.List // front = most recently used

	hits   atomic.Uint64
	misses atomic.Uint64
}

type planEntry struct {
	fingerprint uint64
	plan        *planner.Plan
}

// NewPlanCache builds a plan cache holding at most maxEntries plans.
// maxEntries <= 0 disables caching: Get always misses, Put is a no-op.
func NewPlanCache(maxEntries int) *PlanCache {
	return &PlanCache{
		maxEntries: maxEntries,
		table:      make(map[uint64]*list.Element),
		order:      list.New(),
	}
}

// Get looks up the plan cached for fingerprint, moving it to the front of
// the LRU order on a hit.
func (c *PlanCache) Get(fingerprint uint64) (*planner.Plan, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.table[fingerprint]
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.order.MoveToFront(elem)
	c.hits.Add(1)
	return elem.Value.(*planEntry).plan, true
}

// Put inserts or replaces the plan cached for fingerprint, evicting the
// least-recently-used entry first if the cache is at capacity.
func (c *PlanCache) Put(fingerprint uint64, plan *planner.Plan) {
	if c.maxEntries <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.table[fingerprint]; ok {
		elem.Value.(*planEntry).plan = plan
		c.order.MoveToFront(elem)
		return
	}

	for c.order.Len() >= c.maxEntries {
		c.evictOldest()
	}

	elem := c.order.PushFront(&planEntry{fingerprint: fingerprint, plan: plan})
	c.table[fingerprint] = elem
}

// evictOldest removes the least-recently-used entry. Callers must hold mu.
func (c *PlanCache) evictOldest() {
	back := c.order.Back()
	if back == nil {
		return
	}
	c.order.Remove(back)
	delete(c.table, back.Value.(*planEntry).fingerprint)
}

// Len reports the current entry count.
func (c *PlanCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats reports cumulative hit/miss counts (spec §4.12 metrics).
func (c *PlanCache) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}
