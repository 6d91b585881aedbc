// Package enginecache memoizes query results by canonical AST form, so two
// textually different but semantically identical ECL expressions (differing
// only in operand order, whitespace or equivalent literal forms) share one
// cached entry. It is grounded in the teacher's sync.RWMutex-guarded,
// explicitly-swept map idiom (terminology/service.go's in-memory caches):
// one mutex-protected map plus a fixed capacity and a per-entry TTL, with no
// background goroutine - expiry is checked lazily on Get, and Put evicts
// least-recently-used entries while the cache is over capacity.
package enginecache

import (
	"container/list"
	"sync"
	"time"

	"github.com/wardle/ecl/result"
)

// entry is one cached query result plus its insertion bookkeeping.
type entry struct {
	key       string
	value     *result.Set
	expiresAt time.Time
	elem      *list.Element
}

// Cache is a fixed-capacity, TTL-expiring cache of result.Set values keyed by
// an ast.Expression's Canonical() string. It is safe for concurrent use.
type Cache struct {
	mu       sync.RWMutex
	capacity int
	ttl      time.Duration
	entries  map[string]*entry
	order    *list.List // front = most recently used
	now      func() time.Time
}

// New returns a Cache holding at most capacity entries, each valid for ttl
// after insertion. A non-positive capacity or ttl disables caching: Get
// always misses and Put is a no-op, letting a caller wire a Cache in
// unconditionally and opt out via Options rather than branching.
func New(capacity int, ttl time.Duration) *Cache {
	return &Cache{
		capacity: capacity,
		ttl:      ttl,
		entries:  make(map[string]*entry),
		order:    list.New(),
		now:      time.Now,
	}
}

// Get returns the cached result for key, if present and not expired.
func (c *Cache) Get(key string) (*result.Set, bool) {
	if c.capacity <= 0 || c.ttl <= 0 {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().After(e.expiresAt) {
		c.removeLocked(e)
		return nil, false
	}
	c.order.MoveToFront(e.elem)
	return e.value, true
}

// Put stores value under key, evicting the least-recently-used entry if the
// cache is at capacity.
func (c *Cache) Put(key string, value *result.Set) {
	if c.capacity <= 0 || c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		e.value = value
		e.expiresAt = c.now().Add(c.ttl)
		c.order.MoveToFront(e.elem)
		return
	}
	e := &entry{key: key, value: value, expiresAt: c.now().Add(c.ttl)}
	e.elem = c.order.PushFront(e)
	c.entries[key] = e
	for len(c.entries) > c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.removeLocked(oldest.Value.(*entry))
	}
}

// removeLocked deletes e from both the map and the LRU list. Callers must
// hold c.mu.
func (c *Cache) removeLocked(e *entry) {
	delete(c.entries, e.key)
	c.order.Remove(e.elem)
}

// Len reports the number of entries currently cached, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear empties the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
	c.order.Init()
}
