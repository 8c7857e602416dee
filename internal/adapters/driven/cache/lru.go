package cache

import (
	"container/list"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

var _ driven.Cache[string] = (*LRU[string])(nil)

type lruEntry[V any] struct {
	key         string
	value       V
	created     time.Time
	ttl         time.Duration
	accessCount int64
	lastAccess  time.Time
}

// LRU is a bounded cache that evicts the least recently used entry when full.
// Entries also expire after their TTL; an expired entry counts as a miss and
// is removed on access.
type LRU[V any] struct {
	name       string
	capacity   int
	defaultTTL time.Duration
	now        Clock

	mu    sync.Mutex
	order *list.List // front is most recently used
	items map[string]*list.Element

	hits, misses, writes, evictions, expiredCount atomic.Int64
}

// NewLRU creates an LRU tier holding at most capacity entries.
// A capacity below one is treated as one.
func NewLRU[V any](name string, capacity int, ttl time.Duration, opts ...Option) *LRU[V] {
	if capacity < 1 {
		capacity = 1
	}
	o := buildOptions(opts)
	return &LRU[V]{
		name:       name,
		capacity:   capacity,
		defaultTTL: ttl,
		now:        o.now,
		order:      list.New(),
		items:      make(map[string]*list.Element, capacity),
	}
}

// Get returns the value for key and marks it most recently used.
func (c *LRU[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	el, ok := c.items[key]
	if !ok {
		c.misses.Add(1)
		return zero, false
	}
	e := el.Value.(*lruEntry[V])
	now := c.now()
	if expired(now, e.created, e.ttl) {
		c.removeLocked(el)
		c.expiredCount.Add(1)
		c.misses.Add(1)
		return zero, false
	}
	e.accessCount++
	e.lastAccess = now
	c.order.MoveToFront(el)
	c.hits.Add(1)
	return e.value, true
}

// Put stores value under key. When the cache is full and key is new, the
// least recently used entry is evicted first.
func (c *LRU[V]) Put(key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.writes.Add(1)
	if el, ok := c.items[key]; ok {
		e := el.Value.(*lruEntry[V])
		e.value, e.created, e.ttl, e.lastAccess = value, now, ttl, now
		c.order.MoveToFront(el)
		return
	}

	if c.order.Len() >= c.capacity {
		if oldest := c.order.Back(); oldest != nil {
			c.removeLocked(oldest)
			c.evictions.Add(1)
		}
	}
	e := &lruEntry[V]{key: key, value: value, created: now, ttl: ttl, lastAccess: now}
	c.items[key] = c.order.PushFront(e)
}

func (c *LRU[V]) removeLocked(el *list.Element) {
	e := el.Value.(*lruEntry[V])
	delete(c.items, e.key)
	c.order.Remove(el)
}

// Invalidate removes entries whose key starts with scope. An empty scope
// removes everything.
func (c *LRU[V]) Invalidate(scope string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for el := c.order.Front(); el != nil; {
		next := el.Next()
		if scope == "" || strings.HasPrefix(el.Value.(*lruEntry[V]).key, scope) {
			c.removeLocked(el)
			n++
		}
		el = next
	}
	return n
}

// Keys returns the keys from most to least recently used.
func (c *LRU[V]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, c.order.Len())
	for el := c.order.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*lruEntry[V]).key)
	}
	return keys
}

// Len returns the number of entries.
func (c *LRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats returns the tier counters.
func (c *LRU[V]) Stats() domain.CacheStats {
	return domain.CacheStats{
		Name:      c.name,
		Tier:      "lru",
		Entries:   c.Len(),
		Capacity:  c.capacity,
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Writes:    c.writes.Load(),
		Evictions: c.evictions.Load(),
		Expired:   c.expiredCount.Load(),
		TTL:       c.defaultTTL,
	}
}
