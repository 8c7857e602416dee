package cache

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

var _ driven.Cache[string] = (*TTL[string])(nil)

type ttlEntry[V any] struct {
	value   V
	created time.Time
	ttl     time.Duration
}

// TTL is an unbounded map cache whose entries expire after a fixed lifetime.
// Expired entries are never returned and are swept every N writes.
// There is no recency tracking.
type TTL[V any] struct {
	name       string
	defaultTTL time.Duration
	opts       options

	mu      sync.RWMutex
	entries map[string]ttlEntry[V]
	writes  int

	hits, misses, puts, evictions, expiredCount atomic.Int64
}

// NewTTL creates a TTL tier.
func NewTTL[V any](name string, ttl time.Duration, opts ...Option) *TTL[V] {
	return &TTL[V]{
		name:       name,
		defaultTTL: ttl,
		opts:       buildOptions(opts),
		entries:    make(map[string]ttlEntry[V]),
	}
}

// Get returns the value for key if present and not expired.
func (c *TTL[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	var zero V
	if !ok {
		c.misses.Add(1)
		return zero, false
	}
	if expired(c.opts.now(), e.created, e.ttl) {
		c.expiredCount.Add(1)
		c.misses.Add(1)
		c.mu.Lock()
		if cur, ok := c.entries[key]; ok && cur.created.Equal(e.created) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return zero, false
	}
	c.hits.Add(1)
	return e.value, true
}

// Put stores value under key. A zero ttl uses the tier default.
func (c *TTL[V]) Put(key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = ttlEntry[V]{value: value, created: c.opts.now(), ttl: ttl}
	c.puts.Add(1)
	c.writes++
	if c.writes%c.opts.sweepEvery == 0 {
		c.sweepLocked()
	}
	if c.opts.capacity > 0 && len(c.entries) > c.opts.capacity {
		c.sweepLocked()
		c.trimLocked()
	}
}

// Sweep removes every expired entry and returns how many were removed.
func (c *TTL[V]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweepLocked()
}

func (c *TTL[V]) sweepLocked() int {
	now := c.opts.now()
	n := 0
	for k, e := range c.entries {
		if expired(now, e.created, e.ttl) {
			delete(c.entries, k)
			n++
		}
	}
	c.expiredCount.Add(int64(n))
	return n
}

// trimLocked drops the entries closest to expiry until the tier fits its capacity.
func (c *TTL[V]) trimLocked() {
	for len(c.entries) > c.opts.capacity {
		var victim string
		var deadline time.Time
		first := true
		for k, e := range c.entries {
			d := e.created.Add(e.ttl)
			if first || d.Before(deadline) {
				victim, deadline, first = k, d, false
			}
		}
		delete(c.entries, victim)
		c.evictions.Add(1)
	}
}

// Invalidate removes entries whose key starts with scope. An empty scope
// removes everything.
func (c *TTL[V]) Invalidate(scope string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if scope == "" {
		n := len(c.entries)
		c.entries = make(map[string]ttlEntry[V])
		return n
	}
	n := 0
	for k := range c.entries {
		if strings.HasPrefix(k, scope) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// Len returns the number of stored entries, including expired ones not yet swept.
func (c *TTL[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns the tier counters.
func (c *TTL[V]) Stats() domain.CacheStats {
	return domain.CacheStats{
		Name:      c.name,
		Tier:      "ttl",
		Entries:   c.Len(),
		Capacity:  c.opts.capacity,
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Writes:    c.puts.Load(),
		Evictions: c.evictions.Load(),
		Expired:   c.expiredCount.Load(),
		TTL:       c.defaultTTL,
	}
}
