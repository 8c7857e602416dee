// Package cache implements the three cache tiers used by the retrieval
// pipeline: an unbounded TTL map, a bounded LRU, and a persistent disk store
// partitioned by cache type. All tiers count their failures and degrade to
// misses; none of them returns errors to callers.
package cache
