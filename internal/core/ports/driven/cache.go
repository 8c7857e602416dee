package driven

import (
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// Cache is the interface shared by every cache tier.
// Tiers never return errors: failures are counted in Stats and behave as misses.
type Cache[V any] interface {
	// Get returns the value for key if present and not expired.
	Get(key string) (V, bool)

	// Put stores value under key. A zero ttl uses the tier default.
	Put(key string, value V, ttl time.Duration)

	// Invalidate removes entries whose key starts with scope. An empty scope
	// removes everything. Returns the number of entries removed.
	Invalidate(scope string) int

	// Stats returns the tier counters.
	Stats() domain.CacheStats
}

// Caches bundles the typed tiers the retrieval coordinator reads and writes.
// The first five are in-memory; the rest are persistent partitions.
type Caches struct {
	Query          Cache[[]domain.SearchResult]
	QueryEmbedding Cache[[]float32]
	Embedding      Cache[[]float32]
	Reranker       Cache[[]float64]
	Answer         Cache[domain.Answer]

	Embeddings    Cache[[]float32]
	Documents     Cache[domain.ExtractedDocument]
	QueryResults  Cache[domain.Answer]
	ProcessedDocs Cache[[]domain.Chunk]
}

// CacheAdmin reports on and clears the cache tiers.
type CacheAdmin interface {
	// Stats returns the counters of every tier.
	Stats() []domain.CacheStats

	// Clear empties one cache type, or every tier for domain.CacheTypeAll.
	Clear(typ domain.CacheType) (int, error)

	// InvalidateDocument drops every cached answer and search result for docID.
	InvalidateDocument(docID string) int
}
