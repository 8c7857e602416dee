package domain

import "time"

// CacheType names a logical cache partition.
type CacheType string

// Cache types. The first four are persistent partitions; the rest are in-memory tiers.
const (
	CacheTypeEmbeddings    CacheType = "embeddings"
	CacheTypeDocuments     CacheType = "documents"
	CacheTypeQueryResults  CacheType = "query_results"
	CacheTypeProcessedDocs CacheType = "processed_docs"

	CacheTypeQuery          CacheType = "query"
	CacheTypeQueryEmbedding CacheType = "query_embedding"
	CacheTypeEmbedding      CacheType = "embedding"
	CacheTypeReranker       CacheType = "reranker"
	CacheTypeAnswer         CacheType = "answer"
)

// CacheTypeAll selects every cache in ClearCache.
const CacheTypeAll CacheType = "all"

// PersistentCacheTypes lists the disk partitions.
func PersistentCacheTypes() []CacheType {
	return []CacheType{CacheTypeEmbeddings, CacheTypeDocuments, CacheTypeQueryResults, CacheTypeProcessedDocs}
}

// MemoryCacheTypes lists the in-memory tiers.
func MemoryCacheTypes() []CacheType {
	return []CacheType{CacheTypeQuery, CacheTypeQueryEmbedding, CacheTypeEmbedding, CacheTypeReranker, CacheTypeAnswer}
}

// IsPersistent returns true for disk partitions.
func (t CacheType) IsPersistent() bool {
	for _, p := range PersistentCacheTypes() {
		if t == p {
			return true
		}
	}
	return false
}

// IsValid returns true if the cache type is recognised.
func (t CacheType) IsValid() bool {
	if t == CacheTypeAll || t.IsPersistent() {
		return true
	}
	for _, m := range MemoryCacheTypes() {
		if t == m {
			return true
		}
	}
	return false
}

// CacheStats holds the counters of one cache tier.
type CacheStats struct {
	Name      string        `json:"name"`
	Tier      string        `json:"tier"`
	Entries   int           `json:"entries"`
	Capacity  int           `json:"capacity,omitempty"`
	Hits      int64         `json:"hits"`
	Misses    int64         `json:"misses"`
	Writes    int64         `json:"writes"`
	Evictions int64         `json:"evictions"`
	Expired   int64         `json:"expired"`
	Errors    int64         `json:"errors"`
	Bytes     int64         `json:"bytes,omitempty"`
	TTL       time.Duration `json:"ttl"`
}

// HitRate returns hits / (hits + misses), or 0 with no traffic.
func (s CacheStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}
