package cache

import (
	"fmt"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Manager owns every cache tier used by the retrieval coordinator.
// Memory tiers are always present; disk partitions are no-ops when
// persistence is disabled.
type Manager struct {
	Query          *TTL[[]domain.SearchResult]
	QueryEmbedding *LRU[[]float32]
	Embedding      *LRU[[]float32]
	Reranker       *LRU[[]float64]
	Answer         *LRU[domain.Answer]

	Embeddings    driven.Cache[[]float32]
	Documents     driven.Cache[domain.ExtractedDocument]
	QueryResults  driven.Cache[domain.Answer]
	ProcessedDocs driven.Cache[[]domain.Chunk]

	disk *Disk
}

// NewManager builds the tiers described by cfg. dir is the disk cache root
// and is only used when cfg.Persistent is set.
func NewManager(cfg domain.CacheSettings, dir string, opts ...Option) (*Manager, error) {
	tier := func(t domain.CacheType) domain.CacheTierSettings {
		s := cfg.Tiers[t]
		if s.Capacity <= 0 {
			s.Capacity = domain.DefaultAppSettings().Cache.Tiers[t].Capacity
		}
		if s.TTL <= 0 {
			s.TTL = domain.DefaultAppSettings().Cache.Tiers[t].TTL
		}
		return s
	}

	// The query tier is a TTL map: capacity 0 leaves it unbounded.
	query := tier(domain.CacheTypeQuery)
	query.Capacity = max(cfg.Tiers[domain.CacheTypeQuery].Capacity, 0)
	ttlOpts := append([]Option{WithSweepEvery(cfg.SweepEvery), WithCapacity(query.Capacity)}, opts...)

	m := &Manager{
		Query: NewTTL[[]domain.SearchResult](string(domain.CacheTypeQuery), query.TTL, ttlOpts...),
		QueryEmbedding: NewLRU[[]float32](string(domain.CacheTypeQueryEmbedding),
			tier(domain.CacheTypeQueryEmbedding).Capacity, tier(domain.CacheTypeQueryEmbedding).TTL, opts...),
		Embedding: NewLRU[[]float32](string(domain.CacheTypeEmbedding),
			tier(domain.CacheTypeEmbedding).Capacity, tier(domain.CacheTypeEmbedding).TTL, opts...),
		Reranker: NewLRU[[]float64](string(domain.CacheTypeReranker),
			tier(domain.CacheTypeReranker).Capacity, tier(domain.CacheTypeReranker).TTL, opts...),
		Answer: NewLRU[domain.Answer](string(domain.CacheTypeAnswer),
			tier(domain.CacheTypeAnswer).Capacity, tier(domain.CacheTypeAnswer).TTL, opts...),

		Embeddings:    Noop[[]float32]{Name: string(domain.CacheTypeEmbeddings)},
		Documents:     Noop[domain.ExtractedDocument]{Name: string(domain.CacheTypeDocuments)},
		QueryResults:  Noop[domain.Answer]{Name: string(domain.CacheTypeQueryResults)},
		ProcessedDocs: Noop[[]domain.Chunk]{Name: string(domain.CacheTypeProcessedDocs)},
	}

	if !cfg.Persistent {
		return m, nil
	}

	codec, err := CodecByName(cfg.Codec)
	if err != nil {
		return nil, err
	}
	ttls := make(map[domain.CacheType]time.Duration, len(cfg.PersistentTTL))
	for _, t := range domain.PersistentCacheTypes() {
		ttls[t] = cfg.PersistentTTL[t]
		if ttls[t] <= 0 {
			ttls[t] = domain.DefaultAppSettings().Cache.PersistentTTL[t]
		}
	}
	disk, err := NewDisk(dir, codec, ttls, opts...)
	if err != nil {
		return nil, err
	}
	if n := disk.Sweep(); n > 0 {
		logger.Debug("cache: swept %d expired disk entries", n)
	}

	m.disk = disk
	m.Embeddings = NewPartition[[]float32](disk, domain.CacheTypeEmbeddings)
	m.Documents = NewPartition[domain.ExtractedDocument](disk, domain.CacheTypeDocuments)
	m.QueryResults = NewPartition[domain.Answer](disk, domain.CacheTypeQueryResults)
	m.ProcessedDocs = NewPartition[[]domain.Chunk](disk, domain.CacheTypeProcessedDocs)
	return m, nil
}

var _ driven.CacheAdmin = (*Manager)(nil)

// Caches returns the tiers as the typed bundle consumed by the coordinator.
func (m *Manager) Caches() driven.Caches {
	return driven.Caches{
		Query:          m.Query,
		QueryEmbedding: m.QueryEmbedding,
		Embedding:      m.Embedding,
		Reranker:       m.Reranker,
		Answer:         m.Answer,
		Embeddings:     m.Embeddings,
		Documents:      m.Documents,
		QueryResults:   m.QueryResults,
		ProcessedDocs:  m.ProcessedDocs,
	}
}

// Persistent reports whether the disk tier is enabled.
func (m *Manager) Persistent() bool {
	return m.disk != nil
}

type statser interface {
	Stats() domain.CacheStats
	Invalidate(scope string) int
}

func (m *Manager) tiers() map[domain.CacheType]statser {
	return map[domain.CacheType]statser{
		domain.CacheTypeQuery:          m.Query,
		domain.CacheTypeQueryEmbedding: m.QueryEmbedding,
		domain.CacheTypeEmbedding:      m.Embedding,
		domain.CacheTypeReranker:       m.Reranker,
		domain.CacheTypeAnswer:         m.Answer,
		domain.CacheTypeEmbeddings:     m.Embeddings,
		domain.CacheTypeDocuments:      m.Documents,
		domain.CacheTypeQueryResults:   m.QueryResults,
		domain.CacheTypeProcessedDocs:  m.ProcessedDocs,
	}
}

// Stats returns the counters of every tier, memory tiers first.
func (m *Manager) Stats() []domain.CacheStats {
	tiers := m.tiers()
	order := append(domain.MemoryCacheTypes(), domain.PersistentCacheTypes()...)
	out := make([]domain.CacheStats, 0, len(order))
	for _, t := range order {
		out = append(out, tiers[t].Stats())
	}
	return out
}

// Clear empties the tier named by typ, or every tier for domain.CacheTypeAll.
// It returns the number of entries removed.
func (m *Manager) Clear(typ domain.CacheType) (int, error) {
	tiers := m.tiers()
	if typ == domain.CacheTypeAll {
		n := 0
		for _, t := range tiers {
			n += t.Invalidate("")
		}
		return n, nil
	}
	t, ok := tiers[typ]
	if !ok {
		return 0, fmt.Errorf("%w: unknown cache type %q", domain.ErrInvalidInput, typ)
	}
	return t.Invalidate(""), nil
}

// InvalidateDocument drops every cached answer and search result for docID.
func (m *Manager) InvalidateDocument(docID string) int {
	n := m.Answer.Invalidate(domain.AnswerScope(docID))
	n += m.QueryResults.Invalidate(domain.AnswerScope(docID))
	n += m.Query.Invalidate(domain.SearchScope(docID))
	n += m.ProcessedDocs.Invalidate(docID)
	return n
}

// Sweep drops expired entries from the query tier and, when enabled, the
// disk tier. LRU tiers expire lazily on read.
func (m *Manager) Sweep() int {
	n := m.Query.Sweep()
	if m.disk != nil {
		n += m.disk.Sweep()
	}
	return n
}
