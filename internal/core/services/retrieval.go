package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// RetrievalDeps are the collaborators of the retrieval coordinator.
// Providers are built lazily on first use so that commands which never
// embed or generate do not need credentials.
type RetrievalDeps struct {
	Fetcher    driven.DocumentFetcher
	Extractor  driven.ExtractorRegistry
	Pipeline   driven.PostProcessorPipeline
	Store      driven.VectorStore
	Caches     driven.Caches
	CacheAdmin driven.CacheAdmin
	Prompts    driven.PromptStore

	Embedding func() (driven.EmbeddingService, error)
	Reranker  func() (driven.Reranker, error)
	LLM       func() (driven.LLMService, error)

	Adjusters []driven.ScoreAdjuster
	Selectors []driven.SiblingSelector
}

// RetrievalService ingests documents and answers questions about them.
type RetrievalService struct {
	fetcher    driven.DocumentFetcher
	extractor  driven.ExtractorRegistry
	pipeline   driven.PostProcessorPipeline
	store      driven.VectorStore
	caches     driven.Caches
	cacheAdmin driven.CacheAdmin
	prompts    *PromptBuilder
	adjusters  []driven.ScoreAdjuster
	selectors  []driven.SiblingSelector

	embedder *lazy[driven.EmbeddingService]
	reranker *lazy[driven.Reranker]
	llm      *lazy[driven.LLMService]

	settings domain.AppSettings
	sem      *semaphore.Weighted
	flights  singleflight.Group
	now      func() time.Time
}

// NewRetrievalService creates the retrieval coordinator.
func NewRetrievalService(deps RetrievalDeps, settings domain.AppSettings) (*RetrievalService, error) {
	switch {
	case deps.Store == nil:
		return nil, errors.New("retrieval: vector store is required")
	case deps.CacheAdmin == nil:
		return nil, errors.New("retrieval: cache admin is required")
	case deps.Prompts == nil:
		return nil, errors.New("retrieval: prompt store is required")
	}
	if err := requireCaches(deps.Caches); err != nil {
		return nil, err
	}

	ceiling := settings.Concurrency.MaxConcurrentQuestions
	if ceiling <= 0 {
		ceiling = 1
	}
	return &RetrievalService{
		fetcher:    deps.Fetcher,
		extractor:  deps.Extractor,
		pipeline:   deps.Pipeline,
		store:      deps.Store,
		caches:     deps.Caches,
		cacheAdmin: deps.CacheAdmin,
		prompts:    NewPromptBuilder(deps.Prompts),
		adjusters:  deps.Adjusters,
		selectors:  deps.Selectors,
		embedder:   newLazy(deps.Embedding),
		reranker:   newLazy(deps.Reranker),
		llm:        newLazy(deps.LLM),
		settings:   settings,
		sem:        semaphore.NewWeighted(int64(ceiling)),
		now:        time.Now,
	}, nil
}

func requireCaches(c driven.Caches) error {
	if c.Query == nil || c.QueryEmbedding == nil || c.Embedding == nil || c.Reranker == nil ||
		c.Answer == nil || c.Embeddings == nil || c.Documents == nil || c.QueryResults == nil ||
		c.ProcessedDocs == nil {
		return errors.New("retrieval: every cache tier is required")
	}
	return nil
}

// providerContext bounds a single provider call.
func (s *RetrievalService) providerContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if d := s.settings.Concurrency.ProviderTimeout; d > 0 {
		return context.WithTimeout(ctx, d)
	}
	return context.WithCancel(ctx)
}

// RemoveDocument logically removes a document and drops its cached answers.
func (s *RetrievalService) RemoveDocument(ctx context.Context, docID string) (bool, error) {
	removed, err := s.store.RemoveDocument(ctx, docID)
	if err != nil {
		return false, fmt.Errorf("remove document: %w", err)
	}
	if removed {
		s.cacheAdmin.InvalidateDocument(docID)
	}
	return removed, nil
}

// Documents lists the indexed documents.
func (s *RetrievalService) Documents(_ context.Context) ([]domain.DocumentRecord, error) {
	return s.store.Documents(), nil
}

// CacheStats returns the counters of every cache tier.
func (s *RetrievalService) CacheStats(_ context.Context) ([]domain.CacheStats, error) {
	return s.cacheAdmin.Stats(), nil
}

// ClearCache empties one cache type, or all of them.
func (s *RetrievalService) ClearCache(_ context.Context, cacheType domain.CacheType) (int, error) {
	if !cacheType.IsValid() {
		return 0, fmt.Errorf("%w: unknown cache type %q", domain.ErrInvalidInput, cacheType)
	}
	return s.cacheAdmin.Clear(cacheType)
}

// Stats describes the vector store.
func (s *RetrievalService) Stats(_ context.Context) (domain.VectorStoreStats, error) {
	return s.store.Stats(), nil
}

// Health reports component status. Providers are constructed if needed but
// not contacted.
func (s *RetrievalService) Health(_ context.Context) domain.Health {
	h := domain.Health{Status: domain.HealthStatusHealthy, Components: make(map[string]string)}
	degrade := func(name string, err error) {
		h.Status = domain.HealthStatusDegraded
		h.Components[name] = "unavailable: " + err.Error()
	}

	st := s.store.Stats()
	h.Components["vector_store"] = fmt.Sprintf("healthy (%d documents, %d chunks)", st.Documents, st.LiveChunks)

	if e, err := s.embedder.get(); err != nil {
		degrade("embedding", err)
	} else {
		h.Components["embedding"] = "healthy (" + e.ModelName() + ")"
	}
	if r, err := s.reranker.get(); errors.Is(err, errNotConfigured) {
		h.Components["reranker"] = "disabled (vector order)"
	} else if err != nil {
		degrade("reranker", err)
	} else {
		h.Components["reranker"] = "healthy (" + r.ModelName() + ")"
	}
	if l, err := s.llm.get(); err != nil {
		degrade("llm", err)
	} else {
		h.Components["llm"] = "healthy (" + l.ProviderName() + "/" + l.ModelName() + ")"
	}
	if s.settings.Cache.Persistent {
		h.Components["cache"] = "healthy (persistent)"
	} else {
		h.Components["cache"] = "healthy (memory only)"
	}
	return h
}
