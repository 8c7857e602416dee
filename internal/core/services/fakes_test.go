package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// --- Fakes shared by the retrieval tests ---

type mapCache[V any] struct {
	mu   sync.Mutex
	m    map[string]V
	hits int64
	miss int64
}

func newMapCache[V any]() *mapCache[V] {
	return &mapCache[V]{m: make(map[string]V)}
}

func (c *mapCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.m[key]
	if ok {
		c.hits++
	} else {
		c.miss++
	}
	return v, ok
}

func (c *mapCache[V]) Put(key string, value V, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = value
}

func (c *mapCache[V]) Invalidate(scope string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k := range c.m {
		if strings.HasPrefix(k, scope) {
			delete(c.m, k)
			n++
		}
	}
	return n
}

func (c *mapCache[V]) Stats() domain.CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return domain.CacheStats{Entries: len(c.m), Hits: c.hits, Misses: c.miss}
}

func (c *mapCache[V]) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m)
}

type fakeCaches struct {
	query          *mapCache[[]domain.SearchResult]
	queryEmbedding *mapCache[[]float32]
	embedding      *mapCache[[]float32]
	reranker       *mapCache[[]float64]
	answer         *mapCache[domain.Answer]
	embeddings     *mapCache[[]float32]
	documents      *mapCache[domain.ExtractedDocument]
	queryResults   *mapCache[domain.Answer]
	processedDocs  *mapCache[[]domain.Chunk]
}

func newFakeCaches() *fakeCaches {
	return &fakeCaches{
		query:          newMapCache[[]domain.SearchResult](),
		queryEmbedding: newMapCache[[]float32](),
		embedding:      newMapCache[[]float32](),
		reranker:       newMapCache[[]float64](),
		answer:         newMapCache[domain.Answer](),
		embeddings:     newMapCache[[]float32](),
		documents:      newMapCache[domain.ExtractedDocument](),
		queryResults:   newMapCache[domain.Answer](),
		processedDocs:  newMapCache[[]domain.Chunk](),
	}
}

func (f *fakeCaches) bundle() driven.Caches {
	return driven.Caches{
		Query:          f.query,
		QueryEmbedding: f.queryEmbedding,
		Embedding:      f.embedding,
		Reranker:       f.reranker,
		Answer:         f.answer,
		Embeddings:     f.embeddings,
		Documents:      f.documents,
		QueryResults:   f.queryResults,
		ProcessedDocs:  f.processedDocs,
	}
}

type fakeCacheAdmin struct {
	mu          sync.Mutex
	invalidated []string
	cleared     []domain.CacheType
}

func (a *fakeCacheAdmin) Stats() []domain.CacheStats {
	return []domain.CacheStats{{Name: "query", Tier: "memory"}}
}

func (a *fakeCacheAdmin) Clear(typ domain.CacheType) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cleared = append(a.cleared, typ)
	return 1, nil
}

func (a *fakeCacheAdmin) InvalidateDocument(docID string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.invalidated = append(a.invalidated, docID)
	return 1
}

type fakeStore struct {
	mu        sync.Mutex
	docs      map[string]domain.DocumentRecord
	results   []domain.SearchResult
	searchErr error
	added     int
	searches  int
	lastK     int
	chunks    []domain.Chunk
}

func newFakeStore() *fakeStore {
	return &fakeStore{docs: make(map[string]domain.DocumentRecord)}
}

func (s *fakeStore) AddDocument(_ context.Context, docID string, chunks []domain.Chunk, _ [][]float32, doc domain.DocumentRecord) (domain.AddResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[docID]; ok {
		return domain.AddResult{DocID: docID, Status: domain.AddStatusSkipped}, nil
	}
	s.chunks = chunks
	doc.ID = docID
	doc.ChunkCount = len(chunks)
	for _, c := range chunks {
		doc.TotalTokens += c.TokenCount
	}
	doc.IndexedAt = time.Now()
	s.docs[docID] = doc
	s.added++
	return domain.AddResult{DocID: docID, Status: domain.AddStatusAdded, ChunksAdded: len(chunks), TotalChunks: len(chunks)}, nil
}

func (s *fakeStore) Search(_ context.Context, _ []float32, k int, docFilter string) ([]domain.SearchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searches++
	s.lastK = k
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	var out []domain.SearchResult
	for _, r := range s.results {
		if docFilter != "" && r.Metadata.DocID != docFilter {
			continue
		}
		if len(out) == k {
			break
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *fakeStore) DocumentExists(docID string) bool {
	_, ok := s.Document(docID)
	return ok
}

func (s *fakeStore) Document(docID string) (domain.DocumentRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.docs[docID]
	return rec, ok
}

func (s *fakeStore) Documents() []domain.DocumentRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.DocumentRecord, 0, len(s.docs))
	for _, d := range s.docs {
		out = append(out, d)
	}
	return out
}

func (s *fakeStore) RemoveDocument(_ context.Context, docID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[docID]; !ok {
		return false, nil
	}
	delete(s.docs, docID)
	return true, nil
}

func (s *fakeStore) Stats() domain.VectorStoreStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.VectorStoreStats{Documents: len(s.docs), LiveChunks: len(s.results)}
}

func (s *fakeStore) Clear(_ context.Context) error { return nil }

func (s *fakeStore) Close() error { return nil }

func (s *fakeStore) searchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.searches
}

type fakeFetcher struct {
	content string
	err     error
	calls   atomic.Int32
}

func (f *fakeFetcher) Fetch(_ context.Context, locator string) (*domain.RawDocument, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return &domain.RawDocument{Locator: locator, Filename: "policy.txt", Content: []byte(f.content)}, nil
}

type fakeExtractor struct {
	delay time.Duration
	calls atomic.Int32
}

func (e *fakeExtractor) Extract(_ context.Context, raw *domain.RawDocument) (*domain.ExtractedDocument, error) {
	e.calls.Add(1)
	time.Sleep(e.delay)
	return &domain.ExtractedDocument{Text: string(raw.Content), Title: "Policy", Pages: 2}, nil
}

type fakePipeline struct {
	chunks []domain.Chunk
	calls  atomic.Int32
}

func (p *fakePipeline) Process(_ context.Context, _ *domain.ExtractedDocument) ([]domain.Chunk, error) {
	p.calls.Add(1)
	return p.chunks, nil
}

type fakeEmbedder struct {
	err        error
	embedCalls atomic.Int32
	batchCalls atomic.Int32
}

func (e *fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	e.embedCalls.Add(1)
	if e.err != nil {
		return nil, e.err
	}
	return []float32{1, 0, 0}, nil
}

func (e *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	e.batchCalls.Add(1)
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, float32(i)}
	}
	return out, nil
}

func (e *fakeEmbedder) Dimensions() int              { return 3 }
func (e *fakeEmbedder) ModelName() string            { return "fake-embed" }
func (e *fakeEmbedder) Ping(_ context.Context) error { return nil }
func (e *fakeEmbedder) Close() error                 { return nil }

type fakeReranker struct {
	score func(text string) float64
	err   error
	calls atomic.Int32
}

func (r *fakeReranker) Score(_ context.Context, _ string, texts []string) ([]float64, error) {
	r.calls.Add(1)
	if r.err != nil {
		return nil, r.err
	}
	out := make([]float64, len(texts))
	for i, t := range texts {
		out[i] = r.score(t)
	}
	return out, nil
}

func (r *fakeReranker) ModelName() string { return "fake-rerank" }

type fakeLLM struct {
	reply func(prompt string) string
	err   error
	calls atomic.Int32

	mu       sync.Mutex
	inFlight int
	peak     int
	delay    time.Duration
}

func (l *fakeLLM) Generate(_ context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	l.calls.Add(1)
	l.mu.Lock()
	l.inFlight++
	l.peak = max(l.peak, l.inFlight)
	l.mu.Unlock()
	defer func() {
		l.mu.Lock()
		l.inFlight--
		l.mu.Unlock()
	}()
	time.Sleep(l.delay)

	if l.err != nil {
		return "", l.err
	}
	if l.reply != nil {
		return l.reply(prompt), nil
	}
	return "The grace period is 30 days.", nil
}

func (l *fakeLLM) ProviderName() string         { return "copilot" }
func (l *fakeLLM) ModelName() string            { return "fake-llm" }
func (l *fakeLLM) Ping(_ context.Context) error { return nil }
func (l *fakeLLM) Close() error                 { return nil }

type fakePrompts struct{}

func (fakePrompts) Load(name string) (string, error) {
	if name != driven.PromptAnswer {
		return "", errors.New("unknown prompt")
	}
	return "{{instructions}}\n\nContext:\n{{context}}\n\nQuestion: {{question}}", nil
}

func (fakePrompts) Reload() {}

// harness wires a RetrievalService over fakes.
type harness struct {
	svc       *RetrievalService
	store     *fakeStore
	caches    *fakeCaches
	admin     *fakeCacheAdmin
	fetcher   *fakeFetcher
	extractor *fakeExtractor
	pipeline  *fakePipeline
	embedder  *fakeEmbedder
	reranker  *fakeReranker
	llm       *fakeLLM
}

type harnessOption func(*RetrievalDeps, *domain.AppSettings)

func withoutReranker() harnessOption {
	return func(d *RetrievalDeps, _ *domain.AppSettings) { d.Reranker = nil }
}

func withSettings(fn func(*domain.AppSettings)) harnessOption {
	return func(_ *RetrievalDeps, s *domain.AppSettings) { fn(s) }
}

func newHarness(opts ...harnessOption) *harness {
	h := &harness{
		store:     newFakeStore(),
		caches:    newFakeCaches(),
		admin:     &fakeCacheAdmin{},
		fetcher:   &fakeFetcher{content: "Grace period means thirty days."},
		extractor: &fakeExtractor{},
		pipeline: &fakePipeline{chunks: []domain.Chunk{
			{ID: 0, Text: "Grace period means a period of thirty days.", TokenCount: 9, Page: 1, Type: domain.ChunkTypeDefinition},
			{ID: 1, Text: "Premium is payable yearly.", TokenCount: 5, Page: 1, Type: domain.ChunkTypeContent},
			{ID: 2, Text: "Claims are settled within 30 days.", TokenCount: 7, Page: 2, Type: domain.ChunkTypeContent},
		}},
		embedder: &fakeEmbedder{},
		reranker: &fakeReranker{score: func(string) float64 { return 0.5 }},
		llm:      &fakeLLM{},
	}
	deps := RetrievalDeps{
		Fetcher:    h.fetcher,
		Extractor:  h.extractor,
		Pipeline:   h.pipeline,
		Store:      h.store,
		Caches:     h.caches.bundle(),
		CacheAdmin: h.admin,
		Prompts:    fakePrompts{},
		Embedding:  func() (driven.EmbeddingService, error) { return h.embedder, nil },
		Reranker:   func() (driven.Reranker, error) { return h.reranker, nil },
		LLM:        func() (driven.LLMService, error) { return h.llm, nil },
	}
	settings := domain.DefaultAppSettings()
	for _, opt := range opts {
		opt(&deps, &settings)
	}
	svc, err := NewRetrievalService(deps, settings)
	if err != nil {
		panic(err)
	}
	h.svc = svc
	return h
}

// searchResult builds a hit for docID at distance d.
func searchResult(docID string, chunkID int, text string, d float64) domain.SearchResult {
	return domain.SearchResult{
		Text:     text,
		Distance: d,
		Metadata: domain.ChunkMetadata{DocID: docID, ChunkID: chunkID, Preview: text, Page: 1, Type: domain.ChunkTypeContent},
	}
}
