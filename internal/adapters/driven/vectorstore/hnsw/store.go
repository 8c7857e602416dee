package hnsw

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// DefaultThreshold is the largest distance a search hit may have.
const DefaultThreshold = 1.5

// filteredFetchFactor widens the candidate pool when results are restricted to one document.
const filteredFetchFactor = 3

// Options configures a Store.
type Options struct {
	// Dir holds the persisted artifacts. Empty keeps the store in memory.
	Dir string

	// Index holds the graph parameters. Zero fields use the defaults.
	Index domain.VectorIndexSettings

	// Threshold is the maximum hit distance. Zero uses DefaultThreshold.
	Threshold float64

	// Seed drives level sampling so that graphs are reproducible.
	Seed int64
}

func (o Options) withDefaults() Options {
	if o.Index.M <= 0 {
		o.Index.M = DefaultM
	}
	if o.Index.EfConstruction <= 0 {
		o.Index.EfConstruction = DefaultEfConstruction
	}
	if o.Index.EfSearch <= 0 {
		o.Index.EfSearch = DefaultEfSearch
	}
	if o.Threshold <= 0 {
		o.Threshold = DefaultThreshold
	}
	return o
}

// Store is the HNSW-backed vector store. Row i of graph, texts and meta
// describe the same chunk.
type Store struct {
	mu sync.RWMutex

	opts       Options
	graph      *graph
	texts      []string
	meta       []domain.ChunkMetadata
	tombstones *roaring.Bitmap
	epoch      uint64
	docs       map[string]domain.DocumentRecord
	stale      bool
	loaded     bool
	now        func() time.Time
}

// Open loads the store from opts.Dir, starting empty when nothing usable is there.
func Open(opts Options) (*Store, error) {
	s := &Store{now: time.Now}
	s.opts = opts.withDefaults()
	s.reset()

	if s.opts.Dir == "" {
		return s, nil
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) reset() {
	s.graph = nil
	s.texts = nil
	s.meta = nil
	s.tombstones = roaring.New()
	s.docs = make(map[string]domain.DocumentRecord)
	s.stale = false
}

func (s *Store) newGraph(dim int) *graph {
	return newGraph(dim, s.opts.Index.M, s.opts.Index.EfConstruction, s.opts.Seed)
}

// Dimension returns the embedding size fixed by the first add, or zero.
func (s *Store) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimension()
}

func (s *Store) dimension() int {
	if s.graph == nil {
		return 0
	}
	return s.graph.dim
}

// AddDocument indexes chunks for docID.
func (s *Store) AddDocument(ctx context.Context, docID string, chunks []domain.Chunk, embeddings [][]float32, doc domain.DocumentRecord) (domain.AddResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.AddResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[docID]; ok {
		return domain.AddResult{DocID: docID, Status: domain.AddStatusSkipped, TotalChunks: s.live()}, nil
	}
	if docID == "" {
		return domain.AddResult{}, fmt.Errorf("%w: empty document id", domain.ErrInvalidInput)
	}
	if len(chunks) == 0 {
		return domain.AddResult{}, fmt.Errorf("%w: no chunks for %s", domain.ErrInvalidInput, docID)
	}
	if len(chunks) != len(embeddings) {
		return domain.AddResult{}, fmt.Errorf("%w: %d chunks but %d embeddings", domain.ErrInvalidInput, len(chunks), len(embeddings))
	}

	dim := s.dimension()
	if dim == 0 {
		dim = len(embeddings[0])
	}
	if dim == 0 {
		return domain.AddResult{}, fmt.Errorf("%w: empty embedding", domain.ErrInvalidInput)
	}
	for _, e := range embeddings {
		if len(e) != dim {
			return domain.AddResult{}, &domain.DimensionMismatchError{Expected: dim, Actual: len(e)}
		}
	}

	if s.stale {
		s.compact()
	}
	if s.graph == nil {
		s.graph = s.newGraph(dim)
	}

	tokens := 0
	for i, c := range chunks {
		s.graph.insert(normalise(embeddings[i]))
		s.texts = append(s.texts, c.Text)
		s.meta = append(s.meta, domain.NewChunkMetadata(docID, c))
		tokens += c.TokenCount
	}

	doc.ID = docID
	doc.ChunkCount = len(chunks)
	doc.TotalTokens = tokens
	if doc.IndexedAt.IsZero() {
		doc.IndexedAt = s.now().UTC()
	}
	if doc.Type == "" {
		doc.Type = domain.DocumentTypeSemanticSearch
	}
	s.docs[docID] = doc

	logger.Debug("hnsw: added %d chunks for %s (%d rows)", len(chunks), docID, len(s.texts))
	s.persist()

	return domain.AddResult{
		DocID:       docID,
		Status:      domain.AddStatusAdded,
		ChunksAdded: len(chunks),
		TotalChunks: s.live(),
	}, nil
}

func (s *Store) live() int {
	return len(s.texts) - int(s.tombstones.GetCardinality())
}

// compact rebuilds the graph from the stored vectors of live rows.
func (s *Store) compact() {
	done := logger.Timer("hnsw: compaction")
	defer done()

	var g *graph
	if s.graph != nil {
		g = s.newGraph(s.graph.dim)
	}
	texts := make([]string, 0, s.live())
	meta := make([]domain.ChunkMetadata, 0, s.live())
	for i := range s.texts {
		if s.tombstones.Contains(uint32(i)) {
			continue
		}
		g.insert(s.graph.vector(uint32(i)))
		texts = append(texts, s.texts[i])
		meta = append(meta, s.meta[i])
	}
	if len(texts) == 0 {
		g = nil
	}
	s.graph = g
	s.texts = texts
	s.meta = meta
	s.tombstones = roaring.New()
	s.stale = false
	s.epoch++
}

// Search returns the chunks nearest to query.
func (s *Store) Search(ctx context.Context, query []float32, k int, docFilter string) ([]domain.SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.graph == nil || s.graph.len() == 0 {
		return nil, nil
	}
	if len(query) != s.graph.dim {
		return nil, &domain.DimensionMismatchError{Expected: s.graph.dim, Actual: len(query)}
	}

	// Tombstoned rows stay in the graph until the next compaction, so they
	// are added to the candidate pool rather than taking live rows' places.
	n := s.graph.len()
	fetch := k
	if docFilter != "" {
		fetch = k * filteredFetchFactor
	}
	fetch = min(fetch+int(s.tombstones.GetCardinality()), n)
	q := normalise(query)

	for {
		hits := s.candidates(q, fetch)
		results := s.collect(hits, k, docFilter)
		if len(results) == k || fetch >= n || len(hits) < fetch || s.beyondThreshold(hits) {
			return results, nil
		}
		fetch = min(fetch*2, n)
	}
}

func (s *Store) candidates(q []float32, fetch int) []item {
	if s.graph.len() <= s.opts.Index.EfSearch {
		return s.graph.bruteForce(q, fetch)
	}
	return s.graph.search(q, fetch, s.opts.Index.EfSearch)
}

// beyondThreshold reports whether the farthest candidate is already out of
// range, in which case a wider pool cannot add hits.
func (s *Store) beyondThreshold(hits []item) bool {
	return len(hits) > 0 && math.Sqrt(float64(hits[len(hits)-1].dist)) > s.opts.Threshold
}

func (s *Store) collect(hits []item, k int, docFilter string) []domain.SearchResult {
	results := make([]domain.SearchResult, 0, k)
	for _, h := range hits {
		if s.tombstones.Contains(h.node) {
			continue
		}
		m := s.meta[h.node]
		if docFilter != "" && m.DocID != docFilter {
			continue
		}
		dist := math.Sqrt(float64(h.dist))
		if dist > s.opts.Threshold {
			continue
		}
		results = append(results, domain.SearchResult{Text: s.texts[h.node], Distance: dist, Metadata: m})
		if len(results) == k {
			break
		}
	}
	return results
}

// DocumentExists reports whether docID is registered.
func (s *Store) DocumentExists(docID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.docs[docID]
	return ok
}

// Document returns the registry record for docID.
func (s *Store) Document(docID string) (domain.DocumentRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.docs[docID]
	return d, ok
}

// Documents returns all registry records, oldest first.
func (s *Store) Documents() []domain.DocumentRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedDocs()
}

func sortRecords(docs []domain.DocumentRecord) {
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].IndexedAt.Equal(docs[j].IndexedAt) {
			return docs[i].ID < docs[j].ID
		}
		return docs[i].IndexedAt.Before(docs[j].IndexedAt)
	})
}

// RemoveDocument tombstones docID's rows and drops its registry entry.
func (s *Store) RemoveDocument(ctx context.Context, docID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[docID]; !ok {
		return false, nil
	}
	for i, m := range s.meta {
		if m.DocID == docID {
			s.tombstones.Add(uint32(i))
		}
	}
	delete(s.docs, docID)
	s.stale = true
	logger.Debug("hnsw: removed %s (%d tombstoned rows)", docID, s.tombstones.GetCardinality())
	s.persist()
	return true, nil
}

// Stats describes the store.
func (s *Store) Stats() domain.VectorStoreStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.VectorStoreStats{
		Documents:   len(s.docs),
		Chunks:      len(s.texts),
		LiveChunks:  s.live(),
		Dimension:   s.dimension(),
		IndexStale:  s.stale,
		IndexLoaded: s.loaded,
	}
}

// Clear drops every document, resets the dimension and deletes the artifacts.
func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
	s.loaded = false
	return s.removeArtifacts()
}

// Close writes the current state to disk.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.opts.Dir == "" {
		return nil
	}
	return s.save()
}
