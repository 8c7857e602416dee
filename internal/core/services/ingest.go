package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/logger"
)

// ProcessDocument ingests the document at locator. Concurrent calls for the
// same locator share one ingestion.
func (s *RetrievalService) ProcessDocument(ctx context.Context, locator string) (*domain.IngestResult, error) {
	locator = strings.TrimSpace(locator)
	if locator == "" {
		return nil, fmt.Errorf("%w: empty document locator", domain.ErrInvalidInput)
	}
	docID := domain.DocumentID(locator)
	if res, ok := s.cachedIngest(docID); ok {
		return res, nil
	}
	if s.fetcher == nil || s.extractor == nil || s.pipeline == nil {
		return nil, errors.New("retrieval: ingestion is not configured")
	}

	v, err, shared := s.flights.Do(docID, func() (any, error) {
		return s.ingest(ctx, locator, docID)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		logger.Debug("ingest: %s shared an in-flight ingestion", docID)
	}
	res := *v.(*domain.IngestResult)
	return &res, nil
}

func (s *RetrievalService) cachedIngest(docID string) (*domain.IngestResult, bool) {
	rec, ok := s.store.Document(docID)
	if !ok {
		return nil, false
	}
	return &domain.IngestResult{
		DocID:    docID,
		Status:   domain.IngestStatusCached,
		Document: &rec,
		Chunks:   rec.ChunkCount,
		Tokens:   rec.TotalTokens,
		Message:  "Document already processed",
	}, true
}

func (s *RetrievalService) ingest(ctx context.Context, locator, docID string) (*domain.IngestResult, error) {
	if res, ok := s.cachedIngest(docID); ok {
		return res, nil
	}
	logger.Section("Ingest " + docID)
	start := s.now()
	var timings domain.Timings

	t := s.now()
	raw, err := s.fetcher.Fetch(ctx, locator)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", locator, err)
	}
	timings.Fetch = s.now().Sub(t)
	contentHash := domain.HashBytes(raw.Content)

	t = s.now()
	docKey := domain.CacheKey(map[string]any{"hash": contentHash, "name": raw.Filename})
	doc, ok := s.caches.Documents.Get(docKey)
	if !ok {
		extracted, err := s.extractor.Extract(ctx, raw)
		if err != nil {
			return nil, fmt.Errorf("extract %s: %w", locator, err)
		}
		doc = *extracted
		s.caches.Documents.Put(docKey, doc, 0)
	}
	timings.Extract = s.now().Sub(t)

	t = s.now()
	chunksKey := docID + ":" + contentHash
	chunks, ok := s.caches.ProcessedDocs.Get(chunksKey)
	if !ok {
		chunks, err = s.pipeline.Process(ctx, &doc)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", locator, err)
		}
	}
	if len(chunks) == 0 {
		logger.Warn("ingest: %s produced no chunks, indexing a diagnostic chunk", locator)
		chunks = []domain.Chunk{domain.FallbackChunk("no chunks produced", doc.Metadata)}
	}
	timings.Chunk = s.now().Sub(t)

	t = s.now()
	embeddings, err := s.embedChunks(ctx, chunks)
	if err != nil {
		return nil, err
	}
	timings.Embed = s.now().Sub(t)

	rec := domain.DocumentRecord{
		Locator:        locator,
		Title:          documentTitle(doc, raw.Filename, locator),
		Pages:          max(doc.Pages, 1),
		Type:           domain.DocumentTypeSemanticSearch,
		HasTranslation: doc.TranslatedText != "",
		Language:       doc.Language,
		Metadata:       doc.Metadata,
	}

	t = s.now()
	added, err := s.store.AddDocument(ctx, docID, chunks, embeddings, rec)
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", locator, err)
	}
	timings.Index = s.now().Sub(t)
	if added.Status == domain.AddStatusSkipped {
		if res, ok := s.cachedIngest(docID); ok {
			return res, nil
		}
	}
	s.caches.ProcessedDocs.Put(chunksKey, chunks, 0)
	timings.Total = s.now().Sub(start)

	stored, _ := s.store.Document(docID)
	res := &domain.IngestResult{
		DocID:    docID,
		Status:   domain.IngestStatusProcessed,
		Document: &stored,
		Chunks:   len(chunks),
		Timings:  timings,
		Message:  "Document processed",
	}
	for _, c := range chunks {
		res.Tokens += c.TokenCount
		if c.Type == domain.ChunkTypeDefinition {
			res.PreservedDefinitions++
		}
	}
	logger.Info("ingest: %s indexed %d chunks (%d definitions) in %s", docID, res.Chunks, res.PreservedDefinitions, timings.Total)
	return res, nil
}

func documentTitle(doc domain.ExtractedDocument, filename, locator string) string {
	switch {
	case doc.Title != "":
		return doc.Title
	case filename != "":
		return filename
	default:
		return filepath.Base(locator)
	}
}

// embedChunks returns one embedding per chunk, reading the memory and disk
// embedding caches first and batching the misses.
func (s *RetrievalService) embedChunks(ctx context.Context, chunks []domain.Chunk) ([][]float32, error) {
	embedder, err := s.embedder.get()
	if err != nil {
		return nil, domain.NewProviderError(string(s.settings.Embedding.Provider), domain.StageEmbedding, fmt.Errorf("%w: %v", domain.ErrEmbeddingUnavailable, err))
	}
	model := embedder.ModelName()

	out := make([][]float32, len(chunks))
	var missing []int
	for i, c := range chunks {
		key := domain.EmbeddingKey(model, c.EmbeddingText())
		if v, ok := s.caches.Embedding.Get(key); ok {
			out[i] = v
			continue
		}
		if v, ok := s.caches.Embeddings.Get(key); ok {
			s.caches.Embedding.Put(key, v, 0)
			out[i] = v
			continue
		}
		missing = append(missing, i)
	}
	logger.Debug("ingest: %d/%d chunk embeddings cached", len(chunks)-len(missing), len(chunks))

	batch := s.settings.Embedding.BatchSize
	if batch <= 0 {
		batch = len(missing)
	}
	for lo := 0; lo < len(missing); lo += batch {
		hi := min(lo+batch, len(missing))
		texts := make([]string, 0, hi-lo)
		for _, i := range missing[lo:hi] {
			texts = append(texts, chunks[i].EmbeddingText())
		}

		callCtx, cancel := s.providerContext(ctx)
		vectors, err := embedder.EmbedBatch(callCtx, texts)
		cancel()
		if err != nil {
			return nil, domain.NewProviderError(string(s.settings.Embedding.Provider), domain.StageEmbedding, err)
		}
		if len(vectors) != len(texts) {
			return nil, fmt.Errorf("%w: %d embeddings for %d texts", domain.ErrInvalidInput, len(vectors), len(texts))
		}
		for j, i := range missing[lo:hi] {
			out[i] = vectors[j]
			key := domain.EmbeddingKey(model, texts[j])
			s.caches.Embedding.Put(key, vectors[j], 0)
			s.caches.Embeddings.Put(key, vectors[j], 0)
		}
	}
	return out, nil
}
