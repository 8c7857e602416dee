package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// AnswerQuestion answers one question. Provider failures come back inside
// the Answer; the error return is reserved for invalid requests and
// configuration faults such as an embedding dimension change.
func (s *RetrievalService) AnswerQuestion(ctx context.Context, req domain.AskRequest) (*domain.Answer, error) {
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		return nil, fmt.Errorf("%w: empty question", domain.ErrInvalidInput)
	}
	if req.DocID != "" && !s.store.DocumentExists(req.DocID) {
		return nil, fmt.Errorf("document %s: %w", req.DocID, domain.ErrNotFound)
	}

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer s.sem.Release(1)

	return s.answer(ctx, req)
}

// AnswerQuestions answers several questions under the concurrency ceiling.
// Answers are returned in input order.
func (s *RetrievalService) AnswerQuestions(ctx context.Context, questions []string, docID string, k int) ([]*domain.Answer, error) {
	out := make([]*domain.Answer, len(questions))
	g, gctx := errgroup.WithContext(ctx)
	for i, q := range questions {
		g.Go(func() error {
			a, err := s.AnswerQuestion(gctx, domain.AskRequest{Question: q, DocID: docID, K: k})
			if err != nil {
				return fmt.Errorf("question %d: %w", i+1, err)
			}
			out[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *RetrievalService) answerCacheable(docID string) bool {
	if !s.settings.Retrieval.AnswerCache || docID == "" {
		return false
	}
	rec, ok := s.store.Document(docID)
	return ok && rec.Type == domain.DocumentTypeSemanticSearch
}

func (s *RetrievalService) answer(ctx context.Context, req domain.AskRequest) (*domain.Answer, error) {
	logger.Section("Answer")
	start := s.now()
	cacheable := s.answerCacheable(req.DocID)
	cacheKey := domain.AnswerKey(req.DocID, req.Question)

	if cacheable {
		if a, ok := s.cachedAnswer(cacheKey); ok {
			elapsed := s.now().Sub(start)
			a.Cached = true
			a.Timings = domain.Timings{CacheRead: elapsed, Total: elapsed}
			logger.Debug("answer: cache hit for %s", cacheKey)
			return &a, nil
		}
	}

	a := &domain.Answer{DocID: req.DocID}
	a.Complexity = ClassifyComplexity(req.Question)
	a.K = s.chooseK(req.K, a.Complexity)
	logger.Debug("answer: complexity=%s k=%d", a.Complexity, a.K)

	t := s.now()
	query, err := s.embedQuestion(ctx, req.Question)
	if err != nil {
		return s.failed(a, start, err), nil
	}
	a.Timings.Embed = s.now().Sub(t)

	t = s.now()
	results, err := s.search(ctx, query, a.K, req.DocID, req.Question)
	if err != nil {
		return nil, err
	}
	a.Timings.Search = s.now().Sub(t)
	a.Retrieved = len(results)

	if len(results) == 0 {
		a.Text = domain.NoRelevantInformationAnswer
		a.Timings.Total = s.now().Sub(start)
		return a, nil
	}

	t = s.now()
	selected, err := s.rerank(ctx, req.Question, results, a.Complexity)
	if err != nil {
		return s.failed(a, start, err), nil
	}
	a.Timings.Rerank = s.now().Sub(t)

	prompt, err := s.prompts.Build(req.Question, selected)
	if err != nil {
		return nil, err
	}

	t = s.now()
	text, llm, err := s.generate(ctx, prompt)
	if err != nil {
		return s.failed(a, start, err), nil
	}
	a.Timings.Generate = s.now().Sub(t)

	a.Text = strings.TrimSpace(text)
	a.Model = llm.ModelName()
	a.Provider = llm.ProviderName()
	a.Sources = sources(selected)
	a.Timings.Total = s.now().Sub(start)

	if cacheable {
		s.caches.Answer.Put(cacheKey, *a, 0)
		s.caches.QueryResults.Put(cacheKey, *a, 0)
	}
	return a, nil
}

func (s *RetrievalService) cachedAnswer(key string) (domain.Answer, bool) {
	if a, ok := s.caches.Answer.Get(key); ok {
		return a, true
	}
	if a, ok := s.caches.QueryResults.Get(key); ok {
		s.caches.Answer.Put(key, a, 0)
		return a, true
	}
	return domain.Answer{}, false
}

func (s *RetrievalService) chooseK(requested int, c domain.Complexity) int {
	if requested > 0 {
		return requested
	}
	r := s.settings.Retrieval
	if !r.AdaptiveK {
		return max(r.K, 1)
	}
	return max(AdaptiveK(c, r.K, r.MinK, r.MaxK), 1)
}

// failed turns a provider error into the answer text and classification.
func (s *RetrievalService) failed(a *domain.Answer, start time.Time, err error) *domain.Answer {
	pe := domain.NewProviderError("", "", err)
	a.Error = pe
	a.ErrorClass = pe.Class
	a.Text = pe.UserMessage()
	a.Timings.Total = s.now().Sub(start)
	logger.Warn("answer: %v", pe)
	return a
}

func (s *RetrievalService) embedQuestion(ctx context.Context, question string) ([]float32, error) {
	provider := string(s.settings.Embedding.Provider)
	embedder, err := s.embedder.get()
	if err != nil {
		return nil, domain.NewProviderError(provider, domain.StageEmbedding, fmt.Errorf("%w: %v", domain.ErrEmbeddingUnavailable, err))
	}
	key := domain.EmbeddingKey(embedder.ModelName(), domain.NormaliseQuestion(question))
	if v, ok := s.caches.QueryEmbedding.Get(key); ok {
		return v, nil
	}

	callCtx, cancel := s.providerContext(ctx)
	defer cancel()
	v, err := embedder.Embed(callCtx, question)
	if err != nil {
		return nil, domain.NewProviderError(provider, domain.StageEmbedding, err)
	}
	s.caches.QueryEmbedding.Put(key, v, 0)
	return v, nil
}

func (s *RetrievalService) search(ctx context.Context, query []float32, k int, docID, question string) ([]domain.SearchResult, error) {
	var key string
	if docID != "" {
		key = domain.SearchKey(docID, question, k)
		if r, ok := s.caches.Query.Get(key); ok {
			return r, nil
		}
	}
	results, err := s.store.Search(ctx, query, k, docID)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	if key != "" && len(results) > 0 {
		s.caches.Query.Put(key, results, 0)
	}
	return results, nil
}

// rerank scores the retrieved chunks, applies the score adjusters, keeps
// the top of the ranking and lets the sibling selectors widen it.
func (s *RetrievalService) rerank(ctx context.Context, question string, results []domain.SearchResult, c domain.Complexity) ([]domain.Candidate, error) {
	candidates := make([]domain.Candidate, len(results))
	for i, r := range results {
		candidates[i] = domain.Candidate{SearchResult: r, Rank: i}
	}

	scores, err := s.score(ctx, question, results)
	if err != nil {
		return nil, err
	}
	for i := range candidates {
		candidates[i].Score = scores[i]
	}
	for _, adj := range s.adjusters {
		adjusted := adj.Adjust(question, candidates)
		if len(adjusted) != len(candidates) {
			logger.Warn("answer: adjuster %s returned %d scores for %d candidates", adj.Name(), len(adjusted), len(candidates))
			continue
		}
		for i := range candidates {
			candidates[i].Score = adjusted[i]
		}
	}

	pool := append([]domain.Candidate(nil), candidates...)
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	depth := max(s.settings.Retrieval.TopKReranked, 1)
	if s.settings.Retrieval.AdaptiveK {
		depth = RerankDepth(c, depth)
	}
	depth = min(depth, len(candidates))
	selected := candidates[:depth:depth]

	for _, sel := range s.selectors {
		for _, extra := range sel.Select(question, selected, pool) {
			if !containsChunk(selected, extra) {
				logger.Debug("answer: %s added chunk %d", sel.Name(), extra.Metadata.ChunkID)
				selected = append(selected, extra)
			}
		}
	}
	return selected, nil
}

func containsChunk(list []domain.Candidate, c domain.Candidate) bool {
	for _, x := range list {
		if x.Metadata.DocID == c.Metadata.DocID && x.Metadata.ChunkID == c.Metadata.ChunkID {
			return true
		}
	}
	return false
}

// score returns one reranker score per result. Without a reranker the
// vector similarity is used, which keeps the search order.
func (s *RetrievalService) score(ctx context.Context, question string, results []domain.SearchResult) ([]float64, error) {
	provider := string(s.settings.Reranker.Provider)
	reranker, err := s.reranker.get()
	if errors.Is(err, errNotConfigured) {
		scores := make([]float64, len(results))
		for i, r := range results {
			scores[i] = r.Similarity()
		}
		return scores, nil
	}
	if err != nil {
		return nil, domain.NewProviderError(provider, domain.StageRerank, fmt.Errorf("%w: %v", domain.ErrRerankerUnavailable, err))
	}

	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Text
	}
	useCache := s.settings.Retrieval.RerankerCache
	key := domain.RerankKey(reranker.ModelName(), question, texts)
	if useCache {
		if v, ok := s.caches.Reranker.Get(key); ok && len(v) == len(texts) {
			return v, nil
		}
	}

	callCtx, cancel := s.providerContext(ctx)
	defer cancel()
	scores, err := reranker.Score(callCtx, question, texts)
	if err != nil {
		return nil, domain.NewProviderError(provider, domain.StageRerank, err)
	}
	if len(scores) != len(texts) {
		return nil, domain.NewProviderError(provider, domain.StageRerank,
			fmt.Errorf("%d scores for %d texts", len(scores), len(texts)))
	}
	if useCache {
		s.caches.Reranker.Put(key, scores, 0)
	}
	return scores, nil
}

func (s *RetrievalService) generate(ctx context.Context, prompt string) (string, driven.LLMService, error) {
	provider := string(s.settings.LLM.Provider)
	llm, err := s.llm.get()
	if err != nil {
		return "", nil, domain.NewProviderError(provider, domain.StageLLM, fmt.Errorf("%w: %v", domain.ErrLLMUnavailable, err))
	}

	callCtx, cancel := s.providerContext(ctx)
	defer cancel()
	text, err := llm.Generate(callCtx, prompt, driven.GenerateOptions{
		MaxTokens:   s.settings.LLM.MaxTokens,
		Temperature: s.settings.LLM.Temperature,
	})
	if err != nil {
		return "", nil, domain.NewProviderError(llm.ProviderName(), domain.StageLLM, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", nil, domain.NewProviderError(llm.ProviderName(), domain.StageLLM, errors.New("empty response"))
	}
	return text, llm, nil
}

func sources(selected []domain.Candidate) []domain.Source {
	out := make([]domain.Source, len(selected))
	for i, c := range selected {
		m := c.Metadata
		out[i] = domain.Source{
			Number:        i + 1,
			DocID:         m.DocID,
			ChunkID:       m.ChunkID,
			Page:          m.Page,
			Heading:       m.Heading,
			SectionNumber: m.SectionNumber,
			Distance:      c.Distance,
			Score:         c.Score,
			Preview:       m.Preview,
			Type:          m.Type,
		}
	}
	return out
}
