package driving

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// RetrievalService ingests documents and answers questions about them.
type RetrievalService interface {
	// ProcessDocument ingests the document at locator. Re-submitting a locator
	// returns domain.IngestStatusCached without re-processing.
	ProcessDocument(ctx context.Context, locator string) (*domain.IngestResult, error)

	// AnswerQuestion answers a single question. Provider failures are reported
	// in the returned Answer, not as an error.
	AnswerQuestion(ctx context.Context, req domain.AskRequest) (*domain.Answer, error)

	// AnswerQuestions answers several questions concurrently, preserving order.
	AnswerQuestions(ctx context.Context, questions []string, docID string, k int) ([]*domain.Answer, error)

	// RemoveDocument logically removes a document and its cached answers.
	RemoveDocument(ctx context.Context, docID string) (bool, error)

	// Documents lists the indexed documents.
	Documents(ctx context.Context) ([]domain.DocumentRecord, error)

	// CacheStats returns the counters of every cache tier.
	CacheStats(ctx context.Context) ([]domain.CacheStats, error)

	// ClearCache empties one cache type, or all of them with domain.CacheTypeAll.
	ClearCache(ctx context.Context, cacheType domain.CacheType) (int, error)

	// Stats describes the vector store.
	Stats(ctx context.Context) (domain.VectorStoreStats, error)

	// Health reports component status.
	Health(ctx context.Context) domain.Health
}
