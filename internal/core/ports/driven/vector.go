package driven

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// VectorStore holds chunk texts, chunk metadata and an approximate
// nearest-neighbour index over their embeddings. Row i of each is the same chunk.
type VectorStore interface {
	// AddDocument indexes a document's chunks. It is a no-op returning
	// domain.AddStatusSkipped if docID already exists. A dimension mismatch
	// returns *domain.DimensionMismatchError and leaves the store unchanged.
	AddDocument(ctx context.Context, docID string, chunks []domain.Chunk, embeddings [][]float32, doc domain.DocumentRecord) (domain.AddResult, error)

	// Search returns up to k chunks nearest to query, optionally restricted to one document.
	// Results never exceed the store's distance threshold.
	Search(ctx context.Context, query []float32, k int, docFilter string) ([]domain.SearchResult, error)

	// DocumentExists reports whether docID is registered.
	DocumentExists(docID string) bool

	// Document returns the registry record for docID.
	Document(docID string) (domain.DocumentRecord, bool)

	// Documents returns all registry records.
	Documents() []domain.DocumentRecord

	// RemoveDocument logically removes a document. Returns false if it was not present.
	RemoveDocument(ctx context.Context, docID string) (bool, error)

	// Stats describes the store.
	Stats() domain.VectorStoreStats

	// Clear removes every document and resets the dimension.
	Clear(ctx context.Context) error

	// Close flushes state.
	Close() error
}
