package postprocessors

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/postprocessors/chunker"
)

// Guard ensures a document always yields at least one chunk. An empty
// chunk list is replaced by a single error_fallback chunk.
type Guard struct{}

// Name returns the processor name.
func (Guard) Name() string {
	return "guard"
}

// Process passes chunks through, substituting the fallback chunk for an empty list.
func (Guard) Process(_ context.Context, doc *domain.ExtractedDocument, chunks []domain.Chunk) ([]domain.Chunk, error) {
	if len(chunks) > 0 {
		return chunks, nil
	}
	var meta map[string]string
	if doc != nil {
		meta = doc.Metadata
	}
	return []domain.Chunk{chunker.FallbackChunk("no chunks produced", meta)}, nil
}
