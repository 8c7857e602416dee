package driven

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// PostProcessor turns extracted text into chunks or adjusts chunks.
// PostProcessors are chained in a pipeline (e.g. chunking, then the zero-chunk guard).
type PostProcessor interface {
	// Name returns the processor name for logging and configuration.
	Name() string

	// Process takes a document and returns chunks.
	// If the processor creates chunks (e.g., chunker), it receives nil and returns new chunks.
	// If the processor adjusts chunks, it receives and returns chunks.
	Process(ctx context.Context, doc *domain.ExtractedDocument, chunks []domain.Chunk) ([]domain.Chunk, error)
}

// PostProcessorPipeline chains multiple PostProcessors.
type PostProcessorPipeline interface {
	// Process runs the document through all processors in order.
	Process(ctx context.Context, doc *domain.ExtractedDocument) ([]domain.Chunk, error)
}

// Tokenizer counts tokens the way the embedding and language models budget them.
type Tokenizer interface {
	Count(text string) int
}
