package driven

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// Extractor turns raw document bytes into text.
// Each extractor handles specific formats (e.g. DOCX, Markdown).
type Extractor interface {
	// Name returns the extractor name for logging.
	Name() string

	// SupportedExtensions returns the lower-case file extensions handled, with dot.
	SupportedExtensions() []string

	// SupportedMIMETypes returns the MIME types handled.
	SupportedMIMETypes() []string

	// Extract converts raw bytes to text. Page boundaries, when known,
	// are marked with "--- Page N ---" lines.
	Extract(ctx context.Context, raw *domain.RawDocument) (*domain.ExtractedDocument, error)
}

// ExtractorRegistry selects an extractor for a raw document.
type ExtractorRegistry interface {
	// Extract picks an extractor by extension, MIME type or content sniffing and
	// runs it. It fails soft: unsupported or broken input yields diagnostic text
	// and a nil error.
	Extract(ctx context.Context, raw *domain.RawDocument) (*domain.ExtractedDocument, error)
}

// DocumentFetcher resolves a locator (file path, file:// or http(s):// URL) to bytes.
type DocumentFetcher interface {
	Fetch(ctx context.Context, locator string) (*domain.RawDocument, error)
}
