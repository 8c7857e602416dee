package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// DocumentType tags how a document is served.
type DocumentType string

// Document types.
const (
	// DocumentTypeSemanticSearch documents are chunked and indexed. Answers are cacheable.
	DocumentTypeSemanticSearch DocumentType = "semantic_search"
)

// DocumentRecord is the registry entry for an indexed document.
// It is created on first successful ingestion and never mutated.
type DocumentRecord struct {
	// ID is derived from the locator with DocumentID.
	ID string `json:"doc_id"`

	// Locator is the source the document was fetched from.
	Locator string `json:"locator"`

	// Title is the human-readable title.
	Title string `json:"title"`

	// Pages is the page count reported by extraction.
	Pages int `json:"pages"`

	// ChunkCount is the number of chunks indexed.
	ChunkCount int `json:"chunk_count"`

	// TotalTokens is the sum of chunk token counts.
	TotalTokens int `json:"total_tokens"`

	// IndexedAt is when the document was added to the store.
	IndexedAt time.Time `json:"indexed_at"`

	// Type is the document type tag.
	Type DocumentType `json:"document_type"`

	// HasTranslation is true when chunks carry translated text.
	HasTranslation bool `json:"has_translation"`

	// Language is the detected source language, if any.
	Language string `json:"detected_language,omitempty"`

	// Metadata contains arbitrary extraction metadata.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// DocumentID derives the deterministic document id for a locator.
// The same locator always yields the same id so re-submission is
// detected before any expensive work.
func DocumentID(locator string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(locator)))
	return hex.EncodeToString(sum[:])[:16]
}

// ExtractedDocument is the output of document extraction.
type ExtractedDocument struct {
	// Text is the full extracted text, with "--- Page N ---" markers where pages are known.
	Text string

	// TranslatedText is an optional translation of Text.
	TranslatedText string

	// Language is the detected language of Text, if known.
	Language string

	// Title is the document title.
	Title string

	// Pages is the page count (at least 1).
	Pages int

	// Metadata contains format-specific details.
	Metadata map[string]string
}

// IngestStatus reports what ProcessDocument did.
type IngestStatus string

// Ingest statuses.
const (
	// IngestStatusCached means the document was already indexed.
	IngestStatusCached IngestStatus = "cached"

	// IngestStatusProcessed means the document was extracted, chunked and indexed.
	IngestStatusProcessed IngestStatus = "processed"
)

// IngestResult summarises a ProcessDocument call.
type IngestResult struct {
	DocID                string          `json:"doc_id"`
	Status               IngestStatus    `json:"status"`
	Document             *DocumentRecord `json:"document,omitempty"`
	Chunks               int             `json:"chunk_count"`
	Tokens               int             `json:"total_tokens"`
	PreservedDefinitions int             `json:"preserved_definitions"`
	Timings              Timings         `json:"timings"`
	Message              string          `json:"message"`
}
