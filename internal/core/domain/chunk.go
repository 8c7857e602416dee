package domain

import (
	"maps"
	"strings"
)

// ChunkType tags what kind of content a chunk holds.
type ChunkType string

// Chunk types.
const (
	// ChunkTypeContent is ordinary body text.
	ChunkTypeContent ChunkType = "content"

	// ChunkTypeDefinition is a preserved definition span.
	ChunkTypeDefinition ChunkType = "definition"

	// ChunkTypeTable is content that looks tabular.
	ChunkTypeTable ChunkType = "table"

	// ChunkTypeErrorFallback is the diagnostic chunk emitted when nothing else could be produced.
	ChunkTypeErrorFallback ChunkType = "error_fallback"
)

// IsValid returns true if the chunk type is recognised.
func (t ChunkType) IsValid() bool {
	switch t {
	case ChunkTypeContent, ChunkTypeDefinition, ChunkTypeTable, ChunkTypeErrorFallback:
		return true
	default:
		return false
	}
}

// Title returns the display form used in prompt context headers.
func (t ChunkType) Title() string {
	switch t {
	case ChunkTypeDefinition:
		return "Definition"
	case ChunkTypeTable:
		return "Table"
	case ChunkTypeErrorFallback:
		return "Error_Fallback"
	default:
		return "Content"
	}
}

// TableInfo describes the tabular structure detected in a chunk.
type TableInfo struct {
	// PercentageCount is the number of percentage figures found.
	PercentageCount int `json:"percentage_count"`

	// KeywordCount is the number of tabular keywords found.
	KeywordCount int `json:"keyword_count"`

	// AlignedLines is the number of lines with repeated multi-space alignment.
	AlignedLines int `json:"aligned_lines"`
}

// Chunk is an ordered retrieval unit cut from a document's text.
// Chunks are immutable once stored in the vector store.
type Chunk struct {
	// ID is the sequence number of the chunk within its document.
	ID int `json:"id"`

	// Text is the chunk content.
	Text string `json:"text"`

	// TokenCount is the tokenizer's count for Text.
	TokenCount int `json:"token_count"`

	// Start and End are the character offsets [Start, End) in the source text.
	Start int `json:"start"`
	End   int `json:"end"`

	// Page is the 1-based page the chunk starts on.
	Page int `json:"page"`

	// SectionNumber is the nearest preceding section number, e.g. "4.1.2".
	SectionNumber string `json:"section_number,omitempty"`

	// Heading is the nearest preceding heading text.
	Heading string `json:"heading,omitempty"`

	// Type tags the content kind.
	Type ChunkType `json:"type"`

	// SectionPath holds the ancestor section numbers, outermost first.
	SectionPath []string `json:"section_path,omitempty"`

	// Hierarchy is SectionPath rendered for humans, e.g. "4 > 4.1 > 4.1.2".
	Hierarchy string `json:"hierarchy,omitempty"`

	// HasDefinition is true when the text matches a definition pattern.
	HasDefinition bool `json:"has_definition"`

	// Completeness is a 0..1 heuristic for how self-contained the text is.
	Completeness float64 `json:"completeness"`

	// Table is set when the chunk looks tabular.
	Table *TableInfo `json:"table,omitempty"`

	// TranslatedText and SourceLanguage are set for dual-language documents.
	TranslatedText string `json:"translated_text,omitempty"`
	SourceLanguage string `json:"source_language,omitempty"`

	// Metadata carries document-level metadata passed to the chunker plus chunk status markers.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// EmbeddingText returns the text to embed. Translated chunks embed both versions
// so either language can match.
func (c Chunk) EmbeddingText() string {
	if c.TranslatedText == "" {
		return c.Text
	}
	return c.Text + "\n\n--- English Translation ---\n" + c.TranslatedText
}

// ChunkMetadata is the index-side record stored at the same row as the chunk's vector.
type ChunkMetadata struct {
	DocID         string    `json:"doc_id"`
	ChunkID       int       `json:"chunk_id"`
	Preview       string    `json:"preview"`
	TokenCount    int       `json:"token_count"`
	Page          int       `json:"page"`
	Heading       string    `json:"heading,omitempty"`
	SectionNumber string    `json:"section_number,omitempty"`
	Type          ChunkType `json:"type"`
	Start         int       `json:"start"`
	End           int       `json:"end"`
	Hierarchy     string    `json:"hierarchy,omitempty"`
}

// PreviewLength is the maximum length of ChunkMetadata.Preview.
const PreviewLength = 200

// NewChunkMetadata builds the index-side record for a chunk.
func NewChunkMetadata(docID string, c Chunk) ChunkMetadata {
	preview := c.Text
	if r := []rune(preview); len(r) > PreviewLength {
		preview = string(r[:PreviewLength]) + "..."
	}
	return ChunkMetadata{
		DocID:         docID,
		ChunkID:       c.ID,
		Preview:       preview,
		TokenCount:    c.TokenCount,
		Page:          c.Page,
		Heading:       c.Heading,
		SectionNumber: c.SectionNumber,
		Type:          c.Type,
		Start:         c.Start,
		End:           c.End,
		Hierarchy:     c.Hierarchy,
	}
}

// Chunk metadata keys and values marking a diagnostic chunk.
const (
	MetaChunkStatus            = "chunk_status"
	MetaFallbackReason         = "fallback_reason"
	ChunkStatusMinimalFallback = "minimal_fallback"
)

// FallbackChunk returns the single error_fallback chunk that stands in for a
// document that yielded no chunks. meta is copied.
func FallbackChunk(reason string, meta map[string]string) Chunk {
	m := make(map[string]string, len(meta)+2)
	maps.Copy(m, meta)
	m[MetaChunkStatus] = ChunkStatusMinimalFallback
	m[MetaFallbackReason] = reason

	text := "This document did not contain retrievable text (" + reason + ")."
	return Chunk{
		Text:       text,
		TokenCount: len(strings.Fields(text)),
		Page:       1,
		Type:       ChunkTypeErrorFallback,
		Metadata:   m,
	}
}
