// Package plaintext extracts text, CSV and JSON documents.
package plaintext

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/extractors"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles plain text and simple structured text formats.
type Extractor struct{}

// New creates a plaintext extractor.
func New() *Extractor {
	return &Extractor{}
}

// Name returns the extractor name.
func (e *Extractor) Name() string { return "plaintext" }

// SupportedExtensions returns the extensions handled.
func (e *Extractor) SupportedExtensions() []string {
	return []string{".txt", ".text", ".log", ".csv", ".tsv", ".json", ".yaml", ".yml", ".toml", ".xml"}
}

// SupportedMIMETypes returns the MIME types handled.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{
		"text/plain",
		"text/csv",
		"text/tab-separated-values",
		"application/json",
		"text/yaml",
		"application/xml",
		"text/xml",
	}
}

// Extract converts content to text. CSV rows become pipe-separated lines and
// JSON is re-indented. Form feeds become page markers.
func (e *Extractor) Extract(_ context.Context, raw *domain.RawDocument) (*domain.ExtractedDocument, error) {
	if !utf8.Valid(raw.Content) {
		return nil, fmt.Errorf("%w: content is not valid UTF-8", domain.ErrUnsupportedFormat)
	}

	format := "text"
	text := string(bytes.TrimPrefix(raw.Content, []byte("\xef\xbb\xbf")))
	switch ext := extractors.Extension(raw.Filename); {
	case ext == ".csv" || raw.MIMEType == "text/csv":
		format = "csv"
		rendered, err := renderDelimited(text, ',')
		if err != nil {
			return nil, err
		}
		text = rendered
	case ext == ".tsv" || raw.MIMEType == "text/tab-separated-values":
		format = "tsv"
		rendered, err := renderDelimited(text, '\t')
		if err != nil {
			return nil, err
		}
		text = rendered
	case ext == ".json" || raw.MIMEType == "application/json":
		format = "json"
		var buf bytes.Buffer
		if err := json.Indent(&buf, []byte(text), "", "  "); err == nil {
			text = buf.String()
		}
	}

	text = extractors.MarkFormFeeds(strings.ReplaceAll(text, "\r\n", "\n"))
	return &domain.ExtractedDocument{
		Text:     strings.TrimSpace(text),
		Title:    extractors.TitleFromFilename(raw.Filename),
		Pages:    extractors.CountPages(text),
		Metadata: map[string]string{"format": format},
	}, nil
}

// renderDelimited renders each record as "a | b | c".
func renderDelimited(text string, comma rune) (string, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = comma
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	records, err := r.ReadAll()
	if err != nil {
		return "", fmt.Errorf("parse delimited text: %w", err)
	}
	lines := make([]string, 0, len(records))
	for _, rec := range records {
		for i := range rec {
			rec[i] = strings.TrimSpace(rec[i])
		}
		lines = append(lines, strings.Join(rec, " | "))
	}
	return strings.Join(lines, "\n"), nil
}
