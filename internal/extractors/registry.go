package extractors

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure Registry implements the interface.
var _ driven.ExtractorRegistry = (*Registry)(nil)

// Registry selects an extractor for each raw document.
type Registry struct {
	byExt  map[string]driven.Extractor
	byMIME map[string]driven.Extractor
	names  []string
}

// NewRegistry creates a registry. Earlier extractors win when two claim the
// same extension or MIME type.
func NewRegistry(extractors ...driven.Extractor) *Registry {
	r := &Registry{
		byExt:  make(map[string]driven.Extractor),
		byMIME: make(map[string]driven.Extractor),
	}
	for _, e := range extractors {
		r.names = append(r.names, e.Name())
		for _, ext := range e.SupportedExtensions() {
			if _, ok := r.byExt[ext]; !ok {
				r.byExt[ext] = e
			}
		}
		for _, mt := range e.SupportedMIMETypes() {
			if _, ok := r.byMIME[mt]; !ok {
				r.byMIME[mt] = e
			}
		}
	}
	return r
}

// Names lists the registered extractors in registration order.
func (r *Registry) Names() []string {
	return r.names
}

// Select returns the extractor for raw, or nil when none applies.
func (r *Registry) Select(raw *domain.RawDocument) driven.Extractor {
	for _, name := range []string{raw.Filename, raw.Locator} {
		if e, ok := r.byExt[Extension(name)]; ok {
			return e
		}
	}
	if e := r.byMIME[baseMIME(raw.MIMEType)]; e != nil {
		return e
	}
	return r.byMIME[sniff(raw.Content)]
}

// Extract runs the selected extractor. It never returns an error for bad
// input: the diagnostic becomes the document text.
func (r *Registry) Extract(ctx context.Context, raw *domain.RawDocument) (*domain.ExtractedDocument, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e := r.Select(raw)
	if e == nil {
		logger.Warn("extract: no extractor for %s (%s)", raw.Locator, raw.MIMEType)
		return diagnostic(raw, "none", fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, describe(raw))), nil
	}

	doc, err := e.Extract(ctx, raw)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.Warn("extract: %s failed on %s: %v", e.Name(), raw.Locator, err)
		return diagnostic(raw, e.Name(), err), nil
	}
	if doc.Pages < 1 {
		doc.Pages = CountPages(doc.Text)
	}
	if doc.Title == "" {
		doc.Title = TitleFromFilename(raw.Filename)
	}
	if doc.Metadata == nil {
		doc.Metadata = make(map[string]string)
	}
	doc.Metadata["extractor"] = e.Name()
	return doc, nil
}

func diagnostic(raw *domain.RawDocument, extractor string, err error) *domain.ExtractedDocument {
	return &domain.ExtractedDocument{
		Text:  fmt.Sprintf("Unable to extract text from %s: %v", describe(raw), err),
		Title: TitleFromFilename(raw.Filename),
		Pages: 1,
		Metadata: map[string]string{
			"extractor": extractor,
			"error":     err.Error(),
		},
	}
}

func describe(raw *domain.RawDocument) string {
	name := raw.Filename
	if name == "" {
		name = raw.Locator
	}
	if raw.MIMEType != "" {
		return fmt.Sprintf("%s (%s)", name, raw.MIMEType)
	}
	return name
}

func baseMIME(mt string) string {
	if mt == "" {
		return ""
	}
	parsed, _, err := mime.ParseMediaType(mt)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(mt))
	}
	return parsed
}

var zipMagic = []byte("PK\x03\x04")

// sniff guesses a MIME type from content.
func sniff(content []byte) string {
	switch {
	case len(content) == 0:
		return ""
	case bytes.HasPrefix(content, zipMagic) && bytes.Contains(content, []byte("word/")):
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	}
	detected := baseMIME(http.DetectContentType(content))
	if detected == "application/octet-stream" && utf8.Valid(content) {
		return "text/plain"
	}
	return detected
}
