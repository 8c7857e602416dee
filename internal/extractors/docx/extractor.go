// Package docx extracts Word (OOXML) documents.
package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/extractors"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// maxPartSize caps the decompressed size of one archive part.
const maxPartSize = 64 << 20

// Extractor handles DOCX documents.
type Extractor struct{}

// New creates a DOCX extractor.
func New() *Extractor {
	return &Extractor{}
}

// Name returns the extractor name.
func (e *Extractor) Name() string { return "docx" }

// SupportedExtensions returns the extensions handled.
func (e *Extractor) SupportedExtensions() []string {
	return []string{".docx"}
}

// SupportedMIMETypes returns the MIME types handled.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{"application/vnd.openxmlformats-officedocument.wordprocessingml.document"}
}

// Extract reads word/document.xml. Paragraphs become lines, table rows
// become pipe-separated lines and explicit page breaks start a new
// "--- Page N ---" section.
func (e *Extractor) Extract(_ context.Context, raw *domain.RawDocument) (*domain.ExtractedDocument, error) {
	zr, err := zip.NewReader(bytes.NewReader(raw.Content), int64(len(raw.Content)))
	if err != nil {
		return nil, fmt.Errorf("%w: not a DOCX archive: %w", domain.ErrUnsupportedFormat, err)
	}

	body, err := readPart(zr, "word/document.xml")
	if err != nil {
		return nil, err
	}
	pages, err := parseBody(body)
	if err != nil {
		return nil, fmt.Errorf("parse document.xml: %w", err)
	}

	text := joinPages(pages)
	title := coreTitle(zr)
	if title == "" {
		title = extractors.TitleFromFilename(raw.Filename)
	}
	return &domain.ExtractedDocument{
		Text:     text,
		Title:    title,
		Pages:    len(pages),
		Metadata: map[string]string{"format": "docx"},
	}, nil
}

func readPart(zr *zip.Reader, name string) ([]byte, error) {
	f, err := zr.Open(name)
	if err != nil {
		return nil, fmt.Errorf("%w: missing %s", domain.ErrUnsupportedFormat, name)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxPartSize+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if len(data) > maxPartSize {
		return nil, fmt.Errorf("%s exceeds %d bytes", name, maxPartSize)
	}
	return data, nil
}

// parseBody streams the document body and returns the text of each page.
func parseBody(data []byte) ([]string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))

	var (
		pages     []string
		page      strings.Builder
		para      strings.Builder
		cells     []string
		tableRows int
		inText    bool
	)
	flushPara := func() {
		line := strings.TrimSpace(para.String())
		para.Reset()
		if line == "" {
			return
		}
		page.WriteString(line)
		page.WriteByte('\n')
	}
	newPage := func() {
		flushPara()
		pages = append(pages, strings.TrimSpace(page.String()))
		page.Reset()
	}

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl":
				tableRows++
			case "t":
				inText = true
			case "tab":
				para.WriteByte('\t')
			case "br", "cr":
				if attr(t, "type") == "page" {
					newPage()
				} else {
					para.WriteByte('\n')
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if tableRows > 0 {
					// Paragraphs inside a cell accumulate into the cell.
					para.WriteByte(' ')
					continue
				}
				flushPara()
			case "tc":
				cells = append(cells, strings.Join(strings.Fields(para.String()), " "))
				para.Reset()
			case "tr":
				page.WriteString(strings.Join(cells, " | "))
				page.WriteByte('\n')
				cells = cells[:0]
			case "tbl":
				tableRows--
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		}
	}
	newPage()

	// Drop empty pages produced by trailing or doubled breaks.
	out := pages[:0]
	for _, p := range pages {
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		out = append(out, "")
	}
	return out, nil
}

func attr(el xml.StartElement, local string) string {
	for _, a := range el.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

func joinPages(pages []string) string {
	if len(pages) == 1 {
		return pages[0]
	}
	parts := make([]string, len(pages))
	for i, p := range pages {
		parts[i] = extractors.PageMarker(i+1) + "\n" + p
	}
	return strings.Join(parts, "\n\n")
}

type coreProps struct {
	Title string `xml:"title"`
}

// coreTitle reads the title from docProps/core.xml, if present.
func coreTitle(zr *zip.Reader) string {
	data, err := readPart(zr, "docProps/core.xml")
	if err != nil {
		return ""
	}
	var props coreProps
	if err := xml.Unmarshal(data, &props); err != nil {
		return ""
	}
	return strings.TrimSpace(props.Title)
}
