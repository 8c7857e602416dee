// Package chunker provides the structure-aware text chunking processor.
//
// Definitions are kept whole, sections are chunked along paragraph and
// sentence boundaries, and whatever is left over is cut into overlapping
// budget-sized windows. Every chunk is annotated with its page, section
// path, completeness score and table shape.
package chunker

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Defaults for the chunker options.
const (
	DefaultChunkSize         = 450
	DefaultChunkOverlap      = 100
	DefaultMaxPreservedChars = 2000
	DefaultMaxMergedChars    = 3000
	DefaultClaimedSkipRatio  = 0.8
	DefaultOversizeFactor    = 1.5
)

// Unclaimed text between headers shorter than this is dropped.
const minLeftover = 10

// Chunk metadata keys and values set by the chunker.
const (
	MetaChunkStatus            = domain.MetaChunkStatus
	MetaFallbackReason         = domain.MetaFallbackReason
	ChunkStatusMinimalFallback = domain.ChunkStatusMinimalFallback
)

// Processor splits extracted document text into chunks.
// It implements the PostProcessor interface.
type Processor struct {
	chunkSize    int
	overlap      int
	maxPreserved int
	maxMerged    int
	skipRatio    float64
	oversize     float64
	tokenizer    driven.Tokenizer
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the per-chunk token budget.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the token overlap used when splitting unstructured text.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// WithMaxPreservedChars caps the size of a single preserved definition.
func WithMaxPreservedChars(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.maxPreserved = n
		}
	}
}

// WithMaxMergedChars caps the size of merged overlapping definitions.
func WithMaxMergedChars(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.maxMerged = n
		}
	}
}

// WithClaimedSkipRatio sets the claimed fraction above which a section is skipped.
func WithClaimedSkipRatio(r float64) Option {
	return func(p *Processor) {
		if r > 0 && r <= 1 {
			p.skipRatio = r
		}
	}
}

// WithOversizeFactor sets the budget multiple above which chunks are re-split.
func WithOversizeFactor(f float64) Option {
	return func(p *Processor) {
		if f >= 1 {
			p.oversize = f
		}
	}
}

// WithTokenizer replaces the heuristic tokenizer.
func WithTokenizer(t driven.Tokenizer) Option {
	return func(p *Processor) {
		if t != nil {
			p.tokenizer = t
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize:    DefaultChunkSize,
		overlap:      DefaultChunkOverlap,
		maxPreserved: DefaultMaxPreservedChars,
		maxMerged:    DefaultMaxMergedChars,
		skipRatio:    DefaultClaimedSkipRatio,
		oversize:     DefaultOversizeFactor,
		tokenizer:    NewHeuristicTokenizer(),
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}
	if p.maxMerged < p.maxPreserved {
		p.maxMerged = p.maxPreserved
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Process chunks the document text. Input chunks are ignored.
// When the document carries a translation, the translation is chunked too
// and attached to the original chunks pairwise.
func (p *Processor) Process(ctx context.Context, doc *domain.ExtractedDocument, _ []domain.Chunk) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, fmt.Errorf("chunker: document is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	chunks := p.Chunk(doc.Text, doc.Metadata)
	if strings.TrimSpace(doc.TranslatedText) == "" {
		return chunks, nil
	}

	translated := p.Chunk(doc.TranslatedText, nil)
	for i := range chunks {
		chunks[i].SourceLanguage = doc.Language
		if i < len(translated) && translated[i].Type != domain.ChunkTypeErrorFallback {
			chunks[i].TranslatedText = translated[i].Text
		}
	}
	return chunks, nil
}

// Chunk splits text into ordered chunks. It never returns an empty slice:
// text that yields nothing produces a single error_fallback chunk.
func (p *Processor) Chunk(text string, meta map[string]string) []domain.Chunk {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if strings.TrimSpace(text) == "" {
		return []domain.Chunk{FallbackChunk("no extractable text", meta)}
	}

	pages := buildPageMap(text)
	headers := detectHeaders(text)
	spans := preservedSpans(text, headers, p.maxPreserved, p.maxMerged)
	logger.Debug("chunker: %d chars, %d headers, %d preserved spans", len(text), len(headers), len(spans))

	claimed := roaring.New()
	var drafts []draft

	limit := p.oversizeLimit()
	for _, s := range spans {
		t := trim(text, piece{s.start, s.end})
		if t.end <= t.start {
			continue
		}
		body := text[t.start:t.end]
		if n := p.tokenizer.Count(body); n > limit {
			logger.Debug("chunker: preserved span at %d too large (%d tokens), splitting normally", s.start, n)
			continue
		}
		drafts = append(drafts, draft{start: t.start, end: t.end, text: body, preserved: true})
		claimed.AddRange(uint64(s.start), uint64(s.end))
	}

	for _, sec := range sectionRanges(headers, len(text)) {
		size := sec.end - sec.start
		if size <= 0 {
			continue
		}
		if float64(claimedIn(claimed, sec.start, sec.end))/float64(size) > p.skipRatio {
			continue
		}
		drafts = append(drafts, p.chunkSection(text, sec, claimed)...)
		claimed.AddRange(uint64(sec.start), uint64(sec.end))
	}

	for _, r := range unclaimed(claimed, len(text)) {
		if (len(headers) > 0 && r.end-r.start <= minLeftover) || strings.TrimSpace(text[r.start:r.end]) == "" {
			continue
		}
		drafts = append(drafts, p.splitFallback(text, r.start, r.end)...)
	}

	drafts = p.resplitOversized(drafts)
	sort.SliceStable(drafts, func(i, j int) bool { return drafts[i].start < drafts[j].start })

	chunks := p.annotate(drafts, headers, pages, meta)
	if len(chunks) == 0 {
		return []domain.Chunk{FallbackChunk("no chunks produced", meta)}
	}

	if logger.IsVerbose() {
		counts := make(map[domain.ChunkType]int)
		for _, c := range chunks {
			counts[c.Type]++
		}
		logger.Debug("chunker: %d chunks (%d definition, %d table, %d content)",
			len(chunks), counts[domain.ChunkTypeDefinition], counts[domain.ChunkTypeTable], counts[domain.ChunkTypeContent])
	}
	return chunks
}

func (p *Processor) oversizeLimit() int {
	return int(float64(p.chunkSize) * p.oversize)
}

// chunkSection keeps a section whole when it fits, otherwise packs its
// paragraphs, falling back to sentences for oversized paragraphs.
func (p *Processor) chunkSection(text string, sec section, claimed *roaring.Bitmap) []draft {
	t := trim(text, piece{sec.start, sec.end})
	if t.end <= t.start {
		return nil
	}
	if claimedIn(claimed, sec.start, sec.end) == 0 && p.tokenizer.Count(text[t.start:t.end]) <= p.chunkSize {
		return []draft{{start: t.start, end: t.end, text: text[t.start:t.end]}}
	}

	var out []draft
	var run []piece
	flush := func() {
		out = append(out, p.accumulate(text, 0, run, "\n\n")...)
		run = nil
	}

	for _, para := range paragraphs(text, sec.start, sec.end) {
		if 2*claimedIn(claimed, para.start, para.end) >= uint64(para.end-para.start) {
			continue
		}
		if p.tokenizer.Count(text[para.start:para.end]) > p.chunkSize {
			flush()
			out = append(out, p.accumulate(text, 0, sentences(text, para.start, para.end), " ")...)
			continue
		}
		run = append(run, para)
	}
	flush()
	return out
}

// resplitOversized splits drafts over the oversize limit by sentence, then
// by word, then by raw budget windows.
func (p *Processor) resplitOversized(drafts []draft) []draft {
	limit := p.oversizeLimit()
	out := make([]draft, 0, len(drafts))
	for _, d := range drafts {
		if p.tokenizer.Count(d.text) <= limit {
			out = append(out, d)
			continue
		}
		logger.Debug("chunker: chunk at %d oversized, splitting", d.start)

		src := d.text
		for _, s := range p.accumulate(src, 0, sentences(src, 0, len(src)), " ") {
			parts := []draft{s}
			if p.tokenizer.Count(s.text) > p.chunkSize {
				parts = p.accumulate(src, 0, words(src, s.start, s.end), " ")
			}
			for _, w := range parts {
				pieces := []draft{w}
				if p.tokenizer.Count(w.text) > limit {
					pieces = p.splitFallback(src, w.start, w.end)
				}
				for _, x := range pieces {
					x.start += d.start
					x.end += d.start
					x.preserved = d.preserved
					x.resplit = true
					out = append(out, x)
				}
			}
		}
	}
	return out
}

// claimedIn counts claimed offsets in [start, end).
func claimedIn(bm *roaring.Bitmap, start, end int) uint64 {
	if end <= start {
		return 0
	}
	n := bm.Rank(uint32(end - 1))
	if start > 0 {
		n -= bm.Rank(uint32(start - 1))
	}
	return n
}

// unclaimed returns the maximal unclaimed ranges of [0, n).
func unclaimed(bm *roaring.Bitmap, n int) []piece {
	var out []piece
	from := -1
	for i := 0; i < n; i++ {
		if bm.Contains(uint32(i)) {
			if from >= 0 {
				out = append(out, piece{from, i})
				from = -1
			}
			continue
		}
		if from < 0 {
			from = i
		}
	}
	if from >= 0 {
		out = append(out, piece{from, n})
	}
	return out
}

// FallbackChunk returns the single diagnostic chunk used when a document
// yields no retrievable text.
func FallbackChunk(reason string, meta map[string]string) domain.Chunk {
	c := domain.FallbackChunk(reason, meta)
	c.TokenCount = NewHeuristicTokenizer().Count(c.Text)
	return c
}
