package chunker

import (
	"math"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

var definitionMarkers = regexp.MustCompile(`(?i)\b(?:means|defined as|refers to|shall mean)\b`)

var brokenListItem = []*regexp.Regexp{
	regexp.MustCompile(`\n\s*\d+\.\s*$`),
	regexp.MustCompile(`\n\s*\(?[a-z]\)\s*$`),
}

var percentFigure = regexp.MustCompile(`\d+(?:\.\d+)?\s*%`)

var tableKeywords = []string{
	"plan a", "plan b", "sum insured", "sub-limit", "coverage", "benefit", "premium", "limit",
}

func hasDefinition(text string) bool {
	return definitionMarkers.MatchString(text)
}

// completeness scores how self-contained text is, from 0 to 1.
func completeness(text string, typ domain.ChunkType) float64 {
	t := strings.TrimSpace(text)
	if t == "" {
		return 0
	}
	score := 1.0
	if !strings.ContainsAny(t[len(t)-1:], ".!?:;") {
		score -= 0.3
	}
	first, _ := utf8.DecodeRuneInString(t)
	if unicode.IsLower(first) || strings.HasPrefix(text, " ") {
		score -= 0.2
	}
	for _, re := range brokenListItem {
		if re.MatchString(text) {
			score -= 0.2
			break
		}
	}
	if typ == domain.ChunkTypeDefinition && strings.Contains(strings.ToLower(t), "means") && strings.HasSuffix(t, ".") {
		score = 1
	}
	if score < 0 {
		return 0
	}
	return score
}

// detectTable reports whether text looks tabular and what gave it away.
func detectTable(text string) (*domain.TableInfo, bool) {
	lines := strings.Split(text, "\n")
	if len(lines) < 2 {
		return nil, false
	}

	info := &domain.TableInfo{PercentageCount: len(percentFigure.FindAllStringIndex(text, -1))}
	var percentLines, keywordLines, separated int
	for _, line := range lines {
		lower := strings.ToLower(line)
		if strings.Contains(line, "%") {
			percentLines++
		}
		for _, kw := range tableKeywords {
			if strings.Contains(lower, kw) {
				keywordLines++
				info.KeywordCount++
				break
			}
		}
		if strings.Contains(strings.TrimSpace(line), "  ") {
			info.AlignedLines++
		}
		if strings.Count(line, "|") >= 2 || strings.Contains(line, "\t") {
			separated++
		}
	}

	score := 0
	if percentLines >= 2 {
		score += 2
	}
	if keywordLines >= 2 {
		score++
	}
	if info.AlignedLines >= 2 && info.AlignedLines >= len(lines)/2 {
		score++
	}
	if separated >= 2 {
		score += 2
	}
	if score < 2 {
		return nil, false
	}
	return info, true
}

// annotate turns drafts into chunks with positional and structural metadata.
func (p *Processor) annotate(drafts []draft, headers []header, pages pageMap, meta map[string]string) []domain.Chunk {
	chunks := make([]domain.Chunk, 0, len(drafts))
	for i, d := range drafts {
		c := domain.Chunk{
			ID:         i,
			Text:       strings.TrimSpace(d.text),
			TokenCount: p.tokenizer.Count(d.text),
			Start:      d.start,
			End:        d.end,
			Page:       pages.pageAt(d.start),
			Type:       domain.ChunkTypeContent,
			Metadata:   copyMeta(meta),
		}
		if d.preserved {
			c.Type = domain.ChunkTypeDefinition
		}
		if h := headerAt(headers, d.start); h >= 0 {
			c.SectionNumber = headers[h].number
			c.Heading = headers[h].heading
		}
		c.SectionPath = sectionPath(headers, d.start)
		c.Hierarchy = strings.Join(c.SectionPath, " > ")
		c.HasDefinition = hasDefinition(c.Text)
		c.Completeness = completeness(d.text, c.Type)
		if d.resplit {
			c.Completeness = math.Max(0.5, c.Completeness-0.3)
		}
		if table, ok := detectTable(c.Text); ok {
			c.Table = table
			c.Type = domain.ChunkTypeTable
		}
		chunks = append(chunks, c)
	}
	return chunks
}

func copyMeta(meta map[string]string) map[string]string {
	if len(meta) == 0 {
		return nil
	}
	out := make(map[string]string, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}
