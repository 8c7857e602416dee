package chunker

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

type headerKind int

const (
	kindNumbered headerKind = iota // 1., 2.3, 4.1.2
	kindSubItem                    // (a), (iv), a)
	kindPart                       // schedule, appendix, article...
	kindDefinition                 // "Term" means
	kindCaps                       // ALL CAPS HEADING
)

// header is a detected section boundary.
type header struct {
	offset  int
	number  string
	heading string
	kind    headerKind
}

type headerPattern struct {
	re   *regexp.Regexp
	kind headerKind
}

// Patterns are tried in order; the first match at a given offset wins.
var headerPatterns = []headerPattern{
	{regexp.MustCompile(`(?m)^[ \t]*(\d+(?:\.\d+)+)\.?[ \t]+(\S[^\n]*)$`), kindNumbered},
	{regexp.MustCompile(`(?mi)^[ \t]*(\d+)\.[ \t]+([a-z][a-z ,&'\-]*[a-z])[ \t]*$`), kindNumbered},
	{regexp.MustCompile(`(?m)^[ \t]*\(([ivx]+)\)[ \t]+(\S[^\n]*)$`), kindSubItem},
	{regexp.MustCompile(`(?m)^[ \t]*\(([a-z])\)[ \t]+(\S[^\n]*)$`), kindSubItem},
	{regexp.MustCompile(`(?m)^[ \t]*([a-z])\)[ \t]+(\S[^\n]*)$`), kindSubItem},
	{regexp.MustCompile(`(?mi)^[ \t]*((?:schedule|appendix|annexure|annex|section|article|part)[ \t]+[a-z0-9]+)[ \t]*[:.\-]?[ \t]*([^\n]*)$`), kindPart},
	{regexp.MustCompile(`(?m)^[ \t]*["“]([^"”\n]{2,80})["”][ \t]+(?:means|shall mean|refers to)\b`), kindDefinition},
	{regexp.MustCompile(`(?m)^[ \t]*([A-Z][A-Z0-9 &,/\-]{3,80}[A-Z0-9])[ \t]*$`), kindCaps},
}

var pageMarker = regexp.MustCompile(`--- Page (\d+) ---`)

// detectHeaders returns the section boundaries in text ordered by offset.
func detectHeaders(text string) []header {
	byOffset := make(map[int]header)
	for _, p := range headerPatterns {
		for _, m := range p.re.FindAllStringSubmatchIndex(text, -1) {
			offset := m[0]
			if _, taken := byOffset[offset]; taken {
				continue
			}
			h := header{offset: offset, kind: p.kind}
			switch p.kind {
			case kindDefinition:
				h.heading = strings.TrimSpace(text[m[2]:m[3]])
			case kindCaps:
				h.heading = strings.TrimSpace(text[m[2]:m[3]])
				if pageMarker.MatchString(h.heading) {
					continue
				}
			default:
				h.number = strings.TrimRight(strings.TrimSpace(text[m[2]:m[3]]), ".")
				if len(m) > 5 && m[4] >= 0 {
					h.heading = strings.TrimSpace(text[m[4]:m[5]])
				}
			}
			byOffset[offset] = h
		}
	}

	headers := make([]header, 0, len(byOffset))
	for _, h := range byOffset {
		headers = append(headers, h)
	}
	sort.Slice(headers, func(i, j int) bool { return headers[i].offset < headers[j].offset })
	return headers
}

// pageMap records where each "--- Page N ---" marker starts.
type pageMap struct {
	offsets []int
	pages   []int
}

func buildPageMap(text string) pageMap {
	var pm pageMap
	for _, m := range pageMarker.FindAllStringSubmatchIndex(text, -1) {
		n, err := strconv.Atoi(text[m[2]:m[3]])
		if err != nil {
			continue
		}
		pm.offsets = append(pm.offsets, m[0])
		pm.pages = append(pm.pages, n)
	}
	return pm
}

// pageAt returns the page containing offset. Text before the first marker is page 1.
func (pm pageMap) pageAt(offset int) int {
	i := sort.SearchInts(pm.offsets, offset+1) - 1
	if i < 0 {
		return 1
	}
	return pm.pages[i]
}

// count returns the number of distinct pages seen, at least 1.
func (pm pageMap) count() int {
	highest := 1
	for _, p := range pm.pages {
		if p > highest {
			highest = p
		}
	}
	return highest
}

// headerAt returns the index of the last header starting at or before offset, or -1.
func headerAt(headers []header, offset int) int {
	return sort.Search(len(headers), func(i int) bool { return headers[i].offset > offset }) - 1
}

// sectionPath returns the ancestor path for the section containing offset,
// outermost first, e.g. ["4", "4.1", "4.1.2"] or ["4.1", "a"].
func sectionPath(headers []header, offset int) []string {
	last := headerAt(headers, offset)
	var base []string
	var sub string
	for i := 0; i <= last; i++ {
		h := headers[i]
		switch h.kind {
		case kindNumbered:
			base = numberPrefixes(h.number)
			sub = ""
		case kindPart:
			base = []string{h.number}
			sub = ""
		case kindSubItem:
			sub = h.number
		}
	}
	if sub != "" {
		return append(append([]string(nil), base...), sub)
	}
	return base
}

// numberPrefixes expands "4.1.2" into ["4", "4.1", "4.1.2"].
func numberPrefixes(number string) []string {
	parts := strings.Split(number, ".")
	out := make([]string, 0, len(parts))
	for i := range parts {
		out = append(out, strings.Join(parts[:i+1], "."))
	}
	return out
}

// section is a span of text between two consecutive headers.
type section struct {
	start, end int
	number     string
	heading    string
}

func sectionRanges(headers []header, textLen int) []section {
	out := make([]section, 0, len(headers))
	for i, h := range headers {
		end := textLen
		if i+1 < len(headers) {
			end = headers[i+1].offset
		}
		out = append(out, section{start: h.offset, end: end, number: h.number, heading: h.heading})
	}
	return out
}
