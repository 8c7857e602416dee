package chunker

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// span is a claimed region of the source text.
type span struct {
	start, end int
	reason     string
}

var definitionSection = []*regexp.Regexp{
	regexp.MustCompile(`(?m)^[ \t]*\d+(?:\.\d+)*\.?[ \t]+["“]?[a-z][a-z \-']{1,60}["”]?:?[ \t]+(?:means|refers to|defined as|shall mean|includes)\b`),
	regexp.MustCompile(`(?m)^[ \t]*["“]?[a-z][a-z \-']{1,60}["”]?:?[ \t]+(?:means|refers to|defined as|shall mean|includes)\b`),
}

// High-value definitions that are worth keeping whole wherever they appear.
var importantDefinitions = []*regexp.Regexp{
	regexp.MustCompile(`(?is)grace period.{0,300}?means.{0,300}?(?:thirty|30)\s*days`),
	regexp.MustCompile(`(?is)waiting period.{0,300}?means.{0,300}?(?:years?|months?|days?)\b`),
	regexp.MustCompile(`(?is)pre[-\s]?existing.{0,40}?disease.{0,200}?means`),
}

const (
	lookBehind = 500
	lookAhead  = 800
)

func isDefinitionSection(text string, maxChars int) bool {
	if len(text) > maxChars {
		return false
	}
	lower := strings.ToLower(text)
	for _, re := range definitionSection {
		if re.MatchString(lower) {
			return true
		}
	}
	return false
}

// preservedSpans finds the definition regions that should become whole chunks.
// Overlapping regions are merged unless the merged region would exceed maxMerged.
func preservedSpans(text string, headers []header, maxPreserved, maxMerged int) []span {
	var spans []span

	for _, s := range sectionRanges(headers, len(text)) {
		if isDefinitionSection(text[s.start:s.end], maxPreserved) {
			spans = append(spans, span{start: s.start, end: s.end, reason: "definition section " + strings.TrimSpace(s.number+" "+s.heading)})
		}
	}

	for _, re := range importantDefinitions {
		for _, m := range re.FindAllStringIndex(text, -1) {
			start := sentenceStartBefore(text, m[0])
			end := sentenceEndAfter(text, m[1])
			if end-start <= maxPreserved && strings.TrimSpace(text[start:end]) != "" {
				spans = append(spans, span{start: start, end: end, reason: "important definition"})
			}
		}
	}

	return mergeSpans(spans, maxMerged)
}

// sentenceStartBefore walks back from pos to a paragraph break or sentence start.
func sentenceStartBefore(text string, pos int) int {
	floor := pos - lookBehind
	if floor < 0 {
		floor = 0
	}
	for i := pos; i > floor; i-- {
		if i >= 2 && text[i-2] == '\n' && text[i-1] == '\n' {
			return i
		}
		if i >= 2 && text[i-2] == '.' && text[i-1] == ' ' {
			r, _ := utf8.DecodeRuneInString(text[i:])
			if unicode.IsUpper(r) {
				return i
			}
		}
	}
	if floor == 0 {
		return 0
	}
	return pos
}

// sentenceEndAfter walks forward from pos to a paragraph break or sentence end.
func sentenceEndAfter(text string, pos int) int {
	ceil := pos + lookAhead
	if ceil > len(text) {
		ceil = len(text)
	}
	for i := pos; i < ceil; i++ {
		if strings.HasPrefix(text[i:], "\n\n") {
			return i
		}
		if text[i] == '.' {
			if i+1 >= len(text) || text[i+1] == '\n' {
				return i + 1
			}
			if text[i+1] == ' ' {
				if i+2 >= len(text) {
					return i + 1
				}
				r, _ := utf8.DecodeRuneInString(text[i+2:])
				if unicode.IsUpper(r) || r == '\n' {
					return i + 1
				}
			}
		}
	}
	if ceil == len(text) {
		return len(text)
	}
	return pos
}

func mergeSpans(spans []span, maxMerged int) []span {
	if len(spans) == 0 {
		return nil
	}
	sort.SliceStable(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	merged := []span{spans[0]}
	for _, s := range spans[1:] {
		last := &merged[len(merged)-1]
		if s.start > last.end {
			merged = append(merged, s)
			continue
		}
		end := s.end
		if last.end > end {
			end = last.end
		}
		if end-last.start <= maxMerged {
			last.end = end
			last.reason += "; " + s.reason
			continue
		}
		// Too large to merge: keep only the part not already claimed.
		if s.end > last.end {
			merged = append(merged, span{start: last.end, end: s.end, reason: s.reason})
		}
	}
	return merged
}
