package chunker

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// piece is a [start, end) range relative to some source string.
type piece struct {
	start, end int
}

// draft is a chunk before annotation. start and end are offsets in the full text.
type draft struct {
	start, end int
	text       string
	preserved  bool
	resplit    bool
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f' || b == '\v'
}

// trim shrinks p so it neither starts nor ends with whitespace.
func trim(src string, p piece) piece {
	for p.start < p.end && isSpace(src[p.start]) {
		p.start++
	}
	for p.end > p.start && isSpace(src[p.end-1]) {
		p.end--
	}
	return p
}

// paragraphs splits src[start:end] on blank lines.
func paragraphs(src string, start, end int) []piece {
	var out []piece
	from := start
	for i := start; i < end; i++ {
		if src[i] != '\n' {
			continue
		}
		j := i + 1
		for j < end && (src[j] == ' ' || src[j] == '\t' || src[j] == '\r') {
			j++
		}
		if j < end && src[j] == '\n' {
			if p := trim(src, piece{from, i}); p.end > p.start {
				out = append(out, p)
			}
			from = j + 1
			i = j
		}
	}
	if p := trim(src, piece{from, end}); p.end > p.start {
		out = append(out, p)
	}
	return out
}

// sentences splits src[start:end] after terminal punctuation that is followed
// by a newline, or by a space and an upper-case letter.
func sentences(src string, start, end int) []piece {
	var out []piece
	from := start
	for i := start; i < end; i++ {
		c := src[i]
		if c != '.' && c != '!' && c != '?' {
			continue
		}
		boundary := false
		switch {
		case i+1 >= end:
		case src[i+1] == '\n':
			boundary = true
		case src[i+1] == ' ' && i+2 < end:
			r, _ := utf8.DecodeRuneInString(src[i+2:])
			boundary = unicode.IsUpper(r)
		}
		if boundary {
			if p := trim(src, piece{from, i + 1}); p.end > p.start {
				out = append(out, p)
			}
			from = i + 1
		}
	}
	if p := trim(src, piece{from, end}); p.end > p.start {
		out = append(out, p)
	}
	return out
}

// words splits src[start:end] on whitespace.
func words(src string, start, end int) []piece {
	var out []piece
	from := -1
	for i := start; i < end; i++ {
		if isSpace(src[i]) {
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
		out = append(out, piece{from, end})
	}
	return out
}

// accumulate greedily packs pieces into drafts within the token budget,
// joining pieces with sep. A piece that alone exceeds the budget becomes its
// own draft; the post-pass re-splits it.
func (p *Processor) accumulate(src string, base int, pieces []piece, sep string) []draft {
	var out []draft
	var b strings.Builder
	cur := draft{start: -1}

	flush := func() {
		if cur.start >= 0 {
			cur.text = b.String()
			out = append(out, cur)
		}
		b.Reset()
		cur = draft{start: -1}
	}

	for _, pc := range pieces {
		text := src[pc.start:pc.end]
		if cur.start >= 0 && p.tokenizer.Count(b.String()+sep+text) > p.chunkSize {
			flush()
		}
		if cur.start < 0 {
			cur.start = base + pc.start
		} else {
			b.WriteString(sep)
		}
		b.WriteString(text)
		cur.end = base + pc.end
	}
	flush()
	return out
}

// splitFallback cuts src[start:end] into budget-sized windows, preferring
// paragraph, line, sentence and word boundaries, advancing with overlap.
func (p *Processor) splitFallback(src string, start, end int) []draft {
	var out []draft
	pos := start
	for pos < end && isSpace(src[pos]) {
		pos++
	}
	for pos < end {
		cut := p.largestPrefix(src, pos, end)
		cut = breakPoint(src, pos, cut, end)

		if t := trim(src, piece{pos, cut}); t.end > t.start {
			out = append(out, draft{start: t.start, end: t.end, text: src[t.start:t.end]})
		}
		if cut >= end {
			break
		}

		overlap := (cut - pos) / 4
		if limit := p.overlap * 4; overlap > limit {
			overlap = limit
		}
		next := cut - overlap
		for next < cut && next > 0 && !isSpace(src[next-1]) {
			next++
		}
		if next <= pos {
			next = cut
		}
		pos = next
		for pos < end && isSpace(src[pos]) {
			pos++
		}
	}
	return out
}

// largestPrefix returns the largest end in (pos, limit] such that
// src[pos:end] fits the token budget, aligned to a rune boundary.
func (p *Processor) largestPrefix(src string, pos, limit int) int {
	hi := pos + p.chunkSize*8
	if hi > limit {
		hi = limit
	}
	if p.tokenizer.Count(src[pos:hi]) <= p.chunkSize {
		return hi
	}
	lo := pos + 1
	best := lo
	for lo <= hi {
		mid := (lo + hi) / 2
		if p.tokenizer.Count(src[pos:mid]) <= p.chunkSize {
			best = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	for best < limit && !utf8.RuneStart(src[best]) {
		best++
	}
	return best
}

const breakWindow = 200

// breakPoint moves cut back to the nicest boundary within breakWindow bytes.
func breakPoint(src string, pos, cut, end int) int {
	if cut >= end {
		return end
	}
	floor := cut - breakWindow
	if floor <= pos {
		floor = pos + 1
	}
	for i := cut - 1; i >= floor; i-- {
		if src[i] == '\n' && i+1 < len(src) && src[i+1] == '\n' {
			return i
		}
	}
	for i := cut - 1; i >= floor; i-- {
		if src[i] == '\n' {
			return i + 1
		}
	}
	for i := cut - 1; i >= floor; i-- {
		if src[i] == '.' && i+1 < len(src) && src[i+1] == ' ' {
			return i + 1
		}
	}
	for i := cut - 1; i >= floor; i-- {
		if src[i] == ' ' {
			return i
		}
	}
	return cut
}
