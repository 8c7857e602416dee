package chunker

import (
	"unicode"
	"unicode/utf8"
)

// DefaultTokenMultiplier inflates heuristic counts so budgets hold for
// embedding models whose vocabularies split text more finely than cl100k.
const DefaultTokenMultiplier = 1.2

// HeuristicTokenizer approximates cl100k token counts without a vocabulary.
// Latin words cost one token per six letters, digit runs one token per
// three digits, other scripts one token per two runes, and every
// punctuation or symbol rune one token.
type HeuristicTokenizer struct {
	Multiplier float64
}

// NewHeuristicTokenizer returns a tokenizer using DefaultTokenMultiplier.
func NewHeuristicTokenizer() HeuristicTokenizer {
	return HeuristicTokenizer{Multiplier: DefaultTokenMultiplier}
}

// Count returns the estimated token count of text.
func (t HeuristicTokenizer) Count(text string) int {
	base := 0
	letters, digits := 0, 0
	wide := false

	flush := func() {
		if letters > 0 {
			if wide {
				base += (letters + 1) / 2
			} else {
				base += (letters + 5) / 6
			}
		}
		if digits > 0 {
			base += (digits + 2) / 3
		}
		letters, digits, wide = 0, 0, false
	}

	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		i += size
		switch {
		case unicode.IsLetter(r) || unicode.Is(unicode.Mn, r) || unicode.Is(unicode.Mc, r):
			if digits > 0 {
				flush()
			}
			letters++
			if r > unicode.MaxLatin1 {
				wide = true
			}
		case unicode.IsDigit(r):
			if letters > 0 {
				flush()
			}
			digits++
		case unicode.IsSpace(r):
			flush()
		default:
			flush()
			base++
		}
	}
	flush()

	mult := t.Multiplier
	if mult <= 0 {
		mult = 1
	}
	return int(float64(base) * mult)
}
