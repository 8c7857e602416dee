package extractors

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// PageMarker returns the line that opens page n.
func PageMarker(n int) string {
	return fmt.Sprintf("--- Page %d ---", n)
}

var pageMarkerPattern = regexp.MustCompile(`(?m)^--- Page \d+ ---$`)

// CountPages returns the number of page markers in text, at least 1.
func CountPages(text string) int {
	return max(1, len(pageMarkerPattern.FindAllStringIndex(text, -1)))
}

// MarkFormFeeds replaces form feeds with page markers. Text without form
// feeds is returned unchanged.
func MarkFormFeeds(text string) string {
	if !strings.Contains(text, "\f") {
		return text
	}
	pages := strings.Split(text, "\f")
	var b strings.Builder
	n := 0
	for _, page := range pages {
		page = strings.Trim(page, "\n")
		if strings.TrimSpace(page) == "" {
			continue
		}
		n++
		if n > 1 {
			b.WriteString("\n\n")
		}
		b.WriteString(PageMarker(n))
		b.WriteByte('\n')
		b.WriteString(page)
	}
	return b.String()
}

// TitleFromFilename turns "policy_wording-2024.pdf" into "policy wording 2024".
func TitleFromFilename(name string) string {
	base := filepath.Base(name)
	if base == "." || base == "/" {
		return ""
	}
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return strings.NewReplacer("_", " ", "-", " ").Replace(base)
}

// Extension returns the lower-case extension of name, with dot.
func Extension(name string) string {
	if i := strings.IndexAny(name, "?#"); i >= 0 && strings.Contains(name, "://") {
		name = name[:i]
	}
	return strings.ToLower(filepath.Ext(name))
}
