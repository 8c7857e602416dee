package cli

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeLocator(t *testing.T) {
	tests := []struct {
		name string
		arg  string
		want string
	}{
		{"url unchanged", "https://example.com/a.html", "https://example.com/a.html"},
		{"file uri unchanged", "file:///tmp/a.md", "file:///tmp/a.md"},
		{"absolute path", "/tmp/a.md", "file:///tmp/a.md"},
		{"trimmed", "  /tmp/b.md ", "file:///tmp/b.md"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeLocator(tt.arg))
		})
	}
}

func TestNormalizeLocator_RelativeBecomesAbsolute(t *testing.T) {
	got := normalizeLocator("docs/a.md")

	assert.True(t, strings.HasPrefix(got, "file:///"))
	assert.True(t, strings.HasSuffix(got, "/docs/a.md"))
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "-"},
		{-time.Second, "-"},
		{500 * time.Microsecond, "500µs"},
		{1234567 * time.Microsecond, "1.235s"},
		{42 * time.Millisecond, "42ms"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, formatDuration(tt.d))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "a b c", truncate("a\n  b\tc", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
	assert.Equal(t, "héll…", truncate("héllo wörld", 5))
}
