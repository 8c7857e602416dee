package plaintext

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

func TestExtractor_Extract(t *testing.T) {
	tests := []struct {
		name      string
		raw       domain.RawDocument
		wantText  string
		wantPages int
		format    string
	}{
		{
			name:      "plain text",
			raw:       domain.RawDocument{Filename: "notes.txt", Content: []byte("hello\r\nworld\n")},
			wantText:  "hello\nworld",
			wantPages: 1,
			format:    "text",
		},
		{
			name:      "form feeds become pages",
			raw:       domain.RawDocument{Filename: "a.txt", Content: []byte("one\fTwo\f\f")},
			wantText:  "--- Page 1 ---\none\n\n--- Page 2 ---\nTwo",
			wantPages: 2,
			format:    "text",
		},
		{
			name:      "csv",
			raw:       domain.RawDocument{Filename: "limits.csv", Content: []byte("Benefit,Limit\nRoom rent, 1%\n")},
			wantText:  "Benefit | Limit\nRoom rent | 1%",
			wantPages: 1,
			format:    "csv",
		},
		{
			name:      "tsv by mime",
			raw:       domain.RawDocument{MIMEType: "text/tab-separated-values", Content: []byte("a\tb\n")},
			wantText:  "a | b",
			wantPages: 1,
			format:    "tsv",
		},
		{
			name:      "json reindented",
			raw:       domain.RawDocument{Filename: "x.json", Content: []byte(`{"a":1}`)},
			wantText:  "{\n  \"a\": 1\n}",
			wantPages: 1,
			format:    "json",
		},
		{
			name:      "invalid json kept verbatim",
			raw:       domain.RawDocument{Filename: "x.json", Content: []byte(`{"a":`)},
			wantText:  `{"a":`,
			wantPages: 1,
			format:    "json",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := New().Extract(context.Background(), &tt.raw)

			require.NoError(t, err)
			assert.Equal(t, tt.wantText, doc.Text)
			assert.Equal(t, tt.wantPages, doc.Pages)
			assert.Equal(t, tt.format, doc.Metadata["format"])
		})
	}
}

func TestExtractor_RejectsBinary(t *testing.T) {
	_, err := New().Extract(context.Background(), &domain.RawDocument{Content: []byte{0xff, 0xfe, 0x00}})
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
}

func TestExtractor_Title(t *testing.T) {
	doc, err := New().Extract(context.Background(), &domain.RawDocument{Filename: "policy_terms-v2.txt", Content: []byte("x")})
	require.NoError(t, err)
	assert.Equal(t, "policy terms v2", doc.Title)
}
