package cli

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

func sampleRecords() []domain.DocumentRecord {
	return []domain.DocumentRecord{
		{
			ID:          "a1b2c3d4e5f60718",
			Title:       "Travel Policy",
			Locator:     "file:///docs/travel.pdf",
			Pages:       12,
			ChunkCount:  40,
			TotalTokens: 16000,
			IndexedAt:   time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
		},
	}
}

func TestDocumentsCmd_Empty(t *testing.T) {
	setupTestServices(t)

	out, _, err := executeCommand(t, "", "documents")

	require.NoError(t, err)
	assert.Contains(t, out, "No documents indexed")
}

func TestDocumentsCmd_List(t *testing.T) {
	ts := setupTestServices(t)
	ts.retrieval.documentsFunc = func(context.Context) ([]domain.DocumentRecord, error) {
		return sampleRecords(), nil
	}

	out, _, err := executeCommand(t, "", "docs")

	require.NoError(t, err)
	assert.Contains(t, out, "a1b2c3d4e5f60718  Travel Policy")
	assert.Contains(t, out, "Locator: file:///docs/travel.pdf")
	assert.Contains(t, out, "Pages: 12  Chunks: 40  Tokens: 16000  Indexed: 2026-03-01 09:30")
	assert.Contains(t, out, "Total: 1 documents")
}

func TestDocumentsCmd_JSON(t *testing.T) {
	ts := setupTestServices(t)
	ts.retrieval.documentsFunc = func(context.Context) ([]domain.DocumentRecord, error) {
		return sampleRecords(), nil
	}

	out, _, err := executeCommand(t, "", "documents", "--json")

	require.NoError(t, err)
	var docs []domain.DocumentRecord
	require.NoError(t, json.Unmarshal([]byte(out), &docs))
	require.Len(t, docs, 1)
	assert.Equal(t, "Travel Policy", docs[0].Title)
}

func TestRemoveCmd(t *testing.T) {
	tests := []struct {
		name    string
		removed bool
		want    string
	}{
		{"removed", true, "Removed document: d1"},
		{"unknown", false, "Document not found: d1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := setupTestServices(t)
			ts.retrieval.removeFunc = func(context.Context, string) (bool, error) {
				return tt.removed, nil
			}

			out, _, err := executeCommand(t, "", "remove", "d1")

			require.NoError(t, err)
			assert.Contains(t, out, tt.want)
			assert.Equal(t, []string{"d1"}, ts.retrieval.removed)
		})
	}
}

func TestRemoveCmd_RequiresID(t *testing.T) {
	setupTestServices(t)

	_, _, err := executeCommand(t, "", "remove")

	assert.Error(t, err)
}
