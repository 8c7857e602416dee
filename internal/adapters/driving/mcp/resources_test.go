package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// Helper to create a ReadResourceRequest with the given URI.
func makeReadResourceRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func TestExtractDocumentID(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{"valid document URI", "docqa://documents/doc-456", "doc-456"},
		{"documents list", "docqa://documents", ""},
		{"invalid prefix", "file://documents/doc-456", ""},
		{"empty URI", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractDocumentID(tt.uri))
		})
	}
}

func TestServer_handleDocumentsResource(t *testing.T) {
	ctx := context.Background()

	t.Run("lists documents", func(t *testing.T) {
		retrieval := &mockRetrievalService{docs: []domain.DocumentRecord{
			{ID: "doc1", Title: "Policy", Locator: "/docs/policy.md", Pages: 3, ChunkCount: 12},
		}}
		server := newTestServer(t, retrieval, nil)

		result, err := server.handleDocumentsResource(ctx, makeReadResourceRequest("docqa://documents"))
		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "application/json", result.Contents[0].MIMEType)
		assert.Contains(t, result.Contents[0].Text, `"doc_id": "doc1"`)
		assert.Contains(t, result.Contents[0].Text, `"chunks": 12`)
	})

	t.Run("empty store gives empty list", func(t *testing.T) {
		server := newTestServer(t, &mockRetrievalService{}, nil)
		result, err := server.handleDocumentsResource(ctx, makeReadResourceRequest("docqa://documents"))
		require.NoError(t, err)
		assert.Equal(t, "[]", result.Contents[0].Text)
	})

	t.Run("returns error on list failure", func(t *testing.T) {
		server := newTestServer(t, &mockRetrievalService{err: errors.New("boom")}, nil)
		_, err := server.handleDocumentsResource(ctx, makeReadResourceRequest("docqa://documents"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "listing documents")
	})
}

func TestServer_handleDocumentResource(t *testing.T) {
	ctx := context.Background()
	retrieval := &mockRetrievalService{docs: []domain.DocumentRecord{
		{ID: "doc1", Title: "Policy"},
	}}
	server := newTestServer(t, retrieval, nil)

	t.Run("found", func(t *testing.T) {
		result, err := server.handleDocumentResource(ctx, makeReadResourceRequest("docqa://documents/doc1"))
		require.NoError(t, err)
		assert.Contains(t, result.Contents[0].Text, "Policy")
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := server.handleDocumentResource(ctx, makeReadResourceRequest("docqa://documents/nope"))
		assert.Error(t, err)
	})

	t.Run("invalid URI", func(t *testing.T) {
		_, err := server.handleDocumentResource(ctx, makeReadResourceRequest("docqa://other"))
		assert.Error(t, err)
	})
}

func TestServer_handleHealthResource(t *testing.T) {
	server := newTestServer(t, &mockRetrievalService{docs: []domain.DocumentRecord{{ID: "a"}}}, nil)

	result, err := server.handleHealthResource(context.Background(), makeReadResourceRequest("docqa://health"))
	require.NoError(t, err)
	assert.Contains(t, result.Contents[0].Text, `"status": "healthy"`)
	assert.Contains(t, result.Contents[0].Text, `"documents": 1`)
}
