package cli

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

func TestIngestCmd_NoService(t *testing.T) {
	_, _, err := executeCommand(t, "", "ingest", "a.md")

	assert.EqualError(t, err, "retrieval service not configured")
}

func TestIngestCmd_RequiresArgument(t *testing.T) {
	setupTestServices(t)

	_, _, err := executeCommand(t, "", "ingest")

	assert.Error(t, err)
}

func TestIngestCmd_Processed(t *testing.T) {
	ts := setupTestServices(t)
	ts.retrieval.processFunc = func(_ context.Context, locator string) (*domain.IngestResult, error) {
		return &domain.IngestResult{
			DocID:                "d1",
			Status:               domain.IngestStatusProcessed,
			Document:             &domain.DocumentRecord{Title: "Policy"},
			Chunks:               12,
			Tokens:               4800,
			PreservedDefinitions: 2,
			Timings:              domain.Timings{Total: 1200 * time.Millisecond, Embed: 800 * time.Millisecond},
		}, nil
	}

	out, _, err := executeCommand(t, "", "ingest", "https://example.com/policy.html")

	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/policy.html"}, ts.retrieval.processed)
	assert.Contains(t, out, "Policy [processed]")
	assert.Contains(t, out, "Doc ID: d1")
	assert.Contains(t, out, "Chunks: 12 (4800 tokens, 2 definitions)")
	assert.Contains(t, out, "Time: 1.2s")
	assert.Contains(t, out, "embed 800ms")
}

func TestIngestCmd_CachedHasNoTimings(t *testing.T) {
	ts := setupTestServices(t)
	ts.retrieval.processFunc = func(context.Context, string) (*domain.IngestResult, error) {
		return &domain.IngestResult{DocID: "d1", Status: domain.IngestStatusCached, Chunks: 4}, nil
	}

	out, _, err := executeCommand(t, "", "ingest", "https://example.com/a")

	require.NoError(t, err)
	assert.Contains(t, out, "[cached]")
	assert.NotContains(t, out, "Time:")
}

func TestIngestCmd_BarePathBecomesFileLocator(t *testing.T) {
	ts := setupTestServices(t)

	_, _, err := executeCommand(t, "", "ingest", "/tmp/docs/guide.md")

	require.NoError(t, err)
	assert.Equal(t, []string{"file:///tmp/docs/guide.md"}, ts.retrieval.processed)
}

func TestIngestCmd_PartialFailure(t *testing.T) {
	ts := setupTestServices(t)
	ts.retrieval.processFunc = func(_ context.Context, locator string) (*domain.IngestResult, error) {
		if strings.Contains(locator, "bad") {
			return nil, domain.ErrNotFound
		}
		return &domain.IngestResult{DocID: "ok", Status: domain.IngestStatusProcessed}, nil
	}

	out, errOut, err := executeCommand(t, "", "ingest", "https://x.org/good", "https://x.org/bad")

	require.Error(t, err)
	assert.Equal(t, "1 of 2 documents failed to ingest", err.Error())
	assert.Contains(t, errOut, "Failed to ingest https://x.org/bad")
	assert.Contains(t, out, "Doc ID: ok")
}

func TestIngestCmd_JSON(t *testing.T) {
	setupTestServices(t)

	out, _, err := executeCommand(t, "", "ingest", "--json", "https://x.org/a")

	require.NoError(t, err)
	var results []domain.IngestResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Equal(t, domain.IngestStatusProcessed, results[0].Status)
}

func TestIngestCmd_AllFail(t *testing.T) {
	ts := setupTestServices(t)
	ts.retrieval.processFunc = func(context.Context, string) (*domain.IngestResult, error) {
		return nil, errors.New("unsupported")
	}

	_, _, err := executeCommand(t, "", "ingest", "https://x.org/a")

	assert.EqualError(t, err, "1 of 1 documents failed to ingest")
}
