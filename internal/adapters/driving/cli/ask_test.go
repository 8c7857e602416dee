package cli

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

func TestAskCmd_NoService(t *testing.T) {
	_, _, err := executeCommand(t, "", "ask", "why?")

	assert.EqualError(t, err, "retrieval service not configured")
}

func TestAskCmd_SingleQuestion(t *testing.T) {
	ts := setupTestServices(t)
	ts.retrieval.answerFunc = func(_ context.Context, req domain.AskRequest) (*domain.Answer, error) {
		return &domain.Answer{
			Text:      "The grace period is 30 days [1].",
			Retrieved: 35,
			K:         20,
			Model:     "gpt-4o-mini",
			Cached:    true,
			Timings:   domain.Timings{Total: 2 * time.Second},
			Sources: []domain.Source{
				{Number: 1, Page: 4, Heading: "Premiums", Preview: "A grace period of   thirty days"},
			},
		}, nil
	}

	out, _, err := executeCommand(t, "", "ask", "--doc", "d1", "-k", "20", "What is the grace period?")

	require.NoError(t, err)
	require.Len(t, ts.retrieval.asked, 1)
	assert.Equal(t, domain.AskRequest{Question: "What is the grace period?", DocID: "d1", K: 20}, ts.retrieval.asked[0])
	assert.Contains(t, out, "The grace period is 30 days [1].")
	assert.Contains(t, out, "[1] (p.4, Premiums) A grace period of thirty days")
	assert.Contains(t, out, "(35 chunks, k=20, 2s, cached, gpt-4o-mini)")
}

func TestAskCmd_NoSources(t *testing.T) {
	ts := setupTestServices(t)
	ts.retrieval.answerFunc = func(context.Context, domain.AskRequest) (*domain.Answer, error) {
		return &domain.Answer{Text: "yes", Sources: []domain.Source{{Number: 1, Preview: "hidden"}}}, nil
	}

	out, _, err := executeCommand(t, "", "ask", "--sources=false", "q")

	require.NoError(t, err)
	assert.NotContains(t, out, "Sources:")
	assert.NotContains(t, out, "hidden")
}

func TestAskCmd_MultipleQuestions(t *testing.T) {
	ts := setupTestServices(t)

	out, _, err := executeCommand(t, "", "ask", "first?", "second?")

	require.NoError(t, err)
	require.Len(t, ts.retrieval.asked, 2)
	assert.Contains(t, out, "Q1: first?")
	assert.Contains(t, out, "Q2: second?")
	assert.Contains(t, out, "answer: second?")
}

func TestAskCmd_FileIngestsFirst(t *testing.T) {
	ts := setupTestServices(t)

	_, _, err := executeCommand(t, "", "ask", "--file", "https://x.org/policy.pdf", "q")

	require.NoError(t, err)
	assert.Equal(t, []string{"https://x.org/policy.pdf"}, ts.retrieval.processed)
	require.Len(t, ts.retrieval.asked, 1)
	assert.Equal(t, domain.DocumentID("https://x.org/policy.pdf"), ts.retrieval.asked[0].DocID)
}

func TestAskCmd_FileIngestFails(t *testing.T) {
	ts := setupTestServices(t)
	ts.retrieval.processFunc = func(context.Context, string) (*domain.IngestResult, error) {
		return nil, domain.ErrNotFound
	}

	_, _, err := executeCommand(t, "", "ask", "--file", "https://x.org/missing", "q")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, ts.retrieval.asked)
}

func TestAskCmd_ServiceError(t *testing.T) {
	ts := setupTestServices(t)
	ts.retrieval.answerFunc = func(context.Context, domain.AskRequest) (*domain.Answer, error) {
		return nil, errors.New("index corrupt")
	}

	_, _, err := executeCommand(t, "", "ask", "q")

	assert.ErrorContains(t, err, "index corrupt")
}

func TestAskCmd_ProviderFailurePrinted(t *testing.T) {
	ts := setupTestServices(t)
	ts.retrieval.answerFunc = func(context.Context, domain.AskRequest) (*domain.Answer, error) {
		return &domain.Answer{
			Text:       "invalid API key",
			Error:      &domain.ProviderError{Class: domain.ErrorClassAuth},
			ErrorClass: domain.ErrorClassAuth,
		}, nil
	}

	out, _, err := executeCommand(t, "", "ask", "q")

	require.NoError(t, err)
	assert.Contains(t, out, "Error ("+string(domain.ErrorClassAuth)+"): invalid API key")
}

func TestAskCmd_JSON(t *testing.T) {
	setupTestServices(t)

	out, _, err := executeCommand(t, "", "ask", "--json", "q1", "q2")

	require.NoError(t, err)
	var got []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "q1", got[0]["question"])
	assert.Equal(t, "answer: q2", got[1]["answer"])
}

func TestAskCmd_RecordsSession(t *testing.T) {
	ts := setupTestServices(t)

	_, _, err := executeCommand(t, "", "ask", "--doc", "d9", "a?", "b?")

	require.NoError(t, err)
	require.Len(t, ts.questionLog.started, 1)
	assert.Equal(t, "d9", ts.questionLog.started[0]["doc"])
	assert.Equal(t, "cli", ts.questionLog.started[0]["client"])
	assert.Equal(t, []string{"a?", "b?"}, ts.questionLog.recorded)
}
