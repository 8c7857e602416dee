package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

func TestQuestionLog_Lifecycle(t *testing.T) {
	log := NewQuestionLog()
	ctx := context.Background()
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b"} {
		_, err := log.StartSession(ctx, domain.QuestionSession{ID: id, DocID: "d", StartedAt: base.Add(time.Duration(i) * time.Hour)})
		require.NoError(t, err)
	}
	_, err := log.StartSession(ctx, domain.QuestionSession{ID: "a"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	require.NoError(t, log.LogQuestion(ctx, domain.QuestionEntry{SessionID: "a", Seq: 2, Question: "second"}))
	require.NoError(t, log.LogQuestion(ctx, domain.QuestionEntry{SessionID: "a", Seq: 1, Question: "first"}))
	assert.ErrorIs(t, log.LogQuestion(ctx, domain.QuestionEntry{SessionID: "a", Seq: 1}), domain.ErrInvalidInput)
	assert.ErrorIs(t, log.LogQuestion(ctx, domain.QuestionEntry{SessionID: "zzz", Seq: 1}), domain.ErrNotFound)

	qs, err := log.Questions(ctx, "a")
	require.NoError(t, err)
	require.Len(t, qs, 2)
	assert.Equal(t, "first", qs[0].Question)

	sessions, err := log.Sessions(ctx, 1)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "b", sessions[0].ID)

	sessions, err = log.Sessions(ctx, 0)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, 2, sessions[1].Questions)

	n, err := log.Prune(ctx, base.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = log.Questions(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, log.Close())
}
