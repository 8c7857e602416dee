package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

type fakeQuestionLog struct {
	mu       sync.Mutex
	sessions []domain.QuestionSession
	entries  []domain.QuestionEntry
	logErr   error
	cutoff   time.Time
}

func (f *fakeQuestionLog) StartSession(_ context.Context, s domain.QuestionSession) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = append(f.sessions, s)
	return s.ID, nil
}

func (f *fakeQuestionLog) LogQuestion(_ context.Context, e domain.QuestionEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.logErr != nil {
		return f.logErr
	}
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeQuestionLog) Sessions(_ context.Context, _ int) ([]domain.QuestionSession, error) {
	return f.sessions, nil
}

func (f *fakeQuestionLog) Questions(_ context.Context, _ string) ([]domain.QuestionEntry, error) {
	return f.entries, nil
}

func (f *fakeQuestionLog) Prune(_ context.Context, before time.Time) (int, error) {
	f.cutoff = before
	return 2, nil
}

func (f *fakeQuestionLog) Close() error { return nil }

func TestQuestionLogService_RecordsSession(t *testing.T) {
	log := &fakeQuestionLog{}
	svc := NewQuestionLogService(log, domain.QuestionLogSettings{Enabled: true, RetentionDays: 30})
	ctx := context.Background()

	sess, err := svc.Start(ctx, "doc1", testLocator, map[string]string{"source": "cli"})
	require.NoError(t, err)
	require.NotEmpty(t, sess.ID())
	require.Len(t, log.sessions, 1)
	assert.Equal(t, "doc1", log.sessions[0].DocID)

	sess.Record(ctx, "What is covered?", &domain.Answer{
		Text:    "Hospitalisation.",
		Sources: []domain.Source{{Distance: 0.2}, {Distance: 0.4}},
		Timings: domain.Timings{Total: time.Second},
	})
	sess.Record(ctx, "Grace period?", &domain.Answer{Text: "30 days", Cached: true})
	sess.Record(ctx, "ignored", nil)

	require.Len(t, log.entries, 2)
	first := log.entries[0]
	assert.Equal(t, sess.ID(), first.SessionID)
	assert.Equal(t, 1, first.Seq)
	assert.Equal(t, 2, first.Sources)
	assert.Equal(t, []float64{0.2, 0.4}, first.Distances)
	assert.Equal(t, time.Second, first.Duration)
	assert.Equal(t, 2, log.entries[1].Seq)
	assert.True(t, log.entries[1].Cached)
}

func TestQuestionLogService_Disabled(t *testing.T) {
	log := &fakeQuestionLog{}
	svc := NewQuestionLogService(log, domain.QuestionLogSettings{Enabled: false})

	sess, err := svc.Start(context.Background(), "doc1", testLocator, nil)
	require.NoError(t, err)
	assert.Empty(t, sess.ID())
	sess.Record(context.Background(), "q", &domain.Answer{Text: "a"})

	assert.Empty(t, log.sessions)
	assert.Empty(t, log.entries)

	nilSvc := NewQuestionLogService(nil, domain.QuestionLogSettings{Enabled: true})
	sess, err = nilSvc.Start(context.Background(), "doc1", testLocator, nil)
	require.NoError(t, err)
	assert.Empty(t, sess.ID())
	_, err = nilSvc.Questions(context.Background(), "x")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestQuestionLogService_LogFailureIsSwallowed(t *testing.T) {
	log := &fakeQuestionLog{logErr: errors.New("disk full")}
	svc := NewQuestionLogService(log, domain.QuestionLogSettings{Enabled: true})

	sess, err := svc.Start(context.Background(), "doc1", testLocator, nil)
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		sess.Record(context.Background(), "q", &domain.Answer{Text: "a"})
	})
}

func TestQuestionLogService_Prune(t *testing.T) {
	log := &fakeQuestionLog{}
	svc := NewQuestionLogService(log, domain.QuestionLogSettings{Enabled: true, RetentionDays: 7})
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	n, err := svc.Prune(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, now.AddDate(0, 0, -7), log.cutoff)

	svc.settings.RetentionDays = 0
	n, err = svc.Prune(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}
