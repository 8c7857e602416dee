package mcp

import (
	"context"
	"sync"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	ingest    *domain.IngestResult
	answer    *domain.Answer
	docs      []domain.DocumentRecord
	stats     []domain.CacheStats
	removed   bool
	err       error
	ingested  []string
	asked     []domain.AskRequest
	batchDoc  string
	batchSize int
}

func (m *mockRetrievalService) ProcessDocument(_ context.Context, locator string) (*domain.IngestResult, error) {
	m.ingested = append(m.ingested, locator)
	return m.ingest, m.err
}

func (m *mockRetrievalService) AnswerQuestion(_ context.Context, req domain.AskRequest) (*domain.Answer, error) {
	m.asked = append(m.asked, req)
	return m.answer, m.err
}

func (m *mockRetrievalService) AnswerQuestions(_ context.Context, questions []string, docID string, _ int) ([]*domain.Answer, error) {
	m.batchDoc = docID
	m.batchSize = len(questions)
	if m.err != nil {
		return nil, m.err
	}
	out := make([]*domain.Answer, len(questions))
	for i, q := range questions {
		out[i] = &domain.Answer{Text: "answer to " + q, DocID: docID}
	}
	return out, nil
}

func (m *mockRetrievalService) RemoveDocument(_ context.Context, _ string) (bool, error) {
	return m.removed, m.err
}

func (m *mockRetrievalService) Documents(_ context.Context) ([]domain.DocumentRecord, error) {
	return m.docs, m.err
}

func (m *mockRetrievalService) CacheStats(_ context.Context) ([]domain.CacheStats, error) {
	return m.stats, m.err
}

func (m *mockRetrievalService) ClearCache(_ context.Context, _ domain.CacheType) (int, error) {
	return 0, m.err
}

func (m *mockRetrievalService) Stats(_ context.Context) (domain.VectorStoreStats, error) {
	return domain.VectorStoreStats{Documents: len(m.docs)}, m.err
}

func (m *mockRetrievalService) Health(_ context.Context) domain.Health {
	return domain.Health{Status: domain.HealthStatusHealthy, Components: map[string]string{"vector_store": "ok"}}
}

// mockQuestionLog is a mock implementation of driving.QuestionLogService.
type mockQuestionLog struct {
	mu       sync.Mutex
	docID    string
	recorded []string
	err      error
}

func (m *mockQuestionLog) Start(_ context.Context, docID, _ string, _ map[string]string) (driving.QuestionRecorder, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.docID = docID
	return &mockRecorder{log: m}, nil
}

func (m *mockQuestionLog) Sessions(_ context.Context, _ int) ([]domain.QuestionSession, error) {
	return nil, nil
}

func (m *mockQuestionLog) Questions(_ context.Context, _ string) ([]domain.QuestionEntry, error) {
	return nil, nil
}

func (m *mockQuestionLog) Prune(_ context.Context) (int, error) {
	return 0, nil
}

type mockRecorder struct {
	log *mockQuestionLog
}

func (r *mockRecorder) ID() string { return "session-1" }

func (r *mockRecorder) Record(_ context.Context, question string, _ *domain.Answer) {
	r.log.mu.Lock()
	defer r.log.mu.Unlock()
	r.log.recorded = append(r.log.recorded, question)
}
