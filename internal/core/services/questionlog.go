package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure QuestionLogService implements the interface.
var _ driving.QuestionLogService = (*QuestionLogService)(nil)

// QuestionLogService records question sessions. A nil log or a disabled
// setting turns every operation into a no-op.
type QuestionLogService struct {
	log      driven.QuestionLog
	settings domain.QuestionLogSettings
	now      func() time.Time
}

// NewQuestionLogService creates a question log service.
func NewQuestionLogService(log driven.QuestionLog, settings domain.QuestionLogSettings) *QuestionLogService {
	return &QuestionLogService{log: log, settings: settings, now: time.Now}
}

func (s *QuestionLogService) enabled() bool {
	return s != nil && s.log != nil && s.settings.Enabled
}

// Start opens a session for a document.
func (s *QuestionLogService) Start(ctx context.Context, docID, locator string, metadata map[string]string) (driving.QuestionRecorder, error) {
	sess := &Session{svc: s}
	if !s.enabled() {
		return sess, nil
	}
	id, err := s.log.StartSession(ctx, domain.QuestionSession{
		ID:        uuid.NewString(),
		DocID:     docID,
		Locator:   locator,
		StartedAt: s.now(),
		Metadata:  metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("start question session: %w", err)
	}
	sess.id = id
	return sess, nil
}

// Sessions returns the most recent sessions.
func (s *QuestionLogService) Sessions(ctx context.Context, limit int) ([]domain.QuestionSession, error) {
	if s.log == nil {
		return nil, nil
	}
	return s.log.Sessions(ctx, limit)
}

// Questions returns the questions of a session.
func (s *QuestionLogService) Questions(ctx context.Context, sessionID string) ([]domain.QuestionEntry, error) {
	if s.log == nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, domain.ErrNotFound)
	}
	return s.log.Questions(ctx, sessionID)
}

// Prune removes sessions older than the retention window.
func (s *QuestionLogService) Prune(ctx context.Context) (int, error) {
	if s.log == nil || s.settings.RetentionDays <= 0 {
		return 0, nil
	}
	cutoff := s.now().AddDate(0, 0, -s.settings.RetentionDays)
	return s.log.Prune(ctx, cutoff)
}

// Session is an open question session.
type Session struct {
	svc *QuestionLogService
	id  string

	mu  sync.Mutex
	seq int
}

// ID returns the session id, empty when logging is disabled.
func (ss *Session) ID() string {
	return ss.id
}

// Record logs an answered question. Logging failures are reported but never
// affect the answer.
func (ss *Session) Record(ctx context.Context, question string, a *domain.Answer) {
	if ss.id == "" || a == nil {
		return
	}
	ss.mu.Lock()
	ss.seq++
	seq := ss.seq
	ss.mu.Unlock()

	distances := make([]float64, len(a.Sources))
	for i, src := range a.Sources {
		distances[i] = src.Distance
	}
	entry := domain.QuestionEntry{
		SessionID:  ss.id,
		Seq:        seq,
		Question:   question,
		Answer:     a.Text,
		Duration:   a.Timings.Total,
		Sources:    len(a.Sources),
		Distances:  distances,
		Cached:     a.Cached,
		ErrorClass: a.ErrorClass,
		AskedAt:    ss.svc.now(),
	}
	if err := ss.svc.log.LogQuestion(ctx, entry); err != nil {
		logger.Warn("question log: %v", err)
	}
}
