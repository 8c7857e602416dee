package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure QuestionLog implements the interface.
var _ driven.QuestionLog = (*QuestionLog)(nil)

// QuestionLog is an in-memory driven.QuestionLog. It is used when the
// SQLite log cannot be opened and in tests.
type QuestionLog struct {
	mu        sync.RWMutex
	sessions  map[string]domain.QuestionSession
	questions map[string][]domain.QuestionEntry
}

// NewQuestionLog creates an empty in-memory question log.
func NewQuestionLog() *QuestionLog {
	return &QuestionLog{
		sessions:  make(map[string]domain.QuestionSession),
		questions: make(map[string][]domain.QuestionEntry),
	}
}

// StartSession records a new session.
func (l *QuestionLog) StartSession(_ context.Context, session domain.QuestionSession) (string, error) {
	if session.ID == "" {
		return "", fmt.Errorf("%w: session id is required", domain.ErrInvalidInput)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.sessions[session.ID]; ok {
		return "", fmt.Errorf("%w: session %s already exists", domain.ErrInvalidInput, session.ID)
	}
	l.sessions[session.ID] = session
	return session.ID, nil
}

// LogQuestion records one answered question.
func (l *QuestionLog) LogQuestion(_ context.Context, entry domain.QuestionEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.sessions[entry.SessionID]; !ok {
		return fmt.Errorf("session %s: %w", entry.SessionID, domain.ErrNotFound)
	}
	for _, e := range l.questions[entry.SessionID] {
		if e.Seq == entry.Seq {
			return fmt.Errorf("%w: question %d already logged", domain.ErrInvalidInput, entry.Seq)
		}
	}
	l.questions[entry.SessionID] = append(l.questions[entry.SessionID], entry)
	return nil
}

// Sessions returns the most recent sessions, newest first.
func (l *QuestionLog) Sessions(_ context.Context, limit int) ([]domain.QuestionSession, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]domain.QuestionSession, 0, len(l.sessions))
	for id, s := range l.sessions {
		s.Questions = len(l.questions[id])
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.After(out[j].StartedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Questions returns the questions of a session in order.
func (l *QuestionLog) Questions(_ context.Context, sessionID string) ([]domain.QuestionEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if _, ok := l.sessions[sessionID]; !ok {
		return nil, fmt.Errorf("session %s: %w", sessionID, domain.ErrNotFound)
	}
	out := append([]domain.QuestionEntry(nil), l.questions[sessionID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

// Prune deletes sessions started before the cutoff.
func (l *QuestionLog) Prune(_ context.Context, before time.Time) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for id, s := range l.sessions {
		if s.StartedAt.Before(before) {
			delete(l.sessions, id)
			delete(l.questions, id)
			n++
		}
	}
	return n, nil
}

// Close is a no-op.
func (l *QuestionLog) Close() error {
	return nil
}
