package driving

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// QuestionLogService records and lists question sessions.
type QuestionLogService interface {
	// Start opens a session for a document. When logging is disabled the
	// returned recorder has an empty ID and records nothing.
	Start(ctx context.Context, docID, locator string, metadata map[string]string) (QuestionRecorder, error)

	// Sessions returns the most recent sessions, newest first.
	Sessions(ctx context.Context, limit int) ([]domain.QuestionSession, error)

	// Questions returns the questions of a session in order.
	Questions(ctx context.Context, sessionID string) ([]domain.QuestionEntry, error)

	// Prune removes sessions older than the retention window.
	Prune(ctx context.Context) (int, error)
}

// QuestionRecorder logs the answers of one open session.
type QuestionRecorder interface {
	ID() string
	Record(ctx context.Context, question string, answer *domain.Answer)
}
