package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// QuestionLog persists question sessions and their answers.
type QuestionLog interface {
	// StartSession records a new session for a document and returns its id.
	StartSession(ctx context.Context, session domain.QuestionSession) (string, error)

	// LogQuestion records one answered question within a session.
	LogQuestion(ctx context.Context, entry domain.QuestionEntry) error

	// Sessions returns the most recent sessions, newest first.
	Sessions(ctx context.Context, limit int) ([]domain.QuestionSession, error)

	// Questions returns the questions of a session in order.
	Questions(ctx context.Context, sessionID string) ([]domain.QuestionEntry, error)

	// Prune deletes sessions older than the cutoff and returns how many were removed.
	Prune(ctx context.Context, before time.Time) (int, error)

	// Close releases resources.
	Close() error
}
