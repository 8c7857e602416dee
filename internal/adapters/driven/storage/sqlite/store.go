package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// DatabaseFile is the question log file name inside the data directory.
const DatabaseFile = "questions.db"

// Ensure Store implements the interface.
var _ driven.QuestionLog = (*Store)(nil)

// Store is the SQLite question log.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (creating if needed) the question log in dataDir.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		return nil, errors.New("sqlite: data directory is required")
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, DatabaseFile)

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: dbPath}
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate applies every .up.sql migration newer than the recorded version.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var current int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}
	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_questions.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil || version <= current {
			continue
		}
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(string(content)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %s: %w", name, err)
		}
	}
	return nil
}

// StartSession records a new session.
func (s *Store) StartSession(ctx context.Context, session domain.QuestionSession) (string, error) {
	if session.ID == "" {
		return "", fmt.Errorf("%w: session id is required", domain.ErrInvalidInput)
	}
	meta, err := json.Marshal(session.Metadata)
	if err != nil {
		return "", fmt.Errorf("marshalling metadata: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, doc_id, locator, started_at, metadata) VALUES (?, ?, ?, ?, ?)`,
		session.ID, session.DocID, session.Locator, session.StartedAt.UnixNano(), string(meta))
	if err != nil {
		return "", fmt.Errorf("inserting session: %w", err)
	}
	return session.ID, nil
}

// LogQuestion records one answered question.
func (s *Store) LogQuestion(ctx context.Context, e domain.QuestionEntry) error {
	distances, err := json.Marshal(e.Distances)
	if err != nil {
		return fmt.Errorf("marshalling distances: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO questions
			(session_id, seq, question, answer, duration_ms, sources, distances, cached, error_class, asked_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.SessionID, e.Seq, e.Question, e.Answer, e.Duration.Milliseconds(), e.Sources,
		string(distances), e.Cached, string(e.ErrorClass), e.AskedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("inserting question: %w", err)
	}
	return nil
}

// Sessions returns the most recent sessions, newest first, with their question counts.
func (s *Store) Sessions(ctx context.Context, limit int) ([]domain.QuestionSession, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.doc_id, s.locator, s.started_at, s.metadata, COUNT(q.seq)
		FROM sessions s
		LEFT JOIN questions q ON q.session_id = s.id
		GROUP BY s.id
		ORDER BY s.started_at DESC, s.id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var out []domain.QuestionSession
	for rows.Next() {
		var (
			sess    domain.QuestionSession
			started int64
			meta    string
		)
		if err := rows.Scan(&sess.ID, &sess.DocID, &sess.Locator, &started, &meta, &sess.Questions); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		sess.StartedAt = time.Unix(0, started)
		if err := json.Unmarshal([]byte(meta), &sess.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshalling metadata: %w", err)
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// Questions returns the questions of a session in order.
func (s *Store) Questions(ctx context.Context, sessionID string) ([]domain.QuestionEntry, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM sessions WHERE id = ?", sessionID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", sessionID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, question, answer, duration_ms, sources, distances, cached, error_class, asked_at
		FROM questions WHERE session_id = ? ORDER BY seq`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying questions: %w", err)
	}
	defer rows.Close()

	var out []domain.QuestionEntry
	for rows.Next() {
		var (
			e          domain.QuestionEntry
			durationMS int64
			distances  string
			errorClass string
			asked      int64
		)
		err := rows.Scan(&e.Seq, &e.Question, &e.Answer, &durationMS, &e.Sources, &distances,
			&e.Cached, &errorClass, &asked)
		if err != nil {
			return nil, fmt.Errorf("scanning question: %w", err)
		}
		e.SessionID = sessionID
		e.Duration = time.Duration(durationMS) * time.Millisecond
		e.ErrorClass = domain.ErrorClass(errorClass)
		e.AskedAt = time.Unix(0, asked)
		if err := json.Unmarshal([]byte(distances), &e.Distances); err != nil {
			return nil, fmt.Errorf("unmarshalling distances: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Prune deletes sessions started before the cutoff. Their questions go with them.
func (s *Store) Prune(ctx context.Context, before time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE started_at < ?", before.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("pruning sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
