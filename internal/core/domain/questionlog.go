package domain

import "time"

// QuestionSession groups the questions asked about one document in one run.
type QuestionSession struct {
	ID        string            `json:"session_id"`
	DocID     string            `json:"doc_id"`
	Locator   string            `json:"document_url"`
	StartedAt time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Questions int               `json:"questions"`
}

// QuestionEntry is one logged question and its answer.
type QuestionEntry struct {
	SessionID  string        `json:"session_id"`
	Seq        int           `json:"question_id"`
	Question   string        `json:"question"`
	Answer     string        `json:"answer"`
	Duration   time.Duration `json:"processing_time"`
	Sources    int           `json:"sources_used"`
	Distances  []float64     `json:"similarity_scores"`
	Cached     bool          `json:"cached"`
	ErrorClass ErrorClass    `json:"error,omitempty"`
	AskedAt    time.Time     `json:"timestamp"`
}
