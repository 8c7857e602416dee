package domain

import "time"

// Complexity is the lexical classification of a question.
type Complexity string

// Question complexities.
const (
	ComplexitySimple  Complexity = "simple"
	ComplexityMedium  Complexity = "medium"
	ComplexityComplex Complexity = "complex"
)

// AskRequest is a single question.
type AskRequest struct {
	// Question is the natural-language question.
	Question string

	// DocID restricts retrieval to one document. Empty searches everything.
	DocID string

	// K overrides the number of chunks retrieved. Zero selects k adaptively.
	K int
}

// Source is a chunk that was placed in the answer context.
type Source struct {
	Number        int       `json:"number"`
	DocID         string    `json:"doc_id"`
	ChunkID       int       `json:"chunk_id"`
	Page          int       `json:"page"`
	Heading       string    `json:"heading,omitempty"`
	SectionNumber string    `json:"section,omitempty"`
	Distance      float64   `json:"distance"`
	Score         float64   `json:"rerank_score"`
	Preview       string    `json:"text_preview"`
	Type          ChunkType `json:"chunk_type"`
}

// Timings records per-stage durations.
type Timings struct {
	Fetch     time.Duration `json:"fetch,omitempty"`
	Extract   time.Duration `json:"extract,omitempty"`
	Chunk     time.Duration `json:"chunk,omitempty"`
	Embed     time.Duration `json:"embed,omitempty"`
	Index     time.Duration `json:"index,omitempty"`
	Search    time.Duration `json:"search,omitempty"`
	Rerank    time.Duration `json:"rerank,omitempty"`
	Generate  time.Duration `json:"generate,omitempty"`
	CacheRead time.Duration `json:"cache_read,omitempty"`
	Total     time.Duration `json:"total"`
}

// Answer is the outcome of a question. Provider failures are reported in Error,
// never as a returned error.
type Answer struct {
	// Text is the generated answer, a canned message, or the error message.
	Text string `json:"answer"`

	// DocID is the document the answer is drawn from.
	DocID string `json:"doc_id"`

	// Sources lists the chunks placed in the context.
	Sources []Source `json:"sources"`

	// Retrieved is the number of chunks returned by the vector search.
	Retrieved int `json:"chunks_retrieved"`

	// Complexity is the question classification used for k selection.
	Complexity Complexity `json:"complexity,omitempty"`

	// K is the retrieval depth used.
	K int `json:"k,omitempty"`

	// Model is the LLM model that produced the answer.
	Model string `json:"model,omitempty"`

	// Provider is the LLM provider name.
	Provider string `json:"provider,omitempty"`

	// Cached is true when the answer came from the answer cache.
	Cached bool `json:"cached"`

	// Timings records per-stage durations.
	Timings Timings `json:"timings"`

	// Error is set when a provider failed.
	Error *ProviderError `json:"-"`

	// ErrorClass mirrors Error.Class for serialisation.
	ErrorClass ErrorClass `json:"error_class,omitempty"`
}

// Failed returns true if a provider error produced this answer.
func (a *Answer) Failed() bool {
	return a.Error != nil
}

// Canned answers.
const (
	// NoRelevantInformationAnswer is returned when retrieval finds nothing.
	NoRelevantInformationAnswer = "I couldn't find relevant information to answer your question."
)

// Health reports component status.
type Health struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
}

// Health statuses.
const (
	HealthStatusHealthy  = "healthy"
	HealthStatusDegraded = "degraded"
)
