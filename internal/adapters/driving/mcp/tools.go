package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/logger"
)

// IngestInput is the input schema for the ingest_document tool.
type IngestInput struct {
	Locator string `json:"locator" jsonschema:"file path, file:// URI or http(s) URL of the document"`
}

// IngestOutput is the output schema for the ingest_document tool.
type IngestOutput struct {
	DocID       string `json:"doc_id"`
	Status      string `json:"status"`
	Title       string `json:"title"`
	Chunks      int    `json:"chunks"`
	Tokens      int    `json:"tokens"`
	Definitions int    `json:"preserved_definitions"`
	Message     string `json:"message"`
}

// AnswerInput is the input schema for the answer_question tool.
type AnswerInput struct {
	Question string `json:"question" jsonschema:"the question to answer"`
	DocID    string `json:"doc_id,omitempty" jsonschema:"restrict retrieval to this document"`
	Locator  string `json:"locator,omitempty" jsonschema:"ingest this document first and restrict retrieval to it"`
	K        int    `json:"k,omitempty" jsonschema:"number of chunks to retrieve (0 = adaptive)"`
}

// AnswersInput is the input schema for the answer_questions tool.
type AnswersInput struct {
	Questions []string `json:"questions" jsonschema:"the questions to answer"`
	DocID     string   `json:"doc_id,omitempty" jsonschema:"restrict retrieval to this document"`
	Locator   string   `json:"locator,omitempty" jsonschema:"ingest this document first and restrict retrieval to it"`
	K         int      `json:"k,omitempty" jsonschema:"number of chunks to retrieve (0 = adaptive)"`
}

// AnswerOutput is the output schema for one answered question.
type AnswerOutput struct {
	Question   string         `json:"question"`
	Answer     string         `json:"answer"`
	DocID      string         `json:"doc_id,omitempty"`
	Cached     bool           `json:"cached"`
	ErrorClass string         `json:"error_class,omitempty"`
	Sources    []SourceOutput `json:"sources,omitempty"`
}

// AnswersOutput is the output schema for the answer_questions tool.
type AnswersOutput struct {
	Answers []AnswerOutput `json:"answers"`
}

// SourceOutput is a cited chunk.
type SourceOutput struct {
	Number  int     `json:"number"`
	Page    int     `json:"page"`
	Heading string  `json:"heading,omitempty"`
	Score   float64 `json:"score"`
	Preview string  `json:"preview"`
}

// CacheStatsInput is the (empty) input schema for the cache_stats tool.
type CacheStatsInput struct{}

// CacheStatsOutput is the output schema for the cache_stats tool.
type CacheStatsOutput struct {
	Caches []domain.CacheStats `json:"caches"`
}

// RemoveInput is the input schema for the remove_document tool.
type RemoveInput struct {
	DocID string `json:"doc_id" jsonschema:"id of the document to remove"`
}

// RemoveOutput is the output schema for the remove_document tool.
type RemoveOutput struct {
	Removed bool `json:"removed"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ingest_document",
		Description: "Fetch, chunk and index a document so questions can be asked about it",
	}, s.handleIngest)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "answer_question",
		Description: "Answer a question from the indexed documents, citing sources",
	}, s.handleAnswer)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "answer_questions",
		Description: "Answer several questions about one document concurrently",
	}, s.handleAnswers)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "cache_stats",
		Description: "Report hit, miss and size counters for every cache tier",
	}, s.handleCacheStats)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "remove_document",
		Description: "Remove a document from the index and drop its cached answers",
	}, s.handleRemove)
}

func (s *Server) handleIngest(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestInput,
) (*mcp.CallToolResult, IngestOutput, error) {
	res, err := s.ports.Retrieval.ProcessDocument(ctx, input.Locator)
	if err != nil {
		return nil, IngestOutput{}, err
	}
	out := IngestOutput{
		DocID:       res.DocID,
		Status:      string(res.Status),
		Chunks:      res.Chunks,
		Tokens:      res.Tokens,
		Definitions: res.PreservedDefinitions,
		Message:     res.Message,
	}
	if res.Document != nil {
		out.Title = res.Document.Title
	}
	return nil, out, nil
}

func (s *Server) handleAnswer(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AnswerInput,
) (*mcp.CallToolResult, AnswerOutput, error) {
	if strings.TrimSpace(input.Question) == "" {
		return nil, AnswerOutput{}, errors.New("question is required")
	}
	docID, err := s.resolveDocument(ctx, input.DocID, input.Locator)
	if err != nil {
		return nil, AnswerOutput{}, err
	}

	answer, err := s.ports.Retrieval.AnswerQuestion(ctx, domain.AskRequest{
		Question: input.Question,
		DocID:    docID,
		K:        input.K,
	})
	if err != nil {
		return nil, AnswerOutput{}, err
	}
	s.record(ctx, docID, input.Locator, []string{input.Question}, []*domain.Answer{answer})
	return nil, answerOutput(input.Question, answer), nil
}

func (s *Server) handleAnswers(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AnswersInput,
) (*mcp.CallToolResult, AnswersOutput, error) {
	if len(input.Questions) == 0 {
		return nil, AnswersOutput{}, errors.New("at least one question is required")
	}
	docID, err := s.resolveDocument(ctx, input.DocID, input.Locator)
	if err != nil {
		return nil, AnswersOutput{}, err
	}

	answers, err := s.ports.Retrieval.AnswerQuestions(ctx, input.Questions, docID, input.K)
	if err != nil {
		return nil, AnswersOutput{}, err
	}
	s.record(ctx, docID, input.Locator, input.Questions, answers)

	out := AnswersOutput{Answers: make([]AnswerOutput, len(answers))}
	for i, a := range answers {
		out.Answers[i] = answerOutput(input.Questions[i], a)
	}
	return nil, out, nil
}

// resolveDocument ingests locator when given and returns the document id
// to restrict retrieval to.
func (s *Server) resolveDocument(ctx context.Context, docID, locator string) (string, error) {
	if locator == "" {
		return docID, nil
	}
	res, err := s.ports.Retrieval.ProcessDocument(ctx, locator)
	if err != nil {
		return "", fmt.Errorf("ingesting %s: %w", locator, err)
	}
	return res.DocID, nil
}

// record logs the answers in a fresh question session. Failures are
// logged and never fail the tool call.
func (s *Server) record(ctx context.Context, docID, locator string, questions []string, answers []*domain.Answer) {
	if s.ports.QuestionLog == nil {
		return
	}
	sess, err := s.ports.QuestionLog.Start(ctx, docID, locator, map[string]string{"client": "mcp"})
	if err != nil {
		logger.Warn("mcp: %v", err)
		return
	}
	for i, a := range answers {
		sess.Record(ctx, questions[i], a)
	}
}

func answerOutput(question string, a *domain.Answer) AnswerOutput {
	out := AnswerOutput{
		Question:   question,
		Answer:     a.Text,
		DocID:      a.DocID,
		Cached:     a.Cached,
		ErrorClass: string(a.ErrorClass),
	}
	for _, src := range a.Sources {
		out.Sources = append(out.Sources, SourceOutput{
			Number:  src.Number,
			Page:    src.Page,
			Heading: src.Heading,
			Score:   src.Score,
			Preview: src.Preview,
		})
	}
	return out
}

func (s *Server) handleCacheStats(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ CacheStatsInput,
) (*mcp.CallToolResult, CacheStatsOutput, error) {
	stats, err := s.ports.Retrieval.CacheStats(ctx)
	if err != nil {
		return nil, CacheStatsOutput{}, err
	}
	if stats == nil {
		stats = []domain.CacheStats{}
	}
	return nil, CacheStatsOutput{Caches: stats}, nil
}

func (s *Server) handleRemove(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RemoveInput,
) (*mcp.CallToolResult, RemoveOutput, error) {
	if input.DocID == "" {
		return nil, RemoveOutput{}, errors.New("doc_id is required")
	}
	removed, err := s.ports.Retrieval.RemoveDocument(ctx, input.DocID)
	if err != nil {
		return nil, RemoveOutput{}, err
	}
	return nil, RemoveOutput{Removed: removed}, nil
}
