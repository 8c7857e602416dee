package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// mockRetrievalService implements driving.RetrievalService for testing.
type mockRetrievalService struct {
	processFunc   func(ctx context.Context, locator string) (*domain.IngestResult, error)
	answerFunc    func(ctx context.Context, req domain.AskRequest) (*domain.Answer, error)
	answersFunc   func(ctx context.Context, questions []string, docID string, k int) ([]*domain.Answer, error)
	removeFunc    func(ctx context.Context, docID string) (bool, error)
	documentsFunc func(ctx context.Context) ([]domain.DocumentRecord, error)
	cacheStats    []domain.CacheStats
	clearFunc     func(ctx context.Context, t domain.CacheType) (int, error)
	stats         domain.VectorStoreStats
	health        domain.Health

	processed []string
	asked     []domain.AskRequest
	removed   []string
}

func (m *mockRetrievalService) ProcessDocument(ctx context.Context, locator string) (*domain.IngestResult, error) {
	m.processed = append(m.processed, locator)
	if m.processFunc != nil {
		return m.processFunc(ctx, locator)
	}
	return &domain.IngestResult{
		DocID:  domain.DocumentID(locator),
		Status: domain.IngestStatusProcessed,
		Chunks: 3,
		Tokens: 120,
	}, nil
}

func (m *mockRetrievalService) AnswerQuestion(ctx context.Context, req domain.AskRequest) (*domain.Answer, error) {
	m.asked = append(m.asked, req)
	if m.answerFunc != nil {
		return m.answerFunc(ctx, req)
	}
	return &domain.Answer{Text: "answer: " + req.Question, DocID: req.DocID}, nil
}

func (m *mockRetrievalService) AnswerQuestions(
	ctx context.Context, questions []string, docID string, k int,
) ([]*domain.Answer, error) {
	if m.answersFunc != nil {
		return m.answersFunc(ctx, questions, docID, k)
	}
	out := make([]*domain.Answer, len(questions))
	for i, q := range questions {
		m.asked = append(m.asked, domain.AskRequest{Question: q, DocID: docID, K: k})
		out[i] = &domain.Answer{Text: "answer: " + q, DocID: docID}
	}
	return out, nil
}

func (m *mockRetrievalService) RemoveDocument(ctx context.Context, docID string) (bool, error) {
	m.removed = append(m.removed, docID)
	if m.removeFunc != nil {
		return m.removeFunc(ctx, docID)
	}
	return true, nil
}

func (m *mockRetrievalService) Documents(ctx context.Context) ([]domain.DocumentRecord, error) {
	if m.documentsFunc != nil {
		return m.documentsFunc(ctx)
	}
	return nil, nil
}

func (m *mockRetrievalService) CacheStats(_ context.Context) ([]domain.CacheStats, error) {
	return m.cacheStats, nil
}

func (m *mockRetrievalService) ClearCache(ctx context.Context, t domain.CacheType) (int, error) {
	if m.clearFunc != nil {
		return m.clearFunc(ctx, t)
	}
	return 0, nil
}

func (m *mockRetrievalService) Stats(_ context.Context) (domain.VectorStoreStats, error) {
	return m.stats, nil
}

func (m *mockRetrievalService) Health(_ context.Context) domain.Health {
	return m.health
}

// mockSettingsService implements driving.SettingsService for testing.
type mockSettingsService struct {
	settings     domain.AppSettings
	keys         map[string]string
	setErr       error
	validateErr  error
	providersErr error

	set          map[string]string
	embeddingSet []string
	llmSet       []string
}

func newMockSettings() *mockSettingsService {
	return &mockSettingsService{settings: domain.DefaultAppSettings(), set: map[string]string{}}
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Set(key, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.set[key] = value
	return nil
}

func (m *mockSettingsService) Keys() (map[string]string, error) {
	return m.keys, nil
}

func (m *mockSettingsService) SetEmbeddingProvider(p domain.AIProvider, model, apiKey string) error {
	m.embeddingSet = []string{string(p), model, apiKey}
	return nil
}

func (m *mockSettingsService) SetLLMProvider(p domain.AIProvider, model, apiKey string) error {
	m.llmSet = []string{string(p), model, apiKey}
	return nil
}

func (m *mockSettingsService) Validate() error          { return m.validateErr }
func (m *mockSettingsService) ValidateProviders() error { return m.providersErr }

func (m *mockSettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// mockQuestionLog implements driving.QuestionLogService for testing.
type mockQuestionLog struct {
	sessions []domain.QuestionSession
	entries  map[string][]domain.QuestionEntry
	pruned   int

	started  []map[string]string
	recorded []string
}

func (m *mockQuestionLog) Start(_ context.Context, docID, locator string, meta map[string]string) (driving.QuestionRecorder, error) {
	m.started = append(m.started, map[string]string{"doc": docID, "locator": locator, "client": meta["client"]})
	return &mockRecorder{log: m}, nil
}

func (m *mockQuestionLog) Sessions(_ context.Context, limit int) ([]domain.QuestionSession, error) {
	if limit < len(m.sessions) {
		return m.sessions[:limit], nil
	}
	return m.sessions, nil
}

func (m *mockQuestionLog) Questions(_ context.Context, sessionID string) ([]domain.QuestionEntry, error) {
	return m.entries[sessionID], nil
}

func (m *mockQuestionLog) Prune(_ context.Context) (int, error) {
	return m.pruned, nil
}

type mockRecorder struct {
	log *mockQuestionLog
}

func (r *mockRecorder) ID() string { return "s1" }

func (r *mockRecorder) Record(_ context.Context, question string, _ *domain.Answer) {
	r.log.recorded = append(r.log.recorded, question)
}

// testServices holds the mocks installed by setupTestServices.
type testServices struct {
	retrieval   *mockRetrievalService
	settings    *mockSettingsService
	questionLog *mockQuestionLog
}

// setupTestServices installs fresh mocks and restores empty services when
// the test ends.
func setupTestServices(t *testing.T) *testServices {
	t.Helper()
	ts := &testServices{
		retrieval:   &mockRetrievalService{},
		settings:    newMockSettings(),
		questionLog: &mockQuestionLog{entries: map[string][]domain.QuestionEntry{}},
	}
	SetServices(Services{
		Retrieval:   ts.retrieval,
		Settings:    ts.settings,
		QuestionLog: ts.questionLog,
	})
	t.Cleanup(func() { SetServices(Services{}) })
	return ts
}

// executeCommand runs the root command with args and returns stdout and
// stderr. Flags are reset afterwards since cobra keeps their values.
func executeCommand(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.SetIn(bytes.NewBufferString(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		resetFlags(rootCmd)
	})

	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue) //nolint:errcheck // defaults always parse
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}
