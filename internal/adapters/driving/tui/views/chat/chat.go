// Package chat provides the question and answer view.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/components/transcript"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docqa/internal/connectors/filesystem"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// ErrNoRetrievalService indicates the view was built without a retrieval service.
var ErrNoRetrievalService = errors.New("retrieval service is required")

// Input commands recognised in place of a question.
const (
	commandIngest = ":ingest"
	commandClear  = ":clear"
)

// View is the chat view: transcript, question input and status bar.
type View struct {
	styles     *styles.Styles
	keymap     *keymap.KeyMap
	input      *input.QuestionInput
	transcript *transcript.Transcript
	statusbar  *status.Bar

	retrieval   driving.RetrievalService
	questionLog driving.QuestionLogService
	recorder    driving.QuestionRecorder
	ctx         context.Context

	scope    *domain.DocumentRecord
	inFlight int
	width    int
	height   int
	ready    bool
}

// NewView creates a chat view. questionLog may be nil.
func NewView(
	s *styles.Styles,
	km *keymap.KeyMap,
	retrieval driving.RetrievalService,
	questionLog driving.QuestionLogService,
) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &View{
		styles:      s,
		keymap:      km,
		input:       input.NewQuestionInput(s),
		transcript:  transcript.New(s),
		statusbar:   status.NewBar(s, km),
		retrieval:   retrieval,
		questionLog: questionLog,
		ctx:         context.Background(),
		width:       80,
		height:      24,
	}
}

// WithContext sets the context used for service calls.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init focuses the input.
func (v *View) Init() tea.Cmd {
	return tea.Batch(v.input.Focus(), v.input.Init())
}

// Update handles messages for the chat view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		v.transcript, cmd = v.transcript.Update(msg)
		return v, cmd

	case messages.AnswerReceived:
		v.handleAnswer(msg)
		return v, nil

	case messages.DocumentIngested:
		v.handleIngested(msg)
		return v, nil

	case messages.ErrorOccurred:
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(msg.Err.Error())
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	keyStr := msg.String()

	switch {
	case keymap.Matches(keyStr, v.keymap.Submit):
		return v, v.submit()

	case keymap.Matches(keyStr, v.keymap.Documents):
		return v, func() tea.Msg { return messages.ViewChanged{View: messages.ViewDocuments} }

	case keymap.Matches(keyStr, v.keymap.Help):
		return v, func() tea.Msg { return messages.ViewChanged{View: messages.ViewHelp} }

	case keymap.Matches(keyStr, v.keymap.ToggleSources):
		if v.transcript.ToggleSources() {
			v.statusbar.SetMessage("Sources shown")
		} else {
			v.statusbar.SetMessage("Sources hidden")
		}
		return v, nil

	case keymap.Matches(keyStr, v.keymap.ScrollUp):
		v.transcript.ScrollUp()
		return v, nil

	case keymap.Matches(keyStr, v.keymap.ScrollDown):
		v.transcript.ScrollDown()
		return v, nil

	case keymap.Matches(keyStr, v.keymap.Back):
		v.input.Reset()
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// submit interprets the input line as a command or a question.
func (v *View) submit() tea.Cmd {
	line := v.input.Value()
	if line == "" {
		return nil
	}
	v.input.Reset()

	switch {
	case line == commandClear:
		v.transcript.Clear()
		v.statusbar.Clear()
		return nil

	case line == commandIngest || strings.HasPrefix(line, commandIngest+" "):
		target := strings.TrimSpace(strings.TrimPrefix(line, commandIngest))
		if target == "" {
			v.statusbar.SetState(status.StateError)
			v.statusbar.SetMessage("usage: :ingest <path|url>")
			return nil
		}
		locator := normalizeLocator(target)
		v.inFlight++
		v.statusbar.SetState(status.StateIngesting)
		return v.ingest(locator)
	}

	v.inFlight++
	v.transcript.Ask(line)
	v.statusbar.SetState(status.StateThinking)
	return v.ask(line, v.ScopeID())
}

func (v *View) ask(question, docID string) tea.Cmd {
	return func() tea.Msg {
		if v.retrieval == nil {
			return messages.AnswerReceived{Question: question, Err: ErrNoRetrievalService}
		}
		answer, err := v.retrieval.AnswerQuestion(v.ctx, domain.AskRequest{Question: question, DocID: docID})
		return messages.AnswerReceived{Question: question, Answer: answer, Err: err}
	}
}

func (v *View) ingest(locator string) tea.Cmd {
	return func() tea.Msg {
		if v.retrieval == nil {
			return messages.DocumentIngested{Locator: locator, Err: ErrNoRetrievalService}
		}
		result, err := v.retrieval.ProcessDocument(v.ctx, locator)
		return messages.DocumentIngested{Locator: locator, Result: result, Err: err}
	}
}

func (v *View) handleAnswer(msg messages.AnswerReceived) {
	v.inFlight = max(v.inFlight-1, 0)
	v.transcript.Resolve(msg.Question, msg.Answer, msg.Err)

	switch {
	case msg.Err != nil:
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(msg.Err.Error())
		return
	case msg.Answer == nil:
		v.statusbar.Clear()
		return
	case msg.Answer.Failed():
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(string(msg.Answer.ErrorClass))
	default:
		v.statusbar.SetState(status.StateAnswered)
		v.statusbar.SetMessage(answerSummary(msg.Answer))
	}
	v.record(msg.Question, msg.Answer)
}

func (v *View) handleIngested(msg messages.DocumentIngested) {
	v.inFlight = max(v.inFlight-1, 0)
	if msg.Err != nil {
		v.transcript.Notify(fmt.Sprintf("Failed to ingest %s: %v", msg.Locator, msg.Err))
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(msg.Err.Error())
		return
	}

	r := msg.Result
	title := msg.Locator
	if r.Document != nil && r.Document.Title != "" {
		title = r.Document.Title
	}
	if r.Status == domain.IngestStatusCached {
		v.transcript.Notify(fmt.Sprintf("Already indexed: %s (%s)", title, r.DocID))
	} else {
		v.transcript.Notify(fmt.Sprintf("Indexed %s (%s, %d chunks)", title, r.DocID, r.Chunks))
	}
	v.statusbar.SetState(status.StateReady)
	v.statusbar.SetMessage("")
}

// record appends the exchange to the question log, opening a session for
// the current scope on first use. Failures are logged and otherwise ignored.
func (v *View) record(question string, answer *domain.Answer) {
	if v.questionLog == nil {
		return
	}
	if v.recorder == nil {
		locator := ""
		if v.scope != nil {
			locator = v.scope.Locator
		}
		rec, err := v.questionLog.Start(v.ctx, v.ScopeID(), locator, map[string]string{"client": "tui"})
		if err != nil {
			logger.Warn("question log: %v", err)
			return
		}
		v.recorder = rec
	}
	v.recorder.Record(v.ctx, question, answer)
}

func answerSummary(a *domain.Answer) string {
	parts := []string{fmt.Sprintf("%d sources", len(a.Sources))}
	if a.Cached {
		parts = append(parts, "cached")
	}
	if a.Timings.Total > 0 {
		parts = append(parts, a.Timings.Total.Round(time.Millisecond).String())
	}
	return strings.Join(parts, ", ")
}

// normalizeLocator turns bare paths into file:// locators.
func normalizeLocator(target string) string {
	if strings.Contains(target, "://") {
		return target
	}
	return filesystem.Locator(filesystem.LocalPath(target))
}

// View renders the chat view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	header := v.styles.Title.Render("docqa")
	if v.scope != nil {
		header += " " + v.styles.Badge.Render(v.scopeLabel())
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		"",
		v.transcript.View(),
		"",
		v.input.View(),
		v.statusbar.View(),
	)
}

// SetScope restricts questions to doc. A nil doc searches every document.
// Changing scope starts a new question log session.
func (v *View) SetScope(doc *domain.DocumentRecord) {
	if doc != nil && v.scope != nil && doc.ID == v.scope.ID {
		return
	}
	v.scope = doc
	v.recorder = nil
	v.statusbar.SetScope(v.scopeLabel())
}

func (v *View) scopeLabel() string {
	if v.scope == nil {
		return ""
	}
	if v.scope.Title != "" {
		return v.scope.Title
	}
	return v.scope.ID
}

// ScopeID returns the scoped document ID, or empty for all documents.
func (v *View) ScopeID() string {
	if v.scope == nil {
		return ""
	}
	return v.scope.ID
}

// ScopeLabel returns the name shown for the current scope.
func (v *View) ScopeLabel() string {
	return v.scopeLabel()
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	v.input.SetWidth(width)
	// Header, spacers, bordered input and status bar.
	v.transcript.SetDimensions(width, height-8)
	v.statusbar.SetWidth(width)
}

// Transcript returns the transcript component.
func (v *View) Transcript() *transcript.Transcript {
	return v.transcript
}

// Status returns the status bar.
func (v *View) Status() *status.Bar {
	return v.statusbar
}

// Input returns the question input.
func (v *View) Input() *input.QuestionInput {
	return v.input
}

// Busy reports whether a question or ingest is in flight.
func (v *View) Busy() bool {
	return v.inFlight > 0
}

// Ready returns whether the view has dimensions.
func (v *View) Ready() bool {
	return v.ready
}

// Reset clears the input and refocuses it.
func (v *View) Reset() tea.Cmd {
	v.input.Reset()
	return v.input.Focus()
}
