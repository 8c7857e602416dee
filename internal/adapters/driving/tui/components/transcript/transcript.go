// Package transcript renders the scrolling question and answer history.
package transcript

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docqa/internal/core/domain"
)

// Turn is one entry in the transcript. Exactly one of Answer, Err or Notice
// is set once the turn completes; a turn with only a Question is pending.
type Turn struct {
	Question string
	Answer   *domain.Answer
	Err      error
	Notice   string
}

// Pending reports whether the turn is still waiting for an answer.
func (t Turn) Pending() bool {
	return t.Answer == nil && t.Err == nil && t.Notice == ""
}

// Transcript is a viewport over the rendered turns.
type Transcript struct {
	styles      *styles.Styles
	viewport    viewport.Model
	turns       []Turn
	showSources bool
}

// New creates an empty transcript.
func New(s *styles.Styles) *Transcript {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &Transcript{
		styles:      s,
		viewport:    viewport.New(80, 10),
		showSources: true,
	}
}

// Update forwards mouse and key events to the viewport.
func (t *Transcript) Update(msg tea.Msg) (*Transcript, tea.Cmd) {
	var cmd tea.Cmd
	t.viewport, cmd = t.viewport.Update(msg)
	return t, cmd
}

// View renders the visible part of the transcript.
func (t *Transcript) View() string {
	if len(t.turns) == 0 {
		return t.styles.Muted.Render("No questions yet. Type one below and press enter.")
	}
	return t.viewport.View()
}

// Ask appends a pending turn for question.
func (t *Transcript) Ask(question string) {
	t.turns = append(t.turns, Turn{Question: question})
	t.refresh()
}

// Resolve completes the latest pending turn for question. If none is
// pending a new completed turn is appended.
func (t *Transcript) Resolve(question string, answer *domain.Answer, err error) {
	for i := len(t.turns) - 1; i >= 0; i-- {
		if t.turns[i].Question == question && t.turns[i].Pending() {
			t.turns[i].Answer = answer
			t.turns[i].Err = err
			t.refresh()
			return
		}
	}
	t.turns = append(t.turns, Turn{Question: question, Answer: answer, Err: err})
	t.refresh()
}

// Notify appends an informational line, such as an ingest result.
func (t *Transcript) Notify(notice string) {
	t.turns = append(t.turns, Turn{Notice: notice})
	t.refresh()
}

// Turns returns the transcript entries.
func (t *Transcript) Turns() []Turn {
	return t.turns
}

// Clear removes every turn.
func (t *Transcript) Clear() {
	t.turns = nil
	t.refresh()
}

// ToggleSources shows or hides citations under answers.
func (t *Transcript) ToggleSources() bool {
	t.showSources = !t.showSources
	t.refresh()
	return t.showSources
}

// ShowSources reports whether citations are rendered.
func (t *Transcript) ShowSources() bool {
	return t.showSources
}

// ScrollUp moves the view up half a page.
func (t *Transcript) ScrollUp() {
	t.viewport.SetYOffset(t.viewport.YOffset - max(t.viewport.Height/2, 1))
}

// ScrollDown moves the view down half a page.
func (t *Transcript) ScrollDown() {
	t.viewport.SetYOffset(t.viewport.YOffset + max(t.viewport.Height/2, 1))
}

// AtBottom reports whether the newest turn is in view.
func (t *Transcript) AtBottom() bool {
	return t.viewport.AtBottom()
}

// SetDimensions resizes the viewport.
func (t *Transcript) SetDimensions(width, height int) {
	t.viewport.Width = width
	t.viewport.Height = max(height, 1)
	t.refresh()
}

func (t *Transcript) refresh() {
	t.viewport.SetContent(t.render())
	t.viewport.GotoBottom()
}

func (t *Transcript) render() string {
	width := max(t.viewport.Width-4, 20)
	var b strings.Builder

	for i, turn := range t.turns {
		if i > 0 {
			b.WriteString("\n")
		}
		if turn.Notice != "" {
			b.WriteString(t.styles.Muted.Render("· " + turn.Notice))
			b.WriteString("\n")
			continue
		}

		b.WriteString(t.styles.Question.Render("Q: " + turn.Question))
		b.WriteString("\n")

		switch {
		case turn.Err != nil:
			b.WriteString(t.styles.Error.Width(width).Render("  " + turn.Err.Error()))
			b.WriteString("\n")
		case turn.Answer == nil:
			b.WriteString(t.styles.Muted.Render("  ..."))
			b.WriteString("\n")
		default:
			b.WriteString(t.renderAnswer(turn.Answer, width))
		}
	}
	return b.String()
}

func (t *Transcript) renderAnswer(a *domain.Answer, width int) string {
	var b strings.Builder

	if a.Failed() {
		b.WriteString(t.styles.Error.Width(width).Render(fmt.Sprintf("  [%s] %s", a.ErrorClass, a.Text)))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(t.styles.Answer.Width(width).Render(a.Text))
	b.WriteString("\n")

	var tags []string
	if a.Cached {
		tags = append(tags, t.styles.Badge.Render("cached"))
	}
	if a.Model != "" {
		tags = append(tags, t.styles.Muted.Render(a.Model))
	}
	if a.Timings.Total > 0 {
		tags = append(tags, t.styles.Muted.Render(a.Timings.Total.Round(time.Millisecond).String()))
	}
	if len(tags) > 0 {
		b.WriteString("  " + strings.Join(tags, " "))
		b.WriteString("\n")
	}

	if t.showSources {
		for _, src := range a.Sources {
			b.WriteString(t.styles.Citation.Render(citation(src)))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func citation(src domain.Source) string {
	parts := []string{fmt.Sprintf("[%d]", src.Number)}
	if src.Page > 0 {
		parts = append(parts, fmt.Sprintf("p.%d", src.Page))
	}
	switch {
	case src.SectionNumber != "" && src.Heading != "":
		parts = append(parts, src.SectionNumber+" "+src.Heading)
	case src.Heading != "":
		parts = append(parts, src.Heading)
	}
	if src.Type != "" {
		parts = append(parts, "("+string(src.Type)+")")
	}
	return strings.Join(parts, " ")
}
