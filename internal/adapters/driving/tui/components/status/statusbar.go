// Package status provides status bar components for the TUI.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/styles"
)

// State represents the current application state for display.
type State string

const (
	StateReady     State = "ready"
	StateThinking  State = "thinking"
	StateIngesting State = "ingesting"
	StateAnswered  State = "answered"
	StateError     State = "error"
	StateHelp      State = "help"
	StateBrowsing  State = "browsing"
)

// Bar displays application status, the document scope and keybinding hints.
type Bar struct {
	styles  *styles.Styles
	keymap  *keymap.KeyMap
	state   State
	message string
	scope   string
	width   int
}

// NewBar creates a new status bar component.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &Bar{
		styles: s,
		keymap: km,
		state:  StateReady,
		width:  80,
	}
}

// Init initialises the status bar.
func (b *Bar) Init() tea.Cmd {
	return nil
}

// Update is a no-op; the bar is driven through its setters.
func (b *Bar) Update(_ tea.Msg) (*Bar, tea.Cmd) {
	return b, nil
}

// View renders the status bar.
func (b *Bar) View() string {
	left := b.renderLeft()
	right := b.renderRight()

	padding := max(b.width-lipgloss.Width(left)-lipgloss.Width(right), 1)

	return b.styles.StatusBar.Width(b.width).Render(
		left + strings.Repeat(" ", padding) + right,
	)
}

func (b *Bar) renderLeft() string {
	scope := "all documents"
	if b.scope != "" {
		scope = b.scope
	}
	prefix := b.styles.Subtitle.Render("["+scope+"]") + " "

	switch b.state {
	case StateThinking:
		return prefix + b.styles.Muted.Render("Thinking...")
	case StateIngesting:
		return prefix + b.styles.Muted.Render("Ingesting...")
	case StateError:
		if b.message != "" {
			return prefix + b.styles.Error.Render("Error: "+b.message)
		}
		return prefix + b.styles.Error.Render("Error")
	case StateHelp:
		return prefix + b.styles.Normal.Render("Help")
	case StateAnswered, StateBrowsing, StateReady:
		if b.message != "" {
			return prefix + b.styles.Normal.Render(b.message)
		}
	}
	return prefix + b.styles.Muted.Render("Ready")
}

func (b *Bar) renderRight() string {
	var bindings []key.Binding
	if b.state == StateBrowsing {
		bindings = b.keymap.DocumentsHelp()
	} else {
		bindings = b.keymap.ChatHelp()
	}

	hints := make([]string, 0, len(bindings))
	for _, kb := range bindings {
		h := kb.Help()
		hints = append(hints, fmt.Sprintf("%s: %s", h.Key, h.Desc))
	}
	return b.styles.Muted.Render(strings.Join(hints, " | "))
}

// SetState sets the current state.
func (b *Bar) SetState(state State) {
	b.state = state
}

// State returns the current state.
func (b *Bar) State() State {
	return b.state
}

// SetMessage sets the message shown next to the scope.
func (b *Bar) SetMessage(message string) {
	b.message = message
}

// Message returns the current message.
func (b *Bar) Message() string {
	return b.message
}

// SetScope sets the document scope label. Empty means all documents.
func (b *Bar) SetScope(scope string) {
	b.scope = scope
}

// Scope returns the document scope label.
func (b *Bar) Scope() string {
	return b.scope
}

// SetWidth sets the status bar width.
func (b *Bar) SetWidth(width int) {
	b.width = width
}

// Width returns the current width.
func (b *Bar) Width() int {
	return b.width
}

// Clear resets state and message. The scope is kept.
func (b *Bar) Clear() {
	b.state = StateReady
	b.message = ""
}
