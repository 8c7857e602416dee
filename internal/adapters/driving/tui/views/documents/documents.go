// Package documents provides the document picker used to scope questions.
package documents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// ErrNoRetrievalService indicates the view was built without a retrieval service.
var ErrNoRetrievalService = errors.New("retrieval service is required")

// View lists indexed documents and lets the user pick one. Selecting a
// document emits messages.DocumentSelected; the app returns to the chat.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	list      *list.DocumentList
	statusbar *status.Bar
	retrieval driving.RetrievalService
	ctx       context.Context

	width   int
	height  int
	loading bool
	err     error

	// confirmRemove holds the document ID awaiting a second x press.
	confirmRemove string
}

// NewView creates a documents view.
func NewView(s *styles.Styles, km *keymap.KeyMap, retrieval driving.RetrievalService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	bar := status.NewBar(s, km)
	bar.SetState(status.StateBrowsing)

	return &View{
		styles:    s,
		keymap:    km,
		list:      list.NewDocumentList(s),
		statusbar: bar,
		retrieval: retrieval,
		ctx:       context.Background(),
		width:     80,
		height:    24,
	}
}

// WithContext sets the context used for service calls.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init loads the document list.
func (v *View) Init() tea.Cmd {
	v.loading = true
	v.confirmRemove = ""
	return v.load()
}

func (v *View) load() tea.Cmd {
	return func() tea.Msg {
		if v.retrieval == nil {
			return messages.DocumentsLoaded{Err: ErrNoRetrievalService}
		}
		docs, err := v.retrieval.Documents(v.ctx)
		return messages.DocumentsLoaded{Documents: docs, Err: err}
	}
}

func (v *View) remove(docID string) tea.Cmd {
	return func() tea.Msg {
		if v.retrieval == nil {
			return messages.ErrorOccurred{Err: ErrNoRetrievalService}
		}
		removed, err := v.retrieval.RemoveDocument(v.ctx, docID)
		if err != nil {
			return messages.ErrorOccurred{Err: fmt.Errorf("removing %s: %w", docID, err)}
		}
		if !removed {
			return messages.ErrorOccurred{Err: fmt.Errorf("document %s not found", docID)}
		}
		docs, err := v.retrieval.Documents(v.ctx)
		return messages.DocumentsLoaded{Documents: docs, Err: err}
	}
}

// Update handles messages for the documents view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case messages.DocumentsLoaded:
		v.loading = false
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.err = nil
		v.list.SetDocuments(msg.Documents)
		v.statusbar.SetMessage(fmt.Sprintf("%d documents", len(msg.Documents)))
		return v, nil

	case messages.ErrorOccurred:
		v.loading = false
		v.err = msg.Err
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)
	}
	return v, nil
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	keyStr := msg.String()

	// Any key other than a second x cancels a pending removal.
	pending := v.confirmRemove
	v.confirmRemove = ""

	switch {
	case keymap.Matches(keyStr, v.keymap.Back):
		return v, func() tea.Msg { return messages.ViewChanged{View: messages.ViewChat} }

	case keymap.Matches(keyStr, v.keymap.Select):
		doc := v.list.SelectedDocument()
		if doc == nil {
			return v, nil
		}
		selected := *doc
		return v, func() tea.Msg { return messages.DocumentSelected{Document: &selected} }

	case keymap.Matches(keyStr, v.keymap.AllDocuments):
		return v, func() tea.Msg { return messages.DocumentSelected{} }

	case keymap.Matches(keyStr, v.keymap.Reload):
		v.loading = true
		return v, v.load()

	case keymap.Matches(keyStr, v.keymap.Remove):
		doc := v.list.SelectedDocument()
		if doc == nil {
			return v, nil
		}
		if pending == doc.ID {
			v.loading = true
			return v, v.remove(doc.ID)
		}
		v.confirmRemove = doc.ID
		return v, nil
	}

	v.list, _ = v.list.Update(msg)
	return v, nil
}

// View renders the documents view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("Documents"))
	b.WriteString("\n\n")

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading documents..."))
	case v.err != nil:
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
	default:
		b.WriteString(v.list.View())
	}

	if v.confirmRemove != "" {
		b.WriteString("\n\n")
		b.WriteString(v.styles.Warning.Render(
			fmt.Sprintf("Press x again to remove %s, any other key to cancel", v.confirmRemove)))
	}

	b.WriteString("\n\n")
	b.WriteString(v.statusbar.View())
	return b.String()
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.list.SetDimensions(width, height-6)
	v.statusbar.SetWidth(width)
}

// SetScope updates the scope label on the status bar.
func (v *View) SetScope(scope string) {
	v.statusbar.SetScope(scope)
}

// List returns the underlying document list.
func (v *View) List() *list.DocumentList {
	return v.list
}

// Loading reports whether a load is in flight.
func (v *View) Loading() bool {
	return v.loading
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}

// PendingRemoval returns the document awaiting removal confirmation.
func (v *View) PendingRemoval() string {
	return v.confirmRemove
}
