// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docqa/internal/core/domain"
)

// DocumentList displays indexed documents in a navigable list.
type DocumentList struct {
	docs     []domain.DocumentRecord
	selected int
	styles   *styles.Styles
	width    int
	height   int
}

// NewDocumentList creates an empty document list.
func NewDocumentList(s *styles.Styles) *DocumentList {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &DocumentList{
		styles: s,
		width:  80,
		height: 10,
	}
}

// Init initialises the list.
func (l *DocumentList) Init() tea.Cmd {
	return nil
}

// Update handles list navigation.
func (l *DocumentList) Update(msg tea.Msg) (*DocumentList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			l.MoveUp()
		case "down", "j":
			l.MoveDown()
		}
	}
	return l, nil
}

// View renders the list.
func (l *DocumentList) View() string {
	if len(l.docs) == 0 {
		return l.styles.Muted.Render("No documents indexed")
	}

	lines := make([]string, 0, len(l.docs)*2+2)
	lines = append(lines, l.styles.Subtitle.Render(fmt.Sprintf("Documents (%d)", len(l.docs))), "")

	// Two lines per entry.
	visible := max((l.height-4)/2, 1)
	start := 0
	if l.selected >= visible {
		start = l.selected - visible + 1
	}
	end := min(start+visible, len(l.docs))

	for i := start; i < end; i++ {
		lines = append(lines, l.renderDocument(i, &l.docs[i]))
	}

	return strings.Join(lines, "\n")
}

func (l *DocumentList) renderDocument(index int, doc *domain.DocumentRecord) string {
	indicator := "  "
	if index == l.selected {
		indicator = "> "
	}

	title := doc.Title
	if title == "" {
		title = "(untitled)"
	}
	maxTitle := max(l.width-24, 10)
	if len(title) > maxTitle {
		title = title[:maxTitle-3] + "..."
	}
	counts := fmt.Sprintf("%d chunks", doc.ChunkCount)

	var titleLine string
	if index == l.selected {
		titleLine = l.styles.Selected.Render(fmt.Sprintf("%s%-*s  %s", indicator, maxTitle, title, counts))
	} else {
		titleLine = l.styles.Normal.Render(fmt.Sprintf("%s%-*s  ", indicator, maxTitle, title)) +
			l.styles.Muted.Render(counts)
	}

	locator := doc.Locator
	maxLocator := max(l.width-6, 20)
	if len(locator) > maxLocator {
		locator = "..." + locator[len(locator)-maxLocator+3:]
	}

	return titleLine + "\n" + l.styles.Muted.Render("    "+doc.ID+"  "+locator)
}

// SetDocuments replaces the list contents and resets the selection.
func (l *DocumentList) SetDocuments(docs []domain.DocumentRecord) {
	l.docs = docs
	l.selected = 0
}

// Documents returns the current documents.
func (l *DocumentList) Documents() []domain.DocumentRecord {
	return l.docs
}

// Selected returns the index of the selected document.
func (l *DocumentList) Selected() int {
	return l.selected
}

// SetSelected sets the selected index if it is in range.
func (l *DocumentList) SetSelected(index int) {
	if index >= 0 && index < len(l.docs) {
		l.selected = index
	}
}

// SelectedDocument returns the selected document, or nil if the list is empty.
func (l *DocumentList) SelectedDocument() *domain.DocumentRecord {
	if l.selected < 0 || l.selected >= len(l.docs) {
		return nil
	}
	return &l.docs[l.selected]
}

// MoveUp moves selection up.
func (l *DocumentList) MoveUp() {
	if l.selected > 0 {
		l.selected--
	}
}

// MoveDown moves selection down.
func (l *DocumentList) MoveDown() {
	if l.selected < len(l.docs)-1 {
		l.selected++
	}
}

// SetDimensions sets the component dimensions.
func (l *DocumentList) SetDimensions(width, height int) {
	l.width = width
	l.height = height
}

// Count returns the number of documents.
func (l *DocumentList) Count() int {
	return len(l.docs)
}

// IsEmpty returns whether the list is empty.
func (l *DocumentList) IsEmpty() bool {
	return len(l.docs) == 0
}
