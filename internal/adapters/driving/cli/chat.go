package cli

import (
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui"
	"github.com/custodia-labs/docqa/internal/core/domain"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Ask questions in an interactive terminal UI",
	Long: `Launch the interactive chat interface.

Questions are answered from every indexed document unless a document is
selected with --doc or from the document picker.

Controls:
  Enter    - Ask the question
  Tab      - Pick a document
  Ctrl+S   - Show or hide sources
  PgUp/Dn  - Scroll the transcript
  F1       - Help
  Ctrl+C   - Quit

Type ":ingest <path|url>" to index a document without leaving the chat.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringP("doc", "d", "", "Start scoped to this document ID")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
			err = fmt.Errorf("TUI panic: %v", r)
		}
	}()

	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	app, err := tui.NewApp(tui.NewPorts(retrievalService, questionLogService))
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}
	app.WithContext(cmd.Context())

	docID, _ := cmd.Flags().GetString("doc")
	if docID != "" {
		doc, err := findDocument(cmd, docID)
		if err != nil {
			return err
		}
		app.WithScope(doc)
	}

	if err := app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// findDocument looks up an indexed document by ID.
func findDocument(cmd *cobra.Command, docID string) (*domain.DocumentRecord, error) {
	docs, err := retrievalService.Documents(cmd.Context())
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	for i := range docs {
		if docs[i].ID == docID {
			return &docs[i], nil
		}
	}
	return nil, fmt.Errorf("document %s: %w", docID, domain.ErrNotFound)
}
