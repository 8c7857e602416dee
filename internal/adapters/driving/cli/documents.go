package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var documentsJSON bool

var documentsCmd = &cobra.Command{
	Use:     "documents",
	Aliases: []string{"docs"},
	Short:   "List indexed documents",
	Args:    cobra.NoArgs,
	RunE:    runDocuments,
}

var removeCmd = &cobra.Command{
	Use:   "remove [doc-id]",
	Short: "Remove a document from the index",
	Long: `Removes a document from the index and drops its cached answers.
The vector index is compacted once enough rows have been removed.`,
	Args: cobra.ExactArgs(1),
	RunE: runRemove,
}

func init() {
	documentsCmd.Flags().BoolVar(&documentsJSON, "json", false, "output documents as JSON")
	rootCmd.AddCommand(documentsCmd)
	rootCmd.AddCommand(removeCmd)
}

func runDocuments(cmd *cobra.Command, _ []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	docs, err := retrievalService.Documents(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}
	if documentsJSON {
		return printJSON(cmd, docs)
	}

	if len(docs) == 0 {
		cmd.Println("No documents indexed. Run 'docqa ingest <path>' to add one.")
		return nil
	}

	for i := range docs {
		d := &docs[i]
		cmd.Printf("  %s  %s\n", d.ID, d.Title)
		cmd.Printf("    Locator: %s\n", d.Locator)
		cmd.Printf("    Pages: %d  Chunks: %d  Tokens: %d  Indexed: %s\n",
			d.Pages, d.ChunkCount, d.TotalTokens, d.IndexedAt.Format("2006-01-02 15:04"))
		if d.HasTranslation {
			cmd.Printf("    Language: %s (with translation)\n", d.Language)
		}
		cmd.Println()
	}
	cmd.Printf("Total: %d documents\n", len(docs))
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	removed, err := retrievalService.RemoveDocument(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to remove document: %w", err)
	}
	if !removed {
		cmd.Printf("Document not found: %s\n", args[0])
		return nil
	}
	cmd.Printf("Removed document: %s\n", args[0])
	return nil
}
