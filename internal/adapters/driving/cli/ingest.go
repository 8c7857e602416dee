package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

var ingestJSON bool

var ingestCmd = &cobra.Command{
	Use:   "ingest [locator...]",
	Short: "Index one or more documents",
	Long: `Fetches, extracts, chunks, embeds and indexes documents.

A locator is a local path, a file:// URI or an http(s):// URL. Documents
that were already indexed are reported as cached and not re-processed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	var (
		results []*domain.IngestResult
		failed  int
	)
	for _, arg := range args {
		locator := normalizeLocator(arg)
		res, err := retrievalService.ProcessDocument(cmd.Context(), locator)
		if err != nil {
			failed++
			cmd.PrintErrf("Failed to ingest %s: %v\n", arg, err)
			continue
		}
		results = append(results, res)
		if !ingestJSON {
			printIngestResult(cmd, arg, res)
		}
	}

	if ingestJSON {
		if err := printJSON(cmd, results); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed to ingest", failed, len(args))
	}
	return nil
}

func printIngestResult(cmd *cobra.Command, arg string, res *domain.IngestResult) {
	title := arg
	if res.Document != nil && res.Document.Title != "" {
		title = res.Document.Title
	}
	cmd.Printf("%s [%s]\n", title, res.Status)
	cmd.Printf("  Doc ID: %s\n", res.DocID)
	cmd.Printf("  Chunks: %d (%d tokens", res.Chunks, res.Tokens)
	if res.PreservedDefinitions > 0 {
		cmd.Printf(", %d definitions", res.PreservedDefinitions)
	}
	cmd.Println(")")
	if res.Status == domain.IngestStatusProcessed {
		t := res.Timings
		cmd.Printf("  Time: %s (extract %s, chunk %s, embed %s, index %s)\n",
			formatDuration(t.Total), formatDuration(t.Extract), formatDuration(t.Chunk),
			formatDuration(t.Embed), formatDuration(t.Index))
	}
	cmd.Println()
}
