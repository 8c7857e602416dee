package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/logger"
)

var (
	askDocID   string
	askLocator string
	askK       int
	askJSON    bool
	askSources bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question...]",
	Short: "Ask questions about indexed documents",
	Long: `Answers one or more questions using the indexed documents.

Each argument is a separate question. Several questions are answered
concurrently and printed in order. Use --doc to restrict retrieval to one
document, or --file to ingest a document first and ask about it.

Examples:
  docqa ask --file ./policy.pdf "What is the grace period?"
  docqa ask --doc 3f9a1c2b7d4e5f60 "Who is covered?" "What is excluded?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askDocID, "doc", "d", "", "restrict retrieval to this document id")
	askCmd.Flags().StringVarP(&askLocator, "file", "f", "", "ingest this document first and ask about it")
	askCmd.Flags().IntVarP(&askK, "top-k", "k", 0, "number of chunks to retrieve (0 = adaptive)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output answers as JSON")
	askCmd.Flags().BoolVar(&askSources, "sources", true, "print the cited sources")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}
	ctx := cmd.Context()

	docID, locator := askDocID, ""
	if askLocator != "" {
		locator = normalizeLocator(askLocator)
		res, err := retrievalService.ProcessDocument(ctx, locator)
		if err != nil {
			return fmt.Errorf("failed to ingest %s: %w", askLocator, err)
		}
		docID = res.DocID
	}

	var answers []*domain.Answer
	if len(args) == 1 {
		a, err := retrievalService.AnswerQuestion(ctx, domain.AskRequest{Question: args[0], DocID: docID, K: askK})
		if err != nil {
			return fmt.Errorf("failed to answer: %w", err)
		}
		answers = []*domain.Answer{a}
	} else {
		var err error
		answers, err = retrievalService.AnswerQuestions(ctx, args, docID, askK)
		if err != nil {
			return fmt.Errorf("failed to answer: %w", err)
		}
	}

	recordSession(cmd, docID, locator, args, answers)

	if askJSON {
		type qa struct {
			Question string `json:"question"`
			*domain.Answer
		}
		out := make([]qa, len(answers))
		for i, a := range answers {
			out[i] = qa{Question: args[i], Answer: a}
		}
		return printJSON(cmd, out)
	}

	for i, a := range answers {
		if len(answers) > 1 {
			cmd.Printf("Q%d: %s\n", i+1, args[i])
		}
		printAnswer(cmd, a, askSources)
	}
	return nil
}

// recordSession logs the answers to the question log. Failures only warn.
func recordSession(cmd *cobra.Command, docID, locator string, questions []string, answers []*domain.Answer) {
	if questionLogService == nil {
		return
	}
	sess, err := questionLogService.Start(cmd.Context(), docID, locator, map[string]string{"client": "cli"})
	if err != nil {
		logger.Warn("question log: %v", err)
		return
	}
	for i, a := range answers {
		sess.Record(cmd.Context(), questions[i], a)
	}
}

func printAnswer(cmd *cobra.Command, a *domain.Answer, withSources bool) {
	if a.Failed() {
		cmd.Printf("Error (%s): %s\n\n", a.ErrorClass, a.Text)
		return
	}
	cmd.Println(a.Text)
	cmd.Println()

	if withSources && len(a.Sources) > 0 {
		cmd.Println("Sources:")
		for _, src := range a.Sources {
			where := fmt.Sprintf("p.%d", src.Page)
			if src.Heading != "" {
				where += ", " + src.Heading
			}
			cmd.Printf("  [%d] (%s) %s\n", src.Number, where, truncate(src.Preview, 90))
		}
		cmd.Println()
	}

	status := fmt.Sprintf("%d chunks, k=%d, %s", a.Retrieved, a.K, formatDuration(a.Timings.Total))
	if a.Cached {
		status += ", cached"
	}
	if a.Model != "" {
		status += ", " + a.Model
	}
	cmd.Printf("(%s)\n\n", status)
}
