package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	logLimit int
	logJSON  bool
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show recent question sessions",
	Long: `Lists recent question sessions recorded by 'docqa ask', 'docqa chat'
and the MCP server. Use 'docqa log show <session-id>' for the questions
and answers of one session.`,
	Args: cobra.NoArgs,
	RunE: runLogSessions,
}

var logShowCmd = &cobra.Command{
	Use:   "show [session-id]",
	Short: "Show the questions of a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogShow,
}

var logPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete sessions older than the retention window",
	Args:  cobra.NoArgs,
	RunE:  runLogPrune,
}

func init() {
	logCmd.Flags().IntVarP(&logLimit, "limit", "n", 20, "maximum number of sessions")
	logCmd.PersistentFlags().BoolVar(&logJSON, "json", false, "output as JSON")
	logCmd.AddCommand(logShowCmd)
	logCmd.AddCommand(logPruneCmd)
	rootCmd.AddCommand(logCmd)
}

func runLogSessions(cmd *cobra.Command, _ []string) error {
	if questionLogService == nil {
		return errors.New("question log not configured")
	}

	sessions, err := questionLogService.Sessions(cmd.Context(), logLimit)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	if logJSON {
		return printJSON(cmd, sessions)
	}
	if len(sessions) == 0 {
		cmd.Println("No question sessions recorded.")
		return nil
	}

	for _, s := range sessions {
		cmd.Printf("  %s  %s  %d questions\n", s.ID, s.StartedAt.Format("2006-01-02 15:04"), s.Questions)
		if s.Locator != "" {
			cmd.Printf("    Document: %s\n", s.Locator)
		} else if s.DocID != "" {
			cmd.Printf("    Document: %s\n", s.DocID)
		}
	}
	return nil
}

func runLogShow(cmd *cobra.Command, args []string) error {
	if questionLogService == nil {
		return errors.New("question log not configured")
	}

	entries, err := questionLogService.Questions(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to read session: %w", err)
	}
	if logJSON {
		return printJSON(cmd, entries)
	}
	if len(entries) == 0 {
		cmd.Printf("No questions in session %s\n", args[0])
		return nil
	}

	for _, e := range entries {
		cmd.Printf("Q%d: %s\n", e.Seq, e.Question)
		cmd.Println(e.Answer)
		status := fmt.Sprintf("%d sources, %s", e.Sources, formatDuration(e.Duration))
		if e.Cached {
			status += ", cached"
		}
		if e.ErrorClass != "" {
			status += ", error: " + string(e.ErrorClass)
		}
		cmd.Printf("(%s)\n\n", status)
	}
	return nil
}

func runLogPrune(cmd *cobra.Command, _ []string) error {
	if questionLogService == nil {
		return errors.New("question log not configured")
	}

	n, err := questionLogService.Prune(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to prune sessions: %w", err)
	}
	cmd.Printf("Pruned %d sessions\n", n)
	return nil
}
