package cli

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"
)

var healthJSON bool

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Show component health and index statistics",
	Args:  cobra.NoArgs,
	RunE:  runHealth,
}

func init() {
	healthCmd.Flags().BoolVar(&healthJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(healthCmd)
}

func runHealth(cmd *cobra.Command, _ []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}
	ctx := cmd.Context()

	health := retrievalService.Health(ctx)
	stats, err := retrievalService.Stats(ctx)
	if err != nil {
		return fmt.Errorf("failed to read index stats: %w", err)
	}

	if healthJSON {
		return printJSON(cmd, map[string]any{
			"status":     health.Status,
			"components": health.Components,
			"store":      stats,
		})
	}

	cmd.Printf("Status: %s\n\n", health.Status)
	cmd.Println("[Components]")
	for _, name := range slices.Sorted(maps.Keys(health.Components)) {
		cmd.Printf("  %-14s %s\n", name+":", health.Components[name])
	}
	cmd.Println()
	cmd.Println("[Vector Store]")
	cmd.Printf("  Documents: %d\n", stats.Documents)
	cmd.Printf("  Chunks: %d (%d live)\n", stats.Chunks, stats.LiveChunks)
	cmd.Printf("  Dimension: %d\n", stats.Dimension)
	cmd.Printf("  Index loaded: %t\n", stats.IndexLoaded)
	return nil
}
