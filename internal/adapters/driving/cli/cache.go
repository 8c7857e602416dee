package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

var cacheStatsJSON bool

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and clear caches",
	Long: `Inspect and clear the caches.

In-memory tiers: query, query_embedding, embedding, reranker, answer.
Persistent partitions: embeddings, documents, query_results, processed_docs.`,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache counters",
	Args:  cobra.NoArgs,
	RunE:  runCacheStats,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear [type]",
	Short: "Clear one cache type, or all of them",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCacheClear,
}

func init() {
	cacheStatsCmd.Flags().BoolVar(&cacheStatsJSON, "json", false, "output counters as JSON")
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheStats(cmd *cobra.Command, _ []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	stats, err := retrievalService.CacheStats(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to read cache stats: %w", err)
	}
	if cacheStatsJSON {
		return printJSON(cmd, stats)
	}

	cmd.Printf("%-16s %-7s %8s %8s %8s %7s %8s %6s\n", "CACHE", "TIER", "ENTRIES", "HITS", "MISSES", "HIT%", "EVICTED", "ERRORS")
	for _, s := range stats {
		cmd.Printf("%-16s %-7s %8d %8d %8d %6.1f%% %8d %6d\n",
			s.Name, s.Tier, s.Entries, s.Hits, s.Misses, s.HitRate()*100, s.Evictions+s.Expired, s.Errors)
	}
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	typ := domain.CacheTypeAll
	if len(args) == 1 {
		typ = domain.CacheType(strings.ToLower(args[0]))
	}
	if !typ.IsValid() {
		return fmt.Errorf("unknown cache type %q", args[0])
	}

	n, err := retrievalService.ClearCache(cmd.Context(), typ)
	if err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	cmd.Printf("Cleared %d entries from %s cache\n", n, typ)
	return nil
}
