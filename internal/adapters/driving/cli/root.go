// Package cli implements the docqa command line with cobra.
package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

var verbose bool

// Services wired by main. Commands check for nil before use so that help
// and version work without a configured backend.
var (
	retrievalService   driving.RetrievalService
	settingsService    driving.SettingsService
	questionLogService driving.QuestionLogService
	scheduler          driving.Scheduler

	// watchExtensions limits `docqa watch` to formats an extractor handles.
	watchExtensions []string
)

// Services holds the driving ports the commands use.
type Services struct {
	Retrieval       driving.RetrievalService
	Settings        driving.SettingsService
	QuestionLog     driving.QuestionLogService
	Scheduler       driving.Scheduler
	WatchExtensions []string
}

// SetServices injects the services built by main.
func SetServices(s Services) {
	retrievalService = s.Retrieval
	settingsService = s.Settings
	questionLogService = s.QuestionLog
	scheduler = s.Scheduler
	watchExtensions = s.WatchExtensions
}

// SetVersion sets the version reported by `docqa version`.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

var rootCmd = &cobra.Command{
	Use:   "docqa",
	Short: "Ask questions about your documents",
	Long: `docqa indexes documents (local files or URLs) and answers questions
about them with retrieval-augmented generation.

Documents are split into structure-aware chunks, embedded, and stored in a
local HNSW index. Questions are embedded, matched against the index,
reranked, and answered by an LLM with numbered source citations.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging on stderr")
}

// RootCommand returns the root command, for main to add extra wiring hooks.
func RootCommand() *cobra.Command {
	return rootCmd
}

// Execute runs the root command with a context cancelled on SIGINT/SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// startMaintenance runs the background scheduler for the lifetime of a
// long-running command. The returned func stops it.
func startMaintenance(ctx context.Context) func() {
	if scheduler == nil {
		return func() {}
	}
	go func() {
		if err := scheduler.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("maintenance: %v", err)
		}
	}()
	return func() {
		_ = scheduler.Stop()
	}
}
