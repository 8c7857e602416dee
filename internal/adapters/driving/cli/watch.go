package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/connectors/filesystem"
	"github.com/custodia-labs/docqa/internal/core/domain"
)

var (
	watchInitial  bool
	watchDebounce time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch [directory]",
	Short: "Index a directory and keep it in sync",
	Long: `Indexes every supported file under a directory, then watches it.

New files are ingested, modified files are re-indexed and deleted files are
removed from the index. Hidden files and directories are ignored. Stop with
Ctrl+C.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchInitial, "initial", true, "ingest existing files before watching")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 500*time.Millisecond, "quiet period before a changed file is processed")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}
	dir, err := filepath.Abs(filesystem.LocalPath(args[0]))
	if err != nil {
		return fmt.Errorf("invalid directory: %w", err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("cannot watch %s: %w", args[0], err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", args[0])
	}
	ctx := cmd.Context()

	if watchInitial {
		n, err := ingestTree(ctx, cmd, dir)
		if err != nil {
			return err
		}
		cmd.Printf("Indexed %d files under %s\n", n, dir)
	}

	w := filesystem.NewWatcher(dir, watchExtensions)
	changes, err := w.Watch(ctx)
	if err != nil {
		return err
	}
	defer w.Close()

	stop := startMaintenance(ctx)
	defer stop()

	cmd.Printf("Watching %s (Ctrl+C to stop)\n", dir)
	debounceChanges(ctx, changes, watchDebounce, func(c filesystem.Change) {
		applyChange(ctx, cmd, c)
	})
	return nil
}

// ingestTree ingests every supported, non-hidden file under dir.
func ingestTree(ctx context.Context, cmd *cobra.Command, dir string) (int, error) {
	count := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if strings.HasPrefix(d.Name(), ".") && path != dir {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !supportedFile(path) {
			return nil
		}
		if _, err := retrievalService.ProcessDocument(ctx, filesystem.Locator(path)); err != nil {
			cmd.PrintErrf("Failed to ingest %s: %v\n", path, err)
			return nil
		}
		count++
		return nil
	})
	return count, err
}

func supportedFile(path string) bool {
	if len(watchExtensions) == 0 {
		return true
	}
	return slices.Contains(watchExtensions, strings.ToLower(filepath.Ext(path)))
}

// debounceChanges coalesces changes per path and calls apply once a path
// has been quiet for the debounce period. It returns when changes closes.
func debounceChanges(ctx context.Context, changes <-chan filesystem.Change, quiet time.Duration, apply func(filesystem.Change)) {
	type pendingChange struct {
		change filesystem.Change
		at     time.Time
	}
	pending := make(map[string]pendingChange)
	tick := time.NewTicker(max(quiet/2, 10*time.Millisecond))
	defer tick.Stop()

	flush := func(all bool) {
		now := time.Now()
		for path, p := range pending {
			if all || now.Sub(p.at) >= quiet {
				delete(pending, path)
				apply(p.change)
			}
		}
	}

	for {
		select {
		case c, ok := <-changes:
			if !ok {
				if ctx.Err() == nil {
					flush(true)
				}
				return
			}
			// A create followed by writes is still a create.
			if prev, ok := pending[c.Path]; ok && prev.change.Type == filesystem.ChangeCreated && c.Type == filesystem.ChangeUpdated {
				c.Type = filesystem.ChangeCreated
			}
			pending[c.Path] = pendingChange{change: c, at: time.Now()}
		case <-tick.C:
			flush(false)
		case <-ctx.Done():
			return
		}
	}
}

func applyChange(ctx context.Context, cmd *cobra.Command, c filesystem.Change) {
	locator := c.Locator()
	docID := domain.DocumentID(locator)

	// Editors often replace files by rename, which arrives as a create, so
	// any stale entry is dropped before re-ingesting.
	if _, err := retrievalService.RemoveDocument(ctx, docID); err != nil {
		cmd.PrintErrf("Failed to remove %s: %v\n", c.Path, err)
		return
	}
	if c.Type == filesystem.ChangeDeleted {
		cmd.Printf("Removed %s\n", c.Path)
		return
	}

	res, err := retrievalService.ProcessDocument(ctx, locator)
	if err != nil {
		cmd.PrintErrf("Failed to ingest %s: %v\n", c.Path, err)
		return
	}
	cmd.Printf("%s %s (%d chunks)\n", strings.ToUpper(string(c.Type[:1]))+string(c.Type[1:]), c.Path, res.Chunks)
}
