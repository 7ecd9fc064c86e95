package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/corail-labs/pdfvector/internal/adapters/driving/watch"
	"github.com/corail-labs/pdfvector/internal/logger"
)

var watchCmd = &cobra.Command{
	Use:   "watch [directory]",
	Short: "Watch a directory and ingest changed files",
	Long: `Watches a directory tree and re-ingests files as they appear or
change. The fingerprint cache makes repeated ingests of unchanged
content free. Stop with Ctrl-C.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if err := ensureServices(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	watcher := watch.New(args[0], supported)
	defer watcher.Close()

	changes, err := watcher.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watch failed: %w", err)
	}

	cmd.Printf("Watching %s (Ctrl-C to stop)\n", args[0])

	for change := range changes {
		switch change.Type {
		case watch.ChangeCreated, watch.ChangeUpdated:
			report, err := pipelineService.Ingest(ctx, []string{change.Path}, namespaceFlag)
			if err != nil {
				logger.Warn("ingest %s: %v", change.Path, err)
				continue
			}
			cmd.Printf("%s: %d vectors written (%d cached)\n",
				change.Path, report.VectorsWritten, report.Cached)

		case watch.ChangeDeleted:
			// Vector removal is namespace-wide only; deletions are
			// surfaced but not propagated to the index.
			logger.Info("%s removed; index entries kept", change.Path)
		}
	}

	cmd.Println("Watch stopped.")
	return nil
}
