package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the embedding cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache size",
	RunE:  runCacheStats,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached embedding",
	Long: `Removes all cached embeddings. The next ingest recomputes every
chunk through the embedding API, so clearing only makes sense after a
model change or to reclaim disk space.`,
	RunE: runCacheClear,
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheStats(cmd *cobra.Command, _ []string) error {
	if err := ensureServices(); err != nil {
		return err
	}
	if cacheService == nil {
		return errors.New("cache not configured")
	}

	stats, err := cacheService.Stats(context.Background())
	if err != nil {
		return fmt.Errorf("cache stats failed: %w", err)
	}

	cmd.Printf("Entries: %d\n", stats.Entries)
	cmd.Printf("Size:    %s\n", formatBytes(stats.SizeBytes))
	return nil
}

func runCacheClear(cmd *cobra.Command, _ []string) error {
	if err := ensureServices(); err != nil {
		return err
	}
	if cacheService == nil {
		return errors.New("cache not configured")
	}

	removed, err := cacheService.Clear(context.Background())
	if err != nil {
		return fmt.Errorf("cache clear failed: %w", err)
	}

	cmd.Printf("Removed %d cached embeddings.\n", removed)
	return nil
}

// formatBytes renders a byte count human-readably.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
