package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Inspect and manage the vector index",
}

var indexStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show vector counts per namespace",
	RunE:  runIndexStats,
}

var indexClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every vector in a namespace",
	Long: `Deletes all vectors in the target namespace. The embedding cache is
untouched, so re-ingesting the same documents afterwards costs nothing.`,
	RunE: runIndexClear,
}

func init() {
	indexCmd.AddCommand(indexStatsCmd)
	indexCmd.AddCommand(indexClearCmd)
	rootCmd.AddCommand(indexCmd)
}

func runIndexStats(cmd *cobra.Command, _ []string) error {
	if err := ensureServices(); err != nil {
		return err
	}
	if indexService == nil {
		return errors.New("vector index not configured")
	}

	stats, err := indexService.Stats(context.Background())
	if err != nil {
		return fmt.Errorf("index stats failed: %w", err)
	}

	cmd.Printf("Vectors:    %d\n", stats.TotalVectors)
	cmd.Printf("Dimensions: %d\n", stats.Dimensions)

	if len(stats.Namespaces) > 0 {
		cmd.Println("Namespaces:")
		names := make([]string, 0, len(stats.Namespaces))
		for name := range stats.Namespaces {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			label := name
			if label == "" {
				label = "(default)"
			}
			cmd.Printf("  %s: %d\n", label, stats.Namespaces[name])
		}
	}
	return nil
}

func runIndexClear(cmd *cobra.Command, _ []string) error {
	if err := ensureServices(); err != nil {
		return err
	}
	if indexService == nil {
		return errors.New("vector index not configured")
	}

	if err := indexService.DeleteNamespace(context.Background(), namespaceFlag); err != nil {
		return fmt.Errorf("index clear failed: %w", err)
	}

	cmd.Printf("Namespace %s cleared.\n", orDefault(namespaceFlag, "(default)"))
	return nil
}
