package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	queryTopK int
	queryJSON bool
)

var queryCmd = &cobra.Command{
	Use:   "query [text]",
	Short: "Search the vector index",
	Long: `Embeds the query text and returns the most similar chunks from the
namespace. The query embedding goes through the same fingerprint cache
as ingestion, so repeating a query costs nothing.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 5, "maximum number of results")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	if err := ensureServices(); err != nil {
		return err
	}

	hits, err := pipelineService.Query(context.Background(), args[0], namespaceFlag, queryTopK)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if queryJSON {
		data, err := json.MarshalIndent(hits, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal results: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(hits) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i, hit := range hits {
		title, _ := hit.Metadata["file_name"].(string)
		if title == "" {
			title = hit.ID
		}
		cmd.Printf("  [%d] %s (%.2f)\n", i+1, title, hit.Score)
		if text, ok := hit.Metadata["text"].(string); ok && text != "" {
			cmd.Printf("      %s\n", text)
		}
		cmd.Println()
	}
	return nil
}
