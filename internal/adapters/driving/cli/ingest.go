package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/corail-labs/pdfvector/internal/core/ports/driving"
)

var ingestJSON bool

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Width(18)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	failureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [path...]",
	Short: "Extract, embed and index documents",
	Long: `Runs the full pipeline over the given files or directories.
Directories are walked recursively; files no extractor supports are
skipped. Re-ingesting unchanged files is free: embeddings come from the
cache and upserts overwrite in place.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "output the run report as JSON")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if err := ensureServices(); err != nil {
		return err
	}

	paths, err := collectFiles(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no supported files under %v", args)
	}

	report, err := pipelineService.Ingest(context.Background(), paths, namespaceFlag)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	if ingestJSON {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal report: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	renderReport(cmd, report)
	return nil
}

// collectFiles expands arguments into the sorted list of supported
// files. Directories are walked recursively.
func collectFiles(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", arg, err)
		}

		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}

		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && supported(path) {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", arg, err)
		}
	}

	sort.Strings(paths)
	return paths, nil
}

// renderReport prints the run summary.
func renderReport(cmd *cobra.Command, report *driving.RunReport) {
	cmd.Println()
	cmd.Println(headerStyle.Render("Ingest complete"))

	row := func(label, value string) {
		cmd.Printf("  %s%s\n", labelStyle.Render(label), value)
	}

	row("Namespace", orDefault(report.Namespace, "(default)"))
	row("Documents", fmt.Sprintf("%d (%d failed)", report.Documents, report.DocumentsFailed))
	row("Chunks", fmt.Sprintf("%d", report.Chunks))
	row("Embedded", fmt.Sprintf("%d fresh, %d from cache", report.Embedded, report.Cached))
	row("Vectors written", fmt.Sprintf("%d in %d batches", report.VectorsWritten, report.BatchesWritten))
	row("Estimated cost", fmt.Sprintf("$%.6f", report.EstimatedCost))
	row("Duration", report.Timings.Total.Round(time.Millisecond).String())

	if len(report.Failures) > 0 {
		cmd.Println()
		cmd.Println(warnStyle.Render(fmt.Sprintf("%d failures:", len(report.Failures))))
		for _, f := range report.Failures {
			cmd.Printf("  %s\n", failureStyle.Render(f.Error()))
		}
	}
	cmd.Println()
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
