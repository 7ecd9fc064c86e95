// Package cli implements the pdfvector command line interface.
package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/corail-labs/pdfvector/internal/core/ports/driven"
	"github.com/corail-labs/pdfvector/internal/core/ports/driving"
	"github.com/corail-labs/pdfvector/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Services wired by main (or by tests).
var (
	pipelineService driving.PipelineRunner
	cacheService    driven.EmbeddingCache
	indexService    driven.VectorIndex
	extractorSet    []driven.Extractor
	namespaceFlag   string
)

var (
	configPath string
	verbose    bool
)

// errNotConfigured is returned when a command needs services but
// neither Setup nor SetBootstrap was called.
var errNotConfigured = errors.New("pipeline not configured")

// bootstrap builds the real services on first use. It is a variable so
// tests can swap it out; commands that need services call
// ensureServices before running.
var bootstrap func(configPath string) error

var rootCmd = &cobra.Command{
	Use:   "pdfvector",
	Short: "Ingest documents into a vector index",
	Long: `pdfvector extracts text from PDFs, images and text files, chunks it,
embeds the chunks through a fingerprint cache, and upserts the vectors
into a namespaced vector index. Unchanged content is never re-embedded.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.pdfvector/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&namespaceFlag, "namespace", "s", "", "vector index namespace")
}

// Setup injects the services commands run against.
func Setup(pipeline driving.PipelineRunner, cache driven.EmbeddingCache, index driven.VectorIndex, extractors []driven.Extractor) {
	pipelineService = pipeline
	cacheService = cache
	indexService = index
	extractorSet = extractors
}

// SetBootstrap registers the lazy service builder used when no services
// were injected. Commands that do not need services (version) never
// trigger it.
func SetBootstrap(fn func(configPath string) error) {
	bootstrap = fn
}

// SetDefaultNamespace sets the namespace used when the flag is absent.
func SetDefaultNamespace(ns string) {
	if namespaceFlag == "" {
		namespaceFlag = ns
	}
}

// ensureServices makes sure the pipeline and its adapters exist.
func ensureServices() error {
	if pipelineService != nil {
		return nil
	}
	if bootstrap == nil {
		return errNotConfigured
	}
	return bootstrap(configPath)
}

// supported reports whether any extractor handles the file.
func supported(path string) bool {
	for _, e := range extractorSet {
		if e.Supports(path) {
			return true
		}
	}
	return false
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
