// Command pdfvector ingests documents into a namespaced vector index
// with cached embeddings.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/corail-labs/pdfvector/internal/adapters/driven/cache/memory"
	"github.com/corail-labs/pdfvector/internal/adapters/driven/cache/sqlite"
	"github.com/corail-labs/pdfvector/internal/adapters/driven/embedding/openai"
	"github.com/corail-labs/pdfvector/internal/adapters/driven/extract/mistral"
	"github.com/corail-labs/pdfvector/internal/adapters/driven/extract/tesseract"
	"github.com/corail-labs/pdfvector/internal/adapters/driven/extract/text"
	"github.com/corail-labs/pdfvector/internal/adapters/driven/vector/pinecone"
	"github.com/corail-labs/pdfvector/internal/adapters/driving/cli"
	"github.com/corail-labs/pdfvector/internal/chunker"
	"github.com/corail-labs/pdfvector/internal/config"
	"github.com/corail-labs/pdfvector/internal/core/domain"
	"github.com/corail-labs/pdfvector/internal/core/ports/driven"
	"github.com/corail-labs/pdfvector/internal/core/services"
	"github.com/corail-labs/pdfvector/internal/retry"
)

func main() {
	cli.SetBootstrap(buildServices)
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// buildServices assembles the pipeline from configuration. It runs
// lazily, on the first command that needs services.
func buildServices(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	embedSvc, err := openai.NewEmbeddingService(openai.Config{
		APIKey:     cfg.OpenAI.APIKey,
		BaseURL:    cfg.OpenAI.BaseURL,
		Model:      cfg.OpenAI.Model,
		Dimensions: cfg.OpenAI.Dimensions,
	})
	if err != nil {
		return err
	}

	var cache driven.EmbeddingCache
	if cfg.Cache.Backend == "memory" {
		cache = memory.New()
	} else {
		cache, err = sqlite.New(cfg.Cache.Path)
		if err != nil {
			return err
		}
	}

	index, err := pinecone.New(pinecone.Config{
		APIKey: cfg.Pinecone.APIKey,
		Host:   cfg.Pinecone.Host,
	})
	if err != nil {
		return err
	}

	extractors := []driven.Extractor{text.New()}
	if cfg.OCREnabled() {
		ocr, err := mistral.New(mistral.Config{
			APIKey: cfg.Mistral.APIKey,
			Model:  cfg.Mistral.Model,
		})
		if err != nil {
			return err
		}
		extractors = append(extractors, ocr)
	}
	extractors = append(extractors, tesseract.New(tesseract.Config{
		Languages: cfg.Tesseract.Languages,
	}))

	embedder := services.NewEmbeddingOrchestrator(embedSvc, cache,
		services.WithBatchSize(cfg.Pipeline.BatchSize),
		services.WithEmbedWorkers(cfg.Pipeline.EmbedWorkers),
		services.WithRequestsPerMinute(cfg.Pipeline.RequestsPerMinute),
		services.WithMaxBatchTokens(cfg.Pipeline.MaxBatchTokens),
		services.WithRetryPolicy(retry.NewPolicy(
			cfg.Pipeline.RetryAttempts,
			time.Duration(cfg.Pipeline.RetryBaseDelayMS)*time.Millisecond,
		)),
	)

	// Fail fast on bad credentials before any pipeline work starts.
	if err := embedder.Ping(context.Background()); err != nil {
		return domain.NewPipelineError(domain.FailureConfiguration,
			"embedding service unreachable", err)
	}

	writer := services.NewVectorWriter(index, cfg.Pipeline.UpsertBatchSize)

	pipeline := services.NewIngestOrchestrator(
		extractors,
		chunker.New(
			chunker.WithChunkSize(cfg.Pipeline.ChunkSize),
			chunker.WithOverlap(cfg.Pipeline.ChunkOverlap),
		),
		embedder,
		writer,
		index,
		cfg.Pipeline.ExtractWorkers,
	)

	cli.SetDefaultNamespace(cfg.Pinecone.Namespace)
	cli.Setup(pipeline, cache, index, extractors)
	return nil
}
