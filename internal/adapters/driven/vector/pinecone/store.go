// Package pinecone provides a vector index adapter backed by the
// Pinecone REST API.
package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/corail-labs/pdfvector/internal/core/domain"
	"github.com/corail-labs/pdfvector/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorIndex = (*Store)(nil)

// Default configuration values.
const (
	DefaultTimeout = 60 * time.Second
)

// Config holds configuration for the Pinecone vector store.
type Config struct {
	// APIKey is the Pinecone API key (required).
	APIKey string

	// Host is the index host URL, e.g.
	// https://my-index-abc123.svc.us-east-1-aws.pinecone.io (required).
	Host string

	// Timeout is the request timeout (default: 60s).
	Timeout time.Duration
}

// Store persists vectors in a Pinecone serverless index.
//
// Failures are classified the same way as the embedding adapter: 429
// wraps domain.ErrRateLimited, 5xx and network errors wrap
// domain.ErrTransient, other 4xx are fatal.
type Store struct {
	client *http.Client
	host   string
	apiKey string
}

type upsertRequest struct {
	Vectors   []pineconeVector `json:"vectors"`
	Namespace string           `json:"namespace,omitempty"`
}

type pineconeVector struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type queryRequest struct {
	Vector          []float32 `json:"vector"`
	TopK            int       `json:"topK"`
	Namespace       string    `json:"namespace,omitempty"`
	IncludeMetadata bool      `json:"includeMetadata"`
}

type queryResponse struct {
	Matches []struct {
		ID       string         `json:"id"`
		Score    float64        `json:"score"`
		Metadata map[string]any `json:"metadata"`
	} `json:"matches"`
}

type deleteRequest struct {
	DeleteAll bool   `json:"deleteAll"`
	Namespace string `json:"namespace,omitempty"`
}

type statsResponse struct {
	Namespaces map[string]struct {
		VectorCount int `json:"vectorCount"`
	} `json:"namespaces"`
	Dimension        int `json:"dimension"`
	TotalVectorCount int `json:"totalVectorCount"`
}

// New creates a new Pinecone vector store.
func New(cfg Config) (*Store, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("pinecone: %w: API key is required", domain.ErrMissingCredentials)
	}
	if cfg.Host == "" {
		return nil, fmt.Errorf("pinecone: %w: index host is required", domain.ErrInvalidInput)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Store{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		host:   strings.TrimRight(cfg.Host, "/"),
		apiKey: cfg.APIKey,
	}, nil
}

// Upsert writes records into a namespace. Pinecone upserts are
// idempotent by ID, so retries and re-ingests overwrite in place.
func (s *Store) Upsert(ctx context.Context, records []domain.VectorRecord, namespace string) error {
	if len(records) == 0 {
		return nil
	}

	vectors := make([]pineconeVector, len(records))
	for i, rec := range records {
		vectors[i] = pineconeVector{
			ID:       rec.ID,
			Values:   rec.Vector,
			Metadata: rec.Metadata,
		}
	}

	var resp struct {
		UpsertedCount int `json:"upsertedCount"`
	}
	if err := s.post(ctx, "/vectors/upsert", upsertRequest{Vectors: vectors, Namespace: namespace}, &resp); err != nil {
		return err
	}
	if resp.UpsertedCount != len(records) {
		return fmt.Errorf("pinecone: upserted %d of %d vectors: %w", resp.UpsertedCount, len(records), domain.ErrTransient)
	}
	return nil
}

// Query finds the topK most similar records in a namespace.
func (s *Store) Query(ctx context.Context, vector []float32, namespace string, topK int) ([]domain.VectorHit, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: topK must be positive", domain.ErrInvalidInput)
	}

	var resp queryResponse
	req := queryRequest{
		Vector:          vector,
		TopK:            topK,
		Namespace:       namespace,
		IncludeMetadata: true,
	}
	if err := s.post(ctx, "/query", req, &resp); err != nil {
		return nil, err
	}

	hits := make([]domain.VectorHit, len(resp.Matches))
	for i, m := range resp.Matches {
		hits[i] = domain.VectorHit{
			ID:       m.ID,
			Score:    m.Score,
			Metadata: m.Metadata,
		}
	}
	return hits, nil
}

// DeleteNamespace removes every vector in a namespace.
func (s *Store) DeleteNamespace(ctx context.Context, namespace string) error {
	return s.post(ctx, "/vectors/delete", deleteRequest{DeleteAll: true, Namespace: namespace}, nil)
}

// Stats reports index contents for diagnostics.
func (s *Store) Stats(ctx context.Context) (*driven.IndexStats, error) {
	var resp statsResponse
	if err := s.post(ctx, "/describe_index_stats", struct{}{}, &resp); err != nil {
		return nil, err
	}

	stats := &driven.IndexStats{
		TotalVectors: resp.TotalVectorCount,
		Dimensions:   resp.Dimension,
		Namespaces:   make(map[string]int, len(resp.Namespaces)),
	}
	for name, ns := range resp.Namespaces {
		stats.Namespaces[name] = ns.VectorCount
	}
	return stats, nil
}

// Close releases resources.
func (s *Store) Close() error {
	return nil
}

// post sends a JSON request to the index host and decodes the response
// into out when out is non-nil.
func (s *Store) post(ctx context.Context, path string, payload any, out any) error {
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.host+path, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", domain.ErrTransient)
	}

	if resp.StatusCode != http.StatusOK {
		return classifyStatus(resp.StatusCode, body)
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// classifyStatus maps HTTP failure statuses onto the domain sentinels.
func classifyStatus(status int, body []byte) error {
	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("pinecone error (status 429): %w", domain.ErrRateLimited)
	case status >= 500:
		return fmt.Errorf("pinecone error (status %d): %w", status, domain.ErrTransient)
	default:
		return fmt.Errorf("pinecone error (status %d): %s", status, string(body))
	}
}

// classifyTransportError marks every transport failure except
// cancellation as transient.
func classifyTransportError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("send request: %v: %w", err, domain.ErrTransient)
}
