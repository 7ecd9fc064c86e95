// Package mistral provides a PDF extractor backed by the Mistral OCR API.
package mistral

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/corail-labs/pdfvector/internal/adapters/driven/extract"
	"github.com/corail-labs/pdfvector/internal/core/domain"
	"github.com/corail-labs/pdfvector/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.mistral.ai/v1"
	DefaultModel   = "mistral-ocr-latest"
	DefaultTimeout = 120 * time.Second
)

// supportedExtensions maps file extension to the MIME type sent in the
// data URL.
var supportedExtensions = map[string]string{
	".pdf":  "application/pdf",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
}

// Config holds configuration for the Mistral OCR extractor.
type Config struct {
	// APIKey is the Mistral API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.mistral.ai/v1).
	BaseURL string

	// Model is the OCR model to use (default: mistral-ocr-latest).
	Model string

	// Timeout is the request timeout (default: 120s). OCR of large
	// documents is slow.
	Timeout time.Duration
}

// Extractor runs documents through Mistral OCR and returns the
// recognised text as markdown, one section per page.
type Extractor struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

type ocrRequest struct {
	Model    string      `json:"model"`
	Document ocrDocument `json:"document"`
}

type ocrDocument struct {
	Type        string `json:"type"`
	DocumentURL string `json:"document_url"`
}

type ocrResponse struct {
	Pages []struct {
		Index    int    `json:"index"`
		Markdown string `json:"markdown"`
	} `json:"pages"`
}

// New creates a Mistral OCR extractor.
func New(cfg Config) (*Extractor, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("mistral: %w: API key is required", domain.ErrMissingCredentials)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Extractor{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}, nil
}

// Extract uploads the file as a base64 data URL and concatenates the
// per-page markdown the API returns.
func (e *Extractor) Extract(ctx context.Context, path string) (*domain.Document, error) {
	mime, ok := supportedExtensions[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, fmt.Errorf("mistral: %w: unsupported file type %s", domain.ErrInvalidInput, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	reqBody := ocrRequest{
		Model: e.model,
		Document: ocrDocument{
			Type:        "document_url",
			DocumentURL: "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data),
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/ocr", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", domain.ErrTransient)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp.StatusCode, body)
	}

	var ocrResp ocrResponse
	if err := json.Unmarshal(body, &ocrResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	var sb strings.Builder
	for i, page := range ocrResp.Pages {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(page.Markdown)
	}

	return &domain.Document{
		ID:      extract.DocumentID(path),
		URI:     path,
		Title:   extract.Title(path),
		Content: sb.String(),
		Pages:   len(ocrResp.Pages),
		Metadata: map[string]any{
			"extractor":  e.Name(),
			"ocr_model":  e.model,
			"size_bytes": len(data),
		},
	}, nil
}

// Supports reports whether the file type can be sent for OCR.
func (e *Extractor) Supports(path string) bool {
	_, ok := supportedExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Name identifies the extractor in logs and reports.
func (e *Extractor) Name() string {
	return "mistral-ocr"
}

// classifyStatus maps HTTP failure statuses onto the domain sentinels.
func classifyStatus(status int, body []byte) error {
	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("mistral error (status 429): %w", domain.ErrRateLimited)
	case status >= 500:
		return fmt.Errorf("mistral error (status %d): %w", status, domain.ErrTransient)
	default:
		return fmt.Errorf("mistral error (status %d): %s", status, string(body))
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
