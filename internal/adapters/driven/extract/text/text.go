// Package text provides an extractor for plain text and markdown files.
package text

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/corail-labs/pdfvector/internal/adapters/driven/extract"
	"github.com/corail-labs/pdfvector/internal/core/domain"
	"github.com/corail-labs/pdfvector/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// supportedExtensions are the file types read verbatim.
var supportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
}

// Extractor reads text files as-is. No OCR, no parsing.
type Extractor struct{}

// New creates a plain text extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract reads the file at path and returns its content.
func (e *Extractor) Extract(ctx context.Context, path string) (*domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	return &domain.Document{
		ID:      extract.DocumentID(path),
		URI:     path,
		Title:   extract.Title(path),
		Content: string(data),
		Metadata: map[string]any{
			"extractor":  e.Name(),
			"size_bytes": len(data),
		},
	}, nil
}

// Supports reports whether the file extension is a plain text type.
func (e *Extractor) Supports(path string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(path))]
}

// Name identifies the extractor in logs and reports.
func (e *Extractor) Name() string {
	return "text"
}
