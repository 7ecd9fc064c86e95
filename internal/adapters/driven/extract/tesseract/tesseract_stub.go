//go:build !cgo

// Package tesseract provides an image extractor using the Tesseract
// OCR engine via gosseract. Requires CGO and a local libtesseract.
package tesseract

import (
	"context"
	"fmt"

	"github.com/corail-labs/pdfvector/internal/core/domain"
	"github.com/corail-labs/pdfvector/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// DefaultLanguage is the Tesseract language model used when none is
// configured.
const DefaultLanguage = "eng"

// Config holds configuration for the Tesseract extractor.
type Config struct {
	// Languages are the Tesseract language models, e.g. "eng", "fra"
	// (default: eng).
	Languages []string
}

// Extractor is a stub for builds without CGO. It supports nothing, so
// the pipeline routes image files to other extractors or reports them
// unsupported.
type Extractor struct{}

// New creates a Tesseract extractor stub.
func New(_ Config) *Extractor {
	return &Extractor{}
}

// Extract always fails; local OCR is unavailable without CGO.
func (e *Extractor) Extract(_ context.Context, path string) (*domain.Document, error) {
	return nil, fmt.Errorf("tesseract: %w: built without CGO", domain.ErrNotImplemented)
}

// Supports always returns false in the stub.
func (e *Extractor) Supports(_ string) bool {
	return false
}

// Name identifies the extractor in logs and reports.
func (e *Extractor) Name() string {
	return "tesseract"
}
