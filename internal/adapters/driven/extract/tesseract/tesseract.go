//go:build cgo

// Package tesseract provides an image extractor using the Tesseract
// OCR engine via gosseract. Requires CGO and a local libtesseract.
package tesseract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/corail-labs/pdfvector/internal/adapters/driven/extract"
	"github.com/corail-labs/pdfvector/internal/core/domain"
	"github.com/corail-labs/pdfvector/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// DefaultLanguage is the Tesseract language model used when none is
// configured.
const DefaultLanguage = "eng"

// supportedExtensions are the image types Tesseract reads directly.
var supportedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".tiff": true,
	".tif":  true,
	".bmp":  true,
}

// Config holds configuration for the Tesseract extractor.
type Config struct {
	// Languages are the Tesseract language models, e.g. "eng", "fra"
	// (default: eng).
	Languages []string
}

// Extractor runs local OCR over image files. Each Extract call uses
// its own gosseract client; the client is not safe for concurrent use.
type Extractor struct {
	languages []string
}

// New creates a Tesseract extractor.
func New(cfg Config) *Extractor {
	langs := cfg.Languages
	if len(langs) == 0 {
		langs = []string{DefaultLanguage}
	}
	return &Extractor{languages: langs}
}

// Extract runs OCR over the image at path.
func (e *Extractor) Extract(ctx context.Context, path string) (*domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(e.languages...); err != nil {
		return nil, fmt.Errorf("set language: %w", err)
	}
	if err := client.SetImage(path); err != nil {
		return nil, fmt.Errorf("set image %s: %w", path, err)
	}

	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("ocr %s: %w", path, err)
	}

	return &domain.Document{
		ID:      extract.DocumentID(path),
		URI:     path,
		Title:   extract.Title(path),
		Content: text,
		Pages:   1,
		Metadata: map[string]any{
			"extractor":  e.Name(),
			"languages":  strings.Join(e.languages, "+"),
			"size_bytes": info.Size(),
		},
	}, nil
}

// Supports reports whether the file is an image type Tesseract reads.
func (e *Extractor) Supports(path string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(path))]
}

// Name identifies the extractor in logs and reports.
func (e *Extractor) Name() string {
	return "tesseract"
}
