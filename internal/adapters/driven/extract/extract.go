// Package extract holds shared helpers for the extraction adapters.
package extract

import (
	"path/filepath"

	"github.com/google/uuid"
)

// docNamespace is the UUIDv5 namespace for document IDs.
var docNamespace = uuid.MustParse("4f9f1c6e-8b2a-4d47-9c3e-7a1d50b2e8c4")

// DocumentID derives a stable document ID from a file path. The same
// path always yields the same ID, which keeps chunk IDs and therefore
// vector IDs stable across repeated ingests.
func DocumentID(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return uuid.NewSHA1(docNamespace, []byte(path)).String()
}

// Title returns the human-readable title for a file path.
func Title(path string) string {
	return filepath.Base(path)
}
