// Package fingerprint derives content-addressed cache keys for embeddings.
//
// A fingerprint is a deterministic digest over the normalised chunk text
// and the embedding model identifier. Two chunks with identical text and
// model share a fingerprint, and therefore a cached embedding, even when
// they originate from different documents. The fingerprint changes iff
// the text or the model changes.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Normalize canonicalises chunk text before hashing. Line endings are
// unified and surrounding whitespace stripped so that extraction
// artefacts do not defeat cache hits.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.TrimSpace(text)
}

// Compute returns the hex-encoded SHA-256 fingerprint for a chunk text
// under the given embedding model.
func Compute(text, model string) string {
	sum := sha256.Sum256([]byte(model + ":" + Normalize(text)))
	return hex.EncodeToString(sum[:])
}
