package mistral

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corail-labs/pdfvector/internal/core/domain"
)

func newTestExtractor(t *testing.T, handler http.HandlerFunc) *Extractor {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	e, err := New(Config{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)
	return e
}

func writePDF(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.pdf")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMissingCredentials)
}

func TestSupports(t *testing.T) {
	e, err := New(Config{APIKey: "k"})
	require.NoError(t, err)

	assert.True(t, e.Supports("scan.pdf"))
	assert.True(t, e.Supports("photo.JPG"))
	assert.True(t, e.Supports("page.png"))
	assert.False(t, e.Supports("notes.txt"))
	assert.False(t, e.Supports("archive.zip"))
}

func TestExtract(t *testing.T) {
	var got ocrRequest
	e := newTestExtractor(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ocr", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		resp := ocrResponse{}
		resp.Pages = append(resp.Pages,
			struct {
				Index    int    `json:"index"`
				Markdown string `json:"markdown"`
			}{Index: 0, Markdown: "# Page one"},
			struct {
				Index    int    `json:"index"`
				Markdown string `json:"markdown"`
			}{Index: 1, Markdown: "Page two body."},
		)
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	})

	path := writePDF(t, "%PDF-1.4 fake")
	doc, err := e.Extract(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, DefaultModel, got.Model)
	assert.Equal(t, "document_url", got.Document.Type)
	require.True(t, strings.HasPrefix(got.Document.DocumentURL, "data:application/pdf;base64,"))

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(got.Document.DocumentURL, "data:application/pdf;base64,"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 fake", string(raw))

	assert.Equal(t, "# Page one\n\nPage two body.", doc.Content)
	assert.Equal(t, 2, doc.Pages)
	assert.Equal(t, "doc.pdf", doc.Title)
	assert.Equal(t, "mistral-ocr", doc.Metadata["extractor"])
}

func TestExtract_UnsupportedType(t *testing.T) {
	e, err := New(Config{APIKey: "k"})
	require.NoError(t, err)

	_, err = e.Extract(context.Background(), "notes.txt")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestExtract_RateLimited(t *testing.T) {
	e := newTestExtractor(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	})

	_, err := e.Extract(context.Background(), writePDF(t, "x"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRateLimited)
}

func TestExtract_ServerErrorIsTransient(t *testing.T) {
	e := newTestExtractor(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "broken", http.StatusServiceUnavailable)
	})

	_, err := e.Extract(context.Background(), writePDF(t, "x"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTransient)
}

func TestExtract_ClientErrorIsFatal(t *testing.T) {
	e := newTestExtractor(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "document too large", http.StatusBadRequest)
	})

	_, err := e.Extract(context.Background(), writePDF(t, "x"))
	require.Error(t, err)
	assert.False(t, domain.IsRetryable(err))
}
