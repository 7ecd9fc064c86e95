package text

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSupports(t *testing.T) {
	e := New()

	assert.True(t, e.Supports("notes.txt"))
	assert.True(t, e.Supports("README.md"))
	assert.True(t, e.Supports("doc.MARKDOWN"))
	assert.False(t, e.Supports("scan.pdf"))
	assert.False(t, e.Supports("image.png"))
	assert.False(t, e.Supports("noext"))
}

func TestExtract(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.md")
	require.NoError(t, os.WriteFile(path, []byte("# Title\n\nBody text."), 0o644))

	e := New()
	doc, err := e.Extract(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "# Title\n\nBody text.", doc.Content)
	assert.Equal(t, "notes.md", doc.Title)
	assert.Equal(t, path, doc.URI)
	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, "text", doc.Metadata["extractor"])
}

func TestExtract_StableDocumentID(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	e := New()
	first, err := e.Extract(context.Background(), path)
	require.NoError(t, err)
	second, err := e.Extract(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
}

func TestExtract_MissingFile(t *testing.T) {
	e := New()
	_, err := e.Extract(context.Background(), filepath.Join(t.TempDir(), "absent.txt"))
	require.Error(t, err)
}

func TestExtract_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := New()
	_, err := e.Extract(ctx, "whatever.txt")
	require.ErrorIs(t, err, context.Canceled)
}
