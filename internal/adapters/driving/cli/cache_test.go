package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheStatsCmd(t *testing.T) {
	setupTestServices(t)

	out, err := execute(t, "cache", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Entries: 42")
	assert.Contains(t, out, "4.1 KB")
}

func TestCacheClearCmd(t *testing.T) {
	_, cache, _ := setupTestServices(t)

	out, err := execute(t, "cache", "clear")
	require.NoError(t, err)
	assert.True(t, cache.cleared)
	assert.Contains(t, out, "Removed 42 cached embeddings.")
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "2.0 KB", formatBytes(2048))
	assert.Equal(t, "1.5 MB", formatBytes(1572864))
}
