package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isText(path string) bool {
	return strings.HasSuffix(path, ".txt")
}

func waitForChange(t *testing.T, changes <-chan Change) Change {
	t.Helper()
	select {
	case change, ok := <-changes:
		require.True(t, ok, "channel closed before event")
		return change
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for file change event")
		return Change{}
	}
}

func TestWatch_FileCreated(t *testing.T) {
	dir := t.TempDir()
	w := New(dir, isText)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, err := w.Watch(ctx)
	require.NoError(t, err)

	go func() {
		time.Sleep(50 * time.Millisecond)
		os.WriteFile(filepath.Join(dir, "new.txt"), []byte("content"), 0o644)
	}()

	change := waitForChange(t, changes)
	assert.Equal(t, ChangeCreated, change.Type)
	assert.Contains(t, change.Path, "new.txt")
}

func TestWatch_FileModified(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte("initial"), 0o644))

	w := New(dir, isText)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, err := w.Watch(ctx)
	require.NoError(t, err)

	go func() {
		time.Sleep(50 * time.Millisecond)
		os.WriteFile(path, []byte("modified"), 0o644)
	}()

	change := waitForChange(t, changes)
	assert.Equal(t, ChangeUpdated, change.Type)
	assert.Contains(t, change.Path, "doc.txt")
}

func TestWatch_FileDeleted(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gone.txt")
	require.NoError(t, os.WriteFile(path, []byte("delete me"), 0o644))

	w := New(dir, isText)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, err := w.Watch(ctx)
	require.NoError(t, err)

	go func() {
		time.Sleep(50 * time.Millisecond)
		os.Remove(path)
	}()

	change := waitForChange(t, changes)
	assert.Equal(t, ChangeDeleted, change.Type)
	assert.Contains(t, change.Path, "gone.txt")
}

func TestWatch_UnsupportedFilesIgnored(t *testing.T) {
	dir := t.TempDir()
	w := New(dir, isText)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, err := w.Watch(ctx)
	require.NoError(t, err)

	go func() {
		time.Sleep(50 * time.Millisecond)
		os.WriteFile(filepath.Join(dir, "skip.bin"), []byte("x"), 0o644)
		os.WriteFile(filepath.Join(dir, "keep.txt"), []byte("y"), 0o644)
	}()

	change := waitForChange(t, changes)
	assert.Contains(t, change.Path, "keep.txt")
}

func TestWatch_NonExistentRoot(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "absent"), nil)

	changes, err := w.Watch(context.Background())
	require.Error(t, err)
	assert.Nil(t, changes)
	assert.Contains(t, err.Error(), "root path error")
}

func TestWatch_ChannelClosesOnCancel(t *testing.T) {
	dir := t.TempDir()
	w := New(dir, nil)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	changes, err := w.Watch(ctx)
	require.NoError(t, err)

	cancel()

	select {
	case _, ok := <-changes:
		for ok {
			_, ok = <-changes
		}
	case <-time.After(time.Second):
		t.Fatal("channel did not close after context cancellation")
	}
}

func TestWatch_AfterClose(t *testing.T) {
	w := New(t.TempDir(), nil)
	require.NoError(t, w.Close())

	changes, err := w.Watch(context.Background())
	require.Error(t, err)
	assert.Nil(t, changes)
}
