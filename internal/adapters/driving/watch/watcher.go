// Package watch emits filesystem change events for a directory tree,
// feeding continuous ingestion.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/corail-labs/pdfvector/internal/logger"
)

// ChangeType describes what happened to a file.
type ChangeType int

const (
	// ChangeCreated means a new file appeared.
	ChangeCreated ChangeType = iota
	// ChangeUpdated means an existing file was written.
	ChangeUpdated
	// ChangeDeleted means a file was removed or renamed away.
	ChangeDeleted
)

// Change is one filesystem event for a supported file.
type Change struct {
	Type ChangeType
	Path string
}

// Watcher watches a directory tree recursively and reports changes to
// files the given filter accepts. Subdirectories created while
// watching are picked up automatically.
type Watcher struct {
	root     string
	supports func(path string) bool

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	closed  bool
}

// New creates a watcher for the directory tree rooted at root. The
// supports filter decides which files produce events; nil accepts
// everything.
func New(root string, supports func(string) bool) *Watcher {
	if supports == nil {
		supports = func(string) bool { return true }
	}
	return &Watcher{root: root, supports: supports}
}

// Watch starts watching and returns a channel of changes. The channel
// closes when ctx is cancelled or the watcher is closed.
func (w *Watcher) Watch(ctx context.Context) (<-chan Change, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil, errors.New("watcher is closed")
	}

	info, err := os.Stat(w.root)
	if err != nil {
		return nil, fmt.Errorf("root path error: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root path error: %s is not a directory", w.root)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	// Watch the root and every existing subdirectory.
	err = filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fsw.Add(path)
		}
		return nil
	})
	if err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", w.root, err)
	}

	w.watcher = fsw
	changes := make(chan Change)
	go w.run(ctx, fsw, changes)
	return changes, nil
}

// run pumps fsnotify events into the change channel until ctx is done
// or the watcher closes.
func (w *Watcher) run(ctx context.Context, fsw *fsnotify.Watcher, changes chan<- Change) {
	defer close(changes)

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			change, ok := w.translate(fsw, event)
			if !ok {
				continue
			}
			select {
			case changes <- change:
			case <-ctx.Done():
				return
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("watch error: %v", err)
		}
	}
}

// translate maps an fsnotify event onto a Change, filtering out
// directories and unsupported files.
func (w *Watcher) translate(fsw *fsnotify.Watcher, event fsnotify.Event) (Change, bool) {
	switch {
	case event.Has(fsnotify.Create):
		// New directories extend the watch; new files become events.
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := fsw.Add(event.Name); err != nil {
				logger.Warn("watch %s: %v", event.Name, err)
			}
			return Change{}, false
		}
		if !w.supports(event.Name) {
			return Change{}, false
		}
		return Change{Type: ChangeCreated, Path: event.Name}, true

	case event.Has(fsnotify.Write):
		if !w.supports(event.Name) {
			return Change{}, false
		}
		return Change{Type: ChangeUpdated, Path: event.Name}, true

	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		if !w.supports(event.Name) {
			return Change{}, false
		}
		return Change{Type: ChangeDeleted, Path: event.Name}, true
	}

	return Change{}, false
}

// Close stops the watcher. After Close, Watch returns an error.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.closed = true
	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}
