// Package sqlite provides a durable embedding cache backed by SQLite.
//
// The cache is content-addressed: entries are keyed by the fingerprint
// of (normalised chunk text, embedding model) and survive process
// restarts, so repeated runs over partially-overlapping document sets
// pay the embedding API cost only for genuinely new or changed text.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/corail-labs/pdfvector/internal/adapters/driven/cache/sqlite/migrations"
	"github.com/corail-labs/pdfvector/internal/core/domain"
	"github.com/corail-labs/pdfvector/internal/core/ports/driven"
)

// Ensure Cache implements the interface.
var _ driven.EmbeddingCache = (*Cache)(nil)

// Cache is a SQLite-backed implementation of driven.EmbeddingCache.
type Cache struct {
	db   *sql.DB
	path string
}

// New creates a cache at the specified data directory. If dataDir is
// empty, defaults to ~/.pdfvector/cache.
func New(dataDir string) (*Cache, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".pdfvector", "cache")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "embeddings.db")

	// WAL mode lets batch workers read while another writes; the busy
	// timeout covers same-key write races.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	c := &Cache{db: db, path: dbPath}

	if err := c.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return c, nil
}

// Close closes the database connection.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Path returns the database file path.
func (c *Cache) Path() string {
	return c.path
}

// Get returns the cached entry for a fingerprint.
func (c *Cache) Get(ctx context.Context, fingerprint string) (*domain.CacheEntry, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT fingerprint, model, vector, created_at
		FROM embeddings
		WHERE fingerprint = ?
	`, fingerprint)

	var entry domain.CacheEntry
	var blob []byte
	if err := row.Scan(&entry.Fingerprint, &entry.Model, &blob, &entry.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("reading cache entry: %w", err)
	}

	entry.Vector = bytesToFloat32Slice(blob)
	return &entry, nil
}

// Put stores an embedding under its fingerprint. Concurrent writers of
// the same fingerprint both succeed; the upsert makes the outcome
// last-writer-wins, which is safe because both computed the same value
// from the same text and model.
func (c *Cache) Put(ctx context.Context, fingerprint string, vector []float32, model string) (*domain.CacheEntry, error) {
	now := time.Now().UTC()
	blob := float32SliceToBytes(vector)

	_, err := c.db.ExecContext(ctx, `
		INSERT INTO embeddings (fingerprint, model, dimensions, vector, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(fingerprint) DO UPDATE SET
			model = excluded.model,
			dimensions = excluded.dimensions,
			vector = excluded.vector
	`, fingerprint, model, len(vector), blob, now)
	if err != nil {
		return nil, fmt.Errorf("writing cache entry: %w", err)
	}

	return &domain.CacheEntry{
		Fingerprint: fingerprint,
		Vector:      append([]float32(nil), vector...),
		Model:       model,
		CreatedAt:   now,
	}, nil
}

// Clear removes every entry and returns the number removed.
func (c *Cache) Clear(ctx context.Context) (int, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM embeddings`)
	if err != nil {
		return 0, fmt.Errorf("clearing cache: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting removed entries: %w", err)
	}
	return int(n), nil
}

// Stats reports cache size.
func (c *Cache) Stats(ctx context.Context) (*driven.CacheStats, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(LENGTH(vector)), 0)
		FROM embeddings
	`)

	stats := &driven.CacheStats{}
	if err := row.Scan(&stats.Entries, &stats.SizeBytes); err != nil {
		return nil, fmt.Errorf("reading cache stats: %w", err)
	}
	return stats, nil
}

// migrate runs all pending migrations.
func (c *Cache) migrate(fsys embed.FS) error {
	_, err := c.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := c.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := c.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := c.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// float32SliceToBytes converts a vector to a little-endian byte blob.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte blob back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
