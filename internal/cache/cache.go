// Package cache keeps compiled bundles in a SQLite database keyed by the
// hash of their source, so unchanged programs skip the front end.
package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/funvibe/july/internal/bundle"
	"github.com/funvibe/july/internal/diagnostics"
)

const schema = `CREATE TABLE IF NOT EXISTS bundles (
	source_hash TEXT PRIMARY KEY,
	bundle_id   TEXT NOT NULL,
	source_file TEXT NOT NULL,
	image       BLOB NOT NULL,
	stored_at   INTEGER NOT NULL
)`

// Cache is safe for concurrent use.
type Cache struct {
	db     *sql.DB
	logger zerolog.Logger
	mu     sync.Mutex
}

// Open opens or creates the cache database at path, creating parent
// directories as needed.
func Open(ctx context.Context, path string, logger zerolog.Logger) (*Cache, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, diagnostics.CacheError.Wrap(err, "creating cache directory %s", dir)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, diagnostics.CacheError.Wrap(err, "opening database %s", path)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, diagnostics.CacheError.Wrap(err, "setting busy timeout")
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, diagnostics.CacheError.Wrap(err, "creating table")
	}

	return &Cache{db: db, logger: logger}, nil
}

// Key is the cache key of a source text: its hex SHA-256.
func Key(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}

// Get returns the bundle stored for source. A miss is not an error. An
// entry that no longer decodes is dropped and reported as a miss.
func (c *Cache) Get(ctx context.Context, source string) (*bundle.Bundle, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := Key(source)

	var image []byte
	err := c.db.QueryRowContext(ctx, "SELECT image FROM bundles WHERE source_hash = ?", key).Scan(&image)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.logger.Debug().Str("key", key).Msg("cache miss")
			return nil, false, nil
		}
		return nil, false, diagnostics.CacheError.Wrap(err, "querying bundle")
	}

	b, err := bundle.Deserialize(image)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("dropping unreadable cache entry")
		if _, err := c.db.ExecContext(ctx, "DELETE FROM bundles WHERE source_hash = ?", key); err != nil {
			return nil, false, diagnostics.CacheError.Wrap(err, "deleting bundle")
		}
		return nil, false, nil
	}

	c.logger.Debug().Str("key", key).Str("bundle", b.ID.String()).Msg("cache hit")
	return b, true, nil
}

// Put stores b as the compiled form of source, replacing any older entry.
func (c *Cache) Put(ctx context.Context, source string, b *bundle.Bundle) error {
	image, err := b.Serialize()
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key := Key(source)
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO bundles (source_hash, bundle_id, source_file, image, stored_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(source_hash) DO UPDATE SET
			bundle_id = excluded.bundle_id,
			source_file = excluded.source_file,
			image = excluded.image,
			stored_at = excluded.stored_at`,
		key, b.ID.String(), b.SourceFile, image, time.Now().Unix(),
	)
	if err != nil {
		return diagnostics.CacheError.Wrap(err, "saving bundle")
	}

	c.logger.Debug().Str("key", key).Int("bytes", len(image)).Msg("cache store")
	return nil
}

// Len returns the number of stored bundles.
func (c *Cache) Len(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var n int
	if err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM bundles").Scan(&n); err != nil {
		return 0, diagnostics.CacheError.Wrap(err, "counting bundles")
	}
	return n, nil
}

// Close closes the database connection
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
