// Package cache is the device-local persisted copy of the board.
//
// The whole board is stored as one JSON document under a single key,
// SnapshotKey, in an embedded SQLite database. Entity stores rewrite the
// document after every mutation, so it always reflects in-memory state at
// the time of the last write.
//
// Architecture:
//   - Database file: ~/.focusboard/cache.db (configurable)
//   - WAL mode: readers never block the writer
//   - Schema: one kv table (key, value, updated_at)
//
// The cache has no notion of which records are pending remote persistence;
// that is tracked by the store outbox.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/focusboard/focusboard/internal/board/schema"
)

// SnapshotKey is the key the combined board snapshot is stored under.
const SnapshotKey = "adhd_dashboard_data"

var (
	// ErrNoSnapshot means nothing has been stored yet.
	ErrNoSnapshot = errors.New("no cached snapshot")

	// ErrCorrupt means the stored snapshot could not be decoded.
	ErrCorrupt = errors.New("cached snapshot is corrupt")
)

// Cache wraps the SQLite connection holding the snapshot.
type Cache struct {
	conn *sql.DB
	path string
}

// Open opens (or creates) the cache database at path and initializes its schema.
//
// The caller MUST call Close() when done.
func Open(path string) (*Cache, error) {
	return OpenContext(context.Background(), path)
}

// OpenContext is Open with a context for schema initialization.
func OpenContext(ctx context.Context, path string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping cache: %w", err)
	}

	// One writer at a time; snapshots are small.
	conn.SetMaxOpenConns(1)

	c := &Cache{conn: conn, path: path}

	if _, err := conn.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := conn.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if err := c.initSchema(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Cache) initSchema(ctx context.Context) error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);`
	if _, err := c.conn.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create cache schema: %w", err)
	}
	return nil
}

// Path returns the database file path.
func (c *Cache) Path() string { return c.path }

// Close checkpoints the WAL and closes the connection.
func (c *Cache) Close() error {
	if c.conn == nil {
		return nil
	}
	if _, err := c.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint cache WAL: %v\n", err)
	}
	if err := c.conn.Close(); err != nil {
		return fmt.Errorf("failed to close cache: %w", err)
	}
	c.conn = nil
	return nil
}

// Get returns the raw value stored under key, or ErrNoSnapshot.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	var value string
	err := c.conn.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return []byte(value), nil
}

// Put stores value under key, replacing any previous value.
func (c *Cache) Put(ctx context.Context, key string, value []byte) error {
	_, err := c.conn.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(value), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Removing a missing key is not an error.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if _, err := c.conn.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Load decodes the stored snapshot.
//
// Returns ErrNoSnapshot if nothing is stored and an error wrapping ErrCorrupt
// if the stored document cannot be decoded. Collections missing from the
// document are left nil.
func (c *Cache) Load(ctx context.Context) (*schema.Snapshot, error) {
	data, err := c.Get(ctx, SnapshotKey)
	if err != nil {
		return nil, err
	}

	var snap *schema.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if snap == nil {
		return nil, fmt.Errorf("%w: null document", ErrCorrupt)
	}
	return snap, nil
}

// Save replaces the stored snapshot.
func (c *Cache) Save(ctx context.Context, snap *schema.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return c.Put(ctx, SnapshotKey, data)
}

// UpdatedAt returns when the snapshot was last written.
func (c *Cache) UpdatedAt(ctx context.Context) (time.Time, error) {
	var ts string
	err := c.conn.QueryRowContext(ctx, "SELECT updated_at FROM kv WHERE key = ?", SnapshotKey).Scan(&ts)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, ErrNoSnapshot
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read snapshot time: %w", err)
	}
	return time.Parse(time.RFC3339Nano, ts)
}
