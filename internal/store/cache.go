// Package store persists the collection id/title map between runs. The cache
// only pre-seeds the resolver; live listings remain the source of truth and
// overwrite stale entries, so a wiped or missing cache costs one extra
// listing pass, never correctness.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS collections (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_collections_title ON collections(title);
`

// Entry is one cached collection record.
type Entry struct {
	ID    string
	Title string
}

// Cache is a sqlite-backed collection cache.
type Cache struct {
	db *sql.DB
}

// Open opens (creating if needed) the cache at path.
func Open(path string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init cache schema: %w", err)
	}
	return &Cache{db: db}, nil
}

// Put upserts one collection record.
func (c *Cache) Put(ctx context.Context, id, title string) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO collections (id, title, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET title = excluded.title, updated_at = excluded.updated_at`,
		id, title, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("cache put %s: %w", id, err)
	}
	return nil
}

// PutAll upserts a batch inside one transaction.
func (c *Cache) PutAll(ctx context.Context, entries []Entry) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("cache begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO collections (id, title, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET title = excluded.title, updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("cache prepare: %w", err)
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.ID, e.Title, now); err != nil {
			return fmt.Errorf("cache put %s: %w", e.ID, err)
		}
	}
	return tx.Commit()
}

// All returns every cached record, ordered by title.
func (c *Cache) All(ctx context.Context) ([]Entry, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT id, title FROM collections ORDER BY title`)
	if err != nil {
		return nil, fmt.Errorf("cache scan: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Title); err != nil {
			return nil, fmt.Errorf("cache scan row: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}
