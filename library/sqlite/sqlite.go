// Package sqlite persists library snapshots in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"meme-service/library"
)

const schema = `
CREATE TABLE IF NOT EXISTS library_snapshot (
	id         INTEGER PRIMARY KEY CHECK (id = 1),
	data       TEXT    NOT NULL,
	updated_at INTEGER NOT NULL
)`

// Persister stores the whole library as one JSON row.
type Persister struct {
	db *sql.DB
}

// Open opens (or creates) the database at path.
func Open(path string) (*Persister, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Persister{db: db}, nil
}

// Close closes the database.
func (p *Persister) Close() error {
	return p.db.Close()
}

// Load returns the stored snapshot, or an empty one when nothing has been
// saved yet.
func (p *Persister) Load(ctx context.Context) (library.Snapshot, error) {
	var data string
	err := p.db.QueryRowContext(ctx, `SELECT data FROM library_snapshot WHERE id = 1`).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return library.Snapshot{}, nil
	}
	if err != nil {
		return library.Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}

	var snap library.Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return library.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

// Save replaces the stored snapshot.
func (p *Persister) Save(ctx context.Context, snap library.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO library_snapshot (id, data, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		string(data), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}
