// Package cache persists the last known good column layout so the board
// stays usable offline. It is a single-writer resource: only the column
// registry commits to it, and writes are best-effort.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"tavle/internal/models"
)

// LayoutKey is the slot the column registry mirrors its layout into.
const LayoutKey = "board_columns"

// ErrNotFound is returned when a slot has never been written.
var ErrNotFound = errors.New("cache slot not found")

// Layout is a durable key-value store backed by sqlite.
type Layout struct {
	db *sql.DB
}

// Open opens (creating if needed) the layout cache at the given path.
func Open(ctx context.Context, path string) (*Layout, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}

	// WAL keeps readers unblocked while the registry commits
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, err
	}

	// Single writer connection, same as the main app database
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS slots (
			key        TEXT PRIMARY KEY,
			payload    BLOB NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create cache schema: %w", err)
	}

	return &Layout{db: db}, nil
}

// Write replaces the slot's payload. Errors are returned so the caller can
// log them, but the caller treats the write as best-effort.
func (l *Layout) Write(ctx context.Context, key string, payload []byte) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO slots (key, payload, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, updated_at = CURRENT_TIMESTAMP
	`, key, payload)
	if err != nil {
		return fmt.Errorf("failed to write cache slot %s: %w", key, err)
	}
	return nil
}

// Read returns the slot's payload, or ErrNotFound for an unwritten slot.
func (l *Layout) Read(ctx context.Context, key string) ([]byte, error) {
	var payload []byte
	err := l.db.QueryRowContext(ctx, "SELECT payload FROM slots WHERE key = ?", key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache slot %s: %w", key, err)
	}
	return payload, nil
}

// WriteColumns serializes and stores the column layout under LayoutKey.
func (l *Layout) WriteColumns(ctx context.Context, columns []*models.Column) error {
	payload, err := json.Marshal(columns)
	if err != nil {
		return fmt.Errorf("failed to serialize columns: %w", err)
	}
	return l.Write(ctx, LayoutKey, payload)
}

// ReadColumns restores the last mirrored column layout.
func (l *Layout) ReadColumns(ctx context.Context) ([]*models.Column, error) {
	payload, err := l.Read(ctx, LayoutKey)
	if err != nil {
		return nil, err
	}
	var columns []*models.Column
	if err := json.Unmarshal(payload, &columns); err != nil {
		return nil, fmt.Errorf("failed to decode cached columns: %w", err)
	}
	return columns, nil
}

// Close closes the underlying database.
func (l *Layout) Close() error {
	return l.db.Close()
}
