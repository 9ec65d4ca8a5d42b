package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Database is a migrated history database.
type Database struct {
	conn *sql.DB
	path string

	mu     sync.Mutex
	closed bool
}

// Open creates path and its parent directories if needed, applies the
// migrations and returns a ready Database.
func Open(path string) (*Database, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	if err := MigrateUp(path); err != nil {
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}

	conn, err := NewSQLiteConnection(DefaultConnectionConfig(path))
	if err != nil {
		return nil, err
	}
	return &Database{conn: conn, path: path}, nil
}

// Path returns the database file path.
func (d *Database) Path() string { return d.path }

// Close closes the connection. Calling it twice is safe.
func (d *Database) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	return d.conn.Close()
}
