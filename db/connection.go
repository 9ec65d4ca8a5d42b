// Package db keeps an optional SQLite history of issued image requests.
package db

import (
	"database/sql"
	"fmt"
	"time"

	// pure Go driver, registers "sqlite"
	_ "modernc.org/sqlite"
)

// ConnectionConfig holds configuration for SQLite connections.
type ConnectionConfig struct {
	Path            string
	BusyTimeout     time.Duration
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// DefaultConnectionConfig returns a single-writer WAL configuration.
func DefaultConnectionConfig(path string) ConnectionConfig {
	return ConnectionConfig{
		Path:         path,
		BusyTimeout:  5 * time.Second,
		MaxOpenConns: 1,
	}
}

// NewSQLiteConnection opens path with WAL journaling and a busy timeout.
func NewSQLiteConnection(cfg ConnectionConfig) (*sql.DB, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	conn, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		fmt.Sprintf("PRAGMA busy_timeout=%d", cfg.BusyTimeout.Milliseconds()),
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	conn.SetMaxOpenConns(cfg.MaxOpenConns)
	conn.SetMaxIdleConns(cfg.MaxOpenConns)
	conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	return conn, nil
}
