package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
PRAGMA foreign_keys = ON;

CREATE TABLE IF NOT EXISTS posts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL,
    content BLOB,
    img_url TEXT NOT NULL DEFAULT '',
    content_hash TEXT,
    modified_at DATETIME,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts(created_at DESC);`

type SQLite struct {
	path string
	conn *sql.DB
}

// NewSQLite returns an unopened database for the file at path. Use ":memory:"
// for a private in-memory database.
func NewSQLite(path string) *SQLite {
	return &SQLite{
		path: path,
		conn: nil,
	}
}

func (s *SQLite) InitDB() error {
	conn, err := sql.Open("sqlite3", s.path)
	if err != nil {
		return fmt.Errorf("error opening database: %w", err)
	}

	// A single connection keeps ":memory:" databases alive across calls and
	// serializes writers the way sqlite expects.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return fmt.Errorf("error connecting to database: %w", err)
	}

	res, err := conn.Exec(schema)
	if err != nil {
		conn.Close()
		return fmt.Errorf("error creating schema: %w", err)
	}

	s.conn = conn
	dbLogger.Info().Str("path", s.path).Any("db_result", res).Msg("Database initialized")
	return nil
}

func (s *SQLite) Get() *sql.DB {
	return s.conn
}

func (s *SQLite) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

func (s *SQLite) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	if s.conn == nil {
		return nil, ErrNotInitialized
	}
	dbLogger.Debug().Str("query", query).Msg("Query")
	return s.conn.QueryContext(ctx, query, args...)
}

func (s *SQLite) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	dbLogger.Debug().Str("query", query).Msg("QueryRow")
	return s.conn.QueryRowContext(ctx, query, args...)
}

func (s *SQLite) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if s.conn == nil {
		return nil, ErrNotInitialized
	}
	dbLogger.Debug().Str("query", query).Msg("Exec")
	return s.conn.ExecContext(ctx, query, args...)
}
