// Package db opens the relational store behind DBPostRepository.
package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rs/zerolog"
)

// ErrNotInitialized is returned when a query runs before InitDB succeeded.
var ErrNotInitialized = errors.New("database not initialized")

// DB is the subset of *sql.DB the post repository needs, plus schema setup.
type DB interface {
	// InitDB opens the connection and creates the schema when missing.
	InitDB() error

	Get() *sql.DB
	Close() error

	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

var dbLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	dbLogger = l
}
