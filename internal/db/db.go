package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Sentinel errors mapped to HTTP codes at the web layer
var (
	ErrNotFound        = errors.New("not found")
	ErrTerminalCommand = errors.New("command already in a terminal state")
)

// DB wraps pgxpool.Pool for database operations
type DB struct {
	pool *pgxpool.Pool
}

// NewDB creates a new DB connection pool
func NewDB(url string) (*DB, error) {
	pool, err := pgxpool.New(context.Background(), url)
	if err != nil {
		return nil, err
	}
	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (d *DB) Close() {
	d.pool.Close()
}

// Pool returns the underlying pgxpool.Pool
func (d *DB) Pool() *pgxpool.Pool {
	return d.pool
}

// scanConditionalInsert reads the RETURNING created_at row of a conditional
// INSERT. No row means the predicate suppressed the insert; createdAt is only
// written when a row was actually created, so it always carries the
// server-side timestamp.
func scanConditionalInsert(row pgx.Row, createdAt *time.Time) (bool, error) {
	err := row.Scan(createdAt)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
