package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Sentinel errors surfaced to the HTTP layer for status mapping.
var (
	// ErrNoJob means no row is currently claimable from the frontier.
	ErrNoJob = errors.New("no claimable job")
	// ErrDuplicateURL means the URL already has a frontier row.
	ErrDuplicateURL = errors.New("url already queued")
	// ErrPrecondition means a conditional update matched no row: wrong
	// id/url pair, wrong status, or an expired lease.
	ErrPrecondition = errors.New("job precondition failed")
)

// dbtx is satisfied by both *sql.DB and *sql.Tx so queries can run
// inside or outside the ingestion transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store wraps access to the database via a shared *sql.DB with pooling.
type Store struct {
	DB    *sql.DB
	lease time.Duration
}

// New creates a Store. lease is the duration of a worker's claim on a
// job before it becomes reclaimable.
func New(database *sql.DB, lease time.Duration) *Store {
	if lease <= 0 {
		lease = 5 * time.Minute
	}
	return &Store{DB: database, lease: lease}
}

// Lease reports the configured lease duration.
func (s *Store) Lease() time.Duration {
	return s.lease
}

// WithTx runs fn inside a transaction, rolling back on error.
func (s *Store) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation (code 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
