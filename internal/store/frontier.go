package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"seeker/internal/model"
)

const jobColumns = "id, url, status, attempts, expiry, last_updated, created_at"

func scanJob(row interface{ Scan(...any) error }) (model.Job, error) {
	var job model.Job
	var expiry sql.NullTime

	err := row.Scan(&job.ID, &job.URL, &job.Status, &job.Attempts, &expiry, &job.LastUpdated, &job.CreatedAt)
	if err != nil {
		return model.Job{}, err
	}
	if expiry.Valid {
		t := expiry.Time
		job.Expiry = &t
	}
	return job, nil
}

// Enqueue inserts a new queued frontier row for url. A second row for
// the same URL violates the unique constraint and is reported as
// ErrDuplicateURL; the admin path surfaces this to the caller.
func (s *Store) Enqueue(ctx context.Context, url string) (model.Job, error) {
	row := s.DB.QueryRowContext(ctx,
		"INSERT INTO crawl_jobs (url) VALUES ($1) RETURNING "+jobColumns, url)

	job, err := scanJob(row)
	if err != nil {
		if isUniqueViolation(err) {
			return model.Job{}, ErrDuplicateURL
		}
		return model.Job{}, fmt.Errorf("enqueue: %w", err)
	}
	return job, nil
}

// EnqueueIfAbsent inserts url as queued unless a row for it already
// exists in any state. Discovery races resolve through the unique
// constraint; the loser is treated as success.
func (s *Store) EnqueueIfAbsent(ctx context.Context, url string) error {
	return s.enqueueIfAbsent(ctx, s.DB, url)
}

// EnqueueIfAbsentTx is EnqueueIfAbsent inside the ingestion transaction.
func (s *Store) EnqueueIfAbsentTx(ctx context.Context, tx *sql.Tx, url string) error {
	return s.enqueueIfAbsent(ctx, tx, url)
}

func (s *Store) enqueueIfAbsent(ctx context.Context, q dbtx, url string) error {
	_, err := q.ExecContext(ctx,
		"INSERT INTO crawl_jobs (url) VALUES ($1) ON CONFLICT (url) DO NOTHING", url)
	if err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		return fmt.Errorf("enqueue if absent: %w", err)
	}
	return nil
}

// ClaimNext grants a lease on one claimable job: any queued row, or an
// executing row whose lease has expired. The update is predicated on
// the previously observed last_updated, so two dispatchers racing on
// the same row see exactly one winner; the loser gets ErrNoJob and the
// caller retries after a backoff. Reclaiming an expired lease counts
// the abandoned attempt.
func (s *Store) ClaimNext(ctx context.Context) (model.Job, error) {
	row := s.DB.QueryRowContext(ctx,
		"SELECT "+jobColumns+" FROM crawl_jobs WHERE status = 'queued' OR (status = 'executing' AND expiry <= now()) LIMIT 1")

	candidate, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Job{}, ErrNoJob
		}
		return model.Job{}, fmt.Errorf("claim next: select: %w", err)
	}

	row = s.DB.QueryRowContext(ctx,
		"UPDATE crawl_jobs SET status = 'executing', expiry = now() + make_interval(secs => $2), last_updated = now(), attempts = attempts + (CASE WHEN status = 'executing' THEN 1 ELSE 0 END) WHERE id = $1 AND last_updated = $3 RETURNING "+jobColumns,
		candidate.ID, s.lease.Seconds(), candidate.LastUpdated)

	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Another dispatcher moved the row first.
			return model.Job{}, ErrNoJob
		}
		return model.Job{}, fmt.Errorf("claim next: update: %w", err)
	}
	return job, nil
}

// CompleteJobTx flips an executing job with a live lease to complete.
// The conditional update enforces the id/url match, the executing
// state, and the unexpired lease in one statement; a stale worker whose
// lease was reclaimed matches nothing and gets ErrPrecondition.
func (s *Store) CompleteJobTx(ctx context.Context, tx *sql.Tx, id int32, url string) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE crawl_jobs SET status = 'complete', expiry = NULL, last_updated = now() WHERE id = $1 AND url = $2 AND status = 'executing' AND expiry > now()",
		id, url)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("complete job: rows affected: %w", err)
	}
	if n == 0 {
		return ErrPrecondition
	}
	return nil
}

// ExtendLease refreshes the expiry of an executing job.
func (s *Store) ExtendLease(ctx context.Context, id int32, url string) error {
	res, err := s.DB.ExecContext(ctx,
		"UPDATE crawl_jobs SET expiry = now() + make_interval(secs => $3), last_updated = now() WHERE id = $1 AND url = $2 AND status = 'executing'",
		id, url, s.lease.Seconds())
	if err != nil {
		return fmt.Errorf("extend lease: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("extend lease: rows affected: %w", err)
	}
	if n == 0 {
		return ErrPrecondition
	}
	return nil
}

// ListIncomplete returns every frontier row that is not complete.
func (s *Store) ListIncomplete(ctx context.Context) ([]model.Job, error) {
	rows, err := s.DB.QueryContext(ctx,
		"SELECT "+jobColumns+" FROM crawl_jobs WHERE status <> 'complete' ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list incomplete: %w", err)
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("list incomplete: scan: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list incomplete: %w", err)
	}
	return jobs, nil
}
