// Package queue provides the durable, at-least-once task queue backing
// the job processor. Delivery is claim-based: a claimed job that is never
// completed or failed is released again by the stale sweep.
package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"NewsIngest/internal/domain"
	"NewsIngest/internal/ports"
)

var builder = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Postgres is the durable queue over the jobs table. Workers claim with
// FOR UPDATE SKIP LOCKED so concurrent instances never double-claim.
type Postgres struct {
	db             *sql.DB
	maxAttempts    int
	redeliveryBase time.Duration
}

var _ ports.Queue = (*Postgres)(nil)

// NewPostgres wires the queue with its redelivery policy.
func NewPostgres(db *sql.DB, maxAttempts int, redeliveryBase time.Duration) *Postgres {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if redeliveryBase <= 0 {
		redeliveryBase = 5 * time.Second
	}
	return &Postgres{db: db, maxAttempts: maxAttempts, redeliveryBase: redeliveryBase}
}

// Enqueue stores a job and returns its id. Safe to call while a previous
// job of the same kind is still running; overlap policy belongs to the
// handlers.
func (q *Postgres) Enqueue(ctx context.Context, job domain.Job) (string, error) {
	id := job.ID
	if id == "" {
		id = uuid.NewString()
	}
	maxAttempts := job.MaxAttempt
	if maxAttempts <= 0 {
		maxAttempts = q.maxAttempts
	}
	runAt := job.RunAt
	if runAt.IsZero() {
		runAt = time.Now().UTC()
	}

	query, args, err := builder.
		Insert("jobs").
		Columns("id", "kind", "payload", "status", "attempts", "max_attempts", "run_at").
		Values(id, job.Kind, []byte(job.Payload), domain.JobEnqueued, 0, maxAttempts, runAt).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("build enqueue: %w", err)
	}

	if _, err := q.db.ExecContext(ctx, query, args...); err != nil {
		return "", fmt.Errorf("enqueue %s job: %w", job.Kind, err)
	}
	return id, nil
}

// Dequeue claims the next due job, incrementing its attempt counter.
func (q *Postgres) Dequeue(ctx context.Context) (domain.Job, bool, error) {
	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Job{}, false, fmt.Errorf("begin claim: %w", err)
	}
	defer tx.Rollback()

	const claim = `
		SELECT id, kind, payload, attempts, max_attempts, run_at, created_at
		FROM jobs
		WHERE status = 'enqueued' AND run_at <= NOW()
		ORDER BY run_at
		LIMIT 1
		FOR UPDATE SKIP LOCKED`

	var (
		job     domain.Job
		payload []byte
	)
	err = tx.QueryRowContext(ctx, claim).Scan(
		&job.ID, &job.Kind, &payload, &job.Attempts, &job.MaxAttempt, &job.RunAt, &job.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Job{}, false, nil
	}
	if err != nil {
		return domain.Job{}, false, fmt.Errorf("claim job: %w", err)
	}
	job.Payload = payload
	job.Status = domain.JobRunning
	job.Attempts++

	// run_at doubles as the claim timestamp while running; ReleaseStale
	// compares against it.
	const mark = `UPDATE jobs SET status = 'running', attempts = attempts + 1, run_at = NOW() WHERE id = $1`
	if _, err := tx.ExecContext(ctx, mark, job.ID); err != nil {
		return domain.Job{}, false, fmt.Errorf("mark job running: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return domain.Job{}, false, fmt.Errorf("commit claim: %w", err)
	}
	return job, true, nil
}

// Complete finalizes a delivered job.
func (q *Postgres) Complete(ctx context.Context, id string) error {
	query, args, err := builder.
		Update("jobs").
		Set("status", domain.JobDone).
		Where("id = ?", id).
		ToSql()
	if err != nil {
		return fmt.Errorf("build complete: %w", err)
	}
	if _, err := q.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	return nil
}

// Fail records a failed delivery. Attempts below the cap are re-enqueued
// with exponential backoff; exhausted jobs stay failed as dead letters.
func (q *Postgres) Fail(ctx context.Context, id string, reason string) error {
	const query = `
		UPDATE jobs
		SET last_error = $1,
		    status = CASE WHEN attempts >= max_attempts THEN 'failed' ELSE 'enqueued' END,
		    run_at = NOW() + ($2 * POWER(2, GREATEST(attempts - 1, 0)) * INTERVAL '1 millisecond')
		WHERE id = $3`

	if _, err := q.db.ExecContext(ctx, query, reason, q.redeliveryBase.Milliseconds(), id); err != nil {
		return fmt.Errorf("fail job: %w", err)
	}
	return nil
}

// ReleaseStale re-enqueues jobs claimed before cutoff that were never
// finalized, typically after a worker crash.
func (q *Postgres) ReleaseStale(ctx context.Context, cutoff time.Time) (int, error) {
	const query = `
		UPDATE jobs
		SET status = CASE WHEN attempts >= max_attempts THEN 'failed' ELSE 'enqueued' END,
		    last_error = 'released by stale sweep'
		WHERE status = 'running' AND run_at < $1`

	result, err := q.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("release stale jobs: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("stale release result: %w", err)
	}
	return int(affected), nil
}
