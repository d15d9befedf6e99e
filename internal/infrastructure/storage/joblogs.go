package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"NewsIngest/internal/domain"
	"NewsIngest/internal/ports"
)

// JobLogRepository writes the append-only audit trail: one row per job
// execution, created at running and finalized at a terminal state.
type JobLogRepository struct {
	db *sql.DB
}

var _ ports.JobLogRepository = (*JobLogRepository)(nil)

// NewJobLogRepository wires a sql.DB implementation.
func NewJobLogRepository(db *sql.DB) *JobLogRepository {
	return &JobLogRepository{db: db}
}

// Start records a job entering the running state and returns the log id.
func (r *JobLogRepository) Start(ctx context.Context, log domain.JobLog) (string, error) {
	id := log.ID
	if id == "" {
		id = uuid.NewString()
	}

	meta, err := jsonOrNull(log.Meta)
	if err != nil {
		return "", err
	}

	start := log.StartTime
	if start.IsZero() {
		start = time.Now().UTC()
	}

	query, args, err := builder.
		Insert("job_logs").
		Columns("id", "job_type", "status", "start_time", "meta").
		Values(id, log.JobType, domain.LogRunning, start, meta).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("build job log insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return "", fmt.Errorf("insert job log: %w", err)
	}
	return id, nil
}

// Finish finalizes the log row, merging meta into whatever Start wrote.
func (r *JobLogRepository) Finish(ctx context.Context, id string, status domain.JobLogStatus, meta map[string]any) error {
	merged := any(nil)
	if len(meta) > 0 {
		raw, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("encode job log meta: %w", err)
		}
		merged = raw
	}

	const query = `
		UPDATE job_logs
		SET status = $1,
		    end_time = NOW(),
		    meta = COALESCE(meta, '{}'::jsonb) || COALESCE($2::jsonb, '{}'::jsonb)
		WHERE id = $3`

	if _, err := r.db.ExecContext(ctx, query, status, merged, id); err != nil {
		return fmt.Errorf("finalize job log: %w", err)
	}
	return nil
}

// FinalizeStale flips logs stuck in running since before cutoff to failed.
// Run at startup so a crashed process never leaves a permanent running row.
func (r *JobLogRepository) FinalizeStale(ctx context.Context, cutoff time.Time) (int, error) {
	query, args, err := builder.
		Update("job_logs").
		Set("status", domain.LogFailed).
		Set("end_time", sq.Expr("NOW()")).
		Set("meta", sq.Expr(`COALESCE(meta, '{}'::jsonb) || '{"error": "stale job recovered"}'::jsonb`)).
		Where(sq.And{
			sq.Eq{"status": domain.LogRunning},
			sq.Lt{"start_time": cutoff},
		}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build stale sweep: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("sweep stale job logs: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("stale sweep result: %w", err)
	}
	return int(affected), nil
}
