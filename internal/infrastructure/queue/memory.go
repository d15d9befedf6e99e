package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"NewsIngest/internal/domain"
	"NewsIngest/internal/ports"
)

// Memory is an in-process queue with the same redelivery semantics as the
// Postgres queue. Useful for tests and single-process runs without a
// database; not durable across restarts.
type Memory struct {
	mu             sync.Mutex
	jobs           map[string]*domain.Job
	maxAttempts    int
	redeliveryBase time.Duration
	now            func() time.Time
}

var _ ports.Queue = (*Memory)(nil)

// NewMemory builds an empty in-memory queue.
func NewMemory(maxAttempts int, redeliveryBase time.Duration) *Memory {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if redeliveryBase <= 0 {
		redeliveryBase = 5 * time.Second
	}
	return &Memory{
		jobs:           map[string]*domain.Job{},
		maxAttempts:    maxAttempts,
		redeliveryBase: redeliveryBase,
		now:            time.Now,
	}
}

// Enqueue stores a job and returns its id.
func (q *Memory) Enqueue(ctx context.Context, job domain.Job) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.MaxAttempt <= 0 {
		job.MaxAttempt = q.maxAttempts
	}
	if job.RunAt.IsZero() {
		job.RunAt = q.now()
	}
	job.Status = domain.JobEnqueued
	job.CreatedAt = q.now()

	stored := job
	q.jobs[job.ID] = &stored
	return job.ID, nil
}

// Dequeue claims the due job with the earliest run time.
func (q *Memory) Dequeue(ctx context.Context) (domain.Job, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	var next *domain.Job
	for _, job := range q.jobs {
		if job.Status != domain.JobEnqueued || job.RunAt.After(now) {
			continue
		}
		if next == nil || job.RunAt.Before(next.RunAt) {
			next = job
		}
	}
	if next == nil {
		return domain.Job{}, false, nil
	}

	next.Status = domain.JobRunning
	next.Attempts++
	return *next, true, nil
}

// Complete finalizes a delivered job.
func (q *Memory) Complete(ctx context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if job, ok := q.jobs[id]; ok {
		job.Status = domain.JobDone
	}
	return nil
}

// Fail re-enqueues with backoff or dead-letters an exhausted job.
func (q *Memory) Fail(ctx context.Context, id string, reason string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.jobs[id]
	if !ok {
		return nil
	}
	if job.Attempts >= job.MaxAttempt {
		job.Status = domain.JobFailed
		return nil
	}

	backoff := q.redeliveryBase
	for i := 1; i < job.Attempts; i++ {
		backoff *= 2
	}
	job.Status = domain.JobEnqueued
	job.RunAt = q.now().Add(backoff)
	return nil
}

// Snapshot returns a copy of all jobs, for tests and diagnostics.
func (q *Memory) Snapshot() []domain.Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]domain.Job, 0, len(q.jobs))
	for _, job := range q.jobs {
		out = append(out, *job)
	}
	return out
}
