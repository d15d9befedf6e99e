package queue

import (
	"context"
	"testing"
	"time"

	"NewsIngest/internal/domain"
)

func newTestQueue(t *testing.T, maxAttempts int) (*Memory, *time.Time) {
	t.Helper()
	q := NewMemory(maxAttempts, 100*time.Millisecond)
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	q.now = func() time.Time { return now }
	return q, &now
}

func mustEnqueue(t *testing.T, q *Memory, kind domain.JobKind, payload any) string {
	t.Helper()
	job, err := domain.NewJob(kind, payload)
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	id, err := q.Enqueue(context.Background(), job)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	return id
}

func TestDequeueClaimsAndMarksRunning(t *testing.T) {
	t.Parallel()

	q, _ := newTestQueue(t, 3)
	id := mustEnqueue(t, q, domain.JobScrape, domain.ScrapeJob{})

	job, ok, err := q.Dequeue(context.Background())
	if err != nil || !ok {
		t.Fatalf("Dequeue = (%v, %v)", ok, err)
	}
	if job.ID != id || job.Status != domain.JobRunning || job.Attempts != 1 {
		t.Fatalf("job = %+v", job)
	}

	// The claimed job must not be delivered twice.
	if _, ok, _ := q.Dequeue(context.Background()); ok {
		t.Fatal("running job was delivered again")
	}
}

func TestDequeueEmptyQueue(t *testing.T) {
	t.Parallel()

	q, _ := newTestQueue(t, 3)
	if _, ok, err := q.Dequeue(context.Background()); ok || err != nil {
		t.Fatalf("Dequeue on empty queue = (%v, %v), want (false, nil)", ok, err)
	}
}

func TestDequeueOrdersByRunAt(t *testing.T) {
	t.Parallel()

	q, now := newTestQueue(t, 3)

	late, _ := domain.NewJob(domain.JobPublish, domain.PublishJob{ArticleID: "late"})
	late.RunAt = now.Add(-time.Minute)
	early, _ := domain.NewJob(domain.JobPublish, domain.PublishJob{ArticleID: "early"})
	early.RunAt = now.Add(-time.Hour)

	if _, err := q.Enqueue(context.Background(), late); err != nil {
		t.Fatal(err)
	}
	earlyID, err := q.Enqueue(context.Background(), early)
	if err != nil {
		t.Fatal(err)
	}

	job, ok, _ := q.Dequeue(context.Background())
	if !ok || job.ID != earlyID {
		t.Fatalf("Dequeue returned %s, want the earlier job %s", job.ID, earlyID)
	}
}

func TestFailRedeliversWithBackoff(t *testing.T) {
	t.Parallel()

	q, now := newTestQueue(t, 3)
	id := mustEnqueue(t, q, domain.JobScrape, domain.ScrapeJob{})

	if _, ok, _ := q.Dequeue(context.Background()); !ok {
		t.Fatal("first dequeue failed")
	}
	if err := q.Fail(context.Background(), id, "boom"); err != nil {
		t.Fatal(err)
	}

	// Not yet due: run_at moved into the future.
	if _, ok, _ := q.Dequeue(context.Background()); ok {
		t.Fatal("failed job redelivered before its backoff elapsed")
	}

	*now = now.Add(time.Second)
	job, ok, _ := q.Dequeue(context.Background())
	if !ok {
		t.Fatal("job not redelivered after backoff")
	}
	if job.Attempts != 2 {
		t.Fatalf("Attempts = %d, want 2", job.Attempts)
	}
}

func TestNewMemoryDefaultsRedeliveryBase(t *testing.T) {
	t.Parallel()

	q := NewMemory(3, 0)
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	q.now = func() time.Time { return now }
	id := mustEnqueue(t, q, domain.JobScrape, domain.ScrapeJob{})

	if _, ok, _ := q.Dequeue(context.Background()); !ok {
		t.Fatal("dequeue failed")
	}
	if err := q.Fail(context.Background(), id, "boom"); err != nil {
		t.Fatal(err)
	}

	// A zero base falls back to 5s, so the failed job must not come
	// straight back.
	if _, ok, _ := q.Dequeue(context.Background()); ok {
		t.Fatal("failed job redelivered with no backoff")
	}

	now = now.Add(5 * time.Second)
	if _, ok, _ := q.Dequeue(context.Background()); !ok {
		t.Fatal("job not redelivered after the default backoff")
	}
}

func TestFailDeadLettersAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	q, now := newTestQueue(t, 2)
	id := mustEnqueue(t, q, domain.JobModerate, domain.ModerateJob{ArticleID: "a1"})

	for attempt := 0; attempt < 2; attempt++ {
		if _, ok, _ := q.Dequeue(context.Background()); !ok {
			t.Fatalf("dequeue #%d failed", attempt+1)
		}
		if err := q.Fail(context.Background(), id, "boom"); err != nil {
			t.Fatal(err)
		}
		*now = now.Add(time.Minute)
	}

	if _, ok, _ := q.Dequeue(context.Background()); ok {
		t.Fatal("dead-lettered job was redelivered")
	}
	for _, job := range q.Snapshot() {
		if job.ID == id && job.Status != domain.JobFailed {
			t.Fatalf("status = %q, want failed", job.Status)
		}
	}
}

func TestCompleteFinalizesJob(t *testing.T) {
	t.Parallel()

	q, _ := newTestQueue(t, 3)
	id := mustEnqueue(t, q, domain.JobPublish, domain.PublishJob{ArticleID: "a1"})

	if _, ok, _ := q.Dequeue(context.Background()); !ok {
		t.Fatal("dequeue failed")
	}
	if err := q.Complete(context.Background(), id); err != nil {
		t.Fatal(err)
	}

	for _, job := range q.Snapshot() {
		if job.ID == id && job.Status != domain.JobDone {
			t.Fatalf("status = %q, want completed", job.Status)
		}
	}
	if _, ok, _ := q.Dequeue(context.Background()); ok {
		t.Fatal("completed job was redelivered")
	}
}

func TestEnqueueAppliesDefaults(t *testing.T) {
	t.Parallel()

	q, now := newTestQueue(t, 5)
	id := mustEnqueue(t, q, domain.JobScrape, domain.ScrapeJob{SourceID: "s1"})

	for _, job := range q.Snapshot() {
		if job.ID != id {
			continue
		}
		if job.MaxAttempt != 5 {
			t.Errorf("MaxAttempt = %d, want 5", job.MaxAttempt)
		}
		if !job.RunAt.Equal(*now) || !job.CreatedAt.Equal(*now) {
			t.Errorf("RunAt = %v, CreatedAt = %v, want %v", job.RunAt, job.CreatedAt, *now)
		}
		payload, err := job.DecodePayload()
		if err != nil {
			t.Fatalf("DecodePayload: %v", err)
		}
		if sj, ok := payload.(domain.ScrapeJob); !ok || sj.SourceID != "s1" {
			t.Errorf("payload = %#v", payload)
		}
	}
}
