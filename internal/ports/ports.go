package ports

import (
	"context"
	"time"

	"NewsIngest/internal/domain"
)

// Fetcher retrieves a URL body under the process-wide rate limit and
// retry policy.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
	// FetchWithFallback walks the direct → reader-proxy → relay chain.
	FetchWithFallback(ctx context.Context, url string) (string, error)
}

// SourceRepository persists configured feed sources.
type SourceRepository interface {
	Active(ctx context.Context) ([]domain.Source, error)
	ByID(ctx context.Context, id string) (domain.Source, error)
	TouchLastScraped(ctx context.Context, id string, at time.Time) error
}

// ArticleRepository persists normalized articles. Insert must enforce hash
// uniqueness at the storage layer and report domain.ErrDuplicateArticle.
type ArticleRepository interface {
	Insert(ctx context.Context, article domain.Article) (string, error)
	ByID(ctx context.Context, id string) (domain.Article, error)
	ExistsByHash(ctx context.Context, hash string) (bool, error)
	CountByDetectedCategory(ctx context.Context, key, language string) (int, error)
	SetStatus(ctx context.Context, id string, status domain.ArticleStatus, publishedAt time.Time) error
	Published(ctx context.Context, categoryID, language string, limit int) ([]domain.Article, error)
}

// CategoryRepository persists seeded and dynamically promoted categories.
type CategoryRepository interface {
	ByKey(ctx context.Context, key, language string) (domain.Category, bool, error)
	Create(ctx context.Context, category domain.Category) (string, error)
}

// JobLogRepository records the audit trail, one row per job execution.
type JobLogRepository interface {
	Start(ctx context.Context, log domain.JobLog) (string, error)
	Finish(ctx context.Context, id string, status domain.JobLogStatus, meta map[string]any) error
	// FinalizeStale flips logs stuck in running longer than cutoff to
	// failed and returns how many were recovered.
	FinalizeStale(ctx context.Context, cutoff time.Time) (int, error)
}

// Queue is a durable, at-least-once task queue.
type Queue interface {
	Enqueue(ctx context.Context, job domain.Job) (string, error)
	// Dequeue claims the next due job or returns ok=false when none is due.
	Dequeue(ctx context.Context) (domain.Job, bool, error)
	Complete(ctx context.Context, id string) error
	// Fail records a delivery failure; the queue redelivers with backoff
	// until the attempt cap, then leaves the job failed.
	Fail(ctx context.Context, id string, reason string) error
}

// Scheduler triggers the recurring scrape-all enqueue.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
