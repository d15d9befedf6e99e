package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"NewsIngest/internal/domain"
	"NewsIngest/internal/ports"
)

const defaultPollInterval = 2 * time.Second

// staleReleaser is the optional queue extension that re-enqueues
// deliveries abandoned by a crashed worker.
type staleReleaser interface {
	ReleaseStale(ctx context.Context, cutoff time.Time) (int, error)
}

// ProcessorDeps wires the worker pool.
type ProcessorDeps struct {
	Queue     ports.Queue
	Logs      ports.JobLogRepository
	Pipeline  *Pipeline
	Moderator *Moderator
	Publisher *Publisher
	Workers   int
	Poll      time.Duration
	Logger    *slog.Logger
}

// Processor drains the queue with a fixed worker pool. Every execution
// is bracketed by a job-log row that always reaches a terminal state,
// including on panic.
type Processor struct {
	queue     ports.Queue
	logs      ports.JobLogRepository
	pipeline  *Pipeline
	moderator *Moderator
	publisher *Publisher
	workers   int
	poll      time.Duration
	logger    *slog.Logger

	wg sync.WaitGroup
}

func NewProcessor(deps ProcessorDeps) *Processor {
	workers := deps.Workers
	if workers < 1 {
		workers = 1
	}
	poll := deps.Poll
	if poll <= 0 {
		poll = defaultPollInterval
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Processor{
		queue:     deps.Queue,
		logs:      deps.Logs,
		pipeline:  deps.Pipeline,
		moderator: deps.Moderator,
		publisher: deps.Publisher,
		workers:   workers,
		poll:      poll,
		logger:    logger,
	}
}

// Start launches the worker pool. It returns immediately; workers run
// until ctx is cancelled.
func (p *Processor) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func(worker int) {
			defer p.wg.Done()
			p.run(ctx, worker)
		}(i)
	}
	p.logger.Info("queue workers started", "workers", p.workers)
}

// Wait blocks until every worker has exited.
func (p *Processor) Wait() {
	p.wg.Wait()
}

func (p *Processor) run(ctx context.Context, worker int) {
	ticker := time.NewTicker(p.poll)
	defer ticker.Stop()

	for {
		job, ok, err := p.queue.Dequeue(ctx)
		if err != nil {
			p.logger.Error("dequeue failed", "worker", worker, "error", err)
		}
		if ok {
			if err := p.Process(ctx, job); err != nil {
				p.logger.Warn("job failed", "worker", worker, "job", job.ID, "kind", job.Kind, "error", err)
			}
			// Drain without waiting while work is available.
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Process runs one claimed job through its handler and settles both the
// queue entry and the audit log. The returned error is the handler's;
// queue and log bookkeeping failures are logged, not returned.
func (p *Processor) Process(ctx context.Context, job domain.Job) (err error) {
	logID, logErr := p.logs.Start(ctx, domain.JobLog{
		JobType:   job.Kind,
		Status:    domain.LogRunning,
		StartTime: time.Now().UTC(),
		Meta:      map[string]any{"jobId": job.ID, "attempt": job.Attempts},
	})
	if logErr != nil {
		p.logger.Error("cannot open job log", "job", job.ID, "error", logErr)
	}

	finish := func(status domain.JobLogStatus, meta map[string]any) {
		if logID == "" {
			return
		}
		if err := p.logs.Finish(ctx, logID, status, meta); err != nil {
			p.logger.Error("cannot finalize job log", "log", logID, "error", err)
		}
	}

	// A panicking handler must still leave a terminal log row and release
	// the queue entry for redelivery.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", job.ID, r)
			finish(domain.LogFailed, map[string]any{"error": err.Error()})
			if qErr := p.queue.Fail(ctx, job.ID, err.Error()); qErr != nil {
				p.logger.Error("cannot fail job after panic", "job", job.ID, "error", qErr)
			}
		}
	}()

	meta, err := p.dispatch(ctx, job)
	if err != nil {
		finish(domain.LogFailed, map[string]any{"error": err.Error()})
		if qErr := p.queue.Fail(ctx, job.ID, err.Error()); qErr != nil {
			p.logger.Error("cannot record job failure", "job", job.ID, "error", qErr)
		}
		return err
	}

	finish(domain.LogCompleted, meta)
	if qErr := p.queue.Complete(ctx, job.ID); qErr != nil {
		p.logger.Error("cannot complete job", "job", job.ID, "error", qErr)
	}
	return nil
}

func (p *Processor) dispatch(ctx context.Context, job domain.Job) (map[string]any, error) {
	payload, err := job.DecodePayload()
	if err != nil {
		return nil, err
	}

	switch pl := payload.(type) {
	case domain.ScrapeJob:
		summary, err := p.pipeline.Scrape(ctx, pl.SourceID)
		if err != nil {
			return nil, err
		}
		meta := map[string]any{
			"sourcesProcessed":   summary.SourcesProcessed,
			"totalArticles":      summary.TotalArticles,
			"successfulArticles": summary.SuccessfulArticles,
			"duplicates":         summary.Duplicates,
		}
		if len(summary.Errors) > 0 {
			meta["sourceErrors"] = summary.Errors
		}
		return meta, nil
	case domain.ModerateJob:
		if err := p.moderator.Moderate(ctx, pl.ArticleID); err != nil {
			return nil, err
		}
		return map[string]any{"articleId": pl.ArticleID, "approved": true}, nil
	case domain.PublishJob:
		if err := p.publisher.Publish(ctx, pl.ArticleID); err != nil {
			return nil, err
		}
		return map[string]any{"articleId": pl.ArticleID}, nil
	default:
		return nil, fmt.Errorf("unhandled job kind %q", job.Kind)
	}
}

// RecoverStale finalizes job logs and queue deliveries left running by a
// previous process that died mid-job. Called once at startup.
func (p *Processor) RecoverStale(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-olderThan)

	recovered, err := p.logs.FinalizeStale(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("finalize stale job logs: %w", err)
	}

	if releaser, ok := p.queue.(staleReleaser); ok {
		released, err := releaser.ReleaseStale(ctx, cutoff)
		if err != nil {
			return recovered, fmt.Errorf("release stale deliveries: %w", err)
		}
		if released > 0 {
			p.logger.Info("stale deliveries re-enqueued", "count", released)
		}
	}

	if recovered > 0 {
		p.logger.Info("stale job logs finalized", "count", recovered)
	}
	return recovered, nil
}
