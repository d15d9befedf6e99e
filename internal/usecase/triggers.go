package usecase

import (
	"context"
	"fmt"

	"NewsIngest/internal/domain"
	"NewsIngest/internal/ports"
)

// Triggers enqueues jobs on behalf of the scheduler and the CLI.
type Triggers struct {
	queue ports.Queue
}

func NewTriggers(queue ports.Queue) *Triggers {
	return &Triggers{queue: queue}
}

// EnqueueScrape queues a scraping job. An empty sourceID means all
// active sources.
func (t *Triggers) EnqueueScrape(ctx context.Context, sourceID string) (string, error) {
	job, err := domain.NewJob(domain.JobScrape, domain.ScrapeJob{SourceID: sourceID})
	if err != nil {
		return "", err
	}
	id, err := t.queue.Enqueue(ctx, job)
	if err != nil {
		return "", fmt.Errorf("enqueue scrape: %w", err)
	}
	return id, nil
}

// EnqueueModerate queues a moderation job for one article.
func (t *Triggers) EnqueueModerate(ctx context.Context, articleID string) (string, error) {
	job, err := domain.NewJob(domain.JobModerate, domain.ModerateJob{ArticleID: articleID})
	if err != nil {
		return "", err
	}
	id, err := t.queue.Enqueue(ctx, job)
	if err != nil {
		return "", fmt.Errorf("enqueue moderate: %w", err)
	}
	return id, nil
}

// EnqueuePublish queues a publishing job for one article.
func (t *Triggers) EnqueuePublish(ctx context.Context, articleID string) (string, error) {
	job, err := domain.NewJob(domain.JobPublish, domain.PublishJob{ArticleID: articleID})
	if err != nil {
		return "", err
	}
	id, err := t.queue.Enqueue(ctx, job)
	if err != nil {
		return "", fmt.Errorf("enqueue publish: %w", err)
	}
	return id, nil
}
