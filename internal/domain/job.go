package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// JobKind discriminates queued work.
type JobKind string

const (
	JobScrape   JobKind = "scraping"
	JobModerate JobKind = "moderation"
	JobPublish  JobKind = "publishing"
)

// JobStatus tracks a queued job through delivery.
type JobStatus string

const (
	JobEnqueued JobStatus = "enqueued"
	JobRunning  JobStatus = "running"
	JobDone     JobStatus = "completed"
	JobFailed   JobStatus = "failed"
)

// ScrapeJob covers all active sources when SourceID is empty, or a single
// source otherwise.
type ScrapeJob struct {
	SourceID string `json:"sourceId,omitempty"`
}

// ModerateJob gates one scraped article.
type ModerateJob struct {
	ArticleID string `json:"articleId"`
}

// PublishJob flips one article to published.
type PublishJob struct {
	ArticleID string `json:"articleId"`
}

// Job is one durable queue entry. Payload holds exactly one of the typed
// payload structs, selected by Kind.
type Job struct {
	ID         string
	Kind       JobKind
	Payload    json.RawMessage
	Status     JobStatus
	Attempts   int
	MaxAttempt int
	RunAt      time.Time
	CreatedAt  time.Time
}

// NewJob encodes a typed payload for its kind.
func NewJob(kind JobKind, payload any) (Job, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Job{}, fmt.Errorf("encode %s payload: %w", kind, err)
	}
	return Job{Kind: kind, Payload: raw, Status: JobEnqueued}, nil
}

// DecodePayload unmarshals the payload into the struct matching job kind.
func (j Job) DecodePayload() (any, error) {
	switch j.Kind {
	case JobScrape:
		var p ScrapeJob
		if err := json.Unmarshal(j.Payload, &p); err != nil {
			return nil, fmt.Errorf("decode scrape payload: %w", err)
		}
		return p, nil
	case JobModerate:
		var p ModerateJob
		if err := json.Unmarshal(j.Payload, &p); err != nil {
			return nil, fmt.Errorf("decode moderate payload: %w", err)
		}
		return p, nil
	case JobPublish:
		var p PublishJob
		if err := json.Unmarshal(j.Payload, &p); err != nil {
			return nil, fmt.Errorf("decode publish payload: %w", err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown job kind %q", j.Kind)
	}
}

// JobLogStatus is the audit-trail lifecycle. A log row is created at
// running and must always be finalized to a terminal state.
type JobLogStatus string

const (
	LogRunning   JobLogStatus = "running"
	LogCompleted JobLogStatus = "completed"
	LogFailed    JobLogStatus = "failed"
)

// JobLog is the append-only audit record of one job execution.
type JobLog struct {
	ID        string
	JobType   JobKind
	Status    JobLogStatus
	StartTime time.Time
	EndTime   time.Time
	Meta      map[string]any
}

// ScrapeSummary aggregates a scraping job outcome across sources.
type ScrapeSummary struct {
	SourcesProcessed   int
	TotalArticles      int
	SuccessfulArticles int
	Duplicates         int
	Errors             []string
}
