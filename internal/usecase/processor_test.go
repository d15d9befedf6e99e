package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"NewsIngest/internal/adapter"
	"NewsIngest/internal/domain"
	"NewsIngest/internal/infrastructure/queue"
)

func newTestProcessor(t *testing.T, q *queue.Memory, logs *fakeJobLogs, articles *fakeArticles, adp adapter.Adapter, sources *fakeSources) *Processor {
	t.Helper()

	registry := adapter.NewRegistry()
	if adp != nil {
		registry.Register(adp)
	}
	pipeline := NewPipeline(PipelineDeps{
		Registry:   registry,
		Sources:    sources,
		Articles:   articles,
		Classifier: testClassifier(t),
		Promoter:   NewPromoter(newFakeCategories(), articles, 10, nil),
	})

	return NewProcessor(ProcessorDeps{
		Queue:     q,
		Logs:      logs,
		Pipeline:  pipeline,
		Moderator: NewModerator(articles, nil),
		Publisher: NewPublisher(articles, nil),
		Workers:   1,
		Poll:      time.Millisecond,
	})
}

func dequeueOne(t *testing.T, q *queue.Memory) domain.Job {
	t.Helper()
	job, ok, err := q.Dequeue(context.Background())
	if err != nil || !ok {
		t.Fatalf("Dequeue = (%v, %v)", ok, err)
	}
	return job
}

func TestProcessScrapeJobCompletes(t *testing.T) {
	t.Parallel()

	q := queue.NewMemory(3, time.Millisecond)
	logs := newFakeJobLogs()
	articles := newFakeArticles()
	src := rssSource("s1")
	proc := newTestProcessor(t, q, logs, articles, &fakeAdapter{
		sourceType: domain.SourceRSS,
		items: map[string][]domain.ScrapedItem{"s1": {
			{Title: "Cricket tournament begins", Link: "https://s1.example.com/1", Summary: "stadium match"},
		}},
	}, &fakeSources{sources: []domain.Source{src}})

	job, _ := domain.NewJob(domain.JobScrape, domain.ScrapeJob{})
	if _, err := q.Enqueue(context.Background(), job); err != nil {
		t.Fatal(err)
	}

	if err := proc.Process(context.Background(), dequeueOne(t, q)); err != nil {
		t.Fatalf("Process: %v", err)
	}

	rec, ok := logs.single()
	if !ok {
		t.Fatal("expected exactly one job log")
	}
	if rec.status != domain.LogCompleted || !rec.done {
		t.Fatalf("log = %+v, want completed", rec)
	}
	if rec.log.JobType != domain.JobScrape {
		t.Fatalf("JobType = %q", rec.log.JobType)
	}
	if rec.meta["successfulArticles"] != 1 {
		t.Fatalf("meta = %v", rec.meta)
	}

	for _, j := range q.Snapshot() {
		if j.Status != domain.JobDone {
			t.Fatalf("queue job status = %q, want completed", j.Status)
		}
	}
}

func TestProcessPublishMissingArticleFails(t *testing.T) {
	t.Parallel()

	q := queue.NewMemory(3, time.Millisecond)
	logs := newFakeJobLogs()
	proc := newTestProcessor(t, q, logs, newFakeArticles(), nil, &fakeSources{})

	job, _ := domain.NewJob(domain.JobPublish, domain.PublishJob{ArticleID: "missing"})
	if _, err := q.Enqueue(context.Background(), job); err != nil {
		t.Fatal(err)
	}

	err := proc.Process(context.Background(), dequeueOne(t, q))
	if !errors.Is(err, domain.ErrArticleNotFound) {
		t.Fatalf("err = %v, want ErrArticleNotFound", err)
	}

	rec, ok := logs.single()
	if !ok {
		t.Fatal("expected exactly one job log")
	}
	if rec.status != domain.LogFailed || !rec.done {
		t.Fatalf("log = %+v, want failed and finalized", rec)
	}
	if rec.meta["error"] == nil {
		t.Fatalf("meta = %v, want an error entry", rec.meta)
	}
}

func TestProcessModerateJob(t *testing.T) {
	t.Parallel()

	q := queue.NewMemory(3, time.Millisecond)
	logs := newFakeJobLogs()
	articles := newFakeArticles()
	id := articles.seed(domain.Article{Title: "Fresh piece", Status: domain.StatusScraped})
	proc := newTestProcessor(t, q, logs, articles, nil, &fakeSources{})

	job, _ := domain.NewJob(domain.JobModerate, domain.ModerateJob{ArticleID: id})
	if _, err := q.Enqueue(context.Background(), job); err != nil {
		t.Fatal(err)
	}

	if err := proc.Process(context.Background(), dequeueOne(t, q)); err != nil {
		t.Fatalf("Process: %v", err)
	}
	got, _ := articles.ByID(context.Background(), id)
	if got.Status != domain.StatusScraped {
		t.Fatalf("Status = %q, want scraped (unchanged)", got.Status)
	}
	rec, ok := logs.single()
	if !ok {
		t.Fatal("want exactly one job log record")
	}
	if rec.status != domain.LogCompleted {
		t.Fatalf("log status = %q, want completed", rec.status)
	}
	if rec.meta["approved"] != true {
		t.Fatalf("meta approved = %v, want true", rec.meta["approved"])
	}
	if rec.meta["articleId"] != id {
		t.Fatalf("meta articleId = %v, want %s", rec.meta["articleId"], id)
	}
}

func TestProcessUnknownKindFails(t *testing.T) {
	t.Parallel()

	q := queue.NewMemory(3, time.Millisecond)
	logs := newFakeJobLogs()
	proc := newTestProcessor(t, q, logs, newFakeArticles(), nil, &fakeSources{})

	job := domain.Job{Kind: "mystery", Payload: []byte(`{}`)}
	if _, err := q.Enqueue(context.Background(), job); err != nil {
		t.Fatal(err)
	}

	if err := proc.Process(context.Background(), dequeueOne(t, q)); err == nil {
		t.Fatal("expected an error for an unknown job kind")
	}
	rec, ok := logs.single()
	if !ok || rec.status != domain.LogFailed {
		t.Fatalf("log = %+v, want failed", rec)
	}
}

func TestProcessFailedJobIsRedelivered(t *testing.T) {
	t.Parallel()

	q := queue.NewMemory(3, time.Millisecond)
	logs := newFakeJobLogs()
	proc := newTestProcessor(t, q, logs, newFakeArticles(), nil, &fakeSources{})

	job, _ := domain.NewJob(domain.JobPublish, domain.PublishJob{ArticleID: "missing"})
	if _, err := q.Enqueue(context.Background(), job); err != nil {
		t.Fatal(err)
	}

	if err := proc.Process(context.Background(), dequeueOne(t, q)); err == nil {
		t.Fatal("expected a failure")
	}

	// The queue entry goes back to enqueued for another attempt.
	time.Sleep(5 * time.Millisecond)
	redelivered := dequeueOne(t, q)
	if redelivered.Attempts != 2 {
		t.Fatalf("Attempts = %d, want 2", redelivered.Attempts)
	}
}

func TestRecoverStaleFinalizesOldLogs(t *testing.T) {
	t.Parallel()

	q := queue.NewMemory(3, time.Millisecond)
	logs := newFakeJobLogs()
	proc := newTestProcessor(t, q, logs, newFakeArticles(), nil, &fakeSources{})

	// A log left running by a process that died an hour ago.
	if _, err := logs.Start(context.Background(), domain.JobLog{
		JobType:   domain.JobScrape,
		Status:    domain.LogRunning,
		StartTime: time.Now().UTC().Add(-time.Hour),
	}); err != nil {
		t.Fatal(err)
	}

	n, err := proc.RecoverStale(context.Background(), 30*time.Minute)
	if err != nil {
		t.Fatalf("RecoverStale: %v", err)
	}
	if n != 1 {
		t.Fatalf("recovered = %d, want 1", n)
	}

	rec, ok := logs.single()
	if !ok || rec.status != domain.LogFailed || !rec.done {
		t.Fatalf("log = %+v, want failed and finalized", rec)
	}
}

func TestRecoverStaleKeepsFreshLogs(t *testing.T) {
	t.Parallel()

	q := queue.NewMemory(3, time.Millisecond)
	logs := newFakeJobLogs()
	proc := newTestProcessor(t, q, logs, newFakeArticles(), nil, &fakeSources{})

	if _, err := logs.Start(context.Background(), domain.JobLog{
		JobType:   domain.JobScrape,
		Status:    domain.LogRunning,
		StartTime: time.Now().UTC(),
	}); err != nil {
		t.Fatal(err)
	}

	n, err := proc.RecoverStale(context.Background(), 30*time.Minute)
	if err != nil {
		t.Fatalf("RecoverStale: %v", err)
	}
	if n != 0 {
		t.Fatalf("recovered = %d, want 0", n)
	}
}
