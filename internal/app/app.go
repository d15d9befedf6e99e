package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"NewsIngest/internal/adapter"
	"NewsIngest/internal/classify"
	"NewsIngest/internal/config"
	"NewsIngest/internal/domain"
	"NewsIngest/internal/infrastructure/feed"
	"NewsIngest/internal/infrastructure/fetch"
	"NewsIngest/internal/infrastructure/queue"
	"NewsIngest/internal/infrastructure/scheduler"
	"NewsIngest/internal/infrastructure/storage"
	"NewsIngest/internal/logging"
	"NewsIngest/internal/ports"
	"NewsIngest/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	db        *sql.DB
	sources   *storage.SourceRepository
	scheduler ports.Scheduler
	processor *usecase.Processor
	triggers  *usecase.Triggers

	Pipeline  *usecase.Pipeline
	Moderator *usecase.Moderator
	Publisher *usecase.Publisher
}

// New builds a fully wired application instance. The caller owns Close.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	db, err := storage.Open(cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := storage.InitSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	sources := storage.NewSourceRepository(db)
	articles := storage.NewArticleRepository(db)
	categories := storage.NewCategoryRepository(db)
	jobLogs := storage.NewJobLogRepository(db)
	jobQueue := queue.NewPostgres(db, cfg.Queue.MaxAttempts, cfg.Queue.RedeliveryBase())

	fetcher := fetch.New(cfg.Fetcher, baseLogger.With("component", "fetch"))

	registry := adapter.NewRegistry()
	registry.Register(feed.NewRSSAdapter(fetcher, baseLogger.With("component", "adapter.rss")))
	registry.Register(feed.NewAPIAdapter(fetcher, baseLogger.With("component", "adapter.api")))

	tables, err := classify.LoadTables(cfg.Classifier.TablesPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load keyword tables: %w", err)
	}
	classifier := classify.New(tables, cfg.Classifier.ScoreThreshold)

	promoter := usecase.NewPromoter(categories, articles, cfg.Promotion.Threshold,
		baseLogger.With("component", "promoter"))

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Registry:   registry,
		Sources:    sources,
		Articles:   articles,
		Classifier: classifier,
		Promoter:   promoter,
		Logger:     baseLogger.With("component", "pipeline"),
	})
	moderator := usecase.NewModerator(articles, baseLogger.With("component", "moderator"))
	publisher := usecase.NewPublisher(articles, baseLogger.With("component", "publisher"))

	processor := usecase.NewProcessor(usecase.ProcessorDeps{
		Queue:     jobQueue,
		Logs:      jobLogs,
		Pipeline:  pipeline,
		Moderator: moderator,
		Publisher: publisher,
		Workers:   cfg.Queue.Workers,
		Logger:    baseLogger.With("component", "processor"),
	})

	return &Application{
		cfg:       cfg,
		logger:    baseLogger,
		db:        db,
		sources:   sources,
		scheduler: scheduler.NewInterval(cfg.Scheduler.Interval()),
		processor: processor,
		triggers:  usecase.NewTriggers(jobQueue),
		Pipeline:  pipeline,
		Moderator: moderator,
		Publisher: publisher,
	}, nil
}

// Triggers exposes job enqueueing for the CLI.
func (a *Application) Triggers() *usecase.Triggers {
	return a.triggers
}

// SeedSources loads source definitions from a YAML file and upserts them
// by id.
func (a *Application) SeedSources(ctx context.Context, path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read sources file: %w", err)
	}

	var file struct {
		Sources []struct {
			ID          string   `yaml:"id"`
			Name        string   `yaml:"name"`
			BaseURL     string   `yaml:"baseUrl"`
			FeedURLs    []string `yaml:"feedUrls"`
			Type        string   `yaml:"type"`
			Language    string   `yaml:"language"`
			CategoryIDs []string `yaml:"categoryIds"`
			APIKey      string   `yaml:"apiKey"`
			Active      *bool    `yaml:"active"`
		} `yaml:"sources"`
	}
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return 0, fmt.Errorf("parse sources file: %w", err)
	}

	for i, s := range file.Sources {
		if s.ID == "" || len(s.FeedURLs) == 0 {
			return i, fmt.Errorf("source %d (%s): id and feedUrls are required", i, s.Name)
		}
		active := true
		if s.Active != nil {
			active = *s.Active
		}
		src := domain.Source{
			ID:          s.ID,
			Name:        s.Name,
			BaseURL:     s.BaseURL,
			FeedURLs:    s.FeedURLs,
			Type:        domain.SourceType(s.Type),
			Language:    s.Language,
			CategoryIDs: s.CategoryIDs,
			APIKey:      s.APIKey,
			Active:      active,
		}
		if src.Type == "" {
			src.Type = domain.SourceRSS
		}
		if err := a.sources.Upsert(ctx, src); err != nil {
			return i, err
		}
		a.logger.Info("source seeded", "id", src.ID, "name", src.Name, "type", src.Type)
	}
	return len(file.Sources), nil
}

// RecoverStale finalizes work abandoned by a previous process.
func (a *Application) RecoverStale(ctx context.Context) (int, error) {
	return a.processor.RecoverStale(ctx, a.cfg.Queue.StaleAfter())
}

// Run starts the recovery sweep, the worker pool, and the scheduler,
// then blocks until ctx is cancelled.
func (a *Application) Run(ctx context.Context) error {
	if _, err := a.RecoverStale(ctx); err != nil {
		a.logger.Warn("stale job recovery failed", "error", err)
	}

	a.processor.Start(ctx)

	err := a.scheduler.Start(ctx, func(t time.Time) {
		id, err := a.triggers.EnqueueScrape(ctx, "")
		if err != nil {
			a.logger.Error("cannot enqueue scheduled scrape", "error", err)
			return
		}
		a.logger.Info("scheduled scrape enqueued", "job", id, "tick", t)
	})
	if err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	<-ctx.Done()
	a.scheduler.Stop(context.Background())
	a.processor.Wait()
	return nil
}

// Close releases held resources.
func (a *Application) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}
