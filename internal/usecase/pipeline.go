package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"NewsIngest/internal/adapter"
	"NewsIngest/internal/classify"
	"NewsIngest/internal/domain"
	"NewsIngest/internal/normalize"
	"NewsIngest/internal/ports"
)

// PipelineDeps wires all driven adapters into the scraping workflow.
type PipelineDeps struct {
	Registry   *adapter.Registry
	Sources    ports.SourceRepository
	Articles   ports.ArticleRepository
	Classifier *classify.Classifier
	Promoter   *Promoter
	Logger     *slog.Logger
}

// Pipeline implements the scraping job: fetch, adapt, dedup, classify,
// normalize, persist.
type Pipeline struct {
	registry   *adapter.Registry
	sources    ports.SourceRepository
	articles   ports.ArticleRepository
	classifier *classify.Classifier
	promoter   *Promoter
	logger     *slog.Logger
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Pipeline{
		registry:   deps.Registry,
		sources:    deps.Sources,
		articles:   deps.Articles,
		classifier: deps.Classifier,
		promoter:   deps.Promoter,
		logger:     logger,
	}
}

// Scrape processes one source when sourceID is set, otherwise every
// active source. A failing source is recorded in the summary and never
// aborts the run; only cancellation and the initial source lookup do.
func (p *Pipeline) Scrape(ctx context.Context, sourceID string) (domain.ScrapeSummary, error) {
	var summary domain.ScrapeSummary

	var (
		sources []domain.Source
		err     error
	)
	if sourceID != "" {
		src, lookupErr := p.sources.ByID(ctx, sourceID)
		if lookupErr != nil {
			return summary, fmt.Errorf("scrape source %s: %w", sourceID, lookupErr)
		}
		sources = []domain.Source{src}
	} else {
		sources, err = p.sources.Active(ctx)
		if err != nil {
			return summary, fmt.Errorf("load active sources: %w", err)
		}
	}

	for _, src := range sources {
		// Cooperative cancellation between per-source iterations.
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		total, successful, duplicates, err := p.scrapeSource(ctx, src)
		summary.TotalArticles += total
		summary.SuccessfulArticles += successful
		summary.Duplicates += duplicates
		if err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", src.Name, err))
			p.logger.Warn("source failed this cycle", "source", src.Name, "error", err)
			continue
		}
		summary.SourcesProcessed++

		if err := p.sources.TouchLastScraped(ctx, src.ID, time.Now().UTC()); err != nil {
			p.logger.Warn("cannot update last_scraped", "source", src.Name, "error", err)
		}
		p.logger.Info("source scraped",
			"source", src.Name, "items", total, "new", successful, "duplicates", duplicates)
	}

	return summary, nil
}

func (p *Pipeline) scrapeSource(ctx context.Context, src domain.Source) (total, successful, duplicates int, err error) {
	adp, err := p.registry.Resolve(src.Type)
	if err != nil {
		return 0, 0, 0, err
	}

	items, err := adp.Items(ctx, src)
	if err != nil {
		return 0, 0, 0, err
	}

	// Items are processed in feed order; no cross-source ordering exists.
	for _, item := range items {
		total++

		exists, err := p.articles.ExistsByHash(ctx, normalize.ItemHash(item, src))
		if err != nil {
			p.logger.Warn("dedup lookup failed", "source", src.Name, "link", item.Link, "error", err)
			continue
		}
		if exists {
			duplicates++
			continue
		}

		article := normalize.Article(item, src)
		article.DetectedCategory = p.detectCategory(item, src)

		if p.promoter != nil {
			categoryID, err := p.promoter.MaybePromote(ctx, article.DetectedCategory, src.Language)
			if err != nil {
				p.logger.Warn("category promotion failed", "key", article.DetectedCategory, "error", err)
			} else if categoryID != "" {
				article.CategoryID = categoryID
				article.CategoryIDs = []string{categoryID}
			}
		}

		if _, err := p.articles.Insert(ctx, article); err != nil {
			if errors.Is(err, domain.ErrDuplicateArticle) {
				// A concurrent scrape won the insert race. Counted, not logged
				// as failure.
				duplicates++
				continue
			}
			p.logger.Warn("article insert failed", "source", src.Name, "link", item.Link, "error", err)
			continue
		}
		successful++
	}

	return total, successful, duplicates, nil
}

// detectCategory resolves a feed-embedded category name through the
// synonym map before falling back to the text classifier.
func (p *Pipeline) detectCategory(item domain.ScrapedItem, src domain.Source) string {
	if item.Category != "" {
		if key, ok := p.classifier.ResolveEmbedded(item.Category, src.Language); ok {
			return key
		}
	}
	return p.classifier.Classify(item.Title, item.Summary, item.Content, src.Language)
}
