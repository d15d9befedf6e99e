package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"NewsIngest/internal/domain"
	"NewsIngest/internal/ports"
)

// Publisher flips a moderated article to published. Rejected articles
// stay rejected; a missing article is a hard failure so the job log
// records it.
type Publisher struct {
	articles ports.ArticleRepository
	logger   *slog.Logger
}

func NewPublisher(articles ports.ArticleRepository, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Publisher{articles: articles, logger: logger}
}

// Publish sets status=published with the publication timestamp.
func (p *Publisher) Publish(ctx context.Context, articleID string) error {
	article, err := p.articles.ByID(ctx, articleID)
	if err != nil {
		return fmt.Errorf("publish %s: %w", articleID, err)
	}
	if article.Status == domain.StatusRejected {
		return fmt.Errorf("publish %s: %w", articleID, domain.ErrArticleRejected)
	}
	if err := p.articles.SetStatus(ctx, article.ID, domain.StatusPublished, time.Now().UTC()); err != nil {
		return fmt.Errorf("publish %s: %w", articleID, err)
	}
	p.logger.Info("article published", "article", article.ID, "title", article.Title)
	return nil
}
