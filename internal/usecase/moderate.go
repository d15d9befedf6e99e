package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"NewsIngest/internal/ports"
)

// Moderator is the approval gate between scraping and publishing. Every
// article passes today; the approval lands in the job log, the article
// row itself is untouched. The step exists so a scoring model can slot
// in without changing the job flow.
type Moderator struct {
	articles ports.ArticleRepository
	logger   *slog.Logger
}

func NewModerator(articles ports.ArticleRepository, logger *slog.Logger) *Moderator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Moderator{articles: articles, logger: logger}
}

// Moderate approves the article. The article must exist; its status is
// left as-is.
func (m *Moderator) Moderate(ctx context.Context, articleID string) error {
	article, err := m.articles.ByID(ctx, articleID)
	if err != nil {
		return fmt.Errorf("moderate %s: %w", articleID, err)
	}
	m.logger.Info("article approved", "article", article.ID, "title", article.Title)
	return nil
}
