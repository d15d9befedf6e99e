package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"NewsIngest/internal/classify"
	"NewsIngest/internal/domain"
	"NewsIngest/internal/ports"
)

// categoryStyle carries the presentation defaults a promoted category
// starts out with.
type categoryStyle struct {
	Label string
	Icon  string
	Color string
}

var categoryStyles = map[string]categoryStyle{
	"politics":      {Label: "Politics", Icon: "🏛️", Color: "#B91C1C"},
	"sports":        {Label: "Sports", Icon: "🏏", Color: "#15803D"},
	"entertainment": {Label: "Entertainment", Icon: "🎬", Color: "#7C3AED"},
	"technology":    {Label: "Technology", Icon: "💻", Color: "#0369A1"},
	"health":        {Label: "Health", Icon: "🏥", Color: "#0D9488"},
	"business":      {Label: "Business", Icon: "📈", Color: "#B45309"},
	"education":     {Label: "Education", Icon: "🎓", Color: "#4338CA"},
	"crime":         {Label: "Crime", Icon: "🚨", Color: "#991B1B"},
}

var defaultStyle = categoryStyle{Icon: "📰", Color: "#475569"}

// Promoter creates a real category row once enough articles have
// accumulated under a detected key.
type Promoter struct {
	categories ports.CategoryRepository
	articles   ports.ArticleRepository
	threshold  int
	logger     *slog.Logger
}

// NewPromoter builds a Promoter. A threshold below one is clamped to one.
func NewPromoter(categories ports.CategoryRepository, articles ports.ArticleRepository, threshold int, logger *slog.Logger) *Promoter {
	if threshold < 1 {
		threshold = 1
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Promoter{categories: categories, articles: articles, threshold: threshold, logger: logger}
}

// MaybePromote returns the category ID for key if a matching category
// exists or the incoming article pushes the count over the threshold.
// An empty return means the article stays uncategorized for now.
func (p *Promoter) MaybePromote(ctx context.Context, key, language string) (string, error) {
	key = strings.TrimSpace(strings.ToLower(key))
	if key == "" || key == classify.GeneralCategory || key == "uncategorized" {
		return "", nil
	}

	cat, found, err := p.categories.ByKey(ctx, key, language)
	if err != nil {
		return "", fmt.Errorf("category lookup %s: %w", key, err)
	}
	if found {
		return cat.ID, nil
	}

	count, err := p.articles.CountByDetectedCategory(ctx, key, language)
	if err != nil {
		return "", fmt.Errorf("count detected category %s: %w", key, err)
	}
	// The article being inserted counts toward the threshold.
	if count+1 < p.threshold {
		return "", nil
	}

	style, ok := categoryStyles[key]
	if !ok {
		style = defaultStyle
	}
	label := style.Label
	if label == "" {
		label = titleCase(key)
	}

	id, err := p.categories.Create(ctx, domain.Category{
		Key:      key,
		Label:    label,
		Icon:     style.Icon,
		Color:    style.Color,
		Active:   true,
		Language: language,
		Dynamic:  true,
	})
	if err != nil {
		return "", fmt.Errorf("create category %s: %w", key, err)
	}
	p.logger.Info("category promoted", "key", key, "language", language, "articles", count+1)
	return id, nil
}

func titleCase(key string) string {
	if key == "" {
		return key
	}
	return strings.ToUpper(key[:1]) + key[1:]
}
