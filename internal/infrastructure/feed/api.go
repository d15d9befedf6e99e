package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"NewsIngest/internal/adapter"
	"NewsIngest/internal/domain"
	"NewsIngest/internal/ports"
)

// APIAdapter pulls JSON article envelopes from HTTP APIs. It expects the
// NewsAPI-style shape: an object with an `articles` array.
type APIAdapter struct {
	fetcher ports.Fetcher
	logger  *slog.Logger
}

var _ adapter.Adapter = (*APIAdapter)(nil)

// NewAPIAdapter wires the shared fetcher. A nil logger disables logging.
func NewAPIAdapter(fetcher ports.Fetcher, logger *slog.Logger) *APIAdapter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &APIAdapter{fetcher: fetcher, logger: logger}
}

// Type identifies the strategy inside the registry.
func (a *APIAdapter) Type() domain.SourceType { return domain.SourceAPI }

type apiEnvelope struct {
	Articles []apiArticle `json:"articles"`
}

type apiArticle struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Content     string `json:"content"`
	Author      string `json:"author"`
	URLToImage  string `json:"urlToImage"`
	PublishedAt string `json:"publishedAt"`
}

// Items queries every endpoint of the source and maps the envelope into
// scraped items. Endpoints that fail are skipped; the source only fails
// when no endpoint responded.
func (a *APIAdapter) Items(ctx context.Context, source domain.Source) ([]domain.ScrapedItem, error) {
	var (
		items   []domain.ScrapedItem
		lastErr error
		fetched int
	)

	for _, endpoint := range source.FeedURLs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		body, err := a.fetcher.Fetch(ctx, withAPIKey(endpoint, source.APIKey))
		if err != nil {
			lastErr = err
			a.logger.Warn("api endpoint skipped for this cycle", "source", source.Name, "endpoint", endpoint, "error", err)
			continue
		}

		var envelope apiEnvelope
		if err := json.Unmarshal([]byte(body), &envelope); err != nil {
			lastErr = fmt.Errorf("decode %s: %w", endpoint, err)
			a.logger.Warn("api response not decodable", "source", source.Name, "endpoint", endpoint, "error", err)
			continue
		}
		fetched++

		for _, art := range envelope.Articles {
			items = append(items, itemFromAPIArticle(art))
		}
	}

	if fetched == 0 && lastErr != nil {
		return nil, fmt.Errorf("source %s: no api endpoint could be fetched: %w", source.Name, lastErr)
	}
	return items, nil
}

func withAPIKey(endpoint, key string) string {
	if key == "" {
		return endpoint
	}
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return endpoint
	}
	q := parsed.Query()
	q.Set("apiKey", key)
	parsed.RawQuery = q.Encode()
	return parsed.String()
}

func itemFromAPIArticle(art apiArticle) domain.ScrapedItem {
	published := time.Now()
	if art.PublishedAt != "" {
		if t, err := time.Parse(time.RFC3339, art.PublishedAt); err == nil {
			published = t
		}
	}

	return domain.ScrapedItem{
		Title:     strings.TrimSpace(art.Title),
		Link:      strings.TrimSpace(art.URL),
		Summary:   strings.TrimSpace(art.Description),
		Content:   art.Content,
		Published: published,
		Image:     art.URLToImage,
		Author:    art.Author,
	}
}
