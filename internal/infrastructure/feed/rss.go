package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"NewsIngest/internal/adapter"
	"NewsIngest/internal/domain"
	"NewsIngest/internal/ports"
)

// RSSAdapter parses RSS/Atom feeds into scraped items. Bodies come through
// the shared fetcher so feed polling honors the global rate limit.
type RSSAdapter struct {
	fetcher ports.Fetcher
	parser  *gofeed.Parser
	logger  *slog.Logger
}

var _ adapter.Adapter = (*RSSAdapter)(nil)

// NewRSSAdapter wires the shared fetcher. A nil logger disables logging.
func NewRSSAdapter(fetcher ports.Fetcher, logger *slog.Logger) *RSSAdapter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &RSSAdapter{
		fetcher: fetcher,
		parser:  gofeed.NewParser(),
		logger:  logger,
	}
}

// Type identifies the strategy inside the registry.
func (a *RSSAdapter) Type() domain.SourceType { return domain.SourceRSS }

// Items walks every feed URL of the source. A feed that fails direct
// parsing is re-fetched through the fallback chain; a feed that still
// fails is skipped for this cycle. The source only fails when no feed
// produced anything.
func (a *RSSAdapter) Items(ctx context.Context, source domain.Source) ([]domain.ScrapedItem, error) {
	var (
		items   []domain.ScrapedItem
		lastErr error
		fetched int
	)

	for _, feedURL := range source.FeedURLs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		parsed, err := a.parseFeed(ctx, feedURL)
		if err != nil {
			lastErr = err
			a.logger.Warn("feed skipped for this cycle", "source", source.Name, "feed", feedURL, "error", err)
			continue
		}
		fetched++

		for _, entry := range parsed.Items {
			items = append(items, itemFromEntry(entry))
		}
	}

	if fetched == 0 && lastErr != nil {
		return nil, fmt.Errorf("source %s: no feed could be fetched: %w", source.Name, lastErr)
	}
	return items, nil
}

// parseFeed fetches directly first and falls back to the proxy chain when
// the body does not parse or parses empty.
func (a *RSSAdapter) parseFeed(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	body, err := a.fetcher.Fetch(ctx, feedURL)
	if err == nil {
		if parsed, perr := a.parser.ParseString(body); perr == nil && len(parsed.Items) > 0 {
			return parsed, nil
		}
	}

	body, err = a.fetcher.FetchWithFallback(ctx, feedURL)
	if err != nil {
		return nil, err
	}
	parsed, err := a.parser.ParseString(body)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", feedURL, err)
	}
	return parsed, nil
}

func itemFromEntry(entry *gofeed.Item) domain.ScrapedItem {
	published := time.Now()
	if entry.PublishedParsed != nil {
		published = *entry.PublishedParsed
	} else if entry.UpdatedParsed != nil {
		published = *entry.UpdatedParsed
	}

	summary := strings.TrimSpace(entry.Description)
	if summary == "" {
		summary = strings.TrimSpace(entry.Content)
	}

	var author string
	if len(entry.Authors) > 0 && entry.Authors[0] != nil {
		author = entry.Authors[0].Name
	}

	var category string
	if len(entry.Categories) > 0 {
		category = entry.Categories[0]
	}

	var image string
	if entry.Image != nil {
		image = entry.Image.URL
	} else {
		for _, enc := range entry.Enclosures {
			if enc != nil && strings.HasPrefix(enc.Type, "image/") {
				image = enc.URL
				break
			}
		}
	}

	return domain.ScrapedItem{
		Title:     strings.TrimSpace(entry.Title),
		Link:      strings.TrimSpace(entry.Link),
		Summary:   summary,
		Content:   entry.Content,
		Published: published,
		Image:     image,
		Category:  category,
		Author:    author,
	}
}
