package domain

import "time"

// SourceType selects the feed adapter strategy for a source.
type SourceType string

const (
	SourceRSS SourceType = "rss"
	SourceAPI SourceType = "api"
)

// Source is a configured origin the pipeline scrapes. Created via seed or
// admin operations; the scraper only ever touches LastScraped.
type Source struct {
	ID          string
	Name        string
	BaseURL     string
	FeedURLs    []string
	Type        SourceType
	Language    string
	CategoryIDs []string
	APIKey      string
	Active      bool
	LastScraped time.Time
}
