package domain

import "time"

// ArticleStatus enumerates the article lifecycle. The string values are a
// contract with the web layer and must not change without a migration.
type ArticleStatus string

const (
	StatusScraped     ArticleStatus = "scraped"
	StatusPending     ArticleStatus = "pending"
	StatusProcessed   ArticleStatus = "processed"
	StatusPublished   ArticleStatus = "published"
	StatusRejected    ArticleStatus = "rejected"
	StatusNeedsReview ArticleStatus = "needs_review"
)

// SourceRef is the weak back-reference from an article to the source that
// produced it. Lookup only, not lifetime ownership.
type SourceRef struct {
	SourceID string
	Name     string
	URL      string
}

// Article is the durable, normalized content unit produced by the pipeline.
type Article struct {
	ID               string
	Title            string
	Slug             string
	Summary          string
	Content          string
	Images           []string
	CategoryID       string
	CategoryIDs      []string
	DetectedCategory string
	Tags             []string
	Author           string
	Language         string
	Source           SourceRef
	Status           ArticleStatus
	PublishedAt      time.Time
	ScrapedAt        time.Time
	CanonicalURL     string
	Thumbnail        string
	WordCount        int
	ReadingTime      int
	LangConfidence   float64
	Hash             string

	// Structurally present for the web layer, never populated by the
	// current pipeline.
	FactCheck    map[string]any
	SocialMedia  map[string]any
	Translations map[string]any
}

// ScrapedItem is one raw feed/API entry. It exists only during a scrape
// pass and is never persisted directly.
type ScrapedItem struct {
	Title     string
	Link      string
	Summary   string
	Content   string
	Published time.Time
	Image     string
	Category  string
	Author    string
}
