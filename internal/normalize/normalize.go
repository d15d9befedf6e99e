// Package normalize builds canonical article records from raw scraped
// items: cleaned content, word count, reading time, tags, thumbnail.
package normalize

import (
	"html"
	"net/url"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"

	"NewsIngest/internal/domain"
)

const (
	wordsPerMinute = 200
	maxImages      = 5
	maxTags        = 8
	minTagRunes    = 5 // tokens longer than 4 runes qualify
)

// Article builds the canonical record for a scraped item with
// status=scraped. DetectedCategory and category references are filled in
// by the caller after classification.
func Article(item domain.ScrapedItem, source domain.Source) domain.Article {
	raw := item.Content
	if raw == "" {
		raw = item.Summary
	}

	content := CleanContent(raw)
	wordCount := len(strings.Fields(content))

	images := ExtractImages(item.Content, item.Link)
	if item.Image != "" {
		images = prepend(images, item.Image)
	}
	if len(images) == 0 {
		if og := OpenGraphImage(item.Content); og != "" {
			images = []string{og}
		}
	}

	thumbnail := ""
	if len(images) > 0 {
		thumbnail = images[0]
	}

	canonical := canonicalLink(item.Content)
	if canonical == "" {
		canonical = item.Link
	}

	return domain.Article{
		Title:        strings.TrimSpace(item.Title),
		Slug:         Slugify(item.Title),
		Summary:      CleanContent(item.Summary),
		Content:      content,
		Images:       images,
		Tags:         Tags(item.Title+" "+item.Summary+" "+content, maxTags),
		Author:       strings.TrimSpace(item.Author),
		Language:     source.Language,
		Source:       domain.SourceRef{SourceID: source.ID, Name: source.Name, URL: source.BaseURL},
		Status:       domain.StatusScraped,
		PublishedAt:  item.Published,
		ScrapedAt:    time.Now().UTC(),
		CanonicalURL: canonical,
		Thumbnail:    thumbnail,
		WordCount:    wordCount,
		ReadingTime:  ReadingTime(wordCount),
		Hash:         Hash(item.Title, item.Summary, sourceIdentifier(item, source)),
	}
}

// ItemHash is the dedup fingerprint the pipeline checks before doing any
// normalization work. Identical to the hash Article computes.
func ItemHash(item domain.ScrapedItem, source domain.Source) string {
	return Hash(item.Title, item.Summary, sourceIdentifier(item, source))
}

// sourceIdentifier prefers the stable source id and falls back to the
// item link for ad-hoc sources.
func sourceIdentifier(item domain.ScrapedItem, source domain.Source) string {
	if source.ID != "" {
		return source.ID
	}
	return item.Link
}

// ReadingTime is ceil(wordCount/200) minutes, never below 1.
func ReadingTime(wordCount int) int {
	minutes := (wordCount + wordsPerMinute - 1) / wordsPerMinute
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}

// CleanContent strips HTML tags, unescapes entities, and collapses
// whitespace.
func CleanContent(raw string) string {
	if raw == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(raw))
	inTag := false
	for _, r := range raw {
		switch {
		case r == '<':
			inTag = true
			b.WriteRune(' ')
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}

	cleaned := html.UnescapeString(b.String())
	return strings.Join(strings.Fields(cleaned), " ")
}

// ExtractImages scans img tags for src/alt, resolves relative URLs
// against the article link, and deduplicates by URL, capped at maxImages.
func ExtractImages(htmlBody, articleURL string) []string {
	if htmlBody == "" {
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlBody))
	if err != nil {
		return nil
	}

	base, _ := url.Parse(articleURL)

	var images []string
	seen := map[string]struct{}{}

	doc.Find("img").EachWithBreak(func(i int, s *goquery.Selection) bool {
		src, ok := s.Attr("src")
		if !ok || strings.TrimSpace(src) == "" {
			src, ok = s.Attr("data-src")
			if !ok || strings.TrimSpace(src) == "" {
				return true
			}
		}

		resolved := resolveURL(base, strings.TrimSpace(src))
		if resolved == "" {
			return true
		}
		if _, dup := seen[resolved]; dup {
			return true
		}
		seen[resolved] = struct{}{}
		images = append(images, resolved)
		return len(images) < maxImages
	})

	return images
}

// OpenGraphImage returns the og:image meta content, if any.
func OpenGraphImage(htmlBody string) string {
	if htmlBody == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlBody))
	if err != nil {
		return ""
	}
	content, _ := doc.Find(`meta[property="og:image"]`).First().Attr("content")
	return strings.TrimSpace(content)
}

func canonicalLink(htmlBody string) string {
	if htmlBody == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlBody))
	if err != nil {
		return ""
	}
	href, _ := doc.Find(`link[rel="canonical"]`).First().Attr("href")
	return strings.TrimSpace(href)
}

func resolveURL(base *url.URL, ref string) string {
	parsed, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if parsed.IsAbs() || base == nil {
		return parsed.String()
	}
	return base.ResolveReference(parsed).String()
}

func prepend(images []string, first string) []string {
	out := []string{first}
	for _, img := range images {
		if img == first {
			continue
		}
		out = append(out, img)
		if len(out) == maxImages {
			break
		}
	}
	return out
}

// Tags picks the top-N distinct tokens longer than 4 runes, ranked by
// frequency and then first-seen order. No stemming, by contract with the
// existing data.
func Tags(text string, max int) []string {
	counts := map[string]int{}
	order := map[string]int{}
	next := 0

	for _, field := range strings.Fields(strings.ToLower(text)) {
		token := strings.TrimFunc(field, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		})
		if len([]rune(token)) < minTagRunes {
			continue
		}
		if _, ok := counts[token]; !ok {
			order[token] = next
			next++
		}
		counts[token]++
	}

	tokens := make([]string, 0, len(counts))
	for token := range counts {
		tokens = append(tokens, token)
	}
	sort.Slice(tokens, func(i, j int) bool {
		if counts[tokens[i]] != counts[tokens[j]] {
			return counts[tokens[i]] > counts[tokens[j]]
		}
		return order[tokens[i]] < order[tokens[j]]
	})

	if max > 0 && len(tokens) > max {
		tokens = tokens[:max]
	}
	return tokens
}

// Slugify produces a URL-safe slug from a title.
func Slugify(title string) string {
	var b strings.Builder
	prevDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			b.WriteRune(r)
			prevDash = false
		case !prevDash:
			b.WriteRune('-')
			prevDash = true
		}
	}
	return strings.Trim(b.String(), "-")
}
