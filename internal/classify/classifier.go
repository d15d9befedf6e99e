// Package classify assigns a best-fit category to free text with a
// bag-of-keywords heuristic. Intentionally not ML: the behavior must stay
// debuggable and tunable by editing keyword tables per language.
package classify

import (
	"strings"
	"unicode"
)

// GeneralCategory is returned when no category clears the score threshold.
const GeneralCategory = "general"

const (
	stemFraction  = 0.7
	minStemLength = 3
)

// Classifier scores normalized text against language-partitioned keyword
// tables.
type Classifier struct {
	tables    Tables
	threshold int
}

// New builds a classifier; threshold below 1 falls back to 1 so an
// accidental zero never classifies keyword-free text.
func New(tables Tables, threshold int) *Classifier {
	if threshold < 1 {
		threshold = 1
	}
	return &Classifier{tables: tables, threshold: threshold}
}

// Classify returns the winning category key for the text, or
// GeneralCategory when nothing clears the threshold. Ties keep the
// category listed first in the tables.
func (c *Classifier) Classify(title, summary, content, language string) string {
	text := NormalizeText(title + " " + summary + " " + content)
	if text == "" {
		return GeneralCategory
	}

	best := GeneralCategory
	bestScore := 0

	for _, cat := range c.tables.Categories {
		score := c.scoreCategory(text, cat, language)
		if score > bestScore {
			best = cat.Key
			bestScore = score
		}
	}

	if bestScore < c.threshold {
		return GeneralCategory
	}
	return best
}

// ResolveEmbedded maps a feed-supplied category name onto a canonical key
// via the language-keyed synonym map. The boolean reports whether a
// mapping was found.
func (c *Classifier) ResolveEmbedded(name, language string) (string, bool) {
	normalized := NormalizeText(name)
	if normalized == "" {
		return "", false
	}

	if byLang, ok := c.tables.Synonyms[language]; ok {
		if key, ok := byLang[normalized]; ok {
			return key, true
		}
	}
	for _, byLang := range c.tables.Synonyms {
		if key, ok := byLang[normalized]; ok {
			return key, true
		}
	}

	// A supplied name that already is a canonical key passes through.
	for _, cat := range c.tables.Categories {
		if cat.Key == normalized {
			return cat.Key, true
		}
	}
	return "", false
}

func (c *Classifier) scoreCategory(text string, cat CategoryTable, language string) int {
	keywords := cat.Keywords[language]
	if len(keywords) == 0 && language != "en" {
		keywords = cat.Keywords["en"]
	}

	score := 0
	for _, kw := range keywords {
		kw = NormalizeText(kw)
		if kw == "" || !matchesScript(kw, language) {
			continue
		}
		if containsKeyword(text, kw) {
			score += keywordPoints(kw)
		}
	}
	return score
}

// containsKeyword matches the full keyword as a substring, or its prefix
// stem (first ~70% of the runes, at least 3) so inflected forms still hit.
func containsKeyword(text, keyword string) bool {
	if strings.Contains(text, keyword) {
		return true
	}

	runes := []rune(keyword)
	stemLen := int(float64(len(runes)) * stemFraction)
	if stemLen < minStemLength {
		return false
	}
	stem := string(runes[:stemLen])
	return strings.Contains(text, stem)
}

// keywordPoints weights longer keywords higher: max(1, len/4) in runes.
func keywordPoints(keyword string) int {
	points := len([]rune(keyword)) / 4
	if points < 1 {
		points = 1
	}
	return points
}

// matchesScript filters keywords to the language's writing system so a
// mixed table never scores across scripts.
func matchesScript(keyword, language string) bool {
	expected := scriptFor(language)
	if expected == nil {
		return true
	}
	for _, r := range keyword {
		if unicode.Is(expected, r) {
			return true
		}
	}
	return false
}

func scriptFor(language string) *unicode.RangeTable {
	switch language {
	case "te":
		return unicode.Telugu
	case "hi":
		return unicode.Devanagari
	case "en", "":
		return unicode.Latin
	default:
		return nil
	}
}

// NormalizeText lowercases, strips punctuation and zero-width characters,
// and collapses whitespace.
func NormalizeText(s string) string {
	s = strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\u200b' || r == '\u200c' || r == '\u200d' || r == '\ufeff':
			// zero-width characters common in Indic feed text
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}
