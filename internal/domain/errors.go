package domain

import "errors"

var (
	// ErrArticleNotFound fails moderation/publishing jobs whose article
	// does not exist.
	ErrArticleNotFound = errors.New("article not found")

	// ErrArticleRejected blocks publishing of a rejected article.
	ErrArticleRejected = errors.New("article is rejected")

	// ErrDuplicateArticle reports a hash collision with an existing
	// article. Not a failure: the item is silently dropped.
	ErrDuplicateArticle = errors.New("duplicate article")

	// ErrSourceNotFound reports a scrape request for an unknown source.
	ErrSourceNotFound = errors.New("source not found")
)
