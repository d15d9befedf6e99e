package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"NewsIngest/internal/domain"
	"NewsIngest/internal/ports"
)

// ArticleRepository persists normalized articles.
type ArticleRepository struct {
	db *sql.DB
}

var _ ports.ArticleRepository = (*ArticleRepository)(nil)

// NewArticleRepository wires a sql.DB implementation.
func NewArticleRepository(db *sql.DB) *ArticleRepository {
	return &ArticleRepository{db: db}
}

// Insert stores a new article. The unique index on hash closes the
// check-then-insert race: a concurrent duplicate surfaces as
// domain.ErrDuplicateArticle instead of a second row.
func (r *ArticleRepository) Insert(ctx context.Context, a domain.Article) (string, error) {
	id := a.ID
	if id == "" {
		id = uuid.NewString()
	}

	factCheck, err := jsonOrNull(a.FactCheck)
	if err != nil {
		return "", err
	}
	socialMedia, err := jsonOrNull(a.SocialMedia)
	if err != nil {
		return "", err
	}
	translations, err := jsonOrNull(a.Translations)
	if err != nil {
		return "", err
	}

	query, args, err := builder.
		Insert("articles").
		Columns(
			"id", "title", "slug", "summary", "content", "images",
			"category_id", "category_ids", "detected_category", "tags",
			"author", "language", "source_id", "source_name", "source_url",
			"status", "published_at", "scraped_at", "canonical_url",
			"thumbnail", "word_count", "reading_time", "language_confidence",
			"hash", "fact_check", "social_media", "translations",
		).
		Values(
			id, a.Title, a.Slug, a.Summary, a.Content, pq.StringArray(a.Images),
			a.CategoryID, pq.StringArray(a.CategoryIDs), a.DetectedCategory, pq.StringArray(a.Tags),
			a.Author, a.Language, a.Source.SourceID, a.Source.Name, a.Source.URL,
			a.Status, nullTime(a.PublishedAt), a.ScrapedAt, a.CanonicalURL,
			a.Thumbnail, a.WordCount, a.ReadingTime, a.LangConfidence,
			a.Hash, factCheck, socialMedia, translations,
		).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("build article insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return "", domain.ErrDuplicateArticle
		}
		return "", fmt.Errorf("insert article: %w", err)
	}
	return id, nil
}

// ByID loads one article or domain.ErrArticleNotFound.
func (r *ArticleRepository) ByID(ctx context.Context, id string) (domain.Article, error) {
	return r.one(ctx, sq.Eq{"id": id})
}

// ExistsByHash is the fast-path dedup lookup before normalization work.
func (r *ArticleRepository) ExistsByHash(ctx context.Context, hash string) (bool, error) {
	query, args, err := builder.
		Select("1").
		From("articles").
		Where("hash = ?", hash).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build hash lookup: %w", err)
	}

	var one int
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup hash: %w", err)
	}
	return true, nil
}

// CountByDetectedCategory counts articles supporting a detected category
// key for a language, feeding the dynamic-category promotion threshold.
func (r *ArticleRepository) CountByDetectedCategory(ctx context.Context, key, language string) (int, error) {
	query, args, err := builder.
		Select("COUNT(*)").
		From("articles").
		Where(sq.Eq{"detected_category": key, "language": language}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build detected count: %w", err)
	}

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count detected category: %w", err)
	}
	return count, nil
}

// SetStatus updates the lifecycle status; publishedAt is written only
// when non-zero.
func (r *ArticleRepository) SetStatus(ctx context.Context, id string, status domain.ArticleStatus, publishedAt time.Time) error {
	update := builder.Update("articles").Set("status", status).Where("id = ?", id)
	if !publishedAt.IsZero() {
		update = update.Set("published_at", publishedAt)
	}

	query, args, err := update.ToSql()
	if err != nil {
		return fmt.Errorf("build status update: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update article status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("status update result: %w", err)
	}
	if affected == 0 {
		return domain.ErrArticleNotFound
	}
	return nil
}

// Published is the outbound read model: published articles filtered by
// category and language, newest first.
func (r *ArticleRepository) Published(ctx context.Context, categoryID, language string, limit int) ([]domain.Article, error) {
	sel := builder.
		Select(articleColumns...).
		From("articles").
		Where(sq.Eq{"status": domain.StatusPublished}).
		OrderBy("published_at DESC")
	if categoryID != "" {
		sel = sel.Where(sq.Eq{"category_id": categoryID})
	}
	if language != "" {
		sel = sel.Where(sq.Eq{"language": language})
	}
	if limit > 0 {
		sel = sel.Limit(uint64(limit))
	}

	query, args, err := sel.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build published query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query published: %w", err)
	}
	defer rows.Close()

	var articles []domain.Article
	for rows.Next() {
		art, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, art)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate published: %w", err)
	}
	return articles, nil
}

var articleColumns = []string{
	"id", "title", "slug", "summary", "content", "images",
	"category_id", "category_ids", "detected_category", "tags",
	"author", "language", "source_id", "source_name", "source_url",
	"status", "published_at", "scraped_at", "canonical_url",
	"thumbnail", "word_count", "reading_time", "language_confidence", "hash",
}

func (r *ArticleRepository) one(ctx context.Context, pred any) (domain.Article, error) {
	query, args, err := builder.
		Select(articleColumns...).
		From("articles").
		Where(pred).
		Limit(1).
		ToSql()
	if err != nil {
		return domain.Article{}, fmt.Errorf("build article query: %w", err)
	}

	art, err := scanArticle(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Article{}, domain.ErrArticleNotFound
	}
	return art, err
}

func scanArticle(row rowScanner) (domain.Article, error) {
	var (
		a           domain.Article
		images      pq.StringArray
		categoryIDs pq.StringArray
		tags        pq.StringArray
		publishedAt sql.NullTime
	)

	err := row.Scan(
		&a.ID, &a.Title, &a.Slug, &a.Summary, &a.Content, &images,
		&a.CategoryID, &categoryIDs, &a.DetectedCategory, &tags,
		&a.Author, &a.Language, &a.Source.SourceID, &a.Source.Name, &a.Source.URL,
		&a.Status, &publishedAt, &a.ScrapedAt, &a.CanonicalURL,
		&a.Thumbnail, &a.WordCount, &a.ReadingTime, &a.LangConfidence, &a.Hash,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Article{}, err
		}
		return domain.Article{}, fmt.Errorf("scan article: %w", err)
	}

	a.Images = images
	a.CategoryIDs = categoryIDs
	a.Tags = tags
	if publishedAt.Valid {
		a.PublishedAt = publishedAt.Time
	}
	return a, nil
}

func jsonOrNull(m map[string]any) (any, error) {
	if len(m) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode json column: %w", err)
	}
	return raw, nil
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
