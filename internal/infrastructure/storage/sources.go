package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"NewsIngest/internal/domain"
	"NewsIngest/internal/ports"
)

// SourceRepository reads and updates configured feed sources.
type SourceRepository struct {
	db *sql.DB
}

var _ ports.SourceRepository = (*SourceRepository)(nil)

// NewSourceRepository wires a sql.DB implementation.
func NewSourceRepository(db *sql.DB) *SourceRepository {
	return &SourceRepository{db: db}
}

var sourceColumns = []string{
	"id", "name", "base_url", "feed_urls", "type", "language",
	"category_ids", "api_key", "active", "last_scraped",
}

// Active returns every source with the active flag set.
func (r *SourceRepository) Active(ctx context.Context) ([]domain.Source, error) {
	query, args, err := builder.
		Select(sourceColumns...).
		From("sources").
		Where("active").
		OrderBy("name").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build active sources query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query active sources: %w", err)
	}
	defer rows.Close()

	var sources []domain.Source
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sources: %w", err)
	}
	return sources, nil
}

// ByID loads one source or domain.ErrSourceNotFound.
func (r *SourceRepository) ByID(ctx context.Context, id string) (domain.Source, error) {
	query, args, err := builder.
		Select(sourceColumns...).
		From("sources").
		Where("id = ?", id).
		ToSql()
	if err != nil {
		return domain.Source{}, fmt.Errorf("build source query: %w", err)
	}

	row := r.db.QueryRowContext(ctx, query, args...)
	src, err := scanSource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Source{}, domain.ErrSourceNotFound
	}
	return src, err
}

// TouchLastScraped records a successful per-source pass.
func (r *SourceRepository) TouchLastScraped(ctx context.Context, id string, at time.Time) error {
	query, args, err := builder.
		Update("sources").
		Set("last_scraped", at).
		Where("id = ?", id).
		ToSql()
	if err != nil {
		return fmt.Errorf("build touch query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("touch last_scraped: %w", err)
	}
	return nil
}

// Upsert seeds or updates a source record by id.
func (r *SourceRepository) Upsert(ctx context.Context, src domain.Source) error {
	const query = `
		INSERT INTO sources (id, name, base_url, feed_urls, type, language, category_ids, api_key, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			base_url = EXCLUDED.base_url,
			feed_urls = EXCLUDED.feed_urls,
			type = EXCLUDED.type,
			language = EXCLUDED.language,
			category_ids = EXCLUDED.category_ids,
			api_key = EXCLUDED.api_key,
			active = EXCLUDED.active`

	_, err := r.db.ExecContext(ctx, query,
		src.ID, src.Name, src.BaseURL, pq.StringArray(src.FeedURLs), src.Type,
		src.Language, pq.StringArray(src.CategoryIDs), src.APIKey, src.Active,
	)
	if err != nil {
		return fmt.Errorf("upsert source: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSource(row rowScanner) (domain.Source, error) {
	var (
		src         domain.Source
		feedURLs    pq.StringArray
		categoryIDs pq.StringArray
		lastScraped sql.NullTime
	)

	err := row.Scan(
		&src.ID, &src.Name, &src.BaseURL, &feedURLs, &src.Type, &src.Language,
		&categoryIDs, &src.APIKey, &src.Active, &lastScraped,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Source{}, err
		}
		return domain.Source{}, fmt.Errorf("scan source: %w", err)
	}

	src.FeedURLs = feedURLs
	src.CategoryIDs = categoryIDs
	if lastScraped.Valid {
		src.LastScraped = lastScraped.Time
	}
	return src, nil
}
