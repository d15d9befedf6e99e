package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"NewsIngest/internal/domain"
	"NewsIngest/internal/ports"
)

// CategoryRepository persists seeded and dynamically promoted categories.
type CategoryRepository struct {
	db *sql.DB
}

var _ ports.CategoryRepository = (*CategoryRepository)(nil)

// NewCategoryRepository wires a sql.DB implementation.
func NewCategoryRepository(db *sql.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

var categoryColumns = []string{
	"id", "key", "label", "icon", "color", "parent_id", `"order"`,
	"active", "language", "is_dynamic",
}

// ByKey finds a category scoped to the language, falling back to a
// language-agnostic row with the same key.
func (r *CategoryRepository) ByKey(ctx context.Context, key, language string) (domain.Category, bool, error) {
	query, args, err := builder.
		Select(categoryColumns...).
		From("categories").
		Where(sq.And{
			sq.Eq{"key": key},
			sq.Or{sq.Eq{"language": language}, sq.Eq{"language": ""}},
		}).
		OrderBy("language DESC"). // language-scoped row wins over agnostic
		Limit(1).
		ToSql()
	if err != nil {
		return domain.Category{}, false, fmt.Errorf("build category query: %w", err)
	}

	var cat domain.Category
	err = r.db.QueryRowContext(ctx, query, args...).Scan(
		&cat.ID, &cat.Key, &cat.Label, &cat.Icon, &cat.Color, &cat.ParentID,
		&cat.Order, &cat.Active, &cat.Language, &cat.Dynamic,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Category{}, false, nil
	}
	if err != nil {
		return domain.Category{}, false, fmt.Errorf("scan category: %w", err)
	}
	return cat, true, nil
}

// Create inserts a category and returns its id. A concurrent promotion
// of the same key resolves to the existing row.
func (r *CategoryRepository) Create(ctx context.Context, cat domain.Category) (string, error) {
	id := cat.ID
	if id == "" {
		id = uuid.NewString()
	}

	query, args, err := builder.
		Insert("categories").
		Columns(categoryColumns...).
		Values(id, cat.Key, cat.Label, cat.Icon, cat.Color, cat.ParentID,
			cat.Order, cat.Active, cat.Language, cat.Dynamic).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("build category insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			existing, ok, lookupErr := r.ByKey(ctx, cat.Key, cat.Language)
			if lookupErr != nil {
				return "", lookupErr
			}
			if ok {
				return existing.ID, nil
			}
		}
		return "", fmt.Errorf("insert category: %w", err)
	}
	return id, nil
}
