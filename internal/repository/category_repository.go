package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"log/slog"

	"campus-market/internal/domain"
	"campus-market/internal/errors"
)

type categoryRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewCategoryRepository(db SQLExecutor, logger *slog.Logger) domain.CategoryRepository {
	return &categoryRepository{
		db:     db,
		logger: logger,
	}
}

func (r *categoryRepository) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, description, created_at FROM categories ORDER BY id`)
	if err != nil {
		r.logger.Error("Failed to list categories", "error", err)
		return nil, errors.Internal("failed to list categories", err)
	}
	defer rows.Close()

	categories := []domain.Category{}
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt); err != nil {
			return nil, errors.Internal("failed to scan category", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Internal("failed to list categories", err)
	}

	return categories, nil
}

func (r *categoryRepository) GetCategory(ctx context.Context, id int64) (*domain.Category, error) {
	var c domain.Category

	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, description, created_at FROM categories WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.ErrCategoryNotFound
		}
		r.logger.Error("Failed to get category", "category_id", id, "error", err)
		return nil, errors.Internal("failed to get category", err)
	}

	return &c, nil
}
