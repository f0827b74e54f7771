package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/fekuna/cafe-stock-service/internal/category/dto"
	"github.com/fekuna/cafe-stock-service/internal/model"
	"github.com/fekuna/cafe-stock-service/pkg/apperror"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Create(ctx context.Context, c *model.Category) error {
	query := `INSERT INTO categories (name) VALUES (:name) RETURNING id`
	rows, err := r.DB.NamedQueryContext(ctx, query, c)
	if err != nil {
		return apperror.Database(err, "failed to create category")
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&c.ID); err != nil {
			return apperror.Database(err, "failed to read category id")
		}
	}
	return nil
}

func (r *PGRepository) FindByID(ctx context.Context, id int64) (*model.Category, error) {
	var category model.Category
	query := `SELECT * FROM categories WHERE id = $1 LIMIT 1`
	err := r.DB.GetContext(ctx, &category, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, apperror.Database(err, "failed to load category")
	}
	return &category, nil
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.CategoryFilters) ([]model.Category, error) {
	categories := []model.Category{}
	query := "SELECT * FROM categories"
	args := []interface{}{}

	if f != nil && f.Name != "" {
		query += " WHERE name ILIKE $1"
		args = append(args, "%"+f.Name+"%")
	}
	query += " ORDER BY name ASC"

	if err := r.DB.SelectContext(ctx, &categories, query, args...); err != nil {
		return nil, apperror.Database(err, "failed to list categories")
	}
	return categories, nil
}
