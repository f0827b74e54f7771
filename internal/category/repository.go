package category

import (
	"context"

	"github.com/fekuna/cafe-stock-service/internal/category/dto"
	"github.com/fekuna/cafe-stock-service/internal/model"
)

type Repository interface {
	Create(ctx context.Context, category *model.Category) error
	FindByID(ctx context.Context, id int64) (*model.Category, error)
	FindAll(ctx context.Context, filters *dto.CategoryFilters) ([]model.Category, error)
}
