package usecase

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/fekuna/cafe-stock-service/internal/category"
	"github.com/fekuna/cafe-stock-service/internal/category/dto"
	"github.com/fekuna/cafe-stock-service/internal/model"
	"github.com/fekuna/cafe-stock-service/pkg/apperror"
	"github.com/fekuna/cafe-stock-service/pkg/logger"
	"go.uber.org/zap"
)

const maxNameLength = 100

type categoryUseCase struct {
	repo   category.Repository
	logger logger.ZapLogger
}

func NewCategoryUseCase(repo category.Repository, log logger.ZapLogger) category.UseCase {
	return &categoryUseCase{
		repo:   repo,
		logger: log,
	}
}

func (uc *categoryUseCase) CreateCategory(ctx context.Context, input *dto.CreateCategoryInput) (*model.Category, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperror.Validation("name is required")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return nil, apperror.Validation("name must be at most %d characters", maxNameLength)
	}

	cat := &model.Category{Name: name}
	if err := uc.repo.Create(ctx, cat); err != nil {
		return nil, err
	}

	uc.logger.Info("category created", zap.Int64("id", cat.ID), zap.String("name", cat.Name))
	return cat, nil
}

func (uc *categoryUseCase) GetCategory(ctx context.Context, id int64) (*model.Category, error) {
	if id <= 0 {
		return nil, apperror.Validation("id must be a positive integer")
	}
	cat, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cat == nil {
		return nil, apperror.NotFound("category %d not found", id)
	}
	return cat, nil
}

func (uc *categoryUseCase) ListCategories(ctx context.Context, filters *dto.CategoryFilters) ([]model.Category, error) {
	if filters == nil {
		filters = &dto.CategoryFilters{}
	}
	filters.Name = strings.TrimSpace(filters.Name)
	return uc.repo.FindAll(ctx, filters)
}
