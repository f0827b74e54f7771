package handler

import (
	"net/http"
	"strconv"

	"github.com/fekuna/cafe-stock-service/internal/category"
	"github.com/fekuna/cafe-stock-service/internal/category/dto"
	"github.com/fekuna/cafe-stock-service/pkg/apperror"
	"github.com/fekuna/cafe-stock-service/pkg/logger"
	"github.com/fekuna/cafe-stock-service/pkg/response"
	"github.com/gin-gonic/gin"
)

type CategoryHandler struct {
	uc     category.UseCase
	logger logger.ZapLogger
	redact bool
}

func NewCategoryHandler(uc category.UseCase, log logger.ZapLogger, redact bool) *CategoryHandler {
	return &CategoryHandler{
		uc:     uc,
		logger: log,
		redact: redact,
	}
}

func (h *CategoryHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/categories", h.ListCategories)
	rg.GET("/categories/:id", h.GetCategory)
	rg.POST("/categories", h.CreateCategory)
}

type createCategoryRequest struct {
	Name string `json:"name"`
}

func (h *CategoryHandler) ListCategories(c *gin.Context) {
	cats, err := h.uc.ListCategories(c.Request.Context(), &dto.CategoryFilters{Name: c.Query("name")})
	if err != nil {
		response.Error(c, h.logger, h.redact, err)
		return
	}
	c.JSON(http.StatusOK, cats)
}

func (h *CategoryHandler) GetCategory(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, h.logger, h.redact, apperror.Validation("id must be a positive integer"))
		return
	}

	cat, err := h.uc.GetCategory(c.Request.Context(), id)
	if err != nil {
		response.Error(c, h.logger, h.redact, err)
		return
	}
	c.JSON(http.StatusOK, cat)
}

func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	var req createCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, h.logger, h.redact, apperror.Validation("invalid request body: %v", err))
		return
	}

	cat, err := h.uc.CreateCategory(c.Request.Context(), &dto.CreateCategoryInput{Name: req.Name})
	if err != nil {
		response.Error(c, h.logger, h.redact, err)
		return
	}
	c.JSON(http.StatusCreated, cat)
}
