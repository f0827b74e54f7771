package handler

import (
	"net/http"
	"strconv"

	"github.com/fekuna/cafe-stock-service/internal/inventory"
	"github.com/fekuna/cafe-stock-service/internal/inventory/dto"
	"github.com/fekuna/cafe-stock-service/pkg/apperror"
	"github.com/fekuna/cafe-stock-service/pkg/logger"
	"github.com/fekuna/cafe-stock-service/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type InventoryHandler struct {
	uc     inventory.UseCase
	logger logger.ZapLogger
	// redact hides store error text from clients.
	redact bool
}

func NewInventoryHandler(uc inventory.UseCase, log logger.ZapLogger, redact bool) *InventoryHandler {
	return &InventoryHandler{
		uc:     uc,
		logger: log,
		redact: redact,
	}
}

func (h *InventoryHandler) RegisterRoutes(rg *gin.RouterGroup) {
	inv := rg.Group("/inventory")
	inv.GET("", h.ListStock)
	inv.GET("/archived", h.ListArchived)
	inv.GET("/history", h.History)
	inv.GET("/next-stock-id", h.NextStockID)
	inv.GET("/:id", h.GetStock)

	inv.POST("", h.AddBatch)
	inv.POST("/deduct-from-sale", h.DeductFromSale)
	inv.POST("/:id/restock", h.Restock)
	inv.POST("/:id/deduct", h.Deduct)

	inv.PUT("/:id/archive", h.Archive)
	inv.PUT("/:id/restore", h.Restore)

	inv.DELETE("/cleanup-empty-stocks", h.CleanupEmptyBatches)
}

type addBatchRequest struct {
	StockID        string           `json:"stock_id"`
	StockName      string           `json:"stock_name"`
	CategoryID     int64            `json:"category_id"`
	Quantity       decimal.Decimal  `json:"quantity"`
	Unit           string           `json:"unit"`
	DeliveryDate   string           `json:"delivery_date"`
	ExpirationDate string           `json:"expiration_date"`
	Threshold      *decimal.Decimal `json:"threshold"`
	Supplier       *string          `json:"supplier"`
}

type quantityRequest struct {
	Quantity decimal.Decimal `json:"quantity"`
}

type restockRequest struct {
	Quantity       decimal.Decimal `json:"quantity"`
	DeliveryDate   string          `json:"delivery_date"`
	ExpirationDate string          `json:"expiration_date"`
}

type saleRequest struct {
	SaleID string `json:"sale_id"`
	Items  []struct {
		StockID  string          `json:"stock_id"`
		Quantity decimal.Decimal `json:"quantity"`
	} `json:"items"`
}

func (h *InventoryHandler) ListStock(c *gin.Context) {
	filters := &dto.StockFilters{
		Status: c.Query("status"),
		Query:  c.Query("q"),
	}
	if raw := c.Query("category_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			h.fail(c, apperror.Validation("category_id must be a positive integer"))
			return
		}
		filters.CategoryID = id
	}

	items, err := h.uc.ListStock(c.Request.Context(), filters)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *InventoryHandler) ListArchived(c *gin.Context) {
	items, err := h.uc.ListArchived(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *InventoryHandler) History(c *gin.Context) {
	history, err := h.uc.History(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

func (h *InventoryHandler) NextStockID(c *gin.Context) {
	id, err := h.uc.NextStockID(c.Request.Context(), c.Query("name"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stock_id": id})
}

func (h *InventoryHandler) GetStock(c *gin.Context) {
	detail, err := h.uc.GetStock(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *InventoryHandler) AddBatch(c *gin.Context) {
	var req addBatchRequest
	if !h.bind(c, &req) {
		return
	}

	res, err := h.uc.AddBatch(c.Request.Context(), &dto.AddBatchInput{
		StockID:        req.StockID,
		StockName:      req.StockName,
		CategoryID:     req.CategoryID,
		Quantity:       req.Quantity,
		Unit:           req.Unit,
		DeliveryDate:   req.DeliveryDate,
		ExpirationDate: req.ExpirationDate,
		Threshold:      req.Threshold,
		Supplier:       req.Supplier,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *InventoryHandler) Deduct(c *gin.Context) {
	var req quantityRequest
	if !h.bind(c, &req) {
		return
	}

	res, err := h.uc.Deduct(c.Request.Context(), &dto.DeductInput{
		StockID:  c.Param("id"),
		Quantity: req.Quantity,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *InventoryHandler) DeductFromSale(c *gin.Context) {
	var req saleRequest
	if !h.bind(c, &req) {
		return
	}

	input := &dto.SaleDeductionInput{SaleID: req.SaleID}
	for _, it := range req.Items {
		input.Items = append(input.Items, dto.SaleItem{StockID: it.StockID, Quantity: it.Quantity})
	}

	res, err := h.uc.DeductFromSale(c.Request.Context(), input)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *InventoryHandler) Restock(c *gin.Context) {
	var req restockRequest
	if !h.bind(c, &req) {
		return
	}

	res, err := h.uc.Restock(c.Request.Context(), &dto.RestockInput{
		StockID:        c.Param("id"),
		Quantity:       req.Quantity,
		DeliveryDate:   req.DeliveryDate,
		ExpirationDate: req.ExpirationDate,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *InventoryHandler) Archive(c *gin.Context) {
	item, err := h.uc.Archive(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *InventoryHandler) Restore(c *gin.Context) {
	item, err := h.uc.Restore(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *InventoryHandler) CleanupEmptyBatches(c *gin.Context) {
	n, err := h.uc.CleanupEmptyBatches(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}

func (h *InventoryHandler) bind(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.fail(c, apperror.Validation("invalid request body: %v", err))
		return false
	}
	return true
}

func (h *InventoryHandler) fail(c *gin.Context, err error) {
	response.Error(c, h.logger, h.redact, err)
}
