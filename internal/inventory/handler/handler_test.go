package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fekuna/cafe-stock-service/internal/inventory/dto"
	"github.com/fekuna/cafe-stock-service/internal/inventory/handler"
	"github.com/fekuna/cafe-stock-service/internal/model"
	"github.com/fekuna/cafe-stock-service/pkg/apperror"
	"github.com/fekuna/cafe-stock-service/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// fakeUseCase records the last input it saw and returns err when set.
type fakeUseCase struct {
	err error

	filters *dto.StockFilters
	added   *dto.AddBatchInput
	deduct  *dto.DeductInput
	sale    *dto.SaleDeductionInput
	restock *dto.RestockInput
	stockID string
}

func (f *fakeUseCase) ListStock(ctx context.Context, filters *dto.StockFilters) ([]model.StockSummary, error) {
	f.filters = filters
	return []model.StockSummary{{StockID: "SUG-001"}}, f.err
}

func (f *fakeUseCase) ListArchived(ctx context.Context) ([]model.StockSummary, error) {
	return []model.StockSummary{}, f.err
}

func (f *fakeUseCase) GetStock(ctx context.Context, stockID string) (*dto.StockDetail, error) {
	f.stockID = stockID
	if f.err != nil {
		return nil, f.err
	}
	return &dto.StockDetail{Item: &model.StockItem{StockID: stockID}}, nil
}

func (f *fakeUseCase) History(ctx context.Context) ([]model.BatchHistory, error) {
	return []model.BatchHistory{}, f.err
}

func (f *fakeUseCase) NextStockID(ctx context.Context, name string) (string, error) {
	return "SUG-002", f.err
}

func (f *fakeUseCase) AddBatch(ctx context.Context, input *dto.AddBatchInput) (*dto.BatchResult, error) {
	f.added = input
	if f.err != nil {
		return nil, f.err
	}
	return &dto.BatchResult{Item: &model.StockItem{StockID: input.StockID}, Batch: &model.StockBatch{ID: 1}}, nil
}

func (f *fakeUseCase) Deduct(ctx context.Context, input *dto.DeductInput) (*dto.DeductResult, error) {
	f.deduct = input
	if f.err != nil {
		return nil, f.err
	}
	return &dto.DeductResult{StockID: input.StockID}, nil
}

func (f *fakeUseCase) DeductFromSale(ctx context.Context, input *dto.SaleDeductionInput) ([]dto.DeductResult, error) {
	f.sale = input
	return nil, f.err
}

func (f *fakeUseCase) Restock(ctx context.Context, input *dto.RestockInput) (*dto.BatchResult, error) {
	f.restock = input
	if f.err != nil {
		return nil, f.err
	}
	return &dto.BatchResult{}, nil
}

func (f *fakeUseCase) Archive(ctx context.Context, stockID string) (*model.StockItem, error) {
	f.stockID = stockID
	if f.err != nil {
		return nil, f.err
	}
	return &model.StockItem{StockID: stockID, Archived: true}, nil
}

func (f *fakeUseCase) Restore(ctx context.Context, stockID string) (*model.StockItem, error) {
	f.stockID = stockID
	if f.err != nil {
		return nil, f.err
	}
	return &model.StockItem{StockID: stockID}, nil
}

func (f *fakeUseCase) CleanupEmptyBatches(ctx context.Context) (int64, error) {
	return 3, f.err
}

func newRouter(uc *fakeUseCase, redact bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler.NewInventoryHandler(uc, logger.NewNop(), redact).RegisterRoutes(r.Group("/api"))
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body %q: %v", w.Body.String(), err)
	}
	return body
}

func TestRoutes_SuccessStatus(t *testing.T) {
	tests := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{http.MethodGet, "/api/inventory", "", http.StatusOK},
		{http.MethodGet, "/api/inventory/archived", "", http.StatusOK},
		{http.MethodGet, "/api/inventory/history", "", http.StatusOK},
		{http.MethodGet, "/api/inventory/next-stock-id?name=sugar", "", http.StatusOK},
		{http.MethodGet, "/api/inventory/SUG-001", "", http.StatusOK},
		{http.MethodPost, "/api/inventory", `{"stock_id":"SUG-001","quantity":5}`, http.StatusCreated},
		{http.MethodPost, "/api/inventory/SUG-001/restock", `{"quantity":"20","delivery_date":"2025-01-01"}`, http.StatusCreated},
		{http.MethodPost, "/api/inventory/SUG-001/deduct", `{"quantity":2}`, http.StatusOK},
		{http.MethodPost, "/api/inventory/deduct-from-sale", `{"items":[{"stock_id":"SUG-001","quantity":1}]}`, http.StatusOK},
		{http.MethodPut, "/api/inventory/SUG-001/archive", "", http.StatusOK},
		{http.MethodPut, "/api/inventory/SUG-001/restore", "", http.StatusOK},
		{http.MethodDelete, "/api/inventory/cleanup-empty-stocks", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := do(newRouter(&fakeUseCase{}, false), tt.method, tt.path, tt.body)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestRoutes_PassInputs(t *testing.T) {
	uc := &fakeUseCase{}
	r := newRouter(uc, false)

	do(r, http.MethodPost, "/api/inventory/FLO-003/deduct", `{"quantity":"2.5"}`)
	if uc.deduct == nil || uc.deduct.StockID != "FLO-003" || !uc.deduct.Quantity.Equal(decimal.RequireFromString("2.5")) {
		t.Errorf("deduct input = %+v", uc.deduct)
	}

	do(r, http.MethodPost, "/api/inventory", `{"stock_id":"MIL-001","stock_name":"Milk","category_id":2,"quantity":3,"unit":"liters","delivery_date":"2025-01-01","threshold":1}`)
	if uc.added == nil || uc.added.CategoryID != 2 || uc.added.Threshold == nil || uc.added.Supplier != nil {
		t.Errorf("add input = %+v", uc.added)
	}

	do(r, http.MethodGet, "/api/inventory?category_id=4&status=Restock&q=milk", "")
	if uc.filters == nil || uc.filters.CategoryID != 4 || uc.filters.Status != "Restock" || uc.filters.Query != "milk" {
		t.Errorf("filters = %+v", uc.filters)
	}

	do(r, http.MethodPost, "/api/inventory/deduct-from-sale", `{"sale_id":"S-9","items":[{"stock_id":"A","quantity":1},{"stock_id":"B","quantity":2}]}`)
	if uc.sale == nil || uc.sale.SaleID != "S-9" || len(uc.sale.Items) != 2 {
		t.Errorf("sale input = %+v", uc.sale)
	}
}

func TestErrors_MapToStatus(t *testing.T) {
	shortage := dto.ShortageDetails{StockID: "SUG-001", Requested: decimal.NewFromInt(100), Available: decimal.NewFromInt(10)}
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", apperror.Validation("quantity must be greater than zero"), http.StatusBadRequest},
		{"not found", apperror.NotFound("stock SUG-001 not found"), http.StatusNotFound},
		{"insufficient", apperror.InsufficientStock(shortage, "insufficient stock"), http.StatusConflict},
		{"conflict", apperror.Conflict("stock is being updated"), http.StatusConflict},
		{"database", apperror.Database(errors.New("connection refused"), "failed to list stock"), http.StatusInternalServerError},
		{"untyped", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(newRouter(&fakeUseCase{err: tt.err}, false), http.MethodPost, "/api/inventory/SUG-001/deduct", `{"quantity":1}`)
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d", w.Code, tt.want)
			}
			if body := decodeBody(t, w); body["error"] == "" {
				t.Error("expected an error message")
			}
		})
	}
}

func TestErrors_InsufficientStockDetails(t *testing.T) {
	shortage := dto.ShortageDetails{StockID: "SUG-001", Requested: decimal.NewFromInt(100), Available: decimal.NewFromInt(10)}
	uc := &fakeUseCase{err: apperror.InsufficientStock(shortage, "insufficient stock for SUG-001")}

	w := do(newRouter(uc, false), http.MethodPost, "/api/inventory/SUG-001/deduct", `{"quantity":100}`)
	body := decodeBody(t, w)
	details, ok := body["details"].(map[string]interface{})
	if !ok {
		t.Fatalf("details missing: %s", w.Body.String())
	}
	for _, key := range []string{"stock_id", "requested", "available"} {
		if _, ok := details[key]; !ok {
			t.Errorf("details missing %q", key)
		}
	}
}

func TestErrors_RedactDatabaseMessage(t *testing.T) {
	uc := &fakeUseCase{err: apperror.Database(errors.New("pq: password authentication failed"), "failed to list stock")}

	w := do(newRouter(uc, true), http.MethodGet, "/api/inventory", "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if got := decodeBody(t, w)["error"]; got != "internal server error" {
		t.Errorf("error = %v, want redacted message", got)
	}
}

func TestBadRequests(t *testing.T) {
	r := newRouter(&fakeUseCase{}, false)

	if w := do(r, http.MethodPost, "/api/inventory/SUG-001/deduct", `{"quantity":`); w.Code != http.StatusBadRequest {
		t.Errorf("malformed body status = %d, want 400", w.Code)
	}
	if w := do(r, http.MethodPost, "/api/inventory/SUG-001/deduct", `{"quantity":"lots"}`); w.Code != http.StatusBadRequest {
		t.Errorf("non-numeric quantity status = %d, want 400", w.Code)
	}
	if w := do(r, http.MethodGet, "/api/inventory?category_id=abc", ""); w.Code != http.StatusBadRequest {
		t.Errorf("bad category status = %d, want 400", w.Code)
	}
}
