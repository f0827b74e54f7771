package dto

import (
	"github.com/fekuna/cafe-stock-service/internal/inventory/ledger"
	"github.com/fekuna/cafe-stock-service/internal/model"
	"github.com/shopspring/decimal"
)

type StockFilters struct {
	Archived   bool   `json:"archived"`
	CategoryID int64  `json:"category_id,omitempty"`
	Status     string `json:"status,omitempty"` // applied after status derivation
	Query      string `json:"q,omitempty"`
	// StockIDs restricts the listing to these codes. Filled from search hits.
	StockIDs []string `json:"stock_ids,omitempty"`
}

type StockDetail struct {
	Item              *model.StockItem   `json:"item"`
	RemainingQuantity decimal.Decimal    `json:"remaining_quantity"`
	InitialQuantity   decimal.Decimal    `json:"initial_quantity"`
	Status            model.StockStatus  `json:"status"`
	Batches           []model.StockBatch `json:"batches"`
}

type BatchResult struct {
	Item  *model.StockItem  `json:"item"`
	Batch *model.StockBatch `json:"batch"`
	// SupersededBatchID is the batch a restock marked as Last Stock, if any.
	SupersededBatchID int64 `json:"superseded_batch_id,omitempty"`
}

type DeductResult struct {
	StockID           string              `json:"stock_id"`
	Deducted          decimal.Decimal     `json:"deducted"`
	RemainingQuantity decimal.Decimal     `json:"remaining_quantity"`
	Status            model.StockStatus   `json:"status"`
	Allocations       []ledger.Allocation `json:"allocations"`
}

// ShortageDetails is attached to insufficient stock errors.
type ShortageDetails struct {
	StockID   string          `json:"stock_id"`
	Requested decimal.Decimal `json:"requested"`
	Available decimal.Decimal `json:"available"`
}

// StockStatusChanged is published when an operation moves an item to a new status.
type StockStatusChanged struct {
	EventID   string            `json:"event_id"`
	EventType string            `json:"event_type"`
	StockID   string            `json:"stock_id"`
	OldStatus model.StockStatus `json:"old_status"`
	NewStatus model.StockStatus `json:"new_status"`
	Remaining decimal.Decimal   `json:"remaining"`
	Threshold decimal.Decimal   `json:"threshold"`
}
