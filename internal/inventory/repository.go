package inventory

import (
	"context"

	"github.com/fekuna/cafe-stock-service/internal/inventory/dto"
	"github.com/fekuna/cafe-stock-service/internal/model"
	"github.com/shopspring/decimal"
)

type Repository interface {
	// Transaction support. fn receives a handle bound to one transaction; returning
	// an error rolls everything back.
	WithTx(ctx context.Context, fn func(tx TxRepository) error) error

	// Reads
	ListSummaries(ctx context.Context, filters *dto.StockFilters) ([]model.StockSummary, error)
	GetByStockID(ctx context.Context, stockID string) (*model.StockItem, error)
	ListBatches(ctx context.Context, inventoryID int64) ([]model.StockBatch, error)
	ListHistory(ctx context.Context) ([]model.BatchHistory, error)
	ListStockIDs(ctx context.Context) ([]string, error)

	// Standalone writes
	SetArchived(ctx context.Context, stockID string, archived bool) (*model.StockItem, error)
	DeleteEmptyBatches(ctx context.Context) (int64, error)
}

// TxRepository is the set of statements a ledger operation runs inside its transaction.
type TxRepository interface {
	// LockItem returns the catalog row for stockID locked for update, or nil when absent.
	LockItem(ctx context.Context, stockID string) (*model.StockItem, error)
	// UpsertItem returns the row id and fills item's timestamps from the stored row.
	UpsertItem(ctx context.Context, item *model.StockItem) (int64, error)
	UpdateItemStatus(ctx context.Context, inventoryID int64, status model.StockStatus) error

	// LockOpenBatches returns the batches still eligible for deduction, oldest first.
	LockOpenBatches(ctx context.Context, inventoryID int64) ([]model.StockBatch, error)
	InsertBatch(ctx context.Context, batch *model.StockBatch) (int64, error)
	UpdateBatchRemaining(ctx context.Context, batchID int64, remaining decimal.Decimal, status model.StockStatus) error
	// MarkOldestOpenBatch sets status on the oldest open batch and returns its id, 0 when none is open.
	MarkOldestOpenBatch(ctx context.Context, inventoryID int64, status model.StockStatus) (int64, error)
	SumRemaining(ctx context.Context, inventoryID int64) (decimal.Decimal, error)
}
