package inventory

import (
	"context"
	"time"

	"github.com/fekuna/cafe-stock-service/internal/inventory/dto"
	"github.com/fekuna/cafe-stock-service/internal/model"
	"github.com/fekuna/cafe-stock-service/pkg/search"
)

type UseCase interface {
	ListStock(ctx context.Context, filters *dto.StockFilters) ([]model.StockSummary, error)
	ListArchived(ctx context.Context) ([]model.StockSummary, error)
	GetStock(ctx context.Context, stockID string) (*dto.StockDetail, error)
	History(ctx context.Context) ([]model.BatchHistory, error)
	NextStockID(ctx context.Context, name string) (string, error)

	AddBatch(ctx context.Context, input *dto.AddBatchInput) (*dto.BatchResult, error)
	Deduct(ctx context.Context, input *dto.DeductInput) (*dto.DeductResult, error)
	DeductFromSale(ctx context.Context, input *dto.SaleDeductionInput) ([]dto.DeductResult, error)
	Restock(ctx context.Context, input *dto.RestockInput) (*dto.BatchResult, error)
	Archive(ctx context.Context, stockID string) (*model.StockItem, error)
	Restore(ctx context.Context, stockID string) (*model.StockItem, error)
	CleanupEmptyBatches(ctx context.Context) (int64, error)
}

// Cache backs the per-item lock and the list cache. *cache.RedisClient implements it.
type Cache interface {
	AcquireLock(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, value string) error
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
	Counter(ctx context.Context, key string) (int64, error)
	Incr(ctx context.Context, key string) (int64, error)
}

// SearchIndex is implemented by *search.Client.
type SearchIndex interface {
	CreateIndex(ctx context.Context, index, mapping string) error
	Index(ctx context.Context, index, id string, doc interface{}) error
	Search(ctx context.Context, index string, query map[string]interface{}) (*search.SearchResponse, error)
}

// EventPublisher is implemented by *broker.KafkaProducer.
type EventPublisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
}
