package usecase

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/fekuna/cafe-stock-service/internal/inventory"
	"github.com/fekuna/cafe-stock-service/internal/inventory/dto"
	"github.com/fekuna/cafe-stock-service/internal/inventory/ledger"
	"github.com/fekuna/cafe-stock-service/internal/model"
	"github.com/fekuna/cafe-stock-service/pkg/apperror"
	"github.com/fekuna/cafe-stock-service/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	dateLayout = "2006-01-02"

	lockKeyPrefix  = "lock:inventory:"
	lockTTL        = 5 * time.Second
	lockAttempts   = 3
	lockRetryDelay = 100 * time.Millisecond

	listCachePrefix = "inventory:list:"
	// listGenKey is bumped on every write; cached listings are keyed by it.
	listGenKey = "inventory:list-gen"

	stockIndex     = "stock_items"
	searchPageSize = 500
	// searchMaxResults is the default index.max_result_window.
	searchMaxResults = 10000
)

const stockIndexMapping = `{
	"mappings": {
		"properties": {
			"stock_id": { "type": "keyword" },
			"stock_name": { "type": "text" },
			"category_id": { "type": "long" },
			"supplier": { "type": "text" },
			"unit": { "type": "keyword" },
			"archived": { "type": "boolean" }
		}
	}
}`

var stockSuffix = regexp.MustCompile(`-(\d+)$`)

type inventoryUseCase struct {
	repo    inventory.Repository
	cache   inventory.Cache
	search  inventory.SearchIndex
	events  inventory.EventPublisher
	logger  logger.ZapLogger
	listTTL time.Duration

	indexMu    sync.Mutex
	indexReady bool
}

// NewInventoryUseCase wires the ledger operations. cache, search and events are optional.
func NewInventoryUseCase(
	repo inventory.Repository,
	cache inventory.Cache,
	search inventory.SearchIndex,
	events inventory.EventPublisher,
	log logger.ZapLogger,
	listTTL time.Duration,
) inventory.UseCase {
	return &inventoryUseCase{
		repo:    repo,
		cache:   cache,
		search:  search,
		events:  events,
		logger:  log,
		listTTL: listTTL,
	}
}

type statusChange struct {
	item      model.StockItem
	old       model.StockStatus
	remaining decimal.Decimal
}

// ---- Reads ----

func (uc *inventoryUseCase) ListStock(ctx context.Context, filters *dto.StockFilters) ([]model.StockSummary, error) {
	f := dto.StockFilters{}
	if filters != nil {
		f = *filters
	}
	f.Query = strings.TrimSpace(f.Query)
	if f.Status != "" && !isItemStatus(model.StockStatus(f.Status)) {
		return nil, apperror.Validation("unknown status %q", f.Status)
	}

	cacheKey := uc.listCacheKey(ctx, &f)
	if cacheKey != "" {
		var cached []model.StockSummary
		hit, err := uc.cache.GetJSON(ctx, cacheKey, &cached)
		if err != nil {
			uc.logger.Warn("failed to read stock list cache", zap.Error(err))
		} else if hit {
			return cached, nil
		}
	}

	if f.Query != "" && len(f.StockIDs) == 0 && uc.search != nil {
		uc.ensureIndex(ctx)
		ids, err := uc.searchStockIDs(ctx, f.Query)
		switch {
		case err != nil:
			uc.logger.Error("stock search failed, falling back to database", zap.Error(err))
		case len(ids) == 0:
			// The index may be missing rows written while it was unreachable.
			uc.logger.Debug("no search hits, falling back to database", zap.String("query", f.Query))
		default:
			f.StockIDs = ids
		}
	}

	items, err := uc.repo.ListSummaries(ctx, &f)
	if err != nil {
		return nil, err
	}

	out := make([]model.StockSummary, 0, len(items))
	for _, it := range items {
		it.Status = ledger.DeriveStatus(it.RemainingQuantity, it.Threshold)
		if f.Status != "" && string(it.Status) != f.Status {
			continue
		}
		out = append(out, it)
	}

	if cacheKey != "" {
		if err := uc.cache.SetJSON(ctx, cacheKey, out, uc.listTTL); err != nil {
			uc.logger.Warn("failed to write stock list cache", zap.Error(err))
		}
	}
	return out, nil
}

func (uc *inventoryUseCase) ListArchived(ctx context.Context) ([]model.StockSummary, error) {
	items, err := uc.repo.ListSummaries(ctx, &dto.StockFilters{Archived: true})
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].Status = ledger.DeriveStatus(items[i].RemainingQuantity, items[i].Threshold)
	}
	return items, nil
}

func (uc *inventoryUseCase) GetStock(ctx context.Context, stockID string) (*dto.StockDetail, error) {
	stockID = strings.TrimSpace(stockID)
	item, err := uc.repo.GetByStockID(ctx, stockID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, apperror.NotFound("stock %s not found", stockID)
	}

	batches, err := uc.repo.ListBatches(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	ledger.SortFIFO(batches)

	initial := decimal.Zero
	for _, b := range batches {
		initial = initial.Add(b.Quantity)
	}
	remaining := ledger.TotalRemaining(batches)

	return &dto.StockDetail{
		Item:              item,
		RemainingQuantity: remaining,
		InitialQuantity:   initial,
		Status:            ledger.DeriveStatus(remaining, item.Threshold),
		Batches:           batches,
	}, nil
}

func (uc *inventoryUseCase) History(ctx context.Context) ([]model.BatchHistory, error) {
	return uc.repo.ListHistory(ctx)
}

// NextStockID proposes a code such as "SUG-012": the first three letters of name and
// one more than the largest numeric suffix in the catalog.
func (uc *inventoryUseCase) NextStockID(ctx context.Context, name string) (string, error) {
	prefix := stockPrefix(name)
	if prefix == "" {
		return "", apperror.Validation("name must contain at least one letter")
	}

	ids, err := uc.repo.ListStockIDs(ctx)
	if err != nil {
		return "", err
	}

	highest := 0
	for _, id := range ids {
		m := stockSuffix.FindStringSubmatch(id)
		if m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil && n > highest {
			highest = n
		}
	}
	return fmt.Sprintf("%s-%03d", prefix, highest+1), nil
}

// ---- Ledger operations ----

func (uc *inventoryUseCase) AddBatch(ctx context.Context, input *dto.AddBatchInput) (*dto.BatchResult, error) {
	in := *input
	in.StockID = strings.TrimSpace(in.StockID)
	in.StockName = strings.TrimSpace(in.StockName)
	in.Unit = strings.TrimSpace(in.Unit)

	switch {
	case in.StockID == "":
		return nil, apperror.Validation("stock_id is required")
	case in.StockName == "":
		return nil, apperror.Validation("stock_name is required")
	case in.CategoryID <= 0:
		return nil, apperror.Validation("category_id must be a positive integer")
	case in.Quantity.IsNegative():
		return nil, apperror.Validation("quantity must not be negative")
	case in.Threshold != nil && in.Threshold.IsNegative():
		return nil, apperror.Validation("threshold must not be negative")
	case !model.IsAllowedUnit(in.Unit):
		return nil, apperror.Validation("unit must be one of %s", strings.Join(model.AllowedUnits, ", "))
	}
	delivery, expiration, err := parseDates(in.DeliveryDate, in.ExpirationDate)
	if err != nil {
		return nil, err
	}

	var (
		result dto.BatchResult
		change statusChange
	)
	err = uc.withStockLock(ctx, []string{in.StockID}, func() error {
		return uc.repo.WithTx(ctx, func(tx inventory.TxRepository) error {
			existing, err := tx.LockItem(ctx, in.StockID)
			if err != nil {
				return err
			}

			item := &model.StockItem{
				StockID:    in.StockID,
				StockName:  in.StockName,
				CategoryID: in.CategoryID,
				Unit:       in.Unit,
				Supplier:   in.Supplier,
				Threshold:  decimal.Zero,
				Status:     model.StatusOutOfStock,
			}
			var oldStatus model.StockStatus
			if existing != nil {
				item.Threshold = existing.Threshold
				item.Status = existing.Status
				item.CreatedAt = existing.CreatedAt
				oldStatus = existing.Status
				if in.Supplier == nil {
					item.Supplier = existing.Supplier
				}
			}
			if in.Threshold != nil {
				item.Threshold = *in.Threshold
			}

			id, err := tx.UpsertItem(ctx, item)
			if err != nil {
				return err
			}
			if id == 0 {
				return apperror.Database(errors.New("no id returned"), "could not resolve stock item id")
			}
			item.ID = id

			batch := &model.StockBatch{
				InventoryID:       id,
				DeliveryDate:      delivery,
				ExpirationDate:    expiration,
				Quantity:          in.Quantity,
				RemainingQuantity: in.Quantity,
				Unit:              in.Unit,
				Status:            model.StatusAvailable,
			}
			if _, err := tx.InsertBatch(ctx, batch); err != nil {
				return err
			}

			remaining, err := uc.refreshStatus(ctx, tx, item)
			if err != nil {
				return err
			}

			result = dto.BatchResult{Item: item, Batch: batch}
			change = statusChange{item: *item, old: oldStatus, remaining: remaining}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("stock batch added",
		zap.String("stock_id", in.StockID),
		zap.String("quantity", in.Quantity.String()),
		zap.Int64("batch_id", result.Batch.ID),
	)
	uc.afterWrite(ctx, change)
	uc.syncToSearch(result.Item)
	return &result, nil
}

func (uc *inventoryUseCase) Deduct(ctx context.Context, input *dto.DeductInput) (*dto.DeductResult, error) {
	stockID := strings.TrimSpace(input.StockID)
	if stockID == "" {
		return nil, apperror.Validation("stock_id is required")
	}
	if !input.Quantity.IsPositive() {
		return nil, apperror.Validation("quantity must be greater than zero")
	}

	var (
		result *dto.DeductResult
		change statusChange
	)
	err := uc.withStockLock(ctx, []string{stockID}, func() error {
		return uc.repo.WithTx(ctx, func(tx inventory.TxRepository) error {
			var err error
			result, change, err = uc.deductInTx(ctx, tx, stockID, input.Quantity)
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("stock deducted",
		zap.String("stock_id", stockID),
		zap.String("quantity", input.Quantity.String()),
		zap.String("remaining", result.RemainingQuantity.String()),
	)
	uc.afterWrite(ctx, change)
	return result, nil
}

// DeductFromSale applies every line of a sale in one transaction. Either all lines
// are deducted or none is.
func (uc *inventoryUseCase) DeductFromSale(ctx context.Context, input *dto.SaleDeductionInput) ([]dto.DeductResult, error) {
	if len(input.Items) == 0 {
		return nil, apperror.Validation("sale has no items")
	}

	totals := map[string]decimal.Decimal{}
	for _, it := range input.Items {
		id := strings.TrimSpace(it.StockID)
		if id == "" {
			return nil, apperror.Validation("stock_id is required for every item")
		}
		if !it.Quantity.IsPositive() {
			return nil, apperror.Validation("quantity for %s must be greater than zero", id)
		}
		totals[id] = totals[id].Add(it.Quantity)
	}

	// Fixed lock order keeps concurrent sales from deadlocking each other.
	ids := make([]string, 0, len(totals))
	for id := range totals {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var (
		results []dto.DeductResult
		changes []statusChange
	)
	err := uc.withStockLock(ctx, ids, func() error {
		return uc.repo.WithTx(ctx, func(tx inventory.TxRepository) error {
			results = results[:0]
			changes = changes[:0]
			for _, id := range ids {
				res, change, err := uc.deductInTx(ctx, tx, id, totals[id])
				if err != nil {
					return err
				}
				results = append(results, *res)
				changes = append(changes, change)
			}
			return nil
		})
	})
	if err != nil {
		uc.logger.Warn("sale deduction rolled back", zap.String("sale_id", input.SaleID), zap.Error(err))
		return nil, err
	}

	uc.logger.Info("sale deducted", zap.String("sale_id", input.SaleID), zap.Int("items", len(results)))
	uc.afterWrite(ctx, changes...)
	return results, nil
}

func (uc *inventoryUseCase) deductInTx(ctx context.Context, tx inventory.TxRepository, stockID string, quantity decimal.Decimal) (*dto.DeductResult, statusChange, error) {
	item, err := tx.LockItem(ctx, stockID)
	if err != nil {
		return nil, statusChange{}, err
	}
	if item == nil || item.Archived {
		return nil, statusChange{}, apperror.NotFound("stock %s not found", stockID)
	}
	oldStatus := item.Status

	batches, err := tx.LockOpenBatches(ctx, item.ID)
	if err != nil {
		return nil, statusChange{}, err
	}

	plan := ledger.PlanDeduction(batches, quantity, item.Threshold)
	if !plan.Satisfied() {
		details := dto.ShortageDetails{StockID: stockID, Requested: quantity, Available: plan.Available()}
		return nil, statusChange{}, apperror.InsufficientStock(details,
			"insufficient stock for %s: requested %s, available %s", stockID, quantity, plan.Available())
	}

	for _, a := range plan.Allocations {
		if err := tx.UpdateBatchRemaining(ctx, a.BatchID, a.Remaining, a.Status); err != nil {
			return nil, statusChange{}, err
		}
	}

	remaining, err := uc.refreshStatus(ctx, tx, item)
	if err != nil {
		return nil, statusChange{}, err
	}

	return &dto.DeductResult{
		StockID:           stockID,
		Deducted:          quantity,
		RemainingQuantity: remaining,
		Status:            item.Status,
		Allocations:       plan.Allocations,
	}, statusChange{item: *item, old: oldStatus, remaining: remaining}, nil
}

func (uc *inventoryUseCase) Restock(ctx context.Context, input *dto.RestockInput) (*dto.BatchResult, error) {
	stockID := strings.TrimSpace(input.StockID)
	if stockID == "" {
		return nil, apperror.Validation("stock_id is required")
	}
	if !input.Quantity.IsPositive() {
		return nil, apperror.Validation("quantity must be greater than zero")
	}
	delivery, expiration, err := parseDates(input.DeliveryDate, input.ExpirationDate)
	if err != nil {
		return nil, err
	}

	var (
		result dto.BatchResult
		change statusChange
	)
	err = uc.withStockLock(ctx, []string{stockID}, func() error {
		return uc.repo.WithTx(ctx, func(tx inventory.TxRepository) error {
			item, err := tx.LockItem(ctx, stockID)
			if err != nil {
				return err
			}
			if item == nil || item.Archived {
				return apperror.NotFound("stock %s not found", stockID)
			}
			oldStatus := item.Status

			superseded, err := tx.MarkOldestOpenBatch(ctx, item.ID, model.StatusLastStock)
			if err != nil {
				return err
			}

			batch := &model.StockBatch{
				InventoryID:       item.ID,
				DeliveryDate:      delivery,
				ExpirationDate:    expiration,
				Quantity:          input.Quantity,
				RemainingQuantity: input.Quantity,
				Unit:              item.Unit,
				Status:            model.StatusAvailable,
			}
			if _, err := tx.InsertBatch(ctx, batch); err != nil {
				return err
			}

			remaining, err := uc.refreshStatus(ctx, tx, item)
			if err != nil {
				return err
			}

			result = dto.BatchResult{Item: item, Batch: batch, SupersededBatchID: superseded}
			change = statusChange{item: *item, old: oldStatus, remaining: remaining}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("stock restocked",
		zap.String("stock_id", stockID),
		zap.String("quantity", input.Quantity.String()),
		zap.Int64("superseded_batch_id", result.SupersededBatchID),
	)
	uc.afterWrite(ctx, change)
	return &result, nil
}

func (uc *inventoryUseCase) Archive(ctx context.Context, stockID string) (*model.StockItem, error) {
	return uc.setArchived(ctx, stockID, true)
}

func (uc *inventoryUseCase) Restore(ctx context.Context, stockID string) (*model.StockItem, error) {
	return uc.setArchived(ctx, stockID, false)
}

func (uc *inventoryUseCase) setArchived(ctx context.Context, stockID string, archived bool) (*model.StockItem, error) {
	stockID = strings.TrimSpace(stockID)
	item, err := uc.repo.SetArchived(ctx, stockID, archived)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, apperror.NotFound("stock %s not found", stockID)
	}

	uc.logger.Info("stock archive flag set", zap.String("stock_id", stockID), zap.Bool("archived", archived))
	uc.afterWrite(ctx)
	uc.syncToSearch(item)
	return item, nil
}

func (uc *inventoryUseCase) CleanupEmptyBatches(ctx context.Context) (int64, error) {
	n, err := uc.repo.DeleteEmptyBatches(ctx)
	if err != nil {
		return 0, err
	}
	uc.logger.Info("empty batches removed", zap.Int64("count", n))
	if n > 0 {
		uc.afterWrite(ctx)
	}
	return n, nil
}

// refreshStatus recomputes the item status from its batches and persists it.
func (uc *inventoryUseCase) refreshStatus(ctx context.Context, tx inventory.TxRepository, item *model.StockItem) (decimal.Decimal, error) {
	remaining, err := tx.SumRemaining(ctx, item.ID)
	if err != nil {
		return decimal.Zero, err
	}
	item.Status = ledger.DeriveStatus(remaining, item.Threshold)
	if err := tx.UpdateItemStatus(ctx, item.ID, item.Status); err != nil {
		return decimal.Zero, err
	}
	return remaining, nil
}

// ---- Locking, cache, search and events ----

func (uc *inventoryUseCase) withStockLock(ctx context.Context, stockIDs []string, fn func() error) error {
	if uc.cache == nil {
		return fn()
	}

	token := uuid.New().String()
	held := make([]string, 0, len(stockIDs))
	defer func() {
		// Release even when the caller has gone away, or the item stays locked until lockTTL.
		releaseCtx := context.WithoutCancel(ctx)
		for _, key := range held {
			if err := uc.cache.ReleaseLock(releaseCtx, key, token); err != nil {
				uc.logger.Error("failed to release stock lock", zap.String("key", key), zap.Error(err))
			}
		}
	}()

	for _, id := range stockIDs {
		key := lockKeyPrefix + id
		ok, err := uc.acquireLock(ctx, key, token)
		if err != nil {
			return err
		}
		if !ok {
			return apperror.Conflict("stock %s is being updated, please try again", id)
		}
		held = append(held, key)
	}
	return fn()
}

// acquireLock reports false when the lock stays held by someone else, and an error
// when the lock store itself could not be reached.
func (uc *inventoryUseCase) acquireLock(ctx context.Context, key, token string) (bool, error) {
	var lastErr error
	for i := 0; i < lockAttempts; i++ {
		ok, err := uc.cache.AcquireLock(ctx, key, token, lockTTL)
		lastErr = err
		if err != nil {
			uc.logger.Error("failed to acquire lock redis error", zap.String("key", key), zap.Error(err))
		}
		if ok {
			return true, nil
		}
		if i == lockAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(lockRetryDelay):
		}
	}
	if lastErr != nil {
		return false, apperror.Database(lastErr, "could not reach the stock lock store")
	}
	return false, nil
}

// listCacheKey embeds the current write generation, so a fill that started before
// a write lands under a key no later read will use.
func (uc *inventoryUseCase) listCacheKey(ctx context.Context, f *dto.StockFilters) string {
	if uc.cache == nil || uc.listTTL <= 0 {
		return ""
	}
	gen, err := uc.cache.Counter(ctx, listGenKey)
	if err != nil {
		uc.logger.Warn("failed to read stock list generation", zap.Error(err))
		return ""
	}
	data, err := json.Marshal(f)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%s%d:%x", listCachePrefix, gen, md5.Sum(data))
}

// afterWrite drops cached listings and announces status transitions.
func (uc *inventoryUseCase) afterWrite(ctx context.Context, changes ...statusChange) {
	if uc.cache != nil {
		if _, err := uc.cache.Incr(ctx, listGenKey); err != nil {
			uc.logger.Warn("failed to bump stock list generation", zap.Error(err))
		}
		if err := uc.cache.DeleteByPattern(ctx, listCachePrefix+"*"); err != nil {
			uc.logger.Warn("failed to invalidate stock list cache", zap.Error(err))
		}
	}

	if uc.events == nil {
		return
	}
	for _, c := range changes {
		if c.old == c.item.Status {
			continue
		}
		event := dto.StockStatusChanged{
			EventID:   uuid.New().String(),
			EventType: "StockStatusChanged",
			StockID:   c.item.StockID,
			OldStatus: c.old,
			NewStatus: c.item.Status,
			Remaining: c.remaining,
			Threshold: c.item.Threshold,
		}
		go func() {
			if err := uc.events.Publish(context.Background(), event.StockID, event); err != nil {
				uc.logger.Error("failed to publish stock status event",
					zap.String("stock_id", event.StockID), zap.Error(err))
			}
		}()
	}
}

type stockDocument struct {
	StockID    string  `json:"stock_id"`
	StockName  string  `json:"stock_name"`
	CategoryID int64   `json:"category_id"`
	Supplier   *string `json:"supplier"`
	Unit       string  `json:"unit"`
	Archived   bool    `json:"archived"`
}

func (uc *inventoryUseCase) syncToSearch(item *model.StockItem) {
	if uc.search == nil || item == nil {
		return
	}
	doc := stockDocument{
		StockID:    item.StockID,
		StockName:  item.StockName,
		CategoryID: item.CategoryID,
		Supplier:   item.Supplier,
		Unit:       item.Unit,
		Archived:   item.Archived,
	}
	go func() {
		ctx := context.Background()
		uc.ensureIndex(ctx)
		if err := uc.search.Index(ctx, stockIndex, doc.StockID, doc); err != nil {
			uc.logger.Error("failed to index stock item", zap.String("stock_id", doc.StockID), zap.Error(err))
		}
	}()
}

func newStockDocument(s model.StockSummary, archived bool) stockDocument {
	return stockDocument{
		StockID:    s.StockID,
		StockName:  s.StockName,
		CategoryID: s.CategoryID,
		Supplier:   s.Supplier,
		Unit:       s.Unit,
		Archived:   archived,
	}
}

// ensureIndex creates the stock index and loads every catalog row into it the
// first time it succeeds. A failed attempt is retried on the next call.
func (uc *inventoryUseCase) ensureIndex(ctx context.Context) {
	uc.indexMu.Lock()
	defer uc.indexMu.Unlock()
	if uc.indexReady {
		return
	}

	ctx = context.WithoutCancel(ctx)
	if err := uc.search.CreateIndex(ctx, stockIndex, stockIndexMapping); err != nil {
		uc.logger.Warn("failed to create stock index", zap.Error(err))
		return
	}
	n, err := uc.reindex(ctx)
	if err != nil {
		uc.logger.Warn("failed to rebuild stock index", zap.Int("indexed", n), zap.Error(err))
		return
	}
	uc.indexReady = true
	uc.logger.Info("stock index rebuilt", zap.Int("documents", n))
}

func (uc *inventoryUseCase) reindex(ctx context.Context) (int, error) {
	n := 0
	for _, archived := range []bool{false, true} {
		items, err := uc.repo.ListSummaries(ctx, &dto.StockFilters{Archived: archived})
		if err != nil {
			return n, err
		}
		for _, it := range items {
			if err := uc.search.Index(ctx, stockIndex, it.StockID, newStockDocument(it, archived)); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}

// searchStockIDs pages through every hit for q, up to searchMaxResults.
func (uc *inventoryUseCase) searchStockIDs(ctx context.Context, q string) ([]string, error) {
	query := map[string]interface{}{
		"size": searchPageSize,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": map[string]interface{}{
					"multi_match": map[string]interface{}{
						"query":  q,
						"type":   "phrase_prefix",
						"fields": []string{"stock_name^3", "stock_id", "supplier"},
					},
				},
				"filter": map[string]interface{}{
					"term": map[string]interface{}{"archived": false},
				},
			},
		},
	}

	ids := []string{}
	for from := 0; from < searchMaxResults; from += searchPageSize {
		query["from"] = from
		res, err := uc.search.Search(ctx, stockIndex, query)
		if err != nil {
			return nil, err
		}
		for _, hit := range res.Hits.Hits {
			ids = append(ids, hit.ID)
		}
		if len(res.Hits.Hits) < searchPageSize || len(ids) >= res.Hits.Total.Value {
			return ids, nil
		}
	}
	uc.logger.Warn("stock search truncated", zap.String("query", q), zap.Int("returned", len(ids)))
	return ids, nil
}

// ---- helpers ----

func parseDates(delivery, expiration string) (time.Time, *time.Time, error) {
	delivery = strings.TrimSpace(delivery)
	if delivery == "" {
		return time.Time{}, nil, apperror.Validation("delivery_date is required")
	}
	d, err := time.Parse(dateLayout, delivery)
	if err != nil {
		return time.Time{}, nil, apperror.Validation("delivery_date must use YYYY-MM-DD")
	}

	expiration = strings.TrimSpace(expiration)
	if expiration == "" {
		return d, nil, nil
	}
	e, err := time.Parse(dateLayout, expiration)
	if err != nil {
		return time.Time{}, nil, apperror.Validation("expiration_date must use YYYY-MM-DD")
	}
	if e.Before(d) {
		return time.Time{}, nil, apperror.Validation("expiration_date is before delivery_date")
	}
	return d, &e, nil
}

func stockPrefix(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		if !unicode.IsLetter(r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
		if b.Len() >= 3 {
			break
		}
	}
	return b.String()
}

func isItemStatus(s model.StockStatus) bool {
	return s == model.StatusAvailable || s == model.StatusRestock || s == model.StatusOutOfStock
}
