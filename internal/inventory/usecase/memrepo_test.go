package usecase_test

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fekuna/cafe-stock-service/internal/inventory"
	"github.com/fekuna/cafe-stock-service/internal/inventory/dto"
	"github.com/fekuna/cafe-stock-service/internal/inventory/ledger"
	"github.com/fekuna/cafe-stock-service/internal/model"
	"github.com/fekuna/cafe-stock-service/pkg/search"
	"github.com/shopspring/decimal"
)

// memRepo is an in-memory inventory.Repository. WithTx restores a snapshot when fn fails.
type memRepo struct {
	mu      sync.Mutex
	items   map[string]*model.StockItem
	batches []*model.StockBatch

	nextItemID  int64
	nextBatchID int64

	failInsertBatch error
	// afterCommit runs once fn has succeeded, still inside WithTx.
	afterCommit func()
	listCalls   int
}

func newMemRepo() *memRepo {
	return &memRepo{items: map[string]*model.StockItem{}}
}

type memSnapshot struct {
	items       map[string]model.StockItem
	batches     []model.StockBatch
	nextItemID  int64
	nextBatchID int64
}

func (m *memRepo) snapshot() memSnapshot {
	s := memSnapshot{items: map[string]model.StockItem{}, nextItemID: m.nextItemID, nextBatchID: m.nextBatchID}
	for k, v := range m.items {
		s.items[k] = *v
	}
	for _, b := range m.batches {
		s.batches = append(s.batches, *b)
	}
	return s
}

func (m *memRepo) restore(s memSnapshot) {
	m.items = map[string]*model.StockItem{}
	for k, v := range s.items {
		v := v
		m.items[k] = &v
	}
	m.batches = nil
	for _, b := range s.batches {
		b := b
		m.batches = append(m.batches, &b)
	}
	m.nextItemID = s.nextItemID
	m.nextBatchID = s.nextBatchID
}

func (m *memRepo) WithTx(ctx context.Context, fn func(tx inventory.TxRepository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	if err := fn(&memTx{m: m}); err != nil {
		m.restore(snap)
		return err
	}
	if m.afterCommit != nil {
		m.afterCommit()
	}
	return nil
}

func (m *memRepo) itemByID(id int64) *model.StockItem {
	for _, it := range m.items {
		if it.ID == id {
			return it
		}
	}
	return nil
}

func (m *memRepo) ListSummaries(ctx context.Context, f *dto.StockFilters) ([]model.StockSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++

	wanted := map[string]bool{}
	for _, id := range f.StockIDs {
		wanted[id] = true
	}

	out := []model.StockSummary{}
	for _, it := range m.items {
		if it.Archived != f.Archived {
			continue
		}
		if f.CategoryID > 0 && it.CategoryID != f.CategoryID {
			continue
		}
		if len(wanted) > 0 && !wanted[it.StockID] {
			continue
		}
		if len(wanted) == 0 && f.Query != "" {
			q := strings.ToLower(f.Query)
			if !strings.Contains(strings.ToLower(it.StockName), q) && !strings.Contains(strings.ToLower(it.StockID), q) {
				continue
			}
		}

		s := model.StockSummary{
			ID:         it.ID,
			StockID:    it.StockID,
			StockName:  it.StockName,
			CategoryID: it.CategoryID,
			Unit:       it.Unit,
			Supplier:   it.Supplier,
			Threshold:  it.Threshold,
		}
		for _, b := range m.batches {
			if b.InventoryID != it.ID {
				continue
			}
			s.RemainingQuantity = s.RemainingQuantity.Add(b.RemainingQuantity)
			s.InitialQuantity = s.InitialQuantity.Add(b.Quantity)
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StockID < out[j].StockID })
	return out, nil
}

func (m *memRepo) GetByStockID(ctx context.Context, stockID string) (*model.StockItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[stockID]
	if !ok {
		return nil, nil
	}
	cp := *it
	return &cp, nil
}

func (m *memRepo) ListBatches(ctx context.Context, inventoryID int64) ([]model.StockBatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.batchesOf(inventoryID, false), nil
}

func (m *memRepo) batchesOf(inventoryID int64, openOnly bool) []model.StockBatch {
	out := []model.StockBatch{}
	for _, b := range m.batches {
		if b.InventoryID != inventoryID {
			continue
		}
		if openOnly && !ledger.Eligible(*b) {
			continue
		}
		out = append(out, *b)
	}
	ledger.SortFIFO(out)
	return out
}

func (m *memRepo) ListHistory(ctx context.Context) ([]model.BatchHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.BatchHistory{}
	for _, b := range m.batches {
		it := m.itemByID(b.InventoryID)
		out = append(out, model.BatchHistory{StockBatch: *b, StockID: it.StockID, StockName: it.StockName})
	}
	return out, nil
}

func (m *memRepo) ListStockIDs(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := []string{}
	for id := range m.items {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *memRepo) SetArchived(ctx context.Context, stockID string, archived bool) (*model.StockItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[stockID]
	if !ok {
		return nil, nil
	}
	it.Archived = archived
	cp := *it
	return &cp, nil
}

func (m *memRepo) DeleteEmptyBatches(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.batches[:0]
	var n int64
	for _, b := range m.batches {
		if !b.RemainingQuantity.IsPositive() && b.Status == model.StatusLastStock {
			n++
			continue
		}
		kept = append(kept, b)
	}
	m.batches = kept
	return n, nil
}

// seedBatch inserts a batch directly, bypassing the ledger.
func (m *memRepo) seedBatch(stockID string, delivery string, quantity, remaining int64, status model.StockStatus) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, _ := time.Parse("2006-01-02", delivery)
	m.nextBatchID++
	m.batches = append(m.batches, &model.StockBatch{
		ID:                m.nextBatchID,
		InventoryID:       m.items[stockID].ID,
		DeliveryDate:      d,
		Quantity:          decimal.NewFromInt(quantity),
		RemainingQuantity: decimal.NewFromInt(remaining),
		Unit:              m.items[stockID].Unit,
		Status:            status,
	})
	return m.nextBatchID
}

func (m *memRepo) batchesFor(stockID string) []model.StockBatch {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[stockID]
	if !ok {
		return nil
	}
	return m.batchesOf(it.ID, false)
}

func (m *memRepo) item(stockID string) model.StockItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.items[stockID]
}

type memTx struct {
	m *memRepo
}

func (t *memTx) LockItem(ctx context.Context, stockID string) (*model.StockItem, error) {
	it, ok := t.m.items[stockID]
	if !ok {
		return nil, nil
	}
	cp := *it
	return &cp, nil
}

func (t *memTx) UpsertItem(ctx context.Context, item *model.StockItem) (int64, error) {
	now := time.Now().UTC()
	if it, ok := t.m.items[item.StockID]; ok {
		it.StockName = item.StockName
		it.CategoryID = item.CategoryID
		it.Unit = item.Unit
		it.Supplier = item.Supplier
		it.Threshold = item.Threshold
		it.Archived = false
		it.UpdatedAt = now
		item.CreatedAt, item.UpdatedAt = it.CreatedAt, it.UpdatedAt
		return it.ID, nil
	}
	t.m.nextItemID++
	cp := *item
	cp.ID = t.m.nextItemID
	cp.Archived = false
	cp.CreatedAt, cp.UpdatedAt = now, now
	t.m.items[item.StockID] = &cp
	item.CreatedAt, item.UpdatedAt = now, now
	return cp.ID, nil
}

func (t *memTx) UpdateItemStatus(ctx context.Context, inventoryID int64, status model.StockStatus) error {
	it := t.m.itemByID(inventoryID)
	if it == nil {
		return errors.New("no such item")
	}
	it.Status = status
	return nil
}

func (t *memTx) LockOpenBatches(ctx context.Context, inventoryID int64) ([]model.StockBatch, error) {
	return t.m.batchesOf(inventoryID, true), nil
}

func (t *memTx) InsertBatch(ctx context.Context, b *model.StockBatch) (int64, error) {
	if t.m.failInsertBatch != nil {
		return 0, t.m.failInsertBatch
	}
	t.m.nextBatchID++
	b.ID = t.m.nextBatchID
	cp := *b
	t.m.batches = append(t.m.batches, &cp)
	return b.ID, nil
}

func (t *memTx) UpdateBatchRemaining(ctx context.Context, batchID int64, remaining decimal.Decimal, status model.StockStatus) error {
	for _, b := range t.m.batches {
		if b.ID == batchID {
			b.RemainingQuantity = remaining
			b.Status = status
			return nil
		}
	}
	return errors.New("no such batch")
}

func (t *memTx) MarkOldestOpenBatch(ctx context.Context, inventoryID int64, status model.StockStatus) (int64, error) {
	open := t.m.batchesOf(inventoryID, true)
	if len(open) == 0 {
		return 0, nil
	}
	for _, b := range t.m.batches {
		if b.ID == open[0].ID {
			b.Status = status
		}
	}
	return open[0].ID, nil
}

func (t *memTx) SumRemaining(ctx context.Context, inventoryID int64) (decimal.Decimal, error) {
	return ledger.TotalRemaining(t.m.batchesOf(inventoryID, false)), nil
}

// fakeCache is an in-memory inventory.Cache. Like Redis, it rejects calls made
// with a finished context.
type fakeCache struct {
	mu         sync.Mutex
	locks      map[string]string
	data       map[string][]byte
	counters   map[string]int64
	refuse     bool
	acquireErr error
	released   []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{locks: map[string]string{}, data: map[string][]byte{}, counters: map[string]int64{}}
}

func (c *fakeCache) AcquireLock(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.acquireErr != nil {
		return false, c.acquireErr
	}
	if c.refuse {
		return false, nil
	}
	if _, held := c.locks[key]; held {
		return false, nil
	}
	c.locks[key] = value
	return true, nil
}

func (c *fakeCache) ReleaseLock(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.locks[key] == value {
		delete(c.locks, key)
		c.released = append(c.released, key)
	}
	return nil
}

func (c *fakeCache) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *fakeCache) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = raw
	return nil
}

func (c *fakeCache) DeleteByPattern(ctx context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	for k := range c.data {
		if strings.HasPrefix(k, prefix) {
			delete(c.data, k)
		}
	}
	return nil
}

func (c *fakeCache) Counter(ctx context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counters[key], nil
}

func (c *fakeCache) Incr(ctx context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters[key]++
	return c.counters[key], nil
}

func (c *fakeCache) entries() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

// fakeSearch answers every query with a fixed set of hits, honoring from and size.
type fakeSearch struct {
	mu       sync.Mutex
	hits     []string
	err      error
	indexed  map[string]bool
	searches int
}

func (s *fakeSearch) CreateIndex(ctx context.Context, index, mapping string) error { return nil }

func (s *fakeSearch) Index(ctx context.Context, index, id string, doc interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexed == nil {
		s.indexed = map[string]bool{}
	}
	s.indexed[id] = true
	return nil
}

func (s *fakeSearch) isIndexed(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexed[id]
}

func (s *fakeSearch) Search(ctx context.Context, index string, query map[string]interface{}) (*search.SearchResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searches++
	if s.err != nil {
		return nil, s.err
	}

	from, _ := query["from"].(int)
	size, ok := query["size"].(int)
	if !ok {
		size = 10
	}
	res := &search.SearchResponse{}
	for i := from; i < len(s.hits) && i < from+size; i++ {
		res.Hits.Hits = append(res.Hits.Hits, search.SearchHit{ID: s.hits[i]})
	}
	res.Hits.Total.Value = len(s.hits)
	return res, nil
}

// racingRepo runs during once, right after a listing has been read and before it is returned.
type racingRepo struct {
	*memRepo
	during func()
}

func (r *racingRepo) ListSummaries(ctx context.Context, f *dto.StockFilters) ([]model.StockSummary, error) {
	out, err := r.memRepo.ListSummaries(ctx, f)
	if r.during != nil {
		during := r.during
		r.during = nil
		during()
	}
	return out, err
}
