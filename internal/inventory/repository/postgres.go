package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/fekuna/cafe-stock-service/internal/inventory"
	"github.com/fekuna/cafe-stock-service/internal/inventory/dto"
	"github.com/fekuna/cafe-stock-service/internal/model"
	"github.com/fekuna/cafe-stock-service/pkg/apperror"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) WithTx(ctx context.Context, fn func(tx inventory.TxRepository) error) error {
	tx, err := r.DB.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return apperror.Database(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if err := fn(&txRepository{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return apperror.Database(err, "failed to commit transaction")
	}
	return nil
}

func (r *PGRepository) ListSummaries(ctx context.Context, f *dto.StockFilters) ([]model.StockSummary, error) {
	conditions := []string{"i.archive = ?"}
	args := []interface{}{f.Archived}

	if f.CategoryID > 0 {
		conditions = append(conditions, "i.category_id = ?")
		args = append(args, f.CategoryID)
	}
	if len(f.StockIDs) > 0 {
		conditions = append(conditions, "i.stock_id IN (?)")
		args = append(args, f.StockIDs)
	} else if f.Query != "" {
		conditions = append(conditions, "(i.stock_name ILIKE ? OR i.stock_id ILIKE ?)")
		pattern := "%" + f.Query + "%"
		args = append(args, pattern, pattern)
	}

	query := `
        SELECT
            i.id, i.stock_id, i.stock_name, i.category_id, i.unit, i.supplier, i.threshold,
            COALESCE(SUM(d.remaining_quantity), 0) AS remaining_quantity,
            COALESCE(SUM(d.quantity), 0) AS initial_quantity,
            MIN(d.expiration_date) AS expiration_date,
            MIN(d.delivery_date) AS delivery_date
        FROM inventory i
        LEFT JOIN inventory_details d ON d.inventory_id = i.id
        WHERE ` + strings.Join(conditions, " AND ") + `
        GROUP BY i.id
        ORDER BY i.stock_id
    `

	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return nil, apperror.Database(err, "failed to build stock query")
	}
	query = r.DB.Rebind(query)

	items := []model.StockSummary{}
	if err := r.DB.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, apperror.Database(err, "failed to list stock")
	}
	return items, nil
}

func (r *PGRepository) GetByStockID(ctx context.Context, stockID string) (*model.StockItem, error) {
	var item model.StockItem
	err := r.DB.GetContext(ctx, &item, `SELECT * FROM inventory WHERE stock_id = $1`, stockID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, apperror.Database(err, "failed to load stock item")
	}
	return &item, nil
}

func (r *PGRepository) ListBatches(ctx context.Context, inventoryID int64) ([]model.StockBatch, error) {
	batches := []model.StockBatch{}
	err := r.DB.SelectContext(ctx, &batches, `
        SELECT * FROM inventory_details
        WHERE inventory_id = $1
        ORDER BY delivery_date, id
    `, inventoryID)
	if err != nil {
		return nil, apperror.Database(err, "failed to list batches")
	}
	return batches, nil
}

func (r *PGRepository) ListHistory(ctx context.Context) ([]model.BatchHistory, error) {
	history := []model.BatchHistory{}
	err := r.DB.SelectContext(ctx, &history, `
        SELECT d.*, i.stock_id, i.stock_name
        FROM inventory_details d
        JOIN inventory i ON i.id = d.inventory_id
        ORDER BY d.delivery_date DESC, d.id DESC
    `)
	if err != nil {
		return nil, apperror.Database(err, "failed to list stock history")
	}
	return history, nil
}

func (r *PGRepository) ListStockIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.DB.SelectContext(ctx, &ids, `SELECT stock_id FROM inventory`); err != nil {
		return nil, apperror.Database(err, "failed to list stock ids")
	}
	return ids, nil
}

func (r *PGRepository) SetArchived(ctx context.Context, stockID string, archived bool) (*model.StockItem, error) {
	var item model.StockItem
	err := r.DB.GetContext(ctx, &item, `
        UPDATE inventory
        SET archive = $2, updated_at = now()
        WHERE stock_id = $1
        RETURNING *
    `, stockID, archived)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, apperror.Database(err, "failed to update archive flag")
	}
	return &item, nil
}

func (r *PGRepository) DeleteEmptyBatches(ctx context.Context) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `
        DELETE FROM inventory_details
        WHERE remaining_quantity <= 0 AND status = $1
    `, string(model.StatusLastStock))
	if err != nil {
		return 0, apperror.Database(err, "failed to delete empty batches")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, apperror.Database(err, "failed to count deleted batches")
	}
	return n, nil
}

type txRepository struct {
	tx *sqlx.Tx
}

func (t *txRepository) LockItem(ctx context.Context, stockID string) (*model.StockItem, error) {
	var item model.StockItem
	err := t.tx.GetContext(ctx, &item, `SELECT * FROM inventory WHERE stock_id = $1 FOR UPDATE`, stockID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, apperror.Database(err, "failed to lock stock item")
	}
	return &item, nil
}

func (t *txRepository) UpsertItem(ctx context.Context, item *model.StockItem) (int64, error) {
	query := `
        INSERT INTO inventory (stock_id, stock_name, category_id, unit, supplier, threshold, archive, status)
        VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7)
        ON CONFLICT (stock_id)
        DO UPDATE SET
            stock_name = EXCLUDED.stock_name,
            category_id = EXCLUDED.category_id,
            unit = EXCLUDED.unit,
            supplier = EXCLUDED.supplier,
            threshold = EXCLUDED.threshold,
            archive = FALSE,
            updated_at = now()
        RETURNING id, created_at, updated_at
    `
	var id int64
	err := t.tx.QueryRowxContext(ctx, query,
		item.StockID, item.StockName, item.CategoryID, item.Unit, item.Supplier,
		item.Threshold, string(item.Status),
	).Scan(&id, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, apperror.Database(err, fmt.Sprintf("could not resolve id of stock %s", item.StockID))
		}
		return 0, apperror.Database(err, "failed to upsert stock item")
	}
	return id, nil
}

func (t *txRepository) UpdateItemStatus(ctx context.Context, inventoryID int64, status model.StockStatus) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE inventory SET status = $2, updated_at = now() WHERE id = $1`,
		inventoryID, string(status))
	if err != nil {
		return apperror.Database(err, "failed to update stock status")
	}
	return nil
}

func (t *txRepository) LockOpenBatches(ctx context.Context, inventoryID int64) ([]model.StockBatch, error) {
	batches := []model.StockBatch{}
	err := t.tx.SelectContext(ctx, &batches, `
        SELECT * FROM inventory_details
        WHERE inventory_id = $1 AND remaining_quantity > 0 AND status <> $2
        ORDER BY delivery_date, id
        FOR UPDATE
    `, inventoryID, string(model.StatusOutOfStock))
	if err != nil {
		return nil, apperror.Database(err, "failed to lock batches")
	}
	return batches, nil
}

func (t *txRepository) InsertBatch(ctx context.Context, b *model.StockBatch) (int64, error) {
	err := t.tx.QueryRowxContext(ctx, `
        INSERT INTO inventory_details
            (inventory_id, delivery_date, expiration_date, quantity, remaining_quantity, unit, status)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, created_at, updated_at
    `, b.InventoryID, b.DeliveryDate, b.ExpirationDate, b.Quantity, b.RemainingQuantity, b.Unit, string(b.Status),
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return 0, apperror.Database(err, "failed to insert batch")
	}
	return b.ID, nil
}

func (t *txRepository) UpdateBatchRemaining(ctx context.Context, batchID int64, remaining decimal.Decimal, status model.StockStatus) error {
	res, err := t.tx.ExecContext(ctx, `
        UPDATE inventory_details
        SET remaining_quantity = $2, status = $3, updated_at = now()
        WHERE id = $1
    `, batchID, remaining, string(status))
	if err != nil {
		return apperror.Database(err, "failed to update batch")
	}
	if n, err := res.RowsAffected(); err == nil && n != 1 {
		return apperror.Database(fmt.Errorf("batch %d: %d rows updated", batchID, n), "failed to update batch")
	}
	return nil
}

func (t *txRepository) MarkOldestOpenBatch(ctx context.Context, inventoryID int64, status model.StockStatus) (int64, error) {
	var id int64
	err := t.tx.GetContext(ctx, &id, `
        UPDATE inventory_details
        SET status = $2, updated_at = now()
        WHERE id = (
            SELECT id FROM inventory_details
            WHERE inventory_id = $1 AND remaining_quantity > 0 AND status <> $3
            ORDER BY delivery_date, id
            LIMIT 1
            FOR UPDATE
        )
        RETURNING id
    `, inventoryID, string(status), string(model.StatusOutOfStock))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, apperror.Database(err, "failed to mark oldest batch")
	}
	return id, nil
}

func (t *txRepository) SumRemaining(ctx context.Context, inventoryID int64) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := t.tx.GetContext(ctx, &total,
		`SELECT COALESCE(SUM(remaining_quantity), 0) FROM inventory_details WHERE inventory_id = $1`,
		inventoryID)
	if err != nil {
		return decimal.Zero, apperror.Database(err, "failed to sum remaining stock")
	}
	return total, nil
}
