package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockStatus labels both catalog entries and batches.
type StockStatus string

const (
	StatusAvailable  StockStatus = "Available"
	StatusRestock    StockStatus = "Restock"
	StatusOutOfStock StockStatus = "Out of Stock"
	// StatusLastStock marks a batch superseded by a newer delivery but not yet used up.
	StatusLastStock StockStatus = "Last Stock"
)

// AllowedUnits lists the measurement units a stock item may use.
var AllowedUnits = []string{"kg", "liters", "units", "pieces", "tablespoons", "g", "ml", "teaspoons"}

func IsAllowedUnit(unit string) bool {
	for _, u := range AllowedUnits {
		if u == unit {
			return true
		}
	}
	return false
}

// StockItem is the catalog entry for one kind of stock.
type StockItem struct {
	ID         int64           `db:"id" json:"id"`
	StockID    string          `db:"stock_id" json:"stock_id"`
	StockName  string          `db:"stock_name" json:"stock_name"`
	CategoryID int64           `db:"category_id" json:"category_id"`
	Unit       string          `db:"unit" json:"unit"`
	Supplier   *string         `db:"supplier" json:"supplier"`
	Threshold  decimal.Decimal `db:"threshold" json:"threshold"`
	Archived   bool            `db:"archive" json:"archived"`
	Status     StockStatus     `db:"status" json:"status"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updated_at"`
}

func (StockItem) TableName() string {
	return "inventory"
}

func (StockItem) CreateTableSQL() string {
	return `
	CREATE TABLE IF NOT EXISTS inventory (
		id BIGSERIAL PRIMARY KEY,
		stock_id VARCHAR(64) NOT NULL UNIQUE,
		stock_name VARCHAR(255) NOT NULL,
		category_id BIGINT NOT NULL REFERENCES categories(id),
		unit VARCHAR(32) NOT NULL,
		supplier VARCHAR(255),
		threshold NUMERIC(12,3) NOT NULL DEFAULT 0 CHECK (threshold >= 0),
		archive BOOLEAN NOT NULL DEFAULT FALSE,
		status VARCHAR(32) NOT NULL DEFAULT 'Out of Stock',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);`
}

// StockBatch is one delivery of a stock item.
type StockBatch struct {
	ID                int64           `db:"id" json:"id"`
	InventoryID       int64           `db:"inventory_id" json:"inventory_id"`
	DeliveryDate      time.Time       `db:"delivery_date" json:"delivery_date"`
	ExpirationDate    *time.Time      `db:"expiration_date" json:"expiration_date"`
	Quantity          decimal.Decimal `db:"quantity" json:"quantity"`
	RemainingQuantity decimal.Decimal `db:"remaining_quantity" json:"remaining_quantity"`
	Unit              string          `db:"unit" json:"unit"`
	Status            StockStatus     `db:"status" json:"status"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updated_at"`
}

func (StockBatch) TableName() string {
	return "inventory_details"
}

func (StockBatch) CreateTableSQL() string {
	return `
	CREATE TABLE IF NOT EXISTS inventory_details (
		id BIGSERIAL PRIMARY KEY,
		inventory_id BIGINT NOT NULL REFERENCES inventory(id) ON DELETE CASCADE,
		delivery_date DATE NOT NULL,
		expiration_date DATE,
		quantity NUMERIC(12,3) NOT NULL CHECK (quantity >= 0),
		remaining_quantity NUMERIC(12,3) NOT NULL,
		unit VARCHAR(32) NOT NULL,
		status VARCHAR(32) NOT NULL DEFAULT 'Available',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		CHECK (remaining_quantity >= 0 AND remaining_quantity <= quantity)
	);
	CREATE INDEX IF NOT EXISTS idx_inventory_details_fifo
		ON inventory_details (inventory_id, delivery_date, id);`
}

// StockSummary is a catalog entry with its batch aggregates.
type StockSummary struct {
	ID                int64           `db:"id" json:"id"`
	StockID           string          `db:"stock_id" json:"stock_id"`
	StockName         string          `db:"stock_name" json:"stock_name"`
	CategoryID        int64           `db:"category_id" json:"category_id"`
	Unit              string          `db:"unit" json:"unit"`
	Supplier          *string         `db:"supplier" json:"supplier"`
	Threshold         decimal.Decimal `db:"threshold" json:"threshold"`
	RemainingQuantity decimal.Decimal `db:"remaining_quantity" json:"remaining_quantity"`
	InitialQuantity   decimal.Decimal `db:"initial_quantity" json:"initial_quantity"`
	ExpirationDate    *time.Time      `db:"expiration_date" json:"expiration_date"`
	DeliveryDate      *time.Time      `db:"delivery_date" json:"delivery_date"`
	Status            StockStatus     `db:"-" json:"status"`
}

// BatchHistory is a batch joined with the stock code it belongs to.
type BatchHistory struct {
	StockBatch
	StockID   string `db:"stock_id" json:"stock_id"`
	StockName string `db:"stock_name" json:"stock_name"`
}
