package dto

import "github.com/shopspring/decimal"

type AddBatchInput struct {
	StockID        string
	StockName      string
	CategoryID     int64
	Quantity       decimal.Decimal
	Unit           string
	DeliveryDate   string           // YYYY-MM-DD
	ExpirationDate string           // optional, YYYY-MM-DD
	Threshold      *decimal.Decimal // nil keeps the catalog value, 0 for new items
	Supplier       *string          // nil keeps the catalog value
}

type DeductInput struct {
	StockID  string
	Quantity decimal.Decimal
}

type SaleItem struct {
	StockID  string
	Quantity decimal.Decimal
}

type SaleDeductionInput struct {
	SaleID string
	Items  []SaleItem
}

type RestockInput struct {
	StockID        string
	Quantity       decimal.Decimal
	DeliveryDate   string
	ExpirationDate string
}
