package model

import "github.com/fekuna/cafe-stock-service/pkg/database/postgres"

// Tables returns the schema in foreign key order.
func Tables() []postgres.Table {
	return []postgres.Table{
		Category{},
		StockItem{},
		StockBatch{},
	}
}
