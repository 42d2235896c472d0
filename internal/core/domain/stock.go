// internal/core/domain/stock.go
package domain

import "github.com/shopspring/decimal"

// StockQuant is one on-hand quantity bucket: a product at a location,
// optionally split by lot.
type StockQuant struct {
	ID               int64           `json:"id"`
	ProductID        int64           `json:"product_id"`
	ProductCode      string          `json:"product_code,omitempty"`
	LocationID       int64           `json:"location_id"`
	WarehouseID      *int64          `json:"warehouse_id,omitempty"`
	LotID            *int64          `json:"lot_id,omitempty"`
	LotName          string          `json:"lot_name,omitempty"`
	UoMID            int64           `json:"uom_id"`
	Quantity         decimal.Decimal `json:"quantity"`
	ReservedQuantity decimal.Decimal `json:"reserved_quantity"`
}

// AvailableQuantity is the unreserved on-hand quantity of the bucket.
func (q *StockQuant) AvailableQuantity() decimal.Decimal {
	return q.Quantity.Sub(q.ReservedQuantity)
}

// ProductWithStock couples a product with its computed on-hand quantity
// for the products table projection.
type ProductWithStock struct {
	Product
	StockQuantity decimal.Decimal `json:"stock_quantity"`
}
