// internal/adapters/db/store.go
package db

import (
	"log/slog"

	"warebridge/internal/core/ports"
)

// NewStore wires every Postgres repository into the store bundle the
// services consume.
func NewStore(database *Database, logger *slog.Logger) ports.Store {
	return ports.Store{
		Documents:  NewDocumentRepository(database, logger),
		Lines:      NewLineRepository(database, logger),
		Lots:       NewLotRepository(database, logger),
		Products:   NewProductRepository(database, logger),
		Locations:  NewLocationRepository(database, logger),
		Warehouses: NewWarehouseRepository(database, logger),
		Partners:   NewPartnerRepository(database, logger),
		Stock:      NewStockRepository(database, logger),
	}
}
