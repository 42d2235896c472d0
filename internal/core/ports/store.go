// internal/core/ports/store.go
package ports

import (
	"context"

	"github.com/shopspring/decimal"

	"warebridge/internal/core/domain"
	"warebridge/internal/core/query"
)

// SearchOptions bound and order a store search. Store-native order is
// ascending id; Descending flips it for document listings.
type SearchOptions struct {
	Limit      int
	Offset     int
	Descending bool
}

// NewDocument is the creation payload for a document assembled from an
// actual-only device submission.
type NewDocument struct {
	Category    domain.DocumentCategory
	WarehouseID int64
	PartnerID   int64
	CompanyID   int64
	Origin      string
}

// ExpectedLineSeed declares one expected line of a freshly created document.
type ExpectedLineSeed struct {
	ProductID int64
	UoMID     int64
	Expected  decimal.Decimal
	Label     string
}

// CommitOptions steer the final document transition.
type CommitOptions struct {
	// SuppressBackorders cancels the auto-created follow-up document for
	// unfulfilled quantity.
	SuppressBackorders bool
	// ExemptLineIDs lists lines excluded from backorder creation.
	ExemptLineIDs []int64
	// SkipNotifications suppresses outbound notifications on transition.
	SkipNotifications bool
	// SkipOverProcessedCheck disables the store's over-fulfillment guard.
	SkipOverProcessedCheck bool
}

// DocumentRepository is the persistence port for warehouse documents.
type DocumentRepository interface {
	FindByID(ctx context.Context, id int64) (*domain.Document, error)
	Search(ctx context.Context, pred query.Predicates, opts SearchOptions) ([]domain.Document, error)
	Count(ctx context.Context, pred query.Predicates) (int64, error)
	Create(ctx context.Context, doc NewDocument, seeds []ExpectedLineSeed) (*domain.Document, error)
	// Commit transitions the document to done as a single atomic operation.
	Commit(ctx context.Context, id int64, opts CommitOptions) error
}

// LineRepository is the persistence port for document lines.
type LineRepository interface {
	// FindByDocument returns every line of the document in store-native
	// order (ascending id) with resolved lot names joined in.
	FindByDocument(ctx context.Context, documentID int64) ([]domain.DocumentLine, error)
	Write(ctx context.Context, lineID int64, delta *domain.LineDelta) error
	Create(ctx context.Context, line *domain.NewLine) (*domain.DocumentLine, error)
}

// LotRepository is the persistence port for lot/serial entities.
type LotRepository interface {
	// FindByName looks a lot up by (name, product, company); nil when absent.
	FindByName(ctx context.Context, name string, productID, companyID int64) (*domain.Lot, error)
	// Rename changes a lot's name in place, preserving its identity and any
	// attached history.
	Rename(ctx context.Context, lotID int64, newName string) error
}

// ProductRepository is the persistence port for products.
type ProductRepository interface {
	FindByID(ctx context.Context, id int64) (*domain.Product, error)
	AssignBarcode(ctx context.Context, productID int64, barcode string) error
	SearchWithStock(ctx context.Context, pred query.Predicates, opts SearchOptions) ([]domain.ProductWithStock, error)
	Count(ctx context.Context, pred query.Predicates) (int64, error)
	// StockQuantityIDs resolves a filter over the computed on-hand quantity
	// into an explicit product id list via a direct aggregate query.
	StockQuantityIDs(ctx context.Context, op query.Operator, value decimal.Decimal) ([]int64, error)
}

// LocationRepository is the persistence port for storage locations.
type LocationRepository interface {
	FindByID(ctx context.Context, id int64) (*domain.Location, error)
	Search(ctx context.Context, pred query.Predicates, opts SearchOptions) ([]domain.Location, error)
	Count(ctx context.Context, pred query.Predicates) (int64, error)
}

// WarehouseRepository is the persistence port for warehouses.
type WarehouseRepository interface {
	// FindActive returns the warehouse only when it exists and is active.
	FindActive(ctx context.Context, id int64) (*domain.Warehouse, error)
	Search(ctx context.Context, pred query.Predicates, opts SearchOptions) ([]domain.Warehouse, error)
	Count(ctx context.Context, pred query.Predicates) (int64, error)
}

// PartnerRepository is the persistence port for counterparties.
type PartnerRepository interface {
	// FindActive returns the partner only when it exists and is active.
	FindActive(ctx context.Context, id int64) (*domain.Partner, error)
}

// Store bundles the persistence ports of the warehouse document store.
type Store struct {
	Documents  DocumentRepository
	Lines      LineRepository
	Lots       LotRepository
	Products   ProductRepository
	Locations  LocationRepository
	Warehouses WarehouseRepository
	Partners   PartnerRepository
	Stock      StockRepository
}

// StockRepository is the persistence port for on-hand quantities.
type StockRepository interface {
	Search(ctx context.Context, pred query.Predicates, opts SearchOptions) ([]domain.StockQuant, error)
	Count(ctx context.Context, pred query.Predicates) (int64, error)
	// AvailableQuantityIDs resolves a filter over the computed available
	// quantity into an explicit id list via a direct aggregate query.
	AvailableQuantityIDs(ctx context.Context, op query.Operator, value decimal.Decimal) ([]int64, error)
}
