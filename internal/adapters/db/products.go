// internal/adapters/db/products.go
package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"warebridge/internal/core/domain"
	"warebridge/internal/core/ports"
	"warebridge/internal/core/query"
)

// productRepository implements ports.ProductRepository on Postgres.
type productRepository struct {
	db     *Database
	logger *slog.Logger
}

func NewProductRepository(db *Database, logger *slog.Logger) ports.ProductRepository {
	return &productRepository{
		db:     db,
		logger: logger.With(slog.String("repository", "products")),
	}
}

var productColumns = columnMap{
	"id":       "p.id",
	"name":     "p.name",
	"barcode":  "p.barcode",
	"tracking": "p.tracking",
	"active":   "p.active",
}

// stockSum computes on-hand quantity across internal locations.
const stockSum = `COALESCE((
	SELECT SUM(q.quantity)
	FROM stock_quants q
	JOIN locations loc ON loc.id = q.location_id
	WHERE q.product_id = p.id AND loc.usage = 'internal'
), 0)`

func (r *productRepository) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	p := &domain.Product{}
	err := r.db.QueryRow(ctx, `
		SELECT id, name, code, COALESCE(barcode, ''), uom_id, tracking, active
		FROM products WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.Name, &p.Code, &p.Barcode, &p.UoMID, &p.Tracking, &p.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: product %d", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load product %d: %w", id, err)
	}
	return p, nil
}

// AssignBarcode sets a product's barcode. The unique index on barcode turns
// a scan code already owned by another product into ErrConflict.
func (r *productRepository) AssignBarcode(ctx context.Context, productID int64, barcode string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE products SET barcode = $2 WHERE id = $1`,
		productID, barcode)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: barcode %q already assigned", domain.ErrConflict, barcode)
		}
		return fmt.Errorf("failed to assign barcode to product %d: %w", productID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: product %d", domain.ErrNotFound, productID)
	}

	r.logger.InfoContext(ctx, "barcode assigned",
		slog.Int64("product_id", productID),
		slog.String("barcode", barcode))
	return nil
}

func (r *productRepository) SearchWithStock(ctx context.Context, pred query.Predicates, opts ports.SearchOptions) ([]domain.ProductWithStock, error) {
	where, err := renderPredicates(pred, productColumns)
	if err != nil {
		return nil, err
	}

	qb := squirrel.Select(
		"p.id", "p.name", "p.code", "COALESCE(p.barcode, '')",
		"p.uom_id", "p.tracking", "p.active", stockSum,
	).From("products p").
		Where(where).
		OrderBy("p.id ASC").
		PlaceholderFormat(squirrel.Dollar)

	if opts.Limit > 0 {
		qb = qb.Limit(uint64(opts.Limit))
	}
	if opts.Offset > 0 {
		qb = qb.Offset(uint64(opts.Offset))
	}

	sql, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build product query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []domain.ProductWithStock
	for rows.Next() {
		var p domain.ProductWithStock
		err := rows.Scan(
			&p.ID, &p.Name, &p.Code, &p.Barcode,
			&p.UoMID, &p.Tracking, &p.Active, &p.StockQuantity,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *productRepository) Count(ctx context.Context, pred query.Predicates) (int64, error) {
	where, err := renderPredicates(pred, productColumns)
	if err != nil {
		return 0, err
	}

	sql, args, err := squirrel.Select("COUNT(*)").
		From("products p").
		Where(where).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build product count: %w", err)
	}

	var count int64
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return count, nil
}

// StockQuantityIDs lists products whose summed on-hand quantity satisfies
// the comparison. The aggregate runs directly in SQL so stock filters never
// materialize the whole catalog.
func (r *productRepository) StockQuantityIDs(ctx context.Context, op query.Operator, value decimal.Decimal) ([]int64, error) {
	cmp, err := sqlComparison(op)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, fmt.Sprintf(`
		SELECT p.id FROM products p
		WHERE %s %s $1`, stockSum, cmp),
		value)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock quantities: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan product id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// sqlComparison maps the native comparison operators onto SQL. Only plain
// comparisons make sense against an aggregate.
func sqlComparison(op query.Operator) (string, error) {
	switch op {
	case query.OpEqual:
		return "=", nil
	case query.OpNotEqual:
		return "<>", nil
	case query.OpLess:
		return "<", nil
	case query.OpGreater:
		return ">", nil
	case query.OpLessEq:
		return "<=", nil
	case query.OpGreaterEq:
		return ">=", nil
	}
	return "", fmt.Errorf("%w: operator %q on a computed quantity", domain.ErrValidation, op)
}
