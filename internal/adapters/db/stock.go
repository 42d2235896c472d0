// internal/adapters/db/stock.go
package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Masterminds/squirrel"
	"github.com/shopspring/decimal"

	"warebridge/internal/core/domain"
	"warebridge/internal/core/ports"
	"warebridge/internal/core/query"
)

// stockRepository implements ports.StockRepository on Postgres.
type stockRepository struct {
	db     *Database
	logger *slog.Logger
}

func NewStockRepository(db *Database, logger *slog.Logger) ports.StockRepository {
	return &stockRepository{
		db:     db,
		logger: logger.With(slog.String("repository", "stock")),
	}
}

var stockColumns = columnMap{
	"id":                          "q.id",
	"product_id.id":               "q.product_id",
	"product_id.default_code":     "p.code",
	"location_id.id":              "q.location_id",
	"location_id.active":          "l.active",
	"location_id.warehouse_id.id": "l.warehouse_id",
	"lot_id.id":                   "q.lot_id",
	"lot_id.name":                 "lt.name",
	"uom_id.id":                   "q.uom_id",
	"reserved_quantity":           "q.reserved_quantity",
}

func (r *stockRepository) Search(ctx context.Context, pred query.Predicates, opts ports.SearchOptions) ([]domain.StockQuant, error) {
	where, err := renderPredicates(pred, stockColumns)
	if err != nil {
		return nil, err
	}

	qb := squirrel.Select(
		"q.id", "q.product_id", "COALESCE(p.code, '')",
		"q.location_id", "l.warehouse_id",
		"q.lot_id", "COALESCE(lt.name, '')", "q.uom_id",
		"q.quantity", "q.reserved_quantity",
	).From("stock_quants q").
		Join("locations l ON l.id = q.location_id").
		LeftJoin("products p ON p.id = q.product_id").
		LeftJoin("lots lt ON lt.id = q.lot_id").
		Where(where).
		OrderBy("q.write_date DESC", "q.id ASC").
		PlaceholderFormat(squirrel.Dollar)

	if opts.Limit > 0 {
		qb = qb.Limit(uint64(opts.Limit))
	}
	if opts.Offset > 0 {
		qb = qb.Offset(uint64(opts.Offset))
	}

	sql, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build stock query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock: %w", err)
	}
	defer rows.Close()

	var quants []domain.StockQuant
	for rows.Next() {
		var q domain.StockQuant
		err := rows.Scan(
			&q.ID, &q.ProductID, &q.ProductCode,
			&q.LocationID, &q.WarehouseID,
			&q.LotID, &q.LotName, &q.UoMID,
			&q.Quantity, &q.ReservedQuantity,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stock quant: %w", err)
		}
		quants = append(quants, q)
	}
	return quants, rows.Err()
}

func (r *stockRepository) Count(ctx context.Context, pred query.Predicates) (int64, error) {
	where, err := renderPredicates(pred, stockColumns)
	if err != nil {
		return 0, err
	}

	sql, args, err := squirrel.Select("COUNT(*)").
		From("stock_quants q").
		Join("locations l ON l.id = q.location_id").
		LeftJoin("products p ON p.id = q.product_id").
		LeftJoin("lots lt ON lt.id = q.lot_id").
		Where(where).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build stock count: %w", err)
	}

	var count int64
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count stock: %w", err)
	}
	return count, nil
}

// AvailableQuantityIDs lists quants whose unreserved quantity satisfies the
// comparison, keeping the computed column out of the generic filter path.
func (r *stockRepository) AvailableQuantityIDs(ctx context.Context, op query.Operator, value decimal.Decimal) ([]int64, error) {
	cmp, err := sqlComparison(op)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, fmt.Sprintf(`
		SELECT id FROM stock_quants
		WHERE quantity - reserved_quantity %s $1`, cmp),
		value)
	if err != nil {
		return nil, fmt.Errorf("failed to query available quantities: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan quant id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
