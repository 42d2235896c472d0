// internal/core/services/tables_products.go
package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"warebridge/internal/core/domain"
	"warebridge/internal/core/ports"
	"warebridge/internal/core/query"
)

// ProductRow is the client-facing products table row.
type ProductRow struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Barcode          string          `json:"barcode,omitempty"`
	StockQuantity    decimal.Decimal `json:"stockquantity"`
	WithSerialNumber bool            `json:"withserialnumber"`
	WithSeries       bool            `json:"withseries"`
}

// productsTable serves product rows with tracking-mode and stock filters.
type productsTable struct {
	store  ports.Store
	fields query.FieldMap
}

func newProductsTable(store ports.Store) *productsTable {
	return &productsTable{
		store: store,
		fields: query.NewFieldMap(
			query.FieldInfo{APIName: "id", NativeName: "id", Kind: query.KindInt, NullEquivalent: int64(-1)},
			query.FieldInfo{APIName: "name", NativeName: "name", Kind: query.KindString},
			query.FieldInfo{APIName: "barcode", NativeName: "barcode", Kind: query.KindString},
			query.FieldInfo{APIName: "stockquantity", NativeName: "qty_available", Kind: query.KindFloat},
			query.FieldInfo{APIName: "withserialnumber", NativeName: "withserialnumber", Kind: query.KindBool},
			query.FieldInfo{APIName: "withseries", NativeName: "withseries", Kind: query.KindBool},
		),
	}
}

func (t *productsTable) rows(ctx context.Context, req ports.TableQuery) ([]any, *int64, error) {
	pred := query.Predicates{query.Cond("active", query.OpEqual, true)}

	if req.Where != nil {
		translated, err := query.Translate(req.Where, t.fields)
		if err != nil {
			return nil, nil, err
		}
		translated, err = t.rewrite(ctx, translated)
		if err != nil {
			return nil, nil, err
		}
		pred = pred.Append(translated...)
	}

	var total *int64
	if req.WithCount {
		count, err := t.store.Products.Count(ctx, pred)
		if err != nil {
			return nil, nil, err
		}
		total = &count
	}

	products, err := t.store.Products.SearchWithStock(ctx, pred, ports.SearchOptions{
		Limit:  req.Limit,
		Offset: req.Offset,
	})
	if err != nil {
		return nil, nil, err
	}

	rows := make([]any, 0, len(products))
	for i := range products {
		p := &products[i]
		rows = append(rows, ProductRow{
			ID:               formatID(p.ID),
			Name:             p.Name,
			Barcode:          p.Barcode,
			StockQuantity:    p.StockQuantity,
			WithSerialNumber: p.Tracking == domain.TrackingSerial,
			WithSeries:       p.Tracking == domain.TrackingLot,
		})
	}
	return rows, total, nil
}

// rewrite replaces filters over the virtual tracking flags and the
// computed on-hand quantity with filters over persisted columns.
func (t *productsTable) rewrite(ctx context.Context, pred query.Predicates) (query.Predicates, error) {
	var rewriteErr error
	out := pred.MapConditions(func(c query.Condition) query.Term {
		switch c.Field {
		case "withserialnumber":
			return trackingCondition(c, domain.TrackingSerial)
		case "withseries":
			return trackingCondition(c, domain.TrackingLot)
		case "qty_available":
			value, ok := c.Value.(decimal.Decimal)
			if !ok {
				rewriteErr = fmt.Errorf("%w: stock quantity filter requires a numeric value", domain.ErrValidation)
				return c
			}
			ids, err := t.store.Products.StockQuantityIDs(ctx, c.Op, value)
			if err != nil {
				rewriteErr = err
				return c
			}
			return query.Cond("id", query.OpIn, ids)
		}
		return c
	})
	return out, rewriteErr
}

// trackingCondition converts a boolean virtual-flag filter into an
// equality over the persisted tracking column, inverting the comparison
// for negated values.
func trackingCondition(c query.Condition, mode domain.Tracking) query.Condition {
	op := c.Op
	if !boolValue(c.Value) {
		if op == query.OpEqual {
			op = query.OpNotEqual
		} else {
			op = query.OpEqual
		}
	}
	return query.Cond("tracking", op, string(mode))
}
