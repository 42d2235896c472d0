// internal/core/services/tables_stock.go
package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"warebridge/internal/core/domain"
	"warebridge/internal/core/ports"
	"warebridge/internal/core/query"
)

// StockRow is the client-facing stock table row.
type StockRow struct {
	AttributeID          string          `json:"attributeId,omitempty"`
	InventoryItemCode    string          `json:"inventoryItemCode,omitempty"`
	InventoryItemID      string          `json:"inventoryItemId"`
	LocationID           string          `json:"locationId"`
	Quantity             decimal.Decimal `json:"quantity"`
	QuantityForPlacement decimal.Decimal `json:"quantityForPlacement"`
	QuantityForTaking    decimal.Decimal `json:"quantityForTaking"`
	SerialNumber         string          `json:"serialNumber,omitempty"`
	SeriesID             string          `json:"seriesId,omitempty"`
	TransportUnitID      string          `json:"transportUnitId,omitempty"`
	UnitID               string          `json:"unitId,omitempty"`
	WarehouseID          string          `json:"warehouseId,omitempty"`
}

// stockTable serves on-hand quantity rows.
type stockTable struct {
	store  ports.Store
	fields query.FieldMap
}

func newStockTable(store ports.Store) *stockTable {
	return &stockTable{
		store: store,
		fields: query.NewFieldMap(
			query.FieldInfo{APIName: "attributeId", NativeName: "attribute_id", Kind: query.KindString},
			query.FieldInfo{APIName: "inventoryItemCode", NativeName: "product_id.default_code", Kind: query.KindString},
			query.FieldInfo{APIName: "inventoryItemId", NativeName: "product_id.id", Kind: query.KindInt, NullEquivalent: int64(-1)},
			query.FieldInfo{APIName: "locationId", NativeName: "location_id.id", Kind: query.KindInt, NullEquivalent: int64(-1)},
			query.FieldInfo{APIName: "quantity", NativeName: "available_quantity", Kind: query.KindFloat},
			query.FieldInfo{APIName: "quantityForPlacement", NativeName: "quantity_for_placement", Kind: query.KindFloat},
			query.FieldInfo{APIName: "quantityForTaking", NativeName: "reserved_quantity", Kind: query.KindFloat},
			query.FieldInfo{APIName: "serialNumber", NativeName: "lot_id.name", Kind: query.KindString},
			query.FieldInfo{APIName: "seriesId", NativeName: "lot_id.id", Kind: query.KindInt, NullEquivalent: int64(-1)},
			query.FieldInfo{APIName: "transportUnitId", NativeName: "transport_unit_id", Kind: query.KindString},
			query.FieldInfo{APIName: "unitId", NativeName: "uom_id.id", Kind: query.KindInt, NullEquivalent: int64(-1)},
			query.FieldInfo{APIName: "warehouseId", NativeName: "location_id.warehouse_id.id", Kind: query.KindString, NullEquivalent: "-1"},
		),
	}
}

func (t *stockTable) rows(ctx context.Context, req ports.TableQuery) ([]any, *int64, error) {
	pred := query.Predicates{query.Cond("location_id.active", query.OpEqual, true)}

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

	if req.WithCount {
		count, err := t.store.Stock.Count(ctx, pred)
		if err != nil {
			return nil, nil, err
		}
		return nil, &count, nil
	}

	quants, err := t.store.Stock.Search(ctx, pred, ports.SearchOptions{
		Limit:  req.Limit,
		Offset: req.Offset,
	})
	if err != nil {
		return nil, nil, err
	}

	rows := make([]any, 0, len(quants))
	for i := range quants {
		rows = append(rows, stockRowFromQuant(&quants[i]))
	}
	return rows, nil, nil
}

// rewrite handles the computed and unsupported stock columns. Available
// quantity is not a persisted column; the filter becomes an explicit id
// list from a direct aggregate query. Attributes, placement quantity and
// transport units are not modeled by the store at all: those filters
// collapse to constant predicates that respect the requested comparison.
func (t *stockTable) rewrite(ctx context.Context, pred query.Predicates) (query.Predicates, error) {
	var rewriteErr error
	out := pred.MapConditions(func(c query.Condition) query.Term {
		switch c.Field {
		case "attribute_id", "quantity_for_placement", "transport_unit_id":
			return unsupportedFieldCondition(c)
		case "available_quantity":
			value, ok := c.Value.(decimal.Decimal)
			if !ok {
				rewriteErr = fmt.Errorf("%w: quantity filter requires a numeric value", domain.ErrValidation)
				return c
			}
			ids, err := t.store.Stock.AvailableQuantityIDs(ctx, c.Op, value)
			if err != nil {
				rewriteErr = err
				return c
			}
			return query.Cond("id", query.OpIn, ids)
		case "location_id.warehouse_id.id":
			if raw, ok := c.Value.(string); ok && domain.IsExternalWarehouseID(raw) {
				id, err := domain.ParseExternalWarehouseID(raw)
				if err != nil {
					rewriteErr = err
					return c
				}
				return query.Cond(c.Field, c.Op, id)
			}
		}
		return c
	})
	return out, rewriteErr
}

// unsupportedFieldCondition keeps boolean algebra intact for columns the
// store does not model: comparing them against an empty value holds for
// every row, against a concrete value for none.
func unsupportedFieldCondition(c query.Condition) query.Condition {
	if (c.Op == query.OpEqual) == boolValue(c.Value) {
		return query.Never()
	}
	return query.Always()
}

func stockRowFromQuant(q *domain.StockQuant) StockRow {
	row := StockRow{
		InventoryItemCode: q.ProductCode,
		InventoryItemID:   formatID(q.ProductID),
		LocationID:        formatID(q.LocationID),
		Quantity:          q.AvailableQuantity(),
		QuantityForTaking: q.ReservedQuantity,
		UnitID:            formatID(q.UoMID),
	}
	if q.LotID != nil {
		row.SerialNumber = q.LotName
		row.SeriesID = formatID(*q.LotID)
	}
	if q.WarehouseID != nil {
		row.WarehouseID = domain.ExternalWarehouseID(*q.WarehouseID)
	}
	return row
}
