package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warebridge/internal/core/domain"
	"warebridge/internal/core/ports"
	"warebridge/internal/core/query"
	"warebridge/test/helpers"
)

func newTableService(fs *helpers.FakeStore, settings domain.Settings) *TableService {
	return NewTableService(fs.Store(), &helpers.StaticSettings{Settings: settings}, helpers.TestLogger())
}

func TestTableService_UnknownTable(t *testing.T) {
	svc := newTableService(helpers.NewFakeStore(), domain.Settings{})

	_, err := svc.Rows(context.Background(), ports.TableQuery{Table: "shipments"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTableService_ProductRows(t *testing.T) {
	ctx := context.Background()
	fs := helpers.NewFakeStore()
	plain := fs.AddProduct(domain.Product{Name: "Small box", Barcode: "111", UoMID: 1, Tracking: domain.TrackingNone, Active: true})
	serial := fs.AddProduct(domain.Product{Name: "Handheld", UoMID: 1, Tracking: domain.TrackingSerial, Active: true})
	lot := fs.AddProduct(domain.Product{Name: "Battery", UoMID: 1, Tracking: domain.TrackingLot, Active: true})
	fs.ProductStock[plain.ID] = decimal.NewFromInt(50)
	svc := newTableService(fs, domain.Settings{})

	rows, err := svc.Rows(ctx, ports.TableQuery{Table: "products", WithCount: true})
	require.NoError(t, err)
	require.Len(t, rows.Result, 3)
	require.NotNil(t, rows.TotalCount)
	assert.Equal(t, int64(3), *rows.TotalCount)

	first, ok := rows.Result[0].(ProductRow)
	require.True(t, ok)
	assert.Equal(t, formatID(plain.ID), first.ID)
	assert.Equal(t, "111", first.Barcode)
	assert.True(t, first.StockQuantity.Equal(decimal.NewFromInt(50)))
	assert.False(t, first.WithSerialNumber)
	assert.False(t, first.WithSeries)

	second := rows.Result[1].(ProductRow)
	assert.Equal(t, formatID(serial.ID), second.ID)
	assert.True(t, second.WithSerialNumber)

	third := rows.Result[2].(ProductRow)
	assert.Equal(t, formatID(lot.ID), third.ID)
	assert.True(t, third.WithSeries)
}

func TestTableService_StockRows(t *testing.T) {
	ctx := context.Background()
	fs := helpers.NewFakeStore()
	lotID := int64(9)
	whID := int64(5)
	fs.Quants = []domain.StockQuant{
		{
			ID:               1,
			ProductID:        100,
			ProductCode:      "BAT-01",
			LocationID:       20,
			WarehouseID:      &whID,
			LotID:            &lotID,
			LotName:          "LOT-2408-A",
			UoMID:            1,
			Quantity:         decimal.NewFromInt(30),
			ReservedQuantity: decimal.NewFromInt(10),
		},
	}
	svc := newTableService(fs, domain.Settings{})

	rows, err := svc.Rows(ctx, ports.TableQuery{Table: "stock"})
	require.NoError(t, err)
	require.Len(t, rows.Result, 1)

	row, ok := rows.Result[0].(StockRow)
	require.True(t, ok)
	assert.Equal(t, "100", row.InventoryItemID)
	assert.Equal(t, "BAT-01", row.InventoryItemCode)
	assert.Equal(t, "20", row.LocationID)
	assert.True(t, row.Quantity.Equal(decimal.NewFromInt(20)))
	assert.True(t, row.QuantityForTaking.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, "LOT-2408-A", row.SerialNumber)
	assert.Equal(t, "9", row.SeriesID)
	assert.Equal(t, "wh_5", row.WarehouseID)
}

func TestTableService_LocationRows(t *testing.T) {
	ctx := context.Background()
	fs := helpers.NewFakeStore()
	whID := int64(5)
	fs.WarehousesByID[whID] = &domain.Warehouse{ID: whID, Name: "Main Warehouse", Code: "WH", CompanyID: 1, Active: true}
	parent := int64(19)
	fs.LocationsByID[19] = &domain.Location{
		ID: 19, Name: "WH", CompleteName: "WH", Usage: "view",
		ParentPath: "/19/", WarehouseID: &whID, Active: true, HasChildren: true,
	}
	fs.LocationsByID[20] = &domain.Location{
		ID: 20, Name: "Stock", CompleteName: "WH/Stock", Usage: "internal",
		ParentID: &parent, ParentPath: "/19/20/", WarehouseID: &whID, Active: true, HasChildren: true,
	}
	fs.LocationsByID[21] = &domain.Location{
		ID: 21, Name: "Shelf 1", CompleteName: "WH/Stock/Shelf 1", Barcode: "SH-1", Usage: "internal",
		ParentID: &fs.LocationsByID[20].ID, ParentPath: "/19/20/21/", WarehouseID: &whID, Active: true,
	}

	svc := newTableService(fs, domain.Settings{AllowOnlyLowestLevelLocations: true})

	rows, err := svc.Rows(ctx, ports.TableQuery{Table: "locations"})
	require.NoError(t, err)
	require.Len(t, rows.Result, 4)

	// Warehouses lead the tree as non-selectable group nodes.
	wh, ok := rows.Result[0].(LocationRow)
	require.True(t, ok)
	assert.Equal(t, "wh_5", wh.ID)
	assert.True(t, wh.IsGroup)
	assert.True(t, wh.NotSelectable)

	// The view root reparents under the warehouse node.
	view := rows.Result[1].(LocationRow)
	assert.Equal(t, "19", view.ID)
	assert.Equal(t, "wh_5", view.ParentID)
	assert.True(t, view.NotSelectable)

	// Group locations are unselectable under the lowest-level-only setting.
	stock := rows.Result[2].(LocationRow)
	assert.Equal(t, "20", stock.ID)
	assert.Equal(t, "19", stock.ParentID)
	assert.True(t, stock.IsGroup)
	assert.True(t, stock.NotSelectable)
	// Unlabelled locations expose the complete name as scan code.
	assert.Equal(t, "WH/Stock", stock.Barcode)

	shelf := rows.Result[3].(LocationRow)
	assert.Equal(t, "21", shelf.ID)
	assert.Equal(t, "SH-1", shelf.Barcode)
	assert.False(t, shelf.IsGroup)
	assert.False(t, shelf.NotSelectable)
}

func TestTrackingCondition(t *testing.T) {
	tests := []struct {
		name string
		cond query.Condition
		mode domain.Tracking
		want query.Condition
	}{
		{
			name: "serial_true",
			cond: query.Cond("withserialnumber", query.OpEqual, true),
			mode: domain.TrackingSerial,
			want: query.Cond("tracking", query.OpEqual, "serial"),
		},
		{
			name: "serial_false_inverts",
			cond: query.Cond("withserialnumber", query.OpEqual, false),
			mode: domain.TrackingSerial,
			want: query.Cond("tracking", query.OpNotEqual, "serial"),
		},
		{
			name: "not_equal_false_normalizes",
			cond: query.Cond("withseries", query.OpNotEqual, false),
			mode: domain.TrackingLot,
			want: query.Cond("tracking", query.OpEqual, "lot"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, trackingCondition(tt.cond, tt.mode))
		})
	}
}

func TestUnsupportedFieldCondition(t *testing.T) {
	assert.True(t, unsupportedFieldCondition(query.Cond("attribute_id", query.OpEqual, "x")).IsNever())
	assert.True(t, unsupportedFieldCondition(query.Cond("attribute_id", query.OpEqual, "")).IsAlways())
	assert.True(t, unsupportedFieldCondition(query.Cond("attribute_id", query.OpNotEqual, "x")).IsAlways())
	assert.True(t, unsupportedFieldCondition(query.Cond("attribute_id", query.OpNotEqual, nil)).IsNever())
}

func TestProductsTable_RewritesStockFilter(t *testing.T) {
	ctx := context.Background()
	fs := helpers.NewFakeStore()
	fs.ProductStock[1] = decimal.NewFromInt(10)
	fs.ProductStock[2] = decimal.Zero
	table := newProductsTable(fs.Store())

	pred := query.Predicates{query.Cond("qty_available", query.OpGreater, decimal.Zero)}
	out, err := table.rewrite(ctx, pred)
	require.NoError(t, err)
	require.Len(t, out, 1)

	cond := out[0].(query.Condition)
	assert.Equal(t, "id", cond.Field)
	assert.Equal(t, query.OpIn, cond.Op)
	assert.Equal(t, []int64{1}, cond.Value)
}

func TestProductsTable_RejectsNonNumericStockFilter(t *testing.T) {
	table := newProductsTable(helpers.NewFakeStore().Store())

	pred := query.Predicates{query.Cond("qty_available", query.OpGreater, "lots")}
	_, err := table.rewrite(context.Background(), pred)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestStockTable_RewritesWarehouseID(t *testing.T) {
	table := newStockTable(helpers.NewFakeStore().Store())

	pred := query.Predicates{query.Cond("location_id.warehouse_id.id", query.OpEqual, "wh_2")}
	out, err := table.rewrite(context.Background(), pred)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, query.Cond("location_id.warehouse_id.id", query.OpEqual, int64(2)), out[0])
}

func TestWarehouseBranchPredicates(t *testing.T) {
	base := query.Predicates{
		query.Cond("id", query.OpEqual, "wh_5"),
		query.Cond("barcode", query.OpEqual, "X"),
		query.Cond("name", query.OpLike, "Main"),
	}

	out := warehouseBranchPredicates(base)
	require.Len(t, out, 5)
	assert.Equal(t, query.Cond("active", query.OpEqual, true), out[0])
	assert.Equal(t, query.Cond("id", query.OpEqual, int64(5)), out[2])
	assert.True(t, out[3].(query.Condition).IsAlways())
	assert.Equal(t, query.Cond("name", query.OpLike, "Main"), out[4])

	// A plain numeric id can never name a warehouse.
	out = warehouseBranchPredicates(query.Predicates{query.Cond("id", query.OpEqual, "7")})
	require.Len(t, out, 1)
	assert.True(t, out[0].(query.Condition).IsNever())
}

func TestLocationBranchPredicates(t *testing.T) {
	out := locationBranchPredicates(query.Predicates{query.Cond("id", query.OpEqual, "7")})
	assert.Equal(t, query.Cond("id", query.OpEqual, int64(7)), out[len(out)-1])

	// A prefixed warehouse id can never name a location.
	out = locationBranchPredicates(query.Predicates{query.Cond("id", query.OpEqual, "wh_5")})
	require.Len(t, out, 1)
	assert.True(t, out[0].(query.Condition).IsNever())

	// Barcode filters also match the complete name.
	out = locationBranchPredicates(query.Predicates{query.Cond("barcode", query.OpEqual, "SH-1")})
	tail := out[len(out)-3:]
	assert.Equal(t, query.LogicOr, tail[0])
	assert.Equal(t, query.Cond("barcode", query.OpEqual, "SH-1"), tail[1])
	assert.Equal(t, query.Cond("complete_name", query.OpEqual, "SH-1"), tail[2])
}

func TestBoolValue(t *testing.T) {
	assert.True(t, boolValue(true))
	assert.False(t, boolValue(false))
	assert.True(t, boolValue("yes"))
	assert.False(t, boolValue("false"))
	assert.False(t, boolValue(""))
	assert.True(t, boolValue(int64(1)))
	assert.False(t, boolValue(int64(0)))
	assert.False(t, boolValue(nil))
}
