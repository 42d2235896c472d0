// internal/adapters/db/documents_repository_test.go
package db_test

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warebridge/internal/adapters/db"
	"warebridge/internal/core/domain"
	"warebridge/internal/core/ports"
	"warebridge/test/helpers"
)

// topology holds the seeded warehouse rows the repository tests run against.
type topology struct {
	companyID     int64
	uomID         int64
	productID     int64
	partnerID     int64
	warehouseID   int64
	stockLocID    int64
	supplierLocID int64
	customerLocID int64
}

func seedTopology(t *testing.T, ctx context.Context, pool *pgxpool.Pool) topology {
	t.Helper()
	var tp topology

	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO companies (name) VALUES ('Acme Logistics') RETURNING id`).Scan(&tp.companyID))
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO uoms (name) VALUES ('Units') RETURNING id`).Scan(&tp.uomID))
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO products (name, uom_id, tracking) VALUES ('Handheld', $1, 'serial') RETURNING id`,
		tp.uomID).Scan(&tp.productID))
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO partners (name) VALUES ('Initech') RETURNING id`).Scan(&tp.partnerID))

	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO locations (name, complete_name, usage, company_id)
		 VALUES ('Stock', 'WH/Stock', 'internal', $1) RETURNING id`,
		tp.companyID).Scan(&tp.stockLocID))
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO locations (name, complete_name, usage)
		 VALUES ('Vendors', 'Partners/Vendors', 'supplier') RETURNING id`).Scan(&tp.supplierLocID))
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO locations (name, complete_name, usage)
		 VALUES ('Customers', 'Partners/Customers', 'customer') RETURNING id`).Scan(&tp.customerLocID))

	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO warehouses (name, code, company_id, stock_location_id)
		 VALUES ('Main', 'WH', $1, $2) RETURNING id`,
		tp.companyID, tp.stockLocID).Scan(&tp.warehouseID))

	return tp
}

func TestDocumentRepository_Create_CounterpartLocations(t *testing.T) {
	testDB := helpers.SetupTestDB(t)
	defer testDB.Database.Close()

	ctx := context.Background()
	tp := seedTopology(t, ctx, testDB.PgxPool)
	repo := db.NewDocumentRepository(testDB.Database, helpers.TestLogger())

	seeds := []ports.ExpectedLineSeed{{
		ProductID: tp.productID,
		UoMID:     tp.uomID,
		Expected:  decimal.NewFromInt(5),
		Label:     "Handheld",
	}}

	receiving, err := repo.Create(ctx, ports.NewDocument{
		Category:    domain.CategoryReceiving,
		WarehouseID: tp.warehouseID,
		PartnerID:   tp.partnerID,
		CompanyID:   tp.companyID,
		Origin:      "device",
	}, seeds)
	require.NoError(t, err)
	assert.Equal(t, tp.supplierLocID, receiving.LocationID)
	assert.Equal(t, tp.stockLocID, receiving.LocationDestID)
	assert.Equal(t, domain.StateAssigned, receiving.State)

	// Shipping runs stock -> customer, the reverse of receiving.
	shipment, err := repo.Create(ctx, ports.NewDocument{
		Category:    domain.CategoryShip,
		WarehouseID: tp.warehouseID,
		PartnerID:   tp.partnerID,
		CompanyID:   tp.companyID,
		Origin:      "device",
	}, seeds)
	require.NoError(t, err)
	assert.Equal(t, tp.stockLocID, shipment.LocationID)
	assert.Equal(t, tp.customerLocID, shipment.LocationDestID)
}

func TestDocumentRepository_Commit_MaterializesDeferredLots(t *testing.T) {
	testDB := helpers.SetupTestDB(t)
	defer testDB.Database.Close()

	ctx := context.Background()
	tp := seedTopology(t, ctx, testDB.PgxPool)
	repo := db.NewDocumentRepository(testDB.Database, helpers.TestLogger())

	newReceiving := func(name, serial string) (docID, lineID int64) {
		require.NoError(t, testDB.PgxPool.QueryRow(ctx, `
			INSERT INTO documents (name, category, state, location_id, location_dest_id, company_id)
			VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
			name, domain.CategoryReceiving, domain.StateAssigned,
			tp.supplierLocID, tp.stockLocID, tp.companyID).Scan(&docID))
		require.NoError(t, testDB.PgxPool.QueryRow(ctx, `
			INSERT INTO document_lines (
				document_id, product_id, uom_id, expected, done,
				lot_name, location_id, location_dest_id, picked, company_id
			) VALUES ($1, $2, $3, 1, 1, $4, $5, $6, TRUE, $7) RETURNING id`,
			docID, tp.productID, tp.uomID, serial,
			tp.supplierLocID, tp.stockLocID, tp.companyID).Scan(&lineID))
		return docID, lineID
	}

	docID, lineID := newReceiving("IN/00001", "SN-2301-0001")
	require.NoError(t, repo.Commit(ctx, docID, ports.CommitOptions{}))

	var lotID, lotProductID, lotCompanyID int64
	require.NoError(t, testDB.PgxPool.QueryRow(ctx,
		`SELECT id, product_id, company_id FROM lots WHERE name = 'SN-2301-0001'`).
		Scan(&lotID, &lotProductID, &lotCompanyID))
	assert.Equal(t, tp.productID, lotProductID)
	assert.Equal(t, tp.companyID, lotCompanyID)

	var boundLotID *int64
	var lotName string
	require.NoError(t, testDB.PgxPool.QueryRow(ctx,
		`SELECT lot_id, lot_name FROM document_lines WHERE id = $1`, lineID).
		Scan(&boundLotID, &lotName))
	require.NotNil(t, boundLotID)
	assert.Equal(t, lotID, *boundLotID)
	assert.Empty(t, lotName)

	// The destination quant bucket carries the lot identity.
	var quantLotID *int64
	var qty decimal.Decimal
	require.NoError(t, testDB.PgxPool.QueryRow(ctx,
		`SELECT lot_id, quantity FROM stock_quants WHERE product_id = $1 AND location_id = $2`,
		tp.productID, tp.stockLocID).Scan(&quantLotID, &qty))
	require.NotNil(t, quantLotID)
	assert.Equal(t, lotID, *quantLotID)
	assert.True(t, qty.Equal(decimal.NewFromInt(1)))

	// A second document reporting the same name binds the existing lot
	// instead of creating a duplicate.
	secondDocID, secondLineID := newReceiving("IN/00002", "SN-2301-0001")
	require.NoError(t, repo.Commit(ctx, secondDocID, ports.CommitOptions{}))

	var lotCount int64
	require.NoError(t, testDB.PgxPool.QueryRow(ctx,
		`SELECT COUNT(*) FROM lots WHERE name = 'SN-2301-0001'`).Scan(&lotCount))
	assert.EqualValues(t, 1, lotCount)

	require.NoError(t, testDB.PgxPool.QueryRow(ctx,
		`SELECT lot_id, lot_name FROM document_lines WHERE id = $1`, secondLineID).
		Scan(&boundLotID, &lotName))
	require.NotNil(t, boundLotID)
	assert.Equal(t, lotID, *boundLotID)
}
