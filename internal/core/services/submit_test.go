package services_test

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warebridge/internal/core/domain"
	"warebridge/internal/core/ports"
	"warebridge/internal/core/services"
	"warebridge/test/helpers"
)

func qty(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

var errCommitBoom = errors.New("commit failed")

func newService(fs *helpers.FakeStore, settings domain.Settings) *services.DocumentService {
	return services.NewDocumentService(fs.Store(), &helpers.StaticSettings{Settings: settings}, helpers.TestLogger())
}

// receivingFixture builds an assigned receiving document with one untracked
// product line of the given expected quantity.
func receivingFixture(fs *helpers.FakeStore, expected int64) (*domain.Document, *domain.DocumentLine, *domain.Product) {
	product := fs.AddProduct(domain.Product{Name: "Small box", UoMID: 1, Tracking: domain.TrackingNone, Active: true})
	doc := fs.AddDocument(domain.Document{
		Name:           "IN/00001",
		Category:       domain.CategoryReceiving,
		State:          domain.StateAssigned,
		LocationID:     10,
		LocationDestID: 20,
		CompanyID:      1,
	})
	line := fs.AddLine(domain.DocumentLine{
		DocumentID:     doc.ID,
		ProductID:      product.ID,
		UoMID:          1,
		Expected:       qty(expected),
		LocationID:     10,
		LocationDestID: 20,
		CompanyID:      1,
	})
	return doc, line, product
}

func submitRequest(doc *domain.Document, lines ...domain.ReportedLine) ports.SubmitRequest {
	return ports.SubmitRequest{
		ID:               strconv.FormatInt(doc.ID, 10),
		DocumentTypeName: "Receiving",
		ActualLines:      lines,
	}
}

func TestSubmit_AllocatesToExactLine(t *testing.T) {
	ctx := context.Background()
	fs := helpers.NewFakeStore()
	doc, line, product := receivingFixture(fs, 50)
	svc := newService(fs, domain.Settings{})

	err := svc.Submit(ctx, submitRequest(doc, domain.ReportedLine{
		UID:       "1",
		ProductID: product.ID,
		Quantity:  qty(50),
	}))
	require.NoError(t, err)

	lines := fs.DocumentLines(doc.ID)
	require.Len(t, lines, 1)
	assert.True(t, lines[0].Done.Equal(qty(50)))
	assert.True(t, lines[0].Picked)
	assert.Equal(t, line.ID, lines[0].ID)

	require.Len(t, fs.Commits, 1)
	assert.Equal(t, doc.ID, fs.Commits[0].DocumentID)
	assert.False(t, fs.Commits[0].Options.SuppressBackorders)
	assert.Equal(t, domain.StateDone, fs.Documents[doc.ID].State)
}

func TestSubmit_OverflowSpawnsNewLine(t *testing.T) {
	ctx := context.Background()
	fs := helpers.NewFakeStore()
	doc, line, product := receivingFixture(fs, 50)
	svc := newService(fs, domain.Settings{})

	err := svc.Submit(ctx, submitRequest(doc, domain.ReportedLine{
		UID:       "1",
		ProductID: product.ID,
		Quantity:  qty(60),
	}))
	require.NoError(t, err)

	lines := fs.DocumentLines(doc.ID)
	require.Len(t, lines, 2)

	// Existing line fills to capacity; the overflow lands on a new line
	// seeded with the remainder.
	assert.Equal(t, line.ID, lines[0].ID)
	assert.True(t, lines[0].Done.Equal(qty(50)))
	assert.True(t, lines[1].Expected.Equal(qty(10)))
	assert.True(t, lines[1].Done.Equal(qty(10)))
	assert.True(t, lines[1].Picked)

	// Reported quantity is conserved across both lines.
	total := lines[0].Done.Add(lines[1].Done)
	assert.True(t, total.Equal(qty(60)))
}

func TestSubmit_SplitsAcrossMultipleLines(t *testing.T) {
	ctx := context.Background()
	fs := helpers.NewFakeStore()
	doc, _, product := receivingFixture(fs, 30)
	second := fs.AddLine(domain.DocumentLine{
		DocumentID:     doc.ID,
		ProductID:      product.ID,
		UoMID:          1,
		Expected:       qty(20),
		LocationID:     10,
		LocationDestID: 20,
		CompanyID:      1,
	})
	svc := newService(fs, domain.Settings{})

	err := svc.Submit(ctx, submitRequest(doc, domain.ReportedLine{
		UID:       "1",
		ProductID: product.ID,
		Quantity:  qty(45),
	}))
	require.NoError(t, err)

	lines := fs.DocumentLines(doc.ID)
	require.Len(t, lines, 2)
	assert.True(t, lines[0].Done.Equal(qty(30)))
	assert.Equal(t, second.ID, lines[1].ID)
	assert.True(t, lines[1].Done.Equal(qty(15)))
}

func TestSubmit_IdempotentOnSatisfiedLine(t *testing.T) {
	ctx := context.Background()
	fs := helpers.NewFakeStore()
	doc, line, product := receivingFixture(fs, 50)
	fs.Lines[line.ID].Done = qty(50)
	svc := newService(fs, domain.Settings{})

	err := svc.Submit(ctx, submitRequest(doc, domain.ReportedLine{
		UID:       "1",
		ProductID: product.ID,
		Quantity:  qty(50),
	}))
	require.NoError(t, err)

	// Re-submission of an already satisfied line changes nothing.
	lines := fs.DocumentLines(doc.ID)
	require.Len(t, lines, 1)
	assert.True(t, lines[0].Done.Equal(qty(50)))
	require.Len(t, fs.Commits, 1)
}

func TestSubmit_ZeroQuantityLineIsNoOp(t *testing.T) {
	ctx := context.Background()
	fs := helpers.NewFakeStore()
	doc, _, product := receivingFixture(fs, 50)
	svc := newService(fs, domain.Settings{})

	err := svc.Submit(ctx, submitRequest(doc, domain.ReportedLine{
		UID:       "1",
		ProductID: product.ID,
		Quantity:  decimal.Zero,
	}))
	require.NoError(t, err)

	lines := fs.DocumentLines(doc.ID)
	require.Len(t, lines, 1)
	assert.True(t, lines[0].Done.IsZero())
	assert.False(t, lines[0].Picked)
	require.Len(t, fs.Commits, 1)
}

func TestSubmit_NegativeQuantityRejected(t *testing.T) {
	ctx := context.Background()
	fs := helpers.NewFakeStore()
	doc, _, product := receivingFixture(fs, 50)
	svc := newService(fs, domain.Settings{})

	err := svc.Submit(ctx, submitRequest(doc, domain.ReportedLine{
		UID:       "1",
		ProductID: product.ID,
		Quantity:  qty(-1),
	}))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Empty(t, fs.Commits)
}

func TestSubmit_GeneratesFakeSerials(t *testing.T) {
	ctx := context.Background()
	fs := helpers.NewFakeStore()
	product := fs.AddProduct(domain.Product{Name: "Handheld", UoMID: 1, Tracking: domain.TrackingSerial, Active: true})
	doc := fs.AddDocument(domain.Document{
		Category:       domain.CategoryReceiving,
		State:          domain.StateAssigned,
		LocationID:     10,
		LocationDestID: 20,
		CompanyID:      1,
	})
	for i := 0; i < 2; i++ {
		fs.AddLine(domain.DocumentLine{
			DocumentID:     doc.ID,
			ProductID:      product.ID,
			UoMID:          1,
			Expected:       qty(1),
			LocationID:     10,
			LocationDestID: 20,
			CompanyID:      1,
		})
	}
	svc := newService(fs, domain.Settings{UseFakeSerials: true})

	err := svc.Submit(ctx, submitRequest(doc, domain.ReportedLine{
		UID:       "1",
		ProductID: product.ID,
		Quantity:  qty(2),
	}))
	require.NoError(t, err)

	lines := fs.DocumentLines(doc.ID)
	require.Len(t, lines, 2)
	for _, l := range lines {
		assert.True(t, l.Done.Equal(qty(1)))
		// Commit turns the generated names into lot entities, so the
		// placeholder survives as a renameable lot rather than free text.
		require.NotNil(t, l.LotID, "line %d should be bound to a lot", l.ID)
		assert.Empty(t, l.LotName)
		lot := fs.Lots[*l.LotID]
		require.NotNil(t, lot)
		assert.True(t, domain.IsFakeSerial(lot.Name), "line %d should carry a fake serial, got %q", l.ID, lot.Name)
	}
	// Each physical unit gets its own synthetic identity.
	assert.NotEqual(t, *lines[0].LotID, *lines[1].LotID)
}

func TestSubmit_MissingSerialRejectedWhenFakesDisabled(t *testing.T) {
	ctx := context.Background()
	fs := helpers.NewFakeStore()
	product := fs.AddProduct(domain.Product{Name: "Handheld", UoMID: 1, Tracking: domain.TrackingSerial, Active: true})
	doc := fs.AddDocument(domain.Document{
		Category:       domain.CategoryReceiving,
		State:          domain.StateAssigned,
		LocationID:     10,
		LocationDestID: 20,
		CompanyID:      1,
	})
	fs.AddLine(domain.DocumentLine{
		DocumentID: doc.ID,
		ProductID:  product.ID,
		UoMID:      1,
		Expected:   qty(1),
		CompanyID:  1,
	})
	svc := newService(fs, domain.Settings{UseFakeSerials: false})

	err := svc.Submit(ctx, submitRequest(doc, domain.ReportedLine{
		UID:       "1",
		ProductID: product.ID,
		Quantity:  qty(1),
	}))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestSubmit_MissingSeriesRejected(t *testing.T) {
	ctx := context.Background()
	fs := helpers.NewFakeStore()
	product := fs.AddProduct(domain.Product{Name: "Battery", UoMID: 1, Tracking: domain.TrackingLot, Active: true})
	doc := fs.AddDocument(domain.Document{
		Category:       domain.CategoryReceiving,
		State:          domain.StateAssigned,
		LocationID:     10,
		LocationDestID: 20,
		CompanyID:      1,
	})
	fs.AddLine(domain.DocumentLine{
		DocumentID: doc.ID,
		ProductID:  product.ID,
		UoMID:      1,
		Expected:   qty(5),
		CompanyID:  1,
	})
	svc := newService(fs, domain.Settings{})

	err := svc.Submit(ctx, submitRequest(doc, domain.ReportedLine{
		UID:       "1",
		ProductID: product.ID,
		Quantity:  qty(5),
	}))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestSubmit_BindsExistingLot(t *testing.T) {
	ctx := context.Background()
	fs := helpers.NewFakeStore()
	product := fs.AddProduct(domain.Product{Name: "Battery", UoMID: 1, Tracking: domain.TrackingLot, Active: true})
	lot := fs.AddLot(domain.Lot{Name: "LOT-2408-A", ProductID: product.ID, CompanyID: 1})
	doc := fs.AddDocument(domain.Document{
		Category:       domain.CategoryReceiving,
		State:          domain.StateAssigned,
		LocationID:     10,
		LocationDestID: 20,
		CompanyID:      1,
	})
	line := fs.AddLine(domain.DocumentLine{
		DocumentID: doc.ID,
		ProductID:  product.ID,
		UoMID:      1,
		Expected:   qty(20),
		CompanyID:  1,
	})
	svc := newService(fs, domain.Settings{})

	err := svc.Submit(ctx, submitRequest(doc, domain.ReportedLine{
		UID:        "1",
		ProductID:  product.ID,
		Quantity:   qty(20),
		SeriesName: "LOT-2408-A",
	}))
	require.NoError(t, err)

	stored := fs.Lines[line.ID]
	require.NotNil(t, stored.LotID)
	assert.Equal(t, lot.ID, *stored.LotID)
	assert.Empty(t, stored.LotName)
}

func TestSubmit_DefersUnknownLotUntilCommit(t *testing.T) {
	ctx := context.Background()
	fs := helpers.NewFakeStore()
	product := fs.AddProduct(domain.Product{Name: "Battery", UoMID: 1, Tracking: domain.TrackingLot, Active: true})
	doc := fs.AddDocument(domain.Document{
		Category:       domain.CategoryReceiving,
		State:          domain.StateAssigned,
		LocationID:     10,
		LocationDestID: 20,
		CompanyID:      1,
	})
	line := fs.AddLine(domain.DocumentLine{
		DocumentID: doc.ID,
		ProductID:  product.ID,
		UoMID:      1,
		Expected:   qty(20),
		CompanyID:  1,
	})
	fs.CommitErr = errCommitBoom
	svc := newService(fs, domain.Settings{})

	err := svc.Submit(ctx, submitRequest(doc, domain.ReportedLine{
		UID:        "1",
		ProductID:  product.ID,
		Quantity:   qty(20),
		SeriesName: "LOT-NEW",
	}))
	require.Error(t, err)

	// Until commit the unknown name rides along as free text; no lot
	// entity exists yet.
	stored := fs.Lines[line.ID]
	assert.Nil(t, stored.LotID)
	assert.Equal(t, "LOT-NEW", stored.LotName)
	assert.Empty(t, fs.Lots)
}

func TestSubmit_MaterializesNewLotAtCommit(t *testing.T) {
	ctx := context.Background()
	fs := helpers.NewFakeStore()
	product := fs.AddProduct(domain.Product{Name: "Battery", UoMID: 1, Tracking: domain.TrackingLot, Active: true})
	doc := fs.AddDocument(domain.Document{
		Category:       domain.CategoryReceiving,
		State:          domain.StateAssigned,
		LocationID:     10,
		LocationDestID: 20,
		CompanyID:      1,
	})
	line := fs.AddLine(domain.DocumentLine{
		DocumentID: doc.ID,
		ProductID:  product.ID,
		UoMID:      1,
		Expected:   qty(20),
		CompanyID:  1,
	})
	svc := newService(fs, domain.Settings{})

	err := svc.Submit(ctx, submitRequest(doc, domain.ReportedLine{
		UID:        "1",
		ProductID:  product.ID,
		Quantity:   qty(20),
		SeriesName: "LOT-NEW",
	}))
	require.NoError(t, err)

	// Commit creates the lot entity and rebinds the line by reference.
	require.Len(t, fs.Lots, 1)
	stored := fs.Lines[line.ID]
	require.NotNil(t, stored.LotID)
	created := fs.Lots[*stored.LotID]
	require.NotNil(t, created)
	assert.Equal(t, "LOT-NEW", created.Name)
	assert.Equal(t, product.ID, created.ProductID)
	assert.Equal(t, int64(1), created.CompanyID)
	assert.Empty(t, stored.LotName)
}

func TestSubmit_MaterializesNewSerialAtCommit(t *testing.T) {
	ctx := context.Background()
	fs := helpers.NewFakeStore()
	product := fs.AddProduct(domain.Product{Name: "Handheld", UoMID: 1, Tracking: domain.TrackingSerial, Active: true})
	doc := fs.AddDocument(domain.Document{
		Category:       domain.CategoryReceiving,
		State:          domain.StateAssigned,
		LocationID:     10,
		LocationDestID: 20,
		CompanyID:      1,
	})
	line := fs.AddLine(domain.DocumentLine{
		DocumentID: doc.ID,
		ProductID:  product.ID,
		UoMID:      1,
		Expected:   qty(1),
		CompanyID:  1,
	})
	svc := newService(fs, domain.Settings{})

	err := svc.Submit(ctx, submitRequest(doc, domain.ReportedLine{
		UID:          "1",
		ProductID:    product.ID,
		Quantity:     qty(1),
		SerialNumber: "SN-2301-0001",
	}))
	require.NoError(t, err)

	// The scanned serial ends up as a real lot entity, not dangling text,
	// so later documents can bind and rename it by reference.
	require.Len(t, fs.Lots, 1)
	stored := fs.Lines[line.ID]
	require.NotNil(t, stored.LotID)
	created := fs.Lots[*stored.LotID]
	require.NotNil(t, created)
	assert.Equal(t, "SN-2301-0001", created.Name)
	assert.Empty(t, stored.LotName)
}

func TestSubmit_ReplacesFakeSerialOnAllocation(t *testing.T) {
	ctx := context.Background()
	fs := helpers.NewFakeStore()
	product := fs.AddProduct(domain.Product{Name: "Handheld", UoMID: 1, Tracking: domain.TrackingSerial, Active: true})
	lot := fs.AddLot(domain.Lot{Name: domain.FakeSerialPrefix + "abc", ProductID: product.ID, CompanyID: 1})
	doc := fs.AddDocument(domain.Document{
		Category:       domain.CategoryAllocation,
		State:          domain.StateAssigned,
		LocationID:     10,
		LocationDestID: 20,
		CompanyID:      1,
	})
	line := fs.AddLine(domain.DocumentLine{
		DocumentID: doc.ID,
		ProductID:  product.ID,
		UoMID:      1,
		Expected:   qty(1),
		LotID:      &lot.ID,
		CompanyID:  1,
	})

	svc := newService(fs, domain.Settings{})
	req := submitRequest(doc, domain.ReportedLine{
		UID:          "1",
		ProductID:    product.ID,
		Quantity:     qty(1),
		SerialNumber: "SN-000777",
	})
	req.DocumentTypeName = "Allocation"

	err := svc.Submit(ctx, req)
	require.NoError(t, err)

	// The placeholder lot is renamed in place, not rebound.
	assert.Equal(t, "SN-000777", fs.Lots[lot.ID].Name)
	stored := fs.Lines[line.ID]
	require.NotNil(t, stored.LotID)
	assert.Equal(t, lot.ID, *stored.LotID)
	assert.True(t, stored.Done.Equal(qty(1)))
}

func TestSubmit_AssignsScannedBarcode(t *testing.T) {
	ctx := context.Background()
	fs := helpers.NewFakeStore()
	doc, _, product := receivingFixture(fs, 10)
	svc := newService(fs, domain.Settings{})

	err := svc.Submit(ctx, submitRequest(doc, domain.ReportedLine{
		UID:       "1",
		ProductID: product.ID,
		Quantity:  qty(10),
		Barcode:   "4006381333931",
	}))
	require.NoError(t, err)

	assert.Equal(t, "4006381333931", fs.Products[product.ID].Barcode)
}

func TestSubmit_ConflictingBarcodeRejected(t *testing.T) {
	ctx := context.Background()
	fs := helpers.NewFakeStore()
	doc, _, product := receivingFixture(fs, 10)
	fs.Products[product.ID].Barcode = "1111111111111"
	svc := newService(fs, domain.Settings{})

	err := svc.Submit(ctx, submitRequest(doc, domain.ReportedLine{
		UID:       "1",
		ProductID: product.ID,
		Quantity:  qty(10),
		Barcode:   "2222222222222",
	}))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestSubmit_BackorderSuppression(t *testing.T) {
	ctx := context.Background()
	fs := helpers.NewFakeStore()
	doc, line, product := receivingFixture(fs, 50)
	svc := newService(fs, domain.Settings{SuppressBackorders: true})

	err := svc.Submit(ctx, submitRequest(doc, domain.ReportedLine{
		UID:       "1",
		ProductID: product.ID,
		Quantity:  qty(30),
	}))
	require.NoError(t, err)

	require.Len(t, fs.Commits, 1)
	opts := fs.Commits[0].Options
	assert.True(t, opts.SuppressBackorders)
	assert.Contains(t, opts.ExemptLineIDs, line.ID)
	assert.True(t, opts.SkipNotifications)
	assert.True(t, opts.SkipOverProcessedCheck)
}

func TestSubmit_LocationScanWithinDocumentSubtree(t *testing.T) {
	ctx := context.Background()
	fs := helpers.NewFakeStore()
	doc, line, product := receivingFixture(fs, 10)
	fs.LocationsByID[20] = &domain.Location{ID: 20, Name: "Stock", ParentPath: "/1/20/", Usage: "internal", Active: true}
	fs.LocationsByID[21] = &domain.Location{ID: 21, Name: "Shelf 1", ParentPath: "/1/20/21/", Usage: "internal", Active: true}
	svc := newService(fs, domain.Settings{})

	shelf := int64(21)
	scan := true
	req := submitRequest(doc, domain.ReportedLine{
		UID:       "1",
		ProductID: product.ID,
		Quantity:  qty(10),
		StorageID: &shelf,
	})
	req.ScanLocations = &scan

	err := svc.Submit(ctx, req)
	require.NoError(t, err)

	lines := fs.DocumentLines(doc.ID)
	require.Len(t, lines, 2)
	// The scanned shelf is outside the line's current destination, so the
	// quantity lands on a fresh line bound to the shelf.
	assert.True(t, lines[0].Done.IsZero())
	assert.Equal(t, line.ID, lines[0].ID)
	assert.Equal(t, shelf, lines[1].LocationDestID)
	assert.True(t, lines[1].Done.Equal(qty(10)))
}

func TestSubmit_LocationOutsideSubtreeRejected(t *testing.T) {
	ctx := context.Background()
	fs := helpers.NewFakeStore()
	doc, _, product := receivingFixture(fs, 10)
	fs.LocationsByID[20] = &domain.Location{ID: 20, Name: "Stock", ParentPath: "/1/20/", Usage: "internal", Active: true}
	fs.LocationsByID[30] = &domain.Location{ID: 30, Name: "Other", ParentPath: "/1/30/", Usage: "internal", Active: true}
	svc := newService(fs, domain.Settings{})

	other := int64(30)
	scan := true
	req := submitRequest(doc, domain.ReportedLine{
		UID:       "1",
		ProductID: product.ID,
		Quantity:  qty(10),
		StorageID: &other,
	})
	req.ScanLocations = &scan

	err := svc.Submit(ctx, req)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestSubmit_CancelledDocumentConflicts(t *testing.T) {
	ctx := context.Background()
	fs := helpers.NewFakeStore()
	doc, _, product := receivingFixture(fs, 10)
	fs.Documents[doc.ID].State = domain.StateCancel
	svc := newService(fs, domain.Settings{})

	err := svc.Submit(ctx, submitRequest(doc, domain.ReportedLine{
		UID:       "1",
		ProductID: product.ID,
		Quantity:  qty(10),
	}))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestSubmit_UnknownDocument(t *testing.T) {
	ctx := context.Background()
	fs := helpers.NewFakeStore()
	svc := newService(fs, domain.Settings{})

	err := svc.Submit(ctx, ports.SubmitRequest{
		ID:               "424242",
		DocumentTypeName: "Receiving",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSubmit_BusinessProcessSettingValidation(t *testing.T) {
	ctx := context.Background()
	fs := helpers.NewFakeStore()
	doc, _, _ := receivingFixture(fs, 10)
	svc := newService(fs, domain.Settings{})

	req := submitRequest(doc)
	req.BusinessProcessSettings = []ports.BusinessProcessSetting{
		{SettingName: "flag", SettingValue: "1"},
		{SettingName: "flag", SettingValue: "2"},
	}
	err := svc.Submit(ctx, req)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConflict)

	req.BusinessProcessSettings = []ports.BusinessProcessSetting{{SettingValue: "1"}}
	err = svc.Submit(ctx, req)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
}
