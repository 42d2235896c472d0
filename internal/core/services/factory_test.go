package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warebridge/internal/core/domain"
	"warebridge/internal/core/ports"
	"warebridge/test/helpers"
)

func factoryFixture(fs *helpers.FakeStore) (*domain.Warehouse, *domain.Partner) {
	wh := &domain.Warehouse{
		ID:             5,
		Name:           "Main Warehouse",
		Code:           "WH",
		CompanyID:      1,
		ReceptionSteps: domain.ReceptionOneStep,
		DeliverySteps:  domain.DeliveryShipOnly,
		Active:         true,
	}
	fs.WarehousesByID[wh.ID] = wh
	partner := &domain.Partner{ID: 7, Name: "Acme Supplies", Active: true}
	fs.PartnersByID[partner.ID] = partner
	return wh, partner
}

func TestSubmit_CreatesDocumentFromActuals(t *testing.T) {
	ctx := context.Background()
	fs := helpers.NewFakeStore()
	factoryFixture(fs)
	boxes := fs.AddProduct(domain.Product{Name: "Small box", UoMID: 1, Tracking: domain.TrackingNone, Active: true})
	film := fs.AddProduct(domain.Product{Name: "Stretch film", UoMID: 1, Tracking: domain.TrackingNone, Active: true})
	svc := newService(fs, domain.Settings{})

	err := svc.Submit(ctx, ports.SubmitRequest{
		Name:             "mobile-doc-1",
		DocumentTypeName: "Receiving",
		WarehouseID:      "wh_5",
		CustomerVendorID: "7",
		UserID:           "alice",
		DeviceID:         "hht-1",
		ActualLines: []domain.ReportedLine{
			{UID: "1", ProductID: boxes.ID, UoMID: 1, Quantity: qty(3)},
			{UID: "2", ProductID: boxes.ID, UoMID: 1, Quantity: qty(2)},
			{UID: "3", ProductID: film.ID, UoMID: 1, Quantity: qty(1)},
		},
	})
	require.NoError(t, err)

	require.Len(t, fs.Commits, 1)
	doc := fs.Documents[fs.Commits[0].DocumentID]
	require.NotNil(t, doc)
	assert.Equal(t, domain.CategoryReceiving, doc.Category)
	assert.Equal(t, "MOBILE-DOC-1 by ALICE with HHT-1", doc.Origin)
	require.NotNil(t, doc.PartnerID)
	assert.Equal(t, int64(7), *doc.PartnerID)

	// Actuals are grouped by product into the expected lines, then the same
	// quantities distribute back onto them.
	lines := fs.DocumentLines(doc.ID)
	require.Len(t, lines, 2)
	assert.Equal(t, boxes.ID, lines[0].ProductID)
	assert.True(t, lines[0].Expected.Equal(qty(5)))
	assert.True(t, lines[0].Done.Equal(qty(5)))
	assert.Equal(t, film.ID, lines[1].ProductID)
	assert.True(t, lines[1].Expected.Equal(qty(1)))
	assert.True(t, lines[1].Done.Equal(qty(1)))
}

func TestSubmit_CreateRequiresWarehouseAndPartner(t *testing.T) {
	ctx := context.Background()
	fs := helpers.NewFakeStore()
	svc := newService(fs, domain.Settings{})

	err := svc.Submit(ctx, ports.SubmitRequest{DocumentTypeName: "Receiving"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)

	err = svc.Submit(ctx, ports.SubmitRequest{DocumentTypeName: "Receiving", WarehouseID: "wh_5"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestSubmit_CreateRejectsUnsupportedType(t *testing.T) {
	ctx := context.Background()
	fs := helpers.NewFakeStore()
	factoryFixture(fs)
	svc := newService(fs, domain.Settings{})

	err := svc.Submit(ctx, ports.SubmitRequest{
		DocumentTypeName: "Pick",
		WarehouseID:      "wh_5",
		CustomerVendorID: "7",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnsupported)
}

func TestSubmit_CreateRequiresSingleStageRoute(t *testing.T) {
	ctx := context.Background()
	fs := helpers.NewFakeStore()
	wh, _ := factoryFixture(fs)
	wh.ReceptionSteps = "two_steps"
	svc := newService(fs, domain.Settings{})

	err := svc.Submit(ctx, ports.SubmitRequest{
		DocumentTypeName: "Receiving",
		WarehouseID:      "wh_5",
		CustomerVendorID: "7",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnsupported)
}

func TestSubmit_CreateAcceptsPlainWarehouseID(t *testing.T) {
	ctx := context.Background()
	fs := helpers.NewFakeStore()
	factoryFixture(fs)
	svc := newService(fs, domain.Settings{})

	err := svc.Submit(ctx, ports.SubmitRequest{
		DocumentTypeName: "Receiving",
		WarehouseID:      "5",
		CustomerVendorID: "7",
	})
	require.NoError(t, err)
	require.Len(t, fs.Commits, 1)
}

func TestSubmit_CreateRejectsMalformedWarehouseID(t *testing.T) {
	ctx := context.Background()
	fs := helpers.NewFakeStore()
	factoryFixture(fs)
	svc := newService(fs, domain.Settings{})

	err := svc.Submit(ctx, ports.SubmitRequest{
		DocumentTypeName: "Receiving",
		WarehouseID:      "wh_oops",
		CustomerVendorID: "7",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestSubmit_CreateRejectsInactivePartner(t *testing.T) {
	ctx := context.Background()
	fs := helpers.NewFakeStore()
	_, partner := factoryFixture(fs)
	partner.Active = false
	svc := newService(fs, domain.Settings{})

	err := svc.Submit(ctx, ports.SubmitRequest{
		DocumentTypeName: "Receiving",
		WarehouseID:      "wh_5",
		CustomerVendorID: "7",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
