// internal/core/services/factory.go
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"warebridge/internal/core/domain"
	"warebridge/internal/core/ports"
)

// createFromActuals assembles a store document from a submission that was
// created on the device instead of being planned ahead. Only single-stage
// routes are supported: a multi-step route needs a different number of
// fulfillment documents than the device can produce.
func (s *DocumentService) createFromActuals(ctx context.Context, req ports.SubmitRequest) (*domain.Document, error) {
	if req.WarehouseID == "" {
		return nil, fmt.Errorf("%w: warehouse is not specified", domain.ErrValidation)
	}
	if req.CustomerVendorID == "" {
		return nil, fmt.Errorf("%w: partner is not specified", domain.ErrValidation)
	}

	warehouseID, err := parseWarehouseID(req.WarehouseID)
	if err != nil {
		return nil, err
	}
	warehouse, err := s.store.Warehouses.FindActive(ctx, warehouseID)
	if err != nil {
		return nil, fmt.Errorf("warehouse %s: %w", req.WarehouseID, err)
	}

	partnerID, numeric := parseID(req.CustomerVendorID)
	if !numeric {
		return nil, fmt.Errorf("%w: malformed partner id %q", domain.ErrValidation, req.CustomerVendorID)
	}
	partner, err := s.store.Partners.FindActive(ctx, partnerID)
	if err != nil {
		return nil, fmt.Errorf("partner %s: %w", req.CustomerVendorID, err)
	}

	desc, ok := domain.DescribeTypeName(req.DocumentTypeName)
	if !ok {
		return nil, fmt.Errorf("%w: creating documents on the device is not supported for %q",
			domain.ErrUnsupported, req.DocumentTypeName)
	}
	switch desc.Category {
	case domain.CategoryReceiving:
		if warehouse.ReceptionSteps != domain.ReceptionOneStep {
			return nil, fmt.Errorf("%w: device-created receiving requires a one-step reception route",
				domain.ErrUnsupported)
		}
	case domain.CategoryShip:
		if warehouse.DeliverySteps != domain.DeliveryShipOnly {
			return nil, fmt.Errorf("%w: device-created shipping requires a ship-only delivery route",
				domain.ErrUnsupported)
		}
	default:
		return nil, fmt.Errorf("%w: creating documents on the device is not supported for %q",
			domain.ErrUnsupported, req.DocumentTypeName)
	}

	seeds := seedsFromActuals(req)

	doc, err := s.store.Documents.Create(ctx, ports.NewDocument{
		Category:    desc.Category,
		WarehouseID: warehouse.ID,
		PartnerID:   partner.ID,
		CompanyID:   warehouse.CompanyID,
		Origin:      submissionOrigin(req),
	}, seeds)
	if err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}

	s.logger.InfoContext(ctx, "document created from device submission",
		slog.Int64("id", doc.ID),
		slog.String("type", req.DocumentTypeName),
		slog.Int("expected_lines", len(seeds)))
	return doc, nil
}

// seedsFromActuals groups reported quantities by (product, uom) into the
// expected lines of the new document.
func seedsFromActuals(req ports.SubmitRequest) []ports.ExpectedLineSeed {
	type groupKey struct {
		productID int64
		uomID     int64
	}

	totals := map[groupKey]decimal.Decimal{}
	var order []groupKey
	for i := range req.ActualLines {
		rl := &req.ActualLines[i]
		key := groupKey{productID: rl.ProductID, uomID: rl.UoMID}
		if _, seen := totals[key]; !seen {
			order = append(order, key)
		}
		totals[key] = totals[key].Add(rl.Quantity)
	}

	label := moveLabel(req)
	seeds := make([]ports.ExpectedLineSeed, 0, len(order))
	for _, key := range order {
		seeds = append(seeds, ports.ExpectedLineSeed{
			ProductID: key.productID,
			UoMID:     key.uomID,
			Expected:  totals[key],
			Label:     label,
		})
	}
	return seeds
}

func parseWarehouseID(raw string) (int64, error) {
	if domain.IsExternalWarehouseID(raw) {
		return domain.ParseExternalWarehouseID(raw)
	}
	id, numeric := parseID(raw)
	if !numeric {
		return 0, fmt.Errorf("%w: malformed warehouse id %q", domain.ErrValidation, raw)
	}
	return id, nil
}

func submissionOrigin(req ports.SubmitRequest) string {
	return fmt.Sprintf("%s by %s with %s",
		orLabel(req.Name, "UNKNOWN_DOC"),
		orLabel(req.UserID, "UNKNOWN_USER"),
		orLabel(req.DeviceID, "UNKNOWN_DEVICE"))
}

func moveLabel(req ports.SubmitRequest) string {
	return fmt.Sprintf("Stock move by %s with %s",
		orLabel(req.UserID, "UNKNOWN_USER"),
		orLabel(req.DeviceID, "UNKNOWN_DEVICE"))
}

func orLabel(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return strings.ToUpper(value)
}
