// internal/core/services/distributor.go
package services

import (
	"context"
	"fmt"
	"log/slog"

	"warebridge/internal/core/domain"
)

// applyOptions steer one distributor run over a reported line. The strict
// pass runs with everything tightened; the relaxed pass retries deferred
// lines with allowAnyLine and addNewLineIfAbsent.
type applyOptions struct {
	addToAnyLine       bool
	addNewLineIfAbsent bool
	assignBarcodes     bool
	withLocations      bool
}

// applyReportedLine allocates one reported scan line across the document's
// existing lines. It returns false (without error) when the line could not
// be placed under the current constraints, in which case the caller defers
// it to the relaxed pass. The reported quantity is consumed in place.
func (s *DocumentService) applyReportedLine(ctx context.Context, doc *domain.Document, desc domain.TypeDescriptor, settings domain.Settings, rl *domain.ReportedLine, opts applyOptions) (bool, error) {
	if rl.Quantity.IsZero() {
		return false, nil
	}
	if rl.Quantity.IsNegative() {
		return false, fmt.Errorf("%w: reported quantity must be positive, got %s", domain.ErrValidation, rl.Quantity)
	}

	product, err := s.store.Products.FindByID(ctx, rl.ProductID)
	if err != nil {
		return false, fmt.Errorf("product %d: %w", rl.ProductID, err)
	}

	s.logger.DebugContext(ctx, "processing reported line",
		slog.String("uid", rl.UID),
		slog.String("product", product.Name),
		slog.String("quantity", rl.Quantity.String()))

	if opts.assignBarcodes {
		if err := s.assignBarcode(ctx, product, rl.Barcode); err != nil {
			return false, err
		}
	}

	if product.RequiresSerial() && rl.SerialNumber == "" {
		if !desc.GeneratesFakeSerialIfMissing || !settings.UseFakeSerials {
			return false, fmt.Errorf("%w: no serial number specified for serial-tracked product %q", domain.ErrValidation, product.Name)
		}
		rl.SerialNumber = newFakeSerial()
	}
	if product.RequiresLot() && rl.SeriesName == "" {
		return false, fmt.Errorf("%w: no series specified for lot-tracked product %q", domain.ErrValidation, product.Name)
	}

	// One snapshot per reported line; candidate narrowing below is a pure
	// filter over it, kept in sync with every write.
	snapshot, err := s.documentLines(ctx, doc.ID)
	if err != nil {
		return false, err
	}

	candidates, satisfied := findCandidates(desc, snapshot, rl, product.Tracking, matchOptions{
		allowAnyLine:  opts.addToAnyLine,
		withLocations: opts.withLocations,
	})
	if satisfied {
		// Idempotent re-submission of an already satisfied line.
		return true, nil
	}

	s.logger.DebugContext(ctx, "candidate lines selected",
		slog.String("uid", rl.UID),
		slog.Int("count", len(candidates)))

	for rl.Quantity.IsPositive() {
		pool := narrowCandidates(desc, candidates, rl, opts.withLocations)
		if len(pool) == 0 {
			if !opts.addNewLineIfAbsent {
				return false, nil
			}
			if err := s.createLineFromReport(ctx, doc, desc, product, rl, opts.withLocations); err != nil {
				return false, err
			}
			break
		}

		target := pool[0]
		add := minDecimal(target.Room(), rl.Quantity)

		delta := &domain.LineDelta{}
		delta.SetDone(target.Done.Add(add)).SetPicked(true).SetCompany(doc.CompanyID)

		reported := rl.LotOrSerial(product.Tracking)
		rebound := false
		if reported != "" && target.LotName != reported && target.ResolvedLot != reported {
			if product.RequiresSerial() {
				if err := s.replaceFakeSerial(ctx, desc, target, rl.SerialNumber); err != nil {
					return false, err
				}
			}
			if target.LotName != reported && target.ResolvedLot != reported {
				if err := s.bindLot(ctx, delta, reported, product.ID, doc.CompanyID); err != nil {
					return false, err
				}
				rebound = true
			}
		}

		if opts.withLocations {
			if err := s.attachReportedLocation(ctx, doc, desc, rl, delta); err != nil {
				return false, err
			}
		}

		if err := s.store.Lines.Write(ctx, target.ID, delta); err != nil {
			return false, fmt.Errorf("failed to write line %d: %w", target.ID, err)
		}
		delta.Apply(target)
		if rebound && target.LotID != nil {
			target.ResolvedLot = reported
		}

		s.logger.DebugContext(ctx, "allocated quantity",
			slog.Int64("line_id", target.ID),
			slog.String("added", add.String()))

		rl.Quantity = rl.Quantity.Sub(add)

		// A fake serial identifies exactly one physical unit; never let a
		// second unit coalesce under the same synthetic identity.
		if rl.Quantity.IsPositive() && product.RequiresSerial() && domain.IsFakeSerial(rl.SerialNumber) {
			rl.SerialNumber = newFakeSerial()
		}
	}

	return true, nil
}

// documentLines fetches the document's line snapshot in store order.
func (s *DocumentService) documentLines(ctx context.Context, documentID int64) ([]*domain.DocumentLine, error) {
	lines, err := s.store.Lines.FindByDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load lines of document %d: %w", documentID, err)
	}
	snapshot := make([]*domain.DocumentLine, len(lines))
	for i := range lines {
		snapshot[i] = &lines[i]
	}
	return snapshot, nil
}

// assignBarcode registers a device-scanned barcode on the product. A
// different barcode already present on the product is a conflict;
// re-assigning the same value is a no-op.
func (s *DocumentService) assignBarcode(ctx context.Context, product *domain.Product, barcode string) error {
	if barcode == "" {
		return nil
	}
	if product.Barcode != "" {
		if product.Barcode != barcode {
			return fmt.Errorf("%w: product %q already has barcode %q, cannot assign %q",
				domain.ErrConflict, product.Name, product.Barcode, barcode)
		}
		return nil
	}
	if err := s.store.Products.AssignBarcode(ctx, product.ID, barcode); err != nil {
		return fmt.Errorf("failed to assign barcode: %w", err)
	}
	product.Barcode = barcode
	return nil
}

// attachReportedLocation validates the reported storage location against
// the document's main location and stages it on the delta. A location
// outside the document's main location subtree is a consistency error.
func (s *DocumentService) attachReportedLocation(ctx context.Context, doc *domain.Document, desc domain.TypeDescriptor, rl *domain.ReportedLine, delta *domain.LineDelta) error {
	loc, err := s.reportedLocation(ctx, doc, desc, rl)
	if err != nil || loc == nil {
		return err
	}
	if desc.MainLocationSide == domain.SideDestination {
		delta.LocationDestID = &loc.ID
	} else {
		delta.LocationID = &loc.ID
	}
	return nil
}

// reportedLocation resolves and validates the reported storage location.
// Returns nil when the line carries none or it is unknown to the store.
func (s *DocumentService) reportedLocation(ctx context.Context, doc *domain.Document, desc domain.TypeDescriptor, rl *domain.ReportedLine) (*domain.Location, error) {
	if rl.StorageID == nil {
		return nil, nil
	}
	loc, err := s.store.Locations.FindByID(ctx, *rl.StorageID)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("location %d: %w", *rl.StorageID, err)
	}

	docLoc, err := s.store.Locations.FindByID(ctx, doc.MainLocationID(desc))
	if err != nil {
		return nil, fmt.Errorf("document location %d: %w", doc.MainLocationID(desc), err)
	}
	if !docLoc.Contains(loc) {
		return nil, fmt.Errorf("%w: document location %s does not contain line location %s",
			domain.ErrConflict, docLoc.ParentPath, loc.ParentPath)
	}
	return loc, nil
}

// createLineFromReport creates a brand-new line seeded with the full
// remaining reported quantity.
func (s *DocumentService) createLineFromReport(ctx context.Context, doc *domain.Document, desc domain.TypeDescriptor, product *domain.Product, rl *domain.ReportedLine, withLocations bool) error {
	s.logger.DebugContext(ctx, "adding new line to document",
		slog.Int64("document_id", doc.ID),
		slog.Int64("product_id", product.ID))

	line := &domain.NewLine{
		DocumentID:     doc.ID,
		ProductID:      product.ID,
		UoMID:          product.UoMID,
		Expected:       rl.Quantity,
		Done:           rl.Quantity,
		LocationID:     doc.LocationID,
		LocationDestID: doc.LocationDestID,
		Picked:         true,
		CompanyID:      doc.CompanyID,
		MoveID:         rl.BoundLineID,
	}

	if reported := rl.LotOrSerial(product.Tracking); reported != "" {
		lotID, lotName, err := s.resolveLot(ctx, reported, product.ID, doc.CompanyID)
		if err != nil {
			return err
		}
		line.LotID = lotID
		line.LotName = lotName
	}

	if withLocations {
		loc, err := s.reportedLocation(ctx, doc, desc, rl)
		if err != nil {
			return err
		}
		if loc != nil {
			if desc.MainLocationSide == domain.SideDestination {
				line.LocationDestID = loc.ID
			} else {
				line.LocationID = loc.ID
			}
		}
	}

	if err := line.Validate(); err != nil {
		return err
	}
	if _, err := s.store.Lines.Create(ctx, line); err != nil {
		return fmt.Errorf("failed to create line: %w", err)
	}
	return nil
}
