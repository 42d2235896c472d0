// internal/core/services/lots.go
package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"warebridge/internal/core/domain"
)

// newFakeSerial generates a synthetic placeholder serial number.
func newFakeSerial() string {
	return domain.FakeSerialPrefix + uuid.NewString()
}

// resolveLot resolves a scanned lot/serial name to either an existing lot
// entity reference or a deferred free-text name the store will create
// lazily on write. Exactly one of the two results is set.
func (s *DocumentService) resolveLot(ctx context.Context, name string, productID, companyID int64) (lotID *int64, lotName string, err error) {
	lot, err := s.store.Lots.FindByName(ctx, name, productID, companyID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to look up lot %q: %w", name, err)
	}
	if lot != nil {
		s.logger.DebugContext(ctx, "binding existing lot",
			slog.String("lot", name),
			slog.Int64("lot_id", lot.ID))
		return &lot.ID, "", nil
	}
	s.logger.DebugContext(ctx, "deferring lot creation", slog.String("lot", name))
	return nil, name, nil
}

// bindLot stages the resolved lot onto a line delta. Reference and
// free-text name are mutually exclusive on the target.
func (s *DocumentService) bindLot(ctx context.Context, delta *domain.LineDelta, name string, productID, companyID int64) error {
	lotID, lotName, err := s.resolveLot(ctx, name, productID, companyID)
	if err != nil {
		return err
	}
	if lotID != nil {
		delta.BindLot(*lotID)
		return nil
	}
	delta.BindLotName(lotName)
	return nil
}

// replaceFakeSerial renames a placeholder lot in place when a real serial
// arrives for a line currently bound to a fake one. Renaming (rather than
// rebinding) preserves whatever history is attached to the lot entity.
// No-op unless the document type allows the overwrite.
func (s *DocumentService) replaceFakeSerial(ctx context.Context, desc domain.TypeDescriptor, line *domain.DocumentLine, newSerial string) error {
	if !desc.CanOverwriteFakeSerialOnRealScan {
		return nil
	}
	if newSerial == "" || line.LotID == nil || !domain.IsFakeSerial(line.ResolvedLot) {
		return nil
	}
	s.logger.DebugContext(ctx, "replacing fake serial",
		slog.String("old", line.ResolvedLot),
		slog.String("new", newSerial))
	if err := s.store.Lots.Rename(ctx, *line.LotID, newSerial); err != nil {
		return fmt.Errorf("failed to rename fake serial lot: %w", err)
	}
	line.ResolvedLot = newSerial
	return nil
}
