// internal/core/services/submit.go
package services

import (
	"context"
	"fmt"
	"log/slog"

	"warebridge/internal/core/domain"
	"warebridge/internal/core/ports"
)

// Submit processes a finished document reported by the device and commits
// the resulting state transition.
//
// Reported lines run through the distributor in two passes. Pass 1 is
// strict: lines may only land on their most specific existing counterpart
// and barcodes are registered. Lines that cannot be placed are deferred,
// not failed. Pass 2 re-runs only the deferred lines relaxed: any line of
// the product may absorb quantity and new lines may be created. Barcode
// assignment stays off in pass 2 so a barcode is registered exactly once
// per submission.
func (s *DocumentService) Submit(ctx context.Context, req ports.SubmitRequest) error {
	if _, err := extractBusinessProcessSettings(req.BusinessProcessSettings); err != nil {
		return err
	}

	settings, err := s.settings.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to read settings: %w", err)
	}

	var doc *domain.Document
	if id, numeric := parseID(req.ID); numeric {
		doc, err = s.store.Documents.FindByID(ctx, id)
		if err != nil {
			return fmt.Errorf("document %s: %w", req.ID, err)
		}
	} else {
		doc, err = s.createFromActuals(ctx, req)
		if err != nil {
			return err
		}
	}

	desc, ok := domain.DescribeCategory(doc.Category)
	if !ok {
		return fmt.Errorf("%w: document type %q", domain.ErrUnsupported, doc.Category)
	}

	withLocations := settings.DefaultScanLocations
	if req.ScanLocations != nil {
		withLocations = *req.ScanLocations
	}

	s.logger.DebugContext(ctx, "processing document",
		slog.String("name", doc.Name),
		slog.Int64("id", doc.ID),
		slog.Int("lines", len(req.ActualLines)))

	var deferred []*domain.ReportedLine
	strict := applyOptions{assignBarcodes: true, withLocations: withLocations}
	for i := range req.ActualLines {
		rl := &req.ActualLines[i]
		placed, err := s.applyReportedLine(ctx, doc, desc, settings, rl, strict)
		if err != nil {
			return err
		}
		if !placed {
			deferred = append(deferred, rl)
		}
	}

	relaxed := applyOptions{addToAnyLine: true, addNewLineIfAbsent: true, withLocations: withLocations}
	for _, rl := range deferred {
		if _, err := s.applyReportedLine(ctx, doc, desc, settings, rl, relaxed); err != nil {
			return err
		}
	}

	return s.finalize(ctx, doc, settings)
}

// finalize commits the document transition, deciding backorder policy from
// the tenant settings. The commit is a single atomic transition; partial
// failure surfaces as a fatal error.
func (s *DocumentService) finalize(ctx context.Context, doc *domain.Document, settings domain.Settings) error {
	opts := ports.CommitOptions{
		SkipNotifications:      true,
		SkipOverProcessedCheck: true,
	}

	if settings.SuppressBackorders {
		opts.SuppressBackorders = true
		lines, err := s.store.Lines.FindByDocument(ctx, doc.ID)
		if err != nil {
			return fmt.Errorf("failed to load lines for backorder suppression: %w", err)
		}
		opts.ExemptLineIDs = make([]int64, 0, len(lines))
		for i := range lines {
			opts.ExemptLineIDs = append(opts.ExemptLineIDs, lines[i].ID)
		}
	}

	if err := s.store.Documents.Commit(ctx, doc.ID, opts); err != nil {
		return fmt.Errorf("failed to commit document %d: %w", doc.ID, err)
	}

	s.logger.InfoContext(ctx, "document committed",
		slog.Int64("id", doc.ID),
		slog.Bool("backorders_suppressed", opts.SuppressBackorders))
	return nil
}

// extractBusinessProcessSettings flattens the per-submission override
// settings. A duplicated setting name is a conflict.
func extractBusinessProcessSettings(settings []ports.BusinessProcessSetting) (map[string]string, error) {
	result := make(map[string]string, len(settings))
	for _, setting := range settings {
		if setting.SettingName == "" {
			return nil, fmt.Errorf("%w: business process setting name is empty", domain.ErrValidation)
		}
		if _, dup := result[setting.SettingName]; dup {
			return nil, fmt.Errorf("%w: business process setting %q is duplicated", domain.ErrConflict, setting.SettingName)
		}
		result[setting.SettingName] = setting.SettingValue
	}
	return result, nil
}
