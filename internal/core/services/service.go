// internal/core/services/service.go
package services

import (
	"errors"
	"log/slog"
	"strconv"

	"warebridge/internal/core/domain"
	"warebridge/internal/core/ports"
	"warebridge/internal/core/query"
)

// DocumentService implements the document operations of the adapter: the
// two-pass reconciliation of device submissions against store documents,
// plus the thin read projections the device consumes.
type DocumentService struct {
	store    ports.Store
	settings ports.SettingsProvider
	logger   *slog.Logger
}

// Statically assert that *DocumentService implements the port.
var _ ports.DocumentService = (*DocumentService)(nil)

// NewDocumentService creates a new document service.
func NewDocumentService(store ports.Store, settings ports.SettingsProvider, logger *slog.Logger) *DocumentService {
	return &DocumentService{
		store:    store,
		settings: settings,
		logger:   logger.With(slog.String("service", "documents")),
	}
}

// documentSearchPredicates builds the store filter selecting the documents
// a category exposes to the device: assigned documents of the category's
// picking type. Allocation additionally restricts to input-fed transfers.
func documentSearchPredicates(desc domain.TypeDescriptor) query.Predicates {
	pred := query.Predicates{
		query.Cond("state", query.OpEqual, string(domain.StateAssigned)),
		query.Cond("category", query.OpEqual, string(desc.Category)),
	}
	if desc.Category == domain.CategoryAllocation {
		pred = pred.Append(query.Cond("location_id.name", query.OpEqual, "Input"))
	}
	return pred
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}

func parseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	return id, err == nil && id > 0
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func formatOptionalID(id *int64) string {
	if id == nil {
		return ""
	}
	return strconv.FormatInt(*id, 10)
}
