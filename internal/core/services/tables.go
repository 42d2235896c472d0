// internal/core/services/tables.go
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"warebridge/internal/core/domain"
	"warebridge/internal/core/ports"
)

// tableProcessor serves rows of one client-visible table.
type tableProcessor interface {
	rows(ctx context.Context, req ports.TableQuery) ([]any, *int64, error)
}

// TableService routes generic table queries to per-table processors. Each
// processor owns its field map and rewrite hooks for computed columns.
type TableService struct {
	tables map[string]tableProcessor
	logger *slog.Logger
}

// Statically assert that *TableService implements the port.
var _ ports.TableService = (*TableService)(nil)

// NewTableService creates the table query service.
func NewTableService(store ports.Store, settings ports.SettingsProvider, logger *slog.Logger) *TableService {
	logger = logger.With(slog.String("service", "tables"))
	return &TableService{
		logger: logger,
		tables: map[string]tableProcessor{
			"products":  newProductsTable(store),
			"stock":     newStockTable(store),
			"locations": newLocationsTable(store, settings),
		},
	}
}

// Rows executes a table query and returns one page of rows.
func (s *TableService) Rows(ctx context.Context, req ports.TableQuery) (*ports.TableRows, error) {
	processor, ok := s.tables[strings.ToLower(req.Table)]
	if !ok {
		return nil, fmt.Errorf("%w: unknown table %q", domain.ErrNotFound, req.Table)
	}

	rows, total, err := processor.rows(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("table %s: %w", req.Table, err)
	}
	if rows == nil {
		rows = []any{}
	}

	s.logger.DebugContext(ctx, "table query served",
		slog.String("table", req.Table),
		slog.Int("rows", len(rows)))
	return &ports.TableRows{Result: rows, TotalCount: total}, nil
}

// boolValue interprets a translated condition value as a truthy flag.
func boolValue(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t != "" && !strings.EqualFold(t, "false")
	case int64:
		return t != 0
	case nil:
		return false
	}
	return true
}
