// internal/handlers/tables.go
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"warebridge/internal/core/ports"
)

// TablesHandler exposes the generic table query endpoint.
type TablesHandler struct {
	service ports.TableService
	logger  *slog.Logger
}

func NewTablesHandler(service ports.TableService, logger *slog.Logger) *TablesHandler {
	return &TablesHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "tables")),
	}
}

// QueryRows handles POST /api/v1/tables/{table}/rows. The body carries a
// where-expression tree plus paging; the table name comes from the path.
func (h *TablesHandler) QueryRows(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ports.TableQuery
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Table = r.PathValue("table")

	if req.Limit <= 0 || req.Limit > 1000 {
		req.Limit = 1000
	}

	rows, err := h.service.Rows(ctx, req)
	if err != nil {
		h.logger.ErrorContext(ctx, "table query failed",
			slog.String("table", req.Table),
			slog.String("error", err.Error()))
		respondServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, rows)
}
