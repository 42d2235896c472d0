// internal/handlers/documents.go
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"warebridge/internal/core/ports"
)

// DocumentsHandler exposes the document operations to handheld clients.
type DocumentsHandler struct {
	service ports.DocumentService
	logger  *slog.Logger
}

func NewDocumentsHandler(service ports.DocumentService, logger *slog.Logger) *DocumentsHandler {
	return &DocumentsHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "documents")),
	}
}

// ListDocuments handles GET /api/v1/documents.
func (h *DocumentsHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	typeName := r.URL.Query().Get("documentTypeName")
	if typeName == "" {
		respondError(w, h.logger, http.StatusBadRequest, "documentTypeName is required")
		return
	}

	limit := intQueryParam(r, "limit", 50)
	offset := intQueryParam(r, "offset", 0)
	withCount := r.URL.Query().Get("requestCount") == "true"

	list, err := h.service.Descriptions(ctx, typeName, limit, offset, withCount)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list documents",
			slog.String("type", typeName),
			slog.String("error", err.Error()))
		respondServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, list)
}

// GetDocument handles GET /api/v1/documents/{id}.
func (h *DocumentsHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	searchCode := r.PathValue("id")
	searchMode := r.URL.Query().Get("searchMode")
	if searchMode == "" {
		searchMode = "byCode"
	}
	typeName := r.URL.Query().Get("documentTypeName")

	doc, err := h.service.Document(ctx, searchMode, searchCode, typeName)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to get document",
			slog.String("search_code", searchCode),
			slog.String("search_mode", searchMode),
			slog.String("error", err.Error()))
		respondServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, doc)
}

// SubmitDocument handles POST /api/v1/documents: a finished document from
// the device, reconciled and committed in one call.
func (h *DocumentsHandler) SubmitDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ports.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.DocumentTypeName == "" {
		respondError(w, h.logger, http.StatusBadRequest, "documentTypeName is required")
		return
	}

	if err := h.service.Submit(ctx, req); err != nil {
		h.logger.ErrorContext(ctx, "failed to submit document",
			slog.String("document_id", req.ID),
			slog.String("type", req.DocumentTypeName),
			slog.Int("actual_lines", len(req.ActualLines)),
			slog.String("error", err.Error()))
		respondServiceError(w, h.logger, err)
		return
	}

	h.logger.InfoContext(ctx, "document submitted",
		slog.String("document_id", req.ID),
		slog.String("type", req.DocumentTypeName),
		slog.Int("actual_lines", len(req.ActualLines)))

	respondJSON(w, h.logger, http.StatusOK, map[string]string{"status": "ok"})
}

func intQueryParam(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}
