package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warebridge/internal/core/domain"
	"warebridge/internal/core/ports"
	"warebridge/internal/handlers"
	"warebridge/test/helpers"
)

// stubDocumentService scripts the service responses for handler tests.
type stubDocumentService struct {
	list       *ports.DocumentList
	details    *ports.DocumentDetails
	err        error
	lastSubmit *ports.SubmitRequest
}

func (s *stubDocumentService) Descriptions(ctx context.Context, typeName string, limit, offset int, withCount bool) (*ports.DocumentList, error) {
	return s.list, s.err
}

func (s *stubDocumentService) Document(ctx context.Context, searchMode, searchCode, typeName string) (*ports.DocumentDetails, error) {
	return s.details, s.err
}

func (s *stubDocumentService) Submit(ctx context.Context, req ports.SubmitRequest) error {
	s.lastSubmit = &req
	return s.err
}

func documentsMux(svc ports.DocumentService) *http.ServeMux {
	h := handlers.NewDocumentsHandler(svc, helpers.TestLogger())
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/documents", h.ListDocuments)
	mux.HandleFunc("GET /api/v1/documents/{id}", h.GetDocument)
	mux.HandleFunc("POST /api/v1/documents", h.SubmitDocument)
	return mux
}

func TestListDocuments(t *testing.T) {
	total := int64(1)
	svc := &stubDocumentService{list: &ports.DocumentList{
		Result: []ports.DocumentHeader{
			{ID: "1001", Name: "IN/00001", DocumentTypeName: "Receiving"},
		},
		TotalCount: &total,
	}}
	mux := documentsMux(svc)

	req := httptest.NewRequest("GET", "/api/v1/documents?documentTypeName=Receiving&requestCount=true", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var got ports.DocumentList
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got.Result, 1)
	assert.Equal(t, "IN/00001", got.Result[0].Name)
	require.NotNil(t, got.TotalCount)
	assert.Equal(t, int64(1), *got.TotalCount)
}

func TestListDocuments_RequiresTypeName(t *testing.T) {
	mux := documentsMux(&stubDocumentService{})

	req := httptest.NewRequest("GET", "/api/v1/documents", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "documentTypeName")
}

func TestGetDocument(t *testing.T) {
	svc := &stubDocumentService{details: &ports.DocumentDetails{
		DocumentHeader: ports.DocumentHeader{ID: "1001", Name: "IN/00001", DocumentTypeName: "Receiving"},
	}}
	mux := documentsMux(svc)

	req := httptest.NewRequest("GET", "/api/v1/documents/1001?documentTypeName=Receiving", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var got ports.DocumentDetails
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "IN/00001", got.Name)
}

func TestSubmitDocument(t *testing.T) {
	svc := &stubDocumentService{}
	mux := documentsMux(svc)

	body, err := json.Marshal(ports.SubmitRequest{
		ID:               "1001",
		DocumentTypeName: "Receiving",
	})
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/api/v1/documents", bytes.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.lastSubmit)
	assert.Equal(t, "1001", svc.lastSubmit.ID)
	assert.Contains(t, w.Body.String(), `"status"`)
}

func TestSubmitDocument_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "malformed_json", body: "{"},
		{name: "missing_type_name", body: `{"id":"1001"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := documentsMux(&stubDocumentService{})

			req := httptest.NewRequest("POST", "/api/v1/documents", bytes.NewReader([]byte(tt.body)))
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestSubmitDocument_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{
			name:       "not_found",
			err:        fmt.Errorf("document 9: %w", domain.ErrNotFound),
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "validation",
			err:        fmt.Errorf("%w: no serial number", domain.ErrValidation),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "conflict",
			err:        fmt.Errorf("%w: cancelled", domain.ErrConflict),
			wantStatus: http.StatusConflict,
		},
		{
			name:       "unsupported",
			err:        fmt.Errorf("%w: two-step route", domain.ErrUnsupported),
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "unexpected",
			err:        fmt.Errorf("connection refused"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := documentsMux(&stubDocumentService{err: tt.err})

			body := []byte(`{"documentTypeName":"Receiving"}`)
			req := httptest.NewRequest("POST", "/api/v1/documents", bytes.NewReader(body))
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusInternalServerError {
				// Internals stay hidden from the device.
				assert.NotContains(t, w.Body.String(), "connection refused")
			}
		})
	}
}
