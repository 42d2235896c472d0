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

// stubTableService records the last query and returns a scripted page.
type stubTableService struct {
	rows    *ports.TableRows
	err     error
	lastReq *ports.TableQuery
}

func (s *stubTableService) Rows(ctx context.Context, req ports.TableQuery) (*ports.TableRows, error) {
	s.lastReq = &req
	return s.rows, s.err
}

func tablesMux(svc ports.TableService) *http.ServeMux {
	h := handlers.NewTablesHandler(svc, helpers.TestLogger())
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/tables/{table}/rows", h.QueryRows)
	return mux
}

func TestQueryRows(t *testing.T) {
	svc := &stubTableService{rows: &ports.TableRows{
		Result: []any{map[string]any{"id": "1", "name": "Small box"}},
	}}
	mux := tablesMux(svc)

	body := []byte(`{
		"whereTreeRoot": {
			"nodeType": "Equal",
			"operands": [
				{"nodeType": "Field", "value": {"value": "name"}},
				{"nodeType": "Value", "value": {"value": "Small box", "valueType": "String"}}
			]
		},
		"offset": 10,
		"limit": 25
	}`)
	req := httptest.NewRequest("POST", "/api/v1/tables/products/rows", bytes.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	// The table name comes from the path, never from the body.
	require.NotNil(t, svc.lastReq)
	assert.Equal(t, "products", svc.lastReq.Table)
	assert.Equal(t, 10, svc.lastReq.Offset)
	assert.Equal(t, 25, svc.lastReq.Limit)
	require.NotNil(t, svc.lastReq.Where)
	assert.Equal(t, "Equal", string(svc.lastReq.Where.NodeType))

	var got ports.TableRows
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got.Result, 1)
}

func TestQueryRows_ClampsLimit(t *testing.T) {
	tests := []struct {
		name      string
		limit     int
		wantLimit int
	}{
		{name: "zero_limit", limit: 0, wantLimit: 1000},
		{name: "oversized_limit", limit: 50000, wantLimit: 1000},
		{name: "reasonable_limit", limit: 100, wantLimit: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubTableService{rows: &ports.TableRows{Result: []any{}}}
			mux := tablesMux(svc)

			body := []byte(fmt.Sprintf(`{"limit": %d}`, tt.limit))
			req := httptest.NewRequest("POST", "/api/v1/tables/stock/rows", bytes.NewReader(body))
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			require.Equal(t, http.StatusOK, w.Code)
			require.NotNil(t, svc.lastReq)
			assert.Equal(t, tt.wantLimit, svc.lastReq.Limit)
		})
	}
}

func TestQueryRows_MalformedBody(t *testing.T) {
	mux := tablesMux(&stubTableService{})

	req := httptest.NewRequest("POST", "/api/v1/tables/products/rows", bytes.NewReader([]byte("not json")))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQueryRows_UnknownTable(t *testing.T) {
	svc := &stubTableService{err: fmt.Errorf("%w: unknown table %q", domain.ErrNotFound, "shipments")}
	mux := tablesMux(svc)

	req := httptest.NewRequest("POST", "/api/v1/tables/shipments/rows", bytes.NewReader([]byte(`{}`)))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "shipments")
}
