package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/knittrack/internal/server/handlers"
)

func newTestEngine() http.Handler {
	return New(Handlers{
		Production:   handlers.NewProductionHandler(nil, nil),
		Export:       handlers.NewExportHandler(nil, nil),
		EditSessions: handlers.NewEditSessionHandler(nil, nil),
	}, nil)
}

func TestHealthz(t *testing.T) {
	w := httptest.NewRecorder()
	newTestEngine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
}

func TestRequestIDIsPropagated(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "req-123")
	w := httptest.NewRecorder()
	newTestEngine().ServeHTTP(w, req)

	assert.Equal(t, "req-123", w.Header().Get(requestIDHeader))
}

func TestRoutesRegistered(t *testing.T) {
	engine := New(Handlers{
		Production:   handlers.NewProductionHandler(nil, nil),
		Export:       handlers.NewExportHandler(nil, nil),
		EditSessions: handlers.NewEditSessionHandler(nil, nil),
	}, nil)

	registered := make(map[string]bool)
	for _, r := range engine.Routes() {
		registered[r.Method+" "+r.Path] = true
	}

	for _, route := range []string{
		"GET /api/entries",
		"POST /api/entries",
		"GET /api/entries/date-range",
		"GET /api/entries/:id",
		"GET /api/entries/:id/view",
		"GET /api/entries/:id/editability",
		"GET /api/entries/:id/discrepancies",
		"POST /api/metrics/preview",
		"GET /api/summary",
		"POST /api/summary/calculate",
		"GET /api/statistics",
		"GET /api/machines",
		"GET /api/entries-summary",
		"GET /api/export/excel",
		"GET /api/export/excel-path",
		"POST /api/export/sheets",
		"POST /api/edit-sessions",
		"GET /api/edit-sessions/:sid",
		"GET /api/edit-sessions/:sid/countdown",
		"POST /api/edit-sessions/:sid/refresh",
		"PUT /api/edit-sessions/:sid/entry",
		"DELETE /api/edit-sessions/:sid",
	} {
		assert.True(t, registered[route], route)
	}
}
