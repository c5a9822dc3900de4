package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finlake/enrich/internal/enrich"
	"github.com/finlake/enrich/internal/store"
)

func TestHandleRunEmptyBatch(t *testing.T) {
	st := store.NewMemoryStore()
	h := NewEnrichmentHandler(enrich.NewController(st, nil, nil), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/enrichment/run",
		strings.NewReader(`{"batch_id":"B1"}`))
	rec := httptest.NewRecorder()

	h.HandleRun(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var report enrich.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "B1", report.BatchID)
	assert.Equal(t, 0, report.Total)
}

func TestHandleRunAcceptsEmptyBody(t *testing.T) {
	st := store.NewMemoryStore()
	h := NewEnrichmentHandler(enrich.NewController(st, nil, nil), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/enrichment/run", nil)
	rec := httptest.NewRecorder()

	h.HandleRun(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleRunRejectsBadInput(t *testing.T) {
	st := store.NewMemoryStore()
	h := NewEnrichmentHandler(enrich.NewController(st, nil, nil), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/enrichment/run",
		strings.NewReader(`{not json`))
	rec := httptest.NewRecorder()
	h.HandleRun(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/enrichment/run",
		strings.NewReader(`{"workers":-2}`))
	rec = httptest.NewRecorder()
	h.HandleRun(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleListFiltersAndLimits(t *testing.T) {
	st := store.NewMemoryStore()
	st.Seed(store.TableExceptionQueue,
		store.Row{store.PrimaryKey: "E1", "status": "pending", "priority": "high", "exception_date": "2024-01-15T10:00:00Z"},
		store.Row{store.PrimaryKey: "E2", "status": "pending", "priority": "low", "exception_date": "2024-01-15T11:00:00Z"},
		store.Row{store.PrimaryKey: "E3", "status": "resolved", "priority": "high", "exception_date": "2024-01-15T12:00:00Z"},
	)
	h := NewExceptionHandler(st, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/exceptions", nil)
	rec := httptest.NewRecorder()
	h.HandleList(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var rows []store.Row
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 2, "defaults to pending only")
	assert.Equal(t, "E2", rows[0][store.PrimaryKey], "newest first")

	req = httptest.NewRequest(http.MethodGet, "/api/exceptions?priority=high", nil)
	rec = httptest.NewRecorder()
	h.HandleList(rec, req)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "E1", rows[0][store.PrimaryKey])

	req = httptest.NewRequest(http.MethodGet, "/api/exceptions?limit=1", nil)
	rec = httptest.NewRecorder()
	h.HandleList(rec, req)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	assert.Len(t, rows, 1)
}
