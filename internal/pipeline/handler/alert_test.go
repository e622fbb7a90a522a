package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stockpulse/stockpulse-backend/internal/pipeline/handler"
	"github.com/stockpulse/stockpulse-backend/internal/pipeline/repository"
	"github.com/stockpulse/stockpulse-backend/internal/pipeline/service"
	"github.com/stockpulse/stockpulse-backend/pkg/config"
	"github.com/stockpulse/stockpulse-backend/pkg/httputil"
	"github.com/stockpulse/stockpulse-backend/pkg/logger"
	"github.com/stockpulse/stockpulse-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAlertRouter(schema *testutil.TestSchema) *chi.Mux {
	healthRepo := repository.NewHealthRepository(schema.DB)
	reorderRepo := repository.NewReorderRepository(schema.DB)
	alertRepo := repository.NewAlertRepository(schema.DB)
	runRepo := repository.NewRunRepository(schema.DB)
	log := logger.New("test", "test")

	dispatcher := service.NewAlertDispatcher(
		healthRepo, reorderRepo, alertRepo, runRepo,
		nil, // locker unused: the HTTP surface never starts dispatch runs
		nil, // no event publisher needed for handler tests
		config.AlertsConfig{DedupWindow: 24 * time.Hour},
		log,
	)
	h := handler.NewAlertHandler(dispatcher, log)

	r := chi.NewRouter()
	r.Get("/api/v1/alerts", h.List)
	r.Get("/api/v1/alerts/summary", h.Summary)
	r.Get("/api/v1/alerts/{id}", h.Get)
	r.Post("/api/v1/alerts/{id}/acknowledge", h.Acknowledge)
	return r
}

// seedAlert creates one pending alert directly through the repository.
func seedAlert(t *testing.T, ctx context.Context, schema *testutil.TestSchema, location, item, alertType string) *repository.AlertRecord {
	t.Helper()
	repo := repository.NewAlertRepository(schema.DB)
	rec := &repository.AlertRecord{
		Location:       location,
		ItemName:       item,
		AlertType:      alertType,
		Message:        alertType + ": " + item + " at " + location,
		DaysLeft:       testutil.PtrFloat(2.5),
		RecommendedQty: 100,
	}
	created, err := repo.CreateIfAbsent(ctx, rec, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	require.True(t, created)
	return rec
}

// --- List Tests ---

func TestAlertList_FiltersAndOrder(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()
	schema := suite.SetupSchema(t, ctx, "handler-alerts-list", repository.Migrations())

	seedAlert(t, ctx, schema, "Chennai Central", "Insulin Glargine", "OUT_OF_STOCK")
	seedAlert(t, ctx, schema, "Chennai Central", "Paracetamol 500mg", "CRITICAL")
	warning := seedAlert(t, ctx, schema, "Mumbai Central", "ORS Sachets", "WARNING")
	_, err := repository.NewAlertRepository(schema.DB).Acknowledge(ctx, warning.ID, "ops@stockpulse.io")
	require.NoError(t, err)

	r := newAlertRouter(schema)

	req := httptest.NewRequest("GET", "/api/v1/alerts", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code, "unexpected status code. Body: %s", rr.Body.String())

	var resp struct {
		Success bool                     `json:"success"`
		Data    []repository.AlertRecord `json:"data"`
		Meta    *httputil.Meta           `json:"meta"`
	}
	err = json.Unmarshal(rr.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(3), resp.Meta.Total)
	require.Len(t, resp.Data, 3)
	assert.Equal(t, "OUT_OF_STOCK", resp.Data[0].AlertType, "most severe type first")

	req = httptest.NewRequest("GET", "/api/v1/alerts?type=CRITICAL", nil)
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "Paracetamol 500mg", resp.Data[0].ItemName)

	req = httptest.NewRequest("GET", "/api/v1/alerts?acknowledged=false", nil)
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 2)

	req = httptest.NewRequest("GET", "/api/v1/alerts?location=Mumbai%20Central", nil)
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "ORS Sachets", resp.Data[0].ItemName)
}

// --- Get Tests ---

func TestAlertGet_InvalidID(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()
	schema := suite.SetupSchema(t, ctx, "handler-alerts-badid", repository.Migrations())

	r := newAlertRouter(schema)

	req := httptest.NewRequest("GET", "/api/v1/alerts/not-a-number", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code, "expected 400 for non-numeric id. Body: %s", rr.Body.String())

	var resp httputil.Response
	err := json.Unmarshal(rr.Body.Bytes(), &resp)
	require.NoError(t, err)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "BAD_REQUEST", resp.Error.Code)
	assert.Equal(t, "alert id must be numeric", resp.Error.Message)
}

func TestAlertGet_NotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()
	schema := suite.SetupSchema(t, ctx, "handler-alerts-nf", repository.Migrations())

	r := newAlertRouter(schema)

	req := httptest.NewRequest("GET", "/api/v1/alerts/424242", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code, "expected 404 for unknown alert. Body: %s", rr.Body.String())

	var resp httputil.Response
	err := json.Unmarshal(rr.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
}

// --- Acknowledge Tests ---

func TestAlertAcknowledge(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()
	schema := suite.SetupSchema(t, ctx, "handler-alerts-ack", repository.Migrations())

	rec := seedAlert(t, ctx, schema, "Chennai Central", "Insulin Glargine", "OUT_OF_STOCK")

	r := newAlertRouter(schema)

	req := httptest.NewRequest("POST", fmt.Sprintf("/api/v1/alerts/%d/acknowledge", rec.ID), nil)
	req.Header.Set("X-User-ID", "ops@stockpulse.io")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code, "unexpected status code. Body: %s", rr.Body.String())

	var resp struct {
		Success bool                   `json:"success"`
		Data    repository.AlertRecord `json:"data"`
	}
	err := json.Unmarshal(rr.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, rec.ID, resp.Data.ID)
	assert.True(t, resp.Data.Acknowledged)
	require.NotNil(t, resp.Data.AcknowledgedBy)
	assert.Equal(t, "ops@stockpulse.io", *resp.Data.AcknowledgedBy)
	assert.NotNil(t, resp.Data.AcknowledgedAt)
}

func TestAlertAcknowledge_Conflict(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()
	schema := suite.SetupSchema(t, ctx, "handler-alerts-ack2", repository.Migrations())

	rec := seedAlert(t, ctx, schema, "Chennai Central", "Paracetamol 500mg", "CRITICAL")

	r := newAlertRouter(schema)
	path := fmt.Sprintf("/api/v1/alerts/%d/acknowledge", rec.ID)

	req := httptest.NewRequest("POST", path, nil)
	req.Header.Set("X-User-ID", "ops@stockpulse.io")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, "first acknowledge should succeed. Body: %s", rr.Body.String())

	req = httptest.NewRequest("POST", path, nil)
	req.Header.Set("X-User-ID", "night-shift@stockpulse.io")
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusConflict, rr.Code, "expected 409 on second acknowledge. Body: %s", rr.Body.String())

	var resp httputil.Response
	err := json.Unmarshal(rr.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "CONFLICT", resp.Error.Code)
}

// --- Summary Tests ---

func TestAlertSummary(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()
	schema := suite.SetupSchema(t, ctx, "handler-alerts-summary", repository.Migrations())

	seedAlert(t, ctx, schema, "Chennai Central", "Insulin Glargine", "OUT_OF_STOCK")
	critical := seedAlert(t, ctx, schema, "Chennai Central", "Paracetamol 500mg", "CRITICAL")
	_, err := repository.NewAlertRepository(schema.DB).Acknowledge(ctx, critical.ID, "ops@stockpulse.io")
	require.NoError(t, err)

	r := newAlertRouter(schema)

	req := httptest.NewRequest("GET", "/api/v1/alerts/summary?days=30", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code, "unexpected status code. Body: %s", rr.Body.String())

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			WindowDays int                          `json:"window_days"`
			ByType     []repository.AlertSummaryRow `json:"by_type"`
		} `json:"data"`
	}
	err = json.Unmarshal(rr.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, 30, resp.Data.WindowDays)

	require.Len(t, resp.Data.ByType, 2)
	assert.Equal(t, "OUT_OF_STOCK", resp.Data.ByType[0].AlertType)
	assert.Equal(t, 1, resp.Data.ByType[0].Pending)
	assert.Equal(t, "CRITICAL", resp.Data.ByType[1].AlertType)
	assert.Equal(t, 1, resp.Data.ByType[1].Acknowledged)
	assert.Equal(t, 0, resp.Data.ByType[1].Pending)
}
