package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stockpulse/stockpulse-backend/internal/pipeline/repository"
	"github.com/stockpulse/stockpulse-backend/pkg/errors"
	"github.com/stockpulse/stockpulse-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func healthRecord(location, item, status string, daysLeft *float64) repository.HealthRecord {
	return repository.HealthRecord{
		Location:          location,
		ItemName:          item,
		CurrentStock:      50,
		AvgDailyUsage:     10,
		LeadTimeDays:      3,
		SafetyStock:       60,
		DaysUntilStockout: daysLeft,
		StockStatus:       status,
		HealthScore:       83,
		CalculatedAt:      time.Now().UTC(),
	}
}

// --- Health Repository Tests ---

func TestHealthRepository_ReplaceAll_SwapsContents(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()
	schema := suite.SetupSchema(t, ctx, "health-replace", repository.Migrations())
	repo := repository.NewHealthRepository(schema.DB)

	err := repo.ReplaceAll(ctx, []repository.HealthRecord{
		healthRecord("Chennai Central", "Paracetamol 500mg", "LOW", testutil.PtrFloat(5)),
		healthRecord("Mumbai West", "Amoxicillin 250mg", "HEALTHY", testutil.PtrFloat(30)),
	})
	require.NoError(t, err)

	_, total, err := repo.List(ctx, "", "", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	// The next refresh replaces everything from the previous one.
	err = repo.ReplaceAll(ctx, []repository.HealthRecord{
		healthRecord("Chennai Central", "Insulin Glargine", "CRITICAL", testutil.PtrFloat(1.5)),
	})
	require.NoError(t, err)

	records, total, err := repo.List(ctx, "", "", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, records, 1)
	assert.Equal(t, "Insulin Glargine", records[0].ItemName)

	_, err = repo.Get(ctx, "Chennai Central", "Paracetamol 500mg")
	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "NOT_FOUND", appErr.Code)
}

func TestHealthRepository_List_WorstFirst(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()
	schema := suite.SetupSchema(t, ctx, "health-order", repository.Migrations())
	repo := repository.NewHealthRepository(schema.DB)

	err := repo.ReplaceAll(ctx, []repository.HealthRecord{
		healthRecord("Chennai Central", "Paracetamol 500mg", "HEALTHY", testutil.PtrFloat(45)),
		healthRecord("Chennai Central", "Amoxicillin 250mg", "CRITICAL", nil),
		healthRecord("Mumbai West", "Insulin Glargine", "CRITICAL", testutil.PtrFloat(1.5)),
		healthRecord("Chennai Central", "ORS Sachets", "OUT_OF_STOCK", testutil.PtrFloat(0)),
		healthRecord("Mumbai West", "Ibuprofen 400mg", "WARNING", testutil.PtrFloat(4)),
	})
	require.NoError(t, err)

	records, total, err := repo.List(ctx, "", "", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, records, 5)

	assert.Equal(t, "ORS Sachets", records[0].ItemName)
	// Within a status, fewest days first; unknown stockout horizons sort last.
	assert.Equal(t, "Insulin Glargine", records[1].ItemName)
	assert.Equal(t, "Amoxicillin 250mg", records[2].ItemName)
	assert.Equal(t, "Ibuprofen 400mg", records[3].ItemName)
	assert.Equal(t, "Paracetamol 500mg", records[4].ItemName)
}

func TestHealthRepository_List_Filters(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()
	schema := suite.SetupSchema(t, ctx, "health-filters", repository.Migrations())
	repo := repository.NewHealthRepository(schema.DB)

	err := repo.ReplaceAll(ctx, []repository.HealthRecord{
		healthRecord("Chennai Central", "Paracetamol 500mg", "CRITICAL", testutil.PtrFloat(2)),
		healthRecord("Chennai Central", "Ibuprofen 400mg", "HEALTHY", testutil.PtrFloat(40)),
		healthRecord("Mumbai West", "Paracetamol 500mg", "CRITICAL", testutil.PtrFloat(1)),
	})
	require.NoError(t, err)

	records, total, err := repo.List(ctx, "CRITICAL", "", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	for _, rec := range records {
		assert.Equal(t, "CRITICAL", rec.StockStatus)
	}

	records, total, err = repo.List(ctx, "", "Chennai Central", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, records, 2)

	records, total, err = repo.List(ctx, "CRITICAL", "Mumbai West", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, records, 1)
	assert.Equal(t, "Mumbai West", records[0].Location)

	records, total, err = repo.List(ctx, "", "", 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, records, 1)
}

func TestHealthRepository_ByStatuses(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()
	schema := suite.SetupSchema(t, ctx, "health-statuses", repository.Migrations())
	repo := repository.NewHealthRepository(schema.DB)

	err := repo.ReplaceAll(ctx, []repository.HealthRecord{
		healthRecord("Chennai Central", "Paracetamol 500mg", "HEALTHY", testutil.PtrFloat(45)),
		healthRecord("Chennai Central", "Insulin Glargine", "OUT_OF_STOCK", testutil.PtrFloat(0)),
		healthRecord("Mumbai West", "Amoxicillin 250mg", "CRITICAL", testutil.PtrFloat(2)),
		healthRecord("Mumbai West", "Ibuprofen 400mg", "LOW", testutil.PtrFloat(6)),
	})
	require.NoError(t, err)

	// The dispatcher only pulls alertable statuses.
	records, err := repo.ByStatuses(ctx, []string{"OUT_OF_STOCK", "CRITICAL", "WARNING"})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "OUT_OF_STOCK", records[0].StockStatus)
	assert.Equal(t, "CRITICAL", records[1].StockStatus)

	records, err = repo.ByStatuses(ctx, []string{"LOW"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Ibuprofen 400mg", records[0].ItemName)
}

func TestHealthRepository_Get(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()
	schema := suite.SetupSchema(t, ctx, "health-get", repository.Migrations())
	repo := repository.NewHealthRepository(schema.DB)

	want := healthRecord("Chennai Central", "Insulin Glargine", "CRITICAL", testutil.PtrFloat(1.5))
	err := repo.ReplaceAll(ctx, []repository.HealthRecord{want})
	require.NoError(t, err)

	got, err := repo.Get(ctx, "Chennai Central", "Insulin Glargine")
	require.NoError(t, err)
	assert.Equal(t, want.CurrentStock, got.CurrentStock)
	assert.Equal(t, want.AvgDailyUsage, got.AvgDailyUsage)
	assert.Equal(t, want.LeadTimeDays, got.LeadTimeDays)
	assert.Equal(t, want.SafetyStock, got.SafetyStock)
	require.NotNil(t, got.DaysUntilStockout)
	assert.InDelta(t, 1.5, *got.DaysUntilStockout, 0.0001)
	assert.Equal(t, "CRITICAL", got.StockStatus)
	assert.Equal(t, 83, got.HealthScore)

	_, err = repo.Get(ctx, "Chennai Central", "No Such Item")
	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "NOT_FOUND", appErr.Code)
}

func TestHealthRepository_StatusCounts(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()
	schema := suite.SetupSchema(t, ctx, "health-counts", repository.Migrations())
	repo := repository.NewHealthRepository(schema.DB)

	counts, err := repo.StatusCounts(ctx)
	require.NoError(t, err)
	assert.Empty(t, counts)

	err = repo.ReplaceAll(ctx, []repository.HealthRecord{
		healthRecord("Chennai Central", "Paracetamol 500mg", "HEALTHY", testutil.PtrFloat(45)),
		healthRecord("Chennai Central", "Ibuprofen 400mg", "HEALTHY", testutil.PtrFloat(60)),
		healthRecord("Mumbai West", "Insulin Glargine", "CRITICAL", testutil.PtrFloat(1.5)),
	})
	require.NoError(t, err)

	counts, err = repo.StatusCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"HEALTHY": 2, "CRITICAL": 1}, counts)
}
