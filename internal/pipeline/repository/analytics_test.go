package repository_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stockpulse/stockpulse-backend/internal/pipeline/repository"
	"github.com/stockpulse/stockpulse-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Analytics Repository Tests ---

func TestAnalyticsRepository_LocationSummaries(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()
	schema := suite.SetupSchema(t, ctx, "analytics-locations", repository.Migrations())
	healthRepo := repository.NewHealthRepository(schema.DB)
	reorderRepo := repository.NewReorderRepository(schema.DB)
	repo := repository.NewAnalyticsRepository(schema.DB)

	critical := healthRecord("Chennai Central", "Paracetamol 500mg", "CRITICAL", testutil.PtrFloat(2))
	critical.HealthScore = 40
	healthy := healthRecord("Chennai Central", "Ibuprofen 400mg", "HEALTHY", testutil.PtrFloat(40))
	healthy.HealthScore = 100
	dry := healthRecord("Mumbai West", "Insulin Glargine", "OUT_OF_STOCK", testutil.PtrFloat(0))
	dry.HealthScore = 0
	require.NoError(t, healthRepo.ReplaceAll(ctx, []repository.HealthRecord{critical, healthy, dry}))

	require.NoError(t, reorderRepo.ReplaceAll(ctx, []repository.ReorderRecommendation{
		recommendation("Chennai Central", "Paracetamol 500mg", "HIGH", testutil.PtrFloat(2), 280, "1400.50"),
		recommendation("Chennai Central", "Amoxicillin 250mg", "MEDIUM", testutil.PtrFloat(4), 150, "675.25"),
	}))

	summaries, err := repo.LocationSummaries(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	// Worst average health first.
	mumbai := summaries[0]
	assert.Equal(t, "Mumbai West", mumbai.Location)
	assert.Equal(t, 1, mumbai.ItemsTracked)
	assert.Equal(t, 1, mumbai.OutOfStock)
	assert.Equal(t, 0, mumbai.Critical)
	assert.InDelta(t, 0.0, mumbai.AvgHealthScore, 0.0001)
	assert.True(t, decimal.Zero.Equal(mumbai.PendingReorderCost), "no pending reorders, got %s", mumbai.PendingReorderCost)

	chennai := summaries[1]
	assert.Equal(t, "Chennai Central", chennai.Location)
	assert.Equal(t, 2, chennai.ItemsTracked)
	assert.Equal(t, 0, chennai.OutOfStock)
	assert.Equal(t, 1, chennai.Critical)
	assert.Equal(t, 1, chennai.Healthy)
	assert.InDelta(t, 70.0, chennai.AvgHealthScore, 0.0001)
	assert.True(t, decimal.RequireFromString("2075.75").Equal(chennai.PendingReorderCost), "got %s", chennai.PendingReorderCost)
}

func TestAnalyticsRepository_ItemPerformances(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()
	schema := suite.SetupSchema(t, ctx, "analytics-items", repository.Migrations())
	movements := repository.NewMovementRepository(schema.DB)
	statsRepo := repository.NewStatsRepository(schema.DB)
	healthRepo := repository.NewHealthRepository(schema.DB)
	repo := repository.NewAnalyticsRepository(schema.DB)

	end := day(2025, 6, 5)
	for _, series := range [][]testutil.MovementFixture{
		suite.Fixtures.MovementSeries("Chennai Central", "Paracetamol 500mg", 2, 100, 10, end),
		suite.Fixtures.MovementSeries("Mumbai West", "Paracetamol 500mg", 2, 200, 20, end),
		suite.Fixtures.MovementSeries("Chennai Central", "Insulin Glargine", 2, 60, 5, end),
	} {
		for _, fx := range series {
			insertMovement(t, ctx, movements, fx)
		}
	}
	_, err := statsRepo.Rebuild(ctx, day(2025, 6, 1))
	require.NoError(t, err)

	require.NoError(t, healthRepo.ReplaceAll(ctx, []repository.HealthRecord{
		healthRecord("Chennai Central", "Paracetamol 500mg", "CRITICAL", testutil.PtrFloat(2)),
		healthRecord("Mumbai West", "Paracetamol 500mg", "OUT_OF_STOCK", testutil.PtrFloat(0)),
		healthRecord("Chennai Central", "Insulin Glargine", "HEALTHY", testutil.PtrFloat(40)),
	}))

	items, err := repo.ItemPerformances(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)

	para := items[0]
	assert.Equal(t, "Paracetamol 500mg", para.ItemName, "worst status first")
	assert.Equal(t, 2, para.LocationsTracked)
	assert.InDelta(t, 60.0, para.TotalUsage, 0.0001)
	assert.InDelta(t, 15.0, para.AvgDailyUsage, 0.0001)
	assert.Equal(t, 1, para.StockoutLocations)
	assert.Equal(t, "OUT_OF_STOCK", para.WorstStatus)

	insulin := items[1]
	assert.Equal(t, "Insulin Glargine", insulin.ItemName)
	assert.Equal(t, 1, insulin.LocationsTracked)
	assert.InDelta(t, 10.0, insulin.TotalUsage, 0.0001)
	assert.InDelta(t, 5.0, insulin.AvgDailyUsage, 0.0001)
	assert.Equal(t, 0, insulin.StockoutLocations)
	assert.Equal(t, "HEALTHY", insulin.WorstStatus)
}
