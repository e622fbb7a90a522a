package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stockpulse/stockpulse-backend/internal/pipeline/repository"
	"github.com/stockpulse/stockpulse-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recommendation(location, item, priority string, daysLeft *float64, qty float64, cost string) repository.ReorderRecommendation {
	return repository.ReorderRecommendation{
		Location:          location,
		ItemName:          item,
		CurrentStock:      20,
		AvgDailyUsage:     10,
		DaysUntilStockout: daysLeft,
		ReorderQuantity:   qty,
		Priority:          priority,
		EstimatedCost:     decimal.RequireFromString(cost),
		CalculatedAt:      time.Now().UTC(),
	}
}

// --- Reorder Repository Tests ---

func TestReorderRepository_ReplaceAll_SwapsContents(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()
	schema := suite.SetupSchema(t, ctx, "reorder-replace", repository.Migrations())
	repo := repository.NewReorderRepository(schema.DB)

	err := repo.ReplaceAll(ctx, []repository.ReorderRecommendation{
		recommendation("Chennai Central", "Paracetamol 500mg", "MEDIUM", testutil.PtrFloat(4), 280, "1400.00"),
	})
	require.NoError(t, err)

	err = repo.ReplaceAll(ctx, []repository.ReorderRecommendation{
		recommendation("Mumbai West", "Insulin Glargine", "URGENT", testutil.PtrFloat(0), 300, "255000.00"),
		recommendation("Chennai Central", "Amoxicillin 250mg", "HIGH", testutil.PtrFloat(2), 150, "675.00"),
	})
	require.NoError(t, err)

	recs, err := repo.All(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "Insulin Glargine", recs[0].ItemName, "most urgent first")
	assert.Equal(t, "Amoxicillin 250mg", recs[1].ItemName)
	assert.True(t, decimal.RequireFromString("255000.00").Equal(recs[0].EstimatedCost))
}

func TestReorderRepository_List(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()
	schema := suite.SetupSchema(t, ctx, "reorder-list", repository.Migrations())
	repo := repository.NewReorderRepository(schema.DB)

	err := repo.ReplaceAll(ctx, []repository.ReorderRecommendation{
		recommendation("Chennai Central", "Paracetamol 500mg", "MEDIUM", testutil.PtrFloat(4), 280, "1400.00"),
		recommendation("Chennai Central", "Insulin Glargine", "URGENT", nil, 300, "255000.00"),
		recommendation("Mumbai West", "Amoxicillin 250mg", "URGENT", testutil.PtrFloat(0.5), 150, "675.00"),
		recommendation("Mumbai West", "Ibuprofen 400mg", "LOW", testutil.PtrFloat(8), 90, "270.00"),
	})
	require.NoError(t, err)

	recs, total, err := repo.List(ctx, "", "", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	require.Len(t, recs, 4)
	// URGENT first; within URGENT the known stockout horizon beats the unknown.
	assert.Equal(t, "Amoxicillin 250mg", recs[0].ItemName)
	assert.Equal(t, "Insulin Glargine", recs[1].ItemName)
	assert.Equal(t, "Paracetamol 500mg", recs[2].ItemName)
	assert.Equal(t, "Ibuprofen 400mg", recs[3].ItemName)

	recs, total, err = repo.List(ctx, "URGENT", "", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, recs, 2)

	recs, total, err = repo.List(ctx, "", "Mumbai West", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, recs, 2)

	recs, total, err = repo.List(ctx, "URGENT", "Chennai Central", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, recs, 1)
	assert.Equal(t, "Insulin Glargine", recs[0].ItemName)

	recs, total, err = repo.List(ctx, "", "", 3, 3)
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Len(t, recs, 1)
}

func TestReorderRepository_TotalEstimatedCost(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()
	schema := suite.SetupSchema(t, ctx, "reorder-total", repository.Migrations())
	repo := repository.NewReorderRepository(schema.DB)

	total, err := repo.TotalEstimatedCost(ctx)
	require.NoError(t, err)
	assert.True(t, decimal.Zero.Equal(total), "empty table sums to zero, got %s", total)

	err = repo.ReplaceAll(ctx, []repository.ReorderRecommendation{
		recommendation("Chennai Central", "Paracetamol 500mg", "MEDIUM", testutil.PtrFloat(4), 280, "1400.50"),
		recommendation("Mumbai West", "Insulin Glargine", "URGENT", testutil.PtrFloat(0), 300, "255000.25"),
	})
	require.NoError(t, err)

	total, err = repo.TotalEstimatedCost(ctx)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("256400.75").Equal(total), "got %s", total)
}
