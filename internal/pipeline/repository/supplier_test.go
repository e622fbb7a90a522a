package repository_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stockpulse/stockpulse-backend/internal/pipeline/repository"
	"github.com/stockpulse/stockpulse-backend/pkg/errors"
	"github.com/stockpulse/stockpulse-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper to register a supplier from a fixture.
func upsertSupplier(t *testing.T, ctx context.Context, repo *repository.SupplierRepository, fx testutil.SupplierFixture) *repository.Supplier {
	t.Helper()
	s := &repository.Supplier{
		SupplierID:       fx.SupplierID,
		Name:             fx.Name,
		ItemName:         fx.ItemName,
		AvgLeadTimeDays:  fx.LeadTimeDays,
		ReliabilityScore: fx.Reliability,
		UnitPrice:        fx.UnitPrice,
		IsActive:         true,
	}
	require.NoError(t, repo.Upsert(ctx, s))
	return s
}

// --- Supplier Repository Tests ---

func TestSupplierRepository_Upsert_Create(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()
	schema := suite.SetupSchema(t, ctx, "supplier-create", repository.Migrations())
	repo := repository.NewSupplierRepository(schema.DB)

	delivered := day(2025, 5, 28)
	s := &repository.Supplier{
		SupplierID:       "SUP-0001",
		Name:             "MedSupply Nord",
		ItemName:         "Insulin Glargine",
		AvgLeadTimeDays:  3,
		ReliabilityScore: 95,
		UnitPrice:        decimal.RequireFromString("850.00"),
		ContactEmail:     testutil.PtrString("orders@medsupply.example"),
		Phone:            testutil.PtrString("+91 44 2345 6789"),
		LastDeliveryDate: &delivered,
		TotalOrders:      42,
		OnTimeDeliveries: 40,
		IsActive:         true,
	}
	require.NoError(t, repo.Upsert(ctx, s))
	assert.False(t, s.CreatedAt.IsZero())
	assert.False(t, s.UpdatedAt.IsZero())

	got, err := repo.Get(ctx, "SUP-0001")
	require.NoError(t, err)
	assert.Equal(t, "MedSupply Nord", got.Name)
	assert.Equal(t, "Insulin Glargine", got.ItemName)
	assert.Equal(t, 3, got.AvgLeadTimeDays)
	assert.Equal(t, 95.0, got.ReliabilityScore)
	assert.True(t, decimal.RequireFromString("850.00").Equal(got.UnitPrice))
	require.NotNil(t, got.ContactEmail)
	assert.Equal(t, "orders@medsupply.example", *got.ContactEmail)
	require.NotNil(t, got.LastDeliveryDate)
	assert.Equal(t, "2025-05-28", got.LastDeliveryDate.Format("2006-01-02"))
	assert.Equal(t, 42, got.TotalOrders)
	assert.Equal(t, 40, got.OnTimeDeliveries)
	assert.True(t, got.IsActive)
}

func TestSupplierRepository_Upsert_FullReplace(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()
	schema := suite.SetupSchema(t, ctx, "supplier-replace", repository.Migrations())
	repo := repository.NewSupplierRepository(schema.DB)

	first := &repository.Supplier{
		SupplierID:       "SUP-0001",
		Name:             "MedSupply Nord",
		ItemName:         "Insulin Glargine",
		AvgLeadTimeDays:  3,
		ReliabilityScore: 95,
		UnitPrice:        decimal.RequireFromString("850.00"),
		ContactEmail:     testutil.PtrString("orders@medsupply.example"),
		IsActive:         true,
	}
	require.NoError(t, repo.Upsert(ctx, first))

	// Same id again with a sparser payload: the entry is replaced, not
	// merged, so the omitted email goes away.
	second := &repository.Supplier{
		SupplierID:       "SUP-0001",
		Name:             "MedSupply Nord GmbH",
		ItemName:         "Insulin Glargine",
		AvgLeadTimeDays:  2,
		ReliabilityScore: 97,
		UnitPrice:        decimal.RequireFromString("820.00"),
		IsActive:         false,
	}
	require.NoError(t, repo.Upsert(ctx, second))
	assert.True(t, second.CreatedAt.Equal(first.CreatedAt), "created_at survives the replace")

	got, err := repo.Get(ctx, "SUP-0001")
	require.NoError(t, err)
	assert.Equal(t, "MedSupply Nord GmbH", got.Name)
	assert.Equal(t, 2, got.AvgLeadTimeDays)
	assert.Equal(t, 97.0, got.ReliabilityScore)
	assert.True(t, decimal.RequireFromString("820.00").Equal(got.UnitPrice))
	assert.Nil(t, got.ContactEmail)
	assert.False(t, got.IsActive)
	assert.True(t, got.UpdatedAt.After(got.CreatedAt))

	_, total, err := repo.List(ctx, "", false, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestSupplierRepository_Upsert_RejectsOutOfRangeReliability(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()
	schema := suite.SetupSchema(t, ctx, "supplier-invalid", repository.Migrations())
	repo := repository.NewSupplierRepository(schema.DB)

	s := &repository.Supplier{
		SupplierID:       "SUP-0001",
		Name:             "Flaky Vendor",
		ItemName:         "Paracetamol 500mg",
		AvgLeadTimeDays:  3,
		ReliabilityScore: 120,
		UnitPrice:        decimal.RequireFromString("2.10"),
		IsActive:         true,
	}
	err := repo.Upsert(ctx, s)
	require.Error(t, err)

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
	assert.Equal(t, "must be between 0 and 100", appErr.Details["reliability_score"])
}

func TestSupplierRepository_List(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()
	schema := suite.SetupSchema(t, ctx, "supplier-list", repository.Migrations())
	repo := repository.NewSupplierRepository(schema.DB)

	for _, fx := range testutil.DefaultTestSuppliers(suite.Fixtures, "Insulin Glargine") {
		upsertSupplier(t, ctx, repo, fx)
	}
	inactive := upsertSupplier(t, ctx, repo, suite.Fixtures.Supplier(
		testutil.WithSupplierItem("Paracetamol 500mg"),
		testutil.WithSupplierName("Dormant Trading"),
	))
	inactive.IsActive = false
	require.NoError(t, repo.Upsert(ctx, inactive))

	suppliers, total, err := repo.List(ctx, "", false, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Len(t, suppliers, 4)

	suppliers, total, err = repo.List(ctx, "Insulin Glargine", false, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	for _, s := range suppliers {
		assert.Equal(t, "Insulin Glargine", s.ItemName)
	}

	suppliers, total, err = repo.List(ctx, "", true, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	for _, s := range suppliers {
		assert.True(t, s.IsActive)
	}

	suppliers, total, err = repo.List(ctx, "", false, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Len(t, suppliers, 2)
}

func TestSupplierRepository_Get_NotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()
	schema := suite.SetupSchema(t, ctx, "supplier-missing", repository.Migrations())
	repo := repository.NewSupplierRepository(schema.DB)

	_, err := repo.Get(ctx, "SUP-9999")
	require.Error(t, err)
	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "NOT_FOUND", appErr.Code)
}

func TestSupplierRepository_ActiveByItems(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()
	schema := suite.SetupSchema(t, ctx, "supplier-active", repository.Migrations())
	repo := repository.NewSupplierRepository(schema.DB)

	for _, fx := range testutil.DefaultTestSuppliers(suite.Fixtures, "Insulin Glargine") {
		upsertSupplier(t, ctx, repo, fx)
	}
	upsertSupplier(t, ctx, repo, suite.Fixtures.Supplier(testutil.WithSupplierItem("Paracetamol 500mg")))
	upsertSupplier(t, ctx, repo, suite.Fixtures.Supplier(testutil.WithSupplierItem("Amoxicillin 250mg")))

	retired := upsertSupplier(t, ctx, repo, suite.Fixtures.Supplier(testutil.WithSupplierItem("Insulin Glargine")))
	retired.IsActive = false
	require.NoError(t, repo.Upsert(ctx, retired))

	suppliers, err := repo.ActiveByItems(ctx, []string{"Insulin Glargine", "Paracetamol 500mg"})
	require.NoError(t, err)
	require.Len(t, suppliers, 4, "three insulin vendors plus one paracetamol vendor")
	for _, s := range suppliers {
		assert.True(t, s.IsActive)
		assert.NotEqual(t, retired.SupplierID, s.SupplierID)
		assert.NotEqual(t, "Amoxicillin 250mg", s.ItemName)
	}
	// Grouped by item, then id.
	assert.Equal(t, "Insulin Glargine", suppliers[0].ItemName)
	assert.Equal(t, "Paracetamol 500mg", suppliers[3].ItemName)

	suppliers, err = repo.ActiveByItems(ctx, []string{"No Such Item"})
	require.NoError(t, err)
	assert.Empty(t, suppliers)
}
