package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/KatTate/katalyst-franchise-planner/internal/plan"
	"github.com/KatTate/katalyst-franchise-planner/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := OpenDB(MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestPlanRepo_CreateAndGet(t *testing.T) {
	repo := NewSQLitePlanRepo(newTestDB(t))
	ctx := context.Background()

	p := testutil.NewPlan("plan-1")
	require.NoError(t, repo.Create(ctx, &p))

	got, err := repo.Get(ctx, "plan-1")
	require.NoError(t, err)
	assert.Equal(t, p.Name, got.Name)
	assert.Equal(t, p.BrandID, got.BrandID)
	assert.Equal(t, p.FinancialInputs, got.FinancialInputs)
	assert.Equal(t, p.StartupCosts, got.StartupCosts)
	require.NotNil(t, got.StartDate)
	assert.True(t, p.StartDate.Equal(*got.StartDate))
	assert.True(t, p.CreatedAt.Equal(got.CreatedAt))
}

func TestPlanRepo_GetNotFound(t *testing.T) {
	repo := NewSQLitePlanRepo(newTestDB(t))
	_, err := repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrPlanNotFound)
}

func TestPlanRepo_CreateDuplicate(t *testing.T) {
	repo := NewSQLitePlanRepo(newTestDB(t))
	ctx := context.Background()

	p := testutil.NewPlan("plan-1")
	require.NoError(t, repo.Create(ctx, &p))
	assert.Error(t, repo.Create(ctx, &p))
}

func TestPlanRepo_UpdateKeepsStartupCosts(t *testing.T) {
	repo := NewSQLitePlanRepo(newTestDB(t))
	ctx := context.Background()

	p := testutil.NewPlan("plan-1")
	require.NoError(t, repo.Create(ctx, &p))

	at := time.Date(2026, 10, 14, 8, 0, 0, 123456789, time.UTC)
	ref := plan.Ref(plan.CategoryRevenue, "monthlyAuv")
	field, _ := p.FinancialInputs.Field(ref)
	updated, err := p.FinancialInputs.WithField(ref, plan.UpdateFieldValue(field, 5000000, at))
	require.NoError(t, err)

	p.Name = "Downtown"
	p.StartDate = nil
	p.FinancialInputs = updated
	p.StartupCosts = nil
	p.UpdatedAt = at
	require.NoError(t, repo.Update(ctx, &p))

	got, err := repo.Get(ctx, "plan-1")
	require.NoError(t, err)
	assert.Equal(t, "Downtown", got.Name)
	assert.Nil(t, got.StartDate)
	assert.True(t, at.Equal(got.UpdatedAt), "sub-second precision survives")

	gotField, _ := got.FinancialInputs.Field(ref)
	assert.Equal(t, 5000000.0, gotField.CurrentValue)
	assert.Equal(t, plan.SourceUserOverride, gotField.Source)
	require.NotNil(t, gotField.LastModifiedAt)
	assert.True(t, at.Equal(*gotField.LastModifiedAt))

	assert.Len(t, got.StartupCosts, 4, "Update never touches startup costs")
}

func TestPlanRepo_UpdateMissing(t *testing.T) {
	repo := NewSQLitePlanRepo(newTestDB(t))
	p := testutil.NewPlan("ghost")
	assert.ErrorIs(t, repo.Update(context.Background(), &p), ErrPlanNotFound)
}

func TestPlanRepo_ReplaceStartupCosts(t *testing.T) {
	repo := NewSQLitePlanRepo(newTestDB(t))
	ctx := context.Background()

	p := testutil.NewPlan("plan-1")
	require.NoError(t, repo.Create(ctx, &p))

	items := []plan.StartupCostLineItem{{ID: "sign", Label: "Signage", Amount: 750000, IsCustom: true}}
	require.NoError(t, repo.ReplaceStartupCosts(ctx, "plan-1", items, time.Now()))

	got, err := repo.Get(ctx, "plan-1")
	require.NoError(t, err)
	assert.Equal(t, items, got.StartupCosts)
	assert.Equal(t, p.FinancialInputs, got.FinancialInputs)

	require.NoError(t, repo.ReplaceStartupCosts(ctx, "plan-1", nil, time.Now()))
	got, err = repo.Get(ctx, "plan-1")
	require.NoError(t, err)
	assert.Empty(t, got.StartupCosts)

	assert.ErrorIs(t, repo.ReplaceStartupCosts(ctx, "nope", items, time.Now()), ErrPlanNotFound)
}

func TestPlanRepo_ListAndDelete(t *testing.T) {
	repo := NewSQLitePlanRepo(newTestDB(t))
	ctx := context.Background()

	for i, id := range []string{"b", "a"} {
		p := testutil.NewPlan(id)
		p.CreatedAt = p.CreatedAt.Add(time.Duration(i) * time.Hour)
		require.NoError(t, repo.Create(ctx, &p))
	}

	plans, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, "b", plans[0].ID, "ordered by creation")

	require.NoError(t, repo.Delete(ctx, "b"))
	assert.ErrorIs(t, repo.Delete(ctx, "b"), ErrPlanNotFound)

	plans, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, plans, 1)
}

func TestOpenDB_FileCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "planner.db")
	db, err := OpenDB(path)
	require.NoError(t, err)
	defer db.Close()

	repo := NewSQLitePlanRepo(db)
	p := testutil.NewPlan("plan-1")
	require.NoError(t, repo.Create(context.Background(), &p))
	require.NoError(t, Migrate(db), "migrations are idempotent")
}
