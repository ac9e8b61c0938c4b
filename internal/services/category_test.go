package services

import (
	"context"
	"testing"

	"cashbook/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, "user@example.com")
	other := env.user(t, "other@example.com")

	c, err := env.categories.Create(ctx, u.ID, core.Category{Name: "  Pets ", Kind: core.KindExpense})
	require.NoError(t, err)
	assert.Equal(t, "Pets", c.Name)
	assert.Equal(t, u.ID, c.UserID)

	_, err = env.categories.Create(ctx, u.ID, core.Category{Name: "pets", Kind: core.KindExpense})
	assert.ErrorIs(t, err, core.ErrConflict)

	// names are scoped per user
	_, err = env.categories.Create(ctx, other.ID, core.Category{Name: "Pets", Kind: core.KindExpense})
	assert.NoError(t, err)

	c.Name = "Animals"
	updated, err := env.categories.Update(ctx, u.ID, c)
	require.NoError(t, err)
	assert.Equal(t, "Animals", updated.Name)

	_, err = env.categories.Update(ctx, other.ID, c)
	assert.ErrorIs(t, err, core.ErrNotFound)

	list, err := env.categories.List(ctx, u.ID)
	require.NoError(t, err)
	names := make([]string, 0, len(list))
	for _, cat := range list {
		names = append(names, cat.Name)
	}
	assert.Contains(t, names, "Animals")
	assert.NotContains(t, names, "Pets")

	require.NoError(t, env.categories.Delete(ctx, u.ID, c.ID))
	assert.ErrorIs(t, env.categories.Delete(ctx, u.ID, c.ID), core.ErrNotFound)
}

func TestCategoryValidation(t *testing.T) {
	env := newTestEnv(t)
	u := env.user(t, "user@example.com")

	tests := []struct {
		name string
		cat  core.Category
		want error
	}{
		{"empty name", core.Category{Name: "  ", Kind: core.KindExpense}, core.ErrEmptyName},
		{"bad kind", core.Category{Name: "Pets", Kind: "other"}, core.ErrInvalidKind},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.categories.Create(context.Background(), u.ID, tt.cat)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, core.ErrValidation)
		})
	}
}

func TestSystemCategoriesAreReadOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, "user@example.com")
	sys := env.category(t, core.KindExpense)

	sys.Name = "Mine now"
	_, err := env.categories.Update(ctx, u.ID, sys)
	assert.ErrorIs(t, err, core.ErrForbidden)
	assert.ErrorIs(t, env.categories.Delete(ctx, u.ID, sys.ID), core.ErrForbidden)
}

func TestDeleteCategoryInUse(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, "user@example.com")

	c, err := env.categories.Create(ctx, u.ID, core.Category{Name: "Pets", Kind: core.KindExpense})
	require.NoError(t, err)
	_, err = env.transactions.Create(ctx, u.ID, core.Transaction{
		Type:       core.Expense,
		Amount:     money(t, "12.00"),
		CategoryID: c.ID,
		Date:       core.NewDate(2025, 3, 1),
	})
	require.NoError(t, err)

	assert.ErrorIs(t, env.categories.Delete(ctx, u.ID, c.ID), core.ErrConflict)
}

func TestCategoryKindChangeMustFitUsage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, "user@example.com")

	c, err := env.categories.Create(ctx, u.ID, core.Category{Name: "Pets", Kind: core.KindExpense})
	require.NoError(t, err)

	// unused categories change kind freely
	c.Kind = core.KindIncome
	c, err = env.categories.Update(ctx, u.ID, c)
	require.NoError(t, err)
	c.Kind = core.KindExpense
	c, err = env.categories.Update(ctx, u.ID, c)
	require.NoError(t, err)

	_, err = env.transactions.Create(ctx, u.ID, core.Transaction{
		Type:       core.Expense,
		Amount:     money(t, "12.00"),
		CategoryID: c.ID,
		Date:       core.NewDate(2025, 3, 1),
	})
	require.NoError(t, err)

	c.Kind = core.KindIncome
	_, err = env.categories.Update(ctx, u.ID, c)
	assert.ErrorIs(t, err, core.ErrConflict)

	got, err := env.repo.GetCategory(ctx, u.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, core.KindExpense, got.Kind)

	// widening keeps every row valid
	c.Kind = core.KindBoth
	_, err = env.categories.Update(ctx, u.ID, c)
	require.NoError(t, err)
}

func TestCategoryKindChangeBlockedByBudget(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, "user@example.com")

	c, err := env.categories.Create(ctx, u.ID, core.Category{Name: "Pets", Kind: core.KindExpense})
	require.NoError(t, err)
	_, err = env.budgets.Create(ctx, u.ID, core.Budget{CategoryID: c.ID, Limit: money(t, "100"), Period: core.Monthly})
	require.NoError(t, err)

	c.Kind = core.KindIncome
	_, err = env.categories.Update(ctx, u.ID, c)
	assert.ErrorIs(t, err, core.ErrConflict)
}

func TestCategoryLookupStorageFailureIsNotValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, "user@example.com")
	cat := env.category(t, core.KindExpense)

	_, err := env.transactions.Create(ctx, u.ID, core.Transaction{
		Type: core.Expense, Amount: money(t, "1"), CategoryID: 9999, Date: core.NewDate(2025, 3, 1),
	})
	assert.ErrorIs(t, err, core.ErrValidation)

	require.NoError(t, env.repo.Close())
	_, err = env.transactions.Create(ctx, u.ID, core.Transaction{
		Type: core.Expense, Amount: money(t, "1"), CategoryID: cat.ID, Date: core.NewDate(2025, 3, 1),
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, core.ErrValidation)
}
