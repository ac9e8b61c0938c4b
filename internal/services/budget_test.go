package services

import (
	"context"
	"strings"
	"testing"

	"cashbook/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBudgetValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, "user@example.com")
	incomeCat := env.category(t, core.KindIncome)
	expenseCat := env.category(t, core.KindExpense)

	_, err := env.budgets.Create(ctx, u.ID, core.Budget{CategoryID: incomeCat.ID, Limit: money(t, "100"), Period: core.Monthly})
	assert.ErrorIs(t, err, core.ErrInvalidKind)

	_, err = env.budgets.Create(ctx, u.ID, core.Budget{CategoryID: expenseCat.ID, Limit: money(t, "100"), Period: "daily"})
	assert.ErrorIs(t, err, core.ErrInvalidPeriod)

	b, err := env.budgets.Create(ctx, u.ID, core.Budget{CategoryID: expenseCat.ID, Limit: money(t, "100"), Period: core.Monthly})
	require.NoError(t, err)
	assert.Equal(t, core.DefaultAlertPercent, b.AlertPercent)

	_, err = env.budgets.Create(ctx, u.ID, core.Budget{CategoryID: expenseCat.ID, Limit: money(t, "50"), Period: core.Monthly})
	assert.ErrorIs(t, err, core.ErrConflict)
}

func TestBudgetStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, "user@example.com")
	cat := env.category(t, core.KindExpense)

	_, err := env.budgets.Create(ctx, u.ID, core.Budget{CategoryID: cat.ID, Limit: money(t, "100"), Period: core.Weekly})
	require.NoError(t, err)

	// testNow is Monday 2025-03-10; Sunday the 9th belongs to the previous week
	for _, day := range []int{9, 10, 16} {
		_, err := env.transactions.Create(ctx, u.ID, core.Transaction{
			Type: core.Expense, Amount: money(t, "30"), CategoryID: cat.ID, Date: core.NewDate(2025, 3, day),
		})
		require.NoError(t, err)
	}

	status, err := env.budgets.Status(ctx, u.ID, core.Date{})
	require.NoError(t, err)
	require.Len(t, status, 1)
	st := status[0]
	assert.Equal(t, "2025-03-10", st.From.String())
	assert.Equal(t, "2025-03-17", st.To.String())
	assert.Equal(t, int64(6000), st.Spent.Cents)
	assert.Equal(t, int64(4000), st.Remaining.Cents)
	assert.Equal(t, 60, st.Percent)
	assert.False(t, st.Over)
}

func TestBudgetThresholdAlerts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, "user@example.com")
	cat := env.category(t, core.KindExpense)

	b, err := env.budgets.Create(ctx, u.ID, core.Budget{CategoryID: cat.ID, Limit: money(t, "100"), Period: core.Monthly, AlertPercent: 80})
	require.NoError(t, err)

	spend := func(amount string) {
		t.Helper()
		_, err := env.transactions.Create(ctx, u.ID, core.Transaction{
			Type: core.Expense, Amount: money(t, amount), CategoryID: cat.ID, Date: core.NewDate(2025, 3, 5),
		})
		require.NoError(t, err)
	}
	alerts := func() []core.Notification {
		t.Helper()
		ns, err := env.repo.ListNotifications(ctx, u.ID, 0)
		require.NoError(t, err)
		return ns
	}

	spend("50")
	assert.Empty(t, alerts())

	spend("35")
	ns := alerts()
	require.Len(t, ns, 1)
	assert.Equal(t, core.BudgetRef(b.ID, core.NewDate(2025, 3, 1), 80), ns[0].Ref)
	assert.True(t, strings.Contains(ns[0].Title, "80%"), ns[0].Title)

	// the same level fires once per period
	spend("5")
	assert.Len(t, alerts(), 1)

	spend("20")
	ns = alerts()
	require.Len(t, ns, 2)
	refs := []string{ns[0].Ref, ns[1].Ref}
	assert.Contains(t, refs, core.BudgetRef(b.ID, core.NewDate(2025, 3, 1), 100))

	// a new period starts over
	_, err = env.transactions.Create(ctx, u.ID, core.Transaction{
		Type: core.Expense, Amount: money(t, "90"), CategoryID: cat.ID, Date: core.NewDate(2025, 4, 2),
	})
	require.NoError(t, err)
	assert.Len(t, alerts(), 3)
}

func TestBudgetChangeInvalidatesDashboard(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, "user@example.com")
	cat := env.category(t, core.KindExpense)

	before, err := env.dashboard.Month(ctx, u.ID, 2025, 3)
	require.NoError(t, err)
	assert.Empty(t, before.Budgets)

	b, err := env.budgets.Create(ctx, u.ID, core.Budget{CategoryID: cat.ID, Limit: money(t, "100"), Period: core.Monthly})
	require.NoError(t, err)

	after, err := env.dashboard.Month(ctx, u.ID, 2025, 3)
	require.NoError(t, err)
	require.Len(t, after.Budgets, 1)

	require.NoError(t, env.budgets.Delete(ctx, u.ID, b.ID))
	final, err := env.dashboard.Month(ctx, u.ID, 2025, 3)
	require.NoError(t, err)
	assert.Empty(t, final.Budgets)
}
