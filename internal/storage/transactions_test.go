package storage

import (
	"context"
	"testing"

	"cashbook/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTx(userID, categoryID int64, typ core.TxType, cents int64, day core.Date, desc string, tags ...string) core.Transaction {
	return core.Transaction{
		UserID:      userID,
		Type:        typ,
		Amount:      core.Money{Cents: cents},
		CategoryID:  categoryID,
		Date:        day,
		Description: desc,
		Tags:        tags,
		CreatedAt:   testNow,
		UpdatedAt:   testNow,
	}
}

func TestTransactionCRUD(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := createUser(t, repo, "a@example.com", core.RoleUser)
	other := createUser(t, repo, "b@example.com", core.RoleUser)
	cat := expenseCategory(t, repo, u.ID)

	created, err := repo.CreateTransaction(ctx, newTx(u.ID, cat.ID, core.Expense, 1250, core.NewDate(2025, 3, 1), "Lunch", "food", "work"))
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	got, err := repo.GetTransaction(ctx, u.ID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lunch", got.Description)
	assert.Equal(t, []string{"food", "work"}, got.Tags)
	assert.Equal(t, "2025-03-01", got.Date.String())

	_, err = repo.GetTransaction(ctx, other.ID, created.ID)
	assert.ErrorIs(t, err, core.ErrNotFound, "other users must not see the row")

	got.Amount = core.Money{Cents: 900}
	got.Tags = []string{"food"}
	require.NoError(t, repo.UpdateTransaction(ctx, got))
	got, err = repo.GetTransaction(ctx, u.ID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(900), got.Amount.Cents)
	assert.Equal(t, []string{"food"}, got.Tags)

	got.UserID = other.ID
	assert.ErrorIs(t, repo.UpdateTransaction(ctx, got), core.ErrNotFound)
	assert.ErrorIs(t, repo.DeleteTransaction(ctx, other.ID, created.ID), core.ErrNotFound)
	require.NoError(t, repo.DeleteTransaction(ctx, u.ID, created.ID))
	_, err = repo.GetTransaction(ctx, u.ID, created.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestListTransactionsFilter(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := createUser(t, repo, "a@example.com", core.RoleUser)
	cat := expenseCategory(t, repo, u.ID)
	salary, err := repo.CreateCategory(ctx, core.Category{UserID: u.ID, Name: "Side job", Kind: core.KindIncome})
	require.NoError(t, err)

	seed := []core.Transaction{
		newTx(u.ID, cat.ID, core.Expense, 1000, core.NewDate(2025, 2, 27), "Groceries 100%", "food"),
		newTx(u.ID, cat.ID, core.Expense, 2000, core.NewDate(2025, 3, 2), "Dinner out", "food", "fun"),
		newTx(u.ID, salary.ID, core.Income, 50000, core.NewDate(2025, 3, 5), "March pay"),
		newTx(u.ID, cat.ID, core.Expense, 300, core.NewDate(2025, 3, 31), "Coffee"),
	}
	for _, tx := range seed {
		_, err := repo.CreateTransaction(ctx, tx)
		require.NoError(t, err)
	}

	tests := []struct {
		name   string
		filter core.Filter
		want   []string
	}{
		{"all newest first", core.Filter{}, []string{"Coffee", "March pay", "Dinner out", "Groceries 100%"}},
		{"inclusive range", core.Filter{From: core.NewDate(2025, 3, 1), To: core.NewDate(2025, 3, 31)}, []string{"Coffee", "March pay", "Dinner out"}},
		{"type", core.Filter{Type: core.Income}, []string{"March pay"}},
		{"category", core.Filter{CategoryID: salary.ID}, []string{"March pay"}},
		{"tag", core.Filter{Tag: " FUN "}, []string{"Dinner out"}},
		{"query", core.Filter{Query: "din"}, []string{"Dinner out"}},
		{"query escapes wildcards", core.Filter{Query: "100%"}, []string{"Groceries 100%"}},
		{"limit offset", core.Filter{Limit: 2, Offset: 1}, []string{"March pay", "Dinner out"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.ListTransactions(ctx, u.ID, tt.filter)
			require.NoError(t, err)
			var desc []string
			for _, tx := range got {
				desc = append(desc, tx.Description)
			}
			assert.Equal(t, tt.want, desc)
		})
	}

	n, err := repo.CountTransactions(ctx, u.ID, core.Filter{Type: core.Expense})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestAggregations(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := createUser(t, repo, "a@example.com", core.RoleUser)
	cat := expenseCategory(t, repo, u.ID)
	rent, err := repo.CreateCategory(ctx, core.Category{UserID: u.ID, Name: "Flat", Kind: core.KindExpense})
	require.NoError(t, err)
	pay, err := repo.CreateCategory(ctx, core.Category{UserID: u.ID, Name: "Pay", Kind: core.KindIncome})
	require.NoError(t, err)

	for _, tx := range []core.Transaction{
		newTx(u.ID, cat.ID, core.Expense, 1000, core.NewDate(2025, 3, 2), "a"),
		newTx(u.ID, cat.ID, core.Expense, 500, core.NewDate(2025, 3, 2), "b"),
		newTx(u.ID, rent.ID, core.Expense, 80000, core.NewDate(2025, 3, 1), "c"),
		newTx(u.ID, pay.ID, core.Income, 200000, core.NewDate(2025, 3, 1), "d"),
		newTx(u.ID, cat.ID, core.Expense, 700, core.NewDate(2025, 4, 1), "e"),
	} {
		_, err := repo.CreateTransaction(ctx, tx)
		require.NoError(t, err)
	}

	from, to := core.MonthRange(2025, 3)
	income, expense, err := repo.SumByType(ctx, u.ID, from, to)
	require.NoError(t, err)
	assert.Equal(t, int64(200000), income.Cents)
	assert.Equal(t, int64(81500), expense.Cents)

	byCat, err := repo.SumByCategory(ctx, u.ID, core.Expense, from, to)
	require.NoError(t, err)
	require.Len(t, byCat, 2)
	assert.Equal(t, "Flat", byCat[0].Name)
	assert.Equal(t, int64(1500), byCat[1].Total.Cents)
	assert.Equal(t, 2, byCat[1].Count)

	daily, err := repo.SumByDay(ctx, u.ID, from, to)
	require.NoError(t, err)
	require.Len(t, daily, 2)
	assert.Equal(t, int64(200000), daily[0].Income.Cents)
	assert.Equal(t, int64(1500), daily[1].Expense.Cents)

	months, err := repo.MonthlyTotals(ctx, u.ID, 2025)
	require.NoError(t, err)
	require.Len(t, months, 2)
	assert.Equal(t, 3, months[0].Month)
	assert.Equal(t, int64(118500), months[0].Balance.Cents)
	assert.Equal(t, 4, months[1].Month)

	spent, err := repo.SpentInCategory(ctx, u.ID, cat.ID, from, to)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), spent.Cents)
}

func TestCategories(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	a := createUser(t, repo, "a@example.com", core.RoleUser)
	b := createUser(t, repo, "b@example.com", core.RoleUser)

	own, err := repo.CreateCategory(ctx, core.Category{UserID: a.ID, Name: "Pets", Kind: core.KindExpense})
	require.NoError(t, err)

	_, err = repo.CreateCategory(ctx, core.Category{UserID: a.ID, Name: "pets", Kind: core.KindBoth})
	assert.ErrorIs(t, err, core.ErrConflict, "names are unique per owner, case-insensitively")

	_, err = repo.CreateCategory(ctx, core.Category{UserID: b.ID, Name: "Pets", Kind: core.KindExpense})
	assert.NoError(t, err, "another user may reuse the name")

	_, err = repo.GetCategory(ctx, b.ID, own.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	sys := expenseCategory(t, repo, a.ID)
	sys.UserID = a.ID
	sys.Name = "Renamed"
	assert.ErrorIs(t, repo.UpdateCategory(ctx, sys), core.ErrNotFound, "system categories are read-only")
	assert.ErrorIs(t, repo.DeleteCategory(ctx, a.ID, sys.ID), core.ErrNotFound)

	_, err = repo.CreateTransaction(ctx, newTx(a.ID, own.ID, core.Expense, 100, core.NewDate(2025, 3, 1), "food"))
	require.NoError(t, err)
	n, err := repo.CategoryUsage(ctx, a.ID, own.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.ErrorIs(t, repo.DeleteCategory(ctx, a.ID, own.ID), core.ErrConflict)
}
