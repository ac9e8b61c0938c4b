package storage

import (
	"context"
	"fmt"

	"cashbook/internal/core"
)

const budgetColumns = `id, user_id, category_id, limit_cents, period, alert_percent`

func scanBudget(row interface{ Scan(...any) error }) (core.Budget, error) {
	var (
		b      core.Budget
		period string
	)
	if err := row.Scan(&b.ID, &b.UserID, &b.CategoryID, &b.Limit.Cents, &period, &b.AlertPercent); err != nil {
		return core.Budget{}, err
	}
	b.Period = core.Period(period)
	return b, nil
}

func (r *SQLiteRepository) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO budgets (user_id, category_id, limit_cents, period, alert_percent) VALUES (?, ?, ?, ?, ?)`,
		b.UserID, b.CategoryID, b.Limit.Cents, string(b.Period), b.AlertPercent)
	if err != nil {
		return core.Budget{}, fmt.Errorf("create budget: %w", mapConstraint(err))
	}
	b.ID, err = res.LastInsertId()
	if err != nil {
		return core.Budget{}, fmt.Errorf("create budget: %w", err)
	}
	return b, nil
}

func (r *SQLiteRepository) GetBudget(ctx context.Context, userID, id int64) (core.Budget, error) {
	b, err := scanBudget(r.db.QueryRowContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE id = ? AND user_id = ?`, id, userID))
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget: %w", notFound(err))
	}
	return b, nil
}

func (r *SQLiteRepository) UpdateBudget(ctx context.Context, b core.Budget) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE budgets SET category_id = ?, limit_cents = ?, period = ?, alert_percent = ? WHERE id = ? AND user_id = ?`,
		b.CategoryID, b.Limit.Cents, string(b.Period), b.AlertPercent, b.ID, b.UserID)
	if err != nil {
		return fmt.Errorf("update budget: %w", mapConstraint(err))
	}
	return affected(res)
}

func (r *SQLiteRepository) DeleteBudget(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return affected(res)
}

// ListBudgets returns the user's budgets; categoryID > 0 narrows to one category.
func (r *SQLiteRepository) ListBudgets(ctx context.Context, userID, categoryID int64) ([]core.Budget, error) {
	query := `SELECT ` + budgetColumns + ` FROM budgets WHERE user_id = ?`
	args := []any{userID}
	if categoryID > 0 {
		query += ` AND category_id = ?`
		args = append(args, categoryID)
	}
	rows, err := r.db.QueryContext(ctx, query+` ORDER BY category_id, period`, args...)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
