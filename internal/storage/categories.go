package storage

import (
	"context"
	"database/sql"
	"fmt"

	"cashbook/internal/core"
)

const categoryColumns = `id, COALESCE(user_id, 0), name, kind, icon, color`

func scanCategory(row interface{ Scan(...any) error }) (core.Category, error) {
	var (
		c    core.Category
		kind string
	)
	if err := row.Scan(&c.ID, &c.UserID, &c.Name, &kind, &c.Icon, &c.Color); err != nil {
		return core.Category{}, err
	}
	c.Kind = core.CategoryKind(kind)
	return c, nil
}

// ListCategories returns the system categories followed by the user's own.
func (r *SQLiteRepository) ListCategories(ctx context.Context, userID int64) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+categoryColumns+` FROM categories
		 WHERE user_id IS NULL OR user_id = ?
		 ORDER BY user_id IS NOT NULL, name COLLATE NOCASE`, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetCategory returns a category visible to the user (system or own).
func (r *SQLiteRepository) GetCategory(ctx context.Context, userID, id int64) (core.Category, error) {
	c, err := scanCategory(r.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = ? AND (user_id IS NULL OR user_id = ?)`, id, userID))
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", notFound(err))
	}
	return c, nil
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (user_id, name, kind, icon, color) VALUES (?, ?, ?, ?, ?)`,
		nullID(c.UserID), c.Name, string(c.Kind), c.Icon, c.Color)
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", mapConstraint(err))
	}
	c.ID, err = res.LastInsertId()
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	return c, nil
}

// UpdateCategory changes a category owned by c.UserID. System rows never match.
func (r *SQLiteRepository) UpdateCategory(ctx context.Context, c core.Category) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE categories SET name = ?, kind = ?, icon = ?, color = ? WHERE id = ? AND user_id = ?`,
		c.Name, string(c.Kind), c.Icon, c.Color, c.ID, c.UserID)
	if err != nil {
		return fmt.Errorf("update category: %w", mapConstraint(err))
	}
	return affected(res)
}

// CategoryUsage counts rows that reference a category for one user.
func (r *SQLiteRepository) CategoryUsage(ctx context.Context, userID, id int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM transactions WHERE category_id = ?1 AND user_id = ?2) +
		(SELECT COUNT(*) FROM budgets WHERE category_id = ?1 AND user_id = ?2) +
		(SELECT COUNT(*) FROM reminders WHERE category_id = ?1 AND user_id = ?2)`, id, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("category usage: %w", err)
	}
	return n, nil
}

// CategoryTypeUsage counts income-side and expense-side rows referencing a
// category. Collections count as income; payments and budgets as expense.
func (r *SQLiteRepository) CategoryTypeUsage(ctx context.Context, userID, id int64) (income, expense int, err error) {
	err = r.db.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM transactions WHERE category_id = ?1 AND user_id = ?2 AND type = 'income') +
		(SELECT COUNT(*) FROM reminders WHERE category_id = ?1 AND user_id = ?2 AND kind = 'collection'),
		(SELECT COUNT(*) FROM transactions WHERE category_id = ?1 AND user_id = ?2 AND type = 'expense') +
		(SELECT COUNT(*) FROM reminders WHERE category_id = ?1 AND user_id = ?2 AND kind = 'payment') +
		(SELECT COUNT(*) FROM budgets WHERE category_id = ?1 AND user_id = ?2)`, id, userID).Scan(&income, &expense)
	if err != nil {
		return 0, 0, fmt.Errorf("category type usage: %w", err)
	}
	return income, expense, nil
}

// DeleteCategory removes an own category. Referenced categories give ErrConflict.
func (r *SQLiteRepository) DeleteCategory(ctx context.Context, userID, id int64) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = ? AND user_id = ?`, id, userID)
		if err != nil {
			return fmt.Errorf("delete category: %w", mapConstraint(err))
		}
		return affected(res)
	})
}
