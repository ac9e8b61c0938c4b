package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"cashbook/internal/core"
)

const txColumns = `t.id, t.user_id, t.type, t.amount_cents, t.category_id, t.date, t.description,
	COALESCE(t.reminder_id, 0), t.created_at, t.updated_at`

func scanTransaction(row interface{ Scan(...any) error }) (core.Transaction, error) {
	var (
		t                core.Transaction
		typ, day         string
		created, updated int64
	)
	err := row.Scan(&t.ID, &t.UserID, &typ, &t.Amount.Cents, &t.CategoryID, &day, &t.Description,
		&t.ReminderID, &created, &updated)
	if err != nil {
		return core.Transaction{}, err
	}
	t.Type = core.TxType(typ)
	t.Date = parseDay(day)
	t.CreatedAt = fromUnix(created)
	t.UpdatedAt = fromUnix(updated)
	return t, nil
}

func insertTransaction(ctx context.Context, q querier, t core.Transaction) (int64, error) {
	res, err := q.ExecContext(ctx,
		`INSERT INTO transactions (user_id, type, amount_cents, category_id, date, description, reminder_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.UserID, string(t.Type), t.Amount.Cents, t.CategoryID, t.Date.String(), t.Description,
		nullID(t.ReminderID), unix(t.CreatedAt), unix(t.UpdatedAt))
	if err != nil {
		return 0, mapConstraint(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return id, writeTags(ctx, q, id, t.Tags)
}

func writeTags(ctx context.Context, q querier, id int64, tags []string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM transaction_tags WHERE transaction_id = ?`, id); err != nil {
		return fmt.Errorf("clear tags: %w", err)
	}
	for _, tag := range tags {
		if _, err := q.ExecContext(ctx,
			`INSERT OR IGNORE INTO transaction_tags (transaction_id, tag) VALUES (?, ?)`, id, tag); err != nil {
			return fmt.Errorf("insert tag: %w", err)
		}
	}
	return nil
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		id, err := insertTransaction(ctx, tx, t)
		t.ID = id
		return err
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	slog.InfoContext(ctx, "Transaction saved",
		"id", t.ID,
		"user_id", t.UserID,
		"type", t.Type,
		"amount_cents", t.Amount.Cents,
		"date", t.Date.String())
	return t, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, userID, id int64) (core.Transaction, error) {
	t, err := scanTransaction(r.db.QueryRowContext(ctx,
		`SELECT `+txColumns+` FROM transactions t WHERE t.id = ? AND t.user_id = ?`, id, userID))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", notFound(err))
	}
	list := []core.Transaction{t}
	if err := r.loadTags(ctx, list); err != nil {
		return core.Transaction{}, err
	}
	return list[0], nil
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE transactions SET type = ?, amount_cents = ?, category_id = ?, date = ?, description = ?, updated_at = ?
			 WHERE id = ? AND user_id = ?`,
			string(t.Type), t.Amount.Cents, t.CategoryID, t.Date.String(), t.Description, unix(t.UpdatedAt),
			t.ID, t.UserID)
		if err != nil {
			return fmt.Errorf("update transaction: %w", mapConstraint(err))
		}
		if err := affected(res); err != nil {
			return err
		}
		return writeTags(ctx, tx, t.ID, t.Tags)
	})
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return affected(res)
}

func filterClause(userID int64, f core.Filter) (string, []any) {
	where := []string{"t.user_id = ?"}
	args := []any{userID}
	if !f.From.IsZero() {
		where = append(where, "t.date >= ?")
		args = append(args, f.From.String())
	}
	if !f.To.IsZero() {
		where = append(where, "t.date <= ?")
		args = append(args, f.To.String())
	}
	if f.Type != "" {
		where = append(where, "t.type = ?")
		args = append(args, string(f.Type))
	}
	if f.CategoryID > 0 {
		where = append(where, "t.category_id = ?")
		args = append(args, f.CategoryID)
	}
	if f.Tag != "" {
		where = append(where, "EXISTS (SELECT 1 FROM transaction_tags tt WHERE tt.transaction_id = t.id AND tt.tag = ?)")
		args = append(args, strings.ToLower(strings.TrimSpace(f.Tag)))
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		where = append(where, `t.description LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(q)+"%")
	}
	return strings.Join(where, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// ListTransactions returns matching transactions, newest first.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID int64, f core.Filter) ([]core.Transaction, error) {
	where, args := filterClause(userID, f)
	query := `SELECT ` + txColumns + ` FROM transactions t WHERE ` + where + ` ORDER BY t.date DESC, t.id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.loadTags(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *SQLiteRepository) CountTransactions(ctx context.Context, userID int64, f core.Filter) (int, error) {
	where, args := filterClause(userID, f)
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions t WHERE `+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) loadTags(ctx context.Context, list []core.Transaction) error {
	if len(list) == 0 {
		return nil
	}
	idx := make(map[int64]int, len(list))
	args := make([]any, len(list))
	for i, t := range list {
		idx[t.ID] = i
		args[i] = t.ID
		list[i].Tags = []string{}
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT transaction_id, tag FROM transaction_tags WHERE transaction_id IN (`+placeholders(len(args))+`) ORDER BY tag`,
		args...)
	if err != nil {
		return fmt.Errorf("load tags: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id  int64
			tag string
		)
		if err := rows.Scan(&id, &tag); err != nil {
			return fmt.Errorf("scan tag: %w", err)
		}
		if i, ok := idx[id]; ok {
			list[i].Tags = append(list[i].Tags, tag)
		}
	}
	return rows.Err()
}

// SumByType returns income and expense totals in [from, to).
func (r *SQLiteRepository) SumByType(ctx context.Context, userID int64, from, to core.Date) (income, expense core.Money, err error) {
	err = r.db.QueryRowContext(ctx, `SELECT
		COALESCE(SUM(CASE WHEN type = 'income' THEN amount_cents END), 0),
		COALESCE(SUM(CASE WHEN type = 'expense' THEN amount_cents END), 0)
		FROM transactions WHERE user_id = ? AND date >= ? AND date < ?`,
		userID, from.String(), to.String()).Scan(&income.Cents, &expense.Cents)
	if err != nil {
		return core.Money{}, core.Money{}, fmt.Errorf("sum by type: %w", err)
	}
	return income, expense, nil
}

// SumByCategory totals one transaction type per category in [from, to), largest first.
func (r *SQLiteRepository) SumByCategory(ctx context.Context, userID int64, typ core.TxType, from, to core.Date) ([]core.CategoryTotal, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT c.id, c.name, c.color, SUM(t.amount_cents) AS total, COUNT(*)
		FROM transactions t JOIN categories c ON c.id = t.category_id
		WHERE t.user_id = ? AND t.type = ? AND t.date >= ? AND t.date < ?
		GROUP BY c.id ORDER BY total DESC, c.name`,
		userID, string(typ), from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("sum by category: %w", err)
	}
	defer rows.Close()

	var out []core.CategoryTotal
	for rows.Next() {
		var ct core.CategoryTotal
		if err := rows.Scan(&ct.CategoryID, &ct.Name, &ct.Color, &ct.Total.Cents, &ct.Count); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		out = append(out, ct)
	}
	return out, rows.Err()
}

// SumByDay returns per-day totals in [from, to) for days with transactions.
func (r *SQLiteRepository) SumByDay(ctx context.Context, userID int64, from, to core.Date) ([]core.DailyTotal, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT date,
		COALESCE(SUM(CASE WHEN type = 'income' THEN amount_cents END), 0),
		COALESCE(SUM(CASE WHEN type = 'expense' THEN amount_cents END), 0)
		FROM transactions WHERE user_id = ? AND date >= ? AND date < ?
		GROUP BY date ORDER BY date`,
		userID, from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("sum by day: %w", err)
	}
	defer rows.Close()

	var out []core.DailyTotal
	for rows.Next() {
		var (
			d   core.DailyTotal
			day string
		)
		if err := rows.Scan(&day, &d.Income.Cents, &d.Expense.Cents); err != nil {
			return nil, fmt.Errorf("scan daily total: %w", err)
		}
		d.Date = parseDay(day)
		out = append(out, d)
	}
	return out, rows.Err()
}

// MonthlyTotals returns income and expense per month of a year, months without data omitted.
func (r *SQLiteRepository) MonthlyTotals(ctx context.Context, userID int64, year int) ([]core.MonthTotal, error) {
	from := core.NewDate(year, 1, 1)
	to := core.NewDate(year+1, 1, 1)
	rows, err := r.db.QueryContext(ctx, `SELECT CAST(substr(date, 6, 2) AS INTEGER) AS m,
		COALESCE(SUM(CASE WHEN type = 'income' THEN amount_cents END), 0),
		COALESCE(SUM(CASE WHEN type = 'expense' THEN amount_cents END), 0)
		FROM transactions WHERE user_id = ? AND date >= ? AND date < ?
		GROUP BY m ORDER BY m`,
		userID, from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("monthly totals: %w", err)
	}
	defer rows.Close()

	var out []core.MonthTotal
	for rows.Next() {
		var m core.MonthTotal
		if err := rows.Scan(&m.Month, &m.Income.Cents, &m.Expense.Cents); err != nil {
			return nil, fmt.Errorf("scan month total: %w", err)
		}
		m.Balance = m.Income.Sub(m.Expense)
		out = append(out, m)
	}
	return out, rows.Err()
}

// SpentInCategory totals expenses of one category in [from, to).
func (r *SQLiteRepository) SpentInCategory(ctx context.Context, userID, categoryID int64, from, to core.Date) (core.Money, error) {
	var m core.Money
	err := r.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(amount_cents), 0) FROM transactions
		WHERE user_id = ? AND category_id = ? AND type = 'expense' AND date >= ? AND date < ?`,
		userID, categoryID, from.String(), to.String()).Scan(&m.Cents)
	if err != nil {
		return core.Money{}, fmt.Errorf("spent in category: %w", err)
	}
	return m, nil
}
