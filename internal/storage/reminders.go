package storage

import (
	"context"
	"database/sql"
	"fmt"

	"cashbook/internal/core"
)

// ReminderStatus selects reminders by state relative to Today.
type ReminderStatus string

const (
	RemindersAll       ReminderStatus = "all"
	RemindersUpcoming  ReminderStatus = "upcoming"
	RemindersOverdue   ReminderStatus = "overdue"
	RemindersCompleted ReminderStatus = "completed"
)

type ReminderFilter struct {
	Status ReminderStatus
	Today  core.Date
	Until  core.Date // upcoming only, exclusive; zero means open-ended
	Limit  int
}

const reminderColumns = `id, user_id, kind, title, amount_cents, category_id, due_date, repeat,
	notify_days_before, completed, completed_at, COALESCE(last_transaction_id, 0), created_at`

func scanReminder(row interface{ Scan(...any) error }) (core.Reminder, error) {
	var (
		rm                core.Reminder
		kind, due, repeat string
		completedAt       sql.NullInt64
		created           int64
	)
	err := row.Scan(&rm.ID, &rm.UserID, &kind, &rm.Title, &rm.Amount.Cents, &rm.CategoryID, &due, &repeat,
		&rm.NotifyDaysBefore, &rm.Completed, &completedAt, &rm.LastTransactionID, &created)
	if err != nil {
		return core.Reminder{}, err
	}
	rm.Kind = core.ReminderKind(kind)
	rm.DueDate = parseDay(due)
	rm.Repeat = core.Repeat(repeat)
	rm.CompletedAt = timePtr(completedAt)
	rm.CreatedAt = fromUnix(created)
	return rm, nil
}

func (r *SQLiteRepository) CreateReminder(ctx context.Context, rm core.Reminder) (core.Reminder, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO reminders (user_id, kind, title, amount_cents, category_id, due_date, repeat, notify_days_before, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rm.UserID, string(rm.Kind), rm.Title, rm.Amount.Cents, rm.CategoryID, rm.DueDate.String(),
		string(rm.Repeat), rm.NotifyDaysBefore, unix(rm.CreatedAt))
	if err != nil {
		return core.Reminder{}, fmt.Errorf("create reminder: %w", mapConstraint(err))
	}
	rm.ID, err = res.LastInsertId()
	if err != nil {
		return core.Reminder{}, fmt.Errorf("create reminder: %w", err)
	}
	return rm, nil
}

func (r *SQLiteRepository) GetReminder(ctx context.Context, userID, id int64) (core.Reminder, error) {
	rm, err := scanReminder(r.db.QueryRowContext(ctx,
		`SELECT `+reminderColumns+` FROM reminders WHERE id = ? AND user_id = ?`, id, userID))
	if err != nil {
		return core.Reminder{}, fmt.Errorf("get reminder: %w", notFound(err))
	}
	return rm, nil
}

func (r *SQLiteRepository) UpdateReminder(ctx context.Context, rm core.Reminder) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE reminders SET kind = ?, title = ?, amount_cents = ?, category_id = ?, due_date = ?, repeat = ?, notify_days_before = ?
		 WHERE id = ? AND user_id = ?`,
		string(rm.Kind), rm.Title, rm.Amount.Cents, rm.CategoryID, rm.DueDate.String(), string(rm.Repeat),
		rm.NotifyDaysBefore, rm.ID, rm.UserID)
	if err != nil {
		return fmt.Errorf("update reminder: %w", mapConstraint(err))
	}
	return affected(res)
}

// DeleteReminder removes a reminder and cancels its pending notifications.
func (r *SQLiteRepository) DeleteReminder(ctx context.Context, userID, id int64) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if err := cancelReminderNotifications(ctx, tx, userID, id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM reminders WHERE id = ? AND user_id = ?`, id, userID)
		if err != nil {
			return fmt.Errorf("delete reminder: %w", err)
		}
		return affected(res)
	})
}

func (r *SQLiteRepository) ListReminders(ctx context.Context, userID int64, f ReminderFilter) ([]core.Reminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM reminders WHERE user_id = ?`
	args := []any{userID}
	order := ` ORDER BY due_date, id`
	switch f.Status {
	case RemindersUpcoming:
		query += ` AND completed = 0 AND due_date >= ?`
		args = append(args, f.Today.String())
		if !f.Until.IsZero() {
			query += ` AND due_date < ?`
			args = append(args, f.Until.String())
		}
	case RemindersOverdue:
		query += ` AND completed = 0 AND due_date < ?`
		args = append(args, f.Today.String())
	case RemindersCompleted:
		query += ` AND completed = 1`
		order = ` ORDER BY completed_at DESC, id DESC`
	}
	query += order
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	defer rows.Close()

	var out []core.Reminder
	for rows.Next() {
		rm, err := scanReminder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reminder: %w", err)
		}
		out = append(out, rm)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CountOverdue(ctx context.Context, userID int64, today core.Date) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reminders WHERE user_id = ? AND completed = 0 AND due_date < ?`,
		userID, today.String()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count overdue: %w", err)
	}
	return n, nil
}

// CompleteReminder records t and moves the reminder from prev to next in one
// transaction. It fails with ErrConflict when the reminder changed since prev
// was read, which also covers completing the same occurrence twice.
func (r *SQLiteRepository) CompleteReminder(ctx context.Context, prev, next core.Reminder, t core.Transaction) (core.Transaction, error) {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		id, err := insertTransaction(ctx, tx, t)
		if err != nil {
			return err
		}
		t.ID = id
		res, err := tx.ExecContext(ctx,
			`UPDATE reminders SET due_date = ?, completed = ?, completed_at = ?, last_transaction_id = ?
			 WHERE id = ? AND user_id = ? AND completed = 0 AND due_date = ?`,
			next.DueDate.String(), next.Completed, nullUnix(next.CompletedAt), id,
			prev.ID, prev.UserID, prev.DueDate.String())
		if err != nil {
			return fmt.Errorf("advance reminder: %w", err)
		}
		if n, _ := res.RowsAffected(); n != 1 {
			return fmt.Errorf("%w: reminder already completed", core.ErrConflict)
		}
		return nil
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("complete reminder: %w", err)
	}
	return t, nil
}
