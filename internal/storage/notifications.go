package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"cashbook/internal/core"
)

const notificationColumns = `id, user_id, COALESCE(reminder_id, 0), client_key, ref, title, body, fire_at, status, sent_at, attempts, created_at`

func scanNotification(row interface{ Scan(...any) error }) (core.Notification, error) {
	var (
		n               core.Notification
		status          string
		fireAt, created int64
		sentAt          sql.NullInt64
	)
	err := row.Scan(&n.ID, &n.UserID, &n.ReminderID, &n.Key, &n.Ref, &n.Title, &n.Body, &fireAt, &status,
		&sentAt, &n.Attempts, &created)
	if err != nil {
		return core.Notification{}, err
	}
	n.Status = core.NotificationStatus(status)
	n.FireAt = fromUnix(fireAt)
	n.SentAt = timePtr(sentAt)
	n.CreatedAt = fromUnix(created)
	return n, nil
}

func insertNotification(ctx context.Context, q querier, n core.Notification) (bool, error) {
	res, err := q.ExecContext(ctx,
		`INSERT INTO notifications (user_id, reminder_id, client_key, ref, title, body, fire_at, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 'pending', ?)
		 ON CONFLICT(user_id, ref) DO NOTHING`,
		n.UserID, nullID(n.ReminderID), n.Key, n.Ref, n.Title, n.Body, unix(n.FireAt), unix(n.CreatedAt))
	if err != nil {
		return false, fmt.Errorf("insert notification: %w", mapConstraint(err))
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// InsertNotification stores n unless the user already has one with the same
// Ref. It reports whether a row was written.
func (r *SQLiteRepository) InsertNotification(ctx context.Context, n core.Notification) (bool, error) {
	return insertNotification(ctx, r.db, n)
}

func cancelReminderNotifications(ctx context.Context, q querier, userID, reminderID int64) error {
	_, err := q.ExecContext(ctx,
		`DELETE FROM notifications WHERE user_id = ? AND reminder_id = ? AND status = 'pending'`, userID, reminderID)
	if err != nil {
		return fmt.Errorf("cancel reminder notifications: %w", err)
	}
	return nil
}

// ReplaceReminderNotifications drops the reminder's pending notifications and
// stores ns in their place. Slots already sent are left untouched.
func (r *SQLiteRepository) ReplaceReminderNotifications(ctx context.Context, userID, reminderID int64, ns []core.Notification) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if err := cancelReminderNotifications(ctx, tx, userID, reminderID); err != nil {
			return err
		}
		for _, n := range ns {
			if _, err := insertNotification(ctx, tx, n); err != nil {
				return err
			}
		}
		return nil
	})
}

// ClaimDueNotifications marks up to limit pending notifications with
// fire_at <= now as queued and returns them, oldest first.
func (r *SQLiteRepository) ClaimDueNotifications(ctx context.Context, now time.Time, limit int) ([]core.Notification, error) {
	var out []core.Notification
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx,
			`SELECT `+notificationColumns+` FROM notifications
			 WHERE status = 'pending' AND fire_at <= ? ORDER BY fire_at, id LIMIT ?`, unix(now), limit)
		if err != nil {
			return err
		}
		for rows.Next() {
			n, err := scanNotification(rows)
			if err != nil {
				rows.Close()
				return err
			}
			out = append(out, n)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		for i := range out {
			if _, err := tx.ExecContext(ctx,
				`UPDATE notifications SET status = 'queued', attempts = attempts + 1 WHERE id = ?`, out[i].ID); err != nil {
				return err
			}
			out[i].Status = core.StatusQueued
			out[i].Attempts++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("claim due notifications: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) GetNotification(ctx context.Context, id int64) (core.Notification, error) {
	n, err := scanNotification(r.db.QueryRowContext(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE id = ?`, id))
	if err != nil {
		return core.Notification{}, fmt.Errorf("get notification: %w", notFound(err))
	}
	return n, nil
}

func (r *SQLiteRepository) MarkNotificationSent(ctx context.Context, id int64, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET status = 'sent', sent_at = ? WHERE id = ?`, unix(at), id)
	if err != nil {
		return fmt.Errorf("mark notification sent: %w", err)
	}
	return affected(res)
}

func (r *SQLiteRepository) MarkNotificationFailed(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET status = 'failed' WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark notification failed: %w", err)
	}
	return affected(res)
}

// ListNotifications returns the user's notifications, latest fire time first.
func (r *SQLiteRepository) ListNotifications(ctx context.Context, userID int64, limit int) ([]core.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE user_id = ? ORDER BY fire_at DESC, id DESC LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []core.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
