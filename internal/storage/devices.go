package storage

import (
	"context"
	"fmt"

	"cashbook/internal/core"
)

// UpsertDevice registers a push token. A token moves to the latest user that registers it.
func (r *SQLiteRepository) UpsertDevice(ctx context.Context, d core.Device) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO devices (token, user_id, platform, last_seen) VALUES (?, ?, ?, ?)
		 ON CONFLICT(token) DO UPDATE SET user_id = excluded.user_id, platform = excluded.platform, last_seen = excluded.last_seen`,
		d.Token, d.UserID, d.Platform, unix(d.LastSeen))
	if err != nil {
		return fmt.Errorf("upsert device: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteDevice(ctx context.Context, userID int64, token string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM devices WHERE token = ? AND user_id = ?`, token, userID)
	if err != nil {
		return fmt.Errorf("delete device: %w", err)
	}
	return affected(res)
}

// DeleteDeviceToken drops a token regardless of owner, e.g. after the push
// provider reports it unregistered.
func (r *SQLiteRepository) DeleteDeviceToken(ctx context.Context, token string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM devices WHERE token = ?`, token); err != nil {
		return fmt.Errorf("delete device token: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListDeviceTokens(ctx context.Context, userID int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT token FROM devices WHERE user_id = ? ORDER BY last_seen DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list device tokens: %w", err)
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}
