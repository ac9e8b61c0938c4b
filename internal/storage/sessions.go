package storage

import (
	"context"
	"fmt"
	"time"

	"cashbook/internal/core"
)

func (r *SQLiteRepository) CreateSession(ctx context.Context, s core.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (token, user_id, created_at, last_seen_at, expires_at) VALUES (?, ?, ?, ?, ?)`,
		s.Token, s.UserID, unix(s.CreatedAt), unix(s.LastSeenAt), unix(s.ExpiresAt))
	if err != nil {
		return fmt.Errorf("create session: %w", mapConstraint(err))
	}
	return nil
}

func (r *SQLiteRepository) GetSession(ctx context.Context, token string) (core.Session, error) {
	var (
		s                          core.Session
		created, seen, expiresUnix int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT token, user_id, created_at, last_seen_at, expires_at FROM sessions WHERE token = ?`, token).
		Scan(&s.Token, &s.UserID, &created, &seen, &expiresUnix)
	if err != nil {
		return core.Session{}, fmt.Errorf("get session: %w", notFound(err))
	}
	s.CreatedAt = fromUnix(created)
	s.LastSeenAt = fromUnix(seen)
	s.ExpiresAt = fromUnix(expiresUnix)
	return s, nil
}

func (r *SQLiteRepository) TouchSession(ctx context.Context, token string, at time.Time) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE sessions SET last_seen_at = ? WHERE token = ?`, unix(at), token); err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteSession(ctx context.Context, token string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteUserSessions removes every session of a user except keep.
func (r *SQLiteRepository) DeleteUserSessions(ctx context.Context, userID int64, keep string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ? AND token <> ?`, userID, keep); err != nil {
		return fmt.Errorf("delete user sessions: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes sessions past their expiry or idle since before idleBefore.
// A zero idleBefore only applies the absolute expiry.
func (r *SQLiteRepository) DeleteExpiredSessions(ctx context.Context, now, idleBefore time.Time) (int64, error) {
	idle := int64(0)
	if !idleBefore.IsZero() {
		idle = unix(idleBefore)
	}
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at <= ? OR last_seen_at < ?`, unix(now), idle)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return res.RowsAffected()
}
