package storage

import (
	"context"
	"fmt"

	"cashbook/internal/core"
)

func (r *SQLiteRepository) GetSettings(ctx context.Context) (core.Settings, error) {
	var s core.Settings
	err := r.db.QueryRowContext(ctx,
		`SELECT open_registration, currency, inactivity_timeout_minutes FROM settings WHERE id = 1`).
		Scan(&s.OpenRegistration, &s.Currency, &s.InactivityTimeoutMinutes)
	if err != nil {
		return core.Settings{}, fmt.Errorf("get settings: %w", notFound(err))
	}
	return s, nil
}

func (r *SQLiteRepository) UpdateSettings(ctx context.Context, s core.Settings) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE settings SET open_registration = ?, currency = ?, inactivity_timeout_minutes = ? WHERE id = 1`,
		s.OpenRegistration, s.Currency, s.InactivityTimeoutMinutes)
	if err != nil {
		return fmt.Errorf("update settings: %w", err)
	}
	return nil
}
