package storage

import (
	"context"
	"database/sql"
	"fmt"

	"cashbook/internal/core"
)

const inviteColumns = `code, email, role, COALESCE(created_by, 0), created_at, expires_at, used_at, COALESCE(used_by, 0)`

func scanInvite(row interface{ Scan(...any) error }) (core.Invite, error) {
	var (
		inv              core.Invite
		role             string
		created, expires int64
		used             sql.NullInt64
	)
	if err := row.Scan(&inv.Code, &inv.Email, &role, &inv.CreatedBy, &created, &expires, &used, &inv.UsedBy); err != nil {
		return core.Invite{}, err
	}
	inv.Role = core.Role(role)
	inv.CreatedAt = fromUnix(created)
	inv.ExpiresAt = fromUnix(expires)
	inv.UsedAt = timePtr(used)
	return inv, nil
}

func (r *SQLiteRepository) CreateInvite(ctx context.Context, inv core.Invite) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO invites (code, email, role, created_by, created_at, expires_at) VALUES (?, ?, ?, ?, ?, ?)`,
		inv.Code, inv.Email, string(inv.Role), nullID(inv.CreatedBy), unix(inv.CreatedAt), unix(inv.ExpiresAt))
	if err != nil {
		return fmt.Errorf("create invite: %w", mapConstraint(err))
	}
	return nil
}

func (r *SQLiteRepository) GetInvite(ctx context.Context, code string) (core.Invite, error) {
	inv, err := scanInvite(r.db.QueryRowContext(ctx, `SELECT `+inviteColumns+` FROM invites WHERE code = ?`, code))
	if err != nil {
		return core.Invite{}, fmt.Errorf("get invite: %w", notFound(err))
	}
	return inv, nil
}

func (r *SQLiteRepository) ListInvites(ctx context.Context) ([]core.Invite, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+inviteColumns+` FROM invites ORDER BY created_at DESC, code`)
	if err != nil {
		return nil, fmt.Errorf("list invites: %w", err)
	}
	defer rows.Close()

	var out []core.Invite
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invite: %w", err)
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// DeleteInvite revokes an unused invite. Used invites are kept for audit.
func (r *SQLiteRepository) DeleteInvite(ctx context.Context, code string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM invites WHERE code = ? AND used_at IS NULL`, code)
	if err != nil {
		return fmt.Errorf("delete invite: %w", err)
	}
	return affected(res)
}
