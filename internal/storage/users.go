package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"cashbook/internal/core"
)

// CreateUserParams describes a new account. A non-empty InviteCode is
// redeemed in the same transaction and must be usable for Email. OnlyIfFirst
// makes the insert conditional on the users table being empty; a lost race
// gives ErrInviteRequired.
type CreateUserParams struct {
	Email        string
	Name         string
	PasswordHash string
	Role         core.Role
	InviteCode   string
	OnlyIfFirst  bool
	Now          time.Time
}

const userColumns = `id, email, name, role, disabled, created_at, last_login_at`

func scanUser(row interface{ Scan(...any) error }) (core.User, error) {
	var (
		u         core.User
		role      string
		disabled  bool
		createdAt int64
		lastLogin sql.NullInt64
	)
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &role, &disabled, &createdAt, &lastLogin); err != nil {
		return core.User{}, err
	}
	u.Role = core.Role(role)
	u.Disabled = disabled
	u.CreatedAt = fromUnix(createdAt)
	u.LastLoginAt = timePtr(lastLogin)
	return u, nil
}

func (r *SQLiteRepository) CreateUser(ctx context.Context, p CreateUserParams) (core.User, error) {
	var u core.User
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		query := `INSERT INTO users (email, name, password_hash, role, created_at) VALUES (?, ?, ?, ?, ?)`
		if p.OnlyIfFirst {
			query = `INSERT INTO users (email, name, password_hash, role, created_at)
				SELECT ?, ?, ?, ?, ? WHERE NOT EXISTS (SELECT 1 FROM users)`
		}
		res, err := tx.ExecContext(ctx, query, p.Email, p.Name, p.PasswordHash, string(p.Role), unix(p.Now))
		if err != nil {
			return mapConstraint(err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return core.ErrInviteRequired
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		if p.InviteCode != "" {
			res, err := tx.ExecContext(ctx,
				`UPDATE invites SET used_at = ?, used_by = ?
				 WHERE code = ? AND used_at IS NULL AND expires_at > ?
				   AND (email = '' OR email = ? COLLATE NOCASE)`,
				unix(p.Now), id, p.InviteCode, unix(p.Now), p.Email)
			if err != nil {
				return fmt.Errorf("redeem invite: %w", err)
			}
			if n, _ := res.RowsAffected(); n != 1 {
				return core.ErrInviteInvalid
			}
		}
		u, err = scanUser(tx.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
		return err
	})
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	slog.InfoContext(ctx, "User created", "user_id", u.ID, "role", u.Role)
	return u, nil
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id int64) (core.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", notFound(err))
	}
	return u, nil
}

// GetUserByEmail returns the user and its password hash.
func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (core.User, string, error) {
	var hash string
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+`, password_hash FROM users WHERE email = ?`, email)
	var (
		u         core.User
		role      string
		createdAt int64
		lastLogin sql.NullInt64
	)
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &role, &u.Disabled, &createdAt, &lastLogin, &hash); err != nil {
		return core.User{}, "", fmt.Errorf("get user by email: %w", notFound(err))
	}
	u.Role = core.Role(role)
	u.CreatedAt = fromUnix(createdAt)
	u.LastLoginAt = timePtr(lastLogin)
	return u, hash, nil
}

func (r *SQLiteRepository) GetPasswordHash(ctx context.Context, userID int64) (string, error) {
	var hash string
	if err := r.db.QueryRowContext(ctx, `SELECT password_hash FROM users WHERE id = ?`, userID).Scan(&hash); err != nil {
		return "", fmt.Errorf("get password hash: %w", notFound(err))
	}
	return hash, nil
}

func (r *SQLiteRepository) SetPasswordHash(ctx context.Context, userID int64, hash string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, hash, userID)
	if err != nil {
		return fmt.Errorf("set password hash: %w", err)
	}
	return affected(res)
}

func (r *SQLiteRepository) TouchLogin(ctx context.Context, userID int64, at time.Time) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE users SET last_login_at = ? WHERE id = ?`, unix(at), userID); err != nil {
		return fmt.Errorf("touch login: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) ListUsers(ctx context.Context) ([]core.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []core.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// SetUserRole changes a role. Demoting the last enabled admin fails with ErrConflict.
func (r *SQLiteRepository) SetUserRole(ctx context.Context, userID int64, role core.Role) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if role != core.RoleAdmin {
			if err := ensureOtherAdmin(ctx, tx, userID); err != nil {
				return err
			}
		}
		res, err := tx.ExecContext(ctx, `UPDATE users SET role = ? WHERE id = ?`, string(role), userID)
		if err != nil {
			return fmt.Errorf("set user role: %w", err)
		}
		return affected(res)
	})
}

// SetUserDisabled toggles an account. Disabling also deletes its sessions.
func (r *SQLiteRepository) SetUserDisabled(ctx context.Context, userID int64, disabled bool) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if disabled {
			if err := ensureOtherAdmin(ctx, tx, userID); err != nil {
				return err
			}
		}
		res, err := tx.ExecContext(ctx, `UPDATE users SET disabled = ? WHERE id = ?`, disabled, userID)
		if err != nil {
			return fmt.Errorf("set user disabled: %w", err)
		}
		if err := affected(res); err != nil {
			return err
		}
		if disabled {
			if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID); err != nil {
				return fmt.Errorf("revoke sessions: %w", err)
			}
		}
		return nil
	})
}

// ensureOtherAdmin fails when userID is the only enabled admin.
func ensureOtherAdmin(ctx context.Context, q querier, userID int64) error {
	var isAdmin bool
	err := q.QueryRowContext(ctx, `SELECT role = 'admin' AND disabled = 0 FROM users WHERE id = ?`, userID).Scan(&isAdmin)
	if err != nil {
		return notFound(err)
	}
	if !isAdmin {
		return nil
	}
	var others int
	if err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE role = 'admin' AND disabled = 0 AND id <> ?`, userID).Scan(&others); err != nil {
		return fmt.Errorf("count admins: %w", err)
	}
	if others == 0 {
		return fmt.Errorf("%w: last admin", core.ErrConflict)
	}
	return nil
}

// UserStats summarises accounts for the admin console.
type UserStats struct {
	Total             int            `json:"total"`
	Disabled          int            `json:"disabled"`
	ByRole            map[string]int `json:"by_role"`
	RegistrationsByMo map[string]int `json:"registrations_by_month"`
	Transactions      int            `json:"transactions"`
	Reminders         int            `json:"reminders"`
	Budgets           int            `json:"budgets"`
}

func (r *SQLiteRepository) Stats(ctx context.Context) (UserStats, error) {
	st := UserStats{ByRole: map[string]int{}, RegistrationsByMo: map[string]int{}}

	rows, err := r.db.QueryContext(ctx, `SELECT role, COUNT(*), SUM(disabled) FROM users GROUP BY role`)
	if err != nil {
		return st, fmt.Errorf("count users by role: %w", err)
	}
	for rows.Next() {
		var (
			role     string
			n        int
			disabled int
		)
		if err := rows.Scan(&role, &n, &disabled); err != nil {
			rows.Close()
			return st, fmt.Errorf("scan role count: %w", err)
		}
		st.ByRole[role] = n
		st.Total += n
		st.Disabled += disabled
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return st, err
	}

	rows, err = r.db.QueryContext(ctx,
		`SELECT strftime('%Y-%m', created_at, 'unixepoch') AS ym, COUNT(*) FROM users GROUP BY ym ORDER BY ym`)
	if err != nil {
		return st, fmt.Errorf("count registrations: %w", err)
	}
	for rows.Next() {
		var (
			ym string
			n  int
		)
		if err := rows.Scan(&ym, &n); err != nil {
			rows.Close()
			return st, fmt.Errorf("scan registrations: %w", err)
		}
		st.RegistrationsByMo[ym] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return st, err
	}

	err = r.db.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM transactions),
		(SELECT COUNT(*) FROM reminders),
		(SELECT COUNT(*) FROM budgets)`).Scan(&st.Transactions, &st.Reminders, &st.Budgets)
	if err != nil {
		return st, fmt.Errorf("count records: %w", err)
	}
	return st, nil
}
