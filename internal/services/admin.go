package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cashbook/internal/core"
	"cashbook/internal/storage"
)

const defaultInviteTTL = 7 * 24 * time.Hour

type InviteRequest struct {
	Email string    `json:"email"`
	Role  core.Role `json:"role"`
	// TTLHours defaults to one week.
	TTLHours int `json:"ttl_hours"`
}

// AdminService backs the admin console. Callers must already be admins.
type AdminService struct {
	repo *storage.SQLiteRepository
	now  func() time.Time
}

func NewAdminService(repo *storage.SQLiteRepository) *AdminService {
	return &AdminService{repo: repo, now: utcNow}
}

func (s *AdminService) ListUsers(ctx context.Context) ([]core.User, error) {
	users, err := s.repo.ListUsers(ctx)
	if users == nil && err == nil {
		users = []core.User{}
	}
	return users, err
}

// SetRole changes a user's role. Admins cannot demote themselves.
func (s *AdminService) SetRole(ctx context.Context, actorID, userID int64, role core.Role) error {
	if !role.Valid() {
		return fieldError("role", core.ErrInvalidKind)
	}
	if actorID == userID && role != core.RoleAdmin {
		return fmt.Errorf("%w: admins cannot demote themselves", core.ErrForbidden)
	}
	if err := s.repo.SetUserRole(ctx, userID, role); err != nil {
		return err
	}
	slog.InfoContext(ctx, "User role changed", "actor_id", actorID, "user_id", userID, "role", role)
	return nil
}

// SetDisabled enables or disables an account. Disabling revokes its sessions.
func (s *AdminService) SetDisabled(ctx context.Context, actorID, userID int64, disabled bool) error {
	if actorID == userID && disabled {
		return fmt.Errorf("%w: admins cannot disable themselves", core.ErrForbidden)
	}
	if err := s.repo.SetUserDisabled(ctx, userID, disabled); err != nil {
		return err
	}
	slog.InfoContext(ctx, "User disabled flag changed", "actor_id", actorID, "user_id", userID, "disabled", disabled)
	return nil
}

func (s *AdminService) CreateInvite(ctx context.Context, actorID int64, req InviteRequest) (core.Invite, error) {
	inv := core.Invite{
		Code:      newInviteCode(),
		Role:      req.Role,
		CreatedBy: actorID,
		CreatedAt: s.now(),
	}
	if inv.Role == "" {
		inv.Role = core.RoleUser
	}
	if !inv.Role.Valid() {
		return core.Invite{}, fieldError("role", core.ErrInvalidKind)
	}
	if email := strings.TrimSpace(req.Email); email != "" {
		norm, err := core.NormalizeEmail(email)
		if err != nil {
			return core.Invite{}, fieldError("email", err)
		}
		inv.Email = norm
	}
	ttl := defaultInviteTTL
	if req.TTLHours > 0 {
		ttl = time.Duration(req.TTLHours) * time.Hour
	}
	inv.ExpiresAt = inv.CreatedAt.Add(ttl)

	if err := s.repo.CreateInvite(ctx, inv); err != nil {
		return core.Invite{}, err
	}
	slog.InfoContext(ctx, "Invite created", "actor_id", actorID, "role", inv.Role, "expires_at", inv.ExpiresAt)
	return inv, nil
}

func (s *AdminService) ListInvites(ctx context.Context) ([]core.Invite, error) {
	invites, err := s.repo.ListInvites(ctx)
	if invites == nil && err == nil {
		invites = []core.Invite{}
	}
	return invites, err
}

func (s *AdminService) RevokeInvite(ctx context.Context, code string) error {
	return s.repo.DeleteInvite(ctx, code)
}

func (s *AdminService) Settings(ctx context.Context) (core.Settings, error) {
	return s.repo.GetSettings(ctx)
}

func (s *AdminService) UpdateSettings(ctx context.Context, settings core.Settings) (core.Settings, error) {
	settings.Currency = strings.ToUpper(strings.TrimSpace(settings.Currency))
	if err := settings.Validate(); err != nil {
		return core.Settings{}, err
	}
	if err := s.repo.UpdateSettings(ctx, settings); err != nil {
		return core.Settings{}, err
	}
	return settings, nil
}

func (s *AdminService) Stats(ctx context.Context) (storage.UserStats, error) {
	return s.repo.Stats(ctx)
}
