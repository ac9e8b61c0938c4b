package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"cashbook/internal/core"
	"cashbook/internal/storage"

	"golang.org/x/crypto/bcrypt"
)

type AuthConfig struct {
	// InactivityTimeout applies when the stored settings do not set one.
	InactivityTimeout time.Duration
	MaxAge            time.Duration
}

// RegisterRequest carries the fields of a sign-up form.
type RegisterRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	Name       string `json:"name"`
	InviteCode string `json:"invite_code"`
}

// AuthService owns accounts, sessions and device registrations.
type AuthService struct {
	repo       *storage.SQLiteRepository
	cfg        AuthConfig
	now        func() time.Time
	bcryptCost int
	compare    func(hash, password []byte) error

	// dummyHash is compared on unknown emails so both paths cost one bcrypt run.
	dummyOnce sync.Once
	dummyHash []byte
}

func NewAuthService(repo *storage.SQLiteRepository, cfg AuthConfig) *AuthService {
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 7 * 24 * time.Hour
	}
	return &AuthService{
		repo:       repo,
		cfg:        cfg,
		now:        utcNow,
		bcryptCost: bcrypt.DefaultCost,
		compare:    bcrypt.CompareHashAndPassword,
	}
}

// Register creates an account. The very first account becomes admin without
// an invite; later ones need a valid invite unless registration is open.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (core.User, error) {
	var v core.ValidationError
	email, err := core.NormalizeEmail(req.Email)
	if err != nil {
		v.Add("email", err)
	}
	if err := core.ValidatePassword(req.Password); err != nil {
		v.Add("password", err)
	}
	name := strings.TrimSpace(req.Name)
	if len(name) > 60 {
		v.Add("name", errors.New("name too long (max 60 characters)"))
	}
	if err := v.OrNil(); err != nil {
		return core.User{}, err
	}

	count, err := s.repo.CountUsers(ctx)
	if err != nil {
		return core.User{}, fmt.Errorf("register: %w", err)
	}

	role := core.RoleUser
	code := strings.TrimSpace(req.InviteCode)
	switch {
	case count == 0:
		role, code = core.RoleAdmin, ""
	case code != "":
		inv, err := s.repo.GetInvite(ctx, code)
		if errors.Is(err, core.ErrNotFound) {
			return core.User{}, core.ErrInviteInvalid
		}
		if err != nil {
			return core.User{}, fmt.Errorf("register: %w", err)
		}
		if !inv.Usable(email, s.now()) {
			return core.User{}, core.ErrInviteInvalid
		}
		role = inv.Role
	default:
		settings, err := s.repo.GetSettings(ctx)
		if err != nil {
			return core.User{}, fmt.Errorf("register: %w", err)
		}
		if !settings.OpenRegistration {
			return core.User{}, core.ErrInviteRequired
		}
	}

	return s.createUser(ctx, storage.CreateUserParams{
		Email:       email,
		Name:        name,
		Role:        role,
		InviteCode:  code,
		OnlyIfFirst: count == 0,
	}, req.Password)
}

// CreateUser creates an account with an explicit role, bypassing invites.
func (s *AuthService) CreateUser(ctx context.Context, email, password, name string, role core.Role) (core.User, error) {
	email, err := core.NormalizeEmail(email)
	if err != nil {
		return core.User{}, fieldError("email", err)
	}
	if err := core.ValidatePassword(password); err != nil {
		return core.User{}, fieldError("password", err)
	}
	if !role.Valid() {
		return core.User{}, fieldError("role", core.ErrInvalidKind)
	}
	return s.createUser(ctx, storage.CreateUserParams{
		Email: email,
		Name:  strings.TrimSpace(name),
		Role:  role,
	}, password)
}

// createUser hashes password into p and stores the account.
func (s *AuthService) createUser(ctx context.Context, p storage.CreateUserParams, password string) (core.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return core.User{}, fmt.Errorf("hash password: %w", err)
	}
	p.PasswordHash = string(hash)
	p.Now = s.now()
	return s.repo.CreateUser(ctx, p)
}

// Login checks credentials and opens a new session.
func (s *AuthService) Login(ctx context.Context, email, password string) (core.Session, core.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, hash, err := s.repo.GetUserByEmail(ctx, email)
	if errors.Is(err, core.ErrNotFound) {
		_ = s.compare(s.unknownUserHash(), []byte(password))
		return core.Session{}, core.User{}, core.ErrUnauthorized
	}
	if err != nil {
		return core.Session{}, core.User{}, fmt.Errorf("login: %w", err)
	}
	if err := s.compare([]byte(hash), []byte(password)); err != nil {
		slog.WarnContext(ctx, "Login failed", "user_id", u.ID)
		return core.Session{}, core.User{}, core.ErrUnauthorized
	}
	if u.Disabled {
		return core.Session{}, core.User{}, core.ErrUserDisabled
	}

	now := s.now()
	sess := core.Session{
		Token:      newToken(),
		UserID:     u.ID,
		CreatedAt:  now,
		LastSeenAt: now,
		ExpiresAt:  now.Add(s.cfg.MaxAge),
	}
	if err := s.repo.CreateSession(ctx, sess); err != nil {
		return core.Session{}, core.User{}, fmt.Errorf("login: %w", err)
	}
	if err := s.repo.TouchLogin(ctx, u.ID, now); err != nil {
		slog.WarnContext(ctx, "Failed to record login time", "user_id", u.ID, "error", err)
	}
	u.LastLoginAt = &now

	slog.InfoContext(ctx, "User logged in", "user_id", u.ID)
	return sess, u, nil
}

func (s *AuthService) unknownUserHash() []byte {
	s.dummyOnce.Do(func() {
		h, err := bcrypt.GenerateFromPassword([]byte(newToken()), s.bcryptCost)
		if err != nil {
			slog.Error("Failed to prepare dummy password hash", "error", err)
		}
		s.dummyHash = h
	})
	return s.dummyHash
}

// inactivity returns the idle timeout, preferring the stored settings.
func (s *AuthService) inactivity(ctx context.Context) time.Duration {
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Failed to read settings, using configured inactivity timeout", "error", err)
		return s.cfg.InactivityTimeout
	}
	if settings.InactivityTimeoutMinutes > 0 {
		return time.Duration(settings.InactivityTimeoutMinutes) * time.Minute
	}
	return s.cfg.InactivityTimeout
}

// Authenticate resolves a session token to its user and slides the idle window.
func (s *AuthService) Authenticate(ctx context.Context, token string) (core.User, core.Session, error) {
	if token == "" {
		return core.User{}, core.Session{}, core.ErrUnauthorized
	}
	sess, err := s.repo.GetSession(ctx, token)
	if errors.Is(err, core.ErrNotFound) {
		return core.User{}, core.Session{}, core.ErrUnauthorized
	}
	if err != nil {
		return core.User{}, core.Session{}, fmt.Errorf("authenticate: %w", err)
	}

	now := s.now()
	if sess.Expired(now, s.inactivity(ctx)) {
		if err := s.repo.DeleteSession(ctx, token); err != nil {
			slog.WarnContext(ctx, "Failed to delete expired session", "error", err)
		}
		return core.User{}, core.Session{}, core.ErrSessionExpired
	}

	u, err := s.repo.GetUser(ctx, sess.UserID)
	if err != nil {
		return core.User{}, core.Session{}, fmt.Errorf("authenticate: %w", err)
	}
	if u.Disabled {
		return core.User{}, core.Session{}, core.ErrUserDisabled
	}

	if err := s.repo.TouchSession(ctx, token, now); err != nil {
		slog.WarnContext(ctx, "Failed to touch session", "user_id", u.ID, "error", err)
	}
	sess.LastSeenAt = now
	return u, sess, nil
}

func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.repo.DeleteSession(ctx, token)
}

// ChangePassword replaces the password and revokes every other session.
func (s *AuthService) ChangePassword(ctx context.Context, userID int64, currentToken, oldPassword, newPassword string) error {
	hash, err := s.repo.GetPasswordHash(ctx, userID)
	if err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	if err := s.compare([]byte(hash), []byte(oldPassword)); err != nil {
		return fieldError("old_password", core.ErrUnauthorized)
	}
	if err := core.ValidatePassword(newPassword); err != nil {
		return fieldError("new_password", err)
	}
	newHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.repo.SetPasswordHash(ctx, userID, string(newHash)); err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	if err := s.repo.DeleteUserSessions(ctx, userID, currentToken); err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	slog.InfoContext(ctx, "Password changed", "user_id", userID)
	return nil
}

func (s *AuthService) RegisterDevice(ctx context.Context, userID int64, token, platform string) error {
	token = strings.TrimSpace(token)
	if token == "" || len(token) > 4096 {
		return fieldError("token", errors.New("invalid device token"))
	}
	return s.repo.UpsertDevice(ctx, core.Device{
		Token:    token,
		UserID:   userID,
		Platform: strings.ToLower(strings.TrimSpace(platform)),
		LastSeen: s.now(),
	})
}

func (s *AuthService) UnregisterDevice(ctx context.Context, userID int64, token string) error {
	return s.repo.DeleteDevice(ctx, userID, token)
}

// PurgeExpiredSessions deletes sessions past their lifetime or idle timeout.
func (s *AuthService) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	now := s.now()
	var idleBefore time.Time
	if d := s.inactivity(ctx); d > 0 {
		idleBefore = now.Add(-d)
	}
	n, err := s.repo.DeleteExpiredSessions(ctx, now, idleBefore)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		slog.InfoContext(ctx, "Purged expired sessions", "count", n)
	}
	return n, nil
}
