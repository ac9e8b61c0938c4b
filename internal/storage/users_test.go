package storage

import (
	"context"
	"testing"
	"time"

	"cashbook/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUserDuplicateEmail(t *testing.T) {
	repo := newTestRepo(t)
	createUser(t, repo, "a@example.com", core.RoleAdmin)

	_, err := repo.CreateUser(context.Background(), CreateUserParams{
		Email: "a@example.com", PasswordHash: "x", Role: core.RoleUser, Now: testNow,
	})
	assert.ErrorIs(t, err, core.ErrConflict)
}

func TestCreateUserRedeemsInvite(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	admin := createUser(t, repo, "admin@example.com", core.RoleAdmin)

	require.NoError(t, repo.CreateInvite(ctx, core.Invite{
		Code: "abc", Email: "bob@example.com", Role: core.RoleUser,
		CreatedBy: admin.ID, CreatedAt: testNow, ExpiresAt: testNow.Add(time.Hour),
	}))

	_, err := repo.CreateUser(ctx, CreateUserParams{
		Email: "eve@example.com", PasswordHash: "x", Role: core.RoleUser, InviteCode: "abc", Now: testNow,
	})
	assert.ErrorIs(t, err, core.ErrInviteInvalid)

	n, err := repo.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "failed redemption must roll back the user")

	bob, err := repo.CreateUser(ctx, CreateUserParams{
		Email: "bob@example.com", PasswordHash: "x", Role: core.RoleUser, InviteCode: "abc", Now: testNow,
	})
	require.NoError(t, err)

	inv, err := repo.GetInvite(ctx, "abc")
	require.NoError(t, err)
	require.NotNil(t, inv.UsedAt)
	assert.Equal(t, bob.ID, inv.UsedBy)

	_, err = repo.CreateUser(ctx, CreateUserParams{
		Email: "bob2@example.com", PasswordHash: "x", Role: core.RoleUser, InviteCode: "abc", Now: testNow,
	})
	assert.ErrorIs(t, err, core.ErrInviteInvalid)
	assert.ErrorIs(t, repo.DeleteInvite(ctx, "abc"), core.ErrNotFound, "used invites cannot be revoked")
}

func TestGetUserByEmail(t *testing.T) {
	repo := newTestRepo(t)
	u := createUser(t, repo, "a@example.com", core.RoleUser)

	got, hash, err := repo.GetUserByEmail(context.Background(), "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "hash", hash)

	_, _, err = repo.GetUserByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestLastAdminProtected(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	admin := createUser(t, repo, "admin@example.com", core.RoleAdmin)
	user := createUser(t, repo, "user@example.com", core.RoleUser)

	assert.ErrorIs(t, repo.SetUserRole(ctx, admin.ID, core.RoleUser), core.ErrConflict)
	assert.ErrorIs(t, repo.SetUserDisabled(ctx, admin.ID, true), core.ErrConflict)

	require.NoError(t, repo.SetUserRole(ctx, user.ID, core.RoleAdmin))
	require.NoError(t, repo.SetUserRole(ctx, admin.ID, core.RoleUser))

	got, err := repo.GetUser(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, core.RoleUser, got.Role)
}

func TestDisableRevokesSessions(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	createUser(t, repo, "admin@example.com", core.RoleAdmin)
	u := createUser(t, repo, "u@example.com", core.RoleUser)

	require.NoError(t, repo.CreateSession(ctx, core.Session{
		Token: "tok", UserID: u.ID, CreatedAt: testNow, LastSeenAt: testNow, ExpiresAt: testNow.Add(time.Hour),
	}))
	require.NoError(t, repo.SetUserDisabled(ctx, u.ID, true))

	_, err := repo.GetSession(ctx, "tok")
	assert.ErrorIs(t, err, core.ErrNotFound)

	got, err := repo.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.Disabled)
}

func TestStats(t *testing.T) {
	repo := newTestRepo(t)
	createUser(t, repo, "admin@example.com", core.RoleAdmin)
	createUser(t, repo, "u1@example.com", core.RoleUser)
	createUser(t, repo, "u2@example.com", core.RoleUser)

	st, err := repo.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, st.Total)
	assert.Equal(t, 1, st.ByRole["admin"])
	assert.Equal(t, 2, st.ByRole["user"])
	assert.Equal(t, 3, st.RegistrationsByMo["2025-03"])
}

func TestSessions(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := createUser(t, repo, "a@example.com", core.RoleUser)

	for i, tok := range []string{"fresh", "idle", "expired"} {
		s := core.Session{Token: tok, UserID: u.ID, CreatedAt: testNow, LastSeenAt: testNow, ExpiresAt: testNow.Add(time.Hour)}
		switch i {
		case 1:
			s.LastSeenAt = testNow.Add(-2 * time.Hour)
		case 2:
			s.ExpiresAt = testNow.Add(-time.Minute)
		}
		require.NoError(t, repo.CreateSession(ctx, s))
	}

	require.NoError(t, repo.TouchSession(ctx, "fresh", testNow.Add(time.Minute)))
	s, err := repo.GetSession(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, testNow.Add(time.Minute), s.LastSeenAt)

	n, err := repo.DeleteExpiredSessions(ctx, testNow, testNow.Add(-30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = repo.GetSession(ctx, "fresh")
	assert.NoError(t, err)
}

func TestDevices(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	a := createUser(t, repo, "a@example.com", core.RoleUser)
	b := createUser(t, repo, "b@example.com", core.RoleUser)

	require.NoError(t, repo.UpsertDevice(ctx, core.Device{Token: "t1", UserID: a.ID, Platform: "android", LastSeen: testNow}))
	require.NoError(t, repo.UpsertDevice(ctx, core.Device{Token: "t2", UserID: a.ID, Platform: "ios", LastSeen: testNow}))

	tokens, err := repo.ListDeviceTokens(ctx, a.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"t1", "t2"}, tokens)

	// re-registering moves the token
	require.NoError(t, repo.UpsertDevice(ctx, core.Device{Token: "t1", UserID: b.ID, LastSeen: testNow}))
	tokens, err = repo.ListDeviceTokens(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"t2"}, tokens)

	assert.ErrorIs(t, repo.DeleteDevice(ctx, a.ID, "t1"), core.ErrNotFound)
	require.NoError(t, repo.DeleteDeviceToken(ctx, "t2"))
	tokens, err = repo.ListDeviceTokens(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, tokens)
}

func TestCreateFirstUserOnlyOnce(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first, err := repo.CreateUser(ctx, CreateUserParams{
		Email: "a@example.com", PasswordHash: "x", Role: core.RoleAdmin, OnlyIfFirst: true, Now: testNow,
	})
	require.NoError(t, err)
	assert.Equal(t, core.RoleAdmin, first.Role)

	_, err = repo.CreateUser(ctx, CreateUserParams{
		Email: "b@example.com", PasswordHash: "x", Role: core.RoleAdmin, OnlyIfFirst: true, Now: testNow,
	})
	assert.ErrorIs(t, err, core.ErrInviteRequired)

	n, err := repo.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
