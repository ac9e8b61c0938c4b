package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"cashbook/internal/core"
	"cashbook/internal/services"
)

var (
	adminEmail    string
	adminName     string
	adminPassword string

	inviteEmail string
	inviteRole  string
	inviteTTL   int
	inviteBy    string
)

// createAdminCmd bootstraps or recovers administrator access
var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an administrator account",
	Long: `Create an administrator account without an invite.

The password is read from --password or, when omitted, from
$CASHBOOK_ADMIN_PASSWORD so it stays out of shell history.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		password := adminPassword
		if password == "" {
			password = os.Getenv("CASHBOOK_ADMIN_PASSWORD")
		}
		if password == "" {
			return errors.New("a password is required (--password or $CASHBOOK_ADMIN_PASSWORD)")
		}

		repo, svc, err := openServices(nil)
		if err != nil {
			return err
		}
		defer repo.Close()

		u, err := svc.Auth.CreateUser(cmd.Context(), adminEmail, password, adminName, core.RoleAdmin)
		if err != nil {
			return fmt.Errorf("create admin: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (id %d)\n", u.Email, u.ID)
		return nil
	},
}

// inviteCmd issues an invite code from the shell
var inviteCmd = &cobra.Command{
	Use:   "invite",
	Short: "Create an invite code",
	Long: `Create an invite code that lets a new user register.

The invite is attributed to --by, or to the first administrator found.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, svc, err := openServices(nil)
		if err != nil {
			return err
		}
		defer repo.Close()

		actor, err := findAdmin(cmd.Context(), svc.Admin, inviteBy)
		if err != nil {
			return err
		}
		inv, err := svc.Admin.CreateInvite(cmd.Context(), actor.ID, services.InviteRequest{
			Email:    inviteEmail,
			Role:     core.Role(strings.ToLower(inviteRole)),
			TTLHours: inviteTTL,
		})
		if err != nil {
			return fmt.Errorf("create invite: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "invite %s (role %s, expires %s)\n",
			inv.Code, inv.Role, inv.ExpiresAt.Format("2006-01-02 15:04 MST"))
		return nil
	},
}

// findAdmin returns the admin with the given email, or the first admin when
// email is empty.
func findAdmin(ctx context.Context, admin *services.AdminService, email string) (core.User, error) {
	users, err := admin.ListUsers(ctx)
	if err != nil {
		return core.User{}, err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range users {
		if u.Role != core.RoleAdmin || u.Disabled {
			continue
		}
		if email == "" || u.Email == email {
			return u, nil
		}
	}
	if email != "" {
		return core.User{}, fmt.Errorf("no active admin with email %s", email)
	}
	return core.User{}, errors.New("no active admin exists; run create-admin first")
}

func init() {
	createAdminCmd.Flags().StringVar(&adminEmail, "email", "", "admin email address")
	createAdminCmd.Flags().StringVar(&adminName, "name", "", "display name")
	createAdminCmd.Flags().StringVar(&adminPassword, "password", "", "password (default: $CASHBOOK_ADMIN_PASSWORD)")
	_ = createAdminCmd.MarkFlagRequired("email")

	inviteCmd.Flags().StringVar(&inviteEmail, "email", "", "restrict the invite to this email")
	inviteCmd.Flags().StringVar(&inviteRole, "role", string(core.RoleUser), "role granted on registration (user or admin)")
	inviteCmd.Flags().IntVar(&inviteTTL, "ttl-hours", 0, "hours until the invite expires (default one week)")
	inviteCmd.Flags().StringVar(&inviteBy, "by", "", "email of the admin issuing the invite")
}
