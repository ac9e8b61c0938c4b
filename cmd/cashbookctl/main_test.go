package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestAdminWorkflow(t *testing.T) {
	db := filepath.Join(t.TempDir(), "ctl.db")

	out, err := run(t, "--db", db, "migrate", "up")
	require.NoError(t, err)
	assert.Contains(t, out, "schema version")

	_, err = run(t, "--db", db, "invite")
	assert.ErrorContains(t, err, "run create-admin first")

	out, err = run(t, "--db", db, "create-admin", "--email", "Root@Example.com", "--password", "password123")
	require.NoError(t, err)
	assert.Contains(t, out, "created admin root@example.com")

	out, err = run(t, "--db", db, "invite", "--email", "friend@example.com", "--ttl-hours", "24")
	require.NoError(t, err)
	assert.Contains(t, out, "role user")

	_, err = run(t, "--db", db, "invite", "--by", "nobody@example.com")
	assert.ErrorContains(t, err, "no active admin with email nobody@example.com")

	out, err = run(t, "--db", db, "export", "--user", "root@example.com", "--format", "csv")
	require.NoError(t, err)
	assert.Contains(t, out, "date,type,category,description,amount,tags")

	_, err = run(t, "--db", db, "export", "--user", "ghost@example.com")
	assert.ErrorContains(t, err, "no user with email ghost@example.com")

	_, err = run(t, "--db", db, "export", "--user", "root@example.com", "--format", "docx")
	assert.Error(t, err)

	out, err = run(t, "--db", db, "migrate", "version")
	require.NoError(t, err)
	assert.NotContains(t, out, "dirty")
}

func TestCreateAdminNeedsPassword(t *testing.T) {
	t.Setenv("CASHBOOK_ADMIN_PASSWORD", "")
	db := filepath.Join(t.TempDir(), "ctl.db")

	adminPassword = ""
	_, err := run(t, "--db", db, "create-admin", "--email", "root@example.com")
	assert.ErrorContains(t, err, "a password is required")
}
