// Command cashbookctl administers a cashbook database from the shell.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cashbook/internal/cli"
	"cashbook/internal/config"
	"cashbook/internal/export"
	applog "cashbook/internal/log"
	"cashbook/internal/storage"
)

var (
	// dbPath overrides SQLITE_DB_PATH when set.
	dbPath string
	cfg    *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "cashbookctl",
	Short: "Administer a cashbook database",
	Long: `cashbookctl runs maintenance tasks against the cashbook SQLite database.

Available commands:
  migrate      - Apply, roll back or inspect schema migrations
  create-admin - Create an administrator account
  invite       - Create an invite code for a new user
  export       - Export a user's transactions to a file or Google Sheets`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cli.LoadEnvFile()
		c, err := config.Load()
		if err != nil {
			return err
		}
		if dbPath != "" {
			c.SQLiteDBPath = dbPath
		}
		cfg = c
		applog.Setup(cfg.LogLevel, cfg.LogFormat, applog.ComponentCLI)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (default: $SQLITE_DB_PATH)")

	rootCmd.AddCommand(migrateCmd, createAdminCmd, inviteCmd, exportCmd)
}

// openServices opens the database, migrating it, and wires the services.
func openServices(sheets export.SheetAppender) (*storage.SQLiteRepository, cli.Services, error) {
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return nil, cli.Services{}, fmt.Errorf("open database: %w", err)
	}
	return repo, cli.BuildServices(cfg, repo, nil, sheets), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
