package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cashbook/internal/storage"
)

var migrateSteps int

// migrateCmd groups schema migration commands
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage database schema migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := storage.RunMigrations(cfg.SQLiteDBPath); err != nil {
			return err
		}
		return printVersion(cmd)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back applied migrations",
	Long: `Roll back the given number of applied migrations (default 1).

Rolling back the first migration drops every table and all data.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if migrateSteps < 1 {
			return fmt.Errorf("--steps must be at least 1")
		}
		if err := storage.RollbackMigrations(cfg.SQLiteDBPath, migrateSteps); err != nil {
			return err
		}
		return printVersion(cmd)
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the current schema version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printVersion(cmd)
	},
}

func printVersion(cmd *cobra.Command) error {
	version, dirty, err := storage.MigrationVersion(cfg.SQLiteDBPath)
	if err != nil {
		return err
	}
	if dirty {
		fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty)\n", version)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", version)
	return nil
}

func init() {
	migrateDownCmd.Flags().IntVar(&migrateSteps, "steps", 1, "number of migrations to roll back")
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateVersionCmd)
}
