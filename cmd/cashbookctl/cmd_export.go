package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"cashbook/internal/core"
	"cashbook/internal/export"
	"cashbook/internal/export/sheets"
	"cashbook/internal/storage"
)

var (
	exportUser   string
	exportFormat string
	exportFrom   string
	exportTo     string
	exportOut    string
)

// exportCmd writes a user's transactions to a file or a spreadsheet
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a user's transactions",
	Long: `Export the transactions of one user as CSV, XLSX or PDF, or append them
to the configured Google Sheet with --format sheets.

Examples:
  cashbookctl export --user me@example.com --format xlsx --out march.xlsx --from 2025-03-01 --to 2025-03-31
  cashbookctl export --user me@example.com --format sheets`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	format, err := export.ParseFormat(exportFormat)
	if err != nil {
		return err
	}
	var f core.Filter
	if exportFrom != "" {
		if f.From, err = core.ParseDate(exportFrom); err != nil {
			return fmt.Errorf("--from: %w", err)
		}
	}
	if exportTo != "" {
		if f.To, err = core.ParseDate(exportTo); err != nil {
			return fmt.Errorf("--to: %w", err)
		}
	}

	var appender export.SheetAppender
	if format == export.Sheets {
		if !cfg.SheetsEnabled() {
			return errors.New("GOOGLE_SPREADSHEET_ID is not set")
		}
		client, err := sheets.New(ctx, sheets.Config{
			SpreadsheetID:      cfg.GoogleSpreadsheetID,
			SheetName:          cfg.GoogleSheetName,
			ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
			ServiceAccountFile: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			return err
		}
		appender = client
	}

	repo, svc, err := openServices(appender)
	if err != nil {
		return err
	}
	defer repo.Close()

	userID, err := lookupUser(ctx, repo, exportUser)
	if err != nil {
		return err
	}

	if format == export.Sheets {
		n, err := svc.Export.AppendToSheet(ctx, userID, f)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "appended %d rows\n", n)
		return nil
	}

	var w io.Writer = cmd.OutOrStdout()
	if exportOut != "" && exportOut != "-" {
		file, err := os.Create(exportOut)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer file.Close()
		w = file
	}
	if err := svc.Export.Export(ctx, userID, format, f, w); err != nil {
		return err
	}
	if exportOut != "" && exportOut != "-" {
		fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", exportOut)
	}
	return nil
}

func lookupUser(ctx context.Context, repo *storage.SQLiteRepository, email string) (int64, error) {
	norm, err := core.NormalizeEmail(email)
	if err != nil {
		return 0, fmt.Errorf("--user: %w", err)
	}
	u, _, err := repo.GetUserByEmail(ctx, norm)
	if errors.Is(err, core.ErrNotFound) {
		return 0, fmt.Errorf("no user with email %s", norm)
	}
	return u.ID, err
}

func init() {
	exportCmd.Flags().StringVar(&exportUser, "user", "", "email of the user whose transactions are exported")
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "csv, xlsx, pdf or sheets")
	exportCmd.Flags().StringVar(&exportFrom, "from", "", "first day to include (YYYY-MM-DD)")
	exportCmd.Flags().StringVar(&exportTo, "to", "", "last day to include (YYYY-MM-DD)")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default: stdout)")
	_ = exportCmd.MarkFlagRequired("user")
}
