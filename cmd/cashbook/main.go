package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"cashbook/internal/cli"
	"cashbook/internal/export"
	"cashbook/internal/export/sheets"
	apphttp "cashbook/internal/http"
	applog "cashbook/internal/log"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentApp)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	var appender export.SheetAppender
	if cfg.SheetsEnabled() {
		client, err := sheets.New(context.Background(), sheets.Config{
			SpreadsheetID:      cfg.GoogleSpreadsheetID,
			SheetName:          cfg.GoogleSheetName,
			ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
			ServiceAccountFile: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err.Error())
			os.Exit(1)
		}
		appender = client
		logger.Info("Google Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	}

	// Notifications are dispatched by cashbook-worker; the API only stores them.
	svc := cli.BuildServices(cfg, repo, nil, appender)

	srv, err := apphttp.NewServer(apphttp.Config{
		Addr:               cfg.Addr(),
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:     cfg.TrustedProxies,
	}, apphttp.Services{
		Auth:         svc.Auth,
		Categories:   svc.Categories,
		Transactions: svc.Transactions,
		Reminders:    svc.Reminders,
		Budgets:      svc.Budgets,
		Dashboard:    svc.Dashboard,
		Scheduler:    svc.Scheduler,
		Admin:        svc.Admin,
		Export:       svc.Export,
		Ready:        repo.Ping,
	}, logger)
	if err != nil {
		logger.Error("Failed to configure server", applog.FieldError, err.Error())
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err.Error())
		}
	})

	logger.Info("Starting cashbook server",
		"port", cfg.Port,
		"db", cfg.SQLiteDBPath,
		"sheets", cfg.SheetsEnabled())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err.Error(), "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
