// Package cli provides common initialization shared by cmd/cashbook,
// cmd/cashbook-worker and cmd/cashbookctl.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"cashbook/internal/cache"
	"cashbook/internal/config"
	"cashbook/internal/core"
	"cashbook/internal/export"
	applog "cashbook/internal/log"
	"cashbook/internal/services"
	"cashbook/internal/storage"
)

// SetupLogger initializes structured logging from the configuration and
// installs it as the default logger.
func SetupLogger(cfg *config.Config, component string) *applog.Logger {
	return applog.Setup(cfg.LogLevel, cfg.LogFormat, component)
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on failure. Logging is not set up
// yet at this point, so problems go to the default logger.
func LoadAndValidateConfig() *config.Config {
	logger := applog.New(applog.DefaultConfig())
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Configuration could not be loaded", applog.FieldError, err.Error())
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err.Error())
		os.Exit(1)
	}
	return cfg
}

// InitSQLite opens the repository, applying pending migrations.
// Returns the repository or exits the process on failure.
func InitSQLite(logger *applog.Logger, dbPath string) *storage.SQLiteRepository {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.WithComponent(applog.ComponentStorage).Error("Failed to initialize SQLite repository",
			applog.FieldError, err.Error(),
			"path", dbPath)
		os.Exit(1)
	}
	return repo
}

// Services holds the business services built over one repository.
type Services struct {
	Auth         *services.AuthService
	Admin        *services.AdminService
	Categories   *services.CategoryService
	Budgets      *services.BudgetService
	Dashboard    *services.DashboardService
	Transactions *services.TransactionService
	Scheduler    *services.NotificationScheduler
	Reminders    *services.ReminderService
	Export       *services.ExportService
}

// BuildServices wires the services the same way for every binary. publisher
// may be nil in processes that never dispatch notifications, sheets when no
// spreadsheet is configured.
func BuildServices(cfg *config.Config, repo *storage.SQLiteRepository, publisher services.Publisher, sheets export.SheetAppender) Services {
	budgets := services.NewBudgetService(repo)
	dash := services.NewDashboardService(repo, budgets,
		cache.NewLRUCache[core.MonthSummary](cfg.CacheSize, cfg.CacheTTL),
		cache.NewLRUCache[core.Dashboard](cfg.CacheSize, cfg.CacheTTL))
	budgets.OnChange(dash.InvalidateUser)

	txs := services.NewTransactionService(repo, budgets, dash)
	sched := services.NewNotificationScheduler(repo, publisher, services.SchedulerConfig{
		NotifyHour: cfg.NotifyHour,
		BatchSize:  cfg.SchedulerBatchSize,
	})

	return Services{
		Auth: services.NewAuthService(repo, services.AuthConfig{
			InactivityTimeout: cfg.SessionInactivityTimeout,
			MaxAge:            cfg.SessionMaxAge,
		}),
		Admin:        services.NewAdminService(repo),
		Categories:   services.NewCategoryService(repo),
		Budgets:      budgets,
		Dashboard:    dash,
		Transactions: txs,
		Scheduler:    sched,
		Reminders:    services.NewReminderService(repo, sched, txs),
		Export:       services.NewExportService(repo, sheets),
	}
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that is closed once cleanup finished or timed out.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()

		finished := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup(shutdownCtx)
			}
			close(finished)
		}()

		select {
		case <-shutdownCtx.Done():
			logger.Warn("Shutdown timeout reached")
		case <-finished:
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup is done.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
