package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"cashbook/internal/core"
	"cashbook/internal/storage"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// TransactionPage is one page of a filtered listing.
type TransactionPage struct {
	Items  []core.Transaction `json:"items"`
	Total  int                `json:"total"`
	Limit  int                `json:"limit"`
	Offset int                `json:"offset"`
}

type TransactionService struct {
	repo      *storage.SQLiteRepository
	budgets   *BudgetService
	dashboard *DashboardService
	now       func() time.Time
}

// NewTransactionService wires the service. budgets and dashboard may be nil.
func NewTransactionService(repo *storage.SQLiteRepository, budgets *BudgetService, dashboard *DashboardService) *TransactionService {
	return &TransactionService{
		repo:      repo,
		budgets:   budgets,
		dashboard: dashboard,
		now:       utcNow,
	}
}

func (s *TransactionService) prepare(ctx context.Context, userID int64, t *core.Transaction) error {
	t.UserID = userID
	t.Description = strings.TrimSpace(t.Description)
	t.Tags = core.NormalizeTags(t.Tags)
	if err := t.Validate(); err != nil {
		return err
	}
	_, err := resolveCategory(ctx, s.repo, userID, t.CategoryID, t.Type)
	return err
}

func (s *TransactionService) Create(ctx context.Context, userID int64, t core.Transaction) (core.Transaction, error) {
	t.ID = 0
	t.ReminderID = 0
	if err := s.prepare(ctx, userID, &t); err != nil {
		return core.Transaction{}, err
	}
	now := s.now()
	t.CreatedAt, t.UpdatedAt = now, now

	created, err := s.repo.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, err
	}
	s.afterWrite(ctx, created)
	return created, nil
}

func (s *TransactionService) Get(ctx context.Context, userID, id int64) (core.Transaction, error) {
	return s.repo.GetTransaction(ctx, userID, id)
}

// Update replaces the editable fields of an own transaction. Last write wins.
func (s *TransactionService) Update(ctx context.Context, userID int64, t core.Transaction) (core.Transaction, error) {
	existing, err := s.repo.GetTransaction(ctx, userID, t.ID)
	if err != nil {
		return core.Transaction{}, err
	}
	if err := s.prepare(ctx, userID, &t); err != nil {
		return core.Transaction{}, err
	}
	t.ReminderID = existing.ReminderID
	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = s.now()
	if err := s.repo.UpdateTransaction(ctx, t); err != nil {
		return core.Transaction{}, err
	}
	s.dashboard.Invalidate(userID, dashboardDays(existing)...)
	s.afterWrite(ctx, t)
	return t, nil
}

func (s *TransactionService) Delete(ctx context.Context, userID, id int64) error {
	existing, err := s.repo.GetTransaction(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteTransaction(ctx, userID, id); err != nil {
		return err
	}
	s.dashboard.Invalidate(userID, dashboardDays(existing)...)
	return nil
}

// List returns a page of matching transactions and the total match count.
func (s *TransactionService) List(ctx context.Context, userID int64, f core.Filter) (TransactionPage, error) {
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return TransactionPage{}, fieldError("to", errors.New("must not be before from"))
	}
	if f.Type != "" && !f.Type.Valid() {
		return TransactionPage{}, fieldError("type", core.ErrInvalidKind)
	}
	if f.Limit <= 0 {
		f.Limit = defaultPageSize
	}
	if f.Limit > maxPageSize {
		f.Limit = maxPageSize
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	items, err := s.repo.ListTransactions(ctx, userID, f)
	if err != nil {
		return TransactionPage{}, err
	}
	total, err := s.repo.CountTransactions(ctx, userID, f)
	if err != nil {
		return TransactionPage{}, err
	}
	if items == nil {
		items = []core.Transaction{}
	}
	return TransactionPage{Items: items, Total: total, Limit: f.Limit, Offset: f.Offset}, nil
}

// dashboardDays lists days whose cached month views a transaction affects.
// Expenses count toward weekly budgets, whose window may span two months.
func dashboardDays(t core.Transaction) []core.Date {
	if t.Type != core.Expense {
		return []core.Date{t.Date}
	}
	from, to := core.Weekly.Window(t.Date)
	return []core.Date{t.Date, from, to.AddDays(-1)}
}

// afterWrite drops cached views and runs budget checks for a stored transaction.
func (s *TransactionService) afterWrite(ctx context.Context, t core.Transaction) {
	s.dashboard.Invalidate(t.UserID, dashboardDays(t)...)
	if t.Type != core.Expense || s.budgets == nil {
		return
	}
	if _, err := s.budgets.CheckThresholds(ctx, t.UserID, t.CategoryID, t.Date); err != nil {
		slog.ErrorContext(ctx, "Budget threshold check failed",
			"user_id", t.UserID,
			"transaction_id", t.ID,
			"error", err)
	}
}
