package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cashbook/internal/core"
	"cashbook/internal/storage"
)

type BudgetService struct {
	repo *storage.SQLiteRepository
	now  func() time.Time
	// onChange is told about budget writes so cached dashboards can be dropped.
	onChange func(userID int64)
}

func NewBudgetService(repo *storage.SQLiteRepository) *BudgetService {
	return &BudgetService{repo: repo, now: utcNow}
}

// OnChange registers a callback run after every budget write.
func (s *BudgetService) OnChange(fn func(userID int64)) { s.onChange = fn }

func (s *BudgetService) changed(userID int64) {
	if s.onChange != nil {
		s.onChange(userID)
	}
}

func (s *BudgetService) prepare(ctx context.Context, userID int64, b *core.Budget) error {
	b.UserID = userID
	if b.AlertPercent == 0 {
		b.AlertPercent = core.DefaultAlertPercent
	}
	if err := b.Validate(); err != nil {
		return err
	}
	_, err := resolveCategory(ctx, s.repo, userID, b.CategoryID, core.Expense)
	return err
}

func (s *BudgetService) Create(ctx context.Context, userID int64, b core.Budget) (core.Budget, error) {
	b.ID = 0
	if err := s.prepare(ctx, userID, &b); err != nil {
		return core.Budget{}, err
	}
	created, err := s.repo.CreateBudget(ctx, b)
	if err != nil {
		return core.Budget{}, err
	}
	s.changed(userID)
	return created, nil
}

func (s *BudgetService) Update(ctx context.Context, userID int64, b core.Budget) (core.Budget, error) {
	if _, err := s.repo.GetBudget(ctx, userID, b.ID); err != nil {
		return core.Budget{}, err
	}
	if err := s.prepare(ctx, userID, &b); err != nil {
		return core.Budget{}, err
	}
	if err := s.repo.UpdateBudget(ctx, b); err != nil {
		return core.Budget{}, err
	}
	s.changed(userID)
	return b, nil
}

func (s *BudgetService) Delete(ctx context.Context, userID, id int64) error {
	if err := s.repo.DeleteBudget(ctx, userID, id); err != nil {
		return err
	}
	s.changed(userID)
	return nil
}

func (s *BudgetService) List(ctx context.Context, userID int64) ([]core.Budget, error) {
	return s.repo.ListBudgets(ctx, userID, 0)
}

// Status reports spending of every budget for the period containing day.
// A zero day means today.
func (s *BudgetService) Status(ctx context.Context, userID int64, day core.Date) ([]core.BudgetStatus, error) {
	if day.IsZero() {
		day = core.DateOf(s.now())
	}
	budgets, err := s.repo.ListBudgets(ctx, userID, 0)
	if err != nil {
		return nil, err
	}
	out := make([]core.BudgetStatus, 0, len(budgets))
	for _, b := range budgets {
		from, to := b.Period.Window(day)
		spent, err := s.repo.SpentInCategory(ctx, userID, b.CategoryID, from, to)
		if err != nil {
			return nil, fmt.Errorf("budget status: %w", err)
		}
		out = append(out, b.Status(day, spent))
	}
	return out, nil
}

// CheckThresholds queues an alert for each budget of the category whose
// period containing day has reached its alert level or the full limit.
// Each level fires at most once per period.
func (s *BudgetService) CheckThresholds(ctx context.Context, userID, categoryID int64, day core.Date) (int, error) {
	budgets, err := s.repo.ListBudgets(ctx, userID, categoryID)
	if err != nil {
		return 0, err
	}
	if len(budgets) == 0 {
		return 0, nil
	}
	cat, err := s.repo.GetCategory(ctx, userID, categoryID)
	if err != nil {
		return 0, err
	}

	now := s.now()
	sent := 0
	for _, b := range budgets {
		from, to := b.Period.Window(day)
		spent, err := s.repo.SpentInCategory(ctx, userID, categoryID, from, to)
		if err != nil {
			return sent, fmt.Errorf("check thresholds: %w", err)
		}
		level := b.AlertLevel(spent)
		if level == 0 {
			continue
		}
		ref := core.BudgetRef(b.ID, from, level)
		n := core.Notification{
			UserID:    userID,
			Key:       core.NotificationKey(b.ID, ref),
			Ref:       ref,
			Title:     budgetAlertTitle(cat.Name, level),
			Body:      fmt.Sprintf("You have spent %s of your %s %s budget.", spent, b.Limit, b.Period),
			FireAt:    now,
			CreatedAt: now,
		}
		inserted, err := s.repo.InsertNotification(ctx, n)
		if err != nil {
			return sent, fmt.Errorf("check thresholds: %w", err)
		}
		if inserted {
			sent++
			slog.InfoContext(ctx, "Budget alert queued",
				"user_id", userID,
				"budget_id", b.ID,
				"level", level,
				"spent_cents", spent.Cents)
		}
	}
	return sent, nil
}

func budgetAlertTitle(category string, level int) string {
	if level >= 100 {
		return fmt.Sprintf("Budget exceeded: %s", category)
	}
	return fmt.Sprintf("%s budget at %d%%", category, level)
}
