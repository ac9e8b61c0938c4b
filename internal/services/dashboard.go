package services

import (
	"context"
	"fmt"
	"time"

	"cashbook/internal/cache"
	"cashbook/internal/core"
	"cashbook/internal/storage"

	"golang.org/x/sync/errgroup"
)

const upcomingDays = 7

// DashboardService aggregates per-month and per-year overviews.
type DashboardService struct {
	repo    *storage.SQLiteRepository
	budgets *BudgetService
	months  cache.Cache[core.MonthSummary]
	years   cache.Cache[core.Dashboard]
	now     func() time.Time
}

// NewDashboardService wires the service. Nil caches disable caching.
func NewDashboardService(repo *storage.SQLiteRepository, budgets *BudgetService, months cache.Cache[core.MonthSummary], years cache.Cache[core.Dashboard]) *DashboardService {
	return &DashboardService{
		repo:    repo,
		budgets: budgets,
		months:  months,
		years:   years,
		now:     utcNow,
	}
}

func userPrefix(userID int64) string { return fmt.Sprintf("u%d:", userID) }

func monthKey(userID int64, year, month int) string {
	return fmt.Sprintf("u%d:month:%04d-%02d", userID, year, month)
}

func yearKey(userID int64, year int) string {
	return fmt.Sprintf("u%d:year:%04d", userID, year)
}

// Month returns the dashboard of one calendar month.
func (s *DashboardService) Month(ctx context.Context, userID int64, year, month int) (core.MonthSummary, error) {
	if month < 1 || month > 12 || year < 1970 || year > 2200 {
		return core.MonthSummary{}, fieldError("month", core.ErrInvalidDate)
	}
	key := monthKey(userID, year, month)
	if s.months != nil {
		if v, ok := s.months.Get(key); ok {
			return v, nil
		}
	}

	now := s.now()
	today := core.DateOf(now)
	from, to := core.MonthRange(year, time.Month(month))
	// budgets are evaluated for today when the month is current, otherwise at its last day
	ref := today
	if today.Before(from) || !today.Before(to) {
		ref = to.AddDays(-1)
	}

	sum := core.MonthSummary{Year: year, Month: month, GeneratedAt: now}
	var daily []core.DailyTotal

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sum.Income, sum.Expense, err = s.repo.SumByType(gctx, userID, from, to)
		return err
	})
	g.Go(func() error {
		var err error
		sum.ExpenseByCategory, err = s.repo.SumByCategory(gctx, userID, core.Expense, from, to)
		return err
	})
	g.Go(func() error {
		var err error
		sum.IncomeByCategory, err = s.repo.SumByCategory(gctx, userID, core.Income, from, to)
		return err
	})
	g.Go(func() error {
		var err error
		daily, err = s.repo.SumByDay(gctx, userID, from, to)
		return err
	})
	g.Go(func() error {
		var err error
		sum.Budgets, err = s.budgets.Status(gctx, userID, ref)
		return err
	})
	g.Go(func() error {
		var err error
		sum.Upcoming, err = s.repo.ListReminders(gctx, userID, storage.ReminderFilter{
			Status: storage.RemindersUpcoming,
			Today:  today,
			Until:  today.AddDays(upcomingDays),
		})
		return err
	})
	g.Go(func() error {
		var err error
		sum.OverdueCount, err = s.repo.CountOverdue(gctx, userID, today)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.MonthSummary{}, fmt.Errorf("month dashboard: %w", err)
	}

	sum.Balance = sum.Income.Sub(sum.Expense)
	sum.Daily = core.FillDays(from, to, daily)
	if sum.ExpenseByCategory == nil {
		sum.ExpenseByCategory = []core.CategoryTotal{}
	}
	if sum.IncomeByCategory == nil {
		sum.IncomeByCategory = []core.CategoryTotal{}
	}
	if sum.Budgets == nil {
		sum.Budgets = []core.BudgetStatus{}
	}
	if sum.Upcoming == nil {
		sum.Upcoming = []core.Reminder{}
	}

	if s.months != nil {
		s.months.Set(key, sum)
	}
	return sum, nil
}

// Year returns per-month totals of a year.
func (s *DashboardService) Year(ctx context.Context, userID int64, year int) (core.Dashboard, error) {
	if year < 1970 || year > 2200 {
		return core.Dashboard{}, fieldError("year", core.ErrInvalidDate)
	}
	key := yearKey(userID, year)
	if s.years != nil {
		if v, ok := s.years.Get(key); ok {
			return v, nil
		}
	}

	sparse, err := s.repo.MonthlyTotals(ctx, userID, year)
	if err != nil {
		return core.Dashboard{}, fmt.Errorf("year dashboard: %w", err)
	}
	d := core.Dashboard{Year: year, Months: core.FillMonths(sparse)}
	for _, m := range d.Months {
		d.Income = d.Income.Add(m.Income)
		d.Expense = d.Expense.Add(m.Expense)
	}
	d.Balance = d.Income.Sub(d.Expense)

	if s.years != nil {
		s.years.Set(key, d)
	}
	return d, nil
}

// Invalidate drops cached views that include any of the given days.
func (s *DashboardService) Invalidate(userID int64, days ...core.Date) {
	if s == nil {
		return
	}
	for _, d := range days {
		if d.IsZero() {
			continue
		}
		if s.months != nil {
			s.months.Delete(monthKey(userID, d.Year(), int(d.Month())))
		}
		if s.years != nil {
			s.years.Delete(yearKey(userID, d.Year()))
		}
	}
}

// InvalidateUser drops every cached view of a user.
func (s *DashboardService) InvalidateUser(userID int64) {
	if s == nil {
		return
	}
	if s.months != nil {
		s.months.DeletePrefix(userPrefix(userID))
	}
	if s.years != nil {
		s.years.DeletePrefix(userPrefix(userID))
	}
}
