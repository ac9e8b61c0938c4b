package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"cashbook/internal/cache"
	"cashbook/internal/core"
	"cashbook/internal/storage"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

// clock is a settable time source shared by every service under test.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

// publishRecorder collects published notifications.
type publishRecorder struct {
	mu   sync.Mutex
	got  []core.Notification
	fail error
}

func (p *publishRecorder) Publish(_ context.Context, n core.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return p.fail
	}
	p.got = append(p.got, n)
	return nil
}

type testEnv struct {
	repo         *storage.SQLiteRepository
	clock        *clock
	auth         *AuthService
	admin        *AdminService
	categories   *CategoryService
	budgets      *BudgetService
	dashboard    *DashboardService
	transactions *TransactionService
	scheduler    *NotificationScheduler
	reminders    *ReminderService
	exports      *ExportService
	publisher    *publishRecorder
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	c := &clock{t: testNow}
	pub := &publishRecorder{}

	auth := NewAuthService(repo, AuthConfig{InactivityTimeout: 30 * time.Minute})
	auth.now = c.now
	auth.bcryptCost = bcrypt.MinCost

	admin := NewAdminService(repo)
	admin.now = c.now

	budgets := NewBudgetService(repo)
	budgets.now = c.now

	dash := NewDashboardService(repo, budgets,
		cache.NewLRUCache[core.MonthSummary](16, time.Minute),
		cache.NewLRUCache[core.Dashboard](16, time.Minute))
	dash.now = c.now
	budgets.OnChange(dash.InvalidateUser)

	txs := NewTransactionService(repo, budgets, dash)
	txs.now = c.now

	sched := NewNotificationScheduler(repo, pub, SchedulerConfig{NotifyHour: 9})
	sched.now = c.now

	rem := NewReminderService(repo, sched, txs)
	rem.now = c.now

	return &testEnv{
		repo:         repo,
		clock:        c,
		auth:         auth,
		admin:        admin,
		categories:   NewCategoryService(repo),
		budgets:      budgets,
		dashboard:    dash,
		transactions: txs,
		scheduler:    sched,
		reminders:    rem,
		exports:      NewExportService(repo, nil),
		publisher:    pub,
	}
}

func (e *testEnv) user(t *testing.T, email string) core.User {
	t.Helper()
	u, err := e.auth.CreateUser(context.Background(), email, "password123", email, core.RoleUser)
	require.NoError(t, err)
	return u
}

// category returns the first system category of the given kind.
func (e *testEnv) category(t *testing.T, kind core.CategoryKind) core.Category {
	t.Helper()
	cats, err := e.repo.ListCategories(context.Background(), 0)
	require.NoError(t, err)
	for _, c := range cats {
		if c.Kind == kind {
			return c
		}
	}
	t.Fatalf("no %s category seeded", kind)
	return core.Category{}
}

func money(t *testing.T, s string) core.Money {
	t.Helper()
	m, err := core.ParseAmount(s)
	require.NoError(t, err)
	return m
}
