package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cashbook/internal/core"
	"cashbook/internal/storage"
)

// CompleteRequest optionally overrides the date and amount of the
// transaction a completed reminder produces.
type CompleteRequest struct {
	Date   core.Date   `json:"date"`
	Amount *core.Money `json:"amount,omitempty"`
}

type CompleteResult struct {
	Transaction core.Transaction `json:"transaction"`
	Reminder    core.Reminder    `json:"reminder"`
}

type ReminderService struct {
	repo         *storage.SQLiteRepository
	scheduler    *NotificationScheduler
	transactions *TransactionService
	now          func() time.Time
}

func NewReminderService(repo *storage.SQLiteRepository, scheduler *NotificationScheduler, transactions *TransactionService) *ReminderService {
	return &ReminderService{
		repo:         repo,
		scheduler:    scheduler,
		transactions: transactions,
		now:          utcNow,
	}
}

func (s *ReminderService) prepare(ctx context.Context, userID int64, r *core.Reminder) error {
	r.UserID = userID
	r.Title = strings.TrimSpace(r.Title)
	if r.Repeat == "" {
		r.Repeat = core.RepeatNone
	}
	if err := r.Validate(); err != nil {
		return err
	}
	_, err := resolveCategory(ctx, s.repo, userID, r.CategoryID, r.Kind.TxType())
	return err
}

func (s *ReminderService) schedule(ctx context.Context, r core.Reminder) {
	if s.scheduler == nil {
		return
	}
	if err := s.scheduler.Schedule(ctx, r); err != nil {
		slog.ErrorContext(ctx, "Failed to schedule reminder notifications",
			"reminder_id", r.ID,
			"error", err)
	}
}

func (s *ReminderService) Create(ctx context.Context, userID int64, r core.Reminder) (core.Reminder, error) {
	r.ID = 0
	r.Completed = false
	r.CompletedAt = nil
	r.LastTransactionID = 0
	if err := s.prepare(ctx, userID, &r); err != nil {
		return core.Reminder{}, err
	}
	r.CreatedAt = s.now()

	created, err := s.repo.CreateReminder(ctx, r)
	if err != nil {
		return core.Reminder{}, err
	}
	s.schedule(ctx, created)
	s.transactions.dashboard.InvalidateUser(userID)
	slog.InfoContext(ctx, "Reminder created", "reminder_id", created.ID, "user_id", userID, "due_date", created.DueDate.String())
	return created, nil
}

func (s *ReminderService) Get(ctx context.Context, userID, id int64) (core.Reminder, error) {
	return s.repo.GetReminder(ctx, userID, id)
}

// Update edits an own reminder and reschedules its notifications.
func (s *ReminderService) Update(ctx context.Context, userID int64, r core.Reminder) (core.Reminder, error) {
	existing, err := s.repo.GetReminder(ctx, userID, r.ID)
	if err != nil {
		return core.Reminder{}, err
	}
	if err := s.prepare(ctx, userID, &r); err != nil {
		return core.Reminder{}, err
	}
	r.Completed = existing.Completed
	r.CompletedAt = existing.CompletedAt
	r.LastTransactionID = existing.LastTransactionID
	r.CreatedAt = existing.CreatedAt
	if err := s.repo.UpdateReminder(ctx, r); err != nil {
		return core.Reminder{}, err
	}
	s.schedule(ctx, r)
	s.transactions.dashboard.InvalidateUser(userID)
	return r, nil
}

func (s *ReminderService) Delete(ctx context.Context, userID, id int64) error {
	if err := s.repo.DeleteReminder(ctx, userID, id); err != nil {
		return err
	}
	s.transactions.dashboard.InvalidateUser(userID)
	return nil
}

// List returns reminders by status: upcoming, overdue, completed or all.
func (s *ReminderService) List(ctx context.Context, userID int64, status string) ([]core.Reminder, error) {
	st := storage.ReminderStatus(status)
	switch st {
	case "":
		st = storage.RemindersAll
	case storage.RemindersAll, storage.RemindersUpcoming, storage.RemindersOverdue, storage.RemindersCompleted:
	default:
		return nil, fieldError("status", fmt.Errorf("unknown status %q", status))
	}
	out, err := s.repo.ListReminders(ctx, userID, storage.ReminderFilter{
		Status: st,
		Today:  core.DateOf(s.now()),
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []core.Reminder{}
	}
	return out, nil
}

// Complete records the reminder as a transaction. Repeating reminders move
// to their next due date and stay open; one-off reminders are closed.
func (s *ReminderService) Complete(ctx context.Context, userID, id int64, req CompleteRequest) (CompleteResult, error) {
	r, err := s.repo.GetReminder(ctx, userID, id)
	if err != nil {
		return CompleteResult{}, err
	}
	if r.Completed {
		return CompleteResult{}, fmt.Errorf("%w: reminder already completed", core.ErrConflict)
	}

	now := s.now()
	t := core.Transaction{
		UserID:      userID,
		Type:        r.Kind.TxType(),
		Amount:      r.Amount,
		CategoryID:  r.CategoryID,
		Date:        req.Date,
		Description: r.Title,
		Tags:        []string{},
		ReminderID:  r.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if t.Date.IsZero() {
		t.Date = core.DateOf(now)
	}
	if req.Amount != nil {
		t.Amount = *req.Amount
	}
	if err := t.Validate(); err != nil {
		return CompleteResult{}, err
	}
	if _, err := resolveCategory(ctx, s.repo, userID, t.CategoryID, t.Type); err != nil {
		return CompleteResult{}, err
	}

	next := r
	if r.Repeat.Repeats() {
		next.DueDate = r.Repeat.Next(r.DueDate)
	} else {
		next.Completed = true
		next.CompletedAt = &now
	}

	created, err := s.repo.CompleteReminder(ctx, r, next, t)
	if err != nil {
		return CompleteResult{}, err
	}
	next.LastTransactionID = created.ID

	s.schedule(ctx, next)
	s.transactions.dashboard.InvalidateUser(userID)
	s.transactions.afterWrite(ctx, created)

	slog.InfoContext(ctx, "Reminder completed",
		"reminder_id", r.ID,
		"transaction_id", created.ID,
		"repeat", r.Repeat,
		"next_due", next.DueDate.String())
	return CompleteResult{Transaction: created, Reminder: next}, nil
}
