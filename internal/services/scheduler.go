package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cashbook/internal/core"
	"cashbook/internal/storage"
)

// Publisher hands a claimed notification to the delivery path.
type Publisher interface {
	Publish(ctx context.Context, n core.Notification) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, n core.Notification) error

func (f PublisherFunc) Publish(ctx context.Context, n core.Notification) error { return f(ctx, n) }

type SchedulerConfig struct {
	NotifyHour int // 0-23, UTC
	BatchSize  int
}

// NotificationScheduler turns reminders into timed notifications and
// dispatches the ones that are due.
type NotificationScheduler struct {
	repo      *storage.SQLiteRepository
	publisher Publisher
	cfg       SchedulerConfig
	now       func() time.Time
}

func NewNotificationScheduler(repo *storage.SQLiteRepository, publisher Publisher, cfg SchedulerConfig) *NotificationScheduler {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.NotifyHour < 0 || cfg.NotifyHour > 23 {
		cfg.NotifyHour = 9
	}
	return &NotificationScheduler{repo: repo, publisher: publisher, cfg: cfg, now: utcNow}
}

// Slots returns the notifications a reminder should produce from now on.
// The due-day slot fires at the notify hour of the due date, the early slot
// NotifyDaysBefore days earlier. Slots in the past are skipped.
func (s *NotificationScheduler) Slots(r core.Reminder) []core.Notification {
	if r.Completed {
		return nil
	}
	now := s.now()
	at := func(d core.Date) time.Time {
		return d.Add(time.Duration(s.cfg.NotifyHour) * time.Hour)
	}

	type slot struct {
		name  string
		fire  time.Time
		title string
		body  string
	}
	verb := "Payment due"
	if r.Kind == core.Collection {
		verb = "Collection due"
	}
	slots := []slot{{
		name:  core.SlotDue,
		fire:  at(r.DueDate),
		title: fmt.Sprintf("%s today: %s", verb, r.Title),
		body:  fmt.Sprintf("%s of %s is due today.", r.Title, r.Amount),
	}}
	if r.NotifyDaysBefore > 0 {
		slots = append(slots, slot{
			name:  core.SlotEarly,
			fire:  at(r.DueDate.AddDays(-r.NotifyDaysBefore)),
			title: fmt.Sprintf("%s in %d days: %s", verb, r.NotifyDaysBefore, r.Title),
			body:  fmt.Sprintf("%s of %s is due on %s.", r.Title, r.Amount, r.DueDate),
		})
	}

	var out []core.Notification
	for _, sl := range slots {
		if sl.fire.Before(now) {
			continue
		}
		out = append(out, core.Notification{
			UserID:     r.UserID,
			ReminderID: r.ID,
			Key:        core.NotificationKey(r.ID, sl.name),
			Ref:        core.ReminderRef(r.ID, sl.name, sl.fire),
			Title:      sl.title,
			Body:       sl.body,
			FireAt:     sl.fire,
			Status:     core.StatusPending,
			CreatedAt:  now,
		})
	}
	return out
}

// Schedule replaces the pending notifications of a reminder.
func (s *NotificationScheduler) Schedule(ctx context.Context, r core.Reminder) error {
	ns := s.Slots(r)
	if err := s.repo.ReplaceReminderNotifications(ctx, r.UserID, r.ID, ns); err != nil {
		return fmt.Errorf("schedule reminder %d: %w", r.ID, err)
	}
	slog.DebugContext(ctx, "Reminder notifications scheduled", "reminder_id", r.ID, "count", len(ns))
	return nil
}

// Dispatch claims due notifications and publishes them. Notifications that
// cannot be published are marked failed. It returns how many were published.
func (s *NotificationScheduler) Dispatch(ctx context.Context) (int, error) {
	claimed, err := s.repo.ClaimDueNotifications(ctx, s.now(), s.cfg.BatchSize)
	if err != nil {
		return 0, err
	}
	if len(claimed) == 0 {
		return 0, nil
	}

	published := 0
	for _, n := range claimed {
		if err := s.publisher.Publish(ctx, n); err != nil {
			slog.ErrorContext(ctx, "Failed to publish notification",
				"notification_id", n.ID,
				"user_id", n.UserID,
				"error", err)
			if err := s.repo.MarkNotificationFailed(ctx, n.ID); err != nil {
				slog.ErrorContext(ctx, "Failed to mark notification failed", "notification_id", n.ID, "error", err)
			}
			continue
		}
		published++
	}

	slog.InfoContext(ctx, "Notification dispatch complete",
		"claimed", len(claimed),
		"published", published)
	return published, nil
}

func (s *NotificationScheduler) List(ctx context.Context, userID int64, limit int) ([]core.Notification, error) {
	return s.repo.ListNotifications(ctx, userID, limit)
}
