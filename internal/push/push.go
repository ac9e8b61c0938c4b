// Package push delivers notifications to registered devices.
package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"cashbook/internal/core"
)

// ErrUnregistered means the device token is no longer valid and should be dropped.
var ErrUnregistered = errors.New("device token unregistered")

// Sender sends one message to one device token.
type Sender interface {
	Send(ctx context.Context, token, title, body string, data map[string]string) error
}

// Store is the persistence a Deliverer needs.
type Store interface {
	GetNotification(ctx context.Context, id int64) (core.Notification, error)
	ListDeviceTokens(ctx context.Context, userID int64) ([]string, error)
	DeleteDeviceToken(ctx context.Context, token string) error
	MarkNotificationSent(ctx context.Context, id int64, at time.Time) error
	MarkNotificationFailed(ctx context.Context, id int64) error
}

// Deliverer fans a stored notification out to every device of its user.
type Deliverer struct {
	store  Store
	sender Sender
	now    func() time.Time
}

func NewDeliverer(store Store, sender Sender) *Deliverer {
	return &Deliverer{
		store:  store,
		sender: sender,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Publish delivers n right away. It lets the scheduler run without a broker.
func (d *Deliverer) Publish(ctx context.Context, n core.Notification) error {
	return d.Deliver(ctx, n.ID)
}

// Deliver sends notification id to the user's devices. A notification counts
// as sent when one device accepted it or the user has no devices left; it is
// marked failed when every device failed. Already settled notifications are
// skipped, so redelivered messages are harmless.
func (d *Deliverer) Deliver(ctx context.Context, id int64) error {
	n, err := d.store.GetNotification(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		slog.WarnContext(ctx, "Notification vanished before delivery", "notification_id", id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load notification %d: %w", id, err)
	}
	switch n.Status {
	case core.StatusSent, core.StatusCancelled:
		slog.DebugContext(ctx, "Notification already settled", "notification_id", id, "status", n.Status)
		return nil
	}

	tokens, err := d.store.ListDeviceTokens(ctx, n.UserID)
	if err != nil {
		return fmt.Errorf("list devices of user %d: %w", n.UserID, err)
	}

	data := map[string]string{
		"notification_id": strconv.FormatInt(n.ID, 10),
		"key":             strconv.FormatInt(int64(n.Key), 10),
	}
	if n.ReminderID != 0 {
		data["reminder_id"] = strconv.FormatInt(n.ReminderID, 10)
	}

	delivered, failed := 0, 0
	for _, token := range tokens {
		err := d.sender.Send(ctx, token, n.Title, n.Body, data)
		switch {
		case err == nil:
			delivered++
		case errors.Is(err, ErrUnregistered):
			slog.InfoContext(ctx, "Dropping unregistered device", "user_id", n.UserID)
			if err := d.store.DeleteDeviceToken(ctx, token); err != nil {
				slog.WarnContext(ctx, "Failed to drop device token", "user_id", n.UserID, "error", err)
			}
		default:
			failed++
			slog.WarnContext(ctx, "Push send failed",
				"notification_id", n.ID,
				"user_id", n.UserID,
				"error", err)
		}
	}

	if delivered == 0 && failed > 0 {
		if err := d.store.MarkNotificationFailed(ctx, n.ID); err != nil {
			return fmt.Errorf("mark notification %d failed: %w", n.ID, err)
		}
		slog.ErrorContext(ctx, "Notification delivery failed", "notification_id", n.ID, "devices", len(tokens))
		return nil
	}
	if err := d.store.MarkNotificationSent(ctx, n.ID, d.now()); err != nil {
		return fmt.Errorf("mark notification %d sent: %w", n.ID, err)
	}
	slog.InfoContext(ctx, "Notification delivered",
		"notification_id", n.ID,
		"user_id", n.UserID,
		"devices", delivered)
	return nil
}

// LogSender writes messages to the log instead of a push provider.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, token, title, body string, data map[string]string) error {
	slog.InfoContext(ctx, "Push notification",
		"token_suffix", suffix(token, 6),
		"title", title,
		"body", body,
		"data", data)
	return nil
}

func suffix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
