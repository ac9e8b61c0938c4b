package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"cashbook/internal/core"
)

// NotificationMessage is the lightweight delivery job for one notification.
// It carries only the ID; the worker loads the full row from the database.
type NotificationMessage struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewNotificationMessage(n core.Notification) *NotificationMessage {
	return &NotificationMessage{
		ID:        n.ID,
		UserID:    n.UserID,
		Timestamp: time.Now().UTC(),
	}
}

func (m *NotificationMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// NotificationMessageFromJSON decodes a message and rejects ones without an ID.
func NotificationMessageFromJSON(data []byte) (*NotificationMessage, error) {
	var msg NotificationMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ID <= 0 {
		return nil, errors.New("notification message without id")
	}
	return &msg, nil
}
