package core

import (
	"hash/fnv"
	"strconv"
	"time"
)

type NotificationStatus string

const (
	StatusPending   NotificationStatus = "pending"
	StatusQueued    NotificationStatus = "queued"
	StatusSent      NotificationStatus = "sent"
	StatusFailed    NotificationStatus = "failed"
	StatusCancelled NotificationStatus = "cancelled"
)

// Slots a reminder can be notified at.
const (
	SlotDue   = "due"
	SlotEarly = "early"
)

type Notification struct {
	ID         int64              `json:"id"`
	UserID     int64              `json:"-"`
	ReminderID int64              `json:"reminder_id,omitempty"`
	Key        int32              `json:"key"`
	Ref        string             `json:"-"`
	Title      string             `json:"title"`
	Body       string             `json:"body"`
	FireAt     time.Time          `json:"fire_at"`
	Status     NotificationStatus `json:"status"`
	SentAt     *time.Time         `json:"sent_at,omitempty"`
	Attempts   int                `json:"attempts"`
	CreatedAt  time.Time          `json:"created_at"`
}

// NotificationKey derives the integer id a client uses for the local
// notification of a reminder slot. The same inputs always give the same key,
// so a rescheduled reminder replaces its previous notification.
func NotificationKey(reminderID int64, slot string) int32 {
	h := fnv.New32a()
	h.Write([]byte(strconv.FormatInt(reminderID, 10)))
	h.Write([]byte{':'})
	h.Write([]byte(slot))
	return int32(h.Sum32() & 0x7fffffff)
}

// ReminderRef is the per-user dedupe reference of a reminder notification.
func ReminderRef(reminderID int64, slot string, fireAt time.Time) string {
	return "reminder:" + strconv.FormatInt(reminderID, 10) + ":" + slot + ":" + fireAt.UTC().Format(DateLayout)
}

// BudgetRef is the dedupe reference of a budget alert for one period and level.
func BudgetRef(budgetID int64, from Date, level int) string {
	return "budget:" + strconv.FormatInt(budgetID, 10) + ":" + from.String() + ":" + strconv.Itoa(level)
}
