package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNotificationKey(t *testing.T) {
	a := NotificationKey(42, SlotDue)
	assert.Equal(t, a, NotificationKey(42, SlotDue), "key must be stable")
	assert.NotEqual(t, a, NotificationKey(42, SlotEarly))
	assert.NotEqual(t, a, NotificationKey(43, SlotDue))

	for id := int64(0); id < 1000; id++ {
		assert.GreaterOrEqual(t, NotificationKey(id, SlotEarly), int32(0))
	}
}

func TestRefs(t *testing.T) {
	at := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, "reminder:7:due:2025-06-01", ReminderRef(7, SlotDue, at))
	assert.Equal(t, "budget:3:2025-06-01:80", BudgetRef(3, NewDate(2025, 6, 1), 80))
}

func TestFillMonths(t *testing.T) {
	got := FillMonths([]MonthTotal{{Month: 3, Income: Money{Cents: 500}, Expense: Money{Cents: 200}}})
	assert.Len(t, got, 12)
	assert.Equal(t, 1, got[0].Month)
	assert.Equal(t, int64(300), got[2].Balance.Cents)
	assert.Zero(t, got[11].Balance.Cents)
}

func TestFillDays(t *testing.T) {
	from, to := MonthRange(2025, time.February)
	got := FillDays(from, to, []DailyTotal{{Date: NewDate(2025, 2, 3), Expense: Money{Cents: 10}}})
	assert.Len(t, got, 28)
	assert.Equal(t, int64(10), got[2].Expense.Cents)
}
