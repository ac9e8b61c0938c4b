package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"cashbook/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerSlots(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		r      core.Reminder
		wantAt []time.Time
	}{
		{
			name:   "due slot only",
			r:      core.Reminder{ID: 1, DueDate: core.NewDate(2025, 3, 15)},
			wantAt: []time.Time{time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC)},
		},
		{
			name: "due and early slots",
			r:    core.Reminder{ID: 2, DueDate: core.NewDate(2025, 3, 15), NotifyDaysBefore: 3},
			wantAt: []time.Time{
				time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC),
				time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC),
			},
		},
		{
			name:   "early slot in the past is skipped",
			r:      core.Reminder{ID: 3, DueDate: core.NewDate(2025, 3, 11), NotifyDaysBefore: 3},
			wantAt: []time.Time{time.Date(2025, 3, 11, 9, 0, 0, 0, time.UTC)},
		},
		{
			name: "due today after the notify hour",
			r:    core.Reminder{ID: 4, DueDate: core.NewDate(2025, 3, 10)},
		},
		{
			name: "completed",
			r:    core.Reminder{ID: 5, DueDate: core.NewDate(2025, 4, 1), Completed: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slots := env.scheduler.Slots(tt.r)
			require.Len(t, slots, len(tt.wantAt))
			for i, n := range slots {
				assert.Equal(t, tt.wantAt[i], n.FireAt)
				assert.Equal(t, tt.r.ID, n.ReminderID)
				assert.Equal(t, core.StatusPending, n.Status)
			}
		})
	}
}

func TestSchedulerSlotKeysAreStable(t *testing.T) {
	env := newTestEnv(t)
	r := core.Reminder{ID: 7, DueDate: core.NewDate(2025, 3, 15), NotifyDaysBefore: 2}

	first := env.scheduler.Slots(r)
	r.DueDate = core.NewDate(2025, 3, 20)
	second := env.scheduler.Slots(r)

	require.Len(t, first, 2)
	require.Len(t, second, 2)
	assert.Equal(t, first[0].Key, second[0].Key)
	assert.Equal(t, first[1].Key, second[1].Key)
	assert.NotEqual(t, first[0].Key, first[1].Key)
	assert.NotEqual(t, first[0].Ref, second[0].Ref)
}

func TestSchedulerDispatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, "user@example.com")

	r, err := env.reminders.Create(ctx, u.ID, core.Reminder{
		Kind:             core.Payment,
		Title:            "Insurance",
		Amount:           money(t, "300"),
		CategoryID:       env.category(t, core.KindExpense).ID,
		DueDate:          core.NewDate(2025, 3, 15),
		NotifyDaysBefore: 3,
	})
	require.NoError(t, err)

	n, err := env.scheduler.Dispatch(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	env.clock.set(time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC))
	n, err = env.scheduler.Dispatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, env.publisher.got, 1)
	early := env.publisher.got[0]
	assert.Equal(t, r.ID, early.ReminderID)
	assert.Equal(t, core.StatusQueued, early.Status)
	assert.Equal(t, 1, early.Attempts)
	assert.Contains(t, early.Title, "in 3 days")

	// claimed notifications are not dispatched twice
	n, err = env.scheduler.Dispatch(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	env.publisher.fail = errors.New("broker down")
	env.clock.set(time.Date(2025, 3, 16, 0, 0, 0, 0, time.UTC))
	n, err = env.scheduler.Dispatch(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	list, err := env.scheduler.List(ctx, u.ID, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, core.StatusFailed, list[0].Status)
	assert.Equal(t, core.StatusQueued, list[1].Status)
}

func TestSchedulerDefaults(t *testing.T) {
	s := NewNotificationScheduler(nil, nil, SchedulerConfig{NotifyHour: 42})
	assert.Equal(t, 9, s.cfg.NotifyHour)
	assert.Equal(t, 50, s.cfg.BatchSize)
}
