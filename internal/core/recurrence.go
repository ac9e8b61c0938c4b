package core

// This file implements the strategy pattern for reminder recurrence.
// Each repeat type has its own stepper that computes the next due date.

import (
	"fmt"
	"time"
)

type Repeat string

const (
	RepeatNone    Repeat = "none"
	RepeatDaily   Repeat = "daily"
	RepeatWeekly  Repeat = "weekly"
	RepeatMonthly Repeat = "monthly"
	RepeatYearly  Repeat = "yearly"
)

// Stepper advances a due date to the following occurrence.
type Stepper interface {
	Next(d Date) Date
}

type DailyStepper struct{}

func (DailyStepper) Next(d Date) Date { return d.AddDays(1) }

type WeeklyStepper struct{}

func (WeeklyStepper) Next(d Date) Date { return d.AddDays(7) }

// MonthlyStepper moves to the same day next month, clamped to the month's last day.
type MonthlyStepper struct{}

func (MonthlyStepper) Next(d Date) Date {
	return clampDay(d.Year(), d.Month()+1, d.Day())
}

// YearlyStepper moves to the same day next year; Feb 29 becomes Feb 28.
type YearlyStepper struct{}

func (YearlyStepper) Next(d Date) Date {
	return clampDay(d.Year()+1, d.Month(), d.Day())
}

func clampDay(year int, month time.Month, day int) Date {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1).Day()
	if day > last {
		day = last
	}
	return NewDate(first.Year(), int(first.Month()), day)
}

// steppers maps repeat types to their strategy. RepeatNone has no entry.
var steppers = map[Repeat]Stepper{
	RepeatDaily:   DailyStepper{},
	RepeatWeekly:  WeeklyStepper{},
	RepeatMonthly: MonthlyStepper{},
	RepeatYearly:  YearlyStepper{},
}

// GetStepper returns the stepper for r or an error for unknown or non-repeating values.
func GetStepper(r Repeat) (Stepper, error) {
	s, ok := steppers[r]
	if !ok {
		return nil, fmt.Errorf("no stepper for repeat type: %q", r)
	}
	return s, nil
}

func (r Repeat) Valid() bool {
	if r == RepeatNone {
		return true
	}
	_, ok := steppers[r]
	return ok
}

func (r Repeat) Repeats() bool { return r != RepeatNone && r.Valid() }

// Next returns the following due date. For RepeatNone it returns d unchanged.
func (r Repeat) Next(d Date) Date {
	s, err := GetStepper(r)
	if err != nil {
		return d
	}
	return s.Next(d)
}
