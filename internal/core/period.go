package core

import "time"

type Period string

const (
	Weekly  Period = "weekly"
	Monthly Period = "monthly"
)

const DefaultAlertPercent = 80

func (p Period) Valid() bool { return p == Weekly || p == Monthly }

// Window returns the half-open range [from, to) of the period containing d.
// Weeks start on Monday.
func (p Period) Window(d Date) (from, to Date) {
	switch p {
	case Weekly:
		offset := (int(d.Weekday()) + 6) % 7
		from = d.AddDays(-offset)
		return from, from.AddDays(7)
	default:
		from = NewDate(d.Year(), int(d.Month()), 1)
		return from, Date{Time: from.AddDate(0, 1, 0)}
	}
}

// MonthRange returns the half-open range covering a calendar month.
func MonthRange(year int, month time.Month) (from, to Date) {
	from = NewDate(year, int(month), 1)
	return from, Date{Time: from.AddDate(0, 1, 0)}
}

// Status computes spending against the budget for the window containing d.
func (b Budget) Status(d Date, spent Money) BudgetStatus {
	from, to := b.Period.Window(d)
	st := BudgetStatus{
		Budget: b,
		From:   from,
		To:     to,
		Spent:  spent,
	}
	st.Remaining = b.Limit.Sub(spent)
	if b.Limit.Cents > 0 {
		st.Percent = int(spent.Cents * 100 / b.Limit.Cents)
	}
	st.Over = spent.Cents > b.Limit.Cents
	return st
}

// AlertLevel returns the highest alert level reached by spent: 100 once the
// limit is hit, AlertPercent once that share is hit, 0 otherwise.
func (b Budget) AlertLevel(spent Money) int {
	if b.Limit.Cents <= 0 {
		return 0
	}
	pct := spent.Cents * 100 / b.Limit.Cents
	switch {
	case pct >= 100:
		return 100
	case b.AlertPercent > 0 && pct >= int64(b.AlertPercent):
		return b.AlertPercent
	}
	return 0
}
