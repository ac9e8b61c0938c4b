package core

import "time"

// CategoryTotal is an amount aggregated by category.
type CategoryTotal struct {
	CategoryID int64  `json:"category_id"`
	Name       string `json:"name"`
	Color      string `json:"color,omitempty"`
	Total      Money  `json:"total"`
	Count      int    `json:"count"`
}

type DailyTotal struct {
	Date    Date  `json:"date"`
	Income  Money `json:"income"`
	Expense Money `json:"expense"`
}

type MonthTotal struct {
	Month   int   `json:"month"` // 1-12
	Income  Money `json:"income"`
	Expense Money `json:"expense"`
	Balance Money `json:"balance"`
}

// MonthSummary is the dashboard view of one calendar month.
type MonthSummary struct {
	Year              int             `json:"year"`
	Month             int             `json:"month"`
	Income            Money           `json:"income"`
	Expense           Money           `json:"expense"`
	Balance           Money           `json:"balance"`
	ExpenseByCategory []CategoryTotal `json:"expense_by_category"`
	IncomeByCategory  []CategoryTotal `json:"income_by_category"`
	Daily             []DailyTotal    `json:"daily"`
	Budgets           []BudgetStatus  `json:"budgets"`
	Upcoming          []Reminder      `json:"upcoming"`
	OverdueCount      int             `json:"overdue_count"`
	GeneratedAt       time.Time       `json:"generated_at"`
}

// Dashboard is the per-month overview of a whole year.
type Dashboard struct {
	Year    int          `json:"year"`
	Months  []MonthTotal `json:"months"`
	Income  Money        `json:"income"`
	Expense Money        `json:"expense"`
	Balance Money        `json:"balance"`
}

// FillDays returns one DailyTotal per day in [from, to), using zero totals
// for days missing from sparse.
func FillDays(from, to Date, sparse []DailyTotal) []DailyTotal {
	byDay := make(map[string]DailyTotal, len(sparse))
	for _, d := range sparse {
		byDay[d.Date.String()] = d
	}
	var out []DailyTotal
	for d := from; d.Before(to); d = d.AddDays(1) {
		if v, ok := byDay[d.String()]; ok {
			out = append(out, v)
			continue
		}
		out = append(out, DailyTotal{Date: d})
	}
	return out
}

// FillMonths returns twelve MonthTotal entries with balances computed.
func FillMonths(sparse []MonthTotal) []MonthTotal {
	out := make([]MonthTotal, 12)
	for i := range out {
		out[i].Month = i + 1
	}
	for _, m := range sparse {
		if m.Month < 1 || m.Month > 12 {
			continue
		}
		out[m.Month-1].Income = m.Income
		out[m.Month-1].Expense = m.Expense
	}
	for i := range out {
		out[i].Balance = out[i].Income.Sub(out[i].Expense)
	}
	return out
}
