// Package export renders transaction reports as CSV, XLSX or PDF.
package export

import (
	"context"
	"fmt"
	"io"
	"strings"

	"cashbook/internal/core"

	"github.com/shopspring/decimal"
)

type Format string

const (
	CSV    Format = "csv"
	XLSX   Format = "xlsx"
	PDF    Format = "pdf"
	Sheets Format = "sheets"
)

var header = []string{"date", "type", "category", "description", "amount", "tags"}

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case CSV, XLSX, PDF, Sheets:
		return f, nil
	case "":
		return CSV, nil
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

func (f Format) ContentType() string {
	switch f {
	case XLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case PDF:
		return "application/pdf"
	}
	return "text/csv; charset=utf-8"
}

func (f Format) Extension() string { return string(f) }

// Row is one exported transaction with its category resolved to a name.
type Row struct {
	Date        core.Date
	Type        core.TxType
	Category    string
	Description string
	Amount      core.Money
	Tags        []string
}

// Values returns the row in column order with the amount as a decimal string.
func (r Row) Values() []string {
	return []string{
		r.Date.String(),
		string(r.Type),
		r.Category,
		r.Description,
		r.Amount.String(),
		strings.Join(r.Tags, ";"),
	}
}

type Report struct {
	Title    string
	From, To core.Date // inclusive, zero when open
	Currency string
	Rows     []Row
}

type Totals struct {
	Income  core.Money
	Expense core.Money
	Balance decimal.Decimal
}

func (r Report) Totals() Totals {
	var t Totals
	t.Balance = decimal.Zero
	for _, row := range r.Rows {
		if row.Type == core.Income {
			t.Income = t.Income.Add(row.Amount)
		} else {
			t.Expense = t.Expense.Add(row.Amount)
		}
		t.Balance = t.Balance.Add(core.Signed(row.Type, row.Amount))
	}
	return t
}

// Period describes the report range for headings.
func (r Report) Period() string {
	switch {
	case r.From.IsZero() && r.To.IsZero():
		return "All time"
	case r.From.IsZero():
		return "Until " + r.To.String()
	case r.To.IsZero():
		return "From " + r.From.String()
	}
	return r.From.String() + " to " + r.To.String()
}

// Write renders rep in a file format. Sheets is not a file format.
func Write(w io.Writer, f Format, rep Report) error {
	switch f {
	case CSV:
		return WriteCSV(w, rep)
	case XLSX:
		return WriteXLSX(w, rep)
	case PDF:
		return WritePDF(w, rep)
	}
	return fmt.Errorf("format %q cannot be written to a file", f)
}

// SheetAppender appends rows to a remote spreadsheet.
type SheetAppender interface {
	AppendRows(ctx context.Context, rows [][]any) (int, error)
}

// SheetRows converts rows for a spreadsheet, with signed numeric amounts so
// spreadsheet formulas can sum them.
func SheetRows(rows []Row) [][]any {
	out := make([][]any, 0, len(rows))
	for _, r := range rows {
		out = append(out, []any{
			r.Date.String(),
			string(r.Type),
			r.Category,
			r.Description,
			core.Signed(r.Type, r.Amount).StringFixed(2),
			strings.Join(r.Tags, ";"),
		})
	}
	return out
}
