package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-pdf/fpdf"
)

var pdfColumns = []struct {
	title string
	width float64
	align string
}{
	{"Date", 24, "L"},
	{"Type", 20, "L"},
	{"Category", 36, "L"},
	{"Description", 62, "L"},
	{"Amount", 28, "R"},
}

func WritePDF(w io.Writer, rep Report) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(rep.Title, true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr(rep.Title), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, tr(rep.Period()), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for _, c := range pdfColumns {
		pdf.CellFormat(c.width, 7, c.title, "1", 0, c.align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, r := range rep.Rows {
		amount := r.Amount.String()
		if r.Type == "expense" {
			amount = "-" + amount
		}
		cells := []string{r.Date.String(), string(r.Type), r.Category, truncate(r.Description, 40), amount}
		for i, c := range pdfColumns {
			pdf.CellFormat(c.width, 6, tr(cells[i]), "1", 0, c.align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	totals := rep.Totals()
	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 10)
	suffix := ""
	if rep.Currency != "" {
		suffix = " " + rep.Currency
	}
	for _, line := range [][2]string{
		{"Total income", totals.Income.String()},
		{"Total expense", totals.Expense.String()},
		{"Balance", totals.Balance.StringFixed(2)},
	} {
		pdf.CellFormat(142, 6, line[0], "", 0, "R", false, 0, "")
		pdf.CellFormat(28, 6, line[1]+suffix, "", 1, "R", false, 0, "")
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n-1]) + "…"
}
