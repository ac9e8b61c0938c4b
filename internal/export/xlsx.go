package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Transactions"

func WriteXLSX(w io.Writer, rep Report) error {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", sheetName)

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("xlsx style: %w", err)
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return fmt.Errorf("xlsx style: %w", err)
	}

	set := func(col, row int, v any) error {
		cell, err := excelize.CoordinatesToCellName(col, row)
		if err != nil {
			return err
		}
		return f.SetCellValue(sheetName, cell, v)
	}

	for i, h := range header {
		if err := set(i+1, 1, strings.ToUpper(h[:1])+h[1:]); err != nil {
			return fmt.Errorf("xlsx header: %w", err)
		}
	}
	if err := f.SetCellStyle(sheetName, "A1", "F1", bold); err != nil {
		return fmt.Errorf("xlsx header style: %w", err)
	}

	row := 2
	for _, r := range rep.Rows {
		amount, _ := r.Amount.Decimal().Float64()
		values := []any{r.Date.String(), string(r.Type), r.Category, r.Description, amount, strings.Join(r.Tags, ";")}
		for col, v := range values {
			if err := set(col+1, row, v); err != nil {
				return fmt.Errorf("xlsx row %d: %w", row, err)
			}
		}
		row++
	}
	lastData := row - 1

	totals := rep.Totals()
	row++
	income, _ := totals.Income.Decimal().Float64()
	expense, _ := totals.Expense.Decimal().Float64()
	balance, _ := totals.Balance.Float64()
	for _, line := range []struct {
		label string
		value float64
	}{
		{"Total income", income},
		{"Total expense", expense},
		{"Balance", balance},
	} {
		if err := set(4, row, line.label); err != nil {
			return fmt.Errorf("xlsx totals: %w", err)
		}
		if err := set(5, row, line.value); err != nil {
			return fmt.Errorf("xlsx totals: %w", err)
		}
		if err := f.SetCellStyle(sheetName, fmt.Sprintf("D%d", row), fmt.Sprintf("E%d", row), bold); err != nil {
			return fmt.Errorf("xlsx totals style: %w", err)
		}
		row++
	}
	if lastData >= 2 {
		if err := f.SetCellStyle(sheetName, "E2", fmt.Sprintf("E%d", lastData), money); err != nil {
			return fmt.Errorf("xlsx amount style: %w", err)
		}
	}
	if err := f.SetColWidth(sheetName, "A", "A", 12); err != nil {
		return fmt.Errorf("xlsx column width: %w", err)
	}
	if err := f.SetColWidth(sheetName, "C", "D", 28); err != nil {
		return fmt.Errorf("xlsx column width: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}
