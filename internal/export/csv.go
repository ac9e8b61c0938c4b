package export

import (
	"encoding/csv"
	"fmt"
	"io"
)

// WriteCSV writes a header line and one record per row. No totals are added
// so the output stays importable.
func WriteCSV(w io.Writer, rep Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range rep.Rows {
		if err := cw.Write(r.Values()); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
