package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"cashbook/internal/core"
	"cashbook/internal/export"
	"cashbook/internal/storage"
)

// ErrSheetsDisabled is returned when no spreadsheet is configured.
var ErrSheetsDisabled = errors.New("google sheets export is not configured")

type ExportService struct {
	repo   *storage.SQLiteRepository
	sheets export.SheetAppender
}

// NewExportService wires the service; sheets may be nil.
func NewExportService(repo *storage.SQLiteRepository, sheets export.SheetAppender) *ExportService {
	return &ExportService{repo: repo, sheets: sheets}
}

// Report loads every transaction matching f, oldest first.
func (s *ExportService) Report(ctx context.Context, userID int64, f core.Filter) (export.Report, error) {
	f.Limit, f.Offset = 0, 0
	txs, err := s.repo.ListTransactions(ctx, userID, f)
	if err != nil {
		return export.Report{}, err
	}
	cats, err := s.repo.ListCategories(ctx, userID)
	if err != nil {
		return export.Report{}, err
	}
	names := make(map[int64]string, len(cats))
	for _, c := range cats {
		names[c.ID] = c.Name
	}
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return export.Report{}, err
	}

	rep := export.Report{
		Title:    "Transactions",
		From:     f.From,
		To:       f.To,
		Currency: settings.Currency,
		Rows:     make([]export.Row, 0, len(txs)),
	}
	for i := len(txs) - 1; i >= 0; i-- {
		t := txs[i]
		rep.Rows = append(rep.Rows, export.Row{
			Date:        t.Date,
			Type:        t.Type,
			Category:    names[t.CategoryID],
			Description: t.Description,
			Amount:      t.Amount,
			Tags:        t.Tags,
		})
	}
	return rep, nil
}

// Export renders matching transactions to w.
func (s *ExportService) Export(ctx context.Context, userID int64, format export.Format, f core.Filter, w io.Writer) error {
	rep, err := s.Report(ctx, userID, f)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := export.Write(w, format, rep); err != nil {
		return fmt.Errorf("export %s: %w", format, err)
	}
	slog.InfoContext(ctx, "Transactions exported", "user_id", userID, "format", format, "rows", len(rep.Rows))
	return nil
}

// AppendToSheet appends matching transactions to the configured Google Sheet.
func (s *ExportService) AppendToSheet(ctx context.Context, userID int64, f core.Filter) (int, error) {
	if s.sheets == nil {
		return 0, ErrSheetsDisabled
	}
	rep, err := s.Report(ctx, userID, f)
	if err != nil {
		return 0, fmt.Errorf("export to sheets: %w", err)
	}
	n, err := s.sheets.AppendRows(ctx, export.SheetRows(rep.Rows))
	if err != nil {
		return 0, fmt.Errorf("export to sheets: %w", err)
	}
	return n, nil
}
