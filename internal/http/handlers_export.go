package http

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"cashbook/internal/export"
	applog "cashbook/internal/log"
	"cashbook/internal/services"
)

// handleExport streams the caller's filtered transactions as a file, or
// appends them to the configured spreadsheet when format=sheets.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	format, err := export.ParseFormat(query.Get("format"))
	if err != nil {
		ErrorFrom(r, fieldErr("format", err)).Write(w)
		return
	}
	f, err := ParseFilter(query)
	if err != nil {
		ErrorFrom(r, err).Write(w)
		return
	}
	logger := applog.FromContext(r.Context())

	if format == export.Sheets {
		n, err := s.svc.Export.AppendToSheet(r.Context(), currentUser(r), f)
		if errors.Is(err, services.ErrSheetsDisabled) {
			ErrorResponse(http.StatusNotImplemented, err.Error()).Write(w)
			return
		}
		if err != nil {
			ErrorFrom(r, err).Write(w)
			return
		}
		logger.InfoContext(r.Context(), "Exported to spreadsheet",
			applog.FieldOperation, applog.OpExport,
			applog.FieldFormat, string(format),
			"rows", n)
		NewJSONResponse().Body(map[string]int{"appended": n}).Write(w)
		return
	}

	// Buffered so a failure halfway still yields a proper error response.
	var buf bytes.Buffer
	if err := s.svc.Export.Export(r.Context(), currentUser(r), format, f, &buf); err != nil {
		ErrorFrom(r, err).Write(w)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "cashbook-export."+format.Extension()))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		logger.WarnContext(r.Context(), "Export write failed", applog.FieldError, err.Error())
	}
}
