// Package sheets appends exported transactions to a Google Sheet.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"cashbook/internal/export"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Config struct {
	SpreadsheetID      string
	SheetName          string
	ServiceAccountJSON string
	ServiceAccountFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
}

var _ export.SheetAppender = (*Client)(nil)

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	sheet := strings.TrimSpace(cfg.SheetName)
	if sheet == "" {
		sheet = "Transactions"
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{svc: svc, spreadsheetID: cfg.SpreadsheetID, sheet: sheet}, nil
}

// NewWithService wraps an existing service, e.g. one pointed at a test server.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheet string) *Client {
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheet: sheet}
}

func credentialsJSON(cfg Config) ([]byte, error) {
	switch {
	case strings.TrimSpace(cfg.ServiceAccountJSON) != "":
		return []byte(cfg.ServiceAccountJSON), nil
	case strings.TrimSpace(cfg.ServiceAccountFile) != "":
		b, err := os.ReadFile(cfg.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	}
	return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
}

func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	b, err := credentialsJSON(cfg)
	if err != nil {
		return nil, err
	}
	creds, err := google.CredentialsFromJSON(ctx, b, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account credentials: %w", err)
	}

	// The pooled client carries the oauth2 transport.
	base := context.WithValue(ctx, oauth2.HTTPClient, newHTTPClientWithPooling())
	client := oauth2.NewClient(base, creds.TokenSource)

	svc, err := gsheet.NewService(ctx, goption.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created", "project_id", creds.ProjectID)
	return svc, nil
}

// newHTTPClientWithPooling creates an HTTP client for the Sheets API with
// connection pooling and bounded timeouts.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport, Timeout: 60 * time.Second}
}

// AppendRows adds rows after the last non-empty row of the sheet and reports
// how many were written.
func (c *Client) AppendRows(ctx context.Context, rows [][]any) (int, error) {
	if c.svc == nil {
		return 0, errors.New("sheets service not initialized")
	}
	if len(rows) == 0 {
		return 0, nil
	}
	rng := fmt.Sprintf("%s!A:F", c.sheet)
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return 0, fmt.Errorf("append to sheet %s: %w", c.sheet, err)
	}
	written := len(rows)
	if resp.Updates != nil {
		written = int(resp.Updates.UpdatedRows)
	}
	slog.InfoContext(ctx, "Rows appended to sheet", "sheet", c.sheet, "rows", written)
	return written, nil
}
