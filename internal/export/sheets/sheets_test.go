package sheets

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

func TestAppendRows(t *testing.T) {
	var gotPath, gotQuery string
	var body struct {
		Values [][]any `json:"values"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"updates":{"updatedRows":2}}`))
	}))
	defer srv.Close()

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	c := NewWithService(svc, "sheet-id", "Transactions")
	n, err := c.AppendRows(context.Background(), [][]any{
		{"2025-03-01", "expense", "Groceries", "Milk", "-1.50", ""},
		{"2025-03-02", "income", "Salary", "Pay", "1000.00", "work"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Contains(t, gotPath, "/v4/spreadsheets/sheet-id/values/Transactions!A:F:append")
	assert.True(t, strings.Contains(gotQuery, "valueInputOption=USER_ENTERED"), gotQuery)
	require.Len(t, body.Values, 2)
	assert.Equal(t, "Milk", body.Values[0][3])
}

func TestAppendRowsWithoutService(t *testing.T) {
	c := NewWithService(nil, "id", "Transactions")
	_, err := c.AppendRows(context.Background(), [][]any{{"x"}})
	assert.Error(t, err)
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(context.Background(), Config{SpreadsheetID: "id"})
	assert.ErrorContains(t, err, "missing service account credentials")

	_, err = New(context.Background(), Config{})
	assert.ErrorContains(t, err, "missing spreadsheet id")
}
