package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"log/slog"
	"testing"

	"cashbook/internal/core"
	applog "cashbook/internal/log"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONResponseBuilder(t *testing.T) {
	rr := httptest.NewRecorder()
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("X-Custom", "value").
		Body(map[string]string{"key": "value"}).
		Write(rr)

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "value", rr.Header().Get("X-Custom"))
	assert.Equal(t, "application/json; charset=utf-8", rr.Header().Get("Content-Type"))

	var got map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "value", got["key"])
}

func TestJSONResponseBuilderNoContent(t *testing.T) {
	rr := httptest.NewRecorder()
	NewJSONResponse().Status(http.StatusNoContent).Body(map[string]string{"ignored": "yes"}).Write(rr)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, rr.Body.String())
	assert.Empty(t, rr.Header().Get("Content-Type"))
}

func TestStatusFor(t *testing.T) {
	validation := &core.ValidationError{}
	validation.Add("amount", core.ErrInvalidAmount)

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"bad json", fmt.Errorf("%w: trailing data", errBadJSON), http.StatusBadRequest},
		{"validation", validation, http.StatusUnprocessableEntity},
		{"invite required", core.ErrInviteRequired, http.StatusUnprocessableEntity},
		{"invite invalid", core.ErrInviteInvalid, http.StatusUnprocessableEntity},
		{"not found", fmt.Errorf("transaction 3: %w", core.ErrNotFound), http.StatusNotFound},
		{"conflict", core.ErrConflict, http.StatusConflict},
		{"unauthorized", core.ErrUnauthorized, http.StatusUnauthorized},
		{"session expired", core.ErrSessionExpired, http.StatusUnauthorized},
		{"forbidden", core.ErrForbidden, http.StatusForbidden},
		{"disabled", core.ErrUserDisabled, http.StatusForbidden},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}

func TestErrorFrom(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/transactions", nil)

	t.Run("validation lists fields", func(t *testing.T) {
		verr := &core.ValidationError{}
		verr.Add("amount", core.ErrInvalidAmount)
		verr.Add("date", core.ErrInvalidDate)

		rr := httptest.NewRecorder()
		ErrorFrom(req, verr).Write(rr)

		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		var body errorBody
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, []string{"amount", "date"}, body.Fields)
		assert.Contains(t, body.Error, "invalid amount")
	})

	t.Run("server errors are not leaked", func(t *testing.T) {
		rr := httptest.NewRecorder()
		ErrorFrom(req, errors.New("sqlite: database is locked at /var/lib/x.db")).Write(rr)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.NotContains(t, rr.Body.String(), "sqlite")
		assert.Contains(t, rr.Body.String(), "internal server error")
	})

	t.Run("server errors are logged with the caller", func(t *testing.T) {
		var buf bytes.Buffer
		logger := applog.New(applog.Config{Level: slog.LevelInfo, Format: "json", Output: &buf})
		ctx := withPrincipal(applog.NewContext(req.Context(), logger), principal{User: core.User{ID: 9}})
		r := req.WithContext(ctx)
		r.Pattern = "POST /api/transactions"

		ErrorFrom(r, errors.New("disk I/O error")).Write(httptest.NewRecorder())

		var line map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
		assert.Equal(t, "Request failed", line["msg"])
		assert.Equal(t, "disk I/O error", line[applog.FieldError])
		assert.Equal(t, float64(9), line[applog.FieldUserID])
		assert.Equal(t, applog.ErrorTypeInternal, line[applog.FieldErrorType])
		assert.Equal(t, "POST /api/transactions", line[applog.FieldOperation])
	})

	t.Run("unauthorized carries challenge", func(t *testing.T) {
		rr := httptest.NewRecorder()
		ErrorFrom(req, core.ErrSessionExpired).Write(rr)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, `Bearer realm="cashbook"`, rr.Header().Get("WWW-Authenticate"))
	})
}

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		name    string
		builder *JSONResponseBuilder
		status  int
	}{
		{"bad request", BadRequestError("bad"), http.StatusBadRequest},
		{"not found", NotFoundError("missing"), http.StatusNotFound},
		{"unauthorized", UnauthorizedError("login"), http.StatusUnauthorized},
		{"forbidden", ForbiddenError("no"), http.StatusForbidden},
		{"internal", InternalServerError(), http.StatusInternalServerError},
		{"too many", TooManyRequestsError(), http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			tt.builder.Write(rr)
			assert.Equal(t, tt.status, rr.Code)

			var body errorBody
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.NotEmpty(t, body.Error)
		})
	}
}
