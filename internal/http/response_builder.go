// Package http provides the JSON API server and its handlers.
//
// This file implements the Builder Pattern for constructing JSON responses
// and the mapping from domain errors to HTTP status codes.

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"cashbook/internal/core"
	applog "cashbook/internal/log"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	payload    any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.payload = v
	return b
}

// Write sends the built response. A nil body with 204 writes nothing.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.payload == nil || b.statusCode == http.StatusNoContent {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.payload)
}

// errorBody is the shape of every error response.
type errorBody struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields,omitempty"`
}

// ErrorResponse creates a standard error response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Body(errorBody{Error: message})
}

func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func UnauthorizedError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnauthorized, message).Header("WWW-Authenticate", `Bearer realm="cashbook"`)
}

func ForbiddenError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusForbidden, message)
}

func InternalServerError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, "internal server error")
}

func TooManyRequestsError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, try again later")
}

// StatusFor maps a service error onto an HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, errBadJSON):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrValidation),
		errors.Is(err, core.ErrInviteRequired),
		errors.Is(err, core.ErrInviteInvalid):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, core.ErrUnauthorized), errors.Is(err, core.ErrSessionExpired):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrForbidden), errors.Is(err, core.ErrUserDisabled):
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

// ErrorFrom builds the response for err. Server errors get a generic message;
// the details are only logged.
func ErrorFrom(r *http.Request, err error) *JSONResponseBuilder {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		ctx := r.Context()
		fields := applog.NewFields().
			WithHTTPRequest(r.Method, r.URL.Path, "", "").
			WithUser(currentUser(r)).
			WithErrorType(applog.ErrorTypeInternal)
		applog.NewStructuredLogger(applog.FromContext(ctx)).LogError(ctx, "Request failed", err, r.Pattern, fields)
		return InternalServerError()
	}

	body := errorBody{Error: err.Error()}
	var verr *core.ValidationError
	if errors.As(err, &verr) {
		for _, f := range verr.Fields {
			body.Fields = append(body.Fields, f.Field)
		}
	}
	b := NewJSONResponse().Status(status).Body(body)
	if status == http.StatusUnauthorized {
		b.Header("WWW-Authenticate", `Bearer realm="cashbook"`)
	}
	return b
}
