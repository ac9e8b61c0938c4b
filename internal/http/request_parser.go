// Package http provides the JSON API server and its handlers.
//
// This file implements utilities for parsing and validating HTTP request data:
// JSON bodies, path ids, month selectors and transaction filters.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"cashbook/internal/core"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

var errBadJSON = errors.New("malformed JSON body")

// MonthParams holds parsed year/month values from request parameters.
type MonthParams struct {
	Year  int
	Month int
}

// ParseMonthParams extracts year and month from the query, defaulting to the
// month containing now. Out-of-range values are a validation error.
func ParseMonthParams(query url.Values, now time.Time) (MonthParams, error) {
	params := MonthParams{Year: now.Year(), Month: int(now.Month())}
	var v core.ValidationError

	if s := strings.TrimSpace(query.Get("year")); s != "" {
		y, err := strconv.Atoi(s)
		if err != nil || y < 1970 || y > 2200 {
			v.Add("year", core.ErrInvalidDate)
		} else {
			params.Year = y
		}
	}
	if s := strings.TrimSpace(query.Get("month")); s != "" {
		m, err := strconv.Atoi(s)
		if err != nil || m < 1 || m > 12 {
			v.Add("month", core.ErrInvalidDate)
		} else {
			params.Month = m
		}
	}
	return params, v.OrNil()
}

// ParseFilter reads transaction filters: from, to, type, category_id, tag, q,
// limit and offset. Unknown parameters are ignored.
func ParseFilter(query url.Values) (core.Filter, error) {
	var (
		f core.Filter
		v core.ValidationError
	)
	if s := query.Get("from"); s != "" {
		d, err := core.ParseDate(s)
		if err != nil {
			v.Add("from", err)
		}
		f.From = d
	}
	if s := query.Get("to"); s != "" {
		d, err := core.ParseDate(s)
		if err != nil {
			v.Add("to", err)
		}
		f.To = d
	}
	if s := strings.TrimSpace(query.Get("type")); s != "" {
		f.Type = core.TxType(strings.ToLower(s))
		if !f.Type.Valid() {
			v.Add("type", core.ErrInvalidKind)
		}
	}
	f.CategoryID = queryInt64(query, "category_id", &v)
	f.Tag = strings.ToLower(sanitizeInput(query.Get("tag")))
	f.Query = sanitizeInput(query.Get("q"))
	f.Limit = int(queryInt64(query, "limit", &v))
	f.Offset = int(queryInt64(query, "offset", &v))
	return f, v.OrNil()
}

func queryInt64(query url.Values, key string, v *core.ValidationError) int64 {
	s := strings.TrimSpace(query.Get(key))
	if s == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		v.Add(key, fmt.Errorf("must be a non-negative integer"))
		return 0
	}
	return n
}

// PathID parses the named path wildcard as a positive id. A bad id reads as
// not found so that probing ids looks the same as missing rows.
func PathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, core.ErrNotFound
	}
	return id, nil
}

// DecodeJSON reads a single JSON object into dst, rejecting unknown fields
// and bodies over maxBodyBytes. Domain decode errors (amounts, dates) are
// reported as validation errors.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return fmt.Errorf("%w: body too large", errBadJSON)
		case errors.Is(err, core.ErrInvalidAmount):
			return fieldErr("amount", err)
		case errors.Is(err, core.ErrInvalidDate):
			return fieldErr("date", err)
		case errors.Is(err, io.EOF):
			return fmt.Errorf("%w: empty body", errBadJSON)
		}
		return fmt.Errorf("%w: %v", errBadJSON, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data", errBadJSON)
	}
	return nil
}

func fieldErr(field string, err error) error {
	v := &core.ValidationError{}
	v.Add(field, err)
	return v
}

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
