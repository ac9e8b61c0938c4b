package core

import (
	"errors"
	"strings"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrForbidden      = errors.New("forbidden")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrSessionExpired = errors.New("session expired")
	ErrValidation     = errors.New("validation failed")

	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDate      = errors.New("invalid date")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyName        = errors.New("empty name")
	ErrInvalidKind      = errors.New("invalid kind")
	ErrInvalidPeriod    = errors.New("invalid period")
	ErrInvalidRepeat    = errors.New("invalid repeat")
	ErrInvalidEmail     = errors.New("invalid email")
	ErrWeakPassword     = errors.New("password must be at least 8 characters")
	ErrInviteRequired   = errors.New("invite code required")
	ErrInviteInvalid    = errors.New("invite code invalid or expired")
	ErrUserDisabled     = errors.New("user disabled")
)

// FieldError is a single invalid field.
type FieldError struct {
	Field string `json:"field"`
	Err   error  `json:"-"`
}

// ValidationError collects field problems found by a Validate method.
// It matches ErrValidation and every wrapped field error with errors.Is.
type ValidationError struct {
	Fields []FieldError
}

func (v *ValidationError) Add(field string, err error) {
	v.Fields = append(v.Fields, FieldError{Field: field, Err: err})
}

// OrNil returns v as an error when it holds at least one field problem.
func (v *ValidationError) OrNil() error {
	if v == nil || len(v.Fields) == 0 {
		return nil
	}
	return v
}

func (v *ValidationError) Error() string {
	parts := make([]string, 0, len(v.Fields))
	for _, f := range v.Fields {
		parts = append(parts, f.Field+": "+f.Err.Error())
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (v *ValidationError) Unwrap() []error {
	errs := make([]error, 0, len(v.Fields)+1)
	errs = append(errs, ErrValidation)
	for _, f := range v.Fields {
		errs = append(errs, f.Err)
	}
	return errs
}
