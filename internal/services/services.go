// Package services provides business logic and orchestration services.
package services

import (
	"strings"
	"time"

	"cashbook/internal/core"

	"github.com/google/uuid"
)

func utcNow() time.Time { return time.Now().UTC() }

// newToken returns 64 hex characters of randomness.
func newToken() string {
	return strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
}

// newInviteCode returns a short code that is easy to paste.
func newInviteCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}

func fieldError(field string, err error) error {
	v := &core.ValidationError{}
	v.Add(field, err)
	return v
}
