package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrMissingToken       = errors.New("no access token")
	ErrUnauthorized       = errors.New("access token rejected")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrRefreshRejected    = errors.New("refresh token rejected")
	ErrNoRole             = errors.New("user has no role")
	ErrForbidden          = errors.New("role may not perform this action")
)

// ValidationError reports unusable caller input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func Invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ConflictError is returned when a booking would overlap existing ones.
type ConflictError struct {
	ArenaID   string
	Date      string
	Conflicts []Booking
}

func (e *ConflictError) Error() string {
	ids := make([]string, len(e.Conflicts))
	for i, b := range e.Conflicts {
		ids[i] = b.ID
	}
	return fmt.Sprintf("time conflict on arena %s at %s with bookings %s", e.ArenaID, e.Date, strings.Join(ids, ","))
}
