package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrJobNotFound is returned when a job id does not match any record
	ErrJobNotFound = errors.New("job not found")

	// ErrUserNotFound is returned when an API key does not match any user
	ErrUserNotFound = errors.New("user not found")

	// ErrNotificationNotFound is returned when a notification id does not
	// match any record owned by the caller
	ErrNotificationNotFound = errors.New("notification not found")

	// ErrQuotaExceeded is returned when the monthly creation quota is reached
	ErrQuotaExceeded = errors.New("monthly job quota exceeded")

	// ErrRateLimited is returned when the rolling per-minute request limit
	// is reached
	ErrRateLimited = errors.New("request rate limit exceeded")
)

// FieldError describes a single invalid request field
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// ValidationError aggregates the field errors of a rejected request
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "invalid request"
	}
	return "invalid request: " + e.Fields[0].Error()
}

func (e *ValidationError) add(field, reason string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Reason: reason})
}
