package application

import (
	"errors"
	"sort"
	"strings"
)

var (
	// Authentication failures on login.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("user account is disabled")

	// Authorization failures on protected operations.
	ErrUnauthenticated = errors.New("authentication credentials were not provided")
	ErrForbidden       = errors.New("permission denied")

	// ErrInvalidToken covers malformed, expired, revoked and blacklisted tokens alike.
	ErrInvalidToken = errors.New("token is invalid or expired")

	ErrUserNotFound     = errors.New("user not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrPostNotFound     = errors.New("post not found")
)

// ValidationError is a field-scoped input error. Fields maps field name to message.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// IsValidation unwraps err into a *ValidationError.
func IsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// IsNotFound reports whether err is one of the not-found errors.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrCategoryNotFound) ||
		errors.Is(err, ErrPostNotFound)
}
