package domain

import (
	"errors"
	"sort"
	"strings"
)

// Error classes. Handlers match on these with errors.Is.
var (
	ErrValidation      = errors.New("validation failed")
	ErrConflict        = errors.New("conflict")
	ErrUnauthenticated = errors.New("unauthenticated")
)

var (
	ErrEmailTaken    = &classError{msg: "email already registered", class: ErrConflict}
	ErrUsernameTaken = &classError{msg: "username already taken", class: ErrConflict}

	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = &classError{msg: "incorrect email or password", class: ErrUnauthenticated}
	ErrAccountInactive    = errors.New("account is deactivated")

	ErrMissingAuthHeader     = &classError{msg: "authorization header missing", class: ErrUnauthenticated}
	ErrMalformedAuthHeader   = &classError{msg: "malformed authorization header", class: ErrUnauthenticated}
	ErrTokenMalformed        = &classError{msg: "malformed token", class: ErrUnauthenticated}
	ErrTokenSignatureInvalid = &classError{msg: "invalid token signature", class: ErrUnauthenticated}
	ErrTokenExpired          = &classError{msg: "token expired", class: ErrUnauthenticated}
	ErrTokenInvalid          = &classError{msg: "invalid token", class: ErrUnauthenticated}
	ErrTokenRevoked          = &classError{msg: "token revoked", class: ErrUnauthenticated}

	ErrForbiddenRole = errors.New("not authorized for this role")
)

// classError is a sentinel that also matches its broader class.
type classError struct {
	msg   string
	class error
}

func (e *classError) Error() string { return e.msg }

func (e *classError) Is(target error) bool { return target == e.class }

// ValidationError carries per-field messages for a rejected payload.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError builds a ValidationError from field/message pairs.
func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, e.Fields[k])
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
